package exporter

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/my-entourage/notion-export/internal/logger"
	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/notion"
	"github.com/my-entourage/notion-export/internal/pathindex"
	"github.com/my-entourage/notion-export/internal/progress"
	"github.com/my-entourage/notion-export/internal/snapshot"
)

// Source is the read side of a workspace, implemented by *notion.Client
type Source interface {
	Users(ctx context.Context) (map[string]models.User, error)
	Search(ctx context.Context, kind string) ([]models.Page, error)
	Page(ctx context.Context, id string) (models.Page, error)
	Database(ctx context.Context, id string) (models.Page, error)
	QueryDatabase(ctx context.Context, id string) ([]models.Page, error)
	BlockTree(ctx context.Context, id string) ([]models.Block, error)
	Comments(ctx context.Context, id string) ([]models.Comment, error)
}

// Options configures an export run
type Options struct {
	// OutputDir is the dated directory receiving export.json and assets/
	OutputDir string
	Excludes  []*regexp.Regexp
	// Downloader fetches assets; nil uses an HTTPDownloader
	Downloader Downloader
	// Now stamps the snapshot; nil uses time.Now
	Now func() time.Time
}

// Exporter copies every page and database shared with the integration into
// a snapshot file
type Exporter struct {
	source Source
	opts   Options
}

// New creates an exporter reading from source
func New(source Source, opts Options) *Exporter {
	if opts.Downloader == nil {
		opts.Downloader = NewHTTPDownloader(DownloadTimeout)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Exporter{source: source, opts: opts}
}

// Path returns the snapshot file written by Run
func (e *Exporter) Path() string {
	return filepath.Join(e.opts.OutputDir, snapshot.FileName)
}

// Run exports the workspace. The snapshot is saved after every item, so an
// interrupted run leaves a loadable in_progress document behind.
func (e *Exporter) Run(ctx context.Context) (*models.Snapshot, error) {
	s := &models.Snapshot{
		APIVersion: notion.APIVersion,
		Users:      map[string]models.User{},
		Comments:   map[string][]models.Comment{},
		Assets:     map[string]string{},
		Databases:  map[string]models.Page{},
		Pages:      map[string]models.Page{},
	}

	users, err := e.source.Users(ctx)
	switch {
	case notion.IsForbidden(err):
		logger.Warn("Users API not available (missing capability), continuing without user data")
	case err != nil:
		return nil, err
	default:
		s.Users = users
	}
	logger.Info("Fetched users", map[string]interface{}{
		"count": len(s.Users),
	})

	items, err := e.search(ctx)
	if err != nil {
		return nil, err
	}
	logger.Info("Exporting items", map[string]interface{}{
		"count": len(items),
	})

	assets := newAssetStore(filepath.Join(e.opts.OutputDir, snapshot.AssetsDir), e.opts.Downloader, s.Assets)
	bar := progress.New(len(items))
	defer bar.Close()

	for i, item := range items {
		title := pathindex.Title(item)
		bar.Advance(title)

		if err := e.exportItem(ctx, s, assets, item); err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Error("Failed to export item", err, map[string]interface{}{
				"id":     item.ID,
				"title":  title,
				"object": item.Object,
			})
			continue
		}

		if err := e.save(s, models.StatusInProgress, i+1, len(items)); err != nil {
			return nil, err
		}
	}
	bar.Finish("exported")

	e.referencedDatabases(ctx, s)
	if err := e.comments(ctx, s); err != nil {
		return nil, err
	}

	if err := e.save(s, models.StatusComplete, len(items), len(items)); err != nil {
		return nil, err
	}
	logger.Info("Export complete", map[string]interface{}{
		"path":                 e.Path(),
		"pages":                s.PageCount,
		"databases":            s.DatabaseCount,
		"data_sources":         s.DataSourceCount,
		"referenced_databases": s.ReferencedDatabaseCount,
		"users":                s.UserCount,
		"comments":             s.CommentCount,
		"assets":               s.AssetCount,
		"downloaded":           humanize.Bytes(uint64(assets.bytes)),
	})
	return s, nil
}

// search lists shared pages, then databases, dropping excluded titles and
// objects returned twice
func (e *Exporter) search(ctx context.Context) ([]models.Page, error) {
	seen := map[string]bool{}
	var items []models.Page
	for _, kind := range []string{notion.KindPage, notion.KindDatabase} {
		results, err := e.source.Search(ctx, kind)
		if err != nil {
			return nil, err
		}
		for _, item := range results {
			if seen[item.ID] {
				continue
			}
			title := pathindex.Title(item)
			if e.excluded(title) {
				logger.Info("Skipping excluded item", map[string]interface{}{
					"id":    item.ID,
					"title": title,
				})
				continue
			}
			seen[item.ID] = true
			items = append(items, item)
		}
	}
	return items, nil
}

func (e *Exporter) excluded(title string) bool {
	for _, re := range e.opts.Excludes {
		if re.MatchString(title) {
			return true
		}
	}
	return false
}

func (e *Exporter) exportItem(ctx context.Context, s *models.Snapshot, assets *assetStore, item models.Page) error {
	if item.IsDatabase() {
		return e.exportDatabase(ctx, s, assets, item.ID)
	}

	page, err := e.source.Page(ctx, item.ID)
	if err != nil {
		return err
	}
	if page.Blocks, err = e.source.BlockTree(ctx, page.ID); err != nil {
		return err
	}
	if n := assets.page(ctx, &page); n > 0 {
		logger.Info("Downloaded assets", map[string]interface{}{
			"id":    page.ID,
			"count": n,
		})
	}
	s.Pages[page.ID] = page
	return nil
}

// exportDatabase stores a database and each of its entries as objects of
// their own. Entries already exported through search are kept as they are.
func (e *Exporter) exportDatabase(ctx context.Context, s *models.Snapshot, assets *assetStore, id string) error {
	db, err := e.source.Database(ctx, id)
	if err != nil {
		return err
	}
	entries, err := e.source.QueryDatabase(ctx, id)
	if err != nil {
		return err
	}

	title := pathindex.Title(db)
	for i, entry := range entries {
		if _, ok := s.Pages[entry.ID]; ok {
			continue
		}
		logger.Debug("Exporting database entry", map[string]interface{}{
			"database": title,
			"entry":    fmt.Sprintf("%d/%d", i+1, len(entries)),
			"title":    pathindex.Title(entry),
		})
		if entry.Blocks, err = e.source.BlockTree(ctx, entry.ID); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Error("Failed to export database entry", err, map[string]interface{}{
				"database": db.ID,
				"id":       entry.ID,
			})
			continue
		}
		assets.page(ctx, &entry)
		s.Pages[entry.ID] = entry
	}

	s.Pages[db.ID] = db
	logger.Info("Exported database", map[string]interface{}{
		"id":      db.ID,
		"title":   title,
		"entries": len(entries),
	})
	return nil
}

// referencedDatabases fetches the databases owning exported entries that
// were not exported themselves, so their titles can name directories
func (e *Exporter) referencedDatabases(ctx context.Context, s *models.Snapshot) {
	ids := map[string]bool{}
	for _, p := range s.Pages {
		if !p.Parent.IsDatabaseEntry() || p.Parent.DatabaseID == "" {
			continue
		}
		if _, ok := s.Pages[p.Parent.DatabaseID]; ok {
			continue
		}
		ids[p.Parent.DatabaseID] = true
	}

	for _, id := range sortedKeys(ids) {
		db, err := e.source.Database(ctx, id)
		switch {
		case notion.IsNotFound(err):
			logger.Warn("Referenced database not found (may not be shared)", map[string]interface{}{
				"id": id,
			})
		case err != nil:
			logger.Warn("Failed to fetch referenced database", map[string]interface{}{
				"id":    id,
				"error": err.Error(),
			})
		default:
			s.Databases[id] = db
		}
	}
}

// comments collects the comments of every exported object. A 403 means the
// integration lacks the comment capability; seen on the first object it
// disables comments for the run.
func (e *Exporter) comments(ctx context.Context, s *models.Snapshot) error {
	for i, id := range s.PageIDs() {
		comments, err := e.source.Comments(ctx, id)
		switch {
		case notion.IsForbidden(err):
			if i == 0 {
				logger.Warn("Comments API not available (missing capability), continuing without comments")
				return nil
			}
			continue
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			logger.Warn("Failed to fetch comments", map[string]interface{}{
				"id":    id,
				"error": err.Error(),
			})
			continue
		}
		if len(comments) > 0 {
			s.Comments[id] = comments
		}
	}
	logger.Info("Fetched comments", map[string]interface{}{
		"pages": len(s.Comments),
	})
	return nil
}

func (e *Exporter) save(s *models.Snapshot, status string, completed, total int) error {
	s.ExportedAt = e.opts.Now().UTC().Format(time.RFC3339)
	s.ExportStatus = status
	s.Progress = fmt.Sprintf("%d/%d", completed, total)
	s.UpdateCounts()
	return snapshot.Save(e.Path(), s)
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
