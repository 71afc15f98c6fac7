package converter

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"golang.org/x/sync/errgroup"

	"github.com/my-entourage/notion-export/internal/exportfs"
	"github.com/my-entourage/notion-export/internal/logger"
	"github.com/my-entourage/notion-export/internal/markdown"
	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/pathindex"
	"github.com/my-entourage/notion-export/internal/progress"
)

// Output file names under the output root
const (
	IndexFile  = "_index.json"
	UsersFile  = "_users.json"
	AssetsDir  = "_assets"
	SchemaFile = "_schema.json"
)

// Options configures a conversion run
type Options struct {
	// OutputDir is the root every Markdown path is relative to
	OutputDir string
	// AssetsDir holds the snapshot's downloaded files; empty skips the copy
	AssetsDir string
	// Workers bounds concurrent page renders; values below 1 mean 1
	Workers int
}

// Stats summarizes a conversion run
type Stats struct {
	Pages      int
	Databases  int
	Entries    int
	Errors     int
	Assets     int
	AssetBytes int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%d pages, %d databases, %d entries, %d assets (%s), %d errors",
		s.Pages, s.Databases, s.Entries, s.Assets, humanize.Bytes(uint64(s.AssetBytes)), s.Errors)
}

// Converter turns a snapshot into a tree of Markdown files
type Converter struct {
	opts Options
}

// New creates a converter
func New(opts Options) *Converter {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	return &Converter{opts: opts}
}

type pageResult struct {
	id   string
	path string
	page models.Page
	err  error
}

// Run converts every page of s. Failures of single pages are logged and
// counted; only output setup errors and cancellation abort the run.
func (c *Converter) Run(ctx context.Context, s *models.Snapshot) (Stats, error) {
	var stats Stats

	idx := pathindex.Build(s.Pages, s.Databases)
	if err := c.writeJSON(IndexFile, idx); err != nil {
		return stats, err
	}

	users := s.Users
	if users == nil {
		users = map[string]models.User{}
	}
	if err := c.writeJSON(UsersFile, users); err != nil {
		return stats, err
	}

	if c.opts.AssetsDir != "" {
		copied, err := exportfs.CopyDir(c.opts.AssetsDir, filepath.Join(c.opts.OutputDir, AssetsDir))
		if err != nil {
			return stats, fmt.Errorf("failed to copy assets: %w", err)
		}
		stats.Assets, stats.AssetBytes = copied.Files, copied.Bytes
		if copied.Files > 0 {
			logger.Info("Copied assets", map[string]interface{}{
				"count": copied.Files,
				"bytes": humanize.Bytes(uint64(copied.Bytes)),
			})
		}
	}

	env := markdown.Env{
		Users:    users,
		Index:    idx,
		Comments: markdown.IndexComments(s.Comments),
		Assets:   markdown.CachedAssets(s.Assets),
	}

	ids := s.PageIDs()
	results := make([]pageResult, len(ids))
	bar := progress.New(len(ids))
	defer bar.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.opts.Workers)
	for i, id := range ids {
		if gctx.Err() != nil {
			break
		}
		i, id := i, id
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			page := s.Pages[id]
			results[i] = pageResult{id: id, path: idx[id], page: page}
			results[i].err = c.convertPage(page, env, idx[id])
			bar.Advance(pathindex.Title(page))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return stats, err
	}
	if err := ctx.Err(); err != nil {
		return stats, err
	}
	bar.Finish("done")

	schemas := map[string]string{}
	for _, res := range results {
		if res.err != nil {
			logger.Error("Failed to convert page", res.err, map[string]interface{}{
				"page_id": res.id,
			})
			stats.Errors++
			continue
		}

		switch {
		case res.page.IsDatabase():
			stats.Databases++
			if err := c.writeSchema(res, schemas); err != nil {
				logger.Error("Failed to write schema", err, map[string]interface{}{
					"database_id": res.id,
				})
				stats.Errors++
			}
		case res.page.Parent.IsDatabaseEntry():
			stats.Entries++
		default:
			stats.Pages++
		}
	}

	return stats, nil
}

// convertPage renders one page to its output file. A panic inside the
// renderer is returned as an error so the run can go on.
func (c *Converter) convertPage(page models.Page, env markdown.Env, relPath string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic while rendering: %v", r)
		}
	}()

	if relPath == "" {
		return fmt.Errorf("page %s has no output path", page.ID)
	}

	logger.Debug("Converting page", map[string]interface{}{
		"page_id": page.ID,
		"path":    relPath,
	})

	doc := markdown.RenderPage(page, env, relPath)
	if err := exportfs.WriteFile(c.outPath(relPath), []byte(doc)); err != nil {
		return fmt.Errorf("failed to write markdown: %w", err)
	}
	return nil
}

type schema struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	DataSources []json.RawMessage `json:"data_sources"`
}

// writeSchema writes the database sidecar next to its Markdown file. Targets
// already claimed by another database in this run are overwritten with a
// warning.
func (c *Converter) writeSchema(res pageResult, claimed map[string]string) error {
	title := pathindex.Title(res.page)
	logger.Info("Database", map[string]interface{}{
		"title": title,
		"path":  res.path,
	})

	target := path.Join(path.Dir(res.path), SchemaFile)
	if owner, ok := claimed[target]; ok {
		logger.Warn("Schema file shared by several databases", map[string]interface{}{
			"path":        target,
			"database_id": res.id,
			"previous_id": owner,
		})
	}
	claimed[target] = res.id

	sources := res.page.DataSources
	if sources == nil {
		sources = []json.RawMessage{}
	}
	return c.writeJSON(target, schema{ID: res.id, Title: title, DataSources: sources})
}

func (c *Converter) writeJSON(relPath string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", relPath, err)
	}
	if err := exportfs.WriteFile(c.outPath(relPath), data); err != nil {
		return fmt.Errorf("failed to write %s: %w", relPath, err)
	}
	logger.Debug("Saved file", map[string]interface{}{
		"path": relPath,
	})
	return nil
}

func (c *Converter) outPath(relPath string) string {
	return filepath.Join(c.opts.OutputDir, filepath.FromSlash(relPath))
}
