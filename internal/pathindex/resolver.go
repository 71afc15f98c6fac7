package pathindex

import (
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/my-entourage/notion-export/internal/logger"
	"github.com/my-entourage/notion-export/internal/models"
)

const unknownDir = "unknown"

// Index maps page ids to forward-slash output paths relative to the output root
type Index map[string]string

// Lookup returns the path of a page
func (idx Index) Lookup(id string) (string, bool) {
	p, ok := idx[id]
	return p, ok
}

// Link returns the path of a page relative to the directory of sourcePath
func (idx Index) Link(sourcePath, id string) (string, bool) {
	target, ok := idx[id]
	if !ok {
		return "", false
	}
	return Relative(sourcePath, target), true
}

// Relative rewrites target, a path relative to the output root, so that it
// resolves from the directory of sourcePath.
func Relative(sourcePath, target string) string {
	if sourcePath == "" || target == "" {
		return target
	}
	dir := path.Dir(sourcePath)
	if dir == "." || dir == "/" {
		return target
	}
	rel, err := filepath.Rel(filepath.FromSlash(dir), filepath.FromSlash(target))
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}

// Build resolves the output path of every page. Databases that are not part
// of pages are only consulted for entry paths.
func Build(pages, databases map[string]models.Page) Index {
	r := &resolver{
		pages:     pages,
		databases: databases,
		cache:     make(map[string]string, len(pages)),
		pending:   map[string]bool{},
	}

	ids := make([]string, 0, len(pages))
	for id := range pages {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idx := make(Index, len(pages))
	for _, id := range ids {
		idx[id] = r.resolve(id)
	}
	return idx
}

type resolver struct {
	pages     map[string]models.Page
	databases map[string]models.Page
	cache     map[string]string
	// pending holds ids whose resolution is on the stack
	pending map[string]bool
}

func (r *resolver) resolve(id string) string {
	if p, ok := r.cache[id]; ok {
		return p
	}
	page, ok := r.pages[id]
	if !ok {
		return unknownPath(id)
	}
	if r.pending[id] {
		logger.Warn("Parent cycle detected, placing page under unknown", map[string]interface{}{
			"page_id": id,
		})
		return unknownPath(id)
	}
	r.pending[id] = true
	defer delete(r.pending, id)

	slug := Slug(Title(page))
	file := id + ".md"

	var p string
	switch {
	case page.Parent.Type == models.ParentPage:
		p = path.Join(parentDir(r.resolve(page.Parent.PageID)), slug, file)
	case page.Parent.IsDatabaseEntry():
		p = r.resolveEntry(page.Parent.DatabaseID, slug, file)
	default:
		// workspace, block and missing parents all sit at the root
		p = path.Join(slug, file)
	}

	r.cache[id] = p
	return p
}

func (r *resolver) resolveEntry(databaseID, slug, file string) string {
	db, ok := r.databases[databaseID]
	if !ok {
		db, ok = r.pages[databaseID]
	}
	if !ok {
		return path.Join(unknownDir, slug, file)
	}

	dbSlug := Slug(Title(db))
	if db.Parent.Type == models.ParentPage {
		return path.Join(parentDir(r.resolve(db.Parent.PageID)), dbSlug, slug, file)
	}
	return path.Join(dbSlug, slug, file)
}

func unknownPath(id string) string {
	return path.Join(unknownDir, id+".md")
}

func parentDir(p string) string {
	if i := strings.LastIndex(p, "/"); i >= 0 {
		return p[:i]
	}
	return ""
}
