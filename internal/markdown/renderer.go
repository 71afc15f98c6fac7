package markdown

import (
	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/pathindex"
)

// Env is the read-only lookup state shared by every page of a conversion run
type Env struct {
	Users    map[string]models.User
	Index    pathindex.Index
	Comments CommentIndex
	Assets   AssetResolver
}

// Renderer renders rich text and blocks for the document at SourcePath.
// It never mutates its lookups, so renderers for different pages can run
// concurrently over the same Env.
type Renderer struct {
	Env
	SourcePath string
}

// NewRenderer returns a renderer for the document written at sourcePath
func NewRenderer(env Env, sourcePath string) *Renderer {
	return &Renderer{Env: env, SourcePath: sourcePath}
}
