package markdown

import (
	"strings"

	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/pathindex"
)

const (
	exportAssetDir = "assets/"
	outputAssetDir = "_assets/"
)

// AssetResolver maps a file reference to the path or URL used in Markdown
type AssetResolver interface {
	Resolve(ref *models.FileRef) string
}

// CachedAssets resolves files through the snapshot's URL to local path table
type CachedAssets map[string]string

// Resolve prefers the reference's own local path, then the asset table, then
// the remote URL. Local paths are rewritten into the output asset directory.
func (a CachedAssets) Resolve(ref *models.FileRef) string {
	if ref == nil {
		return ""
	}
	local := ref.LocalPath
	if local == "" {
		local = a[ref.URL]
	}
	if local == "" {
		return ref.URL
	}
	return OutputAssetPath(local)
}

// OutputAssetPath maps a snapshot-relative asset path to its output location
func OutputAssetPath(p string) string {
	if strings.HasPrefix(p, exportAssetDir) {
		return outputAssetDir + strings.TrimPrefix(p, exportAssetDir)
	}
	return p
}

func isRemote(p string) bool {
	return strings.Contains(p, "://")
}

func (r *Renderer) resolveAsset(ref *models.FileRef) string {
	if ref == nil {
		return ""
	}
	if r.Assets != nil {
		return r.Assets.Resolve(ref)
	}
	return CachedAssets(nil).Resolve(ref)
}

// assetLink resolves ref relative to the page being rendered
func (r *Renderer) assetLink(ref *models.FileRef) string {
	p := r.resolveAsset(ref)
	if p == "" || isRemote(p) {
		return p
	}
	return pathindex.Relative(r.SourcePath, p)
}
