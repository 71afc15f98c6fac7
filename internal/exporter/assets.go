package exporter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/my-entourage/notion-export/internal/logger"
	"github.com/my-entourage/notion-export/internal/models"
	"github.com/my-entourage/notion-export/internal/snapshot"
)

// DownloadTimeout bounds a single asset download
const DownloadTimeout = 30 * time.Second

const maxDuplicateSuffix = 100

// Downloader stores the body of url at dst and returns its size
type Downloader interface {
	Download(ctx context.Context, url, dst string) (int64, error)
}

// HTTPDownloader fetches assets with a plain HTTP GET, following redirects
type HTTPDownloader struct {
	client *http.Client
}

// NewHTTPDownloader returns a downloader whose requests time out after timeout
func NewHTTPDownloader(timeout time.Duration) *HTTPDownloader {
	return &HTTPDownloader{client: &http.Client{Timeout: timeout}}
}

func (d *HTTPDownloader) Download(ctx context.Context, rawURL, dst string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return 0, fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return 0, fmt.Errorf("failed to create assets directory: %w", err)
	}
	tmp := dst + ".part"
	f, err := os.Create(tmp)
	if err != nil {
		return 0, fmt.Errorf("failed to create file: %w", err)
	}
	n, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp, dst); err != nil {
		os.Remove(tmp)
		return 0, fmt.Errorf("failed to move file: %w", err)
	}
	return n, nil
}

// BlockAssetName names the file downloaded for a block: the first 12 hex
// digits of owner followed by the extension of the URL path, or .bin
func BlockAssetName(rawURL, owner string) string {
	short := strings.ReplaceAll(owner, "-", "")
	if len(short) > 12 {
		short = short[:12]
	}
	if ext := urlExtension(rawURL); ext != "" {
		return short + ext
	}
	return short + ".bin"
}

func urlExtension(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	p := u.Path
	i := strings.LastIndex(p, ".")
	if i < 0 {
		return ""
	}
	ext := strings.ToLower(p[i+1:])
	if ext == "" || utf8.RuneCountInString(ext) > 4 {
		return ""
	}
	for _, r := range ext {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return ""
		}
	}
	return "." + ext
}

var (
	fileNameStrip = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)
	fileNameDash  = regexp.MustCompile(`[-\s]+`)
)

// PropertyAssetName names the file downloaded for a files property entry.
// The original file name is slugged and keeps its extension; an entry
// without a usable name is named like a block asset of the property.
func PropertyAssetName(name, rawURL, property string) string {
	if name == "" {
		return BlockAssetName(rawURL, property)
	}
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i >= 0 {
		base, ext = name[:i], "."+strings.ToLower(name[i+1:])
	}
	base = fileNameStrip.ReplaceAllString(strings.ToLower(base), "")
	base = strings.Trim(fileNameDash.ReplaceAllString(base, "-"), "-")
	if base == "" {
		return BlockAssetName(rawURL, property)
	}
	return base + ext
}

// assetStore downloads every URL once and remembers where it went
type assetStore struct {
	dir        string
	downloader Downloader
	mapping    map[string]string
	taken      map[string]bool
	bytes      int64
}

func newAssetStore(dir string, downloader Downloader, mapping map[string]string) *assetStore {
	return &assetStore{
		dir:        dir,
		downloader: downloader,
		mapping:    mapping,
		taken:      map[string]bool{},
	}
}

func isDownloadable(rawURL string) bool {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

// fetch returns the snapshot-relative path of url, downloading it under
// name on first sight. A failed download maps the URL to itself.
func (a *assetStore) fetch(ctx context.Context, rawURL, name string) string {
	if local, ok := a.mapping[rawURL]; ok {
		return local
	}

	n, err := a.downloader.Download(ctx, rawURL, filepath.Join(a.dir, name))
	if err != nil {
		logger.Warn("Failed to download asset", map[string]interface{}{
			"file":  name,
			"error": err.Error(),
		})
		a.mapping[rawURL] = rawURL
		return rawURL
	}

	a.taken[name] = true
	a.bytes += n
	local := path.Join(snapshot.AssetsDir, name)
	a.mapping[rawURL] = local
	logger.Debug("Downloaded asset", map[string]interface{}{
		"file":  name,
		"bytes": n,
	})
	return local
}

// unique appends -1, -2, ... to name until it does not clash with a file
// already downloaded in this run
func (a *assetStore) unique(name string) string {
	if !a.taken[name] {
		return name
	}
	base, ext := name, ""
	if i := strings.LastIndex(name, "."); i > 0 {
		base, ext = name[:i], name[i:]
	}
	for n := 1; n < maxDuplicateSuffix; n++ {
		candidate := fmt.Sprintf("%s-%d%s", base, n, ext)
		if !a.taken[candidate] {
			return candidate
		}
	}
	return name
}

// blocks downloads the files of image, file, video and pdf blocks and
// records their local paths
func (a *assetStore) blocks(ctx context.Context, blocks []models.Block) int {
	count := 0
	for _, b := range blocks {
		switch b.Type {
		case models.BlockImage, models.BlockFile, models.BlockVideo, models.BlockPDF:
			data, ok := b.Data.(*models.FileData)
			if !ok {
				break
			}
			ref := data.Ref()
			if ref == nil || !isDownloadable(ref.URL) {
				break
			}
			if _, seen := a.mapping[ref.URL]; !seen {
				count++
			}
			ref.LocalPath = a.fetch(ctx, ref.URL, BlockAssetName(ref.URL, b.ID))
		}
		count += a.blocks(ctx, b.Children)
	}
	return count
}

// properties downloads the entries of files properties
func (a *assetStore) properties(ctx context.Context, page *models.Page) int {
	count := 0
	for i := range page.Properties {
		prop := &page.Properties[i].Property
		if prop.Type != models.PropertyFiles {
			continue
		}
		edited := false
		for _, f := range prop.Files {
			ref := f.Ref()
			if ref == nil || !isDownloadable(ref.URL) {
				continue
			}
			if _, seen := a.mapping[ref.URL]; !seen {
				count++
				name := a.unique(PropertyAssetName(f.Name, ref.URL, page.Properties[i].Name))
				a.fetch(ctx, ref.URL, name)
			}
			ref.LocalPath = a.mapping[ref.URL]
			edited = true
		}
		if edited {
			prop.MarkEdited()
		}
	}
	return count
}

// page downloads every asset of a page and returns the number of new URLs
func (a *assetStore) page(ctx context.Context, page *models.Page) int {
	return a.blocks(ctx, page.Blocks) + a.properties(ctx, page)
}
