package snapshot

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/my-entourage/notion-export/internal/logger"
	"github.com/my-entourage/notion-export/internal/models"
)

const (
	// FileName is the snapshot file written by the exporter
	FileName = "export.json"
	// LegacyFileName is the snapshot name used by older exports
	LegacyFileName = "notion_content.json"
	// AssetsDir is the directory next to the snapshot holding downloaded files
	AssetsDir = "assets"

	dirDateLayout = "2006-01-02"
)

// ErrNoExport is returned when no snapshot exists under an export root
var ErrNoExport = errors.New("no export found")

// Load reads and parses a snapshot file
func Load(path string) (*models.Snapshot, error) {
	logger.Debug("Reading snapshot file", map[string]interface{}{
		"filepath": path,
	})

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	s := &models.Snapshot{}
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("failed to parse JSON: %w", err)
	}

	logger.Info("Loaded snapshot", map[string]interface{}{
		"pages":     s.PageCount,
		"databases": s.DatabaseCount,
		"users":     s.UserCount,
		"comments":  s.CommentCount,
		"assets":    s.AssetCount,
	})
	return s, nil
}

// Save writes the snapshot as indented JSON. The file is replaced through a
// rename so a reader never observes a partial document.
func Save(path string, s *models.Snapshot) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

// ExportDir returns the dated directory an export started at t writes into
func ExportDir(root string, t time.Time) string {
	return filepath.Join(root, t.UTC().Format(dirDateLayout))
}

// FindLatest returns the newest snapshot under root. Export directories are
// visited in reverse name order, so dated directories sort newest first.
func FindLatest(root string) (string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("%w in %s", ErrNoExport, root)
		}
		return "", fmt.Errorf("failed to list exports: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))

	for _, name := range names {
		for _, file := range []string{FileName, LegacyFileName} {
			candidate := filepath.Join(root, name, file)
			if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%w in %s", ErrNoExport, root)
}
