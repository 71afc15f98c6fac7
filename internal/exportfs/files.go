package exportfs

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// CopyStats counts the files and bytes a copy actually wrote
type CopyStats struct {
	Files int
	Bytes int64
}

// CopyDir copies the regular files of src into dst. Files that already exist
// in dst are left untouched. A missing src copies nothing.
func CopyDir(src, dst string) (CopyStats, error) {
	var stats CopyStats

	entries, err := os.ReadDir(src)
	if err != nil {
		if os.IsNotExist(err) {
			return stats, nil
		}
		return stats, fmt.Errorf("read dir %s: %w", src, err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return stats, err
	}

	for _, ent := range entries {
		if !ent.Type().IsRegular() {
			continue
		}
		inPath := filepath.Join(src, ent.Name())
		outPath := filepath.Join(dst, ent.Name())
		if _, err := os.Stat(outPath); err == nil {
			continue
		} else if !os.IsNotExist(err) {
			return stats, fmt.Errorf("stat %s: %w", outPath, err)
		}

		n, err := copyFile(inPath, outPath)
		if err != nil {
			return stats, fmt.Errorf("copy %s: %w", ent.Name(), err)
		}
		stats.Files++
		stats.Bytes += n
	}
	return stats, nil
}

// WriteFile writes data to path, creating parent directories
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func copyFile(src, dst string) (int64, error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, err
	}
	defer out.Close()

	n, err := io.Copy(out, in)
	if err != nil {
		return n, err
	}
	return n, out.Sync()
}
