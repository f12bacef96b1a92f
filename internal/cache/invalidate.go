package cache

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// ClearDir empties dir and leaves it in place.
func ClearDir(dir string) error {
	if strings.TrimSpace(dir) == "" {
		return errors.New("empty dir")
	}
	if err := os.RemoveAll(dir); err != nil {
		return err
	}
	return os.MkdirAll(dir, 0o755)
}

// PurgeStats reports what a purge removed.
type PurgeStats struct {
	Entries int
	Bytes   int64
}

// Purge removes entries saved more than maxAge ago, along with unreadable
// metadata and leftover temporary files. A missing directory is not an error.
func Purge(dir string, maxAge time.Duration) (PurgeStats, error) {
	var st PurgeStats
	if maxAge <= 0 {
		return st, nil
	}
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		return st, nil
	}
	cutoff := time.Now().UTC().Add(-maxAge)
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		name := d.Name()
		switch {
		case d.IsDir():
			return nil
		case strings.HasPrefix(name, ".tmp-"):
			_ = os.Remove(path)
			return nil
		case !strings.HasSuffix(name, metaSuffix):
			return nil
		}
		var e Entry
		b, err := os.ReadFile(path)
		if err == nil {
			err = json.Unmarshal(b, &e)
		}
		if err == nil && e.SavedAt.After(cutoff) {
			return nil
		}
		body := strings.TrimSuffix(path, metaSuffix) + bodySuffix
		if fi, err := os.Stat(body); err == nil {
			st.Bytes += fi.Size()
		}
		_ = os.Remove(path)
		_ = os.Remove(body)
		st.Entries++
		return nil
	})
	return st, err
}
