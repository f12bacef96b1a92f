package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

// ErrCorrupt marks a state file that exists but cannot be decoded.
var ErrCorrupt = errors.New("state file corrupt")

// Load reads the state file into a map keyed by license. A missing file
// yields an empty map and no error. A corrupt file yields an empty map and
// an error wrapping ErrCorrupt, so the caller can warn and start fresh.
// Both the current object form and the older bare array of records are
// accepted.
func Load(path string) (map[string]Record, error) {
	out := map[string]Record{}
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return out, nil
		}
		return out, fmt.Errorf("read state: %w", err)
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return out, fmt.Errorf("%w: empty file", ErrCorrupt)
	}
	var records []Record
	if data[0] == '[' {
		if err := json.Unmarshal(data, &records); err != nil {
			return out, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	} else {
		var st State
		if err := json.Unmarshal(data, &st); err != nil {
			return out, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
		records = st.Records
	}
	for _, r := range records {
		if r.License == "" {
			continue
		}
		out[r.License] = r
	}
	return out, nil
}

// Save replaces the state file atomically: the JSON is written to a
// temporary file in the same directory, synced, and renamed over path.
func Save(path string, st State) error {
	if st.Records == nil {
		st.Records = []Record{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(st); err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp state: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()
	if _, err := tmp.Write(buf.Bytes()); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp state: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp state: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return fmt.Errorf("chmod temp state: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace state: %w", err)
	}
	committed = true
	syncDir(dir)
	return nil
}

// syncDir makes the rename durable where the platform supports it.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
