// Package cache keeps registry responses on disk so repeated runs can
// revalidate detail pages and insert documents with conditional requests
// instead of downloading them again.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// ErrMiss is returned by Lookup when the URL has no usable entry.
var ErrMiss = errors.New("cache miss")

// Entry describes a stored response.
type Entry struct {
	URL          string    `json:"url"`
	ContentType  string    `json:"content_type"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	Size         int64     `json:"size"`
	SavedAt      time.Time `json:"saved_at"`
}

// HTTPCache stores each response as a metadata file and a body file under
// Dir/<2 hex>/<sha256 of the URL>. Only responses carrying a validator are
// kept; without one a cached copy could never be confirmed fresh.
type HTTPCache struct {
	Dir string
}

const (
	metaSuffix = ".meta.json"
	bodySuffix = ".body"
)

func (c *HTTPCache) base(url string) (string, error) {
	if c == nil || c.Dir == "" {
		return "", errors.New("cache dir not configured")
	}
	sum := sha256.Sum256([]byte(url))
	key := hex.EncodeToString(sum[:])
	return filepath.Join(c.Dir, key[:2], key), nil
}

// Validators returns the ETag and Last-Modified values to send for url.
// Both are empty when nothing is cached.
func (c *HTTPCache) Validators(_ context.Context, url string) (etag, lastModified string) {
	e, err := c.loadEntry(url)
	if err != nil {
		return "", ""
	}
	return e.ETag, e.LastModified
}

// Lookup returns the stored entry and body for url. An entry whose body is
// missing or truncated is reported as ErrMiss.
func (c *HTTPCache) Lookup(_ context.Context, url string) (*Entry, []byte, error) {
	e, err := c.loadEntry(url)
	if err != nil {
		return nil, nil, err
	}
	base, _ := c.base(url)
	body, err := os.ReadFile(base + bodySuffix)
	if err != nil || int64(len(body)) != e.Size {
		return nil, nil, ErrMiss
	}
	return e, body, nil
}

func (c *HTTPCache) loadEntry(url string) (*Entry, error) {
	base, err := c.base(url)
	if err != nil {
		return nil, err
	}
	b, err := os.ReadFile(base + metaSuffix)
	if err != nil {
		return nil, ErrMiss
	}
	var e Entry
	if err := json.Unmarshal(b, &e); err != nil || e.URL != url {
		return nil, ErrMiss
	}
	return &e, nil
}

// Store records a response. Responses without ETag and Last-Modified are
// dropped and any older entry for url is removed.
func (c *HTTPCache) Store(_ context.Context, url, contentType, etag, lastModified string, body []byte) error {
	base, err := c.base(url)
	if err != nil {
		return err
	}
	if etag == "" && lastModified == "" {
		_ = os.Remove(base + metaSuffix)
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(base), 0o755); err != nil {
		return err
	}
	// Body first so metadata never points at a body that is not there yet.
	if err := writeFileAtomic(base+bodySuffix, body); err != nil {
		return fmt.Errorf("write body: %w", err)
	}
	e := Entry{
		URL:          url,
		ContentType:  contentType,
		ETag:         etag,
		LastModified: lastModified,
		Size:         int64(len(body)),
		SavedAt:      time.Now().UTC(),
	}
	b, err := json.Marshal(&e)
	if err != nil {
		return fmt.Errorf("encode meta: %w", err)
	}
	if err := writeFileAtomic(base+metaSuffix, b); err != nil {
		return fmt.Errorf("write meta: %w", err)
	}
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}
