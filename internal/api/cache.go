package api

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"
)

// cacheEntry holds HTTP cache metadata for a single backend URL.
type cacheEntry struct {
	URL          string    `json:"url"`
	ETag         string    `json:"etag,omitempty"`
	LastModified string    `json:"last_modified,omitempty"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// diskCache keeps the last good response body per URL, so a refresh can
// revalidate with ETag / Last-Modified and survive the backend being down.
type diskCache struct {
	dir string
}

func newDiskCache(dir string) *diskCache {
	if dir == "" {
		return nil
	}
	return &diskCache{dir: dir}
}

func (c *diskCache) pathForURL(url string) (string, error) {
	if url == "" {
		return "", errors.New("empty url")
	}
	sum := sha256.Sum256([]byte(url))
	// First 16 hex chars as directory name.
	return filepath.Join(c.dir, hex.EncodeToString(sum[:8])), nil
}

// load returns cached metadata and body for url. Missing entries yield zero values.
func (c *diskCache) load(url string) (cacheEntry, []byte) {
	var meta cacheEntry
	if c == nil {
		return meta, nil
	}
	path, err := c.pathForURL(url)
	if err != nil {
		return meta, nil
	}

	body, err := os.ReadFile(filepath.Join(path, "body"))
	if err != nil {
		return meta, nil
	}
	if data, err := os.ReadFile(filepath.Join(path, "meta.json")); err == nil {
		_ = json.Unmarshal(data, &meta)
	}
	return meta, body
}

func (c *diskCache) save(meta cacheEntry, body []byte) error {
	if c == nil {
		return nil
	}
	path, err := c.pathForURL(meta.URL)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(path, 0o700); err != nil {
		return err
	}

	// Write body first so meta never points at missing body.
	if err := os.WriteFile(filepath.Join(path, "body"), body, 0o600); err != nil {
		return err
	}

	meta.UpdatedAt = time.Now().UTC()
	data, err := json.MarshalIndent(&meta, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(path, "meta.json"), data, 0o600)
}
