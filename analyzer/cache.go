package analyzer

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ShammiG/comfy-readable-metadata/container"
)

// ChangeKey identifies the current content of the file at path. Images are keyed by the
// SHA-256 of their bytes; videos by name, modification time and size so that large files
// are never hashed.
func ChangeKey(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat %s: %w", path, err)
	}
	kind, err := container.SniffFile(path)
	if err != nil {
		return "", err
	}
	if kind == container.KindVideo {
		return fmt.Sprintf("%s_%d_%d", filepath.Base(path), info.ModTime().UnixNano(), info.Size()), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Cache remembers the last change key seen for each path. It is safe for concurrent use.
type Cache struct {
	mu   sync.Mutex
	keys map[string]string
}

func NewCache() *Cache {
	return &Cache{keys: make(map[string]string)}
}

// Changed records key for path and reports whether it differs from the previous one.
// A path seen for the first time is always changed.
func (c *Cache) Changed(path, key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if prev, ok := c.keys[path]; ok && prev == key {
		return false
	}
	c.keys[path] = key
	return true
}

// Forget drops path, so the next Changed call for it reports true.
func (c *Cache) Forget(path string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.keys[path]; !ok {
		return false
	}
	delete(c.keys, path)
	return true
}

func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.keys)
}
