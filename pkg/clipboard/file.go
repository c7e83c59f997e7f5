package clipboard

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

// FileBackend stores one JSON file per entry in a directory tree.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a file backend rooted at dir.
// The directory will be created if it doesn't exist.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	return &FileBackend{dir: dir}, nil
}

// fileEntry wraps stored data with its expiry.
type fileEntry struct {
	Data      string    `json:"data"`
	ExpiresAt time.Time `json:"expires_at,omitzero"`
}

func (*FileBackend) Name() string { return "file" }

// Dir returns the root directory.
func (c *FileBackend) Dir() string { return c.dir }

// Get retrieves a value. Unreadable or expired entries are removed and
// reported as misses.
func (c *FileBackend) Get(_ context.Context, key string) ([]byte, bool, error) {
	path := c.path(key)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	var entry fileEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		_ = os.Remove(path)
		return nil, false, nil
	}
	if !entry.ExpiresAt.IsZero() && time.Now().After(entry.ExpiresAt) {
		_ = os.Remove(path)
		return nil, false, nil
	}
	return []byte(entry.Data), true, nil
}

// Set stores a value.
func (c *FileBackend) Set(_ context.Context, key string, data []byte, ttl time.Duration) error {
	entry := fileEntry{Data: string(data)}
	if ttl > 0 {
		entry.ExpiresAt = time.Now().Add(ttl)
	}

	encoded, err := json.Marshal(entry)
	if err != nil {
		return err
	}

	path := c.path(key)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, encoded, 0o644)
}

// Delete removes a value.
func (c *FileBackend) Delete(_ context.Context, key string) error {
	err := os.Remove(c.path(key))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// Close does nothing for the file backend.
func (*FileBackend) Close() error { return nil }

// path spreads entries over subdirectories named by the first two hex
// characters of the key hash.
func (c *FileBackend) path(key string) string {
	hash := Hash([]byte(key))
	return filepath.Join(c.dir, hash[:2], hash[2:]+".json")
}

var _ Backend = (*FileBackend)(nil)
