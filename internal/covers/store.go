package covers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ObjectStore writes binary cover objects and returns a durable,
// publicly-fetchable URL for each stored object.
type ObjectStore interface {
	// Put stores content under the given key and returns its public URL.
	Put(ctx context.Context, key, contentType string, content io.Reader) (string, error)
}

// DiskStore is an ObjectStore backed by a local directory. Stored objects
// are served by the HTTP layer under the configured base URL.
type DiskStore struct {
	root    string
	baseURL string
}

// NewDiskStore creates a disk-backed object store rooted at dir. baseURL is
// the public prefix under which the directory is served.
func NewDiskStore(dir, baseURL string) (*DiskStore, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create covers dir: %w", err)
	}
	return &DiskStore{
		root:    dir,
		baseURL: strings.TrimRight(baseURL, "/"),
	}, nil
}

// Put writes the object atomically: content goes to a temp file in the
// target directory first and is renamed into place only when fully written.
func (s *DiskStore) Put(ctx context.Context, key, contentType string, content io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" || strings.Contains(key, "..") {
		return "", fmt.Errorf("invalid object key %q", key)
	}

	target := filepath.Join(s.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(target), "upload_tmp_")
	if err != nil {
		return "", err
	}
	tmpPath := tmpFile.Name()
	defer func() {
		tmpFile.Close()
		os.Remove(tmpPath) // Clean up if we didn't rename
	}()

	if _, err := io.Copy(tmpFile, content); err != nil {
		return "", err
	}
	if err := tmpFile.Close(); err != nil {
		return "", err
	}

	if err := os.Rename(tmpPath, target); err != nil {
		return "", err
	}

	return s.baseURL + "/" + key, nil
}

// Root returns the directory objects are stored under.
func (s *DiskStore) Root() string {
	return s.root
}
