package contract

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// ErrOutsideStore is returned for paths that do not live under the store directory.
var ErrOutsideStore = errors.New("path outside contract store")

// FileStore keeps generated documents as files in a single directory.
type FileStore struct {
	dir string
}

// NewFileStore ensures dir exists and returns a store rooted at its absolute path.
func NewFileStore(dir string) (*FileStore, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolve contracts dir: %w", err)
	}
	if err := os.MkdirAll(abs, 0o750); err != nil {
		return nil, fmt.Errorf("create contracts dir: %w", err)
	}
	return &FileStore{dir: abs}, nil
}

// Save writes data under name and returns the stored path.
func (s *FileStore) Save(ctx context.Context, name string, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if name != filepath.Base(name) {
		return "", fmt.Errorf("invalid contract name %q", name)
	}
	path := filepath.Join(s.dir, name)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return "", fmt.Errorf("write contract: %w", err)
	}
	// A caller that gave up while we were writing will never record the path.
	if err := ctx.Err(); err != nil {
		_ = os.Remove(tmp)
		return "", err
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("publish contract: %w", err)
	}
	return path, nil
}

// Open returns the document stored at path.
func (s *FileStore) Open(_ context.Context, path string) (io.ReadCloser, error) {
	clean := filepath.Clean(path)
	rel, err := filepath.Rel(s.dir, clean)
	if err != nil || rel == "." || strings.HasPrefix(rel, "..") {
		return nil, ErrOutsideStore
	}
	return os.Open(clean)
}
