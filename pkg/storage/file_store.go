package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FileStore saves uploaded files verbatim into one flat directory.
type FileStore struct {
	basePath string
}

// NewFileStore creates the base directory if missing.
func NewFileStore(basePath string) (*FileStore, error) {
	if strings.TrimSpace(basePath) == "" {
		return nil, fmt.Errorf("storage base path is required")
	}
	if err := os.MkdirAll(basePath, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	return &FileStore{basePath: basePath}, nil
}

// Save writes r under the original filename and returns the path and size.
// An existing file with the same name is overwritten.
func (f *FileStore) Save(filename string, r io.Reader) (string, int64, error) {
	target := filepath.Join(f.basePath, SafeFilename(filename))
	out, err := os.Create(target)
	if err != nil {
		return "", 0, fmt.Errorf("create file: %w", err)
	}
	n, err := io.Copy(out, r)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return "", 0, fmt.Errorf("write file: %w", err)
	}
	return target, n, nil
}

// BasePath returns the upload directory.
func (f *FileStore) BasePath() string {
	return f.basePath
}

// SafeFilename strips directories so a name cannot escape the base path.
func SafeFilename(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = filepath.Base(name)
	name = strings.TrimSpace(name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "upload"
	}
	return name
}
