package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// Local writes blobs to a directory tree. Used for development and tests.
type Local struct {
	baseDir string
}

func NewLocal(baseDir string) *Local {
	return &Local{baseDir: baseDir}
}

func (l *Local) Upload(ctx context.Context, name string, content []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	path := filepath.Join(l.baseDir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}
	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", fmt.Errorf("upload %s: %w", name, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return "file://" + filepath.ToSlash(abs), nil
}
