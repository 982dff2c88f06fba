package persistent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/topautomaat/gallery-backend/pkg/types/errs"
)

// LocalFileRepo keeps image files in a single directory on disk.
type LocalFileRepo struct {
	dir string
}

func NewLocalFileRepo(dir string) (*LocalFileRepo, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("LocalFileRepo - New - os.MkdirAll: %w", err)
	}

	return &LocalFileRepo{dir: dir}, nil
}

// Write is atomic: a reader never sees a partially written file.
func (r *LocalFileRepo) Write(ctx context.Context, key string, data []byte, _ string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("LocalFileRepo - Write - validateKey: %w", err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("LocalFileRepo - Write: %w", err)
	}

	tmp, err := os.CreateTemp(r.dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("LocalFileRepo - Write - os.CreateTemp: %w", err)
	}
	tmpName := tmp.Name()

	_, err = tmp.Write(data)
	if err == nil {
		err = tmp.Sync()
	}
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("LocalFileRepo - Write - tmp.Write: %w", err)
	}

	if err := os.Chmod(tmpName, 0o644); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("LocalFileRepo - Write - os.Chmod: %w", err)
	}

	if err := os.Rename(tmpName, filepath.Join(r.dir, key)); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("LocalFileRepo - Write - os.Rename: %w", err)
	}

	return nil
}

func (r *LocalFileRepo) Read(_ context.Context, key string) (io.ReadCloser, error) {
	if err := validateKey(key); err != nil {
		return nil, fmt.Errorf("LocalFileRepo - Read - validateKey: %w", err)
	}

	f, err := os.Open(filepath.Join(r.dir, key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("LocalFileRepo - Read: %w", errs.ErrRecordNotFound)
		}
		return nil, fmt.Errorf("LocalFileRepo - Read - os.Open: %w", err)
	}

	return f, nil
}

// Delete treats a missing file as already deleted.
func (r *LocalFileRepo) Delete(_ context.Context, key string) error {
	if err := validateKey(key); err != nil {
		return fmt.Errorf("LocalFileRepo - Delete - validateKey: %w", err)
	}

	err := os.Remove(filepath.Join(r.dir, key))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("LocalFileRepo - Delete - os.Remove: %w", err)
	}

	return nil
}

// validateKey accepts only bare file names that cannot escape the storage root.
func validateKey(key string) error {
	if key == "" || key == "." || key == ".." ||
		strings.HasPrefix(key, ".") ||
		strings.ContainsAny(key, `/\`) ||
		strings.ContainsRune(key, 0) {
		return fmt.Errorf("key %q: %w", key, errs.ErrInvalidInput)
	}

	return nil
}
