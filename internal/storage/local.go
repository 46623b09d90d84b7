package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// LocalOptions configures the filesystem backend.
type LocalOptions struct {
	Root string `mapstructure:"root"`
}

// LocalStore keeps objects as files under a root directory. Useful for
// dry runs and tests; tuning services cannot read file:// URIs.
type LocalStore struct {
	root string
}

// NewLocalStore creates root if needed.
func NewLocalStore(root string) (*LocalStore, error) {
	if root == "" {
		return nil, errors.New("storage: local root directory is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("storage: resolving %s: %w", root, err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("storage: creating %s: %w", abs, err)
	}
	return &LocalStore{root: abs}, nil
}

// Upload writes r to root/key. O_EXCL makes the create atomic, so a
// concurrent or repeated upload of the same key fails with ErrAlreadyExists.
func (s *LocalStore) Upload(ctx context.Context, key string, r io.Reader) (_ string, err error) {
	if err := validKey(key); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", uploadFailed(key, err)
	}

	p := s.path(key)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return "", uploadFailed(key, err)
	}
	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("%w: %s", ErrAlreadyExists, s.URI(key))
		}
		return "", uploadFailed(key, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = uploadFailed(key, cerr)
		}
		if err != nil {
			os.Remove(p) //nolint:errcheck
		}
	}()

	if _, err := io.Copy(f, r); err != nil {
		return "", uploadFailed(key, err)
	}
	return s.URI(key), nil
}

// Exists reports whether root/key is a regular file.
func (s *LocalStore) Exists(_ context.Context, key string) (bool, error) {
	if err := validKey(key); err != nil {
		return false, err
	}
	info, err := os.Stat(s.path(key))
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("storage: stat %s: %w", key, err)
	}
	return info.Mode().IsRegular(), nil
}

// List walks root and returns keys starting with prefix.
func (s *LocalStore) List(_ context.Context, prefix string) ([]string, error) {
	var keys []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(rel)
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("storage: listing %s: %w", s.root, err)
	}
	slices.Sort(keys)
	return keys, nil
}

// URI returns a file:// URI for key.
func (s *LocalStore) URI(key string) string {
	return "file://" + filepath.ToSlash(s.path(key))
}

// Close is a no-op.
func (s *LocalStore) Close() error { return nil }

func (s *LocalStore) path(key string) string {
	return filepath.Join(s.root, filepath.FromSlash(key))
}
