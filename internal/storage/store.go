// Package storage uploads pipeline artifacts to durable object storage.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/go-viper/mapstructure/v2"
)

var (
	// ErrUploadFailure wraps every failed write. Uploads are never retried
	// behind the caller's back.
	ErrUploadFailure = errors.New("storage: upload failed")

	// ErrAlreadyExists is returned when the destination key is taken.
	// Uploads are write-once.
	ErrAlreadyExists = errors.New("storage: object already exists")
)

// Backend names accepted by Open.
const (
	BackendGCS   = "gcs"
	BackendS3    = "s3"
	BackendAzure = "azblob"
	BackendLocal = "local"
)

// Store is a write-once object store.
type Store interface {
	// Upload writes r to key and returns the object's URI. It fails with
	// ErrAlreadyExists if key is present.
	Upload(ctx context.Context, key string, r io.Reader) (string, error)
	// Exists reports whether key is present.
	Exists(ctx context.Context, key string) (bool, error)
	// List returns the keys under prefix in lexical order.
	List(ctx context.Context, prefix string) ([]string, error)
	// URI returns the URI Upload would return for key.
	URI(key string) string
	Close() error
}

// Config selects a backend. Options holds backend-specific settings and is
// decoded into that backend's options struct.
type Config struct {
	Backend string
	Bucket  string
	Options map[string]any
}

// Open returns the Store for cfg.Backend.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Backend {
	case BackendLocal:
		var opts LocalOptions
		if err := decodeOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		if opts.Root == "" {
			opts.Root = cfg.Bucket
		}
		return NewLocalStore(opts.Root)
	case BackendS3:
		var opts S3Options
		if err := decodeOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		opts.Bucket = cfg.Bucket
		return NewS3Store(ctx, opts)
	case BackendGCS:
		var opts GCSOptions
		if err := decodeOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		opts.Bucket = cfg.Bucket
		return NewGCSStore(ctx, opts)
	case BackendAzure:
		var opts AzureOptions
		if err := decodeOptions(cfg.Options, &opts); err != nil {
			return nil, err
		}
		if opts.Container == "" {
			opts.Container = cfg.Bucket
		}
		return NewAzureStore(opts)
	default:
		return nil, fmt.Errorf("storage: unknown backend %q", cfg.Backend)
	}
}

func decodeOptions(in map[string]any, out any) error {
	if len(in) == 0 {
		return nil
	}
	if err := mapstructure.Decode(in, out); err != nil {
		return fmt.Errorf("storage: options: %w", err)
	}
	return nil
}

// JoinKey joins key parts with "/" and strips leading and trailing
// slashes.
func JoinKey(parts ...string) string {
	return strings.Trim(path.Join(parts...), "/")
}

func uploadFailed(key string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrUploadFailure, key, err)
}

func validKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") || strings.HasSuffix(key, "/") {
		return fmt.Errorf("storage: invalid object key %q", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == "" || part == "." || part == ".." {
			return fmt.Errorf("storage: invalid object key %q", key)
		}
	}
	return nil
}
