package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	t.Run("local uses bucket as root", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "bucket")
		store, err := Open(ctx, Config{Backend: BackendLocal, Bucket: dir})
		require.NoError(t, err)
		assert.IsType(t, &LocalStore{}, store)
		assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(dir, "k")), store.URI("k"))
	})

	t.Run("local root option", func(t *testing.T) {
		dir := t.TempDir()
		store, err := Open(ctx, Config{Backend: BackendLocal, Bucket: "ignored", Options: map[string]any{"root": dir}})
		require.NoError(t, err)
		assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(dir, "k")), store.URI("k"))
	})

	t.Run("s3", func(t *testing.T) {
		store, err := Open(ctx, Config{Backend: BackendS3, Bucket: "data", Options: map[string]any{
			"region":            "eu-west-1",
			"access_key_id":     "AKID",
			"secret_access_key": "secret",
		}})
		require.NoError(t, err)
		assert.Equal(t, "s3://data/run/train.jsonl", store.URI("run/train.jsonl"))
	})

	t.Run("gcs", func(t *testing.T) {
		store, err := Open(ctx, Config{Backend: BackendGCS, Bucket: "tuning", Options: map[string]any{
			"hmac_access_id": "GOOG1",
			"hmac_secret":    "secret",
		}})
		require.NoError(t, err)
		assert.Equal(t, "gs://tuning/run/train.jsonl", store.URI("run/train.jsonl"))
	})

	t.Run("azblob", func(t *testing.T) {
		store, err := Open(ctx, Config{Backend: BackendAzure, Bucket: "runs", Options: map[string]any{
			"account_url": "https://acct.blob.core.windows.net/?sv=2024&sig=abc",
			"credential":  "none",
		}})
		require.NoError(t, err)
		assert.Equal(t, "https://acct.blob.core.windows.net/runs/run/train.jsonl", store.URI("run/train.jsonl"))
	})

	t.Run("missing bucket", func(t *testing.T) {
		_, err := Open(ctx, Config{Backend: BackendS3})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket is required")
	})

	t.Run("bad option type", func(t *testing.T) {
		_, err := Open(ctx, Config{Backend: BackendS3, Bucket: "b", Options: map[string]any{"use_path_style": []string{"x"}}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "options")
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(ctx, Config{Backend: "ftp"})
		require.Error(t, err)
	})
}

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "tuneval/run-1/train.jsonl", JoinKey("tuneval", "run-1", "train.jsonl"))
	assert.Equal(t, "run-1/train.jsonl", JoinKey("", "run-1", "train.jsonl"))
	assert.Equal(t, "a/b", JoinKey("/a/", "/b/"))
}

func TestNewAzureStore_Errors(t *testing.T) {
	_, err := NewAzureStore(AzureOptions{AccountURL: "https://acct.blob.core.windows.net"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "container")

	_, err = NewAzureStore(AzureOptions{Container: "c"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account_url")

	_, err = NewAzureStore(AzureOptions{Container: "c", AccountURL: "https://acct.blob.core.windows.net", Credential: "magic"})
	require.Error(t, err)
}
