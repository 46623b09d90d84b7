package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKey(t *testing.T) {
	key1, err := Key("projects/p/endpoints/1", Settings{MaxOutputTokens: 256}, "what is a tuple?")
	require.NoError(t, err)
	assert.Len(t, key1, 64) // SHA256 hex is 64 chars

	// Same inputs should produce same key
	key2, err := Key("projects/p/endpoints/1", Settings{MaxOutputTokens: 256}, "what is a tuple?")
	require.NoError(t, err)
	assert.Equal(t, key1, key2)
}

func TestKey_ChangesWithInputs(t *testing.T) {
	temp := 0.2
	zero := 0.0

	base, err := Key("m", Settings{}, "prompt")
	require.NoError(t, err)

	variants := map[string]struct {
		model    string
		settings Settings
		prompt   string
	}{
		"model":            {"m2", Settings{}, "prompt"},
		"prompt":           {"m", Settings{}, "prompt2"},
		"temperature":      {"m", Settings{Temperature: &temp}, "prompt"},
		"zero temperature": {"m", Settings{Temperature: &zero}, "prompt"},
		"max tokens":       {"m", Settings{MaxOutputTokens: 10}, "prompt"},
		// delimiters keep "m"+"xprompt" apart from "mx"+"prompt"
		"boundary": {"mx", Settings{}, "prompt"},
	}

	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			key, err := Key(v.model, v.settings, v.prompt)
			require.NoError(t, err)
			assert.NotEqual(t, base, key)
		})
	}
}

func TestCache_GetPut(t *testing.T) {
	c := New(t.TempDir())

	key := "test-key-123"
	entry := &Entry{
		Model:     "projects/p/endpoints/1",
		Text:      "a tuple is immutable",
		CreatedAt: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC),
	}

	// Cache miss
	retrieved, found := c.Get(key)
	assert.False(t, found)
	assert.Nil(t, retrieved)

	require.NoError(t, c.Put(key, entry))

	// Cache hit
	retrieved, found = c.Get(key)
	assert.True(t, found)
	require.NotNil(t, retrieved)
	assert.Equal(t, entry, retrieved)
}

func TestCache_CorruptEntryIsMiss(t *testing.T) {
	dir := t.TempDir()
	c := New(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0644))

	_, found := c.Get("bad")
	assert.False(t, found)
}

func TestCache_Clear(t *testing.T) {
	cacheDir := t.TempDir()
	c := New(cacheDir)

	entry := &Entry{Model: "m", Text: "t"}
	require.NoError(t, c.Put("key1", entry))
	require.NoError(t, c.Put("key2", entry))

	_, found := c.Get("key1")
	assert.True(t, found)

	require.NoError(t, c.Clear())

	_, found = c.Get("key1")
	assert.False(t, found)
	_, found = c.Get("key2")
	assert.False(t, found)

	// Directory should not exist
	_, err := os.Stat(cacheDir)
	assert.True(t, os.IsNotExist(err))

	// Clearing again is fine
	require.NoError(t, c.Clear())
}

func TestCache_ClearRefusesForeignFiles(t *testing.T) {
	t.Run("non cache file", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
		require.Error(t, New(dir).Clear())
		_, err := os.Stat(dir)
		require.NoError(t, err)
	})

	t.Run("subdirectory", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0755))
		require.Error(t, New(dir).Clear())
	})
}

func TestCache_EmptyDir(t *testing.T) {
	c := New("")

	_, found := c.Get("any-key")
	assert.False(t, found)

	// Put should be no-op
	assert.NoError(t, c.Put("key", &Entry{Text: "x"}))

	// Clear should be no-op
	assert.NoError(t, c.Clear())
}

func TestCache_ConcurrentOperations(t *testing.T) {
	c := New(t.TempDir())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("key-%d", i%5)
			assert.NoError(t, c.Put(key, &Entry{Model: "m", Text: key}))
			got, found := c.Get(key)
			if assert.True(t, found) {
				assert.Equal(t, key, got.Text)
			}
		}(i)
	}
	wg.Wait()
}
