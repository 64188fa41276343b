package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_NestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b")

	store, err := NewConfigStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Set("sync.enabled", true))

	assert.FileExists(t, filepath.Join(dir, "config.toml"))
}

func TestConfigStore_TypedGetters(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("extractor.endpoint", "http://localhost:8091/extract"))
	require.NoError(t, store.Set("log.max_backups", 5))
	require.NoError(t, store.Set("sync.enabled", true))
	require.NoError(t, store.Set("sync.interval", "30m"))
	require.NoError(t, store.Set("sync.item_delay", 250*time.Millisecond))

	assert.Equal(t, "http://localhost:8091/extract", store.GetString("extractor.endpoint"))
	assert.Equal(t, 5, store.GetInt("log.max_backups"))
	assert.True(t, store.GetBool("sync.enabled"))

	d, ok := store.GetDuration("sync.interval")
	assert.True(t, ok)
	assert.Equal(t, 30*time.Minute, d)

	d, ok = store.GetDuration("sync.item_delay")
	assert.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, d)

	// Wrong types fall back to zero values
	assert.Empty(t, store.GetString("log.max_backups"))
	assert.Zero(t, store.GetInt("sync.enabled"))
	assert.False(t, store.GetBool("extractor.endpoint"))
	_, ok = store.GetDuration("extractor.endpoint")
	assert.False(t, ok)
	_, ok = store.GetDuration("missing")
	assert.False(t, ok)
}

func TestConfigStore_PersistsNestedTables(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("sync.interval", "2h"))
	require.NoError(t, store1.Set("sync.enabled", false))
	require.NoError(t, store1.Set("log.max_size_mb", 20))

	raw, err := os.ReadFile(store1.Path())
	require.NoError(t, err)
	assert.Contains(t, string(raw), "[sync]")
	assert.Contains(t, string(raw), "[log]")

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	d, ok := store2.GetDuration("sync.interval")
	assert.True(t, ok)
	assert.Equal(t, 2*time.Hour, d)
	_, ok = store2.Get("sync.enabled")
	assert.True(t, ok)
	assert.False(t, store2.GetBool("sync.enabled"))
	assert.Equal(t, 20, store2.GetInt("log.max_size_mb"))
	assert.Equal(t, []string{"log.max_size_mb", "sync.enabled", "sync.interval"}, store2.Keys())
}

func TestConfigStore_LoadsHandWrittenFile(t *testing.T) {
	tmpDir := t.TempDir()
	content := `
[sync]
interval = "45m"
enabled = true

[extractor]
endpoint = "http://extractor:8091/extract"
`
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte(content), 0600))

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	d, ok := store.GetDuration("sync.interval")
	assert.True(t, ok)
	assert.Equal(t, 45*time.Minute, d)
	assert.True(t, store.GetBool("sync.enabled"))
	assert.Equal(t, "http://extractor:8091/extract", store.GetString("extractor.endpoint"))
}

func TestConfigStore_Load_NonExistentAndEmpty(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	_, ok := store.Get("any_key")
	assert.False(t, ok)

	require.NoError(t, os.WriteFile(store.Path(), []byte{}, 0600))
	require.NoError(t, store.Load())
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_CorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(tmpDir, "config.toml"), []byte("[[[ not toml"), 0600))

	store, err := NewConfigStore(tmpDir)
	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("test", "value"))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	assert.NoFileExists(t, store.Path()+".tmp")
}

func TestConfigStore_Set_ConflictingKeyRollsBack(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("log.file", "/tmp/agent.log"))

	err = store.Set("log", "flat")
	assert.Error(t, err)

	_, ok := store.Get("log")
	assert.False(t, ok)
	assert.Equal(t, "/tmp/agent.log", store.GetString("log.file"))
}

func TestConfigStore_Set_EmptyKey(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Set("", "value"))
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "key" + string(rune('0'+id))
			assert.NoError(t, store.Set(key, id))
			_ = store.GetInt(key)
			_, _ = store.Get(key)
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 10)
}

func TestNest(t *testing.T) {
	tree, err := nest(map[string]any{"a.b.c": 1, "a.d": "x", "e": true})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{
		"a": map[string]any{
			"b": map[string]any{"c": 1},
			"d": "x",
		},
		"e": true,
	}, tree)
	assert.Equal(t, map[string]any{"a.b.c": 1, "a.d": "x", "e": true}, flatten(tree, ""))
}
