package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgewell/stategraph/pkg/stategraph/checkpoint"
)

func TestFromFile(t *testing.T) {
	dir := t.TempDir()

	yamlPath := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(yamlPath, []byte("name: from-yaml\n"), 0o644))
	cfg, err := FromFile(yamlPath)
	require.NoError(t, err)
	assert.Equal(t, "from-yaml", cfg.String("name", ""))

	jsonPath := filepath.Join(dir, "app.json")
	require.NoError(t, os.WriteFile(jsonPath, []byte(`{"name": "from-json"}`), 0o644))
	cfg, err = FromFile(jsonPath)
	require.NoError(t, err)
	assert.Equal(t, "from-json", cfg.String("name", ""))

	tomlPath := filepath.Join(dir, "app.toml")
	require.NoError(t, os.WriteFile(tomlPath, []byte("name = \"x\"\n"), 0o644))
	_, err = FromFile(tomlPath)
	assert.ErrorContains(t, err, "unsupported config file extension")

	_, err = FromFile(filepath.Join(dir, "absent.yaml"))
	assert.Error(t, err)
}

func TestOpenStore_DefaultsToMemory(t *testing.T) {
	store, err := OpenStore(New(nil))
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &checkpoint.MemoryStore{}, store)
}

func TestOpenStore_SQLite(t *testing.T) {
	cfg, err := FromYAML([]byte(`
checkpointer:
  backend: sqlite
  sqlite:
    path: ` + filepath.Join(t.TempDir(), "cp.db") + `
`))
	require.NoError(t, err)

	store, err := OpenStore(cfg)
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &checkpoint.SQLiteStore{}, store)
}

func TestOpenStoreFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "app.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
checkpointer:
  backend: sqlite
  sqlite:
    path: `+filepath.Join(dir, "cp.db")+`
`), 0o644))

	store, err := OpenStoreFromFile(path)
	require.NoError(t, err)
	defer store.Close()

	assert.IsType(t, &checkpoint.SQLiteStore{}, store)

	_, err = OpenStoreFromFile(filepath.Join(dir, "app.toml"))
	assert.ErrorContains(t, err, "unsupported config file extension")
}

func TestOpenStore_SQLiteRequiresPath(t *testing.T) {
	cfg := New(map[string]any{
		"checkpointer": map[string]any{"backend": "sqlite"},
	})

	_, err := OpenStore(cfg)
	assert.ErrorContains(t, err, "path is required")
}

func TestOpenStore_RedisRequiresAddr(t *testing.T) {
	cfg := New(map[string]any{
		"checkpointer": map[string]any{"backend": "redis"},
	})

	_, err := OpenStore(cfg)
	assert.ErrorContains(t, err, "addr is required")
}

func TestOpenStore_UnknownBackend(t *testing.T) {
	cfg := New(map[string]any{
		"checkpointer": map[string]any{"backend": "etcd"},
	})

	_, err := OpenStore(cfg)
	assert.ErrorContains(t, err, "unknown checkpointer backend")
}

func TestRegisterBackend(t *testing.T) {
	RegisterBackend("test-backend", func(cfg Config) (checkpoint.Store, error) {
		return checkpoint.NewMemoryStore(), nil
	})

	assert.Contains(t, Backends(), "test-backend")

	cfg := New(map[string]any{
		"checkpointer": map[string]any{"backend": "test-backend"},
	})
	store, err := OpenStore(cfg)
	require.NoError(t, err)
	defer store.Close()
}
