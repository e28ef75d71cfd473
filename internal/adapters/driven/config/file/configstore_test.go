package file

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
[session]
handshake_timeout = 30

[history]
enabled = false

[services.neon]
command = "/usr/local/bin/neon-mcp"
args = ["--stdio"]
credentials = ["NEON_API_KEY"]

[services.neon.env]
NEON_REGION = "aws-eu-central-1"
LOG_LEVEL = "debug"
`

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.toml"), []byte(content), 0600))
}

func TestNewConfigStore_Success(t *testing.T) {
	tmpDir := t.TempDir()

	store, err := NewConfigStore(tmpDir)

	require.NoError(t, err)
	require.NotNil(t, store)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestNewConfigStore_HomeEnv(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv(HomeEnv, tmpDir)

	store, err := NewConfigStore("")

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(tmpDir, "config.toml"), store.Path())
}

func TestDefaultDir_FallsBackToHome(t *testing.T) {
	t.Setenv(HomeEnv, "")
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("Cannot determine home directory")
	}

	dir, err := DefaultDir()

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, ".stackup"), dir)
}

func TestConfigStore_Load_FlattensTables(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, 30, store.GetInt("session.handshake_timeout"))
	assert.False(t, store.GetBool("history.enabled"))
	_, ok := store.Get("history.enabled")
	assert.True(t, ok)
	assert.Equal(t, "/usr/local/bin/neon-mcp", store.GetString("services.neon.command"))
	assert.Equal(t, []string{"--stdio"}, store.GetStringSlice("services.neon.args"))
	assert.Equal(t, []string{"NEON_API_KEY"}, store.GetStringSlice("services.neon.credentials"))
}

func TestConfigStore_GetStringMap(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	env := store.GetStringMap("services.neon.env")
	assert.Equal(t, map[string]string{
		"NEON_REGION": "aws-eu-central-1",
		"LOG_LEVEL":   "debug",
	}, env)

	// Only direct children are returned
	neon := store.GetStringMap("services.neon")
	assert.Equal(t, map[string]string{"command": "/usr/local/bin/neon-mcp"}, neon)

	assert.Empty(t, store.GetStringMap("services.github.env"))
}

func TestConfigStore_Keys_Sorted(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"history.enabled",
		"services.neon.args",
		"services.neon.command",
		"services.neon.credentials",
		"services.neon.env.LOG_LEVEL",
		"services.neon.env.NEON_REGION",
		"session.handshake_timeout",
	}, store.Keys())
}

func TestConfigStore_Get_NotFound(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	val, ok := store.Get("nonexistent")
	assert.False(t, ok)
	assert.Nil(t, val)
	assert.Empty(t, store.GetString("nonexistent"))
	assert.Zero(t, store.GetInt("nonexistent"))
	assert.False(t, store.GetBool("nonexistent"))
	assert.Nil(t, store.GetStringSlice("nonexistent"))
}

func TestConfigStore_WrongTypes(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("number", 5))
	require.NoError(t, store.Set("text", "five"))

	assert.Empty(t, store.GetString("number"))
	assert.Zero(t, store.GetInt("text"))
	assert.False(t, store.GetBool("text"))
	assert.Nil(t, store.GetStringSlice("text"))
}

func TestConfigStore_Persistence_WritesTables(t *testing.T) {
	tmpDir := t.TempDir()

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("session.handshake_timeout", 45))
	require.NoError(t, store1.Set("history.enabled", true))
	require.NoError(t, store1.Set("workflow.region", "aws-us-east-2"))

	data, err := os.ReadFile(store1.Path())
	require.NoError(t, err)
	assert.Contains(t, string(data), "[session]")
	assert.Contains(t, string(data), "[workflow]")

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, 45, store2.GetInt("session.handshake_timeout"))
	assert.True(t, store2.GetBool("history.enabled"))
	assert.Equal(t, "aws-us-east-2", store2.GetString("workflow.region"))
}

func TestConfigStore_SaveReload_PreservesServiceTables(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, sampleConfig)

	store1, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	require.NoError(t, store1.Set("workflow.schema", "CREATE TABLE t (id INT);"))

	store2, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, store1.Keys(), store2.Keys())
	assert.Equal(t, "aws-eu-central-1", store2.GetStringMap("services.neon.env")["NEON_REGION"])
	assert.Equal(t, "CREATE TABLE t (id INT);", store2.GetString("workflow.schema"))
}

func TestConfigStore_Set_ConflictingKey(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("workflow", "plain"))
	err = store.Set("workflow.region", "eu")

	assert.Error(t, err)
}

func TestConfigStore_FilePermissions(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Set("history.enabled", true))

	info, err := os.Stat(store.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestConfigStore_EmptyFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "")

	store, err := NewConfigStore(tmpDir)
	require.NoError(t, err)
	assert.Empty(t, store.Keys())
}

func TestNewConfigStore_LoadCorruptedFile(t *testing.T) {
	tmpDir := t.TempDir()
	writeConfig(t, tmpDir, "this is not valid TOML {{{[[")

	store, err := NewConfigStore(tmpDir)

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestNewConfigStore_MkdirAllError(t *testing.T) {
	store, err := NewConfigStore("/dev/null/cannot/create/dirs")

	assert.Error(t, err)
	assert.Nil(t, store)
}

func TestConfigStore_Save_WriteFileError(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)
	require.NoError(t, store.Set("history.enabled", true))

	// Replace the file with a directory to cause a write error
	require.NoError(t, os.Remove(store.Path()))
	require.NoError(t, os.Mkdir(store.Path(), 0700))

	assert.Error(t, store.Save())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store, err := NewConfigStore(t.TempDir())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			key := "services.s" + string(rune('0'+id)) + ".command"
			_ = store.Set(key, "bin")
			_ = store.GetString(key)
			_ = store.Keys()
			_ = store.GetStringMap("services")
		}(i)
	}
	wg.Wait()

	assert.Len(t, store.Keys(), 10)
}
