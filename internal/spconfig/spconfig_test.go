package spconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadTomlAppliesDefaults(t *testing.T) {
	path := writeTemp(t, "cfg.toml", `
[[primitives]]
name = "pthread_mutex_lock"
opaque = false

[[primitives]]
name = "pthread_mutex_unlock"
opaque = true
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "text", cfg.OutputFormat)
	assert.Equal(t, "sync-prof.out", cfg.OutputPath)
	assert.Equal(t, 30, cfg.TimeoutSeconds)
	assert.Equal(t, []string{"pthread_mutex_lock", "pthread_mutex_unlock"}, cfg.Names())
	assert.Equal(t, map[string]bool{"pthread_mutex_lock": false, "pthread_mutex_unlock": true}, cfg.OpaqueTable())
}

func TestLoadYamlHonorsExplicitOptions(t *testing.T) {
	path := writeTemp(t, "cfg.yaml", `
primitives:
  - name: sem_wait
    opaque: false
output_format: chrome
output_path: trace.json
timeout_seconds: 5
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "chrome", cfg.OutputFormat)
	assert.Equal(t, "trace.json", cfg.OutputPath)
	assert.Equal(t, 5, cfg.TimeoutSeconds)
}

func TestLoadRejectsUnknownExtension(t *testing.T) {
	path := writeTemp(t, "cfg.ini", "primitives=[]")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadPropagatesMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}
