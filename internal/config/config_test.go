package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "python3", cfg.Execution.PythonPath)
	assert.Equal(t, 10*time.Second, cfg.Execution.IdleTimeout.Std())
	assert.Equal(t, 10*time.Second, cfg.Execution.CaseTimeout.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Execution.CourtesySleep.Std())
	assert.Equal(t, 100, cfg.Execution.BufferLines)
	assert.Equal(t, "gemini-2.0-flash", cfg.Translator.Model)
	assert.Equal(t, "GEMINI_API_KEY", cfg.Translator.APIKeyEnv)
	assert.Equal(t, "isipython.db", cfg.Store.Path)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadOverridesAndFillsGaps(t *testing.T) {
	path := filepath.Join(t.TempDir(), "isipython.yaml")
	doc := `
execution:
  python_path: /usr/local/bin/python3.12
  idle_timeout: 5s
translator:
  model: gemini-1.5-pro
log:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/usr/local/bin/python3.12", cfg.Execution.PythonPath)
	assert.Equal(t, 5*time.Second, cfg.Execution.IdleTimeout.Std())
	assert.Equal(t, "gemini-1.5-pro", cfg.Translator.Model)
	assert.Equal(t, "debug", cfg.Log.Level)
	// Unset fields still get defaults.
	assert.Equal(t, 10*time.Second, cfg.Execution.CaseTimeout.Std())
	assert.Equal(t, "isipython.db", cfg.Store.Path)
}

func TestLoadBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(path, []byte("execution: ["), 0o644))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoadMissingExplicitPath(t *testing.T) {
	_, err := Load("/no/such/file.yaml")
	assert.Error(t, err)
}

func TestAPIKey(t *testing.T) {
	t.Setenv("ISIPYTHON_TEST_KEY", "sekret")
	cfg := &Config{Translator: TranslatorConfig{APIKeyEnv: "ISIPYTHON_TEST_KEY"}}
	assert.Equal(t, "sekret", cfg.APIKey())
}
