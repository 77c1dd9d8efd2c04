package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, ":8000", cfg.Server.Addr)
	assert.Equal(t, 10, cfg.Workflow.MaxSteps)
	assert.Equal(t, 3, cfg.Tavily.MaxResults)
	assert.NotEmpty(t, cfg.Gemini.RouterModel)
	assert.NotEmpty(t, cfg.Gemini.EmbeddingModel)
	assert.Equal(t, "data/sessions.db", cfg.Storage.SessionPath)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  addr: ":9001"
workflow:
  max_steps: 12
tavily:
  max_results: 5
gemini:
  router_model: custom-router
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9001", cfg.Server.Addr)
	assert.Equal(t, 12, cfg.Workflow.MaxSteps)
	assert.Equal(t, 5, cfg.Tavily.MaxResults)
	assert.Equal(t, "custom-router", cfg.Gemini.RouterModel)
	// Unspecified fields keep their defaults.
	assert.Equal(t, "data/checkpoints.db", cfg.Storage.CheckpointPath)
}

func TestLoad_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_TUTOR_KEY", "secret-key")
	path := writeConfig(t, `
gemini:
  api_key: ${TEST_TUTOR_KEY}
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret-key", cfg.Gemini.APIKey)
}

func TestLoad_FloorsInvalidValues(t *testing.T) {
	path := writeConfig(t, `
workflow:
  max_steps: -1
tavily:
  max_results: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 10, cfg.Workflow.MaxSteps)
	assert.Equal(t, 3, cfg.Tavily.MaxResults)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "server: [not a map")
	_, err := Load(path)
	assert.Error(t, err)
}
