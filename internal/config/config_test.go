package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/parley-dev/parley/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_JSON(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"convergenceThreshold": 85,
		"responses_folder_path": "out",
		"models": [
			{"name": "gpt", "version": "gpt-4o", "api_key": "k1", "model_provider": "openai-chatgpt"},
			{"name": "claude", "version": "claude-3-opus", "api_key": "k2", "model_provider": "anthropic-claude"}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 85, cfg.ConvergenceThreshold)
	assert.Equal(t, "out", cfg.ResponsesDir)
	require.Len(t, cfg.Models, 2)
	assert.Equal(t, "anthropic-claude", cfg.Models[1].Provider)
}

func TestLoad_YAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
convergenceThreshold: 75
models:
  - name: gpt
    version: gpt-4o
    api_key: k1
    model_provider: openai-chatgpt
    options:
      max_tokens: 2048
  - name: claude
    version: claude-3-opus
    api_key: k2
    model_provider: anthropic-claude
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 75, cfg.ConvergenceThreshold)
	assert.Equal(t, DefaultResponsesDir, cfg.ResponsesDir)
	assert.Equal(t, 2048, cfg.Models[0].Options["max_tokens"])
}

func TestLoad_Defaults(t *testing.T) {
	path := writeFile(t, "config.json", `{
		"models": [
			{"name": "a", "version": "v", "api_key": "k", "model_provider": "openai-chatgpt"},
			{"name": "b", "version": "v", "api_key": "k", "model_provider": "openai-chatgpt"}
		]
	}`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, DefaultThreshold, cfg.ConvergenceThreshold)
	assert.Equal(t, DefaultResponsesDir, cfg.ResponsesDir)
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			ConvergenceThreshold: 90,
			ResponsesDir:         "responses",
			Models: []Model{
				{Name: "a", Version: "v", Provider: "openai-chatgpt"},
				{Name: "b", Version: "v", Provider: "anthropic-claude"},
			},
		}
	}

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, base().Validate())
	})

	t.Run("threshold out of range", func(t *testing.T) {
		cfg := base()
		cfg.ConvergenceThreshold = 101
		assertConfigError(t, cfg.Validate())
	})

	t.Run("single model", func(t *testing.T) {
		cfg := base()
		cfg.Models = cfg.Models[:1]
		assertConfigError(t, cfg.Validate())
	})

	t.Run("duplicate names", func(t *testing.T) {
		cfg := base()
		cfg.Models[1].Name = "a"
		assertConfigError(t, cfg.Validate())
	})

	t.Run("missing provider", func(t *testing.T) {
		cfg := base()
		cfg.Models[0].Provider = ""
		assertConfigError(t, cfg.Validate())
	})
}

func TestParticipants(t *testing.T) {
	cfg := &Config{
		Models: []Model{
			{Name: "a", Version: "v1", APIKey: "k1", Provider: "openai-chatgpt"},
			{Name: "b", Version: "v2", APIKey: "k2", Provider: "anthropic-claude"},
		},
	}

	ps := cfg.Participants()
	require.Len(t, ps, 2)
	assert.Equal(t, 0, ps[0].Index)
	assert.Equal(t, 1, ps[1].Index)
	assert.Equal(t, "k2", ps[1].Credential)
	assert.Equal(t, "v1", ps[0].Model)
}

func assertConfigError(t *testing.T, err error) {
	t.Helper()
	var cerr *domain.ConfigError
	assert.ErrorAs(t, err, &cerr)
}
