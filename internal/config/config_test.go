package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, ":8080", cfg.ListenAddr)
	assert.Equal(t, "/data/sparkinv.db", cfg.DBPath)
	assert.Equal(t, "ollama", cfg.ExtractionBackend)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Empty(t, cfg.DocGenURL)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("LISTEN_ADDR", ":9999")
	t.Setenv("EXTRACTION_BACKEND", "claude")
	t.Setenv("CLAUDE_API_KEY", "test-key")
	t.Setenv("DOCGEN_URL", "https://docs.example.com/render")
	t.Setenv("COMPANY_NAME", "Amp & Ohm Electrical")

	cfg := Load()

	assert.Equal(t, ":9999", cfg.ListenAddr)
	assert.Equal(t, "claude", cfg.ExtractionBackend)
	assert.Equal(t, "test-key", cfg.ClaudeAPIKey)
	assert.Equal(t, "https://docs.example.com/render", cfg.DocGenURL)
	assert.Equal(t, "Amp & Ohm Electrical", cfg.CompanyName)
}
