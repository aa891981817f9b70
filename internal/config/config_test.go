package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ArsenYoung/ai-support-rag-assistant/internal/gate"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultMatchesProductionThresholds(t *testing.T) {
	cfg := Default()
	assert.Equal(t, gate.DefaultConfig(), cfg.Gate)
	assert.Equal(t, 0.5, cfg.Answer.OverrideScore)
	assert.Equal(t, 5, cfg.Retrieval.TopK)
}

func TestLoadYAMLAndEnv(t *testing.T) {
	path := writeFile(t, "config.yaml", `
server:
  addr: ":9090"
  request_timeout: 20s
gate:
  min_hits: 2
  t_clarify: 0.4
  t_allow: 0.6
llm:
  provider: knowledge
store:
  path: ""
`)
	t.Setenv("RAG_T_ALLOW", "0.7")
	t.Setenv("RAG_TOP_K", "8")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.Server.Addr)
	assert.Equal(t, 20*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout, "unset fields keep defaults")
	assert.Equal(t, gate.Config{MinHits: 2, TClarify: 0.4, TAllow: 0.7}, cfg.Gate)
	assert.Equal(t, 8, cfg.Retrieval.TopK)
	assert.Equal(t, "", cfg.Store.Path)
}

func TestLoadEnvFile(t *testing.T) {
	envFile := writeFile(t, ".env", "RAG_LLM_PROVIDER=gemini\nGEMINI_API_KEY=secret\nRAG_LOG_LEVEL=debug\n")
	t.Setenv("RAG_LLM_PROVIDER", "")
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("RAG_LOG_LEVEL", "")
	// godotenv does not override variables that are already set, even when empty.
	os.Unsetenv("RAG_LLM_PROVIDER")
	os.Unsetenv("GEMINI_API_KEY")
	os.Unsetenv("RAG_LOG_LEVEL")

	cfg, err := Load("", envFile)
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.LLM.APIKey)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadMissingEnvFileIsIgnored(t *testing.T) {
	t.Setenv("RAG_LLM_PROVIDER", "knowledge")
	_, err := Load("", filepath.Join(t.TempDir(), ".env"))
	assert.NoError(t, err)
}

func TestLoadErrors(t *testing.T) {
	t.Setenv("RAG_LLM_PROVIDER", "knowledge")

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), "")
	assert.Error(t, err)

	bad := writeFile(t, "bad.yaml", "gate: [1, 2")
	_, err = Load(bad, "")
	assert.Error(t, err)

	t.Setenv("RAG_MIN_HITS", "three")
	_, err = Load("", "")
	assert.ErrorContains(t, err, "RAG_MIN_HITS")
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.LLM.Provider = ProviderKnowledge
	require.NoError(t, valid.Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative min hits", func(c *Config) { c.Gate.MinHits = -1 }},
		{"clarify above allow", func(c *Config) { c.Gate.TClarify = 0.7; c.Gate.TAllow = 0.6 }},
		{"allow above one", func(c *Config) { c.Gate.TAllow = 1.2 }},
		{"override out of range", func(c *Config) { c.Answer.OverrideScore = -0.1 }},
		{"zero top k", func(c *Config) { c.Retrieval.TopK = 0 }},
		{"empty addr", func(c *Config) { c.Server.Addr = "" }},
		{"gemini without key", func(c *Config) { c.LLM.Provider = ProviderGemini; c.LLM.APIKey = "" }},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "openai" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
