package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envFrom(m map[string]string) lookupFunc {
	return func(k string) (string, bool) {
		v, ok := m[k]
		return v, ok
	}
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	cfg.fillDerived()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, DateOrderMDY, cfg.Ingest.DateOrder)
	assert.Equal(t, "USD", cfg.Ingest.DefaultCurrency)
	assert.Equal(t, filepath.Join("./data", "metadata.db"), cfg.Storage.DBPath)
	assert.False(t, cfg.AIEnabled())
}

func TestApplyEnv(t *testing.T) {
	cfg := Default()
	cfg.applyEnv(envFrom(map[string]string{
		"DATA_DIR":           "/tmp/fh",
		"DATE_ORDER":         "DMY",
		"LLM_PROVIDER":       "anthropic",
		"ANTHROPIC_API_KEY":  "sk-test",
		"INGEST_AI_MAX_ROWS": "50",
		"INGEST_USE_AI":      "false",
		"LLM_TEMPERATURE":    "not-a-number",
	}))
	cfg.fillDerived()

	require.NoError(t, cfg.Validate())
	assert.Equal(t, "/tmp/fh", cfg.App.DataDir)
	assert.Equal(t, DateOrderDMY, cfg.Ingest.DateOrder)
	assert.Equal(t, ProviderAnthropic, cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, 50, cfg.Ingest.AIMaxRows)
	assert.False(t, cfg.Ingest.UseAI)
	assert.InDelta(t, 0.3, cfg.LLM.Temperature, 1e-9)
	assert.NotEmpty(t, cfg.LLM.Model)
	assert.Equal(t, cfg.LLM.Model, cfg.LLM.IngestModel)
	assert.Equal(t, filepath.Join("/tmp/fh", "metadata.db"), cfg.Storage.DBPath)
}

func TestValidateRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"date order", func(c *Config) { c.Ingest.DateOrder = "ymd" }},
		{"provider", func(c *Config) { c.LLM.Provider = "ollama" }},
		{"suggester", func(c *Config) { c.Categorize.Suggester = "magic" }},
		{"blob", func(c *Config) { c.Storage.Blob = "s3" }},
		{"gcs without bucket", func(c *Config) { c.Storage.Blob = BlobGCS }},
		{"azure blob without url", func(c *Config) { c.Storage.Blob = BlobAzure }},
		{"tables without url", func(c *Config) { c.Storage.Index = IndexTables }},
		{"azure queue without url", func(c *Config) { c.Queue.Backend = QueueAzure }},
		{"zero rows", func(c *Config) { c.Ingest.AIMaxRows = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(&cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoadYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
app:
  data_dir: ` + dir + `
ingest:
  date_order: dmy
  default_currency: eur
categorize:
  suggester: bayes
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, dir, cfg.App.DataDir)
	assert.Equal(t, DateOrderDMY, cfg.Ingest.DateOrder)
	assert.Equal(t, "EUR", cfg.Ingest.DefaultCurrency)
	assert.Equal(t, SuggesterBayes, cfg.Categorize.Suggester)
	assert.Equal(t, 500, cfg.Ingest.AIMaxRows)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
