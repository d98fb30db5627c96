// Package config builds the application configuration from defaults, an
// optional YAML file, a .env file and the process environment. The resulting
// Config is constructed once by each binary and passed to constructors.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	yaml "gopkg.in/yaml.v2"
)

// Date orders understood by the normalizer for ambiguous numeric dates.
const (
	DateOrderMDY = "mdy"
	DateOrderDMY = "dmy"
)

// LLM providers.
const (
	ProviderNone      = "none"
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
)

// Category mapping suggesters.
const (
	SuggesterNone  = "none"
	SuggesterLLM   = "llm"
	SuggesterBayes = "bayes"
)

// Storage and queue backends.
const (
	BlobFS      = "fs"
	BlobGCS     = "gcs"
	BlobAzure   = "azure"
	IndexBolt   = "bolt"
	IndexTables = "aztables"
	QueueMemory = "memory"
	QueueAzure  = "azure"
)

// Config is the full application configuration.
type Config struct {
	App        AppConfig        `yaml:"app"`
	Ingest     IngestConfig     `yaml:"ingest"`
	LLM        LLMConfig        `yaml:"llm"`
	Categorize CategorizeConfig `yaml:"categorize"`
	Storage    StorageConfig    `yaml:"storage"`
	Queue      QueueConfig      `yaml:"queue"`
	Export     ExportConfig     `yaml:"export"`
}

type AppConfig struct {
	Env      string `yaml:"env"`
	DataDir  string `yaml:"data_dir"`
	LogLevel string `yaml:"log_level"`
}

type IngestConfig struct {
	DateOrder       string `yaml:"date_order"`
	DefaultCurrency string `yaml:"default_currency"`
	UseAI           bool   `yaml:"use_ai"`
	AIMaxRows       int    `yaml:"ai_max_rows"`
	// IdentityIncludesDescription adds description and currency to the
	// transaction id so same-day same-amount charges at one merchant stay distinct.
	IdentityIncludesDescription bool `yaml:"identity_includes_description"`
}

type LLMConfig struct {
	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	IngestModel string  `yaml:"ingest_model"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`
}

type CategorizeConfig struct {
	Suggester string `yaml:"suggester"`
	RulesFile string `yaml:"rules_file"`
}

type StorageConfig struct {
	Blob       string `yaml:"blob"`
	Bucket     string `yaml:"bucket"`
	Container  string `yaml:"container"`
	ServiceURL string `yaml:"service_url"`
	Index      string `yaml:"index"`
	DBPath     string `yaml:"db_path"`
	TableURL   string `yaml:"table_url"`
	TableName  string `yaml:"table_name"`
}

type QueueConfig struct {
	Backend    string `yaml:"backend"`
	ServiceURL string `yaml:"service_url"`
	QueueName  string `yaml:"queue_name"`
	BufferSize int    `yaml:"buffer_size"`
	Workers    int    `yaml:"workers"`
}

type ExportConfig struct {
	BigQueryProject string `yaml:"bigquery_project"`
	BigQueryDataset string `yaml:"bigquery_dataset"`
	NotionToken     string `yaml:"notion_token"`
	NotionDatabase  string `yaml:"notion_database"`
}

// Default returns the configuration used when nothing is overridden.
func Default() Config {
	return Config{
		App: AppConfig{
			Env:      "dev",
			DataDir:  "./data",
			LogLevel: "info",
		},
		Ingest: IngestConfig{
			DateOrder:       DateOrderMDY,
			DefaultCurrency: "USD",
			UseAI:           true,
			AIMaxRows:       500,
		},
		LLM: LLMConfig{
			Provider:    ProviderNone,
			MaxTokens:   4096,
			Temperature: 0.3,
		},
		Categorize: CategorizeConfig{
			Suggester: SuggesterNone,
		},
		Storage: StorageConfig{
			Blob:      BlobFS,
			Container: "finance-health",
			Index:     IndexBolt,
			TableName: "sessions",
		},
		Queue: QueueConfig{
			Backend:    QueueMemory,
			QueueName:  "ingest-jobs",
			BufferSize: 100,
			Workers:    5,
		},
		Export: ExportConfig{
			BigQueryDataset: "finance",
		},
	}
}

// Load builds a Config. path may be empty; when set, the YAML file must exist.
// A .env file in the working directory is loaded if present.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("FH_CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config.Load: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config.Load: parse %s: %w", path, err)
		}
	}

	// .env never overrides variables already present in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return Config{}, fmt.Errorf("config.Load: .env: %w", err)
	}

	cfg.applyEnv(os.LookupEnv)
	cfg.fillDerived()

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := lookup(key); ok {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := lookup(key); ok {
			if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
				*dst = b
			}
		}
	}
	float := func(key string, dst *float64) {
		if v, ok := lookup(key); ok {
			if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
				*dst = f
			}
		}
	}

	str("APP_ENV", &c.App.Env)
	str("DATA_DIR", &c.App.DataDir)
	str("LOG_LEVEL", &c.App.LogLevel)

	str("DATE_ORDER", &c.Ingest.DateOrder)
	str("DEFAULT_CURRENCY", &c.Ingest.DefaultCurrency)
	boolean("INGEST_USE_AI", &c.Ingest.UseAI)
	integer("INGEST_AI_MAX_ROWS", &c.Ingest.AIMaxRows)
	boolean("IDENTITY_INCLUDES_DESCRIPTION", &c.Ingest.IdentityIncludesDescription)

	str("LLM_PROVIDER", &c.LLM.Provider)
	str("LLM_MODEL", &c.LLM.Model)
	str("LLM_MODEL_INGEST", &c.LLM.IngestModel)
	integer("LLM_MAX_TOKENS", &c.LLM.MaxTokens)
	float("LLM_TEMPERATURE", &c.LLM.Temperature)
	switch c.LLM.Provider {
	case ProviderGemini:
		str("GEMINI_API_KEY", &c.LLM.APIKey)
	case ProviderAnthropic:
		str("ANTHROPIC_API_KEY", &c.LLM.APIKey)
	}
	str("LLM_API_KEY", &c.LLM.APIKey)

	str("CATEGORIZE_SUGGESTER", &c.Categorize.Suggester)
	str("CATEGORIZE_RULES_FILE", &c.Categorize.RulesFile)

	str("BLOB_BACKEND", &c.Storage.Blob)
	str("GCS_BUCKET", &c.Storage.Bucket)
	str("BLOB_CONTAINER", &c.Storage.Container)
	str("BLOB_SERVICE_URL", &c.Storage.ServiceURL)
	str("SESSION_INDEX", &c.Storage.Index)
	str("DB_PATH", &c.Storage.DBPath)
	str("TABLE_SERVICE_URL", &c.Storage.TableURL)
	str("SESSIONS_TABLE", &c.Storage.TableName)

	str("QUEUE_BACKEND", &c.Queue.Backend)
	str("QUEUE_SERVICE_URL", &c.Queue.ServiceURL)
	str("QUEUE_NAME", &c.Queue.QueueName)
	integer("QUEUE_BUFFER_SIZE", &c.Queue.BufferSize)
	integer("QUEUE_WORKERS", &c.Queue.Workers)

	str("BIGQUERY_PROJECT", &c.Export.BigQueryProject)
	str("BIGQUERY_DATASET", &c.Export.BigQueryDataset)
	str("NOTION_TOKEN", &c.Export.NotionToken)
	str("NOTION_DATABASE_ID", &c.Export.NotionDatabase)
}

func (c *Config) fillDerived() {
	c.Ingest.DateOrder = strings.ToLower(c.Ingest.DateOrder)
	c.LLM.Provider = strings.ToLower(c.LLM.Provider)
	c.Categorize.Suggester = strings.ToLower(c.Categorize.Suggester)
	c.Storage.Blob = strings.ToLower(c.Storage.Blob)
	c.Storage.Index = strings.ToLower(c.Storage.Index)
	c.Queue.Backend = strings.ToLower(c.Queue.Backend)
	c.Ingest.DefaultCurrency = strings.ToUpper(c.Ingest.DefaultCurrency)

	if c.Storage.DBPath == "" {
		c.Storage.DBPath = filepath.Join(c.App.DataDir, "metadata.db")
	}
	if c.LLM.Model == "" {
		switch c.LLM.Provider {
		case ProviderGemini:
			c.LLM.Model = "gemini-2.5-flash"
		case ProviderAnthropic:
			c.LLM.Model = "claude-sonnet-4-5-20250929"
		}
	}
	if c.LLM.IngestModel == "" {
		c.LLM.IngestModel = c.LLM.Model
	}
}

// Validate rejects unknown enum values and impossible limits.
func (c Config) Validate() error {
	check := func(field, v string, allowed ...string) error {
		for _, a := range allowed {
			if v == a {
				return nil
			}
		}
		return fmt.Errorf("config: %s must be one of %s, got %q", field, strings.Join(allowed, "|"), v)
	}

	if err := check("ingest.date_order", c.Ingest.DateOrder, DateOrderMDY, DateOrderDMY); err != nil {
		return err
	}
	if err := check("llm.provider", c.LLM.Provider, ProviderNone, ProviderGemini, ProviderAnthropic); err != nil {
		return err
	}
	if err := check("categorize.suggester", c.Categorize.Suggester, SuggesterNone, SuggesterLLM, SuggesterBayes); err != nil {
		return err
	}
	if err := check("storage.blob", c.Storage.Blob, BlobFS, BlobGCS, BlobAzure); err != nil {
		return err
	}
	if err := check("storage.index", c.Storage.Index, IndexBolt, IndexTables); err != nil {
		return err
	}
	if err := check("queue.backend", c.Queue.Backend, QueueMemory, QueueAzure); err != nil {
		return err
	}
	if c.Ingest.AIMaxRows <= 0 {
		return fmt.Errorf("config: ingest.ai_max_rows must be positive, got %d", c.Ingest.AIMaxRows)
	}
	if c.Storage.Blob == BlobGCS && c.Storage.Bucket == "" {
		return fmt.Errorf("config: storage.bucket is required for the gcs blob backend")
	}
	if c.Storage.Blob == BlobAzure && c.Storage.ServiceURL == "" {
		return fmt.Errorf("config: storage.service_url is required for the azure blob backend")
	}
	if c.Storage.Index == IndexTables && c.Storage.TableURL == "" {
		return fmt.Errorf("config: storage.table_url is required for the aztables index")
	}
	if c.Queue.Backend == QueueAzure && c.Queue.ServiceURL == "" {
		return fmt.Errorf("config: queue.service_url is required for the azure queue backend")
	}
	return nil
}

// AIEnabled reports whether a text generator should be constructed.
func (c Config) AIEnabled() bool {
	return c.LLM.Provider != ProviderNone
}
