package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Index    IndexConfig    `yaml:"index" mapstructure:"index"`
	DocQA    DocQAConfig    `yaml:"docqa" mapstructure:"docqa"`
	Vision   VisionConfig   `yaml:"vision" mapstructure:"vision"`
	Embed    EmbedConfig    `yaml:"embed" mapstructure:"embed"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Extract  ExtractConfig  `yaml:"extract" mapstructure:"extract"`
	Stamp    StampConfig    `yaml:"stamp" mapstructure:"stamp"`
	Pipeline PipelineConfig `yaml:"pipeline" mapstructure:"pipeline"`
	Fetch    FetchConfig    `yaml:"fetch" mapstructure:"fetch"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the run-history database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// IndexConfig configures the stamp embedding index.
type IndexConfig struct {
	BaseURL     string `yaml:"base_url" mapstructure:"base_url"`
	Collection  string `yaml:"collection" mapstructure:"collection"`
	Dimensions  int    `yaml:"dimensions" mapstructure:"dimensions"`
	TimeoutSecs int    `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// DocQAConfig configures the document question-answering model.
type DocQAConfig struct {
	Provider     string `yaml:"provider" mapstructure:"provider"`
	BaseURL      string `yaml:"base_url" mapstructure:"base_url"`
	AnthropicKey string `yaml:"anthropic_key" mapstructure:"anthropic_key"`
	Model        string `yaml:"model" mapstructure:"model"`
}

// VisionConfig configures the stamp detector and page classifier server.
type VisionConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// EmbedConfig configures the stamp embedding model server.
type EmbedConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url"`
}

// OCRConfig configures image text recognition.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	Languages     string `yaml:"languages" mapstructure:"languages"`
	Endpoint      string `yaml:"endpoint" mapstructure:"endpoint"`
}

// ExtractConfig configures field extraction.
type ExtractConfig struct {
	MinConfidence float64 `yaml:"min_confidence" mapstructure:"min_confidence"`
	MinLength     int     `yaml:"min_length" mapstructure:"min_length"`
	QueriesPath   string  `yaml:"queries_path" mapstructure:"queries_path"`
}

// StampConfig configures stamp localization and identity resolution.
type StampConfig struct {
	ScoreThreshold           float64 `yaml:"score_threshold" mapstructure:"score_threshold"`
	VerifyTopK               int     `yaml:"verify_top_k" mapstructure:"verify_top_k"`
	SettlePollIntervalMillis int     `yaml:"settle_poll_interval_millis" mapstructure:"settle_poll_interval_millis"`
	SettleTimeoutSecs        int     `yaml:"settle_timeout_secs" mapstructure:"settle_timeout_secs"`
}

// PipelineConfig configures document processing.
type PipelineConfig struct {
	TempDir        string `yaml:"temp_dir" mapstructure:"temp_dir"`
	RenderDPI      int    `yaml:"render_dpi" mapstructure:"render_dpi"`
	RelevancyLabel string `yaml:"relevancy_label" mapstructure:"relevancy_label"`
	SkipRelevancy  bool   `yaml:"skip_relevancy" mapstructure:"skip_relevancy"`
}

// FetchConfig configures document source fetching.
type FetchConfig struct {
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries        int     `yaml:"retries" mapstructure:"retries"`
	RatePerSecond  float64 `yaml:"rate_per_second" mapstructure:"rate_per_second"`
	FTPTimeoutSecs int     `yaml:"ftp_timeout_secs" mapstructure:"ftp_timeout_secs"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	MaxConcurrentDocuments int `yaml:"max_concurrent_documents" mapstructure:"max_concurrent_documents"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("INVOICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "invoice.db")
	v.SetDefault("index.base_url", "http://localhost:6333")
	v.SetDefault("index.collection", "stamps")
	v.SetDefault("index.dimensions", 512)
	v.SetDefault("index.timeout_secs", 30)
	v.SetDefault("docqa.provider", "server")
	v.SetDefault("docqa.base_url", "http://localhost:8501")
	v.SetDefault("docqa.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("vision.base_url", "http://localhost:8502")
	v.SetDefault("embed.base_url", "http://localhost:8503")
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.languages", "eng+spa")
	v.SetDefault("extract.min_confidence", 0.9)
	v.SetDefault("extract.min_length", 7)
	v.SetDefault("stamp.score_threshold", 0.7)
	v.SetDefault("stamp.verify_top_k", 10)
	v.SetDefault("stamp.settle_poll_interval_millis", 500)
	v.SetDefault("stamp.settle_timeout_secs", 30)
	v.SetDefault("pipeline.temp_dir", "")
	v.SetDefault("pipeline.render_dpi", 200)
	v.SetDefault("pipeline.relevancy_label", "Relevant")
	v.SetDefault("fetch.timeout_secs", 60)
	v.SetDefault("fetch.retries", 2)
	v.SetDefault("fetch.rate_per_second", 5)
	v.SetDefault("fetch.ftp_timeout_secs", 30)
	v.SetDefault("batch.max_concurrent_documents", 4)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks config invariants for the given run mode. Modes are
// "process" (single document pipeline), "enroll", "batch", and "serve".
func (c *Config) Validate(mode string) error {
	var problems []string

	if c.Extract.MinConfidence < 0 || c.Extract.MinConfidence > 1 {
		problems = append(problems, "extract.min_confidence must be between 0 and 1")
	}
	if c.Extract.MinLength < 1 {
		problems = append(problems, "extract.min_length must be >= 1")
	}
	if c.Stamp.ScoreThreshold < 0 || c.Stamp.ScoreThreshold > 1 {
		problems = append(problems, "stamp.score_threshold must be between 0 and 1")
	}
	if c.Stamp.VerifyTopK < 1 {
		problems = append(problems, "stamp.verify_top_k must be >= 1")
	}

	switch mode {
	case "process":
		if c.DocQA.Provider == "anthropic" && c.DocQA.AnthropicKey == "" {
			problems = append(problems, "docqa.anthropic_key is required for the anthropic provider")
		}
	case "enroll":
		if c.Index.BaseURL == "" {
			problems = append(problems, "index.base_url is required")
		}
	case "batch":
		if c.Batch.MaxConcurrentDocuments < 1 || c.Batch.MaxConcurrentDocuments > 32 {
			problems = append(problems, "batch.max_concurrent_documents must be between 1 and 32")
		}
	case "serve":
		if c.Server.Port <= 0 {
			problems = append(problems, "server.port must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
