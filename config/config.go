package config

import (
	"time"

	"github.com/caarlos0/env/v6"
)

type Config struct {
	Server struct {
		Port string `env:"PORT" envDefault:"5250"`

		// Origins allowed by CORS; "*" allows any
		AllowedOrigins []string `env:"CORS_ORIGINS" envSeparator:"," envDefault:"*"`

		// Upload size guidance is a UX target; this is only the hard
		// request cap that protects the server
		MaxUploadBytes int64 `env:"MAX_UPLOAD_BYTES" envDefault:"33554432"`
	}

	Database struct {
		// "sqlite" or "mysql"
		Driver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`

		// The store lives for the session only, so it defaults to an
		// in-memory database
		DSN string `env:"DATABASE_DSN" envDefault:"file::memory:?cache=shared"`

		// Number of property rows written per INSERT
		InsertBatchSize int `env:"DB_INSERT_BATCH_SIZE" envDefault:"500"`

		// Number of decoded datasets kept in memory
		CacheSize int `env:"DB_CACHE_SIZE" envDefault:"8"`
	}

	Ingestion struct {
		// Maximum number of uploads waiting for a worker
		QueueSize int `env:"INGEST_QUEUE_SIZE" envDefault:"16"`

		// Number of concurrent ingestion workers
		ProcessorCount int `env:"INGEST_PROCESSOR_COUNT" envDefault:"2"`

		// Maximum number of retries when storing a processed dataset fails
		MaxRetries int `env:"INGEST_MAX_RETRIES" envDefault:"3"`

		// Delay between retries
		RetryDelay time.Duration `env:"INGEST_RETRY_DELAY" envDefault:"1s"`

		// Row-level diagnostics kept per file
		MaxDiagnostics int `env:"INGEST_MAX_DIAGNOSTICS" envDefault:"10"`

		// Placeholder living area for rows without a usable sqft
		DefaultSqft float64 `env:"INGEST_DEFAULT_SQFT" envDefault:"1000"`

		// Optional override for the embedded column table
		ColumnTablePath string `env:"COLUMN_TABLE_PATH"`
	}

	Datasets struct {
		TTL           time.Duration `env:"DATASET_TTL" envDefault:"2h"`
		SweepInterval time.Duration `env:"DATASET_SWEEP_INTERVAL" envDefault:"5m"`
	}

	Assistant struct {
		APIKey      string        `env:"OPENROUTER_API_KEY"`
		BaseURL     string        `env:"ASSISTANT_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`
		Model       string        `env:"ASSISTANT_MODEL" envDefault:"openai/gpt-4o-mini"`
		Timeout     time.Duration `env:"ASSISTANT_TIMEOUT" envDefault:"20s"`
		MaxTokens   int           `env:"ASSISTANT_MAX_TOKENS" envDefault:"800"`
		Temperature float64       `env:"ASSISTANT_TEMPERATURE" envDefault:"0.2"`

		// Send the full filtered record list along with the summary
		IncludeRecords bool `env:"ASSISTANT_INCLUDE_RECORDS" envDefault:"false"`
	}

	Geocoding struct {
		// Fill missing coordinates from a Nominatim-compatible endpoint
		Enabled      bool          `env:"GEOCODING_ENABLED" envDefault:"false"`
		BaseURL      string        `env:"GEOCODING_BASE_URL" envDefault:"https://nominatim.openstreetmap.org"`
		CountryCodes string        `env:"GEOCODING_COUNTRY_CODES" envDefault:"us"`
		Interval     time.Duration `env:"GEOCODING_INTERVAL" envDefault:"1s"`
		MaxLookups   int           `env:"GEOCODING_MAX_LOOKUPS" envDefault:"50"`
		CacheFile    string        `env:"GEOCODING_CACHE_FILE"`
	}

	Log struct {
		Level string `env:"LOG_LEVEL" envDefault:"info"`
	}
}

func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
