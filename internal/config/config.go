package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the kabu gatherer.
type Config struct {
	Storage  Storage      `yaml:"storage"`
	Provider Provider     `yaml:"provider"`
	Alpaca   Alpaca       `yaml:"alpaca"`
	Logging  Logging      `yaml:"logging"`
	Gather   GatherConfig `yaml:"gather"`
}

// Storage selects the relational backend and where exports are written.
type Storage struct {
	Driver     string   `yaml:"driver"` // "sqlite" or "postgres"
	SQLitePath string   `yaml:"sqlite_path"`
	Postgres   Postgres `yaml:"postgres"`
	DataDir    string   `yaml:"data_dir"`
}

// Postgres holds connection parameters for the postgres driver.
type Postgres struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	SSLMode  string `yaml:"sslmode"`
}

// Provider configures the market-data source.
type Provider struct {
	Name            string        `yaml:"name"` // "quandl" or "alpaca"
	APIKey          string        `yaml:"api_key"`
	BaseURL         string        `yaml:"base_url"`
	Timeout         time.Duration `yaml:"timeout"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	StockDatabase   string        `yaml:"stock_database"`
	IndexSeries     string        `yaml:"index_series"`
}

// Alpaca holds credentials and endpoints for the Alpaca market-data API.
type Alpaca struct {
	APIKey      string `yaml:"api_key"`
	APISecret   string `yaml:"api_secret"`
	DataURL     string `yaml:"data_url"`
	Feed        string `yaml:"feed"`
	IndexSymbol string `yaml:"index_symbol"`
}

// Logging configures the application logger.
type Logging struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// GatherConfig controls the daily run.
type GatherConfig struct {
	// StartDate is the first date requested when the store holds no bars.
	StartDate string `yaml:"start_date"`
}

// ---------------------------------------------------------------------------
// Defaults
// ---------------------------------------------------------------------------

const (
	DefaultSQLitePath    = "stock.db"
	DefaultQuandlURL     = "https://www.quandl.com/api/v3"
	DefaultStockDatabase = "TSE"
	DefaultIndexSeries   = "YAHOO/INDEX_N225"
	DefaultAlpacaIndex   = "EWJ"
	DefaultStartDate     = "2000-01-01"
	DefaultTimeout       = 30 * time.Second
)

// Defaults returns a Config populated with the values used when no
// configuration file is present.
func Defaults() *Config {
	return &Config{
		Storage: Storage{
			Driver:     "sqlite",
			SQLitePath: DefaultSQLitePath,
			DataDir:    "data",
			Postgres: Postgres{
				Host:    "localhost",
				Port:    5432,
				SSLMode: "disable",
			},
		},
		Provider: Provider{
			Name:          "quandl",
			BaseURL:       DefaultQuandlURL,
			Timeout:       DefaultTimeout,
			StockDatabase: DefaultStockDatabase,
			IndexSeries:   DefaultIndexSeries,
		},
		Alpaca: Alpaca{
			Feed:        "iex",
			IndexSymbol: DefaultAlpacaIndex,
		},
		Logging: Logging{
			Level:  "info",
			Format: "text",
		},
		Gather: GatherConfig{
			StartDate: DefaultStartDate,
		},
	}
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

// Load reads the YAML configuration file at path over the defaults and then
// applies environment variable overrides. A missing file is not an error:
// the defaults (with no API credential) are used instead. An empty path
// skips the file entirely.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
			// No file: defaults + env.
		case err != nil:
			return nil, err
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parsing %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks enumerated fields and the start date.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("storage.driver: unsupported driver %q", c.Storage.Driver)
	}
	switch c.Provider.Name {
	case "quandl", "alpaca":
	default:
		return fmt.Errorf("provider.name: unsupported provider %q", c.Provider.Name)
	}
	if c.Provider.RateLimitPerMin < 0 {
		return fmt.Errorf("provider.rate_limit_per_min: must be >= 0, got %d", c.Provider.RateLimitPerMin)
	}
	if _, err := time.Parse("2006-01-02", c.Gather.StartDate); err != nil {
		return fmt.Errorf("gather.start_date: %w", err)
	}
	return nil
}

// applyEnvOverrides checks well-known environment variables and overrides the
// corresponding configuration fields when they are set.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KABU_DB_DRIVER"); v != "" {
		cfg.Storage.Driver = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Storage.SQLitePath = v
	}
	if v := os.Getenv("DATA_DIR"); v != "" {
		cfg.Storage.DataDir = v
	}

	if v := os.Getenv("PGHOST"); v != "" {
		cfg.Storage.Postgres.Host = v
	}
	if v := os.Getenv("PGPORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Storage.Postgres.Port = port
		}
	}
	if v := os.Getenv("PGUSER"); v != "" {
		cfg.Storage.Postgres.User = v
	}
	if v := os.Getenv("PGPASSWORD"); v != "" {
		cfg.Storage.Postgres.Password = v
	}
	if v := os.Getenv("PGDATABASE"); v != "" {
		cfg.Storage.Postgres.Database = v
	}

	if v := os.Getenv("KABU_PROVIDER"); v != "" {
		cfg.Provider.Name = v
	}
	if v := os.Getenv("QUANDL_API_KEY"); v != "" {
		cfg.Provider.APIKey = v
	}
	if v := os.Getenv("QUANDL_BASE_URL"); v != "" {
		cfg.Provider.BaseURL = v
	}

	if v := os.Getenv("ALPACA_API_KEY"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("ALPACA_API_SECRET"); v != "" {
		cfg.Alpaca.APISecret = v
	}
	if v := os.Getenv("ALPACA_DATA_URL"); v != "" {
		cfg.Alpaca.DataURL = v
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}

	// Standard Alpaca env vars (highest priority, canonical names used by the SDK).
	if v := os.Getenv("APCA_API_KEY_ID"); v != "" {
		cfg.Alpaca.APIKey = v
	}
	if v := os.Getenv("APCA_API_SECRET_KEY"); v != "" {
		cfg.Alpaca.APISecret = v
	}
}

// HasCredential reports whether an API key for the selected provider is set.
func (c *Config) HasCredential() bool {
	if c.Provider.Name == "alpaca" {
		return c.Alpaca.APIKey != "" && c.Alpaca.APISecret != ""
	}
	return c.Provider.APIKey != ""
}
