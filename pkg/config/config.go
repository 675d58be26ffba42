package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Environment string `yaml:"environment" default:"development" validate:"required"`
	Log         struct {
		Level  string `yaml:"level" default:"info" validate:"oneof=debug info warn error"`
		Format string `yaml:"format" default:"console" validate:"oneof=json console"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"log"`
	Server struct {
		Host            string        `yaml:"host" default:"0.0.0.0"`
		Port            int           `yaml:"port" default:"8080" validate:"gte=1,lte=65535"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"10s"`
		SlowThreshold   time.Duration `yaml:"slow_threshold" default:"1s"`
		CORS            bool          `yaml:"cors" default:"true"`
	} `yaml:"server"`
	Data struct {
		PricePath       string        `yaml:"price_path" default:"data/btc_data.csv" validate:"required"`
		SentimentPath   string        `yaml:"sentiment_path" default:"data/fgi_data.csv" validate:"required"`
		RefreshInterval time.Duration `yaml:"refresh_interval" default:"0s" validate:"gte=0"`
	} `yaml:"data"`
	Features struct {
		VolatilityWindow int `yaml:"volatility_window" default:"7" validate:"gte=2"`
	} `yaml:"features"`
	Model struct {
		Features       []string      `yaml:"features" default:"[\"fgi_sentiment\",\"daily_return\",\"volatility_7d\"]" validate:"min=1,unique,dive,oneof=fgi_sentiment fgi_sentiment_lag1 fgi_value fgi_value_lag1 daily_return volatility_7d"`
		MinRows        int           `yaml:"min_rows" default:"20" validate:"gte=2"`
		TestFraction   float64       `yaml:"test_fraction" default:"0.2" validate:"gte=0,lt=1"`
		Regularization float64       `yaml:"regularization" default:"1.0" validate:"gt=0"`
		MaxIterations  int           `yaml:"max_iterations" default:"500" validate:"gte=1"`
		CacheTTL       time.Duration `yaml:"cache_ttl" default:"24h"`
	} `yaml:"model"`
	Ledger struct {
		Backend string        `yaml:"backend" default:"csv" validate:"oneof=csv clickhouse"`
		Path    string        `yaml:"path" default:"data/predictions.csv"`
		Table   string        `yaml:"table" default:"prediction_ledger"`
		LockTTL time.Duration `yaml:"lock_ttl" default:"30s"`
	} `yaml:"ledger"`
	Redis struct {
		Enabled   bool          `yaml:"enabled"`
		Addr      string        `yaml:"addr" default:"localhost:6379"`
		Password  string        `yaml:"password"`
		DB        int           `yaml:"db"`
		Prefix    string        `yaml:"prefix" default:"sentidash"`
		MemoryTTL time.Duration `yaml:"memory_ttl" default:"1m"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled         bool          `yaml:"enabled"`
		Brokers         []string      `yaml:"brokers"`
		Topic           string        `yaml:"topic" default:"sentidash.predictions"`
		RequiredAcks    int           `yaml:"required_acks" default:"-1"`
		Compression     string        `yaml:"compression" default:"gzip" validate:"oneof=gzip snappy lz4 zstd"`
		MaxAttempts     int           `yaml:"max_attempts" default:"3"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"10s"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		AutoCreateTopic bool          `yaml:"auto_create_topic"`
	} `yaml:"kafka"`
	ClickHouse struct {
		Host             string        `yaml:"host"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"sentidash"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		UseHTTP          bool          `yaml:"use_http"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"5s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout     time.Duration `yaml:"write_timeout" default:"10s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"30s"`
	} `yaml:"clickhouse"`
	Acquisition struct {
		FearGreedURL   string        `yaml:"fear_greed_url" default:"https://api.alternative.me" validate:"url"`
		PriceURL       string        `yaml:"price_url" default:"https://query1.finance.yahoo.com" validate:"url"`
		Symbol         string        `yaml:"symbol" default:"BTC-USD" validate:"required"`
		Start          string        `yaml:"start" default:"2018-01-01" validate:"datetime=2006-01-02"`
		FearGreedLimit int           `yaml:"fear_greed_limit" default:"1000" validate:"gte=0"`
		Timeout        time.Duration `yaml:"timeout" default:"15s"`
		Attempts       int           `yaml:"attempts" default:"3" validate:"gte=1"`
		RPS            float64       `yaml:"rps" default:"1"`
		Burst          int           `yaml:"burst" default:"2"`
	} `yaml:"acquisition"`
}

// Default returns a configuration made only of defaults.
func Default() (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	return &c, nil
}

// Load applies defaults, then the YAML file at path. A missing file keeps
// the defaults.
func Load(path string) (*Config, error) {
	c, err := Default()
	if err != nil {
		return nil, err
	}

	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(b, c); err != nil {
				return nil, fmt.Errorf("parse config: %w", err)
			}
		}
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment
// variables, after reading a .env file when one exists.
func LoadWithEnv(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	c, err := Load(path)
	if err != nil {
		return nil, err
	}
	c.applyEnv()

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return c, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("PRICE_PATH"); v != "" {
		c.Data.PricePath = v
	}
	if v := os.Getenv("SENTIMENT_PATH"); v != "" {
		c.Data.SentimentPath = v
	}
	if v := os.Getenv("LEDGER_PATH"); v != "" {
		c.Ledger.Path = v
	}
	if v := os.Getenv("LEDGER_BACKEND"); v != "" {
		c.Ledger.Backend = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
		c.Redis.Enabled = true
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Brokers = strings.Split(v, ",")
		c.Kafka.Enabled = true
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
}

var validate = validator.New()

// Validate checks field rules and the cross-section requirements.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	if c.Ledger.Backend == "csv" && c.Ledger.Path == "" {
		return fmt.Errorf("ledger.path is required for the csv backend")
	}
	if c.Ledger.Backend == "clickhouse" && c.ClickHouse.Host == "" {
		return fmt.Errorf("clickhouse.host is required for the clickhouse ledger backend")
	}
	// ClickHouse has no row-level uniqueness, so appends rely on the Redis lock.
	if c.Ledger.Backend == "clickhouse" && !c.Redis.Enabled {
		return fmt.Errorf("redis must be enabled for the clickhouse ledger backend")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	return nil
}
