package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	xutil "FinCast/pkg/util"
)

type Config struct {
	Environment string `yaml:"environment" default:"development"`
	Server      struct {
		Port            int           `yaml:"port" default:"8080"`
		ReadTimeout     time.Duration `yaml:"read_timeout" default:"10s"`
		WriteTimeout    time.Duration `yaml:"write_timeout" default:"30s"`
		ShutdownTimeout time.Duration `yaml:"shutdown_timeout" default:"15s"`
	} `yaml:"server"`
	Logger struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json"`
		Output string `yaml:"output" default:"stdout"`
	} `yaml:"logger"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" default:"true"`
		Path    string `yaml:"path" default:"/metrics"`
	} `yaml:"metrics"`
	ClickHouse struct {
		Host             string        `yaml:"host" default:"localhost"`
		Port             int           `yaml:"port" default:"9000"`
		Database         string        `yaml:"database" default:"fincast"`
		User             string        `yaml:"user" default:"default"`
		Password         string        `yaml:"password"`
		CandlesTable     string        `yaml:"candles_table" default:"candles"`
		DialTimeout      time.Duration `yaml:"dial_timeout" default:"10s"`
		ReadTimeout      time.Duration `yaml:"read_timeout" default:"30s"`
		MaxExecutionTime time.Duration `yaml:"max_execution_time" default:"60s"`
	} `yaml:"clickhouse"`
	Redis struct {
		Addr     string `yaml:"addr" default:"localhost:6379"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db" default:"0"`
	} `yaml:"redis"`
	Kafka struct {
		Enabled      bool     `yaml:"enabled"`
		Brokers      []string `yaml:"brokers"`
		Topic        string   `yaml:"topic" default:"fincast.signals"`
		RequiredAcks int      `yaml:"required_acks" default:"1"`
		Compression  string   `yaml:"compression" default:"snappy"`
		Producer     struct {
			MaxAttempts  int           `yaml:"max_attempts" default:"3"`
			Linger       time.Duration `yaml:"linger" default:"50ms"`
			BatchBytes   int           `yaml:"batch_bytes" default:"1048576"`
			BatchSize    int           `yaml:"batch_size" default:"100"`
			WriteTimeout time.Duration `yaml:"write_timeout" default:"10s"`
			Async        bool          `yaml:"async"`
		} `yaml:"producer"`
	} `yaml:"kafka"`
	Binance struct {
		WebSocketURL   string        `yaml:"websocket_url" default:"wss://stream.binance.com:9443/ws"`
		Symbols        []string      `yaml:"symbols"`
		ReconnectDelay time.Duration `yaml:"reconnect_delay" default:"5s"`
		PingInterval   time.Duration `yaml:"ping_interval" default:"30s"`
	} `yaml:"binance"`
	Pipeline struct {
		Symbol         string        `yaml:"symbol" default:"BTCUSDT"`
		Timeframe      string        `yaml:"timeframe" default:"15m"`
		Horizon        int           `yaml:"horizon" default:"10" validate:"gt=0"`
		Lookback       int           `yaml:"lookback" default:"500" validate:"gt=0"`
		MinDataPoints  int           `yaml:"min_data_points" default:"100" validate:"gt=0"`
		MaxStaleness   time.Duration `yaml:"max_staleness" default:"60m"`
		NoiseThreshold float64       `yaml:"noise_threshold" default:"0.001"`
		Interval       time.Duration `yaml:"interval" default:"15m"`
	} `yaml:"pipeline"`
	Forecast struct {
		LinearWindow     int `yaml:"linear_window" default:"100" validate:"gt=1"`
		PolynomialWindow int `yaml:"polynomial_window" default:"100" validate:"gt=2"`
		PolynomialDegree int `yaml:"polynomial_degree" default:"2" validate:"gte=1,lte=5"`
		FeatureWindow    int `yaml:"feature_window" default:"200" validate:"gt=10"`
		// Weights pins ensemble weights per model name; empty means
		// fit-score weighting.
		Weights map[string]float64 `yaml:"weights"`
		Forest           struct {
			NEstimators     int   `yaml:"n_estimators" default:"100" validate:"gt=0"`
			MaxDepth        int   `yaml:"max_depth" default:"10" validate:"gt=0"`
			MinSamplesSplit int   `yaml:"min_samples_split" default:"2" validate:"gte=2"`
			MinSamplesLeaf  int   `yaml:"min_samples_leaf" default:"1" validate:"gte=1"`
			Seed            int64 `yaml:"seed" default:"42"`
		} `yaml:"forest"`
	} `yaml:"forecast"`
	Models struct {
		Dir               string  `yaml:"dir" default:"./data/models"`
		MaxAgeDays        int     `yaml:"max_age_days" default:"7" validate:"gt=0"`
		AccuracyThreshold float64 `yaml:"accuracy_threshold" default:"0.5"`
		KeepVersions      int     `yaml:"keep_versions" default:"3" validate:"gt=0"`
	} `yaml:"models"`
	Retrain struct {
		Interval              time.Duration `yaml:"interval" default:"6h"`
		MinValidations        int           `yaml:"min_validations" default:"10" validate:"gt=0"`
		DirAccuracyThreshold  float64       `yaml:"dir_accuracy_threshold" default:"50"`
		ModelErrorThreshold   float64       `yaml:"model_error_threshold" default:"5"`
		LookbackDays          int           `yaml:"lookback_days" default:"30" validate:"gt=0"`
		MinTrainingSamples    int           `yaml:"min_training_samples" default:"200" validate:"gt=0"`
	} `yaml:"retrain"`
}

// Load reads a YAML configuration file, applies defaults and validates.
func Load(path string) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return &c, nil
}

// LoadWithEnv loads config from YAML and overrides with environment variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("SERVER_PORT"); v != "" {
		c.Server.Port = xutil.ParseIntDefault(v, c.Server.Port)
	}
	if v := os.Getenv("SYMBOL"); v != "" {
		c.Pipeline.Symbol = v
	}
	if v := os.Getenv("TIMEFRAME"); v != "" {
		c.Pipeline.Timeframe = v
	}
	if v := os.Getenv("BINANCE_SYMBOLS"); v != "" {
		c.Binance.Symbols = strings.Split(v, ",")
	}
	if v := os.Getenv("CLICKHOUSE_HOST"); v != "" {
		c.ClickHouse.Host = v
	}
	if v := os.Getenv("CLICKHOUSE_PASSWORD"); v != "" {
		c.ClickHouse.Password = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Redis.Addr = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		c.Kafka.Enabled = true
		c.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("KAFKA_TOPIC"); v != "" {
		c.Kafka.Topic = v
	}
	if v := os.Getenv("MODEL_DIR"); v != "" {
		c.Models.Dir = v
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Environment == "" {
		return fmt.Errorf("environment is required")
	}
	if c.Kafka.Enabled && len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("kafka.brokers cannot be empty when kafka is enabled")
	}
	if c.Pipeline.Lookback <= c.Pipeline.MinDataPoints {
		return fmt.Errorf("pipeline.lookback must exceed pipeline.min_data_points")
	}
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	return nil
}
