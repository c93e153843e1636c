// Package config loads the terminal configuration from defaults, an optional
// YAML file and POS_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "POS"

type Config struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Remote   RemoteConfig   `mapstructure:"remote"`
	Store    StoreConfig    `mapstructure:"store"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Sync     SyncConfig     `mapstructure:"sync"`
	Log      LogConfig      `mapstructure:"log"`
	Terminal TerminalConfig `mapstructure:"terminal"`
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RatePerSecond   float64       `mapstructure:"rate_per_second"`
	RateBurst       int           `mapstructure:"rate_burst"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type RemoteConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	RatePerSecond  float64       `mapstructure:"rate_per_second"`
}

// StoreConfig selects and configures the local durable store.
type StoreConfig struct {
	// Prefer is "structured" or "flat". The other backend is the fallback.
	Prefer string `mapstructure:"prefer"`
	// Driver is the database/sql driver of the structured backend: sqlite3 or pgx.
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
	// FlatKind is bolt, file, redis or memory.
	FlatKind  string `mapstructure:"flat_kind"`
	FlatPath  string `mapstructure:"flat_path"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type SyncConfig struct {
	Schedule          string `mapstructure:"schedule"`
	OutboxMaxAttempts int    `mapstructure:"outbox_max_attempts"`
}

type LogConfig struct {
	Mode       string `mapstructure:"mode"`
	Level      string `mapstructure:"level"`
	FileEnable bool   `mapstructure:"file_enable"`
	Filename   string `mapstructure:"filename"`
}

type TerminalConfig struct {
	OutletID string `mapstructure:"outlet_id"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 15*time.Second)
	v.SetDefault("http.rate_per_second", 5.0)
	v.SetDefault("http.rate_burst", 10)

	v.SetDefault("auth.jwt_secret", "super-secret-key")

	v.SetDefault("remote.base_url", "http://localhost:9000")
	v.SetDefault("remote.api_key", "")
	v.SetDefault("remote.request_timeout", 5*time.Second)
	v.SetDefault("remote.rate_per_second", 10.0)

	v.SetDefault("store.prefer", "structured")
	v.SetDefault("store.driver", "sqlite3")
	v.SetDefault("store.dsn", "pos-terminal.db")
	v.SetDefault("store.flat_kind", "bolt")
	v.SetDefault("store.flat_path", "pos-terminal.bolt")
	v.SetDefault("store.key_prefix", "pos_offline_")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("sync.schedule", "@every 1m")
	v.SetDefault("sync.outbox_max_attempts", 10)

	v.SetDefault("log.mode", "development")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file_enable", false)
	v.SetDefault("log.filename", "pos-terminal.log")

	v.SetDefault("terminal.outlet_id", "")
}

// Load reads the configuration. An empty path searches for pos-terminal.yaml
// in the working directory and /etc/pos-terminal; a missing file is not an error.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pos-terminal")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/pos-terminal")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects unknown backend names and non-positive timeouts.
func (c Config) Validate() error {
	switch c.Store.Prefer {
	case "structured", "flat":
	default:
		return fmt.Errorf("store.prefer must be structured or flat, got %q", c.Store.Prefer)
	}
	switch c.Store.Driver {
	case "sqlite3", "pgx":
	default:
		return fmt.Errorf("store.driver must be sqlite3 or pgx, got %q", c.Store.Driver)
	}
	switch c.Store.FlatKind {
	case "bolt", "file", "redis", "memory":
	default:
		return fmt.Errorf("store.flat_kind must be bolt, file, redis or memory, got %q", c.Store.FlatKind)
	}
	switch c.Log.Mode {
	case "production", "development":
	default:
		return fmt.Errorf("log.mode must be production or development, got %q", c.Log.Mode)
	}
	if c.Remote.RequestTimeout <= 0 {
		return errors.New("remote.request_timeout must be positive")
	}
	if c.HTTP.ShutdownTimeout <= 0 {
		return errors.New("http.shutdown_timeout must be positive")
	}
	if c.Sync.OutboxMaxAttempts <= 0 {
		return errors.New("sync.outbox_max_attempts must be positive")
	}
	return nil
}
