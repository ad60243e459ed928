package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/rpattn/testbed-analytics/internal/db"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

type HTTPConfig struct {
	Listen         string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	AllowedOrigins []string
}

type StoreConfig struct {
	Driver  string
	Fixture string
}

type LogConfig struct {
	Level    string
	Encoding string
}

type Config struct {
	Database       db.Config
	HTTP           HTTPConfig
	Store          StoreConfig
	Log            LogConfig
	TracingEnabled bool
	ProbeSchedule  string

	// Source is the config file that was read, empty when none was found.
	Source string
}

func Default() Config {
	return Config{
		Database: db.DefaultConfig(),
		HTTP: HTTPConfig{
			Listen:         ":8080",
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   60 * time.Second,
			AllowedOrigins: []string{"*"},
		},
		Store:         StoreConfig{Driver: StoreDriverPostgres},
		Log:           LogConfig{Level: "info", Encoding: "console"},
		ProbeSchedule: "@every 30s",
	}
}

// Load reads config.yaml from configPath, then applies ANALYTICS_* environment
// overrides (ANALYTICS_DATABASE_HOST, ANALYTICS_STORE_DRIVER, ...). A missing
// file is not an error.
func Load(configPath string) (Config, error) {
	cfg := Default()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	if configPath != "" {
		v.AddConfigPath(configPath)
	}
	v.SetEnvPrefix("ANALYTICS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for _, key := range []string{
		"database.host", "database.port", "database.user", "database.password",
		"database.dbname", "database.sslmode", "database.max_conns",
		"http.listen", "http.read_timeout", "http.write_timeout", "http.allowed_origins",
		"store.driver", "store.fixture",
		"log.level", "log.encoding",
		"tracing.enabled", "probe.schedule",
	} {
		if err := v.BindEnv(key); err != nil {
			return Config{}, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		cfg.Source = v.ConfigFileUsed()
	}

	if v.IsSet("database.host") {
		cfg.Database.Host = v.GetString("database.host")
	}
	if v.IsSet("database.port") {
		cfg.Database.Port = v.GetInt("database.port")
	}
	if v.IsSet("database.user") {
		cfg.Database.User = v.GetString("database.user")
	}
	if v.IsSet("database.password") {
		cfg.Database.Password = v.GetString("database.password")
	}
	if v.IsSet("database.dbname") {
		cfg.Database.DBName = v.GetString("database.dbname")
	}
	if v.IsSet("database.sslmode") {
		cfg.Database.SSLMode = v.GetString("database.sslmode")
	}
	if v.IsSet("database.max_conns") {
		cfg.Database.MaxConns = v.GetInt32("database.max_conns")
	}

	if v.IsSet("http.listen") {
		cfg.HTTP.Listen = v.GetString("http.listen")
	}
	if v.IsSet("http.read_timeout") {
		cfg.HTTP.ReadTimeout = v.GetDuration("http.read_timeout")
	}
	if v.IsSet("http.write_timeout") {
		cfg.HTTP.WriteTimeout = v.GetDuration("http.write_timeout")
	}
	if v.IsSet("http.allowed_origins") {
		cfg.HTTP.AllowedOrigins = v.GetStringSlice("http.allowed_origins")
	}

	if v.IsSet("store.driver") {
		cfg.Store.Driver = strings.ToLower(strings.TrimSpace(v.GetString("store.driver")))
	}
	if v.IsSet("store.fixture") {
		cfg.Store.Fixture = v.GetString("store.fixture")
	}
	if v.IsSet("log.level") {
		cfg.Log.Level = v.GetString("log.level")
	}
	if v.IsSet("log.encoding") {
		cfg.Log.Encoding = v.GetString("log.encoding")
	}
	if v.IsSet("tracing.enabled") {
		cfg.TracingEnabled = v.GetBool("tracing.enabled")
	}
	if v.IsSet("probe.schedule") {
		cfg.ProbeSchedule = v.GetString("probe.schedule")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the settings that cannot be defaulted.
func (c Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPostgres:
	case StoreDriverMemory:
		if strings.TrimSpace(c.Store.Fixture) == "" {
			return fmt.Errorf("store.fixture is required for the %s driver", StoreDriverMemory)
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	if c.HTTP.ReadTimeout < 0 || c.HTTP.WriteTimeout < 0 {
		return fmt.Errorf("http timeouts must not be negative")
	}
	return nil
}
