package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

const EnvPrefix = "DASHBOARD"

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Log       LogConfig       `mapstructure:"log"`
	Dashboard DashboardConfig `mapstructure:"dashboard"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr" validate:"required"`
	Mode            string        `mapstructure:"mode" validate:"oneof=debug release test"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout" validate:"gt=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" validate:"gt=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"gt=0"`
}

type DatabaseConfig struct {
	DSN                  string        `mapstructure:"dsn" validate:"required"`
	MaxOpenConns         int           `mapstructure:"max_open_conns" validate:"min=1"`
	MaxIdleConns         int           `mapstructure:"max_idle_conns" validate:"min=0"`
	ConnMaxLifetime      time.Duration `mapstructure:"conn_max_lifetime"`
	ConnectRetries       uint          `mapstructure:"connect_retries" validate:"min=1"`
	ConnectRetryInterval time.Duration `mapstructure:"connect_retry_interval"`
}

// AuthConfig enables bearer-token auth on mutating routes when JWTSecret is set.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=trace debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

type DashboardConfig struct {
	APIURL         string        `mapstructure:"api_url" validate:"required,url"`
	APIToken       string        `mapstructure:"api_token"`
	ResolveTimeout time.Duration `mapstructure:"resolve_timeout" validate:"gt=0"`
	MaxPending     int           `mapstructure:"max_pending" validate:"min=1"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.dsn", "incidents.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", 30*time.Minute)
	v.SetDefault("database.connect_retries", 5)
	v.SetDefault("database.connect_retry_interval", 2*time.Second)

	v.SetDefault("auth.jwt_secret", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("dashboard.api_url", "http://localhost:8080")
	v.SetDefault("dashboard.api_token", "")
	v.SetDefault("dashboard.resolve_timeout", 10*time.Second)
	v.SetDefault("dashboard.max_pending", 64)
}

// Load reads defaults, then the optional config file, then DASHBOARD_* env vars.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config error: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := validator.New().Struct(c); err != nil {
		return nil, fmt.Errorf("validate config error: %w", err)
	}
	return &c, nil
}
