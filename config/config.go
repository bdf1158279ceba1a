package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/viper"
)

type Config struct {
	GeneralVersion       string `mapstructure:"GENERAL_VERSION"`
	Environment          string `mapstructure:"ENVIRONMENT"`
	LogLevel             string `mapstructure:"LOG_LEVEL"`
	ServerPort           int    `mapstructure:"SERVER_PORT"`
	ServerRequestTimeout int    `mapstructure:"SERVER_REQUEST_TIMEOUT"`
	CorsAllowOrigins     string `mapstructure:"CORS_ALLOW_ORIGINS"`
	DatabaseDriver       string `mapstructure:"DB_DRIVER"`
	DatabaseDbPath       string `mapstructure:"DB_PATH"`
	DatabaseHost         string `mapstructure:"DB_HOST"`
	DatabasePort         int    `mapstructure:"DB_PORT"`
	DatabaseUser         string `mapstructure:"DB_USER"`
	DatabasePassword     string `mapstructure:"DB_PASSWORD"`
	DatabaseName         string `mapstructure:"DB_NAME"`
	DatabaseCacheAddress string `mapstructure:"DB_CACHE_ADDRESS"`
	DatabaseCachePort    int    `mapstructure:"DB_CACHE_PORT"`
	SecurityJwtSecret    string `mapstructure:"SECURITY_JWT_SECRET"`
	SecuritySessionHours int    `mapstructure:"SECURITY_SESSION_HOURS"`
	SeedUserLogin        string `mapstructure:"SEED_USER_LOGIN"`
	SeedUserPassword     string `mapstructure:"SEED_USER_PASSWORD"`
}

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

var defaults = map[string]any{
	"GENERAL_VERSION":        "dev",
	"ENVIRONMENT":            "development",
	"LOG_LEVEL":              "info",
	"SERVER_PORT":            8280,
	"SERVER_REQUEST_TIMEOUT": 30,
	"CORS_ALLOW_ORIGINS":     "*",
	"DB_DRIVER":              DriverSQLite,
	"DB_PATH":                "data/bptracker.db",
	"DB_HOST":                "",
	"DB_PORT":                5432,
	"DB_USER":                "",
	"DB_PASSWORD":            "",
	"DB_NAME":                "",
	"DB_CACHE_ADDRESS":       "",
	"DB_CACHE_PORT":          6379,
	"SECURITY_JWT_SECRET":    "",
	"SECURITY_SESSION_HOURS": 72,
	"SEED_USER_LOGIN":        "test@yahoo.com",
	"SEED_USER_PASSWORD":     "Password123",
}

// InitConfig loads .env (when present) and the environment on top of the
// defaults.
func InitConfig() (Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := config.Validate(); err != nil {
		return Config{}, err
	}

	return config, nil
}

func (c Config) Validate() error {
	if c.SecurityJwtSecret == "" {
		return errors.New("SECURITY_JWT_SECRET is required")
	}

	switch c.DatabaseDriver {
	case DriverSQLite:
		if c.DatabaseDbPath == "" {
			return errors.New("DB_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.DatabaseHost == "" || c.DatabaseName == "" {
			return errors.New("DB_HOST and DB_NAME are required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DatabaseDriver)
	}

	return nil
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}
