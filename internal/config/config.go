package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config is the whole application configuration. It is built once at startup
// and passed down by value; nothing reads the environment after Load.
type Config struct {
	Env      string // "production" | "development"
	LogLevel string
	Addr     string

	AdminPassword string

	DB       DBConfig
	Postgres PostgresConfig
	TgBot    TgBotConfig
	TgAPI    TgAPIConfig
}

type DBConfig struct {
	Driver     string // postgres | sqlite
	SQLitePath string
}

type PostgresConfig struct {
	User     string
	Password string
	Host     string
	Port     int
	DB       string
}

// TgBotConfig is where the shop bots receive their webhook pushes.
type TgBotConfig struct {
	Host        string
	SecretToken string
}

type TgAPIConfig struct {
	Endpoint string // fmt template with token and method, e.g. https://api.telegram.org/bot%s/%s
	Timeout  time.Duration
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultAPIEndpoint = "https://api.telegram.org/bot%s/%s"
)

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	pgUser := getEnv("POSTGRES_USER", "postgres")
	cfg := &Config{
		Env:           getEnv("APP_ENV", "production"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		Addr:          getEnv("ADDR", ":8080"),
		AdminPassword: getEnv("ADMIN_PASSWORD", ""),
		DB: DBConfig{
			Driver:     strings.ToLower(getEnv("DB_DRIVER", DriverPostgres)),
			SQLitePath: getEnv("SQLITE_PATH", "murshop24.db"),
		},
		Postgres: PostgresConfig{
			User:     pgUser,
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			DB:       getEnv("POSTGRES_DB", pgUser),
		},
		TgBot: TgBotConfig{
			Host:        getEnv("TG_BOT_HOST", ""),
			SecretToken: getEnv("TG_BOT_SECRET_TOKEN", ""),
		},
		TgAPI: TgAPIConfig{
			Endpoint: getEnv("TG_API_ENDPOINT", defaultAPIEndpoint),
		},
	}

	port, err := getEnvAsInt("POSTGRES_PORT", 5432)
	if err != nil {
		return nil, newError("POSTGRES_PORT", "must be an integer")
	}
	cfg.Postgres.Port = port

	timeout, err := time.ParseDuration(getEnv("TG_API_TIMEOUT", "10s"))
	if err != nil || timeout <= 0 {
		return nil, newError("TG_API_TIMEOUT", "must be a positive duration")
	}
	cfg.TgAPI.Timeout = timeout

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func validate(cfg *Config) error {
	switch cfg.DB.Driver {
	case DriverPostgres:
		if cfg.Postgres.Password == "" {
			return newError("POSTGRES_PASSWORD", "is required")
		}
	case DriverSQLite:
		if cfg.DB.SQLitePath == "" {
			return newError("SQLITE_PATH", "is required when DB_DRIVER=sqlite")
		}
	default:
		return newError("DB_DRIVER", "must be postgres or sqlite")
	}
	if cfg.TgBot.Host == "" {
		return newError("TG_BOT_HOST", "is required")
	}
	if cfg.TgBot.SecretToken == "" {
		return newError("TG_BOT_SECRET_TOKEN", "is required")
	}
	if cfg.AdminPassword == "" {
		return newError("ADMIN_PASSWORD", "is required")
	}
	if strings.Count(cfg.TgAPI.Endpoint, "%s") != 2 {
		return newError("TG_API_ENDPOINT", "must contain two %s verbs (token, method)")
	}
	return nil
}

// IsDevelopment reports whether the process runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Error describes a missing or malformed setting.
type Error struct {
	Field  string
	Reason string
}

func (e *Error) Error() string {
	return "config: " + e.Field + " " + e.Reason
}

func newError(field, reason string) *Error {
	return &Error{Field: field, Reason: reason}
}

func getEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getEnvAsInt(key string, def int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return def, nil
	}
	return strconv.Atoi(v)
}
