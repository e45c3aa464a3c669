package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config is read from the environment (and an optional .env file). Nested
// sections are prefixed with their field name, e.g. POSTGRES_HOST.
type Config struct {
	Server      ServerConfig
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	Postgres    PostgresConfig
	Redis       RedisConfig
	Rabbit      RabbitConfig
	Hall        HallConfig
	Memory      MemoryConfig
	JWTSecret   string `envconfig:"JWT_SECRET"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info"`
}

type ServerConfig struct {
	Host string `default:"localhost"`
	Port int    `default:"8080"`
	// RateLimitPerMin caps requests per actor or client IP. Zero disables it.
	RateLimitPerMin int `split_words:"true" default:"120"`
}

// RedisConfig is optional: an empty Addr disables caching, idempotency and
// rate limiting.
type RedisConfig struct {
	Addr       string
	Password   string
	DB         int           `default:"0"`
	CatalogTTL time.Duration `split_words:"true" default:"5m"`
	BookingTTL time.Duration `split_words:"true" default:"30s"`
}

type PostgresConfig struct {
	User     string
	Password string
	DB       string
	Host     string `default:"localhost"`
	Port     int    `default:"5432"`
	SSLMode  string `default:"disable"`
	MaxConns int32  `split_words:"true" default:"10"`
	Migrate  bool   `default:"true"`
}

// RabbitConfig is optional: an empty URL disables event publishing.
type RabbitConfig struct {
	URL      string
	Exchange string `default:"hallbook.bookings"`
}

type HallConfig struct {
	Timezone string `default:"Asia/Beirut"`

	location *time.Location
}

// MemoryConfig seeds the in-memory store.
type MemoryConfig struct {
	Halls []string `default:"Main Hall,Garden Hall"`
}

func New() (*Config, error) {
	const op = "config.New"

	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("%s:%w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.StoreDriver {
	case DriverPostgres:
		switch {
		case c.Postgres.User == "":
			return fmt.Errorf("missing POSTGRES_USER")
		case c.Postgres.Password == "":
			return fmt.Errorf("missing POSTGRES_PASSWORD")
		case c.Postgres.DB == "":
			return fmt.Errorf("missing POSTGRES_DB")
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	}

	if c.JWTSecret == "" {
		return fmt.Errorf("missing JWT_SECRET")
	}

	loc, err := time.LoadLocation(c.Hall.Timezone)
	if err != nil {
		return fmt.Errorf("invalid HALL_TIMEZONE: %w", err)
	}
	c.Hall.location = loc

	if _, err := c.SlogLevel(); err != nil {
		return err
	}

	return nil
}

// Location is the reference timezone all hall slots are expressed in.
func (h HallConfig) Location() *time.Location {
	if h.location == nil {
		return time.UTC
	}
	return h.location
}

func (p PostgresConfig) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     fmt.Sprintf("%s:%d", p.Host, p.Port),
		Path:     p.DB,
		RawQuery: "sslmode=" + url.QueryEscape(p.SSLMode),
	}
	return u.String()
}

func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.ToUpper(c.LogLevel))); err != nil {
		return 0, fmt.Errorf("invalid LOG_LEVEL %q", c.LogLevel)
	}
	return lvl, nil
}
