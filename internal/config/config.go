package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

const DefaultPath = "./config/local.yaml"

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-default:"local"`
	Tokens       `yaml:"tokens"`
	Reset        `yaml:"reset"`
	Postgres     `yaml:"postgres"`
	HTTPServer   `yaml:"http_server"`
	RabbitMQ     `yaml:"rabbitmq"`
	Redis        `yaml:"redis"`
	SMTP         `yaml:"smtp"`
	Bootstrap    `yaml:"bootstrap"`
	Metrics      `yaml:"metrics"`
	CORS         `yaml:"cors"`
	Housekeeping `yaml:"housekeeping"`
}

type HTTPServer struct {
	Address     string        `yaml:"address" env:"HTTP_ADDRESS" env-default:"localhost:8080"`
	Timeout     time.Duration `yaml:"timeout" env-default:"4s"`
	IdleTimeout time.Duration `yaml:"idle_timeout" env-default:"60s"`
}

type Postgres struct {
	Host     string `yaml:"host" env:"POSTGRES_HOST" env-default:"postgres"`
	Port     int    `yaml:"port" env:"POSTGRES_PORT" env-default:"5432"`
	User     string `yaml:"user" env:"POSTGRES_USER" env-required:"true"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD" env-required:"true"`
	DBName   string `yaml:"dbname" env:"POSTGRES_DB" env-required:"true"`
	SSLMode  string `yaml:"sslmode" env:"POSTGRES_SSLMODE" env-default:"disable"`
}

// URL returns a postgres:// connection string usable by pgx and migrate.
func (p Postgres) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(p.User, p.Password),
		Host:     net.JoinHostPort(p.Host, strconv.Itoa(p.Port)),
		Path:     "/" + p.DBName,
		RawQuery: url.Values{"sslmode": []string{p.SSLMode}}.Encode(),
	}

	return u.String()
}

type Tokens struct {
	Secret          string        `yaml:"secret" env:"JWT_SECRET" env-required:"true"`
	Issuer          string        `yaml:"issuer" env:"JWT_ISSUER" env-default:"finance-api"`
	AccessTokenTTL  time.Duration `yaml:"access_token_ttl" env:"JWT_ACCESS_TTL" env-default:"15m"`
	RefreshTokenTTL time.Duration `yaml:"refresh_token_ttl" env:"JWT_REFRESH_TTL" env-default:"720h"`
}

type Reset struct {
	TokenBytes  int           `yaml:"token_bytes" env-default:"32"`
	Alphabet    string        `yaml:"alphabet"`
	TokenLength int           `yaml:"token_length" env-default:"12"`
	BaseURL     string        `yaml:"base_url" env:"APP_BASE_URL" env-default:"http://localhost:3000"`
	Cooldown    time.Duration `yaml:"cooldown" env-default:"1m"`
}

type RabbitMQ struct {
	URL       string `yaml:"url" env:"RABBITMQ_URL" env-required:"true"`
	QueueName string `yaml:"queue_name" env-default:"mail.queue"`
}

type Redis struct {
	Enabled  bool   `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"redis:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" env-default:"0"`
}

type SMTP struct {
	Host     string `yaml:"host" env:"SMTP_HOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"SMTP_PORT" env-default:"1025"`
	Username string `yaml:"username" env:"SMTP_USERNAME"`
	Password string `yaml:"password" env:"SMTP_PASSWORD"`
	From     string `yaml:"from" env:"SMTP_FROM" env-default:"no-reply@finance.local"`
}

type Bootstrap struct {
	Enabled  bool   `yaml:"enabled" env:"ADMIN_BOOTSTRAP_ENABLED" env-default:"true"`
	Email    string `yaml:"email" env:"ADMIN_EMAIL" env-default:"admin@local"`
	FullName string `yaml:"full_name" env-default:"Admin"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD" env-default:"ChangeMe123!"`
}

type Metrics struct {
	Address string `yaml:"address" env:"METRICS_ADDRESS" env-default:"localhost:9090"`
}

type CORS struct {
	AllowedOrigins []string `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
}

type Housekeeping struct {
	Interval  time.Duration `yaml:"interval" env-default:"1h"`
	Retention time.Duration `yaml:"retention" env-default:"168h"`
}

// MustLoad reads the config at path, or at CONFIG_PATH when path is empty.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}

	return cfg
}

func Load(path string) (*Config, error) {
	const op = "config.Load"

	// a missing .env is fine, real deployments set the environment directly
	_ = godotenv.Load()

	if path == "" {
		path = os.Getenv("CONFIG_PATH")
	}
	if path == "" {
		path = DefaultPath
	}

	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: config file does not exist: %s", op, path)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(path, &cfg); err != nil {
		return nil, fmt.Errorf("%s: failed to read config: %w", op, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &cfg, nil
}

func (c *Config) validate() error {
	if len(c.Tokens.Secret) < 32 {
		return errors.New("tokens.secret must be at least 32 bytes")
	}
	if c.Tokens.AccessTokenTTL <= 0 || c.Tokens.RefreshTokenTTL <= 0 {
		return errors.New("token ttl must be positive")
	}
	if c.Reset.Alphabet == "" && c.Reset.TokenBytes < 32 {
		return errors.New("reset.token_bytes must be at least 32")
	}

	return nil
}
