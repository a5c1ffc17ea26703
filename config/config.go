// Package config loads the client configuration from a YAML file and
// environment variables.
package config

import (
	"fmt"
	"net"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "apiclient.yaml"

// Store kinds.
const (
	StoreMemory   = "memory"
	StoreFile     = "file"
	StoreRedis    = "redis"
	StoreDynamoDB = "dynamodb"
	StorePostgres = "postgres"
)

// Config is the root configuration. Sources by decreasing priority:
//  1. explicit path (--config);
//  2. CONFIG_PATH;
//  3. ./apiclient.yaml;
//  4. environment only.
//
// Environment variables always override file values.
type Config struct {
	Env      string         `yaml:"env" env:"APICLIENT_ENV" env-default:"local"`
	LogLevel string         `yaml:"log_level" env:"APICLIENT_LOG_LEVEL"`
	API      APIConfig      `yaml:"api"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	DynamoDB DynamoDBConfig `yaml:"dynamodb"`
	Postgres PostgresConfig `yaml:"postgres"`
	Mock     MockConfig     `yaml:"mock"`
}

type APIConfig struct {
	BaseURL        string        `yaml:"base_url" env:"APICLIENT_BASE_URL" env-default:"http://127.0.0.1:8000/api"`
	Timeout        time.Duration `yaml:"timeout" env:"APICLIENT_TIMEOUT" env-default:"15s"`
	RefreshTimeout time.Duration `yaml:"refresh_timeout" env:"APICLIENT_REFRESH_TIMEOUT" env-default:"15s"`
}

// StoreConfig selects the durable token slots. A non-empty Passphrase seals
// every value before it reaches the backend.
type StoreConfig struct {
	Kind       string `yaml:"kind" env:"APICLIENT_STORE" env-default:"file"`
	URL        string `yaml:"url" env:"APICLIENT_STORE_URL"`
	Namespace  string `yaml:"namespace" env:"APICLIENT_STORE_NAMESPACE"`
	Passphrase string `yaml:"passphrase" env:"APICLIENT_STORE_PASSPHRASE"`
	Salt       string `yaml:"salt" env:"APICLIENT_STORE_SALT" env-default:"apiclient"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr" env:"APICLIENT_REDIS_ADDR" env-default:"127.0.0.1:6379"`
	Password string `yaml:"password" env:"APICLIENT_REDIS_PASSWORD"`
	DB       int    `yaml:"db" env:"APICLIENT_REDIS_DB" env-default:"0"`
	Prefix   string `yaml:"prefix" env:"APICLIENT_REDIS_PREFIX" env-default:"apiclient:"`
}

type DynamoDBConfig struct {
	Region    string `yaml:"region" env:"APICLIENT_DYNAMODB_REGION" env-default:"us-east-1"`
	Endpoint  string `yaml:"endpoint" env:"APICLIENT_DYNAMODB_ENDPOINT"`
	Table     string `yaml:"table" env:"APICLIENT_DYNAMODB_TABLE" env-default:"apiclient_tokens"`
	Partition string `yaml:"partition" env:"APICLIENT_DYNAMODB_PARTITION" env-default:"DEVICE#default"`
}

type PostgresConfig struct {
	DSN   string `yaml:"dsn" env:"APICLIENT_POSTGRES_DSN"`
	Table string `yaml:"table" env:"APICLIENT_POSTGRES_TABLE" env-default:"apiclient_tokens"`
}

// MockConfig configures cmd/mockapi.
type MockConfig struct {
	Host      string        `yaml:"host" env:"MOCKAPI_HOST" env-default:"127.0.0.1"`
	Port      string        `yaml:"port" env:"MOCKAPI_PORT" env-default:"8000"`
	Secret    string        `yaml:"secret" env:"MOCKAPI_SECRET"`
	AccessTTL time.Duration `yaml:"access_ttl" env:"MOCKAPI_ACCESS_TTL" env-default:"5m"`
	OTP       string        `yaml:"otp" env:"MOCKAPI_OTP" env-default:"123456"`
}

// Addr returns host:port.
func (m MockConfig) Addr() string {
	return net.JoinHostPort(m.Host, m.Port)
}

// Validate checks that the selected store has what it needs.
func (c *Config) Validate() error {
	switch c.Store.Kind {
	case StoreMemory, StoreFile, StoreRedis, StoreDynamoDB:
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("store kind %q requires postgres.dsn", c.Store.Kind)
		}
	default:
		return fmt.Errorf("unsupported store kind: %q", c.Store.Kind)
	}
	return nil
}

// MustLoad panics when Load fails.
func MustLoad(path string) *Config {
	cfg, err := Load(path)
	if err != nil {
		panic(err)
	}
	return cfg
}

func Load(path string) (*Config, error) {
	var cfg Config
	tryRead := func(p string) (*Config, error) {
		if _, err := os.Stat(p); err != nil {
			return nil, fmt.Errorf("config file %q stat failed: %w", p, err)
		}
		if err := cleanenv.ReadConfig(p, &cfg); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return &cfg, nil
	}

	if path != "" {
		return tryRead(path)
	}
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		return tryRead(envPath)
	}
	if _, err := os.Stat(DefaultFile); err == nil {
		return tryRead(DefaultFile)
	}
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
