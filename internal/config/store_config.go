package config

import (
	"fmt"
	"strings"
)

// Supported STORE_DRIVER values
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

type StoreConfig interface {
	GetStoreDriver() string
	GetSQLitePath() string
	GetDatabaseURL() string
	GetRedisURL() string
	GetRedisPrefix() string
}

type Store struct {
	Driver      string `env:"STORE_DRIVER" envDefault:"memory"`
	SQLitePath  string `env:"SQLITE_PATH" envDefault:"./data/limiter.db"`
	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL" envDefault:"redis://localhost:6379/0"`
	RedisPrefix string `env:"REDIS_PREFIX" envDefault:"limiter"`
}

var _ StoreConfig = Store{}

func (s Store) GetStoreDriver() string {
	return strings.ToLower(strings.TrimSpace(s.Driver))
}

func (s Store) GetSQLitePath() string {
	return s.SQLitePath
}

func (s Store) GetDatabaseURL() string {
	return s.DatabaseURL
}

func (s Store) GetRedisURL() string {
	return s.RedisURL
}

func (s Store) GetRedisPrefix() string {
	return s.RedisPrefix
}

func (s Store) validate() error {
	switch s.GetStoreDriver() {
	case DriverMemory, DriverSQLite, DriverRedis:
		return nil
	case DriverPostgres:
		if s.DatabaseURL == "" {
			return fmt.Errorf("[config] DATABASE_URL is required for the %s driver", DriverPostgres)
		}
		return nil
	default:
		return fmt.Errorf("[config] unsupported STORE_DRIVER %q", s.Driver)
	}
}
