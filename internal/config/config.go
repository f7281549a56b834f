package config

import (
	"fmt"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config interface {
	EnvConfig
	StoreConfig
	SecurityConfig
}

type EnvConfig interface {
	GetPort() string
	GetAppName() string
	GetEnv() string
	GetLogLevel() string
}

type mainConfig struct {
	EnvVars
	Store
	Security
}

// New loads an optional .env file and parses the process environment.
func New() (Config, error) {
	// A missing .env file is normal outside local development.
	_ = godotenv.Load()
	return FromEnvironment(env.Options{})
}

// FromEnvironment parses the configuration using the given options.
// Tests pass Environment to avoid touching the process environment.
func FromEnvironment(opts env.Options) (Config, error) {
	var c mainConfig
	if err := env.ParseWithOptions(&c, opts); err != nil {
		return nil, fmt.Errorf("[config FromEnvironment] failed to parse environment: %w", err)
	}
	if err := c.Store.validate(); err != nil {
		return nil, err
	}
	return c, nil
}
