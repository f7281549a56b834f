package config_test

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/jrsteele09/go-session-limiter/internal/config"
	"github.com/stretchr/testify/require"
)

func TestFromEnvironment_Defaults(t *testing.T) {
	c, err := config.FromEnvironment(env.Options{Environment: map[string]string{}})
	require.NoError(t, err)

	require.Equal(t, ":8080", c.GetPort())
	require.Equal(t, "DEV", c.GetEnv())
	require.Equal(t, "info", c.GetLogLevel())
	require.Equal(t, config.DriverMemory, c.GetStoreDriver())
	require.Equal(t, "limiter", c.GetRedisPrefix())
	require.False(t, c.GetPruneOnStartup())
}

func TestFromEnvironment_Overrides(t *testing.T) {
	c, err := config.FromEnvironment(env.Options{Environment: map[string]string{
		"PORT":             "9090",
		"ENV":              "prod",
		"STORE_DRIVER":     "SQLite",
		"SQLITE_PATH":      "/tmp/x.db",
		"COOKIE_DOMAIN":    "example.com",
		"PRUNE_ON_STARTUP": "true",
	}})
	require.NoError(t, err)

	require.Equal(t, ":9090", c.GetPort())
	require.Equal(t, "PROD", c.GetEnv())
	require.Equal(t, config.DriverSQLite, c.GetStoreDriver())
	require.Equal(t, "/tmp/x.db", c.GetSQLitePath())
	require.Equal(t, "example.com", c.GetCookieDomain())
	require.True(t, c.GetPruneOnStartup())
}

func TestFromEnvironment_Invalid(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		_, err := config.FromEnvironment(env.Options{Environment: map[string]string{"STORE_DRIVER": "etcd"}})
		require.Error(t, err)
		require.Contains(t, err.Error(), "unsupported STORE_DRIVER")
	})

	t.Run("postgres without url", func(t *testing.T) {
		_, err := config.FromEnvironment(env.Options{Environment: map[string]string{"STORE_DRIVER": "postgres"}})
		require.Error(t, err)
		require.Contains(t, err.Error(), "DATABASE_URL")
	})
}
