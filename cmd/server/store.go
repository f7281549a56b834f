package main

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-session-limiter/internal/config"
	"github.com/jrsteele09/go-session-limiter/policy"
	fakepolicyrepo "github.com/jrsteele09/go-session-limiter/policy/repofake"
	"github.com/jrsteele09/go-session-limiter/server"
	"github.com/jrsteele09/go-session-limiter/storage/pgstore"
	"github.com/jrsteele09/go-session-limiter/storage/redisstore"
	"github.com/jrsteele09/go-session-limiter/storage/sqlitestore"
	"github.com/jrsteele09/go-session-limiter/tokens"
	faketokenrepo "github.com/jrsteele09/go-session-limiter/tokens/repofake"
	"github.com/rs/zerolog/log"
)

// limiterStore is the token and policy persistence selected by STORE_DRIVER.
type limiterStore struct {
	tokens       tokens.Repo
	policies     policy.Repo
	healthChecks map[string]server.HealthCheck
	close        func()
}

func openStore(ctx context.Context, c config.StoreConfig) (*limiterStore, error) {
	driver := c.GetStoreDriver()
	log.Info().Str("driver", driver).Msg("Opening session token store")

	switch driver {
	case config.DriverMemory:
		log.Warn().Msg("Using the in-memory store; session tokens are lost on restart")
		return &limiterStore{
			tokens:   faketokenrepo.NewFakeTokenRepo(),
			policies: fakepolicyrepo.NewFakePolicyRepo(),
			close:    func() {},
		}, nil

	case config.DriverSQLite:
		db, err := sqlitestore.Open(ctx, c.GetSQLitePath())
		if err != nil {
			return nil, err
		}
		return &limiterStore{
			tokens:       sqlitestore.NewTokenRepo(db),
			policies:     sqlitestore.NewPolicyRepo(db),
			healthChecks: map[string]server.HealthCheck{"sqlite": db.PingContext},
			close:        func() { _ = db.Close() },
		}, nil

	case config.DriverPostgres:
		pool, err := pgstore.Connect(ctx, c.GetDatabaseURL())
		if err != nil {
			return nil, err
		}
		if err := pgstore.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		return &limiterStore{
			tokens:       pgstore.NewTokenRepo(pool),
			policies:     pgstore.NewPolicyRepo(pool),
			healthChecks: map[string]server.HealthCheck{"postgres": pool.Ping},
			close:        pool.Close,
		}, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, c.GetRedisURL())
		if err != nil {
			return nil, err
		}
		return &limiterStore{
			tokens:       redisstore.NewTokenRepo(client, c.GetRedisPrefix()),
			policies:     redisstore.NewPolicyRepo(client, c.GetRedisPrefix()),
			healthChecks: map[string]server.HealthCheck{"redis": redisstore.Healthcheck(client)},
			close:        func() { _ = client.Close() },
		}, nil
	}
	return nil, fmt.Errorf("[openStore] unsupported store driver %q", driver)
}
