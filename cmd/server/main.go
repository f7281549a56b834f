package main

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/jrsteele09/go-session-limiter/admin"
	"github.com/jrsteele09/go-session-limiter/guard"
	"github.com/jrsteele09/go-session-limiter/internal/config"
	"github.com/jrsteele09/go-session-limiter/internal/metrics"
	"github.com/jrsteele09/go-session-limiter/server"
	"github.com/jrsteele09/go-session-limiter/users"
	fakeuserrepo "github.com/jrsteele09/go-session-limiter/users/repofake"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog/log"
)

const usage = "usage: %s [serve|uninstall]\n"

func main() {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}

	switch command {
	case "serve":
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
		}
		log.Info().Msg("Server stopped")
	case "uninstall":
		if err := uninstall(); err != nil {
			log.Fatal().Err(err).Msg("Uninstall failed")
		}
	default:
		fmt.Fprintf(os.Stderr, usage, os.Args[0])
		os.Exit(2)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogger(c)
	displayAppname(c.GetAppName())
	ctx := context.Background()

	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer store.close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	recorder := metrics.New(reg)

	directory := fakeuserrepo.NewFakeUserRepo()
	generated, err := server.SeedUsers(ctx, directory, c.GetAdminPassword(), c.GetEnv() == "DEV")
	if err != nil {
		return err
	}
	for username, password := range generated {
		log.Warn().Str("username", username).Str("password", password).Msg("Generated password for seed user")
	}

	controller, enforcer, err := newLimiter(c, store, directory, recorder)
	if err != nil {
		return err
	}
	if _, err := controller.Install(ctx); err != nil {
		return err
	}
	if c.GetPruneOnStartup() {
		if _, err := controller.PruneOnStartup(ctx); err != nil {
			return err
		}
	}

	handler, err := server.New(c, server.Services{
		Users:        directory,
		Enforcer:     enforcer,
		Admin:        controller,
		Gatherer:     reg,
		HealthChecks: store.healthChecks,
	})
	if err != nil {
		return err
	}

	httpServer := &http.Server{Addr: c.GetPort(), Handler: handler, ReadHeaderTimeout: 10 * time.Second}
	serveErr := make(chan error, 1)
	go func() { serveErr <- listenAndServe(httpServer) }()

	select {
	case err := <-serveErr:
		return err
	case <-waitForStopSignal():
	}
	return shutdown(httpServer)
}

// uninstall removes every stored token and the stored policy from the configured store.
func uninstall() error {
	c, err := config.New()
	if err != nil {
		return err
	}
	setupLogger(c)
	ctx := context.Background()

	store, err := openStore(ctx, c)
	if err != nil {
		return err
	}
	defer store.close()

	controller, _, err := newLimiter(c, store, fakeuserrepo.NewFakeUserRepo(), nil)
	if err != nil {
		return err
	}
	return controller.Uninstall(ctx)
}

func newLimiter(c config.Config, store *limiterStore, directory users.Directory, recorder *metrics.Recorder) (*admin.Controller, *guard.Enforcer, error) {
	nonces, err := admin.NewNonces(nonceSecret(c.GetNonceSecret()))
	if err != nil {
		return nil, nil, err
	}
	controller, err := admin.NewController(store.tokens, store.policies, directory, nonces, admin.WithMetrics(recorder))
	if err != nil {
		return nil, nil, err
	}
	g, err := guard.New(store.tokens, guard.WithMetrics(recorder))
	if err != nil {
		return nil, nil, err
	}
	enforcer, err := guard.NewEnforcer(g, store.policies)
	if err != nil {
		return nil, nil, err
	}
	return controller, enforcer, nil
}

func nonceSecret(configured string) []byte {
	if configured != "" {
		return []byte(configured)
	}
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic("failed to generate nonce secret: " + err.Error())
	}
	log.Warn().Msg("NONCE_SECRET is not set; admin forms will not survive a restart")
	return secret
}

func listenAndServe(server *http.Server) error {
	log.Info().Str("addr", server.Addr).Msg("Server listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
