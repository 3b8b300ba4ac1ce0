// Package app assembles a collector from a Config: token store, ZoneMinder
// clients, token manager, series registry and exporter state.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/vesaa/zmtalon/internal/agent"
	"github.com/vesaa/zmtalon/internal/auth"
	"github.com/vesaa/zmtalon/internal/config"
	"github.com/vesaa/zmtalon/internal/metrics"
	"github.com/vesaa/zmtalon/internal/server"
	"github.com/vesaa/zmtalon/internal/zoneminder"
)

// App is a fully wired collector for one ZoneMinder server.
type App struct {
	Config    *config.Config
	Collector *agent.Collector
	Registry  *metrics.Registry
	State     *server.State

	log   *zap.SugaredLogger
	close func() error
}

// New wires every component described by cfg. The caller must Close the App.
func New(cfg *config.Config, log *zap.SugaredLogger) (*App, error) {
	store, closeStore, err := openStore(cfg)
	if err != nil {
		return nil, err
	}

	manager := auth.NewManager(
		auth.Credentials{User: cfg.User, Password: cfg.Password},
		zoneminder.NewAuthClient(cfg.URL, cfg.Timeout()),
		store,
		log.Named("auth"),
	)

	var opts []agent.CollectorOption
	if cfg.StoragePath != "" {
		opts = append(opts, agent.WithStoragePath(cfg.StoragePath))
	}

	registry := metrics.NewRegistry()
	collector := agent.NewCollector(
		manager,
		zoneminder.NewMonitorClient(cfg.URL, cfg.Timeout()),
		registry,
		log.Named("collector"),
		opts...,
	)

	return &App{
		Config:    cfg,
		Collector: collector,
		Registry:  registry,
		State:     server.NewState(),
		log:       log,
		close:     closeStore,
	}, nil
}

func openStore(cfg *config.Config) (auth.Store, func() error, error) {
	switch cfg.TokenStore {
	case config.TokenStoreSQLite:
		s, err := auth.OpenSQLStore(cfg.TokenDB)
		if err != nil {
			return nil, nil, err
		}
		return s, s.Close, nil
	default:
		return auth.NewFileStore(cfg.TokenFile), func() error { return nil }, nil
	}
}

// Handler returns the exporter routes on a fresh Gin engine.
func (a *App) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	server.RegisterRoutes(r, a.Registry, a.State)
	return r
}

// Once runs a single cycle and records it in State.
func (a *App) Once(ctx context.Context) error {
	snap := agent.RunOnce(ctx, a.Collector, a.log, a.State)
	if !snap.OK {
		return fmt.Errorf("no data collected: %s", snap.Error)
	}
	return nil
}

// Run collects every configured interval and, when ListenAddr is set, serves
// the exporter. It returns when ctx is cancelled or the listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 1)
	var srv *http.Server
	if a.Config.ListenAddr != "" {
		srv = &http.Server{Addr: a.Config.ListenAddr, Handler: a.Handler(), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()
		a.log.Infof("exporter listening on http://%s", a.Config.ListenAddr)
	}

	loopDone := make(chan struct{})
	go func() {
		agent.Run(ctx, a.Collector, a.Config.Interval(), a.log, a.State)
		close(loopDone)
	}()

	var err error
	select {
	case <-ctx.Done():
	case err = <-errCh:
		cancel()
	}
	<-loopDone

	if srv != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		_ = srv.Shutdown(shutdownCtx)
	}
	return err
}

// Close releases the token store.
func (a *App) Close() error {
	return a.close()
}
