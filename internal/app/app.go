// Package app wires the configured store, cache, tracker and service
// together and runs the HTTP server until the context is cancelled.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/go-chi/httplog/v2"
	"golang.org/x/sync/errgroup"

	api "github.com/pavelzorin/shortlink/internal/api/http"
	"github.com/pavelzorin/shortlink/internal/cache"
	cachememory "github.com/pavelzorin/shortlink/internal/cache/memory"
	cacheredis "github.com/pavelzorin/shortlink/internal/cache/redis"
	"github.com/pavelzorin/shortlink/internal/config"
	"github.com/pavelzorin/shortlink/internal/service"
	"github.com/pavelzorin/shortlink/internal/shortcode"
	"github.com/pavelzorin/shortlink/internal/storage"
	storagememory "github.com/pavelzorin/shortlink/internal/storage/memory"
	storagepostgres "github.com/pavelzorin/shortlink/internal/storage/postgres"
	"github.com/pavelzorin/shortlink/internal/tracker"
	"github.com/pavelzorin/shortlink/pkg/postgres"
)

func Run(ctx context.Context, cfg *config.Config) error {
	const op = "app.Run"

	logger := httplog.NewLogger("shortlink", httplog.Options{
		JSON: cfg.Env == config.EnvProd,
	})

	var store storage.Store

	switch cfg.Storage {
	case config.StoragePostgres:
		db, err := postgres.New(
			ctx,
			cfg.Postgres.DSN(),
			postgres.WithConnMaxIdleTime(cfg.Postgres.ConnMaxIdleTime),
			postgres.WithConnMaxLifetime(cfg.Postgres.ConnMaxLifetime),
			postgres.WithMaxIdleConns(cfg.Postgres.MaxIdleConns),
			postgres.WithMaxOpenConns(cfg.Postgres.MaxOpenConns),
		)
		if err != nil {
			return fmt.Errorf("%s: failed to connect to database: %w", op, err)
		}
		defer db.Close()

		if err := postgres.RunMigrations("file://migrations", cfg.Postgres.DSN()); err != nil {
			return fmt.Errorf("%s: failed to run migrations: %w", op, err)
		}

		store = storagepostgres.NewStore(db)
	case config.StorageMemory:
		store = storagememory.NewStore()
	default:
		return fmt.Errorf("%s: unknown storage backend %q", op, cfg.Storage)
	}

	var c cache.Cache

	switch cfg.Cache.Backend {
	case config.CacheRedis:
		rc, err := cacheredis.New(ctx, cfg.Redis)
		if err != nil {
			return fmt.Errorf("%s: failed to connect to redis: %w", op, err)
		}
		defer rc.Close()

		c = rc
	case config.CacheMemory:
		mc := cachememory.New(cfg.Cache.SweepInterval)
		defer mc.Stop()

		c = mc
	default:
		return fmt.Errorf("%s: unknown cache backend %q", op, cfg.Cache.Backend)
	}

	tr := tracker.New(store, logger.Logger, cfg.Tracker.QueueSize, cfg.Tracker.Workers)
	defer tr.Close()

	svc := service.New(store, c, shortcode.New(cfg.ShortCodeLength), tr, logger.Logger, cfg.Cache.TTL)

	server := &http.Server{
		Addr:           cfg.HTTPServer.Addr(),
		Handler:        api.NewRouter(logger, svc),
		ReadTimeout:    cfg.HTTPServer.ReadTimeout,
		WriteTimeout:   cfg.HTTPServer.WriteTimeout,
		IdleTimeout:    cfg.HTTPServer.IdleTimeout,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		var err error

		switch cfg.Env {
		case config.EnvProd:
			err = server.ListenAndServeTLS(cfg.HTTPServer.CertFile, cfg.HTTPServer.KeyFile)
		default:
			err = server.ListenAndServe()
		}

		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("%s: server error occurred: %w", op, err)
		}

		return nil
	})

	g.Go(func() error {
		<-ctx.Done()

		if err := server.Shutdown(context.Background()); err != nil {
			return fmt.Errorf("%s: failed to shutdown server: %w", op, err)
		}

		return nil
	})

	return g.Wait()
}
