// Copyright 2026 The Gatherly Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatherly/gatherly/internal/audit"
	"github.com/gatherly/gatherly/internal/authapi"
	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/observability/logger"
	"github.com/gatherly/gatherly/internal/observability/metrics"
	"github.com/gatherly/gatherly/internal/observability/tracing"
	"github.com/gatherly/gatherly/internal/session"
	"github.com/gatherly/gatherly/internal/store/postgres"
	"github.com/gatherly/gatherly/internal/store/redisstore"
	transportHTTP "github.com/gatherly/gatherly/internal/transport/http"
	"golang.org/x/sync/errgroup"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
	})
	slog.Info("starting gatherly gateway")

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		slog.Error("gateway stopped with error", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("server stopped")
}

func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		slog.Error("failed to initialize tracer", logger.Error(err))
	}
	defer tracer.Shutdown(context.Background())

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		slog.Error("failed to initialize meter", logger.Error(err))
	}
	var recorder *metrics.Recorder
	if meter != nil {
		if recorder, err = metrics.NewRecorder(meter); err != nil {
			slog.Error("failed to create metric instruments", logger.Error(err))
		}
	}

	// Credential store
	store, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeStore()
	slog.Info("credential store ready", logger.Driver(cfg.Store.Driver))

	// Collaborators
	authClient, err := authapi.NewClient(authapi.Config{
		BaseURL:      cfg.AuthAPI.BaseURL,
		LoginPath:    cfg.AuthAPI.LoginPath,
		RegisterPath: cfg.AuthAPI.RegisterPath,
		Timeout:      cfg.AuthAPI.Timeout,
	})
	if err != nil {
		return fmt.Errorf("auth api client: %w", err)
	}
	proxy, err := transportHTTP.NewProxy(transportHTTP.ProxyConfig{
		BaseURL: cfg.Backend.BaseURL,
		Timeout: cfg.Backend.Timeout,
	}, recorder)
	if err != nil {
		return fmt.Errorf("backend proxy: %w", err)
	}

	// Services
	auditLogger := audit.NewSlogLogger()
	sessionService := session.NewService(store, authClient, auditLogger, cfg.Session.Lifetime)

	// Rate Limiter
	rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
	defer rateLimiter.Close()

	// Initialize HTTP handler
	handler := transportHTTP.NewHandler(
		sessionService,
		proxy,
		auditLogger,
		recorder,
		transportHTTP.SessionConfig{
			CookieName:     cfg.Session.CookieName,
			CookieDomain:   cfg.Session.CookieDomain,
			CookiePath:     cfg.Session.CookiePath,
			CookieSecure:   cfg.Session.CookieSecure,
			CookieSameSite: cfg.Session.SameSite(),
			Lifetime:       cfg.Session.Lifetime,
		},
	)

	var staticFS fs.FS
	if cfg.Server.StaticDir != "" {
		staticFS = os.DirFS(cfg.Server.StaticDir)
	}

	// Create router
	router := transportHTTP.NewRouter(handler, rateLimiter, transportHTTP.RouterOptions{
		RequestTimeout: cfg.Server.RequestTimeout,
		AuthPerMinute:  cfg.RateLimit.AuthPerMinute,
		StaticFS:       staticFS,
		Development:    cfg.Server.Development,
	})

	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	// Start server
	g.Go(func() error {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	// Purge expired credentials
	g.Go(func() error {
		ticker := time.NewTicker(cfg.Session.CleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if err := sessionService.CleanupExpired(gctx); err != nil {
					slog.ErrorContext(gctx, "failed to cleanup expired credentials", logger.Error(err))
				}
			}
		}
	})

	// Graceful shutdown
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// openStore builds the configured credential store and its release func
func openStore(ctx context.Context, cfg *config.Config) (session.Store, func(), error) {
	switch cfg.Store.Driver {
	case config.DriverPostgres:
		db, err := postgres.New(ctx, cfg.Database.Postgres())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		return postgres.NewCredentialRepository(db), db.Close, nil

	case config.DriverRedis:
		client, err := redisstore.Connect(ctx, redisstore.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			return nil, nil, err
		}
		closeFn := func() {
			if err := client.Close(); err != nil {
				slog.Error("failed to close redis client", logger.Error(err))
			}
		}
		return redisstore.New(client, cfg.Redis.Prefix), closeFn, nil

	default:
		return session.NewMemoryStore(), func() {}, nil
	}
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.Postgres())
	if err != nil {
		return err
	}
	defer db.Close()

	slog.Info("applying initial schema")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	slog.Info("migration successful")
	return nil
}
