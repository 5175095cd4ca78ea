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

// Command devauth runs a local Auth API for development and end-to-end
// testing of the gateway.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatherly/gatherly/internal/audit"
	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/devauth"
	"github.com/gatherly/gatherly/internal/observability/logger"
)

func main() {
	cfg, err := config.LoadDevAuth()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "gatherly-devauth",
	})

	auditLogger := audit.NewSlogLogger()
	svc := devauth.NewService(devauth.Options{
		Hasher: devauth.NewPasswordHasher(
			cfg.Security.Argon2Memory,
			cfg.Security.Argon2Iterations,
			cfg.Security.Argon2Parallelism,
			cfg.Security.Argon2SaltLength,
			cfg.Security.Argon2KeyLength,
		),
		Tokens:             devauth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenLifetime),
		AuditLogger:        auditLogger,
		LockoutMaxAttempts: cfg.Security.LockoutMaxAttempts,
		LockoutDuration:    cfg.Security.LockoutDuration,
	})

	ctx := context.Background()
	if err := svc.SeedAdmin(ctx, "", cfg.AdminEmail, cfg.AdminPassword); err != nil {
		slog.Error("failed to seed administrator", logger.Error(err))
		os.Exit(1)
	}

	server := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           devauth.NewRouter(svc),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("starting dev auth api", logger.Component("devauth"), logger.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", logger.Error(err))
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}
}
