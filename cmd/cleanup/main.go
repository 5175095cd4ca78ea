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

// Command cleanup purges expired persisted credentials from the configured
// store. Redis expires keys on its own, so only postgres needs a sweep.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/gatherly/gatherly/internal/config"
	"github.com/gatherly/gatherly/internal/observability/logger"
	"github.com/gatherly/gatherly/internal/store/postgres"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "gatherly-cleanup",
	})

	if cfg.Store.Driver != config.DriverPostgres {
		slog.Info("nothing to purge", logger.Driver(cfg.Store.Driver))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.New(ctx, cfg.Database.Postgres())
	if err != nil {
		slog.Error("failed to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	if err := postgres.NewCredentialRepository(db).DeleteExpired(ctx); err != nil {
		slog.Error("failed to purge expired credentials", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("expired credentials purged")
}
