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

// Command migrate applies the embedded credential schema to PostgreSQL.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

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
		ServiceName: "gatherly-migrate",
	})

	dbCfg := cfg.Database.Postgres()
	if len(os.Args) > 1 {
		dbCfg.URL = os.Args[1]
	}

	ctx := context.Background()
	db, err := postgres.New(ctx, dbCfg)
	if err != nil {
		slog.Error("failed to connect", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	slog.Info("applying migration", logger.String("file", "001_initial_schema.up.sql"))
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		slog.Error("migration failed", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("all migrations completed")
}
