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

// Command clean-db revokes persisted sessions. With a user id argument only
// that user's sessions are removed; without one every session is.
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
		Format:      "text",
		ServiceName: "gatherly-clean-db",
	})

	ctx := context.Background()
	db, err := postgres.New(ctx, cfg.Database.Postgres())
	if err != nil {
		slog.Error("unable to connect to database", logger.Error(err))
		os.Exit(1)
	}
	defer db.Close()

	repo := postgres.NewCredentialRepository(db)

	if len(os.Args) > 1 {
		userID := os.Args[1]
		if err := repo.DeleteByUserID(ctx, userID); err != nil {
			slog.Error("revoke failed", logger.Error(err))
			os.Exit(1)
		}
		slog.Info("revoked sessions", logger.UserID(userID))
		return
	}

	n, err := repo.DeleteAll(ctx)
	if err != nil {
		slog.Error("revoke failed", logger.Error(err))
		os.Exit(1)
	}
	slog.Info("revoked all sessions", logger.RowsAffected(n))
}
