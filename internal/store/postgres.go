/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	applog "gocarousel/internal/log"
)

//go:embed migrations
var embedMigrations embed.FS

// Postgres error codes the store maps onto sentinels.
const (
	pgUndefinedTable  = "42P01"
	pgUndefinedColumn = "42703"
	pgUniqueViolation = "23505"
)

var postgresDialect = dialect{name: "postgres", numbered: true, classify: classifyPostgres}

func classifyPostgres(err error) error {
	var pe *pgconn.PgError
	if !errors.As(err, &pe) {
		return nil
	}
	switch pe.Code {
	case pgUndefinedTable, pgUndefinedColumn:
		return ErrNotProvisioned
	case pgUniqueViolation:
		return ErrDuplicate
	}
	return nil
}

// OpenPostgres connects to dsn and verifies the connection with a ping.
// When migrate is set, pending goose migrations are applied.
func OpenPostgres(ctx context.Context, dsn string, migrate bool) (*SQLStore, error) {
	l := applog.WithOperation(applog.WithComponent("store"), "postgres_open")
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("database open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("database ping: %w", err)
	}
	if migrate {
		if err := Migrate(db); err != nil {
			_ = db.Close()
			l.Error("migrations failed", slog.Any("err", err))
			return nil, err
		}
	}
	l.Info("postgres store ready", slog.Bool("migrated", migrate))
	return newSQLStore(db, postgresDialect), nil
}

// Migrate runs all pending goose migrations from the embedded SQL files.
func Migrate(db *sql.DB) error {
	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("goose set dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		return fmt.Errorf("goose up: %w", err)
	}
	return nil
}
