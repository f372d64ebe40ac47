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
	"fmt"
	"log/slog"
	"strings"
	"time"

	applog "gocarousel/internal/log"
)

// Options selects and configures a backend.
type Options struct {
	Driver    string // memory | sqlite | postgres
	Path      string // sqlite file
	DSN       string // postgres
	RedisAddr string // enables the select cache when set
	CacheTTL  time.Duration
}

// Open builds the configured RowStore, provisioning its schema.
func Open(ctx context.Context, o Options) (RowStore, error) {
	var (
		s   RowStore
		err error
	)
	switch strings.ToLower(strings.TrimSpace(o.Driver)) {
	case "", "sqlite":
		s, err = OpenSQLite(ctx, o.Path, true)
	case "postgres", "pg":
		if o.DSN == "" {
			return nil, fmt.Errorf("postgres driver needs a dsn")
		}
		s, err = OpenPostgres(ctx, o.DSN, true)
	case "memory":
		s = NewMemory(TableNames()...)
	default:
		return nil, fmt.Errorf("unknown store driver %q", o.Driver)
	}
	if err != nil {
		return nil, err
	}
	if o.RedisAddr != "" {
		kv := NewRedisKV(o.RedisAddr)
		if perr := kv.Ping(ctx); perr != nil {
			applog.WithComponent("store").Warn("redis unreachable; cache disabled",
				slog.String("addr", o.RedisAddr), slog.Any("err", perr))
			_ = kv.Close()
			return s, nil
		}
		return NewCached(s, kv, o.CacheTTL), nil
	}
	return s, nil
}
