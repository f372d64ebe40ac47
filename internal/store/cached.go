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
	"encoding/json"
	"fmt"
	"hash/fnv"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	applog "gocarousel/internal/log"
)

const (
	cacheKeyPrefix = "gcs:select:"
	genKeyPrefix   = "gcs:gen:"

	// DefaultCacheTTL is how long a cached selection lives.
	DefaultCacheTTL = time.Minute
)

// KV is the slice of a key-value server the select cache needs.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, val []byte, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
}

// RedisKV adapts a go-redis client to KV.
type RedisKV struct{ Client *redis.Client }

// NewRedisKV connects to addr. The connection is checked lazily.
func NewRedisKV(addr string) *RedisKV {
	return &RedisKV{Client: redis.NewClient(&redis.Options{Addr: addr})}
}

func (r *RedisKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.Client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *RedisKV) Set(ctx context.Context, key string, val []byte, ttl time.Duration) error {
	return r.Client.Set(ctx, key, val, ttl).Err()
}

func (r *RedisKV) Incr(ctx context.Context, key string) (int64, error) {
	return r.Client.Incr(ctx, key).Result()
}

// Ping reports whether the server is reachable.
func (r *RedisKV) Ping(ctx context.Context) error { return r.Client.Ping(ctx).Err() }

func (r *RedisKV) Close() error { return r.Client.Close() }

// Cached decorates a RowStore with a read-through select cache. Every write
// bumps the table's generation counter, so stale selections are never served.
// Cache failures degrade to direct reads.
type Cached struct {
	next RowStore
	kv   KV
	ttl  time.Duration
	l    *slog.Logger
}

// NewCached wraps next. A zero ttl uses DefaultCacheTTL.
func NewCached(next RowStore, kv KV, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{next: next, kv: kv, ttl: ttl, l: applog.WithComponent("store_cache")}
}

func (c *Cached) generation(ctx context.Context, table string) (string, error) {
	b, ok, err := c.kv.Get(ctx, genKeyPrefix+table)
	if err != nil {
		return "", err
	}
	if !ok {
		return "0", nil
	}
	return string(b), nil
}

func (c *Cached) selectKey(table, gen string, f Filter, order []Order) (string, error) {
	b, err := json.Marshal(struct {
		F Filter  `json:"f"`
		O []Order `json:"o"`
	}{f, order})
	if err != nil {
		return "", err
	}
	h := fnv.New64a()
	_, _ = h.Write(b)
	return fmt.Sprintf("%s%s:%s:%x", cacheKeyPrefix, table, gen, h.Sum64()), nil
}

func (c *Cached) Select(ctx context.Context, table string, f Filter, order ...Order) ([]Row, error) {
	gen, err := c.generation(ctx, table)
	if err != nil {
		c.l.Warn("cache generation read failed", slog.String("table", table), slog.Any("err", err))
		return c.next.Select(ctx, table, f, order...)
	}
	key, err := c.selectKey(table, gen, f, order)
	if err != nil {
		return c.next.Select(ctx, table, f, order...)
	}
	if b, ok, err := c.kv.Get(ctx, key); err == nil && ok {
		var rows []Row
		if err := json.Unmarshal(b, &rows); err == nil {
			c.l.Debug("cache hit", slog.String("table", table))
			return rows, nil
		}
	}
	rows, err := c.next.Select(ctx, table, f, order...)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(rows); err == nil {
		if err := c.kv.Set(ctx, key, b, c.ttl); err != nil {
			c.l.Warn("cache set failed", slog.String("table", table), slog.Any("err", err))
		}
	}
	return rows, nil
}

func (c *Cached) invalidate(ctx context.Context, table string) {
	if _, err := c.kv.Incr(ctx, genKeyPrefix+table); err != nil {
		c.l.Warn("cache invalidate failed", slog.String("table", table), slog.Any("err", err))
	}
}

func (c *Cached) Insert(ctx context.Context, table string, row Row) (Row, error) {
	r, err := c.next.Insert(ctx, table, row)
	if err == nil {
		c.invalidate(ctx, table)
	}
	return r, err
}

func (c *Cached) Update(ctx context.Context, table, id string, patch Row) (Row, error) {
	r, err := c.next.Update(ctx, table, id, patch)
	if err == nil {
		c.invalidate(ctx, table)
	}
	return r, err
}

func (c *Cached) Upsert(ctx context.Context, table string, row Row, conflict ...string) (Row, error) {
	r, err := c.next.Upsert(ctx, table, row, conflict...)
	if err == nil {
		c.invalidate(ctx, table)
	}
	return r, err
}

func (c *Cached) Delete(ctx context.Context, table, id string) error {
	err := c.next.Delete(ctx, table, id)
	if err == nil {
		c.invalidate(ctx, table)
	}
	return err
}

func (c *Cached) Close() error { return c.next.Close() }
