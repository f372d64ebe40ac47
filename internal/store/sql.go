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
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"

	applog "gocarousel/internal/log"
)

// dialect captures the few differences between SQLite and Postgres SQL.
type dialect struct {
	name string
	// numbered placeholders ($1) instead of ?
	numbered bool
	// classify maps driver errors onto the package sentinels.
	classify func(error) error
}

func (d dialect) ph(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

func quoteIdent(s string) (string, error) {
	if !identRe.MatchString(s) {
		return "", fmt.Errorf("invalid identifier %q", s)
	}
	return `"` + s + `"`, nil
}

type query struct {
	sql  string
	args []any
}

func (d dialect) buildSelect(table string, f Filter, order []Order) (query, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return query{}, err
	}
	var b strings.Builder
	fmt.Fprintf(&b, "SELECT * FROM %s", t)
	var args []any
	for i, k := range sortedKeys(f) {
		c, err := quoteIdent(k)
		if err != nil {
			return query{}, err
		}
		if i == 0 {
			b.WriteString(" WHERE ")
		} else {
			b.WriteString(" AND ")
		}
		args = append(args, f[k])
		fmt.Fprintf(&b, "%s = %s", c, d.ph(len(args)))
	}
	for i, o := range order {
		c, err := quoteIdent(o.Column)
		if err != nil {
			return query{}, err
		}
		if i == 0 {
			b.WriteString(" ORDER BY ")
		} else {
			b.WriteString(", ")
		}
		b.WriteString(c)
		if o.Desc {
			b.WriteString(" DESC")
		}
	}
	return query{sql: b.String(), args: args}, nil
}

func (d dialect) buildInsert(table string, row Row, conflict []string) (query, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return query{}, err
	}
	if len(row) == 0 {
		return query{}, errors.New("insert of empty row")
	}
	keys := sortedKeys(row)
	cols := make([]string, len(keys))
	phs := make([]string, len(keys))
	args := make([]any, len(keys))
	for i, k := range keys {
		c, err := quoteIdent(k)
		if err != nil {
			return query{}, err
		}
		cols[i] = c
		phs[i] = d.ph(i + 1)
		args[i] = row[k]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "INSERT INTO %s (%s) VALUES (%s)", t, strings.Join(cols, ", "), strings.Join(phs, ", "))
	if conflict != nil {
		target := make([]string, len(conflict))
		isTarget := map[string]bool{}
		for i, k := range conflict {
			c, err := quoteIdent(k)
			if err != nil {
				return query{}, err
			}
			target[i] = c
			isTarget[k] = true
		}
		var sets []string
		for i, k := range keys {
			if isTarget[k] || k == "id" {
				continue
			}
			sets = append(sets, fmt.Sprintf("%s = excluded.%s", cols[i], cols[i]))
		}
		if len(sets) == 0 {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO NOTHING", strings.Join(target, ", "))
		} else {
			fmt.Fprintf(&b, " ON CONFLICT (%s) DO UPDATE SET %s", strings.Join(target, ", "), strings.Join(sets, ", "))
		}
	}
	b.WriteString(" RETURNING *")
	return query{sql: b.String(), args: args}, nil
}

func (d dialect) buildUpdate(table, id string, patch Row) (query, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return query{}, err
	}
	var sets []string
	var args []any
	for _, k := range sortedKeys(patch) {
		if k == "id" {
			continue
		}
		c, err := quoteIdent(k)
		if err != nil {
			return query{}, err
		}
		args = append(args, patch[k])
		sets = append(sets, fmt.Sprintf("%s = %s", c, d.ph(len(args))))
	}
	if len(sets) == 0 {
		return query{}, errors.New("update without columns")
	}
	args = append(args, id)
	return query{
		sql:  fmt.Sprintf(`UPDATE %s SET %s WHERE "id" = %s RETURNING *`, t, strings.Join(sets, ", "), d.ph(len(args))),
		args: args,
	}, nil
}

func (d dialect) buildDelete(table, id string) (query, error) {
	t, err := quoteIdent(table)
	if err != nil {
		return query{}, err
	}
	return query{sql: fmt.Sprintf(`DELETE FROM %s WHERE "id" = %s`, t, d.ph(1)), args: []any{id}}, nil
}

// SQLStore is a RowStore over database/sql. Use OpenSQLite or OpenPostgres.
type SQLStore struct {
	db *sql.DB
	d  dialect
	l  *slog.Logger
}

func newSQLStore(db *sql.DB, d dialect) *SQLStore {
	return &SQLStore{db: db, d: d, l: applog.WithComponent("store").With(slog.String("driver", d.name))}
}

// DB exposes the underlying handle for migrations and tests.
func (s *SQLStore) DB() *sql.DB { return s.db }

func (s *SQLStore) wrap(op, table string, err error) error {
	if err == nil {
		return nil
	}
	if s.d.classify != nil {
		if se := s.d.classify(err); se != nil {
			return fmt.Errorf("%s %s: %w: %v", op, table, se, err)
		}
	}
	return fmt.Errorf("%s %s: %w", op, table, err)
}

func (s *SQLStore) queryRows(ctx context.Context, q query) ([]Row, error) {
	rows, err := s.db.QueryContext(ctx, q.sql, q.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var out []Row
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		r := make(Row, len(cols))
		for i, c := range cols {
			// Drivers hand back text as []byte; keep rows cache-friendly.
			if b, ok := vals[i].([]byte); ok {
				r[c] = string(b)
				continue
			}
			r[c] = vals[i]
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Select(ctx context.Context, table string, f Filter, order ...Order) ([]Row, error) {
	q, err := s.d.buildSelect(table, f, order)
	if err != nil {
		return nil, err
	}
	rows, err := s.queryRows(ctx, q)
	if err != nil {
		return nil, s.wrap("select", table, err)
	}
	return rows, nil
}

func (s *SQLStore) Insert(ctx context.Context, table string, row Row) (Row, error) {
	q, err := s.d.buildInsert(table, row, nil)
	if err != nil {
		return nil, err
	}
	rows, err := s.queryRows(ctx, q)
	if err != nil {
		return nil, s.wrap("insert", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("insert %s: no row returned", table)
	}
	return rows[0], nil
}

func (s *SQLStore) Update(ctx context.Context, table, id string, patch Row) (Row, error) {
	q, err := s.d.buildUpdate(table, id, patch)
	if err != nil {
		return nil, err
	}
	rows, err := s.queryRows(ctx, q)
	if err != nil {
		return nil, s.wrap("update", table, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("update %s/%s: %w", table, id, ErrNotFound)
	}
	return rows[0], nil
}

func (s *SQLStore) Upsert(ctx context.Context, table string, row Row, conflict ...string) (Row, error) {
	if len(conflict) == 0 {
		conflict = []string{"id"}
	}
	q, err := s.d.buildInsert(table, row, conflict)
	if err != nil {
		return nil, err
	}
	rows, err := s.queryRows(ctx, q)
	if err != nil {
		return nil, s.wrap("upsert", table, err)
	}
	if len(rows) == 0 {
		// DO NOTHING path: return the stored row.
		f := Filter{}
		for _, k := range conflict {
			f[k] = row[k]
		}
		got, err := s.Select(ctx, table, f)
		if err != nil || len(got) == 0 {
			return nil, fmt.Errorf("upsert %s: no row returned", table)
		}
		return got[0], nil
	}
	return rows[0], nil
}

func (s *SQLStore) Delete(ctx context.Context, table, id string) error {
	q, err := s.d.buildDelete(table, id)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, q.sql, q.args...)
	if err != nil {
		return s.wrap("delete", table, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete %s/%s: %w", table, id, ErrNotFound)
	}
	return nil
}

func (s *SQLStore) Close() error { return s.db.Close() }
