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
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"
)

// exerciseRowStore runs the behaviour every backend must share.
func exerciseRowStore(t *testing.T, s RowStore) {
	t.Helper()
	ctx := context.Background()
	now := Timestamp(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))

	for i, name := range []string{"Bold", "Minimal"} {
		_, err := s.Insert(ctx, TablePresets, Row{
			"id": "p" + string(rune('1'+i)), "name": name, "owner_id": "u1",
			"data": `{"pages":[]}`, "created_at": now,
		})
		if err != nil {
			t.Fatalf("insert preset: %v", err)
		}
	}
	if _, err := s.Insert(ctx, TablePresets, Row{"id": "p3", "name": "Other", "owner_id": "u2", "data": `{}`, "created_at": now}); err != nil {
		t.Fatalf("insert preset: %v", err)
	}
	if _, err := s.Insert(ctx, TablePresets, Row{"id": "p1", "name": "Dup", "owner_id": "u1", "data": `{}`, "created_at": now}); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("duplicate id err = %v", err)
	}

	rows, err := s.Select(ctx, TablePresets, Filter{"owner_id": "u1"}, Order{Column: "name", Desc: true})
	if err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 || rows[0].String("name") != "Minimal" || rows[1].String("name") != "Bold" {
		t.Fatalf("unexpected rows: %v", rows)
	}
	var data map[string]any
	if err := rows[0].JSON("data", &data); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if got := rows[0].Time("created_at"); !got.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("created_at = %v", got)
	}

	up, err := s.Update(ctx, TablePresets, "p1", Row{"name": "Bolder"})
	if err != nil || up.String("name") != "Bolder" || up.String("owner_id") != "u1" {
		t.Fatalf("update: %v %v", up, err)
	}
	if _, err := s.Update(ctx, TablePresets, "nope", Row{"name": "x"}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("update unknown err = %v", err)
	}

	// Upsert by id: create then update in place.
	row := Row{"id": "j1", "name": "Launch", "owner_id": "u1", "data": `{}`, "updated_at": now}
	if _, err := s.Upsert(ctx, TableProjects, row); err != nil {
		t.Fatalf("upsert create: %v", err)
	}
	row["name"] = "Launch v2"
	if _, err := s.Upsert(ctx, TableProjects, row); err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	projects, err := s.Select(ctx, TableProjects, Filter{"owner_id": "u1"})
	if err != nil || len(projects) != 1 || projects[0].String("name") != "Launch v2" {
		t.Fatalf("projects after upsert: %v %v", projects, err)
	}

	// Upsert on a composite unique key keeps the stored id.
	font := Row{"id": "f1", "owner_id": "u1", "name": "Brand", "font_data": "data:a", "created_at": now}
	if _, err := s.Upsert(ctx, TableFonts, font, "owner_id", "name"); err != nil {
		t.Fatalf("font upsert: %v", err)
	}
	font2 := Row{"id": "f2", "owner_id": "u1", "name": "Brand", "font_data": "data:b", "created_at": now}
	got, err := s.Upsert(ctx, TableFonts, font2, "owner_id", "name")
	if err != nil || got.String("id") != "f1" || got.String("font_data") != "data:b" {
		t.Fatalf("font upsert update: %v %v", got, err)
	}

	if err := s.Delete(ctx, TablePresets, "p2"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := s.Delete(ctx, TablePresets, "p2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("delete twice err = %v", err)
	}
	rows, _ = s.Select(ctx, TablePresets, Filter{"owner_id": "u1"})
	if len(rows) != 1 {
		t.Fatalf("rows after delete = %d", len(rows))
	}
}

func TestTimestampsSortLexically(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	times := []time.Time{base, base.Add(time.Millisecond), base.Add(500 * time.Millisecond), base.Add(time.Second)}
	for i := 1; i < len(times); i++ {
		a, b := Timestamp(times[i-1]), Timestamp(times[i])
		if len(a) != len(b) || a >= b {
			t.Fatalf("%q should sort before %q", a, b)
		}
	}
	r := Row{"at": Timestamp(times[2])}
	if got := r.Time("at"); !got.Equal(times[2]) {
		t.Fatalf("round trip = %v", got)
	}
}

func TestMemoryStore(t *testing.T) {
	exerciseRowStore(t, NewMemory(TableNames()...))
}

func TestMemoryNotProvisioned(t *testing.T) {
	m := NewMemory()
	_, err := m.Select(context.Background(), TablePresets, nil)
	if !errors.Is(err, ErrNotProvisioned) {
		t.Fatalf("err = %v", err)
	}
	m.Provision(TablePresets)
	if rows, err := m.Select(context.Background(), TablePresets, nil); err != nil || len(rows) != 0 {
		t.Fatalf("after provision: %v %v", rows, err)
	}
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "carousel.db"), true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	exerciseRowStore(t, s)

	v, err := s.SchemaVersion(context.Background())
	if err != nil || v != sqliteSchemaVersion {
		t.Fatalf("schema version = %d, %v", v, err)
	}
	var mode string
	if err := s.DB().QueryRow("PRAGMA journal_mode;").Scan(&mode); err != nil {
		t.Fatalf("journal_mode: %v", err)
	}
	if !strings.EqualFold(mode, "wal") {
		t.Fatalf("expected WAL, got %s", mode)
	}
}

func TestSQLiteNotProvisioned(t *testing.T) {
	s, err := OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "bare.db"), false)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	if _, err := s.Select(context.Background(), TableProjects, Filter{"owner_id": "u1"}); !errors.Is(err, ErrNotProvisioned) {
		t.Fatalf("err = %v", err)
	}
}

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("GCS_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("GCS_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	s, err := OpenPostgres(ctx, dsn, true)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer s.Close()
	for _, tbl := range []string{TablePresets, TableProjects, TableFonts} {
		if _, err := s.DB().ExecContext(ctx, "DELETE FROM "+tbl); err != nil {
			t.Fatalf("truncate %s: %v", tbl, err)
		}
	}
	exerciseRowStore(t, s)
}

func TestSQLBuilder(t *testing.T) {
	q, err := postgresDialect.buildSelect("presets", Filter{"owner_id": "u", "name": "n"}, []Order{{Column: "created_at", Desc: true}})
	if err != nil {
		t.Fatal(err)
	}
	want := `SELECT * FROM "presets" WHERE "name" = $1 AND "owner_id" = $2 ORDER BY "created_at" DESC`
	if q.sql != want || len(q.args) != 2 || q.args[0] != "n" {
		t.Fatalf("select sql = %s args %v", q.sql, q.args)
	}
	q, err = sqliteDialect.buildInsert("custom_fonts", Row{"id": "1", "owner_id": "u", "name": "n", "font_data": "d"}, []string{"owner_id", "name"})
	if err != nil {
		t.Fatal(err)
	}
	want = `INSERT INTO "custom_fonts" ("font_data", "id", "name", "owner_id") VALUES (?, ?, ?, ?) ON CONFLICT ("owner_id", "name") DO UPDATE SET "font_data" = excluded."font_data" RETURNING *`
	if q.sql != want {
		t.Fatalf("insert sql = %s", q.sql)
	}
	if _, err := sqliteDialect.buildSelect("presets; drop", nil, nil); err == nil {
		t.Fatalf("expected identifier rejection")
	}
	if _, err := sqliteDialect.buildUpdate("presets", "x", Row{"id": "y"}); err == nil {
		t.Fatalf("expected empty update rejection")
	}
}

type memKV struct {
	mu   sync.Mutex
	m    map[string][]byte
	gets int
	hits int
}

func newMemKV() *memKV { return &memKV{m: map[string][]byte{}} }

func (k *memKV) Get(_ context.Context, key string) ([]byte, bool, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.gets++
	v, ok := k.m[key]
	if ok && strings.HasPrefix(key, cacheKeyPrefix) {
		k.hits++
	}
	return v, ok, nil
}

func (k *memKV) Set(_ context.Context, key string, val []byte, _ time.Duration) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.m[key] = append([]byte(nil), val...)
	return nil
}

func (k *memKV) Incr(_ context.Context, key string) (int64, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	n, _ := strconv.ParseInt(string(k.m[key]), 10, 64)
	n++
	k.m[key] = []byte(strconv.FormatInt(n, 10))
	return n, nil
}

func TestCachedSelectAndInvalidate(t *testing.T) {
	ctx := context.Background()
	kv := newMemKV()
	c := NewCached(NewMemory(TableNames()...), kv, 0)
	exerciseRowStore(t, c)

	if _, err := c.Select(ctx, TablePresets, Filter{"owner_id": "u2"}); err != nil {
		t.Fatal(err)
	}
	rows, err := c.Select(ctx, TablePresets, Filter{"owner_id": "u2"})
	if err != nil || len(rows) != 1 || rows[0].String("name") != "Other" {
		t.Fatalf("cached rows: %v %v", rows, err)
	}
	if kv.hits == 0 {
		t.Fatalf("expected a cache hit")
	}
	if _, err := c.Update(ctx, TablePresets, "p3", Row{"name": "Renamed"}); err != nil {
		t.Fatal(err)
	}
	rows, _ = c.Select(ctx, TablePresets, Filter{"owner_id": "u2"})
	if rows[0].String("name") != "Renamed" {
		t.Fatalf("stale cache served: %v", rows)
	}
}

func TestWriteFileKeepsBackup(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "autosave.json")
	if err := WriteFile(p, []byte("one"), true); err != nil {
		t.Fatal(err)
	}
	if err := WriteFile(p, []byte("two"), true); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(p)
	if err != nil || string(b) != "two" {
		t.Fatalf("content = %q %v", b, err)
	}
	bak, err := LatestBackup(p)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if b, _ := os.ReadFile(bak); string(b) != "one" {
		t.Fatalf("backup content = %q", b)
	}
	_ = os.Remove(p)
	data, fromBackup, err := ReadFile(p)
	if err != nil || !fromBackup || string(data) != "one" {
		t.Fatalf("ReadFile fallback: %q %v %v", data, fromBackup, err)
	}
	ents, _ := os.ReadDir(dir)
	for _, e := range ents {
		if strings.Contains(e.Name(), ".tmp-") {
			t.Fatalf("temp file left behind: %s", e.Name())
		}
	}
}
