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
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Row is one record keyed by column name.
type Row map[string]any

// Filter selects rows whose columns equal the given values.
type Filter map[string]any

// Order sorts a selection by one column.
type Order struct {
	Column string
	Desc   bool
}

// RowStore is the generic table store the persistence engine talks to.
// Implementations are safe for concurrent use.
type RowStore interface {
	Select(ctx context.Context, table string, f Filter, order ...Order) ([]Row, error)
	Insert(ctx context.Context, table string, row Row) (Row, error)
	Update(ctx context.Context, table, id string, patch Row) (Row, error)
	// Upsert inserts row or, when a row with the same conflict columns exists,
	// updates it in place. Without conflict columns the id column is used.
	Upsert(ctx context.Context, table string, row Row, conflict ...string) (Row, error)
	Delete(ctx context.Context, table, id string) error
	Close() error
}

var (
	// ErrNotProvisioned is returned when a table or column does not exist in the backend.
	ErrNotProvisioned = errors.New("store: table not provisioned")
	// ErrNotFound is returned by Update and Delete for unknown ids.
	ErrNotFound = errors.New("store: row not found")
	// ErrDuplicate is returned when an insert violates a unique key.
	ErrDuplicate = errors.New("store: duplicate key")
)

// Table names used by the editor.
const (
	TablePresets  = "presets"
	TableProjects = "projects"
	TableFonts    = "custom_fonts"
)

// Tables lists every table with its unique keys besides id.
var Tables = map[string][][]string{
	TablePresets:  nil,
	TableProjects: nil,
	TableFonts:    {{"owner_id", "name"}},
}

// TableNames returns the known table names in stable order.
func TableNames() []string {
	out := make([]string, 0, len(Tables))
	for t := range Tables {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TimeLayout is RFC 3339 with a fixed nine digit fraction so stored
// timestamps sort lexically in time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Timestamp formats t the way every backend stores times.
func Timestamp(t time.Time) string { return t.UTC().Format(TimeLayout) }

// String reads a text column. Byte slices are converted, nil yields "".
func (r Row) String(key string) string {
	switch v := r[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	case fmt.Stringer:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return fmt.Sprint(v)
	}
}

// Time reads a timestamp column stored as time.Time or an RFC 3339 string.
func (r Row) Time(key string) time.Time {
	switch v := r[key].(type) {
	case time.Time:
		return v
	case string, []byte:
		s := strings.TrimSpace(r.String(key))
		for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05.999999999-07:00", "2006-01-02 15:04:05"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
	}
	return time.Time{}
}

// JSON decodes a JSON column into dst. The column may arrive as text, bytes,
// or an already-decoded value (e.g. from a cache round trip).
func (r Row) JSON(key string, dst any) error {
	var raw []byte
	switch v := r[key].(type) {
	case nil:
		return fmt.Errorf("column %s is empty", key)
	case string:
		raw = []byte(v)
	case []byte:
		raw = v
	case json.RawMessage:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return fmt.Errorf("column %s: %w", key, err)
		}
		raw = b
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("column %s: %w", key, err)
	}
	return nil
}

// JSONValue encodes v for storage in a JSON column.
func JSONValue(v any) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// clone returns a shallow copy of r.
func (r Row) clone() Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// sortedKeys returns the row's columns in stable order.
func sortedKeys[M ~map[string]any](m M) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
