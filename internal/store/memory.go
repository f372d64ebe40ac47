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
	"sort"
	"sync"
)

// Memory is an in-process RowStore. Tables must be provisioned before use,
// mirroring a real backend whose schema has not been migrated yet.
type Memory struct {
	mu     sync.Mutex
	tables map[string][]Row
}

// NewMemory returns a memory store with the given tables provisioned.
func NewMemory(tables ...string) *Memory {
	m := &Memory{tables: map[string][]Row{}}
	m.Provision(tables...)
	return m
}

// Provision creates empty tables. Existing tables are kept.
func (m *Memory) Provision(tables ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range tables {
		if _, ok := m.tables[t]; !ok {
			m.tables[t] = []Row{}
		}
	}
}

func (m *Memory) table(name string) ([]Row, error) {
	rows, ok := m.tables[name]
	if !ok {
		return nil, fmt.Errorf("table %s: %w", name, ErrNotProvisioned)
	}
	return rows, nil
}

func matches(r Row, f Filter) bool {
	for k, v := range f {
		if r.String(k) != (Row{k: v}).String(k) {
			return false
		}
	}
	return true
}

func (m *Memory) Select(_ context.Context, table string, f Filter, order ...Order) ([]Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.table(table)
	if err != nil {
		return nil, err
	}
	var out []Row
	for _, r := range rows {
		if matches(r, f) {
			out = append(out, r.clone())
		}
	}
	if len(order) > 0 {
		sort.SliceStable(out, func(i, j int) bool {
			for _, o := range order {
				a, b := out[i].String(o.Column), out[j].String(o.Column)
				if a == b {
					continue
				}
				if o.Desc {
					return a > b
				}
				return a < b
			}
			return false
		})
	}
	return out, nil
}

func (m *Memory) Insert(_ context.Context, table string, row Row) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.table(table)
	if err != nil {
		return nil, err
	}
	if i := m.conflictIndex(table, rows, row, nil); i >= 0 {
		return nil, fmt.Errorf("insert into %s: %w", table, ErrDuplicate)
	}
	m.tables[table] = append(rows, row.clone())
	return row.clone(), nil
}

// conflictIndex finds a row colliding with r on id, on the explicit conflict
// columns, or on any unique key of the table.
func (m *Memory) conflictIndex(table string, rows []Row, r Row, conflict []string) int {
	keys := [][]string{{"id"}}
	if len(conflict) > 0 {
		keys = [][]string{conflict}
	} else {
		keys = append(keys, Tables[table]...)
	}
	for i, existing := range rows {
		for _, key := range keys {
			same := true
			for _, col := range key {
				if _, ok := r[col]; !ok || existing.String(col) != r.String(col) {
					same = false
					break
				}
			}
			if same {
				return i
			}
		}
	}
	return -1
}

func (m *Memory) Update(_ context.Context, table, id string, patch Row) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.table(table)
	if err != nil {
		return nil, err
	}
	for i, r := range rows {
		if r.String("id") == id {
			for k, v := range patch {
				if k != "id" {
					r[k] = v
				}
			}
			rows[i] = r
			return r.clone(), nil
		}
	}
	return nil, fmt.Errorf("update %s/%s: %w", table, id, ErrNotFound)
}

func (m *Memory) Upsert(_ context.Context, table string, row Row, conflict ...string) (Row, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.table(table)
	if err != nil {
		return nil, err
	}
	if len(conflict) == 0 {
		conflict = []string{"id"}
	}
	if i := m.conflictIndex(table, rows, row, conflict); i >= 0 {
		r := rows[i]
		for k, v := range row {
			if k != "id" {
				r[k] = v
			}
		}
		return r.clone(), nil
	}
	m.tables[table] = append(rows, row.clone())
	return row.clone(), nil
}

func (m *Memory) Delete(_ context.Context, table, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.table(table)
	if err != nil {
		return err
	}
	for i, r := range rows {
		if r.String("id") == id {
			m.tables[table] = append(rows[:i], rows[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("delete %s/%s: %w", table, id, ErrNotFound)
}

func (m *Memory) Close() error { return nil }
