/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package persistence saves and loads carousel documents through a row
// store and to portable preset files, and restores custom fonts.
//
// A failed save never changes the in-memory document: bindings such as the
// current project id are only updated after the store accepted the write.
package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"gocarousel/internal/document"
	"gocarousel/internal/domain"
	"gocarousel/internal/fonts"
	applog "gocarousel/internal/log"
	"gocarousel/internal/store"
)

var (
	// ErrSaveInProgress is returned when a project save starts while another is running.
	ErrSaveInProgress = errors.New("save already in progress")
	// ErrImportCancelled is returned when the user declines the import name prompt.
	ErrImportCancelled = errors.New("import cancelled")
	// ErrNoOwner is returned when the session has no owner id.
	ErrNoOwner = errors.New("session has no owner")
)

// Session identifies the user the engine reads and writes for.
type Session struct {
	OwnerID string
}

// Document is the editor state the engine captures and restores.
type Document interface {
	// Project flushes the active canvas and returns a snapshot.
	Project() domain.CarouselProject
	Document() *document.Store
	// LoadProject replaces the document and shows its first page.
	LoadProject(p domain.CarouselProject, id, name string)
}

// Thumbnailer renders a preview data URI for a project.
type Thumbnailer func(ctx context.Context, p domain.CarouselProject) (string, error)

// Engine moves documents between the editor and the row store.
type Engine struct {
	rows    store.RowStore
	session Session
	doc     Document
	fonts   *fonts.Registry

	// Thumbnail, when set, attaches a preview to saved projects.
	Thumbnail Thumbnailer
	// Now and NewID are replaceable for tests.
	Now   func() time.Time
	NewID func() string

	saving atomic.Bool
	l      *slog.Logger
}

// New creates an engine. reg may be nil when fonts are not needed.
func New(rows store.RowStore, s Session, doc Document, reg *fonts.Registry) *Engine {
	return &Engine{
		rows:    rows,
		session: s,
		doc:     doc,
		fonts:   reg,
		Now:     time.Now,
		NewID:   uuid.NewString,
		l:       applog.WithComponent("persistence"),
	}
}

func (e *Engine) Session() Session { return e.session }

func (e *Engine) owner() (string, error) {
	if e.session.OwnerID == "" {
		return "", ErrNoOwner
	}
	return e.session.OwnerID, nil
}

// selectOwned reads the session's rows from table. A table that does not
// exist yet reads as empty.
func (e *Engine) selectOwned(ctx context.Context, table string, f store.Filter, order ...store.Order) ([]store.Row, error) {
	owner, err := e.owner()
	if err != nil {
		return nil, err
	}
	if f == nil {
		f = store.Filter{}
	}
	f["owner_id"] = owner
	rows, err := e.rows.Select(ctx, table, f, order...)
	if errors.Is(err, store.ErrNotProvisioned) {
		e.l.Info("table not provisioned; treating as empty", slog.String("table", table))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", table, err)
	}
	return rows, nil
}

// findOwned returns the session's row with the given id or store.ErrNotFound.
func (e *Engine) findOwned(ctx context.Context, table, id string) (store.Row, error) {
	rows, err := e.selectOwned(ctx, table, store.Filter{"id": id})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s/%s: %w", table, id, store.ErrNotFound)
	}
	return rows[0], nil
}
