/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor wires the document store, canvas adapter, property editor,
// persistence engine and export pipeline into one editing session.
package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"gocarousel/internal/assets"
	"gocarousel/internal/config"
	"gocarousel/internal/document"
	"gocarousel/internal/domain"
	"gocarousel/internal/export"
	"gocarousel/internal/fonts"
	applog "gocarousel/internal/log"
	"gocarousel/internal/persistence"
	"gocarousel/internal/properties"
	"gocarousel/internal/scene"
	"gocarousel/internal/store"
	"gocarousel/internal/telemetry"
	"gocarousel/internal/undo"
)

// AutosaveName is the file written by Autosave.
const AutosaveName = "autosave.json"

// Session is one open editor. It is not safe for concurrent mutation.
type Session struct {
	Config  config.AppConfig
	Doc     *document.Store
	Scene   *scene.Adapter
	Props   *properties.Editor
	Persist *persistence.Engine
	Export  *export.Exporter
	Fonts   *fonts.Registry
	Images  *assets.Loader

	rows store.RowStore
	l    *slog.Logger
}

// Open connects the configured row store and starts a session on it.
func Open(ctx context.Context, cfg config.AppConfig, dsn string) (*Session, error) {
	rows, err := store.Open(ctx, store.Options{
		Driver:    cfg.Store.Driver,
		Path:      cfg.Store.Path,
		DSN:       dsn,
		RedisAddr: cfg.Cache.RedisAddr,
		CacheTTL:  cfg.Cache.TTL(),
	})
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return New(rows, cfg), nil
}

// New builds a session over an already opened row store. The session owns
// rows and closes it in Close.
func New(rows store.RowStore, cfg config.AppConfig) *Session {
	doc := document.New()
	images := assets.NewLoader()
	reg := fonts.NewRegistry()
	sc := scene.New(doc, undo.NewHistory(undo.Config{MaxPerPage: 100}), images)
	x := export.New(export.NewRenderer(reg, images))
	eng := persistence.New(rows, persistence.Session{OwnerID: cfg.General.OwnerID}, sc, reg)
	eng.Thumbnail = x.Thumbnail
	return &Session{
		Config:  cfg,
		Doc:     doc,
		Scene:   sc,
		Props:   properties.New(sc),
		Persist: eng,
		Export:  x,
		Fonts:   reg,
		Images:  images,
		rows:    rows,
		l:       applog.WithComponent("editor"),
	}
}

// Start loads the owner's fonts and project list. Font failures are logged
// and skipped; a store failure is returned.
func (s *Session) Start(ctx context.Context) error {
	l := applog.WithOperation(s.l, "start")
	names, err := s.Persist.LoadFonts(ctx)
	if err != nil {
		return fmt.Errorf("load fonts: %w", err)
	}
	projects, err := s.Persist.LoadProjects(ctx)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}
	l.Info("session ready", slog.String("owner", s.Persist.Session().OwnerID),
		slog.Int("fonts", len(names)), slog.Int("projects", len(projects)))
	telemetry.Event("session_start", map[string]any{"driver": s.Config.Store.Driver})
	return nil
}

// Close releases the row store.
func (s *Session) Close() error {
	if s.rows == nil {
		return nil
	}
	return s.rows.Close()
}

// ExportOptions returns raster options for pages with the configured
// format and scale filled in.
func (s *Session) ExportOptions(pages []int) (export.Options, error) {
	f, err := export.ParseFormat(s.Config.Export.Format)
	if err != nil {
		return export.Options{}, err
	}
	return export.Options{Format: f, Scale: s.Config.Export.Scale, Pages: pages}, nil
}

// ExportPages flushes the canvas and rasterizes the selected pages.
func (s *Session) ExportPages(ctx context.Context, o export.Options) ([]export.Image, error) {
	images, err := s.Export.Export(ctx, s.Scene, o)
	if err != nil {
		return nil, err
	}
	id, name := s.Doc.CurrentProject()
	applog.WithOperation(s.l, "export").InfoContext(applog.WithProject(ctx, id, name), "pages exported",
		slog.String("format", string(images[0].Format)), slog.Int("pages", len(images)))
	telemetry.Event("export", map[string]any{"format": string(images[0].Format), "pages": len(images)})
	return images, nil
}

// ExportToDir writes the selected pages into dir, or the configured output
// directory when dir is empty, and returns the written paths.
func (s *Session) ExportToDir(ctx context.Context, dir string, o export.Options) ([]string, error) {
	images, err := s.ExportPages(ctx, o)
	if err != nil {
		return nil, err
	}
	if dir == "" {
		dir = s.Config.Export.OutDir
	}
	_, name := s.Doc.CurrentProject()
	return export.WriteFiles(dir, export.FileBase(name), images)
}

// ImportPreset reads a portable preset file and stores it under the name
// confirm returns.
func (s *Session) ImportPreset(ctx context.Context, path string, confirm persistence.ConfirmName) (domain.Preset, error) {
	p, err := s.Persist.ImportFile(ctx, path, confirm)
	if err != nil {
		return p, err
	}
	telemetry.Event("preset_import", nil)
	return p, nil
}

// Autosave writes the current document as JSON into dir and returns the path.
// The previous autosave is kept in the backups folder.
func (s *Session) Autosave(dir string) (string, error) {
	id, name := s.Doc.CurrentProject()
	snap := struct {
		ID      string                 `json:"id,omitempty"`
		Name    string                 `json:"name,omitempty"`
		SavedAt string                 `json:"savedAt"`
		Data    domain.CarouselProject `json:"data"`
	}{id, name, time.Now().UTC().Format(time.RFC3339), s.Scene.Project()}
	b, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode autosave: %w", err)
	}
	path := filepath.Join(dir, AutosaveName)
	if err := store.WriteFile(path, b, true); err != nil {
		return "", fmt.Errorf("write autosave: %w", err)
	}
	return path, nil
}
