/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package persistence

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"gocarousel/internal/domain"
	applog "gocarousel/internal/log"
	"gocarousel/internal/store"
)

// Presets

// SavePreset stores the current document as a new preset. Presets are
// never overwritten; every call inserts a row.
func (e *Engine) SavePreset(ctx context.Context, name string) (domain.Preset, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Preset{}, fmt.Errorf("save preset: name is required")
	}
	return e.insertPreset(ctx, name, e.doc.Project())
}

func (e *Engine) insertPreset(ctx context.Context, name string, data domain.CarouselProject) (domain.Preset, error) {
	owner, err := e.owner()
	if err != nil {
		return domain.Preset{}, err
	}
	p := domain.Preset{ID: e.NewID(), Name: name, OwnerID: owner, Data: data, CreatedAt: e.Now().UTC()}
	js, err := store.JSONValue(p.Data)
	if err != nil {
		return domain.Preset{}, fmt.Errorf("encode preset: %w", err)
	}
	_, err = e.rows.Insert(ctx, store.TablePresets, store.Row{
		"id":         p.ID,
		"name":       p.Name,
		"owner_id":   p.OwnerID,
		"data":       js,
		"created_at": store.Timestamp(p.CreatedAt),
	})
	if err != nil {
		return domain.Preset{}, fmt.Errorf("save preset %q: %w", name, err)
	}
	applog.WithOperation(e.l, "save_preset").Info("preset saved", slog.String("id", p.ID), slog.Int("pages", len(data.Pages)))
	return p, nil
}

// LoadPresets returns the session's presets, newest first.
func (e *Engine) LoadPresets(ctx context.Context) ([]domain.Preset, error) {
	rows, err := e.selectOwned(ctx, store.TablePresets, nil, store.Order{Column: "created_at", Desc: true})
	if err != nil {
		return nil, err
	}
	out := make([]domain.Preset, 0, len(rows))
	for _, r := range rows {
		p := domain.Preset{
			ID:        r.String("id"),
			Name:      r.String("name"),
			OwnerID:   r.String("owner_id"),
			CreatedAt: r.Time("created_at"),
		}
		if err := r.JSON("data", &p.Data); err != nil {
			e.l.Warn("skipping unreadable preset", slog.String("id", p.ID), slog.Any("err", err))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ApplyPreset loads a preset into the editor as a new, unsaved document.
// Page ids are regenerated so the template can be applied repeatedly.
func (e *Engine) ApplyPreset(p domain.Preset) {
	data := p.Data.Clone()
	for i := range data.Pages {
		data.Pages[i].ID = ""
	}
	e.doc.LoadProject(data, "", "")
}

func (e *Engine) DeletePreset(ctx context.Context, id string) error {
	if _, err := e.findOwned(ctx, store.TablePresets, id); err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	if err := e.rows.Delete(ctx, store.TablePresets, id); err != nil {
		return fmt.Errorf("delete preset: %w", err)
	}
	return nil
}

// Projects

// SaveProject stores the current document as a project. The first save of an
// unbound document creates a row; later saves update the same id. An empty
// name keeps the bound project's name.
func (e *Engine) SaveProject(ctx context.Context, name string) (domain.ProjectRecord, error) {
	if !e.saving.CompareAndSwap(false, true) {
		return domain.ProjectRecord{}, ErrSaveInProgress
	}
	defer e.saving.Store(false)

	owner, err := e.owner()
	if err != nil {
		return domain.ProjectRecord{}, err
	}
	doc := e.doc.Document()
	id, bound := doc.CurrentProject()
	name = strings.TrimSpace(name)
	if name == "" {
		name = bound
	}
	if name == "" {
		return domain.ProjectRecord{}, fmt.Errorf("save project: name is required")
	}
	if id == "" {
		id = e.NewID()
	}
	rec := domain.ProjectRecord{ID: id, Name: name, OwnerID: owner, Data: e.doc.Project(), UpdatedAt: e.Now().UTC()}
	l := applog.WithOperation(e.l, "save_project")
	ctx = applog.WithProject(ctx, rec.ID, rec.Name)
	if e.Thumbnail != nil {
		url, err := e.Thumbnail(ctx, rec.Data)
		if err != nil {
			l.WarnContext(ctx, "thumbnail failed; saving without preview", slog.Any("err", err))
		} else {
			rec.PreviewURL = url
		}
	}
	js, err := store.JSONValue(rec.Data)
	if err != nil {
		return domain.ProjectRecord{}, fmt.Errorf("encode project: %w", err)
	}
	row := store.Row{
		"id":          rec.ID,
		"name":        rec.Name,
		"owner_id":    rec.OwnerID,
		"data":        js,
		"updated_at":  store.Timestamp(rec.UpdatedAt),
		"preview_url": rec.PreviewURL,
	}
	if _, err := e.rows.Upsert(ctx, store.TableProjects, row); err != nil {
		return domain.ProjectRecord{}, fmt.Errorf("save project %q: %w", name, err)
	}

	doc.BindProject(rec.ID, rec.Name)
	if rec.PreviewURL != "" {
		doc.SetPreview(0, rec.PreviewURL)
	}
	doc.SetProjects(upsertSummary(doc.Projects(), summarize(rec)))
	l.InfoContext(ctx, "project saved", slog.Int("pages", len(rec.Data.Pages)))
	return rec, nil
}

func summarize(r domain.ProjectRecord) domain.ProjectSummary {
	return domain.ProjectSummary{ID: r.ID, Name: r.Name, UpdatedAt: r.UpdatedAt, PreviewURL: r.PreviewURL}
}

// upsertSummary replaces or prepends s, keeping most recently saved first.
func upsertSummary(list []domain.ProjectSummary, s domain.ProjectSummary) []domain.ProjectSummary {
	out := []domain.ProjectSummary{s}
	for _, p := range list {
		if p.ID != s.ID {
			out = append(out, p)
		}
	}
	return out
}

func projectFromRow(r store.Row) (domain.ProjectRecord, error) {
	p := domain.ProjectRecord{
		ID:         r.String("id"),
		Name:       r.String("name"),
		OwnerID:    r.String("owner_id"),
		UpdatedAt:  r.Time("updated_at"),
		PreviewURL: r.String("preview_url"),
	}
	return p, r.JSON("data", &p.Data)
}

// LoadProjects returns the session's projects, most recently updated first,
// and records their summaries in the document store.
func (e *Engine) LoadProjects(ctx context.Context) ([]domain.ProjectRecord, error) {
	rows, err := e.selectOwned(ctx, store.TableProjects, nil, store.Order{Column: "updated_at", Desc: true})
	if err != nil {
		return nil, err
	}
	out := make([]domain.ProjectRecord, 0, len(rows))
	sums := make([]domain.ProjectSummary, 0, len(rows))
	for _, r := range rows {
		p, err := projectFromRow(r)
		if err != nil {
			e.l.Warn("skipping unreadable project", slog.String("id", p.ID), slog.Any("err", err))
			continue
		}
		out = append(out, p)
		sums = append(sums, summarize(p))
	}
	e.doc.Document().SetProjects(sums)
	return out, nil
}

// OpenProject loads a saved project into the editor and binds it.
func (e *Engine) OpenProject(ctx context.Context, id string) (domain.ProjectRecord, error) {
	r, err := e.findOwned(ctx, store.TableProjects, id)
	if err != nil {
		return domain.ProjectRecord{}, fmt.Errorf("open project: %w", err)
	}
	p, err := projectFromRow(r)
	if err != nil {
		return domain.ProjectRecord{}, fmt.Errorf("open project %s: %w", id, err)
	}
	e.doc.LoadProject(p.Data, p.ID, p.Name)
	applog.WithOperation(e.l, "open_project").InfoContext(applog.WithProject(ctx, p.ID, p.Name), "project opened", slog.Int("pages", len(p.Data.Pages)))
	return p, nil
}

// DeleteProject removes a saved project. Deleting the open project leaves
// the document in place but unbound, so the next save creates a new row.
func (e *Engine) DeleteProject(ctx context.Context, id string) error {
	if _, err := e.findOwned(ctx, store.TableProjects, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if err := e.rows.Delete(ctx, store.TableProjects, id); err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	doc := e.doc.Document()
	if cur, _ := doc.CurrentProject(); cur == id {
		doc.BindProject("", "")
	}
	var keep []domain.ProjectSummary
	for _, p := range doc.Projects() {
		if p.ID != id {
			keep = append(keep, p)
		}
	}
	doc.SetProjects(keep)
	return nil
}
