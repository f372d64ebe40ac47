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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/image/font/gofont/gomono"

	"gocarousel/internal/document"
	"gocarousel/internal/domain"
	"gocarousel/internal/fonts"
	"gocarousel/internal/scene"
	"gocarousel/internal/store"
)

type fixture struct {
	rows  *store.Memory
	scene *scene.Adapter
	eng   *Engine
}

func newFixture(t *testing.T, owner string) *fixture {
	t.Helper()
	rows := store.NewMemory(store.TableNames()...)
	return newFixtureWith(t, owner, rows)
}

func newFixtureWith(t *testing.T, owner string, rows *store.Memory) *fixture {
	t.Helper()
	a := scene.New(document.New(), nil, nil)
	e := New(rows, Session{OwnerID: owner}, a, fonts.NewRegistry())
	clock := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	e.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	n := 0
	e.NewID = func() string {
		n++
		return fmt.Sprintf("%s-%03d", owner, n)
	}
	return &fixture{rows: rows, scene: a, eng: e}
}

func TestPresetRoundTrip(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	f.scene.AddRect()
	f.scene.AddPage()
	f.scene.AddCircle()
	want := f.scene.Project()

	if _, err := f.eng.SavePreset(ctx, "Launch"); err != nil {
		t.Fatalf("SavePreset: %v", err)
	}
	if _, err := f.eng.SavePreset(ctx, "Launch"); err != nil {
		t.Fatalf("SavePreset again: %v", err)
	}
	got, err := f.eng.LoadPresets(ctx)
	if err != nil {
		t.Fatalf("LoadPresets: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("presets are always inserted; got %d", len(got))
	}
	p := got[0]
	if len(p.Data.Pages) != len(want.Pages) || p.Data.CanvasSize != want.CanvasSize {
		t.Fatalf("round trip: %d pages %+v", len(p.Data.Pages), p.Data.CanvasSize)
	}
	for i := range want.Pages {
		if len(p.Data.Pages[i].Elements) != len(want.Pages[i].Elements) {
			t.Fatalf("page %d elements %d want %d", i, len(p.Data.Pages[i].Elements), len(want.Pages[i].Elements))
		}
	}

	f.eng.ApplyPreset(p)
	doc := f.scene.Document()
	if doc.PageCount() != 2 || f.scene.Canvas().Len() != 2 {
		t.Fatalf("apply: pages %d objects %d", doc.PageCount(), f.scene.Canvas().Len())
	}
	if id, _ := doc.CurrentProject(); id != "" {
		t.Fatalf("applied preset must be unbound, got %q", id)
	}
	if doc.Pages()[0].ID == want.Pages[0].ID {
		t.Fatalf("applied preset should get fresh page ids")
	}
	if err := f.eng.DeletePreset(ctx, p.ID); err != nil {
		t.Fatalf("DeletePreset: %v", err)
	}
	if got, _ := f.eng.LoadPresets(ctx); len(got) != 1 {
		t.Fatalf("after delete: %d", len(got))
	}
}

func TestSaveProjectUpsertsByID(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	f.eng.Thumbnail = func(context.Context, domain.CarouselProject) (string, error) {
		return "data:image/png;base64,AAAA", nil
	}
	first, err := f.eng.SaveProject(ctx, "Q3 deck")
	if err != nil {
		t.Fatalf("SaveProject: %v", err)
	}
	f.scene.AddRect()
	second, err := f.eng.SaveProject(ctx, "")
	if err != nil {
		t.Fatalf("SaveProject update: %v", err)
	}
	if first.ID != second.ID || second.Name != "Q3 deck" {
		t.Fatalf("update should keep id and name: %+v vs %+v", first, second)
	}
	rows, _ := f.rows.Select(ctx, store.TableProjects, store.Filter{})
	if len(rows) != 1 {
		t.Fatalf("rows = %d, want 1", len(rows))
	}
	doc := f.scene.Document()
	if id, name := doc.CurrentProject(); id != first.ID || name != "Q3 deck" {
		t.Fatalf("binding = %q %q", id, name)
	}
	if doc.Pages()[0].PreviewURL == "" || second.PreviewURL == "" {
		t.Fatalf("preview not attached")
	}
	if len(doc.Projects()) != 1 {
		t.Fatalf("summaries = %d", len(doc.Projects()))
	}

	recs, err := f.eng.LoadProjects(ctx)
	if err != nil || len(recs) != 1 {
		t.Fatalf("LoadProjects: %v %d", err, len(recs))
	}
	if n := len(recs[0].Data.Pages[0].Elements); n != 2 {
		t.Fatalf("saved elements = %d", n)
	}
}

type failingUpsert struct{ *store.Memory }

func (failingUpsert) Upsert(context.Context, string, store.Row, ...string) (store.Row, error) {
	return nil, errors.New("connection reset")
}

func TestFailedSaveLeavesDocumentUntouched(t *testing.T) {
	f := newFixture(t, "alice")
	f.eng.rows = failingUpsert{f.rows}
	if _, err := f.eng.SaveProject(context.Background(), "Draft"); err == nil {
		t.Fatalf("expected error")
	}
	doc := f.scene.Document()
	if id, _ := doc.CurrentProject(); id != "" || len(doc.Projects()) != 0 {
		t.Fatalf("failed save changed bindings")
	}
	if _, err := f.eng.SaveProject(context.Background(), "Draft"); errors.Is(err, ErrSaveInProgress) {
		t.Fatalf("in-flight flag not released after failure")
	}
}

func TestFailedFontSaveRegistersNothing(t *testing.T) {
	f := newFixture(t, "alice")
	f.eng.rows = failingUpsert{f.rows}
	if err := f.eng.SaveFont(context.Background(), "Brand Mono", gomono.TTF); err == nil {
		t.Fatalf("expected error")
	}
	if f.eng.fonts.Has("Brand Mono") || len(f.eng.fonts.Families()) != 0 {
		t.Fatalf("font registered despite failed save")
	}
	if got := f.scene.Document().CustomFonts(); len(got) != 0 {
		t.Fatalf("document fonts = %v", got)
	}
}

func TestSaveInProgress(t *testing.T) {
	f := newFixture(t, "alice")
	started, release := make(chan struct{}), make(chan struct{})
	f.eng.Thumbnail = func(context.Context, domain.CarouselProject) (string, error) {
		close(started)
		<-release
		return "", nil
	}
	done := make(chan error, 1)
	go func() {
		_, err := f.eng.SaveProject(context.Background(), "Slow")
		done <- err
	}()
	<-started
	if _, err := f.eng.SaveProject(context.Background(), "Other"); !errors.Is(err, ErrSaveInProgress) {
		t.Fatalf("err = %v", err)
	}
	close(release)
	if err := <-done; err != nil {
		t.Fatalf("first save: %v", err)
	}
}

func TestNotProvisionedReadsEmpty(t *testing.T) {
	f := newFixtureWith(t, "alice", store.NewMemory())
	ctx := context.Background()
	if p, err := f.eng.LoadPresets(ctx); err != nil || len(p) != 0 {
		t.Fatalf("presets: %v %d", err, len(p))
	}
	if p, err := f.eng.LoadProjects(ctx); err != nil || len(p) != 0 {
		t.Fatalf("projects: %v %d", err, len(p))
	}
	if n, err := f.eng.LoadFonts(ctx); err != nil || len(n) != 0 {
		t.Fatalf("fonts: %v %d", err, len(n))
	}
	if _, err := f.eng.SavePreset(ctx, "x"); !errors.Is(err, store.ErrNotProvisioned) {
		t.Fatalf("writes should still surface the error, got %v", err)
	}
}

func TestOwnerIsolation(t *testing.T) {
	rows := store.NewMemory(store.TableNames()...)
	alice := newFixtureWith(t, "alice", rows)
	bob := newFixtureWith(t, "bob", rows)
	ctx := context.Background()
	rec, err := alice.eng.SaveProject(ctx, "Mine")
	if err != nil {
		t.Fatal(err)
	}
	if got, _ := bob.eng.LoadProjects(ctx); len(got) != 0 {
		t.Fatalf("bob sees %d projects", len(got))
	}
	if _, err := bob.eng.OpenProject(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("open foreign project: %v", err)
	}
	if err := bob.eng.DeleteProject(ctx, rec.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("delete foreign project: %v", err)
	}
	anon := newFixtureWith(t, "", rows)
	if _, err := anon.eng.LoadPresets(ctx); !errors.Is(err, ErrNoOwner) {
		t.Fatalf("missing owner: %v", err)
	}
}

func TestOpenAndDeleteProject(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	f.scene.AddRect()
	f.scene.AddTriangle()
	rec, err := f.eng.SaveProject(ctx, "Deck")
	if err != nil {
		t.Fatal(err)
	}
	f.scene.Reset()
	if f.scene.Canvas().Len() != 1 {
		t.Fatalf("reset canvas len %d", f.scene.Canvas().Len())
	}
	if _, err := f.eng.OpenProject(ctx, rec.ID); err != nil {
		t.Fatalf("OpenProject: %v", err)
	}
	if f.scene.Canvas().Len() != 3 {
		t.Fatalf("opened canvas len %d", f.scene.Canvas().Len())
	}
	if id, _ := f.scene.Document().CurrentProject(); id != rec.ID {
		t.Fatalf("open should bind the project")
	}
	if err := f.eng.DeleteProject(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if id, _ := f.scene.Document().CurrentProject(); id != "" {
		t.Fatalf("deleting the open project should unbind it")
	}
	if f.scene.Canvas().Len() != 3 {
		t.Fatalf("delete must not clear the open document")
	}
}

func TestImportGate(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	confirm := func(s string) (string, bool) { return "Imported " + s, true }

	noMarker := []byte(`{"version":"1.0","name":"x","data":{"pages":[{"id":"p1","elements":[]}]}}`)
	_, err := f.eng.ImportPreset(ctx, noMarker, confirm)
	var ve *ValidationError
	if !errors.Is(err, ErrMissingMarker) || !errors.As(err, &ve) || ve.Message == "" {
		t.Fatalf("err = %v", err)
	}
	falseMarker := []byte(`{"__carouselPreset":false,"version":"1.0","name":"x","data":{"pages":[{}]}}`)
	if _, err := f.eng.ImportPreset(ctx, falseMarker, confirm); !errors.Is(err, ErrMissingMarker) {
		t.Fatalf("false marker: %v", err)
	}
	if _, err := f.eng.ImportPreset(ctx, []byte("not json"), confirm); !errors.Is(err, ErrMalformed) {
		t.Fatalf("garbage: %v", err)
	}
	noPages := []byte(`{"__carouselPreset":true,"version":"1.0","name":"x","data":{"pages":[]}}`)
	if _, err := f.eng.ImportPreset(ctx, noPages, confirm); !errors.Is(err, ErrSchema) {
		t.Fatalf("schema: %v", err)
	}
	if got, _ := f.eng.LoadPresets(ctx); len(got) != 0 {
		t.Fatalf("rejected imports created %d presets", len(got))
	}

	f.scene.AddCircle()
	src, err := f.eng.SavePreset(ctx, "Brand")
	if err != nil {
		t.Fatal(err)
	}
	file, err := f.eng.ExportPreset(src)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(file), `"__carouselPreset": true`) {
		t.Fatalf("marker missing from export:\n%s", file)
	}
	if _, err := f.eng.ImportPreset(ctx, file, func(string) (string, bool) { return "", false }); !errors.Is(err, ErrImportCancelled) {
		t.Fatalf("cancel: %v", err)
	}
	got, err := f.eng.ImportPreset(ctx, file, confirm)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if got.Name != "Imported Brand" || got.ID == src.ID {
		t.Fatalf("imported preset %+v", got)
	}
	all, _ := f.eng.LoadPresets(ctx)
	if len(all) != 2 {
		t.Fatalf("presets = %d, want original plus one import", len(all))
	}
}

func TestPortableFileOnDisk(t *testing.T) {
	f := newFixture(t, "alice")
	ctx := context.Background()
	p, err := f.eng.SavePreset(ctx, "Spring / Sale")
	if err != nil {
		t.Fatal(err)
	}
	dir := filepath.Join(t.TempDir(), "out")
	path, err := f.eng.WritePortableFile(dir, p)
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "Spring-Sale.preset" {
		t.Fatalf("file name %q", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatal(err)
	}
	got, err := f.eng.ImportFile(ctx, path, nil)
	if err != nil || got.Name != "Spring / Sale" {
		t.Fatalf("ImportFile: %+v %v", got, err)
	}
	if FileName("  ") != "preset.preset" {
		t.Fatalf("empty name fallback = %q", FileName("  "))
	}
}

func TestFontsPersistAndReload(t *testing.T) {
	rows := store.NewMemory(store.TableNames()...)
	f := newFixtureWith(t, "alice", rows)
	ctx := context.Background()
	if err := f.eng.SaveFont(ctx, "Brand Mono", gomono.TTF); err != nil {
		t.Fatalf("SaveFont: %v", err)
	}
	if err := f.eng.SaveFont(ctx, "Brand Mono", gomono.TTF); err != nil {
		t.Fatalf("SaveFont again: %v", err)
	}
	if err := f.eng.SaveFont(ctx, "Junk", []byte("not a font")); err == nil {
		t.Fatalf("unparseable font accepted")
	}
	stored, _ := rows.Select(ctx, store.TableFonts, store.Filter{})
	if len(stored) != 1 {
		t.Fatalf("fonts stored = %d, want 1 (upsert by owner and name)", len(stored))
	}
	if !strings.HasPrefix(stored[0].String("font_data"), "data:font/ttf;base64,") {
		t.Fatalf("font data = %.40q", stored[0].String("font_data"))
	}
	_, _ = rows.Insert(ctx, store.TableFonts, store.Row{
		"id": "broken", "owner_id": "alice", "name": "Broken", "font_data": "data:font/ttf;base64,AAAA",
	})

	fresh := newFixtureWith(t, "alice", rows)
	names, err := fresh.eng.LoadFonts(ctx)
	if err != nil {
		t.Fatalf("LoadFonts: %v", err)
	}
	if len(names) != 1 || names[0] != "Brand Mono" {
		t.Fatalf("loaded = %v", names)
	}
	if !fresh.eng.fonts.Has("brand mono") {
		t.Fatalf("font not registered")
	}
	if got := fresh.scene.Document().CustomFonts(); len(got) != 1 {
		t.Fatalf("document fonts = %v", got)
	}
}
