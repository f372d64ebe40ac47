/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"context"
	"errors"
	"testing"
	"time"

	"gocarousel/internal/document"
	"gocarousel/internal/domain"
	"gocarousel/internal/layers"
	"gocarousel/internal/undo"
	"gocarousel/internal/vector"
)

type fixedSizer struct{ w, h int }

func (f fixedSizer) Size(context.Context, string) (int, int, error) { return f.w, f.h, nil }

func newAdapter(t *testing.T) *Adapter {
	t.Helper()
	h := undo.NewHistory(undo.Config{})
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h.Now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return New(document.New(), h, fixedSizer{w: 600, h: 400})
}

func stackIDs(c *vector.Canvas) []string {
	var out []string
	for _, o := range c.Objects() {
		out = append(out, o.ID)
	}
	return out
}

func TestEmptyPageSeedsDefaultText(t *testing.T) {
	a := newAdapter(t)
	objs := a.Canvas().Objects()
	if len(objs) != 1 || objs[0].Type != domain.TypeText {
		t.Fatalf("expected seeded text, got %d objects", len(objs))
	}
	o := objs[0]
	if o.FontSize != 40 || o.FontFamily != "Inter" || o.Fill != "#000000" || o.Left != 100 || o.Top != 100 {
		t.Fatalf("seeded text defaults: %+v", o.GraphicObject)
	}
	if len(a.Layers()) != 1 {
		t.Fatalf("layers = %d", len(a.Layers()))
	}
	if n := len(a.Document().ActivePage().Elements); n != 0 {
		t.Fatalf("elements must not be written before a flush, got %d", n)
	}
	a.FlushActivePage()
	if n := len(a.Document().ActivePage().Elements); n != 1 {
		t.Fatalf("elements after flush = %d", n)
	}
}

func TestAddObjectsUseDefaultsAndSelect(t *testing.T) {
	a := newAdapter(t)
	ctx := context.Background()
	var layerCalls int
	a.OnLayers = func([]domain.LayerDescriptor) { layerCalls++ }

	r := a.AddRect()
	if r.Width != 100 || r.Height != 100 || r.Fill != AccentOrange || r.Left != 100 {
		t.Fatalf("rect defaults: %+v", r.GraphicObject)
	}
	if a.Active() != r || a.Properties() == nil || a.Properties().ID != r.ID {
		t.Fatalf("new rect should be selected with properties")
	}
	c := a.AddCircle()
	if c.Radius != 75 || c.Left != 200 || c.Top != 200 || c.Width != 150 {
		t.Fatalf("circle defaults: %+v", c.GraphicObject)
	}
	tri := a.AddTriangle()
	if tri.Left != 150 || tri.Width != 100 {
		t.Fatalf("triangle defaults: %+v", tri.GraphicObject)
	}
	img, err := a.AddImage(ctx, "data:image/png;base64,xx")
	if err != nil {
		t.Fatalf("add image: %v", err)
	}
	if w, h := img.ScaledSize(); w != 300 || h != 200 {
		t.Fatalf("image scaled size = %vx%v", w, h)
	}
	st, err := a.AddSticker(ctx, "sticker.png")
	if err != nil {
		t.Fatalf("add sticker: %v", err)
	}
	if w, _ := st.ScaledSize(); w != 150 {
		t.Fatalf("sticker width = %v", w)
	}
	if layerCalls < 5 {
		t.Fatalf("layers should refresh on every add, got %d calls", layerCalls)
	}
	d := a.Layers()
	if len(d) != a.Canvas().Len() || d[0].ID != st.ID {
		t.Fatalf("descriptors out of sync: %+v", d)
	}
}

func TestAddStrokeNormalizesToBounds(t *testing.T) {
	a := newAdapter(t)
	o, err := a.AddStroke([]vector.Pt{{X: 50, Y: 80}, {X: 150, Y: 20}, {X: 90, Y: 120}}, "#ff0000", 3)
	if err != nil {
		t.Fatal(err)
	}
	if o.Left != 50 || o.Top != 20 || o.Width != 100 || o.Height != 100 {
		t.Fatalf("stroke box: %+v", o.GraphicObject)
	}
	p, err := o.PathGeometry()
	if err != nil {
		t.Fatal(err)
	}
	if b := p.Bounds(); b.X != 0 || b.Y != 0 {
		t.Fatalf("path should be local to its box, bounds %+v", b)
	}
	if _, err := a.AddStroke([]vector.Pt{{X: 1, Y: 1}}, "", 0); err == nil {
		t.Fatalf("single point stroke should fail")
	}
	if _, err := a.AddPathData("M 10 10 A 5 5 0 0 1 20 20", "", 0); err == nil {
		t.Fatalf("arc path should be rejected")
	}
}

func TestActivationFlushesAndRestoresOrder(t *testing.T) {
	a := newAdapter(t)
	r := a.AddRect()
	c := a.AddCircle()
	before := stackIDs(a.Canvas())

	a.AddPage()
	if a.Document().Active() != 1 || a.Canvas().Len() != 1 {
		t.Fatalf("new page should be active and seeded")
	}
	if err := a.ActivatePage(0); err != nil {
		t.Fatal(err)
	}
	after := stackIDs(a.Canvas())
	if len(after) != len(before) {
		t.Fatalf("stack length %d want %d", len(after), len(before))
	}
	for i := range before {
		if before[i] != after[i] {
			t.Fatalf("stack order changed: %v -> %v", before, after)
		}
	}
	if a.Canvas().ByID(r.ID) == nil || a.Canvas().ByID(c.ID) == nil {
		t.Fatalf("objects missing after reactivation")
	}
	if a.Properties() != nil {
		t.Fatalf("activation should clear the selection snapshot")
	}
	if err := a.ActivatePage(9); err == nil {
		t.Fatalf("expected range error")
	}
}

func TestDuplicateAndDeletePages(t *testing.T) {
	a := newAdapter(t)
	a.AddRect()
	if err := a.DuplicatePage(0); err != nil {
		t.Fatal(err)
	}
	pages := a.Document().Pages()
	if len(pages) != 2 || pages[0].ID == pages[1].ID {
		t.Fatalf("duplicate ids: %+v", pages)
	}
	if len(pages[0].Elements) != 2 || len(pages[1].Elements) != 2 || a.Canvas().Len() != 2 {
		t.Fatalf("duplicate should carry the flushed canvas")
	}
	if !a.DeletePage(1) {
		t.Fatalf("delete should succeed with two pages")
	}
	if a.ActivePageID() != a.Document().ActivePage().ID {
		t.Fatalf("canvas bound to a deleted page")
	}
	if a.DeletePage(0) {
		t.Fatalf("the last page must not be deleted")
	}
}

func TestReorderKeepsLayersInSync(t *testing.T) {
	a := newAdapter(t)
	a.AddRect()
	a.AddCircle()
	d := a.Layers()
	ids := []string{d[2].ID, d[0].ID, d[1].ID}
	if err := a.Dispatch(context.Background(), ReorderLayers{IDs: ids}); err != nil {
		t.Fatal(err)
	}
	got := a.Layers()
	stack := stackIDs(a.Canvas())
	for i, l := range got {
		if l.ID != ids[i] || stack[l.ZIndex] != l.ID {
			t.Fatalf("layers %+v vs stack %v", got, stack)
		}
	}
	err := a.Dispatch(context.Background(), ReorderLayers{IDs: ids[:2]})
	if !errors.Is(err, layers.ErrNotPermutation) {
		t.Fatalf("err = %v", err)
	}
}

func TestUndoRedo(t *testing.T) {
	a := newAdapter(t)
	a.AddRect()
	a.AddCircle()
	if a.Canvas().Len() != 3 {
		t.Fatalf("len = %d", a.Canvas().Len())
	}
	if ok, err := a.Undo(); !ok || err != nil || a.Canvas().Len() != 2 {
		t.Fatalf("undo: %v %v len %d", ok, err, a.Canvas().Len())
	}
	if ok, _ := a.Undo(); !ok || a.Canvas().Len() != 1 {
		t.Fatalf("second undo len %d", a.Canvas().Len())
	}
	if ok, _ := a.Redo(); !ok || a.Canvas().Len() != 2 {
		t.Fatalf("redo len %d", a.Canvas().Len())
	}
	if len(a.Layers()) != 2 {
		t.Fatalf("layers after redo = %d", len(a.Layers()))
	}
	a.DeleteActive() // nothing selected after restore
	if a.Canvas().Len() != 2 {
		t.Fatalf("delete without selection must be a no-op")
	}
}

func TestZoomIsViewOnly(t *testing.T) {
	a := newAdapter(t)
	r := a.AddRect()
	left := r.Left
	if z := a.SetZoom(10); z != vector.MaxZoom || a.Document().Zoom() != vector.MaxZoom {
		t.Fatalf("zoom clamp: %v", z)
	}
	if a.Wheel(-100, false, vector.Pt{}) {
		t.Fatalf("wheel without modifier must not zoom")
	}
	_ = a.Dispatch(context.Background(), Pan{DX: 30, DY: 10})
	if r.Left != left {
		t.Fatalf("view changes must not touch objects")
	}
}

func TestResizeAndBackground(t *testing.T) {
	a := newAdapter(t)
	r := a.AddRect()
	if err := a.Dispatch(context.Background(), ResizeCanvas{SizeID: "story"}); err != nil {
		t.Fatal(err)
	}
	if a.Canvas().Height() != 1920 || r.Width != 100 {
		t.Fatalf("resize should change bounds only")
	}
	if err := a.ResizeCanvas("poster"); err == nil {
		t.Fatalf("expected unknown size error")
	}
	a.AddPage()
	a.SetBackground("#111111", true)
	for _, p := range a.Document().Pages() {
		if p.Background != "#111111" {
			t.Fatalf("background not applied to all pages")
		}
	}
}
