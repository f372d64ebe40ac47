/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package properties

import (
	"errors"
	"testing"
	"time"

	"gocarousel/internal/document"
	"gocarousel/internal/domain"
	"gocarousel/internal/scene"
	"gocarousel/internal/undo"
)

func setup(t *testing.T) (*scene.Adapter, *Editor) {
	t.Helper()
	a := scene.New(document.New(), nil, nil)
	return a, New(a)
}

func TestNoSelection(t *testing.T) {
	a, e := setup(t)
	a.Canvas().DiscardActive()
	if err := e.SetOpacity(0.5); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("err = %v", err)
	}
	if err := e.Arrange(Front); !errors.Is(err, ErrNoSelection) {
		t.Fatalf("arrange err = %v", err)
	}
}

func TestWritesGoStraightToObjectAndRender(t *testing.T) {
	a, e := setup(t)
	r := a.AddRect()
	renders := a.Canvas().RenderCount()
	if err := e.SetOpacity(1.7); err != nil || r.Opacity != 1 {
		t.Fatalf("opacity clamp: %v %v", r.Opacity, err)
	}
	if a.Canvas().RenderCount() <= renders {
		t.Fatalf("edit must request a render")
	}
	if err := e.SetAngle(45); err != nil || r.Angle != 45 {
		t.Fatalf("angle: %v", r.Angle)
	}
	if err := e.SetAngle(45); err != nil || r.Angle != 45 {
		t.Fatalf("rotation must be absolute, got %v", r.Angle)
	}
	_ = e.SetFlipX(true)
	if !r.FlipX || a.Properties() == nil || !a.Properties().FlipX {
		t.Fatalf("flip should reach object and properties snapshot")
	}
	if err := e.SetCornerRadius(250); err != nil || r.CornerRadius != MaxCornerRadius {
		t.Fatalf("corner radius clamp: %v %v", r.CornerRadius, err)
	}
	if err := e.SetFill("#123456"); err != nil || r.Fill != "#123456" {
		t.Fatalf("fill: %v", err)
	}
	if err := e.SetFill("nope("); err == nil {
		t.Fatalf("bad colour accepted")
	}
}

func TestStrokeClampAndPaintOrder(t *testing.T) {
	a, e := setup(t)
	r := a.AddRect()
	if err := e.SetStroke(35, "#000", domain.PaintOuter); err != nil {
		t.Fatal(err)
	}
	if r.Stroke.Width != MaxStrokeWidth || !r.Stroke.StrokeBelowFill() {
		t.Fatalf("stroke: %+v", r.Stroke)
	}
	_ = e.SetStroke(-3, "#000", domain.PaintMiddle)
	if r.Stroke.Width != 0 || r.Stroke.StrokeBelowFill() {
		t.Fatalf("stroke: %+v", r.Stroke)
	}
	if err := e.SetStroke(1, "#000", "sideways"); err == nil {
		t.Fatalf("unknown paint order accepted")
	}
}

func TestCornerRadiusOnlyOnRect(t *testing.T) {
	a, e := setup(t)
	a.AddCircle()
	if err := e.SetCornerRadius(10); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("err = %v", err)
	}
	if err := e.SetFontSize(20); !errors.Is(err, ErrNotApplicable) {
		t.Fatalf("font on circle err = %v", err)
	}
}

func TestShadowClamp(t *testing.T) {
	a, e := setup(t)
	r := a.AddRect()
	if err := e.SetShadow(&domain.Shadow{Blur: -2, Opacity: 3, Color: "#ff0000", DistancePx: 5}); err != nil {
		t.Fatal(err)
	}
	if r.Shadow == nil || r.Shadow.Blur != 0 || r.Shadow.Opacity != 1 {
		t.Fatalf("shadow clamp: %+v", r.Shadow)
	}
	if !a.Properties().HasShadow {
		t.Fatalf("properties should reflect the shadow")
	}
	_ = e.SetShadow(nil)
	if r.Shadow != nil {
		t.Fatalf("shadow not removed")
	}
}

func TestTextCaseRestoresSource(t *testing.T) {
	a, e := setup(t)
	o := a.AddText("Hello World")
	if err := e.SetTextCase(domain.CaseUpper); err != nil || o.Text != "HELLO WORLD" {
		t.Fatalf("upper: %q %v", o.Text, err)
	}
	_ = e.SetTextCase(domain.CaseLower)
	if o.Text != "hello world" {
		t.Fatalf("lower: %q", o.Text)
	}
	_ = e.SetTextCase(domain.CaseNormal)
	if o.Text != "Hello World" {
		t.Fatalf("normal should restore the original, got %q", o.Text)
	}
	_ = e.SetTextCase(domain.CaseUpper)
	_ = e.SetText("New copy")
	if o.Text != "NEW COPY" || o.SourceText != "New copy" {
		t.Fatalf("set text under uppercase: %q / %q", o.Text, o.SourceText)
	}
	if err := e.SetTextAlign("diagonal"); err == nil {
		t.Fatalf("bad alignment accepted")
	}
	if err := e.SetCharSpacing(120); err != nil || o.CharSpacing != 120 {
		t.Fatalf("char spacing: %v", err)
	}
}

func TestArrangeRegeneratesLayers(t *testing.T) {
	a, e := setup(t)
	r := a.AddRect()
	a.AddCircle()
	a.Select(r.ID)
	if err := e.Arrange(Front); err != nil {
		t.Fatal(err)
	}
	if l := a.Layers(); l[0].ID != r.ID || l[0].ZIndex != a.Canvas().Len()-1 {
		t.Fatalf("front: %+v", l)
	}
	_ = e.Arrange(Back)
	if a.Canvas().IndexOf(r) != 0 || a.Layers()[len(a.Layers())-1].ID != r.ID {
		t.Fatalf("back: %+v", a.Layers())
	}
	_ = e.Arrange(Forward)
	if a.Canvas().IndexOf(r) != 1 {
		t.Fatalf("forward index = %d", a.Canvas().IndexOf(r))
	}
	_ = e.Arrange(Backward)
	if a.Canvas().IndexOf(r) != 0 {
		t.Fatalf("backward index = %d", a.Canvas().IndexOf(r))
	}
	if err := e.Arrange("sideways"); err == nil {
		t.Fatalf("unknown action accepted")
	}
}

func TestQuickEditsUndoPerProperty(t *testing.T) {
	h := undo.NewHistory(undo.Config{})
	clock := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	h.Now = func() time.Time {
		clock = clock.Add(10 * time.Millisecond)
		return clock
	}
	a := scene.New(document.New(), h, nil)
	e := New(a)
	id := a.AddRect().ID

	for _, c := range []string{"#111111", "#222222", "#333333"} {
		if err := e.SetFill(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.SetOpacity(0.4); err != nil {
		t.Fatal(err)
	}

	if ok, err := a.Undo(); !ok || err != nil {
		t.Fatalf("undo opacity: %v %v", ok, err)
	}
	r := a.Canvas().ByID(id)
	if r == nil || r.Opacity != 1 || r.Fill != "#333333" {
		t.Fatalf("after first undo: %+v", r)
	}
	if ok, _ := a.Undo(); !ok {
		t.Fatalf("undo fill")
	}
	if r = a.Canvas().ByID(id); r == nil || r.Fill == "#333333" || r.Fill == "#222222" || r.Fill == "#111111" {
		t.Fatalf("fill edits should undo as one step: %+v", r)
	}
}
