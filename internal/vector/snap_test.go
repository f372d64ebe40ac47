/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"testing"

	"gocarousel/internal/domain"
)

func TestComputeSmartGuides_SnapToFrameEdges(t *testing.T) {
	frame := Rect{X: 0, Y: 0, W: 200, H: 100}
	moving := Rect{X: 3, Y: 4, W: 80, H: 40}
	opts := SnapOptions{Threshold: 6, SnapToEdges: true}

	snapped, guides := ComputeSmartGuides(moving, []Anchor{{Rect: frame, Weight: 1}}, opts)
	if snapped.X != 0 || snapped.Y != 0 {
		t.Fatalf("expected snap to 0,0, got %+v", snapped)
	}
	var vOK, hOK bool
	for _, g := range guides {
		if g.Orientation == "vertical" && g.Position == 0 {
			vOK = true
		}
		if g.Orientation == "horizontal" && g.Position == 0 {
			hOK = true
		}
	}
	if !vOK || !hOK {
		t.Fatalf("expected guides at x=0 (%v) and y=0 (%v)", vOK, hOK)
	}
}

func TestComputeSmartGuides_SnapToCenters(t *testing.T) {
	frame := Rect{X: 0, Y: 0, W: 200, H: 100}
	moving := Rect{X: 48, Y: 17, W: 100, H: 60}
	snapped, guides := ComputeSmartGuides(moving, []Anchor{{Rect: frame, Weight: 1}}, SnapOptions{Threshold: 5, SnapToCenters: true})
	if snapped.X != 50 || snapped.Y != 20 {
		t.Fatalf("expected centre snap to 50,20, got %+v", snapped)
	}
	if len(guides) != 2 || guides[0].Kind != "center" {
		t.Fatalf("unexpected guides: %+v", guides)
	}
}

func TestComputeSmartGuides_ThresholdPreventsSnap(t *testing.T) {
	frame := Rect{X: 0, Y: 0, W: 200, H: 100}
	moving := Rect{X: 10, Y: 10, W: 50, H: 20}
	snapped, guides := ComputeSmartGuides(moving, []Anchor{{Rect: frame, Weight: 1}}, SnapOptions{Threshold: 5, SnapToEdges: true})
	if snapped != moving || len(guides) != 0 {
		t.Fatalf("expected no snapping; got %+v %v", snapped, guides)
	}
}

func TestCanvasMoveBySnapsToOtherObject(t *testing.T) {
	c := NewCanvas(1080, 1350)
	a := NewObject(domain.GraphicObject{Type: domain.TypeRect, Left: 300, Top: 300, Width: 100, Height: 100, ScaleX: 1, ScaleY: 1, Visible: true})
	b := NewObject(domain.GraphicObject{Type: domain.TypeRect, Left: 500, Top: 700, Width: 50, Height: 50, ScaleX: 1, ScaleY: 1, Visible: true})
	c.Add(a, b)
	modified := 0
	c.On(EventObjectModified, func(Event) { modified++ })

	// drag b so its left edge lands 3px right of a's right edge (400)
	guides := c.MoveBy(b, -97, 0, &DefaultSnap)
	if b.Left != 400 {
		t.Fatalf("expected snap to x=400, got %v", b.Left)
	}
	if len(guides) == 0 || modified != 1 {
		t.Fatalf("guides=%v modified=%d", guides, modified)
	}
	b.Locked = true
	if g := c.MoveBy(b, 10, 10, nil); g != nil || b.Left != 400 {
		t.Fatalf("locked object moved")
	}
}
