/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Snapping for object drags: a moving box is aligned to the canvas frame and
// to the other objects on the page, independently on each axis.

import "math"

// SnapOptions controls which guide candidates are considered and the threshold.
type SnapOptions struct {
	// Threshold is the maximum distance in canvas pixels at which snapping occurs.
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// DefaultSnap is used by interactive drags.
var DefaultSnap = SnapOptions{Threshold: 6, SnapToEdges: true, SnapToCenters: true}

// Anchor is a static reference box. Higher Weight wins ties.
type Anchor struct {
	Rect   Rect
	Weight float64
}

// GuideLine describes a visual guide generated during a snap alignment.
// Orientation is "vertical" or "horizontal"; Kind is "edge" or "center".
type GuideLine struct {
	Orientation string
	Kind        string
	Position    float64
	From        Pt
	To          Pt
}

// ComputeSmartGuides returns moving snapped against anchors plus the guides to draw.
func ComputeSmartGuides(moving Rect, anchors []Anchor, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	xs := axisSnap{best: math.Inf(1)}
	ys := axisSnap{best: math.Inf(1)}

	mxL, mxR, mxCX := moving.X, moving.X+moving.W, moving.X+moving.W/2
	myT, myB, myCY := moving.Y, moving.Y+moving.H, moving.Y+moving.H/2

	for _, a := range anchors {
		aL, aR, aCX := a.Rect.X, a.Rect.X+a.Rect.W, a.Rect.X+a.Rect.W/2
		aT, aB, aCY := a.Rect.Y, a.Rect.Y+a.Rect.H, a.Rect.Y+a.Rect.H/2
		vg := func(x float64, kind string) GuideLine { return guideForVertical(x, moving, a.Rect, kind) }
		hg := func(y float64, kind string) GuideLine { return guideForHorizontal(y, moving, a.Rect, kind) }
		if opts.SnapToEdges {
			// same edge, then abutting edge
			xs.consider(mxL-aL, opts.Threshold, a.Weight, vg(aL, "edge"))
			xs.consider(mxR-aR, opts.Threshold, a.Weight, vg(aR, "edge"))
			xs.consider(mxL-aR, opts.Threshold, a.Weight, vg(aR, "edge"))
			xs.consider(mxR-aL, opts.Threshold, a.Weight, vg(aL, "edge"))
			ys.consider(myT-aT, opts.Threshold, a.Weight, hg(aT, "edge"))
			ys.consider(myB-aB, opts.Threshold, a.Weight, hg(aB, "edge"))
			ys.consider(myT-aB, opts.Threshold, a.Weight, hg(aB, "edge"))
			ys.consider(myB-aT, opts.Threshold, a.Weight, hg(aT, "edge"))
		}
		if opts.SnapToCenters {
			xs.consider(mxCX-aCX, opts.Threshold, a.Weight, vg(aCX, "center"))
			ys.consider(myCY-aCY, opts.Threshold, a.Weight, hg(aCY, "center"))
		}
	}

	var guides []GuideLine
	snapped := moving
	if xs.ok {
		snapped.X = FloatRound(moving.X-xs.delta, 3)
		guides = append(guides, xs.guide)
	}
	if ys.ok {
		snapped.Y = FloatRound(moving.Y-ys.delta, 3)
		guides = append(guides, ys.guide)
	}
	return snapped, guides
}

type axisSnap struct {
	ok    bool
	best  float64
	delta float64
	guide GuideLine
}

func (s *axisSnap) consider(delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if score < s.best {
		s.ok, s.best, s.delta, s.guide = true, score, delta, g
	}
}

func guideForVertical(x float64, a, b Rect, kind string) GuideLine {
	minY := math.Min(a.Y, b.Y)
	maxY := math.Max(a.Y+a.H, b.Y+b.H)
	x = FloatRound(x, 3)
	return GuideLine{Orientation: "vertical", Kind: kind, Position: x, From: Pt{x, minY}, To: Pt{x, maxY}}
}

func guideForHorizontal(y float64, a, b Rect, kind string) GuideLine {
	minX := math.Min(a.X, b.X)
	maxX := math.Max(a.X+a.W, b.X+b.W)
	y = FloatRound(y, 3)
	return GuideLine{Orientation: "horizontal", Kind: kind, Position: y, From: Pt{minX, y}, To: Pt{maxX, y}}
}

// MoveBy drags o by dx,dy canvas pixels. With snapping enabled the result is
// aligned to the canvas frame (weight 2) and to other visible objects.
// Locked objects do not move. A modified event is emitted on change.
func (c *Canvas) MoveBy(o *Object, dx, dy float64, snap *SnapOptions) []GuideLine {
	if o == nil || o.Locked || c.IndexOf(o) < 0 {
		return nil
	}
	o.Left += dx
	o.Top += dy
	var guides []GuideLine
	if snap != nil {
		b := o.Bounds()
		anchors := []Anchor{{Rect: R(0, 0, c.width, c.height), Weight: 2}}
		for _, other := range c.objects {
			if other != o && other.Visible {
				anchors = append(anchors, Anchor{Rect: other.Bounds(), Weight: 1})
			}
		}
		var snapped Rect
		snapped, guides = ComputeSmartGuides(b, anchors, *snap)
		o.Left += snapped.X - b.X
		o.Top += snapped.Y - b.Y
	}
	c.Modified(o)
	return guides
}
