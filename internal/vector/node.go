/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

import (
	"gocarousel/internal/domain"
)

// Object is a live canvas item. It carries its serialized properties directly
// so that ToJSON is a plain copy, plus cached derived geometry.
type Object struct {
	domain.GraphicObject

	path    Path
	pathSrc string
}

// NewObject wraps a serialized object for placement on a canvas.
func NewObject(g domain.GraphicObject) *Object {
	o := &Object{GraphicObject: g.Clone()}
	if o.Type == domain.TypeCircle && o.Radius > 0 {
		o.Width, o.Height = 2*o.Radius, 2*o.Radius
	}
	return o
}

// Snapshot returns a deep copy of the serialized state.
func (o *Object) Snapshot() domain.GraphicObject { return o.GraphicObject.Clone() }

// Transform maps local object coordinates (0..Width, 0..Height) to canvas space:
// translate to (left, top), rotate by angle, scale, then flip about the centre.
func (o *Object) Transform() Affine2D {
	w, h := o.Width, o.Height
	fx, fy := 1.0, 1.0
	if o.FlipX {
		fx = -1
	}
	if o.FlipY {
		fy = -1
	}
	sx, sy := o.ScaleX, o.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	m := Translate(o.Left, o.Top).Mul(RotateDeg(o.Angle)).Mul(Scale(sx, sy))
	if fx < 0 || fy < 0 {
		m = m.Mul(Translate(w/2, h/2)).Mul(Scale(fx, fy)).Mul(Translate(-w/2, -h/2))
	}
	return m
}

// LocalRect is the untransformed box of the object.
func (o *Object) LocalRect() Rect { return R(0, 0, o.Width, o.Height) }

// Bounds returns the axis-aligned bounds in canvas space.
func (o *Object) Bounds() Rect { return TransformRect(o.Transform(), o.LocalRect()) }

// PathGeometry returns the parsed path for path objects. Parsing is cached per source string.
func (o *Object) PathGeometry() (Path, error) {
	if o.pathSrc == o.Path && o.path.Cmds != nil {
		return o.path, nil
	}
	p, err := ParsePathData(o.Path)
	if err != nil {
		return Path{}, err
	}
	o.path, o.pathSrc = p, o.Path
	return p, nil
}

// Hit reports whether canvas point p falls on the object.
func (o *Object) Hit(p Pt) bool {
	if !o.Visible {
		return false
	}
	q := o.Transform().Invert().Apply(p)
	r := o.LocalRect()
	switch o.Type {
	case domain.TypeCircle:
		return hitEllipse(r, q)
	case domain.TypeTriangle:
		return hitTriangle(r, q)
	case domain.TypeRect:
		if o.CornerRadius > 0 {
			return hitRoundedRect(r, o.CornerRadius, q)
		}
	}
	return r.Contains(q)
}

func hitEllipse(r Rect, q Pt) bool {
	// point-in-ellipse: ((x-cx)/rx)^2 + ((y-cy)/ry)^2 <= 1
	rx, ry := r.W/2, r.H/2
	if rx == 0 || ry == 0 {
		return false
	}
	dx := (q.X - r.X - rx) / rx
	dy := (q.Y - r.Y - ry) / ry
	return dx*dx+dy*dy <= 1
}

// hitTriangle tests against an isosceles triangle with apex at top centre.
func hitTriangle(r Rect, q Pt) bool {
	a := Pt{r.X + r.W/2, r.Y}
	b := Pt{r.X + r.W, r.Y + r.H}
	c := Pt{r.X, r.Y + r.H}
	sign := func(p1, p2, p3 Pt) float64 {
		return (p1.X-p3.X)*(p2.Y-p3.Y) - (p2.X-p3.X)*(p1.Y-p3.Y)
	}
	d1, d2, d3 := sign(q, a, b), sign(q, b, c), sign(q, c, a)
	neg := d1 < 0 || d2 < 0 || d3 < 0
	pos := d1 > 0 || d2 > 0 || d3 > 0
	return !(neg && pos)
}

func hitRoundedRect(rect Rect, radius float64, q Pt) bool {
	if !rect.Contains(q) {
		return false
	}
	// If inside the core (rect inset by r), it's a hit
	core := rect.Inset(radius, radius)
	if core.W > 0 && core.H > 0 && (core.Contains(q) ||
		(q.X >= core.X && q.X <= core.X+core.W) || (q.Y >= core.Y && q.Y <= core.Y+core.H)) {
		return true
	}
	// Otherwise test the four quarter-circles
	cx := []float64{rect.X + radius, rect.X + rect.W - radius}
	cy := []float64{rect.Y + radius, rect.Y + rect.H - radius}
	r2 := radius * radius
	for _, x := range cx {
		for _, y := range cy {
			dx := q.X - x
			dy := q.Y - y
			if dx*dx+dy*dy <= r2 {
				return true
			}
		}
	}
	return false
}
