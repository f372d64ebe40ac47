/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package properties applies property panel edits to the selected canvas
// object. Every control writes straight through and requests a render.
package properties

import (
	"errors"
	"fmt"
	"math"

	"gocarousel/internal/domain"
	"gocarousel/internal/vector"
)

var (
	// ErrNoSelection is returned when no object is active.
	ErrNoSelection = errors.New("no object selected")
	// ErrNotApplicable is returned when a property does not exist on the selected variant.
	ErrNotApplicable = errors.New("property not applicable to object")
)

// Control ranges.
const (
	MaxStrokeWidth  = 20.0
	MaxCornerRadius = 100.0
)

// Target is the scene the editor works on.
type Target interface {
	Canvas() *vector.Canvas
	// Checkpoint records an undo step before a change. Quick repeats with
	// the same non-empty key share one step.
	Checkpoint(key string)
	// RefreshLayers re-derives layer descriptors after stack changes.
	RefreshLayers()
}

// Editor mutates the active object of a Target.
type Editor struct {
	t Target
}

func New(t Target) *Editor { return &Editor{t: t} }

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

// edit runs fn on the active object and announces the change. prop keys the
// undo step so rapid changes to one property of one object undo together.
func (e *Editor) edit(prop string, only []domain.ObjectType, fn func(o *vector.Object)) error {
	c := e.t.Canvas()
	o := c.Active()
	if o == nil {
		return ErrNoSelection
	}
	if len(only) > 0 {
		ok := false
		for _, t := range only {
			ok = ok || o.Type == t
		}
		if !ok {
			return fmt.Errorf("%s: %w", o.Type, ErrNotApplicable)
		}
	}
	e.t.Checkpoint(prop + ":" + o.ID)
	fn(o)
	c.Modified(o)
	return nil
}

var textOnly = []domain.ObjectType{domain.TypeText}

// Typography

func (e *Editor) SetFontFamily(f string) error {
	return e.edit("fontFamily", textOnly, func(o *vector.Object) { o.FontFamily = f })
}

func (e *Editor) SetFontSize(px float64) error {
	if px <= 0 {
		return fmt.Errorf("font size %v must be positive", px)
	}
	return e.edit("fontSize", textOnly, func(o *vector.Object) { o.FontSize = px })
}

func (e *Editor) SetFontWeight(w string) error {
	return e.edit("fontWeight", textOnly, func(o *vector.Object) { o.FontWeight = w })
}

func (e *Editor) SetFontStyle(s string) error {
	return e.edit("fontStyle", textOnly, func(o *vector.Object) { o.FontStyle = s })
}

func (e *Editor) SetTextAlign(a string) error {
	switch a {
	case "left", "center", "right", "justify":
	default:
		return fmt.Errorf("text align %q", a)
	}
	return e.edit("textAlign", textOnly, func(o *vector.Object) { o.TextAlign = a })
}

// SetCharSpacing sets tracking in thousandths of an em.
func (e *Editor) SetCharSpacing(v float64) error {
	return e.edit("charSpacing", textOnly, func(o *vector.Object) { o.CharSpacing = v })
}

func (e *Editor) SetLineHeight(v float64) error {
	if v <= 0 {
		return fmt.Errorf("line height %v must be positive", v)
	}
	return e.edit("lineHeight", textOnly, func(o *vector.Object) { o.LineHeight = v })
}

// SetText replaces the text content. The typed string is kept as the
// case-preserving source and the current case is applied on top.
func (e *Editor) SetText(s string) error {
	return e.edit("text", textOnly, func(o *vector.Object) {
		o.SourceText = s
		o.Text = domain.ApplyCase(s, o.TextCase)
	})
}

// SetTextCase rewrites the stored text in the given case. Switching back to
// normal restores the source text.
func (e *Editor) SetTextCase(c domain.TextCase) error {
	switch c {
	case domain.CaseNormal, domain.CaseUpper, domain.CaseLower:
	default:
		return fmt.Errorf("text case %q", c)
	}
	return e.edit("textCase", textOnly, func(o *vector.Object) {
		if o.SourceText == "" {
			o.SourceText = o.Text
		}
		o.TextCase = c
		o.Text = domain.ApplyCase(o.SourceText, c)
	})
}

// Paint

func (e *Editor) SetFill(color string) error {
	if _, err := domain.ParseColor(color); err != nil {
		return err
	}
	return e.edit("fill", nil, func(o *vector.Object) { o.Fill = color })
}

// SetStroke sets the outline. Width is clamped to the control range.
func (e *Editor) SetStroke(width float64, color string, order domain.PaintOrder) error {
	switch order {
	case domain.PaintInner, domain.PaintOuter, domain.PaintMiddle:
	case "":
		order = domain.PaintInner
	default:
		return fmt.Errorf("paint order %q", order)
	}
	return e.edit("stroke", nil, func(o *vector.Object) {
		o.Stroke = domain.Stroke{Width: clamp(width, 0, MaxStrokeWidth), Color: color, PaintOrder: order}
	})
}

// SetShadow applies a shadow; nil removes it.
func (e *Editor) SetShadow(s *domain.Shadow) error {
	return e.edit("shadow", nil, func(o *vector.Object) {
		if s == nil {
			o.Shadow = nil
			return
		}
		cp := *s
		cp.Opacity = clamp(cp.Opacity, 0, 1)
		cp.Blur = math.Max(0, cp.Blur)
		o.Shadow = &cp
	})
}

// SetCornerRadius rounds a rect's corners, clamped to the control range.
func (e *Editor) SetCornerRadius(r float64) error {
	return e.edit("cornerRadius", []domain.ObjectType{domain.TypeRect}, func(o *vector.Object) {
		o.CornerRadius = clamp(r, 0, MaxCornerRadius)
	})
}

// Transform

func (e *Editor) SetFlipX(v bool) error { return e.edit("flipX", nil, func(o *vector.Object) { o.FlipX = v }) }
func (e *Editor) SetFlipY(v bool) error { return e.edit("flipY", nil, func(o *vector.Object) { o.FlipY = v }) }

// SetAngle sets an absolute rotation in degrees.
func (e *Editor) SetAngle(deg float64) error {
	return e.edit("angle", nil, func(o *vector.Object) { o.Angle = math.Mod(deg, 360) })
}

func (e *Editor) SetOpacity(v float64) error {
	return e.edit("opacity", nil, func(o *vector.Object) { o.Opacity = clamp(v, 0, 1) })
}

// Arrangement

// ZAction is a stacking change.
type ZAction string

const (
	Front    ZAction = "front"
	Back     ZAction = "back"
	Forward  ZAction = "forward"
	Backward ZAction = "backward"
)

// Arrange restacks the active object and re-derives layers from the canvas.
func (e *Editor) Arrange(a ZAction) error {
	c := e.t.Canvas()
	o := c.Active()
	if o == nil {
		return ErrNoSelection
	}
	switch a {
	case Front, Back, Forward, Backward:
	default:
		return fmt.Errorf("z action %q", a)
	}
	e.t.Checkpoint("")
	switch a {
	case Front:
		c.BringToFront(o)
	case Back:
		c.SendToBack(o)
	case Forward:
		c.BringForward(o)
	case Backward:
		c.SendBackwards(o)
	}
	e.t.RefreshLayers()
	return nil
}
