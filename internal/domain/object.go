/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"strings"
)

// ObjectType discriminates the GraphicObject variants.
type ObjectType string

const (
	TypeText     ObjectType = "text"
	TypeRect     ObjectType = "rect"
	TypeCircle   ObjectType = "circle"
	TypeTriangle ObjectType = "triangle"
	TypeImage    ObjectType = "image"
	TypePath     ObjectType = "path"
	TypeSticker  ObjectType = "sticker"
)

// PaintOrder controls where the stroke sits relative to the fill.
type PaintOrder string

const (
	PaintInner  PaintOrder = "inner"
	PaintOuter  PaintOrder = "outer"
	PaintMiddle PaintOrder = "middle"
)

// TextCase is the case transform applied to a text object's content.
type TextCase string

const (
	CaseNormal TextCase = "normal"
	CaseUpper  TextCase = "uppercase"
	CaseLower  TextCase = "lowercase"
)

// Stroke is the outline of an object. Width 0 means no stroke.
type Stroke struct {
	Width      float64    `json:"width"`
	Color      string     `json:"color"`
	PaintOrder PaintOrder `json:"paintOrder"`
}

// StrokeBelowFill reports whether the stroke is painted before the fill.
// Only the outer paint order puts the stroke underneath.
func (s Stroke) StrokeBelowFill() bool { return s.PaintOrder == PaintOuter }

// Shadow is the stored, user-facing drop shadow description.
type Shadow struct {
	Blur         float64 `json:"blur"`
	Color        string  `json:"color"`
	Opacity      float64 `json:"opacity"`
	AngleDegrees float64 `json:"angleDegrees"`
	DistancePx   float64 `json:"distancePx"`
}

// GraphicObject is the serialized form of one drawn object.
// Fields that do not apply to a variant are left at their zero value.
type GraphicObject struct {
	ID      string     `json:"id"`
	Type    ObjectType `json:"type"`
	Name    string     `json:"name,omitempty"`
	Left    float64    `json:"left"`
	Top     float64    `json:"top"`
	Width   float64    `json:"width"`
	Height  float64    `json:"height"`
	ScaleX  float64    `json:"scaleX"`
	ScaleY  float64    `json:"scaleY"`
	Angle   float64    `json:"angle"`
	FlipX   bool       `json:"flipX"`
	FlipY   bool       `json:"flipY"`
	Opacity float64    `json:"opacity"`
	Fill    string     `json:"fill"`
	Stroke  Stroke     `json:"stroke"`
	Shadow  *Shadow    `json:"shadow,omitempty"`
	Visible bool       `json:"visible"`
	Locked  bool       `json:"locked,omitempty"`

	// text
	Text        string   `json:"text,omitempty"`
	SourceText  string   `json:"sourceText,omitempty"`
	TextCase    TextCase `json:"textCase,omitempty"`
	FontFamily  string   `json:"fontFamily,omitempty"`
	FontSize    float64  `json:"fontSize,omitempty"`
	FontWeight  string   `json:"fontWeight,omitempty"`
	FontStyle   string   `json:"fontStyle,omitempty"`
	TextAlign   string   `json:"textAlign,omitempty"`
	CharSpacing float64  `json:"charSpacing,omitempty"`
	LineHeight  float64  `json:"lineHeight,omitempty"`

	// rect
	CornerRadius float64 `json:"cornerRadius,omitempty"`
	// circle
	Radius float64 `json:"radius,omitempty"`
	// image, sticker
	Src string `json:"src,omitempty"`
	// path
	Path string `json:"path,omitempty"`
}

// UnmarshalJSON fills defaults for fields an older or hand-written document may omit.
func (o *GraphicObject) UnmarshalJSON(b []byte) error {
	type plain GraphicObject
	p := plain{Visible: true, Opacity: 1, ScaleX: 1, ScaleY: 1}
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	*o = GraphicObject(p)
	return nil
}

// Clone returns a deep copy.
func (o GraphicObject) Clone() GraphicObject {
	out := o
	if o.Shadow != nil {
		s := *o.Shadow
		out.Shadow = &s
	}
	return out
}

// CloneObjects deep-copies a slice of objects. The result is never nil so a
// serialized page always carries "elements": [].
func CloneObjects(in []GraphicObject) []GraphicObject {
	out := make([]GraphicObject, len(in))
	for i, o := range in {
		out[i] = o.Clone()
	}
	return out
}

// ScaledSize returns the on-canvas size after scaling.
func (o GraphicObject) ScaledSize() (w, h float64) {
	return o.Width * abs(o.ScaleX), o.Height * abs(o.ScaleY)
}

// DisplayName derives a layer name when the object has none.
func (o GraphicObject) DisplayName() string {
	if o.Name != "" {
		return o.Name
	}
	if o.Type == TypeText {
		t := strings.TrimSpace(strings.ReplaceAll(o.Text, "\n", " "))
		if r := []rune(t); len(r) > 24 {
			t = string(r[:24]) + "…"
		}
		if t != "" {
			return t
		}
	}
	s := string(o.Type)
	if s == "" {
		return "Object"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// ApplyCase returns s transformed by c.
func ApplyCase(s string, c TextCase) string {
	switch c {
	case CaseUpper:
		return strings.ToUpper(s)
	case CaseLower:
		return strings.ToLower(s)
	default:
		return s
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
