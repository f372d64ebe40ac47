/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"gocarousel/internal/domain"
	"gocarousel/internal/vector"
)

// ActiveProperties is the control state for the selected object.
type ActiveProperties struct {
	ID   string
	Type domain.ObjectType

	Opacity float64
	Angle   float64
	FlipX   bool
	FlipY   bool
	Fill    string
	Stroke  domain.Stroke
	Shadow  domain.Shadow
	// HasShadow is false when the object carries no shadow; Shadow then holds control defaults.
	HasShadow bool

	TextAlign   string
	FontFamily  string
	FontSize    float64
	FontWeight  string
	FontStyle   string
	CharSpacing float64
	LineHeight  float64
	TextCase    domain.TextCase

	CornerRadius float64
}

// DefaultShadow seeds the shadow controls for objects without one.
var DefaultShadow = domain.Shadow{Blur: 10, Color: "#000000", Opacity: 0.5, AngleDegrees: 45, DistancePx: 10}

func snapshotProps(o *vector.Object) *ActiveProperties {
	if o == nil {
		return nil
	}
	p := &ActiveProperties{
		ID:           o.ID,
		Type:         o.Type,
		Opacity:      o.Opacity,
		Angle:        o.Angle,
		FlipX:        o.FlipX,
		FlipY:        o.FlipY,
		Fill:         o.Fill,
		Stroke:       o.Stroke,
		Shadow:       DefaultShadow,
		TextAlign:    o.TextAlign,
		FontFamily:   o.FontFamily,
		FontSize:     o.FontSize,
		FontWeight:   o.FontWeight,
		FontStyle:    o.FontStyle,
		CharSpacing:  o.CharSpacing,
		LineHeight:   o.LineHeight,
		TextCase:     o.TextCase,
		CornerRadius: o.CornerRadius,
	}
	if o.Shadow != nil {
		p.Shadow, p.HasShadow = *o.Shadow, true
	}
	if p.TextCase == "" && o.Type == domain.TypeText {
		p.TextCase = domain.CaseNormal
	}
	return p
}
