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
	"gocarousel/internal/fonts"
)

// Default styling of newly added objects.
const (
	AccentOrange     = "#F97316"
	DefaultTextColor = "#000000"
	DefaultFont      = "Inter"
	DefaultFontSize  = 40.0
	DefaultText      = "Your text here"
	DefaultTextWidth = 300.0

	ImageTargetWidth   = 300.0
	StickerTargetWidth = 150.0
	DefaultBrushWidth  = 4.0
)

func base(t domain.ObjectType, left, top, w, h float64) domain.GraphicObject {
	return domain.GraphicObject{
		Type:    t,
		Left:    left,
		Top:     top,
		Width:   w,
		Height:  h,
		ScaleX:  1,
		ScaleY:  1,
		Opacity: 1,
		Visible: true,
		Stroke:  domain.Stroke{PaintOrder: domain.PaintInner},
	}
}

// DefaultTextObject is the editable text placed by "add text" and seeded
// into empty pages.
func DefaultTextObject(text string) domain.GraphicObject {
	if text == "" {
		text = DefaultText
	}
	o := base(domain.TypeText, 100, 100, DefaultTextWidth, DefaultFontSize*fonts.LineHeightMult)
	o.Text = text
	o.SourceText = text
	o.TextCase = domain.CaseNormal
	o.Fill = DefaultTextColor
	o.FontFamily = DefaultFont
	o.FontSize = DefaultFontSize
	o.FontWeight = "normal"
	o.FontStyle = "normal"
	o.TextAlign = "left"
	o.LineHeight = 1
	return o
}

func DefaultRect() domain.GraphicObject {
	o := base(domain.TypeRect, 100, 100, 100, 100)
	o.Fill = AccentOrange
	return o
}

func DefaultCircle() domain.GraphicObject {
	o := base(domain.TypeCircle, 200, 200, 150, 150)
	o.Radius = 75
	o.Fill = AccentOrange
	return o
}

func DefaultTriangle() domain.GraphicObject {
	o := base(domain.TypeTriangle, 150, 150, 100, 100)
	o.Fill = AccentOrange
	return o
}

// scaledImage places an image of natural size w×h at (100,100), scaled so its
// rendered width equals target. Aspect ratio is kept.
func scaledImage(t domain.ObjectType, src string, w, h int, target float64) domain.GraphicObject {
	o := base(t, 100, 100, float64(w), float64(h))
	o.Src = src
	if w > 0 {
		s := target / float64(w)
		o.ScaleX, o.ScaleY = s, s
	}
	return o
}
