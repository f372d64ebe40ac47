/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package fonts

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
)

// LineHeightMult scales fontSize·lineHeight to the baseline-to-baseline
// distance, matching how browser canvases space text box lines.
const LineHeightMult = 1.13

// Line is one laid out line.
type Line struct {
	Text  string
	Width float64
}

// Box is the result of laying text out into a width.
type Box struct {
	Lines   []Line
	Width   float64
	Height  float64
	Ascent  float64
	Advance float64 // baseline-to-baseline distance
}

// Style holds the spacing parameters of a text object.
type Style struct {
	SizePx      float64
	CharSpacing float64 // thousandths of an em
	LineHeight  float64 // multiplier, 0 means 1
}

// Tracking is the extra advance between runes in pixels.
func (s Style) Tracking() float64 { return s.CharSpacing / 1000 * s.SizePx }

// Measure returns the advance width of s including tracking between runes.
func Measure(face font.Face, st Style, s string) float64 {
	if s == "" {
		return 0
	}
	d := &font.Drawer{Face: face}
	w := float64(d.MeasureString(s)) / 64
	if n := utf8.RuneCountInString(s); n > 1 {
		w += st.Tracking() * float64(n-1)
	}
	return w
}

// Wrap breaks text on spaces so each line fits maxWidth. Explicit newlines
// always break. A word wider than maxWidth keeps a line of its own.
// maxWidth <= 0 disables wrapping. A nil face yields an empty box.
func Wrap(face font.Face, st Style, text string, maxWidth float64) Box {
	if face == nil {
		return Box{}
	}
	lh := st.LineHeight
	if lh <= 0 {
		lh = 1
	}
	m := face.Metrics()
	box := Box{
		Ascent:  float64(m.Ascent) / 64,
		Advance: st.SizePx * lh * LineHeightMult,
	}
	add := func(s string) {
		w := Measure(face, st, s)
		box.Lines = append(box.Lines, Line{Text: s, Width: w})
		if w > box.Width {
			box.Width = w
		}
	}
	for _, para := range strings.Split(text, "\n") {
		words := strings.Split(para, " ")
		cur := ""
		for i, w := range words {
			if i == 0 {
				cur = w
				continue
			}
			next := cur + " " + w
			if maxWidth > 0 && cur != "" && Measure(face, st, next) > maxWidth {
				add(cur)
				cur = w
				continue
			}
			cur = next
		}
		add(cur)
	}
	if n := len(box.Lines); n > 0 {
		box.Height = box.Advance * float64(n)
	}
	return box
}

// LineOffset returns the x offset of a line inside a box of width w for the
// given text alignment.
func LineOffset(align string, w, lineWidth float64) float64 {
	switch align {
	case "center":
		return (w - lineWidth) / 2
	case "right":
		return w - lineWidth
	}
	return 0
}
