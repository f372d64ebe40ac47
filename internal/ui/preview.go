/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"math"

	"gocarousel/internal/domain"
	"gocarousel/internal/vector"
)

// fit places a page of pageW x pageH centred inside a view of viewW x viewH
// and returns its origin and scale.
func fit(viewW, viewH, pageW, pageH float64) (x, y, scale float64) {
	if pageW <= 0 || pageH <= 0 || viewW <= 0 || viewH <= 0 {
		return 0, 0, 1
	}
	scale = math.Min(viewW/pageW, viewH/pageH)
	return (viewW - pageW*scale) / 2, (viewH - pageH*scale) / 2, scale
}

// viewToPage maps a point in the preview to page coordinates. ok is false
// outside the page.
func viewToPage(viewW, viewH float64, size domain.CanvasSizeProfile, px, py float64) (pt vector.Pt, ok bool) {
	pw, ph := float64(size.Width), float64(size.Height)
	x, y, s := fit(viewW, viewH, pw, ph)
	pt = vector.Pt{X: (px - x) / s, Y: (py - y) / s}
	return pt, pt.X >= 0 && pt.Y >= 0 && pt.X <= pw && pt.Y <= ph
}

// previewScale is the render scale for a page shown in a view, capped at 1
// and floored at the smallest export scale.
func previewScale(viewW, viewH float64, size domain.CanvasSizeProfile) float64 {
	_, _, s := fit(viewW, viewH, float64(size.Width), float64(size.Height))
	return math.Max(0.1, math.Min(1, s))
}

func layerLabel(d domain.LayerDescriptor) string {
	flags := ""
	if !d.Visible {
		flags += " (hidden)"
	}
	if d.Locked {
		flags += " (locked)"
	}
	return fmt.Sprintf("%s%s", d.Name, flags)
}

func pageLabel(i int, p domain.Page) string {
	if p.Content.Hook != "" {
		return fmt.Sprintf("Slide %d · %s", i+1, p.Content.Hook)
	}
	return fmt.Sprintf("Slide %d", i+1)
}
