/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"image"
	"math"
)

// blurRGBA approximates a gaussian blur of the given sigma in place with
// three box blur passes. Pixels outside the image count as transparent.
func blurRGBA(im *image.RGBA, sigma float64) {
	if sigma < 0.5 {
		return
	}
	// box width for three passes: sqrt(12*sigma^2/3 + 1)
	r := int(math.Round((math.Sqrt(4*sigma*sigma+1) - 1) / 2))
	if r < 1 {
		r = 1
	}
	b := im.Bounds()
	w, h := b.Dx(), b.Dy()
	tmp := make([]uint8, len(im.Pix))
	for i := 0; i < 3; i++ {
		boxPass(im.Pix, tmp, w, h, r, 4, im.Stride)
		boxPass(tmp, im.Pix, h, w, r, im.Stride, 4)
	}
}

// boxPass averages runs of 2r+1 pixels along one axis. n is the run length,
// lines the number of runs; step moves along a run and next between runs.
func boxPass(src, dst []uint8, n, lines, r, step, next int) {
	span := 2*r + 1
	for l := 0; l < lines; l++ {
		base := l * next
		var sum [4]int
		for i := 0; i <= r && i < n; i++ {
			p := base + i*step
			for c := 0; c < 4; c++ {
				sum[c] += int(src[p+c])
			}
		}
		for i := 0; i < n; i++ {
			p := base + i*step
			for c := 0; c < 4; c++ {
				dst[p+c] = uint8(sum[c] / span)
			}
			if out := i - r; out >= 0 {
				q := base + out*step
				for c := 0; c < 4; c++ {
					sum[c] -= int(src[q+c])
				}
			}
			if in := i + r + 1; in < n {
				q := base + in*step
				for c := 0; c < 4; c++ {
					sum[c] += int(src[q+c])
				}
			}
		}
	}
}
