/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"
)

// Colour tokens are CSS-like strings: #rgb, #rrggbb, #rrggbbaa, rgb(...), rgba(...),
// "transparent", or for backgrounds a linear-gradient(...) token.

// ParseColor converts a colour token to RGBA. Empty and "transparent" yield a
// fully transparent colour.
func ParseColor(s string) (color.NRGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	switch {
	case s == "" || s == "transparent" || s == "none":
		return color.NRGBA{}, nil
	case strings.HasPrefix(s, "#"):
		return parseHex(s[1:])
	case strings.HasPrefix(s, "rgba(") || strings.HasPrefix(s, "rgb("):
		return parseRGBFunc(s)
	}
	if c, ok := namedColors[s]; ok {
		return c, nil
	}
	return color.NRGBA{}, fmt.Errorf("unsupported colour %q", s)
}

var namedColors = map[string]color.NRGBA{
	"black": {0, 0, 0, 255},
	"white": {255, 255, 255, 255},
	"red":   {255, 0, 0, 255},
	"green": {0, 128, 0, 255},
	"blue":  {0, 0, 255, 255},
}

func parseHex(h string) (color.NRGBA, error) {
	switch len(h) {
	case 3:
		h = string([]byte{h[0], h[0], h[1], h[1], h[2], h[2]})
	case 6, 8:
	default:
		return color.NRGBA{}, fmt.Errorf("bad hex colour #%s", h)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("bad hex colour #%s: %w", h, err)
	}
	if len(h) == 6 {
		return color.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 255}, nil
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

func parseRGBFunc(s string) (color.NRGBA, error) {
	open := strings.IndexByte(s, '(')
	end := strings.LastIndexByte(s, ')')
	if open < 0 || end < open {
		return color.NRGBA{}, fmt.Errorf("bad colour %q", s)
	}
	parts := strings.Split(s[open+1:end], ",")
	if len(parts) < 3 {
		return color.NRGBA{}, fmt.Errorf("bad colour %q", s)
	}
	var ch [3]uint8
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[i]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("bad colour %q: %w", s, err)
		}
		ch[i] = uint8(clamp(math.Round(f), 0, 255))
	}
	a := 1.0
	if len(parts) > 3 {
		f, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("bad colour %q: %w", s, err)
		}
		a = clamp(f, 0, 1)
	}
	return color.NRGBA{R: ch[0], G: ch[1], B: ch[2], A: uint8(math.Round(a * 255))}, nil
}

// RGBAString folds an opacity into a hex colour and renders it as rgba(r,g,b,a).
// Unparseable colours fall back to black, matching what a browser canvas does.
func RGBAString(hex string, opacity float64) string {
	c, err := ParseColor(hex)
	if err != nil {
		c = color.NRGBA{A: 255}
	}
	a := clamp(opacity, 0, 1) * float64(c.A) / 255
	return fmt.Sprintf("rgba(%d,%d,%d,%s)", c.R, c.G, c.B, strconv.FormatFloat(a, 'f', -1, 64))
}

// Offset returns the shadow displacement for the stored angle and distance.
func (s Shadow) Offset() (x, y float64) {
	rad := s.AngleDegrees * math.Pi / 180
	return s.DistancePx * math.Cos(rad), s.DistancePx * math.Sin(rad)
}

// RGBA returns the shadow colour with its opacity folded into the alpha channel.
func (s Shadow) RGBA() string { return RGBAString(s.Color, s.Opacity) }

// Gradient is a parsed linear-gradient background token.
type Gradient struct {
	AngleDegrees float64
	Stops        []color.NRGBA
}

// ParseBackground returns either a solid colour or a gradient for a background token.
func ParseBackground(token string) (solid color.NRGBA, grad *Gradient, err error) {
	t := strings.TrimSpace(token)
	if !strings.HasPrefix(strings.ToLower(t), "linear-gradient(") {
		c, err := ParseColor(t)
		return c, nil, err
	}
	if len(t) <= len("linear-gradient(") || !strings.HasSuffix(t, ")") {
		return solid, nil, fmt.Errorf("unterminated gradient %q", token)
	}
	inner := t[len("linear-gradient(") : len(t)-1]
	args := splitTopLevel(inner)
	g := &Gradient{AngleDegrees: 180}
	for i, a := range args {
		a = strings.TrimSpace(a)
		if i == 0 && strings.HasSuffix(a, "deg") {
			f, perr := strconv.ParseFloat(strings.TrimSuffix(a, "deg"), 64)
			if perr != nil {
				return solid, nil, fmt.Errorf("bad gradient angle %q: %w", a, perr)
			}
			g.AngleDegrees = f
			continue
		}
		// drop optional stop positions like "#fff 40%"
		if sp := strings.IndexByte(a, ' '); sp > 0 && !strings.Contains(a[:sp], "(") {
			a = a[:sp]
		}
		c, cerr := ParseColor(a)
		if cerr != nil {
			return solid, nil, cerr
		}
		g.Stops = append(g.Stops, c)
	}
	if len(g.Stops) < 2 {
		return solid, nil, fmt.Errorf("gradient needs two colours: %q", token)
	}
	return g.Stops[0], g, nil
}

// splitTopLevel splits on commas that are not inside parentheses.
func splitTopLevel(s string) []string {
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	return append(out, s[start:])
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
