/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package fonts keeps the OpenType fonts a document can reference by family
// name. Unknown families resolve to the bundled Go fonts so text always renders.
package fonts

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"gocarousel/internal/domain"
)

// FallbackFamily is used for any family that has not been registered.
const FallbackFamily = "Go"

// Spec describes a requested face.
type Spec struct {
	Family string
	SizePx float64
	Weight int // 100..900
	Italic bool
}

// SpecFor derives the face spec of a text object.
func SpecFor(o domain.GraphicObject) Spec {
	return Spec{
		Family: o.FontFamily,
		SizePx: o.FontSize,
		Weight: ParseWeight(o.FontWeight),
		Italic: strings.EqualFold(o.FontStyle, "italic") || strings.EqualFold(o.FontStyle, "oblique"),
	}
}

// ParseWeight maps CSS weights ("bold", "600") to a number. Unknown values are 400.
func ParseWeight(s string) int {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "normal", "regular":
		return 400
	case "bold":
		return 700
	case "bolder":
		return 800
	case "lighter", "light":
		return 300
	}
	if n, err := strconv.Atoi(strings.TrimSpace(s)); err == nil && n >= 100 && n <= 900 {
		return n
	}
	return 400
}

type fontKey struct {
	family string
	bold   bool
	italic bool
}

type faceKey struct {
	fontKey
	size float64
}

// Registry maps family names to parsed fonts. Safe for concurrent use.
type Registry struct {
	mu     sync.RWMutex
	fonts  map[fontKey]*opentype.Font
	custom map[string]bool
	faces  map[faceKey]font.Face
}

// NewRegistry returns a registry preloaded with the Go font family.
func NewRegistry() *Registry {
	r := &Registry{
		fonts:  map[fontKey]*opentype.Font{},
		custom: map[string]bool{},
		faces:  map[faceKey]font.Face{},
	}
	for _, b := range []struct {
		data         []byte
		bold, italic bool
	}{
		{goregular.TTF, false, false},
		{gobold.TTF, true, false},
		{goitalic.TTF, false, true},
		{gobolditalic.TTF, true, true},
	} {
		f, err := opentype.Parse(b.data)
		if err != nil {
			panic(fmt.Sprintf("fonts: bundled Go font: %v", err))
		}
		r.fonts[fontKey{family: normFamily(FallbackFamily), bold: b.bold, italic: b.italic}] = f
	}
	return r
}

func normFamily(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// Validate reports whether data parses as an OpenType/TrueType font.
func Validate(data []byte) error {
	_, err := opentype.Parse(data)
	return err
}

// Register parses an OpenType/TrueType font and stores it under family.
func (r *Registry) Register(family string, weight int, italic bool, data []byte) error {
	family = strings.TrimSpace(family)
	if family == "" {
		return fmt.Errorf("font family is empty")
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return fmt.Errorf("parse font %s: %w", family, err)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	k := fontKey{family: normFamily(family), bold: weight >= 600, italic: italic}
	r.fonts[k] = f
	r.custom[family] = true
	for fk := range r.faces {
		if fk.fontKey == k {
			delete(r.faces, fk)
		}
	}
	return nil
}

// RegisterDataURI registers a font stored as a data URI.
func (r *Registry) RegisterDataURI(family, uri string) error {
	_, data, err := domain.DecodeDataURI(uri)
	if err != nil {
		return fmt.Errorf("font %s: %w", family, err)
	}
	return r.Register(family, 400, false, data)
}

// Families lists registered custom family names, sorted.
func (r *Registry) Families() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.custom))
	for f := range r.custom {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Has reports whether a custom family is registered.
func (r *Registry) Has(family string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n := normFamily(family)
	for k := range r.fonts {
		if k.family == n {
			return true
		}
	}
	return false
}

func (r *Registry) find(spec Spec) (*opentype.Font, fontKey) {
	want := fontKey{family: normFamily(spec.Family), bold: spec.Weight >= 600, italic: spec.Italic}
	if f, ok := r.fonts[want]; ok {
		return f, want
	}
	// Same family, any style, regular first.
	for _, k := range []fontKey{
		{family: want.family},
		{family: want.family, bold: true},
		{family: want.family, italic: true},
		{family: want.family, bold: true, italic: true},
	} {
		if f, ok := r.fonts[k]; ok {
			return f, k
		}
	}
	fb := fontKey{family: normFamily(FallbackFamily), bold: want.bold, italic: want.italic}
	if f, ok := r.fonts[fb]; ok {
		return f, fb
	}
	fb = fontKey{family: normFamily(FallbackFamily)}
	return r.fonts[fb], fb
}

// Face returns a face for spec, falling back to the Go fonts.
func (r *Registry) Face(spec Spec) (font.Face, error) {
	if spec.SizePx <= 0 {
		spec.SizePx = 16
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	f, k := r.find(spec)
	if f == nil {
		return nil, fmt.Errorf("no font for %q", spec.Family)
	}
	fk := faceKey{fontKey: k, size: spec.SizePx}
	if face, ok := r.faces[fk]; ok {
		return face, nil
	}
	// DPI 72 makes Size a pixel size.
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: spec.SizePx, DPI: 72, Hinting: font.HintingFull})
	if err != nil {
		return nil, fmt.Errorf("face %s %.1fpx: %w", spec.Family, spec.SizePx, err)
	}
	r.faces[fk] = face
	return face, nil
}
