/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package fonts

import (
	"testing"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"gocarousel/internal/domain"
)

func TestFallbackFace(t *testing.T) {
	r := NewRegistry()
	face, err := r.Face(Spec{Family: "Inter", SizePx: 40})
	if err != nil || face == nil {
		t.Fatalf("fallback face: %v", err)
	}
	if r.Has("Inter") {
		t.Fatalf("Inter should not be registered")
	}
	again, _ := r.Face(Spec{Family: "Inter", SizePx: 40})
	if again != face {
		t.Fatalf("faces should be cached per size")
	}
}

func TestUnknownFamilyUsesBundledStyles(t *testing.T) {
	r := NewRegistry()
	seen := map[font.Face]bool{}
	for _, spec := range []Spec{
		{Family: "Inter", SizePx: 32},
		{Family: "Inter", SizePx: 32, Weight: 700},
		{Family: "Inter", SizePx: 32, Italic: true},
		{Family: "  Montserrat ", SizePx: 32, Weight: 800, Italic: true},
		{Family: "Go", SizePx: 32},
	} {
		face, err := r.Face(spec)
		if err != nil || face == nil {
			t.Fatalf("Face(%+v): %v", spec, err)
		}
		seen[face] = true
	}
	if len(seen) != 4 {
		t.Fatalf("expected one cached face per bundled style, got %d", len(seen))
	}
	if box := Wrap(nil, Style{SizePx: 10}, "text", 0); len(box.Lines) != 0 {
		t.Fatalf("nil face should lay out nothing: %+v", box)
	}
}

func TestRegisterDataURI(t *testing.T) {
	r := NewRegistry()
	uri := domain.DataURI("font/ttf", gomono.TTF)
	if err := r.RegisterDataURI("Brand Mono", uri); err != nil {
		t.Fatalf("register: %v", err)
	}
	if !r.Has("brand mono") {
		t.Fatalf("family lookup should ignore case")
	}
	if got := r.Families(); len(got) != 1 || got[0] != "Brand Mono" {
		t.Fatalf("families = %v", got)
	}
	if err := r.RegisterDataURI("Broken", "data:font/ttf;base64,AAAA"); err == nil {
		t.Fatalf("expected parse error for junk font")
	}
	if err := r.RegisterDataURI("Broken", "not a uri"); err == nil {
		t.Fatalf("expected data URI error")
	}
}

func TestParseWeight(t *testing.T) {
	cases := map[string]int{"": 400, "bold": 700, "600": 600, "normal": 400, "1000": 400, "light": 300}
	for in, want := range cases {
		if got := ParseWeight(in); got != want {
			t.Fatalf("ParseWeight(%q) = %d want %d", in, got, want)
		}
	}
}

func TestWrapBreaksAndTracking(t *testing.T) {
	r := NewRegistry()
	face, err := r.Face(Spec{SizePx: 20})
	if err != nil {
		t.Fatalf("face: %v", err)
	}
	st := Style{SizePx: 20}
	one := Wrap(face, st, "hello world again", 0)
	if len(one.Lines) != 1 {
		t.Fatalf("no wrap expected, got %d lines", len(one.Lines))
	}
	narrow := Wrap(face, st, "hello world again", Measure(face, st, "hello world")+1)
	if len(narrow.Lines) != 2 || narrow.Lines[0].Text != "hello world" || narrow.Lines[1].Text != "again" {
		t.Fatalf("wrap = %+v", narrow.Lines)
	}
	nl := Wrap(face, st, "a\nb", 0)
	if len(nl.Lines) != 2 {
		t.Fatalf("newline should break, got %d", len(nl.Lines))
	}
	if nl.Height != 2*20*LineHeightMult {
		t.Fatalf("height = %v", nl.Height)
	}
	spaced := Measure(face, Style{SizePx: 20, CharSpacing: 100}, "abc")
	plain := Measure(face, st, "abc")
	if d := spaced - plain; d < 3.99 || d > 4.01 {
		t.Fatalf("tracking delta = %v, want 4", d)
	}
}

func TestLineOffset(t *testing.T) {
	if LineOffset("center", 100, 40) != 30 || LineOffset("right", 100, 40) != 60 || LineOffset("left", 100, 40) != 0 {
		t.Fatalf("unexpected offsets")
	}
}
