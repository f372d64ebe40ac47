/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package document holds the editor's declarative state: pages, the active
// page index, the canvas size profile, zoom and project bookkeeping.
// It never touches the canvas; the scene adapter syncs between the two.
package document

import (
	"github.com/google/uuid"

	"gocarousel/internal/domain"
)

const (
	MinZoom = 0.1
	MaxZoom = 5.0
)

// Store is the single-writer document state.
// Invariant: len(pages) >= 1 and 0 <= active < len(pages).
type Store struct {
	pages       []domain.Page
	active      int
	size        domain.CanvasSizeProfile
	zoom        float64
	customFonts []string
	projects    []domain.ProjectSummary
	projectID   string
	projectName string

	// NewID generates page ids. Tests replace it for deterministic output.
	NewID func() string
}

// New returns a store with one blank page at the default canvas size.
func New() *Store {
	s := &Store{NewID: func() string { return uuid.NewString() }}
	s.reset()
	return s
}

func (s *Store) reset() {
	s.pages = []domain.Page{s.blankPage(domain.DefaultBackground)}
	s.active = 0
	s.size = domain.DefaultCanvasSize
	s.zoom = 1
	s.projectID, s.projectName = "", ""
}

func (s *Store) blankPage(bg string) domain.Page {
	return domain.Page{ID: s.NewID(), Background: bg, Elements: []domain.GraphicObject{}}
}

// Pages returns a deep copy of all pages.
func (s *Store) Pages() []domain.Page {
	out := make([]domain.Page, len(s.pages))
	for i, p := range s.pages {
		out[i] = p.Clone()
	}
	return out
}

// Page returns a copy of page i.
func (s *Store) Page(i int) (domain.Page, bool) {
	if i < 0 || i >= len(s.pages) {
		return domain.Page{}, false
	}
	return s.pages[i].Clone(), true
}

// PageCount returns the number of pages.
func (s *Store) PageCount() int { return len(s.pages) }

// Active returns the active page index.
func (s *Store) Active() int { return s.active }

// ActivePage returns a copy of the active page.
func (s *Store) ActivePage() domain.Page { return s.pages[s.active].Clone() }

// CanvasSize returns the current canvas size profile.
func (s *Store) CanvasSize() domain.CanvasSizeProfile { return s.size }

// Zoom returns the UI zoom factor.
func (s *Store) Zoom() float64 { return s.zoom }

// AddPage appends a page carrying the current page's background and activates it.
func (s *Store) AddPage() int {
	bg := s.pages[s.active].Background
	s.pages = append(s.pages, s.blankPage(bg))
	s.active = len(s.pages) - 1
	return s.active
}

// DuplicatePage inserts a deep copy of page i right after it and activates the copy.
func (s *Store) DuplicatePage(i int) (int, bool) {
	if i < 0 || i >= len(s.pages) {
		return s.active, false
	}
	cp := s.pages[i].Clone()
	cp.ID = s.NewID()
	cp.PreviewURL = ""
	at := i + 1
	s.pages = append(s.pages, domain.Page{})
	copy(s.pages[at+1:], s.pages[at:])
	s.pages[at] = cp
	s.active = at
	return at, true
}

// DeletePage removes page i. It is a no-op when only one page remains.
func (s *Store) DeletePage(i int) bool {
	if len(s.pages) <= 1 || i < 0 || i >= len(s.pages) {
		return false
	}
	s.pages = append(s.pages[:i], s.pages[i+1:]...)
	if s.active > len(s.pages)-1 {
		s.active = len(s.pages) - 1
	}
	return true
}

// MovePage moves the page at from to position to, keeping the same page active.
func (s *Store) MovePage(from, to int) bool {
	n := len(s.pages)
	if from < 0 || from >= n || to < 0 || to >= n || from == to {
		return false
	}
	activeID := s.pages[s.active].ID
	p := s.pages[from]
	s.pages = append(s.pages[:from], s.pages[from+1:]...)
	s.pages = append(s.pages, domain.Page{})
	copy(s.pages[to+1:], s.pages[to:])
	s.pages[to] = p
	for i := range s.pages {
		if s.pages[i].ID == activeID {
			s.active = i
			break
		}
	}
	return true
}

// SetActive changes the active page index.
func (s *Store) SetActive(i int) bool {
	if i < 0 || i >= len(s.pages) {
		return false
	}
	s.active = i
	return true
}

// UpdatePageContent merges the non-nil patch fields into page i's content.
func (s *Store) UpdatePageContent(i int, patch domain.ContentPatch) bool {
	if i < 0 || i >= len(s.pages) {
		return false
	}
	s.pages[i].Content = patch.Apply(s.pages[i].Content)
	return true
}

// UpdatePageBackground sets page i's background token.
func (s *Store) UpdatePageBackground(i int, bg string) bool {
	if i < 0 || i >= len(s.pages) {
		return false
	}
	s.pages[i].Background = bg
	return true
}

// UpdateAllPageBackgrounds sets the same background on every page.
func (s *Store) UpdateAllPageBackgrounds(bg string) {
	for i := range s.pages {
		s.pages[i].Background = bg
	}
}

// SetElements replaces page i's serialized canvas state.
func (s *Store) SetElements(i int, elems []domain.GraphicObject) bool {
	if i < 0 || i >= len(s.pages) {
		return false
	}
	s.pages[i].Elements = domain.CloneObjects(elems)
	return true
}

// SetPreview stores a thumbnail data URI for page i.
func (s *Store) SetPreview(i int, url string) {
	if i >= 0 && i < len(s.pages) {
		s.pages[i].PreviewURL = url
	}
}

// ResetCanvas replaces the document with a single fresh page and unbinds the project.
func (s *Store) ResetCanvas() {
	s.reset()
}

// SetCanvasSize switches the size profile. Objects are not rescaled.
func (s *Store) SetCanvasSize(id string) bool {
	sz, ok := domain.SizeByID(id)
	if !ok {
		return false
	}
	s.size = sz
	return true
}

// SetZoom stores the zoom factor clamped to [MinZoom, MaxZoom] and returns it.
func (s *Store) SetZoom(z float64) float64 {
	if z < MinZoom {
		z = MinZoom
	}
	if z > MaxZoom {
		z = MaxZoom
	}
	s.zoom = z
	return z
}

// Project returns a snapshot of the document as a CarouselProject.
func (s *Store) Project() domain.CarouselProject {
	return domain.CarouselProject{Pages: s.Pages(), CanvasSize: s.size}
}

// Load replaces the whole document. An empty page list becomes one blank page.
// Missing or repeated page and object ids are replaced.
// id and name bind the document to a saved project; pass "" for an unbound load.
func (s *Store) Load(p domain.CarouselProject, id, name string) {
	if len(p.Pages) == 0 {
		p.Pages = []domain.Page{s.blankPage(domain.DefaultBackground)}
	}
	p = p.Clone()
	pageIDs := map[string]bool{}
	for i := range p.Pages {
		pg := &p.Pages[i]
		if pg.ID == "" || pageIDs[pg.ID] {
			pg.ID = s.NewID()
		}
		pageIDs[pg.ID] = true
		if pg.Background == "" {
			pg.Background = domain.DefaultBackground
		}
		// Object ids must be unique within a page for layer ordering.
		objIDs := map[string]bool{}
		for j := range pg.Elements {
			o := &pg.Elements[j]
			if o.ID == "" || objIDs[o.ID] {
				o.ID = s.NewID()
			}
			objIDs[o.ID] = true
		}
	}
	s.pages = p.Pages
	s.active = 0
	if p.CanvasSize.Width > 0 && p.CanvasSize.Height > 0 {
		s.size = p.CanvasSize
	} else {
		s.size = domain.DefaultCanvasSize
	}
	s.projectID, s.projectName = id, name
}

// BindProject records the saved project the document belongs to.
func (s *Store) BindProject(id, name string) { s.projectID, s.projectName = id, name }

// CurrentProject returns the bound project id and name ("" when unbound).
func (s *Store) CurrentProject() (id, name string) { return s.projectID, s.projectName }

// SetCustomFonts records the names of registered custom fonts.
func (s *Store) SetCustomFonts(names []string) { s.customFonts = append([]string(nil), names...) }

// CustomFonts returns the registered custom font names.
func (s *Store) CustomFonts() []string { return append([]string(nil), s.customFonts...) }

// SetProjects records the list of saved projects.
func (s *Store) SetProjects(p []domain.ProjectSummary) {
	s.projects = append([]domain.ProjectSummary(nil), p...)
}

// Projects returns the saved project summaries.
func (s *Store) Projects() []domain.ProjectSummary {
	return append([]domain.ProjectSummary(nil), s.projects...)
}
