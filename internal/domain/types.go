/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "time"

// This file defines the document-level data model of the carousel editor.
// Everything here is JSON-safe; the same shapes are written to the row store
// and to portable preset files.

// CarouselProject is a whole multi-page design.
// Invariant: Pages always holds at least one page.
type CarouselProject struct {
	Pages      []Page            `json:"pages"`
	CanvasSize CanvasSizeProfile `json:"canvasSize"`
}

// Page is a single slide. Elements is the serialized canvas state and is the
// source of truth whenever the page is not the one materialized on the canvas.
type Page struct {
	ID         string          `json:"id"`
	Background string          `json:"background"`
	Elements   []GraphicObject `json:"elements"`
	Content    PageContent     `json:"content"`
	PreviewURL string          `json:"previewUrl,omitempty"`
}

// PageContent holds free-text caption fields, independent of canvas objects.
type PageContent struct {
	Hook        string `json:"hook"`
	SubHeadline string `json:"subHeadline"`
	Body        string `json:"body"`
	CTA         string `json:"cta"`
}

// ContentPatch is a partial update for PageContent; nil fields are left alone.
type ContentPatch struct {
	Hook        *string
	SubHeadline *string
	Body        *string
	CTA         *string
}

// Apply shallow-merges the patch into c.
func (p ContentPatch) Apply(c PageContent) PageContent {
	if p.Hook != nil {
		c.Hook = *p.Hook
	}
	if p.SubHeadline != nil {
		c.SubHeadline = *p.SubHeadline
	}
	if p.Body != nil {
		c.Body = *p.Body
	}
	if p.CTA != nil {
		c.CTA = *p.CTA
	}
	return c
}

// Clone returns a deep copy of the page.
func (p Page) Clone() Page {
	out := p
	out.Elements = CloneObjects(p.Elements)
	return out
}

// Clone returns a deep copy of the project.
func (c CarouselProject) Clone() CarouselProject {
	out := CarouselProject{CanvasSize: c.CanvasSize, Pages: make([]Page, len(c.Pages))}
	for i, p := range c.Pages {
		out.Pages[i] = p.Clone()
	}
	return out
}

// CanvasSizeProfile is one of the fixed aspect-ratio presets.
type CanvasSizeProfile struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

var (
	SizeSquare   = CanvasSizeProfile{ID: "square", Label: "Square (1:1)", Width: 1080, Height: 1080}
	SizePortrait = CanvasSizeProfile{ID: "portrait", Label: "Portrait (4:5)", Width: 1080, Height: 1350}
	SizeStory    = CanvasSizeProfile{ID: "story", Label: "Story (9:16)", Width: 1080, Height: 1920}
)

// CanvasSizes lists the selectable profiles in UI order.
var CanvasSizes = []CanvasSizeProfile{SizeSquare, SizePortrait, SizeStory}

// DefaultCanvasSize is used for new documents.
var DefaultCanvasSize = SizePortrait

// DefaultBackground is the background token of a fresh page.
const DefaultBackground = "#ffffff"

// SizeByID looks up a canvas size profile.
func SizeByID(id string) (CanvasSizeProfile, bool) {
	for _, s := range CanvasSizes {
		if s.ID == id {
			return s, true
		}
	}
	return CanvasSizeProfile{}, false
}

// LayerDescriptor is the UI-facing, derived view of one canvas object.
// It is regenerated from the canvas stack and never persisted.
type LayerDescriptor struct {
	ID      string     `json:"id"`
	Type    ObjectType `json:"type"`
	Name    string     `json:"name"`
	Visible bool       `json:"visible"`
	Locked  bool       `json:"locked"`
	ZIndex  int        `json:"zIndex"`
}

// Preset is a reusable saved design template.
type Preset struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	OwnerID   string          `json:"ownerId"`
	Data      CarouselProject `json:"data"`
	CreatedAt time.Time       `json:"createdAt"`
}

// ProjectRecord is a named, continuously updatable carousel document.
type ProjectRecord struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	OwnerID    string          `json:"ownerId"`
	Data       CarouselProject `json:"data"`
	UpdatedAt  time.Time       `json:"updatedAt"`
	PreviewURL string          `json:"previewUrl,omitempty"`
}

// ProjectSummary is what the document store keeps about saved projects.
type ProjectSummary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	UpdatedAt  time.Time `json:"updatedAt"`
	PreviewURL string    `json:"previewUrl,omitempty"`
}

// FontAsset is a user-uploaded font, stored as a data URI.
type FontAsset struct {
	OwnerID  string `json:"ownerId"`
	Name     string `json:"name"`
	FontData string `json:"fontData"`
}

// PortableMarker is the JSON key that identifies an exported preset file.
const PortableMarker = "__carouselPreset"

// PortableVersion is written into every exported preset file.
const PortableVersion = "1.0"

// PortableFile is the on-disk *.preset format.
type PortableFile struct {
	Marker     bool            `json:"__carouselPreset"`
	Version    string          `json:"version"`
	ExportedAt string          `json:"exportedAt"`
	Name       string          `json:"name"`
	Data       CarouselProject `json:"data"`
}
