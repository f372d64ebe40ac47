/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package scene binds the document store to the live canvas.
//
// The canvas owns the active page while it is open. The page's stored
// elements are a snapshot refreshed only at sync boundaries: page activation,
// save and export (FlushActivePage). Canvas events regenerate the layer list
// but never write back into the document, so no update loops can form.
package scene

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gocarousel/internal/document"
	"gocarousel/internal/domain"
	"gocarousel/internal/layers"
	applog "gocarousel/internal/log"
	"gocarousel/internal/undo"
	"gocarousel/internal/vector"
)

// ImageSizer reports the natural size of an image source.
type ImageSizer interface {
	Size(ctx context.Context, src string) (w, h int, err error)
}

// Adapter keeps one canvas and one document store consistent.
// It is not safe for concurrent use.
type Adapter struct {
	doc     *document.Store
	canvas  *vector.Canvas
	history *undo.History
	images  ImageSizer
	l       *slog.Logger

	pageID string
	layers []domain.LayerDescriptor
	props  *ActiveProperties

	// OnLayers is called with fresh descriptors after every stack change.
	OnLayers func([]domain.LayerDescriptor)
	// OnSelection is called when the active properties snapshot changes (nil on deselect).
	OnSelection func(*ActiveProperties)
}

// New creates an adapter and materializes the document's active page.
// history and images may be nil.
func New(doc *document.Store, history *undo.History, images ImageSizer) *Adapter {
	size := doc.CanvasSize()
	a := &Adapter{
		doc:     doc,
		canvas:  vector.NewCanvas(float64(size.Width), float64(size.Height)),
		history: history,
		images:  images,
		l:       applog.WithComponent("scene"),
	}
	for _, t := range []vector.EventType{vector.EventObjectAdded, vector.EventObjectRemoved} {
		a.canvas.On(t, func(vector.Event) { a.RefreshLayers() })
	}
	a.canvas.On(vector.EventObjectModified, func(e vector.Event) {
		a.RefreshLayers()
		if e.Target != nil && e.Target == a.canvas.Active() {
			a.setProps(snapshotProps(e.Target))
		}
	})
	a.canvas.On(vector.EventSelectionCreated, func(e vector.Event) { a.setProps(snapshotProps(e.Target)) })
	a.canvas.On(vector.EventSelectionUpdated, func(e vector.Event) { a.setProps(snapshotProps(e.Target)) })
	a.canvas.On(vector.EventSelectionCleared, func(vector.Event) { a.setProps(nil) })
	a.materialize()
	return a
}

func (a *Adapter) Canvas() *vector.Canvas        { return a.canvas }
func (a *Adapter) Document() *document.Store     { return a.doc }
func (a *Adapter) History() *undo.History        { return a.history }
func (a *Adapter) ActivePageID() string          { return a.pageID }
func (a *Adapter) Active() *vector.Object        { return a.canvas.Active() }
func (a *Adapter) Properties() *ActiveProperties { return a.props }

// Layers returns the current descriptors, top-most first.
func (a *Adapter) Layers() []domain.LayerDescriptor {
	return append([]domain.LayerDescriptor(nil), a.layers...)
}

// RefreshLayers re-derives descriptors from the live canvas stack.
func (a *Adapter) RefreshLayers() {
	a.layers = layers.Describe(a.canvas.Objects())
	if a.OnLayers != nil {
		a.OnLayers(a.Layers())
	}
}

func (a *Adapter) setProps(p *ActiveProperties) {
	a.props = p
	if a.OnSelection != nil {
		a.OnSelection(p)
	}
}

// Checkpoint records the current canvas state as an undo step for the
// active page. Call it before mutating. Quick repeats with the same
// non-empty key share one step.
func (a *Adapter) Checkpoint(key string) { a.record(key, a.canvas.ToJSON()) }

func (a *Adapter) record(key string, before []domain.GraphicObject) {
	if a.history == nil {
		return
	}
	if err := a.history.Record(a.pageID, key, before); err != nil {
		a.l.Warn("undo record failed", slog.String("page", a.pageID), slog.Any("err", err))
	}
}

// mutate runs fn and records the prior state as an undo step only if fn succeeds.
func (a *Adapter) mutate(fn func() error) error {
	before := a.canvas.ToJSON()
	if err := fn(); err != nil {
		return err
	}
	a.record("", before)
	return nil
}

// Page binding

func (a *Adapter) pageIndex(id string) int {
	for i, p := range a.doc.Pages() {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// FlushActivePage writes the live canvas into the materialized page's elements.
func (a *Adapter) FlushActivePage() {
	if i := a.pageIndex(a.pageID); i >= 0 {
		a.doc.SetElements(i, a.canvas.ToJSON())
	}
}

// Project flushes the active page and returns the document snapshot.
func (a *Adapter) Project() domain.CarouselProject {
	a.FlushActivePage()
	return a.doc.Project()
}

// materialize loads the document's active page onto the canvas. Per-object
// events are suppressed and layers are derived once at the end.
func (a *Adapter) materialize() {
	p := a.doc.ActivePage()
	size := a.doc.CanvasSize()
	a.canvas.Suspend()
	a.canvas.Clear()
	a.canvas.SetDimensions(float64(size.Width), float64(size.Height))
	a.canvas.SetBackground(p.Background)
	if len(p.Elements) == 0 {
		a.canvas.Add(vector.NewObject(DefaultTextObject("")))
	} else {
		for _, g := range p.Elements {
			a.canvas.Add(vector.NewObject(g))
		}
	}
	a.canvas.Resume()
	a.pageID = p.ID
	a.setProps(nil)
	a.RefreshLayers()
	a.l.Debug("page materialized", slog.String("page", p.ID), slog.Int("objects", a.canvas.Len()))
}

// ActivatePage flushes the outgoing page and materializes page i.
func (a *Adapter) ActivatePage(i int) error {
	if i < 0 || i >= a.doc.PageCount() {
		return fmt.Errorf("activate page %d of %d: out of range", i, a.doc.PageCount())
	}
	a.FlushActivePage()
	a.doc.SetActive(i)
	a.materialize()
	return nil
}

func (a *Adapter) AddPage() int {
	a.FlushActivePage()
	i := a.doc.AddPage()
	a.materialize()
	return i
}

func (a *Adapter) DuplicatePage(i int) error {
	a.FlushActivePage()
	if _, ok := a.doc.DuplicatePage(i); !ok {
		return fmt.Errorf("duplicate page %d: out of range", i)
	}
	a.materialize()
	return nil
}

// DeletePage removes page i unless it is the last one.
func (a *Adapter) DeletePage(i int) bool {
	a.FlushActivePage()
	p, ok := a.doc.Page(i)
	if !ok || !a.doc.DeletePage(i) {
		return false
	}
	if a.history != nil {
		a.history.Forget(p.ID)
	}
	if a.doc.ActivePage().ID != a.pageID {
		a.materialize()
	}
	return true
}

func (a *Adapter) MovePage(from, to int) bool {
	a.FlushActivePage()
	return a.doc.MovePage(from, to)
}

// LoadProject replaces the document and materializes its first page.
func (a *Adapter) LoadProject(p domain.CarouselProject, id, name string) {
	a.doc.Load(p, id, name)
	if a.history != nil {
		a.history.Reset()
	}
	a.materialize()
}

// Reset starts a fresh single-page document.
func (a *Adapter) Reset() {
	a.doc.ResetCanvas()
	if a.history != nil {
		a.history.Reset()
	}
	a.materialize()
}

// Object creation

func (a *Adapter) add(g domain.GraphicObject) *vector.Object {
	a.Checkpoint("")
	o := vector.NewObject(g)
	a.canvas.Add(o)
	a.canvas.SetActive(o)
	return o
}

func (a *Adapter) AddText(text string) *vector.Object { return a.add(DefaultTextObject(text)) }
func (a *Adapter) AddRect() *vector.Object            { return a.add(DefaultRect()) }
func (a *Adapter) AddCircle() *vector.Object          { return a.add(DefaultCircle()) }
func (a *Adapter) AddTriangle() *vector.Object        { return a.add(DefaultTriangle()) }

// AddImage adds an image scaled to ImageTargetWidth, keeping its aspect ratio.
func (a *Adapter) AddImage(ctx context.Context, src string) (*vector.Object, error) {
	return a.addImage(ctx, domain.TypeImage, src, ImageTargetWidth)
}

// AddSticker adds a sticker scaled to StickerTargetWidth.
func (a *Adapter) AddSticker(ctx context.Context, src string) (*vector.Object, error) {
	return a.addImage(ctx, domain.TypeSticker, src, StickerTargetWidth)
}

func (a *Adapter) addImage(ctx context.Context, t domain.ObjectType, src string, target float64) (*vector.Object, error) {
	if a.images == nil {
		return nil, errors.New("no image loader configured")
	}
	w, h, err := a.images.Size(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("add %s: %w", t, err)
	}
	if w <= 0 || h <= 0 {
		return nil, fmt.Errorf("add %s: empty image", t)
	}
	return a.add(scaledImage(t, src, w, h, target)), nil
}

// AddStroke adds a free drawing stroke through points.
func (a *Adapter) AddStroke(points []vector.Pt, color string, width float64) (*vector.Object, error) {
	if len(points) < 2 {
		return nil, errors.New("stroke needs at least two points")
	}
	var p vector.Path
	p.MoveTo(points[0].X, points[0].Y)
	for _, pt := range points[1:] {
		p.LineTo(pt.X, pt.Y)
	}
	return a.addPath(p, color, width), nil
}

// AddPathData adds a path object from SVG path data in canvas coordinates.
func (a *Adapter) AddPathData(d, color string, width float64) (*vector.Object, error) {
	p, err := vector.ParsePathData(d)
	if err != nil {
		return nil, fmt.Errorf("add path: %w", err)
	}
	if len(p.Cmds) == 0 {
		return nil, errors.New("add path: empty path")
	}
	return a.addPath(p, color, width), nil
}

// addPath stores the path relative to its bounding box origin.
func (a *Adapter) addPath(p vector.Path, color string, width float64) *vector.Object {
	if color == "" {
		color = DefaultTextColor
	}
	if width <= 0 {
		width = DefaultBrushWidth
	}
	b := p.Bounds()
	g := base(domain.TypePath, b.X, b.Y, max(b.W, 1), max(b.H, 1))
	g.Path = p.Translated(-b.X, -b.Y).String()
	g.Stroke = domain.Stroke{Width: width, Color: color, PaintOrder: domain.PaintInner}
	return a.add(g)
}

// Selection and editing

// Select makes the object with id active. Locked or unknown ids fail.
func (a *Adapter) Select(id string) bool {
	o := a.canvas.ByID(id)
	if o == nil {
		return false
	}
	return a.canvas.SetActive(o)
}

// DeleteActive removes the selected object.
func (a *Adapter) DeleteActive() bool {
	o := a.canvas.Active()
	if o == nil {
		return false
	}
	a.Checkpoint("")
	return a.canvas.Remove(o)
}

// MoveActive drags the selection, optionally snapping to guides.
func (a *Adapter) MoveActive(dx, dy float64, snap bool) []vector.GuideLine {
	o := a.canvas.Active()
	if o == nil || o.Locked {
		return nil
	}
	a.Checkpoint("move:" + o.ID)
	var opts *vector.SnapOptions
	if snap {
		s := vector.DefaultSnap
		opts = &s
	}
	return a.canvas.MoveBy(o, dx, dy, opts)
}

// Layers

// ReorderLayers applies a display order (top-most first) to the canvas and
// re-derives descriptors from the resulting stack.
func (a *Adapter) ReorderLayers(ids []string) error {
	err := a.mutate(func() error { return layers.Reorder(a.canvas, ids) })
	if err != nil {
		return err
	}
	a.RefreshLayers()
	return nil
}

func (a *Adapter) MoveLayer(from, to int) error {
	err := a.mutate(func() error { return layers.Move(a.canvas, from, to) })
	if err != nil {
		return err
	}
	a.RefreshLayers()
	return nil
}

func (a *Adapter) ToggleVisibility(id string) (visible bool, err error) {
	err = a.mutate(func() error {
		visible, err = layers.ToggleVisibility(a.canvas, id)
		return err
	})
	return visible, err
}

func (a *Adapter) ToggleLock(id string) (locked bool, err error) {
	err = a.mutate(func() error {
		locked, err = layers.ToggleLock(a.canvas, id)
		return err
	})
	return locked, err
}

// Canvas-level settings

// ResizeCanvas switches the canvas size profile. Objects keep their coordinates.
func (a *Adapter) ResizeCanvas(id string) error {
	if !a.doc.SetCanvasSize(id) {
		return fmt.Errorf("unknown canvas size %q", id)
	}
	s := a.doc.CanvasSize()
	a.canvas.SetDimensions(float64(s.Width), float64(s.Height))
	return nil
}

// SetBackground sets the active page background, or every page's when all is set.
func (a *Adapter) SetBackground(bg string, all bool) {
	if all {
		a.doc.UpdateAllPageBackgrounds(bg)
	} else {
		a.doc.UpdatePageBackground(a.doc.Active(), bg)
	}
	a.canvas.SetBackground(bg)
}

// SetZoom changes the view zoom. Object data is untouched.
func (a *Adapter) SetZoom(z float64) float64 {
	z = a.canvas.SetZoom(z)
	return a.doc.SetZoom(z)
}

// Wheel zooms about the pointer while the modifier is held.
func (a *Adapter) Wheel(deltaY float64, modifier bool, at vector.Pt) bool {
	if !a.canvas.Wheel(deltaY, modifier, at) {
		return false
	}
	a.doc.SetZoom(a.canvas.Zoom())
	return true
}

// History

func (a *Adapter) restore(objs []domain.GraphicObject) {
	a.canvas.LoadFromJSON(objs)
	a.setProps(nil)
	a.RefreshLayers()
}

// Undo reverts the active page to its previous recorded state.
func (a *Adapter) Undo() (bool, error) {
	if a.history == nil {
		return false, nil
	}
	objs, ok, err := a.history.Undo(a.pageID, a.canvas.ToJSON())
	if err != nil || !ok {
		return false, err
	}
	a.restore(objs)
	return true, nil
}

// Redo re-applies the last undone state.
func (a *Adapter) Redo() (bool, error) {
	if a.history == nil {
		return false, nil
	}
	objs, ok, err := a.history.Redo(a.pageID, a.canvas.ToJSON())
	if err != nil || !ok {
		return false, err
	}
	a.restore(objs)
	return true, nil
}
