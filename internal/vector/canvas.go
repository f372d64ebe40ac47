/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package vector

// Canvas is a retained-mode object stack with an event bus, a single active
// selection and a viewport transform. Index 0 of the stack is drawn first
// (bottom). It is not safe for concurrent use.

import (
	"math"

	"github.com/google/uuid"

	"gocarousel/internal/domain"
)

type EventType string

const (
	EventObjectAdded      EventType = "object:added"
	EventObjectRemoved    EventType = "object:removed"
	EventObjectModified   EventType = "object:modified"
	EventSelectionCreated EventType = "selection:created"
	EventSelectionUpdated EventType = "selection:updated"
	EventSelectionCleared EventType = "selection:cleared"
)

// Event is delivered to listeners. Target is the affected object, if any.
type Event struct {
	Type     EventType
	Target   *Object
	Previous *Object
}

type Listener func(Event)

const (
	MinZoom = 0.1
	MaxZoom = 5.0
	// WheelZoomBase is raised to the wheel delta to get the zoom factor.
	WheelZoomBase = 0.999
)

type Canvas struct {
	width, height float64
	background    string

	objects []*Object
	active  *Object

	viewport Affine2D

	listeners map[EventType][]Listener
	suspended int

	renders int
}

// NewCanvas returns an empty canvas of the given pixel size.
func NewCanvas(width, height float64) *Canvas {
	return &Canvas{
		width:     width,
		height:    height,
		viewport:  Identity,
		listeners: map[EventType][]Listener{},
	}
}

func (c *Canvas) Width() float64  { return c.width }
func (c *Canvas) Height() float64 { return c.height }

// SetDimensions changes the canvas size. Objects keep their coordinates.
func (c *Canvas) SetDimensions(w, h float64) {
	c.width, c.height = w, h
	c.RequestRenderAll()
}

func (c *Canvas) Background() string { return c.background }

func (c *Canvas) SetBackground(bg string) {
	c.background = bg
	c.RequestRenderAll()
}

// On registers fn for events of type t and returns a func that removes it.
func (c *Canvas) On(t EventType, fn Listener) (off func()) {
	c.listeners[t] = append(c.listeners[t], fn)
	idx := len(c.listeners[t]) - 1
	removed := false
	return func() {
		if removed {
			return
		}
		removed = true
		c.listeners[t][idx] = nil
	}
}

func (c *Canvas) emit(e Event) {
	if c.suspended > 0 {
		return
	}
	for _, fn := range c.listeners[e.Type] {
		if fn != nil {
			fn(e)
		}
	}
}

// Suspend stops event delivery until the matching Resume. Calls nest.
func (c *Canvas) Suspend() { c.suspended++ }

// Resume re-enables event delivery. Events raised while suspended are dropped.
func (c *Canvas) Resume() {
	if c.suspended > 0 {
		c.suspended--
	}
}

// RequestRenderAll marks the canvas dirty. Renderers poll RenderCount.
func (c *Canvas) RequestRenderAll() { c.renders++ }

// RenderCount returns how many renders have been requested.
func (c *Canvas) RenderCount() int { return c.renders }

// Objects returns the stack bottom-first. The slice is a copy; the objects are live.
func (c *Canvas) Objects() []*Object { return append([]*Object(nil), c.objects...) }

func (c *Canvas) Len() int { return len(c.objects) }

// IndexOf returns the stack position of o or -1.
func (c *Canvas) IndexOf(o *Object) int {
	for i, x := range c.objects {
		if x == o {
			return i
		}
	}
	return -1
}

// ByID finds a live object by id.
func (c *Canvas) ByID(id string) *Object {
	for _, o := range c.objects {
		if o.ID == id {
			return o
		}
	}
	return nil
}

// Add pushes objects on top of the stack. Missing ids and ids already on
// the stack are replaced with fresh ones.
func (c *Canvas) Add(objs ...*Object) {
	for _, o := range objs {
		if o.ID == "" || c.ByID(o.ID) != nil {
			o.ID = uuid.NewString()
		}
		c.objects = append(c.objects, o)
		c.emit(Event{Type: EventObjectAdded, Target: o})
	}
	c.RequestRenderAll()
}

// Remove takes o off the stack, clearing the selection if it was active.
func (c *Canvas) Remove(o *Object) bool {
	i := c.IndexOf(o)
	if i < 0 {
		return false
	}
	if c.active == o {
		c.DiscardActive()
	}
	c.objects = append(c.objects[:i], c.objects[i+1:]...)
	c.emit(Event{Type: EventObjectRemoved, Target: o})
	c.RequestRenderAll()
	return true
}

// Clear removes every object without emitting per-object events.
func (c *Canvas) Clear() {
	if c.active != nil {
		c.DiscardActive()
	}
	c.objects = nil
	c.RequestRenderAll()
}

// Modified announces that o's properties changed.
func (c *Canvas) Modified(o *Object) {
	c.emit(Event{Type: EventObjectModified, Target: o})
	c.RequestRenderAll()
}

// Active returns the selected object or nil.
func (c *Canvas) Active() *Object { return c.active }

// SetActive selects o. Locked objects cannot be selected.
func (c *Canvas) SetActive(o *Object) bool {
	if o == nil {
		c.DiscardActive()
		return true
	}
	if c.IndexOf(o) < 0 || o.Locked {
		return false
	}
	prev := c.active
	if prev == o {
		return true
	}
	c.active = o
	if prev == nil {
		c.emit(Event{Type: EventSelectionCreated, Target: o})
	} else {
		c.emit(Event{Type: EventSelectionUpdated, Target: o, Previous: prev})
	}
	c.RequestRenderAll()
	return true
}

// DiscardActive clears the selection.
func (c *Canvas) DiscardActive() {
	if c.active == nil {
		return
	}
	prev := c.active
	c.active = nil
	c.emit(Event{Type: EventSelectionCleared, Previous: prev})
	c.RequestRenderAll()
}

// FindTarget returns the top-most visible, unlocked object under a screen
// point, taking the viewport into account.
func (c *Canvas) FindTarget(screen Pt) *Object {
	p := c.ToCanvas(screen)
	for i := len(c.objects) - 1; i >= 0; i-- {
		o := c.objects[i]
		if o.Locked || !o.Visible {
			continue
		}
		if o.Hit(p) {
			return o
		}
	}
	return nil
}

// ClickAt selects the object under screen point p or clears the selection.
func (c *Canvas) ClickAt(p Pt) *Object {
	o := c.FindTarget(p)
	c.SetActive(o)
	return o
}

// Z-order. None of these emit events; callers refresh derived views.

// MoveTo places o at stack index idx (clamped).
func (c *Canvas) MoveTo(o *Object, idx int) bool {
	i := c.IndexOf(o)
	if i < 0 {
		return false
	}
	if idx < 0 {
		idx = 0
	}
	if idx > len(c.objects)-1 {
		idx = len(c.objects) - 1
	}
	if i == idx {
		return true
	}
	c.objects = append(c.objects[:i], c.objects[i+1:]...)
	c.objects = append(c.objects, nil)
	copy(c.objects[idx+1:], c.objects[idx:])
	c.objects[idx] = o
	c.RequestRenderAll()
	return true
}

func (c *Canvas) BringToFront(o *Object) bool { return c.MoveTo(o, len(c.objects)-1) }
func (c *Canvas) SendToBack(o *Object) bool   { return c.MoveTo(o, 0) }

func (c *Canvas) BringForward(o *Object) bool {
	i := c.IndexOf(o)
	return i >= 0 && c.MoveTo(o, i+1)
}

func (c *Canvas) SendBackwards(o *Object) bool {
	i := c.IndexOf(o)
	return i >= 0 && c.MoveTo(o, i-1)
}

// SetStack replaces the stack order. objs must be a permutation of the
// current stack; callers validate this.
func (c *Canvas) SetStack(objs []*Object) {
	c.objects = append([]*Object(nil), objs...)
	c.RequestRenderAll()
}

// Viewport

func (c *Canvas) Viewport() Affine2D { return c.viewport }

func (c *Canvas) Zoom() float64 { return c.viewport.A }

// ToCanvas converts a screen point to canvas coordinates.
func (c *Canvas) ToCanvas(p Pt) Pt { return c.viewport.Invert().Apply(p) }

// SetZoom sets an absolute zoom about the origin.
func (c *Canvas) SetZoom(z float64) float64 {
	return c.ZoomToPoint(Pt{}, z)
}

// ZoomToPoint zooms so the canvas point under screen point p stays fixed.
func (c *Canvas) ZoomToPoint(p Pt, z float64) float64 {
	z = math.Max(MinZoom, math.Min(MaxZoom, z))
	before := c.ToCanvas(p)
	c.viewport.A, c.viewport.D = z, z
	c.viewport.B, c.viewport.C = 0, 0
	after := c.viewport.Apply(before)
	c.viewport.E += p.X - after.X
	c.viewport.F += p.Y - after.Y
	c.RequestRenderAll()
	return z
}

// RelativePan shifts the viewport by dx,dy screen pixels.
func (c *Canvas) RelativePan(dx, dy float64) {
	c.viewport.E += dx
	c.viewport.F += dy
	c.RequestRenderAll()
}

// ResetViewport returns to zoom 1 without pan.
func (c *Canvas) ResetViewport() {
	c.viewport = Identity
	c.RequestRenderAll()
}

// Wheel applies a mouse wheel gesture. Zoom only happens while the modifier
// key is held; otherwise the event is ignored and false is returned.
func (c *Canvas) Wheel(deltaY float64, modifier bool, at Pt) bool {
	if !modifier {
		return false
	}
	c.ZoomToPoint(at, c.Zoom()*math.Pow(WheelZoomBase, deltaY))
	return true
}

// Serialization

// ToJSON returns the serialized stack bottom-first.
func (c *Canvas) ToJSON() []domain.GraphicObject {
	out := make([]domain.GraphicObject, len(c.objects))
	for i, o := range c.objects {
		out[i] = o.Snapshot()
	}
	return out
}

// LoadFromJSON replaces the stack with objs in order without emitting
// per-object events. The selection is cleared.
func (c *Canvas) LoadFromJSON(objs []domain.GraphicObject) {
	c.Suspend()
	c.Clear()
	for _, g := range objs {
		c.Add(NewObject(g))
	}
	c.Resume()
	c.RequestRenderAll()
}
