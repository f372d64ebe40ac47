/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package layers derives the layer panel from the canvas stack and applies
// panel edits (drag reorder, visibility, lock) back to the canvas.
// The canvas stack is always the source of truth; descriptors are rebuilt
// from it after every change and never stored.
package layers

import (
	"errors"
	"fmt"

	"gocarousel/internal/domain"
	"gocarousel/internal/vector"
)

// ErrNotPermutation is returned when a reorder list does not name exactly the live objects.
var ErrNotPermutation = errors.New("layer order is not a permutation of canvas objects")

// ErrUnknownLayer is returned for ids that are not on the canvas.
var ErrUnknownLayer = errors.New("unknown layer")

// Describe returns one descriptor per object, top-most first.
// ZIndex is the object's stack position (0 = bottom).
func Describe(objs []*vector.Object) []domain.LayerDescriptor {
	out := make([]domain.LayerDescriptor, 0, len(objs))
	counts := map[domain.ObjectType]int{}
	names := make([]string, len(objs))
	for i, o := range objs {
		counts[o.Type]++
		names[i] = o.DisplayName()
		if o.Name == "" && o.Type != domain.TypeText {
			names[i] = fmt.Sprintf("%s %d", names[i], counts[o.Type])
		}
	}
	for i := len(objs) - 1; i >= 0; i-- {
		o := objs[i]
		out = append(out, domain.LayerDescriptor{
			ID:      o.ID,
			Type:    o.Type,
			Name:    names[i],
			Visible: o.Visible,
			Locked:  o.Locked,
			ZIndex:  i,
		})
	}
	return out
}

// Reorder re-points the canvas stack to the given display order (top-most
// first). The canvas is left untouched if ids is not a permutation of the
// live object ids.
func Reorder(c *vector.Canvas, ids []string) error {
	objs := c.Objects()
	if len(ids) != len(objs) {
		return fmt.Errorf("reorder %d ids for %d objects: %w", len(ids), len(objs), ErrNotPermutation)
	}
	byID := make(map[string]*vector.Object, len(objs))
	for _, o := range objs {
		byID[o.ID] = o
	}
	stack := make([]*vector.Object, len(ids))
	seen := make(map[string]bool, len(ids))
	for i, id := range ids {
		o, ok := byID[id]
		if !ok || seen[id] {
			return fmt.Errorf("reorder id %q: %w", id, ErrNotPermutation)
		}
		seen[id] = true
		stack[len(ids)-1-i] = o
	}
	c.SetStack(stack)
	return nil
}

// Move drags one layer from display position from to display position to.
func Move(c *vector.Canvas, from, to int) error {
	d := Describe(c.Objects())
	if from < 0 || from >= len(d) || to < 0 || to >= len(d) {
		return fmt.Errorf("move layer %d to %d of %d: %w", from, to, len(d), ErrNotPermutation)
	}
	ids := make([]string, 0, len(d))
	for _, l := range d {
		ids = append(ids, l.ID)
	}
	id := ids[from]
	ids = append(ids[:from], ids[from+1:]...)
	ids = append(ids[:to], append([]string{id}, ids[to:]...)...)
	return Reorder(c, ids)
}

// ToggleVisibility flips an object's visibility and returns the new value.
// Hiding the active object clears the selection.
func ToggleVisibility(c *vector.Canvas, id string) (bool, error) {
	o := c.ByID(id)
	if o == nil {
		return false, fmt.Errorf("toggle visibility %q: %w", id, ErrUnknownLayer)
	}
	o.Visible = !o.Visible
	if !o.Visible && c.Active() == o {
		c.DiscardActive()
	}
	c.Modified(o)
	return o.Visible, nil
}

// ToggleLock flips an object's lock flag and returns the new value.
// Locking the active object clears the selection.
func ToggleLock(c *vector.Canvas, id string) (bool, error) {
	o := c.ByID(id)
	if o == nil {
		return false, fmt.Errorf("toggle lock %q: %w", id, ErrUnknownLayer)
	}
	o.Locked = !o.Locked
	if o.Locked && c.Active() == o {
		c.DiscardActive()
	}
	c.Modified(o)
	return o.Locked, nil
}

// Rename sets a layer's display name.
func Rename(c *vector.Canvas, id, name string) error {
	o := c.ByID(id)
	if o == nil {
		return fmt.Errorf("rename %q: %w", id, ErrUnknownLayer)
	}
	o.Name = name
	c.Modified(o)
	return nil
}
