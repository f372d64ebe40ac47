/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package scene

import (
	"context"
	"fmt"

	"gocarousel/internal/layers"
	"gocarousel/internal/vector"
)

// Command is a request from the UI to the adapter. Commands are plain values
// handled by Dispatch.
type Command interface{ commandName() string }

type (
	AddText     struct{ Text string }
	AddRect     struct{}
	AddCircle   struct{}
	AddTriangle struct{}
	AddImage    struct{ Src string }
	AddSticker  struct{ Src string }
	// AddPath adds a free drawing stroke. Points are canvas coordinates; Data
	// may carry SVG path data instead.
	AddPath struct {
		Points []vector.Pt
		Data   string
		Color  string
		Width  float64
	}

	DeleteActive struct{}
	Select       struct{ ID string }
	SelectAt     struct{ X, Y float64 }
	MoveActive   struct {
		DX, DY float64
		Snap   bool
	}

	ReorderLayers    struct{ IDs []string }
	MoveLayer        struct{ From, To int }
	ToggleVisibility struct{ ID string }
	ToggleLock       struct{ ID string }
	RenameLayer      struct{ ID, Name string }

	ResizeCanvas  struct{ SizeID string }
	SetBackground struct {
		Background string
		AllPages   bool
	}

	SetZoom   struct{ Zoom float64 }
	WheelZoom struct {
		DeltaY   float64
		Modifier bool
		X, Y     float64
	}
	Pan struct{ DX, DY float64 }

	ActivatePage  struct{ Index int }
	AddPage       struct{}
	DuplicatePage struct{ Index int }
	DeletePage    struct{ Index int }
	MovePage      struct{ From, To int }

	Undo struct{}
	Redo struct{}
)

func (AddText) commandName() string          { return "add_text" }
func (AddRect) commandName() string          { return "add_rect" }
func (AddCircle) commandName() string        { return "add_circle" }
func (AddTriangle) commandName() string      { return "add_triangle" }
func (AddImage) commandName() string         { return "add_image" }
func (AddSticker) commandName() string       { return "add_sticker" }
func (AddPath) commandName() string          { return "add_path" }
func (DeleteActive) commandName() string     { return "delete_active" }
func (Select) commandName() string           { return "select" }
func (SelectAt) commandName() string         { return "select_at" }
func (MoveActive) commandName() string       { return "move_active" }
func (ReorderLayers) commandName() string    { return "reorder_layers" }
func (MoveLayer) commandName() string        { return "move_layer" }
func (ToggleVisibility) commandName() string { return "toggle_visibility" }
func (ToggleLock) commandName() string       { return "toggle_lock" }
func (RenameLayer) commandName() string      { return "rename_layer" }
func (ResizeCanvas) commandName() string     { return "resize_canvas" }
func (SetBackground) commandName() string    { return "set_background" }
func (SetZoom) commandName() string          { return "set_zoom" }
func (WheelZoom) commandName() string        { return "wheel_zoom" }
func (Pan) commandName() string              { return "pan" }
func (ActivatePage) commandName() string     { return "activate_page" }
func (AddPage) commandName() string          { return "add_page" }
func (DuplicatePage) commandName() string    { return "duplicate_page" }
func (DeletePage) commandName() string       { return "delete_page" }
func (MovePage) commandName() string         { return "move_page" }
func (Undo) commandName() string             { return "undo" }
func (Redo) commandName() string             { return "redo" }

// Dispatch executes cmd. It is the single entry point the UI uses for
// cross-component requests.
func (a *Adapter) Dispatch(ctx context.Context, cmd Command) error {
	a.l.Debug("dispatch", "cmd", cmd.commandName())
	switch c := cmd.(type) {
	case AddText:
		a.AddText(c.Text)
	case AddRect:
		a.AddRect()
	case AddCircle:
		a.AddCircle()
	case AddTriangle:
		a.AddTriangle()
	case AddImage:
		_, err := a.AddImage(ctx, c.Src)
		return err
	case AddSticker:
		_, err := a.AddSticker(ctx, c.Src)
		return err
	case AddPath:
		var err error
		if c.Data != "" {
			_, err = a.AddPathData(c.Data, c.Color, c.Width)
		} else {
			_, err = a.AddStroke(c.Points, c.Color, c.Width)
		}
		return err
	case DeleteActive:
		a.DeleteActive()
	case Select:
		if !a.Select(c.ID) {
			return fmt.Errorf("select %q: %w", c.ID, layers.ErrUnknownLayer)
		}
	case SelectAt:
		a.canvas.ClickAt(vector.Pt{X: c.X, Y: c.Y})
	case MoveActive:
		a.MoveActive(c.DX, c.DY, c.Snap)
	case ReorderLayers:
		return a.ReorderLayers(c.IDs)
	case MoveLayer:
		return a.MoveLayer(c.From, c.To)
	case ToggleVisibility:
		_, err := a.ToggleVisibility(c.ID)
		return err
	case ToggleLock:
		_, err := a.ToggleLock(c.ID)
		return err
	case RenameLayer:
		a.Checkpoint("")
		return layers.Rename(a.canvas, c.ID, c.Name)
	case ResizeCanvas:
		return a.ResizeCanvas(c.SizeID)
	case SetBackground:
		a.SetBackground(c.Background, c.AllPages)
	case SetZoom:
		a.SetZoom(c.Zoom)
	case WheelZoom:
		a.Wheel(c.DeltaY, c.Modifier, vector.Pt{X: c.X, Y: c.Y})
	case Pan:
		a.canvas.RelativePan(c.DX, c.DY)
	case ActivatePage:
		return a.ActivatePage(c.Index)
	case AddPage:
		a.AddPage()
	case DuplicatePage:
		return a.DuplicatePage(c.Index)
	case DeletePage:
		a.DeletePage(c.Index)
	case MovePage:
		a.MovePage(c.From, c.To)
	case Undo:
		_, err := a.Undo()
		return err
	case Redo:
		_, err := a.Redo()
		return err
	default:
		return fmt.Errorf("unknown command %T", cmd)
	}
	return nil
}
