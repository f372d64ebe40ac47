//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"io"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"gocarousel/internal/crash"
	"gocarousel/internal/domain"
	"gocarousel/internal/editor"
	"gocarousel/internal/export"
	applog "gocarousel/internal/log"
	"gocarousel/internal/persistence"
	"gocarousel/internal/properties"
	"gocarousel/internal/scene"
	"gocarousel/internal/version"
)

// Run opens the preview window for s and blocks until it is closed.
func Run(s *editor.Session) error {
	if s == nil {
		return errors.New("no editor session")
	}
	l := applog.WithComponent("ui")
	l.Info("starting UI")
	guard := &crash.Guard{Doc: s, Dir: s.Config.Export.OutDir}
	defer guard.Recover()

	ctx := context.Background()
	fyneApp := app.NewWithID("gocarousel")
	w := fyneApp.NewWindow("Go Carousel Studio " + version.Version)
	prefs := fyneApp.Preferences()
	w.Resize(fyne.NewSize(
		float32(max(900, prefs.IntWithFallback("window.width", 1280))),
		float32(max(600, prefs.IntWithFallback("window.height", 860))),
	))

	status := widget.NewLabel("Ready")
	preview := NewPageCanvas()

	var (
		pageNames  []string
		layers     []domain.LayerDescriptor
		refreshAll func()
		syncing    bool
	)
	report := func(action string, err error) {
		if err != nil {
			l.Error(action+" failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		status.SetText(action)
	}
	dispatch := func(action string, cmd scene.Command) {
		if err := s.Scene.Dispatch(ctx, cmd); err != nil {
			report(action, err)
			return
		}
		refreshAll()
	}
	edit := func(action string, err error) {
		if syncing {
			return
		}
		if err != nil && !errors.Is(err, properties.ErrNoSelection) && !errors.Is(err, properties.ErrNotApplicable) {
			report(action, err)
			return
		}
		refreshAll()
	}

	pagesList := widget.NewList(
		func() int { return len(pageNames) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(pageNames[i]) },
	)
	pagesList.OnSelected = func(id widget.ListItemID) {
		if int(id) != s.Doc.Active() {
			dispatch("page activated", scene.ActivatePage{Index: int(id)})
		}
	}
	pageButtons := container.NewGridWithColumns(3,
		widget.NewButtonWithIcon("", theme.ContentAddIcon(), func() { dispatch("page added", scene.AddPage{}) }),
		widget.NewButtonWithIcon("", theme.ContentCopyIcon(), func() { dispatch("page duplicated", scene.DuplicatePage{Index: s.Doc.Active()}) }),
		widget.NewButtonWithIcon("", theme.DeleteIcon(), func() { dispatch("page deleted", scene.DeletePage{Index: s.Doc.Active()}) }),
	)
	left := container.NewBorder(widget.NewLabel("Slides"), pageButtons, nil, nil, pagesList)

	layerList := widget.NewList(
		func() int { return len(layers) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) { o.(*widget.Label).SetText(layerLabel(layers[i])) },
	)
	layerList.OnSelected = func(id widget.ListItemID) {
		if int(id) < len(layers) {
			dispatch("layer selected", scene.Select{ID: layers[id].ID})
		}
	}
	selectedLayer := func() string {
		if p := s.Scene.Properties(); p != nil {
			return p.ID
		}
		return ""
	}
	layerButtons := container.NewGridWithColumns(4,
		widget.NewButtonWithIcon("", theme.VisibilityIcon(), func() { dispatch("visibility toggled", scene.ToggleVisibility{ID: selectedLayer()}) }),
		widget.NewButton("Lock", func() { dispatch("lock toggled", scene.ToggleLock{ID: selectedLayer()}) }),
		widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() { edit("brought forward", s.Props.Arrange(properties.Forward)) }),
		widget.NewButtonWithIcon("", theme.MoveDownIcon(), func() { edit("sent backward", s.Props.Arrange(properties.Backward)) }),
	)

	fill := widget.NewEntry()
	fill.SetPlaceHolder("#F97316")
	fill.OnSubmitted = func(v string) { edit("fill changed", s.Props.SetFill(v)) }
	opacity := widget.NewSlider(0, 1)
	opacity.Step = 0.05
	opacity.OnChangeEnded = func(v float64) { edit("opacity changed", s.Props.SetOpacity(v)) }
	strokeWidth := widget.NewSlider(0, 20)
	strokeColor := widget.NewEntry()
	strokeColor.SetPlaceHolder("#000000")
	paintOrder := widget.NewSelect([]string{string(domain.PaintInner), string(domain.PaintMiddle), string(domain.PaintOuter)}, nil)
	applyStroke := func() {
		if syncing {
			return
		}
		edit("stroke changed", s.Props.SetStroke(strokeWidth.Value, strokeColor.Text, domain.PaintOrder(paintOrder.Selected)))
	}
	strokeWidth.OnChangeEnded = func(float64) { applyStroke() }
	strokeColor.OnSubmitted = func(string) { applyStroke() }
	paintOrder.OnChanged = func(string) { applyStroke() }
	angle := widget.NewSlider(-180, 180)
	angle.OnChangeEnded = func(v float64) { edit("rotated", s.Props.SetAngle(v)) }
	shadow := widget.NewCheck("Shadow", func(on bool) {
		if syncing {
			return
		}
		if !on {
			edit("shadow removed", s.Props.SetShadow(nil))
			return
		}
		sh := scene.DefaultShadow
		edit("shadow added", s.Props.SetShadow(&sh))
	})
	textCase := widget.NewSelect([]string{string(domain.CaseNormal), string(domain.CaseUpper), string(domain.CaseLower)}, func(v string) {
		if syncing {
			return
		}
		edit("text case changed", s.Props.SetTextCase(domain.TextCase(v)))
	})

	inspector := widget.NewForm(
		widget.NewFormItem("Fill", fill),
		widget.NewFormItem("Opacity", opacity),
		widget.NewFormItem("Stroke", strokeWidth),
		widget.NewFormItem("Stroke colour", strokeColor),
		widget.NewFormItem("Paint order", paintOrder),
		widget.NewFormItem("Angle", angle),
		widget.NewFormItem("Text case", textCase),
		widget.NewFormItem("", shadow),
	)
	right := container.NewVSplit(
		container.NewBorder(widget.NewLabel("Layers"), layerButtons, nil, nil, layerList),
		container.NewVScroll(inspector),
	)

	syncInspector := func(p *scene.ActiveProperties) {
		if p == nil {
			inspector.Hide()
			return
		}
		inspector.Show()
		syncing = true
		defer func() { syncing = false }()
		fill.SetText(p.Fill)
		opacity.SetValue(p.Opacity)
		strokeWidth.SetValue(p.Stroke.Width)
		strokeColor.SetText(p.Stroke.Color)
		paintOrder.SetSelected(string(p.Stroke.PaintOrder))
		angle.SetValue(p.Angle)
		shadow.SetChecked(p.HasShadow)
		textCase.SetSelected(string(p.TextCase))
	}

	refreshAll = func() {
		pages := s.Doc.Pages()
		pageNames = pageNames[:0]
		for i, p := range pages {
			pageNames = append(pageNames, pageLabel(i, p))
		}
		pagesList.Refresh()
		pagesList.Select(s.Doc.Active())
		layers = s.Scene.Layers()
		layerList.Refresh()
		syncInspector(s.Scene.Properties())

		size := s.Doc.CanvasSize()
		v := preview.Size()
		page := s.Scene.Project().Pages[s.Doc.Active()]
		img, err := s.Export.Renderer().RenderPage(ctx, page, size, previewScale(float64(v.Width), float64(v.Height), size))
		if err != nil {
			l.Warn("preview render failed", slog.Any("err", err))
			return
		}
		preview.Show(img, size)
	}

	preview.OnTap = func(pt fyne.Position) {
		p, ok := viewToPage(float64(preview.Size().Width), float64(preview.Size().Height), s.Doc.CanvasSize(), float64(pt.X), float64(pt.Y))
		if !ok {
			return
		}
		screen := s.Scene.Canvas().Viewport().Apply(p)
		dispatch("selection changed", scene.SelectAt{X: screen.X, Y: screen.Y})
	}

	sizeNames := make([]string, 0, len(domain.CanvasSizes))
	for _, cs := range domain.CanvasSizes {
		sizeNames = append(sizeNames, cs.Label)
	}
	sizeSelect := widget.NewSelect(sizeNames, func(label string) {
		for _, cs := range domain.CanvasSizes {
			if cs.Label == label && cs.ID != s.Doc.CanvasSize().ID {
				dispatch("canvas resized", scene.ResizeCanvas{SizeID: cs.ID})
			}
		}
	})
	sizeSelect.SetSelected(s.Doc.CanvasSize().Label)

	saveProject := func() {
		_, name := s.Doc.CurrentProject()
		entry := widget.NewEntry()
		entry.SetText(name)
		dialog.ShowForm("Save project", "Save", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", entry)}, func(ok bool) {
			if !ok {
				return
			}
			rec, err := s.Persist.SaveProject(ctx, entry.Text)
			if err != nil {
				report("save", err)
				return
			}
			status.SetText(fmt.Sprintf("Saved %q", rec.Name))
		}, w)
	}

	exportPNG := func() {
		dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
			if err != nil || dir == nil {
				return
			}
			o, err := s.ExportOptions(export.AllPages(s.Doc.PageCount()))
			if err != nil {
				report("export", err)
				return
			}
			paths, err := s.ExportToDir(ctx, dir.Path(), o)
			if err != nil {
				report("export", err)
				return
			}
			status.SetText(fmt.Sprintf("Exported %d slide(s) to %s", len(paths), dir.Path()))
		}, w)
	}

	importPreset := func() {
		dialog.ShowFileOpen(func(r fyne.URIReadCloser, err error) {
			if err != nil || r == nil {
				return
			}
			defer r.Close()
			data, err := io.ReadAll(r)
			if err != nil {
				report("import", err)
				return
			}
			f, err := persistence.ParsePortable(data)
			if err != nil {
				report("import", err)
				return
			}
			entry := widget.NewEntry()
			entry.SetText(f.Name)
			dialog.ShowForm("Import preset", "Import", "Cancel", []*widget.FormItem{widget.NewFormItem("Name", entry)}, func(ok bool) {
				if !ok {
					return
				}
				p, err := s.Persist.ImportPreset(ctx, data, func(string) (string, bool) { return entry.Text, true })
				if err != nil {
					report("import", err)
					return
				}
				status.SetText(fmt.Sprintf("Imported preset %q", p.Name))
			}, w)
		}, w)
	}

	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() { dispatch("text added", scene.AddText{}) }),
		widget.NewToolbarAction(theme.CheckButtonIcon(), func() { dispatch("rectangle added", scene.AddRect{}) }),
		widget.NewToolbarAction(theme.RadioButtonIcon(), func() { dispatch("circle added", scene.AddCircle{}) }),
		widget.NewToolbarAction(theme.MenuDropUpIcon(), func() { dispatch("triangle added", scene.AddTriangle{}) }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { dispatch("object deleted", scene.DeleteActive{}) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { dispatch("undo", scene.Undo{}) }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { dispatch("redo", scene.Redo{}) }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), saveProject),
		widget.NewToolbarAction(theme.DownloadIcon(), exportPNG),
		widget.NewToolbarAction(theme.FolderOpenIcon(), importPreset),
	)

	center := container.NewHSplit(left, container.NewHSplit(preview, right))
	center.Offset = 0.15
	w.SetContent(container.NewBorder(container.NewHBox(toolbar, sizeSelect), status, nil, nil, center))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	preview.OnResize = refreshAll
	refreshAll()
	w.ShowAndRun()
	return nil
}

// PageCanvas shows a rendered page letterboxed in its bounds.
type PageCanvas struct {
	widget.BaseWidget

	bg  *canvas.Rectangle
	img *canvas.Image

	OnTap    func(fyne.Position)
	OnResize func()
}

func NewPageCanvas() *PageCanvas {
	pc := &PageCanvas{
		bg:  canvas.NewRectangle(color.RGBA{R: 30, G: 30, B: 34, A: 255}),
		img: canvas.NewImageFromImage(image.NewRGBA(image.Rect(0, 0, 1, 1))),
	}
	pc.img.FillMode = canvas.ImageFillContain
	pc.ExtendBaseWidget(pc)
	return pc
}

// Show replaces the displayed page image.
func (p *PageCanvas) Show(img image.Image, _ domain.CanvasSizeProfile) {
	p.img.Image = img
	p.img.Refresh()
}

func (p *PageCanvas) Tapped(e *fyne.PointEvent) {
	if p.OnTap != nil {
		p.OnTap(e.Position)
	}
}

func (p *PageCanvas) Resize(s fyne.Size) {
	changed := s != p.Size()
	p.BaseWidget.Resize(s)
	if changed && p.OnResize != nil {
		p.OnResize()
	}
}

func (p *PageCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 400) }

func (p *PageCanvas) CreateRenderer() fyne.WidgetRenderer {
	return widget.NewSimpleRenderer(container.NewStack(p.bg, p.img))
}
