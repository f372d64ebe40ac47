/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"log/slog"
	"math"

	"github.com/fogleman/gg"
	"golang.org/x/image/font"

	"gocarousel/internal/domain"
	"gocarousel/internal/fonts"
	applog "gocarousel/internal/log"
	"gocarousel/internal/vector"
)

// ImageSource resolves image and sticker sources.
type ImageSource interface {
	Image(ctx context.Context, src string) (image.Image, error)
}

// Renderer rasterizes pages. Missing images and fonts are logged and the
// object is skipped or drawn with the fallback face.
type Renderer struct {
	Fonts  *fonts.Registry
	Images ImageSource
	l      *slog.Logger
}

// NewRenderer creates a renderer. A nil registry gets the built-in fonts only.
func NewRenderer(reg *fonts.Registry, images ImageSource) *Renderer {
	if reg == nil {
		reg = fonts.NewRegistry()
	}
	return &Renderer{Fonts: reg, Images: images, l: applog.WithComponent("export")}
}

// PixelSize returns the output size of a canvas at scale.
func PixelSize(size domain.CanvasSizeProfile, scale float64) (w, h int) {
	return int(math.Round(float64(size.Width) * scale)), int(math.Round(float64(size.Height) * scale))
}

// RenderPage draws one page at the given scale.
func (r *Renderer) RenderPage(ctx context.Context, p domain.Page, size domain.CanvasSizeProfile, scale float64) (*image.RGBA, error) {
	if size.Width <= 0 || size.Height <= 0 {
		size = domain.DefaultCanvasSize
	}
	w, h := PixelSize(size, scale)
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	dc := gg.NewContext(w, h)
	if err := paintBackground(dc, p.Background, float64(w), float64(h)); err != nil {
		r.l.Warn("bad background; using white", slog.String("page", p.ID), slog.String("background", p.Background), slog.Any("err", err))
		dc.SetColor(color.White)
		dc.Clear()
	}
	dc.Scale(scale, scale)
	for _, o := range p.Elements {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !o.Visible || o.Opacity <= 0 {
			continue
		}
		r.drawObject(ctx, dc, o, scale)
	}
	return rgba(dc), nil
}

func rgba(dc *gg.Context) *image.RGBA {
	if im, ok := dc.Image().(*image.RGBA); ok {
		return im
	}
	src := dc.Image()
	im := image.NewRGBA(src.Bounds())
	draw.Draw(im, im.Bounds(), src, src.Bounds().Min, draw.Src)
	return im
}

// paintBackground fills the device area with a colour or a CSS style
// linear gradient, where 0deg points up and angles turn clockwise.
func paintBackground(dc *gg.Context, token string, w, h float64) error {
	if token == "" {
		token = domain.DefaultBackground
	}
	solid, grad, err := domain.ParseBackground(token)
	if err != nil {
		return err
	}
	if grad == nil {
		dc.SetColor(solid)
		dc.Clear()
		return nil
	}
	rad := grad.AngleDegrees * math.Pi / 180
	dx, dy := math.Sin(rad), -math.Cos(rad)
	half := (math.Abs(w*dx) + math.Abs(h*dy)) / 2
	cx, cy := w/2, h/2
	g := gg.NewLinearGradient(cx-dx*half, cy-dy*half, cx+dx*half, cy+dy*half)
	last := float64(len(grad.Stops) - 1)
	for i, c := range grad.Stops {
		g.AddColorStop(float64(i)/last, c)
	}
	dc.SetFillStyle(g)
	dc.DrawRectangle(0, 0, w, h)
	dc.Fill()
	return nil
}

// drawObject paints o onto dc. Objects with opacity or a shadow are drawn on
// a separate layer first and composited.
func (r *Renderer) drawObject(ctx context.Context, dc *gg.Context, o domain.GraphicObject, scale float64) {
	opacity := math.Min(1, o.Opacity)
	if opacity >= 1 && o.Shadow == nil {
		r.paint(ctx, dc, o, scale)
		return
	}
	layer := gg.NewContext(dc.Width(), dc.Height())
	layer.Scale(scale, scale)
	r.paint(ctx, layer, o, scale)

	dst, src := rgba(dc), rgba(layer)
	mask := image.NewUniform(color.Alpha{A: uint8(math.Round(opacity * 255))})
	if o.Shadow != nil {
		sh := shadowLayer(src, *o.Shadow, scale)
		draw.DrawMask(dst, dst.Bounds(), sh, image.Point{}, mask, image.Point{}, draw.Over)
	}
	draw.DrawMask(dst, dst.Bounds(), src, image.Point{}, mask, image.Point{}, draw.Over)
}

// shadowLayer tints the alpha of src with the shadow colour, offsets it and
// blurs it. Blur follows the canvas convention of sigma = blur/2.
func shadowLayer(src *image.RGBA, s domain.Shadow, scale float64) *image.RGBA {
	c, err := domain.ParseColor(s.Color)
	if err != nil {
		c = color.NRGBA{A: 255}
	}
	a := math.Max(0, math.Min(1, s.Opacity)) * float64(c.A) / 255
	dx, dy := s.Offset()
	ox, oy := int(math.Round(dx*scale)), int(math.Round(dy*scale))

	b := src.Bounds()
	out := image.NewRGBA(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		ty := y + oy
		if ty < b.Min.Y || ty >= b.Max.Y {
			continue
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			tx := x + ox
			if tx < b.Min.X || tx >= b.Max.X {
				continue
			}
			alpha := float64(src.Pix[src.PixOffset(x, y)+3]) * a
			if alpha == 0 {
				continue
			}
			i := out.PixOffset(tx, ty)
			out.Pix[i+0] = uint8(float64(c.R) * alpha / 255)
			out.Pix[i+1] = uint8(float64(c.G) * alpha / 255)
			out.Pix[i+2] = uint8(float64(c.B) * alpha / 255)
			out.Pix[i+3] = uint8(alpha)
		}
	}
	blurRGBA(out, s.Blur*scale/2)
	return out
}

// transform applies the object's placement the same way the canvas does:
// translate, rotate, scale, then flip about the centre.
func transform(dc *gg.Context, o domain.GraphicObject) {
	sx, sy := o.ScaleX, o.ScaleY
	if sx == 0 {
		sx = 1
	}
	if sy == 0 {
		sy = 1
	}
	dc.Translate(o.Left, o.Top)
	dc.Rotate(gg.Radians(o.Angle))
	dc.Scale(sx, sy)
	if o.FlipX || o.FlipY {
		fx, fy := 1.0, 1.0
		if o.FlipX {
			fx = -1
		}
		if o.FlipY {
			fy = -1
		}
		dc.Translate(o.Width/2, o.Height/2)
		dc.Scale(fx, fy)
		dc.Translate(-o.Width/2, -o.Height/2)
	}
}

func (r *Renderer) paint(ctx context.Context, dc *gg.Context, o domain.GraphicObject, scale float64) {
	dc.Push()
	defer dc.Pop()
	transform(dc, o)
	// gg strokes in device pixels.
	k := scale * math.Sqrt(math.Abs(nonZero(o.ScaleX)*nonZero(o.ScaleY)))
	w, h := o.Width, o.Height

	switch o.Type {
	case domain.TypeRect:
		r.paintShape(dc, o, k, true, func() {
			if rad := math.Min(o.CornerRadius, math.Min(w, h)/2); rad > 0 {
				dc.DrawRoundedRectangle(0, 0, w, h, rad)
			} else {
				dc.DrawRectangle(0, 0, w, h)
			}
		}, nil)
	case domain.TypeCircle:
		r.paintShape(dc, o, k, true, func() { dc.DrawEllipse(w/2, h/2, w/2, h/2) }, nil)
	case domain.TypeTriangle:
		r.paintShape(dc, o, k, true, func() {
			dc.MoveTo(w/2, 0)
			dc.LineTo(w, h)
			dc.LineTo(0, h)
			dc.ClosePath()
		}, nil)
	case domain.TypePath:
		p, err := vector.ParsePathData(o.Path)
		if err != nil {
			r.l.Warn("path skipped", slog.String("object", o.ID), slog.Any("err", err))
			return
		}
		r.paintShape(dc, o, k, false, func() { tracePath(dc, p) }, nil)
	case domain.TypeImage, domain.TypeSticker:
		r.paintImage(ctx, dc, o, k)
	case domain.TypeText:
		r.paintText(dc, o)
	default:
		r.l.Debug("unknown object type", slog.String("type", string(o.Type)))
	}
}

func nonZero(v float64) float64 {
	if v == 0 {
		return 1
	}
	return v
}

func tracePath(dc *gg.Context, p vector.Path) {
	for _, c := range p.Cmds {
		d := c.Data
		switch c.Op {
		case vector.MoveTo:
			dc.MoveTo(d[0], d[1])
		case vector.LineTo:
			dc.LineTo(d[0], d[1])
		case vector.QuadTo:
			dc.QuadraticTo(d[0], d[1], d[2], d[3])
		case vector.CubicTo:
			dc.CubicTo(d[0], d[1], d[2], d[3], d[4], d[5])
		case vector.Close:
			dc.ClosePath()
		}
	}
}

// paintShape fills and strokes a shape in paint order. outer strokes sit
// under the fill and inner strokes are clipped to the shape, so in both
// cases the visible band is the full stroke width. fill overrides the
// colour fill when set.
func (r *Renderer) paintShape(dc *gg.Context, o domain.GraphicObject, k float64, closed bool, shape func(), fill func()) {
	if fill == nil {
		fc, err := domain.ParseColor(o.Fill)
		fill = func() {
			if err != nil || fc.A == 0 {
				return
			}
			shape()
			dc.SetColor(fc)
			dc.Fill()
		}
	}
	sc, err := domain.ParseColor(o.Stroke.Color)
	if err != nil || sc.A == 0 || o.Stroke.Width <= 0 {
		fill()
		return
	}
	stroke := func(width float64) {
		shape()
		dc.SetColor(sc)
		dc.SetLineWidth(width * k)
		dc.SetLineJoin(gg.LineJoinRound)
		dc.SetLineCap(gg.LineCapRound)
		dc.Stroke()
	}
	switch {
	case !closed:
		fill()
		stroke(o.Stroke.Width)
	case o.Stroke.PaintOrder == domain.PaintOuter:
		stroke(2 * o.Stroke.Width)
		fill()
	case o.Stroke.PaintOrder == domain.PaintMiddle:
		fill()
		stroke(o.Stroke.Width)
	default:
		fill()
		shape()
		dc.Clip()
		stroke(2 * o.Stroke.Width)
		dc.ResetClip()
	}
}

func (r *Renderer) paintImage(ctx context.Context, dc *gg.Context, o domain.GraphicObject, k float64) {
	if r.Images == nil {
		r.l.Warn("no image source; image skipped", slog.String("object", o.ID))
		return
	}
	im, err := r.Images.Image(ctx, o.Src)
	if err != nil {
		r.l.Warn("image skipped", slog.String("object", o.ID), slog.Any("err", err))
		return
	}
	b := im.Bounds()
	if b.Empty() {
		return
	}
	border := o
	border.Fill = ""
	r.paintShape(dc, border, k, true, func() { dc.DrawRectangle(0, 0, o.Width, o.Height) }, func() {
		dc.Push()
		dc.Scale(o.Width/float64(b.Dx()), o.Height/float64(b.Dy()))
		dc.DrawImage(im, -b.Min.X, -b.Min.Y)
		dc.Pop()
	})
}

// paintText lays the text out into the object's width and draws it line by
// line. Text outlines are approximated by offset copies of the glyphs.
func (r *Renderer) paintText(dc *gg.Context, o domain.GraphicObject) {
	face, err := r.Fonts.Face(fonts.SpecFor(o))
	if err != nil {
		r.l.Warn("text skipped", slog.String("object", o.ID), slog.Any("err", err))
		return
	}
	st := fonts.Style{SizePx: o.FontSize, CharSpacing: o.CharSpacing, LineHeight: o.LineHeight}
	box := fonts.Wrap(face, st, o.Text, o.Width)
	dc.SetFontFace(face)

	pass := func(c color.Color, dx, dy float64) {
		dc.SetColor(c)
		for i, ln := range box.Lines {
			x := fonts.LineOffset(o.TextAlign, o.Width, ln.Width) + dx
			y := box.Ascent + float64(i)*box.Advance + dy
			drawTracked(dc, face, st, ln.Text, x, y)
		}
	}
	fc, ferr := domain.ParseColor(o.Fill)
	sc, serr := domain.ParseColor(o.Stroke.Color)
	outline := func() {
		if serr != nil || sc.A == 0 || o.Stroke.Width <= 0 {
			return
		}
		rad := o.Stroke.Width / 2
		for i := 0; i < 8; i++ {
			a := float64(i) * math.Pi / 4
			pass(sc, rad*math.Cos(a), rad*math.Sin(a))
		}
	}
	fillText := func() {
		if ferr == nil && fc.A > 0 {
			pass(fc, 0, 0)
		}
	}
	if o.Stroke.StrokeBelowFill() {
		outline()
		fillText()
	} else {
		fillText()
		outline()
	}
}

func drawTracked(dc *gg.Context, face font.Face, st fonts.Style, s string, x, y float64) {
	t := st.Tracking()
	if t == 0 {
		dc.DrawString(s, x, y)
		return
	}
	for _, ch := range s {
		cs := string(ch)
		dc.DrawString(cs, x, y)
		x += fonts.Measure(face, st, cs) + t
	}
}
