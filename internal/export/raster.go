/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export rasterizes carousel pages and packages them as image
// files, a PDF carousel or a zip bundle.
package export

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gocarousel/internal/domain"
	applog "gocarousel/internal/log"
	"gocarousel/internal/store"
)

var (
	// ErrNoPages is returned when an export selects no pages.
	ErrNoPages = errors.New("no pages selected for export")
	// ErrScale is returned for a scale outside [MinScale, MaxScale].
	ErrScale = errors.New("export scale out of range")
	// ErrFormat is returned for an unknown image format.
	ErrFormat = errors.New("unsupported export format")
)

// Format is a raster output format.
type Format string

const (
	PNG  Format = "png"
	JPEG Format = "jpeg"
)

// Scale limits and defaults.
const (
	MinScale           = 0.5
	MaxScale           = 3.0
	DefaultJPEGQuality = 92
	ThumbnailWidth     = 270
)

// ParseFormat accepts png, jpeg and jpg in any case.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "png":
		return PNG, nil
	case "jpeg", "jpg":
		return JPEG, nil
	}
	return "", fmt.Errorf("%w: %q", ErrFormat, s)
}

// Ext returns the file extension without a dot.
func (f Format) Ext() string {
	if f == JPEG {
		return "jpg"
	}
	return "png"
}

func (f Format) MIME() string {
	if f == JPEG {
		return "image/jpeg"
	}
	return "image/png"
}

// Options selects what to export. Pages holds zero-based page indices and
// must not be empty. A zero Scale means 1.
type Options struct {
	Format  Format
	Scale   float64
	Pages   []int
	Quality int
}

// AllPages returns the indices 0..n-1.
func AllPages(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = i
	}
	return out
}

// normalize validates o against a page count and returns the selected
// indices sorted and without duplicates.
func (o *Options) normalize(pageCount int) ([]int, error) {
	if len(o.Pages) == 0 {
		return nil, ErrNoPages
	}
	if o.Scale == 0 {
		o.Scale = 1
	}
	if o.Scale < MinScale || o.Scale > MaxScale {
		return nil, fmt.Errorf("%w: %v not in [%v, %v]", ErrScale, o.Scale, MinScale, MaxScale)
	}
	f, err := ParseFormat(string(o.Format))
	if err != nil {
		return nil, err
	}
	o.Format = f
	if o.Quality <= 0 || o.Quality > 100 {
		o.Quality = DefaultJPEGQuality
	}
	seen := map[int]bool{}
	var pages []int
	for _, i := range o.Pages {
		if i < 0 || i >= pageCount {
			return nil, fmt.Errorf("page %d out of range (document has %d)", i, pageCount)
		}
		if !seen[i] {
			seen[i] = true
			pages = append(pages, i)
		}
	}
	sort.Ints(pages)
	return pages, nil
}

// Image is one exported page.
type Image struct {
	Index  int
	PageID string
	Format Format
	Width  int
	Height int
	Data   []byte
}

// FileName returns "<base>-<nn>.<ext>" with a one-based page number.
func (im Image) FileName(base string) string {
	if base == "" {
		base = "slide"
	}
	return fmt.Sprintf("%s-%02d.%s", base, im.Index+1, im.Format.Ext())
}

// Source supplies the document to export, with the live canvas flushed.
type Source interface {
	Project() domain.CarouselProject
}

// Exporter renders documents into files.
type Exporter struct {
	r *Renderer
	l *slog.Logger
}

func New(r *Renderer) *Exporter {
	return &Exporter{r: r, l: applog.WithComponent("export")}
}

func (x *Exporter) Renderer() *Renderer { return x.r }

// Export flushes the active page through src and rasterizes the selection.
func (x *Exporter) Export(ctx context.Context, src Source, o Options) ([]Image, error) {
	return x.Raster(ctx, src.Project(), o)
}

// Raster renders the selected pages of p, one image per page.
func (x *Exporter) Raster(ctx context.Context, p domain.CarouselProject, o Options) ([]Image, error) {
	pages, err := o.normalize(len(p.Pages))
	if err != nil {
		return nil, err
	}
	l := applog.WithOperation(x.l, "raster")
	out := make([]Image, 0, len(pages))
	for _, i := range pages {
		pg := p.Pages[i]
		im, err := x.r.RenderPage(ctx, pg, p.CanvasSize, o.Scale)
		if err != nil {
			return nil, fmt.Errorf("render page %d: %w", i+1, err)
		}
		data, err := encode(im, o.Format, o.Quality)
		if err != nil {
			return nil, fmt.Errorf("encode page %d: %w", i+1, err)
		}
		b := im.Bounds()
		out = append(out, Image{Index: i, PageID: pg.ID, Format: o.Format, Width: b.Dx(), Height: b.Dy(), Data: data})
	}
	l.Info("pages rendered", slog.Int("count", len(out)), slog.String("format", string(o.Format)), slog.Float64("scale", o.Scale))
	return out, nil
}

func encode(im image.Image, f Format, quality int) ([]byte, error) {
	var buf bytes.Buffer
	switch f {
	case JPEG:
		flat := image.NewRGBA(im.Bounds())
		draw.Draw(flat, flat.Bounds(), image.NewUniform(color.White), image.Point{}, draw.Src)
		draw.Draw(flat, flat.Bounds(), im, im.Bounds().Min, draw.Over)
		if err := jpeg.Encode(&buf, flat, &jpeg.Options{Quality: quality}); err != nil {
			return nil, err
		}
	default:
		if err := png.Encode(&buf, im); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// WriteFiles writes each image into dir as <base>-<nn>.<ext> and returns the paths.
func WriteFiles(dir, base string, images []Image) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("ensure out dir: %w", err)
	}
	paths := make([]string, 0, len(images))
	for _, im := range images {
		p := filepath.Join(dir, im.FileName(base))
		if err := store.WriteFile(p, im.Data, false); err != nil {
			return paths, fmt.Errorf("write %s: %w", p, err)
		}
		paths = append(paths, p)
	}
	return paths, nil
}

// Thumbnail renders the first page as a small JPEG data URI for previews.
func (x *Exporter) Thumbnail(ctx context.Context, p domain.CarouselProject) (string, error) {
	if len(p.Pages) == 0 {
		return "", ErrNoPages
	}
	size := p.CanvasSize
	if size.Width <= 0 {
		size = domain.DefaultCanvasSize
	}
	im, err := x.r.RenderPage(ctx, p.Pages[0], size, float64(ThumbnailWidth)/float64(size.Width))
	if err != nil {
		return "", err
	}
	data, err := encode(im, JPEG, 80)
	if err != nil {
		return "", err
	}
	return domain.DataURI(JPEG.MIME(), data), nil
}
