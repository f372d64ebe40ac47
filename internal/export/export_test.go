/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image/jpeg"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"

	"gocarousel/internal/assets"
	"gocarousel/internal/domain"
)

func threePages() domain.CarouselProject {
	p := domain.CarouselProject{CanvasSize: domain.SizePortrait}
	for _, id := range []string{"a", "b", "c"} {
		p.Pages = append(p.Pages, domain.Page{
			ID:         id,
			Background: "#336699",
			Elements:   []domain.GraphicObject{obj(domain.TypeRect, 100, 100, 400, 400, "#ffffff")},
		})
	}
	return p
}

func newExporter() *Exporter { return New(NewRenderer(nil, assets.NewLoader())) }

type countingSource struct {
	p     domain.CarouselProject
	calls int
}

func (s *countingSource) Project() domain.CarouselProject {
	s.calls++
	return s.p
}

func TestRasterSelectionAndScale(t *testing.T) {
	x := newExporter()
	images, err := x.Raster(context.Background(), threePages(), Options{Format: PNG, Scale: 0.5, Pages: []int{2, 0, 2}})
	if err != nil {
		t.Fatalf("Raster: %v", err)
	}
	if len(images) != 2 {
		t.Fatalf("want 2 images, got %d", len(images))
	}
	if images[0].Index != 0 || images[1].Index != 2 || images[1].PageID != "c" {
		t.Fatalf("unexpected order: %+v", images)
	}
	for _, im := range images {
		cfg, err := png.DecodeConfig(bytes.NewReader(im.Data))
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if cfg.Width != 540 || cfg.Height != 675 || im.Width != 540 || im.Height != 675 {
			t.Fatalf("size = %dx%d (%dx%d)", cfg.Width, cfg.Height, im.Width, im.Height)
		}
	}
	if got := images[1].FileName("deck"); got != "deck-03.png" {
		t.Fatalf("file name = %q", got)
	}
}

func TestRasterJPEG(t *testing.T) {
	x := newExporter()
	images, err := x.Raster(context.Background(), threePages(), Options{Format: "jpg", Pages: []int{1}})
	if err != nil {
		t.Fatalf("Raster: %v", err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(images[0].Data))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 1080 || cfg.Height != 1350 {
		t.Fatalf("size = %dx%d", cfg.Width, cfg.Height)
	}
	if images[0].FileName("") != "slide-02.jpg" {
		t.Fatalf("file name = %q", images[0].FileName(""))
	}
}

func TestRasterRejectsBadOptions(t *testing.T) {
	x := newExporter()
	ctx := context.Background()
	p := threePages()
	if _, err := x.Raster(ctx, p, Options{}); !errors.Is(err, ErrNoPages) {
		t.Fatalf("empty selection: %v", err)
	}
	if _, err := x.Raster(ctx, p, Options{Scale: 4, Pages: []int{0}}); !errors.Is(err, ErrScale) {
		t.Fatalf("scale 4: %v", err)
	}
	if _, err := x.Raster(ctx, p, Options{Scale: 0.25, Pages: []int{0}}); !errors.Is(err, ErrScale) {
		t.Fatalf("scale 0.25: %v", err)
	}
	if _, err := x.Raster(ctx, p, Options{Format: "gif", Pages: []int{0}}); !errors.Is(err, ErrFormat) {
		t.Fatalf("gif: %v", err)
	}
	if _, err := x.Raster(ctx, p, Options{Pages: []int{5}}); err == nil {
		t.Fatalf("expected out of range error")
	}
}

func TestExportReadsSource(t *testing.T) {
	src := &countingSource{p: threePages()}
	images, err := newExporter().Export(context.Background(), src, Options{Scale: 0.5, Pages: AllPages(3)})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if src.calls != 1 || len(images) != 3 {
		t.Fatalf("calls=%d images=%d", src.calls, len(images))
	}
}

func TestPDF(t *testing.T) {
	x := newExporter()
	var buf bytes.Buffer
	err := x.PDF(context.Background(), threePages(), PDFOptions{Options: Options{Scale: 0.5, Pages: AllPages(3)}, Title: "Deck"}, &buf)
	if err != nil {
		t.Fatalf("PDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Fatalf("not a pdf: %q", buf.Bytes()[:8])
	}
	if err := x.PDF(context.Background(), threePages(), PDFOptions{}, io.Discard); !errors.Is(err, ErrNoPages) {
		t.Fatalf("empty selection: %v", err)
	}
}

func TestBundleManifest(t *testing.T) {
	x := newExporter()
	images, err := x.Raster(context.Background(), threePages(), Options{Scale: 0.5, Pages: []int{0, 1}})
	if err != nil {
		t.Fatalf("Raster: %v", err)
	}
	var buf bytes.Buffer
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if err := Bundle(&buf, "Launch Deck", images, now); err != nil {
		t.Fatalf("Bundle: %v", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("open zip: %v", err)
	}
	names := map[string]*zip.File{}
	for _, f := range zr.File {
		names[f.Name] = f
	}
	for _, want := range []string{"launch-deck-01.png", "launch-deck-02.png", ManifestName} {
		if names[want] == nil {
			t.Fatalf("missing %s in %v", want, names)
		}
	}
	rc, err := names[ManifestName].Open()
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	var m Manifest
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		t.Fatalf("manifest: %v", err)
	}
	if m.Name != "Launch Deck" || m.CreatedAt != "2025-03-01T12:00:00Z" || len(m.Slides) != 2 {
		t.Fatalf("manifest = %+v", m)
	}
	if m.Slides[1].Page != 2 || m.Slides[1].PageID != "b" || m.Slides[1].Width != 540 {
		t.Fatalf("slide = %+v", m.Slides[1])
	}
	if err := Bundle(io.Discard, "x", nil, now); !errors.Is(err, ErrNoPages) {
		t.Fatalf("empty bundle: %v", err)
	}
}

func TestThumbnail(t *testing.T) {
	uri, err := newExporter().Thumbnail(context.Background(), threePages())
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if !strings.HasPrefix(uri, "data:image/jpeg;base64,") {
		t.Fatalf("uri prefix = %q", uri[:24])
	}
	_, data, err := domain.DecodeDataURI(uri)
	if err != nil {
		t.Fatal(err)
	}
	cfg, err := jpeg.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != ThumbnailWidth {
		t.Fatalf("width = %d", cfg.Width)
	}
	if _, err := newExporter().Thumbnail(context.Background(), domain.CarouselProject{}); !errors.Is(err, ErrNoPages) {
		t.Fatalf("empty project: %v", err)
	}
}

func TestBatchExportSocial(t *testing.T) {
	out := t.TempDir()
	paths, err := newExporter().BatchExport(context.Background(), threePages(), BatchOptions{
		Preset: PresetSocial, Scale: 0.5, OutDir: out, BaseName: "My Deck",
	})
	if err != nil {
		t.Fatalf("BatchExport: %v", err)
	}
	if len(paths) != 4 {
		t.Fatalf("want 3 slides and a zip, got %v", paths)
	}
	for _, p := range []string{
		filepath.Join(out, "social", "png", "my-deck-01.png"),
		filepath.Join(out, "social", "png", "my-deck-03.png"),
		filepath.Join(out, "social", "my-deck.zip"),
	} {
		if st, err := os.Stat(p); err != nil || st.Size() == 0 {
			t.Fatalf("expected %s: %v", p, err)
		}
	}
}

func TestBatchExportPrintAndUnknownFormat(t *testing.T) {
	out := t.TempDir()
	x := newExporter()
	paths, err := x.BatchExport(context.Background(), threePages(), BatchOptions{Preset: PresetPrint, Scale: 0.5, Pages: []int{0}, OutDir: out})
	if err != nil {
		t.Fatalf("BatchExport: %v", err)
	}
	if len(paths) != 1 || paths[0] != filepath.Join(out, "print", "carousel.pdf") {
		t.Fatalf("paths = %v", paths)
	}
	if _, err := x.BatchExport(context.Background(), threePages(), BatchOptions{Formats: []string{"tiff"}, OutDir: out}); !errors.Is(err, ErrFormat) {
		t.Fatalf("tiff: %v", err)
	}
}

func TestPixelSize(t *testing.T) {
	if w, h := PixelSize(domain.SizeStory, 2); w != 2160 || h != 3840 {
		t.Fatalf("story@2 = %dx%d", w, h)
	}
}
