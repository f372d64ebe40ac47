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
	"fmt"
	"io"
	"log/slog"

	"github.com/jung-kurt/gofpdf"

	"gocarousel/internal/domain"
	"gocarousel/internal/store"
)

// PDFOptions controls the PDF carousel.
// Each slide becomes one page whose size in points equals the canvas size
// in pixels, so a 1080x1350 canvas yields 1080x1350pt pages. The slide image
// is rendered at Scale and placed full-bleed.
type PDFOptions struct {
	Options
	Title  string
	Author string
}

// PDF writes the selected pages as a multi-page PDF to w.
func (x *Exporter) PDF(ctx context.Context, p domain.CarouselProject, opt PDFOptions, w io.Writer) error {
	if opt.Format == "" {
		opt.Format = PNG
	}
	images, err := x.Raster(ctx, p, opt.Options)
	if err != nil {
		return err
	}
	size := p.CanvasSize
	if size.Width <= 0 || size.Height <= 0 {
		size = domain.DefaultCanvasSize
	}
	pw, ph := float64(size.Width), float64(size.Height)

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pw, Ht: ph},
	})
	title := opt.Title
	if title == "" {
		title = "Carousel"
	}
	pdf.SetTitle(title, true)
	if opt.Author != "" {
		pdf.SetAuthor(opt.Author, true)
	}
	pdf.SetCreator("Go Carousel Studio", true)
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)

	imgType := "PNG"
	if opt.Format == JPEG {
		imgType = "JPG"
	}
	for _, im := range images {
		pdf.AddPageFormat("", gofpdf.SizeType{Wd: pw, Ht: ph})
		name := fmt.Sprintf("slide-%d", im.Index)
		iopt := gofpdf.ImageOptions{ImageType: imgType}
		pdf.RegisterImageOptionsReader(name, iopt, bytes.NewReader(im.Data))
		pdf.ImageOptions(name, 0, 0, pw, ph, false, iopt, 0, "")
	}
	if err := pdf.Error(); err != nil {
		return fmt.Errorf("build pdf: %w", err)
	}
	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	x.l.Info("pdf exported", slog.Int("pages", len(images)))
	return nil
}

// WritePDF renders the PDF and writes it atomically to path.
func (x *Exporter) WritePDF(ctx context.Context, p domain.CarouselProject, opt PDFOptions, path string) error {
	var buf bytes.Buffer
	if err := x.PDF(ctx, p, opt, &buf); err != nil {
		return err
	}
	if err := store.WriteFile(path, buf.Bytes(), false); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}
