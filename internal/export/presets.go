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
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"gocarousel/internal/domain"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetSocial PresetName = "social"
	PresetHiRes  PresetName = "hires"
	PresetWeb    PresetName = "web"
	PresetPrint  PresetName = "print"
)

// BatchOptions controls a batch export of one document into several formats.
//
// Path semantics:
//   - Outputs go to <OutDir>/<preset>/.
//   - png and jpeg write one file per slide into png/ or jpeg/ subfolders.
//   - pdf and zip write a single <base>.pdf or <base>.zip.
//
// An empty Pages list exports every page. Scale and Formats fall back to
// the preset's values when zero.
type BatchOptions struct {
	Preset   PresetName
	Formats  []string // allowed: png, jpeg, pdf, zip
	Pages    []int
	Scale    float64
	Quality  int
	OutDir   string
	BaseName string
}

// BatchExport renders p according to opt and returns the written paths.
func (x *Exporter) BatchExport(ctx context.Context, p domain.CarouselProject, opt BatchOptions) ([]string, error) {
	if opt.Preset == "" {
		opt.Preset = PresetSocial
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}
	scale := opt.Scale
	if scale == 0 {
		scale = presetScale(opt.Preset)
	}
	pages := opt.Pages
	if len(pages) == 0 {
		pages = AllPages(len(p.Pages))
	}
	outDir := filepath.Join(opt.OutDir, string(opt.Preset))
	base := FileBase(opt.BaseName)

	// Raster output is shared between png files and the zip bundle.
	cache := map[Format][]Image{}
	raster := func(f Format) ([]Image, error) {
		if im, ok := cache[f]; ok {
			return im, nil
		}
		im, err := x.Raster(ctx, p, Options{Format: f, Scale: scale, Pages: pages, Quality: opt.Quality})
		if err != nil {
			return nil, err
		}
		cache[f] = im
		return im, nil
	}

	var written []string
	for _, f := range formats {
		switch strings.ToLower(strings.TrimSpace(f)) {
		case "png", "jpeg", "jpg":
			ff, _ := ParseFormat(f)
			images, err := raster(ff)
			if err != nil {
				return written, fmt.Errorf("%s: %w", ff, err)
			}
			paths, err := WriteFiles(filepath.Join(outDir, string(ff)), base, images)
			written = append(written, paths...)
			if err != nil {
				return written, err
			}
		case "pdf":
			out := filepath.Join(outDir, base+".pdf")
			po := PDFOptions{Options: Options{Format: PNG, Scale: scale, Pages: pages}, Title: opt.BaseName}
			if err := x.WritePDF(ctx, p, po, out); err != nil {
				return written, fmt.Errorf("pdf: %w", err)
			}
			written = append(written, out)
		case "zip":
			images, err := raster(PNG)
			if err != nil {
				return written, fmt.Errorf("zip: %w", err)
			}
			out := filepath.Join(outDir, base+".zip")
			if err := x.WriteBundle(out, opt.BaseName, images); err != nil {
				return written, err
			}
			written = append(written, out)
		default:
			return written, fmt.Errorf("%w: %s", ErrFormat, f)
		}
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []string {
	switch p {
	case PresetWeb:
		return []string{"jpeg"}
	case PresetPrint:
		return []string{"pdf"}
	case PresetHiRes:
		return []string{"png", "zip"}
	default:
		return []string{"png", "zip"}
	}
}

func presetScale(p PresetName) float64 {
	switch p {
	case PresetHiRes, PresetPrint:
		return 2
	default:
		return 1
	}
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileBase turns a document name into a safe file name stem.
func FileBase(name string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(name), "-"), "-.")
	if s == "" {
		return "carousel"
	}
	return strings.ToLower(s)
}
