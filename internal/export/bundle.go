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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/klauspost/compress/zip"

	"gocarousel/internal/store"
)

// ManifestName is the metadata entry at the root of a bundle.
const ManifestName = "manifest.json"

// Manifest describes the contents of a bundle.
type Manifest struct {
	Name      string          `json:"name"`
	CreatedAt string          `json:"createdAt"`
	Slides    []ManifestSlide `json:"slides"`
}

type ManifestSlide struct {
	Page   int    `json:"page"`
	PageID string `json:"pageId"`
	File   string `json:"file"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Bundle writes the images and a manifest into a zip archive on w.
// Images are stored without recompression.
func Bundle(w io.Writer, name string, images []Image, now time.Time) error {
	if len(images) == 0 {
		return ErrNoPages
	}
	zw := zip.NewWriter(w)
	m := Manifest{Name: name, CreatedAt: now.UTC().Format(time.RFC3339)}
	base := FileBase(name)
	for _, im := range images {
		fn := im.FileName(base)
		if err := addZipFile(zw, fn, im.Data, zip.Store); err != nil {
			return fmt.Errorf("zip add image: %w", err)
		}
		m.Slides = append(m.Slides, ManifestSlide{Page: im.Index + 1, PageID: im.PageID, File: fn, Width: im.Width, Height: im.Height})
	}
	mb, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("build manifest: %w", err)
	}
	if err := addZipFile(zw, ManifestName, mb, zip.Deflate); err != nil {
		return fmt.Errorf("zip add manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}

// WriteBundle builds the bundle and writes it atomically to path.
func (x *Exporter) WriteBundle(path, name string, images []Image) error {
	var buf bytes.Buffer
	if err := Bundle(&buf, name, images, time.Now()); err != nil {
		return err
	}
	if err := store.WriteFile(path, buf.Bytes(), false); err != nil {
		return fmt.Errorf("write bundle: %w", err)
	}
	x.l.Info("bundle exported", slog.String("zip", path), slog.Int("slides", len(images)))
	return nil
}

func addZipFile(zw *zip.Writer, name string, data []byte, method uint16) error {
	w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: method, Modified: time.Now()})
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
