/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package persistence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"gocarousel/internal/domain"
	"gocarousel/internal/fonts"
	applog "gocarousel/internal/log"
	"gocarousel/internal/store"
)

// SaveFont stores a font for the session and registers it once the row is
// written. A font with the same name replaces the stored one.
func (e *Engine) SaveFont(ctx context.Context, name string, data []byte) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("save font: name is required")
	}
	owner, err := e.owner()
	if err != nil {
		return err
	}
	if e.fonts == nil {
		return errors.New("save font: no font registry")
	}
	if err := fonts.Validate(data); err != nil {
		return fmt.Errorf("save font %q: %w", name, err)
	}
	uri := domain.DataURI(fontMIME(data), data)
	_, err = e.rows.Upsert(ctx, store.TableFonts, store.Row{
		"id":         e.NewID(),
		"owner_id":   owner,
		"name":       name,
		"font_data":  uri,
		"created_at": store.Timestamp(e.Now()),
	}, "owner_id", "name")
	if err != nil {
		return fmt.Errorf("save font %q: %w", name, err)
	}
	if err := e.fonts.RegisterDataURI(name, uri); err != nil {
		return fmt.Errorf("save font: %w", err)
	}
	e.doc.Document().SetCustomFonts(e.fonts.Families())
	return nil
}

// LoadFonts registers every stored font of the session. Fonts that fail to
// parse are logged and skipped. It returns the names that were registered.
func (e *Engine) LoadFonts(ctx context.Context) ([]string, error) {
	if e.fonts == nil {
		return nil, errors.New("load fonts: no font registry")
	}
	rows, err := e.selectOwned(ctx, store.TableFonts, nil, store.Order{Column: "name"})
	if err != nil {
		return nil, err
	}
	l := applog.WithOperation(e.l, "load_fonts")
	var loaded []string
	for _, r := range rows {
		a := domain.FontAsset{OwnerID: r.String("owner_id"), Name: r.String("name"), FontData: r.String("font_data")}
		if err := e.fonts.RegisterDataURI(a.Name, a.FontData); err != nil {
			l.Warn("font skipped", slog.String("font", a.Name), slog.Any("err", err))
			continue
		}
		loaded = append(loaded, a.Name)
	}
	e.doc.Document().SetCustomFonts(e.fonts.Families())
	l.Info("fonts loaded", slog.Int("count", len(loaded)), slog.Int("skipped", len(rows)-len(loaded)))
	return loaded, nil
}

func fontMIME(data []byte) string {
	if len(data) >= 4 {
		switch string(data[:4]) {
		case "OTTO":
			return "font/otf"
		case "wOFF":
			return "font/woff"
		case "wOF2":
			return "font/woff2"
		case "\x00\x01\x00\x00", "true":
			return "font/ttf"
		}
	}
	return http.DetectContentType(data)
}
