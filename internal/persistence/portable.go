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
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"gocarousel/internal/domain"
	applog "gocarousel/internal/log"
	"gocarousel/internal/store"
)

// FileExt is the extension of portable preset files.
const FileExt = ".preset"

var (
	// ErrMissingMarker means the file is not an exported preset.
	ErrMissingMarker = errors.New("missing preset marker")
	// ErrMalformed means the file is not valid JSON.
	ErrMalformed = errors.New("malformed preset file")
	// ErrSchema means the file has the marker but the wrong shape.
	ErrSchema = errors.New("preset file does not match schema")
)

// ValidationError rejects an import before anything is written.
// Message is meant for the user.
type ValidationError struct {
	Message string
	Details []string
	Err     error
}

func (e *ValidationError) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	return e.Message + ": " + strings.Join(e.Details, "; ")
}

func (e *ValidationError) Unwrap() error { return e.Err }

//go:embed preset.schema.json
var presetSchema []byte

var schema = func() *gojsonschema.Schema {
	s, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(presetSchema))
	if err != nil {
		panic(fmt.Sprintf("preset schema: %v", err))
	}
	return s
}()

// EncodePortable wraps a preset in the portable file format.
func EncodePortable(p domain.Preset, now time.Time) ([]byte, error) {
	f := domain.PortableFile{
		Marker:     true,
		Version:    domain.PortableVersion,
		ExportedAt: now.UTC().Format(time.RFC3339),
		Name:       p.Name,
		Data:       p.Data,
	}
	return json.MarshalIndent(f, "", "  ")
}

// ParsePortable validates and decodes a portable file. Absence of the marker
// is checked first and always yields ErrMissingMarker.
func ParsePortable(data []byte) (domain.PortableFile, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.PortableFile{}, &ValidationError{Message: "This file is not a valid preset file", Err: ErrMalformed}
	}
	var marker bool
	if raw, ok := probe[domain.PortableMarker]; !ok || json.Unmarshal(raw, &marker) != nil || !marker {
		return domain.PortableFile{}, &ValidationError{
			Message: "This file was not exported from the carousel editor",
			Err:     ErrMissingMarker,
		}
	}
	res, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return domain.PortableFile{}, &ValidationError{Message: "This preset file could not be read", Details: []string{err.Error()}, Err: ErrMalformed}
	}
	if !res.Valid() {
		var details []string
		for _, d := range res.Errors() {
			details = append(details, d.String())
		}
		return domain.PortableFile{}, &ValidationError{Message: "This preset file is damaged", Details: details, Err: ErrSchema}
	}
	var f domain.PortableFile
	if err := json.Unmarshal(data, &f); err != nil {
		return domain.PortableFile{}, &ValidationError{Message: "This preset file is damaged", Details: []string{err.Error()}, Err: ErrSchema}
	}
	return f, nil
}

// ConfirmName asks the user for the name to import under, seeded with the
// file's name. Returning false cancels the import.
type ConfirmName func(suggested string) (name string, ok bool)

// ExportPreset produces the portable file bytes for a preset.
func (e *Engine) ExportPreset(p domain.Preset) ([]byte, error) {
	return EncodePortable(p, e.Now())
}

// ImportPreset validates a portable file and inserts it as a new preset
// under the confirmed name. Any rejection or cancellation leaves the store
// untouched.
func (e *Engine) ImportPreset(ctx context.Context, data []byte, confirm ConfirmName) (domain.Preset, error) {
	l := applog.WithOperation(e.l, "import_preset")
	f, err := ParsePortable(data)
	if err != nil {
		l.Warn("import rejected", slog.Any("err", err))
		return domain.Preset{}, err
	}
	name := f.Name
	if confirm != nil {
		var ok bool
		name, ok = confirm(f.Name)
		if !ok {
			return domain.Preset{}, ErrImportCancelled
		}
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Preset{}, ErrImportCancelled
	}
	return e.insertPreset(ctx, name, f.Data)
}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// FileName returns a filesystem-safe file name for a preset.
func FileName(name string) string {
	s := strings.Trim(unsafeName.ReplaceAllString(strings.TrimSpace(name), "-"), "-.")
	if s == "" {
		s = "preset"
	}
	return s + FileExt
}

// WritePortableFile exports p into dir and returns the written path.
func (e *Engine) WritePortableFile(dir string, p domain.Preset) (string, error) {
	data, err := e.ExportPreset(p)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, FileName(p.Name))
	if err := store.WriteFile(path, data, false); err != nil {
		return "", fmt.Errorf("write preset file: %w", err)
	}
	return path, nil
}

// ImportFile reads a portable file from disk and imports it.
func (e *Engine) ImportFile(ctx context.Context, path string, confirm ConfirmName) (domain.Preset, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Preset{}, err
	}
	return e.ImportPreset(ctx, data, confirm)
}
