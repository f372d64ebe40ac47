/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package log provides the slog setup shared by the carousel editor.
//
// Records go to stderr, either as one-line console text or as JSON, and
// optionally to a rotated JSON file. Attributes placed on a context with
// ContextWith or WithProject are appended to every record logged with that
// context.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync/atomic"

	lj "gopkg.in/natefinch/lumberjack.v2"

	"gocarousel/internal/version"
)

// Environment variables read by FromEnv.
const (
	EnvLevel  = "GCS_LOG_LEVEL"  // debug|info|warn|error
	EnvFormat = "GCS_LOG_FORMAT" // console|json
	EnvSource = "GCS_LOG_SOURCE" // true|false
	EnvFile   = "GCS_LOG_FILE"   // enables the rotated file log
)

// Options controls logger initialization. The zero value logs INFO and up to
// stderr as console text.
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
	Rotate    Rotation
}

// Rotation limits the file log. Zero fields take the defaults.
type Rotation struct {
	MaxSizeMB  int // default 10
	MaxBackups int // default 3
	MaxAgeDays int // default 28
}

func (r Rotation) writer(path string) io.Writer {
	w := &lj.Logger{Filename: path, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
	if r.MaxSizeMB > 0 {
		w.MaxSize = r.MaxSizeMB
	}
	if r.MaxBackups > 0 {
		w.MaxBackups = r.MaxBackups
	}
	if r.MaxAgeDays > 0 {
		w.MaxAge = r.MaxAgeDays
	}
	return w
}

var current atomic.Pointer[slog.Logger]

// L returns the application logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	if l := current.Load(); l != nil {
		return l
	}
	Init(FromEnv())
	return current.Load()
}

// Init replaces the application logger and slog.Default.
func Init(opts Options) {
	lvl := parseLevel(opts.Level)

	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
	} else {
		console = newConsoleHandler(os.Stderr, lvl, opts.AddSource)
	}
	h := []slog.Handler{contextual{console}}
	if f := strings.TrimSpace(opts.File); f != "" {
		fh := slog.NewJSONHandler(opts.Rotate.writer(f), &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource})
		h = append(h, contextual{fh})
	}

	logger := slog.New(fanout(h)).With(
		slog.String("app", "gocarousel"),
		slog.String("ver", version.Version),
	)
	current.Store(logger)
	slog.SetDefault(logger)
}

// FromEnv builds Options from GCS_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv(EnvLevel, "info"),
		Format:    getenv(EnvFormat, "console"),
		AddSource: strings.EqualFold(getenv(EnvSource, "false"), "true"),
		File:      os.Getenv(EnvFile),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns the application logger tagged with a component name.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation tags l with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// Discard returns a logger that drops everything.
func Discard() *slog.Logger { return slog.New(slog.DiscardHandler) }

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}

type ctxAttrsKey struct{}

// ContextWith returns a context whose records carry attrs in addition to any
// attributes already on ctx.
func ContextWith(ctx context.Context, attrs ...slog.Attr) context.Context {
	prev := contextAttrs(ctx)
	merged := make([]slog.Attr, 0, len(prev)+len(attrs))
	merged = append(merged, prev...)
	merged = append(merged, attrs...)
	return context.WithValue(ctx, ctxAttrsKey{}, merged)
}

// WithProject tags records logged with the returned context with the project
// being worked on. Empty values are skipped.
func WithProject(ctx context.Context, id, name string) context.Context {
	var attrs []slog.Attr
	if id != "" {
		attrs = append(attrs, slog.String("project", id))
	}
	if name != "" {
		attrs = append(attrs, slog.String("project_name", name))
	}
	if len(attrs) == 0 {
		return ctx
	}
	return ContextWith(ctx, attrs...)
}

func contextAttrs(ctx context.Context) []slog.Attr {
	if ctx == nil {
		return nil
	}
	attrs, _ := ctx.Value(ctxAttrsKey{}).([]slog.Attr)
	return attrs
}

// contextual appends context attributes before delegating.
type contextual struct{ next slog.Handler }

func (c contextual) Enabled(ctx context.Context, level slog.Level) bool {
	return c.next.Enabled(ctx, level)
}

func (c contextual) Handle(ctx context.Context, r slog.Record) error {
	if attrs := contextAttrs(ctx); len(attrs) > 0 {
		r = r.Clone()
		r.AddAttrs(attrs...)
	}
	return c.next.Handle(ctx, r)
}

func (c contextual) WithAttrs(attrs []slog.Attr) slog.Handler {
	return contextual{c.next.WithAttrs(attrs)}
}

func (c contextual) WithGroup(name string) slog.Handler { return contextual{c.next.WithGroup(name)} }

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var first error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
