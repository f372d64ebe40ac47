/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns a panic into a crash report plus an autosave of the
// open document.
package crash

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	applog "gocarousel/internal/log"
	"gocarousel/internal/store"
	"gocarousel/internal/telemetry"
	"gocarousel/internal/version"
)

// exitFn is swapped in tests so Recover does not end the process.
var exitFn = os.Exit

// Autosaver writes a recovery copy of the open document into dir.
type Autosaver interface {
	Autosave(dir string) (string, error)
}

// Guard holds what Recover needs. Doc may be nil before a document is open.
// Reports and autosaves go to Dir, or the temp dir when Dir is empty.
type Guard struct {
	Doc Autosaver
	Dir string
}

// Recover captures a panic, logs it with a stacktrace, writes a crash report
// and autosaves the document.
//
// Usage: defer g.Recover()
func (g *Guard) Recover() {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	dir := g.dir()
	reportPath, err := writeReport(dir, r, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if g.Doc != nil {
		if path, err := g.Doc.Autosave(dir); err != nil {
			l.Error("autosave failed", slog.Any("err", err))
		} else {
			l.Info("autosave written", slog.String("path", path))
		}
	}
	fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath)
	fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH)
	telemetry.Flush(context.Background())
	exitFn(2)
}

func (g *Guard) dir() string {
	if g == nil || g.Dir == "" {
		return os.TempDir()
	}
	return g.Dir
}

func writeReport(dir string, panicVal any, stack []byte) (string, error) {
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405")))

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Go Carousel Studio Crash Report\n")
	fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	fmt.Fprintf(&buf, "Version: %s\n", version.String())
	fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	fmt.Fprintf(&buf, "Stack:\n%s\n", stack)

	if err := store.WriteFile(path, buf.Bytes(), false); err != nil {
		return path, err
	}
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
