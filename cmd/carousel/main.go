/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"gocarousel/internal/config"
	"gocarousel/internal/crash"
	"gocarousel/internal/editor"
	applog "gocarousel/internal/log"
	"gocarousel/internal/telemetry"
	"gocarousel/internal/ui"
	"gocarousel/internal/version"
)

const usageText = `Go Carousel Studio

Usage:
  carousel version                              Show version
  carousel config                               Show the effective configuration
  carousel projects list|new|delete             Manage saved projects
  carousel presets list|save|apply|export|import|delete
                                                Manage design presets and .preset files
  carousel render <project-id> [flags]          Export slides as png or jpeg
  carousel batch <project-id> [flags]           Export with a named preset (social, hires, web, print)
  carousel pdf <project-id> [flags]             Export a PDF carousel
  carousel fonts list|add                       Manage custom fonts
  carousel ui [<project-id>]                    Launch the preview window (build with -tags fyne)

Run "carousel <command> --help" for command flags.
`

func main() {
	applog.Init(applog.FromEnv())
	guard := &crash.Guard{}
	defer guard.Recover()

	err := run(context.Background(), os.Args[1:], os.Stdout, guard)
	telemetry.Flush(context.Background())
	if err != nil && !errors.Is(err, pflag.ErrHelp) {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// run executes one CLI invocation. guard receives the session so a panic
// autosaves the open document.
func run(ctx context.Context, args []string, out io.Writer, guard *crash.Guard) error {
	l := applog.WithComponent("cli")
	if len(args) == 0 {
		fmt.Fprint(out, usageText)
		return nil
	}
	cmd, rest := args[0], args[1:]
	l.Debug("start", slog.String("cmd", cmd), slog.Int("args", len(rest)))

	switch cmd {
	case "version", "--version", "-v":
		fmt.Fprintln(out, version.String())
		return nil
	case "help", "--help", "-h":
		fmt.Fprint(out, usageText)
		return nil
	}

	cfg, dsn, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cmd == "config" {
		return showConfig(out, cfg, dsn)
	}
	applog.Init(applog.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, AddSource: cfg.Logging.Source, File: cfg.Logging.File})

	s, err := editor.Open(ctx, cfg, dsn)
	if err != nil {
		return err
	}
	defer func() {
		if err := s.Close(); err != nil {
			l.Warn("close store", slog.Any("err", err))
		}
	}()
	if guard != nil {
		guard.Doc = s
		if dir, err := config.ConfigDir(); err == nil {
			guard.Dir = filepath.Join(dir, "recovery")
		}
	}
	if err := s.Start(ctx); err != nil {
		return err
	}

	switch cmd {
	case "projects":
		return cmdProjects(ctx, s, rest, out)
	case "presets":
		return cmdPresets(ctx, s, rest, out)
	case "render":
		return cmdRender(ctx, s, rest, out)
	case "batch":
		return cmdBatch(ctx, s, rest, out)
	case "pdf":
		return cmdPDF(ctx, s, rest, out)
	case "fonts":
		return cmdFonts(ctx, s, rest, out)
	case "ui":
		if len(rest) > 0 {
			if _, err := s.Persist.OpenProject(ctx, rest[0]); err != nil {
				return err
			}
		}
		return ui.Run(s)
	}
	fmt.Fprint(out, usageText)
	return fmt.Errorf("unknown command %q", cmd)
}

func showConfig(out io.Writer, cfg config.AppConfig, dsn string) error {
	path, _ := config.ConfigPath()
	fmt.Fprintf(out, "# %s\n", path)
	b, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	if _, err := out.Write(b); err != nil {
		return err
	}
	if dsn != "" {
		fmt.Fprintln(out, "# postgres dsn: set (keyring or GCS_STORE_DSN)")
	}
	for _, key := range []string{"general.owner_id", "store.driver", "store.path", "export.format", "export.scale"} {
		if env, ok := config.EnvOverrideFor(key); ok {
			fmt.Fprintf(out, "# %s overridden by %s\n", key, env)
		}
	}
	return nil
}
