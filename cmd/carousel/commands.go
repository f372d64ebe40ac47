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
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/pflag"

	"gocarousel/internal/domain"
	"gocarousel/internal/editor"
	"gocarousel/internal/export"
	"gocarousel/internal/persistence"
	"gocarousel/internal/scene"
)

func newFlags(name string) *pflag.FlagSet {
	fs := pflag.NewFlagSet(name, pflag.ContinueOnError)
	fs.SortFlags = false
	return fs
}

// parseFlags parses args and checks the number of positional arguments.
func parseFlags(fs *pflag.FlagSet, args []string, positional ...string) ([]string, error) {
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	rest := fs.Args()
	if len(rest) < len(positional) {
		return nil, fmt.Errorf("%s: missing <%s>", fs.Name(), strings.Join(positional[len(rest):], "> <"))
	}
	return rest, nil
}

func subcommand(name string, args []string) (string, []string, error) {
	if len(args) == 0 {
		return "", nil, fmt.Errorf("%s: missing subcommand", name)
	}
	return args[0], args[1:], nil
}

// parsePages turns a one-based selection such as "1,3-4" into zero-based
// indices. An empty selection or "all" selects every page.
func parsePages(sel string, count int) ([]int, error) {
	sel = strings.TrimSpace(sel)
	if sel == "" || strings.EqualFold(sel, "all") {
		return export.AllPages(count), nil
	}
	var out []int
	for _, part := range strings.Split(sel, ",") {
		part = strings.TrimSpace(part)
		lo, hi, isRange := strings.Cut(part, "-")
		a, err := strconv.Atoi(strings.TrimSpace(lo))
		if err != nil {
			return nil, fmt.Errorf("bad page %q", part)
		}
		b := a
		if isRange {
			if b, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil || b < a {
				return nil, fmt.Errorf("bad page range %q", part)
			}
		}
		for p := a; p <= b; p++ {
			if p < 1 || p > count {
				return nil, fmt.Errorf("page %d out of range 1-%d", p, count)
			}
			out = append(out, p-1)
		}
	}
	return out, nil
}

func table(out io.Writer, header string, rows [][]string) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, header)
	for _, r := range rows {
		fmt.Fprintln(tw, strings.Join(r, "\t"))
	}
	return tw.Flush()
}

func stamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func cmdProjects(ctx context.Context, s *editor.Session, args []string, out io.Writer) error {
	sub, args, err := subcommand("projects", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		rows := [][]string{}
		for _, p := range s.Doc.Projects() {
			rows = append(rows, []string{p.ID, p.Name, stamp(p.UpdatedAt)})
		}
		return table(out, "ID\tNAME\tUPDATED", rows)
	case "new":
		fs := newFlags("projects new")
		size := fs.String("size", domain.DefaultCanvasSize.ID, "canvas size: square, portrait or story")
		pages := fs.Int("pages", 1, "number of slides")
		bg := fs.String("background", "", "background colour or linear-gradient(...) for every slide")
		text := fs.String("text", "", "text to place on the first slide")
		rest, err := parseFlags(fs, args, "name")
		if err != nil {
			return err
		}
		cmds := []scene.Command{scene.ResizeCanvas{SizeID: *size}}
		for i := 1; i < *pages; i++ {
			cmds = append(cmds, scene.AddPage{})
		}
		cmds = append(cmds, scene.ActivatePage{Index: 0})
		if *bg != "" {
			cmds = append(cmds, scene.SetBackground{Background: *bg, AllPages: true})
		}
		if *text != "" {
			cmds = append(cmds, scene.AddText{Text: *text})
		}
		for _, c := range cmds {
			if err := s.Scene.Dispatch(ctx, c); err != nil {
				return err
			}
		}
		rec, err := s.Persist.SaveProject(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created project %s (%s), %d slide(s)\n", rec.Name, rec.ID, len(rec.Data.Pages))
		return nil
	case "delete":
		rest, err := parseFlags(newFlags("projects delete"), args, "id")
		if err != nil {
			return err
		}
		if err := s.Persist.DeleteProject(ctx, rest[0]); err != nil {
			return err
		}
		fmt.Fprintln(out, "Deleted project", rest[0])
		return nil
	}
	return fmt.Errorf("projects: unknown subcommand %q", sub)
}

func findPreset(ctx context.Context, s *editor.Session, id string) (domain.Preset, error) {
	list, err := s.Persist.LoadPresets(ctx)
	if err != nil {
		return domain.Preset{}, err
	}
	for _, p := range list {
		if p.ID == id || p.Name == id {
			return p, nil
		}
	}
	return domain.Preset{}, fmt.Errorf("preset %q not found", id)
}

func cmdPresets(ctx context.Context, s *editor.Session, args []string, out io.Writer) error {
	sub, args, err := subcommand("presets", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		list, err := s.Persist.LoadPresets(ctx)
		if err != nil {
			return err
		}
		rows := [][]string{}
		for _, p := range list {
			rows = append(rows, []string{p.ID, p.Name, strconv.Itoa(len(p.Data.Pages)), stamp(p.CreatedAt)})
		}
		return table(out, "ID\tNAME\tSLIDES\tCREATED", rows)
	case "save":
		fs := newFlags("presets save")
		from := fs.String("project", "", "project id to save as a preset")
		rest, err := parseFlags(fs, args, "name")
		if err != nil {
			return err
		}
		if *from != "" {
			if _, err := s.Persist.OpenProject(ctx, *from); err != nil {
				return err
			}
		}
		p, err := s.Persist.SavePreset(ctx, rest[0])
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Saved preset %s (%s)\n", p.Name, p.ID)
		return nil
	case "apply":
		fs := newFlags("presets apply")
		saveAs := fs.String("save-as", "", "name of the project created from the preset")
		rest, err := parseFlags(fs, args, "id")
		if err != nil {
			return err
		}
		p, err := findPreset(ctx, s, rest[0])
		if err != nil {
			return err
		}
		name := *saveAs
		if name == "" {
			name = p.Name
		}
		s.Persist.ApplyPreset(p)
		rec, err := s.Persist.SaveProject(ctx, name)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Created project %s (%s) from preset %s\n", rec.Name, rec.ID, p.Name)
		return nil
	case "export":
		fs := newFlags("presets export")
		dir := fs.String("out", ".", "directory for the "+persistence.FileExt+" file")
		rest, err := parseFlags(fs, args, "id")
		if err != nil {
			return err
		}
		p, err := findPreset(ctx, s, rest[0])
		if err != nil {
			return err
		}
		path, err := s.Persist.WritePortableFile(*dir, p)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Wrote", path)
		return nil
	case "import":
		fs := newFlags("presets import")
		name := fs.String("name", "", "name for the imported preset (default: the name in the file)")
		rest, err := parseFlags(fs, args, "file")
		if err != nil {
			return err
		}
		p, err := s.ImportPreset(ctx, rest[0], func(suggested string) (string, bool) {
			if *name != "" {
				return *name, true
			}
			return suggested, true
		})
		var ve *persistence.ValidationError
		if errors.As(err, &ve) {
			return errors.New(ve.Message)
		}
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Imported preset %s (%s)\n", p.Name, p.ID)
		return nil
	case "delete":
		rest, err := parseFlags(newFlags("presets delete"), args, "id")
		if err != nil {
			return err
		}
		p, err := findPreset(ctx, s, rest[0])
		if err != nil {
			return err
		}
		if err := s.Persist.DeletePreset(ctx, p.ID); err != nil {
			return err
		}
		fmt.Fprintln(out, "Deleted preset", p.Name)
		return nil
	}
	return fmt.Errorf("presets: unknown subcommand %q", sub)
}

// exportFlags are shared by render, batch and pdf.
type exportFlags struct {
	pages  *string
	scale  *float64
	format *string
	out    *string
}

func addExportFlags(fs *pflag.FlagSet, s *editor.Session, outDefault, outHelp string) exportFlags {
	return exportFlags{
		pages:  fs.String("pages", "all", "one-based slides, e.g. 1,3-4"),
		scale:  fs.Float64("scale", s.Config.Export.Scale, "pixel scale between 0.5 and 3"),
		format: fs.String("format", s.Config.Export.Format, "png or jpeg"),
		out:    fs.String("out", outDefault, outHelp),
	}
}

func openForExport(ctx context.Context, s *editor.Session, fs *pflag.FlagSet, args []string, f exportFlags) ([]int, error) {
	rest, err := parseFlags(fs, args, "project-id")
	if err != nil {
		return nil, err
	}
	if _, err := s.Persist.OpenProject(ctx, rest[0]); err != nil {
		return nil, err
	}
	return parsePages(*f.pages, s.Doc.PageCount())
}

func cmdRender(ctx context.Context, s *editor.Session, args []string, out io.Writer) error {
	fs := newFlags("render")
	f := addExportFlags(fs, s, s.Config.Export.OutDir, "output directory")
	pages, err := openForExport(ctx, s, fs, args, f)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(*f.format)
	if err != nil {
		return err
	}
	paths, err := s.ExportToDir(ctx, *f.out, export.Options{Format: format, Scale: *f.scale, Pages: pages})
	if err != nil {
		return err
	}
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return nil
}

func cmdBatch(ctx context.Context, s *editor.Session, args []string, out io.Writer) error {
	fs := newFlags("batch")
	preset := fs.String("preset", string(export.PresetSocial), "social, hires, web or print")
	formats := fs.StringSlice("formats", nil, "override the preset formats: png, jpeg, pdf, zip")
	f := addExportFlags(fs, s, s.Config.Export.OutDir, "output directory")
	pages, err := openForExport(ctx, s, fs, args, f)
	if err != nil {
		return err
	}
	if !fs.Changed("scale") {
		*f.scale = 0
	}
	_, name := s.Doc.CurrentProject()
	paths, err := s.Export.BatchExport(ctx, s.Scene.Project(), export.BatchOptions{
		Preset:   export.PresetName(*preset),
		Formats:  *formats,
		Pages:    pages,
		Scale:    *f.scale,
		OutDir:   *f.out,
		BaseName: name,
	})
	sort.Strings(paths)
	for _, p := range paths {
		fmt.Fprintln(out, p)
	}
	return err
}

func cmdPDF(ctx context.Context, s *editor.Session, args []string, out io.Writer) error {
	fs := newFlags("pdf")
	f := addExportFlags(fs, s, "", "output file (default: <out-dir>/<project>.pdf)")
	author := fs.String("author", "", "PDF author")
	pages, err := openForExport(ctx, s, fs, args, f)
	if err != nil {
		return err
	}
	_, name := s.Doc.CurrentProject()
	path := *f.out
	if path == "" {
		path = filepath.Join(s.Config.Export.OutDir, export.FileBase(name)+".pdf")
	}
	format, err := export.ParseFormat(*f.format)
	if err != nil {
		return err
	}
	opt := export.PDFOptions{Options: export.Options{Format: format, Scale: *f.scale, Pages: pages}, Title: name, Author: *author}
	if err := s.Export.WritePDF(ctx, s.Scene.Project(), opt, path); err != nil {
		return err
	}
	fmt.Fprintln(out, path)
	return nil
}

func cmdFonts(ctx context.Context, s *editor.Session, args []string, out io.Writer) error {
	sub, args, err := subcommand("fonts", args)
	if err != nil {
		return err
	}
	switch sub {
	case "list":
		for _, f := range s.Doc.CustomFonts() {
			fmt.Fprintln(out, f)
		}
		return nil
	case "add":
		rest, err := parseFlags(newFlags("fonts add"), args, "name", "file")
		if err != nil {
			return err
		}
		data, err := os.ReadFile(rest[1])
		if err != nil {
			return err
		}
		if err := s.Persist.SaveFont(ctx, rest[0], data); err != nil {
			return err
		}
		fmt.Fprintln(out, "Added font", rest[0])
		return nil
	}
	return fmt.Errorf("fonts: unknown subcommand %q", sub)
}
