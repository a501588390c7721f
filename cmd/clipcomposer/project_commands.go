package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"clipcomposer/internal/domain"
	"clipcomposer/internal/inspector"
	"clipcomposer/internal/props"
	"clipcomposer/internal/storage"
	"clipcomposer/internal/store"
	"clipcomposer/internal/undo"
)

func newInitCommand(ctx *commandContext) *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "init <dir>",
		Short: "Create a new project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := ctx.ensureConfig()
			abs, err := filepath.Abs(args[0])
			if err != nil {
				return err
			}
			if strings.TrimSpace(name) == "" {
				name = filepath.Base(abs)
			}
			p := domain.NewProject(name)
			if cfg.Editor.FrameWidth > 0 {
				p.FrameWidth = cfg.Editor.FrameWidth
			}
			p.Composition = domain.Composition{OutputFormat: cfg.Render.OutputFormat, FrameRate: float64(cfg.Render.FrameRate), Clips: []domain.Clip{}}
			if _, err := storage.InitProject(abs, p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Created project at", abs)
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "Project name (defaults to the directory name)")
	return cmd
}

type projectSummary struct {
	Name      string `json:"name"`
	Root      string `json:"root"`
	Pages     int    `json:"pages"`
	Elements  int    `json:"elements"`
	Clips     int    `json:"clips"`
	Backups   int    `json:"backups"`
	Recovered string `json:"recovered,omitempty"`
}

func newOpenCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "open [dir]",
		Short: "Open a project and print a summary",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := ctx.openProject(projectArg(args))
			if err != nil {
				return err
			}
			backups, _ := storage.Backups(ph.Root)
			sum := projectSummary{
				Name:      ph.Project.Name,
				Root:      ph.Root,
				Pages:     len(ph.Project.Pages),
				Clips:     len(ph.Project.Composition.Clips),
				Backups:   len(backups),
				Recovered: ph.Recovered,
			}
			for _, d := range ph.Project.Documents {
				sum.Elements += d.Len()
			}
			if asJSON {
				return writeJSON(cmd, sum)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Opened project: %s\n", sum.Name)
			fmt.Fprintf(out, "Pages: %d  Elements: %d  Clips: %d  Backups: %d\n", sum.Pages, sum.Elements, sum.Clips, sum.Backups)
			fmt.Fprintln(out, "Root:", sum.Root)
			if sum.Recovered != "" {
				fmt.Fprintln(out, "Recovered from backup:", sum.Recovered)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newInspectCommand(ctx *commandContext) *cobra.Command {
	var (
		pageID    string
		elementID string
		sets      []string
		unsets    []string
	)
	cmd := &cobra.Command{
		Use:   "inspect [dir]",
		Short: "List a page's elements or edit one element's properties",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _ := ctx.ensureConfig()
			ph, err := ctx.openProject(projectArg(args))
			if err != nil {
				return err
			}
			st := store.New(ph.Project, store.Options{History: undo.Config{MaxBytes: cfg.Editor.UndoMaxBytes}})
			if pageID != "" {
				if r := st.SwitchPage(pageID); r.Err != nil {
					return r.Err
				}
			}
			out := cmd.OutOrStdout()
			if elementID == "" {
				if len(sets) > 0 || len(unsets) > 0 {
					return fmt.Errorf("--set and --unset need --element")
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Kind", "Name", "X", "Y", "W", "H"},
					elementRows(st.Document()),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				))
				return nil
			}
			if len(sets) > 0 || len(unsets) > 0 {
				if err := applyEdits(st, elementID, sets, unsets); err != nil {
					return err
				}
				ph.Project = st.Project()
				if err := storage.Save(ph); err != nil {
					return err
				}
			}
			fields, err := inspector.NewEditor(st, elementID).Fields()
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(fields))
			for _, f := range fields {
				rows = append(rows, []string{f.Path.String(), f.Widget.String(), f.Text()})
			}
			fmt.Fprintln(out, renderTable([]string{"Property", "Widget", "Value"}, rows, nil))
			return nil
		},
	}
	cmd.Flags().StringVar(&pageID, "page", "", "Page id (defaults to home)")
	cmd.Flags().StringVar(&elementID, "element", "", "Element id to show or edit")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "Set a property: path.to.key=value (JSON or plain text)")
	cmd.Flags().StringArrayVar(&unsets, "unset", nil, "Delete a property by path")
	return cmd
}

func elementRows(doc domain.Document) [][]string {
	num := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	var rows [][]string
	for _, e := range doc.Elements() {
		name := e.Name
		if e.ID == doc.SelectedID {
			name += " *"
		}
		rows = append(rows, []string{e.ID, string(e.Kind), name, num(e.Position.X), num(e.Position.Y), num(e.Size.Width), num(e.Size.Height)})
	}
	return rows
}

// applyEdits writes --set/--unset flags through the store. A value that is
// not valid JSON is stored as text.
func applyEdits(st *store.Store, id string, sets, unsets []string) error {
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		path := props.ParsePath(key)
		if !ok || len(path) == 0 {
			return fmt.Errorf("invalid --set %q, want path=value", s)
		}
		v, err := inspector.Parse(inspector.WidgetRaw, raw)
		if err != nil {
			v = props.Text(raw)
		}
		if r := st.SetProperty(id, path, v); r.Err != nil {
			return r.Err
		}
	}
	for _, u := range unsets {
		if r := st.DeleteProperty(id, props.ParsePath(u)); r.Err != nil {
			return r.Err
		}
	}
	return nil
}
