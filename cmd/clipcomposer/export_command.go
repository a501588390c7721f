package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"clipcomposer/internal/export"
)

func newExportCommand(ctx *commandContext) *cobra.Command {
	var (
		preset  string
		formats []string
		pages   []string
		scale   float64
		guides  bool
		outDir  string
	)
	cmd := &cobra.Command{
		Use:   "export [dir]",
		Short: "Export pages as PDF, PNG or SVG proofs",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch export.PresetName(preset) {
			case export.PresetWeb, export.PresetPrint:
			default:
				return fmt.Errorf("unknown preset %q (want web or print)", preset)
			}
			ph, err := ctx.openProject(projectArg(args))
			if err != nil {
				return err
			}
			opt := export.BatchOptions{
				Preset:  export.PresetName(preset),
				Formats: formats,
				Pages:   pages,
				Scale:   scale,
				OutDir:  outDir,
			}
			if cmd.Flags().Changed("guides") {
				opt.IncludeGuides = &guides
			}
			written, err := export.BatchExport(ph, opt)
			if err != nil {
				return err
			}
			for _, p := range written {
				fmt.Fprintln(cmd.OutOrStdout(), p)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&preset, "preset", string(export.PresetWeb), "Export preset: web or print")
	cmd.Flags().StringSliceVar(&formats, "format", nil, "Formats to write (pdf, png, svg); defaults to the preset's")
	cmd.Flags().StringSliceVar(&pages, "pages", nil, "Page ids to export; defaults to all")
	cmd.Flags().Float64Var(&scale, "scale", 0, "Raster scale; zero uses the preset's")
	cmd.Flags().BoolVar(&guides, "guides", false, "Draw element bounds")
	cmd.Flags().StringVar(&outDir, "out", "", "Output directory (relative paths resolve under <project>/exports)")
	return cmd
}
