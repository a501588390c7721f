package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"clipcomposer/internal/render"
	"clipcomposer/internal/storage"
)

func newRenderCommand(ctx *commandContext) *cobra.Command {
	var (
		format string
		fps    int
		wait   bool
	)
	cmd := &cobra.Command{
		Use:   "render [dir]",
		Short: "Submit the project's composition to the render service",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.Render.BaseURL) == "" {
				return fmt.Errorf("render.base_url is not configured")
			}
			ph, err := ctx.openProject(projectArg(args))
			if err != nil {
				return err
			}
			client, err := render.NewHTTPClient(cfg.Render.BaseURL,
				render.WithToken(ctx.token),
				render.WithHTTPClient(&http.Client{Timeout: cfg.Render.Timeout()}))
			if err != nil {
				return err
			}
			ledger, err := storage.OpenLedger(ph.Root)
			if err != nil {
				return err
			}
			defer ledger.Close()

			p := render.NewPipeline(client, render.Config{
				Interval: cfg.Render.Interval(),
				Deadline: cfg.Render.Deadline(),
				OwnerID:  cfg.Render.OwnerID,
				Recorder: ledger,
			})
			defer p.Close()

			if format == "" {
				format = cfg.Render.OutputFormat
			}
			if fps <= 0 {
				fps = cfg.Render.FrameRate
			}
			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			if !wait {
				id, err := p.Submit(runCtx, ph.Project.Composition, format, float64(fps))
				if err != nil {
					return err
				}
				fmt.Fprintln(out, "Submitted", id)
				return nil
			}
			o, err := p.SubmitAndWait(runCtx, ph.Project.Composition, format, float64(fps))
			if err != nil {
				if o.JobID != "" {
					fmt.Fprintln(out, "Stopped polling", o.JobID)
				}
				return err
			}
			fmt.Fprintln(out, o.Message())
			if o.State != render.StateSucceeded {
				return fmt.Errorf("render %s: %s", o.JobID, o.State)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "Output format; defaults to render.output_format")
	cmd.Flags().IntVar(&fps, "fps", 0, "Frame rate; defaults to render.frame_rate")
	cmd.Flags().BoolVar(&wait, "wait", true, "Poll until the job finishes")
	return cmd
}

type jobView struct {
	ID          string `json:"id"`
	Owner       string `json:"owner,omitempty"`
	Format      string `json:"format"`
	Clips       int    `json:"clips"`
	Status      string `json:"status"`
	URL         string `json:"url,omitempty"`
	Error       string `json:"error,omitempty"`
	Polls       int    `json:"polls"`
	SubmittedAt string `json:"submittedAt"`
	FinishedAt  string `json:"finishedAt,omitempty"`
}

func newJobsCommand(ctx *commandContext) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "jobs [dir]",
		Short: "List render jobs recorded for the project",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ph, err := ctx.openProject(projectArg(args))
			if err != nil {
				return err
			}
			ledger, err := storage.OpenLedger(ph.Root)
			if err != nil {
				return err
			}
			defer ledger.Close()
			recs, err := ledger.Jobs(context.Background(), limit)
			if err != nil {
				return err
			}
			views := make([]jobView, 0, len(recs))
			for _, r := range recs {
				v := jobView{
					ID: r.ID, Owner: r.OwnerID, Format: r.OutputFormat, Clips: r.Clips,
					Status: r.Status, URL: r.URL, Error: r.Error, Polls: r.Polls,
					SubmittedAt: r.SubmittedAt.Format(time.RFC3339),
				}
				if r.Finished() {
					v.FinishedAt = r.FinishedAt.Format(time.RFC3339)
				}
				views = append(views, v)
			}
			if asJSON {
				return writeJSON(cmd, views)
			}
			out := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(out, "No render jobs recorded")
				return nil
			}
			rows := make([][]string, 0, len(views))
			for _, v := range views {
				result := v.URL
				if v.Error != "" {
					result = v.Error
				}
				rows = append(rows, []string{v.ID, v.Status, v.Format, strconv.Itoa(v.Clips), strconv.Itoa(v.Polls), v.SubmittedAt, result})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Job", "Status", "Format", "Clips", "Polls", "Submitted", "Result"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of jobs to list")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}
