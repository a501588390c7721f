package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"clipcomposer/internal/catalog"
)

func (c *commandContext) openCatalog(ctx context.Context) (*catalog.Postgres, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Catalog.DSN) == "" {
		return nil, fmt.Errorf("catalog.dsn is not configured")
	}
	return catalog.Open(ctx, cfg.Catalog.DSN)
}

func newCatalogCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Search and maintain the media catalog",
	}
	cmd.AddCommand(newCatalogSearchCommand(ctx))
	cmd.AddCommand(newCatalogAddCommand(ctx))
	return cmd
}

func newCatalogSearchCommand(ctx *commandContext) *cobra.Command {
	var (
		kinds  []string
		tags   []string
		minDur float64
		maxDur float64
		limit  int
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "search [text]",
		Short: "Search media sources",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pg, err := ctx.openCatalog(c)
			if err != nil {
				return err
			}
			defer pg.Close()
			q := catalog.Query{Kinds: kinds, Tags: tags, MinDuration: minDur, MaxDuration: maxDur, Limit: limit}
			if len(args) == 1 {
				q.Text = args[0]
			}
			return printItems(c, cmd, pg, q, asJSON)
		},
	}
	cmd.Flags().StringSliceVar(&kinds, "kind", nil, "Filter by kind (video, audio, image)")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Require tags")
	cmd.Flags().Float64Var(&minDur, "min", 0, "Minimum duration in seconds")
	cmd.Flags().Float64Var(&maxDur, "max", 0, "Maximum duration in seconds")
	cmd.Flags().IntVar(&limit, "limit", catalog.DefaultLimit, "Maximum results")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output JSON")
	return cmd
}

func printItems(ctx context.Context, cmd *cobra.Command, cat catalog.Catalog, q catalog.Query, asJSON bool) error {
	items, err := cat.Search(ctx, q)
	if err != nil {
		return err
	}
	if asJSON {
		return writeJSON(cmd, items)
	}
	out := cmd.OutOrStdout()
	if len(items) == 0 {
		fmt.Fprintln(out, "No media found")
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{
			it.ID, it.Kind, it.Title,
			strconv.FormatFloat(it.DurationSec, 'f', 1, 64),
			strings.Join(it.Tags, ","),
		})
	}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Kind", "Title", "Seconds", "Tags"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	))
	return nil
}

func newCatalogAddCommand(ctx *commandContext) *cobra.Command {
	var it catalog.Item
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Insert or update a media source",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := it.Validate(); err != nil {
				return err
			}
			c, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
			defer cancel()
			pg, err := ctx.openCatalog(c)
			if err != nil {
				return err
			}
			defer pg.Close()
			if err := pg.Upsert(c, it); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Saved", it.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&it.ID, "id", "", "Media id")
	cmd.Flags().StringVar(&it.Kind, "kind", "video", "Kind (video, audio, image)")
	cmd.Flags().StringVar(&it.Title, "title", "", "Title")
	cmd.Flags().StringVar(&it.URL, "url", "", "Source URL")
	cmd.Flags().Float64Var(&it.DurationSec, "duration", 0, "Duration in seconds")
	cmd.Flags().StringSliceVar(&it.Tags, "tag", nil, "Tags")
	cmd.Flags().StringVar(&it.Transcript, "transcript", "", "Transcript text")
	return cmd
}
