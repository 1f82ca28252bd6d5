// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/tally-lookup/internal/library"
	"github.com/pdiddy/tally-lookup/internal/lookup"
	"github.com/pdiddy/tally-lookup/internal/scite"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

const defaultConcurrency = 4

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize citation tallies for every entry in a library",
	Long: `Report looks up the tallies of every entry in a library concurrently.
Entries sharing a DOI are fetched once. Entries without a DOI are listed as
not_applicable; failed lookups are listed with their error.`,
	RunE: runReport,
}

func init() {
	reportCmd.Flags().String("library", "", "library file (.yaml, .json, .db); defaults to library.path")
	reportCmd.Flags().Int("concurrency", defaultConcurrency, "maximum concurrent lookups")
	reportCmd.Flags().String("format", "table", "output format: table, json, yaml")

	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	concurrency, _ := cmd.Flags().GetInt("concurrency")
	format, _ := cmd.Flags().GetString("format")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	entries, err := openLibrary(cmd, cfg)
	if err != nil {
		return err
	}

	fetcher := scite.NewShared(scite.NewClient(cfg.HTTP, cfg.Service))
	cache := lookup.NewCache(cfg.Cache.MaxEntries)

	rows, err := buildReport(cmd.Context(), entries, fetcher, cache, concurrency, cfg.Service.ReportBase, logger)
	if err != nil {
		return err
	}
	return writeRows(os.Stdout, rows, format)
}

// buildReport resolves every entry with at most concurrency lookups in
// flight. Lookup failures become rows; only cancellation aborts.
func buildReport(ctx context.Context, entries []types.Entry, fetcher scite.Fetcher, cache *lookup.Cache, concurrency int, reportBase string, logger *slog.Logger) ([]resultRow, error) {
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	rows := make([]resultRow, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, e := range entries {
		i, e := i, e
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			doi, _ := library.DOI(e)
			s := lookup.Resolve(gctx, fetcher, cache, doi)
			if s.State == lookup.StateError {
				logger.Info("lookup failed", "entry", e.Key, "doi", doi, "error", s.Message)
			}
			rows[i] = newResultRow(e.Key, s, reportBase)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("building report: %w", err)
	}
	return rows, nil
}
