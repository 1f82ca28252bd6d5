// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/tally-lookup/internal/lookup"
	"github.com/pdiddy/tally-lookup/internal/scite"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup [doi...]",
	Short: "Show citation tallies for one or more DOIs",
	Long: `Lookup binds a tally controller to each DOI in turn, waits for the
lookup to settle, and prints the tallies or the error. Repeated DOIs are
served from the in-memory cache.`,
	RunE: runLookup,
}

func init() {
	lookupCmd.Flags().Bool("json", false, "output results as JSON")
	lookupCmd.Flags().Bool("refresh", false, "bypass the cache for every DOI")

	rootCmd.AddCommand(lookupCmd)
}

func runLookup(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more DOIs")
	}
	jsonOutput, _ := cmd.Flags().GetBool("json")
	refresh, _ := cmd.Flags().GetBool("refresh")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	ctrl := lookup.New(
		scite.NewClient(cfg.HTTP, cfg.Service),
		lookup.WithCache(lookup.NewCache(cfg.Cache.MaxEntries)),
		lookup.WithLogger(logger),
	)
	defer ctrl.Close()

	updates, unsubscribe := ctrl.Subscribe()
	defer unsubscribe()
	<-updates

	ctx := cmd.Context()
	var rows []resultRow
	failed := 0
	for _, arg := range args {
		s := ctrl.Bind(types.Entry{Key: arg, Fields: map[string]string{types.FieldDOI: arg}})
		if refresh && s.Cached {
			s = ctrl.Refresh()
		}
		s, err = settle(ctx, updates, s)
		if err != nil {
			return err
		}
		if s.State != lookup.StateFound {
			failed++
		}

		if jsonOutput {
			rows = append(rows, newResultRow(arg, s, cfg.Service.ReportBase))
			continue
		}
		writeStatus(os.Stdout, arg, s, cfg.Service.ReportBase)
		fmt.Println()
	}

	if jsonOutput {
		if err := writeRows(os.Stdout, rows, "json"); err != nil {
			return err
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d lookup(s) returned no tallies", failed, len(args))
	}
	return nil
}

// settle returns the first stable status after a bind. bound is the status
// Bind returned; when it is already stable any copy of it waiting on
// updates is drained so the next bind starts clean.
func settle(ctx context.Context, updates <-chan lookup.Status, bound lookup.Status) (lookup.Status, error) {
	if bound.Stable() {
		select {
		case <-updates:
		default:
		}
		return bound, nil
	}
	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return lookup.Status{}, fmt.Errorf("lookup closed")
			}
			if s.Stable() {
				return s, nil
			}
		case <-ctx.Done():
			return lookup.Status{}, ctx.Err()
		}
	}
}
