// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/tally-lookup/internal/library"
	"github.com/pdiddy/tally-lookup/internal/lookup"
	"github.com/pdiddy/tally-lookup/internal/scite"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Step through a library as an entry editor would",
	Long: `Browse selects each entry of a library in turn and prints every status
transition of the tally lookup. With --dwell the selection moves on after a
fixed time whether or not the lookup finished, so slow lookups are
superseded by the next entry. With --revisit the library is walked twice and
the second pass is served from the cache.`,
	RunE: runBrowse,
}

func init() {
	browseCmd.Flags().String("library", "", "library file (.yaml, .json, .db); defaults to library.path")
	browseCmd.Flags().Duration("dwell", 0, "time spent on each entry (0 = until the lookup settles)")
	browseCmd.Flags().Bool("revisit", false, "walk the library a second time")

	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	dwell, _ := cmd.Flags().GetDuration("dwell")
	revisit, _ := cmd.Flags().GetBool("revisit")

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	entries, err := openLibrary(cmd, cfg)
	if err != nil {
		return err
	}

	cache := lookup.NewCache(cfg.Cache.MaxEntries)
	ctrl := lookup.New(
		scite.NewClient(cfg.HTTP, cfg.Service),
		lookup.WithCache(cache),
		lookup.WithLogger(logger),
	)
	defer ctrl.Close()

	passes := 1
	if revisit {
		passes = 2
	}
	b := browser{ctrl: ctrl, dwell: dwell, w: os.Stdout}
	if err := b.walk(cmd.Context(), entries, passes); err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "\n%d entries browsed, %d DOI(s) cached\n", len(entries)*passes, cache.Len())
	return nil
}

// browser selects entries on a controller and prints its transitions.
type browser struct {
	ctrl  *lookup.Controller
	dwell time.Duration
	w     io.Writer
}

func (b browser) walk(ctx context.Context, entries []types.Entry, passes int) error {
	updates, unsubscribe := b.ctrl.Subscribe()
	defer unsubscribe()
	<-updates

	var last string
	for pass := 0; pass < passes; pass++ {
		for _, e := range entries {
			last = e.Key
			s := b.ctrl.Bind(e)
			if b.dwell > 0 {
				if err := b.linger(ctx, e.Key, updates); err != nil {
					return err
				}
				continue
			}
			fmt.Fprintln(b.w, statusLine(e.Key, s))
			if s.Stable() {
				select {
				case <-updates:
				default:
				}
				continue
			}
			if err := b.follow(ctx, e.Key, updates); err != nil {
				return err
			}
		}
	}

	// The last selection stays open until its lookup settles.
	if !b.ctrl.Status().Stable() {
		return b.follow(ctx, last, updates)
	}
	return nil
}

// linger prints transitions for the dwell time.
func (b browser) linger(ctx context.Context, key string, updates <-chan lookup.Status) error {
	timer := time.NewTimer(b.dwell)
	defer timer.Stop()
	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return fmt.Errorf("lookup closed")
			}
			fmt.Fprintln(b.w, statusLine(key, s))
		case <-timer.C:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// follow prints transitions until the status settles.
func (b browser) follow(ctx context.Context, key string, updates <-chan lookup.Status) error {
	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return fmt.Errorf("lookup closed")
			}
			if s.State == lookup.StateInProgress {
				continue
			}
			fmt.Fprintln(b.w, statusLine(key, s))
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// openLibrary loads entries from --library or the configured library path.
func openLibrary(cmd *cobra.Command, cfg types.Config) ([]types.Entry, error) {
	path, _ := cmd.Flags().GetString("library")
	if path == "" {
		path = cfg.Library.Path
	}
	if path == "" {
		return nil, fmt.Errorf("no library: pass --library or set library.path")
	}
	return library.Open(cmd.Context(), path)
}
