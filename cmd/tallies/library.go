// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/tally-lookup/internal/library"
	"github.com/pdiddy/tally-lookup/pkg/types"
)

const defaultLibraryDB = "library/library.db"

var libraryCmd = &cobra.Command{
	Use:   "library",
	Short: "Manage the local library database",
	Long: `Library imports CSL-YAML or CSL-JSON bibliographies into a SQLite
library database that browse and report can read with --library.`,
}

// --- import subcommand ---

var libraryImportCmd = &cobra.Command{
	Use:   "import [file...]",
	Short: "Import CSL-YAML or CSL-JSON bibliographies",
	RunE:  runLibraryImport,
}

func runLibraryImport(cmd *cobra.Command, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("provide one or more bibliography files")
	}
	dbPath, _ := cmd.Flags().GetString("db")

	store, err := library.NewStore(dbPath)
	if err != nil {
		return err
	}
	defer store.Close()

	total := 0
	for _, path := range args {
		entries, err := library.Load(path)
		if err != nil {
			return err
		}
		n, err := store.Import(cmd.Context(), entries)
		if err != nil {
			return fmt.Errorf("importing %s: %w", path, err)
		}
		fmt.Fprintf(os.Stdout, "%s: %d entries\n", path, n)
		total += n
	}
	fmt.Fprintf(os.Stdout, "Imported %d entries into %s\n", total, dbPath)
	return nil
}

// --- list subcommand ---

var libraryListCmd = &cobra.Command{
	Use:   "list",
	Short: "List library entries and their DOIs",
	RunE:  runLibraryList,
}

func runLibraryList(cmd *cobra.Command, args []string) error {
	dbPath, _ := cmd.Flags().GetString("db")

	entries, err := library.Open(cmd.Context(), dbPath)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Println("No entries.")
		return nil
	}

	withDOI := 0
	for _, e := range entries {
		doi, ok := library.DOI(e)
		if ok {
			withDOI++
		} else {
			doi = "-"
		}
		title, _ := e.Field(types.FieldTitle)
		fmt.Fprintf(os.Stdout, "%-24s  %-32s  %s\n", truncate(e.Key, 24), truncate(doi, 32), title)
	}
	fmt.Fprintf(os.Stdout, "\n%d entries, %d with DOI\n", len(entries), withDOI)
	return nil
}

func init() {
	libraryCmd.PersistentFlags().String("db", defaultLibraryDB, "library database path")

	libraryCmd.AddCommand(libraryImportCmd)
	libraryCmd.AddCommand(libraryListCmd)
	rootCmd.AddCommand(libraryCmd)
}
