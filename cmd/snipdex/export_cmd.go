package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/cli"
	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/store"
)

func exportCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Snapshot the index into SQLite",
		Long: `Builds the index and writes it to a SQLite database so other tools
can query it without re-parsing the corpus. Each export replaces the
previous snapshot and appends a row to the builds history table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(dbPath)
		},
	}
	cmd.Flags().StringVar(&dbPath, "db", "", "Database path (default <root>/.snipdex/index.db)")
	return cmd
}

func runExport(dbPath string) error {
	idx, root, err := buildIndex()
	if err != nil {
		return err
	}

	var db *store.DB
	if dbPath != "" {
		db, err = store.OpenPath(dbPath)
	} else {
		db, err = store.Open()
		if err == nil {
			dbPath, _ = config.DBPath()
		}
	}
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	if err := db.SaveSnapshot(idx, root); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}

	stats := idx.Stats()
	fmt.Printf("Exported %s record(s) to %s\n", cli.FormatNumber(stats.Records), cli.ShortenHome(dbPath))
	return nil
}
