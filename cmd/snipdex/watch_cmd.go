package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/cli"
	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/corpus"
	"github.com/snipdex/snipdex/internal/store"
	"github.com/snipdex/snipdex/internal/watcher"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Watch the corpus and rebuild on change",
		Long: `Monitors the corpus root for markdown changes, rebuilds the index
once changes settle, and refreshes the SQLite snapshot. Prints one
stats line per rebuild. Runs until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWatch(cmd.Context())
		},
	}
}

func runWatch(ctx context.Context) error {
	root := config.RootPath()
	if root == "" {
		return config.ErrNoRoot
	}

	rebuild := func(changed []string) {
		idx, _, err := buildIndex()
		if err != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] rebuild: %v\n", err)
			return
		}
		if err := saveSnapshot(idx, root); err != nil {
			fmt.Fprintf(os.Stderr, "[WARN] snapshot: %v\n", err)
		}
		stats := idx.Stats()
		fmt.Printf("[%s] %s record(s) from %s file(s), %d diagnostic(s)\n",
			time.Now().Format("15:04:05"),
			cli.FormatNumber(stats.Records), cli.FormatNumber(stats.FilesRead),
			stats.Diagnostics)
	}

	fmt.Printf("Watching %s (Ctrl-C to stop)\n", cli.ShortenHome(root))

	// Build once up front so the snapshot is fresh before the first event.
	rebuild(nil)

	return watcher.Watch(ctx, watcher.Options{
		Root:     root,
		Include:  config.IncludePatterns(),
		Exclude:  config.ExcludePatterns(),
		Debounce: config.WatchDebounce(),
		Rebuild:  rebuild,
	})
}

func saveSnapshot(idx *corpus.Index, root string) error {
	db, err := store.Open()
	if err != nil {
		return err
	}
	defer db.Close()
	return db.SaveSnapshot(idx, root)
}
