package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/cli"
	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/watcher"
	"github.com/snipdex/snipdex/internal/web"
)

func serveCmd() *cobra.Command {
	var (
		addr      string
		withWatch bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the index over a local HTTP JSON API",
		Long: `Builds the index and serves it on localhost. The API is read-only
and rejects requests from other hosts.

Examples:
  snipdex serve                   # configured address (127.0.0.1:8787)
  snipdex serve --addr :8080      # custom address
  snipdex serve --watch           # rebuild when corpus files change`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), addr, withWatch)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config)")
	cmd.Flags().BoolVar(&withWatch, "watch", false, "Rebuild the index when corpus files change")
	return cmd
}

func runServe(ctx context.Context, addr string, withWatch bool) error {
	idx, root, err := buildIndex()
	if err != nil {
		return err
	}
	if addr == "" {
		addr = config.ServeAddr()
	}

	server := web.NewServer(idx, Version, root)

	if withWatch {
		go func() {
			err := watcher.Watch(ctx, watcher.Options{
				Root:     root,
				Include:  config.IncludePatterns(),
				Exclude:  config.ExcludePatterns(),
				Debounce: config.WatchDebounce(),
				Rebuild: func([]string) {
					fresh, _, err := buildIndex()
					if err != nil {
						fmt.Fprintf(os.Stderr, "[ERROR] rebuild: %v\n", err)
						return
					}
					server.SetIndex(fresh)
					fmt.Fprintf(os.Stderr, "index rebuilt: %d record(s)\n", fresh.Len())
				},
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "[ERROR] watcher stopped: %v\n", err)
			}
		}()
	}

	fmt.Printf("Serving %s record(s) on http://%s\n", cli.FormatNumber(idx.Len()), addr)
	return web.Serve(addr, server)
}
