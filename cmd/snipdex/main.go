// Command snipdex indexes markdown snippet corpora. It splits concatenated
// corpus files into addressable entries, lifts their metadata blocks, and
// serves the result over the CLI, a local HTTP API, and MCP.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/corpus"
	"github.com/snipdex/snipdex/internal/walker"
)

// Version is set at build time via ldflags.
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "snipdex",
		Short: "Markdown snippet corpus indexer",
		Long: `snipdex turns a directory of concatenated markdown files into an
addressable snippet index. Entries are separated by a sentinel line and
carry optional fenced metadata blocks.

Start with 'snipdex init', then 'snipdex build'.`,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
	}

	root.AddCommand(initCmd())
	root.AddCommand(buildCmd())
	root.AddCommand(listCmd())
	root.AddCommand(getCmd())
	root.AddCommand(tagCmd())
	root.AddCommand(exportCmd())
	root.AddCommand(watchCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(mcpCmd())
	root.AddCommand(doctorCmd())
	root.AddCommand(configCmd())
	root.AddCommand(versionCmd())

	root.PersistentFlags().StringVar(&config.RootOverride, "root", "", "Corpus root path (overrides auto-detect)")
	root.PersistentFlags().StringVar(&config.ConfigOverride, "config", "", "Config file path (overrides the search order)")

	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the snipdex version",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("snipdex %s\n", Version)
			return nil
		},
	}
}

// snipdexError is a user-facing error with a recovery hint.
type snipdexError struct {
	message string
	hint    string
}

func (e *snipdexError) Error() string {
	return fmt.Sprintf("%s\n  Hint: %s", e.message, e.hint)
}

func userError(message, hint string) error {
	return &snipdexError{message: message, hint: hint}
}

// buildIndex walks the corpus root and builds a fresh in-memory index.
// Every command that needs the index goes through here so the walk and
// build options stay consistent.
func buildIndex() (*corpus.Index, string, error) {
	root := config.RootPath()
	if root == "" {
		return nil, "", config.ErrNoRoot
	}
	paths, err := walker.Walk(walker.Config{
		Root:     root,
		Include:  config.IncludePatterns(),
		Exclude:  config.ExcludePatterns(),
		SkipDirs: config.SkipDirs,
	})
	if err != nil {
		return nil, "", fmt.Errorf("walk corpus: %w", err)
	}
	idx, err := corpus.Build(paths, corpus.Options{
		Sentinel: config.Sentinel(),
		Workers:  config.Workers(),
		BaseDir:  root,
	})
	if err != nil {
		if errors.Is(err, corpus.ErrNoInput) {
			return nil, "", userError(
				fmt.Sprintf("No corpus files found under %s", root),
				"add markdown files, or widen corpus.include in the config")
		}
		return nil, "", err
	}
	return idx, root, nil
}
