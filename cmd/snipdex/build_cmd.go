package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/diag"
)

func buildCmd() *cobra.Command {
	var (
		strict bool
		failOn []string
	)
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Scan the corpus and build the index",
		Long: `Walks the corpus root, splits each file on the sentinel, parses
metadata blocks, and prints build statistics as JSON on stdout.
Diagnostics (unreadable files, malformed metadata, duplicate ids) go
to stderr and never abort the build.

Use --strict or --fail-on to turn diagnostics into a non-zero exit,
for example in CI:

  snipdex build --fail-on duplicate_id,read_error`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(strict, failOn)
		},
	}
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero if any diagnostic is recorded")
	cmd.Flags().StringSliceVar(&failOn, "fail-on", nil, "Diagnostic kinds that cause a non-zero exit")
	return cmd
}

func runBuild(strict bool, failOn []string) error {
	idx, _, err := buildIndex()
	if err != nil {
		return err
	}

	for _, d := range idx.Diagnostics() {
		level := "WARN"
		if d.Kind == diag.ReadError {
			level = "ERROR"
		}
		fmt.Fprintf(os.Stderr, "[%s] %s\n", level, d)
	}

	data, _ := json.MarshalIndent(idx.Stats(), "", "  ")
	fmt.Println(string(data))

	// Flags win over config; the config values only apply when the
	// flags were left at their defaults.
	if !strict {
		strict = config.BuildStrict()
	}
	if len(failOn) == 0 {
		failOn = config.BuildFailOn()
	}
	if n := matchBuildPolicy(idx.Diagnostics(), strict, failOn); n > 0 {
		return fmt.Errorf("%d diagnostic(s) matched the build policy", n)
	}
	return nil
}

// matchBuildPolicy counts diagnostics that violate the strictness policy:
// all of them under strict, otherwise those whose kind appears in failOn.
func matchBuildPolicy(diags []diag.Diagnostic, strict bool, failOn []string) int {
	if strict {
		return len(diags)
	}
	if len(failOn) == 0 {
		return 0
	}
	kinds := make(map[diag.Kind]bool, len(failOn))
	for _, k := range failOn {
		kinds[diag.Kind(strings.TrimSpace(k))] = true
	}
	n := 0
	for _, d := range diags {
		if kinds[d.Kind] {
			n++
		}
	}
	return n
}
