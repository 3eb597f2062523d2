package main

import (
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/cli"
	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/corpus"
	"github.com/snipdex/snipdex/internal/store"
	"github.com/snipdex/snipdex/internal/walker"
)

func doctorCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "doctor",
		Short: "Check corpus health and diagnose issues",
		Long:  "Runs health checks on your snipdex setup: verifies the corpus root, config, index build, and snapshot database.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDoctor(jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output as JSON")
	return cmd
}

// DoctorResult represents a single health check result
type DoctorResult struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "pass", "skip", "fail"
	Message string `json:"message,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

// DoctorReport represents the complete health check report
type DoctorReport struct {
	Checks  []DoctorResult `json:"checks"`
	Summary struct {
		Total   int `json:"total"`
		Passed  int `json:"passed"`
		Skipped int `json:"skipped"`
		Failed  int `json:"failed"`
	} `json:"summary"`
}

// sanitizeErrorForJSON removes potentially sensitive information from error messages
// SECURITY: Prevents leaking absolute file paths, hostnames, or other PII in JSON output
func sanitizeErrorForJSON(err error) string {
	msg := err.Error()
	// Remove absolute paths by stripping anything that looks like a filesystem path
	// This is a simple heuristic: if the error contains a '/', replace with generic message
	if strings.Contains(msg, "/") || strings.Contains(msg, "\\") {
		// Try to extract just the error type without the path
		if idx := strings.LastIndex(msg, ":"); idx != -1 {
			return strings.TrimSpace(msg[idx+1:])
		}
		return "operation failed"
	}
	return msg
}

func runDoctor(jsonOut bool) error {
	passed := 0
	failed := 0
	skipped := 0
	var results []DoctorResult

	// Track root availability so corpus-dependent checks can skip gracefully
	// instead of cascading into confusing follow-on errors.
	rootOK := false

	check := func(name string, hint string, fn func() (string, error)) {
		detail, err := fn()
		if err != nil {
			if jsonOut {
				results = append(results, DoctorResult{
					Name:    name,
					Status:  "fail",
					Message: sanitizeErrorForJSON(err),
					Hint:    hint,
				})
			} else {
				fmt.Printf("  %s✗%s %s: %s\n",
					cli.Red, cli.Reset, name, err)
				if hint != "" {
					fmt.Printf("    → %s\n", hint)
				}
			}
			failed++
		} else {
			if jsonOut {
				results = append(results, DoctorResult{
					Name:    name,
					Status:  "pass",
					Message: detail,
				})
			} else {
				if detail != "" {
					fmt.Printf("  %s✓%s %s (%s)\n",
						cli.Green, cli.Reset, name, detail)
				} else {
					fmt.Printf("  %s✓%s %s\n",
						cli.Green, cli.Reset, name)
				}
			}
			passed++
		}
	}

	// skip marks a check as skipped instead of failed.
	skip := func(name string, reason string) {
		if jsonOut {
			results = append(results, DoctorResult{
				Name:    name,
				Status:  "skip",
				Message: reason,
			})
		} else {
			fmt.Printf("  %s-%s %s: %s\n",
				cli.Dim, cli.Reset, name, reason)
		}
		skipped++
	}

	if !jsonOut {
		cli.Header("snipdex Health Check")
		fmt.Println()
	}

	// 1. Corpus root
	check("Corpus root", "run 'snipdex init' in your corpus, or pass --root / set SNIPDEX_ROOT", func() (string, error) {
		root := config.RootPath()
		if root == "" {
			return "", fmt.Errorf("no corpus root found")
		}
		info, err := os.Stat(root)
		if err != nil {
			return "", fmt.Errorf("root not accessible (moved or deleted?)")
		}
		if !info.IsDir() {
			return "", fmt.Errorf("root is not a directory")
		}
		rootOK = true
		return cli.ShortenHome(root), nil
	})

	// 2. Config file
	check("Config file", "fix the TOML, or regenerate with 'snipdex init --force'", func() (string, error) {
		path := config.FindConfigFile()
		if path == "" {
			return "built-in defaults (no config file)", nil
		}
		if _, err := config.LoadConfigFrom(path); err != nil {
			return "", err
		}
		return cli.ShortenHome(path), nil
	})

	// 3-5: Walk, build, duplicates (skipped when the root is broken)
	if !rootOK {
		skip("Corpus files", "skipped (corpus root not found)")
		skip("Index build", "skipped (corpus root not found)")
		skip("Duplicate ids", "skipped (corpus root not found)")
	} else {
		var (
			foundPaths []string
			builtIdx   *corpus.Index
		)

		check("Corpus files", "add markdown files, or widen corpus.include in the config", func() (string, error) {
			paths, err := walker.Walk(walker.Config{
				Root:     config.RootPath(),
				Include:  config.IncludePatterns(),
				Exclude:  config.ExcludePatterns(),
				SkipDirs: config.SkipDirs,
			})
			if err != nil {
				return "", fmt.Errorf("walk failed: %v", err)
			}
			if len(paths) == 0 {
				return "", fmt.Errorf("no markdown files found")
			}
			foundPaths = paths
			return fmt.Sprintf("%s file(s)", cli.FormatNumber(len(paths))), nil
		})

		if foundPaths == nil {
			skip("Index build", "skipped (no corpus files)")
			skip("Duplicate ids", "skipped (no corpus files)")
		} else {
			check("Index build", "run 'snipdex build' for per-file diagnostics", func() (string, error) {
				idx, err := corpus.Build(foundPaths, corpus.Options{
					Sentinel: config.Sentinel(),
					Workers:  config.Workers(),
					BaseDir:  config.RootPath(),
				})
				if err != nil {
					return "", err
				}
				builtIdx = idx
				return fmt.Sprintf("%s record(s), %d diagnostic(s)",
					cli.FormatNumber(idx.Len()), len(idx.Diagnostics())), nil
			})

			if builtIdx == nil {
				skip("Duplicate ids", "skipped (build failed)")
			} else {
				check("Duplicate ids", "give each entry a unique id; until then the first file in path order wins", func() (string, error) {
					ids := builtIdx.DuplicateIDs()
					if len(ids) == 0 {
						return "none", nil
					}
					return "", fmt.Errorf("%d id(s) claimed more than once: %s",
						len(ids), strings.Join(ids, ", "))
				})
			}
		}
	}

	// 6-7: Data dir and snapshot database (skipped when the root is broken)
	if !rootOK {
		skip("Data directory", "skipped (corpus root not found)")
		skip("Snapshot database", "skipped (corpus root not found)")
	} else {
		check("Data directory", "check permissions on <root>/.snipdex", func() (string, error) {
			dir, err := config.DataDir()
			if err != nil {
				return "", err
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return "", fmt.Errorf("cannot create")
			}
			probe := filepath.Join(dir, ".doctor-probe")
			if err := os.WriteFile(probe, []byte("ok"), 0o644); err != nil {
				return "", fmt.Errorf("not writable")
			}
			os.Remove(probe)
			return cli.ShortenHome(dir), nil
		})

		check("Snapshot database", "run 'snipdex export' to create one", func() (string, error) {
			db, err := store.Open()
			if err != nil {
				return "", fmt.Errorf("cannot open")
			}
			defer db.Close()
			build, err := db.LastBuild()
			if err != nil {
				return "", fmt.Errorf("cannot query")
			}
			if build == nil {
				return "no snapshot yet (optional)", nil
			}
			detail := fmt.Sprintf("%s record(s)", cli.FormatNumber(build.Records))
			if at, err := time.Parse(time.RFC3339, build.BuiltAt); err == nil {
				detail += fmt.Sprintf(", exported %s ago", formatDuration(time.Since(at)))
			}
			return detail, nil
		})
	}

	// 8. Serve address stays on localhost
	check("Serve address", "use 127.0.0.1:<port> in serve.addr; the API has no auth", func() (string, error) {
		addr := config.ServeAddr()
		host, _, err := net.SplitHostPort(addr)
		if err != nil {
			return "", fmt.Errorf("invalid address %q", addr)
		}
		if host == "" {
			return "", fmt.Errorf("%q binds all interfaces", addr)
		}
		if host != "localhost" {
			ip := net.ParseIP(host)
			if ip == nil || !ip.IsLoopback() {
				return "", fmt.Errorf("%q is not a loopback address", addr)
			}
		}
		return addr, nil
	})

	if jsonOut {
		report := DoctorReport{
			Checks: results,
		}
		report.Summary.Total = len(results)
		report.Summary.Passed = passed
		report.Summary.Skipped = skipped
		report.Summary.Failed = failed

		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal JSON: %w", err)
		}
		fmt.Println(string(data))

		if failed > 0 {
			return fmt.Errorf("%d check(s) failed", failed)
		}
		return nil
	}

	summary := fmt.Sprintf("%d passed, %d failed", passed, failed)
	if skipped > 0 {
		summary += fmt.Sprintf(", %d skipped", skipped)
	}
	lines := []string{summary}
	if !rootOK {
		lines = append(lines, "No corpus root found. Run 'snipdex init' or set SNIPDEX_ROOT=<path>.")
	}
	if failed > 0 {
		lines = append(lines, "Still stuck? Report a bug: https://github.com/snipdex/snipdex/issues")
	}
	cli.Box(lines)

	cli.Footer()

	if failed > 0 {
		return fmt.Errorf("%d check(s) failed", failed)
	}
	return nil
}

func formatDuration(d time.Duration) string {
	if d < time.Minute {
		return fmt.Sprintf("%d seconds", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%d minutes", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
