package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/cli"
	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/segment"
)

func initCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Set up a corpus root (start here)",
		Long: `Marks a directory as a snipdex corpus root.

What it does:
  1. Creates the .snipdex/ data directory
  2. Writes a commented starter config (.snipdex/config.toml)
  3. Drops a demo corpus file you can build right away

Run it inside your corpus directory, or pass the path as an argument.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			return runInit(dir, force)
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")
	return cmd
}

func runInit(dir string, force bool) error {
	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve path: %w", err)
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return userError(
			fmt.Sprintf("Not a directory: %s", root),
			"create the directory first, then run 'snipdex init' again")
	}

	cli.Banner(Version)

	configPath := config.ConfigFilePath(root)
	if _, err := os.Stat(configPath); err == nil && !force {
		fmt.Printf("\n  Config already exists: %s\n", cli.ShortenHome(configPath))
		fmt.Println("  Pass --force to overwrite it.")
	} else {
		if force {
			os.Remove(configPath)
		}
		if err := config.GenerateConfig(root); err != nil {
			return fmt.Errorf("write config: %w", err)
		}
		fmt.Printf("\n  Created %s\n", cli.ShortenHome(configPath))
	}

	demoPath := filepath.Join(root, "welcome.md")
	if _, err := os.Stat(demoPath); os.IsNotExist(err) {
		if err := os.WriteFile(demoPath, []byte(demoCorpus()), 0o644); err != nil {
			return fmt.Errorf("write demo file: %w", err)
		}
		fmt.Printf("  Created %s\n", cli.ShortenHome(demoPath))
	}

	fmt.Println()
	cli.Section("Next steps")
	fmt.Println("  snipdex build      index the corpus")
	fmt.Println("  snipdex list       see what was indexed")
	fmt.Println("  snipdex get welcome")
	cli.Footer()
	return nil
}

// demoCorpus is a two-entry corpus file showing the sentinel and the
// fenced metadata block format.
func demoCorpus() string {
	return "```yaml\n" +
		"---\n" +
		"id: welcome\n" +
		"tags:\n" +
		"  - demo\n" +
		"description: What a corpus entry looks like\n" +
		"---\n" +
		"```\n" +
		"\n" +
		"# Welcome to snipdex\n" +
		"\n" +
		"Each entry is plain markdown with an optional fenced metadata block\n" +
		"at the top. Several entries can share one file, separated by the\n" +
		"sentinel line below.\n" +
		"\n" +
		segment.DefaultSentinel + "\n" +
		"\n" +
		"```yaml\n" +
		"---\n" +
		"id: second-entry\n" +
		"tags:\n" +
		"  - demo\n" +
		"description: Entries without an id get one from their file position\n" +
		"---\n" +
		"```\n" +
		"\n" +
		"This is the second entry. Fetch it with 'snipdex get second-entry'.\n"
}
