package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/cli"
	"github.com/snipdex/snipdex/internal/corpus"
)

func listCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List indexed entries",
		Long:  "Lists every entry in build order: id, tags, description, and source location. Pass --json for the full records.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output full records as JSON")
	return cmd
}

func runList(jsonOut bool) error {
	idx, _, err := buildIndex()
	if err != nil {
		return err
	}
	var records []*corpus.DocumentRecord
	for rec := range idx.All() {
		records = append(records, rec)
	}
	return printRecords(records, jsonOut)
}

func tagCmd() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "tag [name]",
		Short: "List entries carrying a tag",
		Long:  "Lists entries whose tags include the given name. Matching is case-insensitive, results keep build order.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTag(args[0], jsonOut)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output full records as JSON")
	return cmd
}

func runTag(tag string, jsonOut bool) error {
	idx, _, err := buildIndex()
	if err != nil {
		return err
	}
	var records []*corpus.DocumentRecord
	for rec := range idx.FindByTag(tag) {
		records = append(records, rec)
	}
	if len(records) == 0 && !jsonOut {
		fmt.Printf("No entries tagged %q.\n", tag)
		return nil
	}
	return printRecords(records, jsonOut)
}

func printRecords(records []*corpus.DocumentRecord, jsonOut bool) error {
	if jsonOut {
		if records == nil {
			records = []*corpus.DocumentRecord{}
		}
		data, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(data))
		return nil
	}
	if len(records) == 0 {
		fmt.Println("No entries indexed.")
		return nil
	}
	for _, rec := range records {
		line := rec.ID
		if len(rec.Tags) > 0 {
			line += "  [" + strings.Join(rec.Tags, ", ") + "]"
		}
		fmt.Println(line)
		if rec.Description != "" {
			fmt.Printf("    %s\n", rec.Description)
		}
		fmt.Printf("    %s#%d\n", rec.SourcePath, rec.SegmentIndex)
	}
	fmt.Printf("\n%s entries\n", cli.FormatNumber(len(records)))
	return nil
}
