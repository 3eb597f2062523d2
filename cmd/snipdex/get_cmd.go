package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/snipdex/snipdex/internal/corpus"
)

func getCmd() *cobra.Command {
	var (
		jsonOut    bool
		duplicates bool
	)
	cmd := &cobra.Command{
		Use:   "get [id]",
		Short: "Fetch one entry by id",
		Long: `Prints the entry body. Ids come from the metadata block; entries
without one are addressed as 'path#segment', e.g. 'git/undo.md#2'.

Pass --json for the full record, or --duplicates to see records that
claimed the same id but lost to an earlier file.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGet(args[0], jsonOut, duplicates)
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Output the full record as JSON")
	cmd.Flags().BoolVar(&duplicates, "duplicates", false, "Show shadowed records for this id")
	return cmd
}

func runGet(id string, jsonOut, duplicates bool) error {
	idx, _, err := buildIndex()
	if err != nil {
		return err
	}

	if duplicates {
		shadowed := idx.Duplicates(id)
		if jsonOut {
			if shadowed == nil {
				shadowed = []*corpus.DocumentRecord{}
			}
			data, _ := json.MarshalIndent(shadowed, "", "  ")
			fmt.Println(string(data))
			return nil
		}
		if len(shadowed) == 0 {
			fmt.Printf("No duplicates for id %q.\n", id)
			return nil
		}
		fmt.Printf("%d shadowed record(s) for id %q:\n", len(shadowed), id)
		for _, rec := range shadowed {
			fmt.Printf("  %s#%d\n", rec.SourcePath, rec.SegmentIndex)
		}
		return nil
	}

	rec := idx.Get(id)
	if rec == nil {
		return userError(
			fmt.Sprintf("No entry with id %q", id),
			"run 'snipdex list' to see available ids")
	}
	if jsonOut {
		data, _ := json.MarshalIndent(rec, "", "  ")
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(rec.Body)
	return nil
}
