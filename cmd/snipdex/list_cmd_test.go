package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/snipdex/snipdex/internal/corpus"
)

func TestRunList_HumanOutput(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runList(false)
	})
	if runErr != nil {
		t.Fatalf("runList: %v", runErr)
	}

	if !strings.Contains(out, "git-undo") {
		t.Errorf("expected git-undo in listing, got: %q", out)
	}
	if !strings.Contains(out, "[git, undo]") {
		t.Errorf("expected tags in listing, got: %q", out)
	}
	if !strings.Contains(out, "plain.md#0") {
		t.Errorf("expected synthesized id in listing, got: %q", out)
	}
	if !strings.Contains(out, "2 entries") {
		t.Errorf("expected entry count, got: %q", out)
	}
}

func TestRunList_JSONOutput(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runList(true)
	})
	if runErr != nil {
		t.Fatalf("runList: %v", runErr)
	}

	var records []corpus.DocumentRecord
	if err := json.Unmarshal([]byte(out), &records); err != nil {
		t.Fatalf("list --json should parse: %v (%q)", err, out)
	}
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}
	if records[0].ID != "git-undo" || records[1].ID != "plain.md#0" {
		t.Errorf("unexpected build order: %q, %q", records[0].ID, records[1].ID)
	}
	if !strings.Contains(records[0].Body, "git reset --soft") {
		t.Errorf("full records should include bodies, got: %q", records[0].Body)
	}
}

func TestRunList_EmptySegmentsOnly(t *testing.T) {
	root := setupCommandTestRoot(t)
	writeCorpusFile(t, root, "blank.md", "   \n\t\n")

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runList(false)
	})
	if runErr != nil {
		t.Fatalf("runList: %v", runErr)
	}
	if !strings.Contains(out, "No entries indexed.") {
		t.Errorf("expected empty-index message, got: %q", out)
	}
}

func TestRunTag_CaseInsensitive(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runTag("GIT", false)
	})
	if runErr != nil {
		t.Fatalf("runTag: %v", runErr)
	}
	if !strings.Contains(out, "git-undo") {
		t.Errorf("expected tag match for GIT, got: %q", out)
	}
	if strings.Contains(out, "plain.md#0") {
		t.Errorf("untagged entry should not match, got: %q", out)
	}
}

func TestRunTag_NoMatches(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runTag("nope", false)
	})
	if runErr != nil {
		t.Fatalf("runTag: %v", runErr)
	}
	if !strings.Contains(out, `No entries tagged "nope".`) {
		t.Errorf("expected no-match message, got: %q", out)
	}
}

func TestRunTag_JSONEmptyArray(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runTag("nope", true)
	})
	if runErr != nil {
		t.Fatalf("runTag: %v", runErr)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Errorf("expected empty JSON array, got: %q", out)
	}
}
