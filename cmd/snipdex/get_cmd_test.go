package main

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/snipdex/snipdex/internal/corpus"
)

func TestRunGet_PrintsBody(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runGet("git-undo", false, false)
	})
	if runErr != nil {
		t.Fatalf("runGet: %v", runErr)
	}
	if !strings.Contains(out, "git reset --soft") {
		t.Errorf("expected body text, got: %q", out)
	}
	if strings.Contains(out, "```yaml") {
		t.Errorf("metadata block should be excised from the body, got: %q", out)
	}
}

func TestRunGet_SynthesizedID(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runGet("plain.md#0", false, false)
	})
	if runErr != nil {
		t.Fatalf("runGet: %v", runErr)
	}
	if !strings.Contains(out, "No metadata here") {
		t.Errorf("expected body of bare entry, got: %q", out)
	}
}

func TestRunGet_JSONRecord(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runGet("git-undo", true, false)
	})
	if runErr != nil {
		t.Fatalf("runGet: %v", runErr)
	}

	var rec corpus.DocumentRecord
	if err := json.Unmarshal([]byte(out), &rec); err != nil {
		t.Fatalf("get --json should parse: %v (%q)", err, out)
	}
	if rec.SourcePath != "git.md" || rec.SegmentIndex != 0 {
		t.Errorf("unexpected source location: %s#%d", rec.SourcePath, rec.SegmentIndex)
	}
	if rec.Description != "Undo the last commit" {
		t.Errorf("Description = %q", rec.Description)
	}
}

func TestRunGet_UnknownID(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	err := runGet("missing", false, false)
	if err == nil {
		t.Fatal("expected error for unknown id")
	}
	if !strings.Contains(err.Error(), "No entry with id") {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(err.Error(), "Hint:") {
		t.Fatalf("expected a hint, got: %v", err)
	}
}

func TestRunGet_Duplicates(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runGet("git-undo", false, true)
	})
	if runErr != nil {
		t.Fatalf("runGet: %v", runErr)
	}
	if !strings.Contains(out, "zdup.md#0") {
		t.Errorf("expected shadowed record location, got: %q", out)
	}
}

func TestRunGet_DuplicatesNone(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runGet("plain.md#0", false, true)
	})
	if runErr != nil {
		t.Fatalf("runGet: %v", runErr)
	}
	if !strings.Contains(out, "No duplicates") {
		t.Errorf("expected no-duplicates message, got: %q", out)
	}
}
