package main

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/snipdex/snipdex/internal/config"
	"github.com/snipdex/snipdex/internal/corpus"
	"github.com/snipdex/snipdex/internal/diag"
)

// setupCommandTestRoot points the CLI at a fresh temp corpus root and
// neutralizes ambient env so tests stay hermetic.
func setupCommandTestRoot(t *testing.T) string {
	t.Helper()

	tmp := t.TempDir()

	oldRoot := config.RootOverride
	oldConfig := config.ConfigOverride
	config.RootOverride = tmp
	config.ConfigOverride = ""
	t.Cleanup(func() {
		config.RootOverride = oldRoot
		config.ConfigOverride = oldConfig
	})

	t.Setenv("SNIPDEX_ROOT", tmp)
	t.Setenv("SNIPDEX_CONFIG", "")
	t.Setenv("SNIPDEX_DATA_DIR", "")
	t.Setenv("SNIPDEX_SENTINEL", "")
	t.Setenv("HOME", tmp)
	t.Setenv("USERPROFILE", tmp)

	return tmp
}

func writeCorpusFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir %s: %v", rel, err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", rel, err)
	}
}

// seedCommandTestCorpus writes a small corpus: one tagged entry, one bare
// entry, and one file that re-claims an existing id. The duplicate file
// is named so it sorts after git.md, making git.md the winner.
func seedCommandTestCorpus(t *testing.T, root string) {
	t.Helper()
	writeCorpusFile(t, root, "git.md",
		"```yaml\n---\nid: git-undo\ntags: [git, undo]\ndescription: Undo the last commit\n---\n```\nUse git reset --soft HEAD~1.\n")
	writeCorpusFile(t, root, "plain.md", "No metadata here, just prose.\n")
	writeCorpusFile(t, root, "zdup.md",
		"```yaml\n---\nid: git-undo\n---\n```\nShadowed body.\n")
}

func captureCommandStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("os.Pipe: %v", err)
	}
	os.Stdout = w
	defer func() {
		os.Stdout = old
	}()

	fn()

	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, r); err != nil {
		t.Fatalf("io.Copy: %v", err)
	}
	return buf.String()
}

func TestRunBuild_PrintsStatsJSON(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runBuild(false, nil)
	})
	if runErr != nil {
		t.Fatalf("runBuild: %v", runErr)
	}

	var stats corpus.Stats
	if err := json.Unmarshal([]byte(out), &stats); err != nil {
		t.Fatalf("stats output should parse as JSON: %v (%q)", err, out)
	}
	if stats.FilesRead != 3 {
		t.Errorf("FilesRead = %d, want 3", stats.FilesRead)
	}
	if stats.Records != 2 {
		t.Errorf("Records = %d, want 2", stats.Records)
	}
	if stats.ShadowedRecords != 1 {
		t.Errorf("ShadowedRecords = %d, want 1", stats.ShadowedRecords)
	}
}

func TestRunBuild_StrictFailsOnDiagnostics(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	captureCommandStdout(t, func() {
		runErr = runBuild(true, nil)
	})
	if runErr == nil {
		t.Fatal("expected strict build to fail while diagnostics exist")
	}
	if !strings.Contains(runErr.Error(), "diagnostic") {
		t.Fatalf("unexpected error: %v", runErr)
	}
}

func TestRunBuild_FailOnMatchesKind(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	captureCommandStdout(t, func() {
		runErr = runBuild(false, []string{"duplicate_id"})
	})
	if runErr == nil {
		t.Fatal("expected --fail-on duplicate_id to fail on the seeded corpus")
	}
}

func TestRunBuild_FailOnIgnoresOtherKinds(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	captureCommandStdout(t, func() {
		runErr = runBuild(false, []string{"read_error"})
	})
	if runErr != nil {
		t.Fatalf("read_error is not among the seeded diagnostics, got: %v", runErr)
	}
}

func TestRunBuild_CleanCorpusPassesStrict(t *testing.T) {
	root := setupCommandTestRoot(t)
	writeCorpusFile(t, root, "solo.md", "Just one tidy entry.\n")

	var runErr error
	captureCommandStdout(t, func() {
		runErr = runBuild(true, nil)
	})
	if runErr != nil {
		t.Fatalf("strict build of a clean corpus should pass, got: %v", runErr)
	}
}

func TestRunBuild_NoFiles(t *testing.T) {
	setupCommandTestRoot(t)

	err := runBuild(false, nil)
	if err == nil {
		t.Fatal("expected error for a root with no corpus files")
	}
	if !strings.Contains(err.Error(), "No corpus files") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestMatchBuildPolicy_Strict(t *testing.T) {
	diags := []diag.Diagnostic{
		{Kind: diag.EmptySegment},
		{Kind: diag.DuplicateID},
	}
	if got := matchBuildPolicy(diags, true, nil); got != 2 {
		t.Errorf("matchBuildPolicy(strict) = %d, want 2", got)
	}
}

func TestMatchBuildPolicy_FailOnTrimsSpaces(t *testing.T) {
	diags := []diag.Diagnostic{
		{Kind: diag.DuplicateID},
		{Kind: diag.ReadError},
		{Kind: diag.EmptySegment},
	}
	got := matchBuildPolicy(diags, false, []string{" duplicate_id", "read_error "})
	if got != 2 {
		t.Errorf("matchBuildPolicy(fail-on) = %d, want 2", got)
	}
}

func TestMatchBuildPolicy_NoPolicy(t *testing.T) {
	diags := []diag.Diagnostic{{Kind: diag.DuplicateID}}
	if got := matchBuildPolicy(diags, false, nil); got != 0 {
		t.Errorf("matchBuildPolicy(none) = %d, want 0", got)
	}
}
