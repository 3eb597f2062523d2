package mcp

import (
	"testing"

	"github.com/snipdex/snipdex/internal/corpus"
)

// --- clampLimit ---

func TestClampLimit_Default(t *testing.T) {
	if got := clampLimit(0, 20); got != 20 {
		t.Errorf("expected 20 for zero input, got %d", got)
	}
	if got := clampLimit(-5, 20); got != 20 {
		t.Errorf("expected 20 for negative input, got %d", got)
	}
}

func TestClampLimit_MaxCap(t *testing.T) {
	if got := clampLimit(200, 20); got != 100 {
		t.Errorf("expected 100 for over-max input, got %d", got)
	}
	if got := clampLimit(101, 20); got != 100 {
		t.Errorf("expected 100 for 101, got %d", got)
	}
}

func TestClampLimit_ValidRange(t *testing.T) {
	if got := clampLimit(5, 20); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	if got := clampLimit(100, 20); got != 100 {
		t.Errorf("expected 100, got %d", got)
	}
	if got := clampLimit(1, 20); got != 1 {
		t.Errorf("expected 1, got %d", got)
	}
}

// --- textResult ---

func TestTextResult(t *testing.T) {
	result := textResult("hello world")
	if result == nil {
		t.Fatal("expected non-nil result")
	}
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(result.Content))
	}
}

// --- summarize ---

func TestSummarize_DropsBody(t *testing.T) {
	sanitizeEnabled = false
	t.Cleanup(func() { sanitizeEnabled = true })

	rec := &corpus.DocumentRecord{
		ID:           "git-undo",
		Description:  "Undo the last commit",
		Tags:         []string{"git", "undo"},
		Body:         "git reset --soft HEAD~1",
		SourcePath:   "snippets/git.md",
		SegmentIndex: 2,
	}
	sum := summarize(rec)
	if sum.ID != "git-undo" {
		t.Errorf("expected id git-undo, got %q", sum.ID)
	}
	if sum.Description != "Undo the last commit" {
		t.Errorf("expected description carried over, got %q", sum.Description)
	}
	if len(sum.Tags) != 2 {
		t.Errorf("expected 2 tags, got %d", len(sum.Tags))
	}
	if sum.SourcePath != "snippets/git.md" || sum.SegmentIndex != 2 {
		t.Errorf("expected source location carried over, got %s#%d", sum.SourcePath, sum.SegmentIndex)
	}
}

// --- currentIndex ---

func TestCurrentIndex_NilBeforeServe(t *testing.T) {
	mu.Lock()
	idx = nil
	mu.Unlock()

	if currentIndex() != nil {
		t.Error("expected nil index before Serve")
	}
}
