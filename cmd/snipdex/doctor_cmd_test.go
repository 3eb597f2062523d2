package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestSanitizeErrorForJSON_RemovesPaths(t *testing.T) {
	cases := []error{
		fmt.Errorf("open /home/user/corpus/index.db: permission denied"),
		fmt.Errorf(`open C:\Users\jdoe\corpus\index.db: access denied`),
	}

	for _, input := range cases {
		got := sanitizeErrorForJSON(input)
		if strings.Contains(got, "/home/user") || strings.Contains(strings.ToLower(got), `c:\users`) {
			t.Fatalf("expected path redaction, got: %q", got)
		}
		if !strings.Contains(strings.ToLower(got), "denied") {
			t.Fatalf("expected error detail to remain, got: %q", got)
		}
	}
}

func TestSanitizeErrorForJSON_PreservesCleanErrors(t *testing.T) {
	err := errors.New("connection refused")
	got := sanitizeErrorForJSON(err)
	if got != "connection refused" {
		t.Fatalf("sanitizeErrorForJSON() = %q, want %q", got, "connection refused")
	}
}

func TestRunDoctor_JSONOutput_Structure(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runDoctor(true)
	})
	if runErr != nil && !strings.Contains(runErr.Error(), "check(s) failed") {
		t.Fatalf("unexpected runDoctor error: %v", runErr)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("doctor JSON output should parse: %v (%q)", err, out)
	}
	if report.Summary.Total <= 0 {
		t.Fatalf("expected at least one check in summary, got %+v", report.Summary)
	}
	if report.Summary.Total != report.Summary.Passed+report.Summary.Skipped+report.Summary.Failed {
		t.Fatalf("summary totals inconsistent: %+v", report.Summary)
	}
}

func TestRunDoctor_CleanCorpusPasses(t *testing.T) {
	root := setupCommandTestRoot(t)
	writeCorpusFile(t, root, "solo.md", "Just one tidy entry.\n")

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runDoctor(true)
	})
	if runErr != nil {
		t.Fatalf("doctor on a clean corpus should pass: %v (%s)", runErr, out)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode doctor report: %v", err)
	}
	if report.Summary.Failed != 0 {
		t.Fatalf("expected no failures, got %+v", report.Summary)
	}
}

func TestRunDoctor_FlagsDuplicateIds(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runDoctor(true)
	})
	if runErr == nil || !strings.Contains(runErr.Error(), "check(s) failed") {
		t.Fatalf("expected failed checks for duplicate ids, got: %v", runErr)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode doctor report: %v", err)
	}
	found := false
	for _, check := range report.Checks {
		if check.Name == "Duplicate ids" {
			found = true
			if check.Status != "fail" {
				t.Errorf("Duplicate ids status = %q, want fail", check.Status)
			}
		}
	}
	if !found {
		t.Fatal("expected a Duplicate ids check in the report")
	}
}

func TestRunDoctor_TextOutput_ShowsHeader(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runDoctor(false)
	})
	if runErr != nil && !strings.Contains(runErr.Error(), "check(s) failed") {
		t.Fatalf("unexpected runDoctor error: %v", runErr)
	}
	if !strings.Contains(out, "snipdex Health Check") {
		t.Fatalf("expected header in text output, got: %q", out)
	}
}

func TestDoctorResult_StatusValues(t *testing.T) {
	root := setupCommandTestRoot(t)
	seedCommandTestCorpus(t, root)

	var runErr error
	out := captureCommandStdout(t, func() {
		runErr = runDoctor(true)
	})
	if runErr != nil && !strings.Contains(runErr.Error(), "check(s) failed") {
		t.Fatalf("unexpected runDoctor error: %v", runErr)
	}

	var report DoctorReport
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode doctor report: %v", err)
	}

	valid := map[string]bool{"pass": true, "skip": true, "fail": true}
	for _, check := range report.Checks {
		if !valid[check.Status] {
			t.Fatalf("invalid status %q for check %q", check.Status, check.Name)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	cases := []struct {
		seconds int
		want    string
	}{
		{30, "30 seconds"},
		{120, "2 minutes"},
		{3600, "1 hour"},
		{7200, "2 hours"},
		{86400, "1 day"},
		{259200, "3 days"},
	}
	for _, tc := range cases {
		got := formatDuration(time.Duration(tc.seconds) * time.Second)
		if got != tc.want {
			t.Errorf("formatDuration(%ds) = %q, want %q", tc.seconds, got, tc.want)
		}
	}
}
