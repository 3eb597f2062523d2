// Package diag defines the diagnostic records collected while building a
// corpus index. Diagnostics are advisory: the build absorbs per-file and
// per-segment problems and reports them here instead of failing.
package diag

import "fmt"

// Kind classifies a diagnostic.
type Kind string

const (
	// ReadError marks a file that could not be read or was not valid UTF-8.
	ReadError Kind = "read_error"
	// MalformedFrontMatter marks a segment whose metadata block exists but
	// could not be parsed.
	MalformedFrontMatter Kind = "malformed_front_matter"
	// DuplicateID marks a record whose id was already claimed by an earlier
	// record in build order.
	DuplicateID Kind = "duplicate_id"
	// EmptySegment marks a whitespace-only piece dropped by the segmenter.
	EmptySegment Kind = "empty_segment"
	// AmbiguousFrontMatter marks a segment containing more than one
	// candidate metadata block. The last block wins.
	AmbiguousFrontMatter Kind = "ambiguous_front_matter"
)

// Diagnostic describes one recoverable problem found during a build.
// SegmentIndex is -1 for file-level problems.
type Diagnostic struct {
	Kind         Kind   `json:"kind"`
	Path         string `json:"path"`
	SegmentIndex int    `json:"segment_index"`
	Detail       string `json:"detail,omitempty"`
}

func (d Diagnostic) String() string {
	loc := d.Path
	if d.SegmentIndex >= 0 {
		loc = fmt.Sprintf("%s#%d", d.Path, d.SegmentIndex)
	}
	if d.Detail == "" {
		return fmt.Sprintf("%s: %s", d.Kind, loc)
	}
	return fmt.Sprintf("%s: %s: %s", d.Kind, loc, d.Detail)
}
