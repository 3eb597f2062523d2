// Package segment splits raw corpus files into sentinel-delimited entries.
package segment

import (
	"iter"
	"strings"

	"github.com/snipdex/snipdex/internal/diag"
)

// DefaultSentinel separates concatenated entries within one physical file.
// Several corpus files pack multiple unrelated entries into one document,
// joined by this marker on a line of its own.
const DefaultSentinel = "==================== CUT HERE ===================="

// Segment is one sentinel-delimited entry of a source file.
// SegmentIndex counts kept segments only, so indices are contiguous even
// when empty pieces were dropped.
type Segment struct {
	SourcePath   string
	SegmentIndex int
	RawText      string
}

// Splitter splits file content on a fixed sentinel marker.
//
// Empty pieces (consecutive sentinels, leading or trailing sentinel) are
// dropped silently. Whitespace-only pieces usually mean an authoring
// mistake upstream, so they are dropped with a warning through Warn when
// it is set. Warn fires on every pass over the sequence, so callers that
// collect diagnostics should range the sequence once.
type Splitter struct {
	Sentinel string
	Warn     func(diag.Diagnostic)
}

// NewSplitter returns a Splitter using the default sentinel.
func NewSplitter() *Splitter {
	return &Splitter{Sentinel: DefaultSentinel}
}

// Split returns the segments of content in file order, with surrounding
// whitespace trimmed from each segment's text. The sequence is lazy and
// restartable: content is scanned anew on each range.
func (s *Splitter) Split(path, content string) iter.Seq[Segment] {
	sentinel := s.Sentinel
	if sentinel == "" {
		sentinel = DefaultSentinel
	}
	return func(yield func(Segment) bool) {
		rest := content
		kept := 0
		piece := 0
		for {
			idx := strings.Index(rest, sentinel)
			raw := rest
			if idx >= 0 {
				raw = rest[:idx]
				rest = rest[idx+len(sentinel):]
			}

			trimmed := strings.TrimSpace(raw)
			switch {
			case trimmed != "":
				if !yield(Segment{SourcePath: path, SegmentIndex: kept, RawText: trimmed}) {
					return
				}
				kept++
			case raw != "":
				if s.Warn != nil {
					s.Warn(diag.Diagnostic{
						Kind:         diag.EmptySegment,
						Path:         path,
						SegmentIndex: piece,
						Detail:       "whitespace-only piece dropped",
					})
				}
			}
			piece++

			if idx < 0 {
				return
			}
		}
	}
}
