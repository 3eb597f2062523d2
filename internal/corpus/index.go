// Package corpus builds an immutable in-memory index over segmented
// markdown files. Files are split on the sentinel, each segment's
// metadata block is parsed, and the resulting records become addressable
// by id. Problems found along the way are absorbed as diagnostics, never
// raised, so a partially broken corpus still indexes.
package corpus

import (
	"iter"
	"sort"
	"strings"
	"time"

	"github.com/snipdex/snipdex/internal/diag"
	"github.com/snipdex/snipdex/internal/frontmatter"
)

// DocumentRecord is one indexed segment. Metadata fields are flattened
// to plain strings for convenient access; Meta keeps the parsed front
// matter for callers that need to distinguish unset from empty.
type DocumentRecord struct {
	ID           string         `json:"id"`
	Lang         string         `json:"lang,omitempty"`
	Platform     string         `json:"platform,omitempty"`
	Scope        string         `json:"scope,omitempty"`
	Since        string         `json:"since,omitempty"`
	Tags         []string       `json:"tags,omitempty"`
	Description  string         `json:"description,omitempty"`
	Extra        map[string]any `json:"extra,omitempty"`
	Body         string         `json:"body,omitempty"`
	SourcePath   string         `json:"source_path"`
	SegmentIndex int            `json:"segment_index"`

	Meta *frontmatter.FrontMatter `json:"-"`
}

// HasTag reports whether the record carries the tag, compared
// case-insensitively.
func (r *DocumentRecord) HasTag(tag string) bool {
	for _, t := range r.Tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

// Index is the built corpus. It is immutable once Build returns;
// refreshing the corpus means building a new Index and dropping the old
// one. Records returned from an Index are shared, callers must not
// modify them.
type Index struct {
	records     []*DocumentRecord
	byID        map[string]*DocumentRecord
	duplicates  map[string][]*DocumentRecord
	diagnostics []diag.Diagnostic
	totalFiles  int
	filesRead   int
	builtAt     time.Time
}

// Get returns the record addressable under id, or nil when absent.
func (x *Index) Get(id string) *DocumentRecord {
	return x.byID[id]
}

// All returns the addressable records in build order: files in the
// order given to Build, segments in file order within each file.
func (x *Index) All() iter.Seq[*DocumentRecord] {
	return func(yield func(*DocumentRecord) bool) {
		for _, rec := range x.records {
			if !yield(rec) {
				return
			}
		}
	}
}

// FindByTag returns the records carrying the tag, case-insensitive
// exact match, in build order.
func (x *Index) FindByTag(tag string) iter.Seq[*DocumentRecord] {
	return func(yield func(*DocumentRecord) bool) {
		for _, rec := range x.records {
			if rec.HasTag(tag) && !yield(rec) {
				return
			}
		}
	}
}

// Duplicates returns the records that lost the id to an earlier record,
// in build order. Nil when the id saw no collision.
func (x *Index) Duplicates(id string) []*DocumentRecord {
	return x.duplicates[id]
}

// DuplicateIDs returns the ids that saw collisions, sorted.
func (x *Index) DuplicateIDs() []string {
	ids := make([]string, 0, len(x.duplicates))
	for id := range x.duplicates {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Diagnostics returns everything diagnosed during the build, grouped by
// file in build order.
func (x *Index) Diagnostics() []diag.Diagnostic {
	return x.diagnostics
}

// Len returns the number of addressable records.
func (x *Index) Len() int {
	return len(x.records)
}

// BuiltAt returns when the build finished.
func (x *Index) BuiltAt() time.Time {
	return x.builtAt
}

// Stats summarizes a built index.
type Stats struct {
	TotalFiles      int    `json:"total_files"`
	FilesRead       int    `json:"files_read"`
	Records         int    `json:"records"`
	WithFrontMatter int    `json:"with_front_matter"`
	DuplicateIDs    int    `json:"duplicate_ids"`
	ShadowedRecords int    `json:"shadowed_records"`
	Diagnostics     int    `json:"diagnostics"`
	BuiltAt         string `json:"built_at"`
}

// Stats returns the build summary.
func (x *Index) Stats() Stats {
	withMeta := 0
	for _, rec := range x.records {
		if rec.Meta != nil {
			withMeta++
		}
	}
	shadowed := 0
	for _, recs := range x.duplicates {
		shadowed += len(recs)
	}
	return Stats{
		TotalFiles:      x.totalFiles,
		FilesRead:       x.filesRead,
		Records:         len(x.records),
		WithFrontMatter: withMeta,
		DuplicateIDs:    len(x.duplicates),
		ShadowedRecords: shadowed,
		Diagnostics:     len(x.diagnostics),
		BuiltAt:         x.builtAt.UTC().Format(time.RFC3339),
	}
}
