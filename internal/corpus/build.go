package corpus

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/snipdex/snipdex/internal/diag"
	"github.com/snipdex/snipdex/internal/frontmatter"
	"github.com/snipdex/snipdex/internal/segment"
)

// ErrNoInput is returned when there is nothing to index: the path list
// is empty, or none of the listed files could be read. A zero-document
// index is almost always a caller mistake rather than a valid corpus.
var ErrNoInput = errors.New("no input files to index")

const defaultWorkers = 4

// Options tunes a build. The zero value uses the default sentinel and
// worker count.
type Options struct {
	// Sentinel overrides the entry delimiter.
	Sentinel string
	// Workers caps the parallel file fan-out. Parallelism never changes
	// the result: files are merged back in path order.
	Workers int
	// BaseDir, when set, is joined with each path for reading while the
	// records keep the shorter relative path. This keeps ids and source
	// paths stable regardless of where the corpus root lives.
	BaseDir string
}

// fileResult carries one file's records and diagnostics, in file order.
type fileResult struct {
	records []*DocumentRecord
	diags   []diag.Diagnostic
	failed  bool
}

// Build reads every path, splits it into segments, parses each
// segment's metadata, and assembles the index. Per-file and per-segment
// problems become diagnostics; Build itself fails only when there is no
// input at all.
//
// Id collisions do not overwrite: the first record in path order stays
// addressable and later claimants move to the duplicates side table
// with a DuplicateID diagnostic.
func Build(paths []string, opts Options) (*Index, error) {
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w: empty path list", ErrNoInput)
	}

	sentinel := opts.Sentinel
	if sentinel == "" {
		sentinel = segment.DefaultSentinel
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}
	if workers > len(paths) {
		workers = len(paths)
	}

	type pathWork struct {
		pos  int
		path string
	}
	results := make([]fileResult, len(paths))
	workCh := make(chan pathWork, len(paths))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for w := range workCh {
				results[w.pos] = processFile(w.path, opts.BaseDir, sentinel)
			}
		}()
	}
	for i, p := range paths {
		workCh <- pathWork{pos: i, path: p}
	}
	close(workCh)
	wg.Wait()

	idx := &Index{
		byID:       make(map[string]*DocumentRecord),
		duplicates: make(map[string][]*DocumentRecord),
		totalFiles: len(paths),
		builtAt:    time.Now(),
	}
	for _, fr := range results {
		if !fr.failed {
			idx.filesRead++
		}
		idx.diagnostics = append(idx.diagnostics, fr.diags...)
		for _, rec := range fr.records {
			existing, taken := idx.byID[rec.ID]
			if taken {
				idx.duplicates[rec.ID] = append(idx.duplicates[rec.ID], rec)
				idx.diagnostics = append(idx.diagnostics, diag.Diagnostic{
					Kind:         diag.DuplicateID,
					Path:         rec.SourcePath,
					SegmentIndex: rec.SegmentIndex,
					Detail: fmt.Sprintf("id %q already used by %s#%d",
						rec.ID, existing.SourcePath, existing.SegmentIndex),
				})
				continue
			}
			idx.byID[rec.ID] = rec
			idx.records = append(idx.records, rec)
		}
	}

	if idx.filesRead == 0 {
		return nil, fmt.Errorf("%w: none of the %d paths could be read", ErrNoInput, len(paths))
	}
	return idx, nil
}

// processFile reads and segments one file. Read failures and invalid
// encodings mark the whole file failed; everything past that is
// per-segment.
func processFile(path, baseDir, sentinel string) fileResult {
	readPath := path
	if baseDir != "" {
		readPath = filepath.Join(baseDir, path)
	}

	content, err := os.ReadFile(readPath)
	if err != nil {
		return fileResult{
			failed: true,
			diags: []diag.Diagnostic{{
				Kind:         diag.ReadError,
				Path:         path,
				SegmentIndex: -1,
				Detail:       err.Error(),
			}},
		}
	}
	if !utf8.Valid(content) {
		return fileResult{
			failed: true,
			diags: []diag.Diagnostic{{
				Kind:         diag.ReadError,
				Path:         path,
				SegmentIndex: -1,
				Detail:       "not valid UTF-8",
			}},
		}
	}

	var fr fileResult
	splitter := &segment.Splitter{
		Sentinel: sentinel,
		Warn:     func(d diag.Diagnostic) { fr.diags = append(fr.diags, d) },
	}
	for seg := range splitter.Split(path, string(content)) {
		parsed := frontmatter.Parse(seg.RawText)
		if parsed.Ambiguous {
			fr.diags = append(fr.diags, diag.Diagnostic{
				Kind:         diag.AmbiguousFrontMatter,
				Path:         seg.SourcePath,
				SegmentIndex: seg.SegmentIndex,
				Detail:       "multiple metadata blocks, last one wins",
			})
		}
		if parsed.Malformed {
			detail := "unparsable metadata block"
			if parsed.Err != nil {
				detail = parsed.Err.Error()
			}
			fr.diags = append(fr.diags, diag.Diagnostic{
				Kind:         diag.MalformedFrontMatter,
				Path:         seg.SourcePath,
				SegmentIndex: seg.SegmentIndex,
				Detail:       detail,
			})
		}
		fr.records = append(fr.records, newRecord(seg, parsed))
	}
	return fr
}

// newRecord flattens one parsed segment. Records without a usable
// explicit id get the synthesized "{path}#{segment_index}" form.
func newRecord(seg segment.Segment, parsed frontmatter.Result) *DocumentRecord {
	rec := &DocumentRecord{
		Body:         strings.TrimSpace(parsed.Body),
		SourcePath:   seg.SourcePath,
		SegmentIndex: seg.SegmentIndex,
		Meta:         parsed.Meta,
	}
	if fm := parsed.Meta; fm != nil {
		rec.ID = strings.TrimSpace(strValue(fm.ID))
		rec.Lang = strValue(fm.Lang)
		rec.Platform = strValue(fm.Platform)
		rec.Scope = strValue(fm.Scope)
		rec.Since = strValue(fm.Since)
		rec.Tags = fm.Tags
		rec.Description = strValue(fm.Description)
		rec.Extra = fm.Extra
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("%s#%d", seg.SourcePath, seg.SegmentIndex)
	}
	return rec
}

func strValue(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
