// Package frontmatter finds and parses the fenced metadata block of a
// corpus segment.
//
// Metadata travels inside the segment body as a fenced code block tagged
// yaml (or yml) whose content is a YAML document between --- markers,
// typically near the end of the segment:
//
//	```yaml
//	---
//	id: git/worktree-basics
//	tags: [git, cli]
//	---
//	```
//
// Segments are cheatsheet prose and frequently contain yaml examples, so
// a fenced yaml block only counts as metadata when it carries the inner
// --- document. When several such blocks appear, the last one wins.
package frontmatter

import (
	"errors"
	"sort"
	"strings"

	adrg "github.com/adrg/frontmatter"
	yaml "gopkg.in/yaml.v2"
)

// FrontMatter holds the metadata parsed from a segment's fenced block.
// String fields are pointers so callers can tell "not specified" apart
// from "specified as empty". Keys outside the known set land in Extra.
type FrontMatter struct {
	ID          *string        `yaml:"id" json:"id,omitempty"`
	Lang        *string        `yaml:"lang" json:"lang,omitempty"`
	Platform    *string        `yaml:"platform" json:"platform,omitempty"`
	Scope       *string        `yaml:"scope" json:"scope,omitempty"`
	Since       *string        `yaml:"since" json:"since,omitempty"`
	Tags        []string       `yaml:"tags" json:"tags,omitempty"`
	Description *string        `yaml:"description" json:"description,omitempty"`
	Extra       map[string]any `yaml:",inline" json:"extra,omitempty"`
}

// Result is the outcome of parsing one segment's text.
type Result struct {
	// Meta is nil when the segment carries no metadata block. A malformed
	// block yields a non-nil FrontMatter with every field unset.
	Meta *FrontMatter
	// Body is the segment text with the winning metadata block removed.
	// Without a block it is the input, byte for byte.
	Body string
	// Malformed reports a block that was found but could not be parsed.
	Malformed bool
	// Ambiguous reports more than one candidate block in the segment.
	Ambiguous bool
	// Err holds the decode failure when Malformed is set.
	Err error
}

var errUnterminatedDoc = errors.New("missing closing --- delimiter")

// Parse extracts the metadata block from raw segment text. It never
// fails: parse problems are reported through the Result flags so the
// caller can keep the segment and diagnose. Parse is pure, two calls
// with the same input return equal Results.
func Parse(raw string) Result {
	blocks := findBlocks(raw)
	if len(blocks) == 0 {
		return Result{Body: raw}
	}

	winner := blocks[len(blocks)-1]
	body := excise(raw, winner)
	ambiguous := len(blocks) > 1

	meta, err := decodeBlock(winner.inner)
	if err != nil {
		return Result{
			Meta:      &FrontMatter{},
			Body:      body,
			Malformed: true,
			Ambiguous: ambiguous,
			Err:       err,
		}
	}
	return Result{Meta: meta, Body: body, Ambiguous: ambiguous}
}

// block is one candidate metadata block, located by line index into the
// segment text.
type block struct {
	startLine int // opening fence line
	endLine   int // closing fence line
	inner     string
}

// findBlocks locates closed, flush-left yaml fences whose content opens
// with a --- document marker. Fences with other language tags act only
// as fence state, so yaml examples quoted inside them are not matched.
func findBlocks(raw string) []block {
	lines := strings.Split(raw, "\n")
	var blocks []block
	inFence := false
	candidate := false
	start := 0
	for i, line := range lines {
		t := strings.TrimRight(line, " \t\r")
		if !inFence {
			if !strings.HasPrefix(t, "```") {
				continue
			}
			tag := t[len("```"):]
			inFence = true
			candidate = tag == "yaml" || tag == "yml"
			start = i
			continue
		}
		if t == "```" {
			if candidate {
				inner := strings.Join(lines[start+1:i], "\n")
				if opensWithDocMarker(inner) {
					blocks = append(blocks, block{startLine: start, endLine: i, inner: inner})
				}
			}
			inFence = false
			candidate = false
		}
	}
	return blocks
}

// opensWithDocMarker reports whether the first significant line of the
// fenced content is the --- document start. Blank lines and full-line
// comments before it are tolerated.
func opensWithDocMarker(inner string) bool {
	for _, line := range strings.Split(inner, "\n") {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		return t == "---"
	}
	return false
}

// excise removes the block's lines, fences included, from the segment
// text. Everything outside the block is preserved byte for byte.
func excise(raw string, b block) string {
	lines := strings.Split(raw, "\n")
	kept := make([]string, 0, len(lines)-(b.endLine-b.startLine+1))
	kept = append(kept, lines[:b.startLine]...)
	kept = append(kept, lines[b.endLine+1:]...)
	return strings.Join(kept, "\n")
}

// decodeBlock parses the fenced content into a FrontMatter. The content
// is reduced to the document between its --- markers first so that
// surrounding blank lines, comments, or a missing trailing newline do
// not matter.
func decodeBlock(inner string) (*FrontMatter, error) {
	doc, err := extractDoc(inner)
	if err != nil {
		return nil, err
	}

	var fm FrontMatter
	if _, err := adrg.Parse(strings.NewReader(doc), &fm); err != nil {
		return nil, err
	}
	fm.Extra = normalizeExtra(fm.Extra)
	return &fm, nil
}

// extractDoc cuts the document between the --- markers out of the fenced
// content and normalizes it to end with a newline.
func extractDoc(inner string) (string, error) {
	lines := strings.Split(inner, "\n")
	start := -1
	for i, line := range lines {
		t := strings.TrimSpace(line)
		if t == "" || strings.HasPrefix(t, "#") {
			continue
		}
		if t == "---" {
			start = i
		}
		break
	}
	if start < 0 {
		return "", errUnterminatedDoc
	}
	end := -1
	for i := start + 1; i < len(lines); i++ {
		if strings.TrimSpace(lines[i]) == "---" {
			end = i
			break
		}
	}
	if end < 0 {
		return "", errUnterminatedDoc
	}
	return strings.Join(lines[start:end+1], "\n") + "\n", nil
}

// normalizeExtra rewrites the yaml.v2 map representation into JSON-safe
// types. Nested mappings decode as map[interface{}]interface{}, which
// encoding/json refuses to marshal.
func normalizeExtra(m map[string]any) map[string]any {
	if len(m) == 0 {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[interface{}]interface{}:
		out := make(map[string]any, len(t))
		for k, val := range t {
			key, ok := k.(string)
			if !ok {
				key = stringify(k)
			}
			out[key] = normalizeValue(val)
		}
		return out
	case []interface{}:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}

func stringify(v any) string {
	b, err := yaml.Marshal(v)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}

// Render serializes the front matter back to its canonical fenced block
// form: known fields first in a fixed order, extra keys after, sorted.
// Unset fields are omitted. Parse(Render(fm) + body) yields fm again.
func (fm *FrontMatter) Render() string {
	items := yaml.MapSlice{}
	appendField := func(key string, v *string) {
		if v != nil {
			items = append(items, yaml.MapItem{Key: key, Value: *v})
		}
	}
	appendField("id", fm.ID)
	appendField("lang", fm.Lang)
	appendField("platform", fm.Platform)
	appendField("scope", fm.Scope)
	appendField("since", fm.Since)
	if fm.Tags != nil {
		items = append(items, yaml.MapItem{Key: "tags", Value: fm.Tags})
	}
	appendField("description", fm.Description)

	keys := make([]string, 0, len(fm.Extra))
	for k := range fm.Extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		items = append(items, yaml.MapItem{Key: k, Value: fm.Extra[k]})
	}

	var sb strings.Builder
	sb.WriteString("```yaml\n---\n")
	if len(items) > 0 {
		out, _ := yaml.Marshal(items)
		sb.Write(out)
	}
	sb.WriteString("---\n```\n")
	return sb.String()
}

// IsZero reports whether no field of the front matter is set.
func (fm *FrontMatter) IsZero() bool {
	return fm.ID == nil && fm.Lang == nil && fm.Platform == nil &&
		fm.Scope == nil && fm.Since == nil && fm.Tags == nil &&
		fm.Description == nil && len(fm.Extra) == 0
}
