// Package walker discovers corpus files under a root directory.
package walker

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// DefaultInclude matches the markdown corpus layout.
var DefaultInclude = []string{"**/*.md"}

// DefaultSkipDirs are directory names never worth descending into.
var DefaultSkipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	".snipdex":     true,
	"node_modules": true,
	"vendor":       true,
}

// Config selects which files under Root belong to the corpus.
type Config struct {
	Root string
	// Include holds glob patterns matched against slash paths relative
	// to Root. Empty means DefaultInclude.
	Include []string
	// Exclude drops files that matched an include pattern.
	Exclude []string
	// SkipDirs prunes whole directories by name. Nil means
	// DefaultSkipDirs.
	SkipDirs map[string]bool
}

// Walk returns the corpus files under cfg.Root as slash-separated paths
// relative to it, sorted. Feeding the result to a corpus build gives a
// stable path order, so record ids and duplicate winners do not depend
// on filesystem iteration quirks.
func Walk(cfg Config) ([]string, error) {
	include := cfg.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	skip := cfg.SkipDirs
	if skip == nil {
		skip = DefaultSkipDirs
	}
	for _, pat := range include {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid include pattern %q", pat)
		}
	}
	for _, pat := range cfg.Exclude {
		if !doublestar.ValidatePattern(pat) {
			return nil, fmt.Errorf("invalid exclude pattern %q", pat)
		}
	}

	var files []string
	err := filepath.WalkDir(cfg.Root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == cfg.Root {
				return fmt.Errorf("corpus root: %w", walkErr)
			}
			return nil
		}
		if d.IsDir() {
			if path != cfg.Root && skip[d.Name()] {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(cfg.Root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !matchAny(include, rel) || matchAny(cfg.Exclude, rel) {
			return nil
		}
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// Matches reports whether a corpus-relative slash path passes the include
// and exclude patterns. Used by watch mode to filter filesystem events with
// the same rules Walk applies.
func (c Config) Matches(rel string) bool {
	include := c.Include
	if len(include) == 0 {
		include = DefaultInclude
	}
	return matchAny(include, rel) && !matchAny(c.Exclude, rel)
}

func matchAny(patterns []string, rel string) bool {
	for _, pat := range patterns {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}
