// Package pathset describes the set of files a file input monitors.
package pathset

import (
	"path/filepath"
	"sort"
	"strings"
)

// PathSet is a glob pattern anchored at a filesystem root.
type PathSet struct {
	pattern string
	root    string
}

// New creates a PathSet from a glob pattern such as /var/log/app/*.log.
func New(pattern string) *PathSet {
	pattern = filepath.Clean(pattern)
	return &PathSet{
		pattern: pattern,
		root:    rootOf(pattern),
	}
}

// Pattern returns the cleaned glob pattern.
func (p *PathSet) Pattern() string {
	return p.pattern
}

// RootPath returns the deepest directory of the pattern that contains no glob meta characters.
func (p *PathSet) RootPath() string {
	return p.root
}

// Matches reports whether path is covered by the pattern.
func (p *PathSet) Matches(path string) bool {
	matched, err := filepath.Match(p.pattern, filepath.Clean(path))
	return err == nil && matched
}

// Paths expands the pattern to the files currently present, sorted.
func (p *PathSet) Paths() ([]string, error) {
	matches, err := filepath.Glob(p.pattern)
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

// String implements fmt.Stringer.
func (p *PathSet) String() string {
	return p.pattern
}

func rootOf(pattern string) string {
	if !hasMeta(pattern) {
		return filepath.Dir(pattern)
	}

	dir := pattern
	for hasMeta(dir) {
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	return dir
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[\`)
}
