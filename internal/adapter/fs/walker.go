package fs

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
)

// Walker finds raw corpus files below a directory or matching a glob.
type Walker struct {
	includes []string
	excludes []string
}

func NewWalker(includes, excludes []string) *Walker {
	if len(includes) == 0 {
		includes = []string{"**/*.json"}
	}
	return &Walker{
		includes: includes,
		excludes: excludes,
	}
}

// Resolve expands target into an ordered list of files. A directory is walked
// with the include/exclude patterns, a glob is expanded, and anything else is
// returned as a single path.
func (w *Walker) Resolve(target string) ([]string, error) {
	if info, err := os.Stat(target); err == nil {
		if !info.IsDir() {
			return []string{target}, nil
		}
		return w.Walk(target)
	}

	if !hasMeta(target) {
		return nil, fmt.Errorf("%s: %w", target, os.ErrNotExist)
	}

	matches, err := doublestar.FilepathGlob(target)
	if err != nil {
		return nil, fmt.Errorf("invalid pattern %q: %w", target, err)
	}
	base, _ := doublestar.SplitPattern(filepath.ToSlash(target))
	var paths []string
	for _, m := range matches {
		if info, err := os.Stat(m); err != nil || info.IsDir() {
			continue
		}
		rel, err := filepath.Rel(filepath.FromSlash(base), m)
		if err != nil {
			rel = m
		}
		if !w.shouldExclude(filepath.ToSlash(rel)) {
			paths = append(paths, m)
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("no files match %s: %w", target, os.ErrNotExist)
	}
	sort.Strings(paths)
	return paths, nil
}

// Walk returns included files under root in lexical order.
func (w *Walker) Walk(root string) ([]string, error) {
	var files []string

	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		relPath, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		relPath = filepath.ToSlash(relPath)

		if info.IsDir() {
			if relPath != "." && w.shouldExclude(relPath+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if w.shouldInclude(relPath) && !w.shouldExclude(relPath) {
			files = append(files, path)
		}

		return nil
	})

	return files, err
}

func (w *Walker) shouldInclude(path string) bool {
	for _, pattern := range w.includes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func (w *Walker) shouldExclude(path string) bool {
	for _, pattern := range w.excludes {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}

func hasMeta(path string) bool {
	for _, c := range path {
		switch c {
		case '*', '?', '[', '{':
			return true
		}
	}
	return false
}
