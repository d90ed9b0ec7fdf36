package build

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ErrNoRoot indicates the source root is missing or not a directory.
var ErrNoRoot = errors.New("source root not found")

// DefaultIgnore lists directory trees that are never walked, whatever the
// config says. They prune directories only: a trailing "/**" also matches
// the directory name itself, so applying "**/.*/**" to files would drop
// dotfiles such as .draft.adoc.
var DefaultIgnore = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/.*/**",
}

// Discover walks root and returns the files whose slash-separated path
// relative to root matches one of patterns and none of ignore (nor
// DefaultIgnore directories). Paths are returned joined to root, in lexical
// order.
func Discover(root string, patterns, ignore []string) ([]string, error) {
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoRoot, root)
	}

	var files []string
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if prunes(DefaultIgnore, rel) || prunes(ignore, rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if d.Type()&fs.ModeSymlink != 0 {
			return nil
		}
		if Matches(patterns, rel) && !Matches(ignore, rel) {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Matches reports whether the slash-separated rel matches any pattern.
func Matches(patterns []string, rel string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// prunes reports whether a directory is excluded as a whole: an ignore glob
// of the form "<dir-glob>/**" whose prefix matches the directory.
func prunes(ignore []string, relDir string) bool {
	for _, p := range ignore {
		dirGlob, ok := strings.CutSuffix(p, "/**")
		if !ok {
			continue
		}
		if match, _ := doublestar.Match(dirGlob, relDir); match {
			return true
		}
	}
	return false
}
