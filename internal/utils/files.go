package utils

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	kerrors "github.com/PolarWolf314/agekeeper/internal/errors"
)

// ResolveFiles takes user-provided paths/globs and returns matching files.
// Relative patterns are resolved against baseDir. Directories are walked
// recursively. When keep is non-nil, only files it accepts are returned.
// Returns ErrNoFilesFound when nothing matches.
func ResolveFiles(patterns []string, baseDir string, keep func(path string) bool) ([]string, error) {
	var files []string
	seen := make(map[string]bool) // Deduplicate.

	for _, pattern := range patterns {
		resolved, err := resolvePattern(pattern, baseDir)
		if err != nil {
			return nil, err
		}

		for _, f := range resolved {
			if seen[f] || (keep != nil && !keep(f)) {
				continue
			}
			seen[f] = true
			files = append(files, f)
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", strings.Join(patterns, ", "), kerrors.ErrNoFilesFound)
	}

	return files, nil
}

func resolvePattern(pattern string, baseDir string) ([]string, error) {
	absPattern := pattern
	if !filepath.IsAbs(pattern) {
		absPattern = filepath.Join(baseDir, pattern)
	}

	// Check if it's a directory.
	info, err := os.Stat(absPattern)
	if err == nil && info.IsDir() {
		return findFilesInDir(absPattern)
	}

	// Check if it contains glob characters.
	if strings.ContainsAny(pattern, "*?[{") {
		return expandGlob(pattern, absPattern)
	}

	// Treat as literal file path.
	if os.IsNotExist(err) {
		return nil, fmt.Errorf("file not found: %s", pattern)
	}
	if err != nil {
		return nil, err
	}

	return []string{absPattern}, nil
}

func expandGlob(pattern, absPattern string) ([]string, error) {
	// doublestar adds ** support on top of filepath.Glob semantics.
	matches, err := doublestar.FilepathGlob(absPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern %q: %w", pattern, err)
	}

	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if isInVCSDir(m) {
			continue
		}
		files = append(files, m)
	}

	return files, nil
}

func findFilesInDir(dir string) ([]string, error) {
	var files []string

	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if d.Name() == ".git" {
				return filepath.SkipDir
			}
			return nil
		}

		// Skip irregular files.
		if !d.Type().IsRegular() {
			return nil
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

func isInVCSDir(path string) bool {
	for _, part := range strings.Split(filepath.ToSlash(path), "/") {
		if part == ".git" {
			return true
		}
	}
	return false
}
