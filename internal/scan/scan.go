// Package scan finds video files and plans their output paths.
package scan

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// VideoExtensions are matched case-insensitively.
var VideoExtensions = []string{
	".mkv", ".mp4", ".mov", ".avi", ".m4v",
	".flv", ".wmv", ".webm", ".ts", ".mts",
	".m2ts", ".vob", ".3gp", ".3g2",
}

// IsVideo reports whether path has a known video extension.
func IsVideo(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range VideoExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Source is a discovered input. Root is the directory argument it was found
// under, or empty when the file was named directly.
type Source struct {
	Path string
	Root string
}

// Options tune discovery.
type Options struct {
	Recursive bool
	// SkipSuffix ignores files whose name stem ends with it, so outputs
	// written next to their sources are not picked up again.
	SkipSuffix string
}

// Discover expands paths into video files. Directories are searched (one
// level unless Recursive) and their files sorted; named files must have a
// video extension. Argument order is kept and duplicates are dropped.
func Discover(paths []string, opts Options) ([]Source, error) {
	var out []Source
	seen := map[string]bool{}
	add := func(p, root string) {
		abs, err := filepath.Abs(p)
		if err != nil {
			abs = filepath.Clean(p)
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		out = append(out, Source{Path: abs, Root: root})
	}

	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", p, err)
		}
		if !fi.IsDir() {
			if !IsVideo(p) {
				return nil, fmt.Errorf("scan %s: not a video file (known extensions: %s)", p, strings.Join(VideoExtensions, " "))
			}
			add(p, "")
			continue
		}
		root, err := filepath.Abs(p)
		if err != nil {
			root = filepath.Clean(p)
		}
		found, err := walk(root, opts)
		if err != nil {
			return nil, err
		}
		for _, f := range found {
			add(f, root)
		}
	}
	return out, nil
}

func walk(root string, opts Options) ([]string, error) {
	var found []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subdirectories are skipped.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && !opts.Recursive {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || !IsVideo(path) {
			return nil
		}
		if opts.SkipSuffix != "" && strings.HasSuffix(stem(path), opts.SkipSuffix) {
			return nil
		}
		found = append(found, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	sort.Strings(found)
	return found, nil
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Naming controls where outputs go.
type Naming struct {
	Dir    string // output root; empty writes next to the source
	Suffix string // appended to the name stem
	Ext    string // output extension including the dot
}

// ErrSameAsSource is returned when a plan would overwrite its input.
var ErrSameAsSource = errors.New("output path equals the source path")

// OutputPath returns stem + Suffix + Ext. With an output root, the source's
// position below its scan root is kept.
func OutputPath(src Source, n Naming) (string, error) {
	name := stem(src.Path) + n.Suffix + n.Ext
	dir := filepath.Dir(src.Path)
	if n.Dir != "" {
		dir = n.Dir
		if src.Root != "" {
			if rel, err := filepath.Rel(src.Root, filepath.Dir(src.Path)); err == nil && !strings.HasPrefix(rel, "..") {
				dir = filepath.Join(n.Dir, rel)
			}
		}
	}
	out := filepath.Join(dir, name)
	if filepath.Clean(out) == filepath.Clean(src.Path) {
		return "", fmt.Errorf("%s: %w", src.Path, ErrSameAsSource)
	}
	return out, nil
}
