package ioutils

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/handiism/ncmdump/internal/model"
)

const (
	// MaxDepth bounds recursive directory traversal.
	MaxDepth = 8

	tempSuffix = ".tmp"
)

// WriteFile writes data to path.
//
// Without overwrite the write is atomic with respect to pre-existence: data
// is written to a temporary sibling first and then linked into place, so an
// existing file is never modified and model.ErrExists is returned. With
// overwrite the temporary file is renamed over path.
//
// The file is created with mode 0644.
//
// Example:
//
//	err := WriteFile("/music/song.flac", payload, false)
func WriteFile(path string, data []byte, overwrite bool) error {
	tmp := TempName(path)
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	defer os.Remove(tmp)

	if overwrite {
		return os.Rename(tmp, path)
	}

	err := os.Link(tmp, path)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrExist):
		return fmt.Errorf("%w: %s", model.ErrExists, path)
	}

	// Some file systems have no hard links.
	return writeExclusive(path, data)
}

// writeExclusive creates path with O_EXCL and writes data into it.
func writeExclusive(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return fmt.Errorf("%w: %s", model.ErrExists, path)
		}
		return err
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	return f.Close()
}

// TempName returns a unique hidden sibling of path used while writing it.
func TempName(path string) string {
	return filepath.Join(filepath.Dir(path), "."+filepath.Base(path)+"."+uuid.NewString()+tempSuffix)
}

// IsTempName reports whether name looks like a file produced by TempName.
func IsTempName(name string) bool {
	base := filepath.Base(name)
	return strings.HasPrefix(base, ".") && strings.HasSuffix(base, tempSuffix)
}

// Exists reports whether something is present at path.
func Exists(path string) (bool, error) {
	_, err := os.Lstat(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	default:
		return false, err
	}
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

// ExpandTargets resolves command-line targets into a list of candidate files.
//
// Each target may be a file, a directory or a glob pattern. Directories
// contribute the regular files directly inside them, or with recursive set,
// the files up to MaxDepth levels below. Symbolic links to files are
// followed. The result is de-duplicated by absolute path and keeps the
// order in which files were first found.
//
// Targets that match nothing are reported in the returned error, joined
// with errors.Join and wrapping model.ErrPath; the files that were found are
// still returned.
//
// Example:
//
//	paths, err := ExpandTargets([]string{"*.ncm", "albums"}, true)
func ExpandTargets(targets []string, recursive bool) ([]string, error) {
	maxDepth := 1
	if recursive {
		maxDepth = MaxDepth
	}

	var (
		files []string
		errs  []error
		seen  = make(map[string]struct{})
	)
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("%w: %s: %v", model.ErrPath, path, err))
			return
		}
		if _, ok := seen[abs]; ok {
			return
		}
		seen[abs] = struct{}{}
		files = append(files, abs)
	}

	for _, target := range targets {
		matches := []string{target}
		if hasMeta(target) {
			var err error
			matches, err = filepath.Glob(target)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %v", model.ErrPath, target, err))
				continue
			}
			if len(matches) == 0 {
				errs = append(errs, fmt.Errorf("%w: no match for %s", model.ErrPath, target))
				continue
			}
		}

		for _, match := range matches {
			info, err := os.Stat(match)
			if err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %v", model.ErrPath, match, err))
				continue
			}
			if !info.IsDir() {
				add(match)
				continue
			}
			if err := walkDir(match, maxDepth, add); err != nil {
				errs = append(errs, fmt.Errorf("%w: %s: %v", model.ErrPath, match, err))
			}
		}
	}

	return files, errors.Join(errs...)
}

// walkDir calls add for every regular file at most maxDepth levels below root.
func walkDir(root string, maxDepth int, add func(string)) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable entries below the root are skipped.
			return nil
		}

		depth := depthOf(root, path)
		if d.IsDir() {
			if path != root && depth >= maxDepth {
				return filepath.SkipDir
			}
			return nil
		}
		if depth > maxDepth || IsTempName(path) {
			return nil
		}

		if d.Type()&fs.ModeSymlink != 0 {
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		} else if !d.Type().IsRegular() {
			return nil
		}

		add(path)
		return nil
	})
}

// depthOf returns how many path elements path is below root.
func depthOf(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(filepath.ToSlash(rel), "/") + 1
}

func hasMeta(path string) bool {
	return strings.ContainsAny(path, `*?[`)
}
