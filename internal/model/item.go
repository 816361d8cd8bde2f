package model

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/handiism/ncmdump/internal/format"
)

// WorkItem describes one input file queued for dumping.
//
// Items are created by the pipeline producer after sniffing the file and are
// read-only from then on; exactly one worker ever sees a given item.
type WorkItem struct {
	// Path is the absolute path of the encrypted input.
	Path string

	// Size is the input size in bytes, used for progress totals.
	Size int64

	// Kind is the container format detected from the leading magic bytes.
	Kind format.Kind

	// Name is the display name (the input's base name).
	Name string
}

// NewWorkItem builds a WorkItem, resolving path to an absolute path.
func NewWorkItem(path string, size int64, kind format.Kind) (*WorkItem, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrPath, path, err)
	}
	return &WorkItem{
		Path: abs,
		Size: size,
		Kind: kind,
		Name: filepath.Base(abs),
	}, nil
}

// Stem returns the input file name without its extension.
func (w *WorkItem) Stem() string {
	base := filepath.Base(w.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// OutputPath computes where the decoded file is written.
//
// outputDir overrides the input's directory when non-empty. nameFormat is an
// optional template; when empty (or when meta is nil) the input stem is used.
// Supported placeholders: {stem}, {title}, {artist}, {album}.
// ext is the extension without the dot and is chosen from the decrypted
// payload, never from the input name.
func (w *WorkItem) OutputPath(outputDir, nameFormat string, meta *TrackMetadata, ext string) (string, error) {
	dir := outputDir
	if dir == "" {
		dir = filepath.Dir(w.Path)
	}
	if dir == "" || ext == "" {
		return "", fmt.Errorf("%w: %s", ErrPath, w.Path)
	}

	name := w.Stem()
	if nameFormat != "" && meta != nil {
		name = w.parseFileName(nameFormat, meta)
	}
	if name == "" || name == "." {
		return "", fmt.Errorf("%w: empty file name for %s", ErrPath, w.Path)
	}

	return filepath.Join(dir, name+"."+ext), nil
}

// parseFileName fills the name template from metadata.
func (w *WorkItem) parseFileName(nameFormat string, meta *TrackMetadata) string {
	fileName := nameFormat
	fileName = strings.ReplaceAll(fileName, "{stem}", w.Stem())
	fileName = strings.ReplaceAll(fileName, "{title}", meta.Title)
	fileName = strings.ReplaceAll(fileName, "{artist}", meta.ArtistNames())
	fileName = strings.ReplaceAll(fileName, "{album}", meta.Album)
	return sanitizeFileName(fileName)
}

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots   = regexp.MustCompile(`\.+$`)
	repeatedSpaces = regexp.MustCompile(`\s+`)
)

// sanitizeFileName replaces characters that are invalid in file names on
// common platforms, drops trailing dots and collapses whitespace.
func sanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}
