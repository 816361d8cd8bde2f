package audio

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// PlaylistFormat represents supported playlist file formats.
//
//   - M3U: Simple text format, widely supported
//   - PLS: INI-style format, used by Winamp
type PlaylistFormat int

const (
	// FormatM3U creates .m3u files (most compatible).
	// Can be extended with EXTINF lines for duration/title info.
	FormatM3U PlaylistFormat = iota

	// FormatPLS creates .pls files (Winamp/SHOUTcast format).
	FormatPLS
)

// FormatFromPath picks the playlist format from a file extension,
// defaulting to M3U.
func FormatFromPath(path string) PlaylistFormat {
	if strings.EqualFold(filepath.Ext(path), ".pls") {
		return FormatPLS
	}
	return FormatM3U
}

// Entry is one recovered file listed in a playlist.
type Entry struct {
	Path     string
	Title    string
	Artist   string
	Duration time.Duration
}

// label is the "Artist - Title" display string, falling back to the file name.
func (e Entry) label() string {
	switch {
	case e.Title != "" && e.Artist != "":
		return e.Artist + " - " + e.Title
	case e.Title != "":
		return e.Title
	default:
		return strings.TrimSuffix(filepath.Base(e.Path), filepath.Ext(e.Path))
	}
}

// PlaylistCreator generates playlists listing recovered files.
//
// Example:
//
//	creator := NewPlaylistCreator(FormatM3U, true)
//	content := creator.CreatePlaylist(entries, "/music/out")
//	os.WriteFile("/music/out/recovered.m3u", []byte(content), 0644)
//
//	// Result:
//	// #EXTM3U
//	// #EXTINF:215,Artist - Song Title
//	// Song Title.flac
type PlaylistCreator struct {
	format   PlaylistFormat
	extended bool // For M3U: include EXTINF lines with duration/title
}

// NewPlaylistCreator creates a new PlaylistCreator.
//
// extended only affects M3U output.
func NewPlaylistCreator(format PlaylistFormat, extended bool) *PlaylistCreator {
	return &PlaylistCreator{
		format:   format,
		extended: extended,
	}
}

// CreatePlaylist renders entries. Paths under baseDir are written relative
// to it, others are written as given.
func (p *PlaylistCreator) CreatePlaylist(entries []Entry, baseDir string) string {
	switch p.format {
	case FormatPLS:
		return p.createPLS(entries, baseDir)
	default:
		return p.createM3U(entries, baseDir)
	}
}

// createM3U generates an M3U playlist.
//
// Extended M3U format (when extended=true):
//
//	#EXTM3U
//	#EXTINF:180,Artist - Title
//	filename1.mp3
func (p *PlaylistCreator) createM3U(entries []Entry, baseDir string) string {
	var sb strings.Builder

	if p.extended {
		sb.WriteString("#EXTM3U\n")
	}

	for _, e := range entries {
		if p.extended {
			sb.WriteString(fmt.Sprintf("#EXTINF:%d,%s\n", seconds(e.Duration), e.label()))
		}
		sb.WriteString(relativeTo(baseDir, e.Path) + "\n")
	}

	return sb.String()
}

// createPLS generates a PLS playlist.
//
//	[playlist]
//	File1=filename1.mp3
//	Title1=Artist - Song Title
//	Length1=180
//	NumberOfEntries=1
//	Version=2
func (p *PlaylistCreator) createPLS(entries []Entry, baseDir string) string {
	var sb strings.Builder

	sb.WriteString("[playlist]\n")

	for i, e := range entries {
		idx := i + 1
		sb.WriteString(fmt.Sprintf("File%d=%s\n", idx, relativeTo(baseDir, e.Path)))
		sb.WriteString(fmt.Sprintf("Title%d=%s\n", idx, e.label()))
		length := seconds(e.Duration)
		if length == 0 {
			length = -1
		}
		sb.WriteString(fmt.Sprintf("Length%d=%d\n", idx, length))
	}

	sb.WriteString(fmt.Sprintf("NumberOfEntries=%d\n", len(entries)))
	sb.WriteString("Version=2\n")

	return sb.String()
}

func seconds(d time.Duration) int {
	if d <= 0 {
		return -1
	}
	return int(d / time.Second)
}

func relativeTo(baseDir, path string) string {
	if baseDir == "" {
		return path
	}
	rel, err := filepath.Rel(baseDir, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}
