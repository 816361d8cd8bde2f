package audio

import (
	"strings"
	"testing"
	"time"
)

func testEntries() []Entry {
	return []Entry{
		{Path: "/music/out/track1.flac", Title: "Track One", Artist: "Artist", Duration: 180 * time.Second},
		{Path: "/music/out/sub/track2.mp3", Duration: 200500 * time.Millisecond},
		{Path: "/elsewhere/track3.mp3", Title: "Three"},
	}
}

func TestPlaylistCreator_M3U(t *testing.T) {
	content := NewPlaylistCreator(FormatM3U, false).CreatePlaylist(testEntries(), "/music/out")

	if strings.Contains(content, "#EXTM3U") {
		t.Error("plain M3U should not contain #EXTM3U")
	}
	for _, want := range []string{"track1.flac\n", "sub/track2.mp3\n", "/elsewhere/track3.mp3\n"} {
		if !strings.Contains(content, want) {
			t.Errorf("M3U should contain %q, got:\n%s", want, content)
		}
	}
}

func TestPlaylistCreator_M3UExtended(t *testing.T) {
	content := NewPlaylistCreator(FormatM3U, true).CreatePlaylist(testEntries(), "/music/out")

	if !strings.HasPrefix(content, "#EXTM3U") {
		t.Error("Extended M3U should start with #EXTM3U")
	}
	for _, want := range []string{"#EXTINF:180,Artist - Track One", "#EXTINF:200,track2", "#EXTINF:-1,Three"} {
		if !strings.Contains(content, want) {
			t.Errorf("Extended M3U should contain %q, got:\n%s", want, content)
		}
	}
}

func TestPlaylistCreator_PLS(t *testing.T) {
	content := NewPlaylistCreator(FormatPLS, false).CreatePlaylist(testEntries(), "")

	if !strings.HasPrefix(content, "[playlist]") {
		t.Error("PLS should start with [playlist]")
	}
	for _, want := range []string{"File1=/music/out/track1.flac", "Title1=Artist - Track One", "Length1=180", "Length3=-1", "NumberOfEntries=3", "Version=2"} {
		if !strings.Contains(content, want) {
			t.Errorf("PLS should contain %q, got:\n%s", want, content)
		}
	}
}

func TestFormatFromPath(t *testing.T) {
	tests := []struct {
		path string
		want PlaylistFormat
	}{
		{"list.m3u", FormatM3U},
		{"list.PLS", FormatPLS},
		{"list", FormatM3U},
	}
	for _, tt := range tests {
		if got := FormatFromPath(tt.path); got != tt.want {
			t.Errorf("FormatFromPath(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
