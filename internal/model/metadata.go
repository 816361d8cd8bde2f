package model

import (
	"strings"
	"time"
)

// Artist is one credited performer with the store's identifier for it.
type Artist struct {
	Name string
	ID   string
}

// TrackMetadata is what a header-tagged container says about its track.
//
// It is built once from the decrypted metadata block and handed to the tag
// injector. Stream-cipher containers carry no metadata, so for those the
// pipeline passes nil.
type TrackMetadata struct {
	// ID is the store's track identifier, empty when unknown.
	ID string

	Title   string
	Artists []Artist
	Album   string

	// AlbumID is the store's album identifier, empty when unknown.
	AlbumID string

	// Duration is the track length. The container stores milliseconds;
	// only whole seconds are meaningful for tagging.
	Duration time.Duration

	// Bitrate in bits per second, zero when unknown.
	Bitrate int

	// Format is the codec the container claims ("flac", "mp3"). The decrypted
	// magic bytes remain authoritative.
	Format string

	// Cover holds the embedded cover image, nil when the container has none.
	Cover []byte

	// CoverMIME is the cover's media type when known, e.g. "image/jpeg".
	// Empty means it has to be sniffed from Cover.
	CoverMIME string
}

// ArtistNames joins all artist names with a comma.
func (m *TrackMetadata) ArtistNames() string {
	names := make([]string, 0, len(m.Artists))
	for _, a := range m.Artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ",")
}
