package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/handiism/ncmdump/internal/audio"
	ioutils "github.com/handiism/ncmdump/internal/io"
	"github.com/handiism/ncmdump/internal/model"
)

const (
	// MinWorkers and MaxWorkers bound the worker pool size.
	MinWorkers = 1
	MaxWorkers = 8

	// MetadataErrorsWarn reports unparsable metadata blocks as warnings.
	MetadataErrorsWarn = "warn"

	// MetadataErrorsIgnore drops unparsable metadata blocks silently.
	MetadataErrorsIgnore = "ignore"
)

// Settings holds all configuration options.
type Settings struct {
	// Output settings
	OutputDir      string `json:"output_dir"` // empty: next to each input
	FileNameFormat string `json:"file_name_format"`
	Overwrite      bool   `json:"overwrite"`

	// Run settings
	Workers   int  `json:"workers"`
	Recursive bool `json:"recursive"`
	Verbose   bool `json:"verbose"`

	// Metadata settings
	MetadataErrors string `json:"metadata_errors"` // warn, ignore

	// Cover art settings
	EmbedCoverArt        bool `json:"embed_cover_art"`
	CoverArtResize       bool `json:"cover_art_resize"`
	CoverArtMaxSize      int  `json:"cover_art_max_size"`
	ConvertCoverArtToJPG bool `json:"convert_cover_art_to_jpg"`

	// Playlist settings
	PlaylistPath   string `json:"playlist_path"`
	PlaylistFormat string `json:"playlist_format"` // m3u, pls; empty: from the extension
	M3UExtended    bool   `json:"m3u_extended"`

	// Watch settings
	WatchDebounceMs int `json:"watch_debounce_ms"`
}

// DefaultSettings returns settings with default values.
func DefaultSettings() *Settings {
	return &Settings{
		OutputDir:      "",
		FileNameFormat: "",
		Overwrite:      false,

		Workers:   1,
		Recursive: false,
		Verbose:   false,

		MetadataErrors: MetadataErrorsWarn,

		EmbedCoverArt:        true,
		CoverArtResize:       false,
		CoverArtMaxSize:      1000,
		ConvertCoverArtToJPG: false,

		PlaylistPath:   "",
		PlaylistFormat: "",
		M3UExtended:    true,

		WatchDebounceMs: 500,
	}
}

// Load reads settings from a JSON file.
func Load(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultSettings(), nil
		}
		return nil, err
	}

	settings := DefaultSettings()
	if err := json.Unmarshal(data, settings); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	return settings, nil
}

// Save writes settings to a JSON file.
func (s *Settings) Save(path string) error {
	dir := filepath.Dir(path)
	if err := ioutils.EnsureDir(dir); err != nil {
		return err
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate checks the settings against the targets of a run. It is called
// before any file is touched.
func (s *Settings) Validate(targets []string) error {
	if s.Workers < MinWorkers || s.Workers > MaxWorkers {
		return fmt.Errorf("%w: got %d", model.ErrWorker, s.Workers)
	}
	if len(targets) == 0 {
		return model.ErrNoTarget
	}
	switch s.MetadataErrors {
	case MetadataErrorsWarn, MetadataErrorsIgnore:
	default:
		return fmt.Errorf("%w: metadata_errors must be %q or %q, got %q", model.ErrConfig, MetadataErrorsWarn, MetadataErrorsIgnore, s.MetadataErrors)
	}
	switch s.PlaylistFormat {
	case "", "m3u", "pls":
	default:
		return fmt.Errorf("%w: playlist_format must be m3u or pls, got %q", model.ErrConfig, s.PlaylistFormat)
	}
	return nil
}

// WarnMetadataErrors reports whether unparsable metadata is surfaced.
func (s *Settings) WarnMetadataErrors() bool {
	return s.MetadataErrors != MetadataErrorsIgnore
}

// WatchDebounce is the quiet period before watched files are dispatched.
func (s *Settings) WatchDebounce() time.Duration {
	if s.WatchDebounceMs <= 0 {
		return 0
	}
	return time.Duration(s.WatchDebounceMs) * time.Millisecond
}

// ToCoverOptions converts settings to the cover normalization options.
func (s *Settings) ToCoverOptions() ioutils.CoverOptions {
	return ioutils.CoverOptions{
		Resize:  s.CoverArtResize,
		MaxSize: s.CoverArtMaxSize,
		ToJPEG:  s.ConvertCoverArtToJPG,
	}
}

// ToTagConfig converts settings to TagConfig.
func (s *Settings) ToTagConfig() *audio.TagConfig {
	return &audio.TagConfig{
		EmbedCover:      s.EmbedCoverArt,
		ComputeDuration: true,
	}
}

// ToPlaylistFormat resolves the playlist format, falling back to the
// playlist path's extension.
func (s *Settings) ToPlaylistFormat() audio.PlaylistFormat {
	switch s.PlaylistFormat {
	case "pls":
		return audio.FormatPLS
	case "m3u":
		return audio.FormatM3U
	default:
		return audio.FormatFromPath(s.PlaylistPath)
	}
}
