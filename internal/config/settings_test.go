package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/handiism/ncmdump/internal/audio"
	"github.com/handiism/ncmdump/internal/model"
)

func TestValidate_Workers(t *testing.T) {
	targets := []string{"song.ncm"}

	for _, workers := range []int{-1, 0, 9, 16} {
		s := DefaultSettings()
		s.Workers = workers
		if err := s.Validate(targets); !errors.Is(err, model.ErrWorker) {
			t.Errorf("Validate() with %d workers = %v, want ErrWorker", workers, err)
		}
	}

	for workers := MinWorkers; workers <= MaxWorkers; workers++ {
		s := DefaultSettings()
		s.Workers = workers
		if err := s.Validate(targets); err != nil {
			t.Errorf("Validate() with %d workers = %v, want nil", workers, err)
		}
	}
}

func TestValidate_NoTargets(t *testing.T) {
	err := DefaultSettings().Validate(nil)
	if !errors.Is(err, model.ErrNoTarget) {
		t.Fatalf("Validate() = %v, want ErrNoTarget", err)
	}
	if model.KindOf(err) != model.KindConfig {
		t.Errorf("KindOf() = %v, want config", model.KindOf(err))
	}
}

func TestValidate_Options(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"metadata errors", func(s *Settings) { s.MetadataErrors = "fail" }},
		{"playlist format", func(s *Settings) { s.PlaylistFormat = "wpl" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(s)
			err := s.Validate([]string{"a.ncm"})
			if !errors.Is(err, model.ErrConfig) {
				t.Fatalf("Validate() = %v, want ErrConfig", err)
			}
			if model.KindOf(err) != model.KindConfig {
				t.Errorf("KindOf() = %v, want config", model.KindOf(err))
			}
		})
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *s != *DefaultSettings() {
		t.Errorf("Load() = %+v, want defaults", s)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"workers": 4, "metadata_errors": "ignore"}`), 0644); err != nil {
		t.Fatal(err)
	}

	s, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if s.Workers != 4 {
		t.Errorf("Workers = %d, want 4", s.Workers)
	}
	if s.WarnMetadataErrors() {
		t.Error("WarnMetadataErrors() = true, want false")
	}
	if !s.EmbedCoverArt {
		t.Error("EmbedCoverArt default was lost")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"workers":`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Error("Load() should fail on invalid JSON")
	}
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	s := DefaultSettings()
	s.OutputDir = "/music/out"
	s.Workers = 8
	s.PlaylistPath = "/music/out/recovered.pls"

	if err := s.Save(path); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if *loaded != *s {
		t.Errorf("Load() = %+v, want %+v", loaded, s)
	}
}

func TestConversions(t *testing.T) {
	s := DefaultSettings()
	s.PlaylistPath = "list.pls"
	if got := s.ToPlaylistFormat(); got != audio.FormatPLS {
		t.Errorf("ToPlaylistFormat() = %v, want PLS from extension", got)
	}
	s.PlaylistFormat = "m3u"
	if got := s.ToPlaylistFormat(); got != audio.FormatM3U {
		t.Errorf("ToPlaylistFormat() = %v, want M3U", got)
	}

	if got := s.WatchDebounce(); got != 500*time.Millisecond {
		t.Errorf("WatchDebounce() = %v", got)
	}

	s.CoverArtResize = true
	opts := s.ToCoverOptions()
	if !opts.Resize || opts.MaxSize != 1000 {
		t.Errorf("ToCoverOptions() = %+v", opts)
	}
	if !s.ToTagConfig().EmbedCover {
		t.Error("ToTagConfig().EmbedCover = false")
	}
}
