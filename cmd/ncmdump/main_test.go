package main

import (
	"errors"
	"flag"
	"io"
	"testing"

	"github.com/handiism/ncmdump/internal/config"
	"github.com/handiism/ncmdump/internal/model"
)

func parseWorker(t *testing.T, args ...string) (*flag.FlagSet, *int) {
	t.Helper()
	fs := flag.NewFlagSet("ncmdump", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	workers := fs.Int("worker", 0, "")
	if err := fs.Parse(args); err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	return fs, workers
}

func TestWorkerSet(t *testing.T) {
	tests := []struct {
		name        string
		args        []string
		wantSet     bool
		wantErr error
	}{
		{"not given", []string{"song.ncm"}, false, nil},
		{"zero", []string{"-worker", "0", "song.ncm"}, true, model.ErrWorker},
		{"nine", []string{"-worker=9", "song.ncm"}, true, model.ErrWorker},
		{"four", []string{"-worker", "4", "song.ncm"}, true, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs, workers := parseWorker(t, tt.args...)
			if got := workerSet(fs); got != tt.wantSet {
				t.Fatalf("workerSet() = %v, want %v", got, tt.wantSet)
			}

			settings := config.DefaultSettings()
			if workerSet(fs) {
				settings.Workers = *workers
			}
			err := settings.Validate(fs.Args())
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
