package ioutils

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/handiism/ncmdump/internal/model"
)

func writeTestFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func TestWriteFile_NoClobber(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "song.flac")

	if err := WriteFile(path, []byte("first"), false); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	err := WriteFile(path, []byte("second"), false)
	if !errors.Is(err, model.ErrExists) {
		t.Fatalf("WriteFile() error = %v, want ErrExists", err)
	}

	got, _ := os.ReadFile(path)
	if !bytes.Equal(got, []byte("first")) {
		t.Errorf("existing file changed to %q", got)
	}

	entries, _ := os.ReadDir(dir)
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1 (no leftover temp files)", len(entries))
	}
}

func TestWriteFile_Overwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "song.mp3")
	writeTestFile(t, path, "old")

	if err := WriteFile(path, []byte("new"), true); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	got, _ := os.ReadFile(path)
	if string(got) != "new" {
		t.Errorf("content = %q, want %q", got, "new")
	}
}

func TestWriteFile_MissingDir(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "song.mp3")
	if err := WriteFile(path, []byte("x"), false); err == nil {
		t.Error("WriteFile() into a missing directory should fail")
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a")
	writeTestFile(t, path, "a")

	if ok, err := Exists(path); err != nil || !ok {
		t.Errorf("Exists(%q) = %v, %v", path, ok, err)
	}
	if ok, err := Exists(filepath.Join(dir, "b")); err != nil || ok {
		t.Errorf("Exists(missing) = %v, %v", ok, err)
	}
}

func TestTempName(t *testing.T) {
	path := filepath.Join("music", "song.flac")
	a, b := TempName(path), TempName(path)

	if a == b {
		t.Error("TempName() should be unique")
	}
	if filepath.Dir(a) != "music" {
		t.Errorf("TempName() dir = %q, want sibling of target", filepath.Dir(a))
	}
	if !IsTempName(a) {
		t.Errorf("IsTempName(%q) = false", a)
	}
	if IsTempName(path) {
		t.Errorf("IsTempName(%q) = true", path)
	}
}

func TestExpandTargets(t *testing.T) {
	root := t.TempDir()
	files := []string{
		"a.ncm",
		"b.qmcflac",
		"notes.txt",
		"sub/c.ncm",
		"sub/deeper/d.ncm",
	}
	for _, f := range files {
		writeTestFile(t, filepath.Join(root, f), f)
	}

	abs := func(rel string) string { return filepath.Join(root, rel) }

	tests := []struct {
		name      string
		targets   []string
		recursive bool
		want      []string
		wantErr   bool
	}{
		{
			name:    "single file",
			targets: []string{abs("a.ncm")},
			want:    []string{abs("a.ncm")},
		},
		{
			name:    "glob",
			targets: []string{filepath.Join(root, "*.ncm")},
			want:    []string{abs("a.ncm")},
		},
		{
			name:    "directory",
			targets: []string{root},
			want:    []string{abs("a.ncm"), abs("b.qmcflac"), abs("notes.txt")},
		},
		{
			name:      "recursive directory",
			targets:   []string{root},
			recursive: true,
			want: []string{
				abs("a.ncm"), abs("b.qmcflac"), abs("notes.txt"),
				abs("sub/c.ncm"), abs("sub/deeper/d.ncm"),
			},
		},
		{
			name:    "duplicates dropped",
			targets: []string{abs("a.ncm"), root, filepath.Join(root, "*.ncm")},
			want:    []string{abs("a.ncm"), abs("b.qmcflac"), abs("notes.txt")},
		},
		{
			name:    "missing target",
			targets: []string{abs("missing.ncm"), abs("a.ncm")},
			want:    []string{abs("a.ncm")},
			wantErr: true,
		},
		{
			name:    "glob without match",
			targets: []string{filepath.Join(root, "*.mp3")},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExpandTargets(tt.targets, tt.recursive)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ExpandTargets() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, model.ErrPath) {
				t.Errorf("ExpandTargets() error = %v, want ErrPath", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ExpandTargets() = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("ExpandTargets()[%d] = %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestExpandTargets_DepthBound(t *testing.T) {
	root := t.TempDir()
	deep := root
	for i := 0; i < MaxDepth; i++ {
		deep = filepath.Join(deep, "d")
	}
	writeTestFile(t, filepath.Join(deep, "too-deep.ncm"), "x")
	writeTestFile(t, filepath.Join(filepath.Dir(deep), "deepest.ncm"), "x")

	got, err := ExpandTargets([]string{root}, true)
	if err != nil {
		t.Fatalf("ExpandTargets() error = %v", err)
	}
	if len(got) != 1 || filepath.Base(got[0]) != "deepest.ncm" {
		t.Errorf("ExpandTargets() = %v, want only deepest.ncm", got)
	}
}

func TestExpandTargets_SkipsTempFiles(t *testing.T) {
	root := t.TempDir()
	writeTestFile(t, filepath.Join(root, "a.ncm"), "x")
	writeTestFile(t, TempName(filepath.Join(root, "a.flac")), "x")

	got, err := ExpandTargets([]string{root}, false)
	if err != nil {
		t.Fatalf("ExpandTargets() error = %v", err)
	}
	if len(got) != 1 {
		t.Errorf("ExpandTargets() = %v, want only a.ncm", got)
	}
}
