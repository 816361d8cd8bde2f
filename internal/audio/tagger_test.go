package audio

import (
	"bytes"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"
	"time"

	"github.com/bogem/id3v2"
	"github.com/dhowden/tag"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
	"github.com/handiism/ncmdump/internal/format"
	"github.com/handiism/ncmdump/internal/model"
)

func testMetadata(t *testing.T) *model.TrackMetadata {
	t.Helper()
	return &model.TrackMetadata{
		Title:    "Song Title",
		Artists:  []model.Artist{{Name: "Artist One", ID: "1"}, {Name: "Artist Two", ID: "2"}},
		Album:    "Album Name",
		Duration: 215 * time.Second,
		Cover:    testPNG(t),
	}
}

func testPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	img.Set(0, 0, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func fakeFrames(n int) []byte {
	frames := make([]byte, n)
	for i := range frames {
		frames[i] = byte(i*13 + 7)
	}
	return frames
}

// flacFrames returns n bytes of frame data that open with the FLAC frame
// sync code, which go-flac requires after the last metadata block.
func flacFrames(n int) []byte {
	frames := fakeFrames(n)
	frames[0], frames[1] = 0xFF, 0xF8
	return frames
}

func testMP3(t *testing.T, audio []byte) []byte {
	t.Helper()
	old := id3v2.NewEmptyTag()
	old.SetVersion(3)
	old.SetTitle("Old Title")
	old.SetGenre("Pop")

	var buf bytes.Buffer
	if _, err := old.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	buf.Write(audio)
	return buf.Bytes()
}

func testFLAC(t *testing.T, frames []byte) []byte {
	t.Helper()
	cmts := flacvorbis.New()
	if err := cmts.Add(flacvorbis.FIELD_TITLE, "Old Title"); err != nil {
		t.Fatal(err)
	}
	if err := cmts.Add(flacvorbis.FIELD_GENRE, "Rock"); err != nil {
		t.Fatal(err)
	}
	cmtBlock := cmts.Marshal()

	f := &flac.File{
		Meta: []*flac.MetaDataBlock{
			{Type: flac.StreamInfo, Data: make([]byte, 34)},
			&cmtBlock,
		},
		Frames: frames,
	}
	return f.Marshal()
}

func TestTagger_InjectMP3(t *testing.T) {
	audio := fakeFrames(4096)
	payload := testMP3(t, audio)
	meta := testMetadata(t)

	out, err := NewTagger(nil).Inject(payload, format.CodecMP3, meta)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}

	if !bytes.HasPrefix(out, []byte("ID3")) {
		t.Fatal("output should start with an ID3 tag")
	}
	if !bytes.HasSuffix(out, audio) {
		t.Error("audio frames were modified")
	}
	if got := len(out) - id3v2TagSize(out); got != len(audio) {
		t.Errorf("audio length after tag = %d, want %d", got, len(audio))
	}

	m, err := tag.ReadFrom(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("tag.ReadFrom() error = %v", err)
	}
	if m.Title() != "Song Title" {
		t.Errorf("Title() = %q, want %q", m.Title(), "Song Title")
	}
	if m.Artist() != "Artist One,Artist Two" {
		t.Errorf("Artist() = %q, want %q", m.Artist(), "Artist One,Artist Two")
	}
	if m.Album() != "Album Name" {
		t.Errorf("Album() = %q, want %q", m.Album(), "Album Name")
	}
	if m.Genre() != "Pop" {
		t.Errorf("Genre() = %q, want existing frame kept", m.Genre())
	}
	if m.Picture() == nil {
		t.Error("Picture() should be set")
	} else if m.Picture().MIMEType != "image/png" {
		t.Errorf("Picture().MIMEType = %q, want image/png", m.Picture().MIMEType)
	}
	if tlen, ok := m.Raw()["TLEN"]; !ok || tlen != "215000" {
		t.Errorf("TLEN = %v, want 215000", tlen)
	}
}

func TestTagger_InjectMP3WithoutExistingTag(t *testing.T) {
	audio := fakeFrames(64)
	meta := &model.TrackMetadata{Title: "Only Title"}

	out, err := NewTagger(&TagConfig{}).Inject(audio, format.CodecMP3, meta)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	summary, err := Probe(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if summary.Title != "Only Title" || summary.HasCover {
		t.Errorf("Probe() = %+v", summary)
	}
}

func TestTagger_InjectMP3UnparseableTag(t *testing.T) {
	tests := []struct {
		name   string
		header string
	}{
		{"oversized", "ID3\x04\x00\x00\x00\x00\x7F\x7F"},
		{"not syncsafe", "ID3\x04\x00\x00\x80\x00\x00\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			payload := append([]byte(tt.header), fakeFrames(256)...)

			out, err := NewTagger(DefaultTagConfig()).Inject(payload, format.CodecMP3, testMetadata(t))
			if err != nil {
				t.Fatalf("Inject() error = %v", err)
			}
			size := id3v2TagSize(out)
			if size == 0 {
				t.Fatal("output should start with a new tag")
			}
			if !bytes.Equal(out[size:], payload) {
				t.Error("payload bytes after the new tag were modified")
			}
		})
	}
}

func TestTagger_InjectFLAC(t *testing.T) {
	frames := flacFrames(8192)
	payload := testFLAC(t, frames)
	meta := testMetadata(t)

	out, err := NewTagger(DefaultTagConfig()).Inject(payload, format.CodecFLAC, meta)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}

	parsed, err := flac.ParseBytes(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("ParseBytes() error = %v", err)
	}
	if !bytes.Equal(parsed.Frames, frames) {
		t.Error("audio frames were modified")
	}
	if parsed.Meta[0].Type != flac.StreamInfo {
		t.Errorf("first block = %v, want STREAMINFO", parsed.Meta[0].Type)
	}

	var comments int
	for _, b := range parsed.Meta {
		if b.Type == flac.VorbisComment {
			comments++
		}
	}
	if comments != 1 {
		t.Errorf("VORBIS_COMMENT blocks = %d, want 1", comments)
	}

	m, err := tag.ReadFrom(bytes.NewReader(out))
	if err != nil {
		t.Fatalf("tag.ReadFrom() error = %v", err)
	}
	if m.Title() != "Song Title" {
		t.Errorf("Title() = %q, want %q", m.Title(), "Song Title")
	}
	if m.Artist() != "Artist One,Artist Two" {
		t.Errorf("Artist() = %q", m.Artist())
	}
	if m.Album() != "Album Name" {
		t.Errorf("Album() = %q", m.Album())
	}
	if m.Genre() != "Rock" {
		t.Errorf("Genre() = %q, want existing comment kept", m.Genre())
	}
	if m.Picture() == nil {
		t.Error("Picture() should be set")
	}
}

func TestTagger_NilMetadataPassesThrough(t *testing.T) {
	payload := append([]byte("fLaC"), fakeFrames(32)...)
	out, err := NewTagger(nil).Inject(payload, format.CodecFLAC, nil)
	if err != nil {
		t.Fatalf("Inject() error = %v", err)
	}
	if !bytes.Equal(out, payload) {
		t.Error("payload should be returned unchanged")
	}
}

func TestTagger_UnknownCodec(t *testing.T) {
	_, err := NewTagger(nil).Inject([]byte("data"), format.CodecUnknown, &model.TrackMetadata{})
	if !errors.Is(err, model.ErrFormat) {
		t.Errorf("Inject() error = %v, want ErrFormat", err)
	}
}

func TestID3v2TagSize(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		want    int
	}{
		{"no tag", []byte("fLaC0000000000"), 0},
		{"short", []byte("ID3"), 0},
		{"empty tag", []byte("ID3\x04\x00\x00\x00\x00\x00\x00audio"), 10},
		{"syncsafe size", append([]byte("ID3\x04\x00\x00\x00\x00\x01\x00"), make([]byte, 200)...), 138},
		{"footer", append([]byte("ID3\x04\x00\x10\x00\x00\x00\x05"), make([]byte, 40)...), 25},
		{"oversized", []byte("ID3\x04\x00\x00\x00\x00\x7F\x7Fab"), 0},
		{"invalid syncsafe", []byte("ID3\x04\x00\x00\x80\x00\x00\x00"), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := id3v2TagSize(tt.payload); got != tt.want {
				t.Errorf("id3v2TagSize() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestMP3Duration_NoFrames(t *testing.T) {
	if _, err := MP3Duration(bytes.NewReader(nil)); err == nil {
		t.Error("MP3Duration() on empty input should fail")
	}
}
