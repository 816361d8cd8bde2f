package audio

import (
	"errors"
	"io"
	"time"

	"github.com/dhowden/tag"
	"github.com/tcolgate/mp3"
)

// Summary is what a written file reports about itself.
type Summary struct {
	Title    string
	Artist   string
	Album    string
	HasCover bool
	Format   string
}

// Probe reads the tags of an MP3 or FLAC stream.
func Probe(r io.ReadSeeker) (*Summary, error) {
	meta, err := tag.ReadFrom(r)
	if err != nil {
		return nil, err
	}
	return &Summary{
		Title:    meta.Title(),
		Artist:   meta.Artist(),
		Album:    meta.Album(),
		HasCover: meta.Picture() != nil,
		Format:   string(meta.FileType()),
	}, nil
}

var errNoFrames = errors.New("no mp3 frames found")

// MP3Duration sums the durations of the MPEG audio frames in r.
func MP3Duration(r io.Reader) (time.Duration, error) {
	decoder := mp3.NewDecoder(r)
	var frame mp3.Frame
	var skipped int
	var total time.Duration

	for {
		err := decoder.Decode(&frame, &skipped)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
				break
			}
			return 0, err
		}
		total += frame.Duration()
	}

	if total <= 0 {
		return 0, errNoFrames
	}
	return total, nil
}
