package dump

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"

	"github.com/handiism/ncmdump/internal/audio"
	"github.com/handiism/ncmdump/internal/format"
	ioutils "github.com/handiism/ncmdump/internal/io"
	"github.com/handiism/ncmdump/internal/model"
	"github.com/handiism/ncmdump/internal/ncm"
	"github.com/handiism/ncmdump/internal/qmc"
)

// progressReader adds every byte read to a shared counter.
type progressReader struct {
	r     io.Reader
	total *atomic.Int64
	read  int64
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.read += int64(n)
		p.total.Add(int64(n))
	}
	return n, err
}

// dumpItem decodes one file, tags it and writes the result.
func (m *Manager) dumpItem(ctx context.Context, item *model.WorkItem) error {
	f, err := os.Open(item.Path)
	if err != nil {
		return err
	}
	defer f.Close()

	counter := &progressReader{r: f, total: &m.doneBytes}
	defer func() {
		// Skipped or failed bytes still count as processed.
		if rest := item.Size - counter.read; rest > 0 {
			m.doneBytes.Add(rest)
		}
	}()

	payload, meta, err := m.openDecoder(item, counter)
	if err != nil {
		return err
	}

	head := make([]byte, format.CodecMagicSize)
	n, err := io.ReadFull(payload, head)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return fmt.Errorf("read %s: %w", item.Name, err)
	}
	codec, ok := format.DetectCodec(head[:n])
	if !ok {
		return model.FormatError("decrypted payload is neither flac nor mp3")
	}

	out, err := item.OutputPath(m.settings.OutputDir, m.settings.FileNameFormat, meta, codec.Extension())
	if err != nil {
		return err
	}
	if !m.settings.Overwrite {
		exists, err := ioutils.Exists(out)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("%w: %s", model.ErrExists, out)
		}
	}

	rest, err := io.ReadAll(payload)
	if err != nil {
		return fmt.Errorf("read %s: %w", item.Name, err)
	}
	data := make([]byte, 0, n+len(rest))
	data = append(data, head[:n]...)
	data = append(data, rest...)

	if meta != nil {
		m.prepareCover(ctx, item, meta)
		tagged, err := m.tagger.Inject(data, codec, meta)
		if err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Writing %s without tags: %v", item.Name, err), Level: LevelWarning, Item: item, Err: err})
		} else {
			data = tagged
		}
	}

	if err := ioutils.EnsureDir(filepath.Dir(out)); err != nil {
		return err
	}
	if err := ioutils.WriteFile(out, data, m.settings.Overwrite); err != nil {
		return err
	}

	entry := audio.Entry{Path: out}
	if meta != nil {
		entry.Title = meta.Title
		entry.Artist = meta.ArtistNames()
		entry.Duration = meta.Duration
	}
	m.mu.Lock()
	m.written = append(m.written, entry)
	m.mu.Unlock()

	m.progress(ProgressEvent{Message: fmt.Sprintf("Converted %s -> %s", item.Name, out), Level: LevelSuccess, Item: item})
	if m.settings.Verbose {
		m.probe(item, out)
	}
	return nil
}

// openDecoder wraps r in the decoder for the item's container. Metadata is
// only ever returned for header-tagged containers.
func (m *Manager) openDecoder(item *model.WorkItem, r io.Reader) (io.Reader, *model.TrackMetadata, error) {
	switch item.Kind {
	case format.KindNCM:
		dec, err := ncm.NewDecoder(r)
		if err != nil {
			return nil, nil, err
		}
		meta, err := dec.Metadata()
		if err != nil {
			if m.settings.WarnMetadataErrors() {
				m.progress(ProgressEvent{Message: fmt.Sprintf("Ignoring metadata of %s: %v", item.Name, err), Level: LevelWarning, Item: item, Err: err})
			}
			meta = nil
		}
		return dec, meta, nil
	case format.KindQMC:
		return qmc.NewDecoder(r), nil, nil
	default:
		return nil, nil, model.FormatError("unrecognized container")
	}
}

// prepareCover normalizes the embedded cover in place, dropping it when it
// cannot be decoded.
func (m *Manager) prepareCover(ctx context.Context, item *model.WorkItem, meta *model.TrackMetadata) {
	if !m.settings.EmbedCoverArt || len(meta.Cover) == 0 {
		return
	}

	cover, mime, err := m.imageService.PrepareCover(ctx, meta.Cover, m.settings.ToCoverOptions())
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("Dropping cover of %s: %v", item.Name, err), Level: LevelVerbose, Item: item, Err: err})
		meta.Cover = nil
		meta.CoverMIME = ""
		return
	}
	meta.Cover = cover
	meta.CoverMIME = mime
}

// probe reads the written tags back for verbose output.
func (m *Manager) probe(item *model.WorkItem, path string) {
	f, err := os.Open(path)
	if err != nil {
		return
	}
	defer f.Close()

	summary, err := audio.Probe(f)
	if err != nil {
		m.progress(ProgressEvent{Message: fmt.Sprintf("%s has no readable tags", filepath.Base(path)), Level: LevelVerbose, Item: item})
		return
	}
	m.progress(ProgressEvent{
		Message: fmt.Sprintf("%s: %q by %q, album %q, cover %v", filepath.Base(path), summary.Title, summary.Artist, summary.Album, summary.HasCover),
		Level:   LevelVerbose,
		Item:    item,
	})
}
