package audio

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/bogem/id3v2"
	"github.com/go-flac/flacpicture"
	"github.com/go-flac/flacvorbis"
	flac "github.com/go-flac/go-flac"
	"github.com/handiism/ncmdump/internal/format"
	ioutils "github.com/handiism/ncmdump/internal/io"
	"github.com/handiism/ncmdump/internal/model"
)

// fieldLength is the Vorbis comment carrying the track length in milliseconds.
const fieldLength = "LENGTH"

// TagConfig controls what the Tagger writes.
//
// Example:
//
//	cfg := &TagConfig{
//	    EmbedCover:      true, // attach the container's cover art
//	    ComputeDuration: true, // walk MP3 frames when metadata has no length
//	}
type TagConfig struct {
	// EmbedCover attaches cover art as a front-cover picture.
	EmbedCover bool

	// ComputeDuration measures MP3 audio when the metadata has no duration.
	ComputeDuration bool
}

// DefaultTagConfig returns the default tag configuration: cover art embedded,
// duration fallback enabled.
func DefaultTagConfig() *TagConfig {
	return &TagConfig{
		EmbedCover:      true,
		ComputeDuration: true,
	}
}

// Tagger embeds TrackMetadata into decoded payloads.
//
// Tagger is stateless and safe for concurrent use.
type Tagger struct {
	config *TagConfig
	images *ioutils.ImageService
}

// NewTagger creates a new Tagger with the given configuration.
//
// If config is nil, DefaultTagConfig() is used.
func NewTagger(config *TagConfig) *Tagger {
	if config == nil {
		config = DefaultTagConfig()
	}
	return &Tagger{config: config, images: ioutils.NewImageService()}
}

// Inject returns payload framed with tags built from meta.
//
// The codec must be the one detected from the payload's magic bytes. With a
// nil meta the payload is returned as is. The returned slice may alias
// payload.
func (t *Tagger) Inject(payload []byte, codec format.Codec, meta *model.TrackMetadata) ([]byte, error) {
	if meta == nil {
		return payload, nil
	}

	switch codec {
	case format.CodecMP3:
		return t.injectID3(payload, meta)
	case format.CodecFLAC:
		return t.injectFLAC(payload, meta)
	default:
		return nil, model.FormatError("no tag format for codec " + codec.String())
	}
}

// injectID3 replaces the payload's leading ID3v2 tag, keeping frames that
// the metadata does not cover.
func (t *Tagger) injectID3(payload []byte, meta *model.TrackMetadata) ([]byte, error) {
	tagLen := id3v2TagSize(payload)
	audio := payload[tagLen:]

	var tag *id3v2.Tag
	if tagLen > 0 {
		parsed, err := id3v2.ParseReader(bytes.NewReader(payload[:tagLen]), id3v2.Options{Parse: true})
		if err == nil {
			tag = parsed
		}
	}
	if tag == nil {
		tag = id3v2.NewEmptyTag()
	}
	tag.SetVersion(4)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)

	// Title (TIT2), Artist (TPE1), Album (TALB)
	if meta.Title != "" {
		tag.SetTitle(meta.Title)
	}
	if artists := meta.ArtistNames(); artists != "" {
		tag.SetArtist(artists)
	}
	if meta.Album != "" {
		tag.SetAlbum(meta.Album)
	}

	// Length (TLEN), in milliseconds
	duration := meta.Duration
	if duration <= 0 && t.config.ComputeDuration {
		if d, err := MP3Duration(bytes.NewReader(audio)); err == nil {
			duration = d
		}
	}
	if duration > 0 {
		tag.DeleteFrames("TLEN")
		tag.AddTextFrame("TLEN", id3v2.EncodingUTF8, strconv.FormatInt(duration.Milliseconds(), 10))
	}

	if t.config.EmbedCover && len(meta.Cover) > 0 {
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    t.coverMIME(meta),
			PictureType: id3v2.PTFrontCover,
			Description: "Cover",
			Picture:     meta.Cover,
		})
	}

	var buf bytes.Buffer
	buf.Grow(len(audio) + len(meta.Cover) + 1024)
	if _, err := tag.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write id3 tag: %w", err)
	}
	buf.Write(audio)
	return buf.Bytes(), nil
}

// injectFLAC sets Vorbis comments and the front-cover picture block.
func (t *Tagger) injectFLAC(payload []byte, meta *model.TrackMetadata) ([]byte, error) {
	f, err := flac.ParseBytes(bytes.NewReader(payload))
	if err != nil {
		return nil, model.FormatError("flac: " + err.Error())
	}

	comments := flacvorbis.New()
	commentIdx := -1
	for i, block := range f.Meta {
		if block.Type != flac.VorbisComment {
			continue
		}
		if existing, err := flacvorbis.ParseFromMetaDataBlock(*block); err == nil {
			comments = existing
		}
		commentIdx = i
		break
	}

	fields := map[string]string{
		flacvorbis.FIELD_TITLE:  meta.Title,
		flacvorbis.FIELD_ARTIST: meta.ArtistNames(),
		flacvorbis.FIELD_ALBUM:  meta.Album,
	}
	if meta.Duration > 0 {
		fields[fieldLength] = strconv.FormatInt(meta.Duration.Milliseconds(), 10)
	}
	comments.Comments = dropComments(comments.Comments, fields)
	for _, key := range []string{flacvorbis.FIELD_TITLE, flacvorbis.FIELD_ARTIST, flacvorbis.FIELD_ALBUM, fieldLength} {
		value := fields[key]
		if value == "" {
			continue
		}
		if err := comments.Add(key, value); err != nil {
			return nil, fmt.Errorf("add vorbis comment %s: %w", key, err)
		}
	}

	block := comments.Marshal()
	if commentIdx >= 0 {
		f.Meta[commentIdx] = &block
	} else {
		f.Meta = append(f.Meta, &block)
	}

	if t.config.EmbedCover && len(meta.Cover) > 0 {
		pic, err := flacpicture.NewFromImageData(flacpicture.PictureTypeFrontCover, "Cover", meta.Cover, t.coverMIME(meta))
		// An undecodable cover leaves the audio untouched and the text tags in place.
		if err == nil {
			f.Meta = dropFrontCovers(f.Meta)
			picBlock := pic.Marshal()
			f.Meta = append(f.Meta, &picBlock)
		}
	}

	return f.Marshal(), nil
}

// dropComments removes every comment whose key is set in fields.
func dropComments(comments []string, fields map[string]string) []string {
	kept := comments[:0]
	for _, c := range comments {
		key, _, _ := strings.Cut(c, "=")
		if v, ok := fields[strings.ToUpper(key)]; ok && v != "" {
			continue
		}
		kept = append(kept, c)
	}
	return kept
}

// dropFrontCovers removes existing front-cover picture blocks.
func dropFrontCovers(blocks []*flac.MetaDataBlock) []*flac.MetaDataBlock {
	kept := blocks[:0]
	for _, block := range blocks {
		if block.Type == flac.Picture {
			if pic, err := flacpicture.ParseFromMetaDataBlock(*block); err == nil && pic.PictureType == flacpicture.PictureTypeFrontCover {
				continue
			}
		}
		kept = append(kept, block)
	}
	return kept
}

// id3v2TagSize returns the length of a leading ID3v2 tag including header
// and footer. It returns 0 when payload does not start with a tag whose
// size is syncsafe and fits in payload; such bytes are kept as audio.
func id3v2TagSize(payload []byte) int {
	if len(payload) < 10 || string(payload[:3]) != "ID3" {
		return 0
	}
	size := 0
	for _, b := range payload[6:10] {
		if b&0x80 != 0 {
			return 0
		}
		size = size<<7 | int(b)
	}
	size += 10
	if payload[5]&0x10 != 0 {
		size += 10
	}
	if size > len(payload) {
		return 0
	}
	return size
}

// coverMIME returns the declared cover type or sniffs it.
func (t *Tagger) coverMIME(meta *model.TrackMetadata) string {
	if meta.CoverMIME != "" {
		return meta.CoverMIME
	}
	if mime := t.images.DetectMIME(meta.Cover); mime != "" {
		return mime
	}
	return "application/octet-stream"
}
