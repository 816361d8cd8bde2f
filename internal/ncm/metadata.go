package ncm

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/handiism/ncmdump/internal/model"
)

var (
	musicPrefix = []byte("music:")
	djPrefix    = []byte("dj:")
)

// musicInfo mirrors the JSON document inside the metadata block.
type musicInfo struct {
	MusicID   flexID              `json:"musicId"`
	MusicName string              `json:"musicName"`
	Artist    [][]json.RawMessage `json:"artist"`
	Album     string              `json:"album"`
	AlbumID   flexID              `json:"albumId"`
	Bitrate   float64             `json:"bitrate"`
	Duration  float64             `json:"duration"`
	Format    string              `json:"format"`
}

// djInfo wraps a track broadcast as part of a radio program.
type djInfo struct {
	MainMusic musicInfo `json:"mainMusic"`
}

// flexID accepts identifiers encoded as JSON numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*f = ""
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*f = flexID(n.String())
	}
	return nil
}

// parseMetadata unmasks, decrypts and decodes a raw metadata block.
func parseMetadata(raw []byte) (*model.TrackMetadata, error) {
	block := make([]byte, len(raw))
	for i, b := range raw {
		block[i] = b ^ metaMask
	}
	if !bytes.HasPrefix(block, metaPrefix) {
		return nil, fmt.Errorf("%w: missing block prefix", model.ErrMetadata)
	}

	encrypted, err := base64.StdEncoding.DecodeString(string(block[len(metaPrefix):]))
	if err != nil {
		return nil, fmt.Errorf("%w: base64: %v", model.ErrMetadata, err)
	}
	plain, err := decryptECB(metaKey, encrypted)
	if err != nil {
		return nil, fmt.Errorf("%w: decrypt: %v", model.ErrMetadata, err)
	}

	var info musicInfo
	switch {
	case bytes.HasPrefix(plain, musicPrefix):
		err = json.Unmarshal(plain[len(musicPrefix):], &info)
	case bytes.HasPrefix(plain, djPrefix):
		var dj djInfo
		err = json.Unmarshal(plain[len(djPrefix):], &dj)
		info = dj.MainMusic
	default:
		return nil, fmt.Errorf("%w: unknown metadata kind", model.ErrMetadata)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: json: %v", model.ErrMetadata, err)
	}

	return info.toModel()
}

func (m *musicInfo) toModel() (*model.TrackMetadata, error) {
	meta := &model.TrackMetadata{
		ID:       string(m.MusicID),
		Title:    m.MusicName,
		Album:    m.Album,
		AlbumID:  string(m.AlbumID),
		Duration: time.Duration(m.Duration) * time.Millisecond,
		Bitrate:  int(m.Bitrate),
		Format:   m.Format,
	}

	for i, pair := range m.Artist {
		if len(pair) == 0 {
			continue
		}
		var artist model.Artist
		if err := json.Unmarshal(pair[0], &artist.Name); err != nil {
			return nil, fmt.Errorf("%w: artist %d name: %v", model.ErrMetadata, i, err)
		}
		if len(pair) > 1 {
			var id flexID
			if err := json.Unmarshal(pair[1], &id); err != nil {
				return nil, fmt.Errorf("%w: artist %d id: %v", model.ErrMetadata, i, err)
			}
			artist.ID = string(id)
		}
		meta.Artists = append(meta.Artists, artist)
	}

	return meta, nil
}
