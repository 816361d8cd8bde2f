// Package ncmtest builds header-tagged containers for tests.
//
// The builder encrypts with its own copy of the container keys so that tests
// exercise the decoder against an independent encoder:
//
//	data := ncmtest.Build(ncmtest.Options{
//	    Key:   []byte("stream-key"),
//	    Meta:  map[string]any{"musicName": "Song"},
//	    Audio: flacBytes,
//	})
package ncmtest

import (
	"bytes"
	"crypto/aes"
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"github.com/handiism/ncmdump/internal/ncm"
)

var (
	coreKey = []byte("hzHRAmso5kInbaxW")
	metaKey = []byte(`#14ljk_!\]&0U<'(`)
)

// Options describes the container to build.
type Options struct {
	// Key is the stream key. Defaults to "123456789012345".
	Key []byte

	// Meta is marshaled to JSON and stored behind MetaPrefix. Ignored when
	// RawMeta is set. Nil means no metadata block.
	Meta any

	// MetaPrefix selects the metadata kind. Defaults to "music:".
	MetaPrefix string

	// RawMeta is stored as the metadata block verbatim (before masking),
	// for building unreadable metadata.
	RawMeta []byte

	// Cover is the embedded image, nil for none.
	Cover []byte

	// Audio is the plaintext payload.
	Audio []byte
}

// Build returns the encrypted container bytes.
func Build(opts Options) []byte {
	key := opts.Key
	if len(key) == 0 {
		key = []byte("123456789012345")
	}

	var buf bytes.Buffer
	buf.WriteString("CTENFDAM")
	buf.Write([]byte{0x01, 0x70})

	keyBlock := encryptECB(coreKey, append([]byte("neteasecloudmusic"), key...))
	writeBlock(&buf, mask(keyBlock, 0x64))

	switch {
	case opts.RawMeta != nil:
		writeBlock(&buf, mask(opts.RawMeta, 0x63))
	case opts.Meta != nil:
		doc, err := json.Marshal(opts.Meta)
		if err != nil {
			panic(err)
		}
		prefix := opts.MetaPrefix
		if prefix == "" {
			prefix = "music:"
		}
		encrypted := encryptECB(metaKey, append([]byte(prefix), doc...))
		block := "163 key(Don't modify):" + base64.StdEncoding.EncodeToString(encrypted)
		writeBlock(&buf, mask([]byte(block), 0x63))
	default:
		writeBlock(&buf, nil)
	}

	buf.Write(make([]byte, 9))
	writeBlock(&buf, opts.Cover)

	audio := append([]byte(nil), opts.Audio...)
	ncm.NewKeySchedule(key).Apply(0, audio)
	buf.Write(audio)

	return buf.Bytes()
}

func writeBlock(buf *bytes.Buffer, data []byte) {
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(data)))
	buf.Write(data)
}

func mask(data []byte, m byte) []byte {
	out := make([]byte, len(data))
	for i, b := range data {
		out[i] = b ^ m
	}
	return out
}

func encryptECB(key, plain []byte) []byte {
	block, err := aes.NewCipher(key)
	if err != nil {
		panic(err)
	}
	size := block.BlockSize()
	pad := size - len(plain)%size
	data := append(append([]byte(nil), plain...), bytes.Repeat([]byte{byte(pad)}, pad)...)

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += size {
		block.Encrypt(out[i:i+size], data[i:i+size])
	}
	return out
}
