// Package format classifies encrypted containers by their leading magic
// bytes and recognizes the audio codec hidden inside a decrypted payload.
//
// Sniffing is a pure function of the first bytes of a stream:
//
//	head := make([]byte, format.HeaderSize)
//	n, _ := io.ReadFull(f, head)
//	switch format.Sniff(head[:n]) {
//	case format.KindNCM:
//	    // header-tagged container
//	case format.KindQMC:
//	    // offset-keyed stream cipher
//	default:
//	    // unrecognized
//	}
package format

import "bytes"

// HeaderSize is the number of leading bytes needed to classify a container.
const HeaderSize = 8

// Kind identifies an encrypted container format.
type Kind int

const (
	// KindUnknown is any stream that matches none of the known magics.
	KindUnknown Kind = iota

	// KindNCM is the header-tagged container carrying an embedded key,
	// metadata and cover image ahead of the encrypted audio.
	KindNCM

	// KindQMC is the raw stream container keyed only by byte offset.
	KindQMC
)

// String returns a short lowercase name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNCM:
		return "ncm"
	case KindQMC:
		return "qmc"
	default:
		return "unknown"
	}
}

var (
	// ncmMagic is "CTENFDAM".
	ncmMagic = []byte{0x43, 0x54, 0x45, 0x4E, 0x46, 0x44, 0x41, 0x4D}

	// qmcFLACMagic decrypts to "fLaC" at offset 0.
	qmcFLACMagic = []byte{0xA5, 0x06, 0xB7, 0x89}

	// qmcMP3Magic decrypts to "ID3" at offset 0.
	qmcMP3Magic = []byte{0x8A, 0x0E, 0xE5}
)

// NCMMagic returns a copy of the 8-byte header-tagged container magic.
func NCMMagic() []byte {
	return append([]byte(nil), ncmMagic...)
}

// Sniff classifies a stream by its first HeaderSize bytes.
//
// Fewer than HeaderSize bytes always yields KindUnknown, even when the
// shorter prefix would match a stream-cipher magic.
func Sniff(head []byte) Kind {
	if len(head) < HeaderSize {
		return KindUnknown
	}
	switch {
	case bytes.Equal(head[:HeaderSize], ncmMagic):
		return KindNCM
	case bytes.HasPrefix(head, qmcFLACMagic), bytes.HasPrefix(head, qmcMP3Magic):
		return KindQMC
	default:
		return KindUnknown
	}
}

// Codec is the audio codec revealed by a decrypted payload.
type Codec int

const (
	CodecUnknown Codec = iota
	CodecFLAC
	CodecMP3
)

// CodecMagicSize is how many decrypted bytes DetectCodec inspects.
const CodecMagicSize = 4

// DetectCodec checks the first CodecMagicSize plaintext bytes against the
// lossless ("fLaC") and lossy ("ID3") magics.
func DetectCodec(head []byte) (Codec, bool) {
	if len(head) < CodecMagicSize {
		return CodecUnknown, false
	}
	switch {
	case bytes.Equal(head[:4], []byte("fLaC")):
		return CodecFLAC, true
	case bytes.Equal(head[:3], []byte("ID3")):
		return CodecMP3, true
	default:
		return CodecUnknown, false
	}
}

// Extension returns the output file extension without the leading dot.
func (c Codec) Extension() string {
	switch c {
	case CodecFLAC:
		return "flac"
	case CodecMP3:
		return "mp3"
	default:
		return ""
	}
}

func (c Codec) String() string {
	if ext := c.Extension(); ext != "" {
		return ext
	}
	return "unknown"
}
