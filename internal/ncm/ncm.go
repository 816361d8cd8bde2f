package ncm

import (
	"bytes"
	"crypto/aes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/handiism/ncmdump/internal/format"
	"github.com/handiism/ncmdump/internal/model"
)

const (
	keyMask  = 0x64
	metaMask = 0x63

	magicGap = 2
	crcGap   = 9

	maxKeyBlock   = 1 << 16
	maxMetaBlock  = 1 << 24
	maxCoverBlock = 1 << 26
)

var (
	coreKey = []byte{0x68, 0x7A, 0x48, 0x52, 0x41, 0x6D, 0x73, 0x6F, 0x35, 0x6B, 0x49, 0x6E, 0x62, 0x61, 0x78, 0x57}
	metaKey = []byte{0x23, 0x31, 0x34, 0x6C, 0x6A, 0x6B, 0x5F, 0x21, 0x5C, 0x5D, 0x26, 0x30, 0x55, 0x3C, 0x27, 0x28}

	keyPrefix  = []byte("neteasecloudmusic")
	metaPrefix = []byte("163 key(Don't modify):")
)

// Decoder reads decrypted audio from a header-tagged container.
type Decoder struct {
	r        io.Reader
	schedule *KeySchedule
	offset   int64

	meta    *model.TrackMetadata
	metaErr error
	cover   []byte
}

// NewDecoder parses the container framing from r and leaves it positioned at
// the start of the encrypted audio. Any structural violation is returned as
// an error wrapping model.ErrFormat; a metadata block that is present but
// unreadable is not an error here and is reported by Metadata instead.
func NewDecoder(r io.Reader) (*Decoder, error) {
	d := &Decoder{r: r}

	magic := make([]byte, format.HeaderSize+magicGap)
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, framingError("magic", err)
	}
	if format.Sniff(magic[:format.HeaderSize]) != format.KindNCM {
		return nil, model.FormatError("container magic mismatch")
	}

	key, err := d.readKey()
	if err != nil {
		return nil, err
	}
	d.schedule = NewKeySchedule(key)

	rawMeta, err := readBlock(r, "metadata block", maxMetaBlock)
	if err != nil {
		return nil, err
	}
	if len(rawMeta) > 0 {
		d.meta, d.metaErr = parseMetadata(rawMeta)
	}

	if _, err := io.CopyN(io.Discard, r, crcGap); err != nil {
		return nil, framingError("crc gap", err)
	}

	cover, err := readBlock(r, "cover block", maxCoverBlock)
	if err != nil {
		return nil, err
	}
	if len(cover) > 0 {
		d.cover = cover
		if d.meta != nil {
			d.meta.Cover = cover
		}
	}

	return d, nil
}

// readKey recovers the stream key from the key block.
func (d *Decoder) readKey() ([]byte, error) {
	block, err := readBlock(d.r, "key block", maxKeyBlock)
	if err != nil {
		return nil, err
	}
	if len(block) == 0 {
		return nil, model.FormatError("empty key block")
	}
	for i := range block {
		block[i] ^= keyMask
	}

	plain, err := decryptECB(coreKey, block)
	if err != nil {
		return nil, model.FormatError("key block: " + err.Error())
	}
	if !bytes.HasPrefix(plain, keyPrefix) || len(plain) == len(keyPrefix) {
		return nil, model.FormatError("key block has no stream key")
	}
	return plain[len(keyPrefix):], nil
}

// Read implements io.Reader, decrypting audio bytes in place.
func (d *Decoder) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if n > 0 {
		d.schedule.Apply(d.offset, p[:n])
		d.offset += int64(n)
	}
	return n, err
}

// Metadata returns the parsed track metadata. It returns (nil, nil) when the
// container has no metadata block and an error wrapping model.ErrMetadata
// when the block could not be decrypted or parsed.
func (d *Decoder) Metadata() (*model.TrackMetadata, error) {
	return d.meta, d.metaErr
}

// Cover returns the embedded cover image, or nil.
func (d *Decoder) Cover() []byte {
	return d.cover
}

// readBlock reads a uint32 little-endian length followed by that many bytes.
func readBlock(r io.Reader, what string, limit uint32) ([]byte, error) {
	var size uint32
	if err := binary.Read(r, binary.LittleEndian, &size); err != nil {
		return nil, framingError(what+" length", err)
	}
	if size == 0 {
		return nil, nil
	}
	if size > limit {
		return nil, model.FormatError(fmt.Sprintf("%s length %d exceeds %d", what, size, limit))
	}

	data, err := io.ReadAll(io.LimitReader(r, int64(size)))
	if err != nil {
		return nil, err
	}
	if len(data) != int(size) {
		return nil, model.FormatError(fmt.Sprintf("truncated %s: %d of %d bytes", what, len(data), size))
	}
	return data, nil
}

// framingError turns short reads into format errors and passes other
// I/O errors through.
func framingError(what string, err error) error {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return model.FormatError("truncated " + what)
	}
	return fmt.Errorf("read %s: %w", what, err)
}

// decryptECB decrypts AES-128-ECB data and strips PKCS#7 padding.
func decryptECB(key, data []byte) ([]byte, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	size := block.BlockSize()
	if len(data) == 0 || len(data)%size != 0 {
		return nil, fmt.Errorf("length %d is not a multiple of %d", len(data), size)
	}

	out := make([]byte, len(data))
	for i := 0; i < len(data); i += size {
		block.Decrypt(out[i:i+size], data[i:i+size])
	}

	pad := int(out[len(out)-1])
	if pad == 0 || pad > size {
		return nil, errors.New("bad padding")
	}
	for _, b := range out[len(out)-pad:] {
		if int(b) != pad {
			return nil, errors.New("bad padding")
		}
	}
	return out[:len(out)-pad], nil
}
