package ncm

// KeySchedule is the 256-byte keystream derived once per file from the
// embedded stream key. The byte at audio position i is XORed with
// stream[i mod 256].
type KeySchedule struct {
	stream [256]byte
}

// NewKeySchedule runs the key-scheduling pass over key. key must not be empty.
func NewKeySchedule(key []byte) *KeySchedule {
	var box [256]byte
	for i := range box {
		box[i] = byte(i)
	}

	var last byte
	for i := 0; i < 256; i++ {
		swap := box[i]
		c := swap + last + key[i%len(key)]
		box[i] = box[c]
		box[c] = swap
		last = c
	}

	s := &KeySchedule{}
	for i := 0; i < 256; i++ {
		j := byte(i + 1)
		s.stream[i] = box[box[j]+box[box[j]+j]]
	}
	return s
}

// Apply XORs buf in place with the keystream for audio positions starting at
// offset. It is its own inverse.
func (s *KeySchedule) Apply(offset int64, buf []byte) {
	for i := range buf {
		buf[i] ^= s.stream[(offset+int64(i))&0xFF]
	}
}
