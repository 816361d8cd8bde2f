// Package ncm decodes the header-tagged encrypted container.
//
// # Layout
//
// A container is read strictly in order:
//
//  1. 8-byte magic "CTENFDAM" and a 2-byte gap
//  2. key block: uint32 LE length, bytes masked with 0x64, AES-128-ECB
//     encrypted, plaintext "neteasecloudmusic" followed by the stream key
//  3. metadata block: uint32 LE length (0 = none), bytes masked with 0x63,
//     "163 key(Don't modify):" + base64(AES-128-ECB("music:" + JSON))
//  4. 9 bytes of CRC and reserved space
//  5. cover block: uint32 LE length (0 = none) followed by image bytes
//  6. audio payload, decrypted with a KeySchedule derived from the stream key
//
// # Usage
//
//	d, err := ncm.NewDecoder(f)
//	if err != nil {
//	    // errors.Is(err, model.ErrFormat) for structural problems
//	}
//	meta, err := d.Metadata() // non-fatal: errors.Is(err, model.ErrMetadata)
//	audio, err := io.ReadAll(d)
//
// A Decoder owns its KeySchedule and read offset; use one per file.
package ncm
