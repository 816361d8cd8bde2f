// Package audio writes recovered metadata into decoded audio and reads it
// back.
//
// # Tag Injection
//
// The Tagger frames a decrypted payload with tags matching its codec:
//
//	tagger := audio.NewTagger(audio.DefaultTagConfig())
//	out, err := tagger.Inject(payload, format.CodecMP3, meta)
//
// MP3 payloads get an ID3v2.4 tag in front of the audio frames (replacing
// any tag already there). FLAC payloads get a VORBIS_COMMENT block and a
// PICTURE block. Audio bytes are never modified. A nil meta returns the
// payload unchanged.
//
// # Probing
//
// Probe reads tags back from any supported file:
//
//	summary, err := audio.Probe(bytes.NewReader(out))
//	fmt.Println(summary.Title, summary.Artist)
//
// # Playlists
//
// PlaylistCreator renders M3U or PLS playlists for a set of recovered files.
package audio
