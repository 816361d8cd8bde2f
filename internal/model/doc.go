// Package model defines the data shared by the decoders, the tag injector
// and the dump pipeline.
//
// # WorkItem
//
// WorkItem describes one input file after it has been sniffed:
//
//	item, err := model.NewWorkItem(path, size, format.KindNCM)
//	target, err := item.OutputPath("", "", nil, "flac")
//	// target is next to the input, e.g. /music/song.flac
//
// # TrackMetadata
//
// TrackMetadata carries title, artists, album, duration and cover art
// recovered from a header-tagged container.
//
// # Errors
//
// Every failure maps to one ErrorKind through KindOf. The pipeline uses the
// kind, never the concrete error type, to decide whether to skip the file or
// abort the run.
package model
