// Package ioutils provides the file system and image helpers around the
// dump pipeline.
//
// This package contains functions for:
//   - Expanding command-line targets (files, globs, directories)
//   - Writing output files without clobbering existing ones
//   - Directory creation
//   - Cover art normalization
//
// # Targets
//
//	paths, err := ioutils.ExpandTargets([]string{"~/Music/*.ncm", "/downloads"}, false)
//	// Directories contribute their direct children; with recursive set,
//	// files up to eight levels deep. Duplicates are dropped.
//
// # Writing Output
//
//	err := ioutils.WriteFile("/music/song.flac", data, false)
//	if errors.Is(err, model.ErrExists) {
//	    // the existing file was left untouched
//	}
//
// # Image Processing
//
// The ImageService handles cover art manipulation:
//
//	svc := ioutils.NewImageService()
//
//	// Resize to fit within 500x500 and re-encode as JPEG when needed
//	cover, mime, _ := svc.PrepareCover(ctx, imageData, ioutils.CoverOptions{
//	    Resize:  true,
//	    MaxSize: 500,
//	})
package ioutils
