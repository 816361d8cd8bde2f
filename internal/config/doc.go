// Package config provides configuration management for ncmdump.
//
// This package handles:
//   - Loading and saving settings from JSON files
//   - Default configuration values
//   - Validation of the worker count and target set before a run
//   - Conversion to the option structs of other packages
//
// # Default Settings
//
// Use DefaultSettings() to get sensible defaults:
//
//	settings := config.DefaultSettings()
//	// Outputs next to each input
//	// One worker
//	// Tags and cover art embedded, metadata problems reported as warnings
//
// # Loading from File
//
//	settings, err := config.Load("/path/to/config.json")
//	if err != nil {
//	    // Uses defaults if file doesn't exist
//	}
//
// # Validation
//
//	if err := settings.Validate(targets); err != nil {
//	    // errors.Is(err, model.ErrWorker) or errors.Is(err, model.ErrNoTarget)
//	}
//
// # Configuration Options
//
// Settings includes options for:
//   - Output directory, file naming and overwrite policy
//   - Worker count and recursive directory walking
//   - Metadata error reporting
//   - Cover art handling
//   - Playlist generation
//   - Watch mode
package config
