package model

import (
	"errors"
	"fmt"
)

// ErrorKind is the closed set of failure categories the pipeline knows how
// to route. Every error produced while dumping a file maps to exactly one
// kind through KindOf.
type ErrorKind int

const (
	// KindIO covers filesystem and stream failures, and anything unclassified.
	KindIO ErrorKind = iota

	// KindPath means an output directory or file name could not be computed.
	KindPath

	// KindFormat means a magic mismatch, either at sniff time or after decryption,
	// or a structural violation inside a container.
	KindFormat

	// KindMetadata means an embedded metadata block exists but cannot be parsed.
	KindMetadata

	// KindExists means the destination is present and overwrite was not requested.
	KindExists

	// KindConfig covers an empty target set, an out-of-range worker count
	// or an unknown option value.
	KindConfig

	// KindQueue means the producer or a worker could not use the shared queue.
	KindQueue
)

func (k ErrorKind) String() string {
	switch k {
	case KindPath:
		return "path"
	case KindFormat:
		return "format"
	case KindMetadata:
		return "metadata"
	case KindExists:
		return "exists"
	case KindConfig:
		return "config"
	case KindQueue:
		return "queue"
	default:
		return "io"
	}
}

var (
	ErrPath     = errors.New("can't resolve the path")
	ErrFormat   = errors.New("invalid file format")
	ErrMetadata = errors.New("can't parse embedded metadata")
	ErrExists   = errors.New("output file already exists")
	ErrNoTarget = errors.New("no target can be converted")
	ErrWorker   = errors.New("worker count must be between 1 and 8")
	ErrQueue    = errors.New("work queue failure")
	ErrConfig   = errors.New("invalid configuration")
)

// KindOf classifies err. Errors that wrap none of the sentinels are KindIO.
func KindOf(err error) ErrorKind {
	switch {
	case errors.Is(err, ErrNoTarget), errors.Is(err, ErrWorker), errors.Is(err, ErrConfig):
		return KindConfig
	case errors.Is(err, ErrQueue):
		return KindQueue
	case errors.Is(err, ErrExists):
		return KindExists
	case errors.Is(err, ErrFormat):
		return KindFormat
	case errors.Is(err, ErrMetadata):
		return KindMetadata
	case errors.Is(err, ErrPath):
		return KindPath
	default:
		return KindIO
	}
}

// FormatError wraps ErrFormat with a short reason.
func FormatError(reason string) error {
	return fmt.Errorf("%w: %s", ErrFormat, reason)
}
