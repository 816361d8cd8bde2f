package ioutils

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/jpeg"
	_ "image/png" // PNG decoder registration

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // WebP decoder registration
)

// CoverOptions controls how embedded cover art is normalized.
type CoverOptions struct {
	// Resize shrinks covers larger than MaxSize on either edge.
	Resize bool

	// MaxSize is the maximum width and height in pixels when Resize is set.
	MaxSize int

	// ToJPEG re-encodes PNG covers as JPEG. WebP covers are always converted,
	// since neither tag format embeds them reliably.
	ToJPEG bool
}

var errUnknownImage = errors.New("unrecognized cover image")

// ImageService provides image processing operations for cover art.
//
// ImageService is used to:
//   - Identify the cover's MIME type from its content
//   - Resize covers to fit maximum dimensions before embedding
//   - Convert covers to JPEG format (for better compatibility)
//
// Example usage:
//
//	svc := NewImageService()
//	cover, mime, err := svc.PrepareCover(ctx, meta.Cover, CoverOptions{ToJPEG: true})
type ImageService struct{}

// NewImageService creates a new ImageService.
func NewImageService() *ImageService {
	return &ImageService{}
}

// DetectMIME returns "image/jpeg", "image/png" or "image/webp" for data,
// or an empty string when no registered decoder recognizes it.
func (s *ImageService) DetectMIME(data []byte) string {
	_, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return ""
	}
	return "image/" + name
}

// PrepareCover applies opts to a cover image and returns the bytes to embed
// together with their MIME type.
//
// Covers that need no change are returned as is.
func (s *ImageService) PrepareCover(ctx context.Context, data []byte, opts CoverOptions) ([]byte, string, error) {
	cfg, name, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, "", errUnknownImage
	}

	if opts.Resize && opts.MaxSize > 0 && (cfg.Width > opts.MaxSize || cfg.Height > opts.MaxSize) {
		resized, err := s.ResizeImage(ctx, data, opts.MaxSize, opts.MaxSize)
		if err != nil {
			return nil, "", err
		}
		return resized, "image/jpeg", nil
	}

	if name == "webp" || (opts.ToJPEG && name != "jpeg") {
		converted, err := s.ConvertToJPEG(ctx, data)
		if err != nil {
			return nil, "", err
		}
		return converted, "image/jpeg", nil
	}

	return data, "image/" + name, nil
}

// ResizeImage resizes an image to fit within the specified maximum dimensions.
//
// The aspect ratio is preserved. If the image is already smaller than the
// maximum dimensions, it will still be processed (re-encoded as JPEG).
//
// Returns the resized image as JPEG-encoded bytes.
//
// The Catmull-Rom algorithm is used for high-quality resizing.
//
// Example:
//
//	// Resize to fit within 1000x1000, maintaining aspect ratio
//	resized, err := svc.ResizeImage(ctx, imageData, 1000, 1000)
//	// A 1500x1000 image becomes 1000x666
//	// A 800x600 image remains 800x600 (but re-encoded)
func (s *ImageService) ResizeImage(ctx context.Context, data []byte, maxWidth, maxHeight int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width > maxWidth || height > maxHeight {
		ratio := float64(width) / float64(height)
		if float64(maxWidth)/float64(maxHeight) > ratio {
			// Height is the limiting factor
			width = max(1, int(float64(maxHeight)*ratio))
			height = maxHeight
		} else {
			// Width is the limiting factor
			height = max(1, int(float64(maxWidth)/ratio))
			width = maxWidth
		}
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, bounds, draw.Over, nil)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, dst, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

// ConvertToJPEG converts an image to JPEG format with 90% quality.
//
// If the input is already JPEG, it will be re-encoded.
func (s *ImageService) ConvertToJPEG(ctx context.Context, data []byte) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
