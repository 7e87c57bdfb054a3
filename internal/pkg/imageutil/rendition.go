package imageutil

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp" // register webp decoding
)

// DecodeImage decodes raw upload bytes into an image. JPEG, PNG, GIF, TIFF,
// BMP and WebP inputs are accepted. A failure here is a client-input problem,
// not a system fault.
func DecodeImage(data []byte) (image.Image, error) {
	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid image data: %w", err)
	}
	return img, nil
}

// GenerateRendition scales img to fit within boxWidth x boxHeight preserving
// aspect ratio (never upscaling, never cropping) and encodes it as JPEG at
// the given quality. It returns the encoded bytes and the actual output
// dimensions.
//
// Output bytes are deterministic for a fixed input, parameters and codec
// version; they are not stable across codec library versions.
func GenerateRendition(img image.Image, boxWidth, boxHeight, quality int) ([]byte, int, int, error) {
	if boxWidth <= 0 || boxHeight <= 0 {
		return nil, 0, 0, fmt.Errorf("invalid rendition box %dx%d", boxWidth, boxHeight)
	}

	fitted := imaging.Fit(img, boxWidth, boxHeight, imaging.Lanczos)
	bounds := fitted.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	// JPEG has no alpha; encoding the NRGBA result drops the channel, which
	// matches flattening to a 3-channel color model.
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, fitted, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, 0, 0, fmt.Errorf("failed to encode rendition: %w", err)
	}

	return buf.Bytes(), width, height, nil
}

// QualityMetric is bytes per pixel: a crude density measure used to rank
// presets when comparing an upload against the preset table.
func QualityMetric(width, height int, sizeBytes int64) float64 {
	pixels := width * height
	if pixels <= 0 {
		return 0
	}
	return float64(sizeBytes) / float64(pixels)
}
