package service

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"

	_ "image/gif"
	_ "image/png"

	"golang.org/x/image/draw"
)

// Deterministic preprocessing bounds so engine token/latency budgets stay
// predictable regardless of what clients upload.
const (
	maxImageEdge = 768
	jpegQuality  = 70
)

// normalizeImage decodes an uploaded image, bounds its longest edge and
// re-encodes it as JPEG at a fixed quality.
func normalizeImage(data []byte) ([]byte, error) {
	src, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	bounds := src.Bounds()
	width, height := bounds.Dx(), bounds.Dy()

	if width > maxImageEdge || height > maxImageEdge {
		if width >= height {
			height = height * maxImageEdge / width
			width = maxImageEdge
		} else {
			width = width * maxImageEdge / height
			height = maxImageEdge
		}
		if width < 1 {
			width = 1
		}
		if height < 1 {
			height = 1
		}

		scaled := image.NewRGBA(image.Rect(0, 0, width, height))
		draw.CatmullRom.Scale(scaled, scaled.Bounds(), src, bounds, draw.Over, nil)
		src = scaled
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, src, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
