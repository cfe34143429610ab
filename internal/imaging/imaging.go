// Package imaging normalizes employee photos before they are stored.
package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"io"
	"net/http"

	"golang.org/x/image/draw"
)

// Limits for stored photos.
const (
	MaxDimension = 512
	MaxUpload    = 5 << 20
	JPEGQuality  = 85
)

// Errors returned by Photo.
var (
	ErrUnsupported = errors.New("unsupported image format")
	ErrTooLarge    = errors.New("image too large")
)

var accepted = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
}

// Photo reads an uploaded image, checks its type by content, fits it into a
// MaxDimension square and re-encodes it as JPEG.
func Photo(r io.Reader) ([]byte, string, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxUpload+1))
	if err != nil {
		return nil, "", fmt.Errorf("reading photo: %w", err)
	}
	if len(data) > MaxUpload {
		return nil, "", ErrTooLarge
	}

	if mime := http.DetectContentType(data); !accepted[mime] {
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupported, mime)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("decoding photo: %w", err)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, fit(img, MaxDimension), &jpeg.Options{Quality: JPEGQuality}); err != nil {
		return nil, "", fmt.Errorf("encoding photo: %w", err)
	}
	return buf.Bytes(), "image/jpeg", nil
}

// fit scales img down so that neither side exceeds max, keeping the aspect
// ratio. Smaller images are returned unchanged.
func fit(img image.Image, max int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= max && h <= max {
		return img
	}

	if w > h {
		w, h = max, h*max/w
	} else {
		w, h = w*max/h, max
	}
	w, h = atLeastOne(w), atLeastOne(h)

	dst := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Over, nil)
	return dst
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
