package imageprep

import (
	"bytes"

	"github.com/disintegration/imaging"
)

// maxDimension bounds the longest edge sent to extraction backends; larger
// scans only add upload time without improving recognition.
const maxDimension = 2000

// Prepare normalises a scanned invoice for text extraction: grayscale,
// contrast boost, sharpening, slight brightness and gamma lift, and a bounded
// resize, re-encoded as JPEG. Payloads that cannot be decoded (for example
// WebP, which the extraction backends accept directly) are passed through
// untouched.
func Prepare(data []byte, mimeType string) ([]byte, string) {
	src, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, mimeType
	}

	img := imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustBrightness(img, 10)
	img = imaging.AdjustGamma(img, 1.2)

	if b := img.Bounds(); b.Dx() > maxDimension || b.Dy() > maxDimension {
		img = imaging.Fit(img, maxDimension, maxDimension, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(90)); err != nil {
		return data, mimeType
	}
	return buf.Bytes(), "image/jpeg"
}
