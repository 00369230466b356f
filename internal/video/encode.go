package video

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"

	"golang.org/x/image/draw"
)

// DataURIPrefix starts every encoded frame sent to /predict_emotion.
const DataURIPrefix = "data:image/jpeg;base64,"

// Encoder draws a frame into a fixed raster and JPEG-encodes it.
type Encoder struct {
	Width   int
	Height  int
	Quality int
}

// Raster scales img to exactly Width x Height. Aspect ratio is not preserved,
// matching how a fixed-size capture canvas is filled.
func (e Encoder) Raster(img image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, e.Width, e.Height))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Over, nil)
	return dst
}

// Encode returns the JPEG bytes of the rastered frame.
func (e Encoder) Encode(img image.Image) ([]byte, error) {
	if img == nil {
		return nil, ErrNoFrame
	}
	if e.Width <= 0 || e.Height <= 0 {
		return nil, fmt.Errorf("invalid raster size %dx%d", e.Width, e.Height)
	}
	q := e.Quality
	if q <= 0 || q > 100 {
		q = DefaultProfile().Quality
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, e.Raster(img), &jpeg.Options{Quality: q}); err != nil {
		return nil, fmt.Errorf("encoding frame: %w", err)
	}
	return buf.Bytes(), nil
}

// DataURI encodes img as a base64 JPEG data URI.
func (e Encoder) DataURI(img image.Image) (string, error) {
	data, err := e.Encode(img)
	if err != nil {
		return "", err
	}
	return DataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}
