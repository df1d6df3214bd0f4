package imagepkg

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

var ErrNotImage = errors.New("not a decodable image")

// previews are bounded to this box so data URLs stay small
const (
	previewW = 960
	previewH = 960
)

// MaxPixels bounds the decoded size of an uploaded image.
const MaxPixels = 40_000_000

// DefaultBackground draws the placeholder shown before any upload: a diagonal
// gradient from #1e3a8a to #3730a3.
func DefaultBackground(w, h int) image.Image {
	from := color.NRGBA{R: 0x1e, G: 0x3a, B: 0x8a, A: 0xff}
	to := color.NRGBA{R: 0x37, G: 0x30, B: 0xa3, A: 0xff}
	canvas := imaging.New(w, h, from)
	span := float64(w + h - 2)
	if span <= 0 {
		return canvas
	}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			t := float64(x+y) / span
			canvas.SetNRGBA(x, y, color.NRGBA{
				R: lerp(from.R, to.R, t),
				G: lerp(from.G, to.G, t),
				B: lerp(from.B, to.B, t),
				A: 0xff,
			})
		}
	}
	return canvas
}

func lerp(a, b uint8, t float64) uint8 {
	return uint8(float64(a) + (float64(b)-float64(a))*t + 0.5)
}

// EncodePNG encodes img as PNG bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.PNG); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// PreviewDataURL decodes an uploaded background and returns a JPEG data URL
// scaled down to fit the preview box. EXIF orientation is applied.
func PreviewDataURL(data []byte) (string, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > MaxPixels {
		return "", fmt.Errorf("%w: %dx%d exceeds %d pixels", ErrNotImage, cfg.Width, cfg.Height, MaxPixels)
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	b := img.Bounds()
	if b.Dx() > previewW || b.Dy() > previewH {
		img = imaging.Fit(img, previewW, previewH, imaging.Lanczos)
	}
	buf := new(bytes.Buffer)
	if err := imaging.Encode(buf, img, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return "", err
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}
