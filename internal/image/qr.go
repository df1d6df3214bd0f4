package imagepkg

import (
	"bytes"
	"image/png"

	qrcode "github.com/skip2/go-qrcode"
)

const DefaultQRSize = 320

// GenerateQRPNG returns PNG bytes of a QR code for the given text, typically
// a download link so the preview can be picked up on a phone.
func GenerateQRPNG(text string, size int) ([]byte, error) {
	if size <= 0 || size > 2048 {
		size = DefaultQRSize
	}
	pngBytes, err := qrcode.Encode(text, qrcode.Medium, size)
	if err != nil {
		return nil, err
	}
	// validate png decode
	if _, err := png.DecodeConfig(bytes.NewReader(pngBytes)); err != nil {
		return nil, err
	}
	return pngBytes, nil
}
