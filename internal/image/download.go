package imagepkg

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/disintegration/imaging"

	"github.com/youruser/ayahapp/internal/util"
)

// DownloadPNG fetches an image from url and returns it as PNG bytes,
// re-encoding when the source is some other format.
func DownloadPNG(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	body, contentType, err := util.GetBytes(ctx, client, url)
	if err != nil {
		return nil, err
	}
	if contentType == "image/png" || http.DetectContentType(body) == "image/png" {
		return body, nil
	}
	img, err := imaging.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	return EncodePNG(img)
}
