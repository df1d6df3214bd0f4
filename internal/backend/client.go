package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strconv"
	"time"

	"golang.org/x/time/rate"

	"github.com/youruser/ayahapp/internal/reference"
	"github.com/youruser/ayahapp/internal/util"
)

const (
	DefaultBaseURL     = "http://localhost:3000/api"
	DefaultScaleFactor = 0.7
)

var ErrGenerate = errors.New("failed to generate image")

// File is an uploaded background passed through to the generator.
type File struct {
	Name string
	Data []byte
}

// Image is a generated composite as returned by the backend.
type Image struct {
	Data        []byte
	ContentType string
}

// Client talks to the image-generation API.
type Client struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
}

type Options struct {
	BaseURL    string
	HTTPClient *http.Client
	// Limiter throttles GenerateComposite across all callers. nil means unlimited.
	Limiter *rate.Limiter
}

func NewClient(opt Options) *Client {
	if opt.BaseURL == "" {
		opt.BaseURL = DefaultBaseURL
	}
	if opt.HTTPClient == nil {
		opt.HTTPClient = util.NewClient(60 * time.Second)
	}
	return &Client{baseURL: opt.BaseURL, http: opt.HTTPClient, limiter: opt.Limiter}
}

func (c *Client) BaseURL() string { return c.baseURL }

// AyahImageURL builds the image URL for one ayah. Nothing is fetched.
func (c *Client) AyahImageURL(ref reference.Reference) string {
	return c.baseURL + "/ayah-image?sura=" + strconv.Itoa(ref.Sura) + "&ayah=" + strconv.Itoa(ref.Ayah)
}

// SurahImageURL builds the image URL for a whole sura.
func (c *Client) SurahImageURL(sura int) string {
	return c.baseURL + "/surah-image?sura=" + strconv.Itoa(sura)
}

// Metadata returns the gallery entries as raw JSON objects.
func (c *Client) Metadata(ctx context.Context) ([]json.RawMessage, error) {
	var items []json.RawMessage
	if err := util.GetJSON(ctx, c.http, c.baseURL+"/metadata", &items); err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	if items == nil {
		items = []json.RawMessage{}
	}
	return items, nil
}

// GenerateComposite posts the reference and optional background and returns
// the composite bytes. Any transport error or non-2xx status wraps ErrGenerate.
func (c *Client) GenerateComposite(ctx context.Context, ref reference.Reference, bg *File, scale float64) (*Image, error) {
	if scale <= 0 {
		scale = DefaultScaleFactor
	}
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrGenerate, err)
		}
	}

	body, contentType, err := encodeForm(ref, bg, scale)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/generate-image", body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGenerate, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %d", ErrGenerate, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrGenerate, err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = http.DetectContentType(data)
	}
	return &Image{Data: data, ContentType: ct}, nil
}

func encodeForm(ref reference.Reference, bg *File, scale float64) (*bytes.Buffer, string, error) {
	buf := new(bytes.Buffer)
	w := multipart.NewWriter(buf)
	fields := [][2]string{
		{"sura", strconv.Itoa(ref.Sura)},
		{"ayah", strconv.Itoa(ref.Ayah)},
		{"scaleFactor", strconv.FormatFloat(scale, 'f', -1, 64)},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}
	if bg != nil && len(bg.Data) > 0 {
		name := bg.Name
		if name == "" {
			name = "background"
		}
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="background"; filename=%q`, name))
		h.Set("Content-Type", http.DetectContentType(bg.Data))
		part, err := w.CreatePart(h)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(bg.Data); err != nil {
			return nil, "", err
		}
	}
	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}
