package backend

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/youruser/ayahapp/internal/reference"
)

type recorded struct {
	fields     map[string]string
	background []byte
	filename   string
}

type fakeBackend struct {
	mu       sync.Mutex
	posts    []recorded
	status   int
	metadata string
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/metadata":
		if f.status != 0 && f.status != http.StatusOK {
			w.WriteHeader(f.status)
			return
		}
		_, _ = w.Write([]byte(f.metadata))
	case "/api/generate-image":
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		rec := recorded{fields: map[string]string{}}
		for k, v := range r.MultipartForm.Value {
			rec.fields[k] = v[0]
		}
		if fh, ok := r.MultipartForm.File["background"]; ok {
			fp, _ := fh[0].Open()
			rec.background, _ = io.ReadAll(fp)
			rec.filename = fh[0].Filename
			_ = fp.Close()
		}
		f.mu.Lock()
		f.posts = append(f.posts, rec)
		f.mu.Unlock()
		if f.status != 0 && f.status != http.StatusOK {
			w.WriteHeader(f.status)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG\r\n\x1a\ncomposite"))
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeBackend) Posts() []recorded {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recorded(nil), f.posts...)
}

func newTestClient(t *testing.T, fb *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(fb)
	t.Cleanup(srv.Close)
	return NewClient(Options{BaseURL: srv.URL + "/api"})
}

func TestURLs(t *testing.T) {
	t.Parallel()

	c := NewClient(Options{})
	require.Equal(t, "http://localhost:3000/api/ayah-image?sura=2&ayah=255", c.AyahImageURL(reference.Reference{Sura: 2, Ayah: 255}))
	require.Equal(t, "http://localhost:3000/api/surah-image?sura=36", c.SurahImageURL(36))
}

func TestGenerateComposite(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{}
	c := newTestClient(t, fb)

	img, err := c.GenerateComposite(context.Background(), reference.Reference{Sura: 2, Ayah: 255}, nil, DefaultScaleFactor)
	require.NoError(t, err)
	require.Equal(t, "image/png", img.ContentType)
	require.Contains(t, string(img.Data), "composite")

	posts := fb.Posts()
	require.Len(t, posts, 1)
	require.Equal(t, map[string]string{"sura": "2", "ayah": "255", "scaleFactor": "0.7"}, posts[0].fields)
	require.Nil(t, posts[0].background)
}

func TestGenerateCompositeWithBackground(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{}
	c := newTestClient(t, fb)

	bg := &File{Name: "sky.jpg", Data: []byte("\xff\xd8\xff\xe0fakejpeg")}
	_, err := c.GenerateComposite(context.Background(), reference.Reference{Sura: 1, Ayah: 1}, bg, 0)
	require.NoError(t, err)

	posts := fb.Posts()
	require.Len(t, posts, 1)
	require.Equal(t, "0.7", posts[0].fields["scaleFactor"])
	require.Equal(t, "sky.jpg", posts[0].filename)
	require.Equal(t, bg.Data, posts[0].background)
}

func TestGenerateCompositeFailure(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{status: http.StatusInternalServerError}
	c := newTestClient(t, fb)

	_, err := c.GenerateComposite(context.Background(), reference.Reference{Sura: 2, Ayah: 255}, nil, 0.7)
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrGenerate))

	dead := NewClient(Options{BaseURL: "http://127.0.0.1:1/api"})
	_, err = dead.GenerateComposite(context.Background(), reference.Reference{Sura: 2, Ayah: 255}, nil, 0.7)
	require.True(t, errors.Is(err, ErrGenerate))
}

func TestMetadata(t *testing.T) {
	t.Parallel()

	fb := &fakeBackend{metadata: `[{"sura":1,"ayah":1},{"sura":2,"ayah":255}]`}
	c := newTestClient(t, fb)
	items, err := c.Metadata(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.JSONEq(t, `{"sura":2,"ayah":255}`, string(items[1]))

	bad := newTestClient(t, &fakeBackend{status: http.StatusBadGateway})
	_, err = bad.Metadata(context.Background())
	require.Error(t, err)
}
