package api

import (
	"bytes"
	"encoding/json"
	"image/color"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/youruser/ayahapp/internal/backend"
	"github.com/youruser/ayahapp/internal/events"
	"github.com/youruser/ayahapp/internal/quran"
	"github.com/youruser/ayahapp/internal/session"
	"github.com/youruser/ayahapp/internal/util"
)

type upstream struct {
	mu          sync.Mutex
	generate    []url.Values
	failCompose bool
	failMeta    bool
	// hold parks generate-image requests until it is closed
	hold chan struct{}
}

func (u *upstream) generateCalls() []url.Values {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]url.Values(nil), u.generate...)
}

func (u *upstream) handler(t *testing.T) http.Handler {
	t.Helper()
	png, err := encodeTestPNG()
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/metadata", func(w http.ResponseWriter, r *http.Request) {
		u.mu.Lock()
		fail := u.failMeta
		u.mu.Unlock()
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(`[{"sura":2,"ayah":255,"file":"2_255.png"}]`))
	})
	mux.HandleFunc("/api/ayah-image", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})
	mux.HandleFunc("/api/generate-image", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(10 << 20); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		u.mu.Lock()
		u.generate = append(u.generate, url.Values(r.MultipartForm.Value))
		fail, hold := u.failCompose, u.hold
		u.mu.Unlock()
		if hold != nil {
			<-hold
		}
		if fail {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	})
	mux.HandleFunc("/v4/chapters", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"chapters":[
			{"id":1,"name_simple":"Al-Fatihah","name_arabic":"الفاتحة","verses_count":7,"revelation_place":"makkah","translated_name":{"name":"The Opener"}},
			{"id":2,"name_simple":"Al-Baqarah","name_arabic":"البقرة","verses_count":286,"revelation_place":"madinah","translated_name":{"name":"The Cow"}}]}`))
	})
	mux.HandleFunc("/v4/quran/verses/uthmani", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"verses":[{"text_uthmani":"ٱللَّهُ لَآ إِلَٰهَ إِلَّا هُوَ"}]}`))
	})
	return mux
}

func encodeTestPNG() ([]byte, error) {
	var buf bytes.Buffer
	err := imaging.Encode(&buf, imaging.New(8, 8, color.White), imaging.PNG)
	return buf.Bytes(), err
}

type testEnv struct {
	router *gin.Engine
	up     *upstream
	store  *session.Store
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	up := &upstream{}
	srv := httptest.NewServer(up.handler(t))
	t.Cleanup(srv.Close)

	client := util.NewClient(5 * time.Second)
	be := backend.NewClient(backend.Options{BaseURL: srv.URL + "/api", HTTPClient: client})
	catalog := quran.NewClient(quran.Options{BaseURL: srv.URL + "/v4", HTTPClient: client})
	hub := events.NewHub()
	store := session.NewStore(session.Deps{
		Backend:           be,
		Catalog:           catalog,
		ScaleFactor:       0.7,
		DefaultBackground: "/static/default-bg.png",
		OnChange:          func(st session.State) { hub.Publish(st.ID, st) },
	}, time.Hour)

	h, err := NewHandler(store, hub, catalog, be, client, "")
	require.NoError(t, err)
	r := gin.New()
	require.NoError(t, RegisterRoutes(r, h))
	return &testEnv{router: r, up: up, store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeState(t *testing.T, w *httptest.ResponseRecorder) session.State {
	t.Helper()
	var st session.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &st))
	return st
}

func (e *testEnv) newSession(t *testing.T) session.State {
	t.Helper()
	w := e.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	return decodeState(t, w)
}

func TestHealthAndChapters(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"ok"`)

	w = e.do(t, http.MethodGet, "/api/chapters?q=cow", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count    int             `json:"count"`
		Chapters []quran.Chapter `json:"chapters"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	require.Equal(t, 2, resp.Chapters[0].ID)

	w = e.do(t, http.MethodGet, "/static/default-bg.png", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestGalleryDegradesToEmpty(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/api/gallery", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[{"sura":2,"ayah":255,"file":"2_255.png"}]`, w.Body.String())

	e.up.mu.Lock()
	e.up.failMeta = true
	e.up.mu.Unlock()
	w = e.do(t, http.MethodGet, "/api/gallery", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `[]`, w.Body.String())

	st := e.newSession(t)
	require.Empty(t, st.Gallery)
}

func TestCompositeFlow(t *testing.T) {
	e := newTestEnv(t)
	st := e.newSession(t)
	base := "/api/sessions/" + st.ID
	require.Equal(t, 2, st.ChapterCount)
	require.Len(t, st.Gallery, 1)
	require.Equal(t, session.KindBackground, st.Preview.Kind)

	w := e.do(t, http.MethodPut, base+"/text", map[string]string{"text": "2:255"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Empty(t, decodeState(t, w).InputError)

	w = e.do(t, http.MethodPost, base+"/composite", nil)
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	require.False(t, st.Loading)
	require.Equal(t, session.KindComposite, st.Preview.Kind)
	require.Equal(t, session.CompositeFilename, st.Preview.Download.Filename)

	calls := e.up.generateCalls()
	require.Len(t, calls, 1)
	require.Equal(t, "2", calls[0].Get("sura"))
	require.Equal(t, "255", calls[0].Get("ayah"))
	require.Equal(t, "0.7", calls[0].Get("scaleFactor"))

	w = e.do(t, http.MethodGet, st.CompositeURL, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))

	w = e.do(t, http.MethodGet, base+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="composite-image.png"`, w.Header().Get("Content-Disposition"))

	w = e.do(t, http.MethodGet, base+"/download/qr", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "image/png", w.Header().Get("Content-Type"))
}

func TestInvalidReferenceRejected(t *testing.T) {
	e := newTestEnv(t)
	st := e.newSession(t)
	base := "/api/sessions/" + st.ID

	w := e.do(t, http.MethodPut, base+"/text", map[string]string{"text": "abc"})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "Please enter in the format: surah:ayah (e.g. 2:255)", decodeState(t, w).InputError)

	w = e.do(t, http.MethodPost, base+"/composite", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	w = e.do(t, http.MethodPost, base+"/ayah-image", nil)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	require.Empty(t, e.up.generateCalls())

	w = e.do(t, http.MethodGet, base+"/download", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestCompositeFailureReturnsAlert(t *testing.T) {
	e := newTestEnv(t)
	st := e.newSession(t)
	base := "/api/sessions/" + st.ID
	e.up.mu.Lock()
	e.up.failCompose = true
	e.up.mu.Unlock()

	e.do(t, http.MethodPut, base+"/text", map[string]string{"text": "2:255"})
	w := e.do(t, http.MethodPost, base+"/ayah-image", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, session.KindAyah, decodeState(t, w).Preview.Kind)

	w = e.do(t, http.MethodGet, base+"/download", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `attachment; filename="ayah-image.png"`, w.Header().Get("Content-Disposition"))

	w = e.do(t, http.MethodPost, base+"/composite", nil)
	require.Equal(t, http.StatusBadGateway, w.Code)
	require.JSONEq(t, `{"error":"Failed to generate image"}`, w.Body.String())

	w = e.do(t, http.MethodGet, base, nil)
	st = decodeState(t, w)
	require.Equal(t, session.GenerateFailed, st.Alert)
	require.False(t, st.Loading)
	require.Empty(t, st.AyahImageURL)

	w = e.do(t, http.MethodDelete, base+"/alert", nil)
	require.Empty(t, decodeState(t, w).Alert)
}

func TestBusyWhileGenerating(t *testing.T) {
	e := newTestEnv(t)
	st := e.newSession(t)
	base := "/api/sessions/" + st.ID
	hold := make(chan struct{})
	e.up.mu.Lock()
	e.up.hold = hold
	e.up.mu.Unlock()

	e.do(t, http.MethodPut, base+"/text", map[string]string{"text": "2:255"})

	first := make(chan int, 1)
	go func() {
		req := httptest.NewRequest(http.MethodPost, base+"/composite", nil)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		first <- w.Code
	}()

	s, err := e.store.Get(st.ID)
	require.NoError(t, err)
	require.Eventually(t, func() bool { return len(e.up.generateCalls()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.True(t, s.Loading())

	w := e.do(t, http.MethodPost, base+"/composite", nil)
	require.Equal(t, http.StatusConflict, w.Code)
	w = e.do(t, http.MethodPost, base+"/ayah-image", nil)
	require.Equal(t, http.StatusConflict, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookie, Value: st.ID})
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Contains(t, w.Body.String(), "Generating...")
	require.Contains(t, w.Body.String(), `<button type="submit" disabled>Show Ayah Image</button>`)

	close(hold)
	require.Equal(t, http.StatusOK, <-first)
	require.Len(t, e.up.generateCalls(), 1)
	require.False(t, s.Loading())
	require.Equal(t, session.KindComposite, s.Preview().Kind)
}

func TestDropdownSelection(t *testing.T) {
	e := newTestEnv(t)
	st := e.newSession(t)
	base := "/api/sessions/" + st.ID

	w := e.do(t, http.MethodPut, base+"/chapter", map[string]int{"chapter": 2})
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	require.Len(t, st.Verses, 286)
	require.Equal(t, "2:1", st.Text)

	w = e.do(t, http.MethodPut, base+"/verse", map[string]int{"verse": 255})
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	require.Equal(t, "2:255", st.Text)
	require.NotEmpty(t, st.VerseText)

	w = e.do(t, http.MethodPut, base+"/verse", map[string]int{"verse": 300})
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
}

func TestBackgroundUpload(t *testing.T) {
	e := newTestEnv(t)
	st := e.newSession(t)
	base := "/api/sessions/" + st.ID

	upload := func(name string, data []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("background", name)
		require.NoError(t, err)
		_, _ = fw.Write(data)
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, base+"/background", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		return w
	}

	png, err := encodeTestPNG()
	require.NoError(t, err)
	w := upload("sky.png", png)
	require.Equal(t, http.StatusOK, w.Code)
	st = decodeState(t, w)
	require.True(t, st.HasBackground)
	require.True(t, strings.HasPrefix(st.Preview.URL, "data:image/jpeg;base64,"))

	w = upload("notes.txt", []byte("hello"))
	require.Equal(t, http.StatusBadRequest, w.Code)

	e.do(t, http.MethodPut, base+"/text", map[string]string{"text": "1:1"})
	e.do(t, http.MethodPost, base+"/composite", nil)
	calls := e.up.generateCalls()
	require.Len(t, calls, 1)
}

func TestUnknownSession(t *testing.T) {
	e := newTestEnv(t)
	w := e.do(t, http.MethodGet, "/api/sessions/6ba7b810-9dad-11d1-80b4-00c04fd430c8", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	w = e.do(t, http.MethodGet, "/api/sessions/nope/preview", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
}

func TestPageFlow(t *testing.T) {
	e := newTestEnv(t)

	w := e.do(t, http.MethodGet, "/", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "Al-Baqarah")
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	cookie := cookies[0]
	require.Equal(t, sessionCookie, cookie.Name)

	post := func(path string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		return w
	}

	w = post("/ui/text", url.Values{"text": {"abc"}})
	require.Equal(t, http.StatusSeeOther, w.Code)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(cookie)
	w = httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	require.Contains(t, w.Body.String(), "Please enter in the format")

	post("/ui/text", url.Values{"text": {"2:255"}})
	post("/ui/generate", nil)

	s, err := e.store.Get(cookie.Value)
	require.NoError(t, err)
	require.Equal(t, session.KindComposite, s.Preview().Kind)
	require.Equal(t, 1, e.store.Len())
}
