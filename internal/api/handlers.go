package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/youruser/ayahapp/internal/events"
	imagepkg "github.com/youruser/ayahapp/internal/image"
	"github.com/youruser/ayahapp/internal/quran"
	"github.com/youruser/ayahapp/internal/session"
)

// maxUpload bounds background uploads.
const maxUpload = 20 << 20

// Handler serves the JSON API and the HTML page over a session store.
type Handler struct {
	Store     *session.Store
	Hub       *events.Hub
	Catalog   session.Catalog
	Backend   session.Backend
	HTTP      *http.Client
	PublicURL string

	defaultBG []byte
}

func NewHandler(store *session.Store, hub *events.Hub, catalog session.Catalog, be session.Backend, client *http.Client, publicURL string) (*Handler, error) {
	bg, err := imagepkg.EncodePNG(imagepkg.DefaultBackground(1200, 800))
	if err != nil {
		return nil, err
	}
	return &Handler{
		Store:     store,
		Hub:       hub,
		Catalog:   catalog,
		Backend:   be,
		HTTP:      client,
		PublicURL: strings.TrimRight(publicURL, "/"),
		defaultBG: bg,
	}, nil
}

// health
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "sessions": h.Store.Len(), "events": h.Hub.Stats()})
}

func (h *Handler) defaultBackground(c *gin.Context) {
	c.Header("Cache-Control", "public, max-age=86400")
	c.Data(http.StatusOK, "image/png", h.defaultBG)
}

// chapters lists suras for the dropdown; q filters by name or number
func (h *Handler) chapters(c *gin.Context) {
	all, err := h.Catalog.Chapters(c.Request.Context())
	if err != nil {
		slog.Warn("chapters unavailable", "err", err)
		all = []quran.Chapter{}
	}
	out := quran.Filter(all, quran.FilterOptions{
		FreeWords:       c.Query("q"),
		RevelationPlace: c.Query("place"),
	})
	c.JSON(http.StatusOK, gin.H{"count": len(out), "chapters": out})
}

// gallery never fails; an unreachable backend is an empty list
func (h *Handler) gallery(c *gin.Context) {
	items, err := h.Backend.Metadata(c.Request.Context())
	if err != nil {
		slog.Warn("gallery unavailable", "err", err)
		c.JSON(http.StatusOK, []any{})
		return
	}
	c.JSON(http.StatusOK, items)
}

func (h *Handler) createSession(c *gin.Context) {
	s := h.Store.Create(c.Request.Context())
	c.JSON(http.StatusCreated, s.State())
}

func (h *Handler) getSession(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) putText(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req struct {
		Text string `json:"text"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	s.SetText(req.Text)
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) putChapter(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req struct {
		Chapter int `json:"chapter"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if err := s.SelectChapter(c.Request.Context(), req.Chapter); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) putVerse(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	var req struct {
		Verse int `json:"verse"`
	}
	if err := c.BindJSON(&req); err != nil {
		return
	}
	if err := s.SelectVerse(c.Request.Context(), req.Verse); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) postBackground(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	name, data, err := readUpload(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := s.SetBackground(name, data); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) postAyahImage(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := s.FetchAyahImage(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) postComposite(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	if err := s.GenerateComposite(c.Request.Context()); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) deleteAlert(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	s.DismissAlert()
	c.JSON(http.StatusOK, s.State())
}

func (h *Handler) getPreview(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.Preview())
}

// getComposite serves the composite bytes behind the session-local URL
func (h *Handler) getComposite(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	img, ok := s.Composite()
	if !ok {
		writeError(c, session.ErrNoImage)
		return
	}
	c.Header("Cache-Control", "private, no-store")
	c.Data(http.StatusOK, img.ContentType, img.Data)
}

// download streams whichever image the preview shows, as an attachment
func (h *Handler) download(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	p := s.Preview()
	if p.Download == nil {
		writeError(c, session.ErrNoImage)
		return
	}

	var data []byte
	contentType := "image/png"
	switch p.Download.Kind {
	case session.KindComposite:
		img, ok := s.Composite()
		if !ok {
			writeError(c, session.ErrNoImage)
			return
		}
		data, contentType = img.Data, img.ContentType
	case session.KindAyah:
		b, err := imagepkg.DownloadPNG(c.Request.Context(), h.HTTP, p.Download.URL)
		if err != nil {
			slog.Warn("ayah image download failed", "session", s.ID(), "url", p.Download.URL, "err", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "ayah image unavailable"})
			return
		}
		data = b
	}
	c.Header("Content-Disposition", `attachment; filename="`+p.Download.Filename+`"`)
	c.Data(http.StatusOK, contentType, data)
}

// downloadQR encodes the absolute download link
func (h *Handler) downloadQR(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	if s.Preview().Download == nil {
		writeError(c, session.ErrNoImage)
		return
	}
	size := imagepkg.DefaultQRSize
	if v, err := strconv.Atoi(c.Query("size")); err == nil {
		size = v
	}
	b, err := imagepkg.GenerateQRPNG(h.absURL(c, "/api/sessions/"+s.ID()+"/download"), size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

func (h *Handler) events(c *gin.Context) {
	s, ok := h.lookup(c)
	if !ok {
		return
	}
	h.Hub.ServeWS(c, s.ID(), s.State())
}

func (h *Handler) lookup(c *gin.Context) (*session.Session, bool) {
	s, err := h.Store.Get(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return s, true
}

func (h *Handler) absURL(c *gin.Context, path string) string {
	if h.PublicURL != "" {
		return h.PublicURL + path
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if p := c.GetHeader("X-Forwarded-Proto"); p != "" {
		scheme = p
	}
	return scheme + "://" + c.Request.Host + path
}

func readUpload(c *gin.Context) (string, []byte, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload)
	fh, err := c.FormFile("background")
	if err != nil {
		return "", nil, err
	}
	fp, err := fh.Open()
	if err != nil {
		return "", nil, err
	}
	defer fp.Close()
	data, err := io.ReadAll(fp)
	if err != nil {
		return "", nil, err
	}
	return fh.Filename, data, nil
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound), errors.Is(err, session.ErrNoImage):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrInvalidReference), errors.Is(err, session.ErrVerseOutOfRange):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrInvalidBackground):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrBusy):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case errors.Is(err, session.ErrGenerateFailed):
		c.JSON(http.StatusBadGateway, gin.H{"error": session.GenerateFailed})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}
