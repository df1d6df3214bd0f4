package api

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/youruser/ayahapp/internal/quran"
	"github.com/youruser/ayahapp/internal/session"
)

//go:embed templates/*.html
var templates embed.FS

const sessionCookie = "ayah_session"

type pageData struct {
	State    session.State
	Chapters []quran.Chapter
	Alert    string
	Upload   string
}

func (h *Handler) registerPage(r *gin.Engine) error {
	tmpl, err := template.New("").Funcs(template.FuncMap{
		"safeURL": func(s string) template.URL { return template.URL(s) },
	}).ParseFS(templates, "templates/*.html")
	if err != nil {
		return err
	}
	r.SetHTMLTemplate(tmpl)

	r.GET("/", h.page)
	ui := r.Group("/ui")
	{
		ui.POST("/text", h.uiText)
		ui.POST("/chapter", h.uiChapter)
		ui.POST("/verse", h.uiVerse)
		ui.POST("/background", h.uiBackground)
		ui.POST("/ayah", h.uiAyah)
		ui.POST("/generate", h.uiGenerate)
	}
	return nil
}

// pageSession returns the cookie's session, creating one when it is missing or expired.
func (h *Handler) pageSession(c *gin.Context) *session.Session {
	if id, err := c.Cookie(sessionCookie); err == nil {
		if s, err := h.Store.Get(id); err == nil {
			return s
		}
	}
	s := h.Store.Create(c.Request.Context())
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(sessionCookie, s.ID(), 0, "/", "", false, true)
	return s
}

func (h *Handler) page(c *gin.Context) {
	s := h.pageSession(c)
	st := s.State()
	data := pageData{State: st, Chapters: s.Chapters(), Alert: st.Alert, Upload: c.Query("upload")}
	// the alert is shown once
	if st.Alert != "" {
		s.DismissAlert()
	}
	c.HTML(http.StatusOK, "index.html", data)
}

func (h *Handler) back(c *gin.Context) {
	c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) uiText(c *gin.Context) {
	h.pageSession(c).SetText(c.PostForm("text"))
	h.back(c)
}

func (h *Handler) uiChapter(c *gin.Context) {
	s := h.pageSession(c)
	if id, err := strconv.Atoi(c.PostForm("chapter")); err == nil {
		_ = s.SelectChapter(c.Request.Context(), id)
	}
	h.back(c)
}

func (h *Handler) uiVerse(c *gin.Context) {
	s := h.pageSession(c)
	if n, err := strconv.Atoi(c.PostForm("verse")); err == nil {
		_ = s.SelectVerse(c.Request.Context(), n)
	}
	h.back(c)
}

func (h *Handler) uiBackground(c *gin.Context) {
	s := h.pageSession(c)
	name, data, err := readUpload(c)
	if err == nil {
		err = s.SetBackground(name, data)
	}
	if err != nil {
		slog.Info("background rejected", "session", s.ID(), "err", err)
		c.Redirect(http.StatusSeeOther, "/?upload=failed")
		return
	}
	c.Redirect(http.StatusSeeOther, "/?upload=ok")
}

func (h *Handler) uiAyah(c *gin.Context) {
	_ = h.pageSession(c).FetchAyahImage(c.Request.Context())
	h.back(c)
}

func (h *Handler) uiGenerate(c *gin.Context) {
	s := h.pageSession(c)
	if err := s.GenerateComposite(c.Request.Context()); err != nil && !errors.Is(err, session.ErrGenerateFailed) {
		slog.Debug("generate refused", "session", s.ID(), "err", err)
	}
	h.back(c)
}
