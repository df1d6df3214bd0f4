package api

import "github.com/gin-gonic/gin"

func RegisterRoutes(r *gin.Engine, h *Handler) error {
	if err := h.registerPage(r); err != nil {
		return err
	}
	r.GET("/static/default-bg.png", h.defaultBackground)

	api := r.Group("/api")
	{
		api.GET("/health", h.health)
		api.GET("/chapters", h.chapters)
		api.GET("/gallery", h.gallery)
		api.POST("/sessions", h.createSession)

		s := api.Group("/sessions/:id")
		s.GET("", h.getSession)
		s.PUT("/text", h.putText)
		s.PUT("/chapter", h.putChapter)
		s.PUT("/verse", h.putVerse)
		s.POST("/background", h.postBackground)
		s.POST("/ayah-image", h.postAyahImage)
		s.POST("/composite", h.postComposite)
		s.DELETE("/alert", h.deleteAlert)
		s.GET("/preview", h.getPreview)
		s.GET("/composite", h.getComposite)
		s.GET("/download", h.download)
		s.GET("/download/qr", h.downloadQR)
		s.GET("/events", h.events)
	}
	return nil
}
