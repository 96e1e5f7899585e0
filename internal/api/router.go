// Package api wires the HTTP handlers into a gin engine.
package api

import (
	"complaintdesk/backend/internal/api/handler"
	"complaintdesk/backend/internal/config"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
)

// NewRouter builds the HTTP handler for the whole API. CORS is applied only
// when allowed origins are configured.
func NewRouter(cfg config.Config, h *handler.Handler) http.Handler {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery(), handler.RequestID())

	r.GET("/healthz", h.Health)

	api := r.Group("/api", h.Authenticate())
	{
		api.GET("/complaints", h.ListComplaints)
		api.POST("/complaints", h.SubmitComplaint)
		api.GET("/complaints/:id", h.GetComplaint)
		api.GET("/complaints/:id/history", h.ComplaintHistory)
		api.POST("/feedback", h.GiveFeedback)
		api.GET("/categories", h.ListCategories)
		api.GET("/profile", h.Profile)
		api.GET("/events", h.ServeEvents(handler.NewUpgrader(cfg.CORSAllowedOrigins)))
	}

	admin := api.Group("/admin", handler.AdminOnly())
	{
		admin.GET("/complaints", h.AdminListComplaints)
		admin.HEAD("/complaints", h.AdminProbe)
		admin.PATCH("/complaints/:id/status", h.UpdateStatus)
		admin.PUT("/complaints/:id/status", h.UpdateStatus)
		admin.POST("/responses", h.Respond)
		admin.GET("/stats", h.Stats)
		admin.POST("/categories", h.CreateCategory)
	}

	if len(cfg.CORSAllowedOrigins) == 0 {
		return r
	}
	return cors.New(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
	}).Handler(r)
}
