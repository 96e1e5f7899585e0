// Package handler exposes the complaint service over HTTP (gin).
package handler

import (
	"complaintdesk/backend/internal/auth"
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/eventhub"
	"complaintdesk/backend/internal/storage"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler містить посилання на сервіси, які використовують HTTP-маршрути
type Handler struct {
	Complaints *complaint.Service
	Storage    storage.Storage
	Tokens     *auth.Tokens
	Hub        *eventhub.ManagerService
}

func NewHandler(complaints *complaint.Service, s storage.Storage, tokens *auth.Tokens, hub *eventhub.ManagerService) *Handler {
	return &Handler{Complaints: complaints, Storage: s, Tokens: tokens, Hub: hub}
}

// Health is the liveness probe.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps service errors onto HTTP statuses. Internal details of
// unexpected errors are logged, never returned.
func respondError(c *gin.Context, err error) {
	var verr *complaint.ValidationError
	var nf *complaint.NotFoundError

	switch {
	case errors.As(err, &verr):
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": verr.Fields})
	case complaint.IsAuthorization(err):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "not permitted"})
	case errors.As(err, &nf):
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": nf.Error()})
	default:
		log.Printf("ERROR: %s %s request_id=%s: %v", c.Request.Method, c.Request.URL.Path, c.GetString(requestIDKey), err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

func badRequest(c *gin.Context, field, msg string) {
	respondError(c, complaint.NewValidationError(field, msg))
}

// complaintID parses the :id path segment. A malformed id is reported as
// not found, like any id that matches no complaint.
func complaintID(c *gin.Context) (uint, bool) {
	raw := c.Param("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		respondError(c, complaint.NewNotFoundError("complaint", raw))
		return 0, false
	}
	return uint(id), true
}

func queryInt(c *gin.Context, key string) int {
	n, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return 0
	}
	return n
}
