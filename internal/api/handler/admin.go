package handler

import (
	"complaintdesk/backend/internal/models"
	"net/http"

	"github.com/gin-gonic/gin"
)

type statusRequest struct {
	Status string `json:"status"`
}

type respondRequest struct {
	ComplaintID  uint   `json:"complaint_id"`
	ResponseText string `json:"response_text"`
}

type categoryRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// AdminListComplaints GET /api/admin/complaints
func (h *Handler) AdminListComplaints(c *gin.Context) {
	page, err := h.Complaints.ListAll(c.Request.Context(), currentUser(c), listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// AdminProbe HEAD /api/admin/complaints lets the frontend check the role.
func (h *Handler) AdminProbe(c *gin.Context) {
	c.Status(http.StatusOK)
}

// UpdateStatus PATCH|PUT /api/admin/complaints/:id/status
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", msgInvalidBody)
		return
	}

	updated, err := h.Complaints.UpdateStatus(c.Request.Context(), currentUser(c), id, models.Status(req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

// Respond POST /api/admin/responses
func (h *Handler) Respond(c *gin.Context) {
	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", msgInvalidBody)
		return
	}
	if req.ComplaintID == 0 {
		badRequest(c, "complaint_id", "This field is required.")
		return
	}

	response, err := h.Complaints.Respond(c.Request.Context(), currentUser(c), req.ComplaintID, req.ResponseText)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, response)
}

// Stats GET /api/admin/stats
func (h *Handler) Stats(c *gin.Context) {
	summary, err := h.Complaints.Stats(c.Request.Context(), currentUser(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// CreateCategory POST /api/admin/categories
func (h *Handler) CreateCategory(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", msgInvalidBody)
		return
	}

	category, err := h.Complaints.CreateCategory(c.Request.Context(), currentUser(c), req.Title, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, category)
}
