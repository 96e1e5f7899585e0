package handler

import (
	"complaintdesk/backend/internal/complaint"
	"complaintdesk/backend/internal/models"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const msgInvalidBody = "Invalid JSON body."

type submitRequest struct {
	Text     string `json:"text"`
	Category *uint  `json:"category"`
}

type feedbackRequest struct {
	ComplaintID uint   `json:"complaint_id"`
	Comment     string `json:"comment"`
	IsAccepted  bool   `json:"is_accepted"`
}

// historyItem is the wire shape of one audit row. User is the actor id or
// "unknown" once the account is gone.
type historyItem struct {
	ID        uint                 `json:"id"`
	Complaint uint                 `json:"complaint"`
	Action    models.HistoryAction `json:"action"`
	OldStatus *models.Status       `json:"old_status"`
	NewStatus *models.Status       `json:"new_status"`
	Comment   string               `json:"comment"`
	CreatedAt time.Time            `json:"created_at"`
	User      string               `json:"user"`
	UserRole  *models.Role         `json:"user_role"`
}

func toHistoryItems(history []models.ComplaintHistory) []historyItem {
	items := make([]historyItem, 0, len(history))
	for i := range history {
		h := &history[i]
		items = append(items, historyItem{
			ID:        h.ID,
			Complaint: h.ComplaintID,
			Action:    h.Action,
			OldStatus: h.OldStatus,
			NewStatus: h.NewStatus,
			Comment:   h.Comment,
			CreatedAt: h.CreatedAt,
			User:      h.ActorID(),
			UserRole:  h.ActorRole(),
		})
	}
	return items
}

func listFilter(c *gin.Context) complaint.ListFilter {
	return complaint.ListFilter{
		Status:   c.Query("status"),
		Search:   c.Query("search"),
		Page:     queryInt(c, "page"),
		PageSize: queryInt(c, "page_size"),
	}
}

// ListComplaints GET /api/complaints
func (h *Handler) ListComplaints(c *gin.Context) {
	page, err := h.Complaints.ListOwn(c.Request.Context(), currentUser(c), listFilter(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// SubmitComplaint POST /api/complaints
func (h *Handler) SubmitComplaint(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", msgInvalidBody)
		return
	}

	created, err := h.Complaints.Submit(c.Request.Context(), currentUser(c), req.Text, req.Category)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// GetComplaint GET /api/complaints/:id
func (h *Handler) GetComplaint(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	detail, err := h.Complaints.GetComplaint(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// ComplaintHistory GET /api/complaints/:id/history
func (h *Handler) ComplaintHistory(c *gin.Context) {
	id, ok := complaintID(c)
	if !ok {
		return
	}
	history, err := h.Complaints.ListHistory(c.Request.Context(), currentUser(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, toHistoryItems(history))
}

// GiveFeedback POST /api/feedback
func (h *Handler) GiveFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "non_field_errors", msgInvalidBody)
		return
	}
	if req.ComplaintID == 0 {
		badRequest(c, "complaint_id", "This field is required.")
		return
	}

	feedback, err := h.Complaints.GiveFeedback(c.Request.Context(), currentUser(c), req.ComplaintID, req.Comment, req.IsAccepted)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, feedback)
}

// ListCategories GET /api/categories
func (h *Handler) ListCategories(c *gin.Context) {
	categories, err := h.Complaints.ListCategories(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, categories)
}

// Profile GET /api/profile
func (h *Handler) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, currentUser(c))
}
