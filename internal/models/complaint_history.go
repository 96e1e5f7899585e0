package models

import "time"

// HistoryAction names the kind of mutation a history row records.
type HistoryAction string

const (
	ActionCreated       HistoryAction = "CREATED"
	ActionStatusChanged HistoryAction = "STATUS_CHANGED"
	ActionAdminResponse HistoryAction = "ADMIN_RESPONSE"
	ActionFeedback      HistoryAction = "FEEDBACK"
)

// UnknownActor is reported for history rows whose user no longer exists.
const UnknownActor = "unknown"

// ComplaintHistory is an append-only audit entry for one complaint.
// Rows are never updated or deleted except by the complaint cascade.
type ComplaintHistory struct {
	// ID breaks ties between rows written within the same clock tick.
	ID uint `gorm:"primaryKey"`

	// ComplaintID is the complaint the row belongs to.
	ComplaintID uint       `gorm:"not null;index:idx_history_complaint_time"`
	Complaint   *Complaint `gorm:"constraint:OnDelete:CASCADE"`
	// UserID is the acting user; it becomes NULL when the account is removed
	// so the row survives the user.
	UserID *string `gorm:"index"`
	User   *User   `gorm:"constraint:OnDelete:SET NULL"`

	Action    HistoryAction `gorm:"type:varchar(50);not null"`
	OldStatus *Status       `gorm:"type:varchar(20)"`
	NewStatus *Status       `gorm:"type:varchar(20)"`
	Comment   string        `gorm:"type:text"`
	CreatedAt time.Time     `gorm:"index:idx_history_complaint_time"`
}

// TableName overrides gorm's pluralized default (complaint_histories).
func (ComplaintHistory) TableName() string {
	return "complaint_history"
}

// ActorID returns the acting user's id, or UnknownActor when the account has
// been removed.
func (h *ComplaintHistory) ActorID() string {
	if h.UserID == nil || *h.UserID == "" {
		return UnknownActor
	}
	return *h.UserID
}

// ActorRole returns the acting user's role when it was loaded, or nil.
func (h *ComplaintHistory) ActorRole() *Role {
	if h.User == nil || h.UserID == nil {
		return nil
	}
	role := h.User.Role
	return &role
}

// StatusPtr returns a pointer to a copy of s.
func StatusPtr(s Status) *Status {
	return &s
}
