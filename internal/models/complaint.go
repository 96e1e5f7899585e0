package models

import "time"

// Status is the lifecycle state of a complaint.
type Status string

const (
	StatusNew        Status = "NEW"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusAccepted   Status = "ACCEPTED"
	StatusRejected   Status = "REJECTED"
	StatusClosed     Status = "CLOSED"
)

// Statuses lists every recognized status in workflow order.
var Statuses = []Status{
	StatusNew,
	StatusInProgress,
	StatusResolved,
	StatusAccepted,
	StatusRejected,
	StatusClosed,
}

// Valid reports whether s is one of the six recognized statuses.
func (s Status) Valid() bool {
	for _, v := range Statuses {
		if s == v {
			return true
		}
	}
	return false
}

// Complaint is a client's submitted issue. Status is the only field that
// changes after creation, and only through complaint.Service.
type Complaint struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Text       string    `gorm:"type:text;not null" json:"text"`
	Status     Status    `gorm:"type:varchar(20);not null;default:NEW;index" json:"status"`
	UserID     string    `gorm:"not null;index" json:"user"`
	User       *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	CategoryID *uint     `gorm:"index" json:"category"`
	Category   *Category `gorm:"constraint:OnDelete:SET NULL" json:"category_detail,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`

	// Завантажуються лише для детального перегляду.
	Responses []AdminResponse `gorm:"constraint:OnDelete:CASCADE" json:"responses,omitempty"`
	Feedback  []Feedback      `gorm:"constraint:OnDelete:CASCADE" json:"feedback,omitempty"`
}

// IsOwnedBy reports whether the complaint was submitted by user.
func (c *Complaint) IsOwnedBy(user *User) bool {
	return c != nil && user != nil && c.UserID == user.ID
}

// AdminResponse is an administrator's reply to a complaint.
type AdminResponse struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	ComplaintID  uint      `gorm:"not null;index" json:"complaint"`
	AdminID      string    `gorm:"not null" json:"admin"`
	Admin        *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	ResponseText string    `gorm:"type:text;not null" json:"response_text"`
	CreatedAt    time.Time `json:"created_at"`
}

// Feedback is a client's reaction to how a complaint was handled.
type Feedback struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	ComplaintID uint      `gorm:"not null;index" json:"complaint"`
	UserID      string    `gorm:"not null" json:"user"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE" json:"-"`
	Comment     string    `gorm:"type:text;not null" json:"comment"`
	IsAccepted  bool      `gorm:"not null;default:false" json:"is_accepted"`
	CreatedAt   time.Time `json:"created_at"`
}
