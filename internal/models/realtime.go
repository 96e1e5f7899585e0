package models

import "time"

// ComplaintEvent is published once per committed history row and fanned out
// to live subscribers (websocket clients, the Telegram notifier).
type ComplaintEvent struct {
	HistoryID   uint          `json:"history_id"`
	ComplaintID uint          `json:"complaint_id"`
	OwnerID     string        `json:"owner_id"`
	ActorID     string        `json:"actor_id"`
	Action      HistoryAction `json:"action"`
	OldStatus   *Status       `json:"old_status,omitempty"`
	NewStatus   *Status       `json:"new_status,omitempty"`
	Comment     string        `json:"comment,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewComplaintEvent builds the event describing h on a complaint owned by
// ownerID.
func NewComplaintEvent(h *ComplaintHistory, ownerID string) ComplaintEvent {
	return ComplaintEvent{
		HistoryID:   h.ID,
		ComplaintID: h.ComplaintID,
		OwnerID:     ownerID,
		ActorID:     h.ActorID(),
		Action:      h.Action,
		OldStatus:   h.OldStatus,
		NewStatus:   h.NewStatus,
		Comment:     h.Comment,
		CreatedAt:   h.CreatedAt,
	}
}
