// Package analysis provides aggregate views over complaints for administrators.
// It splits status counts into open work and finished (end-state) complaints.
package analysis

import "complaintdesk/backend/internal/models"

// finalStatuses are the conventional end states of the client-visible
// workflow. The data model still allows admins to move a complaint out of them.
var finalStatuses = map[models.Status]bool{
	models.StatusAccepted: true,
	models.StatusRejected: true,
	models.StatusClosed:   true,
}

// Summary is the per-status breakdown shown on the admin dashboard.
type Summary struct {
	Total    int64                   `json:"total"`
	Open     int64                   `json:"open"`
	Finished int64                   `json:"finished"`
	ByStatus map[models.Status]int64 `json:"by_status"`
}

// IsFinal reports whether status is one of the conventional end states.
func IsFinal(status models.Status) bool {
	return finalStatuses[status]
}

// Summarize builds a Summary from raw per-status counts. Every recognized
// status appears in ByStatus, with zero when absent from counts; unrecognized
// statuses are ignored.
func Summarize(counts map[models.Status]int64) Summary {
	s := Summary{ByStatus: make(map[models.Status]int64, len(models.Statuses))}
	for _, status := range models.Statuses {
		n := counts[status]
		s.ByStatus[status] = n
		s.Total += n
		if IsFinal(status) {
			s.Finished += n
		} else {
			s.Open += n
		}
	}
	return s
}
