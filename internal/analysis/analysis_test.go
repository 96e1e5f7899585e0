package analysis_test

import (
	"complaintdesk/backend/internal/analysis"
	"complaintdesk/backend/internal/models"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsFinal(t *testing.T) {
	tests := []struct {
		status models.Status
		want   bool
	}{
		{models.StatusNew, false},
		{models.StatusInProgress, false},
		{models.StatusResolved, false},
		{models.StatusAccepted, true},
		{models.StatusRejected, true},
		{models.StatusClosed, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, analysis.IsFinal(tt.status))
		})
	}
}

func TestSummarize(t *testing.T) {
	// Arrange
	counts := map[models.Status]int64{
		models.StatusNew:      4,
		models.StatusResolved: 1,
		models.StatusClosed:   2,
		"LEGACY":              9,
	}

	// Act
	s := analysis.Summarize(counts)

	// Assert
	assert.Equal(t, int64(7), s.Total, "unknown statuses are not counted")
	assert.Equal(t, int64(5), s.Open)
	assert.Equal(t, int64(2), s.Finished)
	assert.Len(t, s.ByStatus, 6)
	assert.Equal(t, int64(0), s.ByStatus[models.StatusRejected])
}

func TestSummarize_Empty(t *testing.T) {
	s := analysis.Summarize(nil)

	assert.Zero(t, s.Total)
	assert.Len(t, s.ByStatus, 6)
}
