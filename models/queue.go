package models

import "time"

// ReviewOutcome is the terminal decision recorded on a completed queue item.
type ReviewOutcome string

const (
	OutcomeApproved          ReviewOutcome = "approved"
	OutcomeRejected          ReviewOutcome = "rejected"
	OutcomeRevisionRequested ReviewOutcome = "revision_requested"
)

// VerificationQueueItem is one pending human-review unit. At most one open
// item exists per submission; completed items are kept for reviewer stats and
// are never reopened — a later revision cycle creates a fresh item.
type VerificationQueueItem struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	SubmissionID string `gorm:"index;not null" json:"submission_id"`
	Priority     int    `gorm:"not null;default:1;index" json:"priority"`

	AssignedReviewerID *string    `gorm:"index" json:"assigned_reviewer_id,omitempty"`
	AssignedAt         *time.Time `json:"assigned_at,omitempty"`
	CompletedAt        *time.Time `gorm:"index" json:"completed_at,omitempty"`

	Outcome ReviewOutcome `json:"outcome,omitempty"`
	Notes   *string       `gorm:"type:text" json:"notes,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Open reports whether the item is still awaiting a decision.
func (q *VerificationQueueItem) Open() bool {
	return q.CompletedAt == nil
}
