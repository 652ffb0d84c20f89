package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

// SubmissionStatus is the closed set of lifecycle states for a task submission.
type SubmissionStatus string

const (
	SubmissionPending       SubmissionStatus = "pending"
	SubmissionUnderReview   SubmissionStatus = "under_review"
	SubmissionApproved      SubmissionStatus = "approved"
	SubmissionRejected      SubmissionStatus = "rejected"
	SubmissionNeedsRevision SubmissionStatus = "needs_revision"
)

// submissionTransitions is the full transition table. Approved and rejected are
// terminal; needs_revision returns to pending only via resubmit.
var submissionTransitions = map[SubmissionStatus][]SubmissionStatus{
	SubmissionPending:       {SubmissionUnderReview},
	SubmissionUnderReview:   {SubmissionApproved, SubmissionRejected, SubmissionNeedsRevision},
	SubmissionNeedsRevision: {SubmissionPending},
	SubmissionApproved:      {},
	SubmissionRejected:      {},
}

// CanTransition reports whether moving from to next is a legal state change.
func CanTransition(from, to SubmissionStatus) bool {
	for _, next := range submissionTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition returns a descriptive error for illegal status writes.
func ValidateTransition(from, to SubmissionStatus) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("illegal submission transition %s → %s", from, to)
	}
	return nil
}

// VerificationOutcome is the structured result returned by the verification
// service for a single submission. Stored opaquely on the submission row.
type VerificationOutcome struct {
	Passed               bool     `json:"passed"`
	Score                float64  `json:"score"`
	RequiresManualReview bool     `json:"requires_manual_review"`
	FlaggedIssues        []string `json:"flagged_issues,omitempty"`
}

// FraudRiskLevel reported by the fraud heuristic.
type FraudRiskLevel string

const (
	RiskLow    FraudRiskLevel = "low"
	RiskMedium FraudRiskLevel = "medium"
	RiskHigh   FraudRiskLevel = "high"
)

// FraudAssessment is the fraud heuristic's verdict for a submission.
type FraudAssessment struct {
	IsFraudulent bool           `json:"is_fraudulent"`
	RiskLevel    FraudRiskLevel `json:"risk_level"`
}

// Review queue priorities, derived from fraud risk.
const (
	PriorityLow    = 1
	PriorityMedium = 2
	PriorityHigh   = 4
)

// PriorityForRisk maps a fraud risk level onto a queue priority.
func PriorityForRisk(level FraudRiskLevel) int {
	switch level {
	case RiskHigh:
		return PriorityHigh
	case RiskMedium:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// TaskSubmission is one user's evidence for one task. At most one row exists
// per (task, user) pair; resubmissions mutate the row in place.
type TaskSubmission struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	TaskID string `gorm:"uniqueIndex:idx_task_user;not null" json:"task_id"`
	UserID string `gorm:"uniqueIndex:idx_task_user;index;not null" json:"user_id"`

	SubmissionText  string   `gorm:"type:text" json:"submission_text"`
	FileAttachments []string `gorm:"type:jsonb;serializer:json" json:"file_attachments"`

	Status               SubmissionStatus     `gorm:"not null;default:'pending';index" json:"status"`
	AIVerificationResult *VerificationOutcome `gorm:"type:jsonb;serializer:json" json:"ai_verification_result,omitempty"`
	ManualReviewRequired bool                 `gorm:"default:false" json:"manual_review_required"`
	ReviewerID           *string              `json:"reviewer_id,omitempty"`
	Feedback             *string              `gorm:"type:text" json:"feedback,omitempty"`
	RevisionCount        int                  `gorm:"default:0" json:"revision_count"`

	SubmittedAt time.Time  `gorm:"not null" json:"submitted_at"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// SetStatus validates the transition table before mutating the status field.
func (s *TaskSubmission) SetStatus(to SubmissionStatus) error {
	if err := ValidateTransition(s.Status, to); err != nil {
		return err
	}
	s.Status = to
	return nil
}
