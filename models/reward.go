package models

import "time"

// PaymentStatus tracks the only mutable part of a ledger entry.
type PaymentStatus string

const (
	PaymentNone      PaymentStatus = "none"
	PaymentPending   PaymentStatus = "pending"
	PaymentProcessed PaymentStatus = "processed"
	PaymentFailed    PaymentStatus = "failed"
)

// RewardDistribution is an immutable ledger entry capturing exactly what one
// approved submission granted. The unique index on submission_id is the
// storage-level guarantee that rewards are granted at most once per approval.
type RewardDistribution struct {
	ID           string `gorm:"primaryKey;type:uuid" json:"id"`
	SubmissionID string `gorm:"uniqueIndex;not null" json:"submission_id"`
	UserID       string `gorm:"index;not null" json:"user_id"`

	XPAwarded        int      `gorm:"not null" json:"xp_awarded"`
	TrustScoreChange int      `gorm:"not null" json:"trust_score_change"`
	RwisAwarded      int      `gorm:"not null" json:"rwis_awarded"`
	BadgesAwarded    []string `gorm:"type:jsonb;serializer:json" json:"badges_awarded"`

	PaymentAmount *float64      `json:"payment_amount,omitempty"`
	PaymentStatus PaymentStatus `gorm:"not null;default:'none';index" json:"payment_status"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
