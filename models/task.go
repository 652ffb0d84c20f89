package models

import (
	"time"

	"gorm.io/gorm"
)

// TaskStatus indicates whether a task is accepting submissions.
type TaskStatus string

const (
	TaskStatusOpen      TaskStatus = "open"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusArchived  TaskStatus = "archived"
)

// TaskRewards holds the fixed reward values configured per task. The reward
// engine scales these by the quality multiplier before granting.
type TaskRewards struct {
	XP              int      `gorm:"not null;default:0" json:"xp"`
	TrustScoreBonus int      `gorm:"not null;default:0" json:"trust_score_bonus"`
	RwisPoints      int      `gorm:"not null;default:0" json:"rwis_points"`
	PaymentAmount   *float64 `json:"payment_amount,omitempty"`
}

// Task is a real-world task users submit evidence for.
type Task struct {
	ID          string      `gorm:"primaryKey;type:uuid" json:"id"`
	Title       string      `gorm:"not null" json:"title"`
	Description string      `gorm:"type:text" json:"description"`
	Category    string      `gorm:"index;not null" json:"category"`
	Status      TaskStatus  `gorm:"not null;default:'open';index" json:"status"`
	Rewards     TaskRewards `gorm:"embedded;embeddedPrefix:reward_" json:"rewards"`

	CompletedBy *string    `json:"completed_by,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// Accepting reports whether the task can receive new submissions.
func (t *Task) Accepting() bool {
	return t.Status == TaskStatusOpen
}

// WorkHistoryEntry records a verified task completion on the user's record.
// Written once per approval, never mutated.
type WorkHistoryEntry struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID       string    `gorm:"index;not null" json:"user_id"`
	TaskID       string    `gorm:"not null" json:"task_id"`
	SubmissionID string    `gorm:"not null" json:"submission_id"`
	TaskTitle    string    `json:"task_title"`
	Category     string    `json:"category"`
	QualityScore float64   `json:"quality_score"`
	CompletedAt  time.Time `gorm:"autoCreateTime" json:"completed_at"`
}

// TaskFeedback is an optional reviewer rating + comment attached to an
// approved submission when both were supplied.
type TaskFeedback struct {
	ID           string    `gorm:"primaryKey;type:uuid" json:"id"`
	TaskID       string    `gorm:"index;not null" json:"task_id"`
	SubmissionID string    `gorm:"index;not null" json:"submission_id"`
	ReviewerID   string    `gorm:"not null" json:"reviewer_id"`
	Rating       int       `gorm:"not null" json:"rating"` // 1–5
	Comment      string    `gorm:"type:text" json:"comment"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
}
