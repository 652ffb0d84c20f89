package models

import (
	"time"

	"gorm.io/gorm"
)

// CategoryStat is the per-category progress bucket kept on UserStats.
type CategoryStat struct {
	TasksCompleted int     `json:"tasks_completed"`
	TotalXP        int     `json:"total_xp"`
	AverageRating  float64 `json:"average_rating"` // incremental mean on a 1–5 scale
}

// UserStats is the per-user derived progression row (denormalized for reads).
// Written exclusively by the reward engine; created lazily with zero defaults
// on the first reward grant. CurrentLevel is always recomputed from XPPoints.
type UserStats struct {
	ID     string `gorm:"primaryKey;type:uuid" json:"id"`
	UserID string `gorm:"uniqueIndex;not null" json:"user_id"`

	TrustScore   int `gorm:"default:0" json:"trust_score"`
	RwisScore    int `gorm:"default:0" json:"rwis_score"`
	XPPoints     int `gorm:"default:0" json:"xp_points"`
	CurrentLevel int `gorm:"default:1" json:"current_level"`

	UnlockedZones []string                `gorm:"type:jsonb;serializer:json" json:"unlocked_zones"`
	CategoryStats map[string]CategoryStat `gorm:"type:jsonb;serializer:json" json:"category_stats"`

	LastLevelUpAt *time.Time `json:"last_level_up_at,omitempty"`

	Timestamps
}

// Timestamps adds GORM auto-times
type Timestamps struct {
	CreatedAt time.Time      `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt time.Time      `json:"updated_at" gorm:"autoUpdateTime"`
	DeletedAt gorm.DeletedAt `json:"deleted_at,omitempty" gorm:"index"`
}

// HasZone reports whether the zone code is already unlocked.
func (u *UserStats) HasZone(code string) bool {
	for _, z := range u.UnlockedZones {
		if z == code {
			return true
		}
	}
	return false
}

// TotalTasksCompleted sums the category buckets.
func (u *UserStats) TotalTasksCompleted() int {
	total := 0
	for _, c := range u.CategoryStats {
		total += c.TasksCompleted
	}
	return total
}
