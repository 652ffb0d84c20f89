package models

import "time"

// BadgeCriteria are the unlock requirements for a badge. Every present
// criterion must hold (AND semantics); absent criteria are ignored.
type BadgeCriteria struct {
	MinTrustScore  *int           `json:"min_trust_score,omitempty"`
	MinTotalTasks  *int           `json:"min_total_tasks,omitempty"`
	CategoryTasks  map[string]int `json:"category_tasks,omitempty"`  // per-category completed-task floors
	RequiredBadges []string       `json:"required_badges,omitempty"` // prerequisite badge codes
}

// Badge is a catalog entry. The catalog is fixed business configuration,
// seeded at boot and never edited by users.
type Badge struct {
	ID          string        `gorm:"primaryKey;type:uuid" json:"id"`
	Code        string        `gorm:"uniqueIndex;not null" json:"code"`
	Name        string        `gorm:"not null" json:"name"`
	Description string        `json:"description"`
	Rarity      string        `gorm:"type:varchar(16);default:'common'" json:"rarity"`
	Criteria    BadgeCriteria `gorm:"type:jsonb;serializer:json" json:"criteria"`
	CreatedAt   time.Time     `gorm:"autoCreateTime" json:"created_at"`
}

// UserBadge is an earned-badge join row, unique per (user, badge). Once
// awarded a badge is never revoked.
type UserBadge struct {
	ID        string    `gorm:"primaryKey;type:uuid" json:"id"`
	UserID    string    `gorm:"uniqueIndex:idx_user_badge;index;not null" json:"user_id"`
	BadgeID   string    `gorm:"uniqueIndex:idx_user_badge;not null" json:"badge_id"`
	AwardedAt time.Time `gorm:"autoCreateTime" json:"awarded_at"`
}

func intPtr(v int) *int { return &v }

// DefaultBadges is the seeded catalog. Codes are slugified from names at seed
// time so prerequisite references below must use the slugged form.
var DefaultBadges = []Badge{
	{
		Name:        "First Steps",
		Description: "Completed your first verified task",
		Rarity:      "common",
		Criteria:    BadgeCriteria{MinTotalTasks: intPtr(1)},
	},
	{
		Name:        "Steady Hands",
		Description: "Ten verified tasks on the record",
		Rarity:      "common",
		Criteria:    BadgeCriteria{MinTotalTasks: intPtr(10)},
	},
	{
		Name:        "Trusted Contributor",
		Description: "Trust score of 50 or more",
		Rarity:      "rare",
		Criteria:    BadgeCriteria{MinTrustScore: intPtr(50)},
	},
	{
		Name:        "Community Pillar",
		Description: "Five verified community tasks",
		Rarity:      "rare",
		Criteria:    BadgeCriteria{CategoryTasks: map[string]int{"community": 5}},
	},
	{
		Name:        "Environmental Champion",
		Description: "Five verified environment tasks",
		Rarity:      "rare",
		Criteria:    BadgeCriteria{CategoryTasks: map[string]int{"environment": 5}},
	},
	{
		Name:        "Veteran",
		Description: "Fifty verified tasks and a trusted record",
		Rarity:      "epic",
		Criteria: BadgeCriteria{
			MinTotalTasks:  intPtr(50),
			MinTrustScore:  intPtr(100),
			RequiredBadges: []string{"trusted-contributor"},
		},
	},
}
