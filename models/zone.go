package models

import "time"

// ZoneRequirements gate access to an unlockable content area.
type ZoneRequirements struct {
	MinTrustScore int `json:"min_trust_score"`
	MinLevel      int `json:"min_level"`
}

// Zone is an unlockable content area. Unlocking appends the zone code to
// UserStats.UnlockedZones; there is no relock path.
type Zone struct {
	ID           string           `gorm:"primaryKey;type:uuid" json:"id"`
	Code         string           `gorm:"uniqueIndex;not null" json:"code"`
	Name         string           `gorm:"not null" json:"name"`
	Description  string           `json:"description"`
	Requirements ZoneRequirements `gorm:"type:jsonb;serializer:json" json:"requirements"`
	CreatedAt    time.Time        `gorm:"autoCreateTime" json:"created_at"`
}

// DefaultZones is the seeded catalog. Codes are slugified from names at seed time.
var DefaultZones = []Zone{
	{
		Name:         "Commons",
		Description:  "Open to everyone from level 1",
		Requirements: ZoneRequirements{MinTrustScore: 0, MinLevel: 1},
	},
	{
		Name:         "Workshop District",
		Description:  "Unlocked for proven contributors",
		Requirements: ZoneRequirements{MinTrustScore: 20, MinLevel: 5},
	},
	{
		Name:         "Guild Hall",
		Description:  "For trusted, experienced members",
		Requirements: ZoneRequirements{MinTrustScore: 75, MinLevel: 15},
	},
	{
		Name:         "Founders Quarter",
		Description:  "The long game",
		Requirements: ZoneRequirements{MinTrustScore: 200, MinLevel: 40},
	},
}
