// task-verify-system/services/catalog.go
package services

import (
	"log"

	"task-verify-system/models"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SeedCatalogs installs the fixed badge and zone catalogs. Codes are
// slugified from display names; existing rows are left untouched so reruns
// are safe and criteria edits ship as new catalog entries.
func SeedCatalogs(db *gorm.DB) error {
	for _, badge := range models.DefaultBadges {
		badge.ID = uuid.NewString()
		badge.Code = slug.Make(badge.Name)
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&badge).Error; err != nil {
			return err
		}
	}

	for _, zone := range models.DefaultZones {
		zone.ID = uuid.NewString()
		zone.Code = slug.Make(zone.Name)
		if err := db.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "code"}},
			DoNothing: true,
		}).Create(&zone).Error; err != nil {
			return err
		}
	}

	log.Printf("✅ Catalogs seeded: %d badges, %d zones", len(models.DefaultBadges), len(models.DefaultZones))
	return nil
}
