// task-verify-system/services/reward_service.go
package services

import (
	"context"
	"errors"
	"log"
	"math"
	"time"

	"task-verify-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Leveling: level 1 below 100 XP, then a flat 50 XP per level.
const (
	levelTwoXP  = 100
	xpPerLevel  = 50
	levelOffset = 50
)

// LevelForXP is the pure leveling function. CurrentLevel is always recomputed
// from total XP through this, never incremented in place.
func LevelForXP(xp int) int {
	if xp < levelTwoXP {
		return 1
	}
	return (xp-levelOffset)/xpPerLevel + 1
}

// QualityMultiplier maps a 0–100 quality score onto a 0.5–1.5 reward scale.
// A zero-quality approval still grants half credit.
func QualityMultiplier(score float64) float64 {
	m := score/100 + 0.5
	if m < 0.5 {
		m = 0.5
	}
	if m > 1.5 {
		m = 1.5
	}
	return m
}

type RewardService struct {
	DB       *gorm.DB
	Payments PaymentGateway
}

func NewRewardService(db *gorm.DB, payments PaymentGateway) *RewardService {
	return &RewardService{DB: db, Payments: payments}
}

// ensureStats loads or lazily creates the user's stats row with zero defaults.
func (s *RewardService) ensureStats(tx *gorm.DB, userID string) (*models.UserStats, error) {
	var stats models.UserStats
	err := tx.Where("user_id = ?", userID).First(&stats).Error
	if err == nil {
		return &stats, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	stats = models.UserStats{
		ID:            uuid.NewString(),
		UserID:        userID,
		CurrentLevel:  1,
		UnlockedZones: []string{},
		CategoryStats: map[string]models.CategoryStat{},
	}
	if err := tx.Create(&stats).Error; err != nil {
		return nil, err
	}
	return &stats, nil
}

// DistributeRewards grants XP, trust, RWIS, badges and the ledger row for one
// approved submission. Runs entirely inside the caller's transaction so a
// failed grant rolls back the approval with it. The sole writer of UserStats.
func (s *RewardService) DistributeRewards(tx *gorm.DB, userID string, task *models.Task, submissionID string, qualityScore float64) (*models.RewardDistribution, error) {
	multiplier := QualityMultiplier(qualityScore)
	xpAwarded := int(math.Round(float64(task.Rewards.XP) * multiplier))
	trustChange := int(math.Round(float64(task.Rewards.TrustScoreBonus) * multiplier))
	rwisAwarded := int(math.Round(float64(task.Rewards.RwisPoints) * multiplier))

	stats, err := s.ensureStats(tx, userID)
	if err != nil {
		return nil, err
	}

	oldLevel := stats.CurrentLevel
	stats.XPPoints += xpAwarded
	stats.TrustScore += trustChange
	if stats.TrustScore < 0 {
		stats.TrustScore = 0
	}
	stats.RwisScore += rwisAwarded
	stats.CurrentLevel = LevelForXP(stats.XPPoints)
	if stats.CurrentLevel > oldLevel {
		now := time.Now()
		stats.LastLevelUpAt = &now
	}

	// Category bucket: incremental mean seeded by score mapped onto 1–5.
	if stats.CategoryStats == nil {
		stats.CategoryStats = map[string]models.CategoryStat{}
	}
	bucket := stats.CategoryStats[task.Category]
	rating := qualityScore / 20
	bucket.AverageRating = (bucket.AverageRating*float64(bucket.TasksCompleted) + rating) / float64(bucket.TasksCompleted+1)
	bucket.TasksCompleted++
	bucket.TotalXP += xpAwarded
	stats.CategoryStats[task.Category] = bucket

	if err := tx.Save(stats).Error; err != nil {
		return nil, err
	}

	badges, err := s.evaluateBadges(tx, stats)
	if err != nil {
		return nil, err
	}

	dist := &models.RewardDistribution{
		ID:               uuid.NewString(),
		SubmissionID:     submissionID,
		UserID:           userID,
		XPAwarded:        xpAwarded,
		TrustScoreChange: trustChange,
		RwisAwarded:      rwisAwarded,
		BadgesAwarded:    badges,
		PaymentStatus:    models.PaymentNone,
	}
	if task.Rewards.PaymentAmount != nil {
		dist.PaymentAmount = task.Rewards.PaymentAmount
		dist.PaymentStatus = models.PaymentPending
	}
	// Unique index on submission_id makes a double grant abort the whole tx.
	if err := tx.Create(dist).Error; err != nil {
		return nil, err
	}

	log.Printf("🎁 Rewards distributed: user=%s submission=%s xp=%d trust=%+d rwis=%d level=%d badges=%v",
		userID, submissionID, xpAwarded, trustChange, rwisAwarded, stats.CurrentLevel, badges)

	return dist, nil
}

// evaluateBadges awards every catalog badge the user newly qualifies for.
// Reads the catalog and the held set in the same transaction as the stat
// mutation so thresholds are never checked against stale values.
func (s *RewardService) evaluateBadges(tx *gorm.DB, stats *models.UserStats) ([]string, error) {
	var catalog []models.Badge
	if err := tx.Order("created_at ASC").Find(&catalog).Error; err != nil {
		return nil, err
	}

	var held []models.UserBadge
	if err := tx.Where("user_id = ?", stats.UserID).Find(&held).Error; err != nil {
		return nil, err
	}
	heldIDs := map[string]bool{}
	for _, h := range held {
		heldIDs[h.BadgeID] = true
	}
	heldCodes := map[string]bool{}
	for _, b := range catalog {
		if heldIDs[b.ID] {
			heldCodes[b.Code] = true
		}
	}

	var awarded []string
	for _, badge := range catalog {
		if heldIDs[badge.ID] {
			continue
		}
		if !meetsCriteria(stats, heldCodes, badge.Criteria) {
			continue
		}
		ub := models.UserBadge{
			ID:      uuid.NewString(),
			UserID:  stats.UserID,
			BadgeID: badge.ID,
		}
		// Insert-or-skip keeps re-evaluation idempotent under races.
		res := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "badge_id"}},
			DoNothing: true,
		}).Create(&ub)
		if res.Error != nil {
			return nil, res.Error
		}
		heldCodes[badge.Code] = true
		if res.RowsAffected == 0 {
			// A racing grant inserted it first; it is held, not newly awarded.
			continue
		}
		awarded = append(awarded, badge.Code)
		log.Printf("🎖️ Badge awarded: %s → %s", badge.Code, stats.UserID)
	}
	return awarded, nil
}

// meetsCriteria applies AND semantics over every present criterion.
func meetsCriteria(stats *models.UserStats, heldCodes map[string]bool, c models.BadgeCriteria) bool {
	if c.MinTrustScore != nil && stats.TrustScore < *c.MinTrustScore {
		return false
	}
	if c.MinTotalTasks != nil && stats.TotalTasksCompleted() < *c.MinTotalTasks {
		return false
	}
	for category, min := range c.CategoryTasks {
		if stats.CategoryStats[category].TasksCompleted < min {
			return false
		}
	}
	for _, code := range c.RequiredBadges {
		if !heldCodes[code] {
			return false
		}
	}
	return true
}

// CheckZoneUnlocks appends newly qualifying zones after a reward commit.
// Deliberately outside the reward transaction: a missed unlock converges on
// the next reward event, a missed XP write would not. Errors are logged only.
func (s *RewardService) CheckZoneUnlocks(userID string) {
	var stats models.UserStats
	if err := s.DB.Where("user_id = ?", userID).First(&stats).Error; err != nil {
		log.Printf("⚠️ zone unlock check: stats lookup failed for %s: %v", userID, err)
		return
	}

	var zones []models.Zone
	if err := s.DB.Find(&zones).Error; err != nil {
		log.Printf("⚠️ zone unlock check: catalog load failed: %v", err)
		return
	}

	var unlocked []string
	for _, z := range zones {
		if stats.HasZone(z.Code) {
			continue
		}
		if stats.TrustScore >= z.Requirements.MinTrustScore && stats.CurrentLevel >= z.Requirements.MinLevel {
			stats.UnlockedZones = append(stats.UnlockedZones, z.Code)
			unlocked = append(unlocked, z.Code)
		}
	}
	if len(unlocked) == 0 {
		return
	}

	// Column-scoped write: a reward grant committing for the same user while
	// this check runs must never be overwritten from our stale snapshot.
	if err := s.DB.Model(&models.UserStats{}).
		Where("user_id = ?", userID).
		Update("unlocked_zones", stats.UnlockedZones).Error; err != nil {
		log.Printf("⚠️ zone unlock check: save failed for %s: %v", userID, err)
		return
	}
	log.Printf("🗺️ Zones unlocked for %s: %v", userID, unlocked)
}

// ProcessPendingPayments sweeps ledger rows awaiting payout. Each row is its
// own unit of work so one provider failure never blocks the rest.
func (s *RewardService) ProcessPendingPayments(ctx context.Context) {
	var pending []models.RewardDistribution
	if err := s.DB.Where("payment_status = ?", models.PaymentPending).
		Order("created_at ASC").
		Find(&pending).Error; err != nil {
		log.Printf("❌ payment sweep: query failed: %v", err)
		return
	}

	for i := range pending {
		dist := &pending[i]
		status := models.PaymentProcessed
		if err := s.Payments.ProcessPayout(ctx, dist); err != nil {
			log.Printf("❌ payout failed for distribution %s: %v", dist.ID, err)
			status = models.PaymentFailed
		}
		if err := s.DB.Model(&models.RewardDistribution{}).
			Where("id = ? AND payment_status = ?", dist.ID, models.PaymentPending).
			Update("payment_status", status).Error; err != nil {
			log.Printf("❌ payment sweep: status update failed for %s: %v", dist.ID, err)
		}
	}
}
