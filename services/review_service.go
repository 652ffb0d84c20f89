// task-verify-system/services/review_service.go
package services

import (
	"context"
	"errors"
	"time"

	"task-verify-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ReviewerStats aggregates a reviewer's completed work and current backlog.
type ReviewerStats struct {
	Approved           int64   `json:"approved"`
	Rejected           int64   `json:"rejected"`
	RevisionsRequested int64   `json:"revisions_requested"`
	TotalCompleted     int64   `json:"total_completed"`
	AvgTurnaroundHours float64 `json:"avg_turnaround_hours"`
	OpenAssigned       int64   `json:"open_assigned"`
}

// ReviewQueueService owns the priority-ordered human-review backlog:
// exclusive assignment, decision recording, and reviewer statistics.
type ReviewQueueService struct {
	DB          *gorm.DB
	Notifier    NotificationGateway
	Submissions *SubmissionService // set during wiring; same-package back-reference
}

func NewReviewQueueService(db *gorm.DB, notifier NotificationGateway) *ReviewQueueService {
	return &ReviewQueueService{DB: db, Notifier: notifier}
}

// EnqueueTx upserts the open queue item for a submission inside the caller's
// transaction. Repeated risk signals overwrite the priority, never duplicate.
func (s *ReviewQueueService) EnqueueTx(tx *gorm.DB, submissionID string, priority int) error {
	var item models.VerificationQueueItem
	err := tx.Where("submission_id = ? AND completed_at IS NULL", submissionID).First(&item).Error
	if err == nil {
		if item.Priority == priority {
			return nil
		}
		return tx.Model(&item).Update("priority", priority).Error
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	item = models.VerificationQueueItem{
		ID:           uuid.NewString(),
		SubmissionID: submissionID,
		Priority:     priority,
	}
	return tx.Create(&item).Error
}

// Enqueue is the standalone form of EnqueueTx.
func (s *ReviewQueueService) Enqueue(submissionID string, priority int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		return s.EnqueueTx(tx, submissionID, priority)
	})
}

// Assign claims a queue item for a reviewer. A single conditional update is
// the mutual-exclusion point: two racing reviewers get exactly one winner.
// Re-claiming by the same reviewer is idempotent.
func (s *ReviewQueueService) Assign(ctx context.Context, queueItemID, reviewerID string) error {
	var item models.VerificationQueueItem
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&item, "id = ?", queueItemID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if !item.Open() {
			return ErrNotFound
		}

		now := time.Now()
		res := tx.Model(&models.VerificationQueueItem{}).
			Where("id = ? AND completed_at IS NULL AND (assigned_reviewer_id IS NULL OR assigned_reviewer_id = ?)", queueItemID, reviewerID).
			Updates(map[string]interface{}{
				"assigned_reviewer_id": reviewerID,
				"assigned_at":          gorm.Expr("COALESCE(assigned_at, ?)", now),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrAlreadyAssigned
		}

		// Mirror the claim onto the submission for the user-facing record.
		return tx.Model(&models.TaskSubmission{}).
			Where("id = ?", item.SubmissionID).
			Update("reviewer_id", reviewerID).Error
	})
	if err != nil {
		return err
	}

	notify(ctx, s.Notifier, reviewerID, EventReviewAssigned, map[string]interface{}{
		"queue_item_id": queueItemID,
		"submission_id": item.SubmissionID,
		"priority":      item.Priority,
	})
	return nil
}

// completeItemTx closes the queue item with an outcome. Only the assigned
// reviewer may complete it; completion is guarded by a conditional update so
// a decided item cannot be decided twice.
func (s *ReviewQueueService) completeItemTx(tx *gorm.DB, queueItemID, reviewerID string, outcome models.ReviewOutcome, notes string) (*models.VerificationQueueItem, error) {
	var item models.VerificationQueueItem
	if err := tx.First(&item, "id = ?", queueItemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if !item.Open() {
		return nil, ErrNotFound
	}
	if item.AssignedReviewerID == nil || *item.AssignedReviewerID != reviewerID {
		return nil, ErrNotAssignedToReviewer
	}

	now := time.Now()
	res := tx.Model(&models.VerificationQueueItem{}).
		Where("id = ? AND completed_at IS NULL AND assigned_reviewer_id = ?", queueItemID, reviewerID).
		Updates(map[string]interface{}{
			"completed_at": now,
			"outcome":      outcome,
			"notes":        notes,
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	item.CompletedAt = &now
	item.Outcome = outcome
	item.Notes = &notes
	return &item, nil
}

// ApproveSubmission records the reviewer's approval and delegates to the
// orchestrator's approval in the same transaction. An optional 1–5 rating is
// blended with the AI score as max(aiScore, rating*20) so a human approval
// never under-credits a submission the AI already scored well.
func (s *ReviewQueueService) ApproveSubmission(ctx context.Context, queueItemID, reviewerID string, rating *int, feedbackText string) error {
	var userID, submissionID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		item, err := s.completeItemTx(tx, queueItemID, reviewerID, models.OutcomeApproved, feedbackText)
		if err != nil {
			return err
		}
		submissionID = item.SubmissionID

		var sub models.TaskSubmission
		if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
			return err
		}

		score := 0.0
		if sub.AIVerificationResult != nil {
			score = sub.AIVerificationResult.Score
		}
		if rating != nil {
			if human := float64(*rating) * 20; human > score {
				score = human
			}
			if feedbackText != "" {
				fb := models.TaskFeedback{
					ID:           uuid.NewString(),
					TaskID:       sub.TaskID,
					SubmissionID: sub.ID,
					ReviewerID:   reviewerID,
					Rating:       *rating,
					Comment:      feedbackText,
				}
				if err := tx.Create(&fb).Error; err != nil {
					return err
				}
			}
		}

		userID, err = s.Submissions.approveTx(tx, submissionID, score)
		return err
	})
	if err != nil || userID == "" {
		return err
	}
	s.Submissions.afterApprove(ctx, userID, submissionID)
	return nil
}

// RejectSubmission records a terminal rejection.
func (s *ReviewQueueService) RejectSubmission(ctx context.Context, queueItemID, reviewerID, reason string) error {
	var userID, submissionID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		item, err := s.completeItemTx(tx, queueItemID, reviewerID, models.OutcomeRejected, reason)
		if err != nil {
			return err
		}
		submissionID = item.SubmissionID
		userID, err = s.Submissions.rejectTx(tx, submissionID, reason)
		return err
	})
	if err != nil {
		return err
	}
	notify(ctx, s.Notifier, userID, EventSubmissionRejected, map[string]interface{}{
		"submission_id": submissionID,
		"reason":        reason,
	})
	return nil
}

// RequestRevisions sends the submission back to the user with the reviewer's
// notes as feedback.
func (s *ReviewQueueService) RequestRevisions(ctx context.Context, queueItemID, reviewerID, notes string) error {
	var userID, submissionID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		item, err := s.completeItemTx(tx, queueItemID, reviewerID, models.OutcomeRevisionRequested, notes)
		if err != nil {
			return err
		}
		submissionID = item.SubmissionID
		userID, err = s.Submissions.requestRevisionTx(tx, submissionID, notes)
		return err
	})
	if err != nil {
		return err
	}
	notify(ctx, s.Notifier, userID, EventRevisionRequested, map[string]interface{}{
		"submission_id": submissionID,
		"feedback":      notes,
	})
	return nil
}

// PendingReviews lists the reviewer's visible backlog: unclaimed items plus
// items they already claimed, oldest high-priority first.
func (s *ReviewQueueService) PendingReviews(reviewerID string) ([]models.VerificationQueueItem, error) {
	var items []models.VerificationQueueItem
	err := s.DB.
		Where("completed_at IS NULL AND (assigned_reviewer_id IS NULL OR assigned_reviewer_id = ?)", reviewerID).
		Order("priority DESC, created_at ASC").
		Find(&items).Error
	return items, err
}

// Stats aggregates the reviewer's completed decisions and mean turnaround.
func (s *ReviewQueueService) Stats(reviewerID string) (*ReviewerStats, error) {
	var completed []models.VerificationQueueItem
	if err := s.DB.
		Where("assigned_reviewer_id = ? AND completed_at IS NOT NULL", reviewerID).
		Find(&completed).Error; err != nil {
		return nil, err
	}

	stats := &ReviewerStats{}
	var totalHours float64
	var timed int64
	for _, item := range completed {
		stats.TotalCompleted++
		switch item.Outcome {
		case models.OutcomeApproved:
			stats.Approved++
		case models.OutcomeRejected:
			stats.Rejected++
		case models.OutcomeRevisionRequested:
			stats.RevisionsRequested++
		}
		if item.AssignedAt != nil {
			totalHours += item.CompletedAt.Sub(*item.AssignedAt).Hours()
			timed++
		}
	}
	if timed > 0 {
		stats.AvgTurnaroundHours = totalHours / float64(timed)
	}

	if err := s.DB.Model(&models.VerificationQueueItem{}).
		Where("assigned_reviewer_id = ? AND completed_at IS NULL", reviewerID).
		Count(&stats.OpenAssigned).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
