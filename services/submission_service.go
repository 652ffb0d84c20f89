// task-verify-system/services/submission_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"task-verify-system/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Quality thresholds for the automated decision policy.
const (
	manualReviewScoreFloor = 70 // below this a human always looks
	autoApproveScoreFloor  = 80 // auto-approval needs passed AND this
)

const fraudHistoryWindow = 10

// VerificationDispatcher hands a committed submission off for background
// verification. Implemented by the workers package; stubbed in tests.
type VerificationDispatcher interface {
	EnqueueVerification(submissionID string)
}

// SubmissionService owns the submission lifecycle: intake, automated
// verification sequencing, and the approve/reject/revision state writes.
type SubmissionService struct {
	DB         *gorm.DB
	Verifier   VerificationGateway
	Notifier   NotificationGateway
	Rewards    *RewardService
	Queue      *ReviewQueueService
	Dispatcher VerificationDispatcher

	VerifyTimeout time.Duration
}

func NewSubmissionService(db *gorm.DB, verifier VerificationGateway, notifier NotificationGateway, rewards *RewardService, queue *ReviewQueueService) *SubmissionService {
	return &SubmissionService{
		DB:            db,
		Verifier:      verifier,
		Notifier:      notifier,
		Rewards:       rewards,
		Queue:         queue,
		VerifyTimeout: 20 * time.Second,
	}
}

// Submit persists a new pending submission for (task, user) and hands it off
// for verification after commit. A verification failure never rolls back the
// submission record.
func (s *SubmissionService) Submit(ctx context.Context, taskID, userID, text string, attachments []string) (*models.TaskSubmission, error) {
	sub := &models.TaskSubmission{
		ID:              uuid.NewString(),
		TaskID:          taskID,
		UserID:          userID,
		SubmissionText:  text,
		FileAttachments: attachments,
		Status:          models.SubmissionPending,
		SubmittedAt:     time.Now(),
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var task models.Task
		if err := tx.First(&task, "id = ?", taskID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskUnavailable
			}
			return err
		}
		if !task.Accepting() {
			return ErrTaskUnavailable
		}

		var count int64
		if err := tx.Model(&models.TaskSubmission{}).
			Where("task_id = ? AND user_id = ?", taskID, userID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return ErrDuplicateSubmission
		}

		return tx.Create(sub).Error
	})
	if err != nil {
		// The unique (task_id, user_id) index closes the check-then-create
		// window under concurrent submits.
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "duplicate") || strings.Contains(err.Error(), "UNIQUE") {
			return nil, ErrDuplicateSubmission
		}
		return nil, err
	}

	s.dispatchVerification(sub.ID)
	return sub, nil
}

// Resubmit replaces the evidence on a needs_revision submission and restarts
// verification. Only the owning user may resubmit.
func (s *SubmissionService) Resubmit(ctx context.Context, submissionID, userID, text string, attachments []string) (*models.TaskSubmission, error) {
	var sub models.TaskSubmission
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}
		if sub.UserID != userID || sub.Status != models.SubmissionNeedsRevision {
			return ErrNotEligible
		}
		if err := sub.SetStatus(models.SubmissionPending); err != nil {
			return err
		}

		sub.SubmissionText = text
		sub.FileAttachments = attachments
		sub.Feedback = nil
		sub.AIVerificationResult = nil
		sub.ManualReviewRequired = false
		sub.ReviewerID = nil
		sub.ReviewedAt = nil
		sub.SubmittedAt = time.Now()

		return tx.Save(&sub).Error
	})
	if err != nil {
		return nil, err
	}

	s.dispatchVerification(sub.ID)
	return &sub, nil
}

// dispatchVerification is the detached post-commit handoff. Intentionally
// fire-and-forget: the recovery sweep picks up anything stranded here.
func (s *SubmissionService) dispatchVerification(submissionID string) {
	if s.Dispatcher == nil {
		log.Printf("⚠️ no verification dispatcher configured; submission %s waits for recovery sweep", submissionID)
		return
	}
	s.Dispatcher.EnqueueVerification(submissionID)
}

// ProcessVerification runs the automated checks for one pending submission
// and routes it to auto-approval, revision, or the manual review queue. A
// gateway error or timeout always escalates to a human at high priority.
func (s *SubmissionService) ProcessVerification(ctx context.Context, submissionID string) error {
	var sub models.TaskSubmission
	if err := s.DB.First(&sub, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrNotFound
		}
		return err
	}
	if sub.Status != models.SubmissionPending {
		log.Printf("↩️ verification skipped for %s: status is %s", submissionID, sub.Status)
		return nil
	}

	var task models.Task
	if err := s.DB.First(&task, "id = ?", sub.TaskID).Error; err != nil {
		return err
	}

	if err := sub.SetStatus(models.SubmissionUnderReview); err != nil {
		return err
	}
	if err := s.DB.Save(&sub).Error; err != nil {
		return err
	}

	vctx, cancel := context.WithTimeout(ctx, s.VerifyTimeout)
	defer cancel()

	outcome, err := s.Verifier.Verify(vctx, &sub, &task)
	if err != nil {
		log.Printf("❌ verification gateway failed for %s: %v", sub.ID, err)
		return s.escalate(&sub, models.PriorityHigh)
	}

	// Persist the outcome before the remaining gateway calls: if one of them
	// fails, the reviewer picking up the escalation still sees the AI score.
	sub.AIVerificationResult = outcome
	if err := s.DB.Save(&sub).Error; err != nil {
		return err
	}

	history, err := s.recentHistory(sub.UserID, sub.ID)
	if err != nil {
		return err
	}
	fraud, err := s.Verifier.DetectFraud(vctx, &sub, &task, history)
	if err != nil {
		log.Printf("❌ fraud heuristic failed for %s: %v", sub.ID, err)
		return s.escalate(&sub, models.PriorityHigh)
	}

	switch {
	case outcome.RequiresManualReview || fraud.IsFraudulent || fraud.RiskLevel == models.RiskHigh:
		return s.escalate(&sub, models.PriorityForRisk(fraud.RiskLevel))

	case outcome.Score < manualReviewScoreFloor:
		// A low score is review-worthy even with a clean fraud signal.
		return s.escalate(&sub, models.PriorityForRisk(fraud.RiskLevel))

	case outcome.Passed && outcome.Score >= autoApproveScoreFloor:
		if err := s.Approve(ctx, sub.ID, outcome.Score); err != nil {
			// Leaves the submission under_review; a later approval retries.
			log.Printf("❌ auto-approval failed for %s: %v", sub.ID, err)
			return err
		}
		return nil

	default:
		feedback, err := s.Verifier.GenerateFeedback(vctx, &sub, &task, outcome)
		if err != nil {
			log.Printf("❌ feedback generation failed for %s: %v", sub.ID, err)
			return s.escalate(&sub, models.PriorityHigh)
		}
		return s.RequestRevision(ctx, sub.ID, renderFeedback(feedback))
	}
}

// recentHistory returns the user's most recent other submissions, newest first.
func (s *SubmissionService) recentHistory(userID, excludeID string) ([]models.TaskSubmission, error) {
	var history []models.TaskSubmission
	err := s.DB.Where("user_id = ? AND id <> ?", userID, excludeID).
		Order("submitted_at DESC").
		Limit(fraudHistoryWindow).
		Find(&history).Error
	return history, err
}

// escalate parks the submission for human review. Never drops a submission.
func (s *SubmissionService) escalate(sub *models.TaskSubmission, priority int) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.TaskSubmission{}).
			Where("id = ?", sub.ID).
			Update("manual_review_required", true).Error; err != nil {
			return err
		}
		sub.ManualReviewRequired = true
		return s.Queue.EnqueueTx(tx, sub.ID, priority)
	})
}

// Approve finalizes a submission: status write, task completion, work history
// and reward distribution, all in one transaction. Safe to call twice — the
// second call no-ops on an already-approved submission.
func (s *SubmissionService) Approve(ctx context.Context, submissionID string, qualityScore float64) error {
	var userID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		userID, err = s.approveTx(tx, submissionID, qualityScore)
		return err
	})
	if err != nil || userID == "" {
		return err
	}
	s.afterApprove(ctx, userID, submissionID)
	return nil
}

// approveTx is the transactional body of Approve, shared with the manual
// review path so a failed reward grant rolls the whole decision back.
// Returns an empty userID when the call was an idempotent no-op.
func (s *SubmissionService) approveTx(tx *gorm.DB, submissionID string, qualityScore float64) (string, error) {
	var sub models.TaskSubmission
	if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if sub.Status == models.SubmissionApproved {
		return "", nil
	}
	if err := models.ValidateTransition(sub.Status, models.SubmissionApproved); err != nil {
		return "", err
	}

	now := time.Now()
	res := tx.Model(&models.TaskSubmission{}).
		Where("id = ? AND status = ?", sub.ID, sub.Status).
		Updates(map[string]interface{}{
			"status":      models.SubmissionApproved,
			"reviewed_at": now,
		})
	if res.Error != nil {
		return "", res.Error
	}
	if res.RowsAffected == 0 {
		return "", fmt.Errorf("submission %s changed concurrently, approval aborted", sub.ID)
	}

	var task models.Task
	if err := tx.First(&task, "id = ?", sub.TaskID).Error; err != nil {
		return "", err
	}
	task.Status = models.TaskStatusCompleted
	task.CompletedBy = &sub.UserID
	task.CompletedAt = &now
	if err := tx.Save(&task).Error; err != nil {
		return "", err
	}

	entry := models.WorkHistoryEntry{
		ID:           uuid.NewString(),
		UserID:       sub.UserID,
		TaskID:       task.ID,
		SubmissionID: sub.ID,
		TaskTitle:    task.Title,
		Category:     task.Category,
		QualityScore: qualityScore,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return "", err
	}

	if _, err := s.Rewards.DistributeRewards(tx, sub.UserID, &task, sub.ID, qualityScore); err != nil {
		return "", err
	}
	return sub.UserID, nil
}

// afterApprove runs the post-commit best-effort steps.
func (s *SubmissionService) afterApprove(ctx context.Context, userID, submissionID string) {
	s.Rewards.CheckZoneUnlocks(userID)
	notify(ctx, s.Notifier, userID, EventSubmissionApproved, map[string]interface{}{
		"submission_id": submissionID,
	})
}

// RequestRevision sends the submission back to the user with feedback.
func (s *SubmissionService) RequestRevision(ctx context.Context, submissionID, feedback string) error {
	var userID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		userID, err = s.requestRevisionTx(tx, submissionID, feedback)
		return err
	})
	if err != nil {
		return err
	}
	notify(ctx, s.Notifier, userID, EventRevisionRequested, map[string]interface{}{
		"submission_id": submissionID,
		"feedback":      feedback,
	})
	return nil
}

func (s *SubmissionService) requestRevisionTx(tx *gorm.DB, submissionID, feedback string) (string, error) {
	var sub models.TaskSubmission
	if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if err := sub.SetStatus(models.SubmissionNeedsRevision); err != nil {
		return "", err
	}

	now := time.Now()
	sub.Feedback = &feedback
	sub.RevisionCount++
	sub.ReviewedAt = &now
	if err := tx.Save(&sub).Error; err != nil {
		return "", err
	}
	return sub.UserID, nil
}

// Reject terminally declines a submission.
func (s *SubmissionService) Reject(ctx context.Context, submissionID, reason string) error {
	var userID string
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var err error
		userID, err = s.rejectTx(tx, submissionID, reason)
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

func (s *SubmissionService) rejectTx(tx *gorm.DB, submissionID, reason string) (string, error) {
	var sub models.TaskSubmission
	if err := tx.First(&sub, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", ErrNotFound
		}
		return "", err
	}
	if err := sub.SetStatus(models.SubmissionRejected); err != nil {
		return "", err
	}

	now := time.Now()
	sub.Feedback = &reason
	sub.ReviewedAt = &now
	if err := tx.Save(&sub).Error; err != nil {
		return "", err
	}
	return sub.UserID, nil
}

// GetSubmission is a plain read for the detail endpoint.
func (s *SubmissionService) GetSubmission(submissionID string) (*models.TaskSubmission, error) {
	var sub models.TaskSubmission
	if err := s.DB.First(&sub, "id = ?", submissionID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// renderFeedback flattens the generated revision guidance into the
// human-readable feedback string stored on the submission.
func renderFeedback(f *FeedbackResult) string {
	var b strings.Builder
	b.WriteString(f.Feedback)
	if len(f.Strengths) > 0 {
		b.WriteString("\n\nStrengths:\n")
		for _, line := range f.Strengths {
			b.WriteString("- " + line + "\n")
		}
	}
	if len(f.AreasForImprovement) > 0 {
		b.WriteString("\nAreas for improvement:\n")
		for _, line := range f.AreasForImprovement {
			b.WriteString("- " + line + "\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
