package services

import (
	"context"
	"errors"
	"testing"

	"task-verify-system/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmit_CreatesPendingAndDispatches(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)

	sub := env.submit(t, task.ID, "user-1")
	assert.Equal(t, models.SubmissionPending, sub.Status)
	assert.Equal(t, 0, sub.RevisionCount)
	assert.Equal(t, []string{sub.ID}, env.dispatcher.ids, "verification must be handed off after commit")
}

func TestSubmit_DuplicateSubmission(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)

	env.submit(t, task.ID, "user-1")
	_, err := env.submissions.Submit(context.Background(), task.ID, "user-1", "again", nil)
	assert.ErrorIs(t, err, ErrDuplicateSubmission)

	// A different user on the same task is fine.
	_, err = env.submissions.Submit(context.Background(), task.ID, "user-2", "me too", nil)
	assert.NoError(t, err)
}

func TestSubmit_TaskUnavailable(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.submissions.Submit(context.Background(), "11111111-1111-1111-1111-111111111111", "user-1", "hi", nil)
	assert.ErrorIs(t, err, ErrTaskUnavailable)

	task := env.createTask(t, "community", 100, 5, 10)
	task.Status = models.TaskStatusArchived
	require.NoError(t, env.db.Save(task).Error)

	_, err = env.submissions.Submit(context.Background(), task.ID, "user-1", "hi", nil)
	assert.ErrorIs(t, err, ErrTaskUnavailable)
}

func TestProcessVerification_AutoApprove(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "environment", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: true, Score: 90}
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	got := env.reloadSubmission(t, sub.ID)
	assert.Equal(t, models.SubmissionApproved, got.Status)
	assert.NotNil(t, got.ReviewedAt)

	var dist models.RewardDistribution
	require.NoError(t, env.db.First(&dist, "submission_id = ?", sub.ID).Error)
	assert.Equal(t, 140, dist.XPAwarded) // 100 * (0.9 + 0.5)

	var updatedTask models.Task
	require.NoError(t, env.db.First(&updatedTask, "id = ?", task.ID).Error)
	assert.Equal(t, models.TaskStatusCompleted, updatedTask.Status)

	var historyCount int64
	require.NoError(t, env.db.Model(&models.WorkHistoryEntry{}).
		Where("submission_id = ?", sub.ID).Count(&historyCount).Error)
	assert.EqualValues(t, 1, historyCount)

	var queueCount int64
	require.NoError(t, env.db.Model(&models.VerificationQueueItem{}).
		Where("submission_id = ?", sub.ID).Count(&queueCount).Error)
	assert.Zero(t, queueCount, "auto-approval must not touch the review queue")

	assert.Contains(t, env.notifier.events, EventSubmissionApproved)
}

func TestProcessVerification_GatewayErrorEscalatesHigh(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.verifyErr = errors.New("upstream timeout")
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	got := env.reloadSubmission(t, sub.ID)
	assert.Equal(t, models.SubmissionUnderReview, got.Status, "never stranded in pending, never auto-approved")
	assert.True(t, got.ManualReviewRequired)

	item := env.openQueueItem(t, sub.ID)
	assert.Equal(t, models.PriorityHigh, item.Priority)
}

func TestProcessVerification_FraudEscalation(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: true, Score: 95}
	env.verifier.fraud = &models.FraudAssessment{IsFraudulent: true, RiskLevel: models.RiskMedium}
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	item := env.openQueueItem(t, sub.ID)
	assert.Equal(t, models.PriorityMedium, item.Priority)

	got := env.reloadSubmission(t, sub.ID)
	assert.Equal(t, models.SubmissionUnderReview, got.Status)
	assert.True(t, got.ManualReviewRequired)
	assert.NotNil(t, got.AIVerificationResult)
}

func TestProcessVerification_LowScoreWinsOverCleanFraud(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: true, Score: 60}
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	item := env.openQueueItem(t, sub.ID)
	assert.Equal(t, models.PriorityLow, item.Priority)
}

func TestProcessVerification_MiddlingScoreRequestsRevision(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: true, Score: 75}
	env.verifier.feedback = &FeedbackResult{
		Feedback:            "Close, but the photos don't show the finished work.",
		AreasForImprovement: []string{"Add a photo of the final state"},
	}
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	got := env.reloadSubmission(t, sub.ID)
	assert.Equal(t, models.SubmissionNeedsRevision, got.Status)
	assert.Equal(t, 1, got.RevisionCount)
	require.NotNil(t, got.Feedback)
	assert.Contains(t, *got.Feedback, "Areas for improvement")
	assert.Contains(t, env.notifier.events, EventRevisionRequested)
}

func TestProcessVerification_FeedbackFailureEscalates(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: false, Score: 75}
	env.verifier.feedbackErr = errors.New("model overloaded")
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	item := env.openQueueItem(t, sub.ID)
	assert.Equal(t, models.PriorityHigh, item.Priority)

	got := env.reloadSubmission(t, sub.ID)
	require.NotNil(t, got.AIVerificationResult)
}

func TestProcessVerification_FraudErrorKeepsAIResult(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: true, Score: 82}
	env.verifier.fraudErr = errors.New("heuristic offline")
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	got := env.reloadSubmission(t, sub.ID)
	require.NotNil(t, got.AIVerificationResult, "the score from the successful verify call must survive the escalation")
	assert.InDelta(t, 82.0, got.AIVerificationResult.Score, 1e-9)

	item := env.openQueueItem(t, sub.ID)
	assert.Equal(t, models.PriorityHigh, item.Priority)

	// A reviewer approving without a rating grants at the stored AI score.
	require.NoError(t, env.reviews.Assign(context.Background(), item.ID, "reviewer-a"))
	require.NoError(t, env.reviews.ApproveSubmission(context.Background(), item.ID, "reviewer-a", nil, ""))

	var dist models.RewardDistribution
	require.NoError(t, env.db.First(&dist, "submission_id = ?", sub.ID).Error)
	assert.Equal(t, 132, dist.XPAwarded) // 100 * (0.82 + 0.5)
}

func TestProcessVerification_SkipsNonPending(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: true, Score: 90}
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	var count int64
	require.NoError(t, env.db.Model(&models.RewardDistribution{}).
		Where("submission_id = ?", sub.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count, "replayed verification must not double-grant")
}

func TestApprove_IdempotentSecondCall(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: true, Score: 90}
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	require.NoError(t, env.submissions.Approve(context.Background(), sub.ID, 90))

	var count int64
	require.NoError(t, env.db.Model(&models.RewardDistribution{}).
		Where("submission_id = ?", sub.ID).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestResubmit_ResetsForNewVerification(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	env.verifier.outcome = &models.VerificationOutcome{Passed: false, Score: 72}
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))
	require.Equal(t, models.SubmissionNeedsRevision, env.reloadSubmission(t, sub.ID).Status)

	updated, err := env.submissions.Resubmit(context.Background(), sub.ID, "user-1", "better evidence", []string{"https://cdn.example/evidence/2.jpg"})
	require.NoError(t, err)

	assert.Equal(t, models.SubmissionPending, updated.Status)
	assert.Nil(t, updated.Feedback)
	assert.Nil(t, updated.AIVerificationResult)
	assert.False(t, updated.ManualReviewRequired)
	assert.Equal(t, 1, updated.RevisionCount, "revision count tracks revision requests")
	assert.Equal(t, "better evidence", updated.SubmissionText)
	assert.Contains(t, env.dispatcher.ids, sub.ID)
	assert.Len(t, env.dispatcher.ids, 2)
}

func TestResubmit_NotEligible(t *testing.T) {
	env := newTestEnv(t)
	task := env.createTask(t, "community", 100, 5, 10)
	sub := env.submit(t, task.ID, "user-1")

	// Wrong status.
	_, err := env.submissions.Resubmit(context.Background(), sub.ID, "user-1", "x", nil)
	assert.ErrorIs(t, err, ErrNotEligible)

	env.verifier.outcome = &models.VerificationOutcome{Passed: false, Score: 75}
	require.NoError(t, env.submissions.ProcessVerification(context.Background(), sub.ID))

	// Wrong user.
	_, err = env.submissions.Resubmit(context.Background(), sub.ID, "user-2", "x", nil)
	assert.ErrorIs(t, err, ErrNotEligible)
}

func TestStatusTransitions_TableEnforced(t *testing.T) {
	assert.True(t, models.CanTransition(models.SubmissionPending, models.SubmissionUnderReview))
	assert.True(t, models.CanTransition(models.SubmissionUnderReview, models.SubmissionApproved))
	assert.True(t, models.CanTransition(models.SubmissionNeedsRevision, models.SubmissionPending))

	assert.False(t, models.CanTransition(models.SubmissionApproved, models.SubmissionPending))
	assert.False(t, models.CanTransition(models.SubmissionRejected, models.SubmissionUnderReview))
	assert.False(t, models.CanTransition(models.SubmissionPending, models.SubmissionApproved))

	sub := &models.TaskSubmission{Status: models.SubmissionApproved}
	assert.Error(t, sub.SetStatus(models.SubmissionPending))
	assert.Equal(t, models.SubmissionApproved, sub.Status, "failed transition must not mutate")
}
