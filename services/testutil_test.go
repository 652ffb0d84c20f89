package services

import (
	"context"
	"fmt"
	"testing"

	"task-verify-system/models"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens an isolated in-memory database per test.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.Task{},
		&models.TaskSubmission{},
		&models.VerificationQueueItem{},
		&models.UserStats{},
		&models.RewardDistribution{},
		&models.Badge{},
		&models.UserBadge{},
		&models.Zone{},
		&models.WorkHistoryEntry{},
		&models.TaskFeedback{},
	))
	require.NoError(t, SeedCatalogs(db))
	return db
}

// stubVerifier is a scriptable VerificationGateway.
type stubVerifier struct {
	outcome  *models.VerificationOutcome
	fraud    *models.FraudAssessment
	feedback *FeedbackResult

	verifyErr   error
	fraudErr    error
	feedbackErr error
}

func (s *stubVerifier) Verify(ctx context.Context, sub *models.TaskSubmission, task *models.Task) (*models.VerificationOutcome, error) {
	if s.verifyErr != nil {
		return nil, s.verifyErr
	}
	return s.outcome, nil
}

func (s *stubVerifier) DetectFraud(ctx context.Context, sub *models.TaskSubmission, task *models.Task, recent []models.TaskSubmission) (*models.FraudAssessment, error) {
	if s.fraudErr != nil {
		return nil, s.fraudErr
	}
	if s.fraud == nil {
		return &models.FraudAssessment{RiskLevel: models.RiskLow}, nil
	}
	return s.fraud, nil
}

func (s *stubVerifier) GenerateFeedback(ctx context.Context, sub *models.TaskSubmission, task *models.Task, result *models.VerificationOutcome) (*FeedbackResult, error) {
	if s.feedbackErr != nil {
		return nil, s.feedbackErr
	}
	if s.feedback == nil {
		return &FeedbackResult{Feedback: "needs work"}, nil
	}
	return s.feedback, nil
}

// stubNotifier records events; delivery is best-effort everywhere.
type stubNotifier struct {
	events []string
}

func (s *stubNotifier) Notify(ctx context.Context, userID, event string, payload map[string]interface{}) error {
	s.events = append(s.events, event)
	return nil
}

// stubPayments marks selected distributions as failing at the provider.
type stubPayments struct {
	failIDs map[string]bool
	calls   int
}

func (s *stubPayments) ProcessPayout(ctx context.Context, dist *models.RewardDistribution) error {
	s.calls++
	if s.failIDs[dist.ID] {
		return fmt.Errorf("provider rejected payout %s", dist.ID)
	}
	return nil
}

// stubDispatcher records handoffs; tests drive ProcessVerification directly.
type stubDispatcher struct {
	ids []string
}

func (s *stubDispatcher) EnqueueVerification(submissionID string) {
	s.ids = append(s.ids, submissionID)
}

type testEnv struct {
	db          *gorm.DB
	verifier    *stubVerifier
	notifier    *stubNotifier
	payments    *stubPayments
	dispatcher  *stubDispatcher
	rewards     *RewardService
	reviews     *ReviewQueueService
	submissions *SubmissionService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		db:         setupTestDB(t),
		verifier:   &stubVerifier{},
		notifier:   &stubNotifier{},
		payments:   &stubPayments{failIDs: map[string]bool{}},
		dispatcher: &stubDispatcher{},
	}
	env.rewards = NewRewardService(env.db, env.payments)
	env.reviews = NewReviewQueueService(env.db, env.notifier)
	env.submissions = NewSubmissionService(env.db, env.verifier, env.notifier, env.rewards, env.reviews)
	env.reviews.Submissions = env.submissions
	env.submissions.Dispatcher = env.dispatcher
	return env
}

func (e *testEnv) createTask(t *testing.T, category string, xp, trust, rwis int) *models.Task {
	t.Helper()
	task := &models.Task{
		ID:       uuid.NewString(),
		Title:    "Plant a tree",
		Category: category,
		Status:   models.TaskStatusOpen,
		Rewards: models.TaskRewards{
			XP:              xp,
			TrustScoreBonus: trust,
			RwisPoints:      rwis,
		},
	}
	require.NoError(t, e.db.Create(task).Error)
	return task
}

func (e *testEnv) submit(t *testing.T, taskID, userID string) *models.TaskSubmission {
	t.Helper()
	sub, err := e.submissions.Submit(context.Background(), taskID, userID, "done, see photos", []string{"https://cdn.example/evidence/1.jpg"})
	require.NoError(t, err)
	return sub
}

func (e *testEnv) reloadSubmission(t *testing.T, id string) *models.TaskSubmission {
	t.Helper()
	var sub models.TaskSubmission
	require.NoError(t, e.db.First(&sub, "id = ?", id).Error)
	return &sub
}

func (e *testEnv) openQueueItem(t *testing.T, submissionID string) *models.VerificationQueueItem {
	t.Helper()
	var item models.VerificationQueueItem
	require.NoError(t, e.db.First(&item, "submission_id = ? AND completed_at IS NULL", submissionID).Error)
	return &item
}
