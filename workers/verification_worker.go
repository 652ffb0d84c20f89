package workers

import (
	"context"
	"log"
	"time"

	"task-verify-system/models"
	"task-verify-system/services"

	"gorm.io/gorm"
)

// VerificationWorker is the in-process handoff between a committed submission
// and its background verification run. Submissions arrive on a channel from
// the post-commit side of Submit/Resubmit; a periodic sweep re-enqueues
// anything stranded in pending by a crash between commit and dispatch.
type VerificationWorker struct {
	DB          *gorm.DB
	Submissions *services.SubmissionService

	Concurrency   int
	GracePeriod   time.Duration
	SweepInterval time.Duration

	queue chan string
}

func NewVerificationWorker(db *gorm.DB, submissions *services.SubmissionService) *VerificationWorker {
	return &VerificationWorker{
		DB:            db,
		Submissions:   submissions,
		Concurrency:   4,
		GracePeriod:   5 * time.Minute,
		SweepInterval: time.Minute,
		queue:         make(chan string, 256),
	}
}

// EnqueueVerification hands a submission to the worker pool without blocking
// the caller. A full queue is dropped here and recovered by the sweep.
func (w *VerificationWorker) EnqueueVerification(submissionID string) {
	select {
	case w.queue <- submissionID:
	default:
		log.Printf("⚠️ verification queue full, submission %s left for recovery sweep", submissionID)
	}
}

// Start runs the consumer pool and the recovery sweep until ctx is cancelled.
func (w *VerificationWorker) Start(ctx context.Context) {
	log.Printf("Starting verification worker (%d consumers, sweep every %s)...", w.Concurrency, w.SweepInterval)

	for i := 0; i < w.Concurrency; i++ {
		go w.consume(ctx)
	}

	ticker := time.NewTicker(w.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Verification worker stopped.")
			return
		case <-ticker.C:
			w.sweepStranded(ctx)
		}
	}
}

func (w *VerificationWorker) consume(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case id := <-w.queue:
			if err := w.Submissions.ProcessVerification(ctx, id); err != nil {
				log.Printf("❌ verification of submission %s failed: %v", id, err)
			}
		}
	}
}

// sweepStranded re-enqueues pending submissions older than the grace period
// that have no verification result and no open review item. This is the
// recovery path for a crash between the submit commit and the dispatch.
func (w *VerificationWorker) sweepStranded(ctx context.Context) {
	cutoff := time.Now().Add(-w.GracePeriod)

	openItems := w.DB.Model(&models.VerificationQueueItem{}).
		Select("submission_id").
		Where("completed_at IS NULL")

	var stranded []models.TaskSubmission
	err := w.DB.
		Where("status = ? AND submitted_at < ?", models.SubmissionPending, cutoff).
		Where("ai_verification_result IS NULL").
		Where("id NOT IN (?)", openItems).
		Limit(100).
		Find(&stranded).Error
	if err != nil {
		log.Printf("❌ recovery sweep query failed: %v", err)
		return
	}
	if len(stranded) == 0 {
		return
	}

	log.Printf("🔁 recovery sweep re-dispatching %d stranded submission(s)", len(stranded))
	for _, sub := range stranded {
		select {
		case <-ctx.Done():
			return
		case w.queue <- sub.ID:
		}
	}
}
