// task-verify-system/services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartPaymentScheduler sweeps pending ledger payouts on an interval. Each
// row is processed independently, so a stuck provider only fails its own rows.
func (s *RewardService) StartPaymentScheduler(ctx context.Context, interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.ProcessPendingPayments(ctx)
		}),
	)

	go func() {
		<-ctx.Done()
		if err := sched.Shutdown(); err != nil {
			log.Printf("[Scheduler] shutdown error: %v", err)
		}
	}()
}
