// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartCheckinScheduler triggers one run per day at the given UTC hour.
// Each invocation starts a fresh run; there is no resumption of a
// partially completed one.
func (s *CheckinService) StartCheckinScheduler(ctx context.Context, hourUTC, minuteUTC int) {
	sched, _ := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DailyJob(1, gocron.NewAtTimes(
			gocron.NewAtTime(uint(hourUTC), uint(minuteUTC), 0),
		)),
		gocron.NewTask(func() {
			report, err := s.Run(ctx)
			if err != nil {
				log.Printf("[Scheduler] ❌ Scheduled run failed: %v", err)
				return
			}
			log.Printf("[Scheduler] ✅ Scheduled run %s: %d account(s), %d claimed",
				report.RunID, len(report.Outcomes), report.Claimed())
		}),
	)

	log.Printf("[Scheduler] ⏰ Daily check-in scheduled for %02d:%02d UTC", hourUTC, minuteUTC)
}
