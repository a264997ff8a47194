// services/scheduler.go
package services

import (
	"log"
	"time"

	"tile-event-system/models"

	"github.com/go-co-op/gocron/v2"
)

// StartSyncScheduler runs the periodic sheet auto-sync: every interval it
// re-imports the tile path of active events that opted in. One event failing
// never blocks the others.
func (s *SheetService) StartSyncScheduler(interval time.Duration) {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			var events []models.Event
			err := s.DB.Where("active = ? AND sheet_auto_sync = ? AND sheet_id <> ''", true, true).
				Find(&events).Error
			if err != nil {
				log.Printf("[SHEET_SYNC] DB error: %v", err)
				return
			}

			for _, ev := range events {
				if _, err := s.SyncEvent(ev.ID); err != nil {
					log.Printf("[SHEET_SYNC] Failed to sync event %s: %v", ev.ID, err)
				}
			}
		}),
	)
}
