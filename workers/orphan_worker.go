// workers/orphan_worker.go
package workers

import (
	"log"
	"time"

	"sniper-console/services"

	"github.com/go-co-op/gocron/v2"
)

// OrphanWorker deactivates watch entries whose wallet row is gone.
// Rotation orphans the old wallet's entries on purpose; this sweep keeps
// them from accumulating.
type OrphanWorker struct {
	Watchlist *services.WatchlistService
}

func NewOrphanWorker(watchlist *services.WatchlistService) *OrphanWorker {
	return &OrphanWorker{Watchlist: watchlist}
}

func (w *OrphanWorker) Schedule(sched gocron.Scheduler) {
	_, err := sched.NewJob(
		gocron.DurationJob(10*time.Minute),
		gocron.NewTask(w.Sweep),
	)
	if err != nil {
		log.Printf("❌ [ORPHANS] failed to schedule sweep: %v", err)
	}
}

func (w *OrphanWorker) Sweep() {
	count, err := w.Watchlist.DeactivateOrphans()
	if err != nil {
		log.Printf("❌ [ORPHANS] sweep failed: %v", err)
		return
	}
	if count > 0 {
		log.Printf("🧹 [ORPHANS] deactivated %d orphaned watch entries", count)
	}
}
