// workers/heartbeat_worker.go
package workers

import (
	"log"
	"os"
	"strconv"
	"time"

	"sniper-console/models"
	"sniper-console/services"

	"github.com/go-co-op/gocron/v2"
)

// HeartbeatWorker watches for running snipers whose executor heartbeat
// has gone stale. Whether that auto-stops the sniper is a deployment
// policy, not hard-coded: HEARTBEAT_AUTOSTOP=true enables remediation,
// otherwise staleness is only detected and logged.
type HeartbeatWorker struct {
	Sniper   *services.SniperService
	Activity *services.ActivityService

	AutoStop  bool
	Threshold time.Duration
}

func NewHeartbeatWorker(sniper *services.SniperService, activity *services.ActivityService) *HeartbeatWorker {
	threshold := 90 * time.Second
	if raw := os.Getenv("HEARTBEAT_STALE_SECONDS"); raw != "" {
		if secs, err := strconv.Atoi(raw); err == nil && secs > 0 {
			threshold = time.Duration(secs) * time.Second
		}
	}
	return &HeartbeatWorker{
		Sniper:    sniper,
		Activity:  activity,
		AutoStop:  os.Getenv("HEARTBEAT_AUTOSTOP") == "true",
		Threshold: threshold,
	}
}

// Schedule registers the sweep on the shared scheduler.
func (w *HeartbeatWorker) Schedule(sched gocron.Scheduler) {
	_, err := sched.NewJob(
		gocron.DurationJob(30*time.Second),
		gocron.NewTask(w.Sweep),
	)
	if err != nil {
		log.Printf("❌ [HEARTBEAT] failed to schedule sweep: %v", err)
	}
}

// Sweep runs one staleness pass.
func (w *HeartbeatWorker) Sweep() {
	stale, err := w.Sniper.StaleRunning(w.Threshold)
	if err != nil {
		log.Printf("❌ [HEARTBEAT] sweep failed: %v", err)
		return
	}

	for _, status := range stale {
		age := time.Since(status.LastHeartbeat).Round(time.Second)
		if !w.AutoStop {
			log.Printf("⚠️ [HEARTBEAT] %s running with stale heartbeat (%s old)", status.WalletAddress, age)
			continue
		}

		if err := w.Sniper.Stop(status.WalletAddress); err != nil {
			log.Printf("❌ [HEARTBEAT] failed to stop %s: %v", status.WalletAddress, err)
			continue
		}
		w.Activity.Log(status.WalletAddress, models.LogWarning,
			"Sniper stopped automatically: executor heartbeat went stale", map[string]any{
				"heartbeat_age_seconds": int(age.Seconds()),
			})
		log.Printf("🛑 [HEARTBEAT] auto-stopped %s (heartbeat %s old)", status.WalletAddress, age)
	}
}
