// services/activity_service.go
package services

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"sniper-console/models"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// FeedEntry is the common projection of the two append-only streams
// (activity_logs and trade_logs) shown as one dashboard feed.
type FeedEntry struct {
	ID            string         `json:"id"`
	WalletAddress string         `json:"wallet_address"`
	LogType       string         `json:"log_type"`
	Message       string         `json:"message"`
	Metadata      map[string]any `json:"metadata"`
	CreatedAt     time.Time      `json:"created_at"`
}

// ActivityService appends to and reads the activity/trade streams. Rows
// are never updated or deleted here.
type ActivityService struct {
	DB *gorm.DB
}

func NewActivityService(db *gorm.DB) *ActivityService {
	return &ActivityService{DB: db}
}

// Log appends one activity record. Logging failures are reported but not
// propagated — a missing feed line must not fail the action it annotates.
func (s *ActivityService) Log(address, logType, message string, metadata map[string]any) {
	record := models.ActivityLog{
		ID:            uuid.NewString(),
		WalletAddress: address,
		LogType:       logType,
		Message:       message,
		Metadata:      metadata,
		CreatedAt:     time.Now().UTC(),
	}
	if err := s.DB.Create(&record).Error; err != nil {
		log.Printf("❌ [ACTIVITY] failed to log %s for %s: %v", logType, address, err)
	}
}

// LogTrade appends one trade record on behalf of the executor.
func (s *ActivityService) LogTrade(trade models.TradeLog) error {
	if trade.ID == "" {
		trade.ID = uuid.NewString()
	}
	if trade.CreatedAt.IsZero() {
		trade.CreatedAt = time.Now().UTC()
	}
	if err := s.DB.Create(&trade).Error; err != nil {
		return fmt.Errorf("failed to log trade: %w", err)
	}
	return nil
}

// Feed returns the merged, time-descending view of both streams.
func (s *ActivityService) Feed(address string, limit int) ([]FeedEntry, error) {
	if limit <= 0 {
		limit = 50
	}

	var activities []models.ActivityLog
	if err := s.DB.Where("wallet_address = ?", address).
		Order("created_at DESC").Limit(limit).
		Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch activity logs: %w", err)
	}

	var trades []models.TradeLog
	if err := s.DB.Where("wallet_address = ?", address).
		Order("created_at DESC").Limit(limit).
		Find(&trades).Error; err != nil {
		// Trade stream down: still show what we have.
		log.Printf("⚠️ [ACTIVITY] trade log fetch failed for %s: %v", address, err)
		return MergeFeed(activities, nil, limit), nil
	}

	return MergeFeed(activities, trades, limit), nil
}

// MergeFeed projects trade rows into feed entries, merges them with
// activity rows and sorts descending by timestamp. Pure function over the
// two slices.
func MergeFeed(activities []models.ActivityLog, trades []models.TradeLog, limit int) []FeedEntry {
	merged := make([]FeedEntry, 0, len(activities)+len(trades))

	for _, a := range activities {
		merged = append(merged, FeedEntry{
			ID:            a.ID,
			WalletAddress: a.WalletAddress,
			LogType:       a.LogType,
			Message:       a.Message,
			Metadata:      a.Metadata,
			CreatedAt:     a.CreatedAt,
		})
	}
	for _, t := range trades {
		merged = append(merged, FeedEntry{
			ID:            "trade-" + t.ID,
			WalletAddress: t.WalletAddress,
			LogType:       tradeLogType(t),
			Message:       tradeMessage(t),
			CreatedAt:     t.CreatedAt,
		})
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].CreatedAt.After(merged[j].CreatedAt)
	})
	if len(merged) > limit {
		merged = merged[:limit]
	}
	return merged
}

func tradeLogType(t models.TradeLog) string {
	if t.Action == models.TradeFailed || t.Status == models.TradeStatusFailed {
		return models.LogError
	}
	return models.LogSuccess
}

func tradeMessage(t models.TradeLog) string {
	mint := t.MintAddress
	if len(mint) > 8 {
		mint = mint[:8] + "..."
	}
	switch {
	case t.Action == models.TradeFailed || t.Status == models.TradeStatusFailed:
		reason := "Unknown error"
		if t.ErrorMessage != nil && *t.ErrorMessage != "" {
			reason = *t.ErrorMessage
		}
		return fmt.Sprintf("Trade Failed: %s (%s)", reason, mint)
	case t.Action == models.TradeSell:
		return fmt.Sprintf("Sold %g SOL of %s", t.AmountSol, mint)
	default:
		return fmt.Sprintf("Bought %g SOL of %s", t.AmountSol, mint)
	}
}

// FeedSince returns merged feed entries from both streams newer than the
// cursor, oldest first, so a tail can emit them in arrival order.
func (s *ActivityService) FeedSince(address string, cursor time.Time) ([]FeedEntry, error) {
	var activities []models.ActivityLog
	if err := s.DB.Where("wallet_address = ? AND created_at > ?", address, cursor).
		Order("created_at ASC").Find(&activities).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch activity logs: %w", err)
	}

	var trades []models.TradeLog
	if err := s.DB.Where("wallet_address = ? AND created_at > ?", address, cursor).
		Order("created_at ASC").Find(&trades).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch trade logs: %w", err)
	}

	merged := MergeFeed(activities, trades, len(activities)+len(trades))
	// MergeFeed is newest-first; the tail wants arrival order.
	for i, j := 0, len(merged)-1; i < j; i, j = i+1, j-1 {
		merged[i], merged[j] = merged[j], merged[i]
	}
	return merged, nil
}

// StreamFeedSSE streams new feed entries (activity and trades alike) for
// the session wallet over server-sent events, in the fasthttp
// stream-writer style.
func (s *ActivityService) StreamFeedSSE(c *fiber.Ctx) error {
	address := c.Locals("wallet_address").(string)

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()

		cursor := time.Now().UTC()
		if head, err := s.Feed(address, 1); err == nil && len(head) > 0 {
			cursor = head[0].CreatedAt
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				fresh, err := s.FeedSince(address, cursor)
				if err != nil {
					log.Printf("SSE query error for %s: %v", address, err)
					continue
				}
				if len(fresh) == 0 {
					continue
				}
				cursor = fresh[len(fresh)-1].CreatedAt

				for _, entry := range fresh {
					payload, _ := json.Marshal(entry)
					fmt.Fprintf(w, "event: activity\ndata: %s\n\n", payload)
				}
				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
