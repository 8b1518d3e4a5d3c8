// session/engine.go
package session

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"sniper-console/models"
	"sniper-console/services"
)

// Poll cadences for the three read loops. Overridable per engine so
// tests can run them fast.
const (
	DefaultBalanceInterval = 10 * time.Second
	DefaultPriceInterval   = 15 * time.Second
	DefaultLogInterval     = 5 * time.Second

	feedLimit = 50
)

// ErrBusy means the same mutating action was invoked while a previous
// invocation was still in flight. The second call is ignored, not queued.
var ErrBusy = errors.New("action already in flight")

// Action kinds guarded by the per-session in-flight flags.
const (
	actionToggle   = "toggle"
	actionWatch    = "watch"
	actionSettings = "settings"
	actionRotate   = "rotate"
)

// Deps bundles the services an engine drives.
type Deps struct {
	Wallets   *services.WalletService
	Sniper    *services.SniperService
	Watchlist *services.WatchlistService
	Settings  *services.SettingsService
	Activity  *services.ActivityService
	Prices    *services.PriceService
	Balance   *services.BalanceService
}

// View is the merged dashboard projection for one session.
type View struct {
	WalletAddress string                         `json:"wallet_address"`
	HasKey        bool                           `json:"has_key"`
	Balance       *float64                       `json:"sol_balance"`
	IsRunning     bool                           `json:"is_running"`
	Settings      models.UserSettings            `json:"settings"`
	Watchlist     []models.WatchlistItem         `json:"watchlist"`
	TokenStats    map[string]services.TokenStats `json:"token_stats"`
	Logs          []services.FeedEntry           `json:"logs"`
}

// Engine keeps one signed-in session's local view consistent with the
// canonical rows. It owns three polling loops (balance, prices, logs)
// and serializes every mutating action through an in-flight flag so the
// same session never races two mutations of the same row. All loops stop
// deterministically on Close.
type Engine struct {
	PrincipalID string

	BalanceInterval time.Duration
	PriceInterval   time.Duration
	LogInterval     time.Duration

	deps Deps

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu   sync.Mutex
	view View

	flagMu   sync.Mutex
	inflight map[string]bool

	lastSeen time.Time
}

// NewEngine builds an engine for a principal already bound to a wallet.
func NewEngine(principalID, walletAddress string, deps Deps) *Engine {
	e := &Engine{
		PrincipalID:     principalID,
		BalanceInterval: DefaultBalanceInterval,
		PriceInterval:   DefaultPriceInterval,
		LogInterval:     DefaultLogInterval,
		deps:            deps,
		inflight:        make(map[string]bool),
		lastSeen:        time.Now(),
	}
	e.view.WalletAddress = walletAddress
	e.view.TokenStats = make(map[string]services.TokenStats)
	return e
}

// Start loads the once-per-session state (status, watchlist, settings,
// first balance/prices/logs) and spawns the polling loops.
func (e *Engine) Start(parent context.Context) error {
	e.ctx, e.cancel = context.WithCancel(parent)

	if err := e.loadInitial(); err != nil {
		e.cancel()
		return err
	}

	e.wg.Add(3)
	go e.balanceLoop()
	go e.priceLoop()
	go e.logLoop()
	return nil
}

// Close tears the session down: every loop is cancelled and Close only
// returns once all of them have exited, so no timer fires afterwards.
func (e *Engine) Close() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// Snapshot returns a copy of the merged view.
func (e *Engine) Snapshot() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastSeen = time.Now()

	view := e.view
	view.Watchlist = append([]models.WatchlistItem(nil), e.view.Watchlist...)
	view.Logs = append([]services.FeedEntry(nil), e.view.Logs...)
	view.TokenStats = make(map[string]services.TokenStats, len(e.view.TokenStats))
	for mint, stats := range e.view.TokenStats {
		view.TokenStats[mint] = stats
	}
	return view
}

func (e *Engine) address() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.view.WalletAddress
}

func (e *Engine) loadInitial() error {
	address := e.address()

	status, err := e.deps.Sniper.Get(address)
	if err != nil {
		return err
	}
	settings, err := e.deps.Settings.Get(address)
	if err != nil {
		return err
	}
	watchlist, err := e.deps.Watchlist.Active(address)
	if err != nil {
		return err
	}
	hasKey, err := e.deps.Wallets.HasKey(address)
	if err != nil && !errors.Is(err, services.ErrNotFound) {
		return err
	}

	e.mu.Lock()
	e.view.IsRunning = status.IsRunning
	e.view.Settings = settings
	e.view.Watchlist = watchlist
	e.view.HasKey = hasKey
	e.mu.Unlock()

	// First reads of the polled projections; failures here are
	// non-fatal, the loops will try again.
	e.refreshBalance()
	e.refreshPrices()
	e.refreshLogs()
	return nil
}

// ------------------------------------------------------------------
// Polling loops
// ------------------------------------------------------------------

func (e *Engine) balanceLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.BalanceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.refreshBalance()
		}
	}
}

func (e *Engine) priceLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.PriceInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.refreshPrices()
		}
	}
}

func (e *Engine) logLoop() {
	defer e.wg.Done()
	ticker := time.NewTicker(e.LogInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			// Only poll the feed while the sniper runs; manual refresh
			// stays available either way.
			e.mu.Lock()
			running := e.view.IsRunning
			e.mu.Unlock()
			if running {
				e.refreshLogs()
			}
		}
	}
}

func (e *Engine) refreshBalance() {
	address := e.address()
	if address == "" {
		return
	}
	balance, err := e.deps.Balance.GetBalance(e.ctx, address)
	if err != nil {
		log.Printf("⚠️ [SESSION %s] balance fetch failed: %v", e.PrincipalID, err)
		return
	}
	e.mu.Lock()
	e.view.Balance = &balance
	e.mu.Unlock()
}

func (e *Engine) refreshPrices() {
	e.mu.Lock()
	mints := make([]string, 0, len(e.view.Watchlist))
	for _, item := range e.view.Watchlist {
		mints = append(mints, item.MintAddress)
	}
	e.mu.Unlock()
	if len(mints) == 0 {
		e.mu.Lock()
		e.view.TokenStats = map[string]services.TokenStats{}
		e.mu.Unlock()
		return
	}

	stats, err := e.deps.Prices.FetchTokenStats(e.ctx, mints)
	if err != nil {
		log.Printf("⚠️ [SESSION %s] price fetch failed: %v", e.PrincipalID, err)
		return
	}

	// Rebuild so quotes for unwatched mints fall out; a watched mint the
	// feed skipped this round keeps its last quote.
	e.mu.Lock()
	next := make(map[string]services.TokenStats, len(mints))
	for _, mint := range mints {
		if s, ok := stats[mint]; ok {
			next[mint] = s
		} else if prev, ok := e.view.TokenStats[mint]; ok {
			next[mint] = prev
		}
	}
	e.view.TokenStats = next
	e.mu.Unlock()
}

func (e *Engine) refreshLogs() {
	address := e.address()
	logs, err := e.deps.Activity.Feed(address, feedLimit)
	if err != nil {
		log.Printf("⚠️ [SESSION %s] feed fetch failed: %v", e.PrincipalID, err)
		return
	}
	e.mu.Lock()
	e.view.Logs = logs
	e.mu.Unlock()
}

// RefreshLogs is the manual refresh, available regardless of run state.
func (e *Engine) RefreshLogs() {
	e.refreshLogs()
}

// ------------------------------------------------------------------
// Serialized write path
// ------------------------------------------------------------------

// acquire sets the in-flight flag for an action kind; false means a
// previous invocation is still pending and this one must be dropped.
func (e *Engine) acquire(action string) bool {
	e.flagMu.Lock()
	defer e.flagMu.Unlock()
	if e.inflight[action] {
		return false
	}
	e.inflight[action] = true
	return true
}

// release clears the flag. Deferred on every action so the flag is freed
// on all exit paths.
func (e *Engine) release(action string) {
	e.flagMu.Lock()
	e.inflight[action] = false
	e.flagMu.Unlock()
}

// ToggleSniper starts a stopped sniper and stops a running one. A wallet
// without key material is switched to custodial signing before the first
// start. The visible run state and feed are re-read from the canonical
// rows afterwards, never echoed optimistically.
func (e *Engine) ToggleSniper() error {
	if !e.acquire(actionToggle) {
		return ErrBusy
	}
	defer e.release(actionToggle)

	address := e.address()
	e.mu.Lock()
	running := e.view.IsRunning
	hasKey := e.view.HasKey
	e.mu.Unlock()

	if running {
		if err := e.deps.Sniper.Stop(address); err != nil {
			return err
		}
	} else {
		if !hasKey {
			if err := e.deps.Wallets.MarkCustodial(address); err != nil {
				return err
			}
			e.mu.Lock()
			e.view.HasKey = true
			e.mu.Unlock()
		}
		if err := e.deps.Sniper.Start(address); err != nil {
			return err
		}
	}

	status, err := e.deps.Sniper.Get(address)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.view.IsRunning = status.IsRunning
	e.mu.Unlock()

	e.refreshLogs()
	return nil
}

// AddWatch adds a token to the watchlist, then re-reads the canonical
// watchlist and feed and fetches a first quote for the new mint set.
func (e *Engine) AddWatch(mint string, buyAmount float64) error {
	if !e.acquire(actionWatch) {
		return ErrBusy
	}
	defer e.release(actionWatch)

	address := e.address()
	if _, err := e.deps.Watchlist.Add(address, mint, buyAmount); err != nil {
		return err
	}
	return e.reloadWatch(address)
}

// RemoveWatch soft-deletes a watch entry, with the same re-reads.
func (e *Engine) RemoveWatch(mint string) error {
	if !e.acquire(actionWatch) {
		return ErrBusy
	}
	defer e.release(actionWatch)

	address := e.address()
	if err := e.deps.Watchlist.Remove(address, mint); err != nil {
		return err
	}
	return e.reloadWatch(address)
}

func (e *Engine) reloadWatch(address string) error {
	watchlist, err := e.deps.Watchlist.Active(address)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.view.Watchlist = watchlist
	e.mu.Unlock()

	e.refreshPrices()
	e.refreshLogs()
	return nil
}

// SaveSettings upserts the whole settings row and re-reads it.
func (e *Engine) SaveSettings(settings models.UserSettings) error {
	if !e.acquire(actionSettings) {
		return ErrBusy
	}
	defer e.release(actionSettings)

	address := e.address()
	settings.WalletAddress = address
	if err := e.deps.Settings.Save(settings); err != nil {
		return err
	}

	e.deps.Activity.Log(address, models.LogSuccess, "Settings saved!", nil)

	saved, err := e.deps.Settings.Get(address)
	if err != nil {
		return err
	}
	e.mu.Lock()
	e.view.Settings = saved
	e.mu.Unlock()

	e.refreshLogs()
	return nil
}

// RotateWallet replaces the bound wallet. The local address pointer only
// moves once the rotation protocol reports the new row committed; an
// incomplete rotation (missing settings/status rows) still moves it,
// since those read as defaults.
func (e *Engine) RotateWallet(newAddress, newPlaintextKey string) error {
	if !e.acquire(actionRotate) {
		return ErrBusy
	}
	defer e.release(actionRotate)

	err := e.deps.Wallets.Rotate(e.PrincipalID, newAddress, newPlaintextKey)
	if err != nil && !errors.Is(err, services.ErrRotationIncomplete) {
		// The new wallet row never committed — keep pointing at
		// whatever the server has (possibly nothing) and surface the
		// retryable failure.
		return err
	}
	rotationErr := err

	e.mu.Lock()
	e.view.WalletAddress = newAddress
	e.view.HasKey = true
	e.view.Balance = nil
	e.view.IsRunning = false
	e.view.Watchlist = nil
	e.view.TokenStats = make(map[string]services.TokenStats)
	e.view.Logs = nil
	e.mu.Unlock()

	if err := e.loadInitial(); err != nil {
		return fmt.Errorf("wallet rotated but reload failed: %w", err)
	}
	return rotationErr
}
