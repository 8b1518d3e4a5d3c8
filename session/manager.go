// session/manager.go
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"sniper-console/services"
)

// Manager keys live engines by principal so HTTP handlers attach to the
// same session across requests. Idle sessions are evicted and their
// polling loops torn down.
type Manager struct {
	deps Deps

	mu      sync.Mutex
	engines map[string]*Engine

	idleAfter time.Duration
	ctx       context.Context
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

func NewManager(deps Deps) *Manager {
	return &Manager{
		deps:      deps,
		engines:   make(map[string]*Engine),
		idleAfter: 30 * time.Minute,
	}
}

// Start launches the idle-eviction sweep.
func (m *Manager) Start(parent context.Context) {
	m.ctx, m.cancel = context.WithCancel(parent)
	m.wg.Add(1)
	go m.evictLoop()
}

// Get returns the live engine for a principal, creating one when the
// principal has a bound wallet. services.ErrNotFound means no wallet:
// the caller should send the user to onboarding.
func (m *Manager) Get(principalID string) (*Engine, error) {
	m.mu.Lock()
	if engine, ok := m.engines[principalID]; ok {
		m.mu.Unlock()
		return engine, nil
	}
	m.mu.Unlock()

	user, err := m.deps.Wallets.GetByPrincipal(principalID)
	if err != nil {
		return nil, err
	}

	engine := NewEngine(principalID, user.WalletAddress, m.deps)
	if err := engine.Start(m.ctx); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.engines[principalID]; ok {
		// Lost a create race; keep the first engine.
		go engine.Close()
		return existing, nil
	}
	m.engines[principalID] = engine
	return engine, nil
}

// Drop closes and forgets a principal's engine (sign-out, re-onboarding).
func (m *Manager) Drop(principalID string) {
	m.mu.Lock()
	engine, ok := m.engines[principalID]
	delete(m.engines, principalID)
	m.mu.Unlock()
	if ok {
		engine.Close()
	}
}

// Shutdown closes every engine and stops the eviction sweep.
func (m *Manager) Shutdown() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()

	m.mu.Lock()
	engines := make([]*Engine, 0, len(m.engines))
	for _, engine := range m.engines {
		engines = append(engines, engine)
	}
	m.engines = make(map[string]*Engine)
	m.mu.Unlock()

	for _, engine := range engines {
		engine.Close()
	}
}

func (m *Manager) evictLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-m.ctx.Done():
			return
		case <-ticker.C:
			m.evictIdle()
		}
	}
}

func (m *Manager) evictIdle() {
	cutoff := time.Now().Add(-m.idleAfter)

	m.mu.Lock()
	var idle []*Engine
	for principalID, engine := range m.engines {
		engine.mu.Lock()
		last := engine.lastSeen
		engine.mu.Unlock()
		if last.Before(cutoff) {
			idle = append(idle, engine)
			delete(m.engines, principalID)
		}
	}
	m.mu.Unlock()

	for _, engine := range idle {
		log.Printf("🧹 [SESSION] evicting idle session for %s", engine.PrincipalID)
		engine.Close()
	}
}

// Deps re-exported so main can build them once.
func BuildDeps(
	wallets *services.WalletService,
	sniper *services.SniperService,
	watchlist *services.WatchlistService,
	settings *services.SettingsService,
	activity *services.ActivityService,
	prices *services.PriceService,
	balance *services.BalanceService,
) Deps {
	return Deps{
		Wallets:   wallets,
		Sniper:    sniper,
		Watchlist: watchlist,
		Settings:  settings,
		Activity:  activity,
		Prices:    prices,
		Balance:   balance,
	}
}
