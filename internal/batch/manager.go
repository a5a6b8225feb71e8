package batch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joseph-ayodele/snapcheck/internal/auth"
	"github.com/joseph-ayodele/snapcheck/internal/common"
)

// Manager owns the open batch sessions of a running service, keyed by batch id.
type Manager struct {
	resolver *SetupResolver
	provider auth.Provider
	deps     Deps
	idle     time.Duration
	logger   *slog.Logger
	now      func() time.Time

	mu      sync.Mutex
	batches map[string]*Scanner
}

func NewManager(resolver *SetupResolver, provider auth.Provider, deps Deps, idleExpiry time.Duration) *Manager {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		resolver: resolver,
		provider: provider,
		deps:     deps,
		idle:     idleExpiry,
		logger:   logger,
		now:      time.Now,
		batches:  map[string]*Scanner{},
	}
}

// Resolver exposes the setup resolver for reference-data reads.
func (m *Manager) Resolver() *SetupResolver { return m.resolver }

// Start resolves the selection and opens a batch owned by id. The batch gets
// its own session, which Discard or expiry closes.
func (m *Manager) Start(ctx context.Context, id auth.Identity, classID, activityID string) (*Scanner, error) {
	session := auth.NewSession(m.provider, id)
	target, err := m.resolver.Resolve(ctx, session, classID, activityID)
	if err != nil {
		session.Close()
		return nil, err
	}
	sc, err := NewScanner(session, target, m.deps)
	if err != nil {
		session.Close()
		return nil, err
	}

	m.mu.Lock()
	m.batches[sc.ID()] = sc
	m.mu.Unlock()
	session.OnEnd(func() { m.forget(sc.ID()) })
	return sc, nil
}

// Get returns the batch if id owns it.
func (m *Manager) Get(batchID string, id auth.Identity) (*Scanner, error) {
	m.mu.Lock()
	sc, ok := m.batches[batchID]
	m.mu.Unlock()
	if !ok || sc.Closed() {
		return nil, common.NewAppError("NOT_FOUND", "batch "+batchID, common.ErrNotFound)
	}
	if sc.Owner().UserID != id.UserID {
		return nil, common.NewAppError("FORBIDDEN", fmt.Sprintf("batch %s belongs to another teacher", batchID), common.ErrForbidden)
	}
	return sc, nil
}

// Discard closes a batch and drops all of its essays.
func (m *Manager) Discard(batchID string, id auth.Identity) error {
	sc, err := m.Get(batchID, id)
	if err != nil {
		return err
	}
	sc.session.Close()
	return nil
}

func (m *Manager) forget(batchID string) {
	m.mu.Lock()
	delete(m.batches, batchID)
	m.mu.Unlock()
}

// Len is the number of open batches.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.batches)
}

// ExpireIdle closes batches with no teacher action for longer than the idle
// expiry and with nothing left in the pipeline.
func (m *Manager) ExpireIdle() int {
	if m.idle <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.idle)
	var stale []*Scanner
	m.mu.Lock()
	for _, sc := range m.batches {
		if sc.LastActive().Before(cutoff) && sc.queue.Pending() == 0 {
			stale = append(stale, sc)
		}
	}
	m.mu.Unlock()

	for _, sc := range stale {
		m.logger.Info("batch.manager.expired", "batch_id", sc.ID(), "essays", sc.ledger.Len())
		sc.session.Close()
	}
	return len(stale)
}

// Run expires idle batches every interval until ctx is done, then closes all batches.
func (m *Manager) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.CloseAll()
			return
		case <-t.C:
			m.ExpireIdle()
		}
	}
}

// CloseAll closes every open batch.
func (m *Manager) CloseAll() {
	m.mu.Lock()
	all := make([]*Scanner, 0, len(m.batches))
	for _, sc := range m.batches {
		all = append(all, sc)
	}
	m.mu.Unlock()
	for _, sc := range all {
		sc.session.Close()
	}
}
