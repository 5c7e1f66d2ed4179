package application

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/wms-platform/vas-service/internal/domain"
	"github.com/wms-platform/vas-service/pkg/logging"
)

// ErrSessionNotFound is returned when no session is open for an order
var ErrSessionNotFound = errors.New("execution session not found")

// SessionManager holds the open execution sessions, one per order
type SessionManager struct {
	mu        sync.RWMutex
	sessions  map[string]*ExecutionSession
	deps      SessionDeps
	observers []domain.ContextActionObserver
	logger    *logging.Logger
}

// NewSessionManager creates a session manager; observers are attached to every session it opens
func NewSessionManager(deps SessionDeps, observers ...domain.ContextActionObserver) *SessionManager {
	deps = deps.withDefaults()
	return &SessionManager{
		sessions:  make(map[string]*ExecutionSession),
		deps:      deps,
		observers: observers,
		logger:    deps.Logger.WithComponent("session-manager"),
	}
}

// Open returns the session for orderNo, opening it on first use.
// An already open session is refreshed instead.
func (m *SessionManager) Open(ctx context.Context, orderNo string) (*ExecutionSession, error) {
	if existing, err := m.Get(orderNo); err == nil {
		if err := existing.Refresh(ctx); err != nil {
			return nil, err
		}
		return existing, nil
	}

	session, err := OpenExecutionSession(ctx, orderNo, m.deps, m.observers...)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.sessions[orderNo]; ok {
		return existing, nil
	}
	m.sessions[orderNo] = session
	m.updateGauge()
	m.logger.Info("Session registered", "orderNo", orderNo, "activeSessions", len(m.sessions))
	return session, nil
}

// Get returns the open session for orderNo
func (m *SessionManager) Get(orderNo string) (*ExecutionSession, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	session, ok := m.sessions[orderNo]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close drops the session for orderNo
func (m *SessionManager) Close(orderNo string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.sessions[orderNo]; !ok {
		return ErrSessionNotFound
	}
	delete(m.sessions, orderNo)
	m.updateGauge()
	m.logger.Info("Session closed", "orderNo", orderNo, "activeSessions", len(m.sessions))
	return nil
}

// OrderNos lists the orders with an open session, sorted
func (m *SessionManager) OrderNos() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	orders := make([]string, 0, len(m.sessions))
	for orderNo := range m.sessions {
		orders = append(orders, orderNo)
	}
	sort.Strings(orders)
	return orders
}

// Count returns the number of open sessions
func (m *SessionManager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.sessions)
}

func (m *SessionManager) updateGauge() {
	if m.deps.Metrics != nil {
		m.deps.Metrics.ActiveSessions.Set(float64(len(m.sessions)))
	}
}
