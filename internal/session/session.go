package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"trade-relay-bot/internal/interfaces"
	"trade-relay-bot/internal/logger"
	"trade-relay-bot/internal/metrics"
	"trade-relay-bot/internal/types"
)

// Params fixes the gateway endpoint and the acquisition budget.
type Params struct {
	Host           string
	Port           int
	ClientIDs      []int
	MaxRetries     int
	AttemptTimeout time.Duration
	Backoff        time.Duration
}

// Session is the one live link to the gateway.
type Session struct {
	Host     string
	Port     int
	ClientID int

	link interfaces.Link
}

func (s *Session) Link() interfaces.Link {
	return s.link
}

// Manager owns the process's single gateway session. Acquisition and
// release are serialised by mu.
type Manager struct {
	gw    interfaces.Gateway
	p     Params
	sleep func(ctx context.Context, d time.Duration) error

	mu      sync.Mutex
	session *Session
}

var _ interfaces.SessionProvider = (*Manager)(nil)

func New(gw interfaces.Gateway, p Params) *Manager {
	return &Manager{gw: gw, p: p, sleep: sleepCtx}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Acquire claims the first client identity the gateway accepts. Each
// identity gets MaxRetries timed attempts with Backoff between failures
// before the next one is tried. When every identity is exhausted the error
// is ConnectionExhausted. Acquiring while connected returns the live
// session; a session whose link dropped is discarded and acquired anew.
func (m *Manager) Acquire(ctx context.Context) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session != nil {
		if m.session.link.IsConnected() {
			return m.session, nil
		}
		m.discard(ctx)
	}

	total := len(m.p.ClientIDs) * m.p.MaxRetries
	attempts := 0
	var last error

	for _, id := range m.p.ClientIDs {
		for attempt := 1; attempt <= m.p.MaxRetries; attempt++ {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			attempts++

			logger.Info(ctx, "Attempting gateway connection",
				"client_id", id, "attempt", attempt, "max_retries", m.p.MaxRetries)

			link, err := m.dial(ctx, id)
			if err == nil {
				metrics.ConnectAttempt(id, "ok")
				metrics.SessionConnected(true)
				m.session = &Session{Host: m.p.Host, Port: m.p.Port, ClientID: id, link: link}
				logger.Info(ctx, "Connected to gateway", "client_id", id, "attempts", attempts)
				return m.session, nil
			}

			last = err
			metrics.ConnectAttempt(id, failureLabel(err))
			logger.Warn(ctx, "Connection attempt failed", "client_id", id, "attempt", attempt, "error", err)
			if attempt == m.p.MaxRetries {
				logger.Error(ctx, "Max retries reached for client id", "client_id", id)
			}

			if attempts == total {
				break
			}
			if err := m.sleep(ctx, m.p.Backoff); err != nil {
				return nil, err
			}
		}
	}

	exhausted := types.ConnectionExhausted(attempts, last)
	logger.ErrorWithErr(ctx, "Gateway connection exhausted", exhausted, "client_ids", m.p.ClientIDs)
	return nil, exhausted
}

// discard forgets a session whose link the gateway dropped. Caller holds mu.
func (m *Manager) discard(ctx context.Context) {
	s := m.session
	m.session = nil
	metrics.SessionConnected(false)
	logger.Warn(ctx, "Gateway link dropped, reconnecting", "client_id", s.ClientID)
	if err := s.link.Close(); err != nil {
		logger.Warn(ctx, "Closing dropped link failed", "client_id", s.ClientID, "error", err)
	}
}

func (m *Manager) dial(ctx context.Context, clientID int) (interfaces.Link, error) {
	attemptCtx := ctx
	if m.p.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, m.p.AttemptTimeout)
		defer cancel()
	}
	return m.gw.Dial(attemptCtx, m.p.Host, m.p.Port, clientID)
}

func failureLabel(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timeout"
	case errors.Is(err, types.ErrClientIDInUse):
		return "in_use"
	}
	return "error"
}

// Release closes the live session. It is safe to call any number of times.
func (m *Manager) Release(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.session == nil {
		return nil
	}

	s := m.session
	m.session = nil
	metrics.SessionConnected(false)

	if err := s.link.Close(); err != nil {
		logger.ErrorWithErr(ctx, "Failed to close gateway session", err, "client_id", s.ClientID)
		return err
	}

	logger.Info(ctx, "Disconnected from gateway", "client_id", s.ClientID)
	return nil
}

// Connected reports whether a session is held and its link is still up.
func (m *Manager) Connected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session != nil && m.session.link.IsConnected()
}

// ClientID returns the claimed identity, or 0 when disconnected.
func (m *Manager) ClientID() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil {
		return 0
	}
	return m.session.ClientID
}

// Link returns the live link, or a protocol error when there is none.
func (m *Manager) Link() (interfaces.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.session == nil || !m.session.link.IsConnected() {
		return nil, types.ProtocolError("session", types.ErrNotConnected)
	}
	return m.session.link, nil
}
