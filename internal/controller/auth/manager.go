// Package auth owns the session lifecycle for the chat controller.
//
// The session moves through Unready, Anonymous, Authenticating and
// Authenticated. No chat operation is permitted outside Authenticated,
// and operations attempted before readiness are rejected, never queued.
package auth

import (
	"context"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ambermind/chat-controller/internal/core/gateway"
	domainerrors "github.com/ambermind/chat-controller/internal/domain/errors"
	"github.com/ambermind/chat-controller/internal/domain/models"
)

// State is the auth state machine position.
type State int

const (
	// StateUnready is the initial state before the controller is wired.
	StateUnready State = iota
	// StateAnonymous is a ready session with no identity.
	StateAnonymous
	// StateAuthenticating is a login or signup in flight.
	StateAuthenticating
	// StateAuthenticated is an established identity.
	StateAuthenticated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateUnready:
		return "unready"
	case StateAnonymous:
		return "anonymous"
	case StateAuthenticating:
		return "authenticating"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// Manager owns the session singleton. It is the only writer; every other
// component reads snapshots.
type Manager struct {
	gw     gateway.Authenticator
	logger zerolog.Logger

	mu        sync.Mutex
	state     State
	session   models.Session
	subs      map[int]chan models.Session
	nextSub   int
	teardowns []func()
}

// NewManager creates a manager in the Unready state.
func NewManager(gw gateway.Authenticator) *Manager {
	return &Manager{
		gw:     gw,
		logger: log.With().Str("component", "auth").Logger(),
		subs:   make(map[int]chan models.Session),
	}
}

// Ready transitions Unready to Anonymous. Calling it again is a no-op.
func (m *Manager) Ready() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.state != StateUnready {
		return
	}
	m.state = StateAnonymous
	m.session = models.AnonymousSession()
	m.emitLocked()
}

// Session returns a snapshot of the current session.
func (m *Manager) Session() models.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session
}

// State returns the current state machine position.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Subscribe returns a channel of session snapshots, re-emitted on every
// transition, and a cancel function. The current snapshot is delivered
// first so late subscribers converge.
func (m *Manager) Subscribe() (<-chan models.Session, func()) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.nextSub
	m.nextSub++
	ch := make(chan models.Session, 8)
	m.subs[id] = ch
	if m.state != StateUnready {
		ch <- m.session
	}

	cancel := func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		if sub, ok := m.subs[id]; ok {
			delete(m.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// RegisterTeardown registers a hook run before every session reset or
// replacement. The synchronizers register their subscription cancellers
// here so a late callback can never revive stale state.
func (m *Manager) RegisterTeardown(f func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.teardowns = append(m.teardowns, f)
}

// Signup creates an account. Both fields are required after trimming;
// validation failures never reach the network. On success the session is
// established and the password is not retained.
func (m *Manager) Signup(ctx context.Context, username, password string) (*gateway.SignupResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, domainerrors.NewValidationError("Username and password cannot be empty.", "")
	}

	if err := m.beginAuthenticating(); err != nil {
		return nil, err
	}

	result, err := m.gw.Signup(ctx, username, password)
	if err != nil {
		m.abortAuthenticating()
		return nil, err
	}

	m.establish(result.Identity)
	m.logger.Info().Str("username", username).Msg("signup complete")
	return result, nil
}

// Login authenticates an account. The prior session's subscriptions are
// torn down before the replacement session is established.
func (m *Manager) Login(ctx context.Context, username, password string) (*gateway.LoginResult, error) {
	username = strings.TrimSpace(username)
	password = strings.TrimSpace(password)
	if username == "" || password == "" {
		return nil, domainerrors.NewValidationError("Username and password cannot be empty.", "")
	}

	if err := m.beginAuthenticating(); err != nil {
		return nil, err
	}

	result, err := m.gw.Login(ctx, username, password)
	if err != nil {
		m.abortAuthenticating()
		return nil, err
	}

	m.establish(result.Identity)
	m.logger.Info().Str("username", username).Bool("is_admin", result.Identity.IsAdmin).Msg("login complete")
	return result, nil
}

// Logout resets the session to anonymous. It is idempotent and always
// resets local state, even when the backend call fails; the backend
// error is surfaced to the caller. Every active subscription is
// cancelled before the reset. Rejected before Ready, like every other
// session operation.
func (m *Manager) Logout(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateUnready {
		m.mu.Unlock()
		return domainerrors.NewNotReadyError("logout")
	}
	m.mu.Unlock()

	m.runTeardowns()

	err := m.gw.Logout(ctx)
	if err != nil {
		m.logger.Warn().Err(err).Msg("backend logout failed, resetting session anyway")
	}

	m.mu.Lock()
	m.state = StateAnonymous
	m.session = models.AnonymousSession()
	m.emitLocked()
	m.mu.Unlock()

	return err
}

// beginAuthenticating moves to Authenticating, tearing down the previous
// session's subscriptions first.
func (m *Manager) beginAuthenticating() error {
	m.mu.Lock()
	if m.state == StateUnready {
		m.mu.Unlock()
		return domainerrors.NewNotReadyError("authentication")
	}
	prev := m.state
	m.state = StateAuthenticating
	m.mu.Unlock()

	if prev == StateAuthenticated {
		m.runTeardowns()
	}
	return nil
}

// abortAuthenticating returns to Anonymous after a failed attempt.
func (m *Manager) abortAuthenticating() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAnonymous
	m.session = models.AnonymousSession()
	m.emitLocked()
}

// establish replaces the session wholesale with the new identity.
func (m *Manager) establish(identity models.UserIdentity) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = StateAuthenticated
	m.session = models.Session{
		Identity:        identity,
		IsAuthenticated: true,
		IsReady:         true,
	}
	m.emitLocked()
}

// runTeardowns cancels registered subscriptions outside the lock.
func (m *Manager) runTeardowns() {
	m.mu.Lock()
	teardowns := make([]func(), len(m.teardowns))
	copy(teardowns, m.teardowns)
	m.mu.Unlock()

	for _, f := range teardowns {
		f()
	}
}

// emitLocked pushes the current snapshot to all subscribers. Callers hold
// the lock. Slow subscribers drop intermediate snapshots rather than
// block the state machine.
func (m *Manager) emitLocked() {
	for _, ch := range m.subs {
		select {
		case ch <- m.session:
		default:
		}
	}
}
