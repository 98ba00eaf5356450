package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ahumphreys/spindle/internal/models"
	"github.com/ahumphreys/spindle/internal/repositories"
	"github.com/ahumphreys/spindle/internal/shared"
	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"
)

const (
	// sessionLifetime is the absolute session expiry set at login. Validation
	// extends it (sliding window) once less than half remains.
	sessionLifetime = 30 * 24 * time.Hour

	// refreshWindow triggers a proactive access-token refresh shortly before expiry.
	refreshWindow = 5 * time.Minute

	// sessionIDBytes of entropy per session identifier.
	sessionIDBytes = 32
)

// Manager owns the session lifecycle: creation, validation, cookie freshness,
// token refresh, and invalidation. All state lives in the repositories; the only
// in-memory state is the per-session refresh serialization.
type Manager struct {
	sessions *repositories.SessionRepository
	users    *repositories.UserRepository
	oauth    Authenticator
	logger   *log.Logger

	mu         sync.Mutex
	refreshing map[string]*sync.Mutex // per-session refresh locks, keyed by session id
}

// NewManager creates a session [Manager] with injected store handles.
func NewManager(sessions *repositories.SessionRepository, users *repositories.UserRepository, oauth Authenticator, logger *log.Logger) *Manager {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Manager{
		sessions:   sessions,
		users:      users,
		oauth:      oauth,
		logger:     logger,
		refreshing: make(map[string]*sync.Mutex),
	}
}

// CreateSession persists a new session for the user with the given token set and
// returns it for cookie issuance. The session id is opaque and unguessable.
func (m *Manager) CreateSession(ctx context.Context, userID string, token *oauth2.Token) (*models.Session, error) {
	session := &models.Session{
		ID:                   shared.GenerateToken(sessionIDBytes),
		UserID:               userID,
		ExpiresAt:            time.Now().Add(sessionLifetime),
		AccessToken:          token.AccessToken,
		RefreshToken:         token.RefreshToken,
		AccessTokenExpiresAt: token.Expiry,
	}

	if err := m.sessions.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// Validate looks up a session by id and returns it with its owning user.
//
// Unknown and expired ids are "absent", reported as [shared.ErrNotAuthenticated];
// storage failures are returned as-is. An expired session row is deleted on sight.
// When less than half the session lifetime remains the expiry is extended and the
// session is marked Fresh so the caller reissues the cookie.
func (m *Manager) Validate(ctx context.Context, sessionID string) (*models.Session, *models.User, error) {
	session, err := m.sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, nil, err
	}
	if session == nil {
		return nil, nil, shared.ErrNotAuthenticated
	}

	now := time.Now()
	if now.After(session.ExpiresAt) {
		if err := m.sessions.Delete(ctx, session.ID); err != nil {
			m.logger.Warn("failed to delete expired session", "session_id", session.ID, "error", err)
		}
		return nil, nil, shared.ErrNotAuthenticated
	}

	if session.ExpiresAt.Sub(now) < sessionLifetime/2 {
		session.ExpiresAt = now.Add(sessionLifetime)
		if err := m.sessions.UpdateExpiry(ctx, session.ID, session.ExpiresAt); err != nil {
			return nil, nil, err
		}
		session.Fresh = true
	}

	user, err := m.users.Get(ctx, session.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session user: %w", err)
	}

	return session, user, nil
}

// Invalidate deletes the session row. Idempotent: no error if already gone.
func (m *Manager) Invalidate(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.refreshing, sessionID)
	m.mu.Unlock()

	return m.sessions.Delete(ctx, sessionID)
}

// DeleteExpired sweeps all sessions past their expiry.
func (m *Manager) DeleteExpired(ctx context.Context) error {
	return m.sessions.DeleteExpired(ctx, time.Now())
}

// ShouldRefreshAccessToken reports whether the access token is expired or inside
// the proactive refresh window. This predicate is the only refresh trigger; there
// is no background sweep.
func (m *Manager) ShouldRefreshAccessToken(accessTokenExpiresAt, now time.Time) bool {
	return accessTokenExpiresAt.Sub(now) < refreshWindow
}

// RefreshIfNeeded refreshes the session's access token when due and mutates the
// passed session in place so the remainder of the current request uses the fresh
// token immediately.
//
// Refreshes are serialized per session: the critical section re-reads the stored
// session and re-checks the predicate, so a request that lost the race adopts the
// winner's tokens instead of performing a second refresh and discarding a rotated
// refresh token.
//
// Failure is non-fatal by contract: the error is wrapped in
// [shared.ErrRefreshFailed] and the caller proceeds with the stale token.
func (m *Manager) RefreshIfNeeded(ctx context.Context, session *models.Session) error {
	if !m.ShouldRefreshAccessToken(session.AccessTokenExpiresAt, time.Now()) {
		return nil
	}

	lock := m.sessionLock(session.ID)
	lock.Lock()
	defer lock.Unlock()

	// Another request may have refreshed while this one waited on the lock.
	stored, err := m.sessions.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	if stored == nil {
		return shared.ErrNotAuthenticated
	}
	if !m.ShouldRefreshAccessToken(stored.AccessTokenExpiresAt, time.Now()) {
		session.AccessToken = stored.AccessToken
		session.RefreshToken = stored.RefreshToken
		session.AccessTokenExpiresAt = stored.AccessTokenExpiresAt
		return nil
	}

	token, err := m.oauth.Refresh(ctx, stored.RefreshToken)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrRefreshFailed, err)
	}

	// Upstream rotation is optional: keep the stored refresh token unless a new
	// one was issued.
	refreshToken := stored.RefreshToken
	if token.RefreshToken != "" {
		refreshToken = token.RefreshToken
	}

	if err := m.sessions.UpdateTokens(ctx, session.ID, token.AccessToken, refreshToken, token.Expiry); err != nil {
		return err
	}

	session.AccessToken = token.AccessToken
	session.RefreshToken = refreshToken
	session.AccessTokenExpiresAt = token.Expiry

	m.logger.Debug("access token refreshed", "session_id", session.ID, "expires_at", token.Expiry)
	return nil
}

// sessionLock returns the refresh mutex for a session id, creating it on first use.
func (m *Manager) sessionLock(sessionID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()

	lock, ok := m.refreshing[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		m.refreshing[sessionID] = lock
	}
	return lock
}
