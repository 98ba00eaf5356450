package auth

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ahumphreys/spindle/internal/models"
	"github.com/ahumphreys/spindle/internal/repositories"
	"github.com/ahumphreys/spindle/internal/shared"
	tu "github.com/ahumphreys/spindle/internal/testing"
	"golang.org/x/oauth2"
)

// fakeAuthenticator records refresh calls and returns a scripted token or error.
type fakeAuthenticator struct {
	refreshCalls atomic.Int64
	refreshToken *oauth2.Token
	refreshErr   error
}

func (f *fakeAuthenticator) AuthorizationURL(state string) string {
	return "https://accounts.example.com/authorize?state=" + state
}

func (f *fakeAuthenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	return &oauth2.Token{AccessToken: "exchanged"}, nil
}

func (f *fakeAuthenticator) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	f.refreshCalls.Add(1)
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return f.refreshToken, nil
}

func setupManager(t *testing.T, oauth Authenticator) (*Manager, *repositories.SessionRepository, *models.User) {
	t.Helper()

	db := tu.SetupTestDB(t)
	users := repositories.NewUserRepository(db)
	sessions := repositories.NewSessionRepository(db)

	user, err := users.Create(context.Background(), "Test User", "spotify123")
	if err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return NewManager(sessions, users, oauth, shared.NewLogger(nil)), sessions, user
}

func seedSession(t *testing.T, m *Manager, userID string, expiry time.Time) *models.Session {
	t.Helper()

	session, err := m.CreateSession(context.Background(), userID, &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       expiry,
	})
	if err != nil {
		t.Fatalf("failed to create session: %v", err)
	}
	return session
}

func TestShouldRefreshAccessToken(t *testing.T) {
	m := &Manager{}
	expiresAt := time.Now()

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{"Already Expired", expiresAt, true},
		{"Exactly At Window", expiresAt.Add(-5 * time.Minute), false},
		{"Inside Window", expiresAt.Add(-5*time.Minute + time.Second), true},
		{"Outside Window", expiresAt.Add(-5*time.Minute - time.Second), false},
		{"Long After Expiry", expiresAt.Add(time.Hour), true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := m.ShouldRefreshAccessToken(expiresAt, tc.now); got != tc.want {
				t.Errorf("ShouldRefreshAccessToken(%v) = %v, want %v", expiresAt.Sub(tc.now), got, tc.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	ctx := context.Background()

	t.Run("Unknown Session", func(t *testing.T) {
		m, _, _ := setupManager(t, &fakeAuthenticator{})

		_, _, err := m.Validate(ctx, "unknown")
		if !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})

	t.Run("Roundtrip", func(t *testing.T) {
		m, _, user := setupManager(t, &fakeAuthenticator{})
		session := seedSession(t, m, user.ID, time.Now().Add(time.Hour))

		got, gotUser, err := m.Validate(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to validate session: %v", err)
		}
		if got.ID != session.ID {
			t.Errorf("expected session %s, got %s", session.ID, got.ID)
		}
		if gotUser.ID != user.ID {
			t.Errorf("expected user %s, got %s", user.ID, gotUser.ID)
		}
		if got.Fresh {
			t.Error("full-lifetime session should not be marked fresh")
		}
	})

	t.Run("Expired Session Deleted", func(t *testing.T) {
		m, sessions, user := setupManager(t, &fakeAuthenticator{})
		session := seedSession(t, m, user.ID, time.Now().Add(time.Hour))

		if err := sessions.UpdateExpiry(ctx, session.ID, time.Now().Add(-time.Minute)); err != nil {
			t.Fatalf("failed to backdate session: %v", err)
		}

		if _, _, err := m.Validate(ctx, session.ID); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Fatalf("expected ErrNotAuthenticated, got %v", err)
		}

		if stored, _ := sessions.Get(ctx, session.ID); stored != nil {
			t.Error("expired session row should be deleted on sight")
		}
	})

	t.Run("Sliding Expiry", func(t *testing.T) {
		m, sessions, user := setupManager(t, &fakeAuthenticator{})
		session := seedSession(t, m, user.ID, time.Now().Add(time.Hour))

		// Less than half the lifetime left: validation extends and flags fresh.
		oldExpiry := time.Now().Add(10 * 24 * time.Hour)
		if err := sessions.UpdateExpiry(ctx, session.ID, oldExpiry); err != nil {
			t.Fatalf("failed to age session: %v", err)
		}

		got, _, err := m.Validate(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to validate session: %v", err)
		}
		if !got.Fresh {
			t.Error("aged session should be marked fresh")
		}
		if !got.ExpiresAt.After(oldExpiry) {
			t.Error("expiry should be extended")
		}

		stored, err := sessions.Get(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to re-read session: %v", err)
		}
		if !stored.ExpiresAt.After(oldExpiry) {
			t.Error("extended expiry should be persisted")
		}
	})
}

func TestInvalidate(t *testing.T) {
	ctx := context.Background()
	m, sessions, user := setupManager(t, &fakeAuthenticator{})
	session := seedSession(t, m, user.ID, time.Now().Add(time.Hour))

	if err := m.Invalidate(ctx, session.ID); err != nil {
		t.Fatalf("failed to invalidate session: %v", err)
	}

	if stored, _ := sessions.Get(ctx, session.ID); stored != nil {
		t.Error("invalidated session should be gone")
	}

	if err := m.Invalidate(ctx, session.ID); err != nil {
		t.Errorf("second invalidate should be a no-op: %v", err)
	}
}

func TestRefreshIfNeeded(t *testing.T) {
	ctx := context.Background()

	t.Run("Skips Fresh Token", func(t *testing.T) {
		oauth := &fakeAuthenticator{}
		m, _, user := setupManager(t, oauth)
		session := seedSession(t, m, user.ID, time.Now().Add(time.Hour))

		if err := m.RefreshIfNeeded(ctx, session); err != nil {
			t.Fatalf("refresh should be skipped without error: %v", err)
		}
		if oauth.refreshCalls.Load() != 0 {
			t.Errorf("expected no upstream calls, got %d", oauth.refreshCalls.Load())
		}
	})

	t.Run("Rotates Tokens", func(t *testing.T) {
		newExpiry := time.Now().Add(time.Hour)
		oauth := &fakeAuthenticator{refreshToken: &oauth2.Token{
			AccessToken:  "access2",
			RefreshToken: "refresh2",
			Expiry:       newExpiry,
		}}
		m, sessions, user := setupManager(t, oauth)
		session := seedSession(t, m, user.ID, time.Now().Add(time.Minute))

		if err := m.RefreshIfNeeded(ctx, session); err != nil {
			t.Fatalf("failed to refresh: %v", err)
		}

		if session.AccessToken != "access2" || session.RefreshToken != "refresh2" {
			t.Errorf("in-memory session not updated: %+v", session)
		}
		if !session.AccessTokenExpiresAt.After(time.Now().Add(30 * time.Minute)) {
			t.Error("access token expiry should move forward")
		}

		stored, err := sessions.Get(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to re-read session: %v", err)
		}
		if stored.AccessToken != "access2" || stored.RefreshToken != "refresh2" {
			t.Errorf("stored session not updated: %+v", stored)
		}
	})

	t.Run("Preserves Refresh Token When Not Rotated", func(t *testing.T) {
		oauth := &fakeAuthenticator{refreshToken: &oauth2.Token{
			AccessToken: "access2",
			Expiry:      time.Now().Add(time.Hour),
		}}
		m, sessions, user := setupManager(t, oauth)
		session := seedSession(t, m, user.ID, time.Now().Add(time.Minute))

		if err := m.RefreshIfNeeded(ctx, session); err != nil {
			t.Fatalf("failed to refresh: %v", err)
		}

		if session.RefreshToken != "refresh" {
			t.Errorf("stored refresh token should be kept, got %s", session.RefreshToken)
		}

		stored, err := sessions.Get(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to re-read session: %v", err)
		}
		if stored.RefreshToken != "refresh" {
			t.Errorf("persisted refresh token should be kept, got %s", stored.RefreshToken)
		}
	})

	t.Run("Failure Leaves Session Unchanged", func(t *testing.T) {
		oauth := &fakeAuthenticator{refreshErr: fmt.Errorf("upstream says no")}
		m, sessions, user := setupManager(t, oauth)
		session := seedSession(t, m, user.ID, time.Now().Add(time.Minute))

		err := m.RefreshIfNeeded(ctx, session)
		if !errors.Is(err, shared.ErrRefreshFailed) {
			t.Fatalf("expected ErrRefreshFailed, got %v", err)
		}

		if session.AccessToken != "access" || session.RefreshToken != "refresh" {
			t.Errorf("failed refresh should not mutate the session: %+v", session)
		}

		stored, err := sessions.Get(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to re-read session: %v", err)
		}
		if stored.AccessToken != "access" {
			t.Errorf("failed refresh should not touch storage: %+v", stored)
		}
	})

	t.Run("Concurrent Requests Refresh Once", func(t *testing.T) {
		oauth := &fakeAuthenticator{refreshToken: &oauth2.Token{
			AccessToken:  "access2",
			RefreshToken: "refresh2",
			Expiry:       time.Now().Add(time.Hour),
		}}
		m, _, user := setupManager(t, oauth)
		session := seedSession(t, m, user.ID, time.Now().Add(time.Minute))

		var wg sync.WaitGroup
		for range 8 {
			wg.Add(1)
			// Each request carries its own stale copy, as separate HTTP
			// requests would.
			local := *session
			go func() {
				defer wg.Done()
				if err := m.RefreshIfNeeded(ctx, &local); err != nil {
					t.Errorf("concurrent refresh failed: %v", err)
				}
				if local.AccessToken != "access2" {
					t.Errorf("loser should adopt the winner's token, got %s", local.AccessToken)
				}
			}()
		}
		wg.Wait()

		if calls := oauth.refreshCalls.Load(); calls != 1 {
			t.Errorf("expected exactly one upstream refresh, got %d", calls)
		}
	})

	t.Run("Deleted Session", func(t *testing.T) {
		m, sessions, user := setupManager(t, &fakeAuthenticator{})
		session := seedSession(t, m, user.ID, time.Now().Add(time.Minute))

		if err := sessions.Delete(ctx, session.ID); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}

		if err := m.RefreshIfNeeded(ctx, session); !errors.Is(err, shared.ErrNotAuthenticated) {
			t.Errorf("expected ErrNotAuthenticated, got %v", err)
		}
	})
}
