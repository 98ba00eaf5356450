package repositories

import (
	"context"
	"testing"
	"time"

	"github.com/ahumphreys/spindle/internal/models"
	"github.com/ahumphreys/spindle/internal/shared"
	tu "github.com/ahumphreys/spindle/internal/testing"
)

func TestUserRepository(t *testing.T) {
	ctx := context.Background()

	t.Run("Create And Get", func(t *testing.T) {
		repo := NewUserRepository(tu.SetupTestDB(t))

		user, err := repo.Create(ctx, "Test User", "spotify123")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if user.ID == "" {
			t.Error("user ID should be set after creation")
		}

		retrieved, err := repo.Get(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.SpotifyID != "spotify123" {
			t.Errorf("expected spotify id spotify123, got %s", retrieved.SpotifyID)
		}
	})

	t.Run("GetBySpotifyID Absent", func(t *testing.T) {
		repo := NewUserRepository(tu.SetupTestDB(t))

		user, err := repo.GetBySpotifyID(ctx, "nobody")
		if err != nil {
			t.Fatalf("absent user should not be an error: %v", err)
		}
		if user != nil {
			t.Error("expected nil user for unknown spotify id")
		}
	})

	t.Run("Duplicate SpotifyID Rejected", func(t *testing.T) {
		repo := NewUserRepository(tu.SetupTestDB(t))

		if _, err := repo.Create(ctx, "First", "same"); err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		if _, err := repo.Create(ctx, "Second", "same"); err == nil {
			t.Error("expected unique constraint violation for duplicate spotify id")
		}
	})

	t.Run("UpdateUsername", func(t *testing.T) {
		repo := NewUserRepository(tu.SetupTestDB(t))

		user, err := repo.Create(ctx, "Old Name", "spotify123")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}

		if err := repo.UpdateUsername(ctx, user.ID, "New Name"); err != nil {
			t.Fatalf("failed to update username: %v", err)
		}

		retrieved, err := repo.Get(ctx, user.ID)
		if err != nil {
			t.Fatalf("failed to get user: %v", err)
		}
		if retrieved.Username != "New Name" {
			t.Errorf("expected username New Name, got %s", retrieved.Username)
		}
	})
}

func newTestSession(userID string) *models.Session {
	now := time.Now()
	return &models.Session{
		ID:                   shared.GenerateToken(32),
		UserID:               userID,
		ExpiresAt:            now.Add(30 * 24 * time.Hour),
		AccessToken:          "access",
		RefreshToken:         "refresh",
		AccessTokenExpiresAt: now.Add(time.Hour),
	}
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*SessionRepository, *models.User) {
		t.Helper()
		db := tu.SetupTestDB(t)
		user, err := NewUserRepository(db).Create(ctx, "Test User", "spotify123")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		return NewSessionRepository(db), user
	}

	t.Run("Create And Get", func(t *testing.T) {
		repo, user := setup(t)
		session := newTestSession(user.ID)

		if err := repo.Create(ctx, session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		retrieved, err := repo.Get(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if retrieved == nil {
			t.Fatal("expected session, got nil")
		}
		if retrieved.AccessToken != "access" || retrieved.RefreshToken != "refresh" {
			t.Errorf("token mismatch: %+v", retrieved)
		}
	})

	t.Run("Get Absent", func(t *testing.T) {
		repo, _ := setup(t)

		session, err := repo.Get(ctx, "unknown")
		if err != nil {
			t.Fatalf("absent session should not be an error: %v", err)
		}
		if session != nil {
			t.Error("expected nil session")
		}
	})

	t.Run("UpdateTokens", func(t *testing.T) {
		repo, user := setup(t)
		session := newTestSession(user.ID)
		if err := repo.Create(ctx, session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		newExpiry := time.Now().Add(2 * time.Hour)
		if err := repo.UpdateTokens(ctx, session.ID, "access2", "refresh2", newExpiry); err != nil {
			t.Fatalf("failed to update tokens: %v", err)
		}

		retrieved, err := repo.Get(ctx, session.ID)
		if err != nil {
			t.Fatalf("failed to get session: %v", err)
		}
		if retrieved.AccessToken != "access2" || retrieved.RefreshToken != "refresh2" {
			t.Errorf("tokens not updated: %+v", retrieved)
		}
		if !retrieved.AccessTokenExpiresAt.After(session.AccessTokenExpiresAt) {
			t.Error("access token expiry should move forward")
		}
	})

	t.Run("UpdateTokens Unknown Session", func(t *testing.T) {
		repo, _ := setup(t)

		if err := repo.UpdateTokens(ctx, "unknown", "a", "r", time.Now()); err == nil {
			t.Error("expected error updating unknown session")
		}
	})

	t.Run("Delete Is Idempotent", func(t *testing.T) {
		repo, user := setup(t)
		session := newTestSession(user.ID)
		if err := repo.Create(ctx, session); err != nil {
			t.Fatalf("failed to create session: %v", err)
		}

		if err := repo.Delete(ctx, session.ID); err != nil {
			t.Fatalf("failed to delete session: %v", err)
		}
		if err := repo.Delete(ctx, session.ID); err != nil {
			t.Errorf("second delete should be a no-op: %v", err)
		}
	})

	t.Run("DeleteExpired", func(t *testing.T) {
		repo, user := setup(t)

		live := newTestSession(user.ID)
		expired := newTestSession(user.ID)
		expired.ExpiresAt = time.Now().Add(-time.Hour)

		for _, s := range []*models.Session{live, expired} {
			if err := repo.Create(ctx, s); err != nil {
				t.Fatalf("failed to create session: %v", err)
			}
		}

		if err := repo.DeleteExpired(ctx, time.Now()); err != nil {
			t.Fatalf("failed to delete expired sessions: %v", err)
		}

		if s, _ := repo.Get(ctx, expired.ID); s != nil {
			t.Error("expired session should be gone")
		}
		if s, _ := repo.Get(ctx, live.ID); s == nil {
			t.Error("live session should remain")
		}
	})
}

func TestVisibilityRepository(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*VisibilityRepository, string) {
		t.Helper()
		db := tu.SetupTestDB(t)
		user, err := NewUserRepository(db).Create(ctx, "Test User", "spotify123")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		return NewVisibilityRepository(db), user.ID
	}

	t.Run("EnsureDefaults", func(t *testing.T) {
		repo, userID := setup(t)

		if err := repo.EnsureDefaults(ctx, userID, []string{"p1", "p2"}); err != nil {
			t.Fatalf("failed to ensure defaults: %v", err)
		}

		visibility, err := repo.GetForUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to get visibility: %v", err)
		}
		if !visibility["p1"] || !visibility["p2"] {
			t.Errorf("expected p1 and p2 visible by default, got %v", visibility)
		}
	})

	t.Run("EnsureDefaults Preserves Existing", func(t *testing.T) {
		repo, userID := setup(t)

		if err := repo.Set(ctx, userID, []string{"p1"}, false); err != nil {
			t.Fatalf("failed to set visibility: %v", err)
		}

		if err := repo.EnsureDefaults(ctx, userID, []string{"p1", "p2"}); err != nil {
			t.Fatalf("failed to ensure defaults: %v", err)
		}

		visibility, err := repo.GetForUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to get visibility: %v", err)
		}
		if visibility["p1"] {
			t.Error("existing hidden row should not be reset by defaults")
		}
		if !visibility["p2"] {
			t.Error("new row should default to visible")
		}
	})

	t.Run("Double Toggle Restores Original", func(t *testing.T) {
		repo, userID := setup(t)

		if err := repo.EnsureDefaults(ctx, userID, []string{"p1"}); err != nil {
			t.Fatalf("failed to ensure defaults: %v", err)
		}

		for range 2 {
			if err := repo.Toggle(ctx, userID, []string{"p1"}); err != nil {
				t.Fatalf("failed to toggle: %v", err)
			}
		}

		visibility, err := repo.GetForUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to get visibility: %v", err)
		}
		if !visibility["p1"] {
			t.Error("double toggle should restore the original value")
		}
	})

	t.Run("Toggle Without Existing Row", func(t *testing.T) {
		repo, userID := setup(t)

		// No row yet: the default (visible) is negated.
		if err := repo.Toggle(ctx, userID, []string{"new"}); err != nil {
			t.Fatalf("toggle of unseen id should succeed: %v", err)
		}

		visibility, err := repo.GetForUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to get visibility: %v", err)
		}
		if visible, ok := visibility["new"]; !ok || visible {
			t.Errorf("expected hidden row for unseen toggled id, got %v, %v", visible, ok)
		}
	})

	t.Run("Set Is State Independent", func(t *testing.T) {
		repo, userID := setup(t)

		if err := repo.Set(ctx, userID, []string{"p1", "p2"}, false); err != nil {
			t.Fatalf("failed to set visibility: %v", err)
		}
		if err := repo.Set(ctx, userID, []string{"p1"}, true); err != nil {
			t.Fatalf("failed to set visibility: %v", err)
		}

		visibility, err := repo.GetForUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to get visibility: %v", err)
		}
		if !visibility["p1"] || visibility["p2"] {
			t.Errorf("unexpected visibility state: %v", visibility)
		}
	})
}

func TestTargetRepository(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*TargetRepository, string) {
		t.Helper()
		db := tu.SetupTestDB(t)
		user, err := NewUserRepository(db).Create(ctx, "Test User", "spotify123")
		if err != nil {
			t.Fatalf("failed to create user: %v", err)
		}
		return NewTargetRepository(db), user.ID
	}

	t.Run("Set And Get", func(t *testing.T) {
		repo, userID := setup(t)

		if err := repo.Set(ctx, userID, "source1", "target1"); err != nil {
			t.Fatalf("failed to set target: %v", err)
		}

		targets, err := repo.GetForUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to get targets: %v", err)
		}
		if targets["source1"] != "target1" {
			t.Errorf("expected target1, got %s", targets["source1"])
		}
	})

	t.Run("Upsert Latest Wins", func(t *testing.T) {
		repo, userID := setup(t)

		if err := repo.Set(ctx, userID, "source1", "target1"); err != nil {
			t.Fatalf("failed to set target: %v", err)
		}
		if err := repo.Set(ctx, userID, "source1", "target2"); err != nil {
			t.Fatalf("failed to replace target: %v", err)
		}

		targets, err := repo.GetForUser(ctx, userID)
		if err != nil {
			t.Fatalf("failed to get targets: %v", err)
		}
		if len(targets) != 1 {
			t.Errorf("expected a single mapping, got %d", len(targets))
		}
		if targets["source1"] != "target2" {
			t.Errorf("expected latest target target2, got %s", targets["source1"])
		}
	})
}
