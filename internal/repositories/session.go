package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahumphreys/spindle/internal/models"
)

// SessionRepository persists [models.Session] rows.
//
// Token columns are mutated in place by the refresh protocol; rows are deleted on
// logout and by the expiry sweep.
type SessionRepository struct {
	db *sql.DB
}

// NewSessionRepository creates a new [SessionRepository] with the given database connection
func NewSessionRepository(db *sql.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row.
func (r *SessionRepository) Create(ctx context.Context, session *models.Session) error {
	query := `
		INSERT INTO sessions (id, user_id, expires_at, access_token, refresh_token, access_token_expires_at, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query,
		session.ID,
		session.UserID,
		session.ExpiresAt,
		session.AccessToken,
		session.RefreshToken,
		session.AccessTokenExpiresAt,
		time.Now(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}

	return nil
}

// Get retrieves a session by id.
//
// Returns (nil, nil) when no row exists; expiry is the caller's concern.
func (r *SessionRepository) Get(ctx context.Context, id string) (*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at, access_token, refresh_token, access_token_expires_at
		FROM sessions
		WHERE id = ?
	`

	var session models.Session
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&session.ID,
		&session.UserID,
		&session.ExpiresAt,
		&session.AccessToken,
		&session.RefreshToken,
		&session.AccessTokenExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan session: %w", err)
	}

	return &session, nil
}

// List retrieves all sessions ordered by expiry, soonest first.
func (r *SessionRepository) List(ctx context.Context) ([]*models.Session, error) {
	query := `
		SELECT id, user_id, expires_at, access_token, refresh_token, access_token_expires_at
		FROM sessions
		ORDER BY expires_at ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query sessions: %w", err)
	}
	defer rows.Close()

	var sessions []*models.Session
	for rows.Next() {
		var session models.Session
		err := rows.Scan(
			&session.ID,
			&session.UserID,
			&session.ExpiresAt,
			&session.AccessToken,
			&session.RefreshToken,
			&session.AccessTokenExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan session: %w", err)
		}
		sessions = append(sessions, &session)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return sessions, nil
}

// UpdateTokens persists a refreshed token triple in a single statement.
func (r *SessionRepository) UpdateTokens(ctx context.Context, id, accessToken, refreshToken string, accessTokenExpiresAt time.Time) error {
	query := `
		UPDATE sessions
		SET access_token = ?, refresh_token = ?, access_token_expires_at = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, accessToken, refreshToken, accessTokenExpiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to update session tokens: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("session not found: %s", id)
	}

	return nil
}

// UpdateExpiry extends a session's own lifetime (cookie freshness, not token refresh).
func (r *SessionRepository) UpdateExpiry(ctx context.Context, id string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx, "UPDATE sessions SET expires_at = ? WHERE id = ?", expiresAt, id)
	if err != nil {
		return fmt.Errorf("failed to update session expiry: %w", err)
	}
	return nil
}

// Delete removes a session row. Idempotent: deleting an absent id is not an error.
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes all sessions whose expiry has passed.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) error {
	if _, err := r.db.ExecContext(ctx, "DELETE FROM sessions WHERE expires_at < ?", now); err != nil {
		return fmt.Errorf("failed to delete expired sessions: %w", err)
	}
	return nil
}
