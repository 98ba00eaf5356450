package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ahumphreys/spindle/internal/models"
	"github.com/ahumphreys/spindle/internal/shared"
)

// UserRepository persists [models.User] rows.
type UserRepository struct {
	db *sql.DB
}

// NewUserRepository creates a new [UserRepository] with the given database connection
func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a new user with a generated local id and returns it.
func (r *UserRepository) Create(ctx context.Context, username, spotifyID string) (*models.User, error) {
	user := &models.User{
		ID:        shared.GenerateID(),
		Username:  username,
		SpotifyID: spotifyID,
		CreatedAt: time.Now(),
	}

	query := `
		INSERT INTO users (id, username, spotify_id, created_at) VALUES (?, ?, ?, ?)
	`

	if _, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.SpotifyID, user.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}

	return user, nil
}

// Get retrieves a user by local id.
func (r *UserRepository) Get(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, username, spotify_id, created_at FROM users WHERE id = ?
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id))
}

// GetBySpotifyID retrieves a user by their Spotify account id.
//
// Returns (nil, nil) when no such user exists, so callers can distinguish
// first login from a storage failure.
func (r *UserRepository) GetBySpotifyID(ctx context.Context, spotifyID string) (*models.User, error) {
	query := `
		SELECT id, username, spotify_id, created_at FROM users WHERE spotify_id = ?
	`

	user, err := r.scanOne(r.db.QueryRowContext(ctx, query, spotifyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// UpdateUsername refreshes the stored display name on re-login.
func (r *UserRepository) UpdateUsername(ctx context.Context, id, username string) error {
	result, err := r.db.ExecContext(ctx, "UPDATE users SET username = ? WHERE id = ?", username, id)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("user not found: %s", id)
	}

	return nil
}

func (r *UserRepository) scanOne(row *sql.Row) (*models.User, error) {
	var user models.User

	err := row.Scan(&user.ID, &user.Username, &user.SpotifyID, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan user: %w", err)
	}

	return &user, nil
}
