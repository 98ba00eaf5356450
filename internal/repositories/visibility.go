package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// VisibilityRepository persists the per-(user, playlist) visibility overlay.
//
// Rows are created lazily the first time a playlist is observed for a user and
// never proactively deleted; stale rows for since-deleted playlists are tolerated.
type VisibilityRepository struct {
	db *sql.DB
}

// NewVisibilityRepository creates a new [VisibilityRepository] with the given database connection
func NewVisibilityRepository(db *sql.DB) *VisibilityRepository {
	return &VisibilityRepository{db: db}
}

// GetForUser returns the user's visibility map keyed by collection id.
func (r *VisibilityRepository) GetForUser(ctx context.Context, userID string) (map[string]bool, error) {
	query := `
		SELECT collection_id, visible FROM visibility_overlay WHERE user_id = ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query visibility overlay: %w", err)
	}
	defer rows.Close()

	visibility := make(map[string]bool)
	for rows.Next() {
		var collectionID string
		var visible bool
		if err := rows.Scan(&collectionID, &visible); err != nil {
			return nil, fmt.Errorf("failed to scan visibility row: %w", err)
		}
		visibility[collectionID] = visible
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return visibility, nil
}

// EnsureDefaults inserts visible=true rows for every id the user has no row for yet,
// batched in one transaction. Existing rows are left untouched.
func (r *VisibilityRepository) EnsureDefaults(ctx context.Context, userID string, collectionIDs []string) error {
	if len(collectionIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO visibility_overlay (user_id, collection_id, visible)
		VALUES (?, ?, 1)
		ON CONFLICT(user_id, collection_id) DO NOTHING
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, id := range collectionIDs {
		if _, err := stmt.ExecContext(ctx, userID, id); err != nil {
			return fmt.Errorf("failed to insert default visibility for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit visibility defaults: %w", err)
	}

	return nil
}

// Toggle flips the stored flag for each id in one transaction.
//
// Defined for ids with no existing row: the default (visible) is negated, so the
// insert arm writes visible=0.
func (r *VisibilityRepository) Toggle(ctx context.Context, userID string, collectionIDs []string) error {
	if len(collectionIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO visibility_overlay (user_id, collection_id, visible)
		VALUES (?, ?, 0)
		ON CONFLICT(user_id, collection_id) DO UPDATE SET visible = NOT visible
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare toggle: %w", err)
	}
	defer stmt.Close()

	for _, id := range collectionIDs {
		if _, err := stmt.ExecContext(ctx, userID, id); err != nil {
			return fmt.Errorf("failed to toggle visibility for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit visibility toggle: %w", err)
	}

	return nil
}

// Set upserts the flag to an explicit value for each id, independent of prior state.
func (r *VisibilityRepository) Set(ctx context.Context, userID string, collectionIDs []string, visible bool) error {
	if len(collectionIDs) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	query := `
		INSERT INTO visibility_overlay (user_id, collection_id, visible)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, collection_id) DO UPDATE SET visible = excluded.visible
	`

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to prepare set: %w", err)
	}
	defer stmt.Close()

	for _, id := range collectionIDs {
		if _, err := stmt.ExecContext(ctx, userID, id, visible); err != nil {
			return fmt.Errorf("failed to set visibility for %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit visibility set: %w", err)
	}

	return nil
}
