package repositories

import (
	"context"
	"database/sql"
	"fmt"
)

// TargetRepository persists the per-(user, source playlist) target mapping.
type TargetRepository struct {
	db *sql.DB
}

// NewTargetRepository creates a new [TargetRepository] with the given database connection
func NewTargetRepository(db *sql.DB) *TargetRepository {
	return &TargetRepository{db: db}
}

// GetForUser returns the user's saved targets keyed by source playlist id.
func (r *TargetRepository) GetForUser(ctx context.Context, userID string) (map[string]string, error) {
	query := `
		SELECT source_id, target_id FROM target_overlay WHERE user_id = ?
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query target overlay: %w", err)
	}
	defer rows.Close()

	targets := make(map[string]string)
	for rows.Next() {
		var sourceID, targetID string
		if err := rows.Scan(&sourceID, &targetID); err != nil {
			return nil, fmt.Errorf("failed to scan target row: %w", err)
		}
		targets[sourceID] = targetID
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return targets, nil
}

// Set upserts the target for a source playlist; the latest target wins.
func (r *TargetRepository) Set(ctx context.Context, userID, sourceID, targetID string) error {
	query := `
		INSERT INTO target_overlay (user_id, source_id, target_id)
		VALUES (?, ?, ?)
		ON CONFLICT(user_id, source_id) DO UPDATE SET target_id = excluded.target_id
	`

	if _, err := r.db.ExecContext(ctx, query, userID, sourceID, targetID); err != nil {
		return fmt.Errorf("failed to set playlist target: %w", err)
	}

	return nil
}
