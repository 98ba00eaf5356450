package main

import (
	"context"
	"time"

	"github.com/ahumphreys/spindle/internal/repositories"
	"github.com/ahumphreys/spindle/internal/ui"
	"github.com/urfave/cli/v3"
)

// SessionsList prints all server-side sessions.
func (r *Runner) SessionsList(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	sessions, err := repositories.NewSessionRepository(db).List(ctx)
	if err != nil {
		return err
	}

	r.writePlainln(ui.Styles.Title("Sessions"))

	if len(sessions) == 0 {
		r.writePlainln(ui.Styles.Help("no sessions"))
		return nil
	}

	now := time.Now()
	for _, s := range sessions {
		state := ui.Styles.OK("live")
		if now.After(s.ExpiresAt) {
			state = ui.Styles.Err("expired")
		} else if now.After(s.AccessTokenExpiresAt) {
			state = ui.Styles.Warn("token stale")
		}

		r.writePlainln("%s  user=%s  expires=%s  %s",
			s.ID[:12],
			s.UserID,
			s.ExpiresAt.Format(time.RFC3339),
			state,
		)
	}

	return nil
}

// SessionsPrune deletes all expired sessions.
func (r *Runner) SessionsPrune(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	db, err := r.openDatabase(config)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := repositories.NewSessionRepository(db).DeleteExpired(ctx, time.Now()); err != nil {
		return err
	}

	r.writePlainln(ui.Styles.OK("✓ expired sessions removed"))
	return nil
}
