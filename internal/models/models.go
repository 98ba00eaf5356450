package models

import "time"

// User is a local account keyed to a Spotify account.
//
// Created on first successful login; only Username is mutated (on re-login),
// and users are never deleted by this service.
type User struct {
	ID        string    // Local identifier, not the Spotify user id
	Username  string    // Spotify display name
	SpotifyID string    // Spotify account id, unique
	CreatedAt time.Time
}

// Session binds a browser-presented identifier to a user and a pair of OAuth tokens.
//
// ExpiresAt is the session's own lifetime; AccessTokenExpiresAt is the boundary
// used to decide token refresh. The two clocks are independent: a session outlives
// its access token many times over via refresh.
type Session struct {
	ID                   string
	UserID               string
	ExpiresAt            time.Time
	AccessToken          string
	RefreshToken         string
	AccessTokenExpiresAt time.Time

	// Fresh is set during validation when the session expiry was extended and the
	// caller must reissue the session cookie. Not persisted.
	Fresh bool
}

// Playlist is the per-request merged view of a remote playlist and the local
// overlay fields. Constructed fresh for every request, never shared or persisted.
type Playlist struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ImageURL   string `json:"imageUrl"`
	TrackCount int    `json:"trackCount"`
	Owner      string `json:"owner"`
	URI        string `json:"uri"`
	Public     bool   `json:"public"`
	IsVisible  bool   `json:"isVisible"`          // Whether the playlist shows up in the app
	TargetID   string `json:"targetId,omitempty"` // Saved target playlist id, empty when unset
}

// PlaylistTrack is a track entry within one playlist, in playlist order.
type PlaylistTrack struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Artist     string `json:"artist"`
	Album      string `json:"album"`
	DurationMS int    `json:"durationMs"`
	URI        string `json:"uri"`
	AddedAt    string `json:"addedAt"`
}
