package services

import (
	"context"
	"fmt"
)

// Library defines the remote collection surface consumed by the assembler and the
// web handlers. Implemented by [SpotifyClient]; test doubles implement it in tests.
type Library interface {
	// CurrentUser retrieves the authenticated user's profile.
	CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error)

	// UserPlaylists retrieves every playlist of the given Spotify user, all pages.
	UserPlaylists(ctx context.Context, accessToken, spotifyUserID string) ([]SimplePlaylist, error)

	// PlaylistTracks retrieves every track entry of a playlist, all pages, in playlist order.
	PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]PlaylistEntry, error)

	// ReplacePlaylistItems overwrites a playlist with the full ordered uri list.
	ReplacePlaylistItems(ctx context.Context, accessToken, playlistID string, uris []string) error
}

// APIError is a non-success response from the Spotify API, decoded from the
// {error:{status,message}} envelope. Handlers surface it as an equivalent HTTP status.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("spotify API error: status %d: %s", e.Status, e.Message)
}

// errorEnvelope mirrors the wire shape of Spotify error responses.
type errorEnvelope struct {
	Error struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"error"`
}

// page is the envelope Spotify wraps all paginated collections in.
type page[T any] struct {
	Items    []T     `json:"items"`
	Total    int     `json:"total"`
	Limit    int     `json:"limit"`
	Offset   int     `json:"offset"`
	Next     *string `json:"next"`
	Previous *string `json:"previous"`
}
