// Package models defines domain entities for the spindle playlist service.
//
// The package contains two categories of types:
//
// 1. Persisted entities backed by SQLite rows:
//   - [User] : Local account created on first Spotify login
//   - [Session] : Server-side session binding a cookie to a user and OAuth tokens
//
// 2. Per-request view types, never persisted:
//   - [Playlist] : A remote playlist merged with the local overlay fields
//   - [PlaylistTrack] : A track entry within one playlist
//
// Overlay rows (visibility_overlay, target_overlay) have no dedicated struct;
// repositories expose them as maps keyed by collection id.
package models
