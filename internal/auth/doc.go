// Package auth implements the session lifecycle and the token refresh protocol.
//
// [Manager] validates session cookies against storage on every request. There is
// no in-memory session cache; each validation round-trips to SQLite, which keeps
// multiple instances consistent at the cost of per-request latency.
//
// Access tokens are refreshed synchronously in the request path when their expiry
// is inside the refresh window. Refreshes are serialized per session with a keyed
// mutex so two concurrent requests cannot both rotate the refresh token and discard
// the winner's write.
package auth
