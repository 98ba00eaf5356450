// Package services implements the Spotify Web API client.
//
// All reads of paginated endpoints go through a single aggregation routine: the
// first page is fetched synchronously to learn the total, the remaining pages are
// fetched concurrently (rate limited, cancelled on request abort or first failure),
// and the items are concatenated in ascending offset order. The upstream's natural
// order is preserved; nothing is sorted at this layer.
//
// Non-success responses are decoded from Spotify's {error:{status,message}} envelope
// into [*APIError] and surfaced verbatim to callers.
package services
