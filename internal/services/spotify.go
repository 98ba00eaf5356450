// Spotify API implementation of [Library]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"golang.org/x/time/rate"
)

const (
	spotifyBaseURL = "https://api.spotify.com/v1"

	// pageLimit is the fixed page size used for all paginated reads.
	pageLimit = 50
)

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Owner identifies the user owning a playlist.
type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID          string         `json:"id"`
	DisplayName string         `json:"display_name"`
	Email       string         `json:"email"`
	Images      []SpotifyImage `json:"images"`
}

type trackTotal struct {
	Total int `json:"total"`
}

// SimplePlaylist represents a simplified playlist object as returned in lists.
type SimplePlaylist struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Owner       Owner          `json:"owner"`
	Public      bool           `json:"public"`
	Tracks      trackTotal     `json:"tracks"`
	Images      []SpotifyImage `json:"images"`
	URI         string         `json:"uri"`
}

type trackArtist struct {
	Name string `json:"name"`
}

type trackAlbum struct {
	Name string `json:"name"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID         string        `json:"id"`
	Name       string        `json:"name"`
	Artists    []trackArtist `json:"artists"`
	Album      trackAlbum    `json:"album"`
	DurationMS int           `json:"duration_ms"`
	URI        string        `json:"uri"`
}

// PlaylistEntry represents a track within a playlist context.
type PlaylistEntry struct {
	AddedAt string       `json:"added_at"`
	Track   SpotifyTrack `json:"track"`
}

// SpotifyClient implements [Library] against the Spotify Web API.
//
// The client holds no token state: the access token lives in the caller's session
// and is passed per request.
type SpotifyClient struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewSpotifyClient creates a Spotify API client.
//
// baseURL defaults to the public API; tests point it at an httptest server.
func NewSpotifyClient(baseURL string, client *http.Client) *SpotifyClient {
	if baseURL == "" {
		baseURL = spotifyBaseURL
	}
	if client == nil {
		client = http.DefaultClient
	}

	return &SpotifyClient{
		baseURL:    baseURL,
		httpClient: client,
		limiter:    rate.NewLimiter(rate.Limit(10), 10),
	}
}

// doRequest performs an authenticated request and decodes the JSON response into result.
//
// Non-2xx responses are decoded from the error envelope into [*APIError]; a body
// that fails to decode is also an [*APIError] rather than a partial result.
func (c *SpotifyClient) doRequest(ctx context.Context, method, endpoint, accessToken string, body, result any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	var reqBody *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	} else {
		reqBody = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var envelope errorEnvelope
		if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil || envelope.Error.Status == 0 {
			return &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return &APIError{Status: envelope.Error.Status, Message: envelope.Error.Message}
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return &APIError{Status: resp.StatusCode, Message: fmt.Sprintf("malformed response body: %v", err)}
		}
	}

	return nil
}

// fetchAll aggregates every page of a paginated endpoint into one ordered slice.
//
// The first page is fetched synchronously to learn the total; the remaining pages
// are independent and fetched concurrently. The result concatenates pages in
// ascending offset order, so ordering is deterministic regardless of completion
// order. Any page failure fails the whole read.
func fetchAll[T any](ctx context.Context, c *SpotifyClient, accessToken, endpoint string) ([]T, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var first page[T]
	if err := c.doRequest(ctx, http.MethodGet, pageEndpoint(endpoint, 0), accessToken, nil, &first); err != nil {
		return nil, err
	}

	if first.Total <= pageLimit {
		return first.Items, nil
	}

	var offsets []int
	for offset := pageLimit; offset < first.Total; offset += pageLimit {
		offsets = append(offsets, offset)
	}

	pages := make([][]T, len(offsets))

	var wg sync.WaitGroup
	var once sync.Once
	var firstErr error

	fail := func(err error) {
		once.Do(func() {
			firstErr = err
			cancel()
		})
	}

	for i, offset := range offsets {
		wg.Add(1)
		go func(i, offset int) {
			defer wg.Done()

			var p page[T]
			if err := c.doRequest(ctx, http.MethodGet, pageEndpoint(endpoint, offset), accessToken, nil, &p); err != nil {
				fail(err)
				return
			}
			pages[i] = p.Items
		}(i, offset)
	}

	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}

	items := first.Items
	for _, p := range pages {
		items = append(items, p...)
	}

	return items, nil
}

// pageEndpoint appends limit/offset query parameters to an endpoint path.
func pageEndpoint(endpoint string, offset int) string {
	separator := "?"
	if strings.Contains(endpoint, "?") {
		separator = "&"
	}
	return fmt.Sprintf("%s%slimit=%d&offset=%d", endpoint, separator, pageLimit, offset)
}

// CurrentUser retrieves the authenticated user's profile.
func (c *SpotifyClient) CurrentUser(ctx context.Context, accessToken string) (*SpotifyUser, error) {
	var user SpotifyUser
	if err := c.doRequest(ctx, http.MethodGet, "/me", accessToken, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// UserPlaylists retrieves all playlists of the given Spotify user across all pages.
func (c *SpotifyClient) UserPlaylists(ctx context.Context, accessToken, spotifyUserID string) ([]SimplePlaylist, error) {
	endpoint := fmt.Sprintf("/users/%s/playlists", url.PathEscape(spotifyUserID))
	return fetchAll[SimplePlaylist](ctx, c, accessToken, endpoint)
}

// PlaylistTracks retrieves all track entries of a playlist across all pages.
func (c *SpotifyClient) PlaylistTracks(ctx context.Context, accessToken, playlistID string) ([]PlaylistEntry, error) {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	return fetchAll[PlaylistEntry](ctx, c, accessToken, endpoint)
}

// ReplacePlaylistItems overwrites the playlist's contents with the given ordered uris.
//
// This is the commit write path: a single opaque upstream call, errors surfaced
// through the same envelope as reads.
func (c *SpotifyClient) ReplacePlaylistItems(ctx context.Context, accessToken, playlistID string, uris []string) error {
	endpoint := fmt.Sprintf("/playlists/%s/tracks", url.PathEscape(playlistID))
	body := map[string][]string{"uris": uris}
	return c.doRequest(ctx, http.MethodPut, endpoint, accessToken, body, nil)
}
