package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

const (
	spotifyAuthURL  = "https://accounts.spotify.com/authorize"
	spotifyTokenURL = "https://accounts.spotify.com/api/token"
)

// spotifyScopes covers reading private playlists and committing reordered tracks.
var spotifyScopes = []string{
	"user-read-email",
	"user-read-private",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-private",
	"playlist-modify-public",
}

// Authenticator is the OAuth collaborator: authorization URL construction, code
// exchange, and refresh-token redemption. Implemented by [SpotifyAuthenticator];
// tests substitute fakes.
type Authenticator interface {
	AuthorizationURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// SpotifyAuthenticator wraps [oauth2.Config] for the Spotify accounts service.
type SpotifyAuthenticator struct {
	config *oauth2.Config
}

// NewSpotifyAuthenticator builds the OAuth client from credentials.
//
// authURL/tokenURL default to the Spotify accounts endpoints; tests override them.
func NewSpotifyAuthenticator(clientID, clientSecret, redirectURI, authURL, tokenURL string) (*SpotifyAuthenticator, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("spotify client credentials are required")
	}
	if authURL == "" {
		authURL = spotifyAuthURL
	}
	if tokenURL == "" {
		tokenURL = spotifyTokenURL
	}

	return &SpotifyAuthenticator{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURI,
			Scopes:       spotifyScopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  authURL,
				TokenURL: tokenURL,
			},
		},
	}, nil
}

// AuthorizationURL returns the OAuth2 authorization URL for user login.
func (a *SpotifyAuthenticator) AuthorizationURL(state string) string {
	return a.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange swaps an authorization code for a token set.
func (a *SpotifyAuthenticator) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := a.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// Refresh redeems a refresh token for a new access token.
//
// Spotify may omit a new refresh token from the response; the returned token's
// RefreshToken field is then the one passed in (oauth2 preserves it) or empty.
// Callers must retain their stored refresh token when empty.
func (a *SpotifyAuthenticator) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	source := a.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	token, err := source.Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh access token: %w", err)
	}
	return token, nil
}
