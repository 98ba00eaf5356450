package tasks

import (
	"context"
	"fmt"
	"net/url"
	"sort"

	"github.com/ahumphreys/spindle/internal/models"
	"github.com/ahumphreys/spindle/internal/repositories"
	"github.com/ahumphreys/spindle/internal/services"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// placeholderImageURL renders a square tile showing the playlist's first character.
const placeholderImageURL = "https://placehold.co/300x300?text=%s"

// LibraryEngine merges remote playlist data with the metadata overlay store.
//
// Output is rebuilt from storage and the upstream API on every call; nothing is
// cached across requests.
type LibraryEngine struct {
	library    services.Library
	visibility *repositories.VisibilityRepository
	targets    *repositories.TargetRepository
	collator   *collate.Collator
}

// NewLibraryEngine creates an engine sorting names according to locale.
//
// An empty or unknown locale falls back to English collation.
func NewLibraryEngine(library services.Library, visibility *repositories.VisibilityRepository, targets *repositories.TargetRepository, locale string) *LibraryEngine {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}

	return &LibraryEngine{
		library:    library,
		visibility: visibility,
		targets:    targets,
		collator:   collate.New(tag),
	}
}

// AssemblePlaylists produces the user's merged playlist view:
//
//  1. fetch every remote playlist page,
//  2. persist default visibility rows for playlists seen for the first time
//     (one transaction for the whole batch),
//  3. attach visibility flags and saved target mappings,
//  4. synthesize placeholder artwork where upstream has none,
//  5. sort by name with locale-aware comparison, ascending.
func (e *LibraryEngine) AssemblePlaylists(ctx context.Context, user *models.User, session *models.Session) ([]models.Playlist, error) {
	remote, err := e.library.UserPlaylists(ctx, session.AccessToken, user.SpotifyID)
	if err != nil {
		return nil, err
	}

	visibility, err := e.visibility.GetForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	var unseen []string
	for _, p := range remote {
		if _, ok := visibility[p.ID]; !ok {
			unseen = append(unseen, p.ID)
		}
	}
	if err := e.visibility.EnsureDefaults(ctx, user.ID, unseen); err != nil {
		return nil, err
	}

	targets, err := e.targets.GetForUser(ctx, user.ID)
	if err != nil {
		return nil, err
	}

	playlists := make([]models.Playlist, 0, len(remote))
	for _, p := range remote {
		visible, ok := visibility[p.ID]
		if !ok {
			visible = true
		}

		playlists = append(playlists, models.Playlist{
			ID:         p.ID,
			Name:       p.Name,
			ImageURL:   artworkURL(p),
			TrackCount: p.Tracks.Total,
			Owner:      p.Owner.DisplayName,
			URI:        p.URI,
			Public:     p.Public,
			IsVisible:  visible,
			TargetID:   targets[p.ID],
		})
	}

	e.sortByName(playlists)
	return playlists, nil
}

// PlaylistTracks returns every track entry of a playlist in upstream order.
func (e *LibraryEngine) PlaylistTracks(ctx context.Context, session *models.Session, playlistID string) ([]models.PlaylistTrack, error) {
	entries, err := e.library.PlaylistTracks(ctx, session.AccessToken, playlistID)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.PlaylistTrack, 0, len(entries))
	for _, entry := range entries {
		track := models.PlaylistTrack{
			ID:         entry.Track.ID,
			Name:       entry.Track.Name,
			DurationMS: entry.Track.DurationMS,
			URI:        entry.Track.URI,
			AddedAt:    entry.AddedAt,
		}
		if len(entry.Track.Artists) > 0 {
			track.Artist = entry.Track.Artists[0].Name
		}
		track.Album = entry.Track.Album.Name

		tracks = append(tracks, track)
	}

	return tracks, nil
}

// ToggleVisibility flips each id's stored flag in one transaction. Ids with no
// stored row are treated as visible and flipped to hidden.
func (e *LibraryEngine) ToggleVisibility(ctx context.Context, userID string, collectionIDs []string) error {
	return e.visibility.Toggle(ctx, userID, collectionIDs)
}

// SetVisibility upserts an explicit flag for each id, independent of prior state.
func (e *LibraryEngine) SetVisibility(ctx context.Context, userID string, collectionIDs []string, visible bool) error {
	return e.visibility.Set(ctx, userID, collectionIDs, visible)
}

// SetTarget saves the target playlist for a source playlist, replacing any
// previous mapping.
func (e *LibraryEngine) SetTarget(ctx context.Context, userID, sourceID, targetID string) error {
	return e.targets.Set(ctx, userID, sourceID, targetID)
}

// Commit overwrites the playlist's track order upstream with the given uris.
func (e *LibraryEngine) Commit(ctx context.Context, session *models.Session, playlistID string, uris []string) error {
	return e.library.ReplacePlaylistItems(ctx, session.AccessToken, playlistID, uris)
}

// CompareNames exposes the engine's collation order, primarily for tests and any
// caller needing ordering consistent with assembled output.
func (e *LibraryEngine) CompareNames(a, b string) int {
	return e.collator.CompareString(a, b)
}

func (e *LibraryEngine) sortByName(playlists []models.Playlist) {
	sort.SliceStable(playlists, func(i, j int) bool {
		return e.collator.CompareString(playlists[i].Name, playlists[j].Name) < 0
	})
}

// artworkURL picks the upstream image or synthesizes a deterministic placeholder
// from the playlist name's first character.
func artworkURL(p services.SimplePlaylist) string {
	if len(p.Images) > 0 && p.Images[0].URL != "" {
		return p.Images[0].URL
	}

	initial := "?"
	for _, r := range p.Name {
		initial = string(r)
		break
	}

	return fmt.Sprintf(placeholderImageURL, url.QueryEscape(initial))
}
