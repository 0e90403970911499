package spotify

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/wbru/vibematch/internal/shared"
	"github.com/wbru/vibematch/internal/vibe"
)

const (
	// pageSize is the offset/limit window used when paging a playlist.
	pageSize = 100

	// featureBatchSize is the API's per-request ceiling on the batch audio
	// features endpoint.
	featureBatchSize = 100

	// topTrackLimit is how many of an artist's top tracks feed the candidate pool.
	topTrackLimit = 5
)

// Fetcher pages through playlists and batch-fetches audio features via a [Client].
type Fetcher struct {
	client *Client
	logger *log.Logger
}

// NewFetcher creates a new catalog [Fetcher].
func NewFetcher(client *Client, logger *log.Logger) *Fetcher {
	if logger == nil {
		logger = shared.NewLogger(nil)
	}
	return &Fetcher{client: client, logger: logger}
}

// PlaylistTracks retrieves every track of a playlist, paging with offset/limit
// windows until the server-reported total is reached or a short page signals
// the end. Entries without a valid track id are discarded.
func (f *Fetcher) PlaylistTracks(ctx context.Context, playlistID string) ([]Track, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var all []Track
	offset := 0

	for {
		endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, pageSize, offset)

		var page playlistTracksPage
		if err := f.client.Do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
			return nil, err
		}

		for _, item := range page.Items {
			if item.Track == nil || item.Track.ID == "" {
				continue
			}
			all = append(all, *item.Track)
		}

		if len(all) >= page.Total || len(page.Items) < pageSize {
			break
		}
		offset += pageSize
	}

	f.logger.Debug("fetched playlist tracks", "playlist", playlistID, "count", len(all))
	return all, nil
}

// AudioFeatures batch-fetches feature vectors for the given track ids,
// partitioning them into chunks the API accepts and filtering out null
// entries (tracks the analyzer could not process). Results keep chunk order.
func (f *Fetcher) AudioFeatures(ctx context.Context, ids []string) ([]vibe.FeatureVector, error) {
	var vectors []vibe.FeatureVector

	for start := 0; start < len(ids); start += featureBatchSize {
		end := start + featureBatchSize
		if end > len(ids) {
			end = len(ids)
		}

		joined := url.QueryEscape(strings.Join(ids[start:end], ","))
		var batch audioFeaturesBatch
		if err := f.client.Do(ctx, http.MethodGet, "/audio-features?ids="+joined, nil, &batch); err != nil {
			return nil, err
		}

		for _, features := range batch.AudioFeatures {
			if features == nil {
				continue
			}
			vectors = append(vectors, features.Vector())
		}
	}

	return vectors, nil
}

// TracksPage is one window of a playlist's tracks plus paging metadata.
type TracksPage struct {
	Tracks  []Track `json:"tracks"`
	Total   int     `json:"total"`
	Offset  int     `json:"offset"`
	Limit   int     `json:"limit"`
	HasMore bool    `json:"has_more"`
}

// PlaylistPage retrieves a single offset/limit window of a playlist's tracks,
// for callers that page themselves (the management UI's track list).
func (f *Fetcher) PlaylistPage(ctx context.Context, playlistID string, offset, limit int) (*TracksPage, error) {
	if limit <= 0 || limit > pageSize {
		limit = 30
	}
	if offset < 0 {
		offset = 0
	}

	endpoint := fmt.Sprintf("/playlists/%s/tracks?limit=%d&offset=%d", playlistID, limit, offset)

	var page playlistTracksPage
	if err := f.client.Do(ctx, http.MethodGet, endpoint, nil, &page); err != nil {
		return nil, err
	}

	result := &TracksPage{Total: page.Total, Offset: offset, Limit: limit}
	for _, item := range page.Items {
		if item.Track == nil || item.Track.ID == "" {
			continue
		}
		result.Tracks = append(result.Tracks, *item.Track)
	}
	result.HasMore = offset+len(page.Items) < page.Total

	return result, nil
}

// Track retrieves a single track by id.
func (f *Fetcher) Track(ctx context.Context, trackID string) (*Track, error) {
	var track Track
	if err := f.client.Do(ctx, http.MethodGet, "/tracks/"+trackID, nil, &track); err != nil {
		return nil, err
	}
	return &track, nil
}

// ArtistTopTracks retrieves an artist's top tracks (US market), capped at
// topTrackLimit.
func (f *Fetcher) ArtistTopTracks(ctx context.Context, artistID string) ([]Track, error) {
	var resp topTracksResponse
	endpoint := fmt.Sprintf("/artists/%s/top-tracks?market=US", artistID)
	if err := f.client.Do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}

	tracks := resp.Tracks
	if len(tracks) > topTrackLimit {
		tracks = tracks[:topTrackLimit]
	}
	return tracks, nil
}

// Search finds tracks matching a free-text query.
func (f *Fetcher) Search(ctx context.Context, query string, limit int) ([]Track, error) {
	if query == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if limit <= 0 || limit > 50 {
		limit = 20
	}

	endpoint := fmt.Sprintf("/search?q=%s&type=track&limit=%d", url.QueryEscape(query), limit)

	var resp searchResponse
	if err := f.client.Do(ctx, http.MethodGet, endpoint, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tracks.Items, nil
}

// PlaylistDetails retrieves playlist metadata.
func (f *Fetcher) PlaylistDetails(ctx context.Context, playlistID string) (*PlaylistDetails, error) {
	var details PlaylistDetails
	if err := f.client.Do(ctx, http.MethodGet, "/playlists/"+playlistID, nil, &details); err != nil {
		return nil, err
	}
	return &details, nil
}

// Me retrieves the authenticated user's profile.
func (f *Fetcher) Me(ctx context.Context) (*User, error) {
	var user User
	if err := f.client.Do(ctx, http.MethodGet, "/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
