package spotify

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wbru/vibematch/internal/shared"
)

// Playlist write operations, pass-throughs for the management UI.

// AddTracks appends (or inserts, when position is non-nil) track URIs to a playlist.
func (f *Fetcher) AddTracks(ctx context.Context, playlistID string, uris []string, position *int) (*SnapshotResponse, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: track uris", shared.ErrMissingArgument)
	}

	body := map[string]any{"uris": uris}
	if position != nil {
		body["position"] = *position
	}

	var snap SnapshotResponse
	if err := f.client.Do(ctx, http.MethodPost, "/playlists/"+playlistID+"/tracks", body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// RemoveTracks removes all occurrences of the given track URIs from a playlist.
func (f *Fetcher) RemoveTracks(ctx context.Context, playlistID string, uris []string) (*SnapshotResponse, error) {
	if len(uris) == 0 {
		return nil, fmt.Errorf("%w: track uris", shared.ErrMissingArgument)
	}

	tracks := make([]map[string]string, 0, len(uris))
	for _, uri := range uris {
		tracks = append(tracks, map[string]string{"uri": uri})
	}

	var snap SnapshotResponse
	if err := f.client.Do(ctx, http.MethodDelete, "/playlists/"+playlistID+"/tracks", map[string]any{"tracks": tracks}, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// ReorderTracks moves one track from rangeStart to before insertBefore.
func (f *Fetcher) ReorderTracks(ctx context.Context, playlistID string, rangeStart, insertBefore int) (*SnapshotResponse, error) {
	body := map[string]any{
		"range_start":   rangeStart,
		"insert_before": insertBefore,
		"range_length":  1,
	}

	var snap SnapshotResponse
	if err := f.client.Do(ctx, http.MethodPut, "/playlists/"+playlistID+"/tracks", body, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// UpdateDetails changes a playlist's name, description, or visibility.
// Nil fields are left untouched.
func (f *Fetcher) UpdateDetails(ctx context.Context, playlistID string, name, description *string, public *bool) error {
	body := map[string]any{}
	if name != nil {
		body["name"] = *name
	}
	if description != nil {
		body["description"] = *description
	}
	if public != nil {
		body["public"] = *public
	}
	if len(body) == 0 {
		return fmt.Errorf("%w: nothing to update", shared.ErrInvalidInput)
	}

	return f.client.Do(ctx, http.MethodPut, "/playlists/"+playlistID, body, nil)
}
