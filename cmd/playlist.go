package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wbru/vibematch/internal/formatter"
	"github.com/wbru/vibematch/internal/shared"
)

// playlistID resolves the target playlist from the --id flag, falling back
// to the configured station playlist.
func (r *Runner) playlistID(cmd *cli.Command) (string, error) {
	id := cmd.String("id")
	if id == "" {
		id = r.config.Spotify.PlaylistID
	}
	if id == "" {
		return "", fmt.Errorf("%w: no playlist ID provided and none configured", shared.ErrMissingArgument)
	}
	return id, nil
}

// PlaylistTracks lists every track in the playlist.
func (r *Runner) PlaylistTracks(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	id, err := r.playlistID(cmd)
	if err != nil {
		return err
	}

	tracks, err := r.fetcher.PlaylistTracks(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist tracks: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	r.writePlain("Playlist %s (%d tracks)\n\n", id, len(tracks))
	for i, t := range tracks {
		r.writePlain("%3d. %s - %s (%s)\n", i+1, t.Name, strings.Join(t.ArtistNames(), ", "), formatter.FormatDuration(t.DurationMS))
	}
	return nil
}

// PlaylistDetails shows playlist metadata.
func (r *Runner) PlaylistDetails(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	id, err := r.playlistID(cmd)
	if err != nil {
		return err
	}

	details, err := r.fetcher.PlaylistDetails(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to fetch playlist details: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(details, cmd.Bool("pretty"))
	}

	r.writePlain("Name: %s\n", details.Name)
	if details.Description != "" {
		r.writePlain("Description: %s\n", details.Description)
	}
	r.writePlain("Owner: %s\n", details.Owner.ID)
	r.writePlain("Tracks: %d\n", details.Tracks.Total)
	r.writePlain("Public: %v\n", details.Public)
	return nil
}

// PlaylistAdd appends tracks to the playlist by URI.
func (r *Runner) PlaylistAdd(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	id, err := r.playlistID(cmd)
	if err != nil {
		return err
	}

	uris := cmd.StringArgs("uris")
	if len(uris) == 0 {
		return fmt.Errorf("%w: at least one track URI is required", shared.ErrMissingArgument)
	}

	var position *int
	if p := cmd.Int("position"); p >= 0 {
		position = &p
	}

	snapshot, err := r.fetcher.AddTracks(ctx, id, uris, position)
	if err != nil {
		return fmt.Errorf("failed to add tracks: %w", err)
	}

	r.logger.Info("tracks added", "count", len(uris), "snapshot", snapshot.SnapshotID)
	return r.writePlain("✓ Added %d track(s)\n", len(uris))
}

// PlaylistRemove removes tracks from the playlist by URI.
func (r *Runner) PlaylistRemove(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	id, err := r.playlistID(cmd)
	if err != nil {
		return err
	}

	uris := cmd.StringArgs("uris")
	if len(uris) == 0 {
		return fmt.Errorf("%w: at least one track URI is required", shared.ErrMissingArgument)
	}

	snapshot, err := r.fetcher.RemoveTracks(ctx, id, uris)
	if err != nil {
		return fmt.Errorf("failed to remove tracks: %w", err)
	}

	r.logger.Info("tracks removed", "count", len(uris), "snapshot", snapshot.SnapshotID)
	return r.writePlain("✓ Removed %d track(s)\n", len(uris))
}

// PlaylistSearch searches the Spotify catalog for tracks.
func (r *Runner) PlaylistSearch(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	query := cmd.StringArg("query")
	if query == "" {
		return fmt.Errorf("%w: search query is required", shared.ErrMissingArgument)
	}

	tracks, err := r.fetcher.Search(ctx, query, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(tracks, cmd.Bool("pretty"))
	}

	if len(tracks) == 0 {
		return r.writePlain("No tracks found for %q\n", query)
	}

	for i, t := range tracks {
		r.writePlain("%3d. %s - %s [%s]\n", i+1, t.Name, strings.Join(t.ArtistNames(), ", "), t.ID)
	}
	return nil
}
