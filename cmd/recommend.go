package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"
	"github.com/wbru/vibematch/internal/formatter"
	"github.com/wbru/vibematch/internal/shared"
)

// Recommend runs the vibe-match pipeline against the reference playlist
// and prints ranked candidates.
func (r *Runner) Recommend(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	id, err := r.playlistID(cmd)
	if err != nil {
		return err
	}

	limit := cmd.Int("limit")
	if limit <= 0 {
		limit = r.config.Vibe.ResultCount
	}

	r.logger.Info("running recommendation", "playlist", id, "limit", limit)

	result, err := r.orchestrator.RecommendPlaylist(ctx, id, limit)
	if err != nil {
		return fmt.Errorf("recommendation failed: %w", err)
	}

	var output []byte
	format := cmd.String("format")
	switch format {
	case "json":
		output, err = shared.MarshalJSON(result, cmd.Bool("pretty"))
	case "csv":
		output, err = formatter.ToCSV(result)
	case "markdown", "md":
		output, err = formatter.ToMarkdown(result, fmt.Sprintf("Recommendations for %s", id))
	case "text", "":
		output, err = formatter.ToText(result)
	default:
		return fmt.Errorf("%w: unknown format %q", shared.ErrInvalidArgument, format)
	}
	if err != nil {
		return fmt.Errorf("failed to format result: %w", err)
	}

	if path := cmd.String("output"); path != "" {
		if err := os.WriteFile(path, output, 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		return r.writePlain("✓ Wrote %d recommendation(s) to %s\n", len(result.Candidates), path)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

// History lists recent recommendation runs.
func (r *Runner) History(ctx context.Context, cmd *cli.Command) error {
	if err := r.init(); err != nil {
		return err
	}

	runs, err := r.history.Recent(ctx, cmd.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to load run history: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(runs, cmd.Bool("pretty"))
	}

	if len(runs) == 0 {
		return r.writePlain("No recommendation runs recorded yet\n")
	}

	for _, run := range runs {
		line := fmt.Sprintf("%s  playlist=%s ref=%d candidates=%d returned=%d",
			run.CreatedAt.Format("2006-01-02 15:04"), run.PlaylistID,
			run.ReferenceCount, run.CandidateCount, run.ReturnedCount)
		if run.Reason != "" {
			line += fmt.Sprintf(" (%s)", run.Reason)
		}
		r.writePlain("%s\n", strings.TrimSpace(line))
	}
	return nil
}
