// package formatter exports recommendation results to various formats (CSV, Markdown, plain text)
package formatter

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wbru/vibematch/internal/recommend"
)

// FormatDistance renders a candidate distance, with +Inf shown as "n/a"
// (candidate had no comparable feature data).
func FormatDistance(d float64) string {
	if math.IsInf(d, 1) {
		return "n/a"
	}
	return strconv.FormatFloat(d, 'f', 4, 64)
}

// FormatDuration renders a track duration in milliseconds as m:ss.
func FormatDuration(ms int) string {
	secs := ms / 1000
	return fmt.Sprintf("%d:%02d", secs/60, secs%60)
}

// ToCSV converts a recommendation result to CSV with columns:
// ID, Title, Artists, Album, Distance, Explanation
func ToCSV(result *recommend.Result) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	headers := []string{"ID", "Title", "Artists", "Album", "Distance", "Explanation"}
	if err := writer.Write(headers); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, c := range result.Candidates {
		record := []string{
			c.Track.ID,
			c.Track.Name,
			strings.Join(c.Track.ArtistNames(), ", "),
			c.Track.Album.Name,
			FormatDistance(c.Distance),
			strings.Join(c.Explanation, ", "),
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}

	return buf.Bytes(), nil
}

// ToMarkdown converts a recommendation result to Markdown.
func ToMarkdown(result *recommend.Result, title string) ([]byte, error) {
	var buf bytes.Buffer

	if title == "" {
		title = "Recommendations"
	}
	buf.WriteString(fmt.Sprintf("# %s\n\n", title))

	if result.Reason != "" {
		buf.WriteString(fmt.Sprintf("_%s_\n", result.Reason))
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("**Candidates**: %d\n\n", len(result.Candidates)))

	for i, c := range result.Candidates {
		explanation := ""
		if len(c.Explanation) > 0 {
			explanation = fmt.Sprintf(" (%s)", strings.Join(c.Explanation, ", "))
		}
		buf.WriteString(fmt.Sprintf("%d. %s - %s [%s]%s\n",
			i+1, strings.Join(c.Track.ArtistNames(), ", "), c.Track.Name,
			FormatDistance(c.Distance), explanation))
	}

	if len(result.Seeds) > 0 {
		buf.WriteString("\n## Seeds\n\n")
		for _, s := range result.Seeds {
			if s.Skipped {
				buf.WriteString(fmt.Sprintf("- %s (skipped: %s)\n", s.SeedID, s.Reason))
			} else {
				buf.WriteString(fmt.Sprintf("- %s (%d candidates)\n", s.SeedID, s.Candidates))
			}
		}
	}

	return buf.Bytes(), nil
}

// ToText converts a recommendation result to plain text.
func ToText(result *recommend.Result) ([]byte, error) {
	var buf bytes.Buffer

	if result.Reason != "" {
		buf.WriteString(fmt.Sprintf("No recommendations: %s\n", result.Reason))
		return buf.Bytes(), nil
	}

	buf.WriteString(fmt.Sprintf("Recommendations: %d\n\n", len(result.Candidates)))
	for i, c := range result.Candidates {
		buf.WriteString(fmt.Sprintf("%d. %s - %s\n", i+1, strings.Join(c.Track.ArtistNames(), ", "), c.Track.Name))
		buf.WriteString(fmt.Sprintf("   Distance: %s\n", FormatDistance(c.Distance)))
		if len(c.Explanation) > 0 {
			buf.WriteString(fmt.Sprintf("   Why: %s\n", strings.Join(c.Explanation, ", ")))
		}
	}

	return buf.Bytes(), nil
}
