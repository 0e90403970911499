package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/wbru/vibematch/internal/shared"
	itest "github.com/wbru/vibematch/internal/testing"
)

func testFetcher(t *testing.T, handler http.HandlerFunc) *Fetcher {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client := NewClient(ClientOpts{
		BaseURL: srv.URL,
		Tokens:  itest.NewStaticTokens("test-token"),
	})
	return NewFetcher(client, nil)
}

// trackItem builds a playlist item JSON fragment for a track id.
func trackItem(id string) map[string]any {
	return map[string]any{"track": map[string]any{"id": id, "name": "track " + id}}
}

func TestPlaylistTracks(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects Empty ID", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {})
		if _, err := f.PlaylistTracks(ctx, ""); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Pages Until Total Reached", func(t *testing.T) {
		total := 150
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
			limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

			items := []map[string]any{}
			for i := offset; i < total && i < offset+limit; i++ {
				items = append(items, trackItem(fmt.Sprintf("t%03d", i)))
			}
			json.NewEncoder(w).Encode(map[string]any{"items": items, "total": total})
		})

		tracks, err := f.PlaylistTracks(ctx, "pl")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != total {
			t.Errorf("got %d tracks, want %d", len(tracks), total)
		}
		if tracks[0].ID != "t000" || tracks[total-1].ID != fmt.Sprintf("t%03d", total-1) {
			t.Error("tracks are not in playlist order")
		}
	})

	t.Run("Short Page Ends Paging", func(t *testing.T) {
		var requests int
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			requests++
			// total claims more than the server will ever return
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{trackItem("a"), trackItem("b")},
				"total": 500,
			})
		})

		tracks, err := f.PlaylistTracks(ctx, "pl")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if requests != 1 {
			t.Errorf("expected 1 request, got %d", requests)
		}
		if len(tracks) != 2 {
			t.Errorf("got %d tracks, want 2", len(tracks))
		}
	})

	t.Run("Discards Invalid Entries", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{
					trackItem("keep"),
					{"track": nil},                      // removed from catalog
					{"track": map[string]any{"id": ""}}, // local file
				},
				"total": 3,
			})
		})

		tracks, err := f.PlaylistTracks(ctx, "pl")
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 1 || tracks[0].ID != "keep" {
			t.Errorf("got %v, want only the valid track", tracks)
		}
	})
}

func TestAudioFeatures(t *testing.T) {
	ctx := context.Background()

	t.Run("Chunks Large Requests", func(t *testing.T) {
		var batchSizes []int
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			ids := strings.Split(r.URL.Query().Get("ids"), ",")
			batchSizes = append(batchSizes, len(ids))

			features := make([]map[string]any, 0, len(ids))
			for _, id := range ids {
				features = append(features, map[string]any{"id": id, "energy": 0.5})
			}
			json.NewEncoder(w).Encode(map[string]any{"audio_features": features})
		})

		ids := make([]string, 0, 250)
		for i := range 250 {
			ids = append(ids, fmt.Sprintf("t%03d", i))
		}

		vectors, err := f.AudioFeatures(ctx, ids)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(vectors) != 250 {
			t.Errorf("got %d vectors, want 250", len(vectors))
		}
		want := []int{100, 100, 50}
		if len(batchSizes) != len(want) {
			t.Fatalf("batch sizes = %v, want %v", batchSizes, want)
		}
		for i := range want {
			if batchSizes[i] != want[i] {
				t.Errorf("batch sizes = %v, want %v", batchSizes, want)
				break
			}
		}
		// chunk order must be preserved
		if vectors[0].ItemID != "t000" || vectors[249].ItemID != "t249" {
			t.Error("vectors are not in request order")
		}
	})

	t.Run("Skips Null Features", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"audio_features":[{"id":"a","energy":0.4},null,{"id":"c","energy":0.6}]}`))
		})

		vectors, err := f.AudioFeatures(ctx, []string{"a", "b", "c"})
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(vectors) != 2 {
			t.Fatalf("got %d vectors, want 2", len(vectors))
		}
		if vectors[0].ItemID != "a" || vectors[1].ItemID != "c" {
			t.Errorf("got %v, want vectors for a and c", vectors)
		}
	})

	t.Run("Empty Input Makes No Request", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			t.Error("no request expected for empty input")
		})

		vectors, err := f.AudioFeatures(ctx, nil)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if vectors != nil {
			t.Errorf("expected nil, got %v", vectors)
		}
	})
}

func TestArtistTopTracks(t *testing.T) {
	f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("market"); got != "US" {
			t.Errorf("market = %q, want US", got)
		}

		tracks := make([]map[string]any, 0, 10)
		for i := range 10 {
			tracks = append(tracks, map[string]any{"id": fmt.Sprintf("top%d", i)})
		}
		json.NewEncoder(w).Encode(map[string]any{"tracks": tracks})
	})

	tracks, err := f.ArtistTopTracks(context.Background(), "artist1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if len(tracks) != topTrackLimit {
		t.Errorf("got %d tracks, want %d", len(tracks), topTrackLimit)
	}
	if tracks[0].ID != "top0" {
		t.Errorf("first track = %q, want top0", tracks[0].ID)
	}
}

func TestPlaylistPage(t *testing.T) {
	ctx := context.Background()

	t.Run("Reports HasMore", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{trackItem("a"), trackItem("b")},
				"total": 10,
			})
		})

		page, err := f.PlaylistPage(ctx, "pl", 0, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if !page.HasMore {
			t.Error("expected HasMore for a partial window")
		}
		if page.Total != 10 || len(page.Tracks) != 2 {
			t.Errorf("page = %+v, want total 10 with 2 tracks", page)
		}
	})

	t.Run("Last Window", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			json.NewEncoder(w).Encode(map[string]any{
				"items": []map[string]any{trackItem("y"), trackItem("z")},
				"total": 10,
			})
		})

		page, err := f.PlaylistPage(ctx, "pl", 8, 2)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if page.HasMore {
			t.Error("expected HasMore to be false on the last window")
		}
	})

	t.Run("Clamps Invalid Window", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("limit"); got != "30" {
				t.Errorf("limit = %q, want 30", got)
			}
			if got := r.URL.Query().Get("offset"); got != "0" {
				t.Errorf("offset = %q, want 0", got)
			}
			json.NewEncoder(w).Encode(map[string]any{"items": []map[string]any{}, "total": 0})
		})

		if _, err := f.PlaylistPage(ctx, "pl", -5, 0); err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
	})
}

func TestSearch(t *testing.T) {
	ctx := context.Background()

	t.Run("Rejects Empty Query", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {})
		if _, err := f.Search(ctx, "", 10); !errors.Is(err, shared.ErrMissingArgument) {
			t.Errorf("expected ErrMissingArgument, got %v", err)
		}
	})

	t.Run("Returns Matching Tracks", func(t *testing.T) {
		f := testFetcher(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("q"); got != "hello world" {
				t.Errorf("q = %q, want hello world", got)
			}
			w.Write([]byte(`{"tracks":{"items":[{"id":"hit1"},{"id":"hit2"}]}}`))
		})

		tracks, err := f.Search(ctx, "hello world", 10)
		if err != nil {
			t.Fatalf("expected no error, got %v", err)
		}
		if len(tracks) != 2 || tracks[0].ID != "hit1" {
			t.Errorf("got %v, want hit1 and hit2", tracks)
		}
	})
}
