// Spotify Web API response types, based on
// https://developer.spotify.com/documentation/web-api/reference/
package spotify

import "github.com/wbru/vibematch/internal/vibe"

// User represents a Spotify user profile.
type User struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Country     string `json:"country"`
	Product     string `json:"product"` // premium, free, etc.
}

// Image represents an image resource.
type Image struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

// Artist represents a Spotify artist.
type Artist struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URI  string `json:"uri"`
}

// Album represents a Spotify album.
type Album struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Images []Image `json:"images"`
	URI    string  `json:"uri"`
}

// Track represents a Spotify track.
type Track struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	Artists    []Artist `json:"artists"`
	Album      Album    `json:"album"`
	DurationMS int      `json:"duration_ms"`
	Explicit   bool     `json:"explicit"`
	Popularity int      `json:"popularity"`
	URI        string   `json:"uri"`
	PreviewURL string   `json:"preview_url"`
}

// PrimaryArtist returns the first credited artist id, or "" when unknown.
func (t Track) PrimaryArtist() string {
	if len(t.Artists) == 0 {
		return ""
	}
	return t.Artists[0].ID
}

// ArtistNames returns all credited artist names.
func (t Track) ArtistNames() []string {
	names := make([]string, 0, len(t.Artists))
	for _, a := range t.Artists {
		names = append(names, a.Name)
	}
	return names
}

type followers struct {
	Total int `json:"total"`
}

// PlaylistDetails represents playlist metadata.
type PlaylistDetails struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Public        bool      `json:"public"`
	Collaborative bool      `json:"collaborative"`
	Owner         User      `json:"owner"`
	Followers     followers `json:"followers"`
	Images        []Image   `json:"images"`
	Tracks        struct {
		Total int `json:"total"`
	} `json:"tracks"`
	URI string `json:"uri"`
}

// playlistTrackItem wraps a track within a playlist context.
type playlistTrackItem struct {
	AddedAt string `json:"added_at"`
	Track   *Track `json:"track"`
}

// playlistTracksPage is one offset/limit window of a playlist's tracks.
type playlistTracksPage struct {
	Items  []playlistTrackItem `json:"items"`
	Total  int                 `json:"total"`
	Limit  int                 `json:"limit"`
	Offset int                 `json:"offset"`
}

// AudioFeatures represents the audio analysis summary for one track.
//
// A track the analyzer could not process comes back as a null entry in the
// batch endpoint's array, which is why the batch response uses pointers.
type AudioFeatures struct {
	ID               string  `json:"id"`
	Danceability     float64 `json:"danceability"`
	Energy           float64 `json:"energy"`
	Valence          float64 `json:"valence"`
	Tempo            float64 `json:"tempo"`
	Acousticness     float64 `json:"acousticness"`
	Instrumentalness float64 `json:"instrumentalness"`
	Liveness         float64 `json:"liveness"`
	Speechiness      float64 `json:"speechiness"`
	DurationMS       int     `json:"duration_ms"`
}

// Vector converts the audio features to a [vibe.FeatureVector].
func (f AudioFeatures) Vector() vibe.FeatureVector {
	return vibe.FeatureVector{
		ItemID: f.ID,
		Dims: map[string]float64{
			vibe.AxisDanceability:     f.Danceability,
			vibe.AxisEnergy:           f.Energy,
			vibe.AxisValence:          f.Valence,
			vibe.AxisTempo:            f.Tempo,
			vibe.AxisAcousticness:     f.Acousticness,
			vibe.AxisInstrumentalness: f.Instrumentalness,
			vibe.AxisLiveness:         f.Liveness,
			vibe.AxisSpeechiness:      f.Speechiness,
		},
	}
}

// audioFeaturesBatch is the batch features endpoint response.
type audioFeaturesBatch struct {
	AudioFeatures []*AudioFeatures `json:"audio_features"`
}

// topTracksResponse is the artist top-tracks endpoint response.
type topTracksResponse struct {
	Tracks []Track `json:"tracks"`
}

// searchResponse is the track search endpoint response.
type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
	} `json:"tracks"`
}

// SnapshotResponse carries the playlist snapshot id returned by mutation endpoints.
type SnapshotResponse struct {
	SnapshotID string `json:"snapshot_id"`
}
