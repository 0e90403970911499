// package vibe implements the taste-vector math behind playlist
// recommendations: centroid and variance of audio-feature vectors, normalized
// Euclidean distance, representative track selection, and match explanations.
//
// Everything here is pure computation; no I/O and no network.
package vibe

import (
	"math"
	"sort"
)

// Audio feature axes as named by the Spotify audio-features endpoint.
const (
	AxisDanceability     = "danceability"
	AxisEnergy           = "energy"
	AxisValence          = "valence"
	AxisTempo            = "tempo"
	AxisAcousticness     = "acousticness"
	AxisInstrumentalness = "instrumentalness"
	AxisLiveness         = "liveness"
	AxisSpeechiness      = "speechiness"
)

// tempoScale normalizes the tempo axis (roughly 0-200 BPM) into the 0-1 range
// shared by every other axis, so it cannot dominate the distance.
const tempoScale = 200.0

// Axes is the fixed set of axes considered by centroid and distance computation.
var Axes = []string{
	AxisDanceability,
	AxisEnergy,
	AxisValence,
	AxisTempo,
	AxisAcousticness,
	AxisInstrumentalness,
	AxisLiveness,
	AxisSpeechiness,
}

// FeatureVector describes one track by its audio feature values.
//
// Dims is sparse: an absent key means the upstream service could not produce
// a value for that axis. Vectors are immutable once fetched.
type FeatureVector struct {
	ItemID string
	Dims   map[string]float64
}

// Value returns the value for axis and whether it is present.
func (v FeatureVector) Value(axis string) (float64, bool) {
	val, ok := v.Dims[axis]
	return val, ok
}

// Centroid is the per-axis mean and variance of a collection of feature
// vectors, representing the typical point of a reference set.
type Centroid struct {
	Dims     map[string]float64
	Variance map[string]float64
}

// ComputeCentroid computes the per-axis mean and variance of the given
// vectors, or nil when the input is empty.
//
// Axes are averaged independently: a vector missing an axis is excluded from
// that axis only, so vectors need not have uniform coverage.
func ComputeCentroid(vectors []FeatureVector) *Centroid {
	if len(vectors) == 0 {
		return nil
	}

	centroid := &Centroid{
		Dims:     make(map[string]float64),
		Variance: make(map[string]float64),
	}

	for _, axis := range Axes {
		var sum float64
		var n int
		for _, v := range vectors {
			if val, ok := v.Value(axis); ok {
				sum += val
				n++
			}
		}
		if n == 0 {
			continue
		}

		mean := sum / float64(n)
		centroid.Dims[axis] = mean

		var sq float64
		for _, v := range vectors {
			if val, ok := v.Value(axis); ok {
				sq += (val - mean) * (val - mean)
			}
		}
		centroid.Variance[axis] = sq / float64(n)
	}

	return centroid
}

// Distance returns the normalized Euclidean distance between a vector and a
// centroid over the fixed axis set. Tempo values are scaled into 0-1 before
// squaring. Only axes present in both contribute; when no axes overlap the
// distance is +Inf so incomparable candidates sort last instead of crashing
// the ranking.
func Distance(v FeatureVector, centroid *Centroid) float64 {
	if centroid == nil {
		return math.Inf(1)
	}

	var sum float64
	var n int
	for _, axis := range Axes {
		val, ok := v.Value(axis)
		if !ok {
			continue
		}
		mean, ok := centroid.Dims[axis]
		if !ok {
			continue
		}

		if axis == AxisTempo {
			val /= tempoScale
			mean /= tempoScale
		}
		sum += (val - mean) * (val - mean)
		n++
	}

	if n == 0 {
		return math.Inf(1)
	}
	return math.Sqrt(sum / float64(n))
}

// SelectRepresentative returns the ids of the count vectors closest to the
// centroid. Ties are broken by input order (stable sort), so results are
// deterministic for a given input ordering.
func SelectRepresentative(vectors []FeatureVector, centroid *Centroid, count int) []string {
	if len(vectors) == 0 || count <= 0 {
		return nil
	}

	type scored struct {
		id       string
		distance float64
	}

	items := make([]scored, 0, len(vectors))
	for _, v := range vectors {
		items = append(items, scored{id: v.ItemID, distance: Distance(v, centroid)})
	}

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].distance < items[j].distance
	})

	if count > len(items) {
		count = len(items)
	}

	ids := make([]string, 0, count)
	for _, item := range items[:count] {
		ids = append(ids, item.id)
	}
	return ids
}
