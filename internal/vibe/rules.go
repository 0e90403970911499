package vibe

// maxPhrases caps how many phrases a single explanation carries.
const maxPhrases = 3

// RuleSet holds the thresholds used to build match explanations.
//
// Thresholds are configuration rather than constants so they can be tuned
// without touching the algorithm.
type RuleSet struct {
	HighEnergy    float64
	LowEnergy     float64
	UpbeatValence float64
	MellowValence float64
	Danceable     float64
	FastTempo     float64
	SlowTempo     float64
	Acoustic      float64
}

// DefaultRules returns the stock explanation thresholds.
func DefaultRules() RuleSet {
	return RuleSet{
		HighEnergy:    0.7,
		LowEnergy:     0.3,
		UpbeatValence: 0.6,
		MellowValence: 0.4,
		Danceable:     0.7,
		FastTempo:     140,
		SlowTempo:     90,
		Acoustic:      0.6,
	}
}

// Explain produces up to three short phrases describing why a track matches
// the centroid's profile.
//
// Rules fire in a fixed priority order (energy, valence, danceability, tempo,
// acousticness) and a rule only applies when the axis is present in both the
// vector and the centroid. Tempo always yields one of fast/slow/mid-tempo.
func Explain(v FeatureVector, centroid *Centroid, rules RuleSet) []string {
	if centroid == nil {
		return nil
	}

	var phrases []string
	shared := func(axis string) (float64, bool) {
		val, ok := v.Value(axis)
		if !ok {
			return 0, false
		}
		if _, ok := centroid.Dims[axis]; !ok {
			return 0, false
		}
		return val, true
	}

	if energy, ok := shared(AxisEnergy); ok {
		if energy > rules.HighEnergy {
			phrases = append(phrases, "high energy")
		} else if energy < rules.LowEnergy {
			phrases = append(phrases, "low energy")
		}
	}

	if valence, ok := shared(AxisValence); ok {
		if valence > rules.UpbeatValence {
			phrases = append(phrases, "upbeat vibe")
		} else if valence < rules.MellowValence {
			phrases = append(phrases, "mellow vibe")
		}
	}

	if dance, ok := shared(AxisDanceability); ok && dance > rules.Danceable {
		phrases = append(phrases, "very danceable")
	}

	if tempo, ok := shared(AxisTempo); ok {
		switch {
		case tempo > rules.FastTempo:
			phrases = append(phrases, "fast tempo")
		case tempo < rules.SlowTempo:
			phrases = append(phrases, "slow tempo")
		default:
			phrases = append(phrases, "mid-tempo")
		}
	}

	if acoustic, ok := shared(AxisAcousticness); ok && acoustic > rules.Acoustic {
		phrases = append(phrases, "acoustic")
	}

	if len(phrases) > maxPhrases {
		phrases = phrases[:maxPhrases]
	}
	return phrases
}
