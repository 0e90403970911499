// package recommend composes the catalog fetcher and the vibe engine into the
// playlist recommendation flow: profile the reference set, pick seeds, expand
// them into candidates, and rank what's left after dedup.
package recommend

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/charmbracelet/log"
	"github.com/wbru/vibematch/internal/shared"
	"github.com/wbru/vibematch/internal/spotify"
	"github.com/wbru/vibematch/internal/vibe"
	"golang.org/x/sync/errgroup"
)

const (
	// defaultSeedCount matches the recommendation API's seed ceiling.
	defaultSeedCount = 5

	// defaultResultCount is how many candidates a run returns by default.
	defaultResultCount = 10

	// seedConcurrency bounds parallel per-seed lookups to stay friendly with
	// the upstream rate limit.
	seedConcurrency = 4
)

// Candidate is one recommended track with its score and explanation.
type Candidate struct {
	Track       spotify.Track `json:"track"`
	Distance    float64       `json:"distance"`
	Explanation []string      `json:"explanation"`
}

// SeedOutcome reports what happened to one seed during candidate expansion.
// Failed seeds are skipped, not escalated; the report makes that explicit.
type SeedOutcome struct {
	SeedID     string `json:"seed_id"`
	ArtistID   string `json:"artist_id,omitempty"`
	Candidates int    `json:"candidates"`
	Skipped    bool   `json:"skipped"`
	Reason     string `json:"reason,omitempty"`
}

// Result is the outcome of one recommendation run.
//
// An empty Candidates list with a non-empty Reason is a valid, non-error
// outcome ("no recommendations"), not a failure.
type Result struct {
	RunID      string        `json:"run_id"`
	Candidates []Candidate   `json:"candidates"`
	Seeds      []SeedOutcome `json:"seeds"`
	Reason     string        `json:"reason,omitempty"`
}

// Orchestrator drives recommendation runs.
type Orchestrator struct {
	fetcher   *spotify.Fetcher
	rules     vibe.RuleSet
	seedCount int
	randomize bool
	rng       *rand.Rand
	history   *History
	logger    *log.Logger
}

// OrchestratorOpts contains configuration for creating an [Orchestrator].
type OrchestratorOpts struct {
	Fetcher   *spotify.Fetcher
	Rules     vibe.RuleSet
	SeedCount int // defaults to defaultSeedCount
	Randomize bool
	Rand      *rand.Rand // seeded in tests for determinism; defaults to a time-seeded source
	History   *History   // optional run recording
	Logger    *log.Logger
}

// NewOrchestrator creates a new [Orchestrator].
func NewOrchestrator(opts OrchestratorOpts) *Orchestrator {
	if opts.SeedCount <= 0 {
		opts.SeedCount = defaultSeedCount
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Orchestrator{
		fetcher:   opts.Fetcher,
		rules:     opts.Rules,
		seedCount: opts.SeedCount,
		randomize: opts.Randomize,
		rng:       opts.Rand,
		history:   opts.History,
		logger:    opts.Logger,
	}
}

// Recommend produces a ranked, deduplicated, explained candidate list from the
// reference set's feature vectors.
//
// Returns [shared.ErrNoReferenceData] when the reference set is empty or no
// centroid can be computed.
func (o *Orchestrator) Recommend(ctx context.Context, ref []vibe.FeatureVector, want int) (*Result, error) {
	if want <= 0 {
		want = defaultResultCount
	}
	if len(ref) == 0 {
		return nil, fmt.Errorf("%w: empty reference set", shared.ErrNoReferenceData)
	}

	centroid := vibe.ComputeCentroid(ref)
	if centroid == nil {
		return nil, fmt.Errorf("%w: centroid could not be computed", shared.ErrNoReferenceData)
	}

	seeds := o.pickSeeds(ref, centroid)
	o.logger.Info("selected seeds", "count", len(seeds))

	outcomes, candidates := o.expandSeeds(ctx, seeds)

	result := &Result{
		RunID: shared.GenerateID(),
		Seeds: outcomes,
	}

	refIDs := make(map[string]struct{}, len(ref))
	for _, v := range ref {
		refIDs[v.ItemID] = struct{}{}
	}

	// Reference-set members are never recommended back, and a track surfaced
	// by two seeds appears once.
	seen := make(map[string]struct{})
	fresh := candidates[:0]
	for _, track := range candidates {
		if _, dup := refIDs[track.ID]; dup {
			continue
		}
		if _, dup := seen[track.ID]; dup {
			continue
		}
		seen[track.ID] = struct{}{}
		fresh = append(fresh, track)
	}

	if len(fresh) == 0 {
		result.Reason = "no usable candidates from seed expansion"
		return result, nil
	}

	ranked, err := o.rank(ctx, fresh, centroid)
	if err != nil {
		return nil, err
	}
	if len(ranked) > want {
		ranked = ranked[:want]
	}
	result.Candidates = ranked

	return result, nil
}

// RecommendPlaylist runs the full vibe-match flow for a playlist: fetch its
// tracks, fetch their feature vectors, and recommend against that profile.
// The run is recorded in the history store when one is configured.
func (o *Orchestrator) RecommendPlaylist(ctx context.Context, playlistID string, want int) (*Result, error) {
	tracks, err := o.fetcher.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	if len(tracks) == 0 {
		return nil, fmt.Errorf("%w: playlist %s has no tracks", shared.ErrNoReferenceData, playlistID)
	}

	ids := make([]string, 0, len(tracks))
	for _, t := range tracks {
		ids = append(ids, t.ID)
	}

	ref, err := o.fetcher.AudioFeatures(ctx, ids)
	if err != nil {
		return nil, err
	}

	result, err := o.Recommend(ctx, ref, want)
	if err != nil {
		return nil, err
	}

	if o.history != nil {
		if err := o.history.Record(ctx, NewRunRecord(playlistID, len(ref), result)); err != nil {
			o.logger.Warn("failed to record recommendation run", "error", err)
		}
	}

	return result, nil
}

// pickSeeds selects the seed subset: centroid representatives by default, or
// a random sample when the orchestrator was configured for seed diversity.
func (o *Orchestrator) pickSeeds(ref []vibe.FeatureVector, centroid *vibe.Centroid) []string {
	if !o.randomize || o.rng == nil {
		return vibe.SelectRepresentative(ref, centroid, o.seedCount)
	}

	shuffled := make([]vibe.FeatureVector, len(ref))
	copy(shuffled, ref)
	o.rng.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})

	count := o.seedCount
	if count > len(shuffled) {
		count = len(shuffled)
	}
	ids := make([]string, 0, count)
	for _, v := range shuffled[:count] {
		ids = append(ids, v.ItemID)
	}
	return ids
}

// expandSeeds resolves each seed to its primary artist's top tracks.
//
// Lookups are independent, so they run concurrently (bounded); a failed seed
// becomes a skipped outcome instead of aborting the whole request.
func (o *Orchestrator) expandSeeds(ctx context.Context, seeds []string) ([]SeedOutcome, []spotify.Track) {
	outcomes := make([]SeedOutcome, len(seeds))
	perSeed := make([][]spotify.Track, len(seeds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(seedConcurrency)

	for i, seedID := range seeds {
		g.Go(func() error {
			outcomes[i] = o.resolveSeed(gctx, seedID, &perSeed[i])
			return nil
		})
	}
	g.Wait()

	var candidates []spotify.Track
	for _, tracks := range perSeed {
		candidates = append(candidates, tracks...)
	}
	return outcomes, candidates
}

// resolveSeed looks up one seed track's primary artist and that artist's top
// tracks, writing them into out.
func (o *Orchestrator) resolveSeed(ctx context.Context, seedID string, out *[]spotify.Track) SeedOutcome {
	outcome := SeedOutcome{SeedID: seedID}

	track, err := o.fetcher.Track(ctx, seedID)
	if err != nil {
		o.logger.Warn("seed lookup failed, skipping", "seed", seedID, "error", err)
		outcome.Skipped = true
		outcome.Reason = fmt.Sprintf("track lookup failed: %v", err)
		return outcome
	}

	artistID := track.PrimaryArtist()
	if artistID == "" {
		outcome.Skipped = true
		outcome.Reason = "no credited artist"
		return outcome
	}
	outcome.ArtistID = artistID

	top, err := o.fetcher.ArtistTopTracks(ctx, artistID)
	if err != nil {
		o.logger.Warn("top tracks lookup failed, skipping seed", "seed", seedID, "artist", artistID, "error", err)
		outcome.Skipped = true
		outcome.Reason = fmt.Sprintf("top tracks lookup failed: %v", err)
		return outcome
	}

	*out = top
	outcome.Candidates = len(top)
	return outcome
}

// rank scores candidates by distance to the centroid, attaches explanations,
// and sorts ascending. Candidates without feature data score +Inf and sort last.
func (o *Orchestrator) rank(ctx context.Context, candidates []spotify.Track, centroid *vibe.Centroid) ([]Candidate, error) {
	ids := make([]string, 0, len(candidates))
	for _, track := range candidates {
		ids = append(ids, track.ID)
	}

	vectors, err := o.fetcher.AudioFeatures(ctx, ids)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]vibe.FeatureVector, len(vectors))
	for _, v := range vectors {
		byID[v.ItemID] = v
	}

	scored := make([]Candidate, 0, len(candidates))
	for _, track := range candidates {
		c := Candidate{Track: track, Distance: math.Inf(1)}
		if v, ok := byID[track.ID]; ok {
			c.Distance = vibe.Distance(v, centroid)
			c.Explanation = vibe.Explain(v, centroid, o.rules)
		}
		scored = append(scored, c)
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Distance < scored[j].Distance
	})

	return scored, nil
}
