package main

import (
	"database/sql"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"
	"github.com/wbru/vibematch/internal/auth"
	"github.com/wbru/vibematch/internal/recommend"
	"github.com/wbru/vibematch/internal/shared"
	"github.com/wbru/vibematch/internal/spotify"
	"github.com/wbru/vibematch/internal/vibe"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	logger     *log.Logger
	output     io.Writer
	httpClient *http.Client

	// built lazily by init so setup can run before a database exists
	db           *sql.DB
	manager      *auth.Manager
	fetcher      *spotify.Fetcher
	orchestrator *recommend.Orchestrator
	history      *recommend.History
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	Logger     *log.Logger
	Output     io.Writer
	HTTPClient *http.Client
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Runner{
		config:     opts.Config,
		logger:     opts.Logger,
		output:     opts.Output,
		httpClient: opts.HTTPClient,
	}
}

// init wires the core once: database, token manager, resilient client,
// catalog fetcher, and orchestrator.
func (r *Runner) init() error {
	if r.manager != nil {
		return nil
	}

	if r.config.Spotify.ClientID == "" || r.config.Spotify.ClientSecret == "" {
		return fmt.Errorf("%w: spotify client_id and client_secret must be set in config.toml", shared.ErrMissingCredentials)
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return err
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)
	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return err
	}
	r.db = db

	r.manager = auth.NewManager(auth.ManagerOpts{
		ClientID:      r.config.Spotify.ClientID,
		ClientSecret:  r.config.Spotify.ClientSecret,
		AllowedUserID: r.config.Spotify.AllowedUserID,
		Store:         auth.NewSQLiteStore(db),
		HTTPClient:    r.httpClient,
		Logger:        r.logger,
	})

	client := spotify.NewClient(spotify.ClientOpts{
		Tokens:     r.manager,
		HTTPClient: r.httpClient,
		RateLimit:  5,
		Logger:     r.logger,
	})
	r.fetcher = spotify.NewFetcher(client, r.logger)
	r.history = recommend.NewHistory(db)

	r.orchestrator = recommend.NewOrchestrator(recommend.OrchestratorOpts{
		Fetcher:   r.fetcher,
		Rules:     r.rules(),
		SeedCount: r.config.Vibe.SeedCount,
		Randomize: r.config.Vibe.RandomizeSeeds,
		Rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		History:   r.history,
		Logger:    r.logger,
	})

	return nil
}

// rules converts the configured explanation thresholds into a [vibe.RuleSet],
// falling back to the defaults for unset values.
func (r *Runner) rules() vibe.RuleSet {
	rules := vibe.DefaultRules()
	cfg := r.config.Vibe

	if cfg.HighEnergy > 0 {
		rules.HighEnergy = cfg.HighEnergy
	}
	if cfg.LowEnergy > 0 {
		rules.LowEnergy = cfg.LowEnergy
	}
	if cfg.UpbeatValence > 0 {
		rules.UpbeatValence = cfg.UpbeatValence
	}
	if cfg.MellowValence > 0 {
		rules.MellowValence = cfg.MellowValence
	}
	if cfg.Danceable > 0 {
		rules.Danceable = cfg.Danceable
	}
	if cfg.FastTempo > 0 {
		rules.FastTempo = cfg.FastTempo
	}
	if cfg.SlowTempo > 0 {
		rules.SlowTempo = cfg.SlowTempo
	}
	if cfg.Acoustic > 0 {
		rules.Acoustic = cfg.Acoustic
	}

	return rules
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, statusCommand, playlistCommand, recommendCommand, historyCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return err
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}
