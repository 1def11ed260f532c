package harvest

import (
	"errors"
	"time"

	"placeharvest/pkg/config"
	"placeharvest/pkg/enrich"
	"placeharvest/pkg/identity"
	"placeharvest/pkg/listing"
	"placeharvest/pkg/logger"
	"placeharvest/pkg/progress"
	"placeharvest/pkg/ratelimit"
)

// Deps are the collaborators of an Engine. Driver, Store and Sink are required.
type Deps struct {
	Driver Driver
	Store  *progress.Store
	Sink   Sink
	// Generator is optional; without one every record gets fallback copy
	Generator Generator
	// Enricher defaults to keyword industry and rating sentiment tagging
	Enricher *enrich.Enricher
	// Limiter paces panel opens; defaults to the configured rate limit
	Limiter ratelimit.Limiter
	Logger  logger.Logger
}

// Engine carries everything one invocation needs. It is not safe for concurrent use.
type Engine struct {
	driver    Driver
	loader    *listing.Loader
	store     *progress.Store
	sink      Sink
	generator Generator
	enricher  *enrich.Enricher
	limiter   ratelimit.Limiter
	resolver  *identity.Resolver
	seedURL   string

	services      []string
	sender        string
	maxCandidates int
	logger        logger.Logger
	now           func() time.Time
}

// NewEngine wires an engine from cfg and deps
func NewEngine(cfg *config.Config, deps Deps) (*Engine, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if deps.Driver == nil {
		return nil, errors.New("harvest: driver is required")
	}
	if deps.Store == nil {
		return nil, errors.New("harvest: progress store is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("harvest: sink is required")
	}

	log := deps.Logger
	if log == nil {
		log = logger.GetLogger()
	}
	if deps.Enricher == nil {
		deps.Enricher = enrich.New(nil, nil)
	}
	if deps.Limiter == nil {
		deps.Limiter = ratelimit.FromConfig(cfg.RateLimit)
	}

	resolver, err := identity.NewResolver(cfg.Run.SeedURL)
	if err != nil {
		return nil, err
	}

	return &Engine{
		driver:        deps.Driver,
		loader:        listing.NewLoader(deps.Driver, cfg.Listing, log),
		store:         deps.Store,
		sink:          deps.Sink,
		generator:     deps.Generator,
		enricher:      deps.Enricher,
		limiter:       deps.Limiter,
		resolver:      resolver,
		seedURL:       cfg.Run.SeedURL,
		services:      cfg.Outreach.Services,
		sender:        cfg.Outreach.SenderName,
		maxCandidates: cfg.Listing.MaxCandidates,
		logger:        log.WithField("component", "harvest"),
		now:           time.Now,
	}, nil
}
