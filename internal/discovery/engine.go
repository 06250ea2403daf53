// Package discovery runs the region × keyword crawl that finds channels not
// yet in the store.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/clock/system"
	"github.com/JakeFAU/tubescout/internal/crawler"
)

// Defaults applied when Params leave a field zero.
const (
	DefaultTargetChannels = 100
	DefaultMaxResults     = 50
	DefaultMaxSubscribers = 100_000
)

// Default search grid.
var (
	DefaultRegions = []string{"US", "GB", "CA", "AU", "DE", "FR"}
	DefaultTerms   = []string{
		"fitness", "gaming", "podcast", "education", "tech reviews",
		"cooking", "travel vlog", "marketing", "photography", "yoga",
	}
	DefaultOrders = []string{"relevance", "date", "viewCount"}
)

// Grid is the fixed set of searches a run walks through.
type Grid struct {
	Regions []string
	Terms   []string
	Orders  []string
}

func (g Grid) withDefaults() Grid {
	if len(g.Regions) == 0 {
		g.Regions = DefaultRegions
	}
	if len(g.Terms) == 0 {
		g.Terms = DefaultTerms
	}
	if len(g.Orders) == 0 {
		g.Orders = DefaultOrders
	}
	return g
}

// Params tune a single run.
type Params struct {
	TargetChannels int
	MaxResults     int64
	MaxSubscribers int64
	TriggeredBy    *int64
}

func (p Params) withDefaults() Params {
	if p.TargetChannels <= 0 {
		p.TargetChannels = DefaultTargetChannels
	}
	if p.MaxResults <= 0 {
		p.MaxResults = DefaultMaxResults
	}
	if p.MaxSubscribers <= 0 {
		p.MaxSubscribers = DefaultMaxSubscribers
	}
	return p
}

// Result summarizes a run, including partial progress when it aborted.
type Result struct {
	RunID         string    `json:"run_id"`
	NewChannels   int       `json:"new_channels"`
	TotalFetched  int       `json:"total_fetched"`
	Skipped       int       `json:"skipped"`
	TargetReached bool      `json:"target_reached"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
}

// Store is the persistence the engine needs.
type Store interface {
	KnownChannelIDs(ctx context.Context) (map[string]struct{}, error)
	InsertChannel(ctx context.Context, ch crawler.Channel) (bool, error)
}

// Engine walks the grid sequentially.
type Engine struct {
	searcher  crawler.Searcher
	fetcher   crawler.DetailFetcher
	store     Store
	grid      Grid
	pairPause time.Duration
	pauser    crawler.Pauser
	clock     crawler.Clock
	ids       crawler.IDGenerator
	logger    *zap.Logger
}

// EngineConfig wires an Engine.
type EngineConfig struct {
	Searcher  crawler.Searcher
	Fetcher   crawler.DetailFetcher
	Store     Store
	Grid      Grid
	PairPause time.Duration
	Pauser    crawler.Pauser
	Clock     crawler.Clock
	IDs       crawler.IDGenerator
	Logger    *zap.Logger
}

// NewEngine validates cfg and builds an Engine.
func NewEngine(cfg EngineConfig) (*Engine, error) {
	if cfg.Searcher == nil || cfg.Fetcher == nil || cfg.Store == nil || cfg.IDs == nil {
		return nil, errors.New("discovery: searcher, fetcher, store, and id generator are required")
	}
	e := &Engine{
		searcher:  cfg.Searcher,
		fetcher:   cfg.Fetcher,
		store:     cfg.Store,
		grid:      cfg.Grid.withDefaults(),
		pairPause: cfg.PairPause,
		pauser:    cfg.Pauser,
		clock:     cfg.Clock,
		ids:       cfg.IDs,
		logger:    cfg.Logger,
	}
	if e.pauser == nil {
		e.pauser = crawler.TimerPauser{}
	}
	if e.clock == nil {
		e.clock = system.New()
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	e.logger = e.logger.Named("discovery")
	return e, nil
}

// Run discovers up to p.TargetChannels new channels. Any error aborts the run and
// is returned alongside the partial Result; rows already inserted stay.
func (e *Engine) Run(ctx context.Context, p Params) (Result, error) {
	p = p.withDefaults()
	runID, err := e.ids.NewID()
	if err != nil {
		return Result{}, fmt.Errorf("generate run id: %w", err)
	}
	res := Result{RunID: runID, StartedAt: e.clock.Now()}

	known, err := e.store.KnownChannelIDs(ctx)
	if err != nil {
		res.FinishedAt = e.clock.Now()
		return res, fmt.Errorf("load known channel ids: %w", err)
	}
	if known == nil {
		known = make(map[string]struct{})
	}
	log := e.logger.With(zap.String("run_id", runID))
	log.Info("discovery started",
		zap.Int("known", len(known)),
		zap.Int("target", p.TargetChannels),
		zap.Int64("max_subscribers", p.MaxSubscribers),
	)

	err = e.walk(ctx, log, p, known, &res)
	res.TargetReached = res.NewChannels >= p.TargetChannels
	res.FinishedAt = e.clock.Now()
	if err != nil {
		log.Error("discovery aborted",
			zap.Int("new_channels", res.NewChannels),
			zap.Int("skipped", res.Skipped),
			zap.Error(err),
		)
		return res, err
	}
	log.Info("discovery finished",
		zap.Int("new_channels", res.NewChannels),
		zap.Int("skipped", res.Skipped),
		zap.Bool("target_reached", res.TargetReached),
	)
	return res, nil
}

func (e *Engine) walk(ctx context.Context, log *zap.Logger, p Params, known map[string]struct{}, res *Result) error {
	for _, region := range e.grid.Regions {
		for _, term := range e.grid.Terms {
			if res.NewChannels >= p.TargetChannels {
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}
			// Ordering rotates with the size of the known set.
			order := e.grid.Orders[len(known)%len(e.grid.Orders)]
			candidates, err := e.searcher.SearchChannels(ctx, crawler.SearchQuery{
				Term:       term,
				RegionCode: region,
				Order:      order,
				MaxResults: p.MaxResults,
			})
			if err != nil {
				return fmt.Errorf("search %q in %s: %w", term, region, err)
			}

			fresh := make([]string, 0, len(candidates))
			for _, id := range candidates {
				if _, seen := known[id]; !seen {
					fresh = append(fresh, id)
				}
			}
			res.Skipped += len(candidates) - len(fresh)
			if len(fresh) == 0 {
				log.Debug("no new candidates", zap.String("region", region), zap.String("term", term))
				continue
			}

			details, err := e.fetcher.Fetch(ctx, fresh, p.MaxSubscribers)
			if err != nil {
				return fmt.Errorf("fetch details for %q in %s: %w", term, region, err)
			}
			added := 0
			for _, d := range details {
				d.SearchKeyword = term
				d.CountryCode = region
				inserted, err := e.store.InsertChannel(ctx, crawler.ChannelFromDetail(d))
				if err != nil {
					return fmt.Errorf("insert channel %s: %w", d.ChannelID, err)
				}
				if !inserted {
					continue
				}
				known[d.ChannelID] = struct{}{}
				res.NewChannels++
				res.TotalFetched++
				added++
				if res.NewChannels >= p.TargetChannels {
					log.Info("target reached", zap.String("region", region), zap.String("term", term))
					return nil
				}
			}
			log.Debug("pair processed",
				zap.String("region", region),
				zap.String("term", term),
				zap.String("order", order),
				zap.Int("candidates", len(candidates)),
				zap.Int("added", added),
			)
			e.pauser.Pause(ctx, e.pairPause)
		}
	}
	return nil
}
