// Package fetcher loads channel details in platform-sized batches and applies
// the subscriber ceiling.
package fetcher

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/youtube"
)

// DefaultBatchPause is the politeness delay between detail batches.
const DefaultBatchPause = time.Second

// Lister is the platform call the fetcher batches over.
type Lister interface {
	ListChannels(ctx context.Context, ids []string) ([]crawler.ChannelDetail, error)
}

// Fetcher implements crawler.DetailFetcher.
type Fetcher struct {
	lister    Lister
	pause     time.Duration
	pauser    crawler.Pauser
	batchSize int
	logger    *zap.Logger
}

// Option customizes a Fetcher.
type Option func(*Fetcher)

// WithPauser swaps the politeness delay implementation.
func WithPauser(p crawler.Pauser) Option {
	return func(f *Fetcher) {
		if p != nil {
			f.pauser = p
		}
	}
}

// WithBatchPause sets the delay between batches.
func WithBatchPause(d time.Duration) Option {
	return func(f *Fetcher) {
		f.pause = d
	}
}

// New constructs a Fetcher.
func New(lister Lister, logger *zap.Logger, opts ...Option) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	f := &Fetcher{
		lister:    lister,
		pause:     DefaultBatchPause,
		pauser:    crawler.TimerPauser{},
		batchSize: youtube.MaxIDsPerCall,
		logger:    logger.Named("fetcher"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Fetch returns details for ids whose subscriber count does not exceed ceiling.
// A ceiling <= 0 keeps everything. Order follows the platform responses.
func (f *Fetcher) Fetch(ctx context.Context, ids []string, ceiling int64) ([]crawler.ChannelDetail, error) {
	var out []crawler.ChannelDetail
	for start := 0; start < len(ids); start += f.batchSize {
		end := min(start+f.batchSize, len(ids))
		batch, err := f.lister.ListChannels(ctx, ids[start:end])
		if err != nil {
			return out, fmt.Errorf("fetch details batch %d-%d: %w", start, end, err)
		}
		dropped := 0
		for _, d := range batch {
			if ceiling > 0 && d.Subscribers > ceiling {
				dropped++
				continue
			}
			out = append(out, d)
		}
		f.logger.Debug("detail batch",
			zap.Int("requested", end-start),
			zap.Int("returned", len(batch)),
			zap.Int("over_ceiling", dropped),
		)
		f.pauser.Pause(ctx, f.pause)
		if err := ctx.Err(); err != nil {
			return out, err
		}
	}
	return out, nil
}
