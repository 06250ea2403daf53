package discovery

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/metrics"
)

// EventCrawlCompleted is published after every run, successful or not.
const EventCrawlCompleted = "crawl.completed"

// Run statuses used for metrics.
const (
	StatusCompleted = "completed"
	StatusQuota     = "quota_exceeded"
	StatusFailed    = "failed"
)

// Runner is satisfied by *Engine.
type Runner interface {
	Run(ctx context.Context, p Params) (Result, error)
}

// Bookkeeper records the side effects around a run.
type Bookkeeper interface {
	LogActivity(ctx context.Context, entry crawler.ActivityEntry) error
	RecomputePriorityScores(ctx context.Context) (int, error)
}

// Service runs the engine and records the run in the audit log, the scores,
// the event stream, and metrics.
type Service struct {
	runner    Runner
	books     Bookkeeper
	publisher crawler.Publisher
	logger    *zap.Logger
}

// NewService wires a Service. publisher may be nil.
func NewService(runner Runner, books Bookkeeper, publisher crawler.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{runner: runner, books: books, publisher: publisher, logger: logger.Named("discovery")}
}

// Crawl executes one synchronous discovery run.
func (s *Service) Crawl(ctx context.Context, p Params) (Result, error) {
	res, runErr := s.runner.Run(ctx, p)

	status := StatusCompleted
	switch {
	case errors.Is(runErr, crawler.ErrQuotaExceeded):
		status = StatusQuota
	case runErr != nil:
		status = StatusFailed
	}
	metrics.ObserveCrawlRun(status, res.NewChannels, res.Skipped)
	s.publish(ctx, res, p.TriggeredBy, runErr)

	if runErr != nil {
		return res, runErr
	}

	if err := s.books.LogActivity(ctx, crawler.ActivityEntry{
		UserID:  p.TriggeredBy,
		Action:  crawler.ActionFetchChannels,
		Details: fmt.Sprintf("Fetched %d new channels", res.NewChannels),
	}); err != nil {
		s.logger.Warn("log fetch activity", zap.Error(err))
	}
	if n, err := s.books.RecomputePriorityScores(ctx); err != nil {
		s.logger.Warn("recompute priority scores", zap.Error(err))
	} else {
		s.logger.Debug("priority scores recomputed", zap.Int("rows", n))
	}
	return res, nil
}

func (s *Service) publish(ctx context.Context, res Result, by *int64, runErr error) {
	if s.publisher == nil {
		return
	}
	evt := crawler.CrawlEvent{
		RunID:         res.RunID,
		NewChannels:   res.NewChannels,
		TotalFetched:  res.TotalFetched,
		Skipped:       res.Skipped,
		TargetReached: res.TargetReached,
		TriggeredBy:   by,
		StartedAt:     res.StartedAt,
		FinishedAt:    res.FinishedAt,
	}
	if runErr != nil {
		evt.Error = runErr.Error()
	}
	// The request context may already be cancelled when the run aborted.
	pubCtx := context.WithoutCancel(ctx)
	if _, err := s.publisher.Publish(pubCtx, EventCrawlCompleted, evt); err != nil {
		s.logger.Warn("publish crawl event", zap.String("run_id", res.RunID), zap.Error(err))
	}
}
