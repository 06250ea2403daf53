// Package analyzer produces a one-off report for a single channel reference.
package analyzer

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/score"
)

const maxDescriptionRunes = 500

// Resolver turns user input into a canonical channel id.
type Resolver interface {
	Resolve(ctx context.Context, input string) (string, bool, error)
}

// Report is the public analysis of one channel.
type Report struct {
	ChannelID       string    `json:"channel_id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	Country         string    `json:"country"`
	Subscribers     int64     `json:"subscribers"`
	TotalViews      int64     `json:"total_views"`
	VideoCount      int64     `json:"video_count"`
	CustomURL       string    `json:"custom_url"`
	Keywords        string    `json:"keywords"`
	DefaultLanguage string    `json:"default_language"`
	ChannelURL      string    `json:"channel_url"`
	ThumbnailURL    string    `json:"thumbnail_url"`
	PublishedAt     time.Time `json:"published_at"`
	PriorityScore   float64   `json:"priority_score"`
	score.Metrics
	Recommendations []string `json:"recommendations"`
}

// Analyzer resolves a reference, loads details without a ceiling, and scores them.
type Analyzer struct {
	resolver Resolver
	fetcher  crawler.DetailFetcher
	logger   *zap.Logger
}

// New constructs an Analyzer.
func New(resolver Resolver, fetcher crawler.DetailFetcher, logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{resolver: resolver, fetcher: fetcher, logger: logger.Named("analyzer")}
}

// Analyze returns ok=false when the input cannot be resolved or the channel does not exist.
// Quota errors are returned wrapped around crawler.ErrQuotaExceeded.
func (a *Analyzer) Analyze(ctx context.Context, input string) (Report, bool, error) {
	id, ok, err := a.resolver.Resolve(ctx, input)
	if err != nil {
		return Report{}, false, fmt.Errorf("resolve %q: %w", input, err)
	}
	if !ok {
		a.logger.Info("channel reference not resolvable", zap.String("input", input))
		return Report{}, false, nil
	}

	details, err := a.fetcher.Fetch(ctx, []string{id}, 0)
	if err != nil {
		return Report{}, false, fmt.Errorf("load channel %s: %w", id, err)
	}
	if len(details) == 0 {
		a.logger.Info("channel not found", zap.String("channel_id", id))
		return Report{}, false, nil
	}
	return buildReport(details[0]), true, nil
}

func buildReport(d crawler.ChannelDetail) Report {
	priority := score.Priority(d.Subscribers, d.TotalViews, d.VideoCount)
	m := score.Engagement(d.Subscribers, d.TotalViews, d.VideoCount)
	return Report{
		ChannelID:       d.ChannelID,
		Title:           d.Title,
		Description:     truncateRunes(d.Description, maxDescriptionRunes),
		Country:         d.Country,
		Subscribers:     d.Subscribers,
		TotalViews:      d.TotalViews,
		VideoCount:      d.VideoCount,
		CustomURL:       d.CustomURL,
		Keywords:        d.Keywords,
		DefaultLanguage: d.DefaultLanguage,
		ChannelURL:      d.ChannelURL,
		ThumbnailURL:    d.ThumbnailURL,
		PublishedAt:     d.PublishedAt,
		PriorityScore:   priority,
		Metrics:         m,
		Recommendations: score.Recommendations(priority, m, d.VideoCount),
	}
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
