package analyzer

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

type stubResolver struct {
	id  string
	ok  bool
	err error
}

func (s stubResolver) Resolve(context.Context, string) (string, bool, error) { return s.id, s.ok, s.err }

type stubFetcher struct {
	details  []crawler.ChannelDetail
	err      error
	ceilings []int64
}

func (s *stubFetcher) Fetch(_ context.Context, _ []string, ceiling int64) ([]crawler.ChannelDetail, error) {
	s.ceilings = append(s.ceilings, ceiling)
	return s.details, s.err
}

func TestAnalyzeBuildsReport(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{details: []crawler.ChannelDetail{{
		ChannelID:   "UCabcdefghijklmnopqrstuv",
		Title:       "Big Channel",
		Description: strings.Repeat("é", 700),
		Subscribers: 100_000,
		TotalViews:  10_000_000,
		VideoCount:  300,
	}}}
	a := New(stubResolver{id: "UCabcdefghijklmnopqrstuv", ok: true}, fetcher, nil)

	rep, ok, err := a.Analyze(context.Background(), "https://youtube.com/@big")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 80.0, rep.PriorityScore)
	assert.Equal(t, 100.0, rep.EngagementRate)
	assert.Len(t, []rune(rep.Description), 500)
	assert.Equal(t, 33_333.0, rep.ViewsPerVideo)
	assert.Equal(t, 333.0, rep.SubscribersPerVideo)
	assert.Equal(t, []string{
		"Your channel is performing well! Consider optimizing SEO for even better results.",
	}, rep.Recommendations)
	assert.Equal(t, []int64{0}, fetcher.ceilings, "single analysis never applies the ceiling")
}

func TestAnalyzeNotResolvable(t *testing.T) {
	t.Parallel()

	fetcher := &stubFetcher{}
	_, ok, err := New(stubResolver{}, fetcher, nil).Analyze(context.Background(), "garbage")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, fetcher.ceilings)
}

func TestAnalyzeChannelMissing(t *testing.T) {
	t.Parallel()

	_, ok, err := New(stubResolver{id: "UCabcdefghijklmnopqrstuv", ok: true}, &stubFetcher{}, nil).
		Analyze(context.Background(), "UCabcdefghijklmnopqrstuv")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnalyzePropagatesQuota(t *testing.T) {
	t.Parallel()

	quota := fmt.Errorf("channels.list: %w", crawler.ErrQuotaExceeded)
	_, _, err := New(stubResolver{err: quota}, &stubFetcher{}, nil).Analyze(context.Background(), "youtube.com/@x")
	require.True(t, errors.Is(err, crawler.ErrQuotaExceeded))

	_, _, err = New(stubResolver{id: "UCabcdefghijklmnopqrstuv", ok: true}, &stubFetcher{err: quota}, nil).
		Analyze(context.Background(), "UCabcdefghijklmnopqrstuv")
	require.True(t, errors.Is(err, crawler.ErrQuotaExceeded))
}
