package discovery

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/publisher/memory"
)

type stubRunner struct {
	res Result
	err error
}

func (s stubRunner) Run(context.Context, Params) (Result, error) { return s.res, s.err }

type fakeBooks struct {
	entries    []crawler.ActivityEntry
	recomputed int
	logErr     error
}

func (b *fakeBooks) LogActivity(_ context.Context, e crawler.ActivityEntry) error {
	b.entries = append(b.entries, e)
	return b.logErr
}

func (b *fakeBooks) RecomputePriorityScores(context.Context) (int, error) {
	b.recomputed++
	return 3, nil
}

func TestServiceCrawlSuccess(t *testing.T) {
	t.Parallel()

	books := &fakeBooks{}
	pub := memory.New()
	user := int64(7)
	svc := NewService(stubRunner{res: Result{RunID: "r1", NewChannels: 5, TotalFetched: 5, Skipped: 2}}, books, pub, nil)

	res, err := svc.Crawl(context.Background(), Params{TriggeredBy: &user})
	require.NoError(t, err)
	assert.Equal(t, 5, res.NewChannels)

	require.Len(t, books.entries, 1)
	assert.Equal(t, crawler.ActionFetchChannels, books.entries[0].Action)
	assert.Equal(t, "Fetched 5 new channels", books.entries[0].Details)
	assert.Equal(t, &user, books.entries[0].UserID)
	assert.Equal(t, 1, books.recomputed)

	events := pub.Events(EventCrawlCompleted)
	require.Len(t, events, 1)
	evt, ok := events[0].Payload.(crawler.CrawlEvent)
	require.True(t, ok)
	assert.Equal(t, "r1", evt.RunID)
	assert.Empty(t, evt.Error)
}

func TestServiceCrawlFailureSkipsBookkeeping(t *testing.T) {
	t.Parallel()

	books := &fakeBooks{}
	pub := memory.New()
	quota := fmt.Errorf("search: %w", crawler.ErrQuotaExceeded)
	svc := NewService(stubRunner{res: Result{RunID: "r2", NewChannels: 1}, err: quota}, books, pub, nil)

	res, err := svc.Crawl(context.Background(), Params{})
	require.True(t, errors.Is(err, crawler.ErrQuotaExceeded))
	assert.Equal(t, 1, res.NewChannels)
	assert.Empty(t, books.entries)
	assert.Zero(t, books.recomputed)

	events := pub.Events(EventCrawlCompleted)
	require.Len(t, events, 1)
	assert.Contains(t, events[0].Payload.(crawler.CrawlEvent).Error, "quota")
}

func TestServiceCrawlToleratesBookkeepingErrors(t *testing.T) {
	t.Parallel()

	books := &fakeBooks{logErr: errors.New("audit table locked")}
	svc := NewService(stubRunner{res: Result{NewChannels: 1}}, books, nil, nil)

	_, err := svc.Crawl(context.Background(), Params{})
	require.NoError(t, err)
	assert.Equal(t, 1, books.recomputed)
}
