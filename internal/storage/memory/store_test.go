package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tubescout/internal/crawler"
)

type stepClock struct{ t time.Time }

func (c *stepClock) Now() time.Time {
	c.t = c.t.Add(time.Minute)
	return c.t
}

func seeded(t *testing.T) (*Store, crawler.User) {
	t.Helper()
	store := NewStore(&stepClock{t: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)})
	ctx := context.Background()
	admin, err := store.CreateUser(ctx, crawler.User{Username: "admin", Email: "a@x", Role: crawler.RoleAdmin})
	require.NoError(t, err)

	for _, ch := range []crawler.Channel{
		{ChannelID: "UC1", Title: "Retro Games", Subscribers: 5_000, CountryCode: "US", SearchKeyword: "gaming"},
		{ChannelID: "UC2", Title: "Cooking 100%", Subscribers: 80_000, TotalViews: 1_000_000, VideoCount: 50, CountryCode: "GB", SearchKeyword: "cooking"},
		{ChannelID: "UC3", Title: "Speedruns", Description: "retro glitches", Subscribers: 20_000, CountryCode: "US", SearchKeyword: "gaming"},
	} {
		ok, err := store.InsertChannel(ctx, ch)
		require.NoError(t, err)
		require.True(t, ok)
	}
	return store, admin
}

func TestInsertChannelDeduplicates(t *testing.T) {
	t.Parallel()

	store, _ := seeded(t)
	ok, err := store.InsertChannel(context.Background(), crawler.Channel{ChannelID: "UC1", Title: "again"})
	require.NoError(t, err)
	assert.False(t, ok)

	known, err := store.KnownChannelIDs(context.Background())
	require.NoError(t, err)
	assert.Len(t, known, 3)
}

func TestListFiltersSortsAndPages(t *testing.T) {
	t.Parallel()

	store, _ := seeded(t)
	ctx := context.Background()
	filter := crawler.ChannelFilter{Search: "RETRO", CountryCode: "US"}

	list, err := store.ListChannels(ctx, crawler.ListOptions{Filter: filter, SortBy: crawler.SortSubscribers, Order: crawler.SortDesc})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "UC3", list[0].ChannelID, "description matches search too")

	n, err := store.CountChannels(ctx, filter)
	require.NoError(t, err)
	assert.EqualValues(t, len(list), n)

	page, err := store.ListChannels(ctx, crawler.ListOptions{SortBy: "bogus", Order: "ASC", Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "UC2", page[0].ChannelID, "unknown sort key falls back to fetched_at")

	empty, err := store.ListChannels(ctx, crawler.ListOptions{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestSortByEmailedAtPutsNullsLast(t *testing.T) {
	t.Parallel()

	store, admin := seeded(t)
	ctx := context.Background()
	_, err := store.MarkEmailed(ctx, []int64{2}, true, admin)
	require.NoError(t, err)

	for _, order := range []crawler.SortOrder{crawler.SortAsc, crawler.SortDesc} {
		list, err := store.ListChannels(ctx, crawler.ListOptions{SortBy: crawler.SortEmailedAt, Order: order})
		require.NoError(t, err)
		assert.Equal(t, "UC2", list[0].ChannelID, "order %s", order)
	}
}

func TestOutreachLifecycle(t *testing.T) {
	t.Parallel()

	store, admin := seeded(t)
	ctx := context.Background()

	n, err := store.MarkEmailed(ctx, []int64{1, 3, 99}, true, admin)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	ch, err := store.GetChannel(ctx, 1)
	require.NoError(t, err)
	assert.True(t, ch.Emailed)
	assert.Equal(t, "admin", ch.EmailedByUsername)
	require.NotNil(t, ch.EmailedAt)

	ok, err := store.SetReplyStatus(ctx, 1, true, admin)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = store.SetReplyStatus(ctx, 42, true, admin)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = store.UpdateNotes(ctx, 3, "follow up next week", admin)
	require.NoError(t, err)
	assert.True(t, ok)

	_, err = store.MarkEmailed(ctx, []int64{3}, false, admin)
	require.NoError(t, err)
	ch, err = store.GetChannel(ctx, 3)
	require.NoError(t, err)
	assert.False(t, ch.Emailed)
	assert.Nil(t, ch.EmailedAt)
	assert.Nil(t, ch.EmailedBy)

	stats, err := store.UserStats(ctx, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, crawler.UserStats{ChannelsEmailed: 1, RepliesReceived: 1}, stats)

	log, err := store.ListActivity(ctx, crawler.ActivityQuery{})
	require.NoError(t, err)
	require.Len(t, log, 4)
	assert.Equal(t, crawler.ActionUnmarkedEmailed, log[0].Action)
	assert.Equal(t, crawler.ActionBulkEmailed, log[3].Action)
	assert.Equal(t, "admin", log[0].Username)

	notes, err := store.ListActivity(ctx, crawler.ActivityQuery{Action: crawler.ActionUpdatedNotes, Limit: 5})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, "Updated notes: follow up next week", notes[0].Details)
}

func TestGetChannelMissing(t *testing.T) {
	t.Parallel()

	_, err := NewStore(nil).GetChannel(context.Background(), 1)
	assert.True(t, errors.Is(err, crawler.ErrNotFound))
}

func TestRecomputePriorityScores(t *testing.T) {
	t.Parallel()

	store, _ := seeded(t)
	ctx := context.Background()
	changed, err := store.RecomputePriorityScores(ctx)
	require.NoError(t, err)
	assert.Zero(t, changed, "scores computed on insert are already current")

	store.channels[0].Subscribers = 100_000
	changed, err = store.RecomputePriorityScores(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, changed)
}

func TestUsers(t *testing.T) {
	t.Parallel()

	store, admin := seeded(t)
	ctx := context.Background()

	_, err := store.CreateUser(ctx, crawler.User{Username: "admin", Email: "other@x"})
	require.ErrorIs(t, err, crawler.ErrConflict)
	_, err = store.CreateUser(ctx, crawler.User{Username: "x", Email: "x@x", Role: "root"})
	require.Error(t, err)

	ana, err := store.CreateUser(ctx, crawler.User{Username: "ana", Email: "ana@x"})
	require.NoError(t, err)
	assert.Equal(t, crawler.RoleUser, ana.Role)

	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	require.Len(t, users, 2)
	assert.Equal(t, "ana", users[0].Username)

	require.NoError(t, store.UpdatePassword(ctx, ana.ID, "new-hash"))
	got, err := store.UserByUsername(ctx, "ana")
	require.NoError(t, err)
	assert.Equal(t, "new-hash", got.PasswordHash)

	require.NoError(t, store.DeactivateUser(ctx, ana.ID))
	_, err = store.UserByID(ctx, ana.ID)
	require.ErrorIs(t, err, crawler.ErrNotFound)
	require.ErrorIs(t, store.DeactivateUser(ctx, 404), crawler.ErrNotFound)

	_, err = store.UserByID(ctx, admin.ID)
	require.NoError(t, err)
}

func TestAnalyticsAndFilterOptions(t *testing.T) {
	t.Parallel()

	store, admin := seeded(t)
	ctx := context.Background()
	_, err := store.MarkEmailed(ctx, []int64{1}, true, admin)
	require.NoError(t, err)

	opts, err := store.FilterOptions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"cooking", "gaming"}, opts.Keywords)
	assert.Equal(t, []string{"GB", "US"}, opts.Countries)

	a, err := store.Analytics(ctx, time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, []crawler.DailyCount{{Date: "2025-03-01", Count: 3}}, a.DailyFetched)
	assert.Len(t, a.DailyEmailed, 1)
	assert.Equal(t, crawler.LabelCount{Label: "US", Count: 2}, a.ByCountry[0])
	assert.Equal(t, crawler.LabelCount{Label: "gaming", Count: 2}, a.ByKeyword[0])
	assert.Equal(t, []crawler.LabelCount{{Label: "admin", Count: 1}}, a.UserPerformance)

	stale, err := store.Analytics(ctx, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Empty(t, stale.DailyFetched)
}

func TestSeedAdminOnlyOnEmptyStore(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)
	ctx := context.Background()
	created, err := store.SeedAdmin(ctx, crawler.User{Username: "root", Email: "root@x", Role: crawler.RoleUser})
	require.NoError(t, err)
	assert.True(t, created)

	u, err := store.UserByUsername(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, crawler.RoleAdmin, u.Role)

	created, err = store.SeedAdmin(ctx, crawler.User{Username: "other", Email: "o@x"})
	require.NoError(t, err)
	assert.False(t, created)
}

func TestSeedAdminConcurrentSeedsCreateOneAccount(t *testing.T) {
	t.Parallel()

	store := NewStore(nil)
	ctx := context.Background()

	const seeders = 16
	var (
		wg      sync.WaitGroup
		created atomic.Int32
	)
	for i := range seeders {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.SeedAdmin(ctx, crawler.User{
				Username: fmt.Sprintf("admin-%d", i),
				Email:    fmt.Sprintf("admin-%d@x", i),
			})
			assert.NoError(t, err)
			if ok {
				created.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, created.Load())
	users, err := store.ListUsers(ctx)
	require.NoError(t, err)
	assert.Len(t, users, 1)
}
