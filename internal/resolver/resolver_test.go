package resolver

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/youtube"
)

const canonical = "UCabcdefghijklmnopqrstuv"

type lookupResult struct {
	id  string
	ok  bool
	err error
}

type fakeLookup struct {
	handle   lookupResult
	search   []youtube.SearchHit
	searchEr error
	username lookupResult
	calls    []string
}

func (f *fakeLookup) ChannelIDForHandle(_ context.Context, h string) (string, bool, error) {
	f.calls = append(f.calls, "handle:"+h)
	return f.handle.id, f.handle.ok, f.handle.err
}

func (f *fakeLookup) SearchHandle(_ context.Context, h string, _ int64) ([]youtube.SearchHit, error) {
	f.calls = append(f.calls, "search:"+h)
	return f.search, f.searchEr
}

func (f *fakeLookup) ChannelIDForUsername(_ context.Context, h string) (string, bool, error) {
	f.calls = append(f.calls, "username:"+h)
	return f.username.id, f.username.ok, f.username.err
}

type mapCache struct {
	m      map[string]string
	getErr error
}

func (c *mapCache) Get(_ context.Context, k string) (string, bool, error) {
	if c.getErr != nil {
		return "", false, c.getErr
	}
	v, ok := c.m[k]
	return v, ok, nil
}

func (c *mapCache) Set(_ context.Context, k, v string) error {
	c.m[k] = v
	return nil
}

func TestExtract(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		segment string
		direct  bool
		ok      bool
	}{
		{canonical, canonical, true, true},
		{"  " + canonical + "  ", canonical, true, true},
		{"youtube.com/channel/" + canonical, canonical, true, true},
		{"https://www.youtube.com/channel/" + canonical + "/videos", canonical, true, true},
		{"https://youtube.com/c/SomeName", "SomeName", false, true},
		{"https://www.youtube.com/user/legacy_user", "legacy_user", false, true},
		{"https://www.youtube.com/@my.handle", "my.handle", false, true},
		{"youtube.com/@handle-1", "handle-1", false, true},
		{"https://example.com/@nope", "", false, false},
		{"", "", false, false},
		{"UCshort", "", false, false},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			seg, direct, ok := Extract(tc.in)
			assert.Equal(t, tc.ok, ok)
			assert.Equal(t, tc.direct, direct)
			assert.Equal(t, tc.segment, seg)
		})
	}
}

func TestResolveCanonicalMakesNoCalls(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	r := New(lookup, nil)

	for _, in := range []string{canonical, "youtube.com/channel/" + canonical} {
		id, ok, err := r.Resolve(context.Background(), in)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, canonical, id)
	}
	assert.Empty(t, lookup.calls)
}

func TestResolveUnmatchedInput(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	id, ok, err := New(lookup, nil).Resolve(context.Background(), "not a channel")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Empty(t, lookup.calls)
}

func TestResolveHandleFirstStrategyWins(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{handle: lookupResult{id: canonical, ok: true}}
	id, ok, err := New(lookup, nil).Resolve(context.Background(), "https://youtube.com/@Chef")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, canonical, id)
	assert.Equal(t, []string{"handle:Chef"}, lookup.calls)
}

func TestResolveFallsThroughOnGenericErrors(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		handle:   lookupResult{err: errors.New("boom")},
		searchEr: errors.New("search broke"),
		username: lookupResult{id: canonical, ok: true},
	}
	id, ok, err := New(lookup, nil).ResolveHandle(context.Background(), "@chef")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, canonical, id)
	assert.Equal(t, []string{"handle:chef", "search:chef", "username:chef"}, lookup.calls)
}

func TestResolveQuotaAbortsImmediately(t *testing.T) {
	t.Parallel()

	quota := fmt.Errorf("channels.list: %w", crawler.ErrQuotaExceeded)
	lookup := &fakeLookup{
		handle:   lookupResult{err: quota},
		username: lookupResult{id: canonical, ok: true},
	}
	_, ok, err := New(lookup, nil).ResolveHandle(context.Background(), "chef")
	require.ErrorIs(t, err, crawler.ErrQuotaExceeded)
	assert.False(t, ok)
	assert.Equal(t, []string{"handle:chef"}, lookup.calls)
}

func TestResolveQuotaInSearchAborts(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{
		searchEr: fmt.Errorf("search.list: %w", crawler.ErrQuotaExceeded),
		username: lookupResult{id: canonical, ok: true},
	}
	_, _, err := New(lookup, nil).ResolveHandle(context.Background(), "chef")
	require.ErrorIs(t, err, crawler.ErrQuotaExceeded)
	assert.Equal(t, []string{"handle:chef", "search:chef"}, lookup.calls)
}

func TestResolveNothingFound(t *testing.T) {
	t.Parallel()

	lookup := &fakeLookup{}
	id, ok, err := New(lookup, nil).ResolveHandle(context.Background(), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
	assert.Len(t, lookup.calls, 3)
}

func TestPickHit(t *testing.T) {
	t.Parallel()

	hits := []youtube.SearchHit{
		{ChannelID: "first", Title: "Unrelated"},
		{ChannelID: "title", Title: "The CHEF Show"},
		{ChannelID: "exact", Title: "Kitchen", CustomURL: "@Chef"},
	}
	assert.Equal(t, "exact", pickHit(hits, "chef"))
	assert.Equal(t, "title", pickHit(hits[:2], "chef"))
	assert.Equal(t, "first", pickHit(hits[:1], "chef"))
	assert.Empty(t, pickHit(nil, "chef"))
}

func TestResolveUsesCache(t *testing.T) {
	t.Parallel()

	cache := &mapCache{m: map[string]string{"chef": canonical}}
	lookup := &fakeLookup{}
	id, ok, err := New(lookup, nil, WithCache(cache)).ResolveHandle(context.Background(), "Chef")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, canonical, id)
	assert.Empty(t, lookup.calls)
}

func TestResolvePopulatesCacheAndIgnoresCacheErrors(t *testing.T) {
	t.Parallel()

	cache := &mapCache{m: map[string]string{}, getErr: errors.New("redis down")}
	lookup := &fakeLookup{handle: lookupResult{id: canonical, ok: true}}
	id, ok, err := New(lookup, nil, WithCache(cache)).ResolveHandle(context.Background(), "Chef")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, canonical, id)
	assert.Equal(t, canonical, cache.m["chef"])
}
