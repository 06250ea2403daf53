package redis

import (
	"context"
	"errors"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRedis struct {
	values  map[string]string
	ttls    map[string]time.Duration
	failGet error
	failSet error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Get(_ context.Context, key string) *goredis.StringCmd {
	if f.failGet != nil {
		return goredis.NewStringResult("", f.failGet)
	}
	v, ok := f.values[key]
	if !ok {
		return goredis.NewStringResult("", goredis.Nil)
	}
	return goredis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, ttl time.Duration) *goredis.StatusCmd {
	if f.failSet != nil {
		return goredis.NewStatusResult("", f.failSet)
	}
	f.values[key] = value.(string)
	f.ttls[key] = ttl
	return goredis.NewStatusResult("OK", nil)
}

func TestHandleCacheRoundTrip(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	cache := NewWithClient(fake, 0, nil)
	ctx := context.Background()

	_, ok, err := cache.Get(ctx, "mkbhd")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, cache.Set(ctx, "mkbhd", "UCBJycsmduvYEL83R_U4JriQ"))
	assert.Equal(t, DefaultTTL, fake.ttls["tubescout:handle:mkbhd"])

	id, ok, err := cache.Get(ctx, "mkbhd")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "UCBJycsmduvYEL83R_U4JriQ", id)
}

func TestHandleCacheErrors(t *testing.T) {
	t.Parallel()

	fake := newFakeRedis()
	fake.failGet = errors.New("connection refused")
	fake.failSet = errors.New("READONLY")
	cache := NewWithClient(fake, time.Minute, nil)

	_, _, err := cache.Get(context.Background(), "x")
	require.Error(t, err)
	require.Error(t, cache.Set(context.Background(), "x", "UC"))
}

func TestNewRequiresURL(t *testing.T) {
	t.Parallel()

	_, _, err := New(context.Background(), Config{}, nil)
	require.Error(t, err)
	_, _, err = New(context.Background(), Config{URL: "not a url"}, nil)
	require.Error(t, err)
}
