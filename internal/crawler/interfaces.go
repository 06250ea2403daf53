package crawler

import (
	"context"
	"time"
)

// ChannelStore persists discovered channels and their outreach state.
type ChannelStore interface {
	InsertChannel(ctx context.Context, ch Channel) (bool, error)
	KnownChannelIDs(ctx context.Context) (map[string]struct{}, error)
	GetChannel(ctx context.Context, id int64) (Channel, error)
	ListChannels(ctx context.Context, opts ListOptions) ([]Channel, error)
	CountChannels(ctx context.Context, filter ChannelFilter) (int64, error)
	MarkEmailed(ctx context.Context, ids []int64, emailed bool, actor User) (int64, error)
	SetReplyStatus(ctx context.Context, id int64, received bool, actor User) (bool, error)
	UpdateNotes(ctx context.Context, id int64, notes string, actor User) (bool, error)
	RecomputePriorityScores(ctx context.Context) (int, error)
	FilterOptions(ctx context.Context) (FilterOptions, error)
	Analytics(ctx context.Context, now time.Time) (Analytics, error)
}

// UserStore manages dashboard accounts.
type UserStore interface {
	CreateUser(ctx context.Context, u User) (User, error)
	UserByID(ctx context.Context, id int64) (User, error)
	UserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context) ([]User, error)
	DeactivateUser(ctx context.Context, id int64) error
	UpdatePassword(ctx context.Context, id int64, passwordHash string) error
	UserStats(ctx context.Context, id int64) (UserStats, error)
}

// ActivityStore appends to and reads the audit log.
type ActivityStore interface {
	LogActivity(ctx context.Context, entry ActivityEntry) error
	ListActivity(ctx context.Context, q ActivityQuery) ([]ActivityEntry, error)
}

// Store aggregates every persistence concern behind one handle.
type Store interface {
	ChannelStore
	UserStore
	ActivityStore
	Ping(ctx context.Context) error
	Close()
}

// Searcher returns candidate channel ids for a keyword in a region.
type Searcher interface {
	SearchChannels(ctx context.Context, q SearchQuery) ([]string, error)
}

// DetailFetcher loads normalized details for ids, dropping anything above the ceiling.
type DetailFetcher interface {
	Fetch(ctx context.Context, ids []string, ceiling int64) ([]ChannelDetail, error)
}

// BlobStore writes raw artifacts and returns a URI.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data []byte) (string, error)
}

// Publisher pushes completion events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// HandleCache remembers handle → canonical id resolutions.
type HandleCache interface {
	Get(ctx context.Context, handle string) (string, bool, error)
	Set(ctx context.Context, handle, channelID string) error
}

// Hasher computes digests for deduplication/integrity.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}

// SearchQuery is one search.list call.
type SearchQuery struct {
	Term       string
	RegionCode string
	Order      string
	MaxResults int64
}
