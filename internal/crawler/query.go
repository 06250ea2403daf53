package crawler

import "strings"

// SortKey is a whitelisted column for channel listing.
type SortKey string

// Allowed sort keys.
const (
	SortFetchedAt     SortKey = "fetched_at"
	SortSubscribers   SortKey = "subscribers"
	SortPriorityScore SortKey = "priority_score"
	SortEmailedAt     SortKey = "emailed_at"
	SortRepliedAt     SortKey = "replied_at"
)

// ParseSortKey maps user input onto the allow-list; unknown keys fall back to fetched_at.
func ParseSortKey(raw string) SortKey {
	switch k := SortKey(strings.ToLower(strings.TrimSpace(raw))); k {
	case SortFetchedAt, SortSubscribers, SortPriorityScore, SortEmailedAt, SortRepliedAt:
		return k
	default:
		return SortFetchedAt
	}
}

// SortOrder is the listing direction.
type SortOrder string

// Directions.
const (
	SortAsc  SortOrder = "asc"
	SortDesc SortOrder = "desc"
)

// ParseSortOrder accepts asc/desc in any case; anything else is desc.
func ParseSortOrder(raw string) SortOrder {
	if strings.EqualFold(strings.TrimSpace(raw), string(SortAsc)) {
		return SortAsc
	}
	return SortDesc
}

// ChannelFilter is the conjunctive predicate shared by list and count.
// Nil pointers and empty strings mean "no constraint".
type ChannelFilter struct {
	Emailed        *bool
	Search         string
	CountryCode    string
	SearchKeyword  string
	MinSubscribers *int64
	MaxSubscribers *int64
	MinScore       *float64
	ReplyReceived  *bool
}

// ListOptions combines a filter with ordering and paging. Limit <= 0 is unbounded.
type ListOptions struct {
	Filter ChannelFilter
	SortBy SortKey
	Order  SortOrder
	Limit  int
	Offset int
}

// Normalize fills in the default sort column and direction.
func (o ListOptions) Normalize() ListOptions {
	o.SortBy = ParseSortKey(string(o.SortBy))
	o.Order = ParseSortOrder(string(o.Order))
	if o.Offset < 0 {
		o.Offset = 0
	}
	return o
}
