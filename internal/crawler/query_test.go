package crawler

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseSortKey(t *testing.T) {
	t.Parallel()

	cases := map[string]SortKey{
		"":               SortFetchedAt,
		"subscribers":    SortSubscribers,
		"PRIORITY_SCORE": SortPriorityScore,
		" emailed_at ":   SortEmailedAt,
		"replied_at":     SortRepliedAt,
		"title; drop":    SortFetchedAt,
	}
	for in, want := range cases {
		assert.Equal(t, want, ParseSortKey(in), in)
	}
}

func TestParseSortOrder(t *testing.T) {
	t.Parallel()

	assert.Equal(t, SortAsc, ParseSortOrder("ASC"))
	assert.Equal(t, SortAsc, ParseSortOrder("asc"))
	assert.Equal(t, SortDesc, ParseSortOrder("desc"))
	assert.Equal(t, SortDesc, ParseSortOrder("sideways"))
}

func TestListOptionsNormalize(t *testing.T) {
	t.Parallel()

	got := ListOptions{SortBy: "bogus", Order: "", Offset: -3}.Normalize()
	assert.Equal(t, SortFetchedAt, got.SortBy)
	assert.Equal(t, SortDesc, got.Order)
	assert.Zero(t, got.Offset)
}

func TestChannelFromDetail(t *testing.T) {
	t.Parallel()

	d := ChannelDetail{
		ChannelID:     "UC1234567890123456789012",
		Title:         "Cooking with Sam",
		Subscribers:   5000,
		TotalViews:    1000,
		VideoCount:    12,
		ChannelURL:    "https://www.youtube.com/channel/UC1234567890123456789012",
		SearchKeyword: "cooking",
		CountryCode:   "GB",
	}
	ch := ChannelFromDetail(d)
	assert.Equal(t, d.ChannelID, ch.ChannelID)
	assert.Equal(t, "cooking", ch.SearchKeyword)
	assert.Equal(t, "GB", ch.CountryCode)
	assert.Equal(t, int64(5000), ch.Subscribers)
	assert.False(t, ch.Emailed)
}
