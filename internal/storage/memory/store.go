package memory

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/JakeFAU/tubescout/internal/clock/system"
	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/score"
)

const (
	defaultActivityLimit = 100
	analyticsWindow      = 30 * 24 * time.Hour
	topKeywords          = 10
	notesPreviewRunes    = 50
)

// Store implements crawler.Store in memory. It mirrors the Postgres store's semantics.
type Store struct {
	mu       sync.RWMutex
	clock    crawler.Clock
	channels []crawler.Channel
	byID     map[string]int
	users    []crawler.User
	activity []crawler.ActivityEntry
	nextID   struct{ channel, user, activity int64 }
}

var _ crawler.Store = (*Store)(nil)

// NewStore returns an empty store. A nil clock uses the system clock.
func NewStore(clock crawler.Clock) *Store {
	if clock == nil {
		clock = system.New()
	}
	return &Store{clock: clock, byID: make(map[string]int)}
}

func (s *Store) now() time.Time { return s.clock.Now().UTC() }

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *Store) Close() {}

// InsertChannel stores ch unless its channel id already exists.
func (s *Store) InsertChannel(_ context.Context, ch crawler.Channel) (bool, error) {
	if ch.ChannelID == "" {
		return false, errors.New("channel id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[ch.ChannelID]; ok {
		return false, nil
	}
	s.nextID.channel++
	ch.ID = s.nextID.channel
	ch.FetchedAt = s.now()
	ch.PriorityScore = score.Priority(ch.Subscribers, ch.TotalViews, ch.VideoCount)
	ch.Emailed, ch.EmailedAt, ch.EmailedBy = false, nil, nil
	ch.ReplyReceived, ch.RepliedAt, ch.RepliedBy = false, nil, nil
	s.byID[ch.ChannelID] = len(s.channels)
	s.channels = append(s.channels, ch)
	return true, nil
}

// KnownChannelIDs returns every stored canonical id.
func (s *Store) KnownChannelIDs(context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.byID))
	for id := range s.byID {
		out[id] = struct{}{}
	}
	return out, nil
}

// GetChannel loads one row by surrogate id.
func (s *Store) GetChannel(_ context.Context, id int64) (crawler.Channel, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.channelIndex(id)
	if i < 0 {
		return crawler.Channel{}, fmt.Errorf("channel %d: %w", id, crawler.ErrNotFound)
	}
	return s.decorate(s.channels[i]), nil
}

// ListChannels filters, sorts and pages. Limit <= 0 returns every match.
func (s *Store) ListChannels(_ context.Context, opts crawler.ListOptions) ([]crawler.Channel, error) {
	opts = opts.Normalize()
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []crawler.Channel
	for _, ch := range s.channels {
		if matches(ch, opts.Filter) {
			out = append(out, s.decorate(ch))
		}
	}
	slices.SortStableFunc(out, func(a, b crawler.Channel) int {
		return compareChannels(a, b, opts.SortBy, opts.Order)
	})
	if opts.Offset >= len(out) {
		return []crawler.Channel{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && opts.Limit < len(out) {
		out = out[:opts.Limit]
	}
	return out, nil
}

// CountChannels counts rows matching f.
func (s *Store) CountChannels(_ context.Context, f crawler.ChannelFilter) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var n int64
	for _, ch := range s.channels {
		if matches(ch, f) {
			n++
		}
	}
	return n, nil
}

// MarkEmailed sets or clears the emailed state for ids and records one audit entry.
func (s *Store) MarkEmailed(_ context.Context, ids []int64, emailed bool, actor crawler.User) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	var updated int64
	for _, id := range ids {
		i := s.channelIndex(id)
		if i < 0 {
			continue
		}
		ch := &s.channels[i]
		ch.Emailed = emailed
		if emailed {
			ch.EmailedAt, ch.EmailedBy = ptr(now), ptr(actor.ID)
		} else {
			ch.EmailedAt, ch.EmailedBy = nil, nil
		}
		updated++
	}
	action := crawler.ActionMarkedEmailed
	switch {
	case !emailed:
		action = crawler.ActionUnmarkedEmailed
	case len(ids) > 1:
		action = crawler.ActionBulkEmailed
	}
	s.appendActivity(crawler.ActivityEntry{
		UserID:     userRef(actor),
		Action:     action,
		EntityType: "channel",
		Details:    fmt.Sprintf("Updated %d channels", len(ids)),
	})
	return updated, nil
}

// SetReplyStatus flips the reply flag for one channel; false means no such row.
func (s *Store) SetReplyStatus(_ context.Context, id int64, received bool, actor crawler.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.channelIndex(id)
	if i < 0 {
		return false, nil
	}
	ch := &s.channels[i]
	ch.ReplyReceived = received
	details := "Marked channel as no reply"
	if received {
		ch.RepliedAt, ch.RepliedBy = ptr(s.now()), ptr(actor.ID)
		details = "Marked channel as reply received"
	} else {
		ch.RepliedAt, ch.RepliedBy = nil, nil
	}
	s.appendActivity(crawler.ActivityEntry{
		UserID:     userRef(actor),
		Action:     crawler.ActionUpdateReply,
		EntityType: "channel",
		EntityID:   ptr(id),
		Details:    details,
	})
	return true, nil
}

// UpdateNotes replaces the notes on one channel; false means no such row.
func (s *Store) UpdateNotes(_ context.Context, id int64, notes string, actor crawler.User) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.channelIndex(id)
	if i < 0 {
		return false, nil
	}
	s.channels[i].Notes = notes
	preview := notes
	if utf8.RuneCountInString(preview) > notesPreviewRunes {
		preview = string([]rune(preview)[:notesPreviewRunes])
	}
	s.appendActivity(crawler.ActivityEntry{
		UserID:     userRef(actor),
		Action:     crawler.ActionUpdatedNotes,
		EntityType: "channel",
		EntityID:   ptr(id),
		Details:    "Updated notes: " + preview,
	})
	return true, nil
}

// RecomputePriorityScores rescores every row and returns how many changed.
func (s *Store) RecomputePriorityScores(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	changed := 0
	for i := range s.channels {
		ch := &s.channels[i]
		next := score.Priority(ch.Subscribers, ch.TotalViews, ch.VideoCount)
		if next != ch.PriorityScore {
			ch.PriorityScore = next
			changed++
		}
	}
	return changed, nil
}

// FilterOptions lists distinct non-empty keywords and country codes, sorted.
func (s *Store) FilterOptions(context.Context) (crawler.FilterOptions, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	kw := map[string]struct{}{}
	cc := map[string]struct{}{}
	for _, ch := range s.channels {
		if ch.SearchKeyword != "" {
			kw[ch.SearchKeyword] = struct{}{}
		}
		if ch.CountryCode != "" {
			cc[ch.CountryCode] = struct{}{}
		}
	}
	return crawler.FilterOptions{Keywords: sortedKeys(kw), Countries: sortedKeys(cc)}, nil
}

// Analytics aggregates dashboard charts relative to now.
func (s *Store) Analytics(_ context.Context, now time.Time) (crawler.Analytics, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	since := now.UTC().Add(-analyticsWindow)
	fetched := map[string]int64{}
	emailed := map[string]int64{}
	country := map[string]int64{}
	keyword := map[string]int64{}
	perUser := map[int64]int64{}
	for _, ch := range s.channels {
		if !ch.FetchedAt.Before(since) {
			fetched[ch.FetchedAt.UTC().Format(time.DateOnly)]++
		}
		if ch.Emailed && ch.EmailedAt != nil && !ch.EmailedAt.Before(since) {
			emailed[ch.EmailedAt.UTC().Format(time.DateOnly)]++
		}
		country[ch.CountryCode]++
		if ch.SearchKeyword != "" {
			keyword[ch.SearchKeyword]++
		}
		if ch.Emailed && ch.EmailedBy != nil {
			perUser[*ch.EmailedBy]++
		}
	}
	users := map[string]int64{}
	for id, n := range perUser {
		if u, ok := s.userByID(id); ok {
			users[u.Username] += n
		}
	}
	byKeyword := labelled(keyword)
	if len(byKeyword) > topKeywords {
		byKeyword = byKeyword[:topKeywords]
	}
	return crawler.Analytics{
		DailyFetched:    daily(fetched),
		DailyEmailed:    daily(emailed),
		ByCountry:       labelled(country),
		ByKeyword:       byKeyword,
		UserPerformance: labelled(users),
	}, nil
}

// CreateUser inserts u as an active account. Duplicate username or email yields ErrConflict.
func (s *Store) CreateUser(_ context.Context, u crawler.User) (crawler.User, error) {
	if u.Role == "" {
		u.Role = crawler.RoleUser
	}
	if !u.Role.Valid() {
		return crawler.User{}, fmt.Errorf("invalid role %q", u.Role)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertUserLocked(u)
}

// SeedAdmin inserts admin when no users exist. It reports whether a row was created.
// The emptiness check and the insert happen under one lock.
func (s *Store) SeedAdmin(_ context.Context, admin crawler.User) (bool, error) {
	admin.Role = crawler.RoleAdmin
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.users) > 0 {
		return false, nil
	}
	if _, err := s.insertUserLocked(admin); err != nil {
		return false, fmt.Errorf("seed admin: %w", err)
	}
	return true, nil
}

// insertUserLocked requires s.mu held for writing.
func (s *Store) insertUserLocked(u crawler.User) (crawler.User, error) {
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return crawler.User{}, fmt.Errorf("user %q: %w", u.Username, crawler.ErrConflict)
		}
	}
	s.nextID.user++
	u.ID = s.nextID.user
	u.Active = true
	u.CreatedAt = s.now()
	s.users = append(s.users, u)
	return u, nil
}

// UserByID loads an active user.
func (s *Store) UserByID(_ context.Context, id int64) (crawler.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if u, ok := s.userByID(id); ok && u.Active {
		return u, nil
	}
	return crawler.User{}, fmt.Errorf("user %d: %w", id, crawler.ErrNotFound)
}

// UserByUsername loads an active user by login name.
func (s *Store) UserByUsername(_ context.Context, username string) (crawler.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username && u.Active {
			return u, nil
		}
	}
	return crawler.User{}, fmt.Errorf("user %s: %w", username, crawler.ErrNotFound)
}

// ListUsers returns every account, newest first.
func (s *Store) ListUsers(context.Context) ([]crawler.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := slices.Clone(s.users)
	slices.SortStableFunc(out, func(a, b crawler.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return out, nil
}

// DeactivateUser soft-deletes an account.
func (s *Store) DeactivateUser(_ context.Context, id int64) error {
	return s.mutateUser(id, func(u *crawler.User) { u.Active = false })
}

// UpdatePassword stores a new password hash.
func (s *Store) UpdatePassword(_ context.Context, id int64, hash string) error {
	return s.mutateUser(id, func(u *crawler.User) { u.PasswordHash = hash })
}

// UserStats counts channels emailed and replies recorded by one user.
func (s *Store) UserStats(_ context.Context, id int64) (crawler.UserStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var st crawler.UserStats
	for _, ch := range s.channels {
		if ch.EmailedBy != nil && *ch.EmailedBy == id {
			st.ChannelsEmailed++
		}
		if ch.RepliedBy != nil && *ch.RepliedBy == id {
			st.RepliesReceived++
		}
	}
	return st, nil
}

// LogActivity appends one audit entry.
func (s *Store) LogActivity(_ context.Context, e crawler.ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendActivity(e)
	return nil
}

// ListActivity returns audit entries newest first.
func (s *Store) ListActivity(_ context.Context, q crawler.ActivityQuery) ([]crawler.ActivityEntry, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []crawler.ActivityEntry
	for i := len(s.activity) - 1; i >= 0 && len(out) < limit; i-- {
		e := s.activity[i]
		if q.UserID != nil && (e.UserID == nil || *e.UserID != *q.UserID) {
			continue
		}
		if q.Action != "" && e.Action != q.Action {
			continue
		}
		if e.UserID != nil {
			if u, ok := s.userByID(*e.UserID); ok {
				e.Username = u.Username
			}
		}
		out = append(out, e)
	}
	return out, nil
}

// appendActivity requires s.mu held for writing.
func (s *Store) appendActivity(e crawler.ActivityEntry) {
	s.nextID.activity++
	e.ID = s.nextID.activity
	e.CreatedAt = s.now()
	s.activity = append(s.activity, e)
}

func (s *Store) mutateUser(id int64, fn func(*crawler.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			fn(&s.users[i])
			return nil
		}
	}
	return fmt.Errorf("user %d: %w", id, crawler.ErrNotFound)
}

func (s *Store) userByID(id int64) (crawler.User, bool) {
	for _, u := range s.users {
		if u.ID == id {
			return u, true
		}
	}
	return crawler.User{}, false
}

func (s *Store) channelIndex(id int64) int {
	return slices.IndexFunc(s.channels, func(ch crawler.Channel) bool { return ch.ID == id })
}

// decorate fills the joined usernames.
func (s *Store) decorate(ch crawler.Channel) crawler.Channel {
	ch.EmailedByUsername, ch.RepliedByUsername = "", ""
	if ch.EmailedBy != nil {
		if u, ok := s.userByID(*ch.EmailedBy); ok {
			ch.EmailedByUsername = u.Username
		}
	}
	if ch.RepliedBy != nil {
		if u, ok := s.userByID(*ch.RepliedBy); ok {
			ch.RepliedByUsername = u.Username
		}
	}
	return ch
}

func matches(ch crawler.Channel, f crawler.ChannelFilter) bool {
	if f.Emailed != nil && ch.Emailed != *f.Emailed {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Search)); q != "" &&
		!strings.Contains(strings.ToLower(ch.Title), q) &&
		!strings.Contains(strings.ToLower(ch.Description), q) &&
		!strings.Contains(strings.ToLower(ch.Country), q) {
		return false
	}
	if f.CountryCode != "" && ch.CountryCode != f.CountryCode {
		return false
	}
	if f.SearchKeyword != "" && ch.SearchKeyword != f.SearchKeyword {
		return false
	}
	if f.MinSubscribers != nil && ch.Subscribers < *f.MinSubscribers {
		return false
	}
	if f.MaxSubscribers != nil && ch.Subscribers > *f.MaxSubscribers {
		return false
	}
	if f.MinScore != nil && ch.PriorityScore < *f.MinScore {
		return false
	}
	if f.ReplyReceived != nil && ch.ReplyReceived != *f.ReplyReceived {
		return false
	}
	return true
}

// compareChannels orders by key with nulls last in either direction, then by id.
func compareChannels(a, b crawler.Channel, key crawler.SortKey, order crawler.SortOrder) int {
	var c int
	switch key {
	case crawler.SortSubscribers:
		c = cmp.Compare(a.Subscribers, b.Subscribers)
	case crawler.SortPriorityScore:
		c = cmp.Compare(a.PriorityScore, b.PriorityScore)
	case crawler.SortEmailedAt, crawler.SortRepliedAt:
		at, bt := a.EmailedAt, b.EmailedAt
		if key == crawler.SortRepliedAt {
			at, bt = a.RepliedAt, b.RepliedAt
		}
		switch {
		case at == nil && bt == nil:
		case at == nil:
			return 1
		case bt == nil:
			return -1
		default:
			c = at.Compare(*bt)
		}
	default:
		c = a.FetchedAt.Compare(b.FetchedAt)
	}
	if c == 0 {
		c = cmp.Compare(a.ID, b.ID)
	}
	if order == crawler.SortDesc {
		return -c
	}
	return c
}

func daily(m map[string]int64) []crawler.DailyCount {
	out := make([]crawler.DailyCount, 0, len(m))
	for day, n := range m {
		out = append(out, crawler.DailyCount{Date: day, Count: n})
	}
	slices.SortFunc(out, func(a, b crawler.DailyCount) int { return strings.Compare(b.Date, a.Date) })
	return out
}

func labelled(m map[string]int64) []crawler.LabelCount {
	out := make([]crawler.LabelCount, 0, len(m))
	for label, n := range m {
		out = append(out, crawler.LabelCount{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b crawler.LabelCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return strings.Compare(a.Label, b.Label)
	})
	return out
}

func sortedKeys(m map[string]struct{}) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

func userRef(u crawler.User) *int64 {
	if u.ID == 0 {
		return nil
	}
	return ptr(u.ID)
}

func ptr[T any](v T) *T { return &v }
