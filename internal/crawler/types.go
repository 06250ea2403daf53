// Package crawler defines core types shared across subsystems.
package crawler

import (
	"errors"
	"time"
)

// Sentinel errors shared by the resolver, fetcher, stores, and API layer.
var (
	// ErrQuotaExceeded marks a usage-limit failure from the platform API. It aborts
	// the in-flight operation instead of falling through to another strategy.
	ErrQuotaExceeded = errors.New("api quota exceeded")
	// ErrNotFound is returned when a row or entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a uniqueness constraint rejects a write.
	ErrConflict = errors.New("conflict")
)

// Role is the permission level attached to a dashboard user.
type Role string

// Supported roles.
const (
	RoleAdmin Role = "admin"
	RoleUser  Role = "user"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// ChannelDetail is the normalized record produced by the detail fetcher.
type ChannelDetail struct {
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
	ThumbnailURL    string    `json:"thumbnail_url,omitempty"`
	PublishedAt     time.Time `json:"published_at,omitempty"`

	// Set by the discovery loop before insert.
	SearchKeyword string `json:"search_keyword,omitempty"`
	CountryCode   string `json:"country_code,omitempty"`
}

// Channel is one stored prospect row.
type Channel struct {
	ID                int64      `db:"id" json:"id"`
	ChannelID         string     `db:"channel_id" json:"channel_id"`
	Title             string     `db:"title" json:"title"`
	Description       string     `db:"description" json:"description"`
	Country           string     `db:"country" json:"country"`
	CountryCode       string     `db:"country_code" json:"country_code"`
	Subscribers       int64      `db:"subscribers" json:"subscribers"`
	TotalViews        int64      `db:"total_views" json:"total_views"`
	VideoCount        int64      `db:"video_count" json:"video_count"`
	CustomURL         string     `db:"custom_url" json:"custom_url"`
	Keywords          string     `db:"keywords" json:"keywords"`
	DefaultLanguage   string     `db:"default_language" json:"default_language"`
	ChannelURL        string     `db:"channel_url" json:"channel_url"`
	SearchKeyword     string     `db:"search_keyword" json:"search_keyword"`
	FetchedAt         time.Time  `db:"fetched_at" json:"fetched_at"`
	Emailed           bool       `db:"emailed" json:"emailed"`
	EmailedAt         *time.Time `db:"emailed_at" json:"emailed_at"`
	EmailedBy         *int64     `db:"emailed_by" json:"emailed_by"`
	EmailedByUsername string     `db:"emailed_by_username" json:"emailed_by_username"`
	ReplyReceived     bool       `db:"reply_received" json:"reply_received"`
	RepliedAt         *time.Time `db:"replied_at" json:"replied_at"`
	RepliedBy         *int64     `db:"replied_by" json:"replied_by"`
	RepliedByUsername string     `db:"replied_by_username" json:"replied_by_username"`
	Notes             string     `db:"notes" json:"notes"`
	PriorityScore     float64    `db:"priority_score" json:"priority_score"`
}

// ChannelFromDetail converts a fetched detail record into an insertable row.
func ChannelFromDetail(d ChannelDetail) Channel {
	return Channel{
		ChannelID:       d.ChannelID,
		Title:           d.Title,
		Description:     d.Description,
		Country:         d.Country,
		CountryCode:     d.CountryCode,
		Subscribers:     d.Subscribers,
		TotalViews:      d.TotalViews,
		VideoCount:      d.VideoCount,
		CustomURL:       d.CustomURL,
		Keywords:        d.Keywords,
		DefaultLanguage: d.DefaultLanguage,
		ChannelURL:      d.ChannelURL,
		SearchKeyword:   d.SearchKeyword,
	}
}

// User is a dashboard account. Users are deactivated, never deleted.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	Active       bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// IsAdmin reports whether the user carries the admin role.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// UserStats summarizes outreach performed by a single user.
type UserStats struct {
	ChannelsEmailed int64 `json:"channels_emailed"`
	RepliesReceived int64 `json:"replies_received"`
}

// Activity actions written to the audit log.
const (
	ActionMarkedEmailed   = "marked_emailed"
	ActionBulkEmailed     = "bulk_emailed"
	ActionUnmarkedEmailed = "unmarked_emailed"
	ActionUpdateReply     = "update_reply_status"
	ActionUpdatedNotes    = "updated_notes"
	ActionFetchChannels   = "fetch_channels"
	ActionRescore         = "rescore_channels"
	ActionExportChannels  = "export_channels"
	ActionChangedPassword = "changed_password"
	ActionCreatedUser     = "created_user"
	ActionDeactivatedUser = "deactivated_user"
	ActionResetPassword   = "reset_password"
)

// ActivityEntry is one append-only audit log row.
type ActivityEntry struct {
	ID         int64     `db:"id" json:"id"`
	UserID     *int64    `db:"user_id" json:"user_id"`
	Username   string    `db:"username" json:"username"`
	Action     string    `db:"action" json:"action"`
	EntityType string    `db:"entity_type" json:"entity_type"`
	EntityID   *int64    `db:"entity_id" json:"entity_id"`
	Details    string    `db:"details" json:"details"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}

// ActivityQuery narrows ListActivity results.
type ActivityQuery struct {
	Limit  int
	UserID *int64
	Action string
}

// DailyCount is one bucket of a per-day histogram.
type DailyCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// LabelCount is one bucket of a grouped count.
type LabelCount struct {
	Label string `json:"label"`
	Count int64  `json:"count"`
}

// Analytics backs the dashboard charts.
type Analytics struct {
	DailyFetched    []DailyCount `json:"daily_fetched"`
	DailyEmailed    []DailyCount `json:"daily_emailed"`
	ByCountry       []LabelCount `json:"by_country"`
	ByKeyword       []LabelCount `json:"by_keyword"`
	UserPerformance []LabelCount `json:"user_performance"`
}

// FilterOptions lists distinct values used to populate dashboard filters.
type FilterOptions struct {
	Keywords  []string `json:"keywords"`
	Countries []string `json:"countries"`
}

// CrawlEvent is published when a discovery run finishes.
type CrawlEvent struct {
	RunID         string    `json:"run_id"`
	NewChannels   int       `json:"new_channels"`
	TotalFetched  int       `json:"total_fetched"`
	Skipped       int       `json:"skipped"`
	TargetReached bool      `json:"target_reached"`
	TriggeredBy   *int64    `json:"triggered_by,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Error         string    `json:"error,omitempty"`
}
