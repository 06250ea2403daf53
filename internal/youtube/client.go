// Package youtube wraps the YouTube Data API v3 behind the narrow set of calls
// the discovery pipeline needs: channel search, channel lookups by id, handle,
// and legacy username.
package youtube

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"github.com/JakeFAU/tubescout/internal/crawler"
	"github.com/JakeFAU/tubescout/internal/metrics"
)

// MaxIDsPerCall is the platform limit on ids per channels.list request.
const MaxIDsPerCall = 50

const channelURLPrefix = "https://www.youtube.com/channel/"

// Config controls how the client reaches the API.
type Config struct {
	APIKey string
	// BaseURL overrides the API endpoint (tests, proxies).
	BaseURL    string
	HTTPClient *http.Client
	// Limiter paces calls per endpoint. Nil means unlimited.
	Limiter Limiter
}

// Limiter blocks until a call to endpoint may proceed.
type Limiter interface {
	Wait(ctx context.Context, endpoint string) error
}

// SearchHit is one channel returned by a free-text search.
type SearchHit struct {
	ChannelID string
	Title     string
	CustomURL string
}

// Client issues YouTube Data API calls.
type Client struct {
	svc     *yt.Service
	limiter Limiter
	logger  *zap.Logger
}

// New builds a Client. An API key is required unless a custom HTTP client is supplied.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var opts []option.ClientOption
	switch {
	case cfg.HTTPClient != nil:
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	case cfg.APIKey != "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	default:
		return nil, errors.New("youtube: api key is required")
	}
	if cfg.BaseURL != "" {
		base := cfg.BaseURL
		if !strings.HasSuffix(base, "/") {
			base += "/"
		}
		opts = append(opts, option.WithEndpoint(base))
	}
	svc, err := yt.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("youtube: create service: %w", err)
	}
	return &Client{svc: svc, limiter: cfg.Limiter, logger: logger.Named("youtube")}, nil
}

// SearchChannels runs one region/term/order search and returns candidate channel ids.
func (c *Client) SearchChannels(ctx context.Context, q crawler.SearchQuery) ([]string, error) {
	call := c.svc.Search.List([]string{"snippet"}).
		Q(q.Term).
		Type("channel").
		MaxResults(q.MaxResults).
		Context(ctx)
	if q.RegionCode != "" {
		call = call.RegionCode(q.RegionCode)
	}
	if q.Order != "" {
		call = call.Order(q.Order)
	}
	if err := c.wait(ctx, "search.list"); err != nil {
		return nil, err
	}
	resp, err := call.Do()
	if err = classify("search.list", err); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		if id := searchResultChannelID(item); id != "" {
			ids = append(ids, id)
		}
	}
	c.logger.Debug("search complete",
		zap.String("term", q.Term),
		zap.String("region", q.RegionCode),
		zap.String("order", q.Order),
		zap.Int("results", len(ids)),
	)
	return ids, nil
}

// SearchHandle searches for "@"+handle and returns hits enriched with their custom URL.
// The search snippet carries no custom URL, so a follow-up channels.list fills it in.
func (c *Client) SearchHandle(ctx context.Context, handle string, maxResults int64) ([]SearchHit, error) {
	if err := c.wait(ctx, "search.list"); err != nil {
		return nil, err
	}
	resp, err := c.svc.Search.List([]string{"snippet"}).
		Q("@" + handle).
		Type("channel").
		MaxResults(maxResults).
		Context(ctx).
		Do()
	if err = classify("search.list", err); err != nil {
		return nil, err
	}
	hits := make([]SearchHit, 0, len(resp.Items))
	ids := make([]string, 0, len(resp.Items))
	for _, item := range resp.Items {
		id := searchResultChannelID(item)
		if id == "" {
			continue
		}
		hit := SearchHit{ChannelID: id}
		if item.Snippet != nil {
			hit.Title = item.Snippet.Title
		}
		hits = append(hits, hit)
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return hits, nil
	}

	if err := c.wait(ctx, "channels.list"); err != nil {
		return nil, err
	}
	enrich, err := c.svc.Channels.List([]string{"snippet"}).Id(ids...).Context(ctx).Do()
	if err = classify("channels.list", err); err != nil {
		if errors.Is(err, crawler.ErrQuotaExceeded) {
			return nil, err
		}
		c.logger.Warn("custom url enrichment failed", zap.Error(err))
		return hits, nil
	}
	custom := make(map[string]string, len(enrich.Items))
	for _, ch := range enrich.Items {
		if ch.Snippet != nil {
			custom[ch.Id] = ch.Snippet.CustomUrl
		}
	}
	for i := range hits {
		hits[i].CustomURL = custom[hits[i].ChannelID]
	}
	return hits, nil
}

// ChannelIDForHandle looks a handle up directly.
func (c *Client) ChannelIDForHandle(ctx context.Context, handle string) (string, bool, error) {
	if err := c.wait(ctx, "channels.list"); err != nil {
		return "", false, err
	}
	resp, err := c.svc.Channels.List([]string{"id"}).ForHandle(handle).MaxResults(1).Context(ctx).Do()
	if err = classify("channels.list", err); err != nil {
		return "", false, err
	}
	return firstChannelID(resp)
}

// ChannelIDForUsername uses the legacy username lookup.
func (c *Client) ChannelIDForUsername(ctx context.Context, username string) (string, bool, error) {
	if err := c.wait(ctx, "channels.list"); err != nil {
		return "", false, err
	}
	resp, err := c.svc.Channels.List([]string{"id"}).ForUsername(username).MaxResults(1).Context(ctx).Do()
	if err = classify("channels.list", err); err != nil {
		return "", false, err
	}
	return firstChannelID(resp)
}

// ListChannels loads normalized details for up to MaxIDsPerCall ids in one call.
func (c *Client) ListChannels(ctx context.Context, ids []string) ([]crawler.ChannelDetail, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	if len(ids) > MaxIDsPerCall {
		return nil, fmt.Errorf("youtube: %d ids exceeds per-call limit of %d", len(ids), MaxIDsPerCall)
	}
	if err := c.wait(ctx, "channels.list"); err != nil {
		return nil, err
	}
	resp, err := c.svc.Channels.List([]string{"snippet", "statistics", "brandingSettings"}).
		Id(ids...).
		Context(ctx).
		Do()
	if err = classify("channels.list", err); err != nil {
		return nil, err
	}
	out := make([]crawler.ChannelDetail, 0, len(resp.Items))
	for _, item := range resp.Items {
		if item == nil || item.Id == "" {
			continue
		}
		out = append(out, toDetail(item))
	}
	return out, nil
}

// IsQuotaError reports whether err's message mentions quota, case-insensitively.
func IsQuotaError(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "quota")
}

func (c *Client) wait(ctx context.Context, endpoint string) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx, endpoint); err != nil {
		return fmt.Errorf("youtube: %w", err)
	}
	return nil
}

func classify(endpoint string, err error) error {
	switch {
	case err == nil:
		metrics.ObserveYouTubeCall(endpoint, metrics.OutcomeOK)
		return nil
	case IsQuotaError(err):
		metrics.ObserveYouTubeCall(endpoint, metrics.OutcomeQuota)
		return fmt.Errorf("%s: %w: %w", endpoint, crawler.ErrQuotaExceeded, err)
	default:
		metrics.ObserveYouTubeCall(endpoint, metrics.OutcomeError)
		return fmt.Errorf("%s: %w", endpoint, err)
	}
}

func firstChannelID(resp *yt.ChannelListResponse) (string, bool, error) {
	if resp == nil {
		return "", false, nil
	}
	for _, item := range resp.Items {
		if item != nil && item.Id != "" {
			return item.Id, true, nil
		}
	}
	return "", false, nil
}

func searchResultChannelID(item *yt.SearchResult) string {
	if item == nil {
		return ""
	}
	if item.Snippet != nil && item.Snippet.ChannelId != "" {
		return item.Snippet.ChannelId
	}
	if item.Id != nil {
		return item.Id.ChannelId
	}
	return ""
}

func toDetail(item *yt.Channel) crawler.ChannelDetail {
	d := crawler.ChannelDetail{
		ChannelID:  item.Id,
		ChannelURL: channelURLPrefix + item.Id,
	}
	if s := item.Snippet; s != nil {
		d.Title = s.Title
		d.Description = s.Description
		d.Country = s.Country
		d.CustomURL = s.CustomUrl
		d.DefaultLanguage = s.DefaultLanguage
		if ts, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			d.PublishedAt = ts.UTC()
		}
		d.ThumbnailURL = thumbnailURL(s.Thumbnails)
	}
	if st := item.Statistics; st != nil {
		d.Subscribers = clampCount(st.SubscriberCount)
		d.TotalViews = clampCount(st.ViewCount)
		d.VideoCount = clampCount(st.VideoCount)
	}
	if b := item.BrandingSettings; b != nil && b.Channel != nil {
		d.Keywords = b.Channel.Keywords
	}
	return d
}

func thumbnailURL(t *yt.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*yt.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func clampCount(v uint64) int64 {
	if v > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(v)
}
