package score

import "math"

// Metrics are the secondary ratios shown next to a single analyzed channel.
type Metrics struct {
	EngagementRate      float64 `json:"engagement_rate"`
	ViewsPerVideo       float64 `json:"views_per_video"`
	SubscribersPerVideo float64 `json:"subscribers_per_video"`
}

// Recommendation thresholds.
const (
	lowScoreThreshold      = 50
	lowEngagementThreshold = 50
	lowVideoThreshold      = 50
)

// Engagement derives per-subscriber and per-video ratios. Zero denominators yield zero.
func Engagement(subscribers, views, videos int64) Metrics {
	var m Metrics
	if subscribers > 0 {
		m.EngagementRate = Round2(float64(views) / float64(subscribers))
	}
	if videos > 0 {
		m.ViewsPerVideo = math.RoundToEven(float64(views) / float64(videos))
		m.SubscribersPerVideo = math.RoundToEven(float64(subscribers) / float64(videos))
	}
	return m
}

// Recommendations returns improvement advice for an analyzed channel. Each
// weak area adds one item; a channel with none gets a single positive note.
func Recommendations(priority float64, m Metrics, videos int64) []string {
	var out []string
	if priority < lowScoreThreshold {
		out = append(out, "Focus on increasing subscriber count to improve your priority score")
	}
	if m.EngagementRate < lowEngagementThreshold {
		out = append(out, "Improve engagement by creating more compelling content")
	}
	if videos < lowVideoThreshold {
		out = append(out, "Increase video frequency to boost activity score")
	}
	if len(out) == 0 {
		out = append(out, "Your channel is performing well! Consider optimizing SEO for even better results.")
	}
	return out
}
