// Package score computes the outreach priority of a channel from its public
// statistics.
package score

import "math"

const (
	maxSubscriberPoints = 40
	maxEngagementPoints = 30
	maxActivityPoints   = 30

	subscribersPerPoint = 2500
	viewsPerSubPerPoint = 10
	videosPerPoint      = 10
)

// Priority returns a score in [0,100] rounded to two decimals.
//
//	sub        = min(40, subs/2500)
//	engagement = min(30, (views/subs)/10), 0 when subs == 0
//	activity   = min(30, videos/10)
//
// Negative inputs count as zero.
func Priority(subscribers, views, videos int64) float64 {
	subs := float64(max(subscribers, 0))
	v := float64(max(views, 0))
	vids := float64(max(videos, 0))

	sub := math.Min(maxSubscriberPoints, subs/subscribersPerPoint)
	var engagement float64
	if subs > 0 {
		engagement = math.Min(maxEngagementPoints, (v/subs)/viewsPerSubPerPoint)
	}
	activity := math.Min(maxActivityPoints, vids/videosPerPoint)

	return Round2(sub + engagement + activity)
}

// Round2 rounds x to two decimal places.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}
