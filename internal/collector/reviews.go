package collector

import (
	"context"
	"fmt"

	"gameinsights-backend/internal/sources"
)

// GameReviews walks the full review stream for one game, one flat map
// per review.
func (c *Collector) GameReviews(ctx context.Context, appid string, q sources.ReviewQuery) ([]map[string]any, error) {
	if appid == "" {
		return nil, fmt.Errorf("appid must not be empty")
	}
	c.tel.ReportDebug("fetching reviews", appid)

	res := c.reviews.FetchReviews(ctx, appid, q)
	if !res.OK {
		return nil, fmt.Errorf("fetching reviews for appid %s: %s", appid, res.Err)
	}
	reviews, _ := res.Data["reviews"].([]map[string]any)
	return reviews, nil
}
