package collector

import (
	"context"
	"time"

	"gameinsights-backend/internal/sources"
)

// UserData fetches profile data for each steamid in turn, pausing
// between users. A failed fetch still yields a row carrying just the
// steamid.
func (c *Collector) UserData(ctx context.Context, steamids []string, includeFreeGames bool) []map[string]any {
	rows := make([]map[string]any, 0, len(steamids))
	for i, steamid := range steamids {
		c.tel.ReportDebug("fetching user", i+1, len(steamids), steamid)

		res := c.user.Fetch(ctx, steamid, sources.WithFreeGames(includeFreeGames))
		if res.OK {
			rows = append(rows, res.Data)
		} else {
			rows = append(rows, map[string]any{"steamid": steamid})
		}

		if i < len(steamids)-1 {
			pause(ctx, c.opts.UserPause)
		}
	}
	return rows
}

func pause(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
