package collector

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"gameinsights-backend/internal/gamedata"
)

const report_collect_batch = "collect.batch"

// Collect aggregates every source's data for one game and validates
// the merge into a Record. Individual source failures reduce the
// record's completeness instead of failing the call; the errors that
// remain are context cancellation and a rejected merge.
func (c *Collector) Collect(ctx context.Context, appid string) (*gamedata.Record, error) {
	if err := c.limits.Acquire(ctx, "collector", c.opts.Calls, c.opts.Period); err != nil {
		return nil, err
	}

	raw := c.fetchRaw(ctx, appid)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return gamedata.New(raw)
}

// fetchRaw queries the id-keyed sources concurrently, then the
// name-keyed ones once a name is known. Only each spec's declared
// fields make it into the merged row.
func (c *Collector) fetchRaw(ctx context.Context, appid string) map[string]any {
	raw := map[string]any{"steam_appid": appid}

	var (
		mu sync.Mutex
		wg sync.WaitGroup
	)
	for _, spec := range c.idSpecs {
		wg.Add(1)
		go func(spec SourceSpec) {
			defer wg.Done()
			res := spec.Source.Fetch(ctx, appid)
			if !res.OK {
				c.tel.ReportDebug("source skipped", spec.Source.Name(), appid, res.Err)
				return
			}
			mu.Lock()
			defer mu.Unlock()
			mergeFields(raw, res.Data, spec.Fields)
		}(spec)
	}
	wg.Wait()

	// no name means the game is unresolved for the name-keyed sources
	name, _ := raw["name"].(string)
	if name == "" {
		return raw
	}
	for _, spec := range c.nameSpecs {
		res := spec.Source.Fetch(ctx, name)
		if !res.OK {
			c.tel.ReportDebug("source skipped", spec.Source.Name(), name, res.Err)
			continue
		}
		mergeFields(raw, res.Data, spec.Fields)
	}
	return raw
}

func mergeFields(dst, src map[string]any, fields []string) {
	for _, field := range fields {
		dst[field] = src[field]
	}
}

// CollectBatch collects every appid with at most Workers games in
// flight and returns one record per requested appid in input order. A
// game whose collection fails outright still yields a key-only record.
func (c *Collector) CollectBatch(ctx context.Context, appids []string) []*gamedata.Record {
	records := make([]*gamedata.Record, len(appids))

	var g errgroup.Group
	g.SetLimit(c.opts.Workers)
	for i, appid := range appids {
		g.Go(func() error {
			c.tel.ReportDebug("collecting game", i+1, len(appids), appid)
			rec, err := c.Collect(ctx, appid)
			if err != nil {
				c.tel.ReportWarning(report_collect_batch, "falling back to key-only record", appid, err)
				rec = keyOnly(appid)
			}
			records[i] = rec
			return nil
		})
	}
	_ = g.Wait()

	return records
}

func keyOnly(appid string) *gamedata.Record {
	rec, err := gamedata.New(map[string]any{"steam_appid": appid})
	if err != nil {
		// only an empty appid lands here
		return &gamedata.Record{SteamAppid: appid}
	}
	return rec
}
