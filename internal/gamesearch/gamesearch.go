// Package gamesearch resolves game names to Steam appids by fuzzy
// matching against the public app list.
package gamesearch

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/antzucaro/matchr"
	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"

	"gameinsights-backend/internal/assert"
	"gameinsights-backend/internal/telemetry"
	"gameinsights-backend/lib/textutil"
)

const (
	applistPath = "/ISteamApps/GetAppList/v2/"

	// scoreCutoff is the minimum 0..100 similarity a hit needs.
	scoreCutoff = 60.0
	defaultTopN = 5
)

// Match is one search hit. Score is a 0..100 similarity rounded to two
// decimals.
type Match struct {
	Appid string  `json:"appid"`
	Name  string  `json:"name"`
	Score float64 `json:"search_score"`
}

type Options struct {
	// BaseUrl overrides the Steam Web API root, mainly for tests.
	BaseUrl string
}

// Searcher caches the Steam app list and matches names against it.
// Safe for concurrent use; a refresh blocks searches until it is done.
type Searcher struct {
	http *resty.Client
	tel  telemetry.API

	mu    sync.Mutex
	apps  []appEntry
	names []string
}

type appEntry struct {
	Appid int64  `json:"appid"`
	Name  string `json:"name"`
}

func New(tel telemetry.API, opts Options) *Searcher {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("gamesearch", tel)

	baseUrl := opts.BaseUrl
	if baseUrl == "" {
		baseUrl = "https://api.steampowered.com"
	}

	httpClient := resty.New()
	httpClient.SetBaseURL(baseUrl)
	httpClient.SetTimeout(time.Minute)

	// 2 requests per second at most, bursts are never dropped
	limiter := rate.NewLimiter(2, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return limiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(httpClient, tel)

	return &Searcher{http: httpClient, tel: tel}
}

// Refresh loads the app list. A cached copy is kept unless force is set
// or nothing is cached yet.
func (s *Searcher) Refresh(ctx context.Context, force bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !force && len(s.apps) > 0 {
		return nil
	}

	var payload struct {
		Applist struct {
			Apps []appEntry `json:"apps"`
		} `json:"applist"`
	}
	res, err := s.http.R().SetContext(ctx).SetResult(&payload).Get(applistPath)
	if err != nil {
		return fmt.Errorf("fetching app list: %w", err)
	}
	if res.IsError() {
		return fmt.Errorf("fetching app list: status %s", res.Status())
	}

	apps := payload.Applist.Apps
	names := make([]string, len(apps))
	for i, app := range apps {
		names[i] = textutil.NormalizeName(app.Name)
	}
	s.apps = apps
	s.names = names
	s.tel.ReportDebug("app list refreshed", len(apps))
	return nil
}

// Search fuzzy-matches name against the cached app list, refreshing it
// first when empty. Hits come back best first, capped at topN (or 5
// when topN is not positive). Equal scores tie-break on name.
func (s *Searcher) Search(ctx context.Context, name string, topN int) ([]Match, error) {
	if err := s.Refresh(ctx, false); err != nil {
		return nil, err
	}
	if topN <= 0 {
		topN = defaultTopN
	}
	query := textutil.NormalizeName(name)

	s.mu.Lock()
	defer s.mu.Unlock()

	matches := []Match{}
	for i, candidate := range s.names {
		score := matchr.JaroWinkler(query, candidate, false) * 100
		if score < scoreCutoff {
			continue
		}
		matches = append(matches, Match{
			Appid: strconv.FormatInt(s.apps[i].Appid, 10),
			Name:  s.apps[i].Name,
			Score: math.Round(score*100) / 100,
		})
	}
	slices.SortStableFunc(matches, func(a, b Match) int {
		if c := cmp.Compare(b.Score, a.Score); c != 0 {
			return c
		}
		return cmp.Compare(a.Name, b.Name)
	})
	if len(matches) > topN {
		matches = matches[:topN]
	}
	return matches, nil
}
