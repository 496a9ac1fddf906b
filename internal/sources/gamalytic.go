package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"gameinsights-backend/internal/fetch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
)

const report_gamalytic_fetch = "gamalytic.fetch"

var gamalyticLabels = NewLabels(
	"steam_appid",
	"name",
	"price",
	"reviews",
	"reviews_steam",
	"followers",
	"average_playtime_h",
	"review_score",
	"tags",
	"genres",
	"features",
	"languages",
	"developers",
	"publishers",
	"release_date",
	"first_release_date",
	"unreleased",
	"early_access",
	"copies_sold",
	"estimated_revenue",
	"total_revenue",
	"owners",
)

// Gamalytic fetches sales and revenue estimates from api.gamalytic.com.
// The free tier allows 500 calls a day.
type Gamalytic struct {
	http   *fetch.Client
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   GamalyticOptions
}

type GamalyticOptions struct {
	// BaseUrl overrides the API root, mainly for tests.
	BaseUrl string

	// ApiKey raises the daily quota. Sent as the api-key header when
	// set.
	ApiKey string

	Calls  int
	Period time.Duration
}

func (o GamalyticOptions) withDefaults() GamalyticOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = "https://api.gamalytic.com"
	}
	if o.Calls <= 0 {
		o.Calls = 500
	}
	if o.Period <= 0 {
		o.Period = 24 * time.Hour
	}
	return o
}

func NewGamalytic(limits *ratelimit.Registry, tel telemetry.API, opts GamalyticOptions) *Gamalytic {
	tel = telemetry.NewScopedAPI("sources", tel)
	opts = opts.withDefaults()
	return &Gamalytic{
		http:   fetch.NewClient(fetch.ClientOptions{BaseUrl: opts.BaseUrl}, tel),
		tel:    tel,
		limits: limits,
		opts:   opts,
	}
}

func (g *Gamalytic) Name() string { return "gamalytic" }

func (g *Gamalytic) ValidLabels() []string { return gamalyticLabels.All() }

func (g *Gamalytic) Fetch(ctx context.Context, appid string, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	if err := g.limits.Acquire(ctx, g.Name(), g.opts.Calls, g.opts.Period); err != nil {
		return Failure(err.Error())
	}
	g.tel.ReportDebug("fetching game stats", appid)

	req := fetch.Request{}
	if g.opts.ApiKey != "" {
		req.Headers = map[string]string{"api-key": g.opts.ApiKey}
	}
	out := g.http.Get(ctx, "/game/"+appid, req)
	if !out.OK() {
		return failure(g.tel, report_gamalytic_fetch, "Failed to connect to API: %s.", out.Reason())
	}
	resp := out.Response()
	switch {
	case resp.StatusCode() == http.StatusNotFound:
		return failure(g.tel, report_gamalytic_fetch, "Game with appid %s is not found.", appid)
	case resp.StatusCode() != http.StatusOK:
		return failure(g.tel, report_gamalytic_fetch,
			"Failed to connect to API. Status code: %d", resp.StatusCode())
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return failure(g.tel, report_gamalytic_fetch, "Failed to parse API response: %s.", err)
	}

	full := transformGamalytic(payload)
	return Success(projectData(full, gamalyticLabels.Project(g.tel, cfg.labels)))
}

func transformGamalytic(data map[string]any) map[string]any {
	// steamId arrives as a number, downstream keys records by the
	// string form.
	var steamId any
	if v, ok := data["steamId"]; ok && v != nil {
		steamId = stringifyId(v)
	}

	return map[string]any{
		"steam_appid":        steamId,
		"name":               data["name"],
		"price":              data["price"],
		"reviews":            data["reviews"],
		"reviews_steam":      data["reviewsSteam"],
		"followers":          data["followers"],
		"average_playtime_h": data["avgPlaytime"],
		"review_score":       data["reviewScore"],
		"tags":               data["tags"],
		"genres":             data["genres"],
		"features":           data["features"],
		"languages":          data["languages"],
		"developers":         data["developers"],
		"publishers":         data["publishers"],
		"release_date":       data["releaseDate"],
		"first_release_date": data["firstReleaseDate"],
		"unreleased":         data["unreleased"],
		"early_access":       data["earlyAccess"],
		"copies_sold":        data["copiesSold"],
		"estimated_revenue":  data["revenue"],
		"total_revenue":      data["totalRevenue"],
		"owners":             data["owners"],
	}
}
