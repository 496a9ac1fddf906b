package sources

import (
	"cmp"
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"gameinsights-backend/internal/fetch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
)

const report_steamspy_fetch = "steamspy.fetch"

var steamspyLabels = NewLabels(
	"steam_appid",
	"name",
	"developers",
	"publishers",
	"positive_reviews",
	"negative_reviews",
	"owners",
	"average_forever",
	"average_2weeks",
	"median_forever",
	"median_2weeks",
	"price",
	"initial_price",
	"discount",
	"ccu",
	"languages",
	"genres",
	"tags",
)

// SteamSpy fetches ownership and playtime estimates from steamspy.com.
type SteamSpy struct {
	http   *fetch.Client
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   SteamSpyOptions
}

type SteamSpyOptions struct {
	// BaseUrl overrides the api.php endpoint, mainly for tests.
	BaseUrl string

	Calls  int
	Period time.Duration
}

func (o SteamSpyOptions) withDefaults() SteamSpyOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = "https://steamspy.com/api.php"
	}
	if o.Calls <= 0 {
		o.Calls = 60
	}
	if o.Period <= 0 {
		o.Period = time.Minute
	}
	return o
}

func NewSteamSpy(limits *ratelimit.Registry, tel telemetry.API, opts SteamSpyOptions) *SteamSpy {
	tel = telemetry.NewScopedAPI("sources", tel)
	opts = opts.withDefaults()
	return &SteamSpy{
		http:   fetch.NewClient(fetch.ClientOptions{BaseUrl: opts.BaseUrl}, tel),
		tel:    tel,
		limits: limits,
		opts:   opts,
	}
}

func (s *SteamSpy) Name() string { return "steamspy" }

func (s *SteamSpy) ValidLabels() []string { return steamspyLabels.All() }

func (s *SteamSpy) Fetch(ctx context.Context, appid string, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	if err := s.limits.Acquire(ctx, s.Name(), s.opts.Calls, s.opts.Period); err != nil {
		return Failure(err.Error())
	}
	s.tel.ReportDebug("fetching appdetails", appid)

	out := s.http.Get(ctx, "", fetch.Request{Query: map[string]string{
		"request": "appdetails",
		"appid":   appid,
	}})
	if !out.OK() {
		return failure(s.tel, report_steamspy_fetch, "Failed to connect to API: %s.", out.Reason())
	}
	resp := out.Response()
	if resp.StatusCode() != http.StatusOK {
		return failure(s.tel, report_steamspy_fetch,
			"Failed to connect to API. Status code: %d", resp.StatusCode())
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return failure(s.tel, report_steamspy_fetch, "Failed to parse API response: %s.", err)
	}
	// SteamSpy answers unknown appids with a 200 and an empty name.
	if name, _ := asString(payload["name"]); name == "" {
		return failure(s.tel, report_steamspy_fetch, "Game with appid %s is not found.", appid)
	}

	full := transformSteamSpy(payload)
	return Success(projectData(full, steamspyLabels.Project(s.tel, cfg.labels)))
}

func transformSteamSpy(data map[string]any) map[string]any {
	tags := []string{}
	if raw, ok := data["tags"].(map[string]any); ok {
		tags = make([]string, 0, len(raw))
		for tag := range raw {
			tags = append(tags, tag)
		}
		// SteamSpy serves tags ordered by vote count. A decoded JSON
		// map loses that order, so rebuild it, ties break by name.
		slices.SortFunc(tags, func(a, b string) int {
			va, _ := asFloat64(raw[a])
			vb, _ := asFloat64(raw[b])
			if va != vb {
				return cmp.Compare(vb, va)
			}
			return cmp.Compare(a, b)
		})
	}

	return map[string]any{
		"steam_appid":      data["appid"],
		"name":             data["name"],
		"developers":       data["developer"],
		"publishers":       data["publisher"],
		"positive_reviews": data["positive"],
		"negative_reviews": data["negative"],
		"owners":           data["owners"],
		"average_forever":  data["average_forever"],
		"average_2weeks":   data["average_2weeks"],
		"median_forever":   data["median_forever"],
		"median_2weeks":    data["median_2weeks"],
		"price":            data["price"],
		"initial_price":    data["initialprice"],
		"discount":         data["discount"],
		"ccu":              data["ccu"],
		"languages":        data["languages"],
		"genres":           data["genre"],
		"tags":             tags,
	}
}
