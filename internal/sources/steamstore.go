package sources

import (
	"context"
	"encoding/json"
	"net/http"
	"slices"
	"time"

	"gameinsights-backend/internal/fetch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
)

const report_steamstore_fetch = "steamstore.fetch"

var steamstoreLabels = NewLabels(
	"steam_appid",
	"name",
	"type",
	"is_free",
	"developers",
	"publishers",
	"price_currency",
	"price_initial",
	"price_final",
	"platforms",
	"categories",
	"genres",
	"metacritic_score",
	"recommendations",
	"achievements",
	"is_coming_soon",
	"release_date",
	"content_rating",
)

// SteamStore fetches storefront app details. The storefront has no
// documented rate limit, 60 calls a minute stays under the unofficial
// throttle.
type SteamStore struct {
	http   *fetch.Client
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   SteamStoreOptions
}

type SteamStoreOptions struct {
	// BaseUrl overrides the appdetails endpoint, mainly for tests.
	BaseUrl string

	// Region and Language select the storefront view. An unknown value
	// makes Steam fall back to the caller's IP region.
	Region   string
	Language string

	Calls  int
	Period time.Duration
}

func (o SteamStoreOptions) withDefaults() SteamStoreOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = "https://store.steampowered.com/api/appdetails"
	}
	if o.Region == "" {
		o.Region = "us"
	}
	if o.Language == "" {
		o.Language = "english"
	}
	if o.Calls <= 0 {
		o.Calls = 60
	}
	if o.Period <= 0 {
		o.Period = time.Minute
	}
	return o
}

func NewSteamStore(limits *ratelimit.Registry, tel telemetry.API, opts SteamStoreOptions) *SteamStore {
	tel = telemetry.NewScopedAPI("sources", tel)
	opts = opts.withDefaults()
	return &SteamStore{
		http:   fetch.NewClient(fetch.ClientOptions{BaseUrl: opts.BaseUrl}, tel),
		tel:    tel,
		limits: limits,
		opts:   opts,
	}
}

func (s *SteamStore) Name() string { return "steamstore" }

func (s *SteamStore) ValidLabels() []string { return steamstoreLabels.All() }

func (s *SteamStore) Fetch(ctx context.Context, appid string, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	if err := s.limits.Acquire(ctx, s.Name(), s.opts.Calls, s.opts.Period); err != nil {
		return Failure(err.Error())
	}
	s.tel.ReportDebug("fetching app details", appid)

	out := s.http.Get(ctx, "", fetch.Request{Query: map[string]string{
		"appids": appid,
		"cc":     s.opts.Region,
		"l":      s.opts.Language,
	}})
	if !out.OK() {
		return failure(s.tel, report_steamstore_fetch, "Failed to connect to API: %s.", out.Reason())
	}
	resp := out.Response()
	if resp.StatusCode() != http.StatusOK {
		return failure(s.tel, report_steamstore_fetch,
			"Failed to connect to API. Status code: %d.", resp.StatusCode())
	}

	var payload map[string]struct {
		Success bool           `json:"success"`
		Data    map[string]any `json:"data"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return failure(s.tel, report_steamstore_fetch, "Failed to parse API response: %s.", err)
	}
	entry, ok := payload[appid]
	if !ok || !entry.Success {
		return failure(s.tel, report_steamstore_fetch,
			"Failed to fetch data for appid %s, or appid is not available in the specified region (%s) or language (%s).",
			appid, s.opts.Region, s.opts.Language)
	}

	full := transformSteamStore(entry.Data)
	return Success(projectData(full, steamstoreLabels.Project(s.tel, cfg.labels)))
}

// transformSteamStore flattens one appdetails payload into the
// vocabulary. Sub-objects Steam omits for unreleased or free games come
// through as nils, and price_overview occasionally arrives as a list,
// which reads the same as absent.
func transformSteamStore(data map[string]any) map[string]any {
	price := asMap(data["price_overview"])
	releaseDate := asMap(data["release_date"])
	platforms := asMap(data["platforms"])
	ratings := asMap(data["ratings"])

	supported := []string{}
	for name, v := range platforms {
		if on, ok := v.(bool); ok && on {
			supported = append(supported, name)
		}
	}
	slices.Sort(supported)

	categories := []any{}
	for _, entry := range asList(data["categories"]) {
		if desc, ok := asMap(entry)["description"]; ok {
			categories = append(categories, desc)
		}
	}
	genres := []any{}
	for _, entry := range asList(data["genres"]) {
		if desc, ok := asMap(entry)["description"]; ok {
			genres = append(genres, desc)
		}
	}

	contentRating := []any{}
	for _, ratingType := range sortedKeys(ratings) {
		contentRating = append(contentRating, map[string]any{
			"rating_type": ratingType,
			"rating":      asMap(ratings[ratingType])["rating"],
		})
	}

	return map[string]any{
		"steam_appid":      data["steam_appid"],
		"name":             data["name"],
		"type":             data["type"],
		"is_free":          data["is_free"],
		"developers":       data["developers"],
		"publishers":       data["publishers"],
		"price_currency":   price["currency"],
		"price_initial":    divideBy100(price["initial"]),
		"price_final":      divideBy100(price["final"]),
		"platforms":        supported,
		"categories":       categories,
		"genres":           genres,
		"metacritic_score": asMap(data["metacritic"])["score"],
		"recommendations":  asMap(data["recommendations"])["total"],
		"achievements":     asMap(data["achievements"])["total"],
		"is_coming_soon":   releaseDate["coming_soon"],
		"release_date":     releaseDate["date"],
		"content_rating":   contentRating,
	}
}
