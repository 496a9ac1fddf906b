package sources

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strconv"
	"time"

	"gameinsights-backend/internal/fetch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
)

const (
	report_steamachievements_fetch  = "steamachievements.fetch"
	report_steamachievements_schema = "steamachievements.schema"

	achievementPercentagesPath = "/ISteamUserStats/GetGlobalAchievementPercentagesForApp/v0002"
	achievementSchemaPath      = "/ISteamUserStats/GetSchemaForGame/v2"
)

var steamachievementsLabels = NewLabels(
	"achievements_count",
	"achievements_percentage_average",
	"achievements_list",
)

// SteamAchievements fetches global unlock percentages, and with an API
// key enriches them with names and descriptions from the game schema.
// Without a key the list carries bare name/percent pairs.
type SteamAchievements struct {
	http   *fetch.Client
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   SteamAchievementsOptions
}

type SteamAchievementsOptions struct {
	// BaseUrl overrides the Steam Web API root, mainly for tests.
	BaseUrl string

	// ApiKey unlocks the schema lookup. Optional.
	ApiKey string

	Calls  int
	Period time.Duration
}

func (o SteamAchievementsOptions) withDefaults() SteamAchievementsOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = "https://api.steampowered.com"
	}
	if o.Calls <= 0 {
		o.Calls = 100000
	}
	if o.Period <= 0 {
		o.Period = 24 * time.Hour
	}
	return o
}

func NewSteamAchievements(limits *ratelimit.Registry, tel telemetry.API, opts SteamAchievementsOptions) *SteamAchievements {
	tel = telemetry.NewScopedAPI("sources", tel)
	opts = opts.withDefaults()
	return &SteamAchievements{
		http:   fetch.NewClient(fetch.ClientOptions{BaseUrl: opts.BaseUrl}, tel),
		tel:    tel,
		limits: limits,
		opts:   opts,
	}
}

func (s *SteamAchievements) Name() string { return "steamachievements" }

func (s *SteamAchievements) ValidLabels() []string { return steamachievementsLabels.All() }

func (s *SteamAchievements) Fetch(ctx context.Context, appid string, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	if err := s.limits.Acquire(ctx, s.Name(), s.opts.Calls, s.opts.Period); err != nil {
		return Failure(err.Error())
	}
	if s.opts.ApiKey == "" {
		s.tel.ReportWarning(report_steamachievements_fetch,
			"API Key is not assigned. Some details will not be included.")
	}
	s.tel.ReportDebug("fetching achievement percentages", appid)

	out := s.http.Get(ctx, achievementPercentagesPath, fetch.Request{Query: map[string]string{
		"gameid": appid,
	}})
	if !out.OK() {
		return failure(s.tel, report_steamachievements_fetch, "Failed to connect to API: %s.", out.Reason())
	}
	resp := out.Response()
	if resp.StatusCode() != http.StatusOK {
		return failure(s.tel, report_steamachievements_fetch,
			"Failed to connect to API. Status code: %d.", resp.StatusCode())
	}
	var percentages map[string]any
	if err := json.Unmarshal(resp.Body(), &percentages); err != nil {
		return failure(s.tel, report_steamachievements_fetch, "Failed to parse API response: %s.", err)
	}

	var schema map[string]any
	if s.opts.ApiKey != "" {
		var res Result
		schema, res = s.fetchSchema(ctx, appid)
		if !res.OK {
			return res
		}
	}

	full := transformAchievements(percentages, schema)
	return Success(projectData(full, steamachievementsLabels.Project(s.tel, cfg.labels)))
}

func (s *SteamAchievements) fetchSchema(ctx context.Context, appid string) (map[string]any, Result) {
	out := s.http.Get(ctx, achievementSchemaPath, fetch.Request{Query: map[string]string{
		"appid": appid,
		"key":   s.opts.ApiKey,
	}})
	if !out.OK() {
		return nil, failure(s.tel, report_steamachievements_schema, "Failed to connect to API: %s.", out.Reason())
	}
	resp := out.Response()
	switch {
	case resp.StatusCode() == http.StatusForbidden:
		return nil, failure(s.tel, report_steamachievements_schema,
			"Access denied, verify your API Key. Status code: %d.", resp.StatusCode())
	case resp.StatusCode() >= http.StatusBadRequest:
		return nil, failure(s.tel, report_steamachievements_schema,
			"Failed to connect to API. Status code: %d.", resp.StatusCode())
	}

	var payload map[string]any
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, failure(s.tel, report_steamachievements_schema, "Failed to parse API response: %s.", err)
	}
	return payload, Result{OK: true}
}

// transformAchievements computes the count and average over the valid
// percentage entries. A game with no achievements at all turns into
// three nils, which still counts as a successful fetch.
func transformAchievements(percentages, schema map[string]any) map[string]any {
	entries := asList(asMap(percentages["achievementpercentages"])["achievements"])
	if len(entries) == 0 {
		return map[string]any{
			"achievements_count":              nil,
			"achievements_percentage_average": nil,
			"achievements_list":               nil,
		}
	}

	base := []map[string]any{}
	total := 0.0
	for _, raw := range entries {
		entry := asMap(raw)
		name, hasName := entry["name"]
		percent, ok := parsePercent(entry["percent"])
		if !hasName || !ok {
			continue
		}
		base = append(base, map[string]any{"name": name, "percent": percent})
		total += percent
	}

	count := len(base)
	average := 0.0
	if count > 0 {
		average = math.Round(total/float64(count)*100) / 100
	}

	list := base
	schemaEntries := asList(asMap(asMap(schema["game"])["availableGameStats"])["achievements"])
	if len(schemaEntries) > 0 {
		list = mergeAchievements(base, schemaEntries)
	}

	return map[string]any{
		"achievements_count":              count,
		"achievements_percentage_average": average,
		"achievements_list":               list,
	}
}

// parsePercent accepts the numeric and stringified forms the endpoint
// serves.
func parsePercent(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	}
	return 0, false
}

// mergeAchievements joins percentage entries with schema info by
// achievement name. Schema entries without a name or display name are
// skipped, base entries without schema info keep nil details.
func mergeAchievements(base []map[string]any, schemaEntries []any) []map[string]any {
	lookup := map[string]map[string]any{}
	for _, raw := range schemaEntries {
		entry := asMap(raw)
		name, _ := asString(entry["name"])
		displayName, _ := asString(entry["displayName"])
		if name == "" || displayName == "" {
			continue
		}
		lookup[name] = map[string]any{
			"display_name": displayName,
			"hidden":       entry["hidden"],
			"description":  entry["description"],
		}
	}

	merged := make([]map[string]any, 0, len(base))
	for _, acv := range base {
		name, _ := asString(acv["name"])
		info := lookup[name]
		merged = append(merged, map[string]any{
			"name":         acv["name"],
			"percent":      acv["percent"],
			"display_name": info["display_name"],
			"hidden":       info["hidden"],
			"description":  info["description"],
		})
	}
	return merged
}
