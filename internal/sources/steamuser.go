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

const (
	report_steamuser_fetch = "steamuser.fetch"

	playerSummariesPath     = "/ISteamUser/GetPlayerSummaries/v0002"
	ownedGamesPath          = "/IPlayerService/GetOwnedGames/v0001"
	recentlyPlayedGamesPath = "/IPlayerService/GetRecentlyPlayedGames/v0001"
)

// Steam only exposes a profile's game lists when its visibility is
// public.
const (
	visibilityPrivate = 1
	visibilityPublic  = 3
)

var steamuserLabels = NewLabels(
	"steamid",
	"community_visibility_state",
	"profile_state",
	"persona_name",
	"profile_url",
	"last_log_off",
	"real_name",
	"time_created",
	"loc_country_code",
	"loc_state_code",
	"loc_city_id",
	"owned_games",
	"recently_played_games",
)

// SteamUser fetches a player profile from the Steam Web API, keyed by
// 64-bit steamid instead of appid. Every endpoint it calls needs an
// API key.
type SteamUser struct {
	http   *fetch.Client
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   SteamUserOptions
}

type SteamUserOptions struct {
	// BaseUrl overrides the Steam Web API root, mainly for tests.
	BaseUrl string

	// ApiKey authenticates the profile endpoints. Required.
	ApiKey string

	Calls  int
	Period time.Duration
}

func (o SteamUserOptions) withDefaults() SteamUserOptions {
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

func NewSteamUser(limits *ratelimit.Registry, tel telemetry.API, opts SteamUserOptions) *SteamUser {
	tel = telemetry.NewScopedAPI("sources", tel)
	opts = opts.withDefaults()
	return &SteamUser{
		http:   fetch.NewClient(fetch.ClientOptions{BaseUrl: opts.BaseUrl}, tel),
		tel:    tel,
		limits: limits,
		opts:   opts,
	}
}

func (s *SteamUser) Name() string { return "steamuser" }

func (s *SteamUser) ValidLabels() []string { return steamuserLabels.All() }

// Fetch retrieves the profile summary for one steamid. Public profiles
// additionally get their owned and recently played games, unless the
// label selection skips those. A game-list call that fails leaves an
// empty map in its place instead of failing the whole profile.
func (s *SteamUser) Fetch(ctx context.Context, steamid string, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	if s.opts.ApiKey == "" {
		return failure(s.tel, report_steamuser_fetch, "API Key is not assigned. Unable to fetch data.")
	}
	if err := s.limits.Acquire(ctx, s.Name(), s.opts.Calls, s.opts.Period); err != nil {
		return Failure(err.Error())
	}
	s.tel.ReportDebug("fetching user data", steamid)

	data, res := s.fetchSummary(ctx, steamid)
	if !res.OK {
		return res
	}
	data["owned_games"] = map[string]any{}
	data["recently_played_games"] = map[string]any{}

	labels := steamuserLabels.Project(s.tel, cfg.labels)
	if visibility, ok := asInt64(data["community_visibility_state"]); ok && visibility == visibilityPublic {
		if slices.Contains(labels, "owned_games") {
			if owned, out := s.fetchOwnedGames(ctx, steamid, cfg.freeGames); out.OK {
				data["owned_games"] = owned
			}
		}
		if slices.Contains(labels, "recently_played_games") {
			if recent, out := s.fetchRecentlyPlayedGames(ctx, steamid); out.OK {
				data["recently_played_games"] = recent
			}
		}
	}

	return Success(projectData(data, labels))
}

func (s *SteamUser) fetchSummary(ctx context.Context, steamid string) (map[string]any, Result) {
	out := s.http.Get(ctx, playerSummariesPath, fetch.Request{Query: map[string]string{
		"key":      s.opts.ApiKey,
		"steamids": steamid,
	}})
	if !out.OK() {
		return nil, failure(s.tel, report_steamuser_fetch, "Failed to connect to API: %s.", out.Reason())
	}
	resp := out.Response()
	switch {
	case resp.StatusCode() == http.StatusForbidden:
		return nil, failure(s.tel, report_steamuser_fetch,
			"Permission denied, please assign correct API Key. (status code %d).", resp.StatusCode())
	case resp.StatusCode() >= http.StatusBadRequest:
		return nil, failure(s.tel, report_steamuser_fetch,
			"API Request failed with status %d.", resp.StatusCode())
	}

	var payload struct {
		Response struct {
			Players []map[string]any `json:"players"`
		} `json:"response"`
	}
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, failure(s.tel, report_steamuser_fetch, "Failed to parse API response: %s.", err)
	}
	if len(payload.Response.Players) == 0 {
		return nil, failure(s.tel, report_steamuser_fetch, "steamid %s not found.", steamid)
	}
	return transformUserSummary(payload.Response.Players[0]), Result{OK: true}
}

func (s *SteamUser) fetchOwnedGames(ctx context.Context, steamid string, includeFree bool) (map[string]any, Result) {
	includeFreeFlag := "0"
	if includeFree {
		includeFreeFlag = "1"
	}
	out := s.http.Get(ctx, ownedGamesPath, fetch.Request{Query: map[string]string{
		"steamid":                   steamid,
		"key":                       s.opts.ApiKey,
		"include_played_free_games": includeFreeFlag,
		"include_appinfo":           "1",
	}})
	var payload map[string]any
	if !out.OK() || out.Response().StatusCode() >= http.StatusBadRequest ||
		json.Unmarshal(out.Response().Body(), &payload) != nil {
		return nil, failure(s.tel, report_steamuser_fetch, "Failed to fetch owned games for steamid %s.", steamid)
	}

	resp := asMap(payload["response"])
	games, ok := resp["games"].([]any)
	if !ok {
		games = []any{}
	}
	return map[string]any{
		"game_count": valueOr(resp, "game_count", int64(0)),
		"games":      games,
	}, Result{OK: true}
}

// fetchRecentlyPlayedGames trims each game entry down to its identity
// and playtime fields and sums the two-week playtime across them.
func (s *SteamUser) fetchRecentlyPlayedGames(ctx context.Context, steamid string) (map[string]any, Result) {
	out := s.http.Get(ctx, recentlyPlayedGamesPath, fetch.Request{Query: map[string]string{
		"steamid": steamid,
		"key":     s.opts.ApiKey,
	}})
	var payload map[string]any
	if !out.OK() || out.Response().StatusCode() >= http.StatusBadRequest ||
		json.Unmarshal(out.Response().Body(), &payload) != nil {
		return nil, failure(s.tel, report_steamuser_fetch,
			"Failed to fetch recently played games for steamid %s.", steamid)
	}

	resp := asMap(payload["response"])
	games := []map[string]any{}
	var totalPlaytime int64
	for _, raw := range asList(resp["games"]) {
		game := asMap(raw)
		if playtime, ok := asInt64(game["playtime_2weeks"]); ok {
			totalPlaytime += playtime
		}
		games = append(games, map[string]any{
			"appid":            game["appid"],
			"name":             game["name"],
			"playtime_2weeks":  valueOr(game, "playtime_2weeks", int64(0)),
			"playtime_forever": valueOr(game, "playtime_forever", int64(0)),
		})
	}
	return map[string]any{
		"games_count":           valueOr(resp, "total_count", int64(0)),
		"total_playtime_2weeks": totalPlaytime,
		"games":                 games,
	}, Result{OK: true}
}

// transformUserSummary flattens the first player entry into the
// snake_case summary labels. Missing profile fields stay nil, except
// the visibility state which defaults to private.
func transformUserSummary(player map[string]any) map[string]any {
	return map[string]any{
		"steamid":                    player["steamid"],
		"community_visibility_state": valueOr(player, "communityvisibilitystate", int64(visibilityPrivate)),
		"profile_state":              player["profilestate"],
		"persona_name":               player["personaname"],
		"profile_url":                player["profileurl"],
		"last_log_off":               player["lastlogoff"],
		"real_name":                  player["realname"],
		"time_created":               player["timecreated"],
		"loc_country_code":           player["loccountrycode"],
		"loc_state_code":             player["locstatecode"],
		"loc_city_id":                player["loccityid"],
	}
}

// valueOr mirrors a map lookup with a fallback for absent keys.
func valueOr(m map[string]any, key string, def any) any {
	if v, ok := m[key]; ok {
		return v
	}
	return def
}
