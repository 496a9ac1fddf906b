package sources

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"gameinsights-backend/internal/fetch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
)

const report_steamreview_fetch = "steamreview.fetch"

var steamreviewSummaryLabels = NewLabels(
	"review_score",
	"review_score_desc",
	"total_positive",
	"total_negative",
	"total_reviews",
)

var steamreviewReviewLabels = NewLabels(
	"recommendation_id",
	"author_steamid",
	"author_num_games_owned",
	"author_num_reviews",
	"author_playtime_forever",
	"author_playtime_last_two_weeks",
	"author_playtime_at_review",
	"author_last_played",
	"language",
	"review",
	"timestamp_created",
	"timestamp_updated",
	"voted_up",
	"votes_up",
	"votes_funny",
	"weighted_vote_score",
	"comment_count",
	"steam_purchase",
	"received_for_free",
	"written_during_early_access",
	"primarily_steam_deck",
)

// SteamReview fetches the appreviews endpoint. Fetch returns the review
// score summary, FetchReviews walks the cursor-paginated review stream.
// Every page counts against the rate budget.
type SteamReview struct {
	http   *fetch.Client
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   SteamReviewOptions
}

type SteamReviewOptions struct {
	// BaseUrl overrides the appreviews endpoint, mainly for tests.
	BaseUrl string

	Calls  int
	Period time.Duration
}

func (o SteamReviewOptions) withDefaults() SteamReviewOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = "https://store.steampowered.com/appreviews"
	}
	if o.Calls <= 0 {
		o.Calls = 100000
	}
	if o.Period <= 0 {
		o.Period = 24 * time.Hour
	}
	return o
}

// ReviewQuery selects which reviews a call walks. Zero values mean the
// recent filter across all languages, review types and purchase types,
// 100 reviews a page.
type ReviewQuery struct {
	Filter       string
	Language     string
	ReviewType   string
	PurchaseType string
	NumPerPage   int
}

func (q ReviewQuery) withDefaults() ReviewQuery {
	if q.Filter == "" {
		q.Filter = "recent"
	}
	if q.Language == "" {
		q.Language = "all"
	}
	if q.ReviewType == "" {
		q.ReviewType = "all"
	}
	if q.PurchaseType == "" {
		q.PurchaseType = "all"
	}
	if q.NumPerPage <= 0 {
		q.NumPerPage = 100
	}
	return q
}

func NewSteamReview(limits *ratelimit.Registry, tel telemetry.API, opts SteamReviewOptions) *SteamReview {
	tel = telemetry.NewScopedAPI("sources", tel)
	opts = opts.withDefaults()
	return &SteamReview{
		http:   fetch.NewClient(fetch.ClientOptions{BaseUrl: opts.BaseUrl}, tel),
		tel:    tel,
		limits: limits,
		opts:   opts,
	}
}

func (s *SteamReview) Name() string { return "steamreview" }

func (s *SteamReview) ValidLabels() []string { return steamreviewSummaryLabels.All() }

// ReviewLabels is the per-review vocabulary FetchReviews projects.
func (s *SteamReview) ReviewLabels() []string { return steamreviewReviewLabels.All() }

func (s *SteamReview) Fetch(ctx context.Context, appid string, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	s.tel.ReportDebug("fetching review summary", appid)

	page, res := s.fetchPage(ctx, appid, ReviewQuery{}.withDefaults(), "*")
	if !res.OK {
		return res
	}

	full := transformReviewSummary(asMap(page["query_summary"]))
	return Success(projectData(full, steamreviewSummaryLabels.Project(s.tel, cfg.labels)))
}

// FetchReviews collects every review page under data["reviews"], each
// review projected down to the selected review labels. The walk stops
// when a page hands back the cursor it was asked for.
func (s *SteamReview) FetchReviews(ctx context.Context, appid string, q ReviewQuery, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	q = q.withDefaults()
	labels := steamreviewReviewLabels.Project(s.tel, cfg.labels)
	s.tel.ReportDebug("fetching reviews", appid, q.Filter, q.Language)

	cursor := "*"
	reviews := []map[string]any{}
	for {
		page, res := s.fetchPage(ctx, appid, q, cursor)
		if !res.OK {
			return res
		}

		for _, raw := range asList(page["reviews"]) {
			review, ok := raw.(map[string]any)
			if !ok {
				continue
			}
			reviews = append(reviews, projectData(transformReview(review), labels))
		}

		next, _ := asString(page["cursor"])
		if next == cursor {
			break
		}
		cursor = next
	}

	return Success(map[string]any{"reviews": reviews})
}

// fetchPage gets one page and validates the response envelope.
func (s *SteamReview) fetchPage(ctx context.Context, appid string, q ReviewQuery, cursor string) (map[string]any, Result) {
	if err := s.limits.Acquire(ctx, s.Name(), s.opts.Calls, s.opts.Period); err != nil {
		return nil, Failure(err.Error())
	}

	out := s.http.Get(ctx, "/"+appid, fetch.Request{Query: map[string]string{
		"filter":        q.Filter,
		"language":      q.Language,
		"review_type":   q.ReviewType,
		"purchase_type": q.PurchaseType,
		"num_per_page":  strconv.Itoa(q.NumPerPage),
		"cursor":        cursor,
		"json":          "1",
	}})
	if !out.OK() {
		return nil, failure(s.tel, report_steamreview_fetch, "Failed to connect to API: %s.", out.Reason())
	}

	var payload map[string]any
	if err := json.Unmarshal(out.Response().Body(), &payload); err != nil {
		return nil, failure(s.tel, report_steamreview_fetch, "Failed to parse API response: %s.", err)
	}
	if n, _ := asFloat64(payload["success"]); n != 1 {
		return nil, failure(s.tel, report_steamreview_fetch,
			"API request failed for game with appid %s.", appid)
	}
	if payload["cursor"] == nil {
		return nil, failure(s.tel, report_steamreview_fetch,
			"Game with appid %s is not found, or error on the request's cursor.", appid)
	}
	return payload, Result{OK: true}
}

func transformReviewSummary(data map[string]any) map[string]any {
	return map[string]any{
		"review_score":      data["review_score"],
		"review_score_desc": data["review_score_desc"],
		"total_positive":    data["total_positive"],
		"total_negative":    data["total_negative"],
		"total_reviews":     data["total_reviews"],
	}
}

func transformReview(data map[string]any) map[string]any {
	author := asMap(data["author"])
	return map[string]any{
		"recommendation_id":              data["recommendationid"],
		"author_steamid":                 author["steamid"],
		"author_num_games_owned":         author["num_games_owned"],
		"author_num_reviews":             author["num_reviews"],
		"author_playtime_forever":        author["playtime_forever"],
		"author_playtime_last_two_weeks": author["playtime_last_two_weeks"],
		"author_playtime_at_review":      author["playtime_at_review"],
		"author_last_played":             author["last_played"],
		"language":                       data["language"],
		"review":                         data["review"],
		"timestamp_created":              data["timestamp_created"],
		"timestamp_updated":              data["timestamp_updated"],
		"voted_up":                       data["voted_up"],
		"votes_up":                       data["votes_up"],
		"votes_funny":                    data["votes_funny"],
		"weighted_vote_score":            data["weighted_vote_score"],
		"comment_count":                  data["comment_count"],
		"steam_purchase":                 data["steam_purchase"],
		"received_for_free":              data["received_for_free"],
		"written_during_early_access":    data["written_during_early_access"],
		"primarily_steam_deck":           data["primarily_steam_deck"],
	}
}
