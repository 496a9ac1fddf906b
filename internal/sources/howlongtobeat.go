package sources

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gameinsights-backend/internal/fetch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
)

const (
	report_howlongtobeat_fetch    = "howlongtobeat.fetch"
	report_howlongtobeat_discover = "howlongtobeat.discover"

	hltbDefaultSearchPath = "api/s/"
)

var howlongtobeatLabels = NewLabels(
	"game_id",
	"game_name",
	"game_type",
	"comp_main",
	"comp_plus",
	"comp_100",
	"comp_all",
	"comp_main_count",
	"comp_plus_count",
	"comp_100_count",
	"comp_all_count",
	"invested_co",
	"invested_mp",
	"invested_co_count",
	"invested_mp_count",
	"count_comp",
	"count_speedrun",
	"count_backlog",
	"count_review",
	"review_score",
	"count_playing",
	"count_retired",
)

// The search endpoint and its key rotate with every deploy of the site,
// so both are scraped out of the landing page's bundled scripts. The
// key either sits in a users:{id:"..."} literal or is assembled from
// .concat() fragments, and the matching fetch() call names the path.
var (
	hltbUserIdPattern    = regexp.MustCompile(`users\s*:\s*\{\s*id\s*:\s*"([^"]+)"`)
	hltbConcatKeyPattern = regexp.MustCompile(`/api/\w+/"(?:\.concat\("[^"]*"\))*`)
	hltbConcatArgPattern = regexp.MustCompile(`\.concat\(\s*["']([^"']*)["']\s*\)`)
	hltbFetchCallPattern = regexp.MustCompile(`fetch\(\s*["'](/api/[^"']*)["']((?:\s*\.concat\(\s*["']([^"']*)["']\s*\))+)\s*,`)
)

// HowLongToBeat fetches completion times by scraping the site's search
// API. Unlike the Steam providers it is keyed by game name, not appid.
type HowLongToBeat struct {
	http   *fetch.Client
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   HowLongToBeatOptions

	mu       sync.Mutex
	endpoint *hltbEndpoint
}

// hltbEndpoint is a discovered search endpoint: the path to POST to and
// the rotating key the site embeds in its scripts.
type hltbEndpoint struct {
	apiKey string
	path   string
}

type HowLongToBeatOptions struct {
	// BaseUrl overrides the site root, mainly for tests.
	BaseUrl string

	Calls  int
	Period time.Duration
}

func (o HowLongToBeatOptions) withDefaults() HowLongToBeatOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = "https://howlongtobeat.com"
	}
	if o.Calls <= 0 {
		o.Calls = 60
	}
	if o.Period <= 0 {
		o.Period = time.Minute
	}
	return o
}

func NewHowLongToBeat(limits *ratelimit.Registry, tel telemetry.API, opts HowLongToBeatOptions) *HowLongToBeat {
	tel = telemetry.NewScopedAPI("sources", tel)
	opts = opts.withDefaults()
	return &HowLongToBeat{
		http: fetch.NewClient(fetch.ClientOptions{
			BaseUrl: opts.BaseUrl,
			Timeout: time.Minute,
			Scrape:  true,
		}, tel),
		tel:    tel,
		limits: limits,
		opts:   opts,
	}
}

func (s *HowLongToBeat) Name() string { return "howlongtobeat" }

func (s *HowLongToBeat) ValidLabels() []string { return howlongtobeatLabels.All() }

// Fetch searches for the game by name and returns the completion times
// of the best match.
func (s *HowLongToBeat) Fetch(ctx context.Context, gameName string, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	if err := s.limits.Acquire(ctx, s.Name(), s.opts.Calls, s.opts.Period); err != nil {
		return Failure(err.Error())
	}
	s.tel.ReportDebug("fetching completion times", gameName)

	body, res := s.search(ctx, gameName, 1)
	if !res.OK {
		return res
	}

	var raw any
	if err := json.Unmarshal(body, &raw); err != nil {
		return failure(s.tel, report_howlongtobeat_fetch, "Failed to parse search response.")
	}
	payload, ok := raw.(map[string]any)
	if !ok {
		return failure(s.tel, report_howlongtobeat_fetch, "Unexpected search response format.")
	}

	count, _ := asInt64(payload["count"])
	entries := asList(payload["data"])
	if count == 0 || len(entries) == 0 {
		return failure(s.tel, report_howlongtobeat_fetch, "Game is not found.")
	}

	return Success(projectData(asMap(entries[0]), howlongtobeatLabels.Project(s.tel, cfg.labels)))
}

// search POSTs the search payload, first to the endpoint path with the
// key appended, then with the key moved into the payload when the site
// rejects the first form.
func (s *HowLongToBeat) search(ctx context.Context, gameName string, page int) ([]byte, Result) {
	endpoint, ok := s.searchEndpoint(ctx)
	if !ok {
		return nil, failure(s.tel, report_howlongtobeat_fetch, "Missing HowLongToBeat API key.")
	}

	req := fetch.Request{Headers: map[string]string{
		"Accept":  "*/*",
		"Referer": s.opts.BaseUrl + "/",
	}}

	withKey := s.http.PostJson(ctx, endpoint.path+endpoint.apiKey, hltbSearchPayload(gameName, page, ""), req)
	if withKey.OK() && withKey.Response().StatusCode() == http.StatusOK {
		return s.searchBody(withKey)
	}

	withPayload := s.http.PostJson(ctx, endpoint.path, hltbSearchPayload(gameName, page, endpoint.apiKey), req)
	if withPayload.OK() && withPayload.Response().StatusCode() == http.StatusOK {
		return s.searchBody(withPayload)
	}

	if !withKey.OK() || !withPayload.OK() {
		return nil, failure(s.tel, report_howlongtobeat_fetch, "Failed to fetch data.")
	}
	return nil, failure(s.tel, report_howlongtobeat_fetch,
		"Failed to fetch HowLongToBeat data: status %d with key, status %d with payload.",
		withKey.Response().StatusCode(), withPayload.Response().StatusCode())
}

func (s *HowLongToBeat) searchBody(out fetch.Outcome) ([]byte, Result) {
	body := out.Response().Body()
	if len(body) == 0 {
		return nil, failure(s.tel, report_howlongtobeat_fetch, "Failed to fetch data.")
	}
	return body, Result{OK: true}
}

// searchEndpoint returns the cached endpoint, running discovery on
// first use. A failed discovery is not cached, so the next fetch tries
// again.
func (s *HowLongToBeat) searchEndpoint(ctx context.Context) (hltbEndpoint, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.endpoint != nil {
		return *s.endpoint, true
	}

	endpoint := s.discoverEndpoint(ctx)
	if endpoint.apiKey == "" {
		return hltbEndpoint{}, false
	}
	if endpoint.path == "" {
		endpoint.path = hltbDefaultSearchPath
	}
	s.tel.ReportDebug("discovered search endpoint", endpoint.path)
	s.endpoint = &endpoint
	return endpoint, true
}

// discoverEndpoint scrapes the landing page for bundled scripts and
// scans them for the search key, trying the "_app-" bundles before the
// rest.
func (s *HowLongToBeat) discoverEndpoint(ctx context.Context) hltbEndpoint {
	out := s.http.Get(ctx, "", fetch.Request{Headers: map[string]string{"Referer": s.opts.BaseUrl + "/"}})
	if !out.OK() || out.Response().StatusCode() != http.StatusOK {
		s.tel.ReportWarning(report_howlongtobeat_discover, "failed to load landing page")
		return hltbEndpoint{}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(out.Response().Body()))
	if err != nil {
		s.tel.ReportWarning(report_howlongtobeat_discover, "failed to parse landing page", err)
		return hltbEndpoint{}
	}

	var appScripts, otherScripts []string
	doc.Find("script[src]").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		if src == "" {
			return
		}
		if strings.Contains(src, "_app-") {
			appScripts = append(appScripts, src)
		} else {
			otherScripts = append(otherScripts, src)
		}
	})

	endpoint := s.scanScripts(ctx, appScripts)
	if endpoint.apiKey == "" {
		endpoint = s.scanScripts(ctx, otherScripts)
	}
	return endpoint
}

func (s *HowLongToBeat) scanScripts(ctx context.Context, srcs []string) hltbEndpoint {
	for _, src := range srcs {
		out := s.http.Get(ctx, src, fetch.Request{Headers: map[string]string{"Referer": s.opts.BaseUrl + "/"}})
		if !out.OK() || out.Response().StatusCode() != http.StatusOK {
			continue
		}
		script := string(out.Response().Body())
		key := extractHltbApiKey(script)
		if key == "" {
			continue
		}
		return hltbEndpoint{apiKey: key, path: extractHltbSearchPath(script, key)}
	}
	return hltbEndpoint{}
}

// extractHltbApiKey pulls the search key out of a script, either whole
// from a users:{id:"..."} literal or joined from .concat() fragments.
func extractHltbApiKey(script string) string {
	matches := hltbUserIdPattern.FindAllStringSubmatch(script, -1)
	if len(matches) > 0 {
		var key strings.Builder
		for _, m := range matches {
			key.WriteString(m[1])
		}
		return key.String()
	}

	if m := hltbConcatKeyPattern.FindString(script); m != "" {
		var key strings.Builder
		for _, c := range hltbConcatArgPattern.FindAllStringSubmatch(m, -1) {
			key.WriteString(c[1])
		}
		return key.String()
	}

	return ""
}

// extractHltbSearchPath finds the fetch() call whose concatenated
// fragments spell the api key and returns its endpoint path, without
// the leading slash.
func extractHltbSearchPath(script, apiKey string) string {
	for _, m := range hltbFetchCallPattern.FindAllStringSubmatch(script, -1) {
		var joined strings.Builder
		for _, c := range hltbConcatArgPattern.FindAllStringSubmatch(m[2], -1) {
			joined.WriteString(c[1])
		}
		if joined.String() == apiKey {
			return strings.TrimLeft(m[1], "/")
		}
	}
	return ""
}

func hltbSearchPayload(gameName string, page int, payloadKey string) map[string]any {
	users := map[string]any{"sortCategory": "postcount"}
	if payloadKey != "" {
		users["id"] = payloadKey
	}
	return map[string]any{
		"searchType":  "games",
		"searchTerms": strings.Fields(gameName),
		"searchPage":  page,
		"size":        20,
		"searchOptions": map[string]any{
			"games": map[string]any{
				"userId":        0,
				"platform":      "",
				"sortCategory":  "popular",
				"rangeCategory": "main",
				"rangeTime":     map[string]any{"min": 0, "max": 0},
				"gameplay": map[string]any{
					"perspective": "",
					"flow":        "",
					"genre":       "",
					"difficulty":  "",
				},
				"rangeYear": map[string]any{"min": "", "max": ""},
				"modifier":  "",
			},
			"users":      users,
			"lists":      map[string]any{"sortCategory": "follows"},
			"filter":     "",
			"sort":       0,
			"randomizer": 0,
		},
		"useCache": true,
	}
}
