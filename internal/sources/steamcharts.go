package sources

import (
	"bytes"
	"context"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"

	"gameinsights-backend/internal/fetch"
	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
	"gameinsights-backend/lib/htmlutil"
	"gameinsights-backend/lib/textutil"
)

const (
	report_steamcharts_fetch = "steamcharts.fetch"
	report_steamcharts_row   = "steamcharts.row"
)

var steamchartsLabels = NewLabels(
	"steam_appid",
	"name",
	"active_player_24h",
	"peak_active_player_all_time",
	"monthly_active_player",
)

// SteamCharts scrapes concurrent player history from steamcharts.com.
// The site sits behind Cloudflare, so the client carries the bypass
// transport. 60 calls a minute keeps the scrape polite.
type SteamCharts struct {
	http   *fetch.Client
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   SteamChartsOptions
}

type SteamChartsOptions struct {
	// BaseUrl overrides the site root, mainly for tests.
	BaseUrl string

	Calls  int
	Period time.Duration
}

func (o SteamChartsOptions) withDefaults() SteamChartsOptions {
	if o.BaseUrl == "" {
		o.BaseUrl = "https://steamcharts.com/app"
	}
	if o.Calls <= 0 {
		o.Calls = 60
	}
	if o.Period <= 0 {
		o.Period = time.Minute
	}
	return o
}

func NewSteamCharts(limits *ratelimit.Registry, tel telemetry.API, opts SteamChartsOptions) *SteamCharts {
	tel = telemetry.NewScopedAPI("sources", tel)
	opts = opts.withDefaults()
	return &SteamCharts{
		http:   fetch.NewClient(fetch.ClientOptions{BaseUrl: opts.BaseUrl, Scrape: true}, tel),
		tel:    tel,
		limits: limits,
		opts:   opts,
	}
}

func (s *SteamCharts) Name() string { return "steamcharts" }

func (s *SteamCharts) ValidLabels() []string { return steamchartsLabels.All() }

func (s *SteamCharts) Fetch(ctx context.Context, appid string, opts ...FetchOption) Result {
	cfg := newFetchConfig(opts)
	if err := s.limits.Acquire(ctx, s.Name(), s.opts.Calls, s.opts.Period); err != nil {
		return Failure(err.Error())
	}
	s.tel.ReportDebug("scraping player charts", appid)

	out := s.http.Get(ctx, "/"+appid, fetch.Request{})
	if !out.OK() {
		return failure(s.tel, report_steamcharts_fetch, "Failed to fetch data: %s.", out.Reason())
	}
	resp := out.Response()
	if resp.StatusCode() != http.StatusOK {
		return failure(s.tel, report_steamcharts_fetch,
			"Failed to fetch data with status code: %d", resp.StatusCode())
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body()))
	if err != nil {
		return failure(s.tel, report_steamcharts_fetch, "Failed to parse page: %s.", err)
	}

	title := doc.Find("h1#app-title")
	if title.Length() == 0 {
		return failure(s.tel, report_steamcharts_fetch,
			"Failed to parse data, game name is not found.")
	}

	stats := doc.Find("div.app-stat")
	if stats.Length() < 3 {
		return failure(s.tel, report_steamcharts_fetch,
			"Failed to parse data, expecting atleast 3 'app-stat' divs.")
	}
	brokenStat := false
	stats.EachWithBreak(func(_ int, stat *goquery.Selection) bool {
		if stat.Find("span.num").Length() == 0 {
			brokenStat = true
			return false
		}
		return true
	})
	if brokenStat {
		return failure(s.tel, report_steamcharts_fetch,
			"Failed to parse data, incorrect app-stat structure.")
	}

	table := doc.Find("table.common-table")
	if table.Length() == 0 {
		return failure(s.tel, report_steamcharts_fetch,
			"Failed to parse data, active player data table is not found.")
	}

	// Row 0 is the header, row 1 the rolling "Last 30 Days" summary.
	allRows := table.Find("tr")
	rows := allRows.Slice(0, 0)
	if allRows.Length() > 2 {
		rows = allRows.Slice(2, goquery.ToEnd)
	}
	if rows.Length() > 0 && rows.First().Find("td").Length() < 5 {
		return failure(s.tel, report_steamcharts_fetch,
			"Failed to parse data, the structure of player data table is incorrect.")
	}

	full := map[string]any{
		"steam_appid":                 appid,
		"name":                        htmlutil.SelectionText(title),
		"active_player_24h":           statValue(stats.Eq(1)),
		"peak_active_player_all_time": statValue(stats.Eq(2)),
		"monthly_active_player":       s.monthlyRows(rows),
	}
	return Success(projectData(full, steamchartsLabels.Project(s.tel, cfg.labels)))
}

// statValue reads the numeric span of one app-stat box, nil when empty
// or unparseable.
func statValue(stat *goquery.Selection) any {
	n, ok := textutil.ParseScrapedInt(htmlutil.SelectionText(stat.Find("span.num")))
	if !ok {
		return nil
	}
	return n
}

// monthlyRows turns the per-month table body into flat rows. Rows whose
// month or player counts do not parse are dropped with a warning.
func (s *SteamCharts) monthlyRows(rows *goquery.Selection) []map[string]any {
	monthly := []map[string]any{}
	rows.Each(func(_ int, row *goquery.Selection) {
		cols := row.Find("td")
		if cols.Length() < 5 {
			s.tel.ReportWarning(report_steamcharts_row, "row has too few columns", cols.Length())
			return
		}

		monthText := htmlutil.SelectionText(cols.Eq(0))
		month, err := time.Parse("January 2006", monthText)
		if err != nil {
			s.tel.ReportWarning(report_steamcharts_row, "unparseable month", monthText)
			return
		}
		avg, avgOk := textutil.ParseScrapedFloat(htmlutil.SelectionText(cols.Eq(1)))
		peak, peakOk := textutil.ParseScrapedFloat(htmlutil.SelectionText(cols.Eq(4)))
		if !avgOk || !peakOk {
			s.tel.ReportWarning(report_steamcharts_row, "unparseable player counts", monthText)
			return
		}

		var gain any
		if n, ok := textutil.ParseScrapedFloat(htmlutil.SelectionText(cols.Eq(2))); ok {
			gain = n
		}
		percentageGain, _ := textutil.ParseScrapedFloat(htmlutil.SelectionText(cols.Eq(3)))

		monthly = append(monthly, map[string]any{
			"month":           month.Format("2006-01"),
			"average_players": avg,
			"gain":            gain,
			"percentage_gain": percentageGain,
			"peak_players":    peak,
		})
	})
	return monthly
}
