// Package collector aggregates per-game metadata across the wired
// sources and merges the surviving fields into one validated record.
//
// Aggregation runs in two phases: id-keyed sources are queried with the
// appid, then the name-keyed ones with the game name the first phase
// produced. A failing source never aborts the run, it only leaves its
// declared fields at their defaults.
package collector

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/sources"
	"gameinsights-backend/internal/telemetry"
)

// SourceSpec pairs a source with the fields the collector may copy from
// that source's output into the merged record. Fields outside the list
// are discarded even when the source emits them.
type SourceSpec struct {
	Source sources.Source
	Fields []string
}

// reviewStream is the slice of SteamReview the review walk needs.
type reviewStream interface {
	FetchReviews(ctx context.Context, appid string, q sources.ReviewQuery, opts ...sources.FetchOption) sources.Result
}

type Collector struct {
	tel    telemetry.API
	limits *ratelimit.Registry
	opts   Options

	idSpecs   []SourceSpec
	nameSpecs []SourceSpec

	charts  sources.Source
	reviews reviewStream
	user    sources.Source
}

type Options struct {
	// Region and Language select the Steam storefront view.
	Region   string
	Language string

	// SteamApiKey feeds the achievements schema lookup and the user
	// endpoints. GamalyticApiKey raises that source's daily quota.
	SteamApiKey     string
	GamalyticApiKey string

	// Calls and Period bound how many per-game aggregations start per
	// rolling window, on top of each source's own budget.
	Calls  int
	Period time.Duration

	// Workers caps how many games CollectBatch processes at once.
	Workers int

	// UserPause spaces consecutive profile fetches in UserData.
	UserPause time.Duration

	// Endpoints overrides the upstream URLs, mainly for tests.
	Endpoints Endpoints
}

// Endpoints carries one base URL per source. Zero values keep the real
// upstreams.
type Endpoints struct {
	SteamStore        string
	SteamSpy          string
	Gamalytic         string
	SteamCharts       string
	SteamReview       string
	SteamAchievements string
	SteamUser         string
	HowLongToBeat     string
}

func (o Options) withDefaults() Options {
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
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.UserPause <= 0 {
		o.UserPause = 250 * time.Millisecond
	}
	return o
}

func New(limits *ratelimit.Registry, tel telemetry.API, opts Options) (*Collector, error) {
	opts = opts.withDefaults()
	c := &Collector{
		tel:    telemetry.NewScopedAPI("collector", tel),
		limits: limits,
		opts:   opts,
	}

	store := sources.NewSteamStore(limits, tel, sources.SteamStoreOptions{
		BaseUrl:  opts.Endpoints.SteamStore,
		Region:   opts.Region,
		Language: opts.Language,
	})
	spy := sources.NewSteamSpy(limits, tel, sources.SteamSpyOptions{
		BaseUrl: opts.Endpoints.SteamSpy,
	})
	gamalytic := sources.NewGamalytic(limits, tel, sources.GamalyticOptions{
		BaseUrl: opts.Endpoints.Gamalytic,
		ApiKey:  opts.GamalyticApiKey,
	})
	charts := sources.NewSteamCharts(limits, tel, sources.SteamChartsOptions{
		BaseUrl: opts.Endpoints.SteamCharts,
	})
	review := sources.NewSteamReview(limits, tel, sources.SteamReviewOptions{
		BaseUrl: opts.Endpoints.SteamReview,
	})
	achievements := sources.NewSteamAchievements(limits, tel, sources.SteamAchievementsOptions{
		BaseUrl: opts.Endpoints.SteamAchievements,
		ApiKey:  opts.SteamApiKey,
	})
	user := sources.NewSteamUser(limits, tel, sources.SteamUserOptions{
		BaseUrl: opts.Endpoints.SteamUser,
		ApiKey:  opts.SteamApiKey,
	})
	hltb := sources.NewHowLongToBeat(limits, tel, sources.HowLongToBeatOptions{
		BaseUrl: opts.Endpoints.HowLongToBeat,
	})

	c.charts = charts
	c.reviews = review
	c.user = user

	c.idSpecs = []SourceSpec{
		{Source: store, Fields: []string{
			"steam_appid", "name", "developers", "publishers", "type",
			"price_currency", "price_initial", "price_final", "categories",
			"platforms", "genres", "metacritic_score", "release_date",
			"content_rating",
		}},
		{Source: gamalytic, Fields: []string{
			"average_playtime_h", "copies_sold", "estimated_revenue",
			"owners", "languages",
		}},
		{Source: spy, Fields: []string{"ccu", "tags"}},
		{Source: charts, Fields: []string{
			"active_player_24h", "peak_active_player_all_time",
			"monthly_active_player",
		}},
		{Source: review, Fields: []string{
			"review_score", "review_score_desc", "total_positive",
			"total_negative", "total_reviews",
		}},
		{Source: achievements, Fields: []string{
			"achievements_count", "achievements_percentage_average",
			"achievements_list",
		}},
	}
	c.nameSpecs = []SourceSpec{
		{Source: hltb, Fields: []string{
			"comp_main", "comp_plus", "comp_100", "comp_all",
			"comp_main_count", "comp_plus_count", "comp_100_count",
			"comp_all_count", "invested_co", "invested_mp",
			"invested_co_count", "invested_mp_count", "count_comp",
			"count_speedrun", "count_backlog", "count_review",
			"count_playing", "count_retired",
		}},
	}

	if err := validateSpecs(c.idSpecs, c.nameSpecs); err != nil {
		return nil, fmt.Errorf("validating source fields: %w", err)
	}
	return c, nil
}

// validateSpecs rejects spec sets where one merged field is declared by
// more than one spec.
func validateSpecs(specLists ...[]SourceSpec) error {
	owners := map[string]string{}
	var errs []error
	for _, specs := range specLists {
		for _, spec := range specs {
			for _, field := range spec.Fields {
				if owner, ok := owners[field]; ok {
					errs = append(errs, fmt.Errorf(
						"field %q declared by both %s and %s", field, owner, spec.Source.Name()))
					continue
				}
				owners[field] = spec.Source.Name()
			}
		}
	}
	return errors.Join(errs...)
}

// Sources lists every wired source, aggregation order first, then the
// user profile source.
func (c *Collector) Sources() []sources.Source {
	out := make([]sources.Source, 0, len(c.idSpecs)+len(c.nameSpecs)+1)
	for _, spec := range c.idSpecs {
		out = append(out, spec.Source)
	}
	for _, spec := range c.nameSpecs {
		out = append(out, spec.Source)
	}
	return append(out, c.user)
}

// DeclaredFields resolves source names to the merge fields they own,
// steam_appid always included. Field order follows the aggregation
// order, not the requested order. Unknown names error and list the
// known ones.
func (c *Collector) DeclaredFields(names ...string) ([]string, error) {
	specs := append(slices.Clone(c.idSpecs), c.nameSpecs...)

	known := make([]string, 0, len(specs))
	for _, spec := range specs {
		known = append(known, spec.Source.Name())
	}

	requested := map[string]bool{}
	for _, name := range names {
		if !slices.Contains(known, name) {
			return nil, fmt.Errorf(
				"unknown source %q, known sources are: %s", name, strings.Join(known, ", "))
		}
		requested[name] = true
	}

	fields := []string{"steam_appid"}
	for _, spec := range specs {
		if !requested[spec.Source.Name()] {
			continue
		}
		for _, field := range spec.Fields {
			if field != "steam_appid" {
				fields = append(fields, field)
			}
		}
	}
	return fields, nil
}
