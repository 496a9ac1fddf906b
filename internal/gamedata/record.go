// Package gamedata defines the merged per-game record. A Record is
// built from the raw rows the sources return, with total coercion into
// a fixed schema, a couple of derived fields and a reduced recap view.
package gamedata

import (
	"fmt"
	"math"
	"reflect"
	"strings"
	"time"
)

// MonthlyPlayers is one month of concurrent-player history.
type MonthlyPlayers struct {
	Month          string   `json:"month"`
	AveragePlayers Float    `json:"average_players"`
	Gain           *float64 `json:"gain"`
	PercentageGain Float    `json:"percentage_gain"`
	PeakPlayers    Float    `json:"peak_players"`
}

// Achievement is one global achievement stat. The schema fields are
// only present when the stats could be joined against the game schema.
type Achievement struct {
	Name        string  `json:"name"`
	Percent     Float   `json:"percent"`
	DisplayName *string `json:"display_name,omitempty"`
	Hidden      *int64  `json:"hidden,omitempty"`
	Description *string `json:"description,omitempty"`
}

// ContentRating is one rating-board entry.
type ContentRating struct {
	RatingType string `json:"rating_type"`
	Rating     string `json:"rating"`
}

// Record is the merged metadata for a single game. Every field except
// SteamAppid is optional; absent values are nil, empty or NaN.
// AveragePlaytimeH is an input-only field and never serialized.
type Record struct {
	SteamAppid string `json:"steam_appid"`
	Name       string `json:"name"`

	Developers []string `json:"developers"`
	Publishers []string `json:"publishers"`

	PriceCurrency *string `json:"price_currency"`
	PriceInitial  Float   `json:"price_initial"`
	PriceFinal    Float   `json:"price_final"`

	MetacriticScore *int64 `json:"metacritic_score"`

	ReleaseDate      *time.Time `json:"release_date"`
	DaysSinceRelease *int64     `json:"days_since_release"`

	AveragePlaytimeH Float  `json:"-"`
	AveragePlaytime  *int64 `json:"average_playtime"`

	CopiesSold       *int64 `json:"copies_sold"`
	EstimatedRevenue *int64 `json:"estimated_revenue"`
	Owners           *int64 `json:"owners"`

	Ccu                     *int64           `json:"ccu"`
	ActivePlayer24h         *int64           `json:"active_player_24h"`
	PeakActivePlayerAllTime *int64           `json:"peak_active_player_all_time"`
	MonthlyActivePlayer     []MonthlyPlayers `json:"monthly_active_player"`

	ReviewScore     Float   `json:"review_score"`
	ReviewScoreDesc *string `json:"review_score_desc"`
	TotalPositive   *int64  `json:"total_positive"`
	TotalNegative   *int64  `json:"total_negative"`
	TotalReviews    *int64  `json:"total_reviews"`

	AchievementsCount             *int64        `json:"achievements_count"`
	AchievementsPercentageAverage Float         `json:"achievements_percentage_average"`
	AchievementsList              []Achievement `json:"achievements_list"`

	CompMain      *int64 `json:"comp_main"`
	CompPlus      *int64 `json:"comp_plus"`
	Comp100       *int64 `json:"comp_100"`
	CompAll       *int64 `json:"comp_all"`
	CompMainCount *int64 `json:"comp_main_count"`
	CompPlusCount *int64 `json:"comp_plus_count"`
	Comp100Count  *int64 `json:"comp_100_count"`
	CompAllCount  *int64 `json:"comp_all_count"`

	InvestedCo      *int64 `json:"invested_co"`
	InvestedMp      *int64 `json:"invested_mp"`
	InvestedCoCount *int64 `json:"invested_co_count"`
	InvestedMpCount *int64 `json:"invested_mp_count"`

	CountComp     *int64 `json:"count_comp"`
	CountSpeedrun *int64 `json:"count_speedrun"`
	CountBacklog  *int64 `json:"count_backlog"`
	CountReview   *int64 `json:"count_review"`
	CountPlaying  *int64 `json:"count_playing"`
	CountRetired  *int64 `json:"count_retired"`

	Languages  []string `json:"languages"`
	Platforms  []string `json:"platforms"`
	Categories []string `json:"categories"`
	Genres     []string `json:"genres"`
	Tags       []string `json:"tags"`

	ContentRating []ContentRating `json:"content_rating"`
}

// New builds a Record from a merged raw row. Coercion never fails: a
// value of the wrong shape becomes its field's empty marker. The only
// error is a missing or empty steam_appid.
func New(raw map[string]any) (*Record, error) {
	r := &Record{
		SteamAppid: stringify(raw["steam_appid"]),
		Name:       stringify(raw["name"]),

		Developers: coerceStringList(raw["developers"]),
		Publishers: coerceStringList(raw["publishers"]),

		PriceCurrency: coerceStringPtr(raw["price_currency"]),
		PriceInitial:  coerceFloat(raw["price_initial"]),
		PriceFinal:    coerceFloat(raw["price_final"]),

		MetacriticScore: coerceInt(raw["metacritic_score"]),

		ReleaseDate:      coerceTime(raw["release_date"]),
		DaysSinceRelease: coerceInt(raw["days_since_release"]),

		AveragePlaytimeH: coerceFloat(raw["average_playtime_h"]),
		AveragePlaytime:  coerceInt(raw["average_playtime"]),

		CopiesSold:       coerceInt(raw["copies_sold"]),
		EstimatedRevenue: coerceInt(raw["estimated_revenue"]),
		Owners:           coerceInt(raw["owners"]),

		Ccu:                     coerceInt(raw["ccu"]),
		ActivePlayer24h:         coerceInt(raw["active_player_24h"]),
		PeakActivePlayerAllTime: coerceInt(raw["peak_active_player_all_time"]),
		MonthlyActivePlayer:     coerceMonthlyPlayers(raw["monthly_active_player"]),

		ReviewScore:     coerceFloat(raw["review_score"]),
		ReviewScoreDesc: coerceStringPtr(raw["review_score_desc"]),
		TotalPositive:   coerceInt(raw["total_positive"]),
		TotalNegative:   coerceInt(raw["total_negative"]),
		TotalReviews:    coerceInt(raw["total_reviews"]),

		AchievementsCount:             coerceInt(raw["achievements_count"]),
		AchievementsPercentageAverage: coerceFloat(raw["achievements_percentage_average"]),
		AchievementsList:              coerceAchievements(raw["achievements_list"]),

		CompMain:      coerceInt(raw["comp_main"]),
		CompPlus:      coerceInt(raw["comp_plus"]),
		Comp100:       coerceInt(raw["comp_100"]),
		CompAll:       coerceInt(raw["comp_all"]),
		CompMainCount: coerceInt(raw["comp_main_count"]),
		CompPlusCount: coerceInt(raw["comp_plus_count"]),
		Comp100Count:  coerceInt(raw["comp_100_count"]),
		CompAllCount:  coerceInt(raw["comp_all_count"]),

		InvestedCo:      coerceInt(raw["invested_co"]),
		InvestedMp:      coerceInt(raw["invested_mp"]),
		InvestedCoCount: coerceInt(raw["invested_co_count"]),
		InvestedMpCount: coerceInt(raw["invested_mp_count"]),

		CountComp:     coerceInt(raw["count_comp"]),
		CountSpeedrun: coerceInt(raw["count_speedrun"]),
		CountBacklog:  coerceInt(raw["count_backlog"]),
		CountReview:   coerceInt(raw["count_review"]),
		CountPlaying:  coerceInt(raw["count_playing"]),
		CountRetired:  coerceInt(raw["count_retired"]),

		Languages:  coerceStringList(raw["languages"]),
		Platforms:  coerceStringList(raw["platforms"]),
		Categories: coerceStringList(raw["categories"]),
		Genres:     coerceStringList(raw["genres"]),
		Tags:       coerceStringList(raw["tags"]),

		ContentRating: coerceContentRating(raw["content_rating"]),
	}
	if r.SteamAppid == "" {
		return nil, fmt.Errorf("steam_appid is required")
	}
	r.computeAveragePlaytime()
	r.computeDaysSinceRelease()
	return r, nil
}

// computeAveragePlaytime converts the hour figure into seconds.
func (r *Record) computeAveragePlaytime() {
	if !r.AveragePlaytimeH.IsNaN() {
		v := int64(float64(r.AveragePlaytimeH) * 3600)
		r.AveragePlaytime = &v
	}
}

func (r *Record) computeDaysSinceRelease() {
	if r.ReleaseDate != nil {
		days := int64(math.Floor(time.Since(*r.ReleaseDate).Hours() / 24))
		r.DaysSinceRelease = &days
	}
}

// RecordFields is the column order of the full record, taken from the
// struct's json tags so the two never drift apart.
var RecordFields = recordFields()

func recordFields() []string {
	t := reflect.TypeOf(Record{})
	out := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("json"), ",")
		if tag == "" || tag == "-" {
			continue
		}
		out = append(out, tag)
	}
	return out
}

// RecapFields is the column order of the recap view.
var RecapFields = []string{
	"steam_appid",
	"name",
	"developers",
	"publishers",
	"release_date",
	"days_since_release",
	"price_currency",
	"price_initial",
	"price_final",
	"copies_sold",
	"estimated_revenue",
	"owners",
	"total_positive",
	"total_negative",
	"total_reviews",
	"review_ratio",
	"comp_main",
	"comp_plus",
	"comp_100",
	"comp_all",
	"invested_co",
	"invested_mp",
	"average_playtime",
	"active_player_24h",
	"peak_active_player_all_time",
	"achievements_count",
	"achievements_percentage_average",
	"categories",
	"genres",
	"tags",
}

// Recap returns the reduced summary view of the record, keyed by
// RecapFields. Pointer fields are flattened so the values print and
// serialize as plain data.
func (r *Record) Recap() map[string]any {
	return map[string]any{
		"steam_appid":                     r.SteamAppid,
		"name":                            r.Name,
		"developers":                      r.Developers,
		"publishers":                      r.Publishers,
		"release_date":                    deref(r.ReleaseDate),
		"days_since_release":              deref(r.DaysSinceRelease),
		"price_currency":                  deref(r.PriceCurrency),
		"price_initial":                   r.PriceInitial,
		"price_final":                     r.PriceFinal,
		"copies_sold":                     deref(r.CopiesSold),
		"estimated_revenue":               deref(r.EstimatedRevenue),
		"owners":                          deref(r.Owners),
		"total_positive":                  deref(r.TotalPositive),
		"total_negative":                  deref(r.TotalNegative),
		"total_reviews":                   deref(r.TotalReviews),
		"review_ratio":                    r.reviewRatio(),
		"comp_main":                       deref(r.CompMain),
		"comp_plus":                       deref(r.CompPlus),
		"comp_100":                        deref(r.Comp100),
		"comp_all":                        deref(r.CompAll),
		"invested_co":                     deref(r.InvestedCo),
		"invested_mp":                     deref(r.InvestedMp),
		"average_playtime":                deref(r.AveragePlaytime),
		"active_player_24h":               deref(r.ActivePlayer24h),
		"peak_active_player_all_time":     deref(r.PeakActivePlayerAllTime),
		"achievements_count":              deref(r.AchievementsCount),
		"achievements_percentage_average": r.AchievementsPercentageAverage,
		"categories":                      r.Categories,
		"genres":                          r.Genres,
		"tags":                            r.Tags,
	}
}

// reviewRatio is the share of positive reviews, NaN when the counts
// are missing or zero.
func (r *Record) reviewRatio() Float {
	if r.TotalPositive == nil || r.TotalNegative == nil {
		return NaN()
	}
	total := *r.TotalPositive + *r.TotalNegative
	if total == 0 {
		return NaN()
	}
	return Float(float64(*r.TotalPositive) / float64(total))
}

func deref[T any](v *T) any {
	if v == nil {
		return nil
	}
	return *v
}
