package gamedata

import (
	"encoding/json"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func rawNormal() map[string]any {
	return map[string]any{
		"steam_appid":        "12345",
		"name":               "Mock Game: The Adventure",
		"developers":         []string{"devmock_1", "devmock_2"},
		"price_final":        12.34,
		"owners":             1234,
		"tags":               []string{"RPG", "MOBA"},
		"average_playtime_h": 1234,
		"release_date":       "Jan 1, 2025",
	}
}

func rawInvalidTypes() map[string]any {
	return map[string]any{
		"steam_appid":  23456,
		"name":         "mock game 2",
		"developers":   "devmock 3",
		"price_final":  "12.34",
		"owners":       "1234",
		"tags":         []string{"RPG", "MOBA"},
		"release_date": "Not a date",
	}
}

func TestNewRecord(t *testing.T) {
	r, err := New(rawNormal())
	require.NoError(t, err)

	require.Equal(t, "12345", r.SteamAppid)
	require.Equal(t, "Mock Game: The Adventure", r.Name)
	require.Equal(t, []string{"devmock_1", "devmock_2"}, r.Developers)
	require.EqualValues(t, 12.34, r.PriceFinal)
	require.NotNil(t, r.Owners)
	require.EqualValues(t, 1234, *r.Owners)
	require.Equal(t, []string{"RPG", "MOBA"}, r.Tags)

	released := time.Date(2025, time.January, 1, 0, 0, 0, 0, time.UTC)
	require.NotNil(t, r.ReleaseDate)
	require.True(t, released.Equal(*r.ReleaseDate))

	require.NotNil(t, r.AveragePlaytime)
	require.EqualValues(t, 1234*3600, *r.AveragePlaytime)

	require.NotNil(t, r.DaysSinceRelease)
	require.EqualValues(t, int64(math.Floor(time.Since(released).Hours()/24)), *r.DaysSinceRelease)
}

func TestNewRecordDefaults(t *testing.T) {
	r, err := New(rawNormal())
	require.NoError(t, err)

	require.NotNil(t, r.Publishers)
	require.Empty(t, r.Publishers)
	require.Nil(t, r.PriceCurrency)
	require.True(t, r.PriceInitial.IsNaN())
	require.Nil(t, r.MetacriticScore)
	require.Empty(t, r.MonthlyActivePlayer)
	require.True(t, r.ReviewScore.IsNaN())
	require.Nil(t, r.ReviewScoreDesc)
	require.Nil(t, r.TotalReviews)
	require.Nil(t, r.CountRetired)
	require.Empty(t, r.AchievementsList)
	require.Empty(t, r.ContentRating)
}

func TestNewRecordCoercesInvalidTypes(t *testing.T) {
	r, err := New(rawInvalidTypes())
	require.NoError(t, err)

	require.Equal(t, "23456", r.SteamAppid)
	require.Equal(t, []string{"devmock 3"}, r.Developers)
	require.EqualValues(t, 12.34, r.PriceFinal)
	require.NotNil(t, r.Owners)
	require.EqualValues(t, 1234, *r.Owners)

	require.Nil(t, r.ReleaseDate)
	require.Nil(t, r.DaysSinceRelease)
	require.True(t, r.AveragePlaytimeH.IsNaN())
	require.Nil(t, r.AveragePlaytime)
}

func TestNewRecordRequiresAppid(t *testing.T) {
	_, err := New(map[string]any{
		"name":        "mock game 3",
		"developers":  []string{"devmock 4"},
		"price_final": 12.34,
		"owners":      1234,
	})
	require.Error(t, err)

	_, err = New(map[string]any{"steam_appid": "", "name": "mock game 3"})
	require.Error(t, err)
}

func TestRecordRecap(t *testing.T) {
	r, err := New(rawNormal())
	require.NoError(t, err)

	recap := r.Recap()
	require.Len(t, recap, len(RecapFields))
	for _, field := range RecapFields {
		require.Contains(t, recap, field)
	}
	require.NotContains(t, recap, "count_retired")
	require.NotContains(t, recap, "review_score")

	require.Equal(t, "12345", recap["steam_appid"])
	require.Equal(t, "Mock Game: The Adventure", recap["name"])
	require.Equal(t, []string{"devmock_1", "devmock_2"}, recap["developers"])
	require.EqualValues(t, 12.34, recap["price_final"])
	require.EqualValues(t, 1234, recap["owners"])

	require.Contains(t, recap, "total_reviews")
	require.Nil(t, recap["total_reviews"])
	require.True(t, recap["review_ratio"].(Float).IsNaN())
}

func TestRecordReviewRatio(t *testing.T) {
	raw := rawNormal()
	raw["total_positive"] = 80
	raw["total_negative"] = 20
	r, err := New(raw)
	require.NoError(t, err)
	require.EqualValues(t, 0.8, r.Recap()["review_ratio"])

	raw["total_positive"] = 0
	raw["total_negative"] = 0
	r, err = New(raw)
	require.NoError(t, err)
	require.True(t, r.Recap()["review_ratio"].(Float).IsNaN())
}

func TestRecordJSON(t *testing.T) {
	r, err := New(rawNormal())
	require.NoError(t, err)

	encoded, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))

	require.Len(t, decoded, 50)
	require.NotContains(t, decoded, "average_playtime_h")

	require.Equal(t, "12345", decoded["steam_appid"])
	require.Equal(t, "2025-01-01T00:00:00Z", decoded["release_date"])
	require.EqualValues(t, 1234*3600, decoded["average_playtime"])
	require.EqualValues(t, 12.34, decoded["price_final"])
	require.Nil(t, decoded["price_initial"])
	require.Nil(t, decoded["metacritic_score"])
	require.Equal(t, []any{"RPG", "MOBA"}, decoded["tags"])
	require.Contains(t, decoded, "count_speedrun")
	require.Nil(t, decoded["count_speedrun"])
}

func TestRecordFields(t *testing.T) {
	require.Len(t, RecordFields, 50)
	require.Equal(t, "steam_appid", RecordFields[0])
	require.Equal(t, "name", RecordFields[1])
	require.NotContains(t, RecordFields, "average_playtime_h")

	r, err := New(rawNormal())
	require.NoError(t, err)
	encoded, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(encoded, &decoded))
	for _, field := range RecordFields {
		require.Contains(t, decoded, field)
	}
}
