package sources

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"

	"gameinsights-backend/internal/ratelimit"
	"gameinsights-backend/internal/telemetry"
)

func newTestSteamStore(t *testing.T, handler http.HandlerFunc) *SteamStore {
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewSteamStore(ratelimit.NewRegistry(), telemetry.SlogAPI{}, SteamStoreOptions{
		BaseUrl: server.URL,
	})
}

func steamstoreSuccessPayload() map[string]any {
	return map[string]any{
		"12345": map[string]any{
			"success": true,
			"data": map[string]any{
				"steam_appid": 12345,
				"name":        "Mock Game: The Adventure",
				"type":        "mock",
				"ratings": map[string]any{
					"pegi": map[string]any{"rating": "12"},
				},
			},
		},
	}
}

func TestSteamStoreFetchSuccess(t *testing.T) {
	var query url.Values
	store := newTestSteamStore(t, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		jsonHandler(t, http.StatusOK, steamstoreSuccessPayload())(w, r)
	})

	result := store.Fetch(context.Background(), "12345")

	require.True(t, result.OK)
	require.Len(t, result.Data, len(store.ValidLabels()))
	require.EqualValues(t, 12345, result.Data["steam_appid"])
	require.Equal(t, "mock", result.Data["type"])

	rating := result.Data["content_rating"].([]any)[0].(map[string]any)
	require.Equal(t, "pegi", rating["rating_type"])
	require.Equal(t, "12", rating["rating"])

	require.Equal(t, "12345", query.Get("appids"))
	require.Equal(t, "us", query.Get("cc"))
	require.Equal(t, "english", query.Get("l"))
}

func TestSteamStoreTransforms(t *testing.T) {
	payload := map[string]any{
		"12345": map[string]any{
			"success": true,
			"data": map[string]any{
				"steam_appid": 12345,
				"name":        "Mock Game: The Adventure",
				"type":        "game",
				"is_free":     false,
				"developers":  []string{"devmock_1"},
				"publishers":  []string{"pubmock_1"},
				"price_overview": map[string]any{
					"currency": "USD",
					"initial":  1299,
					"final":    999,
				},
				"platforms": map[string]any{
					"windows": true,
					"mac":     false,
					"linux":   true,
				},
				"categories": []any{
					map[string]any{"id": 2, "description": "Single-player"},
					map[string]any{"id": 3},
				},
				"genres":          []any{map[string]any{"id": "1", "description": "Action"}},
				"metacritic":      map[string]any{"score": 88},
				"recommendations": map[string]any{"total": 4321},
				"achievements":    map[string]any{"total": 42},
				"release_date":    map[string]any{"coming_soon": false, "date": "Jan 1, 2025"},
			},
		},
	}
	store := newTestSteamStore(t, jsonHandler(t, http.StatusOK, payload))

	result := store.Fetch(context.Background(), "12345")

	require.True(t, result.OK)
	require.Equal(t, "USD", result.Data["price_currency"])
	require.InDelta(t, 12.99, result.Data["price_initial"], 0.0001)
	require.InDelta(t, 9.99, result.Data["price_final"], 0.0001)
	require.Equal(t, []string{"linux", "windows"}, result.Data["platforms"])
	require.Equal(t, []any{"Single-player"}, result.Data["categories"])
	require.Equal(t, []any{"Action"}, result.Data["genres"])
	require.EqualValues(t, 88, result.Data["metacritic_score"])
	require.EqualValues(t, 4321, result.Data["recommendations"])
	require.EqualValues(t, 42, result.Data["achievements"])
	require.Equal(t, false, result.Data["is_coming_soon"])
	require.Equal(t, "Jan 1, 2025", result.Data["release_date"])
}

func TestSteamStoreLabelFiltering(t *testing.T) {
	cases := []struct {
		name     string
		selected []string
		expected []string
	}{
		{"normal filtering", []string{"name"}, []string{"name"}},
		{"unknown label dropped", []string{"name", "bogus"}, []string{"name"}},
		{"selection order kept", []string{"steam_appid", "name", "bogus"}, []string{"steam_appid", "name"}},
		{"only unknown labels", []string{"bogus"}, []string{}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			store := newTestSteamStore(t, jsonHandler(t, http.StatusOK, steamstoreSuccessPayload()))

			result := store.Fetch(context.Background(), "12345", WithLabels(c.selected...))

			require.True(t, result.OK)
			require.ElementsMatch(t, c.expected, dataKeys(result.Data))
		})
	}
}

func TestSteamStoreHttpError(t *testing.T) {
	store := newTestSteamStore(t, jsonHandler(t, http.StatusBadRequest, map[string]any{}))

	result := store.Fetch(context.Background(), "12345")

	require.False(t, result.OK)
	require.Equal(t, "Failed to connect to API. Status code: 400.", result.Err)
}

func TestSteamStoreGameNotFound(t *testing.T) {
	payload := map[string]any{
		"12345": map[string]any{"success": false},
	}
	store := newTestSteamStore(t, jsonHandler(t, http.StatusOK, payload))

	result := store.Fetch(context.Background(), "12345")

	require.False(t, result.OK)
	require.Equal(t,
		"Failed to fetch data for appid 12345, or appid is not available in the specified region (us) or language (english).",
		result.Err)
}

func TestSteamStoreToleratesMalformedSubObjects(t *testing.T) {
	payload := map[string]any{
		"12345": map[string]any{
			"success": true,
			"data": map[string]any{
				"steam_appid":    12345,
				"name":           "Mock Game: The Adventure",
				"price_overview": []any{"unexpected"},
			},
		},
	}
	store := newTestSteamStore(t, jsonHandler(t, http.StatusOK, payload))

	result := store.Fetch(context.Background(), "12345")

	require.True(t, result.OK)
	require.Nil(t, result.Data["price_initial"])
	require.Nil(t, result.Data["price_final"])
	require.Equal(t, []any{}, result.Data["content_rating"])
}
