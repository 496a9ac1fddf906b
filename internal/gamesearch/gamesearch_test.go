package gamesearch

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"gameinsights-backend/internal/telemetry"
)

func newTestSearcher(t *testing.T, apps []appEntry, hits *int) *Searcher {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc(applistPath, func(w http.ResponseWriter, r *http.Request) {
		if hits != nil {
			*hits++
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"applist": map[string]any{"apps": apps},
		})
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return New(telemetry.SlogAPI{}, Options{BaseUrl: server.URL})
}

func TestSearchRanksClosestFirst(t *testing.T) {
	s := newTestSearcher(t, []appEntry{
		{Appid: 570, Name: "Dota 2"},
		{Appid: 1234, Name: "Mock Game"},
		{Appid: 5678, Name: "Mock Game 2"},
		{Appid: 220, Name: "Half-Life 2"},
	}, nil)

	matches, err := s.Search(context.Background(), "Mock Game", 10)
	require.NoError(t, err)
	require.NotEmpty(t, matches)

	require.Equal(t, "1234", matches[0].Appid)
	require.Equal(t, "Mock Game", matches[0].Name)
	require.InDelta(t, 100, matches[0].Score, 0.001)

	for i, m := range matches {
		require.GreaterOrEqual(t, m.Score, 60.0)
		require.NotEqual(t, "570", m.Appid)
		if i > 0 {
			require.LessOrEqual(t, m.Score, matches[i-1].Score)
		}
	}
}

func TestSearchNormalizesQueryAndNames(t *testing.T) {
	s := newTestSearcher(t, []appEntry{
		{Appid: 1234, Name: "Mock Game"},
		{Appid: 570, Name: "Dota 2"},
	}, nil)

	// casing and stray whitespace must not cost the exact match its
	// perfect score
	matches, err := s.Search(context.Background(), "  MOCK   game\n", 1)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	require.Equal(t, "1234", matches[0].Appid)
	require.InDelta(t, 100, matches[0].Score, 0.001)
}

func TestSearchTiesBreakOnName(t *testing.T) {
	s := newTestSearcher(t, []appEntry{
		{Appid: 3, Name: "Game 3"},
		{Appid: 1, Name: "Game 1"},
		{Appid: 2, Name: "Game 2"},
	}, nil)

	matches, err := s.Search(context.Background(), "game", 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	require.Equal(t, "Game 1", matches[0].Name)
	require.Equal(t, "Game 2", matches[1].Name)
	require.Equal(t, matches[0].Score, matches[1].Score)
}

func TestSearchDefaultTopN(t *testing.T) {
	apps := make([]appEntry, 8)
	for i := range apps {
		apps[i] = appEntry{Appid: int64(i + 1), Name: fmt.Sprintf("Game %d", i+1)}
	}
	s := newTestSearcher(t, apps, nil)

	matches, err := s.Search(context.Background(), "game", 0)
	require.NoError(t, err)
	require.Len(t, matches, 5)
}

func TestRefreshCachesAppList(t *testing.T) {
	hits := 0
	s := newTestSearcher(t, []appEntry{{Appid: 570, Name: "Dota 2"}}, &hits)

	_, err := s.Search(context.Background(), "dota 2", 1)
	require.NoError(t, err)
	_, err = s.Search(context.Background(), "dota 2", 1)
	require.NoError(t, err)
	require.Equal(t, 1, hits)

	require.NoError(t, s.Refresh(context.Background(), true))
	require.Equal(t, 2, hits)
}

func TestSearchApplistUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)
	s := New(telemetry.SlogAPI{}, Options{BaseUrl: server.URL})

	_, err := s.Search(context.Background(), "dota 2", 1)
	require.ErrorContains(t, err, "fetching app list")
}
