package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"gameinsights-backend/internal/collector"
	"gameinsights-backend/internal/gamedata"
	"gameinsights-backend/internal/gamesearch"
)

type stubCollector struct {
	record *gamedata.Record
	err    error
	table  collector.PlayerTable

	appids []string
}

func (s *stubCollector) Collect(_ context.Context, appid string) (*gamedata.Record, error) {
	s.appids = append(s.appids, appid)
	if s.err != nil {
		return nil, s.err
	}
	return s.record, nil
}

func (s *stubCollector) ActivePlayers(_ context.Context, appids []string) collector.PlayerTable {
	s.appids = append(s.appids, appids...)
	return s.table
}

type stubSearcher struct {
	matches []gamesearch.Match
	err     error

	query string
	topN  int
}

func (s *stubSearcher) Search(_ context.Context, name string, topN int) ([]gamesearch.Match, error) {
	s.query = name
	s.topN = topN
	if s.err != nil {
		return nil, s.err
	}
	return s.matches, nil
}

func newTestServer(t *testing.T, c gameCollector, s gameSearcher) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(newServer(c, s).mux())
	t.Cleanup(srv.Close)
	return srv
}

func get(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	res, err := http.Get(url)
	require.NoError(t, err)
	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.NoError(t, res.Body.Close())
	return res, body
}

func TestGameRoute(t *testing.T) {
	record, err := gamedata.New(map[string]any{"steam_appid": "570", "name": "Dota 2"})
	require.NoError(t, err)
	c := &stubCollector{record: record}
	srv := newTestServer(t, c, &stubSearcher{})

	res, body := get(t, srv.URL+"/v1/games/570")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "application/json", res.Header.Get("Content-Type"))
	require.Equal(t, []string{"570"}, c.appids)

	_, err = uuid.Parse(res.Header.Get("X-Request-Id"))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, "570", decoded["steam_appid"])
	require.Equal(t, "Dota 2", decoded["name"])
	require.Contains(t, decoded, "monthly_active_player")
}

func TestGameRouteCollectError(t *testing.T) {
	c := &stubCollector{err: fmt.Errorf("upstream exploded")}
	srv := newTestServer(t, c, &stubSearcher{})

	res, body := get(t, srv.URL+"/v1/games/570")
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.JSONEq(t, `{"error": "upstream exploded"}`, string(body))
}

func TestRecapRoute(t *testing.T) {
	record, err := gamedata.New(map[string]any{
		"steam_appid":    "570",
		"total_positive": 80,
		"total_negative": 20,
	})
	require.NoError(t, err)
	srv := newTestServer(t, &stubCollector{record: record}, &stubSearcher{})

	res, body := get(t, srv.URL+"/v1/games/570/recap")
	require.Equal(t, http.StatusOK, res.StatusCode)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Len(t, decoded, len(gamedata.RecapFields))
	require.EqualValues(t, 0.8, decoded["review_ratio"])
	require.NotContains(t, decoded, "monthly_active_player")
}

func TestActivePlayersRoute(t *testing.T) {
	c := &stubCollector{table: collector.PlayerTable{
		Columns: []string{"steam_appid", "name", "peak_active_player_all_time", "2024-01"},
		Rows: []map[string]any{
			{"steam_appid": "570", "name": "Dota 2", "peak_active_player_all_time": float64(1_295_114), "2024-01": float64(450_000)},
		},
	}}
	srv := newTestServer(t, c, &stubSearcher{})

	res, body := get(t, srv.URL+"/v1/games/570/active-players")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, []string{"570"}, c.appids)

	var decoded collector.PlayerTable
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, c.table.Columns, decoded.Columns)
	require.Len(t, decoded.Rows, 1)
}

func TestSearchRoute(t *testing.T) {
	s := &stubSearcher{matches: []gamesearch.Match{
		{Appid: "570", Name: "Dota 2", Score: 100},
	}}
	srv := newTestServer(t, &stubCollector{}, s)

	res, body := get(t, srv.URL+"/v1/search?q=dota&limit=3")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "dota", s.query)
	require.Equal(t, 3, s.topN)
	require.JSONEq(t, `[{"appid": "570", "name": "Dota 2", "search_score": 100}]`, string(body))
}

func TestSearchRouteRejectsBadQueries(t *testing.T) {
	srv := newTestServer(t, &stubCollector{}, &stubSearcher{})

	res, _ := get(t, srv.URL+"/v1/search")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = get(t, srv.URL+"/v1/search?q=dota&limit=zero")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, _ = get(t, srv.URL+"/v1/search?q=dota&limit=-1")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestSearchRouteUpstreamFailure(t *testing.T) {
	s := &stubSearcher{err: fmt.Errorf("fetching app list: status 500")}
	srv := newTestServer(t, &stubCollector{}, s)

	res, body := get(t, srv.URL+"/v1/search?q=dota")
	require.Equal(t, http.StatusBadGateway, res.StatusCode)
	require.Contains(t, string(body), "fetching app list")
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, &stubCollector{}, &stubSearcher{})

	res, body := get(t, srv.URL+"/healthz")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.JSONEq(t, `{"status": "ok"}`, string(body))
}
