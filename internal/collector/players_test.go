package collector

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"gameinsights-backend/internal/sources"
)

func TestActivePlayersWideTable(t *testing.T) {
	charts := &stubSource{name: "steamcharts"}
	charts.fetch = func(key string) sources.Result {
		switch key {
		case "10":
			return sources.Success(map[string]any{
				"name":                        "Alpha",
				"peak_active_player_all_time": int64(500),
				"monthly_active_player": []map[string]any{
					{"month": "2024-01", "average_players": 100.5},
					{"month": "2024-02", "average_players": 110.0},
				},
			})
		case "30":
			return sources.Success(map[string]any{
				"name":                        "Gamma",
				"peak_active_player_all_time": int64(50),
				"monthly_active_player": []map[string]any{
					{"month": "2023-12", "average_players": 5.0},
				},
			})
		}
		return sources.Failure("Failed to connect to API. Status code: 500.")
	}

	c := newTestCollector(nil, nil)
	c.charts = charts

	table := c.ActivePlayers(context.Background(), []string{"10", "20", "30"})

	require.Equal(t, []string{
		"steam_appid", "name", "peak_active_player_all_time",
		"2023-12", "2024-01", "2024-02",
	}, table.Columns)
	require.Len(t, table.Rows, 3)

	require.Equal(t, map[string]any{
		"steam_appid":                 "10",
		"name":                        "Alpha",
		"peak_active_player_all_time": int64(500),
		"2023-12":                     -1,
		"2024-01":                     100.5,
		"2024-02":                     110.0,
	}, table.Rows[0])

	// the failed fetch keeps its row, every cell filled
	require.Equal(t, map[string]any{
		"steam_appid":                 "20",
		"name":                        -1,
		"peak_active_player_all_time": -1,
		"2023-12":                     -1,
		"2024-01":                     -1,
		"2024-02":                     -1,
	}, table.Rows[1])

	require.Equal(t, "Gamma", table.Rows[2]["name"])
	require.Equal(t, 5.0, table.Rows[2]["2023-12"])
	require.Equal(t, -1, table.Rows[2]["2024-01"])
}

func TestActivePlayersEmptyInput(t *testing.T) {
	c := newTestCollector(nil, nil)
	table := c.ActivePlayers(context.Background(), nil)
	require.Empty(t, table.Columns)
	require.Empty(t, table.Rows)
}
