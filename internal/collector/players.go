package collector

import (
	"context"
	"slices"

	"gameinsights-backend/internal/sources"
)

// PlayerTable is a wide month-by-month view of average player counts,
// one row per game and one column per month in Columns order.
type PlayerTable struct {
	Columns []string         `json:"columns"`
	Rows    []map[string]any `json:"rows"`
}

// playerTableFill replaces every missing or unknown cell, including the
// name of a game that could not be fetched.
const playerTableFill = -1

var playerTableColumns = []string{"steam_appid", "name", "peak_active_player_all_time"}

// ActivePlayers builds the monthly player history for each appid. The
// month columns are the sorted union across all games; a game whose
// fetch failed keeps its row with only the appid populated.
func (c *Collector) ActivePlayers(ctx context.Context, appids []string) PlayerTable {
	if len(appids) == 0 {
		return PlayerTable{}
	}

	months := map[string]bool{}
	rows := make([]map[string]any, 0, len(appids))
	for i, appid := range appids {
		c.tel.ReportDebug("fetching active players", i+1, len(appids), appid)
		row := map[string]any{"steam_appid": appid}

		res := c.charts.Fetch(ctx, appid, sources.WithLabels(
			"name", "peak_active_player_all_time", "monthly_active_player"))
		if res.OK {
			row["name"] = res.Data["name"]
			row["peak_active_player_all_time"] = res.Data["peak_active_player_all_time"]
			monthly, _ := res.Data["monthly_active_player"].([]map[string]any)
			for _, entry := range monthly {
				month, ok := entry["month"].(string)
				if !ok {
					continue
				}
				row[month] = entry["average_players"]
				months[month] = true
			}
		} else {
			c.tel.ReportDebug("active players unavailable", appid, res.Err)
		}
		rows = append(rows, row)
	}

	columns := append(slices.Clone(playerTableColumns), sortedSet(months)...)
	for _, row := range rows {
		for _, col := range columns {
			if row[col] == nil {
				row[col] = playerTableFill
			}
		}
	}
	return PlayerTable{Columns: columns, Rows: rows}
}

func sortedSet(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for key := range set {
		out = append(out, key)
	}
	slices.Sort(out)
	return out
}
