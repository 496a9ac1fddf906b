package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"gameinsights-backend/internal/collector"
	"gameinsights-backend/internal/gamedata"
	"gameinsights-backend/lib/serviceutil"
)

var (
	collectAppids    *[]string
	collectAppidFile *string
	collectSources   *[]string
	collectMode      *string
	collectRecap     *bool
	collectFormat    *string
	collectOutput    *string
)

func init() {
	flags := collectCmd.Flags()
	collectAppids = flags.StringArrayP("appid", "a", nil, "Steam appid to collect, repeatable.")
	collectAppidFile = flags.StringP("appid-file", "f", "", "File with newline or comma separated appids.")
	collectSources = flags.StringArrayP("source", "s", nil, "Keep only fields owned by this source, repeatable.")
	collectMode = flags.String("mode", "games", "games or active-player.")
	collectRecap = flags.Bool("recap", false, "Reduce each record to the recap view.")
	collectFormat = flags.String("format", "json", "Output format: json, csv or table.")
	collectOutput = flags.StringP("output", "o", "", "Write to this file instead of stdout.")
	rootCmd.AddCommand(collectCmd)
}

var collectCmd = &cobra.Command{
	Use:   "collect [--appid <id>]... [--appid-file <path>]",
	Short: "Fetches every wired source for the given games and merges the results.",
	Run: func(cmd *cobra.Command, args []string) {
		appids, err := gatherAppids(*collectAppids, *collectAppidFile)
		if err != nil {
			serviceutil.Fatal("failed to read appids", err)
		}
		if len(appids) == 0 {
			serviceutil.Fatal("no appids given", fmt.Errorf("pass --appid or --appid-file"))
		}

		c, err := buildCollector()
		if err != nil {
			serviceutil.Fatal("failed to build collector", err)
		}

		switch *collectMode {
		case "games":
			runCollectGames(cmd.Context(), c, appids)
		case "active-player":
			runCollectActivePlayers(cmd.Context(), c, appids)
		default:
			serviceutil.Fatal("invalid mode", fmt.Errorf(
				"mode %q is not one of games, active-player", *collectMode))
		}
	},
}

func runCollectGames(ctx context.Context, c *collector.Collector, appids []string) {
	records := c.CollectBatch(ctx, appids)

	columns := gamedata.RecordFields
	if *collectRecap {
		columns = gamedata.RecapFields
	}
	if len(*collectSources) > 0 {
		declared, err := c.DeclaredFields(*collectSources...)
		if err != nil {
			serviceutil.Fatal("invalid source filter", err)
		}
		columns = intersect(columns, declared)
	}

	rows := make([]map[string]any, 0, len(records))
	for _, rec := range records {
		var view any = rec
		if *collectRecap {
			view = rec.Recap()
		}
		row, err := jsonRow(view)
		if err != nil {
			serviceutil.Fatal("failed to encode record", err)
		}
		rows = append(rows, projectRow(row, columns))
	}

	err := withOutput(*collectOutput, func(w io.Writer) error {
		return writeRows(w, *collectFormat, columns, rows)
	})
	if err != nil {
		serviceutil.Fatal("failed to write output", err)
	}
}

func runCollectActivePlayers(ctx context.Context, c *collector.Collector, appids []string) {
	t := c.ActivePlayers(ctx, appids)

	err := withOutput(*collectOutput, func(w io.Writer) error {
		if *collectFormat == "json" {
			return writeJson(w, t)
		}
		return writeRows(w, *collectFormat, t.Columns, t.Rows)
	})
	if err != nil {
		serviceutil.Fatal("failed to write output", err)
	}
}

// gatherAppids merges --appid values with the ids listed in
// --appid-file, deduplicating while keeping first-seen order.
func gatherAppids(flagIds []string, path string) ([]string, error) {
	ids := slices.Clone(flagIds)
	if path != "" {
		contents, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		ids = append(ids, splitAppidList(string(contents))...)
	}
	return dedupe(ids), nil
}

// splitAppidList accepts newline or comma separated ids.
func splitAppidList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == '\n' || r == '\r' || r == ','
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f != "" {
			out = append(out, f)
		}
	}
	return out
}

func dedupe(ids []string) []string {
	seen := map[string]bool{}
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
