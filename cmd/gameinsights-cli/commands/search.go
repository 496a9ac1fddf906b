package commands

import (
	"fmt"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"gameinsights-backend/internal/gamesearch"
	"gameinsights-backend/internal/telemetry"
	"gameinsights-backend/lib/serviceutil"
)

var searchLimit *int

func init() {
	searchLimit = searchCmd.Flags().Int("limit", 5, "Maximum matches printed.")
	rootCmd.AddCommand(searchCmd)
}

var searchCmd = &cobra.Command{
	Use:   "search <name>",
	Short: "Fuzzy-matches a game name against the steam app list.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		s := gamesearch.New(telemetry.SlogAPI{}, gamesearch.Options{})
		matches, err := s.Search(cmd.Context(), args[0], *searchLimit)
		if err != nil {
			serviceutil.Fatal("search failed", err)
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(table.Row{"Appid", "Name", "Score"})
		for _, m := range matches {
			t.AppendRow(table.Row{m.Appid, m.Name, fmt.Sprintf("%.2f", m.Score)})
		}
		t.Render()
	},
}
