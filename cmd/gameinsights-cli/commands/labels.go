package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"gameinsights-backend/lib/serviceutil"
)

func init() {
	rootCmd.AddCommand(labelsCmd)
}

var labelsCmd = &cobra.Command{
	Use:   "labels",
	Short: "Prints the label vocabulary of every wired source, side by side.",
	Run: func(cmd *cobra.Command, args []string) {
		c, err := buildCollector()
		if err != nil {
			serviceutil.Fatal("failed to build collector", err)
		}
		srcs := c.Sources()

		header := table.Row{}
		maxLabels := 0
		for _, src := range srcs {
			header = append(header, src.Name())
			if n := len(src.ValidLabels()); n > maxLabels {
				maxLabels = n
			}
		}

		rows := make([]table.Row, maxLabels)
		for i := range rows {
			rows[i] = make(table.Row, len(srcs))
			for j := range rows[i] {
				rows[i][j] = ""
			}
		}
		for col, src := range srcs {
			for row, label := range src.ValidLabels() {
				rows[row][col] = label
			}
		}

		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.SetStyle(table.StyleRounded)
		t.AppendHeader(header)
		t.AppendRows(rows)
		t.Render()
	},
}
