package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gameinsights-backend/lib/serviceutil"
)

var (
	userIncludeFree *bool
	userFormat      *string
	userOutput      *string
)

func init() {
	flags := userCmd.Flags()
	userIncludeFree = flags.Bool("include-free-games", true, "Count free games in the playtime rollups.")
	userFormat = flags.String("format", "json", "Output format: json or table.")
	userOutput = flags.StringP("output", "o", "", "Write to this file instead of stdout.")
	rootCmd.AddCommand(userCmd)
}

var userCmd = &cobra.Command{
	Use:   "user <steamid>...",
	Short: "Fetches profile, owned-game and recent-playtime data for steam users.",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := buildCollector()
		if err != nil {
			serviceutil.Fatal("failed to build collector", err)
		}

		rows := c.UserData(cmd.Context(), args, *userIncludeFree)

		err = withOutput(*userOutput, func(w io.Writer) error {
			switch *userFormat {
			case "json":
				return writeJson(w, rows)
			case "table":
				renderTable(w, unionColumns(rows), rows)
				return nil
			default:
				return fmt.Errorf("format %q is not one of json, table", *userFormat)
			}
		})
		if err != nil {
			serviceutil.Fatal("failed to write output", err)
		}
	},
}
