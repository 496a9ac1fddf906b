package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"gameinsights-backend/internal/sources"
	"gameinsights-backend/lib/serviceutil"
)

var (
	reviewsFilter       *string
	reviewsLanguage     *string
	reviewsType         *string
	reviewsPurchaseType *string
	reviewsFormat       *string
	reviewsOutput       *string
)

func init() {
	flags := reviewsCmd.Flags()
	reviewsFilter = flags.String("filter", "", `Review sort order, "recent" when unset.`)
	reviewsLanguage = flags.String("review-language", "", `Review language, "all" when unset.`)
	reviewsType = flags.String("review-type", "", `positive, negative or all, "all" when unset.`)
	reviewsPurchaseType = flags.String("purchase-type", "", `steam, non_steam_purchase or all, "all" when unset.`)
	reviewsFormat = flags.String("format", "json", "Output format: json or csv.")
	reviewsOutput = flags.StringP("output", "o", "", "Write to this file instead of stdout.")
	rootCmd.AddCommand(reviewsCmd)
}

var reviewsCmd = &cobra.Command{
	Use:   "reviews <appid>",
	Short: "Walks every review page of a game and dumps the reviews.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c, err := buildCollector()
		if err != nil {
			serviceutil.Fatal("failed to build collector", err)
		}

		reviews, err := c.GameReviews(cmd.Context(), args[0], sources.ReviewQuery{
			Filter:       *reviewsFilter,
			Language:     *reviewsLanguage,
			ReviewType:   *reviewsType,
			PurchaseType: *reviewsPurchaseType,
		})
		if err != nil {
			serviceutil.Fatal("failed to fetch reviews", err)
		}

		err = withOutput(*reviewsOutput, func(w io.Writer) error {
			switch *reviewsFormat {
			case "json":
				return writeJson(w, reviews)
			case "csv":
				return writeCsv(w, unionColumns(reviews), reviews)
			default:
				return fmt.Errorf("format %q is not one of json, csv", *reviewsFormat)
			}
		})
		if err != nil {
			serviceutil.Fatal("failed to write output", err)
		}
	},
}
