package command

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"kaimaku/internal/leaderboard"
)

var topCmd = &cobra.Command{
	Use:   "top",
	Short: "Show the best-rated openings",
	Long: `Show the best-rated openings from the server's public averages. When the
server cannot be reached, or with --local, your own ratings are ranked instead.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		local, _ := cmd.Flags().GetBool("local")
		if limit < 1 || limit > 100 {
			return fmt.Errorf("--limit must be between 1 and 100")
		}

		var entries []leaderboard.Entry
		source := "public averages"
		if !local {
			var err error
			entries, err = newClient().Leaderboard(cmd.Context(), limit)
			if err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Server leaderboard unavailable (%v); using local ratings.\n", err)
				local = true
			}
		}
		if local {
			st, err := loadState()
			if err != nil {
				return err
			}
			entries = st.Leaderboard(limit)
			source = "your ratings"
		}

		out := cmd.OutOrStdout()
		if len(entries) == 0 {
			fmt.Fprintln(out, "No rated openings yet.")
			return nil
		}

		rows := make([][]string, 0, len(entries))
		for _, e := range entries {
			votes := "-"
			if e.Count > 0 {
				votes = strconv.FormatInt(e.Count, 10)
			}
			rows = append(rows, []string{
				strconv.Itoa(e.Rank),
				e.AnimeName,
				e.ThemeLabel,
				strconv.FormatFloat(e.Rating, 'f', 1, 64),
				votes,
			})
		}
		fmt.Fprintf(out, "Top openings (%s)\n", source)
		fmt.Fprintln(out, renderTable(
			[]string{"#", "Anime", "Theme", "Rating", "Votes"},
			rows,
			[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignRight},
		))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(topCmd)

	topCmd.Flags().Int("limit", leaderboard.DefaultSize, "How many openings to show")
	topCmd.Flags().Bool("local", false, "Rank your local ratings only")
}
