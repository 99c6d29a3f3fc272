package command

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var randomCmd = &cobra.Command{
	Use:   "random",
	Short: "Play a random opening from a popular series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		playable, err := newClient().Random(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not pick a random opening: %w", err)
		}
		return showPlayable(cmd, playable)
	},
}

var trendingCmd = &cobra.Command{
	Use:   "trending",
	Short: "List popular series ranked by rating count",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadState()
		if err != nil {
			return err
		}
		resp, err := newClient().Trending(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not load trending openings: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(resp.Results) == 0 {
			fmt.Fprintln(out, "Nothing is trending right now.")
			return nil
		}

		var rows [][]string
		for _, r := range resp.Results {
			title := r.Name
			for _, op := range r.Openings {
				rows = append(rows, []string{
					title,
					op.Label,
					songLine(op.SongTitle, op.Artists),
					formatAverage(op.Average, op.Count),
					formatMine(op.ThemeID, op.MyRating, st.Ratings),
					r.Slug,
				})
				title = ""
			}
		}
		fmt.Fprintf(out, "Trending from %s\n", strings.Join(resp.Queries, ", "))
		fmt.Fprintln(out, renderTable(
			[]string{"Anime", "Theme", "Song", "Average", "Mine", "Slug"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
		))
		return nil
	},
}

var dailyCmd = &cobra.Command{
	Use:   "daily [query]",
	Short: "Show the opening of the day",
	Long: `Show the opening of the day. Everyone gets the same pick for a given
date. A query picks from that series instead of the default one.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().Daily(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return fmt.Errorf("could not load the daily opening: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Opening of the day, %s (day %d, from %q)\n", resp.Date, resp.Day, resp.Query)
		return showPlayable(cmd, &resp.Opening)
	},
}

func init() {
	rootCmd.AddCommand(randomCmd, trendingCmd, dailyCmd)

	randomCmd.Flags().Bool("open", false, "Open the video in a local player")
	dailyCmd.Flags().Bool("open", false, "Open the video in a local player")
}
