package command

import (
	"fmt"

	"github.com/spf13/cobra"
)

var featuredCmd = &cobra.Command{
	Use:   "featured",
	Short: "List this season's openings",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		resp, err := newClient().Featured(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not load featured openings: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(resp.Items) == 0 {
			fmt.Fprintf(out, "Nothing playable for %s %d yet.\n", resp.Season, resp.Year)
			return nil
		}

		rows := make([][]string, 0, len(resp.Items))
		for _, item := range resp.Items {
			song := ""
			if item.Theme.Song != nil {
				song = songLine(item.Theme.Song.Title, item.Theme.Song.ArtistNames())
			}
			rows = append(rows, []string{item.Anime.Name, item.Theme.Slug, song, item.Anime.Slug})
		}
		fmt.Fprintf(out, "%s %d\n", resp.Season, resp.Year)
		fmt.Fprintln(out, renderTable([]string{"Anime", "Theme", "Song", "Slug"}, rows, nil))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(featuredCmd)
}
