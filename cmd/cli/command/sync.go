package command

import (
	"fmt"

	"github.com/spf13/cobra"

	"kaimaku/internal/leaderboard"
	"kaimaku/internal/microservices/http-api/dto"
)

// syncCmd restores the server's copy of your ratings into the local cache
var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Restore your ratings from the server",
	Long: `Replace the local ratings cache with the ratings stored on the server for
your account. Locally known anime names are kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if currentSession() == nil {
			return fmt.Errorf("not logged in; run 'kaimaku login' first")
		}

		mine, err := newClient().MyRatings(cmd.Context())
		if err != nil {
			forgetExpiredSession(cmd, err)
			return fmt.Errorf("could not fetch your ratings: %w", err)
		}

		st, err := loadState()
		if err != nil {
			return err
		}
		ratings, meta := fromServer(mine)
		st.ReplaceRatings(ratings, meta)
		if err := st.Save(); err != nil {
			return fmt.Errorf("could not save local state: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Restored %d rating(s) from the server\n", len(ratings))
		return nil
	},
}

func fromServer(mine map[string]dto.UserRating) (map[string]float64, map[string]leaderboard.Metadata) {
	ratings := make(map[string]float64, len(mine))
	meta := make(map[string]leaderboard.Metadata, len(mine))
	for id, r := range mine {
		ratings[id] = r.Rating
		var m leaderboard.Metadata
		if r.AnimeName != nil {
			m.AnimeName = *r.AnimeName
		}
		if r.AnimeSlug != nil {
			m.AnimeSlug = *r.AnimeSlug
		}
		if r.ThemeSequence != nil {
			m.ThemeSequence = *r.ThemeSequence
		}
		meta[id] = m
	}
	return ratings, meta
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
