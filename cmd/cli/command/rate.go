package command

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kaimaku/internal/catalog"
	"kaimaku/internal/leaderboard"
	"kaimaku/internal/microservices/http-api/dto"
)

var rateCmd = &cobra.Command{
	Use:   "rate <theme-id> <rating>",
	Short: "Rate an opening from 0 to 10",
	Long: `Rate an opening from 0 to 10 in steps of 0.1. The rating is kept locally and,
when logged in, saved on the server. Theme ids are printed by search and play.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		themeID := args[0]
		value, err := strconv.ParseFloat(args[1], 64)
		if err != nil || math.IsNaN(value) || value < 0 || value > 10 {
			return fmt.Errorf("rating must be a number between 0 and 10")
		}
		value = math.Round(value*10) / 10

		st, err := loadState()
		if err != nil {
			return err
		}
		t := now()
		// Repeated changes to the same theme inside the cooldown are dropped.
		if !st.AllowRating(themeID, t, ratingCooldown) {
			return nil
		}

		meta := ratingMetadata(cmd, themeID)
		st.RecordRating(themeID, value, meta, t)
		if err := st.Save(); err != nil {
			return fmt.Errorf("could not save rating locally: %w", err)
		}

		out := cmd.OutOrStdout()
		if currentSession() == nil {
			fmt.Fprintf(out, "✓ Rated %s %.1f/10 (saved locally; log in to publish)\n", themeID, value)
			return nil
		}

		req := dto.SaveRatingRequest{
			ThemeID: themeID,
			Rating:  &value,
			Metadata: &dto.RatingMetadata{
				AnimeName:     meta.AnimeName,
				AnimeSlug:     meta.AnimeSlug,
				ThemeSequence: meta.ThemeSequence,
			},
		}
		saved, err := newClient().SaveRating(cmd.Context(), req)
		if err != nil {
			forgetExpiredSession(cmd, err)
			return fmt.Errorf("saved locally, but the server rejected the rating: %w", err)
		}

		fmt.Fprintf(out, "✓ Rated %s %.1f/10\n", themeID, value)
		if saved != nil {
			fmt.Fprintf(out, "  average %.1f from %d rating(s)\n", saved.Aggregated.Average, saved.Aggregated.Count)
		}
		return nil
	},
}

func ratingMetadata(cmd *cobra.Command, themeID string) leaderboard.Metadata {
	meta := leaderboard.Metadata{}
	meta.AnimeName, _ = cmd.Flags().GetString("anime")
	meta.AnimeSlug, _ = cmd.Flags().GetString("slug")
	meta.ThemeSequence, _ = cmd.Flags().GetInt("sequence")
	if meta.AnimeName == "" {
		meta.AnimeName = catalog.ParseThemeIDName(themeID)
	}
	// name_type_sequence_slug; the name itself may contain '_'
	if parts := strings.Split(themeID, "_"); len(parts) >= 4 {
		if meta.ThemeSequence == 0 {
			meta.ThemeSequence, _ = strconv.Atoi(parts[len(parts)-2])
		}
		meta.ThemeSlug = parts[len(parts)-1]
	}
	return meta
}

func init() {
	rootCmd.AddCommand(rateCmd)

	rateCmd.Flags().String("anime", "", "Anime name, kept for the leaderboard")
	rateCmd.Flags().String("slug", "", "Anime slug, kept for replay")
	rateCmd.Flags().Int("sequence", 0, "Opening number")
}
