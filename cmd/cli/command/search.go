package command

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kaimaku/internal/cooldown"
	"kaimaku/internal/microservices/http-api/dto"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search anime openings",
	Long: `Search the catalog for anime by name, English title or synonym and list their
openings with the public average and your own rating.

Sort modes: relevance, rating-desc, rating-asc, year-desc, year-asc,
alphabetical, popularity.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadState()
		if err != nil {
			return err
		}
		t := now()
		if ok, remaining := st.AllowSearch(t, searchCooldown); !ok {
			return fmt.Errorf("%s", cooldown.WaitMessage(remaining))
		}

		req, err := searchRequest(cmd, strings.Join(args, " "))
		if err != nil {
			return err
		}

		st.MarkSearch(t)
		if err := st.Save(); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Warning: could not save local state: %v\n", err)
		}

		resp, err := newClient().Search(cmd.Context(), req)
		if err != nil {
			return fmt.Errorf("search failed: %w", err)
		}
		printSearch(cmd, resp, st.Ratings)
		return nil
	},
}

func searchRequest(cmd *cobra.Command, query string) (dto.SearchRequest, error) {
	req := dto.SearchRequest{Query: query}
	req.Sort, _ = cmd.Flags().GetString("sort")
	req.Page, _ = cmd.Flags().GetInt("page")
	req.PageSize, _ = cmd.Flags().GetInt("page-size")
	req.Seasons, _ = cmd.Flags().GetStringSlice("season")

	if cmd.Flags().Changed("year-min") {
		v, _ := cmd.Flags().GetInt("year-min")
		req.YearMin = &v
	}
	if cmd.Flags().Changed("year-max") {
		v, _ := cmd.Flags().GetInt("year-max")
		req.YearMax = &v
	}
	if cmd.Flags().Changed("rating-min") {
		v, _ := cmd.Flags().GetFloat64("rating-min")
		req.RatingMin = &v
	}
	if cmd.Flags().Changed("rating-max") {
		v, _ := cmd.Flags().GetFloat64("rating-max")
		req.RatingMax = &v
	}
	if req.YearMin != nil && req.YearMax != nil && *req.YearMin > *req.YearMax {
		return req, fmt.Errorf("--year-min must not be after --year-max")
	}
	return req, nil
}

func printSearch(cmd *cobra.Command, resp *dto.SearchResponse, local map[string]float64) {
	out := cmd.OutOrStdout()
	if len(resp.Results) == 0 {
		fmt.Fprintln(out, "No openings match those filters.")
		return
	}

	var rows [][]string
	for _, r := range resp.Results {
		title := r.Name
		if r.EnglishTitle != "" && r.EnglishTitle != r.Name {
			title += " (" + r.EnglishTitle + ")"
		}
		for _, op := range r.Openings {
			rows = append(rows, []string{
				title,
				yearSeason(r.Year, r.Season),
				op.Label,
				songLine(op.SongTitle, op.Artists),
				formatAverage(op.Average, op.Count),
				formatMine(op.ThemeID, op.MyRating, local),
				r.Slug,
			})
			title = ""
		}
	}

	fmt.Fprintln(out, renderTable(
		[]string{"Anime", "Aired", "Theme", "Song", "Average", "Mine", "Slug"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	))
	fmt.Fprintf(out, "Page %d of %d (%d anime)\n", resp.Page, resp.TotalPages, resp.Total)
}

func yearSeason(year int, season string) string {
	switch {
	case year == 0:
		return season
	case season == "":
		return strconv.Itoa(year)
	default:
		return season + " " + strconv.Itoa(year)
	}
}

func songLine(title, artists string) string {
	if artists == "" {
		return title
	}
	return title + " by " + artists
}

func formatAverage(avg *float64, count int64) string {
	if avg == nil || count == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f (%d)", *avg, count)
}

// formatMine prefers the server's copy of the caller's rating, then the
// local cache.
func formatMine(themeID string, mine *float64, local map[string]float64) string {
	if mine != nil {
		return strconv.FormatFloat(*mine, 'f', 1, 64)
	}
	if v, ok := local[themeID]; ok {
		return strconv.FormatFloat(v, 'f', 1, 64)
	}
	return "-"
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().String("sort", "relevance", "Sort mode")
	searchCmd.Flags().Int("page", 1, "Result page")
	searchCmd.Flags().Int("page-size", 20, "Anime per page (max 50)")
	searchCmd.Flags().Int("year-min", 0, "Earliest year")
	searchCmd.Flags().Int("year-max", 0, "Latest year")
	searchCmd.Flags().StringSlice("season", nil, "Seasons to keep (Winter, Spring, Summer, Fall)")
	searchCmd.Flags().Float64("rating-min", 0, "Lowest rating to keep")
	searchCmd.Flags().Float64("rating-max", 10, "Highest rating to keep")
}
