package command

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"kaimaku/internal/catalog"
	"kaimaku/internal/microservices/http-api/dto"
	"kaimaku/internal/player"
)

var playCmd = &cobra.Command{
	Use:   "play <anime-slug>",
	Short: "Resolve the best video of an opening",
	Long: `Resolve an anime's opening to its best video and print the URL. Without
--sequence or --theme the first opening is used. --open hands the video to
mpv, vlc or the system opener.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var req dto.PlayRequest
		if cmd.Flags().Changed("sequence") {
			seq, _ := cmd.Flags().GetInt("sequence")
			req.Sequence = &seq
		}
		req.ThemeSlug, _ = cmd.Flags().GetString("theme")

		playable, err := newClient().Play(cmd.Context(), args[0], req)
		if err != nil {
			return fmt.Errorf("could not resolve video: %w", err)
		}

		return showPlayable(cmd, playable)
	},
}

// showPlayable prints a resolved opening and, with --open, plays it.
func showPlayable(cmd *cobra.Command, playable *catalog.Playable) error {
	out := cmd.OutOrStdout()
	name := playable.Anime.Name
	if playable.Title != "" && playable.Title != name {
		name += " (" + playable.Title + ")"
	}
	fmt.Fprintf(out, "%s %s\n", name, playable.Theme.Slug)
	if playable.Theme.Song != nil {
		fmt.Fprintf(out, "  %s\n", songLine(playable.Theme.Song.Title, playable.Theme.Song.ArtistNames()))
	}
	fmt.Fprintf(out, "  theme id: %s\n", playable.ThemeID)
	fmt.Fprintln(out, playable.VideoURL)

	if open, _ := cmd.Flags().GetBool("open"); open {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		return openVideo(ctx, cmd.ErrOrStderr(), playable.VideoURL)
	}
	return nil
}

// openVideo runs an external player for url and tracks it through a
// player session. The session's cleanup stops the process.
func openVideo(ctx context.Context, log io.Writer, url string) error {
	bin, args, err := playerCommand(url)
	if err != nil {
		return err
	}

	p := player.New(player.WithObserver(func(from, to player.State) {
		fmt.Fprintf(log, "player: %s -> %s\n", from, to)
	}))
	proc := exec.CommandContext(ctx, bin, args...)
	p.Load(url, func() {
		if proc.Process != nil {
			_ = proc.Process.Kill()
		}
	})

	if err := proc.Start(); err != nil {
		_ = p.Fail(err)
		return fmt.Errorf("could not start %s: %w", bin, err)
	}
	// The external player buffers on its own; from here the clip counts as
	// playable.
	_ = p.Report(player.Progress{BufferedEnd: player.MinBufferAhead})

	// An interrupt kills the process through ctx; that is a normal exit.
	if err := proc.Wait(); err != nil && !errors.Is(ctx.Err(), context.Canceled) {
		_ = p.Fail(err)
		return fmt.Errorf("%s exited: %w", bin, err)
	}
	p.Close()
	return nil
}

// playerCommand picks the first available player.
func playerCommand(url string) (string, []string, error) {
	for _, candidate := range []struct {
		bin  string
		args []string
	}{
		{"mpv", []string{"--force-window=yes", url}},
		{"vlc", []string{"--play-and-exit", url}},
	} {
		if path, err := exec.LookPath(candidate.bin); err == nil {
			return path, candidate.args, nil
		}
	}

	opener := "xdg-open"
	switch runtime.GOOS {
	case "darwin":
		opener = "open"
	case "windows":
		return "rundll32", []string{"url.dll,FileProtocolHandler", url}, nil
	}
	if path, err := exec.LookPath(opener); err == nil {
		return path, []string{url}, nil
	}
	return "", nil, fmt.Errorf("no video player found; install mpv or open the URL above")
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().Int("sequence", 0, "Opening number (OP<n>)")
	playCmd.Flags().String("theme", "", "Theme slug, e.g. OP2")
	playCmd.Flags().Bool("open", false, "Open the video in a local player")
}
