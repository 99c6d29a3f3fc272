package command

// root.go defines the root command for the kaimaku CLI and the helpers every
// subcommand shares.

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"kaimaku/cmd/cli/authentication"
	"kaimaku/cmd/cli/command/client"
	"kaimaku/cmd/cli/command/state"
)

// Client-side cooldowns
const (
	searchCooldown = 1 * time.Second
	ratingCooldown = 500 * time.Millisecond
)

var (
	apiURL    string // Global flag for API server URL
	statePath string // local state file
)

// now is replaced in tests.
var now = time.Now

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "kaimaku",
	Short: "kaimaku - anime opening search and ratings",
	Long: `kaimaku searches the animethemes.moe catalog for anime openings, resolves
the best video for each one, and keeps your ratings locally and on the
kaimaku server.

Use "kaimaku command --help" to see the options of a command.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	defaultAPI := os.Getenv("KAIMAKU_API")
	if defaultAPI == "" {
		defaultAPI = "http://localhost:3000"
	}
	rootCmd.PersistentFlags().StringVar(&apiURL, "api", defaultAPI, "API server URL")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", state.DefaultPath(), "local state file")
}

// newClient returns an API client carrying the stored session, if any.
func newClient() *client.HTTPClient {
	c := client.NewHTTPClient(apiURL)
	if s, err := authentication.GetSession(); err == nil && s != nil && !s.Expired(now()) {
		c.SetToken(s.Token)
	}
	return c
}

// currentSession returns the stored session, or nil when logged out.
func currentSession() *authentication.StoredSession {
	s, err := authentication.GetSession()
	if err != nil || s == nil || s.Expired(now()) {
		return nil
	}
	return s
}

func loadState() (*state.AppState, error) {
	s, err := state.Load(statePath)
	if err != nil {
		return nil, fmt.Errorf("could not read local state %s: %w", statePath, err)
	}
	return s, nil
}

// forgetExpiredSession drops the stored cookie after the server rejected it.
func forgetExpiredSession(cmd *cobra.Command, err error) {
	if client.IsUnauthorized(err) {
		_ = authentication.DeleteSession()
		fmt.Fprintln(cmd.ErrOrStderr(), "Your session has ended. Run 'kaimaku login' to sign in again.")
	}
}
