package command

import (
	"bufio"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"kaimaku/cmd/cli/authentication"
	"kaimaku/cmd/cli/command/client"
	"kaimaku/internal/microservices/http-api/dto"
)

// registerCmd represents the register command
var registerCmd = &cobra.Command{
	Use:   "register",
	Short: "Create a kaimaku account",
	Long: `Create a kaimaku account. The server asks a small arithmetic question first;
answer it when prompted, or pass --answer.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")
		answer, _ := cmd.Flags().GetString("answer")

		c := newClient()
		challenge, err := c.Captcha(cmd.Context())
		if err != nil {
			return fmt.Errorf("could not fetch the verification question: %w", err)
		}

		if answer == "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Verification: %s ", challenge.Question)
			line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
			if err != nil && line == "" {
				return fmt.Errorf("no answer given")
			}
			answer = strings.TrimSpace(line)
		}
		if _, err := strconv.ParseFloat(answer, 64); err != nil {
			return fmt.Errorf("the answer must be a number")
		}

		session, err := c.Register(cmd.Context(), dto.RegisterRequest{
			Username:      username,
			Password:      password,
			CaptchaID:     challenge.CaptchaID,
			CaptchaAnswer: json.Number(answer),
		})
		if err != nil {
			return fmt.Errorf("registration failed: %w", err)
		}
		if err := saveSession(session); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Registered and logged in as %s\n", session.Username)
		return nil
	},
}

// loginCmd represents the login command
var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to your kaimaku account",
	RunE: func(cmd *cobra.Command, args []string) error {
		username, _ := cmd.Flags().GetString("username")
		password, _ := cmd.Flags().GetString("password")

		session, err := newClient().Login(cmd.Context(), dto.LoginRequest{Username: username, Password: password})
		if err != nil {
			return fmt.Errorf("login failed: %w", err)
		}
		if err := saveSession(session); err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Logged in as %s\n", session.Username)
		return nil
	},
}

// logoutCmd represents the logout command
var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of your kaimaku account",
	RunE: func(cmd *cobra.Command, args []string) error {
		if currentSession() != nil {
			if err := newClient().Logout(cmd.Context()); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Warning: server logout failed: %v\n", err)
			}
		}
		if err := authentication.DeleteSession(); err != nil {
			return fmt.Errorf("could not clear stored session: %w", err)
		}
		fmt.Fprintln(cmd.OutOrStdout(), "✓ Logged out.")
		return nil
	},
}

// meCmd shows who the stored session belongs to
var meCmd = &cobra.Command{
	Use:   "me",
	Short: "Show the logged-in user",
	RunE: func(cmd *cobra.Command, args []string) error {
		if currentSession() == nil {
			fmt.Fprintln(cmd.OutOrStdout(), "Not logged in.")
			return nil
		}
		me, err := newClient().Me(cmd.Context())
		if err != nil {
			forgetExpiredSession(cmd, err)
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", me.Username)
		return nil
	},
}

func saveSession(s *client.Session) error {
	err := authentication.StoreSession(&authentication.StoredSession{
		Token:     s.Token,
		Username:  s.Username,
		ExpiresAt: s.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("could not store session in the keyring: %w", err)
	}
	return nil
}

func init() {
	rootCmd.AddCommand(registerCmd, loginCmd, logoutCmd, meCmd)

	registerCmd.Flags().StringP("username", "u", "", "Username for the new account (3-20 characters)")
	registerCmd.Flags().StringP("password", "p", "", "Password for the new account (at least 6 characters)")
	registerCmd.Flags().String("answer", "", "Answer to the verification question")
	registerCmd.MarkFlagRequired("username")
	registerCmd.MarkFlagRequired("password")

	loginCmd.Flags().StringP("username", "u", "", "Username for the account")
	loginCmd.Flags().StringP("password", "p", "", "Password for the account")
	loginCmd.MarkFlagRequired("username")
	loginCmd.MarkFlagRequired("password")
}
