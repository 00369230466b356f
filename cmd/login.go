package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/logger"
	"github.com/fakeyudi/moodwatch/internal/session"
)

var passwordStdin bool

var loginCmd = &cobra.Command{
	Use:   "login [username]",
	Short: "Log in to the emotion service and remember the session cookie",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		username := ""
		if len(args) == 1 {
			username = args[0]
		} else if activeProfile != nil {
			username = activeProfile.Username
		}
		if username == "" {
			return fmt.Errorf("no username given and none in the profile")
		}

		password, err := readPassword(cmd, username)
		if err != nil {
			return err
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.Login(cmd.Context(), username, password); err != nil {
			logger.Error("login failed", "server", client.BaseURL(), "user", username, "err", err)
			return err
		}

		store, err := session.NewCookieStore()
		if err != nil {
			return err
		}
		if err := store.Save(client.BaseURL(), client.Cookies()); err != nil {
			return err
		}
		logger.Info("logged in", "server", client.BaseURL(), "user", username)
		cmd.Printf("Logged in to %s as %s.\n", client.BaseURL(), username)
		return nil
	},
}

// readPassword reads the password without echo from a terminal, or as the
// first line of stdin with --password-stdin.
func readPassword(cmd *cobra.Command, username string) (string, error) {
	if passwordStdin || !term.IsTerminal(os.Stdin.Fd()) {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return "", fmt.Errorf("reading password: %w", err)
		}
		return strings.TrimRight(line, "\r\n"), nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Password for %s: ", username)
	pw, err := term.ReadPassword(os.Stdin.Fd())
	fmt.Fprintln(cmd.OutOrStdout())
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pw), nil
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Log out of the emotion service and forget the session cookie",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newClient()
		if err != nil {
			return err
		}
		if err := client.Logout(cmd.Context()); err != nil {
			logger.Warn("logout request failed", "server", client.BaseURL(), "err", err)
		}
		store, err := session.NewCookieStore()
		if err != nil {
			return err
		}
		if err := store.Clear(); err != nil {
			return err
		}
		cmd.Println("Logged out.")
		return nil
	},
}

func init() {
	loginCmd.Flags().BoolVar(&passwordStdin, "password-stdin", false, "read the password from stdin")
	rootCmd.AddCommand(loginCmd, logoutCmd)
}
