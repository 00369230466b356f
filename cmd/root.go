package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/api"
	"github.com/fakeyudi/moodwatch/internal/config"
	"github.com/fakeyudi/moodwatch/internal/logger"
	"github.com/fakeyudi/moodwatch/internal/profile"
	"github.com/fakeyudi/moodwatch/internal/session"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

// activeProfile holds the loaded user profile.
var activeProfile *profile.Profile

// Persistent flags. They win over config files, environment and profile.
var (
	serverFlag      string
	profileFlag     string
	videoFlag       string
	verboseFlag     bool
	plainFlag       bool
	metricsAddrFlag string
)

var rootCmd = &cobra.Command{
	Use:           "moodwatch",
	Short:         "Drive emotion-detection sessions from the terminal",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logger.SetVerbose(verboseFlag)

		// Skip setup check for the setup command itself.
		if cmd.Name() == "setup" {
			return nil
		}

		// First-run: profile missing → run setup wizard automatically.
		// Only do this when stdin is an interactive terminal.
		if !profile.Exists() && term.IsTerminal(os.Stdin.Fd()) {
			fmt.Fprintln(cmd.OutOrStdout())
			fmt.Fprintln(cmd.OutOrStdout(), "  Welcome to moodwatch! Looks like this is your first time.")
			if err := runSetup(cmd, true); err != nil {
				return err
			}
		}

		if profile.Exists() {
			p, err := profile.Load()
			if err != nil {
				return fmt.Errorf("loading profile: %w", err)
			}
			activeProfile = p
		}

		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)
		applyProfile(&cfg, activeProfile)
		config.ApplyEnv(&cfg)

		if serverFlag != "" {
			cfg.Server = serverFlag
		}
		if profileFlag != "" {
			cfg.Profile = profileFlag
		}
		if metricsAddrFlag != "" {
			cfg.MetricsAddr = metricsAddrFlag
		}
		logger.Debug("configuration loaded", "server", cfg.Server, "profile", cfg.Profile)
		return nil
	},
}

// applyProfile lets profile values fill config fields still at their defaults.
func applyProfile(c *config.Config, p *profile.Profile) {
	if p == nil {
		return
	}
	d := config.Defaults()
	if c.Server == d.Server && p.Server != "" {
		c.Server = p.Server
	}
	if c.Profile == d.Profile && p.RefreshProfile != "" {
		c.Profile = p.RefreshProfile
	}
	if c.VideoMode == d.VideoMode && p.VideoMode != "" {
		c.VideoMode = p.VideoMode
	}
	if c.ReportFormat == d.ReportFormat && p.ReportFormat != "" {
		c.ReportFormat = p.ReportFormat
	}
	if c.ReportDir == "" {
		c.ReportDir = p.ReportDir
	}
}

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetOut(os.Stdout)
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

// GetProfile returns the active user profile.
func GetProfile() *profile.Profile {
	return activeProfile
}

func author() string {
	if activeProfile == nil {
		return ""
	}
	return activeProfile.Name
}

// newClient builds an API client for the configured server with the saved
// login cookies restored.
func newClient() (*api.Client, error) {
	client, err := api.New(cfg.Server, api.WithTimeout(cfg.RequestTimeout.Std()))
	if err != nil {
		return nil, err
	}
	store, err := session.NewCookieStore()
	if err != nil {
		return nil, err
	}
	cookies, err := store.Load(client.BaseURL())
	if err != nil {
		logger.Warn("ignoring saved login", "err", err)
		return client, nil
	}
	client.SetCookies(cookies)
	return client, nil
}

// loginHint adds a pointer to the login command to unauthorized errors.
func loginHint(err error) error {
	if api.IsUnauthorized(err) {
		return fmt.Errorf("%w (run 'moodwatch login' first)", err)
	}
	return err
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&serverFlag, "server", "", "emotion service URL (default http://127.0.0.1:5000)")
	pf.StringVar(&profileFlag, "profile", "", "refresh profile: classic, interactive or a configured one")
	pf.StringVar(&videoFlag, "video", "", "video mode: server or client")
	pf.BoolVarP(&verboseFlag, "verbose", "v", false, "debug logging")
	pf.BoolVar(&plainFlag, "plain", false, "plain text output instead of TUI")
	pf.StringVar(&metricsAddrFlag, "metrics-addr", "", "serve Prometheus metrics on this address (e.g. :9090)")
}
