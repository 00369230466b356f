package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/config"
	"github.com/fakeyudi/moodwatch/internal/profile"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Configure moodwatch (re-run anytime to edit settings)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSetup(cmd, false)
	},
}

// runSetup runs the interactive setup wizard.
// If firstRun is true, a welcome message is shown.
func runSetup(cmd *cobra.Command, firstRun bool) error {
	out := cmd.OutOrStdout()
	if firstRun {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "  Let's get you set up.")
	}

	// Load existing profile as defaults if present.
	var existing *profile.Profile
	if profile.Exists() {
		if p, err := profile.Load(); err == nil {
			existing = p
		}
	}

	// Offer configured refresh profiles too.
	global, err := config.LoadGlobal()
	if err != nil {
		return fmt.Errorf("loading global config: %w", err)
	}
	project, err := config.LoadProject()
	if err != nil {
		return fmt.Errorf("loading project config: %w", err)
	}
	merged := config.Merge(global, project)

	prof, err := profile.RunSetup(existing, merged.ProfileNames(), cmd.InOrStdin(), out)
	if err != nil {
		return fmt.Errorf("setup cancelled: %w", err)
	}
	if err := profile.Save(prof); err != nil {
		return fmt.Errorf("saving profile: %w", err)
	}
	fmt.Fprintln(out, "  ✓ Profile saved.")
	if prof.Username != "" {
		fmt.Fprintf(out, "  Next: moodwatch login %s\n", prof.Username)
	}
	fmt.Fprintln(out, "  Setup complete. Run 'moodwatch watch' to begin a session.")
	fmt.Fprintln(out)
	return nil
}

func init() {
	rootCmd.AddCommand(setupCmd)
}
