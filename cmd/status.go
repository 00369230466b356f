package cmd

import (
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/session"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the current session status",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}

		rec, err := store.Load()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				cmd.Println("no active session")
				return nil
			}
			return err
		}

		cmd.Printf("Session: %s\n", rec.ID)
		cmd.Printf("Server: %s\n", rec.Server)
		cmd.Printf("Video mode: %s\n", rec.VideoMode)
		if rec.Profile != "" {
			cmd.Printf("Profile: %s\n", rec.Profile)
		}
		cmd.Printf("Started: %s\n", rec.StartTime.Format(time.RFC3339))
		cmd.Printf("Duration: %s\n", time.Since(rec.StartTime).Round(time.Second).String())
		cmd.Printf("Annotations: %d\n", len(rec.Annotations))
		if rec.PID != 0 {
			cmd.Printf("Watcher pid: %d\n", rec.PID)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
