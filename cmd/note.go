package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/session"
)

var noteCmd = &cobra.Command{
	Use:   "note <message>",
	Short: "Add a note to the current session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}

		rec, err := store.Load()
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return fmt.Errorf("no active session")
			}
			return err
		}

		rec.Annotations = append(rec.Annotations, session.Annotation{
			Timestamp: time.Now(),
			Message:   args[0],
			IsSummary: false,
		})
		if err := store.Save(rec); err != nil {
			return err
		}

		cmd.Println("Note added.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(noteCmd)
}
