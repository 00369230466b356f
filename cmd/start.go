package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/logger"
	"github.com/fakeyudi/moodwatch/internal/session"
	"github.com/fakeyudi/moodwatch/internal/video"
)

var startCheckFeed bool

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Ask the service to start a session and leave it running",
	Long: `Start a server-mode session on the emotion service and return.
The session keeps running on the service until 'moodwatch stop'.
For a live view, or to push frames from a local camera, use 'moodwatch watch'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}

		rec, err := store.Load()
		if err != nil && !errors.Is(err, session.ErrNoSession) {
			return err
		}
		if rec != nil {
			return fmt.Errorf("session already in progress (started at %s)", rec.StartTime.Format(time.RFC3339))
		}

		rp, err := cfg.Refresh()
		if err != nil {
			return err
		}
		mode, _, err := resolveMode(rp)
		if err != nil {
			return err
		}
		if mode == video.ModeClient {
			return fmt.Errorf("client video needs a running process to push frames; use 'moodwatch watch --video client'")
		}

		client, err := newClient()
		if err != nil {
			return err
		}
		if err := session.StartRemote(cmd.Context(), client); err != nil {
			logger.Error("session start failed", "server", client.BaseURL(), "err", err)
			return loginHint(err)
		}

		rec = &session.Record{
			ID:          uuid.NewString(),
			StartTime:   time.Now(),
			Server:      client.BaseURL(),
			VideoMode:   mode.String(),
			Profile:     cfg.Profile,
			Annotations: []session.Annotation{},
		}
		if err := store.Save(rec); err != nil {
			return err
		}

		logger.Info("session started", "session", rec.ID, "server", rec.Server, "mode", mode)

		if startCheckFeed {
			err := withSpinner(cmd.ErrOrStderr(), "waiting for video", func() error {
				feed, err := video.OpenServerFeed(cmd.Context(), client.VideoFeed, cfg.FeedFallback.Std())
				if err != nil {
					return err
				}
				cmd.Printf("Video feed up (%d frames).\n", feed.Frames())
				return feed.Release()
			})
			if err != nil {
				camErr := &session.CameraUnavailableError{Mode: mode, Err: err}
				logger.Error("video acquisition failed", "mode", mode, "err", camErr)
				return fmt.Errorf("%w; the service session is still running, 'moodwatch stop' ends it", camErr)
			}
		}

		cmd.Println("Session started.")
		return nil
	},
}

func init() {
	startCmd.Flags().BoolVar(&startCheckFeed, "check-video", false, "wait for the server video feed before returning")
	rootCmd.AddCommand(startCmd)
}
