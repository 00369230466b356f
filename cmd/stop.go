package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/logger"
	"github.com/fakeyudi/moodwatch/internal/report"
	"github.com/fakeyudi/moodwatch/internal/session"
	"github.com/fakeyudi/moodwatch/internal/video"
)

var (
	stopMessage string
	stopFormat  string
	stopForce   bool
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the current session and write its report",
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
		if rec.PID != 0 && rec.PID != os.Getpid() && processAlive(rec.PID) && !stopForce {
			return fmt.Errorf("session is driven by 'moodwatch watch' (pid %d); stop it there or pass --force", rec.PID)
		}

		client, err := newClient()
		if err != nil {
			return err
		}

		// One last summary so the report has something to show.
		var stats session.Stats
		if rec.VideoMode == video.ModeServer.String() {
			if sum, err := client.Summary(cmd.Context()); err != nil {
				logger.Warn("final summary fetch failed", "session", rec.ID, "err", err)
			} else {
				stats.Add(*sum, time.Now())
			}
		}

		// Tell the service even if the command is being interrupted.
		stopCtx, cancel := context.WithTimeout(context.WithoutCancel(cmd.Context()), cfg.RequestTimeout.Std())
		defer cancel()
		var stopErr error
		if err := client.StopSession(stopCtx); err != nil {
			stopErr = &session.SessionStopError{Err: err}
			logger.Error("session stop failed", "session", rec.ID, "err", err)
		}

		now := time.Now()
		rec.StopTime = &now
		if stopMessage != "" {
			rec.Annotations = append(rec.Annotations, session.Annotation{
				Timestamp: now,
				Message:   stopMessage,
				IsSummary: true,
			})
		}

		path, err := writeReport(rec, stats, stopFormat)
		if err != nil {
			return err
		}
		if err := store.Delete(); err != nil {
			return err
		}

		if stopErr != nil {
			cmd.PrintErrf("warning: %v\n", loginHint(stopErr))
		}
		logger.Info("session stopped", "session", rec.ID, "report", path)
		cmd.Printf("Session stopped. Output: %s\n", path)
		return stopErr
	},
}

// writeReport renders the session report into the configured directory.
// format overrides the configured report format when set.
func writeReport(rec *session.Record, stats session.Stats, format string) (string, error) {
	if format == "" {
		format = cfg.ReportFormat
	}
	dir := cfg.ReportDir
	if dir == "" {
		data, err := session.DataDir()
		if err != nil {
			return "", err
		}
		dir = filepath.Join(data, "reports")
	}
	return report.Write(report.Build(rec, stats, author()), dir, format)
}

// processAlive reports whether pid names a running process.
func processAlive(pid int) bool {
	p, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return p.Signal(syscall.Signal(0)) == nil
}

func init() {
	stopCmd.Flags().StringVarP(&stopMessage, "message", "m", "", "Summary annotation to include in the report")
	stopCmd.Flags().StringVar(&stopFormat, "format", "", "Output format: markdown or json (overrides config)")
	stopCmd.Flags().BoolVar(&stopForce, "force", false, "stop a session owned by another watch process")
	rootCmd.AddCommand(stopCmd)
}
