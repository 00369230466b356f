package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/moodwatch/internal/api"
	"github.com/fakeyudi/moodwatch/internal/config"
	"github.com/fakeyudi/moodwatch/internal/logger"
	"github.com/fakeyudi/moodwatch/internal/metrics"
	"github.com/fakeyudi/moodwatch/internal/session"
	"github.com/fakeyudi/moodwatch/internal/tui"
)

var watchFor time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Run a live session with periodic emotion updates",
	Long: `Open the live session screen. Start and stop sessions with the keys shown
at the bottom; each stopped session writes a report.

With --plain (or when stdout is not a terminal) a session starts right away,
summaries are printed as they arrive and Ctrl+C stops it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := session.NewStore()
		if err != nil {
			return err
		}
		if rec, err := store.Load(); err == nil {
			return fmt.Errorf("session already in progress (started at %s); run 'moodwatch stop' first", rec.StartTime.Format(time.RFC3339))
		} else if !errors.Is(err, session.ErrNoSession) {
			return err
		}

		rp, err := cfg.Refresh()
		if err != nil {
			return err
		}
		if _, _, err := resolveMode(rp); err != nil {
			return err
		}
		client, err := newClient()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		if cfg.MetricsAddr != "" {
			go func() {
				if err := metrics.Serve(ctx, cfg.MetricsAddr); err != nil {
					logger.Error("metrics server failed", "addr", cfg.MetricsAddr, "err", err)
				}
			}()
		}

		w := &watcher{cmd: cmd, store: store, client: client, refresh: rp}
		if !plainFlag && term.IsTerminal(os.Stdout.Fd()) {
			return w.runTUI(ctx)
		}
		return w.runPlain(ctx)
	},
}

// watcher drives one watch command: it owns the controller and keeps the
// on-disk record in step with the live session.
type watcher struct {
	cmd     *cobra.Command
	store   session.Store
	client  *api.Client
	refresh config.RefreshProfile

	mu      sync.Mutex
	reports []string
}

func (w *watcher) controller(view session.View) *session.Controller {
	return session.NewController(session.Options{
		API:     w.client,
		Acquire: acquirer(w.client),
		View:    view,
		Intervals: session.Intervals{
			Pull: w.refresh.PullInterval.Std(),
			Push: w.refresh.PushInterval.Std(),
		},
		Encoder: captureProfile().Encoder(),
		Logger:  logger.Default(),
	})
}

// started records the live session on disk so status, note and stop see it.
func (w *watcher) started(sess *session.Session) {
	rec := &session.Record{
		ID:          sess.ID,
		StartTime:   sess.StartedAt,
		Server:      w.client.BaseURL(),
		VideoMode:   sess.Mode.String(),
		Profile:     cfg.Profile,
		Annotations: []session.Annotation{},
		PID:         os.Getpid(),
	}
	if err := w.store.Save(rec); err != nil {
		logger.Warn("saving session record", "session", sess.ID, "err", err)
	}
}

// stopped writes the report for sess and clears the record.
func (w *watcher) stopped(sess *session.Session, stopErr error) {
	rec, err := w.store.Load()
	if err != nil || rec.ID != sess.ID {
		// Notes added from another terminal live in the record; without it
		// the report is built from the session alone.
		rec = &session.Record{
			ID:        sess.ID,
			StartTime: sess.StartedAt,
			Server:    w.client.BaseURL(),
			VideoMode: sess.Mode.String(),
			Profile:   cfg.Profile,
		}
	}
	stop := sess.StoppedAt
	if stop.IsZero() {
		stop = time.Now()
	}
	rec.StopTime = &stop

	path, err := writeReport(rec, sess.Stats, "")
	if err != nil {
		logger.Error("writing session report", "session", sess.ID, "err", err)
	} else {
		w.mu.Lock()
		w.reports = append(w.reports, path)
		w.mu.Unlock()
		logger.Info("report written", "session", sess.ID, "path", path, "stop_err", stopErr)
	}
	if err := w.store.Delete(); err != nil {
		logger.Warn("clearing session record", "err", err)
	}
}

// finish stops whatever is still running after the screen or loop has ended.
func (w *watcher) finish(ctrl *session.Controller) error {
	if ctrl.State() == session.Idle {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout.Std()+time.Second)
	defer cancel()
	sess, err := ctrl.Stop(ctx)
	if sess != nil {
		w.stopped(sess, err)
	}
	return err
}

func (w *watcher) printReports() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, p := range w.reports {
		w.cmd.Printf("Report: %s\n", p)
	}
}

func (w *watcher) runTUI(ctx context.Context) error {
	// The screen owns the terminal; log records go to a file meanwhile.
	dir, err := session.EnsureDataDir()
	if err != nil {
		return err
	}
	logPath := filepath.Join(dir, "moodwatch.log")
	f, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()
	logger.SetOutput(f)
	defer logger.SetOutput(os.Stderr)

	mode, pinned, _ := resolveMode(w.refresh)
	if !pinned {
		mode = ""
	}

	bridge := tui.NewBridge()
	ctrl := w.controller(bridge)
	runErr := tui.RunLive(ctx, bridge, tui.LiveOptions{
		Controller: ctrl,
		Mode:       mode,
		Server:     w.client.BaseURL(),
		Profile:    cfg.Profile,
		OnStarted:  w.started,
		OnStopped:  w.stopped,
	})
	stopErr := w.finish(ctrl)

	logger.SetOutput(os.Stderr)
	w.printReports()
	if runErr != nil {
		return runErr
	}
	if stopErr != nil {
		return loginHint(stopErr)
	}
	return nil
}

func (w *watcher) runPlain(ctx context.Context) error {
	mode, _, _ := resolveMode(w.refresh)
	view := &plainView{out: w.cmd.OutOrStdout(), errOut: w.cmd.ErrOrStderr()}
	ctrl := w.controller(view)

	err := withSpinner(w.cmd.ErrOrStderr(), "starting session", func() error {
		return ctrl.Start(ctx, mode)
	})
	if err != nil {
		return loginHint(err)
	}
	if sess := ctrl.Current(); sess != nil {
		w.started(sess)
		w.cmd.Printf("Session started (%s video, every %s). Press Ctrl+C to stop.\n",
			sess.Mode, session.Intervals{Pull: w.refresh.PullInterval.Std(), Push: w.refresh.PushInterval.Std()}.For(sess.Mode))
	}

	var deadline <-chan time.Time
	if watchFor > 0 {
		t := time.NewTimer(watchFor)
		defer t.Stop()
		deadline = t.C
	}
	select {
	case <-ctx.Done():
	case <-deadline:
	}

	err = w.finish(ctrl)
	w.printReports()
	if err != nil {
		return loginHint(err)
	}
	return nil
}

// plainView prints every rendered summary as a timestamped block.
type plainView struct {
	mu     sync.Mutex
	out    io.Writer
	errOut io.Writer
}

func (v *plainView) Controls(bool, bool) {}

func (v *plainView) Render(lines []string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.out, "── %s\n", time.Now().Format("15:04:05"))
	for _, l := range lines {
		fmt.Fprintln(v.out, l)
	}
}

func (v *plainView) Placeholder(text string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintln(v.out, text)
}

func (v *plainView) Alert(err error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fmt.Fprintf(v.errOut, "Error: %v\n", err)
}

func init() {
	watchCmd.Flags().DurationVar(&watchFor, "for", 0, "plain mode: stop after this long (default: until Ctrl+C)")
	rootCmd.AddCommand(watchCmd)
}
