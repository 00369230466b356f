package session

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fakeyudi/moodwatch/internal/api"
	"github.com/fakeyudi/moodwatch/internal/logger"
	"github.com/fakeyudi/moodwatch/internal/metrics"
	"github.com/fakeyudi/moodwatch/internal/render"
	"github.com/fakeyudi/moodwatch/internal/video"
)

// State is the controller's lifecycle position.
type State int

const (
	Idle State = iota
	Starting
	Active
	Stopping
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Starting:
		return "starting"
	case Active:
		return "active"
	case Stopping:
		return "stopping"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// API is the part of the service the controller drives.
type API interface {
	StartSession(ctx context.Context) (*api.StartResponse, error)
	StopSession(ctx context.Context) error
	Summary(ctx context.Context) (*api.Summary, error)
	Predict(ctx context.Context, dataURI string) (*api.Summary, error)
}

// Starter opens a session on the service.
type Starter interface {
	StartSession(ctx context.Context) (*api.StartResponse, error)
}

// StartRemote asks the service to start a session. Any failure is a *SessionStartError.
func StartRemote(ctx context.Context, s Starter) error {
	resp, err := s.StartSession(ctx)
	if err != nil {
		return startError(nil, err)
	}
	if !resp.Success {
		return startError(resp, nil)
	}
	return nil
}

// View receives everything the user sees. Calls may come from any goroutine.
type View interface {
	// Controls sets which of the start/stop actions are available.
	Controls(startEnabled, stopEnabled bool)
	Render(lines []string)
	Placeholder(text string)
	// Alert reports a failure that the user has to acknowledge.
	Alert(err error)
}

// NopView discards all output.
type NopView struct{}

func (NopView) Controls(bool, bool) {}
func (NopView) Render([]string)     {}
func (NopView) Placeholder(string)  {}
func (NopView) Alert(error)         {}

// Ticker is the subset of time.Ticker the refresh loop uses.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

type timeTicker struct{ t *time.Ticker }

func (t timeTicker) C() <-chan time.Time { return t.t.C }
func (t timeTicker) Stop()               { t.t.Stop() }

// NewTimeTicker wraps time.NewTicker.
func NewTimeTicker(d time.Duration) Ticker { return timeTicker{time.NewTicker(d)} }

// Intervals are the refresh periods per mode.
type Intervals struct {
	Pull time.Duration // server mode: GET /get_emotion_summary
	Push time.Duration // client mode: POST /predict_emotion
}

// For returns the period used for mode m.
func (i Intervals) For(m video.Mode) time.Duration {
	if m == video.ModeClient {
		return i.Push
	}
	return i.Pull
}

// Options wires a Controller to its collaborators.
type Options struct {
	API     API
	Acquire func(ctx context.Context, mode video.Mode) (video.Feed, error)
	View    View
	// Intervals default to 2s each when zero.
	Intervals Intervals
	Encoder   video.Encoder
	NewTicker func(time.Duration) Ticker
	Logger    *slog.Logger
	Now       func() time.Time
	NewID     func() string
}

// Stats aggregate the summaries rendered during a session.
type Stats struct {
	Cycles    int            `json:"cycles"`
	Failed    int            `json:"failed_cycles"`
	Discarded int            `json:"discarded_results"`
	PeakFaces int            `json:"peak_faces"`
	Emotions  map[string]int `json:"emotion_totals"`
	Last      *api.Summary   `json:"last_summary,omitempty"`
	LastAt    time.Time      `json:"last_at,omitempty"`
}

// Add folds one rendered summary into the aggregates.
func (s *Stats) Add(sum api.Summary, at time.Time) {
	s.Cycles++
	if sum.TotalFaces > s.PeakFaces {
		s.PeakFaces = sum.TotalFaces
	}
	if s.Emotions == nil {
		s.Emotions = make(map[string]int)
	}
	for label, n := range sum.Emotions {
		s.Emotions[label] += n
	}
	last := sum
	s.Last = &last
	s.LastAt = at
}

func (s Stats) clone() Stats {
	out := s
	if s.Emotions != nil {
		out.Emotions = make(map[string]int, len(s.Emotions))
		for k, v := range s.Emotions {
			out.Emotions[k] = v
		}
	}
	if s.Last != nil {
		last := *s.Last
		out.Last = &last
	}
	return out
}

// MostCommon returns the emotion with the highest running total. Ties go to the
// alphabetically first label. ok is false when nothing positive was counted.
func (s Stats) MostCommon() (label string, count int, ok bool) {
	labels := make([]string, 0, len(s.Emotions))
	for l := range s.Emotions {
		labels = append(labels, l)
	}
	sort.Strings(labels)
	for _, l := range labels {
		if n := s.Emotions[l]; n > count {
			label, count = l, n
		}
	}
	return label, count, count > 0
}

// Session is one start-to-stop run owned by a Controller.
type Session struct {
	ID         string
	Mode       video.Mode
	Generation uint64
	StartedAt  time.Time
	StoppedAt  time.Time
	Feed       video.Feed
	Stats      Stats

	cancel context.CancelFunc
	done   chan struct{}
}

func (s *Session) snapshot() *Session {
	return &Session{
		ID:         s.ID,
		Mode:       s.Mode,
		Generation: s.Generation,
		StartedAt:  s.StartedAt,
		StoppedAt:  s.StoppedAt,
		Feed:       s.Feed,
		Stats:      s.Stats.clone(),
	}
}

// Controller runs the session state machine: Idle, Starting, Active, Stopping.
// Start and Stop are its only mutators.
type Controller struct {
	opts Options
	log  *slog.Logger

	mu          sync.Mutex
	state       State
	gen         uint64
	current     *Session
	startCancel context.CancelFunc
	startDone   chan struct{}
}

// NewController fills in defaults for unset options.
func NewController(opts Options) *Controller {
	if opts.View == nil {
		opts.View = NopView{}
	}
	if opts.Intervals.Pull <= 0 {
		opts.Intervals.Pull = 2 * time.Second
	}
	if opts.Intervals.Push <= 0 {
		opts.Intervals.Push = 2 * time.Second
	}
	if opts.Encoder.Width == 0 || opts.Encoder.Height == 0 {
		opts.Encoder = video.DefaultProfile().Encoder()
	}
	if opts.NewTicker == nil {
		opts.NewTicker = NewTimeTicker
	}
	if opts.Logger == nil {
		opts.Logger = logger.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.NewID == nil {
		opts.NewID = uuid.NewString
	}
	return &Controller{opts: opts, log: opts.Logger}
}

// State returns the current lifecycle state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Current returns a copy of the active session, or nil.
func (c *Controller) Current() *Session {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return nil
	}
	return c.current.snapshot()
}

// Start opens a session in mode and begins the refresh cycle. It is only valid
// from Idle. On failure the controller is back in Idle, the view has been
// alerted and the returned error is a *SessionStartError or *CameraUnavailableError.
func (c *Controller) Start(ctx context.Context, mode video.Mode) error {
	c.mu.Lock()
	if c.state != Idle {
		st := c.state
		c.mu.Unlock()
		return fmt.Errorf("%w: session is %s", ErrBusy, st)
	}
	c.state = Starting
	c.gen++
	gen := c.gen
	startCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	c.startCancel, c.startDone = cancel, done
	c.mu.Unlock()

	defer close(done)
	defer cancel()

	c.opts.View.Controls(false, false)

	if err := StartRemote(startCtx, c.opts.API); err != nil {
		if c.aborted(gen) {
			return c.abortStart(gen, false)
		}
		return c.failStart(gen, mode, "session start failed", err)
	}

	feed, err := c.opts.Acquire(startCtx, mode)
	if err != nil {
		if c.aborted(gen) {
			return c.abortStart(gen, true)
		}
		return c.failStart(gen, mode, "video acquisition failed", &CameraUnavailableError{Mode: mode, Err: err})
	}

	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		feed.Release()
		return c.abortStart(gen, true)
	}
	refreshCtx, refreshCancel := context.WithCancel(context.Background())
	sess := &Session{
		ID:         c.opts.NewID(),
		Mode:       mode,
		Generation: gen,
		StartedAt:  c.opts.Now(),
		Feed:       feed,
		cancel:     refreshCancel,
		done:       make(chan struct{}),
	}
	c.current = sess
	c.state = Active
	c.startCancel, c.startDone = nil, nil
	ticker := c.opts.NewTicker(c.opts.Intervals.For(mode))
	go c.refresh(refreshCtx, sess, ticker)
	c.mu.Unlock()

	metrics.SetActive(true)
	c.opts.View.Controls(false, true)
	c.log.Info("session started", "session", sess.ID, "mode", mode, "generation", gen,
		"interval", c.opts.Intervals.For(mode))
	return nil
}

func (c *Controller) aborted(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen != gen
}

func (c *Controller) backToIdle() {
	c.mu.Lock()
	c.state = Idle
	c.startCancel, c.startDone = nil, nil
	c.mu.Unlock()
	c.opts.View.Controls(true, false)
}

func (c *Controller) failStart(gen uint64, mode video.Mode, msg string, err error) error {
	c.backToIdle()
	c.log.Error(msg, "mode", mode, "generation", gen, "err", err)
	c.opts.View.Alert(err)
	return err
}

// abortStart unwinds a start cancelled by Stop. When the service already started
// the session it is told to stop again.
func (c *Controller) abortStart(gen uint64, remoteStarted bool) error {
	if remoteStarted {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.opts.API.StopSession(ctx); err != nil {
			c.log.Warn("stop after aborted start failed", "generation", gen, "err", err)
		}
	}
	c.backToIdle()
	c.log.Info("session start aborted", "generation", gen)
	return ErrStartAborted
}

// refresh runs one cycle per tick until ctx is cancelled.
func (c *Controller) refresh(ctx context.Context, sess *Session, t Ticker) {
	defer close(sess.done)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C():
			c.cycle(ctx, sess)
		}
	}
}

func (c *Controller) cycle(ctx context.Context, sess *Session) {
	sum, err := c.fetch(ctx, sess)

	c.mu.Lock()
	if c.current != sess || c.state != Active || c.gen != sess.Generation {
		sess.Stats.Discarded++
		c.mu.Unlock()
		metrics.ObserveCycle(sess.Mode.String(), "discarded")
		c.log.Debug("discarding stale result", "session", sess.ID, "generation", sess.Generation)
		return
	}
	if err != nil {
		sess.Stats.Failed++
		c.mu.Unlock()
		metrics.ObserveCycle(sess.Mode.String(), "failed")
		c.log.Warn(cycleMessage(sess.Mode), "session", sess.ID, "generation", sess.Generation, "err", err)
		return
	}
	sess.Stats.Add(*sum, c.opts.Now())
	c.mu.Unlock()

	metrics.ObserveCycle(sess.Mode.String(), "rendered")
	metrics.SetFaces(sum.TotalFaces)
	c.opts.View.Render(render.Lines(*sum))
}

func cycleMessage(m video.Mode) string {
	if m == video.ModeClient {
		return "predict failed"
	}
	return "summary fetch failed"
}

// fetch performs the mode's request for one cycle.
func (c *Controller) fetch(ctx context.Context, sess *Session) (*api.Summary, error) {
	if sess.Mode == video.ModeServer {
		sum, err := c.opts.API.Summary(ctx)
		if err != nil {
			return nil, &SummaryFetchError{Generation: sess.Generation, Err: err}
		}
		return sum, nil
	}

	img, err := sess.Feed.Frame(ctx)
	if err != nil {
		return nil, &PredictError{Generation: sess.Generation, Err: err}
	}
	uri, err := c.opts.Encoder.DataURI(img)
	if err != nil {
		return nil, &PredictError{Generation: sess.Generation, Err: err}
	}
	sum, err := c.opts.API.Predict(ctx, uri)
	if err != nil {
		return nil, &PredictError{Generation: sess.Generation, Err: err}
	}
	return sum, nil
}

// Stop ends the session. From Idle it only resets the view. From Starting it
// cancels the pending start. From Active it tears down locally first (ticker,
// in-flight requests, feed, view) and then tells the service; a failed service
// call is returned as *SessionStopError with the local teardown already done.
// The returned Session is the final snapshot, nil when nothing was active.
func (c *Controller) Stop(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	switch c.state {
	case Idle:
		c.mu.Unlock()
		c.resetView()
		return nil, nil
	case Starting:
		c.gen++
		cancel, done := c.startCancel, c.startDone
		c.mu.Unlock()
		cancel()
		select {
		case <-done:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		c.resetView()
		return nil, nil
	case Stopping:
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: session is %s", ErrBusy, Stopping)
	}

	sess := c.current
	c.state = Stopping
	c.gen++
	c.mu.Unlock()

	sess.cancel()
	<-sess.done
	if err := sess.Feed.Release(); err != nil {
		c.log.Warn("releasing video feed", "session", sess.ID, "mode", sess.Mode, "err", err)
	}
	metrics.SetActive(false)
	c.resetView()

	err := c.opts.API.StopSession(ctx)

	c.mu.Lock()
	sess.StoppedAt = c.opts.Now()
	final := sess.snapshot()
	c.current = nil
	c.state = Idle
	c.mu.Unlock()

	if err != nil {
		serr := &SessionStopError{Err: err}
		c.log.Error("session stop failed", "session", sess.ID, "err", err)
		c.opts.View.Alert(serr)
		return final, serr
	}
	c.log.Info("session stopped", "session", sess.ID, "mode", sess.Mode,
		"cycles", final.Stats.Cycles, "failed", final.Stats.Failed)
	return final, nil
}

func (c *Controller) resetView() {
	c.opts.View.Controls(true, false)
	c.opts.View.Placeholder(render.Placeholder)
}
