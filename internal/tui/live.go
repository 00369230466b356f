package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/moodwatch/internal/render"
	"github.com/fakeyudi/moodwatch/internal/session"
	"github.com/fakeyudi/moodwatch/internal/video"
)

// Controller is the part of session.Controller the live screen drives.
type Controller interface {
	Start(ctx context.Context, mode video.Mode) error
	Stop(ctx context.Context) (*session.Session, error)
	State() session.State
	Current() *session.Session
}

// Messages sent by Bridge.
type (
	controlsMsg    struct{ start, stop bool }
	linesMsg       []string
	placeholderMsg string
	alertMsg       struct{ err error }
)

// Results of the start and stop commands.
type (
	startedMsg struct{ err error }
	stoppedMsg struct {
		sess *session.Session
		err  error
	}
)

// Bridge is a session.View that forwards every call to a running program as a
// message. Calls before Attach are dropped.
type Bridge struct {
	mu   sync.Mutex
	send func(tea.Msg)
}

// NewBridge returns an unattached Bridge.
func NewBridge() *Bridge { return &Bridge{} }

// Attach routes messages to p.
func (b *Bridge) Attach(p *tea.Program) { b.attach(p.Send) }

func (b *Bridge) attach(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send != nil {
		send(msg)
	}
}

func (b *Bridge) Controls(start, stop bool) { b.post(controlsMsg{start, stop}) }
func (b *Bridge) Render(lines []string) { b.post(linesMsg(lines)) }
func (b *Bridge) Placeholder(text string) { b.post(placeholderMsg(text)) }
func (b *Bridge) Alert(err error) { b.post(alertMsg{err}) }

var _ session.View = (*Bridge)(nil)

// LiveOptions configures the live screen.
type LiveOptions struct {
	Controller Controller
	// Mode pins the video mode. Empty asks the user on every start.
	Mode    video.Mode
	Server  string
	Profile string
	// OnStarted and OnStopped run on the command goroutine after a successful
	// start and after every stop of an active session.
	OnStarted func(*session.Session)
	OnStopped func(*session.Session, error)
}

// Live is the Bubble Tea model of the live session screen.
type Live struct {
	ctx  context.Context
	opts LiveOptions
	keys KeyMap
	help help.Model

	startEnabled bool
	stopEnabled  bool
	choosing     bool
	pending      string // "starting" or "stopping" while a command runs

	lines       []string
	placeholder string
	alert       string

	width  int
	height int
}

// NewLive creates the live screen. ctx bounds every start request.
func NewLive(ctx context.Context, opts LiveOptions) Live {
	return Live{
		ctx:          ctx,
		opts:         opts,
		keys:         DefaultKeyMap(),
		help:         help.New(),
		startEnabled: true,
		placeholder:  render.Placeholder,
	}
}

func (m Live) Init() tea.Cmd { return nil }

func (m Live) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case controlsMsg:
		m.startEnabled, m.stopEnabled = msg.start, msg.stop
		return m, nil

	case linesMsg:
		m.lines = []string(msg)
		m.placeholder = ""
		return m, nil

	case placeholderMsg:
		m.lines = nil
		m.placeholder = string(msg)
		return m, nil

	case alertMsg:
		if msg.err != nil {
			m.alert = msg.err.Error()
		}
		return m, nil

	case startedMsg:
		m.pending = ""
		// The controller alerts its own failures; only a busy refusal is ours to show.
		if errors.Is(msg.err, session.ErrBusy) {
			m.alert = msg.err.Error()
		}
		return m, nil

	case stoppedMsg:
		m.pending = ""
		return m, nil
	}
	return m, nil
}

func (m Live) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		return m, tea.Quit
	}

	if m.alert != "" {
		if key.Matches(msg, m.keys.Dismiss) {
			m.alert = ""
		}
		return m, nil
	}

	if m.choosing {
		switch {
		case key.Matches(msg, m.keys.Server):
			m.choosing = false
			return m.start(video.ModeServer)
		case key.Matches(msg, m.keys.Client):
			m.choosing = false
			return m.start(video.ModeClient)
		case key.Matches(msg, m.keys.Dismiss):
			m.choosing = false
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Start):
		if !m.startEnabled {
			return m, nil
		}
		if m.opts.Mode == "" {
			m.choosing = true
			return m, nil
		}
		return m.start(m.opts.Mode)

	case key.Matches(msg, m.keys.Stop):
		if !m.stopEnabled {
			return m, nil
		}
		return m.stop()
	}
	return m, nil
}

func (m Live) start(mode video.Mode) (tea.Model, tea.Cmd) {
	m.startEnabled = false
	m.pending = "starting"
	ctx, ctrl, hook := m.ctx, m.opts.Controller, m.opts.OnStarted
	return m, func() tea.Msg {
		err := ctrl.Start(ctx, mode)
		if err == nil && hook != nil {
			if sess := ctrl.Current(); sess != nil {
				hook(sess)
			}
		}
		return startedMsg{err: err}
	}
}

func (m Live) stop() (tea.Model, tea.Cmd) {
	m.stopEnabled = false
	m.pending = "stopping"
	ctrl, hook := m.opts.Controller, m.opts.OnStopped
	return m, func() tea.Msg {
		// Stop must finish even when the screen is closing.
		sess, err := ctrl.Stop(context.Background())
		if sess != nil && hook != nil {
			hook(sess, err)
		}
		return stoppedMsg{sess: sess, err: err}
	}
}

func (m Live) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	title := "  moodwatch  " + m.opts.Server
	if m.opts.Profile != "" {
		title += "  [" + m.opts.Profile + "]"
	}
	header := titleStyle.Width(width).Render(title)

	sess := m.opts.Controller.Current()
	state := m.opts.Controller.State()
	stateLine := "  " + stateBadge(state)
	if m.pending != "" {
		stateLine += dimStyle.Render("  " + m.pending + "…")
	}
	if sess != nil {
		stateLine += fmt.Sprintf("  %s video  %s", sess.Mode, dimStyle.Render(shortID(sess.ID)))
	}

	buttons := "  " + button("s Start", m.startEnabled) + " " + button("x Stop", m.stopEnabled)

	body := m.placeholder
	if len(m.lines) > 0 {
		body = strings.Join(m.lines, "\n")
	}
	box := summaryBoxStyle.Width(min(width-4, 48)).Render(body)

	var statsLine string
	if sess != nil {
		st := sess.Stats
		statsLine = dimStyle.Render(fmt.Sprintf("  cycles %d  failed %d  peak faces %d", st.Cycles, st.Failed, st.PeakFaces))
		if label, n, ok := st.MostCommon(); ok {
			statsLine += dimStyle.Render(fmt.Sprintf("  most common %s (%d)", label, n))
		}
	}

	main := lipgloss.JoinVertical(lipgloss.Left, header, "", stateLine, "", buttons, "", "  "+box, statsLine)

	switch {
	case m.alert != "":
		main = lipgloss.JoinVertical(lipgloss.Left, main, "",
			"  "+alertStyle.Render("Error\n\n"+m.alert+"\n\n"+dimStyle.Render("enter to dismiss")))
	case m.choosing:
		main = lipgloss.JoinVertical(lipgloss.Left, main, "",
			"  "+promptStyle.Render("Video source\n\n1  server feed\n2  local camera\n\n"+dimStyle.Render("esc to cancel")))
	}

	return lipgloss.JoinVertical(lipgloss.Left, main, "", "  "+m.help.View(m.keys))
}

func stateBadge(s session.State) string {
	label := strings.ToUpper(s.String())
	switch s {
	case session.Active:
		return stateActiveStyle.Render("● " + label)
	case session.Idle:
		return stateIdleStyle.Render("○ " + label)
	}
	return stateBusyStyle.Render("◌ " + label)
}

func button(label string, enabled bool) string {
	if enabled {
		return buttonStyle.Render(label)
	}
	return buttonDisabledStyle.Render(label)
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// RunLive runs the live screen full screen until the user quits. bridge must
// be the View the controller was built with.
func RunLive(ctx context.Context, bridge *Bridge, opts LiveOptions) error {
	p := tea.NewProgram(NewLive(ctx, opts), tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)
	_, err := p.Run()
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
