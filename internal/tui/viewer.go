// Package tui provides the Bubble Tea screens: the live session screen and
// the report viewer.
package tui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fakeyudi/moodwatch/internal/render"
	"github.com/fakeyudi/moodwatch/internal/report"
)

type tabID int

const (
	tabSummary tabID = iota
	tabEmotions
	tabAnnotations
	tabLast
	tabCount
)

var tabNames = [tabCount]string{"Summary", "Emotions", "Annotations", "Last Summary"}

// Viewer is the Bubble Tea model for browsing a session report.
type Viewer struct {
	report    *report.Report
	filename  string
	activeTab tabID
	viewports [tabCount]viewport.Model
	width     int
	height    int
	ready     bool
	// byCount sorts the Emotions tab by total instead of by label.
	byCount bool
}

// NewViewer creates a viewer for r loaded from filename.
func NewViewer(r *report.Report, filename string) Viewer {
	return Viewer{report: r, filename: filepath.Base(filename), byCount: true}
}

func (m Viewer) Init() tea.Cmd { return nil }

func (m Viewer) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "tab", "l", "right":
			m.activeTab = (m.activeTab + 1) % tabCount
		case "shift+tab", "h", "left":
			m.activeTab = (m.activeTab - 1 + tabCount) % tabCount
		case "1", "2", "3", "4":
			m.activeTab = tabID(msg.String()[0] - '1')
		case "s":
			if m.activeTab == tabEmotions {
				m.byCount = !m.byCount
				if m.ready {
					m.viewports[tabEmotions].SetContent(m.renderTab(tabEmotions))
					m.viewports[tabEmotions].GotoTop()
				}
			}
		}
		if !m.ready {
			return m, nil
		}
		var cmd tea.Cmd
		m.viewports[m.activeTab], cmd = m.viewports[m.activeTab].Update(msg)
		return m, cmd

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.initViewports()
		return m, nil
	}
	return m, nil
}

func (m Viewer) View() string {
	if !m.ready {
		return "Loading…"
	}

	title := titleStyle.Width(m.width).Render("  moodwatch  " + m.filename)

	var tabParts []string
	for i := tabID(0); i < tabCount; i++ {
		label := fmt.Sprintf(" %d %s ", i+1, tabNames[i])
		if i == m.activeTab {
			tabParts = append(tabParts, activeTabStyle.Render(label))
		} else {
			tabParts = append(tabParts, inactiveTabStyle.Render(label))
		}
		if i < tabCount-1 {
			tabParts = append(tabParts, tabSepStyle.Render("│"))
		}
	}
	tabRow := lipgloss.NewStyle().
		Background(lipgloss.Color("235")).
		Width(m.width).
		Render(lipgloss.JoinHorizontal(lipgloss.Top, tabParts...))

	content := m.viewports[m.activeTab].View()

	hint := "  ←/→ tab  ↑/↓ scroll  1-4 jump  q quit"
	if m.activeTab == tabEmotions {
		order := "by total"
		if !m.byCount {
			order = "by name"
		}
		hint += "  s sort (" + order + ")"
	}
	pct := fmt.Sprintf("%3.0f%%", m.viewports[m.activeTab].ScrollPercent()*100)
	pad := m.width - lipgloss.Width(hint) - len(pct) - 2
	if pad < 1 {
		pad = 1
	}
	statusBar := statusBarStyle.Width(m.width).Render(hint + strings.Repeat(" ", pad) + pct)

	return lipgloss.JoinVertical(lipgloss.Left, title, tabRow, content, statusBar)
}

func (m *Viewer) initViewports() {
	// title, tab row and status bar
	vpHeight := m.height - 3
	if vpHeight < 1 {
		vpHeight = 1
	}
	for i := tabID(0); i < tabCount; i++ {
		vp := viewport.New(m.width, vpHeight)
		vp.SetContent(m.renderTab(i))
		m.viewports[i] = vp
	}
}

func (m *Viewer) renderTab(t tabID) string {
	switch t {
	case tabSummary:
		return m.renderSummary()
	case tabEmotions:
		return m.renderEmotions()
	case tabAnnotations:
		return m.renderAnnotations()
	case tabLast:
		return m.renderLast()
	}
	return ""
}

func heading(s string) string {
	return "\n" + sectionHeader.Render("  "+s) + "\n\n"
}

func (m *Viewer) renderSummary() string {
	s := m.report.Session
	st := m.report.Stats
	var sb strings.Builder
	sb.WriteString(heading("Session"))

	row := func(label, value string) {
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-16s", label)) + "  " + value + "\n")
	}
	row("ID:", s.ID)
	row("Server:", s.Server)
	row("Video mode:", s.VideoMode)
	if s.Profile != "" {
		row("Profile:", s.Profile)
	}
	row("Started:", s.StartTime.Format("2006-01-02 15:04:05 MST"))
	row("Stopped:", s.StopTime.Format("2006-01-02 15:04:05 MST"))
	row("Duration:", s.Duration)
	if s.Author != "" {
		row("Author:", s.Author)
	}

	sb.WriteString(heading("Counts"))
	row("Refresh cycles:", fmt.Sprintf("%d", st.Cycles))
	row("Failed cycles:", fmt.Sprintf("%d", st.Failed))
	row("Discarded:", fmt.Sprintf("%d", st.Discarded))
	row("Peak faces:", fmt.Sprintf("%d", st.PeakFaces))
	row("Annotations:", fmt.Sprintf("%d", len(m.report.Annotations)))
	if st.MostCommon != "" {
		row("Most common:", fmt.Sprintf("%s (%d)", st.MostCommon, st.MostCommonCount))
	}
	return sb.String()
}

func (m *Viewer) renderEmotions() string {
	totals := m.report.Stats.Emotions
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Emotion totals (%d)", len(totals))))
	if len(totals) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}

	labels := make([]string, 0, len(totals))
	top := 0
	for l, n := range totals {
		labels = append(labels, l)
		if n > top {
			top = n
		}
	}
	sort.Strings(labels)
	if m.byCount {
		sort.SliceStable(labels, func(i, j int) bool { return totals[labels[i]] > totals[labels[j]] })
	}

	width := m.width - 34
	if width < 10 {
		width = 10
	}
	for _, l := range labels {
		n := totals[l]
		bar := 0
		if top > 0 {
			bar = n * width / top
		}
		sb.WriteString(labelStyle.Render(fmt.Sprintf("  %-12s", l)) +
			fmt.Sprintf(" %6d  ", n) + barStyle.Render(strings.Repeat("█", bar)) + "\n")
	}
	return sb.String()
}

func (m *Viewer) renderAnnotations() string {
	var sb strings.Builder
	sb.WriteString(heading(fmt.Sprintf("Annotations (%d)", len(m.report.Annotations))))
	if len(m.report.Annotations) == 0 {
		sb.WriteString(dimStyle.Render("  (none)") + "\n")
		return sb.String()
	}
	for _, a := range m.report.Annotations {
		badge := kindNoteStyle.Render("[NOTE]")
		if a.IsSummary {
			badge = kindSummaryStyle.Render("[SUMMARY]")
		}
		ts := timeStyle.Render(a.Timestamp.Format("15:04:05"))
		sb.WriteString(fmt.Sprintf("  %s  %s  %s\n\n", ts, badge, a.Message))
	}
	return sb.String()
}

func (m *Viewer) renderLast() string {
	var sb strings.Builder
	sb.WriteString(heading("Last summary"))
	if m.report.Last == nil {
		sb.WriteString(dimStyle.Render("  (no summary received)") + "\n")
		return sb.String()
	}
	for _, line := range render.Lines(*m.report.Last) {
		sb.WriteString("  " + line + "\n")
	}
	return sb.String()
}

// RunViewer starts the report viewer full screen.
func RunViewer(r *report.Report, filename string) error {
	p := tea.NewProgram(NewViewer(r, filename), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
