// Package tui renders a live sync status view. It polls the monitor on a
// fixed interval and shows transient connectivity notices as they arrive.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dmitrijs2005/timekeeper/internal/client/models"
	"github.com/dmitrijs2005/timekeeper/internal/client/notify"
	"github.com/dmitrijs2005/timekeeper/internal/client/syncer"
)

type StatusProvider interface {
	GetSyncStatus(ctx context.Context) (models.SyncStatus, error)
}

type Syncer interface {
	ForceSync(ctx context.Context) (syncer.Report, error)
}

type (
	pollMsg   time.Time
	statusMsg struct {
		status models.SyncStatus
		err    error
	}
	syncDoneMsg struct {
		report syncer.Report
		err    error
	}
	noticeMsg notify.Notice
)

// noticeTTL is how long a notice stays on screen.
const noticeTTL = 5 * time.Second

// Model is the root Bubble Tea model of the status view.
type Model struct {
	status   StatusProvider
	sync     Syncer
	notices  <-chan notify.Notice
	interval time.Duration
	now      func() time.Time

	current  models.SyncStatus
	loaded   bool
	err      error
	syncing  bool
	lastRun  *syncer.Report
	notice   *notify.Notice
	width    int
	help     help.Model
	showHelp bool
}

// New builds the view. notices may be nil.
func New(st StatusProvider, sy Syncer, notices <-chan notify.Notice, interval time.Duration) Model {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return Model{
		status:   st,
		sync:     sy,
		notices:  notices,
		interval: interval,
		now:      time.Now,
		help:     help.New(),
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetch(), m.poll(), m.waitNotice())
}

func (m Model) poll() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg {
		return pollMsg(t)
	})
}

func (m Model) fetch() tea.Cmd {
	st := m.status
	return func() tea.Msg {
		s, err := st.GetSyncStatus(context.Background())
		return statusMsg{status: s, err: err}
	}
}

func (m Model) forceSync() tea.Cmd {
	sy := m.sync
	return func() tea.Msg {
		rep, err := sy.ForceSync(context.Background())
		return syncDoneMsg{report: rep, err: err}
	}
}

func (m Model) waitNotice() tea.Cmd {
	if m.notices == nil {
		return nil
	}
	ch := m.notices
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return noticeMsg(n)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.help.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
			return m, nil
		case key.Matches(msg, keys.Refresh):
			return m, m.fetch()
		case key.Matches(msg, keys.Sync):
			if m.syncing || m.sync == nil {
				return m, nil
			}
			m.syncing = true
			return m, m.forceSync()
		}

	case pollMsg:
		return m, tea.Batch(m.fetch(), m.poll())

	case statusMsg:
		m.err = msg.err
		if msg.err == nil {
			m.current = msg.status
			m.loaded = true
		}
		return m, nil

	case syncDoneMsg:
		m.syncing = false
		m.err = msg.err
		if msg.err == nil {
			rep := msg.report
			m.lastRun = &rep
		}
		return m, m.fetch()

	case noticeMsg:
		n := notify.Notice(msg)
		m.notice = &n
		// connectivity changed; do not wait for the next poll
		return m, tea.Batch(m.fetch(), m.waitNotice())
	}

	return m, nil
}

func (m Model) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("timekeeper sync"))
	b.WriteString("\n\n")

	var rows []string
	if !m.loaded {
		rows = append(rows, "loading...")
	} else {
		state := offlineStyle.Render("offline")
		if m.current.IsOnline {
			state = onlineStyle.Render("online")
		}
		rows = append(rows,
			row("Connection", state),
			row("Pending", fmt.Sprintf("%d", m.current.PendingActions)),
			row("Last sync", formatAttempt(m.current.LastSyncAttempt, m.now())),
		)
		if m.current.Degraded {
			rows = append(rows, row("Storage", errorStyle.Render("in memory only, changes are lost on exit")))
		}
	}
	if m.syncing {
		rows = append(rows, row("Sync", "running..."))
	} else if m.lastRun != nil {
		rows = append(rows, row("Sync", describe(*m.lastRun)))
	}
	b.WriteString(panelStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...)))
	b.WriteString("\n")

	if m.err != nil {
		b.WriteString(errorStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}
	if n := m.notice; n != nil && m.now().Sub(n.At) < noticeTTL {
		style := noticeStyle
		if n.Level == notify.LevelWarn {
			style = warnNotice
		}
		b.WriteString(style.Render(n.Message))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.View(keys))
	return b.String()
}

func row(label, value string) string {
	return labelStyle.Render(label) + value
}

func formatAttempt(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	ago := now.Sub(t).Truncate(time.Second)
	if ago < time.Second {
		return "just now"
	}
	return ago.String() + " ago"
}

func describe(r syncer.Report) string {
	if r.Coalesced {
		return "already running"
	}
	s := fmt.Sprintf("%d sent, %d failed, %d dropped", r.Replayed, r.Failed, r.Dropped)
	if r.Aborted != nil {
		s += " (stopped: " + r.Aborted.Error() + ")"
	}
	return s
}
