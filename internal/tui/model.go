package tui

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/engine"
	"github.com/balkashynov/checkmaster/internal/export"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

// dashboardLimit caps the recent-sessions list
const dashboardLimit = 15

const toastDuration = 3 * time.Second

type view int

const (
	viewDashboard view = iota
	viewTemplates
	viewEditor
	viewSession
)

// Messages

type templatesMsg []models.Template

type sessionsMsg []models.Session

type noticeMsg engine.Notice

type openedMsg struct{ session models.Session }

type errMsg struct{ err error }

type toastMsg struct{ text string }

type toastExpiredMsg struct{ seq int }

// confirmation is a pending y/n question
type confirmation struct {
	prompt string
	onYes  func(Model) (Model, tea.Cmd)
}

type toast struct {
	text  string
	isErr bool
	seq   int
}

// Model is the root bubbletea model
type Model struct {
	ctx       context.Context
	port      store.Port
	engine    *engine.Engine
	logger    *zap.Logger
	lang      export.Lang
	exportDir string
	reload    bool // port pushes no snapshots, list again after writes
	now       func() time.Time

	width  int
	height int
	view   view

	templates []models.Template
	sessions  []models.Session

	sessionCursor  int
	templateCursor int
	itemCursor     int

	// template editor
	editID    string
	title     textinput.Model
	questions textarea.Model
	editField int
	editErr   string

	// note editor
	note      textarea.Model
	noteOpen  bool
	noteIndex int

	confirm *confirmation
	toast   toast
	keys    keyMap
	help    help.Model
	shimmer *Shimmer
}

func newModel(opts Options) Model {
	title := textinput.New()
	title.Placeholder = "Checklist title"
	title.CharLimit = 200

	questions := textarea.New()
	questions.Placeholder = "One question per line"
	questions.ShowLineNumbers = true
	questions.CharLimit = 0

	note := textarea.New()
	note.Placeholder = "Note"
	note.ShowLineNumbers = false
	note.SetHeight(4)

	lang := opts.Lang
	if lang == "" {
		lang = export.Korean
	}

	return Model{
		ctx:       opts.Context,
		port:      opts.Port,
		engine:    opts.Engine,
		logger:    opts.Logger,
		lang:      lang,
		exportDir: opts.ExportDir,
		reload:    opts.Subscriber == nil,
		now:       time.Now,
		title:     title,
		questions: questions,
		note:      note,
		keys:      defaultKeyMap(),
		help:      help.New(),
		shimmer:   NewShimmer(DefaultShimmerConfig()),
	}
}

// Init loads both collections and starts the shimmer
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadCmd(), m.shimmer.Tick())
}

func (m Model) loadCmd() tea.Cmd {
	return tea.Batch(
		func() tea.Msg {
			ts, err := m.port.ListTemplates(m.ctx)
			if err != nil {
				return errMsg{err}
			}
			return templatesMsg(ts)
		},
		func() tea.Msg {
			ss, err := m.port.ListSessions(m.ctx)
			if err != nil {
				return errMsg{err}
			}
			return sessionsMsg(ss)
		},
	)
}

// afterWrite lists again when the backend does not push snapshots
func (m Model) afterWrite() tea.Cmd {
	if !m.reload {
		return nil
	}
	return m.loadCmd()
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.questions.SetWidth(max(20, msg.Width-6))
		m.questions.SetHeight(max(5, msg.Height-14))
		m.note.SetWidth(max(20, msg.Width-8))
		return m, nil

	case shimmerTickMsg:
		m.shimmer.Advance(utf8.RuneCountInString(m.highlightedTitle()))
		return m, m.shimmer.Tick()

	case templatesMsg:
		m.templates = msg
		m.templateCursor = clamp(m.templateCursor, len(m.templates))
		return m, nil

	case sessionsMsg:
		return m.applySessions(msg)

	case noticeMsg:
		return m.applyNotice(engine.Notice(msg))

	case openedMsg:
		m.view = viewSession
		m.itemCursor = 0
		m.noteOpen = false
		return m, nil

	case errMsg:
		if m.logger != nil {
			m.logger.Warn("tui operation failed", zap.Error(msg.err))
		}
		return m.showToast(msg.err.Error(), true)

	case toastMsg:
		return m.showToast(msg.text, false)

	case toastExpiredMsg:
		if msg.seq == m.toast.seq {
			m.toast.text = ""
		}
		return m, nil

	case tea.KeyMsg:
		if m.confirm != nil {
			return m.handleConfirmKeys(msg)
		}
		switch m.view {
		case viewTemplates:
			return m.updateTemplates(msg)
		case viewEditor:
			return m.updateEditor(msg)
		case viewSession:
			return m.updateSession(msg)
		default:
			return m.updateDashboard(msg)
		}
	}

	// forward cursor blink and similar messages to the focused input
	var cmd tea.Cmd
	switch {
	case m.view == viewEditor && m.editField == 0:
		m.title, cmd = m.title.Update(msg)
	case m.view == viewEditor:
		m.questions, cmd = m.questions.Update(msg)
	case m.view == viewSession && m.noteOpen:
		m.note, cmd = m.note.Update(msg)
	}
	return m, cmd
}

// highlightedTitle is the title the shimmer sweeps in the current view
func (m Model) highlightedTitle() string {
	switch m.view {
	case viewDashboard:
		if recent := m.recentSessions(); m.sessionCursor < len(recent) {
			return recent[m.sessionCursor].Title
		}
	case viewTemplates:
		if m.templateCursor < len(m.templates) {
			return m.templates[m.templateCursor].Title
		}
	}
	return ""
}

// applySessions stores the snapshot and reconciles the open session
func (m Model) applySessions(ss []models.Session) (tea.Model, tea.Cmd) {
	m.sessions = ss
	m.sessionCursor = clamp(m.sessionCursor, min(len(ss), dashboardLimit))

	switch m.engine.Reconcile(ss) {
	case engine.ReconcileDeleted:
		if m.view == viewSession {
			m.view = viewDashboard
			m.noteOpen = false
			m.note.Blur()
			return m.showToast("This checklist was deleted elsewhere.", true)
		}
	case engine.ReconcileRefreshed:
		if cur, ok := m.engine.Current(); ok {
			m.itemCursor = clamp(m.itemCursor, len(cur.Items))
		}
	}
	return m, nil
}

func (m Model) applyNotice(n engine.Notice) (tea.Model, tea.Cmd) {
	switch n.Kind {
	case engine.NoticeError:
		return m.showToast("Save failed: "+n.Err.Error(), true)
	case engine.NoticeDeleted:
		if m.view == viewSession {
			if _, ok := m.engine.Current(); !ok {
				m.view = viewDashboard
				m.noteOpen = false
			}
		}
		return m.showToast("This checklist no longer exists.", true)
	}
	return m, nil
}

func (m Model) showToast(text string, isErr bool) (Model, tea.Cmd) {
	m.toast.seq++
	m.toast.text = text
	m.toast.isErr = isErr
	seq := m.toast.seq
	return m, tea.Tick(toastDuration, func(time.Time) tea.Msg { return toastExpiredMsg{seq: seq} })
}

func (m Model) ask(prompt string, onYes func(Model) (Model, tea.Cmd)) (tea.Model, tea.Cmd) {
	m.confirm = &confirmation{prompt: prompt, onYes: onYes}
	return m, nil
}

func (m Model) handleConfirmKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		c := m.confirm
		m.confirm = nil
		return c.onYes(m)
	case "n", "N", "esc", "q":
		m.confirm = nil
	}
	return m, nil
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.engine.EndEdit()
	return m, tea.Quit
}

func clamp(i, n int) int {
	if n == 0 || i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}
