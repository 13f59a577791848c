package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/parser"
)

func (m Model) recentSessions() []models.Session {
	if len(m.sessions) > dashboardLimit {
		return m.sessions[:dashboardLimit]
	}
	return m.sessions
}

func (m Model) updateDashboard(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	recent := m.recentSessions()

	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Back):
		return m.quit()

	case key.Matches(msg, m.keys.Up):
		if m.sessionCursor > 0 {
			m.sessionCursor--
			m.shimmer.Reset()
		}

	case key.Matches(msg, m.keys.Down):
		if m.sessionCursor < len(recent)-1 {
			m.sessionCursor++
			m.shimmer.Reset()
		}

	case key.Matches(msg, m.keys.Open):
		if len(recent) == 0 {
			return m, nil
		}
		return m, m.openCmd(recent[m.sessionCursor].ID)

	case key.Matches(msg, m.keys.New), key.Matches(msg, m.keys.Templates):
		m.view = viewTemplates
		m.shimmer.Reset()

	case key.Matches(msg, m.keys.Delete):
		if len(recent) == 0 {
			return m, nil
		}
		target := recent[m.sessionCursor]
		return m.ask(fmt.Sprintf("Delete %q permanently? This cannot be undone.", target.Title), func(m Model) (Model, tea.Cmd) {
			return m, m.deleteSessionCmd(target.ID)
		})

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

func (m Model) openCmd(id string) tea.Cmd {
	return func() tea.Msg {
		sess, err := m.engine.Open(m.ctx, id)
		if err != nil {
			return errMsg{err}
		}
		return openedMsg{session: sess}
	}
}

func (m Model) deleteSessionCmd(id string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := m.engine.Delete(m.ctx, id); err != nil {
				return errMsg{err}
			}
			return toastMsg{text: "Checklist deleted."}
		},
		m.afterWrite(),
	)
}

func (m Model) viewDashboard() string {
	var b strings.Builder
	b.WriteString(logoStyle.Render("checkmaster"))
	b.WriteString("  ")
	b.WriteString(headerStyle.Render("Recent checklists"))
	b.WriteString("\n\n")

	recent := m.recentSessions()
	if len(recent) == 0 {
		b.WriteString(emptyStyle.Render("No saved checklists yet. Press n to start one from a template."))
		return panelStyle.Width(max(40, m.width-2)).Render(b.String())
	}

	now := m.now()
	for i, s := range recent {
		progress := fmt.Sprintf("%d/%d", s.CheckedCount(), len(s.Items))
		when := parser.FormatCreated(s.Created, now)
		if i == m.sessionCursor {
			row := fmt.Sprintf("%s  %s  %s", m.shimmer.Render(s.Title), checkedStyle.Render(progress), mutedStyle.Render(when))
			b.WriteString(selectedRowStyle.Render(row))
		} else {
			b.WriteString(fmt.Sprintf("  %s  %s  %s", s.Title, mutedStyle.Render(progress), mutedStyle.Render(when)))
		}
		b.WriteString("\n")
	}
	if len(m.sessions) > dashboardLimit {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("\n%d older checklists not shown", len(m.sessions)-dashboardLimit)))
	}
	return panelStyle.Width(max(40, m.width-2)).Render(b.String())
}
