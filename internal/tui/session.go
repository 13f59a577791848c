package tui

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/checkmaster/internal/engine"
	"github.com/balkashynov/checkmaster/internal/export"
	"github.com/balkashynov/checkmaster/internal/models"
)

func (m Model) updateSession(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.noteOpen {
		return m.updateNote(msg)
	}

	cur, ok := m.engine.Current()
	if !ok {
		m.view = viewDashboard
		return m, nil
	}
	n := len(cur.Items)

	switch {
	case key.Matches(msg, m.keys.Back):
		m.engine.Leave()
		m.view = viewDashboard
		return m, m.afterWrite()

	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.MoveUp):
		if m.itemCursor > 0 {
			if err := m.engine.Reorder(m.itemCursor, m.itemCursor-1); err != nil {
				return m.sessionError(err)
			}
			m.itemCursor--
		}

	case key.Matches(msg, m.keys.MoveDown):
		if m.itemCursor < n-1 {
			if err := m.engine.Reorder(m.itemCursor, m.itemCursor+1); err != nil {
				return m.sessionError(err)
			}
			m.itemCursor++
		}

	case key.Matches(msg, m.keys.Up):
		if m.itemCursor > 0 {
			m.itemCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.itemCursor < n-1 {
			m.itemCursor++
		}

	case key.Matches(msg, m.keys.Toggle):
		if n == 0 {
			return m, nil
		}
		if _, err := m.engine.ToggleChecked(m.itemCursor); err != nil {
			return m.sessionError(err)
		}

	case key.Matches(msg, m.keys.Open):
		if n == 0 {
			return m, nil
		}
		m.noteOpen = true
		m.noteIndex = m.itemCursor
		m.note.SetValue(cur.Items[m.itemCursor].A)
		m.engine.BeginEdit()
		return m, m.note.Focus()

	case key.Matches(msg, m.keys.Text):
		return m, m.exportCmd(cur, "txt")

	case key.Matches(msg, m.keys.CSV):
		return m, m.exportCmd(cur, "csv")

	case key.Matches(msg, m.keys.Delete):
		return m.ask(fmt.Sprintf("Delete %q permanently? This cannot be undone.", cur.Title), func(m Model) (Model, tea.Cmd) {
			m.view = viewDashboard
			return m, m.deleteSessionCmd(cur.ID)
		})
	}
	return m, nil
}

// updateNote feeds keystrokes to the note field. Every change goes to the
// engine, which debounces the write.
func (m Model) updateNote(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Back) {
		m.noteOpen = false
		m.note.Blur()
		m.engine.EndEdit()
		return m, nil
	}

	before := m.note.Value()
	var cmd tea.Cmd
	m.note, cmd = m.note.Update(msg)
	if after := m.note.Value(); after != before {
		if err := m.engine.EditNote(m.noteIndex, after); err != nil {
			m.noteOpen = false
			m.note.Blur()
			return m.sessionError(err)
		}
	}
	return m, cmd
}

// sessionError reports an engine rejection and leaves the view when the
// session is gone
func (m Model) sessionError(err error) (Model, tea.Cmd) {
	if errors.Is(err, models.ErrNotFound) || errors.Is(err, engine.ErrNoOpenSession) {
		m.view = viewDashboard
	}
	return m.showToast(err.Error(), true)
}

func (m Model) exportCmd(s models.Session, ext string) tea.Cmd {
	dir, lang := m.exportDir, m.lang
	return func() tea.Msg {
		path := filepath.Join(dir, export.SessionFileName(s, ext))
		f, err := os.Create(path)
		if err != nil {
			return errMsg{fmt.Errorf("export failed: %w", err)}
		}
		defer f.Close()

		w := bufio.NewWriter(f)
		if ext == "csv" {
			err = export.WriteCSV(w, s, lang)
		} else {
			err = export.WriteText(w, s, lang)
		}
		if err == nil {
			err = w.Flush()
		}
		if err != nil {
			return errMsg{fmt.Errorf("export failed: %w", err)}
		}
		return toastMsg{text: "Saved " + path}
	}
}

func (m Model) viewSession() string {
	cur, ok := m.engine.Current()
	if !ok {
		return emptyStyle.Render("No checklist open.")
	}

	var b strings.Builder
	b.WriteString(headerStyle.Render(cur.Title))
	b.WriteString("  ")
	b.WriteString(mutedStyle.Render(fmt.Sprintf("%d/%d done", cur.CheckedCount(), len(cur.Items))))
	if m.engine.State(cur.ID) == engine.Dirty {
		b.WriteString("  " + warningStyle.Render("saving…"))
	}
	b.WriteString("\n\n")

	if len(cur.Items) == 0 {
		b.WriteString(emptyStyle.Render("This checklist has no questions."))
	}

	for i, it := range cur.Items {
		box := uncheckedStyle.Render("[ ]")
		if it.Checked {
			box = checkedStyle.Render("[x]")
		}
		line := fmt.Sprintf("%s %2d. %s", box, i+1, it.Q)
		if i == m.itemCursor {
			b.WriteString(selectedRowStyle.Render(line))
		} else {
			b.WriteString("  " + line)
		}
		b.WriteString("\n")

		if m.noteOpen && i == m.noteIndex {
			b.WriteString(m.note.View())
			b.WriteString("\n")
		} else if it.A != "" {
			b.WriteString(noteStyle.Render(it.A))
			b.WriteString("\n")
		}
	}
	return panelStyle.Width(max(40, m.width-2)).Render(b.String())
}
