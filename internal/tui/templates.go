package tui

import (
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/parser"
)

func (m Model) updateTemplates(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewDashboard
	case key.Matches(msg, m.keys.Quit):
		return m.quit()

	case key.Matches(msg, m.keys.Up):
		if m.templateCursor > 0 {
			m.templateCursor--
			m.shimmer.Reset()
		}
	case key.Matches(msg, m.keys.Down):
		if m.templateCursor < len(m.templates)-1 {
			m.templateCursor++
			m.shimmer.Reset()
		}

	case key.Matches(msg, m.keys.Open):
		if len(m.templates) == 0 {
			return m.showToast("Select a template first.", true)
		}
		return m, m.startCmd(m.templates[m.templateCursor].ID)

	case key.Matches(msg, m.keys.New):
		return m.openEditor(nil)

	case key.Matches(msg, m.keys.Edit):
		if len(m.templates) == 0 {
			return m, nil
		}
		t := m.templates[m.templateCursor]
		return m.openEditor(&t)

	case key.Matches(msg, m.keys.Delete):
		if len(m.templates) == 0 {
			return m, nil
		}
		target := m.templates[m.templateCursor]
		return m.ask(fmt.Sprintf("Delete template %q? Existing checklists are kept.", target.Title), func(m Model) (Model, tea.Cmd) {
			return m, m.deleteTemplateCmd(target.ID)
		})
	}
	return m, nil
}

func (m Model) startCmd(templateID string) tea.Cmd {
	return func() tea.Msg {
		sess, err := m.engine.Start(m.ctx, templateID)
		if err != nil {
			return errMsg{err}
		}
		return openedMsg{session: sess}
	}
}

func (m Model) deleteTemplateCmd(id string) tea.Cmd {
	return tea.Sequence(
		func() tea.Msg {
			if err := m.port.DeleteTemplate(m.ctx, id); err != nil {
				return errMsg{err}
			}
			return toastMsg{text: "Template deleted."}
		},
		m.afterWrite(),
	)
}

// openEditor shows the template form, prefilled when t is not nil
func (m Model) openEditor(t *models.Template) (tea.Model, tea.Cmd) {
	m.view = viewEditor
	m.editErr = ""
	m.editField = 0
	m.editID = ""
	m.title.SetValue("")
	m.questions.SetValue("")
	if t != nil {
		m.editID = t.ID
		m.title.SetValue(t.Title)
		m.questions.SetValue(parser.FormatQuestions(t.Questions))
	}
	m.questions.Blur()
	return m, m.title.Focus()
}

func (m Model) updateEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		m.view = viewTemplates
		m.title.Blur()
		m.questions.Blur()
		return m, nil

	case msg.String() == "tab", msg.String() == "shift+tab":
		if m.editField == 0 {
			m.editField = 1
			m.title.Blur()
			return m, m.questions.Focus()
		}
		m.editField = 0
		m.questions.Blur()
		return m, m.title.Focus()

	case key.Matches(msg, m.keys.Save):
		return m.saveTemplate()
	}

	var cmd tea.Cmd
	if m.editField == 0 {
		if msg.Type == tea.KeyEnter {
			m.editField = 1
			m.title.Blur()
			return m, m.questions.Focus()
		}
		m.title, cmd = m.title.Update(msg)
	} else {
		m.questions, cmd = m.questions.Update(msg)
	}
	return m, cmd
}

func (m Model) saveTemplate() (tea.Model, tea.Cmd) {
	title, questions, err := models.NormalizeTemplateInput(m.title.Value(), parser.ParseQuestions(m.questions.Value()))
	if err != nil {
		var ve *models.ValidationError
		if errors.As(err, &ve) {
			m.editErr = ve.Message
		} else {
			m.editErr = err.Error()
		}
		return m, nil
	}

	id := m.editID
	m.view = viewTemplates
	m.title.Blur()
	m.questions.Blur()

	save := func() tea.Msg {
		if id == "" {
			if _, err := m.port.CreateTemplate(m.ctx, title, questions); err != nil {
				return errMsg{err}
			}
			return toastMsg{text: "Template created."}
		}
		if err := m.port.UpdateTemplate(m.ctx, id, title, questions); err != nil {
			return errMsg{err}
		}
		return toastMsg{text: "Template updated."}
	}
	return m, tea.Sequence(save, m.afterWrite())
}

func (m Model) viewTemplates() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Templates"))
	b.WriteString("\n\n")

	if len(m.templates) == 0 {
		b.WriteString(emptyStyle.Render("No templates. Press n to create one."))
		return panelStyle.Width(max(40, m.width-2)).Render(b.String())
	}

	for i, t := range m.templates {
		count := mutedStyle.Render(fmt.Sprintf("%d questions", len(t.Questions)))
		if i == m.templateCursor {
			b.WriteString(selectedRowStyle.Render(m.shimmer.Render(t.Title) + "  " + count))
		} else {
			b.WriteString("  " + t.Title + "  " + count)
		}
		b.WriteString("\n")
	}

	if m.templateCursor < len(m.templates) {
		b.WriteString("\n")
		for i, q := range m.templates[m.templateCursor].Questions {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  %d. %s", i+1, q)))
			b.WriteString("\n")
		}
	}
	return panelStyle.Width(max(40, m.width-2)).Render(b.String())
}

func (m Model) viewEditor() string {
	var b strings.Builder
	heading := "New template"
	if m.editID != "" {
		heading = "Edit template"
	}
	b.WriteString(headerStyle.Render(heading))
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Title"))
	b.WriteString("\n")
	b.WriteString(m.title.View())
	b.WriteString("\n\n")
	b.WriteString(labelStyle.Render("Questions"))
	b.WriteString("\n")
	b.WriteString(m.questions.View())
	if m.editErr != "" {
		b.WriteString("\n\n")
		b.WriteString(errorTextStyle.Render(m.editErr))
	}
	return panelStyle.Width(max(40, m.width-2)).Render(b.String())
}
