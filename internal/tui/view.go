package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/lipgloss"
)

// View renders the active screen with the help bar and any toast or prompt
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	var body string
	var keys help.KeyMap
	switch m.view {
	case viewTemplates:
		body, keys = m.viewTemplates(), templatesKeys{m.keys}
	case viewEditor:
		body, keys = m.viewEditor(), editorKeys{m.keys}
	case viewSession:
		body = m.viewSession()
		if m.noteOpen {
			keys = noteKeys{m.keys}
		} else {
			keys = sessionKeys{m.keys}
		}
	default:
		body, keys = m.viewDashboard(), dashboardKeys{m.keys}
	}

	parts := []string{"", body}
	if m.confirm != nil {
		parts = append(parts, confirmStyle.Render(m.confirm.prompt+"  (y/n)"))
	}
	if m.toast.text != "" {
		style := toastStyle
		if m.toast.isErr {
			style = toastErrorStyle
		}
		parts = append(parts, style.Render(m.toast.text))
	}
	parts = append(parts, "", m.help.View(keys))

	return lipgloss.JoinVertical(lipgloss.Left, strings.Join(parts, "\n"))
}
