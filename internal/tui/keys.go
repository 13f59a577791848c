package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up        key.Binding
	Down      key.Binding
	MoveUp    key.Binding
	MoveDown  key.Binding
	Open      key.Binding
	Toggle    key.Binding
	New       key.Binding
	Templates key.Binding
	Edit      key.Binding
	Delete    key.Binding
	Text      key.Binding
	CSV       key.Binding
	Save      key.Binding
	Back      key.Binding
	Quit      key.Binding
	Help      key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		Up:        key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:      key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		MoveUp:    key.NewBinding(key.WithKeys("shift+up", "K"), key.WithHelp("K", "move up")),
		MoveDown:  key.NewBinding(key.WithKeys("shift+down", "J"), key.WithHelp("J", "move down")),
		Open:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "open")),
		Toggle:    key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space", "check")),
		New:       key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new")),
		Templates: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "templates")),
		Edit:      key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
		Delete:    key.NewBinding(key.WithKeys("d", "delete"), key.WithHelp("d", "delete")),
		Text:      key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "export txt")),
		CSV:       key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "export csv")),
		Save:      key.NewBinding(key.WithKeys("ctrl+s"), key.WithHelp("ctrl+s", "save")),
		Back:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "back")),
		Quit:      key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Help:      key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
	}
}

// bindings per view, consumed by the help bubble

type dashboardKeys struct{ keyMap }

func (k dashboardKeys) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.Open, k.New, k.Templates, k.Delete, k.Quit}
}

func (k dashboardKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

type templatesKeys struct{ keyMap }

func (k templatesKeys) ShortHelp() []key.Binding {
	start := k.Open
	start.SetHelp("enter", "start session")
	return []key.Binding{k.Up, k.Down, start, k.New, k.Edit, k.Delete, k.Back}
}

func (k templatesKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

type editorKeys struct{ keyMap }

func (k editorKeys) ShortHelp() []key.Binding {
	next := key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next field"))
	return []key.Binding{next, k.Save, k.Back}
}

func (k editorKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

type sessionKeys struct{ keyMap }

func (k sessionKeys) ShortHelp() []key.Binding {
	note := k.Open
	note.SetHelp("enter", "note")
	return []key.Binding{k.Up, k.Down, k.MoveUp, k.MoveDown, k.Toggle, note, k.Text, k.CSV, k.Delete, k.Back}
}

func (k sessionKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }

type noteKeys struct{ keyMap }

func (k noteKeys) ShortHelp() []key.Binding {
	done := k.Back
	done.SetHelp("esc", "done")
	return []key.Binding{done}
}

func (k noteKeys) FullHelp() [][]key.Binding { return [][]key.Binding{k.ShortHelp()} }
