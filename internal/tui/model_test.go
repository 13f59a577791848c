package tui

import (
	"context"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/checkmaster/internal/engine"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store/memstore"
)

func runes(s string) tea.KeyMsg { return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)} }

var (
	keyEnter = tea.KeyMsg{Type: tea.KeyEnter}
	keyEsc   = tea.KeyMsg{Type: tea.KeyEsc}
	keySpace = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
)

type harness struct {
	t      *testing.T
	ctx    context.Context
	port   *memstore.Store
	engine *engine.Engine
	m      Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctx := context.Background()
	port := memstore.New()
	eng := engine.New(port, engine.WithDebounce(time.Hour))
	t.Cleanup(func() { eng.Close(context.Background()) })

	m := newModel(Options{Context: ctx, Port: port, Subscriber: port, Engine: eng, ExportDir: t.TempDir()})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	return &harness{t: t, ctx: ctx, port: port, engine: eng, m: next.(Model)}
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	h.t.Helper()
	next, cmd := h.m.Update(msg)
	h.m = next.(Model)
	return cmd
}

func (h *harness) sync() {
	h.t.Helper()
	ts, err := h.port.ListTemplates(h.ctx)
	require.NoError(h.t, err)
	h.send(templatesMsg(ts))
	ss, err := h.port.ListSessions(h.ctx)
	require.NoError(h.t, err)
	h.send(sessionsMsg(ss))
}

// startSession opens the templates view and runs the start command
func (h *harness) startSession(questions ...string) models.Session {
	h.t.Helper()
	_, err := h.port.CreateTemplate(h.ctx, "Daily", questions)
	require.NoError(h.t, err)
	h.sync()

	h.send(runes("n"))
	require.Equal(h.t, viewTemplates, h.m.view)

	cmd := h.send(keyEnter)
	require.NotNil(h.t, cmd)
	msg := cmd()
	opened, ok := msg.(openedMsg)
	require.True(h.t, ok, "expected openedMsg, got %T", msg)
	h.send(opened)
	require.Equal(h.t, viewSession, h.m.view)
	return opened.session
}

func TestDashboard_EmptyAndLimit(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.m.View(), "No saved checklists yet")

	ss := make([]models.Session, 20)
	for i := range ss {
		ss[i] = models.Session{ID: string(rune('a' + i)), Title: "s"}
	}
	h.send(sessionsMsg(ss))
	assert.Len(t, h.m.recentSessions(), dashboardLimit)

	for i := 0; i < 30; i++ {
		h.send(runes("j"))
	}
	assert.Equal(t, dashboardLimit-1, h.m.sessionCursor)
	assert.Contains(t, h.m.View(), "5 older checklists not shown")
}

func TestSession_ToggleReorderAndNote(t *testing.T) {
	h := newHarness(t)
	sess := h.startSession("A", "B", "C")

	h.send(keySpace)
	cur, ok := h.engine.Current()
	require.True(t, ok)
	assert.True(t, cur.Items[0].Checked)

	// move the first item down twice
	h.send(runes("J"))
	h.send(runes("J"))
	cur, _ = h.engine.Current()
	assert.Equal(t, []string{"B", "C", "A"}, questionsOf(cur))
	assert.Equal(t, 2, h.m.itemCursor)

	h.send(keyEnter)
	require.True(t, h.m.noteOpen)
	assert.True(t, h.engine.Editing())

	h.send(runes("ok"))
	cur, _ = h.engine.Current()
	assert.Equal(t, "ok", cur.Items[2].A)
	assert.Equal(t, engine.Dirty, h.engine.State(sess.ID))

	h.send(keyEsc)
	assert.False(t, h.m.noteOpen)
	assert.False(t, h.engine.Editing())

	require.NoError(t, h.engine.Flush(h.ctx))
	stored, err := h.port.GetSession(h.ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "ok", stored.Items[2].A)
	assert.True(t, stored.Items[2].Checked)
}

func TestSession_SnapshotWhileEditingIsSuppressed(t *testing.T) {
	h := newHarness(t)
	sess := h.startSession("A", "B")

	h.send(keyEnter)
	h.send(runes("local"))

	remote := models.CloneItems(sess.Items)
	remote[0].A = "remote"
	h.send(sessionsMsg([]models.Session{{ID: sess.ID, Title: sess.Title, Items: remote}}))

	cur, _ := h.engine.Current()
	assert.Equal(t, "local", cur.Items[0].A)
	assert.Equal(t, viewSession, h.m.view)
}

func TestSession_DeletedElsewhereReturnsToDashboard(t *testing.T) {
	h := newHarness(t)
	h.startSession("A")

	h.send(sessionsMsg(nil))
	assert.Equal(t, viewDashboard, h.m.view)
	assert.Contains(t, h.m.toast.text, "deleted")
	assert.True(t, h.m.toast.isErr)
}

func TestConfirm_DeclineKeepsSession(t *testing.T) {
	h := newHarness(t)
	sess := h.startSession("A")

	h.send(runes("d"))
	require.NotNil(t, h.m.confirm)
	h.send(runes("n"))
	assert.Nil(t, h.m.confirm)
	assert.Equal(t, viewSession, h.m.view)

	_, err := h.port.GetSession(h.ctx, sess.ID)
	assert.NoError(t, err)
}

func TestEditor_ValidationAndSave(t *testing.T) {
	h := newHarness(t)
	h.send(runes("p"))
	h.send(runes("n"))
	require.Equal(t, viewEditor, h.m.view)

	cmd := h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	assert.Nil(t, cmd)
	assert.NotEmpty(t, h.m.editErr)
	assert.Equal(t, viewEditor, h.m.view)

	h.m.title.SetValue("Opening")
	h.m.questions.SetValue("- Lights\n\n1. Till")
	cmd = h.send(tea.KeyMsg{Type: tea.KeyCtrlS})
	require.NotNil(t, cmd)
	assert.Equal(t, viewTemplates, h.m.view)
}

func TestToastExpires(t *testing.T) {
	h := newHarness(t)
	h.send(toastMsg{text: "hello"})
	seq := h.m.toast.seq

	h.send(toastExpiredMsg{seq: seq - 1})
	assert.Equal(t, "hello", h.m.toast.text)
	h.send(toastExpiredMsg{seq: seq})
	assert.Empty(t, h.m.toast.text)
}

func questionsOf(s models.Session) []string {
	out := make([]string, len(s.Items))
	for i, it := range s.Items {
		out[i] = it.Q
	}
	return out
}

func TestShimmer_TickSweepsSelectedTitle(t *testing.T) {
	t.Setenv("COLORTERM", "truecolor")
	h := newHarness(t)
	h.send(sessionsMsg([]models.Session{{ID: "s1", Title: "Morning round"}}))

	before := h.m.shimmer.Render("Morning round")
	var cmd tea.Cmd
	for i := 0; i < 5; i++ {
		cmd = h.send(shimmerTickMsg{})
	}
	assert.NotNil(t, cmd, "tick re-arms itself")
	assert.NotEqual(t, before, h.m.shimmer.Render("Morning round"))
	assert.Greater(t, h.m.shimmer.center, 0.0)
}

func TestShimmer_IdleWithoutTrueColor(t *testing.T) {
	t.Setenv("COLORTERM", "")
	h := newHarness(t)
	h.send(sessionsMsg([]models.Session{{ID: "s1", Title: "Morning round"}}))

	assert.Nil(t, h.send(shimmerTickMsg{}))
	assert.Equal(t, headerStyle.Render("Morning round"), h.m.shimmer.Render("Morning round"))
}
