package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/checkmaster/internal/models"
)

func TestReconcile_NoSession(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, ReconcileNoSession, h.engine.Reconcile(nil))
}

func TestReconcile_OpenSessionMissing(t *testing.T) {
	h := newHarness(t)
	sess := h.start("A")
	require.NoError(t, h.engine.EditNote(0, "pending"))

	got := h.engine.Reconcile([]models.Session{})
	assert.Equal(t, ReconcileDeleted, got)
	assert.Equal(t, Deleted, h.engine.State(sess.ID))

	_, ok := h.engine.Current()
	assert.False(t, ok)
	assert.ErrorIs(t, h.engine.EditNote(0, "x"), ErrNoOpenSession)

	h.clock.Advance(time.Second)
	h.wait()
	assert.Empty(t, h.port.recorded())
}

func TestReconcile_RefreshWhenIdle(t *testing.T) {
	h := newHarness(t)
	sess := h.start("A", "B")

	remote := sess.Clone()
	remote.Items[1].A = "from another device"
	remote.Items[0].Checked = true

	assert.Equal(t, ReconcileRefreshed, h.engine.Reconcile([]models.Session{remote}))
	cur := mustCurrent(t, h)
	assert.Equal(t, remote.Items, cur.Items)
}

func TestReconcile_SuppressedWhileEditingThenRefreshed(t *testing.T) {
	h := newHarness(t)
	sess := h.start("A")

	h.engine.BeginEdit()
	remote := sess.Clone()
	remote.Items[0].A = "remote"
	assert.Equal(t, ReconcileSuppressed, h.engine.Reconcile([]models.Session{remote}))
	assert.Equal(t, "", mustCurrent(t, h).Items[0].A)

	h.engine.EndEdit()
	assert.Equal(t, ReconcileRefreshed, h.engine.Reconcile([]models.Session{remote}))
	assert.Equal(t, "remote", mustCurrent(t, h).Items[0].A)
}

func TestReconcile_SuppressedWhileNoteTimerPending(t *testing.T) {
	h := newHarness(t)
	sess := h.start("A")
	require.NoError(t, h.engine.EditNote(0, "local"))
	h.engine.EndEdit()

	stale := sess.Clone()
	assert.Equal(t, ReconcileSuppressed, h.engine.Reconcile([]models.Session{stale}))
	assert.Equal(t, "local", mustCurrent(t, h).Items[0].A)
}

func TestReconcile_BackgroundSessionMissingDropsTimer(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := h.start("A")
	require.NoError(t, h.engine.EditNote(0, "background"))
	second := h.start("B")

	// snapshot only knows about the second session
	assert.Equal(t, ReconcileRefreshed, h.engine.Reconcile([]models.Session{second}))
	assert.Equal(t, Deleted, h.engine.State(first.ID))

	h.clock.Advance(time.Second)
	h.wait()
	assert.Empty(t, h.port.recorded())

	// the store copy was never touched
	got, err := h.port.GetSession(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "", got.Items[0].A)
}

func TestReconcile_OwnWriteSnapshotFromSubscriber(t *testing.T) {
	h := newHarness(t)
	h.start("A", "B")

	results := make(chan Reconciliation, 8)
	cancel := h.port.SubscribeSessions(func(ss []models.Session) {
		results <- h.engine.Reconcile(ss)
	})
	defer cancel()

	require.NoError(t, h.engine.Reorder(0, 1))
	h.wait()

	// the push arrives while the write is still in flight
	assert.Equal(t, ReconcileSuppressed, <-results)
	assert.Equal(t, ReconcileRefreshed, h.engine.Reconcile(mustList(t, h)))
	assert.Equal(t, []string{"B", "A"}, questions(mustCurrent(t, h).Items))
}

func mustList(t *testing.T, h *harness) []models.Session {
	t.Helper()
	ss, err := h.port.ListSessions(context.Background())
	require.NoError(t, err)
	return ss
}

func TestReconcile_IgnoresEchoOfSupersededWrite(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	sess := h.start("A", "B", "C")

	require.NoError(t, h.engine.Reorder(0, 1))
	h.wait()
	older, err := h.port.GetSession(ctx, sess.ID)
	require.NoError(t, err)

	require.NoError(t, h.engine.Reorder(1, 2))
	h.wait()
	newer, err := h.port.GetSession(ctx, sess.ID)
	require.NoError(t, err)

	order := func() []string {
		cur := mustCurrent(t, h)
		out := make([]string, len(cur.Items))
		for i, it := range cur.Items {
			out[i] = it.Q
		}
		return out
	}

	assert.Equal(t, ReconcileSuppressed, h.engine.Reconcile([]models.Session{*older}))
	assert.Equal(t, []string{"B", "C", "A"}, order())

	assert.Equal(t, ReconcileRefreshed, h.engine.Reconcile([]models.Session{*newer}))
	assert.Equal(t, []string{"B", "C", "A"}, order())

	// once the newest write is confirmed, the older state counts as a real change
	assert.Equal(t, ReconcileRefreshed, h.engine.Reconcile([]models.Session{*older}))
	assert.Equal(t, []string{"B", "A", "C"}, order())
}

func TestReconcile_DropsRemovedSessions(t *testing.T) {
	h := newHarness(t)
	first := h.start("A")
	second := h.start("B")

	assert.Equal(t, ReconcileDeleted, h.engine.Reconcile([]models.Session{}))
	h.wait()

	h.engine.mu.Lock()
	tracked := len(h.engine.sessions)
	h.engine.mu.Unlock()
	assert.Zero(t, tracked)
	assert.Equal(t, Deleted, h.engine.State(second.ID))
	assert.Equal(t, Idle, h.engine.State(first.ID), "left without pending writes, never deleted")
}
