package remote_test

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/remote"
	"github.com/balkashynov/checkmaster/internal/store/memstore"
	"github.com/balkashynov/checkmaster/internal/syncserver"
)

func newRemote(t *testing.T) (*memstore.Store, *remote.Client) {
	t.Helper()
	backend := memstore.New()
	srv := syncserver.New(backend)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})

	c, err := remote.New(ts.URL, remote.WithTimeout(5*time.Second))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return backend, c
}

func TestNew_RejectsBadScheme(t *testing.T) {
	_, err := remote.New("ftp://example.com")
	assert.Error(t, err)
}

func TestWebsocketURL(t *testing.T) {
	c, err := remote.New("https://sync.example.com/base/")
	require.NoError(t, err)
	assert.Equal(t, "wss://sync.example.com/base/ws", c.WebsocketURL())

	c, err = remote.New("http://localhost:8080")
	require.NoError(t, err)
	assert.Equal(t, "ws://localhost:8080/ws", c.WebsocketURL())
}

func TestClient_TemplatesAndSessions(t *testing.T) {
	ctx := context.Background()
	backend, c := newRemote(t)

	tpl, err := c.CreateTemplate(ctx, "Opening", []string{"Lights", "", "Till"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Lights", "Till"}, tpl.Questions)

	stored, err := backend.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Opening", stored.Title)

	require.NoError(t, c.UpdateTemplate(ctx, tpl.ID, "Opening v2", []string{"Lights"}))
	got, err := c.GetTemplate(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, "Opening v2", got.Title)

	sess, err := c.CreateSession(ctx, tpl.ID)
	require.NoError(t, err)
	assert.Equal(t, tpl.ID, sess.TemplateID)

	items := models.CloneItems(sess.Items)
	items[0].A = "on"
	items[0].Checked = true
	require.NoError(t, c.UpdateSessionItems(ctx, sess.ID, items))

	list, err := c.ListSessions(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, items, list[0].Items)

	require.NoError(t, c.DeleteSession(ctx, sess.ID))
	require.NoError(t, c.DeleteTemplate(ctx, tpl.ID))

	templates, err := c.ListTemplates(ctx)
	require.NoError(t, err)
	assert.Empty(t, templates)
}

func TestClient_ErrorTaxonomy(t *testing.T) {
	ctx := context.Background()
	_, c := newRemote(t)

	_, err := c.GetSession(ctx, "missing")
	require.ErrorIs(t, err, models.ErrNotFound)
	var nf *models.NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, models.KindSession, nf.Kind)
	assert.Equal(t, "missing", nf.ID)

	err = c.UpdateSessionItems(ctx, "missing", nil)
	assert.ErrorIs(t, err, models.ErrNotFound)

	_, err = c.CreateTemplate(ctx, "   ", []string{"q"})
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = c.CreateSession(ctx, "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestClient_Import(t *testing.T) {
	ctx := context.Background()
	backend, c := newRemote(t)
	created := time.Date(2022, 3, 4, 5, 6, 7, 0, time.UTC)

	tpl, err := c.ImportTemplate(ctx, models.Template{ID: "old", Title: "T", Questions: []string{"q"}, Created: created})
	require.NoError(t, err)
	assert.NotEqual(t, "old", tpl.ID)
	assert.True(t, created.Equal(tpl.Created))

	_, err = c.ImportSession(ctx, models.Session{ID: "old", Title: "S", Created: created})
	require.NoError(t, err)

	ss, err := backend.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, ss, 1)
}

func TestClient_BreakerOpensOnTransportFailures(t *testing.T) {
	ts := httptest.NewServer(nil)
	url := ts.URL
	ts.Close()

	c, err := remote.New(url, remote.WithTimeout(time.Second))
	require.NoError(t, err)

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		_, err := c.ListTemplates(ctx)
		require.ErrorIs(t, err, models.ErrPersistence)
	}

	_, err = c.ListTemplates(ctx)
	require.ErrorIs(t, err, models.ErrPersistence)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
}

type snapshots struct {
	mu        sync.Mutex
	templates [][]models.Template
	sessions  [][]models.Session
}

func (s *snapshots) lastTemplates() []models.Template {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.templates) == 0 {
		return nil
	}
	return s.templates[len(s.templates)-1]
}

func (s *snapshots) lastSessions() ([]models.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.sessions) == 0 {
		return nil, false
	}
	return s.sessions[len(s.sessions)-1], true
}

func TestFeed_ObservesOwnWrites(t *testing.T) {
	ctx := context.Background()
	_, c := newRemote(t)

	var got snapshots
	cancelT := c.SubscribeTemplates(func(ts []models.Template) {
		got.mu.Lock()
		got.templates = append(got.templates, ts)
		got.mu.Unlock()
	})
	defer cancelT()
	cancelS := c.SubscribeSessions(func(ss []models.Session) {
		got.mu.Lock()
		got.sessions = append(got.sessions, ss)
		got.mu.Unlock()
	})
	defer cancelS()

	require.NoError(t, c.Listen(ctx))
	assert.ErrorIs(t, c.Listen(ctx), remote.ErrAlreadyListening)

	// initial snapshots arrive on connect
	assert.Eventually(t, func() bool {
		_, ok := got.lastSessions()
		return ok && c.Connected()
	}, 5*time.Second, 10*time.Millisecond)

	tpl, err := c.CreateTemplate(ctx, "Pushed", []string{"a", "b"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		ts := got.lastTemplates()
		return len(ts) == 1 && ts[0].ID == tpl.ID
	}, 5*time.Second, 10*time.Millisecond)

	sess, err := c.CreateSession(ctx, tpl.ID)
	require.NoError(t, err)
	items := models.CloneItems(sess.Items)
	items[1].A = "note"
	require.NoError(t, c.UpdateSessionItems(ctx, sess.ID, items))

	assert.Eventually(t, func() bool {
		ss, _ := got.lastSessions()
		return len(ss) == 1 && ss[0].Items[1].A == "note"
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	assert.False(t, c.Connected())
}
