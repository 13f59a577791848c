package memstore_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store/memstore"
)

// steppingClock returns a strictly increasing time on every call
func steppingClock() func() time.Time {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func newStore() *memstore.Store {
	return memstore.New(memstore.WithClock(steppingClock()), memstore.WithIDs(sequentialIDs()))
}

func TestTemplates_CRUDAndOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	first, err := s.CreateTemplate(ctx, "First", []string{"A"})
	require.NoError(t, err)
	second, err := s.CreateTemplate(ctx, "Second", []string{"B", "C"})
	require.NoError(t, err)

	list, err := s.ListTemplates(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	require.NoError(t, s.UpdateTemplate(ctx, first.ID, "First v2", []string{"A", "Z"}))
	got, err := s.GetTemplate(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "First v2", got.Title)
	assert.Equal(t, []string{"A", "Z"}, got.Questions)

	err = s.UpdateTemplate(ctx, "missing", "x", []string{"y"})
	assert.True(t, errors.Is(err, models.ErrNotFound))

	require.NoError(t, s.DeleteTemplate(ctx, first.ID))
	_, err = s.GetTemplate(ctx, first.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestCreateTemplate_Validation(t *testing.T) {
	_, err := newStore().CreateTemplate(context.Background(), " ", []string{"A"})
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestSessions_SnapshotSemantics(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	tmpl, err := s.CreateTemplate(ctx, "Checks", []string{"A", "B"})
	require.NoError(t, err)
	sess, err := s.CreateSession(ctx, tmpl.ID)
	require.NoError(t, err)
	require.Len(t, sess.Items, 2)

	// template edits and deletion do not cascade
	require.NoError(t, s.UpdateTemplate(ctx, tmpl.ID, "Renamed", []string{"X"}))
	require.NoError(t, s.DeleteTemplate(ctx, tmpl.ID))

	got, err := s.GetSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "Checks", got.Title)
	assert.Equal(t, tmpl.ID, got.TemplateID)
	assert.Equal(t, "A", got.Items[0].Q)

	_, err = s.CreateSession(ctx, tmpl.ID)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUpdateSessionItems_NeverCreates(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	err := s.UpdateSessionItems(ctx, "ghost", []models.Item{{Q: "A"}})
	assert.True(t, errors.Is(err, models.ErrNotFound))

	list, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestSubscribe_ReceivesOwnChanges(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	var snapshots [][]models.Session
	cancel := s.SubscribeSessions(func(ss []models.Session) {
		snapshots = append(snapshots, ss)
	})

	tmpl, err := s.CreateTemplate(ctx, "Checks", []string{"A"})
	require.NoError(t, err)
	sess, err := s.CreateSession(ctx, tmpl.ID)
	require.NoError(t, err)
	require.NoError(t, s.UpdateSessionItems(ctx, sess.ID, []models.Item{{Q: "A", A: "done"}}))

	require.Len(t, snapshots, 2)
	assert.Equal(t, "done", snapshots[1][0].Items[0].A)

	cancel()
	require.NoError(t, s.DeleteSession(ctx, sess.ID))
	assert.Len(t, snapshots, 2, "no delivery after cancel")
}

func TestSubscribe_ConcurrentWritersPublishInOrder(t *testing.T) {
	ctx := context.Background()
	s := newStore()

	tmpl, err := s.CreateTemplate(ctx, "Checks", []string{"A"})
	require.NoError(t, err)

	var (
		mu    sync.Mutex
		sizes []int
	)
	cancel := s.SubscribeSessions(func(ss []models.Session) {
		mu.Lock()
		sizes = append(sizes, len(ss))
		mu.Unlock()
	})
	defer cancel()

	const writers = 32
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateSession(ctx, tmpl.ID)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, sizes, writers)
	for i, n := range sizes {
		assert.Equal(t, i+1, n, "snapshot %d delivered out of order", i)
	}
}

func TestImport_AssignsFreshIDs(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	created := time.Date(2023, 3, 3, 3, 3, 3, 0, time.UTC)

	imported, err := s.ImportSession(ctx, models.Session{
		ID:      "old",
		Title:   "Restored",
		Items:   []models.Item{{Q: "A", A: "note", Checked: true}},
		Created: created,
	})
	require.NoError(t, err)
	assert.NotEqual(t, "old", imported.ID)
	assert.Equal(t, created, imported.Created)
	assert.Equal(t, "note", imported.Items[0].A)
}
