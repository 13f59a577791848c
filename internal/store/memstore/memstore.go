// Package memstore is an in-process store.Port with push notifications.
// It backs tests and `checkmaster serve --store memory`.
package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

// Store keeps templates and sessions in maps guarded by a RWMutex
type Store struct {
	store.Broadcaster

	// pubMu is held by writers from mutation through publish so
	// subscribers see snapshots in commit order
	pubMu sync.Mutex

	mu        sync.RWMutex
	templates map[string]models.Template
	sessions  map[string]models.Session
	now       func() time.Time
	newID     func() string
}

// Option configures a Store
type Option func(*Store)

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithIDs overrides id generation
func WithIDs(newID func() string) Option {
	return func(s *Store) { s.newID = newID }
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		templates: make(map[string]models.Template),
		sessions:  make(map[string]models.Session),
		now:       time.Now,
		newID:     uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ store.Port = (*Store)(nil)
var _ store.Subscriber = (*Store)(nil)

func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.templateSnapshot(), nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.templates[id]
	if !ok {
		return nil, models.NotFound(models.KindTemplate, id)
	}
	t = t.Clone()
	return &t, nil
}

func (s *Store) CreateTemplate(ctx context.Context, title string, questions []string) (*models.Template, error) {
	title, questions, err := models.NormalizeTemplateInput(title, questions)
	if err != nil {
		return nil, err
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	t := models.NewTemplate(s.newID(), title, questions, s.now())
	s.templates[t.ID] = t
	snap := s.templateSnapshot()
	s.mu.Unlock()

	s.PublishTemplates(snap)
	out := t.Clone()
	return &out, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, id, title string, questions []string) error {
	title, questions, err := models.NormalizeTemplateInput(title, questions)
	if err != nil {
		return err
	}

	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	t, ok := s.templates[id]
	if !ok {
		s.mu.Unlock()
		return models.NotFound(models.KindTemplate, id)
	}
	t.Title = title
	t.Questions = append([]string(nil), questions...)
	s.templates[id] = t
	snap := s.templateSnapshot()
	s.mu.Unlock()

	s.PublishTemplates(snap)
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	delete(s.templates, id)
	snap := s.templateSnapshot()
	s.mu.Unlock()

	s.PublishTemplates(snap)
	return nil
}

func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sessionSnapshot(), nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, models.NotFound(models.KindSession, id)
	}
	sess = sess.Clone()
	return &sess, nil
}

func (s *Store) CreateSession(ctx context.Context, templateID string) (*models.Session, error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	t, ok := s.templates[templateID]
	if !ok {
		s.mu.Unlock()
		return nil, models.NotFound(models.KindTemplate, templateID)
	}
	sess := models.NewSession(s.newID(), t, s.now())
	s.sessions[sess.ID] = sess
	snap := s.sessionSnapshot()
	s.mu.Unlock()

	s.PublishSessions(snap)
	out := sess.Clone()
	return &out, nil
}

func (s *Store) UpdateSessionItems(ctx context.Context, id string, items []models.Item) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if !ok {
		s.mu.Unlock()
		return models.NotFound(models.KindSession, id)
	}
	sess.Items = models.CloneItems(items)
	s.sessions[id] = sess
	snap := s.sessionSnapshot()
	s.mu.Unlock()

	s.PublishSessions(snap)
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	delete(s.sessions, id)
	snap := s.sessionSnapshot()
	s.mu.Unlock()

	s.PublishSessions(snap)
	return nil
}

func (s *Store) ImportTemplate(ctx context.Context, t models.Template) (*models.Template, error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	t = t.Clone()
	t.ID = s.newID()
	if t.Created.IsZero() {
		t.Created = s.now()
	}
	t.Created = models.Stamp(t.Created)
	s.templates[t.ID] = t
	snap := s.templateSnapshot()
	s.mu.Unlock()

	s.PublishTemplates(snap)
	out := t.Clone()
	return &out, nil
}

func (s *Store) ImportSession(ctx context.Context, sess models.Session) (*models.Session, error) {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()
	s.mu.Lock()
	sess = sess.Clone()
	sess.ID = s.newID()
	if sess.Created.IsZero() {
		sess.Created = s.now()
	}
	sess.Created = models.Stamp(sess.Created)
	s.sessions[sess.ID] = sess
	snap := s.sessionSnapshot()
	s.mu.Unlock()

	s.PublishSessions(snap)
	out := sess.Clone()
	return &out, nil
}

// templateSnapshot must be called with mu held
func (s *Store) templateSnapshot() []models.Template {
	out := make([]models.Template, 0, len(s.templates))
	for _, t := range s.templates {
		out = append(out, t.Clone())
	}
	store.SortTemplates(out)
	return out
}

// sessionSnapshot must be called with mu held
func (s *Store) sessionSnapshot() []models.Session {
	out := make([]models.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, sess.Clone())
	}
	store.SortSessions(out)
	return out
}
