package store

import (
	"sync"

	"github.com/balkashynov/checkmaster/internal/models"
)

// Broadcaster fans snapshots out to subscribers. Backends embed it to
// implement Subscriber.
type Broadcaster struct {
	mu        sync.Mutex
	nextID    int
	templates map[int]func([]models.Template)
	sessions  map[int]func([]models.Session)
}

// SubscribeTemplates registers fn for template snapshots
func (b *Broadcaster) SubscribeTemplates(fn func([]models.Template)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.templates == nil {
		b.templates = make(map[int]func([]models.Template))
	}
	id := b.nextID
	b.nextID++
	b.templates[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.templates, id)
		b.mu.Unlock()
	}
}

// SubscribeSessions registers fn for session snapshots
func (b *Broadcaster) SubscribeSessions(fn func([]models.Session)) func() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.sessions == nil {
		b.sessions = make(map[int]func([]models.Session))
	}
	id := b.nextID
	b.nextID++
	b.sessions[id] = fn
	return func() {
		b.mu.Lock()
		delete(b.sessions, id)
		b.mu.Unlock()
	}
}

// PublishTemplates delivers a snapshot to every template subscriber. Each
// subscriber gets its own copy.
func (b *Broadcaster) PublishTemplates(snapshot []models.Template) {
	b.mu.Lock()
	fns := make([]func([]models.Template), 0, len(b.templates))
	for _, fn := range b.templates {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(CloneTemplates(snapshot))
	}
}

// PublishSessions delivers a snapshot to every session subscriber
func (b *Broadcaster) PublishSessions(snapshot []models.Session) {
	b.mu.Lock()
	fns := make([]func([]models.Session), 0, len(b.sessions))
	for _, fn := range b.sessions {
		fns = append(fns, fn)
	}
	b.mu.Unlock()

	for _, fn := range fns {
		fn(CloneSessions(snapshot))
	}
}

// HasSubscribers reports whether anyone is listening
func (b *Broadcaster) HasSubscribers() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.templates)+len(b.sessions) > 0
}

// CloneTemplates deep-copies a template list
func CloneTemplates(in []models.Template) []models.Template {
	out := make([]models.Template, len(in))
	for i, t := range in {
		out[i] = t.Clone()
	}
	return out
}

// CloneSessions deep-copies a session list
func CloneSessions(in []models.Session) []models.Session {
	out := make([]models.Session, len(in))
	for i, s := range in {
		out[i] = s.Clone()
	}
	return out
}
