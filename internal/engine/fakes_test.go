package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store/memstore"
)

// manualClock is a Scheduler driven by Advance
type manualClock struct {
	mu     sync.Mutex
	now    time.Duration
	timers []*manualTimer
}

type manualTimer struct {
	clock   *manualClock
	at      time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (c *manualClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTimer{clock: c, at: c.now + d, f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	if t.fired || t.stopped {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves time forward and runs every timer that came due, in order
func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	var due []*manualTimer
	var rest []*manualTimer
	for _, t := range c.timers {
		switch {
		case t.stopped || t.fired:
		case t.at <= c.now:
			t.fired = true
			due = append(due, t)
		default:
			rest = append(rest, t)
		}
	}
	c.timers = rest
	c.mu.Unlock()

	sort.SliceStable(due, func(i, j int) bool { return due[i].at < due[j].at })
	for _, t := range due {
		t.f()
	}
}

type recordedWrite struct {
	sessionID string
	items     []models.Item
}

// recordingPort records item writes and can inject failures
type recordingPort struct {
	*memstore.Store

	mu       sync.Mutex
	writes   []recordedWrite
	failures int
	failErr  error
}

func newRecordingPort() *recordingPort {
	return &recordingPort{Store: memstore.New()}
}

func (p *recordingPort) UpdateSessionItems(ctx context.Context, id string, items []models.Item) error {
	p.mu.Lock()
	p.writes = append(p.writes, recordedWrite{sessionID: id, items: models.CloneItems(items)})
	if p.failures != 0 {
		if p.failures > 0 {
			p.failures--
		}
		err := p.failErr
		p.mu.Unlock()
		return err
	}
	p.mu.Unlock()
	return p.Store.UpdateSessionItems(ctx, id, items)
}

// failNext makes the next n writes fail; n < 0 fails forever
func (p *recordingPort) failNext(n int, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = n
	p.failErr = err
}

func (p *recordingPort) recorded() []recordedWrite {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]recordedWrite(nil), p.writes...)
}

// noticeLog collects notices from the writer goroutine
type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) Notify(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) kinds() []NoticeKind {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]NoticeKind, len(l.notices))
	for i, n := range l.notices {
		out[i] = n.Kind
	}
	return out
}
