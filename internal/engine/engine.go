package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/logging"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

// DefaultDebounce is the quiet period before a note edit is persisted
const DefaultDebounce = 500 * time.Millisecond

const (
	// rememberDeleted bounds the ids State keeps reporting as Deleted after
	// their working copies are dropped
	rememberDeleted = 64
	// rememberWrites bounds the superseded writes kept per session for echo detection
	rememberWrites = 8
)

// ErrNoOpenSession is returned by item operations when no session is open
var ErrNoOpenSession = errors.New("no open session")

// tracked is the engine's working copy of one session
type tracked struct {
	session models.Session
	state   State

	focused bool   // an input has focus
	editing bool   // a note edit has not been confirmed by a write
	editGen uint64 // bumped by every note edit

	timer    Timer
	timerGen uint64 // identifies the live timer; stale fires are ignored

	queued int // writes enqueued and not yet finished

	lastWrite  []models.Item   // items of the newest enqueued write
	superseded [][]models.Item // older writes whose echo may still arrive
}

// Engine coordinates the open session with a store.Port
type Engine struct {
	mu       sync.Mutex
	port     store.Port
	sched    Scheduler
	debounce time.Duration
	logger   *zap.Logger
	notifier Notifier

	maxTries     uint
	retryInitial time.Duration

	sessions map[string]*tracked
	openID   string

	gone      map[string]struct{} // recently deleted, no longer tracked
	goneOrder []string

	writer *writer
}

// Option configures an Engine
type Option func(*Engine)

// WithDebounce sets the note debounce window
func WithDebounce(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.debounce = d
		}
	}
}

// WithScheduler replaces the timer source
func WithScheduler(s Scheduler) Option {
	return func(e *Engine) { e.sched = s }
}

// WithLogger sets the engine logger
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		e.logger = logging.OrNop(l)
	}
}

// WithNotifier sets the receiver of write outcomes
func WithNotifier(n Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

// WithRetry bounds the retries of a failing write. maxTries counts the
// first attempt.
func WithRetry(maxTries uint, initial time.Duration) Option {
	return func(e *Engine) {
		if maxTries > 0 {
			e.maxTries = maxTries
		}
		if initial > 0 {
			e.retryInitial = initial
		}
	}
}

// New creates an engine and starts its writer goroutine. Call Close to
// flush pending edits and stop it.
func New(port store.Port, opts ...Option) *Engine {
	e := &Engine{
		port:         port,
		sched:        RealScheduler{},
		debounce:     DefaultDebounce,
		logger:       zap.NewNop(),
		notifier:     discardNotifier{},
		maxTries:     3,
		retryInitial: 200 * time.Millisecond,
		sessions:     make(map[string]*tracked),
		gone:         make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	e.logger = e.logger.With(zap.String("component", "engine"))
	e.writer = newWriter(e)
	go e.writer.run()
	return e
}

// Start creates a session from templateID and opens it
func (e *Engine) Start(ctx context.Context, templateID string) (models.Session, error) {
	sess, err := e.port.CreateSession(ctx, templateID)
	if err != nil {
		return models.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	tr := &tracked{session: sess.Clone()}
	e.sessions[sess.ID] = tr
	e.setOpenLocked(sess.ID)
	e.logger.Info("session started", zap.String("session_id", sess.ID), zap.String("template_id", templateID))
	return tr.session.Clone(), nil
}

// Open makes id the open session. A working copy with unsaved or in-flight
// changes is reused; otherwise the session is loaded from the port.
func (e *Engine) Open(ctx context.Context, id string) (models.Session, error) {
	e.mu.Lock()
	if tr, ok := e.sessions[id]; ok && tr.state != Deleted && (tr.timer != nil || tr.queued > 0) {
		e.setOpenLocked(id)
		out := tr.session.Clone()
		e.mu.Unlock()
		return out, nil
	}
	e.mu.Unlock()

	sess, err := e.port.GetSession(ctx, id)
	if err != nil {
		return models.Session{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	tr := &tracked{session: sess.Clone()}
	e.sessions[id] = tr
	e.setOpenLocked(id)
	return tr.session.Clone(), nil
}

// Leave closes the open session view. Pending edits are still written.
func (e *Engine) Leave() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.setOpenLocked("")
}

// setOpenLocked switches the open session and drops the previous working
// copy when nothing is pending for it.
func (e *Engine) setOpenLocked(id string) {
	prev := e.openID
	e.openID = id
	if prev == "" || prev == id {
		return
	}
	if tr, ok := e.sessions[prev]; ok {
		tr.focused = false
		tr.editing = false
		e.pruneLocked(prev, tr)
	}
}

// pruneLocked drops a working copy once nothing is pending for it. Deleted
// sessions leave their id behind so State still reports them.
func (e *Engine) pruneLocked(id string, tr *tracked) {
	if id == e.openID || tr.timer != nil || tr.queued > 0 {
		return
	}
	delete(e.sessions, id)
	if tr.state != Deleted {
		return
	}
	if _, ok := e.gone[id]; ok {
		return
	}
	e.gone[id] = struct{}{}
	e.goneOrder = append(e.goneOrder, id)
	if len(e.goneOrder) > rememberDeleted {
		delete(e.gone, e.goneOrder[0])
		e.goneOrder = e.goneOrder[1:]
	}
}

// Current returns a copy of the open session
func (e *Engine) Current() (models.Session, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr := e.openLocked()
	if tr == nil {
		return models.Session{}, false
	}
	return tr.session.Clone(), true
}

// State reports the persistence state of a session. Untracked sessions are Idle.
func (e *Engine) State(id string) State {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tr, ok := e.sessions[id]; ok {
		return tr.state
	}
	if _, ok := e.gone[id]; ok {
		return Deleted
	}
	return Idle
}

// Editing reports whether the edit-in-progress flag of the open session is set
func (e *Engine) Editing() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	tr := e.openLocked()
	return tr != nil && tr.inEdit()
}

func (tr *tracked) inEdit() bool { return tr.focused || tr.editing }

func (e *Engine) openLocked() *tracked {
	if e.openID == "" {
		return nil
	}
	tr, ok := e.sessions[e.openID]
	if !ok || tr.state == Deleted {
		return nil
	}
	return tr
}

// mutableLocked returns the open session or the reason it cannot be edited
func (e *Engine) mutableLocked() (*tracked, error) {
	if e.openID == "" {
		return nil, ErrNoOpenSession
	}
	tr, ok := e.sessions[e.openID]
	if !ok {
		return nil, ErrNoOpenSession
	}
	if tr.state == Deleted {
		return nil, models.NotFound(models.KindSession, e.openID)
	}
	return tr, nil
}

// Reorder moves the item at from to position to and persists immediately.
// Equal positions change nothing but are still written.
func (e *Engine) Reorder(from, to int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, err := e.mutableLocked()
	if err != nil {
		return err
	}
	if err := models.MoveItem(tr.session.Items, from, to); err != nil {
		return err
	}
	e.writeNowLocked(tr)
	return nil
}

// EditNote sets the note of item index and restarts the debounce timer
func (e *Engine) EditNote(index int, text string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, err := e.mutableLocked()
	if err != nil {
		return err
	}
	if err := models.CheckIndex("index", index, len(tr.session.Items)); err != nil {
		return err
	}

	tr.session.Items[index].A = text
	tr.state = Dirty
	tr.editing = true
	tr.editGen++
	e.restartTimerLocked(tr)
	return nil
}

// SetChecked sets the completion flag of item index and persists immediately
func (e *Engine) SetChecked(index int, checked bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, err := e.mutableLocked()
	if err != nil {
		return err
	}
	if err := models.CheckIndex("index", index, len(tr.session.Items)); err != nil {
		return err
	}
	tr.session.Items[index].Checked = checked
	e.writeNowLocked(tr)
	return nil
}

// ToggleChecked flips the completion flag of item index and returns the new value
func (e *Engine) ToggleChecked(index int) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, err := e.mutableLocked()
	if err != nil {
		return false, err
	}
	if err := models.CheckIndex("index", index, len(tr.session.Items)); err != nil {
		return false, err
	}
	it := &tr.session.Items[index]
	it.Checked = !it.Checked
	e.writeNowLocked(tr)
	return it.Checked, nil
}

// BeginEdit marks an input as focused so pushed snapshots do not replace
// what the user is typing
func (e *Engine) BeginEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tr := e.openLocked(); tr != nil {
		tr.focused = true
	}
}

// EndEdit clears the edit-in-progress flag
func (e *Engine) EndEdit() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if tr := e.openLocked(); tr != nil {
		tr.focused = false
		tr.editing = false
	}
}

// Delete removes a session. Pending timers are cancelled and no further
// writes are issued for it.
func (e *Engine) Delete(ctx context.Context, id string) error {
	e.mu.Lock()
	if e.openID == id {
		e.openID = ""
	}
	if tr, ok := e.sessions[id]; ok {
		e.markDeletedLocked(tr)
		e.pruneLocked(id, tr)
	}
	e.mu.Unlock()

	if err := e.port.DeleteSession(ctx, id); err != nil {
		return err
	}
	e.logger.Info("session deleted", zap.String("session_id", id))
	return nil
}

func (e *Engine) markDeletedLocked(tr *tracked) {
	e.stopTimerLocked(tr)
	tr.state = Deleted
	tr.focused = false
	tr.editing = false
}

func (e *Engine) restartTimerLocked(tr *tracked) {
	e.stopTimerLocked(tr)
	tr.timerGen++
	id, gen := tr.session.ID, tr.timerGen
	tr.timer = e.sched.AfterFunc(e.debounce, func() { e.fire(id, gen) })
}

func (e *Engine) stopTimerLocked(tr *tracked) {
	if tr.timer != nil {
		tr.timer.Stop()
		tr.timer = nil
	}
}

// fire runs when a debounce timer elapses
func (e *Engine) fire(id string, gen uint64) {
	e.mu.Lock()
	defer e.mu.Unlock()

	tr, ok := e.sessions[id]
	if !ok || tr.state == Deleted || tr.timer == nil || tr.timerGen != gen {
		return
	}
	tr.timer = nil
	tr.state = Idle
	e.enqueueLocked(tr)
}

// writeNowLocked cancels any pending debounce and enqueues the current items
func (e *Engine) writeNowLocked(tr *tracked) {
	e.stopTimerLocked(tr)
	tr.state = Idle
	e.enqueueLocked(tr)
}

func (e *Engine) enqueueLocked(tr *tracked) {
	items := models.CloneItems(tr.session.Items)
	if tr.lastWrite != nil {
		tr.superseded = append(tr.superseded, tr.lastWrite)
		if len(tr.superseded) > rememberWrites {
			tr.superseded = tr.superseded[1:]
		}
	}
	tr.lastWrite = items

	tr.queued++
	e.writer.enqueue(writeJob{
		sessionID: tr.session.ID,
		items:     models.CloneItems(items),
		editGen:   tr.editGen,
	})
}

// Flush fires every pending debounce timer now and waits until the write
// queue is empty.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	for _, tr := range e.sessions {
		if tr.timer != nil && tr.state != Deleted {
			e.writeNowLocked(tr)
		}
	}
	e.mu.Unlock()
	return e.Wait(ctx)
}

// Wait blocks until every enqueued write has finished
func (e *Engine) Wait(ctx context.Context) error {
	return e.writer.wait(ctx)
}

// Close flushes pending edits and stops the writer
func (e *Engine) Close(ctx context.Context) error {
	err := e.Flush(ctx)
	e.writer.stop()
	return err
}
