package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/models"
)

type writeJob struct {
	sessionID string
	items     []models.Item
	editGen   uint64
}

// writer drains jobs one at a time in enqueue order
type writer struct {
	e *Engine

	mu      sync.Mutex
	jobs    []writeJob
	busy    bool
	waiters []chan struct{}
	wake    chan struct{}

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

func newWriter(e *Engine) *writer {
	ctx, cancel := context.WithCancel(context.Background())
	return &writer{
		e:      e,
		wake:   make(chan struct{}, 1),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

func (w *writer) enqueue(job writeJob) {
	w.mu.Lock()
	w.jobs = append(w.jobs, job)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *writer) run() {
	defer close(w.done)
	for {
		job, ok := w.next()
		if !ok {
			select {
			case <-w.wake:
				continue
			case <-w.ctx.Done():
				return
			}
		}
		w.e.write(w.ctx, job)
		w.finish()
	}
}

func (w *writer) next() (writeJob, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.jobs) == 0 {
		w.busy = false
		w.releaseLocked()
		return writeJob{}, false
	}
	job := w.jobs[0]
	w.jobs = w.jobs[1:]
	w.busy = true
	return job, true
}

func (w *writer) finish() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if len(w.jobs) == 0 {
		w.releaseLocked()
	}
}

func (w *writer) releaseLocked() {
	for _, ch := range w.waiters {
		close(ch)
	}
	w.waiters = nil
}

func (w *writer) wait(ctx context.Context) error {
	w.mu.Lock()
	if len(w.jobs) == 0 && !w.busy {
		w.mu.Unlock()
		return nil
	}
	ch := make(chan struct{})
	w.waiters = append(w.waiters, ch)
	w.mu.Unlock()

	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-w.done:
		return nil
	}
}

func (w *writer) stop() {
	w.cancel()
	<-w.done
}

// write persists one job. Sessions deleted after the job was queued are skipped.
func (e *Engine) write(ctx context.Context, job writeJob) {
	log := e.logger.With(zap.String("session_id", job.sessionID))

	e.mu.Lock()
	tr, ok := e.sessions[job.sessionID]
	skip := !ok || tr.state == Deleted
	e.mu.Unlock()
	if skip {
		log.Debug("skipping write for deleted session")
		e.settle(job, nil)
		return
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = e.retryInitial

	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		err := e.port.UpdateSessionItems(ctx, job.sessionID, job.items)
		if errors.Is(err, models.ErrNotFound) || errors.Is(err, models.ErrValidation) {
			return struct{}{}, backoff.Permanent(err)
		}
		return struct{}{}, err
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(e.maxTries),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Warn("session write failed, retrying", zap.Error(err), zap.Duration("next", next))
		}),
	)
	e.settle(job, err)
}

// settle updates bookkeeping after a write and reports the outcome
func (e *Engine) settle(job writeJob, err error) {
	var notice *Notice

	e.mu.Lock()
	tr, ok := e.sessions[job.sessionID]
	if ok {
		tr.queued--
	}
	switch {
	case !ok:
	case err == nil:
		if tr.state != Deleted && tr.editGen == job.editGen {
			tr.editing = false
		}
		if tr.state != Deleted {
			notice = &Notice{Kind: NoticeSaved, SessionID: job.sessionID}
		}
		e.pruneLocked(job.sessionID, tr)
	case errors.Is(err, models.ErrNotFound):
		if tr.state == Deleted {
			e.logger.Debug("write raced a delete", zap.String("session_id", job.sessionID))
		} else {
			// removed by someone else before the snapshot arrived
			e.markDeletedLocked(tr)
			if e.openID == job.sessionID {
				e.openID = ""
			}
			notice = &Notice{Kind: NoticeDeleted, SessionID: job.sessionID, Err: err}
		}
		e.pruneLocked(job.sessionID, tr)
	default:
		e.logger.Error("session write failed", zap.String("session_id", job.sessionID), zap.Error(err))
		notice = &Notice{Kind: NoticeError, SessionID: job.sessionID, Err: err}
	}
	e.mu.Unlock()

	if notice != nil {
		e.notifier.Notify(*notice)
	}
}
