// Package tui is the interactive terminal front end. It renders the
// session engine's state and forwards key presses to it; persistence and
// reconciliation decisions stay in the engine.
package tui

import (
	"context"
	"errors"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/engine"
	"github.com/balkashynov/checkmaster/internal/export"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

// Options wires the TUI to a backend
type Options struct {
	Context    context.Context
	Port       store.Port
	Subscriber store.Subscriber // nil when the backend does not push snapshots
	Engine     *engine.Engine
	Relay      *Relay
	Logger     *zap.Logger
	Lang       export.Lang
	ExportDir  string
}

// Relay forwards engine notices into a running program. Create it before
// the engine and pass it with engine.WithNotifier.
type Relay struct {
	mu sync.Mutex
	p  *tea.Program
}

// Notify implements engine.Notifier
func (r *Relay) Notify(n engine.Notice) {
	r.mu.Lock()
	p := r.p
	r.mu.Unlock()
	if p != nil {
		p.Send(noticeMsg(n))
	}
}

func (r *Relay) attach(p *tea.Program) {
	r.mu.Lock()
	r.p = p
	r.mu.Unlock()
}

// Run starts the TUI and blocks until the user quits. Pending note edits
// are flushed before it returns.
func Run(opts Options) error {
	if opts.Port == nil || opts.Engine == nil {
		return errors.New("tui: port and engine are required")
	}
	if opts.Context == nil {
		opts.Context = context.Background()
	}
	if opts.ExportDir == "" {
		opts.ExportDir = "."
	}

	p := tea.NewProgram(newModel(opts), tea.WithAltScreen(), tea.WithContext(opts.Context))
	if opts.Relay != nil {
		opts.Relay.attach(p)
		defer opts.Relay.attach(nil)
	}

	if opts.Subscriber != nil {
		cancelT := opts.Subscriber.SubscribeTemplates(func(ts []models.Template) { p.Send(templatesMsg(ts)) })
		defer cancelT()
		cancelS := opts.Subscriber.SubscribeSessions(func(ss []models.Session) { p.Send(sessionsMsg(ss)) })
		defer cancelS()
	}

	_, runErr := p.Run()
	if errors.Is(runErr, tea.ErrProgramKilled) && opts.Context.Err() != nil {
		runErr = nil
	}

	flushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := opts.Engine.Flush(flushCtx); err != nil && runErr == nil {
		return err
	}
	return runErr
}
