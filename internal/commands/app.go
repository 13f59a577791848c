package commands

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/config"
	"github.com/balkashynov/checkmaster/internal/db"
	"github.com/balkashynov/checkmaster/internal/engine"
	"github.com/balkashynov/checkmaster/internal/export"
	"github.com/balkashynov/checkmaster/internal/logging"
	"github.com/balkashynov/checkmaster/internal/remote"
	"github.com/balkashynov/checkmaster/internal/store"
)

// app holds what a command needs once the backend is open
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	port   store.Port
	sub    store.Subscriber

	local  *db.Store
	remote *remote.Client

	closers []func() error
}

// globalFlags are bound to the root command's persistent flags
type globalFlags struct {
	configPath string
	backend    string
	debug      bool
}

// openApp loads config, builds the logger and opens the configured backend
func openApp(ctx context.Context, flags *globalFlags) (*app, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return nil, err
	}
	if flags.backend != "" {
		cfg.Backend = flags.backend
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
	}

	level := cfg.Log.Level
	if flags.debug {
		level = "debug"
	}
	logger, err := logging.New(logging.Options{Level: level, File: cfg.Log.File, Console: flags.debug})
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func() error {
		logger.Sync()
		return nil
	})

	switch cfg.Backend {
	case config.BackendRemote:
		c, err := remote.New(cfg.Remote.URL,
			remote.WithTimeout(cfg.Remote.Timeout),
			remote.WithLogger(logger.Named("remote")),
		)
		if err != nil {
			a.close()
			return nil, err
		}
		a.remote, a.port, a.sub = c, c, c
		a.closers = append(a.closers, c.Close)
	default:
		s, err := db.Open(cfg.Local.Path, db.WithLogger(logger.Named("db")))
		if err != nil {
			a.close()
			return nil, err
		}
		a.local, a.port, a.sub = s, s, s
		a.closers = append(a.closers, s.Close)
	}

	logger.Debug("backend opened", zap.String("backend", cfg.Backend))
	return a, nil
}

// live starts change notification for long-running views: the websocket
// feed for remote, the file watcher for local when enabled
func (a *app) live(ctx context.Context) error {
	switch {
	case a.remote != nil:
		return a.remote.Listen(ctx)
	case a.local != nil && a.cfg.Local.Watch:
		return a.local.Watch(ctx, db.DefaultWatchDelay)
	}
	return nil
}

func (a *app) newEngine(n engine.Notifier) *engine.Engine {
	opts := []engine.Option{
		engine.WithDebounce(a.cfg.Debounce),
		engine.WithRetry(a.cfg.Retry.MaxTries, a.cfg.Retry.Initial),
		engine.WithLogger(a.logger.Named("engine")),
	}
	if n != nil {
		opts = append(opts, engine.WithNotifier(n))
	}
	return engine.New(a.port, opts...)
}

func (a *app) lang(override string) (export.Lang, error) {
	if override != "" {
		return export.ParseLang(override)
	}
	return export.ParseLang(a.cfg.Lang)
}

func (a *app) close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// withApp opens the backend before fn and closes it afterwards
func withApp(flags *globalFlags, fn func(cmd *cobra.Command, args []string, a *app) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context(), flags)
		if err != nil {
			return err
		}
		defer a.close()
		return fn(cmd, args, a)
	}
}

// errorCollector is the notifier for one-shot commands: it keeps the
// first write failure so the command can exit non-zero
type errorCollector struct {
	mu  sync.Mutex
	err error
}

func (c *errorCollector) Notify(n engine.Notice) {
	if n.Kind == engine.NoticeSaved {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err == nil {
		c.err = n.Err
		if c.err == nil {
			c.err = fmt.Errorf("session %s: %s", n.SessionID, n.Kind)
		}
	}
}

func (c *errorCollector) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

func stderr(cmd *cobra.Command, format string, args ...interface{}) {
	fmt.Fprintf(cmd.ErrOrStderr(), format, args...)
}
