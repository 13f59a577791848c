// Package db is the local persistence backend: a sqlite database opened
// through gorm with the pure-Go glebarez driver.
package db

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/balkashynov/checkmaster/internal/logging"
	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

// Store is a store.Port over a sqlite file. Subscribers receive snapshots
// after this process writes, and after other processes write once Watch
// is running.
type Store struct {
	store.Broadcaster

	db     *gorm.DB
	path   string
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// Option configures a Store
type Option func(*Store)

// WithLogger sets the logger used for watcher and publish diagnostics
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		s.logger = logging.OrNop(l)
	}
}

// WithClock overrides the creation timestamp source
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

var _ store.Port = (*Store)(nil)
var _ store.Subscriber = (*Store)(nil)

// Open connects to the database at path, creating the file and its
// directory when missing, and runs migrations.
func Open(path string, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	gdb, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent), // Quiet by default
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &Store{
		db:     gdb,
		path:   path,
		logger: zap.NewNop(),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}

	if err := s.runMigrations(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return s, nil
}

// DefaultPath returns ~/.checkmaster/checkmaster.db
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".checkmaster", "checkmaster.db"), nil
}

// Path returns the database file location
func (s *Store) Path() string { return s.path }

func (s *Store) runMigrations() error {
	return s.db.AutoMigrate(
		&models.Template{},
		&models.Session{},
	)
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
