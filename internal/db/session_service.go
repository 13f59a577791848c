package db

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/checkmaster/internal/models"
)

// ListSessions returns every session, newest first
func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	var sessions []models.Session
	if err := s.db.WithContext(ctx).Order("created desc").Find(&sessions).Error; err != nil {
		return nil, models.Persistence("list sessions", err)
	}
	return sessions, nil
}

// GetSession loads one session by id
func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	err := s.db.WithContext(ctx).First(&sess, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound(models.KindSession, id)
	}
	if err != nil {
		return nil, models.Persistence("get session", err)
	}
	return &sess, nil
}

// CreateSession snapshots the template into a new session
func (s *Store) CreateSession(ctx context.Context, templateID string) (*models.Session, error) {
	t, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}

	sess := models.NewSession(s.newID(), *t, s.now())
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, models.Persistence("create session", err)
	}

	s.publishSessions(ctx)
	return &sess, nil
}

// UpdateSessionItems overwrites the item list of an existing session. It
// never creates a session.
func (s *Store) UpdateSessionItems(ctx context.Context, id string, items []models.Item) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var sess models.Session
		err := tx.First(&sess, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NotFound(models.KindSession, id)
		}
		if err != nil {
			return err
		}
		sess.Items = models.CloneItems(items)
		return tx.Save(&sess).Error
	})
	if err != nil {
		return models.Persistence("update session items", err)
	}

	s.publishSessions(ctx)
	return nil
}

// DeleteSession removes a session permanently
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Session{}, "id = ?", id).Error; err != nil {
		return models.Persistence("delete session", err)
	}

	s.publishSessions(ctx)
	return nil
}

// ImportSession inserts sess under a fresh id, keeping items and created
func (s *Store) ImportSession(ctx context.Context, sess models.Session) (*models.Session, error) {
	sess = sess.Clone()
	sess.ID = s.newID()
	if sess.Created.IsZero() {
		sess.Created = s.now()
	}
	sess.Created = models.Stamp(sess.Created)
	if err := s.db.WithContext(ctx).Create(&sess).Error; err != nil {
		return nil, models.Persistence("import session", err)
	}

	s.publishSessions(ctx)
	return &sess, nil
}

func (s *Store) publishSessions(ctx context.Context) {
	if !s.HasSubscribers() {
		return
	}
	sessions, err := s.ListSessions(ctx)
	if err != nil {
		s.logger.Warn("failed to load session snapshot", zap.Error(err))
		return
	}
	s.PublishSessions(sessions)
}
