package dynamostore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

func (s *Store) ListSessions(ctx context.Context) ([]models.Session, error) {
	items, err := s.scan(ctx, entitySession)
	if err != nil {
		return nil, models.Persistence("list sessions", err)
	}

	sessions := make([]models.Session, 0, len(items))
	for _, item := range items {
		var sess models.Session
		if err := attributevalue.UnmarshalMap(item, &sess); err != nil {
			s.logger.Warn("skipping unreadable session", zap.Error(err))
			continue
		}
		sessions = append(sessions, sess.Clone())
	}
	store.SortSessions(sessions)
	return sessions, nil
}

func (s *Store) GetSession(ctx context.Context, id string) (*models.Session, error) {
	var sess models.Session
	found, err := s.get(ctx, entitySession, id, &sess)
	if err != nil {
		return nil, models.Persistence("get session", err)
	}
	if !found {
		return nil, models.NotFound(models.KindSession, id)
	}
	sess = sess.Clone()
	return &sess, nil
}

func (s *Store) CreateSession(ctx context.Context, templateID string) (*models.Session, error) {
	t, err := s.GetTemplate(ctx, templateID)
	if err != nil {
		return nil, err
	}
	sess := models.NewSession(s.newID(), *t, s.now())
	if err := s.insertSession(ctx, sess); err != nil {
		return nil, models.Persistence("create session", err)
	}
	s.publishSessions(ctx)
	return &sess, nil
}

func (s *Store) UpdateSessionItems(ctx context.Context, id string, items []models.Item) error {
	set := expression.Set(expression.Name("items"), expression.Value(models.CloneItems(items)))
	if err := s.update(ctx, models.KindSession, entitySession, id, set); err != nil {
		return models.Persistence("update session items", err)
	}
	s.publishSessions(ctx)
	return nil
}

func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.remove(ctx, entitySession, id); err != nil {
		return models.Persistence("delete session", err)
	}
	s.publishSessions(ctx)
	return nil
}

func (s *Store) ImportSession(ctx context.Context, sess models.Session) (*models.Session, error) {
	sess = sess.Clone()
	sess.ID = s.newID()
	if sess.Created.IsZero() {
		sess.Created = s.now()
	}
	sess.Created = models.Stamp(sess.Created)
	if err := s.insertSession(ctx, sess); err != nil {
		return nil, models.Persistence("import session", err)
	}
	s.publishSessions(ctx)
	return &sess, nil
}

func (s *Store) insertSession(ctx context.Context, sess models.Session) error {
	item, err := toItem(entitySession, sess.ID, sess)
	if err != nil {
		return err
	}
	return s.put(ctx, item)
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
