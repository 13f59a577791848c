package dynamostore

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"go.uber.org/zap"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	items, err := s.scan(ctx, entityTemplate)
	if err != nil {
		return nil, models.Persistence("list templates", err)
	}

	templates := make([]models.Template, 0, len(items))
	for _, item := range items {
		var t models.Template
		if err := attributevalue.UnmarshalMap(item, &t); err != nil {
			s.logger.Warn("skipping unreadable template", zap.Error(err))
			continue
		}
		templates = append(templates, t.Clone())
	}
	store.SortTemplates(templates)
	return templates, nil
}

func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	var t models.Template
	found, err := s.get(ctx, entityTemplate, id, &t)
	if err != nil {
		return nil, models.Persistence("get template", err)
	}
	if !found {
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
	t := models.NewTemplate(s.newID(), title, questions, s.now())
	if err := s.insertTemplate(ctx, t); err != nil {
		return nil, models.Persistence("create template", err)
	}
	s.publishTemplates(ctx)
	return &t, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, id, title string, questions []string) error {
	title, questions, err := models.NormalizeTemplateInput(title, questions)
	if err != nil {
		return err
	}
	set := expression.Set(expression.Name("title"), expression.Value(title)).
		Set(expression.Name("questions"), expression.Value(questions))
	if err := s.update(ctx, models.KindTemplate, entityTemplate, id, set); err != nil {
		return models.Persistence("update template", err)
	}
	s.publishTemplates(ctx)
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.remove(ctx, entityTemplate, id); err != nil {
		return models.Persistence("delete template", err)
	}
	s.publishTemplates(ctx)
	return nil
}

func (s *Store) ImportTemplate(ctx context.Context, t models.Template) (*models.Template, error) {
	t = t.Clone()
	t.ID = s.newID()
	if t.Created.IsZero() {
		t.Created = s.now()
	}
	t.Created = models.Stamp(t.Created)
	if err := s.insertTemplate(ctx, t); err != nil {
		return nil, models.Persistence("import template", err)
	}
	s.publishTemplates(ctx)
	return &t, nil
}

func (s *Store) insertTemplate(ctx context.Context, t models.Template) error {
	item, err := toItem(entityTemplate, t.ID, t)
	if err != nil {
		return err
	}
	return s.put(ctx, item)
}

func (s *Store) publishTemplates(ctx context.Context) {
	if !s.HasSubscribers() {
		return
	}
	templates, err := s.ListTemplates(ctx)
	if err != nil {
		s.logger.Warn("failed to load template snapshot", zap.Error(err))
		return
	}
	s.PublishTemplates(templates)
}
