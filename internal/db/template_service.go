package db

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/balkashynov/checkmaster/internal/models"
)

// ListTemplates returns every template, newest first
func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	var templates []models.Template
	if err := s.db.WithContext(ctx).Order("created desc").Find(&templates).Error; err != nil {
		return nil, models.Persistence("list templates", err)
	}
	return templates, nil
}

// GetTemplate loads one template by id
func (s *Store) GetTemplate(ctx context.Context, id string) (*models.Template, error) {
	var t models.Template
	err := s.db.WithContext(ctx).First(&t, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.NotFound(models.KindTemplate, id)
	}
	if err != nil {
		return nil, models.Persistence("get template", err)
	}
	return &t, nil
}

// CreateTemplate validates input and inserts a new template
func (s *Store) CreateTemplate(ctx context.Context, title string, questions []string) (*models.Template, error) {
	title, questions, err := models.NormalizeTemplateInput(title, questions)
	if err != nil {
		return nil, err
	}

	t := models.NewTemplate(s.newID(), title, questions, s.now())
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, models.Persistence("create template", err)
	}

	s.publishTemplates(ctx)
	return &t, nil
}

// UpdateTemplate replaces title and questions. Existing sessions are untouched.
func (s *Store) UpdateTemplate(ctx context.Context, id, title string, questions []string) error {
	title, questions, err := models.NormalizeTemplateInput(title, questions)
	if err != nil {
		return err
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var t models.Template
		err := tx.First(&t, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NotFound(models.KindTemplate, id)
		}
		if err != nil {
			return err
		}
		t.Title = title
		t.Questions = questions
		return tx.Save(&t).Error
	})
	if err != nil {
		return models.Persistence("update template", err)
	}

	s.publishTemplates(ctx)
	return nil
}

// DeleteTemplate removes a template. Sessions created from it keep their
// dangling template id.
func (s *Store) DeleteTemplate(ctx context.Context, id string) error {
	if err := s.db.WithContext(ctx).Delete(&models.Template{}, "id = ?", id).Error; err != nil {
		return models.Persistence("delete template", err)
	}

	s.publishTemplates(ctx)
	return nil
}

// ImportTemplate inserts t under a fresh id
func (s *Store) ImportTemplate(ctx context.Context, t models.Template) (*models.Template, error) {
	t = t.Clone()
	t.ID = s.newID()
	if t.Created.IsZero() {
		t.Created = s.now()
	}
	t.Created = models.Stamp(t.Created)
	if err := s.db.WithContext(ctx).Create(&t).Error; err != nil {
		return nil, models.Persistence("import template", err)
	}

	s.publishTemplates(ctx)
	return &t, nil
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
