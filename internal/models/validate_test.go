package models_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/checkmaster/internal/models"
)

func TestNormalizeTemplateInput(t *testing.T) {
	title, qs, err := models.NormalizeTemplateInput("  Daily check ", []string{" Oil ", "", "   ", "Tires"})
	require.NoError(t, err)
	assert.Equal(t, "Daily check", title)
	assert.Equal(t, []string{"Oil", "Tires"}, qs)
}

func TestNormalizeTemplateInput_Rejects(t *testing.T) {
	tests := []struct {
		name      string
		title     string
		questions []string
		field     string
	}{
		{"empty title", "   ", []string{"Oil"}, "title"},
		{"no questions", "Daily", nil, "questions"},
		{"only blank questions", "Daily", []string{" ", ""}, "questions"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := models.NormalizeTemplateInput(tt.title, tt.questions)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrValidation))

			var ve *models.ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.field, ve.Field)
		})
	}
}

func TestErrorTaxonomy(t *testing.T) {
	nf := models.NotFound(models.KindSession, "abc")
	assert.True(t, errors.Is(nf, models.ErrNotFound))
	assert.Equal(t, `session "abc" not found`, nf.Error())

	wrapped := models.Persistence("update items", errors.New("disk full"))
	assert.True(t, errors.Is(wrapped, models.ErrPersistence))
	assert.Contains(t, wrapped.Error(), "disk full")

	// taxonomy errors pass through untouched
	assert.Same(t, nf, models.Persistence("get", nf))
	assert.Nil(t, models.Persistence("noop", nil))
}
