package models

import (
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report json names in errors
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type templateInput struct {
	Title     string   `json:"title" validate:"required"`
	Questions []string `json:"questions" validate:"min=1,dive,required"`
}

// NormalizeTemplateInput trims the title and every question, drops blank
// questions, and rejects an empty title or an empty question list.
func NormalizeTemplateInput(title string, questions []string) (string, []string, error) {
	in := templateInput{
		Title:     strings.TrimSpace(title),
		Questions: make([]string, 0, len(questions)),
	}
	for _, q := range questions {
		if q = strings.TrimSpace(q); q != "" {
			in.Questions = append(in.Questions, q)
		}
	}

	if err := validate.Struct(in); err != nil {
		return "", nil, toValidationError(err)
	}
	return in.Title, in.Questions, nil
}

func toValidationError(err error) error {
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}

	fe := fieldErrs[0]
	switch fe.Field() {
	case "title":
		return &ValidationError{Field: "title", Message: "title is required"}
	case "questions":
		return &ValidationError{Field: "questions", Message: "at least one question is required"}
	default:
		return &ValidationError{Field: fe.Field(), Message: fe.Tag()}
	}
}
