package syncserver

import (
	"encoding/json"
	"errors"

	"github.com/balkashynov/checkmaster/internal/models"
)

// Websocket message types
const (
	TypeTemplates = "templates"
	TypeSessions  = "sessions"
)

// Message is one pushed snapshot. Data holds the full collection.
type Message struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp int64           `json:"timestamp"`
}

// Error codes in ErrorBody
const (
	CodeNotFound   = "not_found"
	CodeValidation = "validation"
	CodeInternal   = "internal"
)

// ErrorBody is the JSON error response of the REST API
type ErrorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
	Kind  string `json:"kind,omitempty"`
	ID    string `json:"id,omitempty"`
	Field string `json:"field,omitempty"`
}

// TemplateInput is the body of template create and update requests
type TemplateInput struct {
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
}

// SessionInput is the body of session create requests
type SessionInput struct {
	TemplateID string `json:"templateId"`
}

// ItemsInput is the body of item updates
type ItemsInput struct {
	Items []models.Item `json:"items"`
}

// errorBody classifies err for the wire
func errorBody(err error) (int, ErrorBody) {
	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		return 404, ErrorBody{Error: err.Error(), Code: CodeNotFound, Kind: nf.Kind, ID: nf.ID}
	}
	var ve *models.ValidationError
	if errors.As(err, &ve) {
		return 400, ErrorBody{Error: ve.Message, Code: CodeValidation, Field: ve.Field}
	}
	return 500, ErrorBody{Error: err.Error(), Code: CodeInternal}
}

// AsError turns an error body back into the error taxonomy
func (b ErrorBody) AsError() error {
	switch b.Code {
	case CodeNotFound:
		return models.NotFound(b.Kind, b.ID)
	case CodeValidation:
		return &models.ValidationError{Field: b.Field, Message: b.Error}
	default:
		return models.Persistence("remote", errors.New(b.Error))
	}
}
