// Package store defines the persistence contract shared by every backend.
//
// A Port offers create/read/update/delete for templates and sessions. The
// local sqlite store, the in-memory store, the DynamoDB store and the remote
// sync client all implement it. Backends that can push changes also
// implement Subscriber and emit full-collection snapshots after every change,
// including changes made by the same process.
package store

import (
	"context"

	"github.com/balkashynov/checkmaster/internal/models"
)

// Port is the abstract storage boundary the session engine depends on.
// List methods return records most-recently-created first.
type Port interface {
	ListTemplates(ctx context.Context) ([]models.Template, error)
	GetTemplate(ctx context.Context, id string) (*models.Template, error)
	CreateTemplate(ctx context.Context, title string, questions []string) (*models.Template, error)
	UpdateTemplate(ctx context.Context, id, title string, questions []string) error
	DeleteTemplate(ctx context.Context, id string) error

	ListSessions(ctx context.Context) ([]models.Session, error)
	GetSession(ctx context.Context, id string) (*models.Session, error)
	CreateSession(ctx context.Context, templateID string) (*models.Session, error)
	UpdateSessionItems(ctx context.Context, id string, items []models.Item) error
	DeleteSession(ctx context.Context, id string) error

	// ImportTemplate and ImportSession insert a copy of the record under a
	// fresh id, keeping every other field. Used by restore.
	ImportTemplate(ctx context.Context, t models.Template) (*models.Template, error)
	ImportSession(ctx context.Context, s models.Session) (*models.Session, error)
}

// Subscriber is implemented by push-capable backends. The returned function
// cancels the subscription.
type Subscriber interface {
	SubscribeTemplates(fn func([]models.Template)) (cancel func())
	SubscribeSessions(fn func([]models.Session)) (cancel func())
}
