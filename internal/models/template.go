package models

import (
	"time"
)

// Template is a reusable, named, ordered list of questions
type Template struct {
	ID        string    `gorm:"primaryKey" json:"id" dynamodbav:"id"`
	Title     string    `gorm:"not null" json:"title" dynamodbav:"title"`
	Questions []string  `gorm:"serializer:json;not null" json:"questions" dynamodbav:"questions"`
	Created   time.Time `gorm:"index;not null" json:"created" dynamodbav:"created"`
}

// Stamp reduces a creation time to millisecond precision, the resolution of
// the backup format, so records survive a backup and restore unchanged.
func Stamp(t time.Time) time.Time {
	return t.Truncate(time.Millisecond)
}

// NewTemplate builds a template from already normalized input
func NewTemplate(id, title string, questions []string, now time.Time) Template {
	qs := make([]string, len(questions))
	copy(qs, questions)
	return Template{
		ID:        id,
		Title:     title,
		Questions: qs,
		Created:   Stamp(now),
	}
}

// Clone returns a deep copy so callers never share the questions slice
func (t Template) Clone() Template {
	t.Questions = append([]string(nil), t.Questions...)
	if t.Questions == nil {
		t.Questions = []string{}
	}
	return t
}
