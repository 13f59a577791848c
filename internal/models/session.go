package models

import (
	"time"
)

// Item is one question plus its note and completion flag
type Item struct {
	Q       string `json:"q" dynamodbav:"q"`             // question text, fixed at creation
	A       string `json:"a" dynamodbav:"a"`             // free-text note
	Checked bool   `json:"checked" dynamodbav:"checked"` // completion flag
}

// Session is a single filled-out run of a template
type Session struct {
	ID         string    `gorm:"primaryKey" json:"id" dynamodbav:"id"`
	TemplateID string    `gorm:"index" json:"templateId" dynamodbav:"templateId"` // may dangle once the template is deleted
	Title      string    `gorm:"not null" json:"title" dynamodbav:"title"`
	Items      []Item    `gorm:"serializer:json;not null" json:"items" dynamodbav:"items"`
	Created    time.Time `gorm:"index;not null" json:"created" dynamodbav:"created"`
}

// NewSession instantiates a session from a template snapshot. Title and
// questions are copied by value; every item starts with an empty note and
// unchecked.
func NewSession(id string, t Template, now time.Time) Session {
	items := make([]Item, len(t.Questions))
	for i, q := range t.Questions {
		items[i] = Item{Q: q}
	}
	return Session{
		ID:         id,
		TemplateID: t.ID,
		Title:      t.Title,
		Items:      items,
		Created:    Stamp(now),
	}
}

// Clone returns a deep copy of the session
func (s Session) Clone() Session {
	s.Items = CloneItems(s.Items)
	return s
}

// CheckedCount returns how many items are marked done
func (s Session) CheckedCount() int {
	n := 0
	for _, it := range s.Items {
		if it.Checked {
			n++
		}
	}
	return n
}

// CloneItems copies an item list
func CloneItems(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// MoveItem removes the item at from and reinserts it at to within the
// shortened list. Items strictly between the two positions shift by one;
// equal positions leave the list untouched.
func MoveItem(items []Item, from, to int) error {
	if err := CheckIndex("from", from, len(items)); err != nil {
		return err
	}
	if err := CheckIndex("to", to, len(items)); err != nil {
		return err
	}
	if from == to {
		return nil
	}

	moved := items[from]
	if from < to {
		copy(items[from:to], items[from+1:to+1])
	} else {
		copy(items[to+1:from+1], items[to:from])
	}
	items[to] = moved
	return nil
}

// CheckIndex reports a ValidationError when i is outside [0, n)
func CheckIndex(field string, i, n int) error {
	if i < 0 || i >= n {
		return &ValidationError{
			Field:   field,
			Message: outOfRange(i, n),
		}
	}
	return nil
}
