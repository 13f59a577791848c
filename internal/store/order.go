package store

import (
	"sort"

	"github.com/balkashynov/checkmaster/internal/models"
)

// SortTemplates orders templates most-recently-created first
func SortTemplates(ts []models.Template) {
	sort.SliceStable(ts, func(i, j int) bool {
		return ts[i].Created.After(ts[j].Created)
	})
}

// SortSessions orders sessions most-recently-created first
func SortSessions(ss []models.Session) {
	sort.SliceStable(ss, func(i, j int) bool {
		return ss[i].Created.After(ss[j].Created)
	})
}

// FindSession returns the session with id from a snapshot
func FindSession(ss []models.Session, id string) (models.Session, bool) {
	for _, s := range ss {
		if s.ID == id {
			return s, true
		}
	}
	return models.Session{}, false
}

// FindTemplate returns the template with id from a snapshot
func FindTemplate(ts []models.Template, id string) (models.Template, bool) {
	for _, t := range ts {
		if t.ID == id {
			return t, true
		}
	}
	return models.Template{}, false
}
