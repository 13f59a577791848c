package export

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/store"
)

// AppVersion is stamped into every backup
const AppVersion = "2.0-checkmaster"

// ErrInvalidBackup means the file lacks the templates or sessions array
var ErrInvalidBackup = errors.New("invalid backup file")

// Millis is a timestamp serialized as epoch milliseconds. It decodes
// numbers and RFC 3339 strings.
type Millis time.Time

func (m Millis) Time() time.Time { return time.Time(m) }

func (m Millis) MarshalJSON() ([]byte, error) {
	t := time.Time(m)
	if t.IsZero() {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.UnixMilli(), 10)), nil
}

func (m *Millis) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*m = Millis{}
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		t, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return fmt.Errorf("invalid created time %q: %w", s, err)
		}
		*m = Millis(t)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("invalid created time %s: %w", data, err)
	}
	*m = Millis(time.UnixMilli(int64(f)))
	return nil
}

// BackupTemplate is the backup form of a template
type BackupTemplate struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	Questions []string `json:"questions"`
	Created   Millis   `json:"created"`
}

// BackupSession is the backup form of a session
type BackupSession struct {
	ID         string        `json:"id"`
	TemplateID string        `json:"templateId,omitempty"`
	Title      string        `json:"title"`
	Items      []models.Item `json:"items"`
	Created    Millis        `json:"created"`
}

// Backup is the JSON document written by `checkmaster backup`
type Backup struct {
	Templates  []BackupTemplate `json:"templates"`
	Sessions   []BackupSession  `json:"sessions"`
	ExportedAt string           `json:"exportedAt"`
	AppVersion string           `json:"appVersion"`
}

// NewBackup snapshots templates and sessions
func NewBackup(ts []models.Template, ss []models.Session, now time.Time) Backup {
	b := Backup{
		Templates:  make([]BackupTemplate, len(ts)),
		Sessions:   make([]BackupSession, len(ss)),
		ExportedAt: now.UTC().Format(time.RFC3339Nano),
		AppVersion: AppVersion,
	}
	for i, t := range ts {
		b.Templates[i] = BackupTemplate{
			ID:        t.ID,
			Title:     t.Title,
			Questions: append([]string{}, t.Questions...),
			Created:   Millis(t.Created),
		}
	}
	for i, s := range ss {
		b.Sessions[i] = BackupSession{
			ID:         s.ID,
			TemplateID: s.TemplateID,
			Title:      s.Title,
			Items:      models.CloneItems(s.Items),
			Created:    Millis(s.Created),
		}
	}
	return b
}

// WriteBackup encodes b as indented JSON
func WriteBackup(w io.Writer, b Backup) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(b)
}

// ReadBackup decodes a backup and requires both record arrays
func ReadBackup(r io.Reader) (*Backup, error) {
	var raw struct {
		Templates *[]BackupTemplate `json:"templates"`
		Sessions  *[]BackupSession  `json:"sessions"`
		ExportedAt string           `json:"exportedAt"`
		AppVersion string           `json:"appVersion"`
	}
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidBackup, err)
	}
	if raw.Templates == nil || raw.Sessions == nil {
		return nil, fmt.Errorf("%w: templates and sessions are required", ErrInvalidBackup)
	}
	return &Backup{
		Templates:  *raw.Templates,
		Sessions:   *raw.Sessions,
		ExportedAt: raw.ExportedAt,
		AppVersion: raw.AppVersion,
	}, nil
}

// RestoreResult counts the imported records
type RestoreResult struct {
	Templates int
	Sessions  int
}

// Restore imports every record of b under a fresh id. Records are added,
// never merged, so restoring twice duplicates them. It stops at the first
// failure and reports how far it got.
func Restore(ctx context.Context, port store.Port, b *Backup) (RestoreResult, error) {
	var res RestoreResult
	for _, t := range b.Templates {
		_, err := port.ImportTemplate(ctx, models.Template{
			Title:     t.Title,
			Questions: append([]string{}, t.Questions...),
			Created:   t.Created.Time(),
		})
		if err != nil {
			return res, fmt.Errorf("failed to restore template %q: %w", t.Title, err)
		}
		res.Templates++
	}
	for _, s := range b.Sessions {
		items := models.CloneItems(s.Items)
		_, err := port.ImportSession(ctx, models.Session{
			TemplateID: s.TemplateID,
			Title:      s.Title,
			Items:      items,
			Created:    s.Created.Time(),
		})
		if err != nil {
			return res, fmt.Errorf("failed to restore session %q: %w", s.Title, err)
		}
		res.Sessions++
	}
	return res, nil
}
