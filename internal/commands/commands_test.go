package commands

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/checkmaster/internal/models"
	"github.com/balkashynov/checkmaster/internal/parser"
)

// writeConfig points the local store and the log file into a temp dir
func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	cfg := "backend: local\n" +
		"lang: en\n" +
		"local:\n  path: " + filepath.Join(dir, "checkmaster.db") + "\n" +
		"log:\n  level: debug\n  file: " + filepath.Join(dir, "checkmaster.log") + "\n"
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0644))
	return path
}

func run(t *testing.T, cfgPath, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(append([]string{"--config", cfgPath}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func mustRun(t *testing.T, cfgPath string, args ...string) string {
	t.Helper()
	out, err := run(t, cfgPath, "", args...)
	require.NoError(t, err, out)
	return out
}

func listSessions(t *testing.T, cfgPath string) []models.Session {
	t.Helper()
	var ss []models.Session
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfgPath, "session", "ls", "--json")), &ss))
	return ss
}

func listTemplates(t *testing.T, cfgPath string) []models.Template {
	t.Helper()
	var ts []models.Template
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfgPath, "template", "ls", "--json")), &ts))
	return ts
}

func TestTemplateAndSessionFlow(t *testing.T) {
	cfg := writeConfig(t)

	out := mustRun(t, cfg, "template", "add", "Store opening", "-q", "Lights on", "-q", "Till counted")
	assert.Contains(t, out, `Template "Store opening" created with 2 questions`)

	ts := listTemplates(t, cfg)
	require.Len(t, ts, 1)
	assert.Equal(t, []string{"Lights on", "Till counted"}, ts[0].Questions)

	out = mustRun(t, cfg, "session", "start", parser.ShortID(ts[0].ID))
	assert.Contains(t, out, `Started "Store opening" with 2 items`)

	ss := listSessions(t, cfg)
	require.Len(t, ss, 1)
	id := parser.ShortID(ss[0].ID)

	mustRun(t, cfg, "session", "note", id, "2", "counted", "twice")
	out = mustRun(t, cfg, "session", "check", id, "1")
	assert.Contains(t, out, "1/2 done")
	mustRun(t, cfg, "session", "move", id, "2", "1")

	var got models.Session
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfg, "session", "show", id, "--json")), &got))
	want := []models.Item{
		{Q: "Till counted", A: "counted twice"},
		{Q: "Lights on", Checked: true},
	}
	if diff := cmp.Diff(want, got.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}

	// Editing the template leaves the running session alone
	mustRun(t, cfg, "template", "edit", parser.ShortID(ts[0].ID), "--title", "Opening", "-q", "Only one")
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfg, "session", "show", id, "--json")), &got))
	assert.Equal(t, "Store opening", got.Title)
	assert.Len(t, got.Items, 2)
}

func TestSessionCheckOff(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "template", "add", "T", "-q", "a")
	mustRun(t, cfg, "session", "start", parser.ShortID(listTemplates(t, cfg)[0].ID))
	id := parser.ShortID(listSessions(t, cfg)[0].ID)

	mustRun(t, cfg, "session", "check", id, "1")
	out := mustRun(t, cfg, "session", "check", id, "1", "--off")
	assert.Contains(t, out, "0/1 done")
}

func TestSessionPositionOutOfRange(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "template", "add", "T", "-q", "a")
	mustRun(t, cfg, "session", "start", parser.ShortID(listTemplates(t, cfg)[0].ID))
	id := parser.ShortID(listSessions(t, cfg)[0].ID)

	_, err := run(t, cfg, "", "session", "check", id, "5")
	assert.Error(t, err)
}

func TestTemplateAddRequiresQuestions(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "", "template", "add", "Empty")
	require.Error(t, err)
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Empty(t, listTemplates(t, cfg))
}

func TestRemoveAsksForConfirmation(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "template", "add", "T", "-q", "a")
	mustRun(t, cfg, "session", "start", parser.ShortID(listTemplates(t, cfg)[0].ID))
	id := parser.ShortID(listSessions(t, cfg)[0].ID)

	out, err := run(t, cfg, "n\n", "session", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "Cancelled")
	assert.Len(t, listSessions(t, cfg), 1)

	out, err = run(t, cfg, "y\n", "session", "rm", id)
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")
	assert.Empty(t, listSessions(t, cfg))

	mustRun(t, cfg, "template", "rm", parser.ShortID(listTemplates(t, cfg)[0].ID), "--yes")
	assert.Empty(t, listTemplates(t, cfg))
}

func TestUnknownSession(t *testing.T) {
	cfg := writeConfig(t)
	_, err := run(t, cfg, "", "session", "show", "deadbeef")
	assert.Error(t, err)
}

func TestBackupRestore(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "template", "add", "T", "-q", "a", "-q", "b")
	mustRun(t, cfg, "session", "start", parser.ShortID(listTemplates(t, cfg)[0].ID))

	file := filepath.Join(t.TempDir(), "backup.json")
	out := mustRun(t, cfg, "backup", "-o", file)
	assert.Contains(t, out, "Backed up 1 templates and 1 checklists")

	other := writeConfig(t)
	out = mustRun(t, other, "restore", file, "--yes")
	assert.Contains(t, out, "Restored 1 templates and 1 checklists")

	restored := listSessions(t, other)
	require.Len(t, restored, 1)
	original := listSessions(t, cfg)[0]
	assert.NotEqual(t, original.ID, restored[0].ID)
	assert.Equal(t, original.Title, restored[0].Title)
	assert.True(t, original.Created.Equal(restored[0].Created))
}

func TestExportTextToStdout(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "template", "add", "Closing", "-q", "Alarm set")
	mustRun(t, cfg, "session", "start", parser.ShortID(listTemplates(t, cfg)[0].ID))
	id := parser.ShortID(listSessions(t, cfg)[0].ID)

	out := mustRun(t, cfg, "export", "txt", id, "-o", "-")
	assert.Contains(t, out, "Closing")
	assert.Contains(t, out, "Alarm set")
	assert.NotContains(t, out, "Saved")
}

func TestExportCSVFile(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "template", "add", "Closing", "-q", "Alarm set")
	mustRun(t, cfg, "session", "start", parser.ShortID(listTemplates(t, cfg)[0].ID))
	id := parser.ShortID(listSessions(t, cfg)[0].ID)

	file := filepath.Join(t.TempDir(), "out.csv")
	mustRun(t, cfg, "export", "csv", id, "-o", file)
	data, err := os.ReadFile(file)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"Alarm set"`)
}

func TestTemplateHCLRoundTrip(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "template", "add", "Release", "-q", "Tag pushed", "-q", "Notes written")

	file := filepath.Join(t.TempDir(), "templates.hcl")
	mustRun(t, cfg, "template", "export", file)

	other := writeConfig(t)
	out := mustRun(t, other, "template", "import", file)
	assert.Contains(t, out, "Release (2 questions)")
	ts := listTemplates(t, other)
	require.Len(t, ts, 1)
	assert.Equal(t, []string{"Tag pushed", "Notes written"}, ts[0].Questions)
}

func TestSearchCommand(t *testing.T) {
	cfg := writeConfig(t)
	mustRun(t, cfg, "template", "add", "Store opening", "-q", "Lights on")
	mustRun(t, cfg, "template", "add", "Closing", "-q", "Lights off in store")

	var res searchResult
	require.NoError(t, json.Unmarshal([]byte(mustRun(t, cfg, "search", "store", "--json")), &res))
	require.Equal(t, 2, res.Count)
	assert.Equal(t, "Store opening", res.Hits[0].Title)
	assert.Equal(t, "title", res.Hits[0].Field)
	assert.Equal(t, "question", res.Hits[1].Field)
	assert.Equal(t, 1, res.Hits[1].Item)

	_, err := run(t, cfg, "", "search", "x", "--only", "bogus")
	assert.Error(t, err)
}

func TestSearchRanking(t *testing.T) {
	now := time.Now()
	ts := []models.Template{
		{ID: "t1", Title: "Weekly audit", Questions: []string{"check fridge"}, Created: now},
		{ID: "t2", Title: "Audit", Created: now},
	}
	ss := []models.Session{
		{ID: "s1", Title: "Opening", Items: []models.Item{{Q: "Lights", A: "audit pending"}}, Created: now},
		{ID: "s2", Title: "Closing", Items: []models.Item{{Q: "Mid audit review"}}, Created: now},
	}

	hits := search(ts, ss, "  AUDIT ")
	var ids []string
	for _, h := range hits {
		ids = append(ids, h.ID)
	}
	assert.Equal(t, []string{"t2", "s1", "t1", "s2"}, ids)
	assert.Equal(t, "note", hits[1].Field)

	assert.Empty(t, search(ts, ss, "   "))
	assert.Empty(t, search(ts, ss, "nothing"))
}

func TestConfirm(t *testing.T) {
	tests := []struct {
		input string
		yes   bool
		want  bool
	}{
		{input: "y\n", want: true},
		{input: "YES\n", want: true},
		{input: "n\n", want: false},
		{input: "\n", want: false},
		{input: "", want: false},
		{input: "", yes: true, want: true},
	}
	for _, tt := range tests {
		cmd := &cobra.Command{}
		cmd.SetIn(strings.NewReader(tt.input))
		cmd.SetOut(&bytes.Buffer{})
		assert.Equal(t, tt.want, confirm(cmd, "Sure?", tt.yes), "input %q", tt.input)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcdefg...", truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "체크리스...", truncate("체크리스트입니다", 7))
	assert.Equal(t, "ab", truncate("abcdef", 2))
}

func TestVersion(t *testing.T) {
	SetVersion("1.2.3", "abc", "today")
	t.Cleanup(func() { SetVersion("dev", "none", "unknown") })
	out := mustRun(t, writeConfig(t), "version")
	assert.Equal(t, "checkmaster 1.2.3 (commit abc, built today)\n", out)
}

func TestInvalidBackendFlag(t *testing.T) {
	_, err := run(t, writeConfig(t), "", "--backend", "ftp", "template", "ls")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "backend must be one of")
}
