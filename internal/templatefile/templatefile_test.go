package templatefile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/balkashynov/checkmaster/internal/models"
)

const sample = `
template "Vehicle check" {
  questions = ["Oil level", "  Tyre pressure "]

  question "Lights" {}
  question "Horn" {}
}

template "Office close" {
  question "Windows shut" {}
}
`

func TestParse_AttributeAndBlocks(t *testing.T) {
	defs, err := Parse([]byte(sample), "checks.hcl")
	require.NoError(t, err)

	want := []Definition{
		{Title: "Vehicle check", Questions: []string{"Oil level", "Tyre pressure", "Lights", "Horn"}},
		{Title: "Office close", Questions: []string{"Windows shut"}},
	}
	if diff := cmp.Diff(want, defs); diff != "" {
		t.Errorf("definitions mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_JSONSyntax(t *testing.T) {
	src := `{"template": {"Daily": {"questions": ["A", "B"]}}}`
	defs, err := Parse([]byte(src), "daily.json")
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, "Daily", defs[0].Title)
	assert.Equal(t, []string{"A", "B"}, defs[0].Questions)
}

func TestParse_Errors(t *testing.T) {
	_, err := Parse([]byte(`template "x" {`), "broken.hcl")
	assert.ErrorContains(t, err, "failed to parse")

	_, err = Parse([]byte(`other "x" {}`), "unknown.hcl")
	assert.ErrorContains(t, err, "failed to decode")

	_, err = Parse([]byte(``), "empty.hcl")
	assert.ErrorContains(t, err, "no template blocks")

	_, err = Parse([]byte(`template "No questions" {}`), "bare.hcl")
	assert.True(t, errors.Is(err, models.ErrValidation))
}

func TestFormat_RoundTrip(t *testing.T) {
	defs := []Definition{
		{Title: `Quoted "title"`, Questions: []string{"One", "Two, with comma"}},
		{Title: "Second", Questions: []string{"Three"}},
	}

	path := filepath.Join(t.TempDir(), "out.hcl")
	require.NoError(t, os.WriteFile(path, Format(defs), 0644))

	got, err := ParseFile(path)
	require.NoError(t, err)
	assert.Equal(t, defs, got)
}

func TestFromTemplates(t *testing.T) {
	defs := FromTemplates([]models.Template{{ID: "1", Title: "T", Questions: []string{"Q"}}})
	assert.Equal(t, []Definition{{Title: "T", Questions: []string{"Q"}}}, defs)
}
