package draftio

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/crmsync/pkg/normalize"
)

func TestParseArray(t *testing.T) {
	drafts, err := Parse(strings.NewReader(`
	[
		{"firstName": "John", "lastName": "Doe", "tags": ["VIP", "Hot"]},
		{"first_name": "Ann", "stage": "qualified"}
	]`))
	require.NoError(t, err)
	require.Len(t, drafts, 2)

	john := normalize.ContactFromDraft(drafts[0])
	assert.Equal(t, "John Doe", john.Name())
	assert.Equal(t, []string{"VIP", "Hot"}, john.Tags)
	assert.Equal(t, "Ann", normalize.ContactFromDraft(drafts[1]).FirstName)
}

func TestParseStream(t *testing.T) {
	drafts, err := Parse(strings.NewReader(`{"title": "Website deal", "value": 50000, "probability": 60}
{"title": "Support deal", "value": "1200.50"}`))
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, json.Number("50000"), drafts[0]["value"])

	deal := normalize.OpportunityFromDraft(drafts[0])
	assert.Equal(t, 50000.0, deal.Value)
	assert.Equal(t, 60, deal.Probability)
	assert.Equal(t, 1200.5, normalize.OpportunityFromDraft(drafts[1]).Value)
}

func TestParseEmptyInput(t *testing.T) {
	drafts, err := Parse(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func TestParseRejectsMalformed(t *testing.T) {
	_, err := Parse(strings.NewReader(`{"title": "ok"} {"title": `))
	assert.Error(t, err)

	_, err = Parse(strings.NewReader(`[{"title": "ok"}, 3]`))
	assert.Error(t, err)
}

func TestReadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tasks.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"title": "Call John", "due_date": "2024-03-12T00:00:00Z"}]`), 0600))

	drafts, err := ReadFile(path, nil)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "2024-03-12", normalize.TaskFromDraft(drafts[0]).DueDate)

	drafts, err = ReadFile(Stdin, strings.NewReader(`{"title": "from stdin"}`))
	require.NoError(t, err)
	require.Len(t, drafts, 1)

	_, err = ReadFile(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.Error(t, err)
}
