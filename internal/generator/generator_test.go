package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestParseDraftsArrayInFence(t *testing.T) {
	text := "```json\n[{\"title\":\"Use a timer\",\"body\":\"Work in 25 minute blocks.\",\"tags\":[\"focus\"]}," +
		"{\"title\":\"\",\"body\":\"dropped\"}]\n```"
	drafts, err := ParseDrafts(text)
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Use a timer", drafts[0].Title)
	assert.Equal(t, "Work in 25 minute blocks.", drafts[0].Summary)
	assert.Equal(t, []string{"focus"}, drafts[0].Tags)
}

func TestParseDraftsWrappedObject(t *testing.T) {
	drafts, err := ParseDrafts(`{"items":[{"title":"A","body":"aa"},{"title":"B","body":"bb","summary":"b"}]}`)
	require.NoError(t, err)
	require.Len(t, drafts, 2)
	assert.Equal(t, "b", drafts[1].Summary)
}

func TestParseDraftSingleObject(t *testing.T) {
	d, err := ParseDraft(`{"title":"New","body":"Fresh body","summary":"s","tags":[]}`)
	require.NoError(t, err)
	assert.Equal(t, "New", d.Title)
	assert.Equal(t, "Fresh body", d.Body)
}

func TestParseDraftsPlainText(t *testing.T) {
	drafts, err := ParseDrafts("# Morning pages\nWrite three pages every morning.")
	require.NoError(t, err)
	require.Len(t, drafts, 1)
	assert.Equal(t, "Morning pages", drafts[0].Title)
	assert.Equal(t, "Write three pages every morning.", drafts[0].Body)
}

func TestParseDraftsEmpty(t *testing.T) {
	_, err := ParseDrafts("  ")
	assert.ErrorIs(t, err, ErrEmpty)
	_, err = ParseDrafts("[]")
	assert.ErrorIs(t, err, ErrEmpty)
}

func TestParseDraftsJSONWithoutBody(t *testing.T) {
	for _, answer := range []string{
		`{"title": "Only a title"}`,
		"```json\n{\"headline\": \"x\"}\n```",
		`42`,
	} {
		drafts, err := ParseDrafts(answer)
		assert.ErrorIs(t, err, ErrEmpty, answer)
		assert.Empty(t, drafts)
	}
}

func TestResolveModel(t *testing.T) {
	g := &GenAI{defaultModel: "gemini-2.5-flash", logger: zap.NewNop()}
	assert.Equal(t, "gemini-2.5-pro", g.ResolveModel("gemini-2.5-pro"))
	assert.Equal(t, "gemini-2.5-flash", g.ResolveModel("o3"))
	assert.Equal(t, "gemini-2.5-flash", g.ResolveModel(""))
}
