package debug

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchAddAndEvaluate(t *testing.T) {
	e := NewWatchEvaluator(nil)
	w := e.Add("user.name", "who")

	require.NotEmpty(t, w.ID)
	assert.True(t, w.Enabled)

	ev := e.Evaluate(w.ID, map[string]any{"user": map[string]any{"name": "ada"}})
	require.NotNil(t, ev)
	assert.Equal(t, "ada", ev.Value)
	assert.Equal(t, TypeString, ev.Type)
	assert.Empty(t, ev.Error)

	cached := e.Get(w.ID)
	assert.Equal(t, "ada", cached.LastValue)
	require.NotNil(t, cached.LastEvaluatedAt)
}

func TestWatchBrokenExpressionIsIsolated(t *testing.T) {
	e := NewWatchEvaluator(nil)
	good := e.Add("count", "")
	bad := e.Add("count +* 1", "")

	results := e.EvaluateAll(map[string]any{"count": 2}, nil)
	require.Len(t, results, 2)

	byID := map[string]*WatchEvaluation{}
	for _, r := range results {
		byID[r.ExpressionID] = r
	}
	assert.Equal(t, 2, byID[good.ID].Value)
	assert.Empty(t, byID[good.ID].Error)
	assert.NotEmpty(t, byID[bad.ID].Error)
	assert.Nil(t, byID[bad.ID].Value)
}

func TestWatchMissingKeyEvaluatesToUndefined(t *testing.T) {
	e := NewWatchEvaluator(nil)
	w := e.Add("missing.key", "")

	ev := e.Evaluate(w.ID, map[string]any{})
	require.NotNil(t, ev)
	assert.Empty(t, ev.Error)
	assert.Equal(t, Undefined, ev.Value)
	assert.Equal(t, TypeUndefined, ev.Type)
}

func TestWatchUpdateClearsCache(t *testing.T) {
	e := NewWatchEvaluator(nil)
	w := e.Add("count", "")
	e.Evaluate(w.ID, map[string]any{"count": 1})
	require.NotNil(t, e.Get(w.ID).LastEvaluatedAt)

	updated := e.Update(w.ID, "count + 1")
	require.NotNil(t, updated)
	assert.Equal(t, "count + 1", updated.Expression)
	assert.Nil(t, updated.LastValue)
	assert.Nil(t, updated.LastEvaluatedAt)
}

func TestWatchToggleAndEnabledFiltering(t *testing.T) {
	e := NewWatchEvaluator(nil)
	w := e.Add("count", "")
	e.Add("count * 2", "")

	toggled := e.Toggle(w.ID)
	require.NotNil(t, toggled)
	assert.False(t, toggled.Enabled)

	results := e.EvaluateAll(map[string]any{"count": 1}, nil)
	assert.Len(t, results, 1, "disabled watches are skipped")
	assert.Len(t, e.ListEnabled(), 1)
	assert.Len(t, e.List(), 2)
}

func TestWatchUnknownIDOperations(t *testing.T) {
	e := NewWatchEvaluator(nil)
	assert.False(t, e.Remove("nope"))
	assert.Nil(t, e.Update("nope", "x"))
	assert.Nil(t, e.Toggle("nope"))
	assert.Nil(t, e.Evaluate("nope", map[string]any{}))
}

func TestWatchEvaluateExpressionAdHoc(t *testing.T) {
	e := NewWatchEvaluator(nil)
	ev := e.EvaluateExpression("1 + 2", map[string]any{})
	require.NotNil(t, ev)
	assert.Equal(t, 3, ev.Value)
	assert.Equal(t, TypeNumber, ev.Type)
	assert.Empty(t, ev.ExpressionID, "ad-hoc evaluation registers nothing")
	assert.Empty(t, e.List())
}

func TestWatchJSONRoundTrip(t *testing.T) {
	e := NewWatchEvaluator(nil)
	w := e.Add("count", "n")
	e.Toggle(w.ID)
	e.Add("user.name", "")

	data, err := e.ToJSON()
	require.NoError(t, err)

	restored := NewWatchEvaluator(nil)
	require.NoError(t, restored.FromJSON(data))

	list := restored.List()
	require.Len(t, list, 2)
	assert.Equal(t, w.ID, list[0].ID)
	assert.Equal(t, "n", list[0].Name)
	assert.False(t, list[0].Enabled)
	assert.True(t, list[1].Enabled)
	assert.False(t, list[0].CreatedAt.IsZero(), "created_at must round-trip as a real timestamp")
}
