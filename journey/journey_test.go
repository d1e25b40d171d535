package journey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateFillsMissingIDs(t *testing.T) {
	j := &Journey{Steps: []Step{{Name: "first"}, {ID: "b"}}}
	require.NoError(t, j.Validate())

	assert.NotEmpty(t, j.ID)
	assert.NotEmpty(t, j.Steps[0].ID)
	assert.Equal(t, "b", j.Steps[1].ID)
}

func TestValidateRejectsEmptyAndDuplicates(t *testing.T) {
	assert.Error(t, (&Journey{ID: "j"}).Validate(), "journeys need at least one step")

	dup := &Journey{ID: "j", Steps: []Step{{ID: "x"}, {ID: "x"}}}
	assert.Error(t, dup.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "checkout.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
id: checkout
name: Checkout flow
steps:
  - id: browse
    type: page
  - id: pay
    type: action
    name: Pay
initial_context:
  cart_total: 42
`), 0o644))

	j, err := LoadFromFile(path)
	require.NoError(t, err)
	assert.Equal(t, "checkout", j.ID)
	require.Len(t, j.Steps, 2)
	assert.Equal(t, "pay", j.Steps[1].ID)
	assert.Equal(t, "Pay", j.Steps[1].Name)
	assert.Equal(t, 42, j.InitialContext["cart_total"])
}

func TestLoadFromFileErrors(t *testing.T) {
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("{{not yaml"), 0o644))
	_, err = LoadFromFile(bad)
	assert.Error(t, err)
}

func TestRegistryAddAndLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Add(&Journey{ID: "a", Steps: []Step{{ID: "s"}}}))
	require.NoError(t, r.Add(&Journey{ID: "b", Steps: []Step{{ID: "s"}}}))

	assert.Error(t, r.Add(&Journey{ID: "a", Steps: []Step{{ID: "s"}}}), "duplicate ids are rejected")

	j, ok := r.Journey("a")
	require.True(t, ok)
	assert.Equal(t, "a", j.ID)

	_, ok = r.Journey("missing")
	assert.False(t, ok)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, "b", list[1].ID)
}

func TestRegistryLoadDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "one.yaml"), []byte("id: one\nsteps:\n  - id: s\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "two.yml"), []byte("id: two\nsteps:\n  - id: s\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.txt"), []byte("not yaml"), 0o644))

	r := NewRegistry()
	n, err := r.LoadDir(dir)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Len(t, r.List(), 2)
}
