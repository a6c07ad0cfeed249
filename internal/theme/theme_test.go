package theme

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ambiance/internal/catalog"
)

func sptr(s string) *string { return &s }

func TestApplyActivatesKnownTheme(t *testing.T) {
	a := NewApplicator(catalog.NewStore())

	assert.True(t, a.Apply(sptr("corsair")))
	id, entry, ok := a.Active()
	require.True(t, ok)
	assert.Equal(t, "corsair", id)
	assert.NotEmpty(t, entry.Label)

	// Re-applying the active theme changes nothing.
	assert.False(t, a.Apply(sptr("corsair")))
}

func TestApplyIgnoresNilAndUnknown(t *testing.T) {
	a := NewApplicator(catalog.NewStore())
	require.True(t, a.Apply(sptr("parchment")))

	assert.False(t, a.Apply(nil))
	assert.False(t, a.Apply(sptr("nonexistent")))

	id, _, ok := a.Active()
	require.True(t, ok)
	assert.Equal(t, "parchment", id, "prior theme survives bad ids")
}

func TestActiveBeforeApply(t *testing.T) {
	a := NewApplicator(catalog.NewStore())
	_, _, ok := a.Active()
	assert.False(t, ok)
	assert.Empty(t, a.StyleBlock())
}

func TestStyleBlock(t *testing.T) {
	store := catalog.NewStore()
	a := NewApplicator(store)
	require.True(t, a.Apply(sptr("ember")))

	block := a.StyleBlock()
	assert.True(t, strings.HasPrefix(block, ":root {"))
	assert.Contains(t, block, ".dark {")

	entry, _ := store.Snapshot().Theme("ember")
	for k, v := range entry.LightVars {
		assert.Contains(t, block, "  "+k+": "+v+";")
	}
}
