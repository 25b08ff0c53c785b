package ads

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultCatalog(t *testing.T) {
	c := DefaultCatalog()
	require.Equal(t, 5, c.Len())

	seen := map[string]bool{}
	for _, ad := range c.All() {
		assert.NotEmpty(t, ad.ID)
		assert.NotEmpty(t, ad.Title)
		assert.NotEmpty(t, ad.Provider)
		assert.Greater(t, ad.Duration, 0)
		assert.False(t, seen[ad.ID], "duplicate ad id %s", ad.ID)
		seen[ad.ID] = true
	}
}

func TestPick_AlwaysFromCatalog(t *testing.T) {
	c := NewCatalog([]Ad{
		{ID: "a", Duration: 10, Provider: "p"},
		{ID: "b", Duration: 20, Provider: "p"},
	})

	ids := map[string]bool{}
	for i := 0; i < 200; i++ {
		ad := c.Pick()
		require.Contains(t, []string{"a", "b"}, ad.ID)
		ids[ad.ID] = true
	}
	// With 200 uniform draws over 2 ads, both show up.
	assert.Len(t, ids, 2)
}

func TestNewCatalog_EmptyPanics(t *testing.T) {
	assert.Panics(t, func() { NewCatalog(nil) })
}

func TestAll_ReturnsCopy(t *testing.T) {
	c := NewCatalog([]Ad{{ID: "a", Duration: 10, Provider: "p"}})
	got := c.All()
	got[0].ID = "mutated"
	assert.Equal(t, "a", c.All()[0].ID)
}
