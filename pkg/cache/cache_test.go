package cache

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geodispatch/pkg/db"
	"geodispatch/pkg/model"
)

func TestMemoryCache(t *testing.T) {
	c := NewMemory()

	_, hit := c.Get("u4pruy")
	assert.False(t, hit, "empty cache should miss")

	places := []model.Place{{Name: "Skagen Lighthouse", Category: "tourism", Lat: 57.649, Lon: 10.407}}
	returned := c.Set("u4pruy", places)
	assert.Equal(t, places, returned, "Set must return the stored value for chaining")

	got, hit := c.Get("u4pruy")
	require.True(t, hit)
	assert.Equal(t, places, got)
	assert.Equal(t, 1, c.Len())

	c.Flush()
	_, hit = c.Get("u4pruy")
	assert.False(t, hit, "flush must clear all entries")
	assert.Equal(t, 0, c.Len())
}

func TestMemoryCacheOverwrite(t *testing.T) {
	c := NewMemory()
	c.Set("key", []model.Place{{Name: "old"}})
	c.Set("key", []model.Place{{Name: "new"}})

	got, hit := c.Get("key")
	require.True(t, hit)
	require.Len(t, got, 1)
	assert.Equal(t, "new", got[0].Name)
}

func TestSQLiteCache(t *testing.T) {
	d, err := db.Init(filepath.Join(t.TempDir(), "cache_test.db"))
	require.NoError(t, err)
	defer d.Close()

	c := NewSQLite(d)

	_, hit := c.Get("u4pruy")
	assert.False(t, hit, "empty cache should miss")

	places := []model.Place{
		{Name: "Skagen Lighthouse", Category: "tourism", Lat: 57.649, Lon: 10.407, DistanceM: 120},
		{Name: "Grenen", Category: "natural", Lat: 57.743, Lon: 10.592, DistanceM: 8300},
	}
	c.Set("u4pruy", places)

	got, hit := c.Get("u4pruy")
	require.True(t, hit)
	assert.Equal(t, places, got)

	// Overwrite under the same fingerprint
	c.Set("u4pruy", places[:1])
	got, hit = c.Get("u4pruy")
	require.True(t, hit)
	assert.Len(t, got, 1)

	c.Flush()
	_, hit = c.Get("u4pruy")
	assert.False(t, hit, "flush must clear all entries")
}
