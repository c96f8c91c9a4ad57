package memory

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docrag/internal/core/domain"
)

func TestConfigStore_SetAndGet(t *testing.T) {
	store := NewConfigStore()

	require.NoError(t, store.Set("chunking.size", 800))
	require.NoError(t, store.Set("embedding.provider", "voyage"))
	require.NoError(t, store.Set("embedding.requests_per_second", 2.5))

	val, ok := store.Get("chunking.size")
	assert.True(t, ok)
	assert.Equal(t, int64(800), val, "integers are held as TOML decodes them")

	assert.Equal(t, 800, store.GetInt("chunking.size"))
	assert.Equal(t, "voyage", store.GetString("embedding.provider"))
	assert.InDelta(t, 2.5, store.GetFloat("embedding.requests_per_second"), 1e-9)
}

func TestConfigStore_MissingKeys(t *testing.T) {
	store := NewConfigStore()

	_, ok := store.Get("nope")
	assert.False(t, ok)
	assert.Empty(t, store.GetString("nope"))
	assert.Zero(t, store.GetInt("nope"))
	assert.Zero(t, store.GetFloat("nope"))
}

func TestConfigStore_TypeConversions(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("i64", int64(7)))
	require.NoError(t, store.Set("i32", int32(9)))
	require.NoError(t, store.Set("f64", 3.9))
	require.NoError(t, store.Set("f32", float32(1.5)))
	require.NoError(t, store.Set("str", "text"))

	assert.Equal(t, 7, store.GetInt("i64"))
	assert.Equal(t, 9, store.GetInt("i32"))
	assert.InDelta(t, 7.0, store.GetFloat("i64"), 1e-9)
	assert.InDelta(t, 1.5, store.GetFloat("f32"), 1e-9)

	val, _ := store.Get("f32")
	assert.IsType(t, float64(0), val)

	// Wrong types read as zero values; floats are not truncated.
	assert.Zero(t, store.GetInt("f64"))
	assert.Zero(t, store.GetInt("str"))
	assert.Zero(t, store.GetFloat("str"))
	assert.Empty(t, store.GetString("i64"))
}

func TestConfigStore_RejectsUnstorableValues(t *testing.T) {
	store := NewConfigStore()

	tests := []struct {
		name  string
		key   string
		value any
	}{
		{"empty key", "", "x"},
		{"empty segment", "embedding..model", "x"},
		{"trailing dot", "chunking.", 1},
		{"struct value", "chunking.size", struct{}{}},
		{"nil value", "embedding.model", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := store.Set(tt.key, tt.value)
			assert.ErrorIs(t, err, domain.ErrConfiguration)
			_, ok := store.Get(tt.key)
			assert.False(t, ok)
		})
	}
}

func TestConfigStore_RejectsTableConflicts(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("embedding.model", "m"))

	assert.ErrorIs(t, store.Set("embedding", "flat"), domain.ErrConfiguration)
	assert.ErrorIs(t, store.Set("embedding.model.name", "deep"), domain.ErrConfiguration)

	// Overwriting the same key and adding siblings are fine.
	require.NoError(t, store.Set("embedding.model", "other"))
	require.NoError(t, store.Set("embedding.dimensions", 512))
	assert.Equal(t, "other", store.GetString("embedding.model"))
}

func TestConfigStore_SaveLoadPath(t *testing.T) {
	store := NewConfigStore()
	require.NoError(t, store.Set("k", "v"))

	assert.NoError(t, store.Save())
	assert.NoError(t, store.Load())
	assert.Equal(t, "v", store.GetString("k"))
	assert.Equal(t, ":memory:", store.Path())
}

func TestConfigStore_Concurrency(t *testing.T) {
	store := NewConfigStore()
	var wg sync.WaitGroup

	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = store.Set(fmt.Sprintf("key-%d", n), n)
		}(i)
		go func(n int) {
			defer wg.Done()
			_ = store.GetInt(fmt.Sprintf("key-%d", n))
		}(i)
	}
	wg.Wait()

	for i := 0; i < 50; i++ {
		assert.Equal(t, i, store.GetInt(fmt.Sprintf("key-%d", i)))
	}
}
