package inventory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEffectiveStock(t *testing.T) {
	b1 := batchAt(t, 0, 3, 100)
	b2 := batchAt(t, time.Hour, 5, 200)
	depleted := batchAt(t, 2*time.Hour, 4, 100)
	depleted.RemainingQuantity = 0
	depleted.Status = BatchStatusDepleted

	batches := []Batch{b1, b2, depleted}

	t.Run("sums active batches only", func(t *testing.T) {
		assert.Equal(t, int64(8), EffectiveStock(batches, nil))
	})

	t.Run("scopes to a location", func(t *testing.T) {
		loc := &LocationRef{Type: b1.LocationType, ID: b1.LocationID}
		assert.Equal(t, int64(3), EffectiveStock(batches, loc))
	})

	t.Run("empty input", func(t *testing.T) {
		assert.Equal(t, int64(0), EffectiveStock(nil, nil))
	})
}

func TestCanCover(t *testing.T) {
	b1 := batchAt(t, 0, 3, 100)
	b2 := batchAt(t, time.Hour, 5, 200)
	batches := []Batch{b1, b2}

	ok, available := CanCover(batches, nil, 8)
	assert.True(t, ok)
	assert.Equal(t, int64(8), available)

	ok, available = CanCover(batches, nil, 9)
	assert.False(t, ok)
	assert.Equal(t, int64(8), available)
}
