package voucher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestControlNumberAllocator_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("a format-matching number records its own sequence", func(t *testing.T) {
		cnRepo := newMockControlNumberRepository()
		alloc := NewControlNumberAllocator(cnRepo, noopLock{}, "")

		require.NoError(t, alloc.Reserve(ctx, "CPO", "CN-0005"))

		// Next must continue past the reserved number, not collide with it
		next, err := alloc.Next(ctx, "CPO")
		require.NoError(t, err)
		assert.Equal(t, "CN-0006", next)
	})

	t.Run("a reservation just ahead of the counter never wedges allocation", func(t *testing.T) {
		cnRepo := newMockControlNumberRepository()
		alloc := NewControlNumberAllocator(cnRepo, noopLock{}, "")

		first, err := alloc.Next(ctx, "CPO")
		require.NoError(t, err)
		assert.Equal(t, "CN-0001", first)

		require.NoError(t, alloc.Reserve(ctx, "CPO", "CN-0002"))

		next, err := alloc.Next(ctx, "CPO")
		require.NoError(t, err)
		assert.Equal(t, "CN-0003", next)
	})

	t.Run("a free-form number does not advance the counter", func(t *testing.T) {
		cnRepo := newMockControlNumberRepository()
		alloc := NewControlNumberAllocator(cnRepo, noopLock{}, "")

		require.NoError(t, alloc.Reserve(ctx, "CPO", "SPECIAL-77"))

		next, err := alloc.Next(ctx, "CPO")
		require.NoError(t, err)
		assert.Equal(t, "CN-0001", next)
	})

	t.Run("a partial format match does not advance the counter", func(t *testing.T) {
		cnRepo := newMockControlNumberRepository()
		alloc := NewControlNumberAllocator(cnRepo, noopLock{}, "")

		// Scanning would read the leading digits; the round-trip check
		// must reject the trailing suffix.
		require.NoError(t, alloc.Reserve(ctx, "CPO", "CN-0005-B"))

		next, err := alloc.Next(ctx, "CPO")
		require.NoError(t, err)
		assert.Equal(t, "CN-0001", next)
	})

	t.Run("reserving a taken number fails", func(t *testing.T) {
		cnRepo := newMockControlNumberRepository()
		alloc := NewControlNumberAllocator(cnRepo, noopLock{}, "")

		require.NoError(t, alloc.Reserve(ctx, "CPO", "CN-0002"))
		err := alloc.Reserve(ctx, "CPO", "CN-0002")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already issued")
	})
}
