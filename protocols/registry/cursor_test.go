package registry

import (
	"testing"

	"github.com/defistate/clmm-oracle-go/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor(t *testing.T) {
	t.Run("Should take items in order", func(t *testing.T) {
		c := NewCursor([]int{10, 11, 12, 13})

		got, err := c.Take(1)
		require.NoError(t, err)
		assert.Equal(t, []int{10}, got)

		got, err = c.Take(2)
		require.NoError(t, err)
		assert.Equal(t, []int{11, 12}, got)

		assert.Equal(t, 1, c.Remaining())
		assert.Equal(t, 3, c.Used())
		assert.Equal(t, []int{3}, c.Unused())
	})

	t.Run("Should read without advancing", func(t *testing.T) {
		c := NewCursor([]string{"a", "b"})

		v, err := c.Read()
		require.NoError(t, err)
		assert.Equal(t, "a", v)
		v, err = c.Read()
		require.NoError(t, err)
		assert.Equal(t, "a", v)

		assert.Equal(t, 2, c.Remaining())
		assert.Equal(t, 1, c.Used())
	})

	t.Run("Should skip without marking on advance", func(t *testing.T) {
		c := NewCursor([]int{1, 2, 3})
		require.NoError(t, c.Advance(2))

		v, err := c.Read()
		require.NoError(t, err)
		assert.Equal(t, 3, v)
		assert.Equal(t, []int{0, 1}, c.Unused())
	})

	t.Run("Should report exhaustion as invalid configuration", func(t *testing.T) {
		c := NewCursor([]int{1, 2})

		_, err := c.Take(3)
		assert.ErrorIs(t, err, ErrCursorExhausted)
		assert.ErrorIs(t, err, engine.ErrInvalidConfiguration)
		assert.Equal(t, 2, c.Remaining(), "failed take does not move the cursor")

		require.NoError(t, c.Advance(2))
		_, err = c.Read()
		assert.ErrorIs(t, err, engine.ErrInvalidConfiguration)
		assert.ErrorIs(t, c.Advance(1), engine.ErrInvalidConfiguration)
	})

	t.Run("Should handle an empty list", func(t *testing.T) {
		c := NewCursor[int](nil)
		got, err := c.Take(0)
		require.NoError(t, err)
		assert.Empty(t, got)
		assert.Empty(t, c.Unused())
	})
}
