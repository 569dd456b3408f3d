package debugger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildVector(t *testing.T) {
	t.Run("empty text yields no arguments", func(t *testing.T) {
		vector := BuildVector("")
		assert.Nil(t, vector)
		assert.NoError(t, vector.Err())
	})

	t.Run("fields evaluate in order", func(t *testing.T) {
		vector := BuildVector("1 0x10 2+3*4")
		require.Len(t, vector, 3)
		require.NoError(t, vector.Err())
		assert.Equal(t, uint32(1), vector[0].Int)
		assert.Equal(t, uint32(0x10), vector[1].Int)
		assert.Equal(t, uint32(20), vector[2].Int)
	})

	t.Run("one failure poisons every later field", func(t *testing.T) {
		vector := BuildVector("1 2/0 3")
		require.Len(t, vector, 3)
		assert.NoError(t, vector[0].Err)
		assert.ErrorIs(t, vector[1].Err, ErrDivideByZero)
		// the trailing 3 is valid on its own but still carries the failure
		assert.ErrorIs(t, vector[2].Err, ErrDivideByZero)
		assert.ErrorIs(t, vector.Err(), ErrDivideByZero)
	})

	t.Run("identifier failure propagates", func(t *testing.T) {
		vector := BuildVector("pc 5")
		require.Len(t, vector, 2)
		assert.ErrorIs(t, vector[0].Err, ErrUnresolvable)
		assert.ErrorIs(t, vector[1].Err, ErrUnresolvable)
	})

	t.Run("double space yields a malformed field", func(t *testing.T) {
		vector := BuildVector("1  2")
		require.Len(t, vector, 3)
		assert.NoError(t, vector[0].Err)
		assert.ErrorIs(t, vector[1].Err, ErrMalformed)
		assert.ErrorIs(t, vector[2].Err, ErrMalformed)
	})

	t.Run("trailing space yields a malformed field", func(t *testing.T) {
		vector := BuildVector("1 ")
		require.Len(t, vector, 2)
		assert.NoError(t, vector[0].Err)
		assert.ErrorIs(t, vector[1].Err, ErrMalformed)
	})
}

func TestVectorInt(t *testing.T) {
	vector := BuildVector("7 bogus 9")

	value, ok := vector.Int(0)
	assert.True(t, ok)
	assert.Equal(t, uint32(7), value)

	_, ok = vector.Int(1)
	assert.False(t, ok)

	// poisoned, even though the field itself is a valid literal
	_, ok = vector.Int(2)
	assert.False(t, ok)

	_, ok = vector.Int(3)
	assert.False(t, ok)

	_, ok = vector.Int(-1)
	assert.False(t, ok)
}
