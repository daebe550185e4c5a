// File: pool/buffer_test.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package pool

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBufferReallocPreservesPrefixBytes(t *testing.T) {
	b := NewBuffer(0, NonShrinkable)
	b.Realloc(4)
	copy(b.Bytes(), []byte{1, 2, 3, 4})

	b.Realloc(8)
	require.Equal(t, []byte{1, 2, 3, 4, 0, 0, 0, 0}, b.Bytes())

	b.Realloc(2)
	require.Equal(t, []byte{1, 2}, b.Bytes())
}

func TestBufferNonShrinkableKeepsCapacityMonotonic(t *testing.T) {
	b := NewBuffer(0, NonShrinkable)
	b.Realloc(64)
	cap64 := b.Cap()

	b.Realloc(8)
	require.GreaterOrEqual(t, b.Cap(), cap64)

	b.Realloc(64)
	require.Equal(t, cap64, b.Cap(), "growing back within a capacity already reserved must not reallocate")
}

func TestBufferShrinkableReleasesCapacity(t *testing.T) {
	b := NewBuffer(0, Shrinkable)
	b.Realloc(64)
	b.Realloc(8)
	require.Equal(t, 8, b.Cap())
}

func TestBufferReallocZeroReleasesBackingArray(t *testing.T) {
	b := NewBuffer(0, NonShrinkable)
	b.Realloc(64)
	b.Realloc(0)
	require.Equal(t, 0, b.Size())
	require.Equal(t, 0, b.Cap())
}

func TestBufferOffsetClampedToSize(t *testing.T) {
	b := NewBuffer(0, NonShrinkable)
	b.Realloc(4)

	b.SetOffset(-5)
	require.Equal(t, 0, b.Offset())

	b.SetOffset(100)
	require.Equal(t, 4, b.Offset())
}

func TestBufferPoolReusesReleasedBuffers(t *testing.T) {
	p := NewBufferPool()

	b1 := p.Get(100)
	require.Equal(t, 100, b1.Size())
	b1.Release()

	b2 := p.Get(50)
	require.Equal(t, 50, b2.Size())
	require.LessOrEqual(t, 256, b2.Cap()) // reused from the 256-byte class b1 fell into
}
