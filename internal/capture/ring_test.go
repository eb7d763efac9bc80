package capture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRing_EvictsOldest(t *testing.T) {
	r := NewRing(3)
	for _, s := range []string{"a", "b", "c", "d", "e"} {
		r.Push([]byte(s))
	}

	assert.Equal(t, 3, r.Len())
	assert.Equal(t, [][]byte{[]byte("c"), []byte("d"), []byte("e")}, r.Segments())
}

func TestRing_PartiallyFilled(t *testing.T) {
	r := NewRing(30)
	r.Push([]byte("a"))
	r.Push([]byte("b"))

	assert.Equal(t, 2, r.Len())
	assert.Equal(t, 30, r.Cap())
	assert.Equal(t, [][]byte{[]byte("a"), []byte("b")}, r.Segments())
}

func TestRing_Reset(t *testing.T) {
	r := NewRing(2)
	r.Push([]byte("a"))
	r.Push([]byte("b"))
	r.Push([]byte("c"))
	r.Reset()

	assert.Zero(t, r.Len())
	assert.Empty(t, r.Segments())

	r.Push([]byte("d"))
	assert.Equal(t, [][]byte{[]byte("d")}, r.Segments())
}

func TestRing_MinimumCapacity(t *testing.T) {
	r := NewRing(0)
	r.Push([]byte("a"))
	r.Push([]byte("b"))
	assert.Equal(t, [][]byte{[]byte("b")}, r.Segments())
}
