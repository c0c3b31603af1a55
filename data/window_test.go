package data_test

import (
	"testing"

	"github.com/storeops/opsrelay/data"

	"github.com/stretchr/testify/assert"
)

func TestWindow(t *testing.T) {
	w := data.NewWindow[int](3)
	assert.Equal(t, 3, w.Depth())
	assert.Equal(t, 0, w.Length())
	assert.Nil(t, w.Latest(2))

	w.Push(1)
	w.Push(2)
	assert.Equal(t, 2, w.Length())
	assert.Equal(t, []int{2, 1}, w.Latest(5))

	w.Push(3)
	w.Push(4)
	w.Push(5)
	assert.Equal(t, 3, w.Length())
	assert.Equal(t, []int{5, 4, 3}, w.Latest(3))
	assert.Equal(t, []int{5}, w.Latest(1))
}

func TestWindowAll(t *testing.T) {
	isTrue := func(v bool) bool { return v }

	w := data.NewWindow[bool](4)
	assert.False(t, w.All(2, isTrue), "not enough history")

	w.Push(true)
	w.Push(true)
	assert.True(t, w.All(2, isTrue))
	assert.False(t, w.All(3, isTrue))

	w.Push(false)
	assert.False(t, w.All(1, isTrue))
	assert.True(t, w.All(0, isTrue))
}

func TestWindowMinimalDepth(t *testing.T) {
	w := data.NewWindow[string](0)
	assert.Equal(t, 1, w.Depth())

	w.Push("a")
	w.Push("b")
	assert.Equal(t, []string{"b"}, w.Latest(1))
}
