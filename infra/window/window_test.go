package window

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFillThenOverwrite(t *testing.T) {
	w := New[int](4)
	for i := 1; i <= 4; i++ {
		w.PushBack(i)
	}
	require.True(t, w.Full())
	require.Equal(t, 1, w.Front())
	require.Equal(t, 4, w.Back())

	w.PushBack(5)
	require.Equal(t, 4, w.Len(), "capacity does not grow")
	require.Equal(t, 2, w.Front(), "oldest element was overwritten")
	require.Equal(t, 5, w.Back())
}

func TestLogicalIndexing(t *testing.T) {
	w := New[int](3)
	for i := 0; i < 10; i++ {
		w.PushBack(i)
	}
	// retained: 7, 8, 9
	require.Equal(t, 7, w.At(0))
	require.Equal(t, 8, w.At(1))
	require.Equal(t, 9, w.At(2))
}

func TestDoVisitsOldestToNewest(t *testing.T) {
	w := New[int](5)
	for i := 0; i < 8; i++ {
		w.PushBack(i)
	}
	var got []int
	w.Do(func(v int) { got = append(got, v) })
	require.Equal(t, []int{3, 4, 5, 6, 7}, got)
}

func TestClear(t *testing.T) {
	w := New[int](4)
	w.PushBack(1)
	w.Clear()
	require.True(t, w.Empty())
	w.PushBack(9)
	require.Equal(t, 9, w.Front())
}
