package memory

import (
	"testing"

	"github.com/stretchr/testify/require"
)

type record struct {
	id  uint64
	val int64
}

func TestAllocFreeConservation(t *testing.T) {
	s := NewSlab[record](16)
	require.Equal(t, 16, s.Available())

	refs := make([]Ref, 0, 16)
	for i := 0; i < 16; i++ {
		ref := s.Alloc()
		require.NotEqual(t, NilRef, ref)
		refs = append(refs, ref)
		require.Equal(t, 16, s.Allocated()+s.Available())
	}

	require.Equal(t, NilRef, s.Alloc(), "exhausted slab returns the null handle")

	for _, ref := range refs {
		s.Free(ref)
		require.Equal(t, 16, s.Allocated()+s.Available())
	}
	require.Equal(t, 0, s.Allocated())
}

func TestFreeThenReallocSameSlot(t *testing.T) {
	s := NewSlab[record](8)
	ref := s.Alloc()
	s.At(ref).id = 7
	s.Free(ref)
	again := s.Alloc()
	require.Equal(t, ref, again, "LIFO free list hands back the same slot")
}

func TestFreeNilIsNoOp(t *testing.T) {
	s := NewSlab[record](4)
	s.Free(NilRef)
	require.Equal(t, 0, s.Allocated())
	require.Equal(t, 4, s.Available())
}

func TestOwns(t *testing.T) {
	s := NewSlab[record](4)
	ref := s.Alloc()
	require.True(t, s.Owns(ref))
	require.False(t, s.Owns(NilRef))
	require.False(t, s.Owns(100))
}

func TestSlotsAreStable(t *testing.T) {
	s := NewSlab[record](32)
	a := s.Alloc()
	s.At(a).val = -5
	// churn the rest of the pool
	for i := 0; i < 31; i++ {
		s.Alloc()
	}
	require.Equal(t, int64(-5), s.At(a).val)
}

func BenchmarkAllocFree(b *testing.B) {
	s := NewSlab[record](1024)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		ref := s.Alloc()
		s.Free(ref)
	}
}
