// Package memory provides the fixed-capacity slab pool backing resting
// orders. Allocation hands out 32-bit handles into a preallocated
// backing array; the free list is threaded through an index array so
// allocate and free are O(1) with no garbage produced.
package memory
