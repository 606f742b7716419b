// Package blockstore stores elements of one type across blocks obtained from an arena.
//
// A Store addresses its elements by a dense 0-based index. Index i lives in block i/n at offset
// i%n, where n is the number of elements per block, so iteration walks memory block by block.
//
// Two removal policies are available. Compact mode moves the last element into a deleted slot and
// reports the move as a Relocation, both as Delete's return value and to every OnRelocate
// subscriber; callers that cache indices must apply it. FreeList mode never moves elements and
// reuses deleted slots in the order they were freed.
//
// A Store is not safe for concurrent mutation. Reads (At, Live, iteration) may run concurrently
// with each other but never with Create, Delete or Clear.
package blockstore
