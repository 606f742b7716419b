// Package arena hands out fixed-size blocks of typed elements carved from larger superblocks.
//
// An Arena is the only part of the storage core that asks the Go runtime for memory. Each element
// type gets its own pool so superblocks are allocated as real []T backing arrays, which keeps
// pointer-bearing element types visible to the garbage collector. A superblock is one allocation
// split into BlocksPerSuperblock blocks; every block holds max(1, BlockSize/sizeof(T)) elements.
//
// Allocation pops a block from the pool's free index list, carving a fresh superblock only when
// the list is empty. Deallocation pushes the block back. Superblocks are never released
// implicitly; call Trim to return fully free superblocks or Release to tear the arena down.
//
// Running out of backing memory is fatal: the configured fatal handler is called after the
// failure is logged, and the default handler panics.
package arena
