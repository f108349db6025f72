// Package flash provides the simulated non-volatile store of the master.
//
// MemDevice is a byte-addressed NOR-style array: ChipErase sets every byte
// to 0xFF and Write can only clear bits. Out-of-range accesses fail with
// ErrOutOfRange instead of wrapping.
//
// BlockCache is a read-through cache of fixed-size blocks layered over a
// device. Anything that rewrites the device behind the cache's back must
// call Invalidate.
//
// The whole array can be saved to and restored from a file so the store
// survives simulator restarts.
package flash
