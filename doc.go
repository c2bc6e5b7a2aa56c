// Package ext2 implements a read/write driver for the second-extended
// (ext2) on-disk filesystem, operating directly on an in-memory byte
// region holding a complete image. It decodes the superblock, block-group
// descriptor table, and inode table as packed little-endian views into
// that region, and provides directory traversal, inode inspection,
// byte-level file read/write with automatic block allocation, and creation
// of new non-directory entries inside existing directories.
//
// The driver performs no I/O of its own. Callers are responsible for
// obtaining the backing region (a memory-mapped file, a heap buffer read
// from disk, …) and for giving Mount exclusive access to it for the
// duration of any mutating call.
package ext2
