package ext2

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// newFixtureImage builds a minimal, valid, single-block-group ext2 image
// in memory: a superblock + extended superblock, one group descriptor, a
// block bitmap and inode bitmap with the metadata blocks and the root
// directory's data block marked used, an inode table holding only the
// root directory's inode record, and a root directory containing just
// "." and ".." - the second record spanning to the end of its block, so
// tests have room to insert further entries via AddEntry/CreateInDir.
//
// Layout (block size 1024):
//
//	block 0: boot/reserved
//	block 1: superblock + extended superblock
//	block 2: group descriptor table
//	block 3: block bitmap
//	block 4: inode bitmap
//	blocks 5-8: inode table (32 inodes * 128 bytes = 4096 bytes = 4 blocks)
//	block 9: root directory data
//	blocks 10-63: free data blocks
const (
	fixtureBlockSize        = 1024
	fixtureBlockCount       = 64
	fixtureInodeCount       = 32
	fixtureGroupDescBlock   = 2
	fixtureBlockBitmapBlock = 3
	fixtureInodeBitmapBlock = 4
	fixtureInodeTableBlock  = 5
	fixtureInodeTableBlocks = 4
	fixtureRootDataBlock    = 9
	fixtureFirstFreeBlock   = 10
)

func le16(b []byte, off int, v uint16) { binary.LittleEndian.PutUint16(b[off:off+2], v) }
func le32(b []byte, off int, v uint32) { binary.LittleEndian.PutUint32(b[off:off+4], v) }

func newFixtureImage() []byte {
	region := make([]byte, fixtureBlockCount*fixtureBlockSize)

	writeFixtureSuperblock(region)
	writeFixtureGroupDescriptor(region)
	writeFixtureBitmaps(region)
	writeFixtureRootInode(region)
	writeFixtureRootDirectory(region)

	return region
}

func writeFixtureSuperblock(region []byte) {
	sb := region[superblockOffset:]
	le32(sb, 0, fixtureInodeCount)          // inode_count
	le32(sb, 4, fixtureBlockCount)          // block_count
	le32(sb, 8, 0)                          // reserved_blocks
	le32(sb, 12, 0)                         // unallocated_blocks
	le32(sb, 16, 0)                         // unallocated_inodes
	le32(sb, 20, 1)                         // first_data_block
	le32(sb, 24, 0)                         // log_block_size -> B = 1024
	le32(sb, 28, 0)                         // log_fragment_size
	le32(sb, 32, fixtureBlockCount)         // block_count_in_group (one group)
	le32(sb, 36, fixtureBlockCount)         // fragment_count_in_group
	le32(sb, 40, fixtureInodeCount)         // inode_count_in_group
	le32(sb, 44, 0)                         // last_mounted
	le32(sb, 48, 0)                         // last_written
	le16(sb, 52, 0)                         // mount_count
	le16(sb, 54, 20)                        // max_mount_count
	le16(sb, 56, ext2Signature)             // ext2sig
	le16(sb, 58, uint16(FsStateClean))      // state
	le16(sb, 60, uint16(OnErrorIgnore))     // on_error
	le16(sb, 62, 0)                         // minor_version
	le32(sb, 64, 0)                         // time_since_last_check
	le32(sb, 68, 0)                         // time_between_checks
	le32(sb, 72, 0)                         // creator_os (Linux)
	le32(sb, 76, 1)                         // major_version
	le16(sb, 80, 0)                         // reserved_uid
	le16(sb, 82, 0)                         // reserved_gid

	esb := region[superblockOffset+superblockSize:]
	le32(esb, 0, 11)   // first_non_reserved_inode
	le16(esb, 4, 128)  // inode_struct_size
	le16(esb, 6, 0)    // block_group_nr
	le32(esb, 8, 0)    // optional_features
	le32(esb, 12, 0)   // required_features
	le32(esb, 16, 0)   // write_features
	copy(esb[20:36], uuid.Nil[:])
	copy(esb[36:52], []byte("fixture\x00"))
	copy(esb[52:116], []byte("/\x00"))
	le32(esb, 116, 0) // compression_algorithm
	esb[120] = 0      // prealloc blocks files
	esb[121] = 0      // prealloc blocks dirs
	le16(esb, 122, 0) // unused
	copy(esb[124:140], uuid.Nil[:])
	le32(esb, 140, 0) // journal_inode
	le32(esb, 144, 0) // journal_device
	le32(esb, 148, 0) // head_of_orphan_list
}

func writeFixtureGroupDescriptor(region []byte) {
	gd := region[fixtureGroupDescBlock*fixtureBlockSize:]
	le32(gd, 0, fixtureBlockBitmapBlock)
	le32(gd, 4, fixtureInodeBitmapBlock)
	le32(gd, 8, fixtureInodeTableBlock)
	le16(gd, 12, fixtureBlockCount-fixtureFirstFreeBlock) // unallocated_blocks (informational)
	le16(gd, 14, fixtureInodeCount-2)                     // unallocated_inodes (informational)
	le16(gd, 16, 1)                                        // directory_count
}

func writeFixtureBitmaps(region []byte) {
	blockBitmap := region[fixtureBlockBitmapBlock*fixtureBlockSize:]
	// Blocks 0..9 (boot, superblock, group descriptors, both bitmaps, the
	// inode table, and the root directory's data block) are in use.
	blockBitmap[0] = 0xFF
	blockBitmap[1] = 0x03

	inodeBitmap := region[fixtureInodeBitmapBlock*fixtureBlockSize:]
	// Inode 1 (traditionally reserved) and inode 2 (root) are in use.
	inodeBitmap[0] = 0x03
}

func writeFixtureRootInode(region []byte) {
	table := region[fixtureInodeTableBlock*fixtureBlockSize:]
	// Root is inode 2, index 1 in a single-group table.
	rec := table[1*inodeRecordSize:]
	le16(rec, 0, typePermDirectory|0o755) // type_permission
	le16(rec, 2, 0)                       // user_id
	le32(rec, 4, fixtureBlockSize)        // size: one full block
	le16(rec, 24, 0)                       // group_id
	le16(rec, 26, 2)                       // hard_link_count: "." and root's own entry in parent
	le32(rec, 28, fixtureBlockSize/512)    // disk_sectors_used
	le32(rec, 32, 0)                       // flags
	le32(rec, 40, fixtureRootDataBlock)    // direct_block_pointers[0]
}

func writeFixtureRootDirectory(region []byte) {
	dir := region[fixtureRootDataBlock*fixtureBlockSize:]

	// "." : inode 2, size 12 (8-byte header + 1-byte name, rounded to 4).
	le32(dir, 0, 2)
	le16(dir, 4, 12)
	dir[6] = 1
	dir[7] = byte(KindDirectory)
	dir[8] = '.'

	// ".." : inode 2 (no parent tracking in this fixture), spans to the
	// end of the block so later inserts have somewhere to split.
	rest := uint16(fixtureBlockSize - 12)
	le32(dir, 12, 2)
	le16(dir, 16, rest)
	dir[18] = 2
	dir[19] = byte(KindDirectory)
	dir[20] = '.'
	dir[21] = '.'
}
