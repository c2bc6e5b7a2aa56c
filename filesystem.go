package ext2

import "fmt"

// FileSystem mounts an ext2 image held in a byte region and provides
// block- and inode-indexed addressing over it. It never does I/O of its
// own; every access is a load or store on the region it was given.
type FileSystem struct {
	region []byte

	superblock         *Superblock
	extendedSuperblock *ExtendedSuperblock
	descriptors        []BlockGroupDescriptor

	blockSize  uint32
	groupCount uint32
}

// Mount validates region as an ext2 image and returns a FileSystem view
// over it. The returned FileSystem borrows region for its entire lifetime;
// the caller must keep it alive and must not alias it through another
// mutable view for as long as the FileSystem is in use.
func Mount(region []byte) (*FileSystem, error) {
	if len(region) < superblockOffset+1024 {
		return nil, fmt.Errorf("ext2: region too small to hold a superblock: %d bytes", len(region))
	}

	sb, err := superblockFromBytes(region[superblockOffset:])
	if err != nil {
		return nil, err
	}
	if sb.Signature != ext2Signature {
		return nil, fmt.Errorf("%w: got 0x%04x", ErrBadSignature, sb.Signature)
	}
	if sb.MajorVersion < 1 {
		return nil, fmt.Errorf("%w: major version %d", ErrUnsupportedVersion, sb.MajorVersion)
	}

	esb, err := extendedSuperblockFromBytes(region[superblockOffset+superblockSize:])
	if err != nil {
		return nil, err
	}

	blockSize := sb.BlockSize()
	if blockSize == 0 || sb.BlockCountInGroup == 0 || sb.InodeCountInGroup == 0 {
		return nil, fmt.Errorf("ext2: unusable geometry: log_block_size=%d blocks_per_group=%d inodes_per_group=%d",
			sb.LogBlockSize, sb.BlockCountInGroup, sb.InodeCountInGroup)
	}

	groupCount := sb.BlockCount / sb.BlockCountInGroup
	if sb.BlockCount%sb.BlockCountInGroup != 0 {
		groupCount++
	}

	descriptorTableBlock := uint32(1)
	if sb.LogBlockSize == 0 {
		descriptorTableBlock = 2
	}

	fs := &FileSystem{
		region:             region,
		superblock:         sb,
		extendedSuperblock: esb,
		blockSize:          blockSize,
		groupCount:         groupCount,
	}

	descOffset := uint64(blockSize) * uint64(descriptorTableBlock)
	descNeed := descOffset + uint64(groupCount)*blockGroupDescriptorSize
	if descNeed > uint64(len(region)) {
		return nil, fmt.Errorf("ext2: region too small to hold %d group descriptors", groupCount)
	}
	descriptors, err := blockGroupDescriptorTableFromBytes(region[descOffset:], groupCount)
	if err != nil {
		return nil, err
	}
	fs.descriptors = descriptors

	log.Tracef("mounted ext2 image: block_size=%d groups=%d inodes=%d blocks=%d",
		blockSize, groupCount, sb.InodeCount, sb.BlockCount)

	return fs, nil
}

// Superblock returns the decoded superblock.
func (fs *FileSystem) Superblock() *Superblock { return fs.superblock }

// ExtendedSuperblock returns the decoded extended superblock.
func (fs *FileSystem) ExtendedSuperblock() *ExtendedSuperblock { return fs.extendedSuperblock }

// Descriptors returns the block-group descriptor table.
func (fs *FileSystem) Descriptors() []BlockGroupDescriptor { return fs.descriptors }

// BlockSize returns B, the filesystem's block size in bytes.
func (fs *FileSystem) BlockSize() uint32 { return fs.blockSize }

// GroupCount returns the number of block groups in the image.
func (fs *FileSystem) GroupCount() uint32 { return fs.groupCount }

// Block returns the live slice backing absolute block i: region[B*i : B*i+B].
// Block indices come straight off the image (descriptors, direct block
// pointers), so an index pointing past the region is reported as
// ErrBlockOutOfRange rather than trusted.
func (fs *FileSystem) Block(i uint32) ([]byte, error) {
	start := uint64(fs.blockSize) * uint64(i)
	end := start + uint64(fs.blockSize)
	if end > uint64(len(fs.region)) {
		return nil, fmt.Errorf("%w: block %d", ErrBlockOutOfRange, i)
	}
	return fs.region[start:end], nil
}

// GroupOfInode returns the block group inode n belongs to.
func (fs *FileSystem) GroupOfInode(n InodeRef) uint32 {
	return (uint32(n) - 1) / fs.superblock.InodeCountInGroup
}

// GroupOfBlock returns the block group block index i belongs to.
func (fs *FileSystem) GroupOfBlock(i uint32) uint32 {
	return i / fs.superblock.BlockCountInGroup
}

// inodeAt resolves inode number n to its record and returns a handle.
func (fs *FileSystem) inodeAt(n InodeRef) (*Inode, error) {
	if n == 0 {
		return nil, fmt.Errorf("ext2: inode 0 does not exist")
	}
	group := fs.GroupOfInode(n)
	if group >= uint32(len(fs.descriptors)) {
		return nil, fmt.Errorf("ext2: inode %d resolves to out-of-range group %d", n, group)
	}
	index := (uint32(n) - 1) % fs.superblock.InodeCountInGroup

	tableBlock := fs.descriptors[group].InodeTableStartBlock
	stride := uint32(fs.extendedSuperblock.InodeStructSize)

	// The inode table spans several consecutive blocks; address the record
	// from the table's start, not within a single block.
	recordOffset := uint64(fs.blockSize)*uint64(tableBlock) + uint64(index)*uint64(stride)
	if recordOffset+inodeRecordSize > uint64(len(fs.region)) {
		return nil, fmt.Errorf("ext2: inode %d record falls outside the image", n)
	}

	rec, err := inodeRecordFromBytes(fs.region[recordOffset:])
	if err != nil {
		return nil, err
	}

	return &Inode{fs: fs, id: uint32(n), group: group, rec: rec}, nil
}

// Inode resolves inode number n to an Inode handle.
func (fs *FileSystem) Inode(n InodeRef) (*Inode, error) {
	return fs.inodeAt(n)
}

// Root returns the inode handle for the root directory, inode 2.
func (fs *FileSystem) Root() (*Inode, error) {
	return fs.inodeAt(RootInode)
}

// ReserveBlock allocates a free bit in group's block bitmap and returns
// its index. The returned index is the raw bit index; it does not search
// other groups on exhaustion - callers pick the group.
func (fs *FileSystem) ReserveBlock(group uint32) (uint32, error) {
	log.Tracef("reserving new block in group %d", group)
	if group >= uint32(len(fs.descriptors)) {
		return 0, fmt.Errorf("ext2: group %d out of range", group)
	}
	bitmapBlock := fs.descriptors[group].BlockBitmapBlock
	bitmap, err := fs.Block(bitmapBlock)
	if err != nil {
		return 0, err
	}
	index, err := newBitmapView(bitmap).reserve()
	if err != nil {
		return 0, err
	}
	return uint32(index), nil
}

// ReserveInode allocates a free bit in group's inode bitmap and returns
// the corresponding 1-based inode number.
func (fs *FileSystem) ReserveInode(group uint32) (InodeRef, error) {
	log.Tracef("reserving new inode in group %d", group)
	if group >= uint32(len(fs.descriptors)) {
		return 0, fmt.Errorf("ext2: group %d out of range", group)
	}
	bitmapBlock := fs.descriptors[group].InodeBitmapBlock
	bitmap, err := fs.Block(bitmapBlock)
	if err != nil {
		return 0, err
	}
	index, err := newBitmapView(bitmap).reserve()
	if err != nil {
		return 0, err
	}
	return InodeRef(index + 1), nil
}
