package ext2

// Cursor is a block-walking read/write head over an inode's data, built
// directly on its direct block pointers. It allocates fresh blocks on
// demand when written past the current end of allocation.
//
// A Cursor borrows its Inode; two cursors writing the same inode may race
// and corrupt each other - that is accepted undefined behaviour at this
// API level, not something this type guards against.
type Cursor struct {
	inode      *Inode
	totalIndex uint32
	blockSize  uint32
}

func newCursor(inode *Inode) *Cursor {
	return &Cursor{inode: inode, blockSize: inode.fs.blockSize}
}

// currentBlockSlot returns the index into direct_block_pointers that holds
// the block backing the cursor's current position.
func (c *Cursor) currentBlockSlot() uint32 {
	return c.totalIndex / c.blockSize
}

func (c *Cursor) offsetInBlock() uint32 {
	return c.totalIndex % c.blockSize
}

// remainInBlock returns how many bytes are left before the cursor crosses
// into the next block.
func (c *Cursor) remainInBlock() uint32 {
	return c.blockSize - c.offsetInBlock()
}

// currentBlockIndex resolves the absolute block index backing the cursor's
// position. It returns (0, false, nil) when the slot is unallocated, and an
// error if the position would require an indirect block.
func (c *Cursor) currentBlockIndex() (uint32, bool, error) {
	slot := c.currentBlockSlot()
	if slot >= directBlockPointerCount {
		return 0, false, ErrIndirectBlocksUnsupported
	}
	b := c.inode.rec.directBlockPointer(int(slot))
	if b == 0 {
		return 0, false, nil
	}
	log.Tracef("got block index %d for inode %d", b, c.inode.id)
	return b, true, nil
}

// currentBlock returns the live slice backing the cursor's current
// position, and how many bytes remain in it, or ok=false if no block is
// allocated there yet.
func (c *Cursor) currentBlock() (region []byte, remain uint32, ok bool, err error) {
	idx, allocated, err := c.currentBlockIndex()
	if err != nil {
		return nil, 0, false, err
	}
	if !allocated {
		return nil, 0, false, nil
	}
	block, err := c.inode.fs.Block(idx)
	if err != nil {
		return nil, 0, false, err
	}
	return block[c.offsetInBlock():], c.remainInBlock(), true, nil
}

func (c *Cursor) readToEndOfBlockAtMost(buffer []byte) (uint32, error) {
	region, remain, ok, err := c.currentBlock()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	readAmount := remain
	// The last block is allocated whole; reads stop at the inode's size,
	// not at the block boundary.
	if size := c.inode.Size(); size-c.totalIndex < readAmount {
		readAmount = size - c.totalIndex
	}
	if uint32(len(buffer)) < readAmount {
		readAmount = uint32(len(buffer))
	}
	copy(buffer[:readAmount], region[:readAmount])
	c.totalIndex += readAmount
	return readAmount, nil
}

// Read copies at most len(buffer) bytes into buffer, returning the count
// actually copied (0 on exhaustion). It never crosses an unallocated slot
// without re-resolving the block pointer, and does not update file times.
func (c *Cursor) Read(buffer []byte) (int, error) {
	log.Tracef("reading at most %d bytes from inode %d", len(buffer), c.inode.id)
	index := 0
	for index < len(buffer) {
		n, err := c.readToEndOfBlockAtMost(buffer[index:])
		if err != nil {
			return index, err
		}
		if n == 0 {
			break
		}
		index += int(n)
	}
	return index, nil
}

func (c *Cursor) allocateNewBlock() ([]byte, error) {
	idx, err := c.inode.reserveDataBlock()
	if err != nil {
		return nil, err
	}
	return c.inode.fs.Block(idx)
}

func (c *Cursor) writeToEndOfBlockAtMost(data []byte) (uint32, error) {
	region, remain, ok, err := c.currentBlock()
	if err != nil {
		return 0, err
	}
	if !ok {
		block, err := c.allocateNewBlock()
		if err != nil {
			return 0, err
		}
		region = block[c.offsetInBlock():]
		remain = c.remainInBlock()
	}

	writeAmount := remain
	if uint32(len(data)) < writeAmount {
		writeAmount = uint32(len(data))
	}
	copy(region[:writeAmount], data[:writeAmount])
	c.totalIndex += writeAmount
	return writeAmount, nil
}

// Write writes all of data, allocating fresh blocks as needed, and updates
// the inode's size to max(old size, end of write).
func (c *Cursor) Write(data []byte) error {
	index := 0
	for index < len(data) {
		n, err := c.writeToEndOfBlockAtMost(data[index:])
		if err != nil {
			return err
		}
		index += int(n)
	}
	if c.totalIndex > c.inode.rec.size() {
		c.inode.rec.setSize(c.totalIndex)
	}
	return nil
}

// Advance increases total_index by min(n, size - total_index): the cursor
// never advances past EOF by a simple Advance.
func (c *Cursor) Advance(n uint32) {
	size := c.inode.Size()
	remaining := uint32(0)
	if size > c.totalIndex {
		remaining = size - c.totalIndex
	}
	if n > remaining {
		n = remaining
	}
	c.totalIndex += n
}

// AdvanceToEnd positions the cursor at the inode's size.
func (c *Cursor) AdvanceToEnd() {
	size := c.inode.Size()
	if size > c.totalIndex {
		c.Advance(size - c.totalIndex)
	}
}

// Position returns the cursor's current total_index.
func (c *Cursor) Position() uint32 {
	return c.totalIndex
}

// advanceRaw moves the cursor by exactly n bytes, unlike the public
// Advance, which clamps to the inode's size. Directory iteration uses it
// to step by each record's size field exactly as stored.
func (c *Cursor) advanceRaw(n uint32) {
	c.totalIndex += n
}

// Align returns the misalignment of the current position modulo alignTo,
// or an error if the required padding would cross the block boundary.
func (c *Cursor) Align(alignTo uint32) (uint32, error) {
	misalign := c.offsetInBlock() % alignTo
	if (alignTo-misalign)%alignTo > c.remainInBlock() {
		return 0, ErrAlignmentCrossesBlock
	}
	return misalign, nil
}
