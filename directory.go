package ext2

import (
	"encoding/binary"
	"fmt"
)

// rawDirectoryEntryHeaderSize is the fixed header portion of a directory
// record: inode (4) + size (2) + name_len (1) + kind (1).
const rawDirectoryEntryHeaderSize = 8

// DirectoryEntry is one decoded child of a directory, as yielded by
// DirEntries.Next.
type DirectoryEntry struct {
	Inode InodeRef
	Size  uint16
	Kind  Kind
	Name  []byte
}

// DirEntries iterates and mutates the variable-length RawDirectoryEntry
// records that make up a directory's data, built on top of a Cursor.
type DirEntries struct {
	reader *Cursor
}

// peek reads the record at the cursor's current position without
// advancing it. ok is false at end-of-data (unallocated next block) or on
// a defensive stop (record size 0, or too little room left in the block
// for a header at all).
func (d *DirEntries) peek() (region []byte, size uint16, nameLen uint8, kind Kind, name []byte, ok bool, err error) {
	region, remain, allocated, err := d.reader.currentBlock()
	if err != nil {
		return nil, 0, 0, 0, nil, false, err
	}
	if !allocated || remain < rawDirectoryEntryHeaderSize {
		return nil, 0, 0, 0, nil, false, nil
	}
	size = binary.LittleEndian.Uint16(region[4:6])
	if size == 0 {
		return nil, 0, 0, 0, nil, false, nil
	}
	nameLen = region[6]
	kind = Kind(region[7])
	// A record too small for its own name is malformed; treat it as the
	// end of the directory rather than walking garbage.
	if size < rawDirectoryEntryHeaderSize+uint16(nameLen) ||
		rawDirectoryEntryHeaderSize+uint32(nameLen) > remain {
		return nil, 0, 0, 0, nil, false, nil
	}
	name = region[rawDirectoryEntryHeaderSize : rawDirectoryEntryHeaderSize+int(nameLen)]
	return region, size, nameLen, kind, name, true, nil
}

// Next returns the next directory entry, or nil if iteration has ended.
func (d *DirEntries) Next() (*DirectoryEntry, error) {
	region, size, _, kind, name, ok, err := d.peek()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	entry := &DirectoryEntry{
		Inode: InodeRef(binary.LittleEndian.Uint32(region[0:4])),
		Size:  size,
		Kind:  kind,
		Name:  append([]byte(nil), name...),
	}
	d.reader.advanceRaw(uint32(size))
	return entry, nil
}

// SkipDots advances past the "." and ".." records that begin every
// directory.
func (d *DirEntries) SkipDots() error {
	for i := 0; i < 2; i++ {
		if _, err := d.Next(); err != nil {
			return err
		}
	}
	return nil
}

// AddEntry inserts a new record naming inode under name, splitting the
// trailing padding of the first existing record with enough room. It fails
// with ErrDirectoryFull if no record has sufficient padding; growing the
// directory by an extra block is not implemented.
func (d *DirEntries) AddEntry(kind Kind, name []byte, inode InodeRef) error {
	if kind == KindUnknown {
		return fmt.Errorf("%w: cannot add an entry of unknown kind", ErrUnknownKind)
	}
	if len(name) > 255 {
		return ErrNameTooLong
	}
	newEntrySize := uint16(rawDirectoryEntryHeaderSize + len(name))

	for {
		region, size, nameLen, _, curName, ok, err := d.peek()
		if err != nil {
			return err
		}
		if !ok {
			return ErrDirectoryFull
		}

		used := uint16(nameLen) + rawDirectoryEntryHeaderSize
		padding := size - used
		if padding < newEntrySize {
			log.Tracef("skipping %s, only has %d padding", curName, padding)
			d.reader.advanceRaw(uint32(size))
			continue
		}

		// Move the head past the record's header and name: the correction
		// is however many padding bytes must stay with it so the record
		// written right after stays 4-byte aligned.
		d.reader.advanceRaw(uint32(used))
		misalign, err := d.reader.Align(4)
		if err != nil {
			return ErrDirectoryFull
		}
		correction := uint16((4 - misalign) % 4)
		remaining := padding - correction
		if remaining < newEntrySize {
			log.Tracef("skipping %s, only has %d padding after align (corrected by %d bytes)", curName, remaining, correction)
			d.reader.advanceRaw(uint32(size - used))
			continue
		}

		log.Tracef("splitting %s to write new entry", curName)
		binary.LittleEndian.PutUint16(region[4:6], used+correction)
		d.reader.advanceRaw(uint32(correction))

		return d.writeDirEntry(inode, remaining, uint8(len(name)), kind, name)
	}
}

func (d *DirEntries) writeDirEntry(inode InodeRef, size uint16, nameLen uint8, kind Kind, name []byte) error {
	var header [rawDirectoryEntryHeaderSize]byte
	binary.LittleEndian.PutUint32(header[0:4], uint32(inode))
	binary.LittleEndian.PutUint16(header[4:6], size)
	header[6] = nameLen
	header[7] = byte(kind)

	if err := d.reader.Write(header[:]); err != nil {
		return err
	}
	return d.reader.Write(name)
}
