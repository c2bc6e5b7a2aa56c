package ext2

import (
	"encoding/binary"
	"fmt"
)

// inodeRecordSize is the on-disk size of one InodeData record.
const inodeRecordSize = 128

// InodeRef is a 1-based inode number. Using a distinct type instead of a
// bare uint32 prevents accidentally passing a block index where an inode
// number is expected.
type InodeRef uint32

// RootInode is the well-known inode number of the root directory.
const RootInode InodeRef = 2

// Kind identifies the type of a filesystem object, shared between an
// Inode's type_permission top nibble and a directory entry's kind byte.
type Kind uint8

const (
	KindUnknown     Kind = 0
	KindRegularFile Kind = 1
	KindDirectory   Kind = 2
	KindCharDevice  Kind = 3
	KindBlockDevice Kind = 4
	KindFifo        Kind = 5
	KindSocket      Kind = 6
	KindSymlink     Kind = 7
)

func (k Kind) String() string {
	switch k {
	case KindRegularFile:
		return "regular file"
	case KindDirectory:
		return "directory"
	case KindCharDevice:
		return "char device"
	case KindBlockDevice:
		return "block device"
	case KindFifo:
		return "fifo"
	case KindSocket:
		return "socket"
	case KindSymlink:
		return "symlink"
	default:
		return "unknown"
	}
}

// typePermission bits, top nibble of an InodeData's type_permission field.
const (
	typePermFIFO        uint16 = 0x1000
	typePermCharDevice  uint16 = 0x2000
	typePermDirectory   uint16 = 0x4000
	typePermBlockDevice uint16 = 0x6000
	typePermRegular     uint16 = 0x8000
	typePermSymlink     uint16 = 0xA000
	typePermSocket      uint16 = 0xC000
	typePermKindMask    uint16 = 0xF000
	typePermPermMask    uint16 = 0x0FFF
)

// kindToTypePerm maps a Kind to its top-nibble bits. KindUnknown has no
// valid encoding.
func kindToTypePerm(k Kind) (uint16, error) {
	switch k {
	case KindFifo:
		return typePermFIFO, nil
	case KindCharDevice:
		return typePermCharDevice, nil
	case KindDirectory:
		return typePermDirectory, nil
	case KindBlockDevice:
		return typePermBlockDevice, nil
	case KindRegularFile:
		return typePermRegular, nil
	case KindSymlink:
		return typePermSymlink, nil
	case KindSocket:
		return typePermSocket, nil
	default:
		return 0, fmt.Errorf("%w: %v", ErrUnknownKind, k)
	}
}

func typePermToKind(tp uint16) Kind {
	switch tp & typePermKindMask {
	case typePermFIFO:
		return KindFifo
	case typePermCharDevice:
		return KindCharDevice
	case typePermDirectory:
		return KindDirectory
	case typePermBlockDevice:
		return KindBlockDevice
	case typePermRegular:
		return KindRegularFile
	case typePermSymlink:
		return KindSymlink
	case typePermSocket:
		return KindSocket
	default:
		return KindUnknown
	}
}

// Permission is the POSIX permission/set-id/sticky bits, the low 12 bits of
// type_permission (and of a to-be-created inode's requested permissions).
type Permission uint16

const (
	PermOtherExecute Permission = 0o0001
	PermOtherWrite   Permission = 0o0002
	PermOtherRead    Permission = 0o0004
	PermGroupExecute Permission = 0o0010
	PermGroupWrite   Permission = 0o0020
	PermGroupRead    Permission = 0o0040
	PermOwnerExecute Permission = 0o0100
	PermOwnerWrite   Permission = 0o0200
	PermOwnerRead    Permission = 0o0400
	PermStickyBit    Permission = 0o1000
	PermSetGroupID   Permission = 0o2000
	PermSetUserID    Permission = 0o4000
)

// InodeFlags are preserved but not enforced by this driver.
type InodeFlags uint32

const (
	FlagSecureDeletion         InodeFlags = 0x00000001
	FlagCopyOnDeletion         InodeFlags = 0x00000002
	FlagFileCompression        InodeFlags = 0x00000004
	FlagSynchronousUpdates     InodeFlags = 0x00000008
	FlagImmutableFile          InodeFlags = 0x00000010
	FlagAppendOnly             InodeFlags = 0x00000020
	FlagFileNotInDump          InodeFlags = 0x00000040
	FlagDontUpdateAccessedTime InodeFlags = 0x00000080
	FlagHashIndexedDir         InodeFlags = 0x00010000
	FlagAfsDir                 InodeFlags = 0x00020000
	FlagJournalData            InodeFlags = 0x00040000
)

// inodeRecord is a typed, non-copying view of one 128-byte InodeData slot
// directly inside the backing region: reads and writes go straight through
// to the image.
type inodeRecord struct {
	b []byte
}

func inodeRecordFromBytes(b []byte) (inodeRecord, error) {
	if len(b) < inodeRecordSize {
		return inodeRecord{}, fmt.Errorf("ext2: inode record region too small: %d bytes", len(b))
	}
	return inodeRecord{b: b[:inodeRecordSize]}, nil
}

func (r inodeRecord) typePermission() uint16       { return binary.LittleEndian.Uint16(r.b[0:2]) }
func (r inodeRecord) setTypePermission(v uint16)   { binary.LittleEndian.PutUint16(r.b[0:2], v) }
func (r inodeRecord) userID() uint16               { return binary.LittleEndian.Uint16(r.b[2:4]) }
func (r inodeRecord) setUserID(v uint16)           { binary.LittleEndian.PutUint16(r.b[2:4], v) }
func (r inodeRecord) size() uint32                 { return binary.LittleEndian.Uint32(r.b[4:8]) }
func (r inodeRecord) setSize(v uint32)             { binary.LittleEndian.PutUint32(r.b[4:8], v) }
func (r inodeRecord) lastAccessTime() uint32       { return binary.LittleEndian.Uint32(r.b[8:12]) }
func (r inodeRecord) creationTime() uint32         { return binary.LittleEndian.Uint32(r.b[12:16]) }
func (r inodeRecord) lastModificationTime() uint32 { return binary.LittleEndian.Uint32(r.b[16:20]) }
func (r inodeRecord) deletionTime() uint32         { return binary.LittleEndian.Uint32(r.b[20:24]) }
func (r inodeRecord) groupID() uint16              { return binary.LittleEndian.Uint16(r.b[24:26]) }
func (r inodeRecord) setGroupID(v uint16)          { binary.LittleEndian.PutUint16(r.b[24:26], v) }
func (r inodeRecord) hardLinkCount() uint16        { return binary.LittleEndian.Uint16(r.b[26:28]) }
func (r inodeRecord) setHardLinkCount(v uint16)    { binary.LittleEndian.PutUint16(r.b[26:28], v) }
func (r inodeRecord) diskSectorsUsed() uint32      { return binary.LittleEndian.Uint32(r.b[28:32]) }
func (r inodeRecord) flags() InodeFlags            { return InodeFlags(binary.LittleEndian.Uint32(r.b[32:36])) }
func (r inodeRecord) generation() uint32           { return binary.LittleEndian.Uint32(r.b[100:104]) }
func (r inodeRecord) acl() uint32                  { return binary.LittleEndian.Uint32(r.b[104:108]) }
func (r inodeRecord) upperSizeOrDirACL() uint32    { return binary.LittleEndian.Uint32(r.b[108:112]) }
func (r inodeRecord) fragmentBlock() uint32        { return binary.LittleEndian.Uint32(r.b[112:116]) }

const (
	directBlockPointersOffset = 40
	directBlockPointerCount   = 12
	singlyIndirectPointerOff  = directBlockPointersOffset + 4*directBlockPointerCount
)

func (r inodeRecord) directBlockPointer(i int) uint32 {
	off := directBlockPointersOffset + 4*i
	return binary.LittleEndian.Uint32(r.b[off : off+4])
}

func (r inodeRecord) setDirectBlockPointer(i int, v uint32) {
	off := directBlockPointersOffset + 4*i
	binary.LittleEndian.PutUint32(r.b[off:off+4], v)
}

func (r inodeRecord) singlyIndirectPointer() uint32 {
	return binary.LittleEndian.Uint32(r.b[singlyIndirectPointerOff : singlyIndirectPointerOff+4])
}

// clearBlockPointers zeroes the twelve direct pointers and the three
// indirect pointers. A reserved inode number may have been used and freed
// before; its table slot still holds whatever the previous owner left.
func (r inodeRecord) clearBlockPointers() {
	for i := directBlockPointersOffset; i < directBlockPointersOffset+4*(directBlockPointerCount+3); i++ {
		r.b[i] = 0
	}
}

// Inode is a lightweight handle binding an inode number, its resolved
// group, and a view of its on-disk record. It borrows the FileSystem it
// came from for its entire lifetime.
type Inode struct {
	fs    *FileSystem
	id    uint32
	group uint32
	rec   inodeRecord
}

// InodeRef returns this inode's 1-based number.
func (ino *Inode) InodeRef() InodeRef {
	return InodeRef(ino.id)
}

// Size returns size_lower_32_bits from the inode's record.
func (ino *Inode) Size() uint32 {
	return ino.rec.size()
}

// Kind returns the inode's type, derived from type_permission's top nibble.
func (ino *Inode) Kind() Kind {
	return typePermToKind(ino.rec.typePermission())
}

// Permission returns the inode's POSIX permission bits.
func (ino *Inode) Permission() Permission {
	return Permission(ino.rec.typePermission() & typePermPermMask)
}

// Flags returns the inode's preserved-but-unenforced flag bits.
func (ino *Inode) Flags() InodeFlags {
	return ino.rec.flags()
}

// UserID and GroupID return the inode's owner ids.
func (ino *Inode) UserID() uint16  { return ino.rec.userID() }
func (ino *Inode) GroupID() uint16 { return ino.rec.groupID() }

// HardLinkCount returns the inode's link count field.
func (ino *Inode) HardLinkCount() uint16 { return ino.rec.hardLinkCount() }

// Cursor returns a fresh read/write cursor at offset 0 for a regular file.
// It fails with ErrWrongKind on a directory or anything else.
func (ino *Inode) Cursor() (*Cursor, error) {
	kind := ino.Kind()
	log.Tracef("getting cursor on inode %d, kind %v", ino.id, kind)
	switch kind {
	case KindDirectory:
		return nil, fmt.Errorf("%w: inode %d is a directory", ErrWrongKind, ino.id)
	case KindRegularFile:
		return newCursor(ino), nil
	default:
		return nil, fmt.Errorf("%w: inode %d has unsupported kind %v for a cursor", ErrWrongKind, ino.id, kind)
	}
}

// End returns a cursor advanced to the end of the inode's data.
func (ino *Inode) End() (*Cursor, error) {
	c, err := ino.Cursor()
	if err != nil {
		return nil, err
	}
	c.AdvanceToEnd()
	return c, nil
}

// DirEntries returns an entry iterator over a directory's data region. It
// fails with ErrWrongKind on anything other than a directory.
func (ino *Inode) DirEntries() (*DirEntries, error) {
	log.Tracef("getting entries on inode %d", ino.id)
	if ino.Kind() != KindDirectory {
		return nil, fmt.Errorf("%w: inode %d is not a directory", ErrWrongKind, ino.id)
	}
	return &DirEntries{reader: newCursor(ino)}, nil
}

// reserveDataBlock allocates a block in the inode's group and writes its
// index into the first free slot of direct_block_pointers[0..12].
func (ino *Inode) reserveDataBlock() (uint32, error) {
	newBlock, err := ino.fs.ReserveBlock(ino.group)
	if err != nil {
		return 0, err
	}
	for i := 0; i < directBlockPointerCount; i++ {
		if ino.rec.directBlockPointer(i) == 0 {
			ino.rec.setDirectBlockPointer(i, newBlock)
			return newBlock, nil
		}
	}
	return 0, ErrNoFreeBlock
}

// CreateInDir reserves a fresh inode in this directory's group, initialises
// its record, and inserts a directory entry naming it. Only valid on a
// directory inode, and only for non-directory kinds.
func (ino *Inode) CreateInDir(kind Kind, perms Permission, userID, groupID uint16, name []byte) (InodeRef, error) {
	if kind == KindDirectory {
		return 0, ErrCannotCreateDirectory
	}
	if ino.Kind() != KindDirectory {
		return 0, fmt.Errorf("%w: inode %d is not a directory", ErrWrongKind, ino.id)
	}

	newRef, err := ino.fs.ReserveInode(ino.group)
	if err != nil {
		return 0, err
	}
	log.Tracef("assigning inode %d (name: %s)", newRef, name)

	newInode, err := ino.fs.inodeAt(newRef)
	if err != nil {
		return 0, err
	}

	entries := &DirEntries{reader: newCursor(ino)}
	if err := entries.AddEntry(kind, name, newRef); err != nil {
		return 0, err
	}

	typePerm, err := kindToTypePerm(kind)
	if err != nil {
		return 0, err
	}
	newInode.rec.setTypePermission(typePerm | uint16(perms))
	newInode.rec.setHardLinkCount(1)
	newInode.rec.setUserID(userID)
	newInode.rec.setGroupID(groupID)
	newInode.rec.setSize(0)
	newInode.rec.clearBlockPointers()

	return newRef, nil
}
