package ext2

import "errors"

// Sentinel errors returned by this package. Callers are expected to use
// errors.Is against these rather than matching on message text.
var (
	// ErrBadSignature is returned by Mount when the superblock's magic
	// number is not 0xEF53.
	ErrBadSignature = errors.New("ext2: bad superblock signature")

	// ErrUnsupportedVersion is returned by Mount when the superblock's
	// major revision is less than 1, meaning no extended superblock is
	// present.
	ErrUnsupportedVersion = errors.New("ext2: unsupported revision, no extended superblock")

	// ErrWrongKind is returned when an operation is attempted on an inode
	// whose type does not support it, e.g. asking a directory for a
	// Cursor, or asking a regular file for directory entries.
	ErrWrongKind = errors.New("ext2: wrong inode kind for operation")

	// ErrBitmapFull is returned by ReserveBlock/ReserveInode when a
	// group's bitmap has no free bit left.
	ErrBitmapFull = errors.New("ext2: bitmap exhausted")

	// ErrDirectoryFull is returned by AddEntry/CreateInDir when no
	// existing directory record has enough padding to host the new
	// entry. Growing a directory past its allocated blocks is not
	// implemented.
	ErrDirectoryFull = errors.New("ext2: directory has no room for new entry")

	// ErrNoFreeBlock is returned when an inode already uses all 12
	// direct block pointers and a 13th block is requested.
	ErrNoFreeBlock = errors.New("ext2: inode has no free direct block pointer")

	// ErrBlockOutOfRange is returned when a block index read off the
	// image (a descriptor field or a direct block pointer) addresses a
	// block past the end of the backing region.
	ErrBlockOutOfRange = errors.New("ext2: block index outside the backing region")

	// ErrNameTooLong is returned when a directory entry name does not
	// fit in the 8-bit name_len field.
	ErrNameTooLong = errors.New("ext2: directory entry name longer than 255 bytes")

	// ErrIndirectBlocksUnsupported is returned when a cursor operation
	// would need to address data past the twelve direct block pointers.
	// Indirect block traversal is not implemented.
	ErrIndirectBlocksUnsupported = errors.New("ext2: data beyond direct block pointers requires indirect blocks, unsupported")

	// ErrCannotCreateDirectory is returned by CreateInDir when asked to
	// create a directory entry of kind Directory; this driver only creates
	// non-directory children.
	ErrCannotCreateDirectory = errors.New("ext2: creating directory entries is unsupported")

	// ErrUnknownKind is returned when KindUnknown would have to be
	// encoded, e.g. when adding a directory entry of that kind. Decoding an
	// unrecognised type nibble or kind byte yields KindUnknown, not this
	// error.
	ErrUnknownKind = errors.New("ext2: unknown inode/entry kind")

	// ErrAlignmentCrossesBlock is returned by Cursor.Align when the
	// padding needed to reach the requested alignment would cross into
	// the next block.
	ErrAlignmentCrossesBlock = errors.New("ext2: alignment padding would cross block boundary")
)
