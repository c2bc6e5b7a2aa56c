package ext2

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"
)

// superblockOffset is the byte offset of the superblock within the image.
const superblockOffset = 1024

// superblockSize is the size in bytes of the base Superblock record.
const superblockSize = 84

// extendedSuperblockSize is the size in bytes of the portion of
// ExtendedSuperblock this driver interprets. The remainder of the
// 1024-byte superblock window (up to byte 1023) is reserved/unused and
// is neither decoded nor preserved.
const extendedSuperblockSize = 236 - superblockSize

const ext2Signature = 0xEF53

// FsState is the value of the superblock's filesystem-state field.
type FsState uint16

const (
	FsStateClean   FsState = 1
	FsStateErrored FsState = 2
)

// OnError describes what the on-disk image says should happen when an
// inconsistency is detected. This driver never acts on it; the field is
// preserved for completeness.
type OnError uint16

const (
	OnErrorIgnore          OnError = 1
	OnErrorRemountReadOnly OnError = 2
	OnErrorKernelPanic     OnError = 3
)

// Superblock is a decoded view of the 84-byte ext2 superblock record found
// at byte offset 1024 of the image.
type Superblock struct {
	InodeCount            uint32
	BlockCount            uint32
	ReservedBlocks         uint32
	UnallocatedBlocks      uint32
	UnallocatedInodes      uint32
	FirstDataBlock         uint32
	LogBlockSize           uint32
	LogFragmentSize        uint32
	BlockCountInGroup      uint32
	FragmentCountInGroup   uint32
	InodeCountInGroup      uint32
	LastMounted            uint32
	LastWritten            uint32
	MountCount             uint16
	MaxMountCount          uint16
	Signature              uint16
	State                  FsState
	OnError                OnError
	MinorVersion           uint16
	TimeSinceLastCheck     uint32
	TimeBetweenChecks      uint32
	CreatorOS              uint32
	MajorVersion           uint32
	ReservedUID            uint16
	ReservedGID            uint16
}

// BlockSize returns B = 1024 << log_block_size.
func (sb *Superblock) BlockSize() uint32 {
	return 1024 << sb.LogBlockSize
}

// superblockFromBytes decodes a Superblock from the 84 bytes starting at
// b[0]. It does not validate the signature or the version; Mount does that
// before it decodes the extended superblock.
func superblockFromBytes(b []byte) (*Superblock, error) {
	if len(b) < superblockSize {
		return nil, fmt.Errorf("ext2: superblock region too small: %d bytes", len(b))
	}
	le := binary.LittleEndian
	sb := &Superblock{
		InodeCount:           le.Uint32(b[0:4]),
		BlockCount:           le.Uint32(b[4:8]),
		ReservedBlocks:       le.Uint32(b[8:12]),
		UnallocatedBlocks:    le.Uint32(b[12:16]),
		UnallocatedInodes:    le.Uint32(b[16:20]),
		FirstDataBlock:       le.Uint32(b[20:24]),
		LogBlockSize:         le.Uint32(b[24:28]),
		LogFragmentSize:      le.Uint32(b[28:32]),
		BlockCountInGroup:    le.Uint32(b[32:36]),
		FragmentCountInGroup: le.Uint32(b[36:40]),
		InodeCountInGroup:    le.Uint32(b[40:44]),
		LastMounted:          le.Uint32(b[44:48]),
		LastWritten:          le.Uint32(b[48:52]),
		MountCount:           le.Uint16(b[52:54]),
		MaxMountCount:        le.Uint16(b[54:56]),
		Signature:            le.Uint16(b[56:58]),
		State:                FsState(le.Uint16(b[58:60])),
		OnError:              OnError(le.Uint16(b[60:62])),
		MinorVersion:         le.Uint16(b[62:64]),
		TimeSinceLastCheck:   le.Uint32(b[64:68]),
		TimeBetweenChecks:    le.Uint32(b[68:72]),
		CreatorOS:            le.Uint32(b[72:76]),
		MajorVersion:         le.Uint32(b[76:80]),
		ReservedUID:          le.Uint16(b[80:82]),
		ReservedGID:          le.Uint16(b[82:84]),
	}
	return sb, nil
}

// ExtendedSuperblock is a decoded view of the portion of the extended
// superblock this driver interprets, starting right after the base
// Superblock within the same 1024-byte window.
type ExtendedSuperblock struct {
	FirstNonReservedInode uint32
	InodeStructSize       uint16
	BlockGroupNumber      uint16
	OptionalFeatures      uint32
	RequiredFeatures      uint32
	WriteFeatures         uint32
	FilesystemID          uuid.UUID
	VolumeName            string
	PathLastMountedAt     string
	CompressionAlgorithm  uint32
	PreallocBlocksFiles   uint8
	PreallocBlocksDirs    uint8
	JournalID             uuid.UUID
	JournalInode          uint32
	JournalDevice         uint32
	HeadOfOrphanList      uint32
}

// extendedSuperblockFromBytes decodes an ExtendedSuperblock from the bytes
// immediately following a Superblock.
func extendedSuperblockFromBytes(b []byte) (*ExtendedSuperblock, error) {
	if len(b) < extendedSuperblockSize {
		return nil, fmt.Errorf("ext2: extended superblock region too small: %d bytes", len(b))
	}
	le := binary.LittleEndian
	esb := &ExtendedSuperblock{
		FirstNonReservedInode: le.Uint32(b[0:4]),
		InodeStructSize:       le.Uint16(b[4:6]),
		BlockGroupNumber:      le.Uint16(b[6:8]),
		OptionalFeatures:      le.Uint32(b[8:12]),
		RequiredFeatures:      le.Uint32(b[12:16]),
		WriteFeatures:         le.Uint32(b[16:20]),
		VolumeName:            nulTerminatedString(b[36:52]),
		PathLastMountedAt:     nulTerminatedString(b[52:116]),
		CompressionAlgorithm:  le.Uint32(b[116:120]),
		PreallocBlocksFiles:   b[120],
		PreallocBlocksDirs:    b[121],
		JournalInode:          le.Uint32(b[140:144]),
		JournalDevice:         le.Uint32(b[144:148]),
		HeadOfOrphanList:      le.Uint32(b[148:152]),
	}

	fsID, err := uuid.FromBytes(b[20:36])
	if err != nil {
		return nil, fmt.Errorf("ext2: decoding fs_id: %w", err)
	}
	esb.FilesystemID = fsID

	journalID, err := uuid.FromBytes(b[124:140])
	if err != nil {
		return nil, fmt.Errorf("ext2: decoding journal_id: %w", err)
	}
	esb.JournalID = journalID

	return esb, nil
}

// nulTerminatedString trims a fixed-width byte field at its first NUL. The
// numeric interpretation of the bytes does not matter here, only their text
// content up to the terminator.
func nulTerminatedString(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
