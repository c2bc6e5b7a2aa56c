package ext2

import (
	"encoding/binary"
	"fmt"
)

// blockGroupDescriptorSize is the on-disk size of one BlockGroupDescriptor
// record.
const blockGroupDescriptorSize = 32

// BlockGroupDescriptor is a decoded view of one 32-byte entry of the
// block-group descriptor table.
type BlockGroupDescriptor struct {
	BlockBitmapBlock     uint32
	InodeBitmapBlock     uint32
	InodeTableStartBlock uint32
	UnallocatedBlocks    uint16
	UnallocatedInodes    uint16
	DirectoryCount       uint16
}

// blockGroupDescriptorFromBytes decodes a single descriptor from its 32
// bytes. The 14 trailing reserved bytes are neither decoded nor preserved;
// this driver never writes the descriptor table back.
func blockGroupDescriptorFromBytes(b []byte) (*BlockGroupDescriptor, error) {
	if len(b) < blockGroupDescriptorSize {
		return nil, fmt.Errorf("ext2: group descriptor region too small: %d bytes", len(b))
	}
	le := binary.LittleEndian
	return &BlockGroupDescriptor{
		BlockBitmapBlock:     le.Uint32(b[0:4]),
		InodeBitmapBlock:     le.Uint32(b[4:8]),
		InodeTableStartBlock: le.Uint32(b[8:12]),
		UnallocatedBlocks:    le.Uint16(b[12:14]),
		UnallocatedInodes:    le.Uint16(b[14:16]),
		DirectoryCount:       le.Uint16(b[16:18]),
	}, nil
}

// blockGroupDescriptorTableFromBytes decodes count consecutive descriptors
// starting at b[0].
func blockGroupDescriptorTableFromBytes(b []byte, count uint32) ([]BlockGroupDescriptor, error) {
	need := int(count) * blockGroupDescriptorSize
	if len(b) < need {
		return nil, fmt.Errorf("ext2: group descriptor table region too small: need %d, have %d", need, len(b))
	}
	table := make([]BlockGroupDescriptor, count)
	for i := uint32(0); i < count; i++ {
		off := int(i) * blockGroupDescriptorSize
		desc, err := blockGroupDescriptorFromBytes(b[off : off+blockGroupDescriptorSize])
		if err != nil {
			return nil, err
		}
		table[i] = *desc
	}
	return table, nil
}
