package ext2

import (
	"testing"

	"github.com/go-test/deep"
)

func TestBlockGroupDescriptorTableFromBytes(t *testing.T) {
	region := newFixtureImage()
	table, err := blockGroupDescriptorTableFromBytes(region[fixtureGroupDescBlock*fixtureBlockSize:], 1)
	if err != nil {
		t.Fatalf("blockGroupDescriptorTableFromBytes() error = %v", err)
	}
	if len(table) != 1 {
		t.Fatalf("got %d descriptors, want 1", len(table))
	}

	expected := BlockGroupDescriptor{
		BlockBitmapBlock:     fixtureBlockBitmapBlock,
		InodeBitmapBlock:     fixtureInodeBitmapBlock,
		InodeTableStartBlock: fixtureInodeTableBlock,
		UnallocatedBlocks:    fixtureBlockCount - fixtureFirstFreeBlock,
		UnallocatedInodes:    fixtureInodeCount - 2,
		DirectoryCount:       1,
	}
	if diff := deep.Equal(expected, table[0]); diff != nil {
		t.Errorf("descriptor mismatch: %v", diff)
	}
}

func TestBlockGroupDescriptorTableFromBytesTooSmall(t *testing.T) {
	if _, err := blockGroupDescriptorTableFromBytes(make([]byte, 10), 2); err == nil {
		t.Fatal("expected an error decoding a too-small descriptor table region")
	}
}
