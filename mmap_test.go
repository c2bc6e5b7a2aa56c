//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package ext2

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/traxys/ext2fs/internal/imgtest"
)

// TestMountMmapRegion drives the full stack against a memory-mapped image
// file instead of a heap buffer - the region shape the driver is actually
// built for. Mutations must land in the file through the mapping.
func TestMountMmapRegion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ext2.img")
	img, err := imgtest.WriteFixture(path, newFixtureImage())
	if err != nil {
		t.Fatalf("WriteFixture() error = %v", err)
	}
	defer img.Close()

	fs, err := Mount(img.Region)
	if err != nil {
		t.Fatalf("Mount() error = %v", err)
	}

	root, err := fs.Root()
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	ref, err := root.CreateInDir(KindRegularFile, 0o644, 0, 0, []byte("hello.txt"))
	if err != nil {
		t.Fatalf("CreateInDir() error = %v", err)
	}
	file, err := fs.Inode(ref)
	if err != nil {
		t.Fatalf("Inode(%d) error = %v", ref, err)
	}
	cursor, err := file.Cursor()
	if err != nil {
		t.Fatalf("Cursor() error = %v", err)
	}
	content := []byte("written through the mapping")
	if err := cursor.Write(content); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	if err := img.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	// Reopen the file from disk; the write must have reached it.
	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	fs2, err := Mount(raw)
	if err != nil {
		t.Fatalf("Mount() of reread image error = %v", err)
	}
	root2, err := fs2.Root()
	if err != nil {
		t.Fatalf("Root() error = %v", err)
	}
	entries, err := root2.DirEntries()
	if err != nil {
		t.Fatalf("DirEntries() error = %v", err)
	}
	if err := entries.SkipDots(); err != nil {
		t.Fatalf("SkipDots() error = %v", err)
	}
	child, err := entries.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if child == nil || string(child.Name) != "hello.txt" || child.Inode != ref {
		t.Fatalf("child = %+v, want \"hello.txt\" at inode %d", child, ref)
	}

	reread, err := fs2.Inode(child.Inode)
	if err != nil {
		t.Fatalf("Inode(%d) error = %v", child.Inode, err)
	}
	readCursor, err := reread.Cursor()
	if err != nil {
		t.Fatalf("Cursor() error = %v", err)
	}
	buf := make([]byte, len(content)+10)
	n, err := readCursor.Read(buf)
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if n != len(content) || !bytes.Equal(buf[:n], content) {
		t.Fatalf("Read() = %q (%d bytes), want %q", buf[:n], n, content)
	}
}
