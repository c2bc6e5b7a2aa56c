//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

// Package imgtest builds real mmap-backed byte regions from fixture files
// for ext2 package tests, standing in for the memory-mapping the driver
// itself is never responsible for.
package imgtest

import (
	"os"

	"golang.org/x/sys/unix"
)

// Image is a byte region mmap'd from a fixture file, and the handle
// needed to unmap and close it.
type Image struct {
	Region []byte

	file *os.File
}

// Open mmaps the file at path read-write and returns the resulting region.
// The file's existing contents are used as-is; callers typically write a
// synthetic fixture with WriteFixture first.
func Open(path string) (*Image, error) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, err
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	region, err := unix.Mmap(int(f.Fd()), 0, int(info.Size()), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &Image{Region: region, file: f}, nil
}

// Close unmaps the region and closes the backing file.
func (img *Image) Close() error {
	if err := unix.Munmap(img.Region); err != nil {
		img.file.Close()
		return err
	}
	return img.file.Close()
}

// WriteFixture creates path with the given contents and opens it as an
// Image, for tests that assemble a synthetic image in memory first.
func WriteFixture(path string, contents []byte) (*Image, error) {
	if err := os.WriteFile(path, contents, 0o644); err != nil {
		return nil, err
	}
	return Open(path)
}
