//go:build linux && !windows
// +build linux,!windows

// Package platformio wraps the OS-specific syscalls the disk-backed cache
// needs to map a file into memory.
package platformio

import (
	"os"

	"golang.org/x/sys/unix"
)

// Mmap maps size bytes of fd starting at offset, read-write, shared with the
// underlying file.
func Mmap(fd int, offset int64, size int) ([]byte, error) {
	slice, err := unix.Mmap(fd, offset, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, os.NewSyscallError("mmap", err)
	}
	return slice, nil
}

// Munmap unmaps a region previously returned by Mmap.
func Munmap(chunk []byte) error {
	if err := unix.Munmap(chunk); err != nil {
		return os.NewSyscallError("munmap", err)
	}
	return nil
}
