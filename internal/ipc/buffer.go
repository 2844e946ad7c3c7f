package ipc

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// buffer is a shared file mapped into memory. The video region comes first,
// the audio region follows it.
type buffer struct {
	path string
	file *os.File
	data []byte
}

func openBuffer(path string, size int) (*buffer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0600)
	if err != nil {
		return nil, fmt.Errorf("failed to open buffer file: %w", err)
	}
	b := &buffer{path: path, file: f}
	if err := b.remap(size); err != nil {
		f.Close()
		return nil, err
	}
	return b, nil
}

// remap resizes the backing file and maps it again
func (b *buffer) remap(size int) error {
	if b.data != nil {
		if err := unix.Munmap(b.data); err != nil {
			return fmt.Errorf("failed to unmap buffer: %w", err)
		}
		b.data = nil
	}
	if size <= 0 {
		return nil
	}

	fd := int(b.file.Fd())
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		return fmt.Errorf("failed to size buffer to %d bytes: %w", size, err)
	}
	data, err := unix.Mmap(fd, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return fmt.Errorf("failed to map buffer: %w", err)
	}
	b.data = data
	return nil
}

func (b *buffer) close() error {
	var err error
	if b.data != nil {
		err = unix.Munmap(b.data)
		b.data = nil
	}
	if cerr := b.file.Close(); err == nil {
		err = cerr
	}
	return err
}
