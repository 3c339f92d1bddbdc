// Package mmap provides a memory-mapped page store.
package mmap

import (
	"os"
	"sync"

	jerrors "github.com/juju/errors"
	"golang.org/x/sys/unix"

	"github.com/zhukovaskychina/xindex/server/basic"
)

// MMapFile is a page store backed by a shared memory mapping of the file.
// Extend remaps the file; pages are always copied in and out, so callers
// never hold references into the mapping.
type MMapFile struct {
	mu       sync.RWMutex
	file     *os.File
	filePath string
	data     []byte
	pageSize uint32
	pages    uint32
}

var _ basic.PageStore = (*MMapFile)(nil)

// OpenMMapFile opens or creates path and maps at least minPages pages.
func OpenMMapFile(filePath string, pageSize uint32, minPages uint32) (*MMapFile, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, jerrors.Annotatef(err, "os.OpenFile(%s)", filePath)
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, jerrors.Annotatef(err, "stat(%s)", filePath)
	}

	m := &MMapFile{
		file:     file,
		filePath: filePath,
		pageSize: pageSize,
		pages:    uint32(info.Size() / int64(pageSize)),
	}
	if m.pages < minPages {
		if err := file.Truncate(int64(minPages) * int64(pageSize)); err != nil {
			file.Close()
			return nil, jerrors.Annotatef(err, "Truncate(pages:%d)", minPages)
		}
		m.pages = minPages
	}
	if err := m.mapLocked(); err != nil {
		file.Close()
		return nil, err
	}
	return m, nil
}

func (m *MMapFile) mapLocked() error {
	if m.pages == 0 {
		m.data = nil
		return nil
	}
	data, err := unix.Mmap(int(m.file.Fd()), 0, int(m.pages)*int(m.pageSize),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return jerrors.Annotatef(err, "mmap(%s, pages:%d)", m.filePath, m.pages)
	}
	m.data = data
	return nil
}

func (m *MMapFile) unmapLocked() error {
	if m.data == nil {
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	return jerrors.Annotatef(err, "munmap(%s)", m.filePath)
}

func (m *MMapFile) Path() string {
	return m.filePath
}

func (m *MMapFile) ReadPage(pageNo uint32, buf []byte) error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.file == nil {
		return jerrors.Errorf("mmap file %s is closed", m.filePath)
	}
	buf = buf[:m.pageSize]
	if pageNo >= m.pages {
		for i := range buf {
			buf[i] = 0
		}
		return nil
	}
	off := int(pageNo) * int(m.pageSize)
	copy(buf, m.data[off:off+int(m.pageSize)])
	return nil
}

func (m *MMapFile) WritePage(pageNo uint32, content []byte) error {
	m.mu.RLock()
	inRange := pageNo < m.pages
	m.mu.RUnlock()
	if !inRange {
		if err := m.Extend(pageNo + 1); err != nil {
			return err
		}
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.file == nil {
		return jerrors.Errorf("mmap file %s is closed", m.filePath)
	}
	off := int(pageNo) * int(m.pageSize)
	if uint32(len(content)) > m.pageSize {
		content = content[:m.pageSize]
	}
	copy(m.data[off:off+int(m.pageSize)], content)
	return nil
}

func (m *MMapFile) PageCount() uint32 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pages
}

// Extend grows the file to pages pages and remaps it.
func (m *MMapFile) Extend(pages uint32) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if pages <= m.pages {
		return nil
	}
	if m.file == nil {
		return jerrors.Errorf("mmap file %s is closed", m.filePath)
	}
	if err := m.unmapLocked(); err != nil {
		return err
	}
	if err := m.file.Truncate(int64(pages) * int64(m.pageSize)); err != nil {
		// keep the old mapping usable
		if merr := m.mapLocked(); merr != nil {
			return merr
		}
		return jerrors.Annotatef(err, "Truncate(pages:%d)", pages)
	}
	m.pages = pages
	return m.mapLocked()
}

func (m *MMapFile) Sync() error {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.data == nil {
		return nil
	}
	return jerrors.Annotatef(unix.Msync(m.data, unix.MS_SYNC), "msync(%s)", m.filePath)
}

func (m *MMapFile) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.file == nil {
		return nil
	}
	if err := m.unmapLocked(); err != nil {
		return err
	}
	err := m.file.Close()
	m.file = nil
	return jerrors.Trace(err)
}
