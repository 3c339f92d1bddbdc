package blocks

import (
	"io"
	"os"
	"sync"

	jerrors "github.com/juju/errors"

	"github.com/zhukovaskychina/xindex/server/basic"
)

// BlockFile 以pread/pwrite方式按页读写的文件
type BlockFile struct {
	mu       sync.RWMutex
	file     *os.File
	filePath string
	pageSize uint32
	pages    uint32
}

var _ basic.PageStore = (*BlockFile)(nil)

// OpenBlockFile 打开或创建页面文件，文件长度按页取整
func OpenBlockFile(filePath string, pageSize uint32) (*BlockFile, error) {
	file, err := os.OpenFile(filePath, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, jerrors.Annotatef(err, "os.OpenFile(%s)", filePath)
	}
	stat, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, jerrors.Annotatef(err, "stat(%s)", filePath)
	}
	return &BlockFile{
		file:     file,
		filePath: filePath,
		pageSize: pageSize,
		pages:    uint32(stat.Size() / int64(pageSize)),
	}, nil
}

func (bf *BlockFile) Path() string {
	return bf.filePath
}

// ReadPage reads a page from the file
func (bf *BlockFile) ReadPage(pageNo uint32, buf []byte) error {
	bf.mu.RLock()
	defer bf.mu.RUnlock()

	if bf.file == nil {
		return jerrors.Errorf("block file %s is closed", bf.filePath)
	}
	buf = buf[:bf.pageSize]
	n, err := bf.file.ReadAt(buf, int64(pageNo)*int64(bf.pageSize))
	if err != nil && err != io.EOF {
		return jerrors.Annotatef(err, "ReadAt(page:%d)", pageNo)
	}
	for i := n; i < len(buf); i++ {
		buf[i] = 0
	}
	return nil
}

// WritePage writes a page to the file
func (bf *BlockFile) WritePage(pageNo uint32, content []byte) error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.file == nil {
		return jerrors.Errorf("block file %s is closed", bf.filePath)
	}
	if uint32(len(content)) > bf.pageSize {
		content = content[:bf.pageSize]
	}
	if _, err := bf.file.WriteAt(content, int64(pageNo)*int64(bf.pageSize)); err != nil {
		return jerrors.Annotatef(err, "WriteAt(page:%d)", pageNo)
	}
	if pageNo >= bf.pages {
		bf.pages = pageNo + 1
	}
	return nil
}

func (bf *BlockFile) PageCount() uint32 {
	bf.mu.RLock()
	defer bf.mu.RUnlock()
	return bf.pages
}

// Extend 截断扩展文件到pages页
func (bf *BlockFile) Extend(pages uint32) error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if pages <= bf.pages {
		return nil
	}
	if bf.file == nil {
		return jerrors.Errorf("block file %s is closed", bf.filePath)
	}
	if err := bf.file.Truncate(int64(pages) * int64(bf.pageSize)); err != nil {
		return jerrors.Annotatef(err, "Truncate(pages:%d)", pages)
	}
	bf.pages = pages
	return nil
}

// Sync syncs the file to disk
func (bf *BlockFile) Sync() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.file != nil {
		return jerrors.Trace(bf.file.Sync())
	}
	return nil
}

// Close closes the block file
func (bf *BlockFile) Close() error {
	bf.mu.Lock()
	defer bf.mu.Unlock()

	if bf.file != nil {
		err := bf.file.Close()
		bf.file = nil
		return jerrors.Trace(err)
	}
	return nil
}
