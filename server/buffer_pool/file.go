package buffer_pool

import (
	"sync"

	jerrors "github.com/juju/errors"
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/server/basic"
	"github.com/zhukovaskychina/xindex/server/common"
	"github.com/zhukovaskychina/xindex/util"
)

const (
	FILE_HEADER_MAGIC   uint32 = 0x50474442
	FILE_HEADER_VERSION uint32 = 1

	// magic(4) version(4) pageCount(4) eofPage(4) eofOffset(4)
	fileHeaderChecksumCover = 20
)

// Cursor 文件中的追加位置
type Cursor struct {
	PageNo uint32
	Offset uint32
}

// FileHeader 0号页前64字节
type FileHeader struct {
	Magic     uint32
	Version   uint32
	PageCount uint32
	EOF       Cursor
	Checksum  uint64
}

// Serialize 写入buf的前 FILE_HEADER_SIZE 字节
func (h *FileHeader) Serialize(buf []byte) {
	region := buf[:0]
	region = util.WriteUB4(region, h.Magic)
	region = util.WriteUB4(region, h.Version)
	region = util.WriteUB4(region, h.PageCount)
	region = util.WriteUB4(region, h.EOF.PageNo)
	region = util.WriteUB4(region, h.EOF.Offset)
	h.Checksum = util.HashCode(region[:fileHeaderChecksumCover])
	region = util.WriteUB8(region, h.Checksum)
	util.WriteZero(region, common.FILE_HEADER_SIZE-len(region))
}

// Deserialize 解析文件头，全0的页面返回 fresh=true
func (h *FileHeader) Deserialize(buf []byte) (fresh bool, err error) {
	cursor := 0
	cursor, h.Magic = util.ReadUB4(buf, cursor)
	cursor, h.Version = util.ReadUB4(buf, cursor)
	cursor, h.PageCount = util.ReadUB4(buf, cursor)
	cursor, h.EOF.PageNo = util.ReadUB4(buf, cursor)
	cursor, h.EOF.Offset = util.ReadUB4(buf, cursor)
	_, h.Checksum = util.ReadUB8(buf, cursor)

	if h.Magic == 0 && h.Checksum == 0 {
		return true, nil
	}
	if h.Magic != FILE_HEADER_MAGIC {
		return false, errors.Wrapf(ErrPageCorrupted, "bad file magic %#x", h.Magic)
	}
	if h.Version != FILE_HEADER_VERSION {
		return false, errors.Wrapf(ErrPageCorrupted, "unsupported file version %d", h.Version)
	}
	if sum := util.HashCode(buf[:fileHeaderChecksumCover]); sum != h.Checksum {
		return false, errors.Wrapf(ErrPageCorrupted, "file header checksum %#x, expect %#x", h.Checksum, sum)
	}
	return false, nil
}

// File 缓冲池中打开的一个页面文件
type File struct {
	id          uint32
	name        string
	pool        *BufferPool
	store       basic.PageStore
	maxPages    uint32
	growthPages uint32
	refs        int

	mu          sync.Mutex
	header      FileHeader
	headerDirty bool
	closed      bool
}

func (f *File) ID() uint32 {
	return f.id
}

func (f *File) Name() string {
	return f.name
}

func (f *File) Path() string {
	return f.store.Path()
}

// HeaderPageNo 文件头所在页
func (f *File) HeaderPageNo() uint32 {
	return common.HEADER_PAGE_NO
}

func (f *File) PageCount() uint32 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.header.PageCount
}

func (f *File) MaxPages() uint32 {
	return f.maxPages
}

func (f *File) EOF() Cursor {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.header.EOF
}

func (f *File) SetEOF(c Cursor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.header.EOF != c {
		f.header.EOF = c
		f.headerDirty = true
	}
}

// CanAllocate 是否还能再分配n个新页
func (f *File) CanAllocate(n uint32) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return !f.closed && uint64(f.header.PageCount)+uint64(n) <= uint64(f.maxPages)
}

func (f *File) IsClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// NewPage 在文件末尾分配一个全0页面
func (f *File) NewPage() (uint32, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, NewError("NewPage", ErrFileClosed)
	}
	if f.header.PageCount >= f.maxPages {
		return 0, NewError("NewPage", ErrFileFull)
	}
	pageNo := f.header.PageCount
	if pageNo >= f.store.PageCount() {
		target := pageNo + f.growthPages
		if target > f.maxPages {
			target = f.maxPages
		}
		if err := f.store.Extend(target); err != nil {
			return 0, NewError("NewPage", jerrors.Trace(err))
		}
	}
	// 预分配区域里可能残留旧内容
	if err := f.store.WritePage(pageNo, make([]byte, common.UNIV_PAGE_SIZE)); err != nil {
		return 0, NewError("NewPage", jerrors.Trace(err))
	}
	f.header.PageCount++
	f.headerDirty = true
	return pageNo, nil
}

// WritebackFileHeader 把内存中的文件头写回0号页的缓冲帧
// 调用方不能持有0号页的会话
func (f *File) WritebackFileHeader() error {
	ws, err := f.pool.GetWriteSession(f, common.HEADER_PAGE_NO)
	if err != nil {
		return err
	}
	defer ws.Close()

	f.mu.Lock()
	f.header.Serialize(ws.Buf())
	f.headerDirty = false
	f.mu.Unlock()
	return ws.Flush()
}

func (f *File) isHeaderDirty() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.headerDirty
}

// loadHeader 读取文件头，新文件则初始化
func (f *File) loadHeader() error {
	if f.store.PageCount() == 0 {
		if err := f.store.Extend(1); err != nil {
			return jerrors.Trace(err)
		}
	}
	f.mu.Lock()
	f.header.PageCount = f.store.PageCount()
	f.mu.Unlock()

	rs, err := f.pool.GetReadSession(f, common.HEADER_PAGE_NO)
	if err != nil {
		return err
	}
	var h FileHeader
	fresh, err := h.Deserialize(rs.Buf())
	rs.Close()
	if err != nil {
		return NewError("loadHeader", err)
	}

	f.mu.Lock()
	if fresh {
		f.header = FileHeader{
			Magic:     FILE_HEADER_MAGIC,
			Version:   FILE_HEADER_VERSION,
			PageCount: 1,
		}
		f.mu.Unlock()
		return f.WritebackFileHeader()
	}
	if h.PageCount == 0 || h.PageCount > f.header.PageCount || h.PageCount > f.maxPages {
		f.mu.Unlock()
		return NewError("loadHeader", errors.Wrapf(ErrPageCorrupted,
			"page count %d, file has %d pages", h.PageCount, f.header.PageCount))
	}
	f.header = h
	f.mu.Unlock()
	return nil
}
