package buffer_pool

import (
	"container/list"
	"sync"
	"time"

	"github.com/zhukovaskychina/xindex/server/common"
	"github.com/zhukovaskychina/xindex/server/latch"
)

/*
BufferPage 缓冲帧，保存一个文件页的内容和控制信息。

content 由 latch 保护：读会话持有共享闩，写会话持有排他闩。
pin/pageState/flushElem 以及在LRU中的位置由 BufferPool.mu 保护。
*/
type BufferPage struct {
	fileID    uint32
	pageNo    uint32
	pageState BufferPageState

	accessTime time.Time

	content []byte
	latch   *latch.Latch

	pin       int32
	flushElem *list.Element

	mu    sync.RWMutex
	dirty bool
}

func NewBufferPage(fileID uint32, pageNo uint32) *BufferPage {
	return &BufferPage{
		fileID:    fileID,
		pageNo:    pageNo,
		pageState: BUF_BLOCK_READY_FOR_USE,
		content:   make([]byte, common.UNIV_PAGE_SIZE),
		latch:     latch.NewLatch(),
	}
}

func (bp *BufferPage) Key() common.PageKey {
	return common.NewPageKey(bp.fileID, bp.pageNo)
}

func (bp *BufferPage) GetFileID() uint32 {
	return bp.fileID
}

func (bp *BufferPage) GetPageNo() uint32 {
	return bp.pageNo
}

func (bp *BufferPage) GetState() BufferPageState {
	return bp.pageState
}

// IsDirty 检查是否为脏页
func (bp *BufferPage) IsDirty() bool {
	bp.mu.RLock()
	defer bp.mu.RUnlock()
	return bp.dirty
}

// MarkDirty 标记为脏页
func (bp *BufferPage) MarkDirty() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.dirty = true
}

// ClearDirty 清除脏页标记
func (bp *BufferPage) ClearDirty() {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	bp.dirty = false
}
