package buffer_pool

import (
	"container/list"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	jerrors "github.com/juju/errors"
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/server/basic"
	"github.com/zhukovaskychina/xindex/server/common"
	"github.com/zhukovaskychina/xindex/server/storage/blocks"
	"github.com/zhukovaskychina/xindex/server/storage/mmap"
)

const (
	poolCreated int32 = iota
	poolRunning
	poolStopped
)

// 一次插入同时持有路径上的节点、分裂出的新页、数据页和0号页
const minCapacityPages = 16

// BufferPoolConfig 缓冲池配置
type BufferPoolConfig struct {
	// 缓冲帧个数
	CapacityPages uint32

	// LRU configuration
	YoungListPercent float64
	OldBlocksTime    time.Duration

	// 后台刷脏间隔，0表示不启动后台刷新
	FlushInterval time.Duration

	// 文件配置
	IOMode      string
	MaxPages    uint32
	GrowthPages uint32
	DataDir     string
}

func DefaultBufferPoolConfig() *BufferPoolConfig {
	return &BufferPoolConfig{
		CapacityPages:    1024,
		YoungListPercent: 0.625,
		OldBlocksTime:    time.Second,
		FlushInterval:    time.Second,
		IOMode:           common.IO_MODE_PREAD,
		MaxPages:         common.MAX_LOCATION_PAGES,
		GrowthPages:      16,
	}
}

// Validate 校验并补全默认值
func (c *BufferPoolConfig) Validate() error {
	if c.CapacityPages < minCapacityPages {
		return NewError("Validate", errors.Wrapf(ErrInvalidConfig, "capacity_pages %d < %d", c.CapacityPages, minCapacityPages))
	}
	if c.YoungListPercent <= 0 || c.YoungListPercent >= 1 {
		return NewError("Validate", errors.Wrapf(ErrInvalidConfig, "young_percent %v", c.YoungListPercent))
	}
	if c.MaxPages == 0 {
		c.MaxPages = common.MAX_LOCATION_PAGES
	}
	if c.MaxPages < 2 || c.MaxPages > common.MAX_LOCATION_PAGES {
		return NewError("Validate", errors.Wrapf(ErrInvalidConfig, "max_pages %d", c.MaxPages))
	}
	if c.GrowthPages == 0 {
		c.GrowthPages = 1
	}
	switch c.IOMode {
	case "":
		c.IOMode = common.IO_MODE_PREAD
	case common.IO_MODE_PREAD, common.IO_MODE_MMAP:
	default:
		return NewError("Validate", errors.Wrapf(ErrInvalidConfig, "io_mode %q", c.IOMode))
	}
	return nil
}

/*
BufferPool 页面缓存。

固定数量的缓冲帧，按 (文件, 页号) 哈希查找，淘汰策略为中点插入LRU。
被会话pin住的帧不会被淘汰；脏页在淘汰、刷新、关闭文件时写回。
后台调度协程按 FlushInterval 周期刷脏，Start/Stop 之间才能使用会话。
*/
type BufferPool struct {
	config *BufferPoolConfig
	state  int32

	mu         sync.Mutex
	pageHash   map[common.PageKey]*BufferPage
	lruCache   *LRUCacheImpl
	flushList  *list.List
	files      map[uint32]*File
	fileNames  map[string]*File
	nextFileID uint32

	// 同一时刻只有一个刷脏过程
	flushMu sync.Mutex

	stats  *BufferPoolStats
	stopCh chan struct{}
	wg     sync.WaitGroup
}

func NewBufferPool(config *BufferPoolConfig) (*BufferPool, error) {
	if config == nil {
		config = DefaultBufferPoolConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &BufferPool{
		config:    config,
		pageHash:  make(map[common.PageKey]*BufferPage, config.CapacityPages),
		lruCache:  NewLRUCacheImpl(config.YoungListPercent, config.OldBlocksTime),
		flushList: list.New(),
		files:     make(map[uint32]*File),
		fileNames: make(map[string]*File),
		stats:     NewBufferPoolStats(),
		stopCh:    make(chan struct{}),
	}, nil
}

func (bp *BufferPool) Config() *BufferPoolConfig {
	return bp.config
}

func (bp *BufferPool) IsRunning() bool {
	return atomic.LoadInt32(&bp.state) == poolRunning
}

// Start 启动后台刷脏协程
func (bp *BufferPool) Start() error {
	if !atomic.CompareAndSwapInt32(&bp.state, poolCreated, poolRunning) {
		if bp.IsRunning() {
			return nil
		}
		return NewError("Start", ErrPoolStopped)
	}
	if bp.config.FlushInterval > 0 {
		bp.wg.Add(1)
		go bp.flushLoop()
	}
	logger.Infof("buffer pool started, capacity %d pages, io mode %s", bp.config.CapacityPages, bp.config.IOMode)
	return nil
}

// Stop 停止调度协程，刷出所有脏页并关闭所有文件
func (bp *BufferPool) Stop() error {
	if !bp.IsRunning() {
		return nil
	}
	close(bp.stopCh)
	bp.wg.Wait()

	bp.mu.Lock()
	files := make([]*File, 0, len(bp.files))
	for _, f := range bp.files {
		files = append(files, f)
	}
	bp.mu.Unlock()

	var firstErr error
	for _, f := range files {
		if err := bp.closeFile(f); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	atomic.StoreInt32(&bp.state, poolStopped)
	logger.Infof("buffer pool stopped, hit ratio %.4f", bp.stats.GetHitRatio())
	return firstErr
}

func (bp *BufferPool) flushLoop() {
	defer bp.wg.Done()
	ticker := time.NewTicker(bp.config.FlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-bp.stopCh:
			return
		case <-ticker.C:
			if err := bp.flushDirty(false); err != nil {
				logger.Warnf("background flush failed: %v", err)
			}
		}
	}
}

// OpenFile 打开(或创建)一个页面文件，同名文件共享同一个 *File
func (bp *BufferPool) OpenFile(name string) (*File, error) {
	if !bp.IsRunning() {
		return nil, NewError("OpenFile", ErrPoolStopped)
	}
	path := name
	if bp.config.DataDir != "" && !filepath.IsAbs(name) {
		path = filepath.Join(bp.config.DataDir, name)
	}

	bp.mu.Lock()
	if f, ok := bp.fileNames[path]; ok {
		f.refs++
		bp.mu.Unlock()
		return f, nil
	}
	bp.mu.Unlock()

	store, err := bp.openStore(path)
	if err != nil {
		return nil, NewError("OpenFile", err)
	}

	bp.mu.Lock()
	bp.nextFileID++
	f := &File{
		id:          bp.nextFileID,
		name:        name,
		pool:        bp,
		store:       store,
		maxPages:    bp.config.MaxPages,
		growthPages: bp.config.GrowthPages,
		refs:        1,
	}
	bp.files[f.id] = f
	bp.fileNames[path] = f
	bp.mu.Unlock()

	if err := f.loadHeader(); err != nil {
		bp.purgeFilePages(f)
		bp.dropFile(f, path)
		store.Close()
		return nil, err
	}
	logger.Debugf("open file %s as #%d, %d pages", path, f.id, f.PageCount())
	return f, nil
}

func (bp *BufferPool) openStore(path string) (basic.PageStore, error) {
	if bp.config.IOMode == common.IO_MODE_MMAP {
		return mmap.OpenMMapFile(path, common.UNIV_PAGE_SIZE, 1)
	}
	return blocks.OpenBlockFile(path, common.UNIV_PAGE_SIZE)
}

// CloseFile 减少引用计数，归零时写回并关闭文件
func (bp *BufferPool) CloseFile(f *File) error {
	bp.mu.Lock()
	f.refs--
	last := f.refs <= 0
	bp.mu.Unlock()
	if !last {
		return nil
	}
	return bp.closeFile(f)
}

func (bp *BufferPool) closeFile(f *File) error {
	if f.IsClosed() {
		return nil
	}
	flushErr := bp.FlushFile(f)

	bp.purgeFilePages(f)
	bp.dropFile(f, "")

	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	if err := f.store.Close(); err != nil && flushErr == nil {
		flushErr = NewError("CloseFile", err)
	}
	return flushErr
}

// purgeFilePages 从哈希表和LRU中移除文件的所有帧
func (bp *BufferPool) purgeFilePages(f *File) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	for key, page := range bp.pageHash {
		if key.FileID() != f.id {
			continue
		}
		if page.pin > 0 {
			logger.Warnf("close file #%d with page %d still pinned", f.id, page.pageNo)
		}
		bp.removePageLocked(page)
		page.pageState = BUF_BLOCK_REMOVE_HASH
	}
}

func (bp *BufferPool) dropFile(f *File, path string) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	delete(bp.files, f.id)
	for name, other := range bp.fileNames {
		if other == f || name == path {
			delete(bp.fileNames, name)
		}
	}
}

func (bp *BufferPool) lookupFile(fileID uint32) *File {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	return bp.files[fileID]
}

// GetReadSession 以共享方式访问页面
func (bp *BufferPool) GetReadSession(f *File, pageNo uint32) (*ReadSession, error) {
	page, err := bp.fetch(f, pageNo)
	if err != nil {
		return nil, err
	}
	page.latch.RLock()
	return &ReadSession{pool: bp, page: page}, nil
}

// GetWriteSession 以排他方式访问页面
func (bp *BufferPool) GetWriteSession(f *File, pageNo uint32) (*WriteSession, error) {
	page, err := bp.fetch(f, pageNo)
	if err != nil {
		return nil, err
	}
	page.latch.Lock()
	buf := make([]byte, len(page.content))
	copy(buf, page.content)
	return &WriteSession{pool: bp, page: page, buf: buf}, nil
}

// fetch 找到或读入页面并pin住
func (bp *BufferPool) fetch(f *File, pageNo uint32) (*BufferPage, error) {
	if !bp.IsRunning() {
		return nil, NewError("fetch", ErrPoolStopped)
	}
	if f.IsClosed() {
		return nil, NewError("fetch", ErrFileClosed)
	}
	if count := f.PageCount(); pageNo >= count {
		return nil, NewError("fetch", errors.Wrapf(ErrPageOutOfRange, "page %d of %d", pageNo, count))
	}
	key := common.NewPageKey(f.id, pageNo)

	bp.mu.Lock()
	defer bp.mu.Unlock()
	if page, ok := bp.pageHash[key]; ok {
		page.pin++
		bp.lruCache.Touch(key)
		bp.stats.RecordPageRequest(true)
		return page, nil
	}
	bp.stats.RecordPageRequest(false)

	if uint32(len(bp.pageHash)) >= bp.config.CapacityPages {
		if err := bp.evictLocked(); err != nil {
			return nil, err
		}
	}

	page := NewBufferPage(f.id, pageNo)
	start := time.Now()
	if err := f.store.ReadPage(pageNo, page.content); err != nil {
		return nil, NewError("fetch", err)
	}
	bp.stats.RecordPageIO(true, time.Since(start))
	page.pageState = BUF_BLOCK_FILE_PAGE
	page.accessTime = start
	page.pin = 1
	bp.pageHash[key] = page
	bp.lruCache.Add(key, page)
	return page, nil
}

func (bp *BufferPool) release(page *BufferPage) {
	bp.mu.Lock()
	page.pin--
	bp.mu.Unlock()
}

// evictLocked 淘汰一个未被pin的帧，脏页先写回
func (bp *BufferPool) evictLocked() error {
	victim := bp.lruCache.Victim(func(page *BufferPage) bool {
		return page.pin == 0
	})
	if victim == nil {
		return NewError("evict", ErrBufferPoolFull)
	}
	if victim.IsDirty() {
		f := bp.files[victim.fileID]
		if f == nil {
			return NewError("evict", jerrors.Errorf("page %s belongs to no open file", victim.Key()))
		}
		start := time.Now()
		if err := f.store.WritePage(victim.pageNo, victim.content); err != nil {
			return NewError("evict", err)
		}
		bp.stats.RecordPageIO(false, time.Since(start))
		victim.ClearDirty()
	}
	bp.removePageLocked(victim)
	victim.pageState = BUF_BLOCK_NOT_USED
	bp.stats.RecordEviction()
	return nil
}

func (bp *BufferPool) removePageLocked(page *BufferPage) {
	key := page.Key()
	delete(bp.pageHash, key)
	bp.lruCache.Remove(key)
	if page.flushElem != nil {
		bp.flushList.Remove(page.flushElem)
		page.flushElem = nil
	}
}

func (bp *BufferPool) addToFlushList(page *BufferPage) {
	bp.mu.Lock()
	defer bp.mu.Unlock()
	if page.flushElem == nil && page.pageState == BUF_BLOCK_FILE_PAGE {
		page.flushElem = bp.flushList.PushBack(page)
	}
}

// FlushFile 写回文件头和该文件所有脏页，然后fsync
func (bp *BufferPool) FlushFile(f *File) error {
	if f.isHeaderDirty() {
		if err := f.WritebackFileHeader(); err != nil {
			return err
		}
	}
	if err := bp.flushPages(func(page *BufferPage) bool { return page.fileID == f.id }, true); err != nil {
		return err
	}
	if err := f.store.Sync(); err != nil {
		return NewError("FlushFile", err)
	}
	return nil
}

// FlushDirtyPages 写回所有文件的脏页
func (bp *BufferPool) FlushDirtyPages() error {
	return bp.flushDirty(true)
}

// flushDirty wait为false时跳过正被会话持有的页面，留给下一轮
func (bp *BufferPool) flushDirty(wait bool) error {
	bp.mu.Lock()
	files := make([]*File, 0, len(bp.files))
	for _, f := range bp.files {
		files = append(files, f)
	}
	bp.mu.Unlock()

	for _, f := range files {
		if f.isHeaderDirty() {
			if err := f.WritebackFileHeader(); err != nil {
				return err
			}
		}
	}
	return bp.flushPages(func(*BufferPage) bool { return true }, wait)
}

// flushPages 逐页pin、写回、unpin，任一时刻刷脏只占用一个帧
func (bp *BufferPool) flushPages(match func(*BufferPage) bool, wait bool) error {
	bp.flushMu.Lock()
	defer bp.flushMu.Unlock()

	bp.mu.Lock()
	var pages []*BufferPage
	for e := bp.flushList.Front(); e != nil; e = e.Next() {
		page := e.Value.(*BufferPage)
		if match(page) {
			pages = append(pages, page)
		}
	}
	bp.mu.Unlock()

	var firstErr error
	for _, page := range pages {
		bp.mu.Lock()
		if page.flushElem == nil {
			// 已被淘汰(淘汰时已写回)或已刷干净
			bp.mu.Unlock()
			continue
		}
		page.pin++
		bp.mu.Unlock()

		written, err := bp.writePage(page, wait)
		if written || err != nil {
			bp.stats.RecordFlush(err == nil)
		}
		if err != nil && firstErr == nil {
			firstErr = NewError("flush", err)
		}

		bp.mu.Lock()
		page.pin--
		if page.flushElem != nil && !page.IsDirty() {
			bp.flushList.Remove(page.flushElem)
			page.flushElem = nil
		}
		bp.mu.Unlock()
	}
	return firstErr
}

// writePage 在共享闩下复制页面内容并写回，wait为false且闩被占用时返回false
func (bp *BufferPool) writePage(page *BufferPage, wait bool) (bool, error) {
	if wait {
		page.latch.RLock()
	} else if !page.latch.TryRLock() {
		return false, nil
	}
	if !page.IsDirty() {
		page.latch.RUnlock()
		return false, nil
	}
	content := make([]byte, len(page.content))
	copy(content, page.content)
	page.ClearDirty()
	page.latch.RUnlock()

	f := bp.lookupFile(page.fileID)
	if f == nil {
		page.MarkDirty()
		return false, jerrors.Errorf("page %s belongs to no open file", page.Key())
	}
	start := time.Now()
	if err := f.store.WritePage(page.pageNo, content); err != nil {
		page.MarkDirty()
		return false, err
	}
	bp.stats.RecordPageIO(false, time.Since(start))
	return true, nil
}

// GetStats 返回统计快照
func (bp *BufferPool) GetStats() BufferPoolStats {
	bp.mu.Lock()
	bp.stats.UpdatePageCounts(
		int64(len(bp.pageHash)),
		int64(bp.flushList.Len()),
		int64(bp.lruCache.OldLen()),
		int64(bp.lruCache.YoungLen()),
	)
	bp.mu.Unlock()
	return bp.stats.Snapshot()
}
