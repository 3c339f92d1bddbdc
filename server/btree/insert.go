package btree

import (
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/server/buffer_pool"
	"github.com/zhukovaskychina/xindex/server/common"
)

// mutation 一次插入期间持有的写会话。
// 所有会话在commit时一起Flush；中途失败时只Close，修改全部丢弃。
type mutation struct {
	t        *BTree
	sessions []*buffer_pool.WriteSession
	splits   uint64
}

func (m *mutation) open(pageNo uint32) (*buffer_pool.WriteSession, error) {
	ws, err := m.t.pool.GetWriteSession(m.t.file, pageNo)
	if err != nil {
		return nil, err
	}
	m.sessions = append(m.sessions, ws)
	return ws, nil
}

// commit 先确认所有会话都还持有闩，再逐个Flush。
// 检查通过后Flush不会失败，所以发布要么全部完成要么一个都不做。
func (m *mutation) commit() error {
	for _, ws := range m.sessions {
		if ws.IsClosed() {
			return errors.Errorf("session on page %d closed before commit", ws.PageNo())
		}
	}
	for _, ws := range m.sessions {
		if err := ws.Flush(); err != nil {
			return err
		}
	}
	return nil
}

func (m *mutation) published() bool {
	for _, ws := range m.sessions {
		if ws.Flushed() {
			return true
		}
	}
	return false
}

func (m *mutation) release() {
	for i := len(m.sessions) - 1; i >= 0; i-- {
		m.sessions[i].Close()
	}
	m.sessions = nil
}

// pagesNeeded 插入需要新分配的页数：
// 从路径底部往上连续满的节点各分裂一次，整条路径都满时根还要增长，
// 当前数据页放不下时再加一个数据页
func pagesNeeded(path []traceEntry, eof buffer_pool.Cursor) uint32 {
	var pages uint32
	full := 0
	for i := len(path) - 1; i >= 0 && path[i].size >= NodeCapacity; i-- {
		full++
	}
	pages += uint32(full)
	if full == len(path) {
		pages++
	}
	if int(eof.Offset)+InformationLength > common.UNIV_PAGE_SIZE {
		pages++
	}
	return pages
}

// reserve 修改之前确认文件能提供所有需要的页面
func (t *BTree) reserve(path []traceEntry) error {
	need := pagesNeeded(path, t.file.EOF())
	if need > 0 && !t.file.CanAllocate(need) {
		return errors.Wrapf(ErrAllocationFailure, "need %d pages, file has %d of %d",
			need, t.file.PageCount(), t.file.MaxPages())
	}
	return nil
}

func (t *BTree) allocPage() (uint32, error) {
	pageNo, err := t.file.NewPage()
	if err != nil {
		return 0, errors.Wrapf(ErrAllocationFailure, "%v", err)
	}
	if pageNo >= common.MAX_LOCATION_PAGES {
		return 0, errors.Wrapf(ErrAllocationFailure, "page %d is not addressable", pageNo)
	}
	return pageNo, nil
}

// insert 追加记录，沿路径自底向上插入，最后写入口区域。返回根是否增长。
func (t *BTree) insert(info Information, path []traceEntry) (grew bool, err error) {
	m := &mutation{t: t}
	defer m.release()

	entry := t.entry
	eof := t.file.EOF()
	if int(eof.Offset)+InformationLength > common.UNIV_PAGE_SIZE {
		pageNo, err := t.allocPage()
		if err != nil {
			return false, err
		}
		eof = buffer_pool.Cursor{PageNo: pageNo, Offset: 0}
	}
	ws, err := m.open(eof.PageNo)
	if err != nil {
		return false, err
	}
	if err := info.WriteToBuf(ws.Buf()[eof.Offset:]); err != nil {
		return false, err
	}
	record := Location{Page: uint16(eof.PageNo), Offset: uint16(eof.Offset)}
	eof.Offset += InformationLength
	entry.UsedRecord++
	entry.AvailableRecord = (common.UNIV_PAGE_SIZE - eof.Offset) / InformationLength

	grew, err = t.insertCore(m, &entry, info.Key, LeafPointer{Record: record}, path)
	if err != nil {
		return false, err
	}

	ws, err = m.open(t.file.HeaderPageNo())
	if err != nil {
		return false, err
	}
	entry.writeTo(ws.Buf())

	if err := m.commit(); err != nil {
		// 只有部分页面已经发布时树才不可用
		if m.published() {
			t.broken = true
			logger.Errorf("index %s: commit failed, tree unusable: %v", t.name, err)
			return false, errors.Wrapf(ErrTreeBroken, "%v", err)
		}
		return false, err
	}
	t.entry = entry
	t.file.SetEOF(eof)
	t.splits += m.splits
	if grew {
		t.rootGrowths++
		logger.Infof("index %s: root grew to page %d", t.name, entry.RootPage)
	}
	return grew, nil
}

// insertCore 从路径最深处往上逐层插入，包括根。
// 某层没有分裂就结束；路径走完仍有分裂时生成新根：
// 槽位0为 (MinKey, 旧根)，槽位1为最后一次分裂提上来的键。
func (t *BTree) insertCore(m *mutation, entry *entryRegion, key Key, ptr ChildPointer, path []traceEntry) (bool, error) {
	var current, split Node
	for sp := len(path) - 1; sp >= 0; sp-- {
		ws, err := m.open(path[sp].pageNo)
		if err != nil {
			return false, err
		}
		if err := current.ReadFromBuf(ws.Buf()); err != nil {
			return false, errors.Wrapf(err, "node page %d", path[sp].pageNo)
		}
		didSplit := current.InsertAndSplit(key, ptr, &split)
		current.WriteToBuf(ws.Buf())
		if !didSplit {
			return false, nil
		}

		pageNo, err := t.allocPage()
		if err != nil {
			return false, err
		}
		ws, err = m.open(pageNo)
		if err != nil {
			return false, err
		}
		split.WriteToBuf(ws.Buf())
		m.splits++
		logger.Debugf("index %s: split page %d into %d", t.name, path[sp].pageNo, pageNo)

		ptr = InternalPointer{PageNo: uint16(pageNo)}
		key = split.Children[0].Less
	}

	current.Size = 2
	current.Children[0] = Child{Less: MinKey, Ptr: InternalPointer{PageNo: uint16(path[0].pageNo)}}
	current.Children[1] = Child{Less: key, Ptr: ptr}
	pageNo, err := t.allocPage()
	if err != nil {
		return false, err
	}
	ws, err := m.open(pageNo)
	if err != nil {
		return false, err
	}
	current.WriteToBuf(ws.Buf())
	entry.RootPage = pageNo
	return true, nil
}
