package btree

import (
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/server/buffer_pool"
	"github.com/zhukovaskychina/xindex/server/common"
	"github.com/zhukovaskychina/xindex/server/latch"
)

// 最深的下降层数，超过说明节点指针成环
const maxTraceDepth = 16

// BTree 磁盘上的有序索引，把键的指纹映射到记录位置。
//
// 节点和记录都通过缓冲池的会话读写。Find/Ascend/Verify/Stats 持有树的共享闩，
// Set/Remove/Sync/Close 持有排他闩，同一棵树任一时刻只有一个修改者。
type BTree struct {
	latch *latch.Latch

	pool *buffer_pool.BufferPool
	file *buffer_pool.File
	name string

	// 0号页入口区域的内存副本，打开时读一次
	entry entryRegion

	splits      uint64
	rootGrowths uint64

	broken bool
	closed bool
}

// traceEntry 下降路径上的一个节点
type traceEntry struct {
	pageNo uint32
	size   int
}

// Open 打开索引文件，没有初始化标记时初始化
func Open(pool *buffer_pool.BufferPool, name string) (*BTree, error) {
	file, err := pool.OpenFile(name)
	if err != nil {
		return nil, err
	}
	t := &BTree{
		latch: latch.NewLatch(),
		pool:  pool,
		file:  file,
		name:  name,
	}
	if err := t.load(); err != nil {
		pool.CloseFile(file)
		return nil, err
	}
	return t, nil
}

func (t *BTree) Name() string {
	return t.name
}

func (t *BTree) load() error {
	rs, err := t.pool.GetReadSession(t.file, t.file.HeaderPageNo())
	if err != nil {
		return err
	}
	var entry entryRegion
	entry.readFrom(rs.Buf())
	rs.Close()

	switch entry.Magic {
	case BTREE_MAGIC:
		if entry.RootPage == common.HEADER_PAGE_NO || entry.RootPage >= t.file.PageCount() {
			return errors.Wrapf(ErrCorruptLayout, "root page %d of %d pages", entry.RootPage, t.file.PageCount())
		}
		t.entry = entry
		logger.Debugf("open index %s, root page %d, %d records", t.name, entry.RootPage, entry.UsedRecord)
		return nil
	case 0:
		return t.initBTree()
	default:
		return errors.Wrapf(ErrCorruptLayout, "bad index magic %#x", entry.Magic)
	}
}

// initBTree 分配根页和第一个数据页
func (t *BTree) initBTree() error {
	ws, err := t.pool.GetWriteSession(t.file, t.file.HeaderPageNo())
	if err != nil {
		return err
	}
	rootPage, err := t.allocPage()
	if err != nil {
		ws.Close()
		return err
	}
	dataPage, err := t.allocPage()
	if err != nil {
		ws.Close()
		return err
	}
	t.file.SetEOF(buffer_pool.Cursor{PageNo: dataPage, Offset: 0})

	entry := entryRegion{
		Magic:           BTREE_MAGIC,
		RootPage:        rootPage,
		UsedRecord:      0,
		AvailableRecord: RecordsPerPage,
	}
	entry.writeTo(ws.Buf())
	err = ws.Flush()
	ws.Close()
	if err != nil {
		return err
	}
	t.entry = entry
	if err := t.pool.FlushFile(t.file); err != nil {
		return err
	}
	logger.Infof("init index %s, root page %d, data page %d", t.name, rootPage, dataPage)
	return nil
}

func (t *BTree) usable() error {
	if t.closed {
		return ErrTreeClosed
	}
	if t.broken {
		return ErrTreeBroken
	}
	return nil
}

// doNode 读出页面上的节点交给do，do返回后节点不再有效
func (t *BTree) doNode(pageNo uint32, node *Node, do func(n *Node) error) error {
	rs, err := t.pool.GetReadSession(t.file, pageNo)
	if err != nil {
		return err
	}
	err = node.ReadFromBuf(rs.Buf())
	rs.Close()
	if err != nil {
		return errors.Wrapf(err, "node page %d", pageNo)
	}
	return do(node)
}

func (t *BTree) readInformation(loc Location) (Information, error) {
	var info Information
	rs, err := t.pool.GetReadSession(t.file, uint32(loc.Page))
	if err != nil {
		return info, err
	}
	defer rs.Close()
	if err := info.ReadFromBuf(rs.Buf()[loc.Offset:]); err != nil {
		return info, errors.Wrapf(err, "record %s", loc)
	}
	return info, nil
}

// trace 从根开始下降。record为true时记录经过的每个页面和它的槽位数。
// 到达叶子槽位时比较键，相等即找到。
func (t *BTree) trace(key Key, record bool) (path []traceEntry, loc Location, found bool, err error) {
	var node Node
	pageNo := t.entry.RootPage
	for depth := 0; ; depth++ {
		if depth >= maxTraceDepth {
			return nil, loc, false, errors.Wrapf(ErrCorruptLayout, "descent deeper than %d levels", maxTraceDepth)
		}
		var next uint32
		err = t.doNode(pageNo, &node, func(n *Node) error {
			if record {
				path = append(path, traceEntry{pageNo: pageNo, size: n.Size})
			}
			if n.Size == 0 {
				if depth > 0 {
					return errors.Wrapf(ErrCorruptLayout, "empty non-root node page %d", pageNo)
				}
				return nil
			}
			idx := n.FindIndex(key)
			switch ptr := n.Children[idx].Ptr.(type) {
			case LeafPointer:
				found = n.Children[idx].Less == key
				loc = ptr.Record
			case InternalPointer:
				next = uint32(ptr.PageNo)
			}
			return nil
		})
		if err != nil {
			return nil, loc, false, err
		}
		if next == 0 {
			return path, loc, found, nil
		}
		pageNo = next
	}
}

// Find 查找键对应的值
func (t *BTree) Find(key Key) (Value, bool, error) {
	t.latch.RLock()
	defer t.latch.RUnlock()
	if err := t.usable(); err != nil {
		return Value{}, false, err
	}
	_, loc, found, err := t.trace(key, false)
	if err != nil || !found {
		return Value{}, false, err
	}
	info, err := t.readInformation(loc)
	if err != nil {
		return Value{}, false, err
	}
	return info.Value, true, nil
}

// Set 键存在时原地覆盖值；不存在且force为true时追加记录并插入树。
// force为false时只更新已存在的键。
func (t *BTree) Set(key Key, value Value, force bool) (bool, error) {
	t.latch.Lock()
	defer t.latch.Unlock()
	if err := t.usable(); err != nil {
		return false, err
	}
	path, loc, found, err := t.trace(key, true)
	if err != nil {
		return false, err
	}
	if found {
		return true, t.overwrite(loc, Information{Key: key, Value: value})
	}
	if !force {
		return false, nil
	}
	if err := t.reserve(path); err != nil {
		return false, err
	}
	grew, err := t.insert(Information{Key: key, Value: value}, path)
	if err != nil {
		return false, err
	}
	if grew {
		// 根变化后立即落盘
		if err := t.pool.FlushFile(t.file); err != nil {
			return true, err
		}
	}
	return true, nil
}

func (t *BTree) overwrite(loc Location, info Information) error {
	ws, err := t.pool.GetWriteSession(t.file, uint32(loc.Page))
	if err != nil {
		return err
	}
	defer ws.Close()
	if err := info.WriteToBuf(ws.Buf()[loc.Offset:]); err != nil {
		return err
	}
	return ws.Flush()
}

// Remove 键不存在时返回false；删除已存在的键不支持，返回 ErrUnsupported，不做任何修改
func (t *BTree) Remove(key Key) (bool, error) {
	t.latch.Lock()
	defer t.latch.Unlock()
	if err := t.usable(); err != nil {
		return false, err
	}
	_, _, found, err := t.trace(key, false)
	if err != nil || !found {
		return false, err
	}
	return false, errors.Wrapf(ErrUnsupported, "remove %s", key)
}

// Sync 写回文件头和所有脏页
func (t *BTree) Sync() error {
	t.latch.Lock()
	defer t.latch.Unlock()
	if t.closed {
		return ErrTreeClosed
	}
	return t.pool.FlushFile(t.file)
}

func (t *BTree) Close() error {
	t.latch.Lock()
	defer t.latch.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true
	return t.pool.CloseFile(t.file)
}
