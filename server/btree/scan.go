package btree

import (
	"github.com/pkg/errors"
)

// Stats 树的形状和计数
type Stats struct {
	Height           int
	Nodes            int
	Records          uint32
	AvailableRecords uint32
	RootPage         uint32
	Splits           uint64
	RootGrowths      uint64
}

// errStopAscend 回调要求停止遍历
var errStopAscend = errors.New("stop ascend")

// Ascend 按键的顺序访问每条记录，fn返回false时停止
func (t *BTree) Ascend(fn func(info Information) bool) error {
	t.latch.RLock()
	defer t.latch.RUnlock()
	if err := t.usable(); err != nil {
		return err
	}
	err := t.ascend(t.entry.RootPage, 0, fn)
	if err == errStopAscend {
		return nil
	}
	return err
}

func (t *BTree) ascend(pageNo uint32, depth int, fn func(info Information) bool) error {
	if depth >= maxTraceDepth {
		return errors.Wrapf(ErrCorruptLayout, "tree deeper than %d levels", maxTraceDepth)
	}
	var children []Child
	err := t.doNode(pageNo, &Node{}, func(n *Node) error {
		children = append(children, n.Children[:n.Size]...)
		return nil
	})
	if err != nil {
		return err
	}
	for _, c := range children {
		switch ptr := c.Ptr.(type) {
		case InternalPointer:
			if err := t.ascend(uint32(ptr.PageNo), depth+1, fn); err != nil {
				return err
			}
		case LeafPointer:
			info, err := t.readInformation(ptr.Record)
			if err != nil {
				return err
			}
			if !fn(info) {
				return errStopAscend
			}
		}
	}
	return nil
}

// keyRange 子树允许的键范围 [lo, hi)，hi为nil表示没有上界
type keyRange struct {
	lo Key
	hi *Key
}

func (r keyRange) contains(k Key) bool {
	return !k.Less(r.lo) && (r.hi == nil || k.Less(*r.hi))
}

type verifier struct {
	t         *BTree
	leafDepth int
	records   uint32
	visited   map[uint32]bool
}

// Verify 检查整棵树：槽位严格递增、指针类型一致、叶子深度一致、
// 分隔键范围、叶子槽位的键与记录的键一致、记录数与计数器一致
func (t *BTree) Verify() error {
	t.latch.RLock()
	defer t.latch.RUnlock()
	if err := t.usable(); err != nil {
		return err
	}
	v := &verifier{t: t, leafDepth: -1, visited: make(map[uint32]bool)}
	if err := v.walk(t.entry.RootPage, 0, keyRange{lo: MinKey}); err != nil {
		return err
	}
	if v.records != t.entry.UsedRecord {
		return errors.Wrapf(ErrCorruptLayout, "tree holds %d records, counter says %d", v.records, t.entry.UsedRecord)
	}
	return nil
}

func (v *verifier) walk(pageNo uint32, depth int, r keyRange) error {
	if depth >= maxTraceDepth {
		return errors.Wrapf(ErrCorruptLayout, "tree deeper than %d levels", maxTraceDepth)
	}
	if v.visited[pageNo] {
		return errors.Wrapf(ErrCorruptLayout, "page %d referenced twice", pageNo)
	}
	v.visited[pageNo] = true

	var node Node
	if err := v.t.doNode(pageNo, &node, func(*Node) error { return nil }); err != nil {
		return err
	}
	if node.Size == 0 {
		if depth > 0 {
			return errors.Wrapf(ErrCorruptLayout, "empty non-root node page %d", pageNo)
		}
		v.leafDepth = 0
		return nil
	}
	for i := 1; i < node.Size; i++ {
		if !node.Children[i-1].Less.Less(node.Children[i].Less) {
			return errors.Wrapf(ErrCorruptLayout, "page %d slot %d out of order", pageNo, i)
		}
		if !r.contains(node.Children[i].Less) {
			return errors.Wrapf(ErrCorruptLayout, "page %d slot %d key %s outside its subtree range", pageNo, i, node.Children[i].Less)
		}
	}

	if node.IsLeaf() {
		if v.leafDepth >= 0 && v.leafDepth != depth {
			return errors.Wrapf(ErrCorruptLayout, "leaf page %d at depth %d, expect %d", pageNo, depth, v.leafDepth)
		}
		v.leafDepth = depth
		for i := 0; i < node.Size; i++ {
			c := node.Children[i]
			if !r.contains(c.Less) {
				return errors.Wrapf(ErrCorruptLayout, "page %d slot %d key %s outside its subtree range", pageNo, i, c.Less)
			}
			info, err := v.t.readInformation(c.Ptr.(LeafPointer).Record)
			if err != nil {
				return err
			}
			if info.Key != c.Less {
				return errors.Wrapf(ErrCorruptLayout, "page %d slot %d key %s, record key %s", pageNo, i, c.Less, info.Key)
			}
			v.records++
		}
		return nil
	}

	for i := 0; i < node.Size; i++ {
		child := keyRange{lo: r.lo, hi: r.hi}
		if i > 0 {
			child.lo = node.Children[i].Less
		}
		if i+1 < node.Size {
			hi := node.Children[i+1].Less
			child.hi = &hi
		}
		ptr := node.Children[i].Ptr.(InternalPointer)
		if err := v.walk(uint32(ptr.PageNo), depth+1, child); err != nil {
			return err
		}
	}
	return nil
}

// Stats 遍历所有节点统计树的形状
func (t *BTree) Stats() (Stats, error) {
	t.latch.RLock()
	defer t.latch.RUnlock()
	if err := t.usable(); err != nil {
		return Stats{}, err
	}
	st := Stats{
		Records:          t.entry.UsedRecord,
		AvailableRecords: t.entry.AvailableRecord,
		RootPage:         t.entry.RootPage,
		Splits:           t.splits,
		RootGrowths:      t.rootGrowths,
	}
	height, err := t.countNodes(t.entry.RootPage, 0, &st.Nodes)
	if err != nil {
		return Stats{}, err
	}
	st.Height = height
	return st, nil
}

// countNodes 返回子树高度
func (t *BTree) countNodes(pageNo uint32, depth int, nodes *int) (int, error) {
	if depth >= maxTraceDepth {
		return 0, errors.Wrapf(ErrCorruptLayout, "tree deeper than %d levels", maxTraceDepth)
	}
	*nodes++
	var children []uint32
	err := t.doNode(pageNo, &Node{}, func(n *Node) error {
		if n.IsLeaf() || n.Size == 0 {
			return nil
		}
		for i := 0; i < n.Size; i++ {
			children = append(children, uint32(n.Children[i].Ptr.(InternalPointer).PageNo))
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	height := 0
	for _, child := range children {
		h, err := t.countNodes(child, depth+1, nodes)
		if err != nil {
			return 0, err
		}
		if h > height {
			height = h
		}
	}
	return height + 1, nil
}
