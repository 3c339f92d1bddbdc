package btree

import (
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/server/common"
	"github.com/zhukovaskychina/xindex/util"
)

const (
	MinChild     = 255
	NodeCapacity = MinChild * 2

	slotLength = 16
	// NodeLength size(4) + 510个槽
	NodeLength = 4 + NodeCapacity*slotLength
)

// Child 节点中的一个槽位
type Child struct {
	Less Key
	Ptr  ChildPointer
}

func (c Child) IsLeaf() bool {
	_, ok := c.Ptr.(LeafPointer)
	return ok
}

// Node 定长的有序槽位数组，内部节点和叶子节点结构相同。
// 只在一次访问中使用，每次都从页面重新读出。
type Node struct {
	Size     int
	Children [NodeCapacity]Child
}

// FindIndex 返回满足 Children[i].Less <= key 的最大i，Size为0时无意义
func (n *Node) FindIndex(key Key) int {
	sb, se := 0, n.Size-1
	for sb < se {
		sm := (sb+se)/2 + 1
		if key.Less(n.Children[sm].Less) {
			se = sm - 1
		} else {
			sb = sm
		}
	}
	return sb
}

// IsLeaf 节点的槽位是否都指向记录
func (n *Node) IsLeaf() bool {
	return n.Size > 0 && n.Children[0].IsLeaf()
}

// InsertAndSplit 插入并保持有序。节点已满时把上半部分移到split，
// 再把新槽位插入所属的一半，返回true。
func (n *Node) InsertAndSplit(key Key, ptr ChildPointer, split *Node) bool {
	if n.Size < NodeCapacity {
		n.insert(key, ptr)
		return false
	}
	n.Size = MinChild
	split.Size = MinChild
	copy(split.Children[:MinChild], n.Children[MinChild:])
	if key.Less(split.Children[0].Less) {
		n.insert(key, ptr)
	} else {
		split.insert(key, ptr)
	}
	return true
}

func (n *Node) insert(key Key, ptr ChildPointer) {
	i := n.Size
	for ; i > 0; i-- {
		if !key.Less(n.Children[i-1].Less) {
			break
		}
		n.Children[i] = n.Children[i-1]
	}
	n.Children[i] = Child{Less: key, Ptr: ptr}
	n.Size++
}

// ReadFromBuf 解码并校验节点页
func (n *Node) ReadFromBuf(buf []byte) error {
	if len(buf) < NodeLength {
		return errors.Wrapf(ErrCorruptLayout, "node needs %d bytes, got %d", NodeLength, len(buf))
	}
	cursor, size := util.ReadInt4(buf, 0)
	if size < 0 || size > NodeCapacity {
		return errors.Wrapf(ErrCorruptLayout, "node size %d out of [0,%d]", size, NodeCapacity)
	}
	n.Size = int(size)
	for i := 0; i < n.Size; i++ {
		var loc Location
		c := &n.Children[i]
		cursor, c.Less.Hash1 = util.ReadInt4(buf, cursor)
		cursor, c.Less.Hash2 = util.ReadInt4(buf, cursor)
		cursor, c.Less.Hash3 = util.ReadInt4(buf, cursor)
		cursor, loc.Page = util.ReadUB2(buf, cursor)
		cursor, loc.Offset = util.ReadUB2(buf, cursor)

		switch ptr := pointerFromLocation(loc).(type) {
		case InternalPointer:
			if ptr.PageNo == common.HEADER_PAGE_NO {
				return errors.Wrapf(ErrCorruptLayout, "slot %d points to the header page", i)
			}
			c.Ptr = ptr
		case LeafPointer:
			if int(loc.Offset)+InformationLength > common.UNIV_PAGE_SIZE {
				return errors.Wrapf(ErrCorruptLayout, "slot %d record offset %d out of page", i, loc.Offset)
			}
			c.Ptr = ptr
		}
		if i > 0 && c.IsLeaf() != n.Children[0].IsLeaf() {
			return errors.Wrapf(ErrCorruptLayout, "slot %d mixes leaf and internal pointers", i)
		}
	}
	return nil
}

// WriteToBuf 写入节点，未使用的槽位清零
func (n *Node) WriteToBuf(buf []byte) {
	region := util.WriteInt4(buf[:0], int32(n.Size))
	for i := 0; i < n.Size; i++ {
		c := n.Children[i]
		loc := c.Ptr.location()
		region = util.WriteInt4(region, c.Less.Hash1)
		region = util.WriteInt4(region, c.Less.Hash2)
		region = util.WriteInt4(region, c.Less.Hash3)
		region = util.WriteUB2(region, loc.Page)
		region = util.WriteUB2(region, loc.Offset)
	}
	util.WriteZero(region, NodeLength-len(region))
}
