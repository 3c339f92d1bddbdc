package btree

import (
	"testing"

	"github.com/smartystreets/assertions"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xindex/server/common"
	"github.com/zhukovaskychina/xindex/util"
)

func leaf(page, offset uint16) ChildPointer {
	return LeafPointer{Record: Location{Page: page, Offset: offset}}
}

func TestNodeInsertKeepsOrder(t *testing.T) {
	var n, split Node
	for _, v := range []int32{50, 10, 30, 20, 40} {
		assert.False(t, n.InsertAndSplit(KeyFromInt(v), leaf(2, uint16(v)), &split))
	}
	require.Equal(t, 5, n.Size)
	for i, v := range []int32{10, 20, 30, 40, 50} {
		assert.Equal(t, KeyFromInt(v), n.Children[i].Less)
	}
}

func TestNodeFindIndexIsFloor(t *testing.T) {
	var n, split Node
	for _, v := range []int32{10, 20, 30} {
		n.InsertAndSplit(KeyFromInt(v), leaf(2, 0), &split)
	}
	assert.Equal(t, 0, n.FindIndex(KeyFromInt(5)))
	assert.Equal(t, 0, n.FindIndex(KeyFromInt(10)))
	assert.Equal(t, 0, n.FindIndex(KeyFromInt(19)))
	assert.Equal(t, 1, n.FindIndex(KeyFromInt(20)))
	assert.Equal(t, 2, n.FindIndex(KeyFromInt(30)))
	assert.Equal(t, 2, n.FindIndex(KeyFromInt(1000)))
}

func fullNode() *Node {
	n := &Node{}
	var split Node
	for i := 0; i < NodeCapacity; i++ {
		n.InsertAndSplit(KeyFromInt(int32(i*2)), leaf(2, uint16(i)), &split)
	}
	return n
}

func TestNodeSplitRoutesToLowerHalf(t *testing.T) {
	n := fullNode()
	var split Node
	assert.True(t, n.InsertAndSplit(KeyFromInt(3), leaf(3, 0), &split))
	assert.Equal(t, MinChild+1, n.Size)
	assert.Equal(t, MinChild, split.Size)
	assert.Equal(t, KeyFromInt(3), n.Children[2].Less)
	assert.Equal(t, KeyFromInt(MinChild*2), split.Children[0].Less)
}

func TestNodeSplitRoutesToUpperHalf(t *testing.T) {
	n := fullNode()
	var split Node
	assert.True(t, n.InsertAndSplit(KeyFromInt(10001), leaf(3, 0), &split))
	assert.Equal(t, MinChild, n.Size)
	assert.Equal(t, MinChild+1, split.Size)
	assert.Equal(t, KeyFromInt(10001), split.Children[split.Size-1].Less)
	assert.True(t, n.Children[n.Size-1].Less.Less(split.Children[0].Less))
}

func TestNodeRoundTrip(t *testing.T) {
	var n, split Node
	n.InsertAndSplit(MinKey, InternalPointer{PageNo: 7}, &split)
	n.InsertAndSplit(KeyFromString("m"), InternalPointer{PageNo: 9}, &split)

	buf := make([]byte, common.UNIV_PAGE_SIZE)
	for i := range buf {
		buf[i] = 0xee
	}
	n.WriteToBuf(buf)

	var got Node
	require.NoError(t, got.ReadFromBuf(buf))
	assert.Equal(t, 2, got.Size)
	assert.Equal(t, InternalPointer{PageNo: 9}, got.Children[1].Ptr)
	assert.False(t, got.IsLeaf())

	// 未使用的槽位被清零，节点区域之外不动
	assert.Equal(t, "", assertions.ShouldResemble(buf[4+2*slotLength:NodeLength], make([]byte, NodeLength-4-2*slotLength)))
	assert.Equal(t, byte(0xee), buf[NodeLength])

	// 内部指针在磁盘上是 page=0, offset=子页号
	_, page := util.ReadUB2(buf, 4+slotLength+12)
	_, child := util.ReadUB2(buf, 4+slotLength+14)
	assert.Equal(t, uint16(0), page)
	assert.Equal(t, uint16(9), child)
}

func TestNodeDecodeRejectsCorruptLayout(t *testing.T) {
	buf := make([]byte, common.UNIV_PAGE_SIZE)
	var n Node

	util.WriteInt4(buf[:0], NodeCapacity+1)
	assert.ErrorIs(t, n.ReadFromBuf(buf), ErrCorruptLayout)

	util.WriteInt4(buf[:0], -1)
	assert.ErrorIs(t, n.ReadFromBuf(buf), ErrCorruptLayout)

	// 记录偏移越过页尾
	var good, split Node
	good.InsertAndSplit(KeyFromInt(1), leaf(2, common.UNIV_PAGE_SIZE-8), &split)
	good.WriteToBuf(buf)
	assert.ErrorIs(t, n.ReadFromBuf(buf), ErrCorruptLayout)

	// 内部指针指向0号页
	good = Node{}
	good.InsertAndSplit(KeyFromInt(1), InternalPointer{PageNo: 0}, &split)
	good.WriteToBuf(buf)
	assert.ErrorIs(t, n.ReadFromBuf(buf), ErrCorruptLayout)

	// 叶子和内部指针混在一起
	good = Node{}
	good.InsertAndSplit(KeyFromInt(1), InternalPointer{PageNo: 4}, &split)
	good.InsertAndSplit(KeyFromInt(2), leaf(2, 0), &split)
	good.WriteToBuf(buf)
	assert.ErrorIs(t, n.ReadFromBuf(buf), ErrCorruptLayout)

	assert.ErrorIs(t, n.ReadFromBuf(buf[:100]), ErrCorruptLayout)
}

func TestInformationLayout(t *testing.T) {
	info := Information{Key: NewKey(1, -1, 0x01020304), Value: Location{Page: 0x0a0b, Offset: 0x0c0d}}
	buf := make([]byte, InformationLength)
	require.NoError(t, info.WriteToBuf(buf))

	expect := []byte{
		1, 0, 0, 0,
		0xff, 0xff, 0xff, 0xff,
		4, 3, 2, 1,
		0x0b, 0x0a,
		0x0d, 0x0c,
	}
	assert.Equal(t, "", assertions.ShouldResemble(buf, expect))

	var got Information
	require.NoError(t, got.ReadFromBuf(buf))
	assert.Equal(t, info, got)

	assert.ErrorIs(t, got.ReadFromBuf(buf[:10]), ErrCorruptLayout)
	assert.ErrorIs(t, info.WriteToBuf(make([]byte, 3)), ErrCorruptLayout)
}

func TestPagesNeeded(t *testing.T) {
	path := []traceEntry{{pageNo: 1, size: 3}}
	assert.Equal(t, uint32(0), pagesNeeded(path, eofAt(2, 0)))
	assert.Equal(t, uint32(1), pagesNeeded(path, eofAt(2, common.UNIV_PAGE_SIZE)))

	path = []traceEntry{{pageNo: 1, size: NodeCapacity}}
	assert.Equal(t, uint32(2), pagesNeeded(path, eofAt(2, 0)))

	path = []traceEntry{{pageNo: 5, size: 10}, {pageNo: 6, size: NodeCapacity}, {pageNo: 7, size: NodeCapacity}}
	assert.Equal(t, uint32(2), pagesNeeded(path, eofAt(2, 0)))

	path = []traceEntry{{pageNo: 5, size: NodeCapacity}, {pageNo: 6, size: 10}, {pageNo: 7, size: NodeCapacity}}
	assert.Equal(t, uint32(1), pagesNeeded(path, eofAt(2, 0)))

	path = []traceEntry{{pageNo: 5, size: NodeCapacity}, {pageNo: 7, size: NodeCapacity}}
	assert.Equal(t, uint32(4), pagesNeeded(path, eofAt(2, common.UNIV_PAGE_SIZE-8)))
}
