package btree

import "github.com/pkg/errors"

var (
	// ErrUnsupported 删除已存在的键
	ErrUnsupported = errors.New("btree: removing an existing key is not supported")
	// ErrAllocationFailure 文件无法再提供需要的页面
	ErrAllocationFailure = errors.New("btree: page allocation failed")
	// ErrCorruptLayout 节点、记录或入口区域的内容越界
	ErrCorruptLayout = errors.New("btree: corrupt layout")
	// ErrTreeBroken 结构修改中途失败，树不能再使用
	ErrTreeBroken = errors.New("btree: tree is broken")
	ErrTreeClosed = errors.New("btree: tree is closed")
)
