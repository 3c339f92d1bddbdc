package buffer_pool

// BufferPageState 缓冲帧的状态
type BufferPageState int

const (
	// 帧已被淘汰或尚未使用
	BUF_BLOCK_NOT_USED BufferPageState = iota
	// 帧已分配，内容尚未从文件读入
	BUF_BLOCK_READY_FOR_USE
	// 帧中保存了一个文件页
	BUF_BLOCK_FILE_PAGE
	// 文件关闭时从哈希表中移除
	BUF_BLOCK_REMOVE_HASH
)

func (s BufferPageState) String() string {
	switch s {
	case BUF_BLOCK_NOT_USED:
		return "NOT_USED"
	case BUF_BLOCK_READY_FOR_USE:
		return "READY_FOR_USE"
	case BUF_BLOCK_FILE_PAGE:
		return "FILE_PAGE"
	case BUF_BLOCK_REMOVE_HASH:
		return "REMOVE_HASH"
	}
	return "UNKNOWN"
}
