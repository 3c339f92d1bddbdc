package common

// 页面大小，一个节点页(4 + 510*16 = 8164字节)必须能放进一页
const UNIV_PAGE_SIZE = 8192

// 0号页是文件头页，永远不会成为数据页或节点页
const HEADER_PAGE_NO = 0

// 文件头占用0号页的前64字节
const FILE_HEADER_SIZE = 64

// 索引入口区域(magic, root, used, available)紧跟文件头
const ENTRY_REGION_OFFSET = FILE_HEADER_SIZE

const ENTRY_REGION_SIZE = 16

// Location使用16位字表示页号，可寻址页面数上限
const MAX_LOCATION_PAGES = 1 << 16

// 页面存储的IO模式
const (
	IO_MODE_PREAD = "pread"
	IO_MODE_MMAP  = "mmap"
)
