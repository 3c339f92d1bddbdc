package basic

// PageStore 以固定大小页面为单位读写的底层文件
type PageStore interface {
	// ReadPage 读取页面到buf，超出文件末尾的部分填0
	ReadPage(pageNo uint32, buf []byte) error

	WritePage(pageNo uint32, content []byte) error

	// PageCount 物理上已存在的页面数
	PageCount() uint32

	// Extend 保证文件至少有pages个页面
	Extend(pages uint32) error

	Sync() error

	Close() error

	Path() string
}
