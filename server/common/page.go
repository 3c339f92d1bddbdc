package common

import "fmt"

// PageKey 由文件ID和页号组成缓冲池中的页面标识
type PageKey uint64

func NewPageKey(fileID uint32, pageNo uint32) PageKey {
	return PageKey(uint64(fileID)<<32 | uint64(pageNo))
}

func (k PageKey) FileID() uint32 {
	return uint32(k >> 32)
}

func (k PageKey) PageNo() uint32 {
	return uint32(k)
}

func (k PageKey) String() string {
	return fmt.Sprintf("%d:%d", k.FileID(), k.PageNo())
}
