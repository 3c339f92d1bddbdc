package btree

import "fmt"

// Location 磁盘地址 (页号, 页内偏移)
type Location struct {
	Page   uint16
	Offset uint16
}

// Value 调用方存入的数据位置，索引不解释它
type Value = Location

func (l Location) String() string {
	return fmt.Sprintf("%d:%d", l.Page, l.Offset)
}

// ChildPointer 节点槽位指向的对象：子节点页或者记录
type ChildPointer interface {
	// location 磁盘上的编码，内部指针的页号写成0，子页号放在偏移字段
	location() Location
}

// InternalPointer 指向子节点页
type InternalPointer struct {
	PageNo uint16
}

// LeafPointer 指向数据页上的一条 Information
type LeafPointer struct {
	Record Location
}

func (p InternalPointer) location() Location {
	return Location{Page: 0, Offset: p.PageNo}
}

func (p LeafPointer) location() Location {
	return p.Record
}

func (p InternalPointer) String() string {
	return fmt.Sprintf("->%d", p.PageNo)
}

func (p LeafPointer) String() string {
	return "@" + p.Record.String()
}

// pointerFromLocation 解码槽位中的Location
func pointerFromLocation(l Location) ChildPointer {
	if l.Page == 0 {
		return InternalPointer{PageNo: l.Offset}
	}
	return LeafPointer{Record: l}
}
