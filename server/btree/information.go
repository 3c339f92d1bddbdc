package btree

import (
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/util"
)

// InformationLength 一条记录的长度: 3*int32 + 2*uint16
const InformationLength = 16

// Information 数据页上的一条记录
type Information struct {
	Key   Key
	Value Value
}

// WriteToBuf 写入buf开头的16字节
func (info Information) WriteToBuf(buf []byte) error {
	if len(buf) < InformationLength {
		return errors.Wrapf(ErrCorruptLayout, "information needs %d bytes, got %d", InformationLength, len(buf))
	}
	region := buf[:0]
	region = util.WriteInt4(region, info.Key.Hash1)
	region = util.WriteInt4(region, info.Key.Hash2)
	region = util.WriteInt4(region, info.Key.Hash3)
	region = util.WriteUB2(region, info.Value.Page)
	util.WriteUB2(region, info.Value.Offset)
	return nil
}

func (info *Information) ReadFromBuf(buf []byte) error {
	if len(buf) < InformationLength {
		return errors.Wrapf(ErrCorruptLayout, "information needs %d bytes, got %d", InformationLength, len(buf))
	}
	cursor := 0
	cursor, info.Key.Hash1 = util.ReadInt4(buf, cursor)
	cursor, info.Key.Hash2 = util.ReadInt4(buf, cursor)
	cursor, info.Key.Hash3 = util.ReadInt4(buf, cursor)
	cursor, info.Value.Page = util.ReadUB2(buf, cursor)
	_, info.Value.Offset = util.ReadUB2(buf, cursor)
	return nil
}
