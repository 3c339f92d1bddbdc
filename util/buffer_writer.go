package util

// 所有写函数都以append方式追加。传入 buf[off:off] 且容量足够时即为原地写。

func WriteByte(buf []byte, b byte) []byte {
	buf = append(buf, b)
	return buf
}

func WriteBytes(buf []byte, from []byte) []byte {
	return append(buf, from...)
}

func WriteUB2(buf []byte, i uint16) []byte {
	buf = append(buf, byte(i&0xFF))
	buf = append(buf, byte((i>>8)&0xFF))
	return buf
}

func WriteUB4(buf []byte, i uint32) []byte {
	buf = append(buf, byte(i&0xFF))
	buf = append(buf, byte((i>>8)&0xFF))
	buf = append(buf, byte((i>>16)&0xFF))
	buf = append(buf, byte((i>>24)&0xFF))
	return buf
}

// WriteInt4 写入有符号的4字节整数
func WriteInt4(buf []byte, i int32) []byte {
	return WriteUB4(buf, uint32(i))
}

func WriteUB8(buf []byte, i uint64) []byte {
	buf = append(buf, byte(i&0xFF))
	buf = append(buf, byte((i>>8)&0xFF))
	buf = append(buf, byte((i>>16)&0xFF))
	buf = append(buf, byte((i>>24)&0xFF))
	buf = append(buf, byte((i>>32)&0xFF))
	buf = append(buf, byte((i>>40)&0xFF))
	buf = append(buf, byte((i>>48)&0xFF))
	buf = append(buf, byte((i>>56)&0xFF))
	return buf
}

// WriteZero 追加n个0字节
func WriteZero(buf []byte, n int) []byte {
	for i := 0; i < n; i++ {
		buf = append(buf, 0)
	}
	return buf
}

func ConvertUInt4Bytes(i uint32) []byte {
	buff := make([]byte, 0, 4)
	return WriteUB4(buff, i)
}

func ConvertUInt2Bytes(i uint16) []byte {
	buff := make([]byte, 0, 2)
	return WriteUB2(buff, i)
}
