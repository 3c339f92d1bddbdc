package btree

import (
	"fmt"
	"math"
)

const (
	hashP1 int32 = 98765431
	hashP2 int32 = 10016957
	hashP3 int32 = 57885161
)

// Key 三个独立的乘法哈希组成的指纹，按 (Hash1, Hash2, Hash3) 字典序比较。
// 不同的字符串可能得到相同的指纹，索引以指纹相等作为键相等。
type Key struct {
	Hash1 int32
	Hash2 int32
	Hash3 int32
}

// MinKey 最小的指纹，新根节点第0个槽使用
var MinKey = Key{math.MinInt32, math.MinInt32, math.MinInt32}

func NewKey(hash1, hash2, hash3 int32) Key {
	return Key{Hash1: hash1, Hash2: hash2, Hash3: hash3}
}

// KeyFromBytes 逐字节折叠，字节按有符号8位参与运算
func KeyFromBytes(b []byte) Key {
	var k Key
	for _, c := range b {
		v := int32(int8(c))
		k.Hash1 = k.Hash1*hashP1 + v
		k.Hash2 = k.Hash2*hashP2 + v
		k.Hash3 = k.Hash3*hashP3 + v
	}
	return k
}

func KeyFromString(s string) Key {
	return KeyFromBytes([]byte(s))
}

func KeyFromInt(v int32) Key {
	return Key{v, v, v}
}

// Compare 返回 -1, 0, 1
func (k Key) Compare(other Key) int {
	switch {
	case k.Hash1 != other.Hash1:
		return cmpInt32(k.Hash1, other.Hash1)
	case k.Hash2 != other.Hash2:
		return cmpInt32(k.Hash2, other.Hash2)
	default:
		return cmpInt32(k.Hash3, other.Hash3)
	}
}

func (k Key) Less(other Key) bool {
	return k.Compare(other) < 0
}

func (k Key) Equal(other Key) bool {
	return k == other
}

func (k Key) String() string {
	return fmt.Sprintf("(%d,%d,%d)", k.Hash1, k.Hash2, k.Hash3)
}

func cmpInt32(a, b int32) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}
