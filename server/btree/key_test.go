package btree

import (
	"math"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyFromStringKnownValues(t *testing.T) {
	assert.Equal(t, Key{990312313, 971644927, 1319893419}, KeyFromString("ab"))
	assert.Equal(t, Key{-198943094, 1718983468, 661606312}, KeyFromString("test"))
	assert.Equal(t, Key{1193757424, 958478348, 227280852}, KeyFromString("9999"))
	assert.Equal(t, Key{}, KeyFromString(""))
	// 高位字节按有符号char参与运算
	assert.Equal(t, Key{-1, -1, -1}, KeyFromBytes([]byte{0xff}))
}

func TestKeyFromInt(t *testing.T) {
	assert.Equal(t, Key{42, 42, 42}, KeyFromInt(42))
	assert.Equal(t, MinKey, KeyFromInt(math.MinInt32))
	assert.Equal(t, NewKey(1, 2, 3), Key{Hash1: 1, Hash2: 2, Hash3: 3})
}

func TestKeyOrdering(t *testing.T) {
	assert.True(t, NewKey(1, 9, 9).Less(NewKey(2, 0, 0)))
	assert.True(t, NewKey(1, 1, 9).Less(NewKey(1, 2, 0)))
	assert.True(t, NewKey(1, 1, 1).Less(NewKey(1, 1, 2)))
	assert.False(t, NewKey(1, 1, 1).Less(NewKey(1, 1, 1)))
	assert.True(t, NewKey(-5, 0, 0).Less(NewKey(3, 0, 0)))
	assert.Equal(t, 0, KeyFromString("x").Compare(KeyFromString("x")))
	assert.True(t, KeyFromString("x").Equal(KeyFromString("x")))

	keys := []Key{KeyFromString("b"), KeyFromString("a"), MinKey, KeyFromInt(0)}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })
	assert.Equal(t, MinKey, keys[0])
	for i := 1; i < len(keys); i++ {
		assert.Equal(t, -1, keys[i-1].Compare(keys[i]))
		assert.Equal(t, 1, keys[i].Compare(keys[i-1]))
	}
}
