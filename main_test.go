package main

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zhukovaskychina/xindex/server/btree"
	"github.com/zhukovaskychina/xindex/server/buffer_pool"
)

func openTestTree(t *testing.T) (*btree.BTree, *buffer_pool.BufferPool) {
	t.Helper()
	cfg := buffer_pool.DefaultBufferPoolConfig()
	cfg.DataDir = t.TempDir()
	cfg.FlushInterval = 0
	pool, err := buffer_pool.NewBufferPool(cfg)
	require.NoError(t, err)
	require.NoError(t, pool.Start())
	t.Cleanup(func() { pool.Stop() })
	tree, err := btree.Open(pool, "cli.idx")
	require.NoError(t, err)
	return tree, pool
}

func TestLoadAndSeed(t *testing.T) {
	tree, pool := openTestTree(t)
	require.NoError(t, load(tree, 1200))
	require.NoError(t, seed(tree, 50))
	require.NoError(t, tree.Verify())
	require.NoError(t, printStats(tree, pool))

	st, err := tree.Stats()
	require.NoError(t, err)
	// 随机单词可能重复
	assert.True(t, st.Records >= 1200 && st.Records <= 1250)
}

func TestDumpThenRestore(t *testing.T) {
	tree, pool := openTestTree(t)
	require.NoError(t, load(tree, 300))

	path := filepath.Join(t.TempDir(), "dump.xidx")
	require.NoError(t, dump(tree, path, btree.CodecLZ4))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.Size() > 5)

	other, err := btree.Open(pool, "restored.idx")
	require.NoError(t, err)
	require.NoError(t, restore(other, path))
	v, found, err := other.Find(btree.KeyFromString("299"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, loadValue(299), v)
}

func TestShellCommands(t *testing.T) {
	tree, _ := openTestTree(t)
	input := strings.Join([]string{
		"set alpha 3 16",
		"update beta 1 1",
		"get alpha",
		"del alpha",
		"del missing",
		"set bad x 1",
		"verify",
		"stats",
		"bogus",
		"exit",
		"set never 1 1",
	}, "\n")
	shell(tree, bufio.NewScanner(strings.NewReader(input)))

	v, found, err := tree.Find(btree.KeyFromString("alpha"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, btree.Value{Page: 3, Offset: 16}, v)

	_, found, _ = tree.Find(btree.KeyFromString("beta"))
	assert.False(t, found)
	_, found, _ = tree.Find(btree.KeyFromString("never"))
	assert.False(t, found)
}

func TestParseValue(t *testing.T) {
	v, err := parseValue("7", "65535")
	require.NoError(t, err)
	assert.Equal(t, btree.Value{Page: 7, Offset: 65535}, v)

	_, err = parseValue("65536", "0")
	assert.Error(t, err)
	_, err = parseValue("1", "-1")
	assert.Error(t, err)
}
