package blocks

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 512

func TestOpenBlockFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	bf, err := OpenBlockFile(path, testPageSize)
	require.NoError(t, err)
	defer bf.Close()

	assert.Equal(t, uint32(0), bf.PageCount())
	assert.Equal(t, path, bf.Path())
}

func TestBlockFile_ReadWritePage(t *testing.T) {
	bf, err := OpenBlockFile(filepath.Join(t.TempDir(), "index.db"), testPageSize)
	require.NoError(t, err)
	defer bf.Close()

	content := make([]byte, testPageSize)
	copy(content, "hello")
	require.NoError(t, bf.WritePage(3, content))
	assert.Equal(t, uint32(4), bf.PageCount())

	buf := make([]byte, testPageSize)
	require.NoError(t, bf.ReadPage(3, buf))
	assert.Equal(t, "hello", string(buf[:5]))

	// 文件末尾之后的页面读出全0
	for i := range buf {
		buf[i] = 0xFF
	}
	require.NoError(t, bf.ReadPage(10, buf))
	assert.Equal(t, make([]byte, testPageSize), buf)
}

func TestBlockFile_ExtendAndReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	bf, err := OpenBlockFile(path, testPageSize)
	require.NoError(t, err)

	require.NoError(t, bf.Extend(8))
	assert.Equal(t, uint32(8), bf.PageCount())
	require.NoError(t, bf.Extend(4))
	assert.Equal(t, uint32(8), bf.PageCount())

	content := make([]byte, testPageSize)
	copy(content, "persisted")
	require.NoError(t, bf.WritePage(5, content))
	require.NoError(t, bf.Sync())
	require.NoError(t, bf.Close())

	reopened, err := OpenBlockFile(path, testPageSize)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, uint32(8), reopened.PageCount())

	buf := make([]byte, testPageSize)
	require.NoError(t, reopened.ReadPage(5, buf))
	assert.Equal(t, "persisted", string(buf[:9]))
}

func TestBlockFile_Closed(t *testing.T) {
	bf, err := OpenBlockFile(filepath.Join(t.TempDir(), "index.db"), testPageSize)
	require.NoError(t, err)
	require.NoError(t, bf.Close())
	require.NoError(t, bf.Close())

	assert.Error(t, bf.ReadPage(0, make([]byte, testPageSize)))
	assert.Error(t, bf.WritePage(0, make([]byte, testPageSize)))
}
