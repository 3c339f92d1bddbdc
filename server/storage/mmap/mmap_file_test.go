package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPageSize = 4096

func TestOpenMMapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	m, err := OpenMMapFile(path, testPageSize, 2)
	require.NoError(t, err)
	defer m.Close()

	assert.Equal(t, uint32(2), m.PageCount())
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(2*testPageSize), info.Size())
}

func TestMMapFile_WriteGrowsMapping(t *testing.T) {
	m, err := OpenMMapFile(filepath.Join(t.TempDir(), "index.db"), testPageSize, 1)
	require.NoError(t, err)
	defer m.Close()

	content := make([]byte, testPageSize)
	copy(content, "far page")
	require.NoError(t, m.WritePage(9, content))
	assert.Equal(t, uint32(10), m.PageCount())

	buf := make([]byte, testPageSize)
	require.NoError(t, m.ReadPage(9, buf))
	assert.Equal(t, "far page", string(buf[:8]))

	require.NoError(t, m.ReadPage(50, buf))
	assert.Equal(t, make([]byte, testPageSize), buf)
}

func TestMMapFile_Persistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "index.db")
	m, err := OpenMMapFile(path, testPageSize, 1)
	require.NoError(t, err)

	require.NoError(t, m.Extend(4))
	content := make([]byte, testPageSize)
	copy(content, "hello")
	require.NoError(t, m.WritePage(3, content))
	require.NoError(t, m.Sync())
	require.NoError(t, m.Close())
	require.NoError(t, m.Close())

	reopened, err := OpenMMapFile(path, testPageSize, 1)
	require.NoError(t, err)
	defer reopened.Close()
	assert.Equal(t, uint32(4), reopened.PageCount())

	buf := make([]byte, testPageSize)
	require.NoError(t, reopened.ReadPage(3, buf))
	assert.Equal(t, "hello", string(buf[:5]))
}
