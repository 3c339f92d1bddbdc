package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestDefaults(t *testing.T) {
	cfg := NewCfg()
	assert.Equal(t, "xindex.idx", cfg.IndexFile)
	assert.Equal(t, 1024, cfg.CapacityPages)
	assert.Equal(t, time.Second, cfg.FlushIntervalDuration)

	bpc := cfg.BufferPoolConfig()
	require.NoError(t, bpc.Validate())
	assert.Equal(t, uint32(65536), bpc.MaxPages)
	assert.Equal(t, "info", cfg.LogConfig().LogLevel)
}

func TestLoadIni(t *testing.T) {
	path := writeConfig(t, "my.ini", `
[index]
file = users.idx
data_dir = /tmp/xindex

[buffer_pool]
capacity_pages = 64
young_percent = 0.5
old_blocks_time = 250ms
flush_interval = 2s
io_mode = mmap
max_pages = 4096

[logs]
log_level = debug
`)
	cfg, err := NewCfg().Load(&CommandLineArgs{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "users.idx", cfg.IndexFile)
	assert.Equal(t, "/tmp/xindex", cfg.DataDir)
	assert.Equal(t, 64, cfg.CapacityPages)
	assert.Equal(t, 0.5, cfg.YoungPercent)
	assert.Equal(t, 250*time.Millisecond, cfg.OldBlocksTimeDuration)
	assert.Equal(t, 2*time.Second, cfg.FlushIntervalDuration)
	assert.Equal(t, "mmap", cfg.IOMode)
	assert.Equal(t, 4096, cfg.MaxPages)
	assert.Equal(t, 16, cfg.GrowthPages)
	assert.Equal(t, "debug", cfg.LogLevel)

	bpc := cfg.BufferPoolConfig()
	require.NoError(t, bpc.Validate())
	assert.Equal(t, "/tmp/xindex", bpc.DataDir)
}

func TestLoadToml(t *testing.T) {
	path := writeConfig(t, "xindex.toml", `
[index]
file = "orders.idx"

[buffer_pool]
capacity_pages = 32
young_percent = 0.4
flush_interval = "0s"
growth_pages = 8

[logs]
log_level = "warn"
log_error = "logs/error.log"
`)
	cfg, err := NewCfg().Load(&CommandLineArgs{ConfigPath: path})
	require.NoError(t, err)
	assert.Equal(t, "orders.idx", cfg.IndexFile)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 32, cfg.CapacityPages)
	assert.Equal(t, 0.4, cfg.YoungPercent)
	assert.Equal(t, time.Duration(0), cfg.FlushIntervalDuration)
	assert.Equal(t, 8, cfg.GrowthPages)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "logs/error.log", cfg.LogError)
}

func TestLoadErrors(t *testing.T) {
	_, err := NewCfg().Load(&CommandLineArgs{ConfigPath: filepath.Join(t.TempDir(), "missing.ini")})
	assert.Error(t, err)

	path := writeConfig(t, "bad.ini", "[buffer_pool]\nflush_interval = soon\n")
	_, err = NewCfg().Load(&CommandLineArgs{ConfigPath: path})
	assert.Error(t, err)

	path = writeConfig(t, "bad.toml", "[index\nfile = \n")
	_, err = NewCfg().Load(&CommandLineArgs{ConfigPath: path})
	assert.Error(t, err)
}
