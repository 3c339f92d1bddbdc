package conf

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml"
	"github.com/pkg/errors"
	"gopkg.in/ini.v1"

	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/server/buffer_pool"
	"github.com/zhukovaskychina/xindex/server/common"
)

var ConfigPath string

type CommandLineArgs struct {
	ConfigPath string
}

/*
*
[index]
file		= xindex.idx
data_dir	= data

[buffer_pool]
capacity_pages	= 1024
young_percent	= 0.625
old_blocks_time	= 1s
flush_interval	= 1s
io_mode		= pread
max_pages	= 65536
growth_pages	= 16

[logs]
log_error	= logs/error.log
log_infos	= logs/xindex.log
log_level	= info
*/
type Cfg struct {
	Raw *ini.File

	// index
	IndexFile string
	DataDir   string

	// buffer_pool
	CapacityPages         int
	YoungPercent          float64
	OldBlocksTime         string
	OldBlocksTimeDuration time.Duration
	FlushInterval         string
	FlushIntervalDuration time.Duration
	IOMode                string
	MaxPages              int
	GrowthPages           int

	// logs
	LogError string
	LogInfos string
	LogLevel string
}

func NewCfg() *Cfg {
	return &Cfg{
		Raw:                   ini.Empty(),
		IndexFile:             "xindex.idx",
		DataDir:               "data",
		CapacityPages:         1024,
		YoungPercent:          0.625,
		OldBlocksTime:         "1s",
		OldBlocksTimeDuration: time.Second,
		FlushInterval:         "1s",
		FlushIntervalDuration: time.Second,
		IOMode:                common.IO_MODE_PREAD,
		MaxPages:              common.MAX_LOCATION_PAGES,
		GrowthPages:           16,
		LogLevel:              "info",
	}
}

// Load 读取配置文件，.toml 后缀按TOML解析，其余按ini解析。
// 文件不存在时使用默认配置。
func (cfg *Cfg) Load(args *CommandLineArgs) (*Cfg, error) {
	setHomePath(args)
	iniFile, err := cfg.loadConfiguration(args)
	if err != nil {
		return nil, err
	}
	cfg.Raw = iniFile

	if err := cfg.parseIndexCfg(cfg.Raw.Section("index")); err != nil {
		return nil, err
	}
	if err := cfg.parseBufferPoolCfg(cfg.Raw.Section("buffer_pool")); err != nil {
		return nil, err
	}
	if err := cfg.parseLogsCfg(cfg.Raw.Section("logs")); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setHomePath(args *CommandLineArgs) {
	if args.ConfigPath != "" {
		ConfigPath = args.ConfigPath
		return
	}
	ConfigPath, _ = filepath.Abs(".")
}

func (cfg *Cfg) loadConfiguration(args *CommandLineArgs) (*ini.File, error) {
	// 如果没有指定配置文件路径，使用默认的conf/my.ini
	configFile := "conf/my.ini"
	if args.ConfigPath != "" {
		configFile = args.ConfigPath
	}

	if _, err := os.Stat(configFile); os.IsNotExist(err) {
		if args.ConfigPath != "" {
			return nil, errors.Errorf("config file %s not found", configFile)
		}
		logger.Debugf("配置文件不存在: %s，使用默认配置", configFile)
		return ini.Empty(), nil
	}

	if strings.HasSuffix(configFile, ".toml") {
		return loadToml(configFile)
	}
	parsedFile, err := ini.Load(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", configFile)
	}
	logger.Debugf("成功加载配置文件: %s", configFile)
	return parsedFile, nil
}

// loadToml 把TOML的两级表转换为ini的section/key，后面共用同一套解析
func loadToml(configFile string) (*ini.File, error) {
	tree, err := toml.LoadFile(configFile)
	if err != nil {
		return nil, errors.Wrapf(err, "parse config %s", configFile)
	}
	iniFile := ini.Empty()
	for _, sectionName := range tree.Keys() {
		sub, ok := tree.Get(sectionName).(*toml.Tree)
		if !ok {
			continue
		}
		section := iniFile.Section(sectionName)
		for _, key := range sub.Keys() {
			if _, err := section.NewKey(key, fmt.Sprint(sub.Get(key))); err != nil {
				return nil, errors.Wrapf(err, "config key %s.%s", sectionName, key)
			}
		}
	}
	logger.Debugf("成功加载配置文件: %s", configFile)
	return iniFile, nil
}

func (cfg *Cfg) parseIndexCfg(section *ini.Section) error {
	cfg.IndexFile = valueAsString(section, "file", cfg.IndexFile)
	cfg.DataDir = valueAsString(section, "data_dir", cfg.DataDir)
	return nil
}

func (cfg *Cfg) parseBufferPoolCfg(section *ini.Section) error {
	var err error
	cfg.CapacityPages = section.Key("capacity_pages").MustInt(cfg.CapacityPages)
	cfg.YoungPercent = section.Key("young_percent").MustFloat64(cfg.YoungPercent)
	cfg.IOMode = valueAsString(section, "io_mode", cfg.IOMode)
	cfg.MaxPages = section.Key("max_pages").MustInt(cfg.MaxPages)
	cfg.GrowthPages = section.Key("growth_pages").MustInt(cfg.GrowthPages)

	cfg.OldBlocksTime = valueAsString(section, "old_blocks_time", cfg.OldBlocksTime)
	cfg.OldBlocksTimeDuration, err = time.ParseDuration(cfg.OldBlocksTime)
	if err != nil {
		return errors.Wrapf(err, "time.ParseDuration(old_blocks_time{%#v})", cfg.OldBlocksTime)
	}
	cfg.FlushInterval = valueAsString(section, "flush_interval", cfg.FlushInterval)
	cfg.FlushIntervalDuration, err = time.ParseDuration(cfg.FlushInterval)
	if err != nil {
		return errors.Wrapf(err, "time.ParseDuration(flush_interval{%#v})", cfg.FlushInterval)
	}
	if cfg.CapacityPages <= 0 || cfg.MaxPages <= 0 || cfg.GrowthPages < 0 {
		return errors.Errorf("buffer_pool: capacity_pages %d, max_pages %d, growth_pages %d",
			cfg.CapacityPages, cfg.MaxPages, cfg.GrowthPages)
	}
	return nil
}

func (cfg *Cfg) parseLogsCfg(section *ini.Section) error {
	cfg.LogError = valueAsString(section, "log_error", cfg.LogError)
	cfg.LogInfos = valueAsString(section, "log_infos", cfg.LogInfos)
	cfg.LogLevel = valueAsString(section, "log_level", cfg.LogLevel)
	return nil
}

func valueAsString(section *ini.Section, keyName string, defaultValue string) string {
	if section == nil {
		return defaultValue
	}
	value := section.Key(keyName).MustString(defaultValue)
	if value == "" {
		value = defaultValue
	}
	return value
}

// BufferPoolConfig 转换为缓冲池配置
func (cfg *Cfg) BufferPoolConfig() *buffer_pool.BufferPoolConfig {
	return &buffer_pool.BufferPoolConfig{
		CapacityPages:    uint32(cfg.CapacityPages),
		YoungListPercent: cfg.YoungPercent,
		OldBlocksTime:    cfg.OldBlocksTimeDuration,
		FlushInterval:    cfg.FlushIntervalDuration,
		IOMode:           cfg.IOMode,
		MaxPages:         uint32(cfg.MaxPages),
		GrowthPages:      uint32(cfg.GrowthPages),
		DataDir:          cfg.DataDir,
	}
}

// LogConfig 转换为日志配置
func (cfg *Cfg) LogConfig() logger.LogConfig {
	return logger.LogConfig{
		ErrorLogPath: cfg.LogError,
		InfoLogPath:  cfg.LogInfos,
		LogLevel:     cfg.LogLevel,
	}
}
