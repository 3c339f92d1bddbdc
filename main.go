package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"

	"github.com/fatih/color"
	"github.com/go-faker/faker/v4"
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/logger"
	"github.com/zhukovaskychina/xindex/server/btree"
	"github.com/zhukovaskychina/xindex/server/buffer_pool"
	"github.com/zhukovaskychina/xindex/server/conf"
)

const help = `
******************************************************************************************
*帮助:
*1. -- configPath   指定my.ini(或.toml)配置文件
*2. -- file         索引文件名，覆盖配置中的 [index] file
*3. -- load N       插入字符串键 "0".."N-1"，值为 (2i, i)，然后逐个校验
*4. -- seed N       插入N个随机单词键
*5. -- dump/-codec  导出所有记录 (snappy|lz4)
*6. -- restore      从导出文件恢复
*7. -- verify/-stats/-shell
******************************************************************************************
`

var (
	configPath  = flag.String("configPath", "", "配置文件路径")
	indexFile   = flag.String("file", "", "索引文件")
	loadRecords = flag.Int("load", 0, "插入 0..N-1 并校验")
	seedRecords = flag.Int("seed", 0, "插入N个随机键")
	dumpPath    = flag.String("dump", "", "导出到文件")
	dumpCodec   = flag.String("codec", btree.CodecSnappy, "导出压缩格式 snappy|lz4")
	restorePath = flag.String("restore", "", "从文件恢复")
	doVerify    = flag.Bool("verify", false, "校验整棵树")
	doStats     = flag.Bool("stats", false, "打印统计信息")
	doShell     = flag.Bool("shell", false, "交互模式")
)

var (
	okLine   = color.New(color.FgGreen).SprintfFunc()
	failLine = color.New(color.FgRed).SprintfFunc()
	infoLine = color.New(color.FgCyan).SprintfFunc()
)

func main() {
	flag.Usage = func() {
		fmt.Print(help + "\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	config, err := conf.NewCfg().Load(&conf.CommandLineArgs{ConfigPath: *configPath})
	if err != nil {
		fmt.Fprintln(os.Stderr, failLine("load config: %v", err))
		os.Exit(1)
	}
	if err := logger.InitLogger(config.LogConfig()); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	if *indexFile != "" {
		config.IndexFile = *indexFile
	}

	if err := run(config); err != nil {
		logger.Errorf("%v", err)
		fmt.Fprintln(os.Stderr, failLine("%v", err))
		os.Exit(1)
	}
}

func run(config *conf.Cfg) error {
	if config.DataDir != "" {
		if err := os.MkdirAll(config.DataDir, 0755); err != nil {
			return err
		}
	}
	pool, err := buffer_pool.NewBufferPool(config.BufferPoolConfig())
	if err != nil {
		return err
	}
	if err := pool.Start(); err != nil {
		return err
	}
	defer pool.Stop()

	tree, err := btree.Open(pool, config.IndexFile)
	if err != nil {
		return err
	}
	defer tree.Close()
	logger.Infof("index %s opened", config.IndexFile)

	if *restorePath != "" {
		if err := restore(tree, *restorePath); err != nil {
			return err
		}
	}
	if *loadRecords > 0 {
		if err := load(tree, *loadRecords); err != nil {
			return err
		}
	}
	if *seedRecords > 0 {
		if err := seed(tree, *seedRecords); err != nil {
			return err
		}
	}
	if *dumpPath != "" {
		if err := dump(tree, *dumpPath, *dumpCodec); err != nil {
			return err
		}
	}
	if *doVerify {
		if err := tree.Verify(); err != nil {
			return err
		}
		fmt.Println(okLine("verify ok"))
	}
	if *doStats {
		if err := printStats(tree, pool); err != nil {
			return err
		}
	}
	if *doShell {
		shell(tree, bufio.NewScanner(os.Stdin))
	}
	return tree.Sync()
}

// load 插入 "0".."n-1"，值为 (2i, i)，再逐个查回来比对
func load(tree *btree.BTree, n int) error {
	for i := 0; i < n; i++ {
		if _, err := tree.Set(btree.KeyFromString(strconv.Itoa(i)), loadValue(i), true); err != nil {
			return err
		}
	}
	for i := 0; i < n; i++ {
		v, found, err := tree.Find(btree.KeyFromString(strconv.Itoa(i)))
		if err != nil {
			return err
		}
		if !found || v != loadValue(i) {
			return errors.Errorf("key %d: found=%v value=%s", i, found, v)
		}
	}
	fmt.Println(okLine("load %d records ok", n))
	return nil
}

func loadValue(i int) btree.Value {
	return btree.Value{Page: uint16(2 * i), Offset: uint16(i)}
}

func seed(tree *btree.BTree, n int) error {
	for i := 0; i < n; i++ {
		key := faker.Word() + faker.Word()
		if _, err := tree.Set(btree.KeyFromString(key), btree.Value{Page: uint16(i >> 16), Offset: uint16(i)}, true); err != nil {
			return err
		}
	}
	fmt.Println(okLine("seed %d records ok", n))
	return nil
}

func dump(tree *btree.BTree, path string, codec string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	n, err := tree.Dump(f, codec)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	fmt.Println(okLine("dump %d records to %s (%s)", n, path, codec))
	return nil
}

func restore(tree *btree.BTree, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	n, err := tree.Restore(f)
	if err != nil {
		return err
	}
	fmt.Println(okLine("restore %d records from %s", n, path))
	return nil
}

func printStats(tree *btree.BTree, pool *buffer_pool.BufferPool) error {
	st, err := tree.Stats()
	if err != nil {
		return err
	}
	ps := pool.GetStats()
	fmt.Println(infoLine("height=%d nodes=%d records=%d available=%d root=%d splits=%d root_growths=%d",
		st.Height, st.Nodes, st.Records, st.AvailableRecords, st.RootPage, st.Splits, st.RootGrowths))
	fmt.Println(infoLine("buffer pool: pages=%d dirty=%d hit_ratio=%.4f reads=%d writes=%d evictions=%d",
		ps.TotalPages, ps.DirtyPages, ps.GetHitRatio(), ps.PageReads, ps.PageWrites, ps.PageEvictions))
	return nil
}
