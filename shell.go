package main

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/server/btree"
)

const shellHelp = `commands:
  set <key> <page> <offset>   insert or overwrite
  update <key> <page> <offset> overwrite only
  get <key>
  del <key>
  verify | stats | help | exit`

// shell 逐行读取命令
func shell(tree *btree.BTree, scanner *bufio.Scanner) {
	fmt.Println(shellHelp)
	fmt.Print("> ")
	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) > 0 {
			if fields[0] == "exit" || fields[0] == "quit" {
				return
			}
			execute(tree, fields)
		}
		fmt.Print("> ")
	}
}

func execute(tree *btree.BTree, fields []string) {
	switch fields[0] {
	case "set", "update":
		if len(fields) != 4 {
			fmt.Println(failLine("usage: %s <key> <page> <offset>", fields[0]))
			return
		}
		value, err := parseValue(fields[2], fields[3])
		if err != nil {
			fmt.Println(failLine("%v", err))
			return
		}
		ok, err := tree.Set(btree.KeyFromString(fields[1]), value, fields[0] == "set")
		switch {
		case err != nil:
			fmt.Println(failLine("%v", err))
		case !ok:
			fmt.Println(failLine("not found"))
		default:
			fmt.Println(okLine("ok"))
		}
	case "get":
		if len(fields) != 2 {
			fmt.Println(failLine("usage: get <key>"))
			return
		}
		v, found, err := tree.Find(btree.KeyFromString(fields[1]))
		switch {
		case err != nil:
			fmt.Println(failLine("%v", err))
		case !found:
			fmt.Println(failLine("not found"))
		default:
			fmt.Println(okLine("%s", v))
		}
	case "del":
		if len(fields) != 2 {
			fmt.Println(failLine("usage: del <key>"))
			return
		}
		_, err := tree.Remove(btree.KeyFromString(fields[1]))
		switch {
		case errors.Is(err, btree.ErrUnsupported):
			fmt.Println(failLine("remove is not supported"))
		case err != nil:
			fmt.Println(failLine("%v", err))
		default:
			fmt.Println(failLine("not found"))
		}
	case "verify":
		if err := tree.Verify(); err != nil {
			fmt.Println(failLine("%v", err))
			return
		}
		fmt.Println(okLine("verify ok"))
	case "stats":
		st, err := tree.Stats()
		if err != nil {
			fmt.Println(failLine("%v", err))
			return
		}
		fmt.Println(infoLine("%+v", st))
	case "help":
		fmt.Println(shellHelp)
	default:
		fmt.Println(failLine("unknown command %q", fields[0]))
	}
}

func parseValue(page, offset string) (btree.Value, error) {
	p, err := strconv.ParseUint(page, 10, 16)
	if err != nil {
		return btree.Value{}, errors.Wrapf(err, "page %q", page)
	}
	o, err := strconv.ParseUint(offset, 10, 16)
	if err != nil {
		return btree.Value{}, errors.Wrapf(err, "offset %q", offset)
	}
	return btree.Value{Page: uint16(p), Offset: uint16(o)}, nil
}
