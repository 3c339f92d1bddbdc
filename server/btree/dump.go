package btree

import (
	"bufio"
	"io"

	"github.com/golang/snappy"
	"github.com/pierrec/lz4/v4"
	"github.com/pkg/errors"

	"github.com/zhukovaskychina/xindex/logger"
)

const (
	CodecSnappy = "snappy"
	CodecLZ4    = "lz4"
)

const (
	codecIDSnappy byte = 1
	codecIDLZ4    byte = 2
)

var dumpMagic = []byte("XIDX")

// resolveCodec 空串表示默认的snappy
func resolveCodec(codec string) (byte, string, error) {
	switch codec {
	case CodecSnappy, "":
		return codecIDSnappy, CodecSnappy, nil
	case CodecLZ4:
		return codecIDLZ4, CodecLZ4, nil
	}
	return 0, "", errors.Errorf("unknown dump codec %q", codec)
}

// Dump 把所有记录按键的顺序写成压缩流：magic(4) codec(1) 记录...
func (t *BTree) Dump(w io.Writer, codec string) (int, error) {
	id, codec, err := resolveCodec(codec)
	if err != nil {
		return 0, err
	}
	var zw io.WriteCloser
	if id == codecIDLZ4 {
		zw = lz4.NewWriter(w)
	} else {
		zw = snappy.NewBufferedWriter(w)
	}
	if _, err := w.Write(append(append([]byte{}, dumpMagic...), id)); err != nil {
		return 0, errors.Wrap(err, "write dump header")
	}

	count := 0
	buf := make([]byte, InformationLength)
	var writeErr error
	err = t.Ascend(func(info Information) bool {
		info.WriteToBuf(buf)
		if _, writeErr = zw.Write(buf); writeErr != nil {
			return false
		}
		count++
		return true
	})
	if err == nil {
		err = writeErr
	}
	if cerr := zw.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return count, errors.Wrapf(err, "dump index %s", t.name)
	}
	logger.Infof("dump index %s: %d records, codec %s", t.name, count, codec)
	return count, nil
}

// Restore 读取Dump产生的流，逐条以force方式插入
func (t *BTree) Restore(r io.Reader) (int, error) {
	br := bufio.NewReader(r)
	header := make([]byte, len(dumpMagic)+1)
	if _, err := io.ReadFull(br, header); err != nil {
		return 0, errors.Wrapf(ErrCorruptLayout, "read dump header: %v", err)
	}
	if string(header[:len(dumpMagic)]) != string(dumpMagic) {
		return 0, errors.Wrapf(ErrCorruptLayout, "bad dump magic %q", header[:len(dumpMagic)])
	}

	var zr io.Reader
	switch header[len(dumpMagic)] {
	case codecIDSnappy:
		zr = snappy.NewReader(br)
	case codecIDLZ4:
		zr = lz4.NewReader(br)
	default:
		return 0, errors.Wrapf(ErrCorruptLayout, "unknown dump codec id %d", header[len(dumpMagic)])
	}

	count := 0
	buf := make([]byte, InformationLength)
	for {
		_, err := io.ReadFull(zr, buf)
		if err == io.EOF {
			break
		}
		if err == io.ErrUnexpectedEOF {
			return count, errors.Wrapf(ErrCorruptLayout, "truncated record after %d records", count)
		}
		if err != nil {
			return count, errors.Wrapf(err, "read dump record %d", count)
		}
		var info Information
		if err := info.ReadFromBuf(buf); err != nil {
			return count, err
		}
		if _, err := t.Set(info.Key, info.Value, true); err != nil {
			return count, err
		}
		count++
	}
	logger.Infof("restore index %s: %d records", t.name, count)
	return count, nil
}
