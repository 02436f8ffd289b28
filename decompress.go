package mykrobe2csv

import (
	"bufio"
	"compress/bzip2"
	"compress/gzip"
	"compress/zlib"
	"fmt"
	"io"
	"strings"

	"github.com/krolaw/zipstream"
	"github.com/xi2/xz"
)

type DataType byte

const (
	DataTypeNoCompression DataType = iota
	DataTypeGzip
	DataTypeZip
	DataTypeXZ
	DataTypeZlib
	DataTypeBZip2

	// DataTypeLZW is Unix compress(1) output. It is recognized so that it can
	// be rejected with a clear error: compress/lzw only reads the GIF/PDF
	// variant of LZW.
	DataTypeLZW
)

var byteCodeSigs = map[DataType][]byte{
	DataTypeGzip:  {0x1f, 0x8b, 0x08},
	DataTypeZip:   {0x50, 0x4b, 0x03, 0x04},
	DataTypeXZ:    {0xfd, 0x37, 0x7a, 0x58, 0x5a, 0x00},
	DataTypeLZW:   {0x1f, 0x9d},
	DataTypeBZip2: {0x42, 0x5a, 0x68},
}

// File name extensions that MaybeDecompress knows how to undo.
var compressionSuffixes = []string{".gz", ".bz2", ".xz", ".zip", ".zlib", ".zz"}

// DetectDataType compares the leading bytes of a stream against a set of
// known compression signatures. Byte code signatures from
// https://stackoverflow.com/a/19127748/199475
func DetectDataType(head []byte) DataType {
Outer:
	for dt, sig := range byteCodeSigs {
		if len(head) < len(sig) {
			continue
		}
		for position := range sig {
			if head[position] != sig[position] {
				continue Outer
			}
		}
		return dt
	}

	if isZlibHeader(head) {
		return DataTypeZlib
	}

	return DataTypeNoCompression
}

// isZlibHeader checks the two-byte zlib header from RFC 1950: deflate method,
// a window of at most 32K, and CMF*256+FLG divisible by 31. No JSON object
// can start this way.
func isZlibHeader(head []byte) bool {
	if len(head) < 2 {
		return false
	}

	cmf, flg := head[0], head[1]
	if cmf&0x0f != 8 || cmf>>4 > 7 {
		return false
	}

	return (uint16(cmf)<<8|uint16(flg))%31 == 0
}

// MaybeDecompress sniffs r and, if it is compressed in a format we recognize,
// returns a reader over the decompressed bytes. Uncompressed streams are
// returned as-is. Zip archives yield their first entry.
func MaybeDecompress(r io.Reader) (io.Reader, error) {
	br := bufio.NewReader(r)

	// Peek returns fewer bytes (and an error) for short streams. That is fine:
	// they simply won't match any signature.
	head, _ := br.Peek(6)

	switch DetectDataType(head) {
	case DataTypeGzip:
		return gzip.NewReader(br)
	case DataTypeZip:
		zr := zipstream.NewReader(br)
		if _, err := zr.Next(); err != nil {
			return nil, fmt.Errorf("zip: %w", err)
		}
		return zr, nil
	case DataTypeBZip2:
		return bzip2.NewReader(br), nil
	case DataTypeXZ:
		return xz.NewReader(br, 0)
	case DataTypeZlib:
		return zlib.NewReader(br)
	case DataTypeLZW:
		return nil, fmt.Errorf("unix compress (.Z) data is not supported; recompress with gzip")
	}

	// No data type detected. For now, we assume this is uncompressed.
	return br, nil
}

// TrimCompressionSuffix removes one known compression extension from name,
// e.g. sample.json.gz => sample.json.
func TrimCompressionSuffix(name string) string {
	for _, suffix := range compressionSuffixes {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}

	return name
}
