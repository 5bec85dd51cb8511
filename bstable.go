package bstable

import (
	"encoding/binary"

	"github.com/pkg/errors"
)

// The magic number is stored in little-endian order at the very end of
// every table file.
const magic = "\x57\xfb\x80\x8b\x24\x75\x47\xdb"

const (
	// Every block is followed by a 1-byte compression type tag and a
	// 4-byte masked checksum of the block contents plus the tag.
	blockTrailerLen = 5

	// The footer holds the metaindex and index block handles, zero
	// padding and the magic number.
	footerLen = 48

	// One (possibly empty) filter is generated per 2KiB window of file
	// offsets. The parameter is stored in the filter block so readers
	// do not need to assume it.
	filterBaseLg = 11
)

// On-disk compression type tags.
const (
	blockTypeNoCompression     = 0
	blockTypeSnappyCompression = 1
)

// The metaindex block maps this prefix plus the filter policy name to
// the filter block handle.
const filterKeyPrefix = "filter."

var (
	errClosed     = errors.New("bstable: writer is closed")
	errAbandoned  = errors.New("bstable: writer was abandoned")
	errFilterSize = errors.New("bstable: filter data is too long")
)

// BlockHandle locates a block within a table file.
type BlockHandle struct {
	Offset uint64 // position of the first byte of the block
	Length uint64 // length of the block, excluding the trailer
}

// AppendTo appends the varint encoding of the handle to dst and
// returns the resulting slice.
func (h BlockHandle) AppendTo(dst []byte) []byte {
	var tmp [2 * binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[0:], h.Offset)
	n += binary.PutUvarint(tmp[n:], h.Length)
	return append(dst, tmp[:n]...)
}

// DecodeBlockHandle decodes a handle from the start of buf, returning
// the handle and the number of bytes consumed, or n == 0 if the
// encoding is invalid.
func DecodeBlockHandle(buf []byte) (BlockHandle, int) {
	offset, n := binary.Uvarint(buf)
	if n <= 0 {
		return BlockHandle{}, 0
	}
	length, m := binary.Uvarint(buf[n:])
	if m <= 0 {
		return BlockHandle{}, 0
	}
	return BlockHandle{Offset: offset, Length: length}, n + m
}

// --------------------------------------------------------------------

// Compression is the per-block compression codec.
type Compression byte

func (c Compression) isValid() bool {
	return c >= SnappyCompression && c < unknownCompression
}

// Supported compression codecs. Snappy-compressed blocks fall back to
// plain storage unless compression saves at least 12.5%.
const (
	SnappyCompression Compression = iota
	NoCompression
	unknownCompression
)
