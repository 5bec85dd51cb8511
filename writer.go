package bstable

import (
	"encoding/binary"
	"io"

	"github.com/golang/leveldb/crc"
	"github.com/golang/snappy"
	"github.com/pkg/errors"
)

// WritableFile is the append-only sink a Writer writes a table to.
// Retry policy, buffering and durability belong to the implementation;
// the writer stops at the first reported failure.
type WritableFile interface {
	Append(p []byte) error
	Flush() error
}

// Writer builds one immutable table file from key/value pairs appended
// in strictly increasing key order. Exactly one of Finish or Abandon
// must be called before the writer is discarded.
//
// A Writer must only be used by a single goroutine.
type Writer struct {
	file WritableFile
	o    *Options
	err  error

	dataBlock  *BlockWriter
	indexBlock *BlockWriter
	filter     *FilterWriter

	lastKey  []byte
	nEntries int
	offset   uint64

	// pending holds the handle of the just-flushed data block until the
	// first key of the next block (or Finish) determines how short its
	// index separator can be. nil means no entry is outstanding; the
	// data block is always empty while pending is set.
	pending *BlockHandle

	snp       []byte // snappy buffer, reused across blocks
	sepKey    []byte // separator scratch
	handleBuf []byte // handle encoding scratch
	tmp       [blockTrailerLen]byte
}

// NewWriter wraps a sink and returns a Writer. If w implements
// WritableFile it is used directly, otherwise it is adapted: Append
// maps to Write, and Flush maps to a Flush method when the sink has
// one, or a no-op.
func NewWriter(w io.Writer, o *Options) *Writer {
	o = o.norm()

	tw := &Writer{
		o:          o,
		dataBlock:  NewBlockWriter(o.BlockRestartInterval),
		indexBlock: NewBlockWriter(1), // index keys are already short separators
	}
	if f, ok := w.(WritableFile); ok {
		tw.file = f
	} else {
		tw.file = &ioFile{w: w}
	}
	if o.FilterPolicy != nil {
		tw.filter = NewFilterWriter(o.FilterPolicy)
		tw.filter.StartBlock(0)
	}
	return tw
}

// Append appends a key/value pair to the table. The key must be
// strictly greater than any previously appended key.
func (w *Writer) Append(key, value []byte) error {
	if w.err != nil {
		return w.err
	}
	if w.nEntries > 0 && w.o.Comparer.Compare(key, w.lastKey) <= 0 {
		w.err = errors.Errorf("bstable: attempted an out-of-order append, %q must be > %q", key, w.lastKey)
		return w.err
	}

	if w.pending != nil {
		w.sepKey = w.o.Comparer.AppendSeparator(w.sepKey[:0], w.lastKey, key)
		w.handleBuf = w.pending.AppendTo(w.handleBuf[:0])
		w.indexBlock.Append(w.sepKey, w.handleBuf)
		w.pending = nil
	}

	if w.filter != nil {
		w.filter.AddKey(key)
	}
	w.lastKey = append(w.lastKey[:0], key...)
	w.nEntries++
	w.dataBlock.Append(key, value)

	if w.dataBlock.SizeEstimate() >= w.o.BlockSize {
		return w.Flush()
	}
	return nil
}

// Flush finishes the current data block and writes it to the sink. It
// is a no-op if the data block is empty.
func (w *Writer) Flush() error {
	if w.err != nil {
		return w.err
	}
	if w.dataBlock.Empty() {
		return nil
	}

	handle, err := w.writeBlock(w.dataBlock)
	if err != nil {
		return err
	}
	w.pending = &handle

	if err := w.file.Flush(); err != nil {
		w.err = errors.Wrap(err, "bstable: sink flush failed")
		return w.err
	}
	if w.filter != nil {
		// Filter windows advance at data block boundaries only, so
		// filter offsets stay aligned to flush points.
		w.filter.StartBlock(w.offset)
	}
	return nil
}

// Finish flushes any buffered data, writes the filter, metaindex and
// index blocks followed by the footer, and closes the writer.
func (w *Writer) Finish() error {
	if w.err != nil {
		return w.err
	}
	if err := w.Flush(); err != nil {
		return err
	}

	// Write the filter block. It is never compressed: readers slice it
	// by raw byte offset.
	var filterHandle BlockHandle
	if w.filter != nil {
		contents, err := w.filter.Finish()
		if err != nil {
			w.err = err
			return w.err
		}
		if filterHandle, err = w.writeRawBlock(contents, blockTypeNoCompression); err != nil {
			return err
		}
	}

	// Write the metaindex block, mapping "filter.<name>" to the filter
	// block handle. It is an empty block if no filter is configured.
	meta := NewBlockWriter(w.o.BlockRestartInterval)
	if w.filter != nil {
		key := append([]byte(filterKeyPrefix), w.o.FilterPolicy.Name()...)
		meta.Append(key, filterHandle.AppendTo(nil))
	}
	metaHandle, err := w.writeBlock(meta)
	if err != nil {
		return err
	}

	// Cut the final index entry. There is no next block, so any short
	// successor of the last key will do as separator.
	if w.pending != nil {
		w.sepKey = w.o.Comparer.AppendSeparator(w.sepKey[:0], w.lastKey, nil)
		w.handleBuf = w.pending.AppendTo(w.handleBuf[:0])
		w.indexBlock.Append(w.sepKey, w.handleBuf)
		w.pending = nil
	}
	indexHandle, err := w.writeBlock(w.indexBlock)
	if err != nil {
		return err
	}

	// Write the footer. Its fixed layout and magic number are its own
	// integrity check, so it carries no block trailer.
	footer := make([]byte, 0, footerLen)
	footer = metaHandle.AppendTo(footer)
	footer = indexHandle.AppendTo(footer)
	for len(footer) < footerLen-len(magic) {
		footer = append(footer, 0)
	}
	footer = append(footer, magic...)
	if err := w.file.Append(footer); err != nil {
		w.err = errors.Wrap(err, "bstable: footer append failed")
		return w.err
	}
	w.offset += footerLen

	w.err = errClosed
	return nil
}

// Close closes the writer, see Finish.
func (w *Writer) Close() error {
	return w.Finish()
}

// Abandon closes the writer without writing any of the buffered data,
// when the caller decides not to keep the table.
func (w *Writer) Abandon() error {
	if w.err != nil {
		return w.err
	}
	w.err = errAbandoned
	return nil
}

// NumEntries returns the number of appended key/value pairs.
func (w *Writer) NumEntries() int {
	return w.nEntries
}

// FileSize returns the number of bytes written to the sink so far,
// including block trailers.
func (w *Writer) FileSize() uint64 {
	return w.offset
}

// writeBlock finishes a block, applies compression and writes it to
// the sink, returning the block's handle. The block is reset for
// reuse.
func (w *Writer) writeBlock(block *BlockWriter) (BlockHandle, error) {
	raw := block.Finish()

	contents, blockType := raw, byte(blockTypeNoCompression)
	if w.o.Compression == SnappyCompression {
		w.snp = snappy.Encode(w.snp[:cap(w.snp)], raw)
		// Keep the compressed form only if it saves at least 12.5%.
		if len(w.snp) < len(raw)-len(raw)/8 {
			contents, blockType = w.snp, blockTypeSnappyCompression
		}
	}

	handle, err := w.writeRawBlock(contents, blockType)
	block.Reset()
	return handle, err
}

// writeRawBlock appends the block contents followed by the trailer of
// one compression type byte and the masked checksum covering both.
func (w *Writer) writeRawBlock(contents []byte, blockType byte) (BlockHandle, error) {
	handle := BlockHandle{Offset: w.offset, Length: uint64(len(contents))}

	if err := w.file.Append(contents); err != nil {
		w.err = errors.Wrap(err, "bstable: block append failed")
		return BlockHandle{}, w.err
	}

	w.tmp[0] = blockType
	checksum := crc.New(contents).Update(w.tmp[:1]).Value()
	binary.LittleEndian.PutUint32(w.tmp[1:], checksum)
	if err := w.file.Append(w.tmp[:blockTrailerLen]); err != nil {
		w.err = errors.Wrap(err, "bstable: block trailer append failed")
		return BlockHandle{}, w.err
	}

	w.offset += uint64(len(contents)) + blockTrailerLen
	return handle, nil
}

// --------------------------------------------------------------------

// ioFile adapts a plain io.Writer to the WritableFile interface.
type ioFile struct {
	w io.Writer
}

func (f *ioFile) Append(p []byte) error {
	_, err := f.w.Write(p)
	return err
}

func (f *ioFile) Flush() error {
	if fl, ok := f.w.(interface{ Flush() error }); ok {
		return fl.Flush()
	}
	return nil
}
