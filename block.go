package bstable

import "encoding/binary"

// BlockWriter encodes an ordered run of key/value pairs into a single
// block. Keys are prefix-compressed: each entry stores only the suffix
// that differs from the previous key, preceded by the varint-encoded
// shared length, unshared length and value length. Once every
// restartInterval entries the full key is stored and its offset is
// recorded as a restart point, so that readers can binary-search the
// restart array and decode at most restartInterval entries per lookup.
//
// Keys must be added in strictly increasing order; the enclosing table
// writer enforces this. A finished block must be Reset before reuse.
type BlockWriter struct {
	restartInterval int
	nEntries        int
	counter         int // entries since the last restart point
	buf             []byte
	restarts        []uint32
	lastKey         []byte
	finished        bool
	tmp             [3 * binary.MaxVarintLen64]byte
}

// NewBlockWriter inits a block writer. The restart interval must be
// at least 1.
func NewBlockWriter(restartInterval int) *BlockWriter {
	if restartInterval < 1 {
		restartInterval = 1
	}
	return &BlockWriter{
		restartInterval: restartInterval,
		restarts:        []uint32{0},
	}
}

// Append appends a key/value pair to the block.
func (w *BlockWriter) Append(key, value []byte) {
	if w.finished {
		panic("bstable: append to a finished block")
	}

	shared := 0
	if w.counter < w.restartInterval {
		shared = SharedPrefixLen(w.lastKey, key)
	} else {
		w.restarts = append(w.restarts, uint32(len(w.buf)))
		w.counter = 0
	}

	n := binary.PutUvarint(w.tmp[0:], uint64(shared))
	n += binary.PutUvarint(w.tmp[n:], uint64(len(key)-shared))
	n += binary.PutUvarint(w.tmp[n:], uint64(len(value)))
	w.buf = append(w.buf, w.tmp[:n]...)
	w.buf = append(w.buf, key[shared:]...)
	w.buf = append(w.buf, value...)

	w.lastKey = append(w.lastKey[:shared], key[shared:]...)
	w.nEntries++
	w.counter++
}

// Finish appends the restart array and its length to the buffer and
// returns the finished block. The returned slice remains valid until
// the next Reset.
func (w *BlockWriter) Finish() []byte {
	tmp4 := w.tmp[:4]
	for _, x := range w.restarts {
		binary.LittleEndian.PutUint32(tmp4, x)
		w.buf = append(w.buf, tmp4...)
	}
	binary.LittleEndian.PutUint32(tmp4, uint32(len(w.restarts)))
	w.buf = append(w.buf, tmp4...)
	w.finished = true
	return w.buf
}

// Reset clears all buffered state and makes the writer ready for a new
// block.
func (w *BlockWriter) Reset() {
	w.buf = w.buf[:0]
	w.restarts = append(w.restarts[:0], 0)
	w.lastKey = w.lastKey[:0]
	w.nEntries = 0
	w.counter = 0
	w.finished = false
}

// SizeEstimate returns the exact size of the block if it were finished
// now, i.e. the buffered entries plus the pending restart array.
func (w *BlockWriter) SizeEstimate() int {
	return len(w.buf) + 4*len(w.restarts) + 4
}

// Empty reports whether no entries have been appended.
func (w *BlockWriter) Empty() bool {
	return w.nEntries == 0
}

// NumEntries returns the number of appended entries.
func (w *BlockWriter) NumEntries() int {
	return w.nEntries
}
