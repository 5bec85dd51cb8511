package bstable

import "encoding/binary"

// FilterWriter builds the single filter block of a table, holding one
// filter per 2KiB window of file offsets. The sequence of calls must
// match the expression:
//
//     (StartBlock AddKey*)* Finish
//
// StartBlock announces the file offset of the next data block and
// generates filters for every window boundary crossed since the last
// call; AddKey accumulates the keys of the current data block.
type FilterWriter struct {
	policy FilterPolicy

	// flattened keys accumulated since the last generated filter
	keys   []byte
	starts []int
	tmp    [][]byte

	// filter data and per-window offsets for the overall table
	data    []byte
	offsets []uint32
}

// NewFilterWriter inits a filter writer with a policy.
func NewFilterWriter(policy FilterPolicy) *FilterWriter {
	return &FilterWriter{policy: policy}
}

// StartBlock signals that a new data block begins at the given file
// offset. When a single flush jumps across more than one 2KiB window,
// one offset entry is emitted per skipped window, all pointing at the
// current end of the filter data; readers rely on one entry existing
// per window index.
func (w *FilterWriter) StartBlock(blockOffset uint64) {
	for i := blockOffset >> filterBaseLg; i > uint64(len(w.offsets)); {
		w.generate()
	}
}

// AddKey adds a key to the filter of the current window.
func (w *FilterWriter) AddKey(key []byte) {
	w.starts = append(w.starts, len(w.keys))
	w.keys = append(w.keys, key...)
}

// Finish generates the last filter, appends the offset array, its
// starting position and the window-size parameter, and returns the
// encoded filter block. The returned slice shares the writer's buffer.
func (w *FilterWriter) Finish() ([]byte, error) {
	if len(w.starts) != 0 {
		w.generate()
	}

	arrayOffset := uint64(len(w.data))
	if arrayOffset > 1<<32-1 {
		return nil, errFilterSize
	}

	var tmp4 [4]byte
	for _, x := range w.offsets {
		binary.LittleEndian.PutUint32(tmp4[:], x)
		w.data = append(w.data, tmp4[:]...)
	}
	binary.LittleEndian.PutUint32(tmp4[:], uint32(arrayOffset))
	w.data = append(w.data, tmp4[:]...)
	w.data = append(w.data, filterBaseLg)
	return w.data, nil
}

func (w *FilterWriter) generate() {
	w.offsets = append(w.offsets, uint32(len(w.data)))
	if len(w.starts) == 0 {
		// No keys for this window: the zero-length filter still
		// occupies an offset slot so that window indexes stay aligned.
		return
	}

	w.starts = append(w.starts, len(w.keys))
	for i, start := range w.starts[:len(w.starts)-1] {
		w.tmp = append(w.tmp, w.keys[start:w.starts[i+1]])
	}
	w.data = w.policy.AppendFilter(w.data, w.tmp)

	w.keys = w.keys[:0]
	w.starts = w.starts[:0]
	w.tmp = w.tmp[:0]
}

// --------------------------------------------------------------------

// FilterReader answers membership queries against an encoded filter
// block. It does not copy: the contents must stay live for the
// lifetime of the reader. Malformed contents disable the reader, which
// then treats every key as a potential match.
type FilterReader struct {
	policy  FilterPolicy
	data    []byte // filter data, up to the start of the offset array
	offsets []byte // the offset array
	num     int    // number of entries in the offset array
	baseLg  uint   // encoding parameter
}

// NewFilterReader inits a filter reader with a policy and the encoded
// filter block contents.
func NewFilterReader(policy FilterPolicy, contents []byte) *FilterReader {
	r := &FilterReader{policy: policy}

	n := len(contents)
	if n < 5 { // 1 byte for baseLg and 4 for the offset array position
		return r
	}
	arrayOffset := binary.LittleEndian.Uint32(contents[n-5:])
	if arrayOffset > uint32(n-5) {
		return r
	}

	r.baseLg = uint(contents[n-1])
	r.data = contents[:arrayOffset]
	// The offset array is followed by its own starting position, which
	// always equals the end of the filter data and therefore doubles as
	// the limit of the last filter. Keep it in the slice so that
	// offsets[i]..offsets[i+1] needs no special case.
	r.offsets = contents[arrayOffset : n-1]
	r.num = (n - 5 - int(arrayOffset)) / 4
	return r
}

// MayContain reports whether the filter covering the data block at the
// given file offset may contain the key. False negatives never occur
// for keys that were added to the writer; false positives are the
// accepted cost, and any inconsistency in the encoded block is treated
// as a potential match.
func (r *FilterReader) MayContain(blockOffset uint64, key []byte) bool {
	index := blockOffset >> r.baseLg
	if r.num == 0 || index >= uint64(r.num) {
		return true
	}

	start := binary.LittleEndian.Uint32(r.offsets[index*4:])
	limit := binary.LittleEndian.Uint32(r.offsets[index*4+4:])
	if start > limit || limit > uint32(len(r.data)) {
		return true // treat corruption as a potential match
	}
	if start == limit {
		return false // an explicitly empty filter matches nothing
	}
	return r.policy.MayContain(r.data[start:limit], key)
}
