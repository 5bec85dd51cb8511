package bstable

import farm "github.com/dgryski/go-farm"

// FilterPolicy is a strategy for summarizing a set of keys into a
// compact filter and probing that filter for membership. Filters must
// never produce false negatives.
type FilterPolicy interface {
	// Name identifies the policy. It is stored in the metaindex block,
	// so readers configured with a differently-named policy will skip
	// the filter instead of misinterpreting it.
	Name() string

	// AppendFilter appends a filter summarizing keys to dst and
	// returns the resulting slice.
	AppendFilter(dst []byte, keys [][]byte) []byte

	// MayContain reports whether the filter may contain key. It must
	// return true for every key the filter was built from.
	MayContain(filter, key []byte) bool
}

// NewBloomFilter returns a FilterPolicy based on a bloom filter with
// approximately the given number of bits per key. A good value is 10,
// which yields a false positive rate of ~1%.
func NewBloomFilter(bitsPerKey int) FilterPolicy {
	if bitsPerKey < 0 {
		bitsPerKey = 0
	}
	return bloomFilter(bitsPerKey)
}

type bloomFilter int

func (p bloomFilter) Name() string { return "bstable.BloomFilter" }

func (p bloomFilter) AppendFilter(dst []byte, keys [][]byte) []byte {
	// 0.69 is approximately ln(2), the optimal probes-per-bit ratio.
	k := uint32(float64(p) * 0.69)
	if k < 1 {
		k = 1
	}
	if k > 30 {
		k = 30
	}

	nBits := len(keys) * int(p)
	// For small sets the false positive rate would be very high.
	// Enforce a minimum filter length.
	if nBits < 64 {
		nBits = 64
	}
	nBytes := (nBits + 7) / 8
	nBits = nBytes * 8

	base := len(dst)
	for i := 0; i <= nBytes; i++ {
		dst = append(dst, 0)
	}
	filter := dst[base : base+nBytes]

	for _, key := range keys {
		h := farm.Hash32(key)
		delta := h>>17 | h<<15 // double hashing
		for j := uint32(0); j < k; j++ {
			bitPos := h % uint32(nBits)
			filter[bitPos/8] |= 1 << (bitPos % 8)
			h += delta
		}
	}
	dst[base+nBytes] = uint8(k) // remember the probe count

	return dst
}

func (p bloomFilter) MayContain(filter, key []byte) bool {
	if len(filter) < 2 {
		return false
	}
	k := filter[len(filter)-1]
	if k > 30 {
		// Reserved for potential new encodings of short filters.
		// Consider it a match.
		return true
	}

	nBits := uint32(8 * (len(filter) - 1))
	h := farm.Hash32(key)
	delta := h>>17 | h<<15
	for j := uint8(0); j < k; j++ {
		bitPos := h % nBits
		if filter[bitPos/8]&(1<<(bitPos%8)) == 0 {
			return false
		}
		h += delta
	}
	return true
}
