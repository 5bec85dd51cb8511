package bstable

import "bytes"

// Comparer defines a total ordering over the space of []byte keys.
type Comparer interface {
	// Compare returns -1, 0, or +1 depending on whether a is 'less
	// than', 'equal to' or 'greater than' b.
	Compare(a, b []byte) int

	// AppendSeparator appends a sequence of bytes x to dst such that
	// a <= x && x < b, where 'less than' is consistent with Compare.
	// An empty b means 'positive infinity': x only has to satisfy
	// a <= x. Implementations should keep x as short as possible; the
	// table writer uses it to synthesize index block keys.
	AppendSeparator(dst, a, b []byte) []byte
}

// DefaultComparer orders keys lexically by their bytes.
var DefaultComparer Comparer = defCmp{}

type defCmp struct{}

func (defCmp) Compare(a, b []byte) int {
	return bytes.Compare(a, b)
}

func (defCmp) AppendSeparator(dst, a, b []byte) []byte {
	i, n := SharedPrefixLen(a, b), len(dst)
	dst = append(dst, a...)
	if len(b) > 0 {
		if i == len(a) {
			return dst
		}
		if i == len(b) {
			panic("bstable: a < b is a precondition, but b is a prefix of a")
		}
		if a[i] == 0xff || a[i]+1 >= b[i] {
			// This isn't optimal, but it matches the C++ LevelDB
			// implementation, and it's good enough. For example, if a
			// is "1357" and b is "2", then the optimal (i.e. shortest)
			// result is appending "14", but we append "1357".
			return dst
		}
	}
	i += n
	for ; i < len(dst); i++ {
		if dst[i] != 0xff {
			dst[i]++
			return dst[:i+1]
		}
	}
	return dst
}

// SharedPrefixLen returns the largest i such that a[:i] equals b[:i].
func SharedPrefixLen(a, b []byte) int {
	i, n := 0, len(a)
	if n > len(b) {
		n = len(b)
	}
	for i < n && a[i] == b[i] {
		i++
	}
	return i
}
