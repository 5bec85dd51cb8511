package bstable

// Options define table construction specific options.
type Options struct {
	// BlockSize is the minimum uncompressed size in bytes of each table
	// block.
	//
	// Default: 4KiB.
	BlockSize int

	// BlockRestartInterval is the number of keys between restart points
	// for prefix compression of keys.
	//
	// Default: 16.
	BlockRestartInterval int

	// The compression codec to use.
	//
	// Default: SnappyCompression.
	Compression Compression

	// Comparer defines the total order over keys. It must match the
	// comparer used by any reader of the table.
	//
	// Default: DefaultComparer.
	Comparer Comparer

	// FilterPolicy, if set, enables the filter block. The same policy
	// must be used when reading the table.
	//
	// Default: nil (no filter block).
	FilterPolicy FilterPolicy
}

func (o *Options) norm() *Options {
	var oo Options
	if o != nil {
		oo = *o
	}

	if oo.BlockSize < 1 {
		oo.BlockSize = 1 << 12
	}
	if oo.BlockRestartInterval < 1 {
		oo.BlockRestartInterval = 16
	}
	if !oo.Compression.isValid() {
		oo.Compression = SnappyCompression
	}
	if oo.Comparer == nil {
		oo.Comparer = DefaultComparer
	}

	return &oo
}
