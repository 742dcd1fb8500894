package compress

import (
	"github.com/pierrec/lz4/v4"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// ErrSizeMismatch is returned when a block does not decompress to the size
// recorded for it.
var ErrSizeMismatch = errors.New("decompressed size mismatch")

// CompressBlock compresses src into a single LZ4 block.
func CompressBlock(src []byte) ([]byte, error) {
	if len(src) == 0 {
		return []byte{}, nil
	}
	dst := make([]byte, lz4.CompressBlockBound(len(src)))
	n, err := lz4.CompressBlock(src, dst, nil)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 compress")
	}
	return dst[:n], nil
}

// DecompressBlock decompresses a single LZ4 block whose decompressed length
// is size.
func DecompressBlock(src []byte, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	if size < 0 {
		return nil, errors.Wrapf(ErrSizeMismatch, "negative size %d", size)
	}
	dst := make([]byte, size)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, errors.Wrap(err, "lz4 decompress")
	}
	if n != size {
		return nil, errors.Wrapf(ErrSizeMismatch, "got %d bytes, want %d", n, size)
	}
	return dst, nil
}
