package compress

import (
	"bytes"
	"encoding/binary"

	"github.com/thoreinstein/nmsio/internal/errors"
)

const (
	// MaxChunkSize is the uncompressed size of every chunk but the last.
	MaxChunkSize = 1 << 20

	chunkHeaderSize = 8
)

// StreamMagic starts every chunked stream.
var StreamMagic = []byte("HGSAVEV2\x00")

// SaveWizardMagic is the signature SaveWizard puts in front of a stream.
var SaveWizardMagic = []byte("NOMNOMNOM\n")

// Sentinel errors for chunked streams.
var (
	// ErrNotStream means the data does not start with StreamMagic.
	ErrNotStream = errors.New("not a chunked stream")
	// ErrTruncated means a chunk header or body extends past the stream end.
	ErrTruncated = errors.New("chunked stream truncated")
	// ErrChunkTooLarge means a chunk declares more than MaxChunkSize bytes.
	ErrChunkTooLarge = errors.New("chunk exceeds maximum size")
)

// IsStream reports whether b starts with the chunked stream magic.
func IsStream(b []byte) bool {
	return bytes.HasPrefix(b, StreamMagic)
}

// IsSaveWizard reports whether b starts with the SaveWizard signature.
func IsSaveWizard(b []byte) bool {
	return bytes.HasPrefix(b, SaveWizardMagic)
}

// CompressStream encodes payload as a chunked stream.
func CompressStream(payload []byte) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(len(StreamMagic) + len(payload)/2)
	buf.Write(StreamMagic)

	var header [chunkHeaderSize]byte
	for start := 0; start < len(payload); start += MaxChunkSize {
		end := min(start+MaxChunkSize, len(payload))
		chunk := payload[start:end]

		comp, err := CompressBlock(chunk)
		if err != nil {
			return nil, errors.Wrapf(err, "chunk at offset %d", start)
		}
		binary.LittleEndian.PutUint32(header[0:], uint32(len(chunk)))
		binary.LittleEndian.PutUint32(header[4:], uint32(len(comp)))
		buf.Write(header[:])
		buf.Write(comp)
	}
	return buf.Bytes(), nil
}

// DecompressStream decodes a chunked stream. total is the declared stream
// length including the magic; when it is zero or larger than the data,
// len(stream) is used. Bytes past total are ignored.
func DecompressStream(stream []byte, total int) ([]byte, error) {
	if !IsStream(stream) {
		return nil, ErrNotStream
	}
	if total <= 0 || total > len(stream) {
		total = len(stream)
	}

	var out bytes.Buffer
	pos := len(StreamMagic)
	for pos < total {
		if pos+chunkHeaderSize > total {
			return nil, errors.Wrapf(ErrTruncated, "chunk header at offset %d", pos)
		}
		usize := int(binary.LittleEndian.Uint32(stream[pos:]))
		csize := int(binary.LittleEndian.Uint32(stream[pos+4:]))
		pos += chunkHeaderSize

		if usize > MaxChunkSize {
			return nil, errors.Wrapf(ErrChunkTooLarge, "%d bytes at offset %d", usize, pos)
		}
		if pos+csize > total {
			return nil, errors.Wrapf(ErrTruncated, "chunk body at offset %d", pos)
		}

		chunk, err := DecompressBlock(stream[pos:pos+csize], usize)
		if err != nil {
			return nil, errors.Wrapf(err, "chunk at offset %d", pos)
		}
		out.Write(chunk)
		pos += csize
	}
	return out.Bytes(), nil
}

// PeekStream decompresses only the first chunk of a stream. It is used to
// sniff payload contents without inflating the whole file.
func PeekStream(stream []byte) ([]byte, error) {
	if !IsStream(stream) {
		return nil, ErrNotStream
	}
	pos := len(StreamMagic)
	if pos == len(stream) {
		return []byte{}, nil
	}
	if pos+chunkHeaderSize > len(stream) {
		return nil, ErrTruncated
	}
	usize := int(binary.LittleEndian.Uint32(stream[pos:]))
	csize := int(binary.LittleEndian.Uint32(stream[pos+4:]))
	pos += chunkHeaderSize
	if usize > MaxChunkSize {
		return nil, ErrChunkTooLarge
	}
	if pos+csize > len(stream) {
		return nil, ErrTruncated
	}
	return DecompressBlock(stream[pos:pos+csize], usize)
}

// FirstChunkEnd returns how many bytes of a stream hold its magic and first
// chunk. head must cover the first chunk header.
func FirstChunkEnd(head []byte) (int, bool) {
	pos := len(StreamMagic)
	if !IsStream(head) || pos+chunkHeaderSize > len(head) {
		return 0, false
	}
	csize := int(binary.LittleEndian.Uint32(head[pos+4:]))
	return pos + chunkHeaderSize + csize, true
}

// WrapSaveWizard prefixes a chunked stream with the SaveWizard signature.
func WrapSaveWizard(stream []byte) []byte {
	out := make([]byte, 0, len(SaveWizardMagic)+len(stream))
	out = append(out, SaveWizardMagic...)
	return append(out, stream...)
}

// UnwrapSaveWizard strips the SaveWizard signature. It returns the input
// unchanged if the signature is absent.
func UnwrapSaveWizard(b []byte) []byte {
	return bytes.TrimPrefix(b, SaveWizardMagic)
}
