package compress

import (
	"bytes"
	"encoding/binary"
	"math/rand/v2"
	"testing"

	"github.com/thoreinstein/nmsio/internal/errors"
)

func payload(n int) []byte {
	rng := rand.New(rand.NewPCG(7, uint64(n)))
	b := make([]byte, n)
	pattern := []byte(`{"Version":4135,"PlayerStateData":{"Units":-1221111157}}`)
	for i := range b {
		// Mostly compressible with some noise so LZ4 emits both literals and matches.
		if i%97 == 0 {
			b[i] = byte(rng.IntN(256))
		} else {
			b[i] = pattern[i%len(pattern)]
		}
	}
	return b
}

func TestBlock_RoundTrip(t *testing.T) {
	for _, n := range []int{0, 1, 15, 4096, 300_000} {
		src := payload(n)
		comp, err := CompressBlock(src)
		if err != nil {
			t.Fatalf("CompressBlock(%d) error = %v", n, err)
		}
		got, err := DecompressBlock(comp, n)
		if err != nil {
			t.Fatalf("DecompressBlock(%d) error = %v", n, err)
		}
		if !bytes.Equal(got, src) {
			t.Errorf("n=%d: round trip mismatch", n)
		}
	}
}

func TestDecompressBlock_WrongSize(t *testing.T) {
	src := payload(1000)
	comp, err := CompressBlock(src)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := DecompressBlock(comp, 10); err == nil {
		t.Error("DecompressBlock() with a too small size should fail")
	}
	if _, err := DecompressBlock(comp, -1); !errors.Is(err, ErrSizeMismatch) {
		t.Errorf("DecompressBlock(-1) error = %v, want ErrSizeMismatch", err)
	}
}

func TestStream_RoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		size   int
		chunks int
	}{
		{"empty", 0, 0},
		{"one partial chunk", 12_345, 1},
		{"exactly one chunk", MaxChunkSize, 1},
		{"one chunk plus one byte", MaxChunkSize + 1, 2},
		{"multiple chunks", 2*MaxChunkSize + MaxChunkSize/2, 3},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := payload(tt.size)
			stream, err := CompressStream(src)
			if err != nil {
				t.Fatalf("CompressStream() error = %v", err)
			}
			if !IsStream(stream) {
				t.Fatal("stream does not start with magic")
			}
			if got := countChunks(t, stream); got != tt.chunks {
				t.Errorf("chunks = %d, want %d", got, tt.chunks)
			}

			got, err := DecompressStream(stream, len(stream))
			if err != nil {
				t.Fatalf("DecompressStream() error = %v", err)
			}
			if !bytes.Equal(got, src) {
				t.Error("round trip mismatch")
			}
		})
	}
}

func countChunks(t *testing.T, stream []byte) int {
	t.Helper()
	n := 0
	for pos := len(StreamMagic); pos < len(stream); n++ {
		usize := binary.LittleEndian.Uint32(stream[pos:])
		if usize > MaxChunkSize {
			t.Fatalf("chunk %d declares %d bytes", n, usize)
		}
		pos += chunkHeaderSize + int(binary.LittleEndian.Uint32(stream[pos+4:]))
	}
	return n
}

func TestDecompressStream_IgnoresTrailingBytes(t *testing.T) {
	src := payload(5000)
	stream, err := CompressStream(src)
	if err != nil {
		t.Fatal(err)
	}
	padded := append(append([]byte{}, stream...), make([]byte, 64)...)

	got, err := DecompressStream(padded, len(stream))
	if err != nil {
		t.Fatalf("DecompressStream() error = %v", err)
	}
	if !bytes.Equal(got, src) {
		t.Error("declared total length was not honored")
	}
}

func TestDecompressStream_Errors(t *testing.T) {
	stream, err := CompressStream(payload(5000))
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"no magic", []byte("{\"Version\":1}"), ErrNotStream},
		{"truncated header", stream[:len(StreamMagic)+4], ErrTruncated},
		{"truncated body", stream[:len(stream)-3], ErrTruncated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecompressStream(tt.input, 0)
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPeekStream(t *testing.T) {
	src := payload(MaxChunkSize + 100)
	stream, err := CompressStream(src)
	if err != nil {
		t.Fatal(err)
	}
	head, err := PeekStream(stream)
	if err != nil {
		t.Fatalf("PeekStream() error = %v", err)
	}
	if !bytes.Equal(head, src[:MaxChunkSize]) {
		t.Error("PeekStream() did not return the first chunk")
	}
}

func TestSaveWizardWrapping(t *testing.T) {
	stream, err := CompressStream(payload(100))
	if err != nil {
		t.Fatal(err)
	}
	wrapped := WrapSaveWizard(stream)
	if !IsSaveWizard(wrapped) {
		t.Fatal("IsSaveWizard() = false")
	}
	if IsStream(wrapped) {
		t.Error("wrapped data must not look like a bare stream")
	}
	if !bytes.Equal(UnwrapSaveWizard(wrapped), stream) {
		t.Error("UnwrapSaveWizard() mismatch")
	}
	if !bytes.Equal(UnwrapSaveWizard(stream), stream) {
		t.Error("UnwrapSaveWizard() must leave unwrapped data alone")
	}
}

func TestFirstChunkEnd(t *testing.T) {
	stream, err := CompressStream(payload(MaxChunkSize + 100))
	if err != nil {
		t.Fatal(err)
	}
	end, ok := FirstChunkEnd(stream[:len(StreamMagic)+chunkHeaderSize])
	if !ok {
		t.Fatal("FirstChunkEnd() = false on a stream head")
	}
	first, err := PeekStream(stream[:end])
	if err != nil {
		t.Fatalf("PeekStream() on the first chunk error = %v", err)
	}
	if len(first) != MaxChunkSize {
		t.Errorf("first chunk = %d bytes, want %d", len(first), MaxChunkSize)
	}

	if _, ok := FirstChunkEnd(stream[:len(StreamMagic)+3]); ok {
		t.Error("FirstChunkEnd() accepted a truncated chunk header")
	}
	if _, ok := FirstChunkEnd([]byte(`{"F2P":4647}`)); ok {
		t.Error("FirstChunkEnd() accepted plain JSON")
	}
}
