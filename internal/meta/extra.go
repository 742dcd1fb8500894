package meta

import (
	"bytes"
	"reflect"
	"slices"

	"github.com/google/uuid"

	"github.com/thoreinstein/nmsio/internal/gameversion"
)

// Extra is the decoded content of a meta block plus the platform specific
// bookkeeping that travels with a container. It is a value type: holders
// replace it wholesale and never edit a shared copy in place.
type Extra struct {
	// MetaLength is the total byte length of the decoded block and selects
	// the layout when the block is encoded again.
	MetaLength int
	Era        gameversion.Era
	MetaFormat uint32

	DecompressedSize uint32
	CompressedSize   uint32
	SizeDisk         uint32
	ProfileHash      uint32
	MetaIndex        uint32
	Timestamp        uint32
	ChunkOffset      uint32
	ChunkSize        uint32

	// SaveWizard is set when the data file carried the SaveWizard signature;
	// it is written back with it.
	SaveWizard bool

	BaseVersion      int32
	GameMode         gameversion.GameMode
	Season           gameversion.Season
	TotalPlayTime    uint64
	SaveName         string
	SaveSummary      string
	DifficultyPreset uint8
	SlotIdentifier   uint64
	SlotTimestamp    uint32
	SlotFormat       uint32
	DifficultyTag    uint32

	// KeySlot is the persistent slot whose key decrypted the block. It
	// differs from the container's own slot when the block was relocated.
	KeySlot uint32

	Microsoft MicrosoftBlob

	// Bytes holds every byte of the block not covered by a known field, in
	// block order. Encode writes them back unchanged.
	Bytes []byte
}

// MicrosoftBlob holds a container's entry in containers.index and its blob
// container file.
type MicrosoftBlob struct {
	SyncTime      string
	BlobExtension uint8
	SyncState     uint32
	Directory     uuid.UUID
	LastModified  int64
	TotalSize     uint64
	CloudData     uuid.UUID
	CloudMeta     uuid.UUID
	LocalData     uuid.UUID
	LocalMeta     uuid.UUID
}

// Clone returns a deep copy of e.
func (e Extra) Clone() Extra {
	e.Bytes = slices.Clone(e.Bytes)
	return e
}

// Equal reports whether two values hold the same content.
func (e Extra) Equal(o Extra) bool {
	a, b := e, o
	a.Bytes, b.Bytes = nil, nil
	return reflect.DeepEqual(a, b) && bytes.Equal(e.Bytes, o.Bytes)
}

// HasSaveName reports whether the layout carries save name and summary.
func (e Extra) HasSaveName() bool {
	return e.Era >= gameversion.EraWaypoint
}
