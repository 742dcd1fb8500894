package microsoft

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/thoreinstein/nmsio/internal/errors"
)

const (
	blobContainerHeader = 4
	blobNameSize        = 128
)

// Blob names inside a blob container.
const (
	BlobData = "data"
	BlobMeta = "meta"
)

// ErrBlobHeader means a blob container does not start with the expected
// header.
var ErrBlobHeader = errors.New("blob container header mismatch")

// Blob is one file listed in a blob container.
type Blob struct {
	Name  string
	Cloud uuid.UUID
	Local uuid.UUID
}

// BlobContainer is the content of a container.<ext> file.
type BlobContainer struct {
	Blobs []Blob
}

// BlobContainerName returns the file name of a blob container.
func BlobContainerName(ext uint8) string {
	return fmt.Sprintf("container.%d", ext)
}

// Blob returns the blob with a name.
func (bc *BlobContainer) Blob(name string) (Blob, bool) {
	for _, b := range bc.Blobs {
		if b.Name == name {
			return b, true
		}
	}
	return Blob{}, false
}

// ParseBlobContainer decodes a container.<ext> file.
func ParseBlobContainer(b []byte) (*BlobContainer, error) {
	r := &reader{b: b}
	if h := r.u32(); h != blobContainerHeader {
		if r.err != nil {
			return nil, r.err
		}
		return nil, errors.Wrapf(ErrBlobHeader, "got %d", h)
	}
	count := r.u32()
	bc := &BlobContainer{}
	for i := uint32(0); i < count && r.err == nil; i++ {
		bc.Blobs = append(bc.Blobs, Blob{
			Name:  r.name(blobNameSize),
			Cloud: r.guid(),
			Local: r.guid(),
		})
	}
	if r.err != nil {
		return nil, errors.Wrap(r.err, "parsing blob container")
	}
	return bc, nil
}

// Marshal encodes the blob container.
func (bc *BlobContainer) Marshal() ([]byte, error) {
	w := &writer{}
	w.u32(blobContainerHeader)
	w.u32(uint32(len(bc.Blobs)))
	for _, b := range bc.Blobs {
		w.name(b.Name, blobNameSize)
		w.guid(b.Cloud)
		w.guid(b.Local)
	}
	if w.err != nil {
		return nil, errors.Wrap(w.err, "encoding blob container")
	}
	return w.buf.Bytes(), nil
}
