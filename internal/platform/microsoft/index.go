package microsoft

import (
	"bytes"
	"encoding/binary"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/unicode"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// IndexName is the name of the shared index in a wgs account directory.
const IndexName = "containers.index"

const indexHeader = 14

// Sync states of containers.index.
const (
	SyncUnknown  uint32 = 0
	SyncSynced   uint32 = 1
	SyncModified uint32 = 2
	SyncDeleted  uint32 = 3
	SyncCreated  uint32 = 5
)

// Sentinel errors for the index and blob container codecs.
var (
	// ErrIndexHeader means containers.index does not start with the
	// expected header.
	ErrIndexHeader = errors.New("containers.index header mismatch")
	// ErrShortRead means a structure ends before its declared content.
	ErrShortRead = errors.New("unexpected end of data")
)

var utf16 = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// Index is the content of containers.index.
type Index struct {
	ProcessIdentifier string
	LastModified      time.Time
	SyncState         uint32
	AccountGUID       string
	Unknown           uint64
	Entries           []Entry
}

// Entry is one container of the index.
type Entry struct {
	Identifier    string
	Identifier2   string
	SyncTime      string
	BlobExtension uint8
	SyncState     uint32
	Directory     uuid.UUID
	LastModified  time.Time
	Reserved      uint64
	TotalSize     uint64
}

// Entry returns the entry with an identifier.
func (x *Index) Entry(identifier string) (*Entry, bool) {
	for i := range x.Entries {
		if x.Entries[i].Identifier == identifier {
			return &x.Entries[i], true
		}
	}
	return nil, false
}

// Remove deletes the entry with an identifier and reports whether it
// existed.
func (x *Index) Remove(identifier string) bool {
	for i := range x.Entries {
		if x.Entries[i].Identifier == identifier {
			x.Entries = append(x.Entries[:i], x.Entries[i+1:]...)
			return true
		}
	}
	return false
}

// UserID returns the decimal user id encoded as hex before the first
// underscore of the account GUID.
func (x *Index) UserID() string {
	hex, _, _ := strings.Cut(x.AccountGUID, "_")
	n, err := strconv.ParseUint(hex, 16, 64)
	if err != nil || n == 0 {
		return ""
	}
	return strconv.FormatUint(n, 10)
}

// ParseIndex decodes containers.index.
func ParseIndex(b []byte) (*Index, error) {
	r := &reader{b: b}
	if h := r.u32(); h != indexHeader {
		if r.err != nil {
			return nil, r.err
		}
		return nil, errors.Wrapf(ErrIndexHeader, "got %d", h)
	}
	count := r.u64()
	x := &Index{
		ProcessIdentifier: r.str(),
		LastModified:      fromFiletime(r.i64()),
		SyncState:         r.u32(),
		AccountGUID:       r.str(),
		Unknown:           r.u64(),
	}
	for i := uint64(0); i < count && r.err == nil; i++ {
		e := Entry{
			Identifier:    r.str(),
			Identifier2:   r.str(),
			SyncTime:      r.str(),
			BlobExtension: r.u8(),
			SyncState:     r.u32(),
			Directory:     r.guid(),
			LastModified:  fromFiletime(r.i64()),
			Reserved:      r.u64(),
			TotalSize:     r.u64(),
		}
		x.Entries = append(x.Entries, e)
	}
	if r.err != nil {
		return nil, errors.Wrap(r.err, "parsing containers.index")
	}
	return x, nil
}

// Marshal encodes the index.
func (x *Index) Marshal() ([]byte, error) {
	w := &writer{}
	w.u32(indexHeader)
	w.u64(uint64(len(x.Entries)))
	w.str(x.ProcessIdentifier)
	w.i64(toFiletime(x.LastModified))
	w.u32(x.SyncState)
	w.str(x.AccountGUID)
	w.u64(x.Unknown)
	for _, e := range x.Entries {
		w.str(e.Identifier)
		w.str(e.Identifier2)
		w.str(e.SyncTime)
		w.u8(e.BlobExtension)
		w.u32(e.SyncState)
		w.guid(e.Directory)
		w.i64(toFiletime(e.LastModified))
		w.u64(e.Reserved)
		w.u64(e.TotalSize)
	}
	if w.err != nil {
		return nil, errors.Wrap(w.err, "encoding containers.index")
	}
	return w.buf.Bytes(), nil
}

// FILETIME counts 100ns intervals since 1601-01-01 UTC.
const filetimeEpochDelta = 116444736000000000

func toFiletime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()/100 + filetimeEpochDelta
}

func fromFiletime(ft int64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	return time.Unix(0, (ft-filetimeEpochDelta)*100)
}

// Truncate rounds t down to FILETIME precision.
func Truncate(t time.Time) time.Time {
	return fromFiletime(toFiletime(t))
}

// guidBytes returns u in the mixed endian order Windows stores GUIDs in.
func guidBytes(u uuid.UUID) [16]byte {
	var b [16]byte
	binary.LittleEndian.PutUint32(b[0:], binary.BigEndian.Uint32(u[0:]))
	binary.LittleEndian.PutUint16(b[4:], binary.BigEndian.Uint16(u[4:]))
	binary.LittleEndian.PutUint16(b[6:], binary.BigEndian.Uint16(u[6:]))
	copy(b[8:], u[8:])
	return b
}

func guidFromBytes(b []byte) uuid.UUID {
	var u uuid.UUID
	binary.BigEndian.PutUint32(u[0:], binary.LittleEndian.Uint32(b[0:]))
	binary.BigEndian.PutUint16(u[4:], binary.LittleEndian.Uint16(b[4:]))
	binary.BigEndian.PutUint16(u[6:], binary.LittleEndian.Uint16(b[6:]))
	copy(u[8:], b[8:16])
	return u
}

// FileName returns the name Windows gives files and directories named
// after a GUID: 32 upper case hex digits.
func FileName(u uuid.UUID) string {
	return strings.ToUpper(strings.ReplaceAll(u.String(), "-", ""))
}

type reader struct {
	b   []byte
	pos int
	err error
}

func (r *reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.b) {
		r.err = errors.Wrapf(ErrShortRead, "%d bytes at offset %d", n, r.pos)
		return nil
	}
	out := r.b[r.pos : r.pos+n]
	r.pos += n
	return out
}

func (r *reader) u8() uint8 {
	if b := r.take(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *reader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *reader) i64() int64 { return int64(r.u64()) }

func (r *reader) guid() uuid.UUID {
	if b := r.take(16); b != nil {
		return guidFromBytes(b)
	}
	return uuid.Nil
}

// str reads a string stored as a character count followed by UTF-16.
func (r *reader) str() string {
	n := int(r.u32())
	b := r.take(n * 2)
	if b == nil {
		return ""
	}
	s, err := utf16.NewDecoder().Bytes(b)
	if err != nil {
		r.err = errors.Wrap(err, "decoding utf-16")
		return ""
	}
	return string(s)
}

// name reads a fixed size, NUL padded UTF-16 field.
func (r *reader) name(size int) string {
	b := r.take(size)
	if b == nil {
		return ""
	}
	s, err := utf16.NewDecoder().Bytes(b)
	if err != nil {
		r.err = errors.Wrap(err, "decoding utf-16")
		return ""
	}
	if i := bytes.IndexByte(s, 0); i >= 0 {
		s = s[:i]
	}
	return string(s)
}

type writer struct {
	buf bytes.Buffer
	err error
}

func (w *writer) u8(v uint8) { w.buf.WriteByte(v) }

func (w *writer) u32(v uint32) {
	w.buf.Write(binary.LittleEndian.AppendUint32(nil, v))
}

func (w *writer) u64(v uint64) {
	w.buf.Write(binary.LittleEndian.AppendUint64(nil, v))
}

func (w *writer) i64(v int64) { w.u64(uint64(v)) }

func (w *writer) guid(u uuid.UUID) {
	b := guidBytes(u)
	w.buf.Write(b[:])
}

func (w *writer) encode(s string) []byte {
	b, err := utf16.NewEncoder().Bytes([]byte(s))
	if err != nil && w.err == nil {
		w.err = errors.Wrapf(err, "encoding %q as utf-16", s)
	}
	return b
}

func (w *writer) str(s string) {
	b := w.encode(s)
	w.u32(uint32(len(b) / 2))
	w.buf.Write(b)
}

func (w *writer) name(s string, size int) {
	b := w.encode(s)
	if len(b) > size {
		if w.err == nil {
			w.err = errors.Newf("name %q exceeds %d bytes", s, size)
		}
		b = b[:size]
	}
	w.buf.Write(b)
	w.buf.Write(make([]byte, size-len(b)))
}
