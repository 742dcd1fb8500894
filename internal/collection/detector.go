package collection

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/thoreinstein/nmsio/internal/compress"
	"github.com/thoreinstein/nmsio/internal/container"
	"github.com/thoreinstein/nmsio/internal/errors"
	"github.com/thoreinstein/nmsio/internal/platform"
	"github.com/thoreinstein/nmsio/pkg/fileutil"
)

// HeadLength is how many leading bytes of a file classification reads.
const HeadLength = 0xA0

var (
	playstationTags = [][]byte{[]byte("PS4|Final"), []byte("PS5|Final")}
	switchTags      = [][]byte{[]byte("NX1|Final")}
	jsonPrefixes    = [][]byte{[]byte(`{"F2P":`), []byte(`{"Version":`)}

	digits = regexp.MustCompile(`[0-9]+`)
)

// Detection is what the start of a single file reveals about it.
type Detection struct {
	Kind      platform.Kind
	MetaIndex int

	// MemoryDat is set for PlayStation data whose name carries no slot
	// number. Only the legacy layout stores such files.
	MemoryDat bool

	// SaveWizard is set when the file carries the SaveWizard signature.
	SaveWizard bool
}

func (d Detection) String() string {
	s := fmt.Sprintf("%s meta index %d", d.Kind, d.MetaIndex)
	if d.MemoryDat {
		s += " (memory.dat)"
	}
	if d.SaveWizard {
		s += " (SaveWizard)"
	}
	return s
}

// DetectFile classifies the file at path. For chunked streams the first
// chunk is decompressed to find the architecture tag of the payload.
func DetectFile(path string) (Detection, error) {
	head, err := fileutil.ReadHead(path, HeadLength)
	if err != nil {
		return Detection{}, errors.Wrapf(err, "reading %s", filepath.Base(path))
	}

	var payload []byte
	stream := compress.UnwrapSaveWizard(head)
	if end, ok := compress.FirstChunkEnd(stream); ok {
		skip := len(head) - len(stream)
		if full, err := fileutil.ReadHead(path, skip+end); err == nil {
			payload, _ = compress.PeekStream(full[skip:])
		}
	}
	return Detect(filepath.Base(path), head, payload), nil
}

// Detect classifies a file from its name, its first HeadLength bytes and,
// for chunked streams, the start of the decompressed payload. Anything
// unrecognized is taken for Microsoft data, whose blobs carry no marker.
func Detect(name string, head, payload []byte) Detection {
	if len(head) > HeadLength {
		head = head[:HeadLength]
	}
	stream := compress.IsStream(head)
	text := head
	if stream {
		text = payload
	}

	d := Detection{Kind: platform.KindMicrosoft}
	switch {
	case compress.IsSaveWizard(head):
		d.Kind = platform.KindPlayStation
		d.SaveWizard = true
	case stream && containsAny(text, playstationTags):
		d.Kind = platform.KindPlayStation
	case stream || hasAnyPrefix(head, jsonPrefixes):
		d.Kind = platform.KindSteam
		if containsAny(text, switchTags) {
			d.Kind = platform.KindSwitch
		}
	}

	mi, ok := MetaIndexFromName(d.Kind, name)
	d.MetaIndex = mi
	d.MemoryDat = d.Kind == platform.KindPlayStation && !ok
	return d
}

// MetaIndexFromName derives a meta index from the digits in a file name.
// Steam numbers its saves from one below the meta index; the consoles use
// the meta index itself. Values outside the slot range fall back to the
// first save. ok is false when the name holds no usable number.
func MetaIndexFromName(kind platform.Kind, name string) (metaIndex int, ok bool) {
	base := strings.ToLower(filepath.Base(name))
	if kind == platform.KindSteam || kind == platform.KindGOG {
		if strings.Contains(base, "accountdata") {
			return container.AccountIndex, true
		}
		n, found := number(base)
		if !found {
			// save.hg
			return container.FirstSaveIndex, strings.Contains(base, "save")
		}
		return wrap(n + 1), true
	}
	if kind == platform.KindMicrosoft {
		return container.FirstSaveIndex, false
	}

	n, found := number(base)
	if !found {
		return container.FirstSaveIndex, false
	}
	return wrap(n), true
}

func number(name string) (int, bool) {
	m := digits.FindString(name)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return -1, true
	}
	return n, true
}

func wrap(metaIndex int) int {
	if metaIndex == container.AccountIndex {
		return metaIndex
	}
	if metaIndex < container.FirstSaveIndex || metaIndex > container.LastSaveIndex {
		return container.FirstSaveIndex
	}
	return metaIndex
}

func containsAny(b []byte, subs [][]byte) bool {
	for _, s := range subs {
		if bytes.Contains(b, s) {
			return true
		}
	}
	return false
}

func hasAnyPrefix(b []byte, prefixes [][]byte) bool {
	for _, p := range prefixes {
		if bytes.HasPrefix(b, p) {
			return true
		}
	}
	return false
}
