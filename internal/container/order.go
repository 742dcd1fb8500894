package container

import (
	"bytes"
	"cmp"
	"encoding/json"
	"maps"
	"math"
	"slices"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// KeyOrder records the order in which a parsed payload listed the keys of
// each object. It is immutable once built and may be shared between
// containers.
type KeyOrder struct {
	rank   map[string]int
	fields map[string]*KeyOrder
	elems  []*KeyOrder
}

// name returns the key under which k was parsed: k itself, its obfuscated
// alias or its plain name.
func (o *KeyOrder) name(k string) (string, bool) {
	if _, ok := o.rank[k]; ok {
		return k, true
	}
	if alias, ok := keyAliases[k]; ok {
		if _, ok := o.rank[alias]; ok {
			return alias, true
		}
	}
	if plain, ok := reverseAliases[k]; ok {
		if _, ok := o.rank[plain]; ok {
			return plain, true
		}
	}
	return "", false
}

func (o *KeyOrder) field(k string) *KeyOrder {
	if o == nil {
		return nil
	}
	if name, ok := o.name(k); ok {
		return o.fields[name]
	}
	return nil
}

func (o *KeyOrder) elem(i int) *KeyOrder {
	if o == nil || i >= len(o.elems) {
		return nil
	}
	return o.elems[i]
}

// keys returns the keys of m in parse order. Keys added since are appended
// in sorted order.
func (o *KeyOrder) keys(m map[string]any) []string {
	keys := slices.Sorted(maps.Keys(m))
	if o == nil {
		return keys
	}
	rank := func(k string) int {
		if name, ok := o.name(k); ok {
			return o.rank[name]
		}
		return math.MaxInt
	}
	slices.SortStableFunc(keys, func(a, b string) int {
		return cmp.Compare(rank(a), rank(b))
	})
	return keys
}

// decodeOrdered reads one JSON value from dec along with the key order of
// the objects in it. Numbers come back as json.Number.
func decodeOrdered(dec *json.Decoder) (any, *KeyOrder, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, nil, err
	}
	delim, ok := tok.(json.Delim)
	if !ok {
		return tok, nil, nil
	}

	switch delim {
	case '{':
		m := map[string]any{}
		o := &KeyOrder{rank: map[string]int{}}
		for dec.More() {
			tok, err := dec.Token()
			if err != nil {
				return nil, nil, err
			}
			k, ok := tok.(string)
			if !ok {
				return nil, nil, errors.Newf("object key %v is not a string", tok)
			}
			v, child, err := decodeOrdered(dec)
			if err != nil {
				return nil, nil, err
			}
			if _, dup := o.rank[k]; !dup {
				o.rank[k] = len(o.rank)
			}
			m[k] = v
			if child != nil {
				if o.fields == nil {
					o.fields = map[string]*KeyOrder{}
				}
				o.fields[k] = child
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, nil, err
		}
		return m, o, nil
	case '[':
		arr := []any{}
		var elems []*KeyOrder
		nested := false
		for dec.More() {
			v, child, err := decodeOrdered(dec)
			if err != nil {
				return nil, nil, err
			}
			arr = append(arr, v)
			elems = append(elems, child)
			nested = nested || child != nil
		}
		if _, err := dec.Token(); err != nil {
			return nil, nil, err
		}
		if !nested {
			return arr, nil, nil
		}
		return arr, &KeyOrder{elems: elems}, nil
	default:
		return nil, nil, errors.Newf("unexpected %v", delim)
	}
}

// orderedEncoder writes compact JSON with object keys in a recorded order.
type orderedEncoder struct {
	buf *bytes.Buffer
	enc *json.Encoder
}

func newOrderedEncoder(buf *bytes.Buffer) *orderedEncoder {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	return &orderedEncoder{buf: buf, enc: enc}
}

func (e *orderedEncoder) encode(v any, o *KeyOrder) error {
	switch node := v.(type) {
	case map[string]any:
		e.buf.WriteByte('{')
		for i, k := range o.keys(node) {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err := e.scalar(k); err != nil {
				return err
			}
			e.buf.WriteByte(':')
			if err := e.encode(node[k], o.field(k)); err != nil {
				return err
			}
		}
		e.buf.WriteByte('}')
	case []any:
		e.buf.WriteByte('[')
		for i, child := range node {
			if i > 0 {
				e.buf.WriteByte(',')
			}
			if err := e.encode(child, o.elem(i)); err != nil {
				return err
			}
		}
		e.buf.WriteByte(']')
	default:
		return e.scalar(v)
	}
	return nil
}

// scalar writes v through encoding/json and drops the newline it appends.
func (e *orderedEncoder) scalar(v any) error {
	if err := e.enc.Encode(v); err != nil {
		return err
	}
	e.buf.Truncate(e.buf.Len() - 1)
	return nil
}
