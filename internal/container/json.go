package container

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/thoreinstein/nmsio/internal/errors"
)

// ErrPath is returned for malformed paths and paths that do not resolve.
var ErrPath = errors.New("json path")

// keyAliases maps plain key names to the obfuscated names the game writes.
var keyAliases = map[string]string{
	"Version":               "F2P",
	"Platform":              "8>q",
	"PlayerStateData":       "6f=",
	"CommonStateData":       "<h0",
	"Units":                 "wGS",
	"TotalPlayTime":         "Lg8",
	"SaveName":              "Pk4",
	"PersistentPlayerBases": "F?0",
	"Owner":                 "3?K",
	"UID":                   "K7E",
	"LID":                   "f5Q",
	"USN":                   "V?:",
	"PTK":                   "D6b",
	"Name":                  "NKm",
	"BaseType":              "peI",
	"PersistentBaseTypes":   "DPp",
}

var reverseAliases = func() map[string]string {
	m := make(map[string]string, len(keyAliases))
	for plain, obf := range keyAliases {
		m[obf] = plain
	}
	return m
}()

// ResolveKey returns the key under which name is stored in m: name itself,
// its obfuscated alias or its plain name.
func ResolveKey(m map[string]any, name string) (string, bool) {
	if _, ok := m[name]; ok {
		return name, true
	}
	if alias, ok := keyAliases[name]; ok {
		if _, ok := m[alias]; ok {
			return alias, true
		}
	}
	if plain, ok := reverseAliases[name]; ok {
		if _, ok := m[plain]; ok {
			return plain, true
		}
	}
	return "", false
}

// Lookup resolves a single key of m through ResolveKey.
func Lookup(m map[string]any, name string) (any, bool) {
	key, ok := ResolveKey(m, name)
	if !ok {
		return nil, false
	}
	return m[key], true
}

// ParsePayload decodes a JSON payload. Numbers are kept as json.Number so
// that re-encoding does not change their text. A trailing NUL terminator is
// accepted and reported.
func ParsePayload(plain []byte) (map[string]any, bool, error) {
	tree, _, nul, err := parseOrdered(plain)
	return tree, nul, err
}

// parseOrdered is ParsePayload that also returns the key order of the
// payload.
func parseOrdered(plain []byte) (map[string]any, *KeyOrder, bool, error) {
	trimmed := bytes.TrimRight(plain, "\x00")
	trailingNUL := len(trimmed) != len(plain)

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	v, order, err := decodeOrdered(dec)
	if err != nil {
		return nil, nil, trailingNUL, errors.Wrap(errors.ErrJSON, err.Error())
	}
	out, ok := v.(map[string]any)
	if !ok {
		return nil, nil, trailingNUL, errors.Wrap(errors.ErrJSON, "payload is not an object")
	}
	return out, order, trailingNUL, nil
}

// LoadPayload parses plain and installs it as the container payload. Parse
// failures are returned, not recorded; the caller decides.
func (c *Container) LoadPayload(plain []byte) error {
	return c.LoadMappedPayload(plain, nil)
}

// LoadMappedPayload is LoadPayload with key deobfuscation. The keys d could
// not map are recorded as UnknownKeys.
func (c *Container) LoadMappedPayload(plain []byte, d Deobfuscator) error {
	tree, order, nul, err := parseOrdered(plain)
	if err != nil {
		return err
	}
	var unknown map[string]struct{}
	if d != nil {
		unknown = d.Deobfuscate(tree, c.IsAccount())
	}
	c.mu.Lock()
	c.payload = tree
	c.order = order
	c.trailingNUL = nul
	c.unknownKeys = unknown
	c.mu.Unlock()
	c.clearMemos()
	c.notifyJSONChanged()
	return nil
}

// Payload encodes the current payload, NUL terminated when the loaded one
// was.
func (c *Container) Payload() ([]byte, error) {
	return c.MappedPayload(nil)
}

// MappedPayload encodes the payload with its keys obfuscated by d. The
// in-memory payload is left as it is.
func (c *Container) MappedPayload(d Deobfuscator) ([]byte, error) {
	c.mu.RLock()
	tree, order, nul := c.payload, c.order, c.trailingNUL
	if tree != nil && d != nil {
		tree = cloneValue(tree).(map[string]any)
	}
	c.mu.RUnlock()
	if tree == nil {
		return nil, errors.Aborted("%s is not loaded", c.Identifier())
	}
	if d != nil {
		d.Obfuscate(tree, c.IsAccount())
	}
	return EncodePayload(tree, order, nul)
}

// EncodePayload encodes tree compactly with HTML escaping off, as the game
// writes it. Object keys follow order; keys it does not know, and every key
// when order is nil, come after in sorted order.
func EncodePayload(tree map[string]any, order *KeyOrder, nul bool) ([]byte, error) {
	var buf bytes.Buffer
	if err := newOrderedEncoder(&buf).encode(tree, order); err != nil {
		return nil, errors.Wrap(err, "encoding payload")
	}
	if nul {
		buf.WriteByte(0)
	}
	return buf.Bytes(), nil
}

// KeyOrder returns the key order of the loaded payload, or nil.
func (c *Container) KeyOrder() *KeyOrder {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.order
}

// SetKeyOrder sets the key order used when the payload is encoded. Copies
// between containers carry it along with the JSON.
func (c *Container) SetKeyOrder(o *KeyOrder) {
	c.mu.Lock()
	c.order = o
	c.mu.Unlock()
}

// JSON returns a deep copy of the payload, or nil when not loaded.
func (c *Container) JSON() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.payload == nil {
		return nil
	}
	return cloneValue(c.payload).(map[string]any)
}

// ReplaceJSON installs a new payload, marks the container unsynced and
// notifies subscribers.
func (c *Container) ReplaceJSON(tree map[string]any) {
	tree = cloneValue(tree).(map[string]any)
	c.mu.Lock()
	c.payload = tree
	c.synced = false
	c.mu.Unlock()
	c.clearMemos()
	c.notifyJSONChanged()
	c.notifyPropertyChanged(PropertySynced)
}

// Value returns the value at path.
func (c *Container) Value(path string) (any, bool) {
	steps, err := parsePath(path)
	if err != nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.payload == nil {
		return nil, false
	}
	v, ok := walk(c.payload, steps)
	if !ok {
		return nil, false
	}
	return cloneValue(v), true
}

// Int returns the integer at path.
func (c *Container) Int(path string) (int64, bool) {
	v, ok := c.Value(path)
	if !ok {
		return 0, false
	}
	return toInt64(v)
}

// Str returns the string at path.
func (c *Container) Str(path string) (string, bool) {
	v, ok := c.Value(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetValue replaces the value at path. The parent must exist; a missing
// final key is created in a parent object.
func (c *Container) SetValue(path string, value any) error {
	steps, err := parsePath(path)
	if err != nil {
		return err
	}
	c.mu.Lock()
	if c.payload == nil {
		c.mu.Unlock()
		return errors.Aborted("%s is not loaded", c.Identifier())
	}
	err = set(c.payload, steps, normalizeValue(value))
	if err == nil {
		c.synced = false
	}
	c.mu.Unlock()
	if err != nil {
		return errors.Wrapf(err, "%s", path)
	}
	c.clearMemos()
	c.notifyJSONChanged()
	c.notifyPropertyChanged(PropertySynced)
	return nil
}

// jsonSaveVersion returns the payload's version field.
func (c *Container) jsonSaveVersion() (int, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.payload == nil {
		return 0, false
	}
	v, ok := Lookup(c.payload, "Version")
	if !ok {
		return 0, false
	}
	n, ok := toInt64(v)
	return int(n), ok
}

type step struct {
	key   string
	index int
}

// parsePath splits "A.B[2].C" into steps. Index steps have an empty key.
func parsePath(path string) ([]step, error) {
	if path == "" {
		return nil, errors.Wrap(ErrPath, "empty path")
	}
	var steps []step
	for _, part := range strings.Split(path, ".") {
		name, rest, _ := strings.Cut(part, "[")
		if name == "" && rest == "" {
			return nil, errors.Wrapf(ErrPath, "empty segment in %q", path)
		}
		if name != "" {
			steps = append(steps, step{key: name})
		}
		for rest != "" {
			num, after, ok := strings.Cut(rest, "]")
			if !ok {
				return nil, errors.Wrapf(ErrPath, "unterminated index in %q", path)
			}
			i, err := strconv.Atoi(num)
			if err != nil || i < 0 {
				return nil, errors.Wrapf(ErrPath, "bad index %q in %q", num, path)
			}
			steps = append(steps, step{index: i})
			rest = strings.TrimPrefix(after, "[")
			if after != "" && !strings.HasPrefix(after, "[") {
				return nil, errors.Wrapf(ErrPath, "unexpected %q in %q", after, path)
			}
		}
	}
	return steps, nil
}

func walk(v any, steps []step) (any, bool) {
	for _, s := range steps {
		switch node := v.(type) {
		case map[string]any:
			if s.key == "" {
				return nil, false
			}
			next, ok := Lookup(node, s.key)
			if !ok {
				return nil, false
			}
			v = next
		case []any:
			if s.key != "" || s.index >= len(node) {
				return nil, false
			}
			v = node[s.index]
		default:
			return nil, false
		}
	}
	return v, true
}

func set(root map[string]any, steps []step, value any) error {
	parent, ok := walk(root, steps[:len(steps)-1])
	if !ok {
		return errors.Wrap(ErrPath, "parent not found")
	}
	last := steps[len(steps)-1]
	switch node := parent.(type) {
	case map[string]any:
		if last.key == "" {
			return errors.Wrap(ErrPath, "index into object")
		}
		key, ok := ResolveKey(node, last.key)
		if !ok {
			key = last.key
		}
		node[key] = value
	case []any:
		if last.key != "" || last.index >= len(node) {
			return errors.Wrap(ErrPath, "index out of range")
		}
		node[last.index] = value
	default:
		return errors.Wrap(ErrPath, "parent is not a container")
	}
	return nil
}

// normalizeValue turns Go integers into json.Number so that reads after a
// write see the same type as reads after a load.
func normalizeValue(v any) any {
	switch n := v.(type) {
	case int:
		return json.Number(strconv.FormatInt(int64(n), 10))
	case int32:
		return json.Number(strconv.FormatInt(int64(n), 10))
	case int64:
		return json.Number(strconv.FormatInt(n, 10))
	case uint32:
		return json.Number(strconv.FormatUint(uint64(n), 10))
	case uint64:
		return json.Number(strconv.FormatUint(n, 10))
	case map[string]any, []any:
		return cloneValue(n)
	default:
		return v
	}
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		f, err := n.Float64()
		if err != nil || f != math.Trunc(f) {
			return 0, false
		}
		return int64(f), true
	case float64:
		if n != math.Trunc(n) {
			return 0, false
		}
		return int64(n), true
	case int:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func cloneValue(v any) any {
	switch node := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(node))
		for k, child := range node {
			out[k] = cloneValue(child)
		}
		return out
	case []any:
		out := make([]any, len(node))
		for i, child := range node {
			out[i] = cloneValue(child)
		}
		return out
	default:
		return v
	}
}
