package container

import (
	"bytes"
	"strconv"
	"strings"
	"testing"

	"github.com/thoreinstein/nmsio/internal/errors"
)

func itoa(i int) string { return strconv.Itoa(i) }

const samplePayload = `{"F2P":4135,"8>q":"Win64|Final","6f=":{"wGS":-1221111157,"F?0":[{"NKm":"Home","3?K":{"K7E":"7656","PTK":"ST"}}]},"CommonStateData":{"SaveName":"Alpha"}}`

func loaded(t *testing.T, payload string) *Container {
	t.Helper()
	c := New(2)
	c.SetExists(true)
	if err := c.LoadPayload([]byte(payload)); err != nil {
		t.Fatalf("LoadPayload() error = %v", err)
	}
	return c
}

func TestValue_Aliases(t *testing.T) {
	c := loaded(t, samplePayload)

	tests := []struct {
		path string
		want string
	}{
		{"Version", "4135"},
		{"F2P", "4135"},
		{"PlayerStateData.Units", "-1221111157"},
		{"6f=.wGS", "-1221111157"},
		{"PlayerStateData.PersistentPlayerBases[0].Name", "Home"},
		{"PlayerStateData.PersistentPlayerBases[0].Owner.UID", "7656"},
		{"CommonStateData.SaveName", "Alpha"},
		{"<h0.Pk4", "Alpha"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			v, ok := c.Value(tt.path)
			if !ok {
				t.Fatalf("Value(%q) not found", tt.path)
			}
			if got := toString(v); got != tt.want {
				t.Errorf("Value(%q) = %v, want %s", tt.path, got, tt.want)
			}
		})
	}
}

func toString(v any) string {
	switch x := v.(type) {
	case string:
		return x
	default:
		if n, ok := toInt64(x); ok {
			return strconv.FormatInt(n, 10)
		}
		return ""
	}
}

func TestValue_Missing(t *testing.T) {
	c := loaded(t, samplePayload)
	for _, path := range []string{
		"Nope",
		"PlayerStateData.Nope",
		"PlayerStateData.PersistentPlayerBases[3]",
		"PlayerStateData.Units.Deeper",
		"PlayerStateData[0]",
		"",
		"a..b",
		"a[x]",
		"a[1",
	} {
		if _, ok := c.Value(path); ok {
			t.Errorf("Value(%q) found", path)
		}
	}
	if _, ok := New(2).Value("Version"); ok {
		t.Error("Value() on unloaded container found something")
	}
}

func TestSetValue(t *testing.T) {
	c := loaded(t, samplePayload)

	if err := c.SetValue("PlayerStateData.Units", 29070100); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}
	if got, _ := c.Int("PlayerStateData.Units"); got != 29070100 {
		t.Errorf("Int() = %d", got)
	}
	// The existing obfuscated key is updated rather than a plain one added.
	tree := c.JSON()
	psd := tree["6f="].(map[string]any)
	if _, ok := psd["Units"]; ok {
		t.Error("SetValue() added a plain key next to the obfuscated one")
	}

	if err := c.SetValue("PlayerStateData.PersistentPlayerBases[0].Owner.UID", "999"); err != nil {
		t.Fatal(err)
	}
	if got, _ := c.Str("PlayerStateData.PersistentPlayerBases[0].Owner.UID"); got != "999" {
		t.Errorf("Str() = %q", got)
	}

	if err := c.SetValue("PlayerStateData.NewKey", true); err != nil {
		t.Errorf("creating a key in an existing object failed: %v", err)
	}
	if err := c.SetValue("Missing.Key", 1); !errors.Is(err, ErrPath) {
		t.Errorf("SetValue() error = %v, want ErrPath", err)
	}
	if err := c.SetValue("PlayerStateData.PersistentPlayerBases[7]", 1); !errors.Is(err, ErrPath) {
		t.Errorf("SetValue() error = %v, want ErrPath", err)
	}

	if err := New(2).SetValue("Version", 1); !errors.Is(err, errors.ErrOperationAborted) {
		t.Errorf("SetValue() on unloaded = %v, want ErrOperationAborted", err)
	}
}

func TestPayload_RoundTrip(t *testing.T) {
	in := []byte(`{"F2P":4135,"Name":"<Base & Co>","Big":18446744073709551615,"F":1.50}` + "\x00")
	c := loaded(t, string(in))

	out, err := c.Payload()
	if err != nil {
		t.Fatal(err)
	}
	if out[len(out)-1] != 0 {
		t.Error("trailing NUL dropped")
	}
	for _, want := range []string{`"<Base & Co>"`, `18446744073709551615`, `1.50`} {
		if !bytes.Contains(out, []byte(want)) {
			t.Errorf("Payload() = %s, missing %s", out, want)
		}
	}

	plain := loaded(t, `{"a":1}`)
	out, _ = plain.Payload()
	if string(out) != `{"a":1}` {
		t.Errorf("Payload() = %q", out)
	}
}

func TestParsePayload_Invalid(t *testing.T) {
	for _, in := range []string{``, `[1,2]`, `{"a":`, `null`} {
		if _, _, err := ParsePayload([]byte(in)); !errors.Is(err, errors.ErrJSON) {
			t.Errorf("ParsePayload(%q) error = %v, want ErrJSON", in, err)
		}
	}
}

func TestJSON_IsDeepCopy(t *testing.T) {
	c := loaded(t, samplePayload)
	tree := c.JSON()
	tree["6f="].(map[string]any)["wGS"] = 0
	if got, _ := c.Int("PlayerStateData.Units"); got != -1221111157 {
		t.Error("JSON() returned a shared tree")
	}

	c.MarkSynced()
	c.ReplaceJSON(tree)
	if got, _ := c.Int("PlayerStateData.Units"); got != 0 || c.IsSynced() {
		t.Errorf("ReplaceJSON() did not apply or did not unsync")
	}
}

func TestContainer_Unload(t *testing.T) {
	c := loaded(t, samplePayload)
	c.Unload()
	if c.IsLoaded() || !c.IsCompatible() {
		t.Error("Unload() should keep compatibility and drop the payload")
	}
}

// upperMapper renames top level keys to upper case and back.
type upperMapper struct{}

func (upperMapper) Deobfuscate(m map[string]any, _ bool) map[string]struct{} {
	unknown := map[string]struct{}{}
	for _, k := range keysOf(m) {
		if k == "skip" {
			unknown[k] = struct{}{}
			continue
		}
		v := m[k]
		delete(m, k)
		m[strings.ToUpper(k)] = v
	}
	return unknown
}

func (upperMapper) Obfuscate(m map[string]any, _ bool) {
	for _, k := range keysOf(m) {
		v := m[k]
		delete(m, k)
		m[strings.ToLower(k)] = v
	}
}

func keysOf(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	return keys
}

func TestMappedPayload(t *testing.T) {
	c := New(2)
	c.SetExists(true)
	if err := c.LoadMappedPayload([]byte(`{"abc":1,"skip":2}`), upperMapper{}); err != nil {
		t.Fatalf("LoadMappedPayload() error = %v", err)
	}
	if _, ok := c.Value("ABC"); !ok {
		t.Error("deobfuscated key ABC missing")
	}
	if got := c.UnknownKeys(); len(got) != 1 || got[0] != "skip" {
		t.Errorf("UnknownKeys() = %v, want [skip]", got)
	}

	out, err := c.MappedPayload(upperMapper{})
	if err != nil {
		t.Fatalf("MappedPayload() error = %v", err)
	}
	if want := `{"abc":1,"skip":2}`; string(out) != want {
		t.Errorf("MappedPayload() = %s, want %s", out, want)
	}
	if _, ok := c.Value("ABC"); !ok {
		t.Error("MappedPayload changed the in-memory payload")
	}

	if _, err := New(3).MappedPayload(upperMapper{}); !errors.Is(err, errors.ErrOperationAborted) {
		t.Errorf("MappedPayload(unloaded) error = %v, want aborted", err)
	}
}

func TestPayload_KeepsKeyOrder(t *testing.T) {
	c := loaded(t, samplePayload)

	out, err := c.Payload()
	if err != nil {
		t.Fatal(err)
	}
	if string(out) != samplePayload {
		t.Errorf("Payload() = %s\nwant %s", out, samplePayload)
	}

	if err := c.SetValue("PlayerStateData.Units", 5); err != nil {
		t.Fatal(err)
	}
	if err := c.SetValue("Zeta", 1); err != nil {
		t.Fatal(err)
	}
	if err := c.SetValue("Alpha", 2); err != nil {
		t.Fatal(err)
	}
	out, _ = c.Payload()
	want := `{"F2P":4135,"8>q":"Win64|Final","6f=":{"wGS":5,"F?0":[{"NKm":"Home","3?K":{"K7E":"7656","PTK":"ST"}}]},"CommonStateData":{"SaveName":"Alpha"},"Alpha":2,"Zeta":1}`
	if string(out) != want {
		t.Errorf("Payload() = %s\nwant %s", out, want)
	}
}

func TestKeyOrder_FollowsCopies(t *testing.T) {
	src := loaded(t, `{"b":1,"a":{"d":2,"c":3}}`)

	dst := New(4)
	dst.SetExists(true)
	dst.ReplaceJSON(src.JSON())
	out, _ := dst.Payload()
	if want := `{"a":{"c":3,"d":2},"b":1}`; string(out) != want {
		t.Errorf("Payload() without order = %s, want %s", out, want)
	}

	dst.SetKeyOrder(src.KeyOrder())
	out, _ = dst.Payload()
	if want := `{"b":1,"a":{"d":2,"c":3}}`; string(out) != want {
		t.Errorf("Payload() with order = %s, want %s", out, want)
	}
}
