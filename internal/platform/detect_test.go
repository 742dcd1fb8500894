package platform

import (
	"os"
	"path/filepath"
	"testing"
)

type pickyHooks struct {
	*plainHooks
}

func (pickyHooks) AcceptsRoot(root string) bool { return filepath.Base(root) != "rejected" }

func TestDetectLayout(t *testing.T) {
	base := t.TempDir()
	found := filepath.Join(base, "found")
	rejected := filepath.Join(base, "rejected")
	empty := filepath.Join(base, "empty")
	for _, dir := range []string{found, rejected, empty} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	writePlain(t, found, 2, `{}`)
	writePlain(t, found, 7, `{}`)
	writePlain(t, rejected, 2, `{}`)

	hooks := pickyHooks{newPlainHooks(KindSteam)}
	tests := []struct {
		name        string
		root        string
		wantStatus  LayoutStatus
		wantMatches int
	}{
		{"anchors present", found, StatusFound, 2},
		{"rejected by hooks", rejected, StatusRejected, 1},
		{"no anchors", empty, StatusNotFound, 0},
		{"missing directory", filepath.Join(base, "missing"), StatusNotFound, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DetectLayout(tt.root, hooks)
			if got.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", got.Status, tt.wantStatus)
			}
			if len(got.Matches) != tt.wantMatches {
				t.Errorf("Matches = %v, want %d entries", got.Matches, tt.wantMatches)
			}
			if got.Kind != KindSteam || got.Root != tt.root {
				t.Errorf("result = %+v, want kind steam and root %q", got, tt.root)
			}
		})
	}
}

func TestRegistry_Detect(t *testing.T) {
	root := t.TempDir()
	writePlain(t, root, 2, `{}`)

	r := NewRegistry()
	for _, k := range []Kind{KindSteam, KindGOG} {
		if err := r.Register(k, plainFactory(k)); err != nil {
			t.Fatal(err)
		}
	}

	results := r.Detect(root, KindGOG)
	if len(results) != 2 {
		t.Fatalf("Detect() returned %d results, want 2", len(results))
	}
	if results[0].Kind != KindGOG {
		t.Errorf("first result kind = %v, want gog", results[0].Kind)
	}
	for _, res := range results {
		if res.Status != StatusFound {
			t.Errorf("%v status = %q, want found", res.Kind, res.Status)
		}
	}
}
