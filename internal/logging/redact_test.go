package logging

import "testing"

func TestShouldMask(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{"uid", true},
		{"steam_id", true},
		{"Account", true},
		{"owner_usn", true},
		{"container", false},
		{"path", false},
	}
	for _, tt := range tests {
		if got := ShouldMask(tt.key); got != tt.want {
			t.Errorf("ShouldMask(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}

func TestLooksLikeSteamID(t *testing.T) {
	tests := []struct {
		value string
		want  bool
	}{
		{"76561198000000001", true},
		{"7656119800000000", false},
		{"76561198x00000001", false},
		{"12345678901234567", false},
	}
	for _, tt := range tests {
		if got := LooksLikeSteamID(tt.value); got != tt.want {
			t.Errorf("LooksLikeSteamID(%q) = %v, want %v", tt.value, got, tt.want)
		}
	}
}

func TestMaskValue(t *testing.T) {
	if got := MaskValue("abc"); got != "********" {
		t.Errorf("MaskValue(short) = %q", got)
	}
	if got := MaskValue("76561198000000001"); got != "****0001" {
		t.Errorf("MaskValue() = %q, want ****0001", got)
	}
}
