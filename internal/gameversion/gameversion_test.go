package gameversion

import "testing"

func TestSaveVersion_Examples(t *testing.T) {
	tests := []struct {
		name   string
		base   int
		mode   GameMode
		season Season
		want   int
	}{
		{"normal", 4135, Normal, SeasonNone, 4135 + 512},
		{"creative", 4140, Creative, SeasonNone, 4140 + 1024},
		{"permadeath carries season offset", 4135, Permadeath, 2, 4135 + 5*512 + 2*65536},
		{"seasonal before cutoff", 4139, Seasonal, 3, 4139 + 6*512 + 3*65536},
		{"seasonal after cutoff", 4146, Seasonal, 3, 4146 + 6*512},
		{"survival ignores season", 4146, Survival, 3, 4146 + 3*512},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SaveVersion(tt.base, tt.mode, tt.season); got != tt.want {
				t.Errorf("SaveVersion() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBaseVersion_Identity(t *testing.T) {
	seasons := []Season{0, 1, 2, 5, 15, 30}
	for base := 4000; base <= 5000; base++ {
		for _, mode := range GameModes() {
			for _, season := range seasons {
				save := SaveVersion(base, mode, season)
				if got := BaseVersion(save, mode, season); got != base {
					t.Fatalf("BaseVersion(SaveVersion(%d, %v, %d)) = %d", base, mode, season, got)
				}
			}
		}
	}
}

func TestInfer(t *testing.T) {
	tests := []struct {
		name       string
		save       int
		wantBase   int
		wantMode   GameMode
		wantSeason Season
	}{
		{"normal", 4135 + 512, 4135, Normal, 0},
		{"seasonal wide", 4139 + 6*512 + 3*65536, 4139, Seasonal, 3},
		{"permadeath", 4150 + 5*512 + 65536, 4150, Permadeath, 1},
		{"tiny number", 12, 12, Unspecified, 0},
		{"season on ordinary mode is rejected", 4135 + 512 + 65536, 4135 + 512 + 65536, Unspecified, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			base, mode, season := Infer(tt.save)
			if base != tt.wantBase || mode != tt.wantMode || season != tt.wantSeason {
				t.Errorf("Infer(%d) = (%d, %v, %d), want (%d, %v, %d)",
					tt.save, base, mode, season, tt.wantBase, tt.wantMode, tt.wantSeason)
			}
		})
	}
}

func TestEraFor(t *testing.T) {
	tests := []struct {
		base int
		want Era
	}{
		{4135, EraVanilla},
		{4140, EraWaypoint},
		{4151, EraWaypoint},
		{4152, EraWorldsPartI},
		{4160, EraWorldsPartII},
	}
	for _, tt := range tests {
		if got := EraFor(tt.base); got != tt.want {
			t.Errorf("EraFor(%d) = %v, want %v", tt.base, got, tt.want)
		}
	}
}

func TestMetaFormatFor(t *testing.T) {
	if got := MetaFormatFor(4100); got != MetaFormat0 {
		t.Errorf("MetaFormatFor(4100) = %#x", got)
	}
	if got := MetaFormatFor(4135); got != MetaFormat2 {
		t.Errorf("MetaFormatFor(4135) = %#x", got)
	}
	if got := MetaFormatFor(4153); got != MetaFormat4 {
		t.Errorf("MetaFormatFor(4153) = %#x", got)
	}
}

func TestGameMode_String(t *testing.T) {
	if Seasonal.String() != "Seasonal" {
		t.Errorf("Seasonal.String() = %q", Seasonal.String())
	}
	if GameMode(42).String() != "GameMode(42)" {
		t.Errorf("GameMode(42).String() = %q", GameMode(42).String())
	}
}
