package eiscp

import "testing"

func TestNormalizeCode(t *testing.T) {
	cases := map[string]string{
		"23":   "23",
		" 23 ": "23",
		"2e":   "2E",
		"2":    "02",
		"":     "",
	}
	for in, want := range cases {
		if got := NormalizeCode(in); got != want {
			t.Errorf("NormalizeCode(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBuildInputRegistry_Builtins(t *testing.T) {
	r := BuildInputRegistry(nil, nil)

	if r.Len() != len(builtinInputLabels) {
		t.Errorf("registry size = %d, want %d", r.Len(), len(builtinInputLabels))
	}
	label, ok := r.Label("23")
	if !ok || label != "HDMI 1" {
		t.Errorf(`Label("23") = %q, %v; want "HDMI 1", true`, label, ok)
	}
	label, ok = r.Label("2E")
	if !ok || label != "BT Audio" {
		t.Errorf(`Label("2E") = %q, %v; want "BT Audio", true`, label, ok)
	}
}

func TestBuildInputRegistry_AllowListReplacesSet(t *testing.T) {
	r := BuildInputRegistry([]string{"02", "10", "FF"}, nil)

	if r.Len() != 3 {
		t.Fatalf("registry size = %d, want 3", r.Len())
	}
	if _, ok := r.Label("23"); ok {
		t.Error("code 23 should not survive the allow-list")
	}
	if label, _ := r.Label("02"); label != "GAME" {
		t.Errorf(`Label("02") = %q, want "GAME"`, label)
	}
	// Unknown allowed codes get the generated fallback label.
	if label, _ := r.Label("FF"); label != "SLI FF" {
		t.Errorf(`Label("FF") = %q, want "SLI FF"`, label)
	}
}

func TestBuildInputRegistry_AllowListNormalizesCodes(t *testing.T) {
	r := BuildInputRegistry([]string{"2", " 2e "}, nil)

	if _, ok := r.Label("02"); !ok {
		t.Error("expected code 02 from raw entry \"2\"")
	}
	if _, ok := r.Label("2E"); !ok {
		t.Error("expected code 2E from raw entry \" 2e \"")
	}
}

func TestBuildInputRegistry_Overrides(t *testing.T) {
	r := BuildInputRegistry(nil, map[string]string{"23": "Apple TV"})

	if label, _ := r.Label("23"); label != "Apple TV" {
		t.Errorf(`Label("23") = %q, want "Apple TV"`, label)
	}
	// Other builtins untouched.
	if label, _ := r.Label("24"); label != "HDMI 2" {
		t.Errorf(`Label("24") = %q, want "HDMI 2"`, label)
	}
}

func TestBuildInputRegistry_OverrideOutsideAllowListIgnored(t *testing.T) {
	r := BuildInputRegistry([]string{"02"}, map[string]string{"23": "Apple TV"})

	if _, ok := r.Label("23"); ok {
		t.Error("override outside the allow-list must be ignored")
	}
	if r.Len() != 1 {
		t.Errorf("registry size = %d, want 1", r.Len())
	}
}

func TestBuildInputRegistry_EmptyOverrideGetsGeneratedLabel(t *testing.T) {
	r := BuildInputRegistry(nil, map[string]string{"23": "   "})

	if label, _ := r.Label("23"); label != "SLI 23" {
		t.Errorf(`Label("23") = %q, want "SLI 23"`, label)
	}
}

func TestResolveCode(t *testing.T) {
	r := BuildInputRegistry(nil, map[string]string{"23": "Apple TV"})

	if got := r.ResolveCode("apple tv"); got != "23" {
		t.Errorf(`ResolveCode("apple tv") = %q, want "23"`, got)
	}
	if got := r.ResolveCode("GAME"); got != "02" {
		t.Errorf(`ResolveCode("GAME") = %q, want "02"`, got)
	}
	// No label match: pass through untouched.
	if got := r.ResolveCode("44"); got != "44" {
		t.Errorf(`ResolveCode("44") = %q, want "44"`, got)
	}
}

func TestCodes_Sorted(t *testing.T) {
	r := BuildInputRegistry([]string{"30", "02", "10"}, nil)

	codes := r.Codes()
	want := []string{"02", "10", "30"}
	if len(codes) != len(want) {
		t.Fatalf("got %v", codes)
	}
	for i := range want {
		if codes[i] != want[i] {
			t.Errorf("codes[%d] = %q, want %q", i, codes[i], want[i])
		}
	}
}
