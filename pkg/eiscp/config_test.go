package eiscp

import (
	"testing"
	"time"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

func TestConfigFromAdapter_Defaults(t *testing.T) {
	cfg := ConfigFromAdapter(device.AdapterConfig{Host: " 10.0.0.9 "})

	if cfg.Host != "10.0.0.9" {
		t.Errorf("host = %q", cfg.Host)
	}
	if cfg.Port != DefaultPort {
		t.Errorf("port = %d, want %d", cfg.Port, DefaultPort)
	}
	if cfg.PollInterval != 5*time.Second {
		t.Errorf("poll interval = %v, want 5s", cfg.PollInterval)
	}
	if cfg.RetryInterval != 10*time.Second {
		t.Errorf("retry interval = %v, want 10s", cfg.RetryInterval)
	}
	if cfg.VolumeMaxRaw != 160 {
		t.Errorf("volume max raw = %d, want 160", cfg.VolumeMaxRaw)
	}
}

func TestConfigFromAdapter_Clamps(t *testing.T) {
	cfg := ConfigFromAdapter(device.AdapterConfig{
		Host: "h",
		Meta: map[string]any{
			"pollIntervalMs":  100,     // below floor
			"retryIntervalMs": 9999999, // above ceiling
			"volumeMaxRaw":    0,       // below floor
		},
	})

	if cfg.PollInterval != 500*time.Millisecond {
		t.Errorf("poll interval = %v, want 500ms", cfg.PollInterval)
	}
	if cfg.RetryInterval != 300*time.Second {
		t.Errorf("retry interval = %v, want 300s", cfg.RetryInterval)
	}
	if cfg.VolumeMaxRaw != 1 {
		t.Errorf("volume max raw = %d, want 1", cfg.VolumeMaxRaw)
	}
}

func TestConfigFromAdapter_MetaCoercion(t *testing.T) {
	cfg := ConfigFromAdapter(device.AdapterConfig{
		Host: "h",
		Meta: map[string]any{
			"pollIntervalMs": "2000", // string number
			"useCrlf":        "true",
			"serialPort":     "/dev/ttyUSB0",
			"deviceUuid":     "uuid-1",
		},
	})

	if cfg.PollInterval != 2*time.Second {
		t.Errorf("poll interval = %v, want 2s", cfg.PollInterval)
	}
	if !cfg.UseCRLF {
		t.Error("useCrlf not coerced")
	}
	if cfg.SerialPath != "/dev/ttyUSB0" {
		t.Errorf("serial path = %q", cfg.SerialPath)
	}
	if cfg.DeviceUUID != "uuid-1" {
		t.Errorf("device uuid = %q", cfg.DeviceUUID)
	}
}

func TestConfigFromAdapter_ActiveCodes(t *testing.T) {
	// The code list arrives as []any from JSON, []string from Go callers,
	// or a JSON-encoded string from the meta table.
	for name, meta := range map[string]map[string]any{
		"any_slice":    {"activeSliCodes": []any{"02", "2e", float64(3)}},
		"string_slice": {"activeSliCodes": []string{"02", "2e", "3"}},
		"json_string":  {"activeSliCodes": `["02", "2e", "3"]`},
	} {
		cfg := ConfigFromAdapter(device.AdapterConfig{Host: "h", Meta: meta})
		want := []string{"02", "2E", "03"}
		if len(cfg.ActiveInputCodes) != len(want) {
			t.Errorf("%s: codes = %v", name, cfg.ActiveInputCodes)
			continue
		}
		for i := range want {
			if cfg.ActiveInputCodes[i] != want[i] {
				t.Errorf("%s: codes[%d] = %q, want %q", name, i, cfg.ActiveInputCodes[i], want[i])
			}
		}
	}
}

func TestConfigFromAdapter_InputLabels(t *testing.T) {
	cfg := ConfigFromAdapter(device.AdapterConfig{
		Host: "h",
		Meta: map[string]any{
			"inputLabel_23": "Apple TV",
			"inputLabel_02": " Console ",
			"notALabel":     "x",
		},
	})

	if len(cfg.InputLabels) != 2 {
		t.Fatalf("labels = %v", cfg.InputLabels)
	}
	if cfg.InputLabels["23"] != "Apple TV" || cfg.InputLabels["02"] != "Console" {
		t.Errorf("labels = %v", cfg.InputLabels)
	}
}

func TestInferModelFromIdentifier(t *testing.T) {
	cases := map[string]string{
		"Onkyo-TX-NR696-1A2B3C.local:60128": "TX-NR696",
		"Pioneer VSX-934":                   "VSX-934",
		"Onkyo TX-NR5100":                   "TX-NR5100",
		"Onkyo-Receiver":                    "", // no digits, not a model
		"10.0.0.9":                          "",
		"":                                  "",
	}
	for in, want := range cases {
		if got := inferModelFromIdentifier(in); got != want {
			t.Errorf("inferModelFromIdentifier(%q) = %q, want %q", in, got, want)
		}
	}
}
