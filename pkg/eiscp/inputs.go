package eiscp

import (
	"fmt"
	"sort"
	"strings"
)

// builtinInputLabels maps the SLI codes most receivers report to their
// front-panel names.
var builtinInputLabels = map[string]string{
	"00": "Video 1",
	"01": "Video 2",
	"02": "GAME",
	"03": "AUX",
	"04": "Video 5",
	"05": "Video 6",
	"06": "Video 7",
	"10": "BD/DVD",
	"12": "TV",
	"20": "TV",
	"21": "TV/CD",
	"22": "Cable/Sat",
	"23": "HDMI 1",
	"24": "HDMI 2",
	"25": "HDMI 3",
	"26": "HDMI 4",
	"30": "CD",
	"31": "FM",
	"32": "AM",
	"40": "USB",
	"41": "Network",
	"44": "Bluetooth",
	"2E": "BT Audio",
	"80": "USB Front",
	"81": "USB Rear",
}

// InputRegistry is an immutable code-to-label snapshot. A new registry is
// built on every configuration change; nothing mutates one in place.
type InputRegistry struct {
	labels map[string]string
}

// NormalizeCode canonicalizes an input code to the 2-character zero-padded
// uppercase form used everywhere in this package.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) == 1 {
		code = "0" + code
	}
	return code
}

// GeneratedLabel is the fallback display label for a code without one.
func GeneratedLabel(code string) string {
	return fmt.Sprintf("SLI %s", code)
}

// BuildInputRegistry assembles the working label set in three stages:
// the built-in table, then the activeCodes allow-list (a non-empty list
// replaces the working set entirely, with generated labels for unknown
// codes), then per-code overrides. Overrides for codes outside a non-empty
// allow-list are ignored.
func BuildInputRegistry(activeCodes []string, overrides map[string]string) *InputRegistry {
	labels := make(map[string]string, len(builtinInputLabels))
	for code, label := range builtinInputLabels {
		labels[code] = label
	}

	active := make(map[string]bool, len(activeCodes))
	for _, raw := range activeCodes {
		code := NormalizeCode(raw)
		if code == "" {
			continue
		}
		active[code] = true
	}
	if len(active) > 0 {
		filtered := make(map[string]string, len(active))
		for code := range active {
			label := labels[code]
			if label == "" {
				label = GeneratedLabel(code)
			}
			filtered[code] = label
		}
		labels = filtered
	}

	for rawCode, rawLabel := range overrides {
		code := NormalizeCode(rawCode)
		if code == "" {
			continue
		}
		if len(active) > 0 && !active[code] {
			continue
		}
		label := strings.TrimSpace(rawLabel)
		if label == "" {
			label = GeneratedLabel(code)
		}
		labels[code] = label
	}

	return &InputRegistry{labels: labels}
}

// Label returns the display label for a code.
func (r *InputRegistry) Label(code string) (string, bool) {
	label, ok := r.labels[NormalizeCode(code)]
	return label, ok
}

// ResolveCode matches a label case-insensitively and returns its code. When
// no label matches, the input is returned unchanged so raw codes pass
// through.
func (r *InputRegistry) ResolveCode(labelOrCode string) string {
	want := strings.ToLower(strings.TrimSpace(labelOrCode))
	for code, label := range r.labels {
		if strings.ToLower(label) == want {
			return code
		}
	}
	return labelOrCode
}

// Codes returns the active codes in sorted order.
func (r *InputRegistry) Codes() []string {
	codes := make([]string, 0, len(r.labels))
	for code := range r.labels {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Len reports the number of active codes.
func (r *InputRegistry) Len() int {
	return len(r.labels)
}
