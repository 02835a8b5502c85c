package eiscp

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

// Defaults and clamp ranges for the adapter tuning surface. The host owns
// the raw values; everything is clamped here before use.
const (
	DefaultPort = 60128

	defaultPollIntervalMs  = 5000
	minPollIntervalMs      = 500
	maxPollIntervalMs      = 300000
	defaultRetryIntervalMs = 10000
	minRetryIntervalMs     = 1000
	maxRetryIntervalMs     = 300000
	defaultVolumeMaxRaw    = 160
	minVolumeMaxRaw        = 1
	maxVolumeMaxRaw        = 500
)

// Config is the adapter's validated configuration snapshot.
type Config struct {
	DeviceID string
	Name     string

	Host       string
	Port       int
	SerialPath string // when set, legacy ISCP over RS-232 replaces TCP
	UseCRLF    bool

	PollInterval  time.Duration
	RetryInterval time.Duration
	VolumeMaxRaw  int

	ActiveInputCodes []string
	InputLabels      map[string]string

	Manufacturer string
	Model        string
	DeviceName   string
	DeviceUUID   string
}

// ConfigFromAdapter clamps and coerces the host-provided configuration into
// a Config. Meta values arrive as JSON-ish types (string, float64, []any).
func ConfigFromAdapter(cfg device.AdapterConfig) Config {
	meta := cfg.Meta
	port := cfg.Port
	if port <= 0 {
		port = DefaultPort
	}

	c := Config{
		DeviceID:         cfg.DeviceID,
		Name:             cfg.Name,
		Host:             strings.TrimSpace(cfg.Host),
		Port:             port,
		SerialPath:       metaString(meta, "serialPort"),
		UseCRLF:          metaBool(meta, "useCrlf"),
		PollInterval:     time.Duration(clampInt(metaInt(meta, "pollIntervalMs", defaultPollIntervalMs), minPollIntervalMs, maxPollIntervalMs)) * time.Millisecond,
		RetryInterval:    time.Duration(clampInt(metaInt(meta, "retryIntervalMs", defaultRetryIntervalMs), minRetryIntervalMs, maxRetryIntervalMs)) * time.Millisecond,
		VolumeMaxRaw:     clampInt(metaInt(meta, "volumeMaxRaw", defaultVolumeMaxRaw), minVolumeMaxRaw, maxVolumeMaxRaw),
		ActiveInputCodes: metaCodes(meta, "activeSliCodes"),
		InputLabels:      metaInputLabels(meta),
		Manufacturer:     metaString(meta, "manufacturer"),
		Model:            metaString(meta, "model"),
		DeviceName:       metaString(meta, "deviceName"),
		DeviceUUID:       metaString(meta, "deviceUuid"),
	}
	if c.DeviceUUID == "" {
		c.DeviceUUID = metaString(meta, "uuid")
	}
	return c
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func metaString(meta map[string]any, key string) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}

func metaBool(meta map[string]any, key string) bool {
	if meta == nil {
		return false
	}
	switch v := meta[key].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "1"
	case float64:
		return v != 0
	}
	return false
}

func metaInt(meta map[string]any, key string, def int) int {
	if meta == nil {
		return def
	}
	switch v := meta[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return int(n)
		}
	case string:
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return def
}

// metaCodes reads a list of input codes. Entries may be strings or numbers;
// numbers are zero-padded to the canonical 2-character form.
func metaCodes(meta map[string]any, key string) []string {
	if meta == nil {
		return nil
	}
	var entries []any
	switch v := meta[key].(type) {
	case []any:
		entries = v
	case []string:
		for _, s := range v {
			entries = append(entries, s)
		}
	case string:
		// stored as a JSON array in the meta table
		var decoded []any
		if err := json.Unmarshal([]byte(v), &decoded); err != nil {
			return nil
		}
		entries = decoded
	default:
		return nil
	}

	var codes []string
	for _, entry := range entries {
		var code string
		switch e := entry.(type) {
		case string:
			code = strings.TrimSpace(e)
		case float64:
			code = strconv.Itoa(int(e))
		case json.Number:
			code = e.String()
		}
		if code == "" {
			continue
		}
		codes = append(codes, NormalizeCode(code))
	}
	return codes
}

const inputLabelPrefix = "inputLabel_"

func metaInputLabels(meta map[string]any) map[string]string {
	labels := make(map[string]string)
	for key, value := range meta {
		if !strings.HasPrefix(key, inputLabelPrefix) {
			continue
		}
		code := strings.TrimSpace(key[len(inputLabelPrefix):])
		if code == "" {
			continue
		}
		label, _ := value.(string)
		labels[code] = strings.TrimSpace(label)
	}
	return labels
}
