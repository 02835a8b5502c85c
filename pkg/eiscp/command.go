package eiscp

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/avcontrol/onkyo-bridge/pkg/device"
)

// Command mnemonics this adapter speaks. Receivers emit many more; anything
// else is ignored on the read path.
const (
	mnemonicPower  = "PWR"
	mnemonicMute   = "AMT"
	mnemonicVolume = "MVL"
	mnemonicInput  = "SLI"

	querySuffix = "QSTN"
)

// Update is one channel-state change parsed from a wire line.
type Update struct {
	Channel string
	Value   any
}

// Translator converts channel writes into wire commands and wire lines back
// into channel updates. It is owned by the adapter worker and never shared.
type Translator struct {
	volumeMaxRaw  int
	inputs        *InputRegistry
	lastInputCode string
}

// NewTranslator creates a translator for the given raw volume ceiling and
// input label registry.
func NewTranslator(volumeMaxRaw int, inputs *InputRegistry) *Translator {
	return &Translator{volumeMaxRaw: volumeMaxRaw, inputs: inputs}
}

// LastInputCode returns the most recently observed input code, or "".
func (t *Translator) LastInputCode() string {
	return t.lastInputCode
}

// SetLastInputCode seeds the observed-input cache, used to carry the value
// across configuration rebuilds.
func (t *Translator) SetLastInputCode(code string) {
	t.lastInputCode = code
}

// TranslateWrite maps an abstract channel write to a wire command. The
// returned final value is the normalized value the command will set, echoed
// back in the command result.
func (t *Translator) TranslateWrite(channel string, value any) (cmd string, finalValue any, err error) {
	switch channel {
	case device.ChannelPower:
		on := toBool(value)
		if on {
			return mnemonicPower + "01", true, nil
		}
		return mnemonicPower + "00", false, nil

	case device.ChannelVolume:
		percent, ok := toFloat(value)
		if !ok {
			return "", nil, fmt.Errorf("%w: volume must be numeric", device.ErrInvalidArgument)
		}
		clamped := math.Min(100, math.Max(0, percent))
		raw := int(math.Round(clamped / 100 * float64(t.volumeMaxRaw)))
		if raw < 0 {
			raw = 0
		} else if raw > t.volumeMaxRaw {
			raw = t.volumeMaxRaw
		}
		return fmt.Sprintf("%s%02X", mnemonicVolume, raw), clamped, nil

	case device.ChannelMute:
		muted := toBool(value)
		if muted {
			return mnemonicMute + "01", true, nil
		}
		return mnemonicMute + "00", false, nil

	case device.ChannelInput:
		input := strings.TrimSpace(toString(value))
		input = strings.TrimPrefix(input, mnemonicInput)
		input = t.inputs.ResolveCode(input)
		input = NormalizeCode(input)
		if len(input) != 2 {
			return "", nil, fmt.Errorf("%w: input expects a 2-digit code (e.g. 01)", device.ErrInvalidArgument)
		}
		return mnemonicInput + input, input, nil
	}

	return "", nil, fmt.Errorf("%w: channel %q", device.ErrNotSupported, channel)
}

// TranslateLine maps one sanitized wire line to a channel update, or nil
// when the line carries nothing this adapter tracks. Unrecognized mnemonics
// and out-of-contract values are ignored, never errors: the receiver emits
// plenty of notification types outside this adapter's scope.
func (t *Translator) TranslateLine(line string) *Update {
	if len(line) < 3 {
		return nil
	}
	mnemonic, rest := line[:3], line[3:]

	switch mnemonic {
	case mnemonicPower:
		if rest == "01" || rest == "00" {
			return &Update{Channel: device.ChannelPower, Value: rest == "01"}
		}

	case mnemonicMute:
		if rest == "01" || rest == "00" {
			return &Update{Channel: device.ChannelMute, Value: rest == "01"}
		}

	case mnemonicVolume:
		raw, err := strconv.ParseInt(rest, 16, 32)
		if err != nil {
			return nil
		}
		clamped := int(raw)
		if clamped < 0 {
			clamped = 0
		} else if clamped > t.volumeMaxRaw {
			clamped = t.volumeMaxRaw
		}
		percent := float64(clamped) / float64(t.volumeMaxRaw) * 100
		return &Update{Channel: device.ChannelVolume, Value: percent}

	case mnemonicInput:
		code := NormalizeCode(rest)
		if code == "" {
			return nil
		}
		t.lastInputCode = code
		return &Update{Channel: device.ChannelInput, Value: code}
	}

	return nil
}

func toBool(value any) bool {
	switch v := value.(type) {
	case bool:
		return v
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		return s == "true" || s == "1" || s == "on"
	case float64:
		return v != 0
	case int:
		return v != 0
	case json.Number:
		f, err := v.Float64()
		return err == nil && f != 0
	}
	return false
}

func toFloat(value any) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func toString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case fmt.Stringer:
		return v.String()
	}
	return ""
}
