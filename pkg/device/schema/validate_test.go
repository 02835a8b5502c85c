package schema

import (
	"testing"
)

func TestValidateState_ValidPayload(t *testing.T) {
	v := NewValidator()

	err := v.ValidateState(map[string]any{
		"power":  true,
		"volume": float64(35),
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidateState_SingleKey(t *testing.T) {
	v := NewValidator()

	err := v.ValidateState(map[string]any{
		"input": "HDMI 1",
	})
	if err != nil {
		t.Errorf("expected valid payload, got: %v", err)
	}
}

func TestValidateState_VolumeOutOfRange(t *testing.T) {
	v := NewValidator()

	err := v.ValidateState(map[string]any{
		"volume": float64(150),
	})
	if err == nil {
		t.Error("expected validation error for out-of-range volume")
	}
}

func TestValidateState_NegativeVolume(t *testing.T) {
	v := NewValidator()

	err := v.ValidateState(map[string]any{
		"volume": float64(-1),
	})
	if err == nil {
		t.Error("expected validation error for negative volume")
	}
}

func TestValidateState_UnknownProperty(t *testing.T) {
	v := NewValidator()

	err := v.ValidateState(map[string]any{
		"power":   true,
		"unknown": "value",
	})
	if err == nil {
		t.Error("expected validation error for unknown property")
	}
}

func TestValidateState_WrongType(t *testing.T) {
	v := NewValidator()

	err := v.ValidateState(map[string]any{
		"power": "on",
	})
	if err == nil {
		t.Error("expected validation error for wrong type")
	}
}

func TestValidateState_EmptyInput(t *testing.T) {
	v := NewValidator()

	err := v.ValidateState(map[string]any{
		"input": "",
	})
	if err == nil {
		t.Error("expected validation error for empty input string")
	}
}

func TestValidateState_CompilesOnce(t *testing.T) {
	v := NewValidator()

	if err := v.ValidateState(map[string]any{"power": true}); err != nil {
		t.Fatal(err)
	}
	first := v.compiled

	if err := v.ValidateState(map[string]any{"mute": false}); err != nil {
		t.Fatal(err)
	}
	if v.compiled != first {
		t.Error("schema recompiled on second validation")
	}
}
