package schema

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Validator checks receiver write payloads against the channel schema.
// The schema document is fixed for the lifetime of the process, so it is
// compiled once on first use and reused for every write.
type Validator struct {
	once     sync.Once
	compiled *jsonschema.Schema
	err      error
}

// NewValidator creates a Validator. Compilation is deferred to the first
// ValidateState call.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateState validates a partial receiver state document. Returns nil if
// valid, or an error describing the validation failures.
func (v *Validator) ValidateState(payload map[string]any) error {
	v.once.Do(func() {
		v.compiled, v.err = compileStateSchema()
	})
	if v.err != nil {
		return fmt.Errorf("failed to compile state schema: %w", v.err)
	}
	return v.compiled.Validate(payload)
}

func compileStateSchema() (*jsonschema.Schema, error) {
	var doc any
	if err := json.Unmarshal([]byte(receiverStateSchema), &doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal schema: %w", err)
	}

	c := jsonschema.NewCompiler()
	if err := c.AddResource("receiver-state.json", doc); err != nil {
		return nil, fmt.Errorf("failed to add resource: %w", err)
	}
	return c.Compile("receiver-state.json")
}
