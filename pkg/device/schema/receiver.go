package schema

// receiverStateSchema constrains partial receiver state writes. Volume is a
// percentage; input accepts either a 2-character code or a display label,
// resolved downstream.
const receiverStateSchema = `{
	"$schema": "https://json-schema.org/draft/2020-12/schema",
	"type": "object",
	"properties": {
		"power": {"type": "boolean"},
		"volume": {"type": "number", "minimum": 0, "maximum": 100},
		"mute": {"type": "boolean"},
		"input": {"type": "string", "minLength": 1}
	},
	"additionalProperties": false
}`
