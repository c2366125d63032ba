// internal/workers/ai-conversation/build-advice/validation.go
package buildadvice

import "farmer-assistant-workers/internal/common/validation"

var inputSchema = validation.MustCompileJSON(`{
  "type": "object",
  "required": ["intent"],
  "properties": {
    "intent": {"type": "string", "minLength": 1, "maxLength": 100},
    "confidence": {"type": "number", "minimum": 0, "maximum": 1},
    "language": {"type": "string", "enum": ["", "hi", "en"]},
    "entities": {
      "type": "object",
      "properties": {
        "crops": {"type": ["array", "null"], "items": {"type": "string"}},
        "time_refs": {"type": ["array", "null"], "items": {"type": "string"}},
        "seasons": {"type": ["array", "null"], "items": {"type": "string"}},
        "quantities": {
          "type": ["array", "null"],
          "items": {
            "type": "object",
            "required": ["value", "unit"],
            "properties": {
              "value": {"type": "number", "minimum": 0},
              "unit": {"type": "string"}
            }
          }
        }
      }
    }
  }
}`)

var localizedTextSchema = `{"type": "object", "additionalProperties": {"type": "string"}, "minProperties": 1}`

var registrySchema = validation.MustCompileJSON(`{
  "type": "object",
  "required": ["version", "unknown", "generic", "intents"],
  "properties": {
    "version": {"type": "string"},
    "unknown": ` + localizedTextSchema + `,
    "generic": ` + localizedTextSchema + `,
    "clarify": ` + localizedTextSchema + `,
    "samples": ` + localizedTextSchema + `,
    "intents": {
      "type": "object",
      "additionalProperties": {
        "type": "object",
        "required": ["default"],
        "properties": {
          "default": ` + localizedTextSchema + `,
          "crops": {"type": "object", "additionalProperties": ` + localizedTextSchema + `}
        }
      }
    }
  }
}`)
