package vision

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// analysisSchema describes the reply shape requested in the system prompt.
// Every member is optional; the model is free to omit what it cannot see.
func analysisSchema() map[string]any {
	text := func() map[string]any {
		return map[string]any{"type": []string{"string", "null"}}
	}
	scalar := map[string]any{"type": []string{"number", "string", "null"}}

	overview := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":       text(),
			"time_range":  text(),
			"panel_count": map[string]any{"type": []string{"number", "string", "null"}, "minimum": 0},
			"theme":       text(),
		},
	}

	panel := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"title":         text(),
			"type":          text(),
			"current_value": scalar,
			"unit":          text(),
			"status":        text(),
			"threshold":     scalar,
		},
	}

	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dashboard_overview": overview,
			"panels":             map[string]any{"type": "array", "items": panel},
			"metrics":            map[string]any{"type": "object"},
			"health_status":      text(),
			"alerts":             map[string]any{"type": "array"},
			"insights":           map[string]any{"type": "array"},
		},
	}
}

var (
	compiledOnce   sync.Once
	compiledSchema *jsonschema.Schema
	compileErr     error
)

func replySchema() (*jsonschema.Schema, error) {
	compiledOnce.Do(func() {
		b, err := json.Marshal(analysisSchema())
		if err != nil {
			compileErr = fmt.Errorf("marshal schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("analysis.json", bytes.NewReader(b)); err != nil {
			compileErr = fmt.Errorf("add schema: %w", err)
			return
		}
		compiledSchema, compileErr = compiler.Compile("analysis.json")
	})
	return compiledSchema, compileErr
}

// validateReply checks an already decoded reply against the analysis schema
func validateReply(v any) error {
	schema, err := replySchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("reply does not match schema: %w", err)
	}
	return nil
}
