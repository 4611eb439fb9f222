// Package pipeline builds and writes the JSON Schema documents schemagen
// emits for the project's wire-facing configuration types.
package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/invopop/jsonschema"

	"rollbacknet/internal/relay"
	"rollbacknet/internal/rollback"
)

// Target names a reflectable type schemagen knows how to emit a schema for.
type Target string

const (
	TargetSessionSettings Target = "session-settings"
	TargetRelayEnvelope   Target = "relay-envelope"
)

// Build reflects target into a JSON Schema document, titled and described
// for the project rather than left with the bare Go type name.
func Build(target Target) (*jsonschema.Schema, error) {
	reflector := &jsonschema.Reflector{AllowAdditionalProperties: true, ExpandedStruct: true}

	switch target {
	case TargetSessionSettings:
		schema := reflector.Reflect(new(rollback.SessionSettings))
		schema.Title = "Rollback Session Settings"
		schema.Description = "Operator-authored configuration consumed by rollback.NewSession before a session is constructed."
		return schema, nil
	case TargetRelayEnvelope:
		schema := reflector.Reflect(new(relay.Envelope))
		schema.Title = "Relay Wire Envelope"
		schema.Description = "The JSON message exchanged over the demo relay's websocket connection."
		return schema, nil
	default:
		return nil, fmt.Errorf("schemagen: unknown target %q", target)
	}
}

// Write marshals schema as indented JSON and writes it to outPath, replacing
// any existing file atomically via a temp-file-then-rename.
func Write(outPath string, schema *jsonschema.Schema) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return fmt.Errorf("schemagen: marshal schema: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("schemagen: create output directory: %w", err)
	}

	tmpPath := outPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("schemagen: write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, outPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("schemagen: replace output file: %w", err)
	}
	return nil
}
