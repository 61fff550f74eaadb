package archive

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/teddynote/parser-client/internal/common"
)

// ErrNoMetadata reports that the extracted result carries no metadata.json.
// Older server versions omit it, so callers usually log and move on.
var ErrNoMetadata = errors.New("no metadata.json in extracted result")

// metadataSchema constrains the metadata.json the service ships inside each
// result archive.
func metadataSchema() map[string]any {
	return map[string]any{
		"type":                 "object",
		"additionalProperties": true,
		"properties": map[string]any{
			"job_id":        map[string]any{"type": "string", "minLength": 1},
			"filename":      map[string]any{"type": "string"},
			"language":      map[string]any{"type": "string"},
			"include_image": map[string]any{"type": "boolean"},
			"batch_size":    map[string]any{"type": "integer", "minimum": 1},
			"pages":         map[string]any{"type": "integer", "minimum": 0},
			"created_at":    map[string]any{"type": "string"},
		},
		"required": []string{"job_id"},
	}
}

// VerifyMetadata validates <extractDir>/metadata.json against the expected
// shape. A missing file returns ErrNoMetadata; a malformed one wraps
// ErrExtraction.
func VerifyMetadata(extractDir string) error {
	path := filepath.Join(extractDir, "metadata.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNoMetadata
		}
		return fmt.Errorf("read %s: %v: %w", path, err, common.ErrExtraction)
	}
	if err := validateAgainstSchema(metadataSchema(), data); err != nil {
		return fmt.Errorf("metadata.json: %v: %w", err, common.ErrExtraction)
	}
	return nil
}

// validateAgainstSchema validates data against the schema map.
func validateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("json does not match schema: %w", err)
	}
	return nil
}
