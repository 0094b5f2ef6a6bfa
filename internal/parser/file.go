package parser

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ParsePayloadFile decodes a JSON or YAML file, picking the decoder by extension.
func ParsePayloadFile(path string) (map[string]any, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", path, err)
	}
	defer file.Close()

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".json":
		return ParseJSONPayload(file)
	case ".yaml", ".yml":
		return ParseYAMLPayload(file)
	default:
		return nil, fmt.Errorf("unsupported file format: %s (supported: .json, .yaml, .yml)", ext)
	}
}
