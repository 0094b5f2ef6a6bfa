package parser

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

func ParseYAMLPayload(reader io.Reader) (map[string]any, error) {
	var data map[string]any
	decoder := yaml.NewDecoder(reader)

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse YAML payload: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("failed to parse YAML payload: expected a mapping")
	}

	return data, nil
}
