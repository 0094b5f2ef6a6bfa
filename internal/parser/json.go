package parser

import (
	"encoding/json"
	"fmt"
	"io"
)

// ParseJSONPayload decodes a single JSON object. Numbers are kept as
// json.Number so large int64 timestamps survive intact.
func ParseJSONPayload(reader io.Reader) (map[string]any, error) {
	var data map[string]any
	decoder := json.NewDecoder(reader)
	decoder.UseNumber()

	if err := decoder.Decode(&data); err != nil {
		return nil, fmt.Errorf("failed to parse JSON payload: %w", err)
	}
	if data == nil {
		return nil, fmt.Errorf("failed to parse JSON payload: expected an object")
	}

	return data, nil
}
