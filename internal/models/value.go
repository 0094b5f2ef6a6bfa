package models

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// lookup returns the value under key, treating an explicit JSON null as absent.
func lookup(m map[string]any, key string) (any, bool) {
	v, ok := m[key]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// toInt64 accepts integral numbers as they are and parses everything else
// from its string form. Older tracking servers serialize int64 fields as
// strings, which is why both shapes show up.
func toInt64(field string, v any) (int64, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint64:
		if n > math.MaxInt64 {
			return 0, &ParseError{Field: field, Value: v, Err: strconv.ErrRange}
		}
		return int64(n), nil
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || n >= math.MaxInt64 || n < math.MinInt64 {
			return 0, &ParseError{Field: field, Value: v, Err: fmt.Errorf("not an integer")}
		}
		return int64(n), nil
	case json.Number:
		return parseInt64(field, string(n))
	case string:
		return parseInt64(field, n)
	default:
		return 0, &ParseError{Field: field, Value: v, Err: fmt.Errorf("unexpected type %T", v)}
	}
}

func parseInt64(field, s string) (int64, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, &ParseError{Field: field, Value: s, Err: err}
	}
	return i, nil
}

func toFloat64(field string, v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return parseFloat64(field, string(n))
	case string:
		return parseFloat64(field, n)
	default:
		return 0, &ParseError{Field: field, Value: v, Err: fmt.Errorf("unexpected type %T", v)}
	}
}

func parseFloat64(field, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, &ParseError{Field: field, Value: s, Err: err}
	}
	return f, nil
}

func toString(field string, v any) (string, error) {
	s, ok := v.(string)
	if !ok {
		return "", &ParseError{Field: field, Value: v, Err: fmt.Errorf("expected string, got %T", v)}
	}
	return s, nil
}

func optionalString(m map[string]any, key string) (*string, error) {
	v, ok := lookup(m, key)
	if !ok {
		return nil, nil
	}
	s, err := toString(key, v)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func optionalInt64(m map[string]any, key string) (*int64, error) {
	v, ok := lookup(m, key)
	if !ok {
		return nil, nil
	}
	i, err := toInt64(key, v)
	if err != nil {
		return nil, err
	}
	return &i, nil
}

func required(m map[string]any, key string) (any, error) {
	v, ok := lookup(m, key)
	if !ok {
		return nil, &MissingFieldError{Field: key}
	}
	return v, nil
}

// objects reads a sequence of JSON objects stored under key.
func objects(m map[string]any, key string) ([]map[string]any, bool, error) {
	v, ok := lookup(m, key)
	if !ok {
		return nil, false, nil
	}
	items, ok := v.([]any)
	if !ok {
		return nil, true, &ParseError{Field: key, Value: v, Err: fmt.Errorf("expected a list, got %T", v)}
	}
	result := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			field := fmt.Sprintf("%s[%d]", key, i)
			return nil, true, &ParseError{Field: field, Value: item, Err: fmt.Errorf("expected an object, got %T", item)}
		}
		result = append(result, obj)
	}
	return result, true, nil
}
