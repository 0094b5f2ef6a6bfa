package models

import (
	"encoding/json"
	"fmt"
	"math"
)

// RunMetric is a single metric observation. Timestamp is in epoch milliseconds.
type RunMetric struct {
	Key       string  `json:"key"`
	Value     float64 `json:"value"`
	Step      int64   `json:"step"`
	Timestamp int64   `json:"timestamp"`
}

// MarshalJSON writes non-finite values as the strings "NaN", "Infinity" and
// "-Infinity", the same spelling the tracking server uses.
func (m RunMetric) MarshalJSON() ([]byte, error) {
	type plain RunMetric
	var value any = m.Value
	switch {
	case math.IsNaN(m.Value):
		value = "NaN"
	case math.IsInf(m.Value, 1):
		value = "Infinity"
	case math.IsInf(m.Value, -1):
		value = "-Infinity"
	}
	return json.Marshal(struct {
		plain
		Value any `json:"value"`
	}{plain: plain(m), Value: value})
}

// NewRunMetric builds a RunMetric from a decoded metric object. All four
// fields are required.
func NewRunMetric(m map[string]any) (RunMetric, error) {
	var metric RunMetric

	for _, field := range []string{"key", "value", "step", "timestamp"} {
		if _, err := required(m, field); err != nil {
			return RunMetric{}, err
		}
	}

	key, err := toString("key", m["key"])
	if err != nil {
		return RunMetric{}, err
	}
	metric.Key = key

	if metric.Value, err = toFloat64("value", m["value"]); err != nil {
		return RunMetric{}, err
	}
	if metric.Step, err = toInt64("step", m["step"]); err != nil {
		return RunMetric{}, err
	}
	if metric.Timestamp, err = toInt64("timestamp", m["timestamp"]); err != nil {
		return RunMetric{}, err
	}

	return metric, nil
}

// NewMetricHistory parses every entry of the "metrics" list in m in order.
// Unlike NewRunData it keeps repeated keys, so a step series survives.
func NewMetricHistory(m map[string]any) ([]RunMetric, error) {
	entries, present, err := objects(m, "metrics")
	if err != nil {
		return nil, err
	}
	if !present {
		return nil, &MissingFieldError{Field: "metrics"}
	}

	history := make([]RunMetric, 0, len(entries))
	for i, raw := range entries {
		metric, err := NewRunMetric(raw)
		if err != nil {
			return nil, fmt.Errorf("metrics[%d]: %w", i, err)
		}
		history = append(history, metric)
	}
	return history, nil
}
