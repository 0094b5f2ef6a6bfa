package models

import "fmt"

// RunData holds the metrics, params and tags logged for a run.
//
// Metrics is never nil. Params is nil when the payload had no "params"
// entry, and an empty map when it had an empty list. Tags is passed through
// untouched.
type RunData struct {
	Metrics map[string]RunMetric `json:"metrics"`
	Params  map[string]RunParam  `json:"params,omitempty"`
	Tags    any                  `json:"tags,omitempty"`
}

// NewRunData builds a RunData from a decoded run-data object. Entries sharing
// a key overwrite earlier ones in list order.
func NewRunData(m map[string]any) (*RunData, error) {
	data := RunData{
		Metrics: make(map[string]RunMetric),
	}

	metrics, _, err := objects(m, "metrics")
	if err != nil {
		return nil, err
	}
	for i, raw := range metrics {
		metric, err := NewRunMetric(raw)
		if err != nil {
			return nil, fmt.Errorf("metrics[%d]: %w", i, err)
		}
		data.Metrics[metric.Key] = metric
	}

	params, present, err := objects(m, "params")
	if err != nil {
		return nil, err
	}
	if present {
		data.Params = make(map[string]RunParam, len(params))
		for i, raw := range params {
			param, err := NewRunParam(raw)
			if err != nil {
				return nil, fmt.Errorf("params[%d]: %w", i, err)
			}
			data.Params[param.Key] = param
		}
	}

	if tags, ok := lookup(m, "tags"); ok {
		data.Tags = tags
	}

	return &data, nil
}

// ParamMap returns the params and whether the payload carried a params entry.
func (d *RunData) ParamMap() (map[string]RunParam, bool) {
	return d.Params, d.Params != nil
}

// TagMap reads tags in the tracking server's [{key, value}] shape. Entries in
// any other shape are skipped.
func (d *RunData) TagMap() map[string]string {
	tags := make(map[string]string)
	items, ok := d.Tags.([]any)
	if !ok {
		return tags
	}
	for _, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			continue
		}
		key, kok := obj["key"].(string)
		value, vok := obj["value"].(string)
		if kok && vok {
			tags[key] = value
		}
	}
	return tags
}
