package models

import "encoding/json"

// RunConfig describes a run to be created on the tracking server.
type RunConfig struct {
	ExperimentID *string           `json:"experiment_id,omitempty"`
	RunName      *string           `json:"run_name,omitempty"`
	Tags         map[string]string `json:"tags,omitempty"`
	Description  *string           `json:"description,omitempty"`
}

// Run pairs the info and data halves of a run. Either may be nil; nothing
// checks that both describe the same run.
type Run struct {
	info *RunInfo
	data *RunData
}

// NewRunFromData returns a Run holding only data.
func NewRunFromData(data *RunData) *Run {
	return &Run{data: data}
}

// NewRunFromInfo returns a Run holding only info.
func NewRunFromInfo(info *RunInfo) *Run {
	return &Run{info: info}
}

// NewRunFromInfoMap builds a Run from a decoded run-info object.
func NewRunFromInfoMap(info map[string]any) (*Run, error) {
	runInfo, err := NewRunInfo(info)
	if err != nil {
		return nil, err
	}
	return NewRunFromInfo(runInfo), nil
}

// NewRun builds a Run from decoded run-info and run-data objects.
func NewRun(info, data map[string]any) (*Run, error) {
	runInfo, err := NewRunInfo(info)
	if err != nil {
		return nil, err
	}
	runData, err := NewRunData(data)
	if err != nil {
		return nil, err
	}
	return &Run{info: runInfo, data: runData}, nil
}

// Info returns the run info, or nil.
func (r *Run) Info() *RunInfo {
	return r.info
}

// Data returns the run data, or nil.
func (r *Run) Data() *RunData {
	return r.data
}

// RunID returns the run id from info. It fails with ErrNoInfo when info is
// unset and ErrNoRunID when info carries no id.
func (r *Run) RunID() (string, error) {
	if r.info == nil {
		return "", ErrNoInfo
	}
	id, ok := r.info.ID()
	if !ok {
		return "", ErrNoRunID
	}
	return id, nil
}

// Params returns the run's params. The map is nil when the data carried no
// params entry.
func (r *Run) Params() (map[string]RunParam, error) {
	if r.data == nil {
		return nil, ErrNoData
	}
	params, _ := r.data.ParamMap()
	return params, nil
}

// MarshalJSON mirrors the tracking server's {"info": ..., "data": ...} shape.
func (r *Run) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Info *RunInfo `json:"info,omitempty"`
		Data *RunData `json:"data,omitempty"`
	}{r.info, r.data})
}
