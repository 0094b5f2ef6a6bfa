package models

// RunInfo holds run metadata as reported by the tracking server.
// Pointer fields are nil when the server omitted them.
type RunInfo struct {
	RunID          *string    `json:"run_id,omitempty"`
	ExperimentID   *int64     `json:"experiment_id,omitempty"`
	Status         *RunStatus `json:"status,omitempty"`
	RunName        *string    `json:"run_name,omitempty"`
	StartTime      *int64     `json:"start_time,omitempty"`
	EndTime        *int64     `json:"end_time,omitempty"`
	ArtifactURI    string     `json:"artifact_uri"`
	LifecycleStage string     `json:"lifecycle_stage"`
}

// NewRunInfo builds a RunInfo from a decoded run-info object.
func NewRunInfo(m map[string]any) (*RunInfo, error) {
	var (
		info RunInfo
		err  error
	)

	if info.RunID, err = optionalString(m, "run_id"); err != nil {
		return nil, err
	}
	if info.RunName, err = optionalString(m, "run_name"); err != nil {
		return nil, err
	}
	if info.ExperimentID, err = optionalInt64(m, "experiment_id"); err != nil {
		return nil, err
	}

	if v, ok := lookup(m, "status"); ok {
		raw, err := toString("status", v)
		if err != nil {
			return nil, err
		}
		status, err := ParseRunStatus(raw)
		if err != nil {
			return nil, err
		}
		info.Status = &status
	}

	if info.StartTime, err = optionalInt64(m, "start_time"); err != nil {
		return nil, err
	}
	if info.EndTime, err = optionalInt64(m, "end_time"); err != nil {
		return nil, err
	}

	// artifact_uri and lifecycle_stage fall back to "" rather than staying unset.
	artifactURI, err := optionalString(m, "artifact_uri")
	if err != nil {
		return nil, err
	}
	if artifactURI != nil {
		info.ArtifactURI = *artifactURI
	}
	lifecycleStage, err := optionalString(m, "lifecycle_stage")
	if err != nil {
		return nil, err
	}
	if lifecycleStage != nil {
		info.LifecycleStage = *lifecycleStage
	}

	return &info, nil
}

// ID returns the run identifier and whether the server reported one.
func (i *RunInfo) ID() (string, bool) {
	if i.RunID == nil {
		return "", false
	}
	return *i.RunID, true
}
