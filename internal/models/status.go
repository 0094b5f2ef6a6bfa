package models

type RunStatus string

const (
	RunStatusRunning   RunStatus = "RUNNING"
	RunStatusScheduled RunStatus = "SCHEDULED"
	RunStatusFinished  RunStatus = "FINISHED"
	RunStatusFailed    RunStatus = "FAILED"
	RunStatusKilled    RunStatus = "KILLED"
)

var runStatuses = []RunStatus{
	RunStatusRunning,
	RunStatusScheduled,
	RunStatusFinished,
	RunStatusFailed,
	RunStatusKilled,
}

// ParseRunStatus validates s against the statuses the tracking server reports.
func ParseRunStatus(s string) (RunStatus, error) {
	for _, status := range runStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", &InvalidStatusError{Value: s}
}

func (s RunStatus) String() string {
	return string(s)
}

// IsTerminal reports whether the run has stopped executing.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusFinished || s == RunStatusFailed || s == RunStatusKilled
}
