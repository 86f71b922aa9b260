package build

import (
	"time"
)

// Status represents the outcome of a generator run.
type Status string

const (
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusTimedOut  Status = "timed_out"
	StatusCanceled  Status = "canceled"
)

// IsSuccess returns true if the generator exited with status zero.
func (s Status) IsSuccess() bool { return s == StatusSucceeded }

// Result is the record of one generator run. It is created once by the
// Executor and not modified afterwards.
type Result struct {
	Status   Status        `json:"status"`
	ExitCode int           `json:"exit_code"`
	Stdout   string        `json:"stdout"`
	Stderr   string        `json:"stderr"`
	Start    time.Time     `json:"start"`
	End      time.Time     `json:"end"`
	Duration time.Duration `json:"duration"`

	// OutputRoot is the host directory holding the artifact tree.
	OutputRoot string `json:"output_root"`
	Runtime    string `json:"runtime"`

	// Reason explains a non-successful status.
	Reason string `json:"reason,omitempty"`
}
