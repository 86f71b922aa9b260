package pipeline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"git.home.luguber.info/inful/docsbuild/internal/artifact"
	"git.home.luguber.info/inful/docsbuild/internal/build"
	"git.home.luguber.info/inful/docsbuild/internal/metrics"
)

// Status is the overall outcome of a pipeline run.
type Status string

const (
	StatusSucceeded Status = Status(build.StatusSucceeded)
	StatusFailed    Status = Status(build.StatusFailed)
	StatusTimedOut  Status = Status(build.StatusTimedOut)
	StatusCanceled  Status = Status(build.StatusCanceled)
	// StatusInvalid means the generator succeeded but validation did not.
	StatusInvalid Status = "invalid"
)

// StageSkipped marks a stage that did not run.
const StageSkipped = "skipped"

func (s Status) outcome() metrics.BuildOutcomeLabel {
	switch s {
	case StatusSucceeded:
		return metrics.BuildOutcomeSuccess
	case StatusTimedOut:
		return metrics.BuildOutcomeTimedOut
	case StatusCanceled:
		return metrics.BuildOutcomeCanceled
	case StatusInvalid:
		return metrics.BuildOutcomeInvalid
	default:
		return metrics.BuildOutcomeFailed
	}
}

// StageTiming records how long a stage took and how it ended.
type StageTiming struct {
	Name     string        `json:"name"`
	Duration time.Duration `json:"duration"`
	Result   string        `json:"result"`
}

// Report is the record of one pipeline run.
type Report struct {
	BuildID     string            `json:"build_id"`
	Status      Status            `json:"status"`
	Environment map[string]string `json:"environment,omitempty"`
	Build       *build.Result     `json:"build,omitempty"`
	Validation  *artifact.Report  `json:"validation,omitempty"`
	Stages      []StageTiming     `json:"stages"`
	Error       string            `json:"error,omitempty"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Duration    time.Duration     `json:"duration"`
}

// Stage returns the timing entry for name.
func (r *Report) Stage(name string) (StageTiming, bool) {
	for _, s := range r.Stages {
		if s.Name == name {
			return s, true
		}
	}
	return StageTiming{}, false
}

// Write persists the report as indented JSON. The file is replaced atomically
// so readers never observe a partial report.
func (r *Report) Write(path string) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("create report dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".report-*.json")
	if err != nil {
		return fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("close report: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// ReadReport loads a report written by Write.
func ReadReport(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var r Report
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report %s: %w", path, err)
	}
	return &r, nil
}
