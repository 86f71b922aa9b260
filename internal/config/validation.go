package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
)

// Validate checks the configuration and normalizes enum fields in place.
// All problems are reported together.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Content) == "" {
		errs = append(errs, errors.New("content: must not be empty"))
	}
	if strings.TrimSpace(c.Output.Directory) == "" {
		errs = append(errs, errors.New("output.directory: must not be empty"))
	}
	if len(c.Generator.Command) == 0 || strings.TrimSpace(c.Generator.Command[0]) == "" {
		errs = append(errs, errors.New("generator.command: must name an executable"))
	}
	if c.Generator.Timeout.Std() <= 0 {
		errs = append(errs, errors.New("generator.timeout: must be positive"))
	}

	kind, err := ParseRuntimeKind(string(c.Runtime.Kind))
	if err != nil {
		errs = append(errs, fmt.Errorf("runtime.kind: %w", err))
	} else {
		c.Runtime.Kind = kind
	}
	if kind == RuntimeDocker && strings.TrimSpace(c.Runtime.Docker.Image) == "" {
		errs = append(errs, errors.New("runtime.docker.image: must not be empty"))
	}

	if c.Validation.YearSample < 0 {
		errs = append(errs, errors.New("validation.year_sample: must not be negative"))
	}
	if c.Validation.GitSample < 0 {
		errs = append(errs, errors.New("validation.git_sample: must not be negative"))
	}
	if _, err := regexp.Compile(c.Validation.BuildDatePattern); err != nil {
		errs = append(errs, fmt.Errorf("validation.build_date_pattern: %w", err))
	}
	if _, err := regexp.Compile(c.Validation.RevisionPattern); err != nil {
		errs = append(errs, fmt.Errorf("validation.revision_pattern: %w", err))
	}

	if c.Report.Path != "" && within(c.Output.Directory, c.Report.Path) {
		errs = append(errs, errors.New("report.path: must be outside the output directory"))
	}

	c.Logging.Level = NormalizeLogLevel(string(c.Logging.Level))
	c.Logging.Format = NormalizeLogFormat(string(c.Logging.Format))

	return errors.Join(errs...)
}

func within(dir, p string) bool {
	absDir, err1 := filepath.Abs(dir)
	absP, err2 := filepath.Abs(p)
	if err1 != nil || err2 != nil {
		return false
	}
	rel, err := filepath.Rel(absDir, absP)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
