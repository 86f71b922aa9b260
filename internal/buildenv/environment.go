package buildenv

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Variable names exported to the generator process.
const (
	KeyCurrentYear = "CURRENT_YEAR"
	KeyBuildDate   = "BUILD_DATE"
	KeyGitInfo     = "GIT_INFO"
)

// BuildDateLayout is the layout of BUILD_DATE. The zone is always UTC.
const BuildDateLayout = "2006-01-02 15:04:05 UTC"

// Keys lists the environment keys in export order.
func Keys() []string { return []string{KeyCurrentYear, KeyBuildDate, KeyGitInfo} }

// BuildEnvironment is the closed set of metadata values for one build.
// All three keys are always present; GitInfo may be empty.
type BuildEnvironment struct {
	year    string
	date    string
	gitInfo string
	builtAt time.Time
}

// New assembles an environment for instant t (converted to UTC).
func New(t time.Time, gitInfo string) BuildEnvironment {
	t = t.UTC()
	return BuildEnvironment{
		year:    strconv.Itoa(t.Year()),
		date:    t.Format(BuildDateLayout),
		gitInfo: gitInfo,
		builtAt: t,
	}
}

func (e BuildEnvironment) CurrentYear() string { return e.year }
func (e BuildEnvironment) BuildDate() string   { return e.date }
func (e BuildEnvironment) GitInfo() string     { return e.gitInfo }

// BuiltAt returns the instant the environment was resolved at, in UTC.
func (e BuildEnvironment) BuiltAt() time.Time { return e.builtAt }

// IsZero reports whether e was never resolved.
func (e BuildEnvironment) IsZero() bool { return e.year == "" && e.date == "" }

// Get returns the value of one of the three keys.
func (e BuildEnvironment) Get(key string) (string, bool) {
	switch key {
	case KeyCurrentYear:
		return e.year, true
	case KeyBuildDate:
		return e.date, true
	case KeyGitInfo:
		return e.gitInfo, true
	default:
		return "", false
	}
}

// Vars returns a fresh copy of the mapping; callers may mutate it freely.
func (e BuildEnvironment) Vars() map[string]string {
	return map[string]string{
		KeyCurrentYear: e.year,
		KeyBuildDate:   e.date,
		KeyGitInfo:     e.gitInfo,
	}
}

// Environ renders KEY=VALUE pairs in export order, empty values included.
func (e BuildEnvironment) Environ() []string {
	out := make([]string, 0, 3)
	for _, k := range Keys() {
		v, _ := e.Get(k)
		out = append(out, k+"="+v)
	}
	return out
}

// Merge returns base without any of the three keys, followed by e's values.
// base is typically os.Environ().
func (e BuildEnvironment) Merge(base []string) []string {
	out := make([]string, 0, len(base)+3)
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, ours := e.Get(name); ours {
			continue
		}
		out = append(out, kv)
	}
	return append(out, e.Environ()...)
}

// ParseBuildDate parses a BUILD_DATE value back into a UTC time.
func ParseBuildDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(BuildDateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse %s %q: %w", KeyBuildDate, s, err)
	}
	return t, nil
}

// FromVars rebuilds an environment from a previously exported mapping.
// CURRENT_YEAR must agree with BUILD_DATE; GIT_INFO may be absent.
func FromVars(vars map[string]string) (BuildEnvironment, error) {
	date, ok := vars[KeyBuildDate]
	if !ok {
		return BuildEnvironment{}, fmt.Errorf("missing %s", KeyBuildDate)
	}
	t, err := ParseBuildDate(date)
	if err != nil {
		return BuildEnvironment{}, err
	}
	if err := checkYear(t); err != nil {
		return BuildEnvironment{}, err
	}
	env := New(t, vars[KeyGitInfo])
	if year, ok := vars[KeyCurrentYear]; ok && year != env.year {
		return BuildEnvironment{}, fmt.Errorf("%s %q does not match %s %q", KeyCurrentYear, year, KeyBuildDate, date)
	}
	return env, nil
}

// checkYear rejects instants whose year does not render as four digits.
func checkYear(t time.Time) error {
	if t.IsZero() {
		return fmt.Errorf("clock returned the zero time")
	}
	if y := t.UTC().Year(); y < 1000 || y > 9999 {
		return fmt.Errorf("year %d is not a four-digit year", y)
	}
	return nil
}
