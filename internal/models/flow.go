package models

import "time"

// Flow is a scripted sequence of trigger invocations.
type Flow struct {
	Name            string `yaml:"name,omitempty" json:"name,omitempty"`
	ContinueOnError bool   `yaml:"continue_on_error" json:"continue_on_error"`
	Fields          Fields `yaml:"fields,omitempty" json:"fields,omitempty"`
	Steps           []Step `yaml:"steps" json:"steps"`
}

// Step is either a single invocation or a group of invocations run
// concurrently.
type Step struct {
	Trigger  string       `yaml:"trigger,omitempty" json:"trigger,omitempty"`
	Fields   Fields       `yaml:"fields,omitempty" json:"fields,omitempty"`
	Parallel []Invocation `yaml:"parallel,omitempty" json:"parallel,omitempty"`
}

// Invocation names a trigger plus field overrides.
type Invocation struct {
	Trigger string `yaml:"trigger" json:"trigger"`
	Fields  Fields `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// Invocations flattens the step into the invocations it performs.
func (s Step) Invocations() []Invocation {
	if len(s.Parallel) > 0 {
		return s.Parallel
	}
	return []Invocation{{Trigger: s.Trigger, Fields: s.Fields}}
}

// Outcome is the result of a single trigger invocation.
type Outcome struct {
	ID          string    `json:"id"`
	Trigger     string    `json:"trigger"`
	Method      string    `json:"method"`
	Path        string    `json:"path"`
	StatusCode  int       `json:"status_code"`
	Success     bool      `json:"success"`
	ErrorType   ErrorType `json:"error_type,omitempty"`
	Copied      Fields    `json:"copied,omitempty"`
	DurationSec float64   `json:"duration_sec"`
	StartedAt   time.Time `json:"started_at"`
	EndedAt     time.Time `json:"ended_at"`
}

// FlowResult contains aggregate counts across all invocations of a flow.
type FlowResult struct {
	RunID            string     `json:"run_id"`
	FlowName         string     `json:"flow_name"`
	Cancelled        bool       `json:"cancelled"`
	TotalSteps       int        `json:"total_steps"`
	Invocations      int        `json:"invocations"`
	Succeeded        int        `json:"succeeded"`
	Failed           int        `json:"failed"`
	SkippedSteps     int        `json:"skipped_steps"`
	TotalDurationSec float64    `json:"total_duration_sec"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          time.Time  `json:"ended_at"`
	Outcomes         []*Outcome `json:"outcomes"`
}
