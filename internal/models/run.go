package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// RunRequest is the flat payload sent to the compliance test suite: the auth fields plus one
// boolean per supported operation. It is built once per run and never mutated.
type RunRequest struct {
	endpoint   string
	userName   string
	password   string
	token      string
	keys       []string
	operations map[string]bool
}

// NewRunRequest copies its inputs. Every key is present in the payload; keys missing from
// selected default to false.
func NewRunRequest(endpoint, userName, password, token string, keys []string, selected map[string]bool) *RunRequest {
	r := &RunRequest{
		endpoint:   endpoint,
		userName:   userName,
		password:   password,
		token:      token,
		keys:       make([]string, len(keys)),
		operations: make(map[string]bool, len(keys)),
	}
	copy(r.keys, keys)
	for _, k := range keys {
		r.operations[k] = selected[k]
	}
	return r
}

func (r *RunRequest) Endpoint() string { return r.endpoint }
func (r *RunRequest) UserName() string { return r.userName }
func (r *RunRequest) Password() string { return r.password }
func (r *RunRequest) Token() string    { return r.token }

// Operation reports whether an operation key is enabled
func (r *RunRequest) Operation(key string) bool {
	return r.operations[key]
}

// Operations returns a copy of the key -> enabled mapping
func (r *RunRequest) Operations() map[string]bool {
	out := make(map[string]bool, len(r.operations))
	for k, v := range r.operations {
		out[k] = v
	}
	return out
}

// EnabledOperations returns enabled keys in payload order
func (r *RunRequest) EnabledOperations() []string {
	out := []string{}
	for _, k := range r.keys {
		if r.operations[k] {
			out = append(out, k)
		}
	}
	return out
}

// MarshalJSON writes the auth fields followed by every operation key in catalog order
func (r *RunRequest) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	write := func(first bool, key string, value interface{}) error {
		if !first {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	fields := []struct {
		key   string
		value string
	}{
		{"endpoint", r.endpoint},
		{"userName", r.userName},
		{"password", r.password},
		{"token", r.token},
	}
	for i, f := range fields {
		if err := write(i == 0, f.key, f.value); err != nil {
			return nil, err
		}
	}
	for _, k := range r.keys {
		if err := write(false, k, r.operations[k]); err != nil {
			return nil, err
		}
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// RunStatistics is the summary block of a compliance response. Time is in milliseconds.
type RunStatistics struct {
	Total   int   `json:"total" yaml:"total"`
	Success int   `json:"success" yaml:"success"`
	Failed  int   `json:"failed" yaml:"failed"`
	Skipped int   `json:"skipped" yaml:"skipped"`
	Time    int64 `json:"time" yaml:"time"`
}

// TestStatus is the numeric result status used on the wire
type TestStatus int

const (
	TestStatusFailed  TestStatus = 0
	TestStatusSuccess TestStatus = 1
	TestStatusSkipped TestStatus = 2
)

func (s TestStatus) String() string {
	switch s {
	case TestStatusFailed:
		return "Failed"
	case TestStatusSuccess:
		return "Success"
	case TestStatusSkipped:
		return "Skipped"
	}
	return "Unknown"
}

// WireLog is the captured request/response for one test result. Tests is the raw assertion
// text, decoded by the assertions parser on demand.
type WireLog struct {
	RequestType     string `json:"requestType" yaml:"requestType"`
	RequestURI      string `json:"requestUri" yaml:"requestUri"`
	RequestHeaders  string `json:"requestHeaders" yaml:"requestHeaders"`
	RequestBody     string `json:"requestBody" yaml:"requestBody"`
	ResponseStatus  string `json:"responseStatus" yaml:"responseStatus"`
	ResponseHeaders string `json:"responseHeaders" yaml:"responseHeaders"`
	ResponseBody    string `json:"responseBody" yaml:"responseBody"`
	Tests           string `json:"tests" yaml:"tests"`
	ToServer        string `json:"toServer,omitempty" yaml:"toServer,omitempty"`
	FromServer      string `json:"fromServer,omitempty" yaml:"fromServer,omitempty"`
}

// TestResult is one executed compliance check. ElapsedTime is in milliseconds.
type TestResult struct {
	Name        string     `json:"name" yaml:"name"`
	Status      TestStatus `json:"status" yaml:"status"`
	ElapsedTime int64      `json:"elapsedTime" yaml:"elapsedTime"`
	Message     string     `json:"message" yaml:"message"` // "caused by" detail, may be empty
	StatusText  string     `json:"statusText,omitempty" yaml:"statusText,omitempty"`
	Wire        WireLog    `json:"wire" yaml:"wire"`
}

// RunResponse is the body returned by the compliance test suite
type RunResponse struct {
	Statistics RunStatistics `json:"statistics"`
	Results    []TestResult  `json:"results"`
}

// AssertionRecord is one check decoded from WireLog.Tests
type AssertionRecord struct {
	Name     string `json:"name" yaml:"name"`
	Status   string `json:"status" yaml:"status"`
	Actual   string `json:"actual" yaml:"actual"`
	Expected string `json:"expected" yaml:"expected"`
	Message  string `json:"message" yaml:"message"`
	// Malformed is set when the status or content lines did not line up with the name line
	Malformed bool `json:"malformed,omitempty" yaml:"malformed,omitempty"`
}

// Passed reports whether the server marked the assertion as successful
func (a AssertionRecord) Passed() bool {
	return a.Status == "Success"
}

// RunState is the run controller state
type RunState string

const (
	RunStateIdle       RunState = "idle"
	RunStateValidating RunState = "validating"
	RunStateRunning    RunState = "running"
	RunStateSucceeded  RunState = "succeeded"
	RunStateFailed     RunState = "failed"
)

// IsTerminal reports whether the run has resolved
func (s RunState) IsTerminal() bool {
	return s == RunStateSucceeded || s == RunStateFailed
}

// SummaryChart is the series fed to the dashboard's summary chart
type SummaryChart struct {
	Labels      []string  `json:"labels"`
	Values      []int     `json:"values"`
	Percentages []float64 `json:"percentages"`
}

// NewSummaryChart derives the success/failed/skipped series from statistics
func NewSummaryChart(stats RunStatistics) SummaryChart {
	values := []int{stats.Success, stats.Failed, stats.Skipped}
	total := stats.Success + stats.Failed + stats.Skipped

	percentages := make([]float64, len(values))
	if total > 0 {
		for i, v := range values {
			percentages[i] = float64(int(float64(v)*10000/float64(total)+0.5)) / 100
		}
	}

	return SummaryChart{
		Labels:      []string{"Success", "Failed", "Skipped"},
		Values:      values,
		Percentages: percentages,
	}
}

// RunSnapshot is a read-only view of the run controller for the dashboard.
// Statistics and Results are nil while a run is in progress or before the first success.
type RunSnapshot struct {
	State        RunState       `json:"state"`
	RunID        string         `json:"runId,omitempty"`
	Progress     *int           `json:"progress"` // nil when no progress indicator is shown
	Statistics   *RunStatistics `json:"statistics"`
	Results      []TestResult   `json:"results"`
	Chart        *SummaryChart  `json:"chart,omitempty"`
	LastError    string         `json:"lastError,omitempty"`
	LastRunID    string         `json:"lastSuccessfulRunId,omitempty"`
	CheckedTests int            `json:"checkedTests"`
}

// CanStart reports whether a run trigger would be accepted
func (s RunSnapshot) CanStart() bool {
	return s.State != RunStateRunning && s.State != RunStateValidating
}

// RunRecord is the history entry stored for each started run. Credentials are never stored.
type RunRecord struct {
	ID         string         `json:"id" yaml:"id"`
	State      RunState       `json:"state" yaml:"state"`
	Trigger    string         `json:"trigger" yaml:"trigger"` // "manual" or "schedule"
	Endpoint   string         `json:"endpoint" yaml:"endpoint"`
	Mode       AuthMode       `json:"mode" yaml:"mode"`
	Operations []string       `json:"operations" yaml:"operations"`
	StartedAt  time.Time      `json:"startedAt" yaml:"startedAt"`
	FinishedAt time.Time      `json:"finishedAt,omitempty" yaml:"finishedAt,omitempty"`
	Statistics *RunStatistics `json:"statistics,omitempty" yaml:"statistics,omitempty"`
	Results    []TestResult   `json:"results,omitempty" yaml:"results,omitempty"`
	Error      string         `json:"error,omitempty" yaml:"error,omitempty"`
}

// Duration returns the wall-clock time the run took, zero while unresolved
func (r RunRecord) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
