package pipeline

import (
	"encoding/json"
	"time"
)

// ItemError records why one item failed.
type ItemError struct {
	Key    string `json:"key"`
	Reason string `json:"reason"`
}

// PhaseResult is the outcome of one executed phase.
// Attempted always equals Succeeded + Failed + Skipped.
type PhaseResult struct {
	Phase        Phase         `json:"phase"`
	Status       PhaseStatus   `json:"status"`
	Attempted    int           `json:"attempted"`
	Succeeded    int           `json:"succeeded"`
	Failed       int           `json:"failed"`
	Skipped      int           `json:"skipped"`
	Elapsed      time.Duration `json:"-"`
	Errors       []ItemError   `json:"errors,omitempty"`
	AdapterError string        `json:"adapter_error,omitempty"`
}

// MarshalJSON renders Elapsed as a duration string.
func (r PhaseResult) MarshalJSON() ([]byte, error) {
	type alias PhaseResult
	return json.Marshal(struct {
		alias
		Elapsed string `json:"elapsed"`
	}{alias: alias(r), Elapsed: r.Elapsed.Round(time.Millisecond).String()})
}

// RunStatus is the overall verdict of a run.
type RunStatus string

const (
	RunCompleted RunStatus = "completed"
	RunPartial   RunStatus = "partial"
	RunFailed    RunStatus = "failed"
)

// Summary describes a single pipeline run. Phases holds only the phases that
// executed, in order.
type Summary struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	Elapsed    time.Duration `json:"-"`
	DryRun     bool          `json:"dry_run"`
	Mode       Mode          `json:"mode"`
	Phases     []PhaseResult `json:"phases"`
	Status     RunStatus     `json:"status"`
	FinalState State         `json:"final_state"`
}

// MarshalJSON renders Elapsed as a duration string.
func (s Summary) MarshalJSON() ([]byte, error) {
	type alias Summary
	return json.Marshal(struct {
		alias
		Elapsed string `json:"elapsed"`
	}{alias: alias(s), Elapsed: s.Elapsed.Round(time.Millisecond).String()})
}

// Phase returns the result recorded for p, if that phase executed.
func (s Summary) Phase(p Phase) (PhaseResult, bool) {
	for _, result := range s.Phases {
		if result.Phase == p {
			return result, true
		}
	}
	return PhaseResult{}, false
}

// Failed reports whether the run ended with status failed.
func (s Summary) Failed() bool { return s.Status == RunFailed }

// deriveStatus applies the run status rule: failed if any phase failed,
// partial if any phase lost items without failing, completed otherwise.
func deriveStatus(phases []PhaseResult) RunStatus {
	status := RunCompleted
	for _, result := range phases {
		if result.Status == StatusFailed {
			return RunFailed
		}
		if result.Failed > 0 {
			status = RunPartial
		}
	}
	return status
}
