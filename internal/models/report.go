package models

import "time"

// Mode describes how a run selected its candidates
type Mode string

const (
	ModeSingle  Mode = "single"
	ModeWalk    Mode = "walk"
	ModeGuarded Mode = "guarded"
)

// Status is the outcome of a single minification
type Status string

const (
	StatusOK      Status = "ok"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Result represents the outcome of minifying one candidate
type Result struct {
	Candidate Candidate     `json:"candidate"`
	Status    Status        `json:"status"`
	ExitCode  int           `json:"exit_code"`
	Stderr    string        `json:"stderr,omitempty"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

// Failed reports whether the minification did not succeed
func (r Result) Failed() bool {
	return r.Status == StatusFailed
}

// Report summarizes a full run
type Report struct {
	Kind         Kind      `json:"kind"`
	Mode         Mode      `json:"mode"`
	Root         string    `json:"root"`
	SyncDetected bool      `json:"sync_detected"`
	DryRun       bool      `json:"dry_run,omitempty"`
	Results      []Result  `json:"results"`
	Started      time.Time `json:"started"`
	Finished     time.Time `json:"finished"`
}

// Add appends a result to the report
func (r *Report) Add(res Result) {
	r.Results = append(r.Results, res)
}

// Counts returns the number of results per status
func (r *Report) Counts() (ok, failed, skipped int) {
	for _, res := range r.Results {
		switch res.Status {
		case StatusOK:
			ok++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return ok, failed, skipped
}

// HasFailures reports whether any minification failed
func (r *Report) HasFailures() bool {
	_, failed, _ := r.Counts()
	return failed > 0
}
