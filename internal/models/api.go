package models

import "time"

// MinifyRequest represents an incoming request to run the minifier
type MinifyRequest struct {
	Kind       string `json:"kind" binding:"required"`
	Path       string `json:"path,omitempty"`
	Strict     bool   `json:"strict,omitempty"`
	IgnoreSync bool   `json:"ignore_sync,omitempty"`
	DryRun     bool   `json:"dry_run,omitempty"`
}

// SyncStatus represents the state of the sync guard
type SyncStatus struct {
	Process string `json:"process"`
	Enabled bool   `json:"enabled"`
	Running bool   `json:"running"`
	Error   string `json:"error,omitempty"`
}

// RunSummary is a condensed view of the last report
type RunSummary struct {
	Kind     Kind      `json:"kind"`
	Mode     Mode      `json:"mode"`
	OK       int       `json:"ok"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Finished time.Time `json:"finished"`
}

// SummarizeReport condenses a report for status endpoints
func SummarizeReport(r *Report) *RunSummary {
	if r == nil {
		return nil
	}
	ok, failed, skipped := r.Counts()
	return &RunSummary{
		Kind:     r.Kind,
		Mode:     r.Mode,
		OK:       ok,
		Failed:   failed,
		Skipped:  skipped,
		Finished: r.Finished,
	}
}

// SystemResources represents resource usage of the runner process
type SystemResources struct {
	CPUCount      int     `json:"cpu_count"`
	CPUPercent    float64 `json:"cpu_percent"`
	MemoryRSS     uint64  `json:"memory_rss"`
	MemoryPercent float32 `json:"memory_percent"`
	DiskTotal     uint64  `json:"disk_total"`
	DiskUsed      uint64  `json:"disk_used"`
	DiskPercent   float64 `json:"disk_percent"`
}

// ServerInfoResponse represents the server info response
type ServerInfoResponse struct {
	Uptime    float64         `json:"uptime"`
	IdleTime  float64         `json:"idle_time"`
	Root      string          `json:"root"`
	Engine    string          `json:"engine"`
	LastRun   *RunSummary     `json:"last_run,omitempty"`
	Sync      SyncStatus      `json:"sync"`
	Resources SystemResources `json:"resources"`
}
