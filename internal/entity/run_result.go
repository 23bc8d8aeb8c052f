package entity

import "time"

type RunStatus string

const (
	RunSucceeded RunStatus = "succeeded"
	RunPartial   RunStatus = "partial" // pagination or a later page failed, earlier pages were kept
	RunFailed    RunStatus = "failed"
)

// ExportOutcome records what happened to one export sink during a run.
type ExportOutcome struct {
	Format string `json:"format"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
}

// RunResult summarises one scrape run.
type RunResult struct {
	ID            string           `json:"id"`
	Site          string           `json:"site"`
	TargetURL     string           `json:"target_url"`
	StartedAt     time.Time        `json:"started_at"`
	FinishedAt    time.Time        `json:"finished_at"`
	Pages         int              `json:"pages"`
	Records       []HeadlineRecord `json:"records"`
	Skipped       int              `json:"skipped"`
	Exports       []ExportOutcome  `json:"exports,omitempty"`
	Status        RunStatus        `json:"status"`
	FailureReason string           `json:"failure_reason,omitempty"`
}

// Duration returns the wall time of the run, or zero while it is still in progress.
func (r *RunResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
