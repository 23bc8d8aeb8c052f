package response

import (
	"time"

	"github.com/user/headline-scraper/internal/entity"
)

type TriggerRunResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RunResponse is a DTO for a finished run, mirroring entity.RunResult without the records.
type RunResponse struct {
	ID            string                 `json:"id"`
	Site          string                 `json:"site"`
	TargetURL     string                 `json:"target_url"`
	Status        string                 `json:"status"` // "succeeded", "partial", "failed"
	StartedAt     time.Time              `json:"started_at"`
	FinishedAt    *time.Time             `json:"finished_at,omitempty"`
	Pages         int                    `json:"pages"`
	Headlines     int                    `json:"headlines"`
	Skipped       int                    `json:"skipped"`
	Exports       []entity.ExportOutcome `json:"exports,omitempty"`
	FailureReason string                 `json:"failure_reason,omitempty"`
}

func NewRunResponse(run *entity.RunResult) RunResponse {
	resp := RunResponse{
		ID:            run.ID,
		Site:          run.Site,
		TargetURL:     run.TargetURL,
		Status:        string(run.Status),
		StartedAt:     run.StartedAt,
		Pages:         run.Pages,
		Headlines:     len(run.Records),
		Skipped:       run.Skipped,
		Exports:       run.Exports,
		FailureReason: run.FailureReason,
	}
	if !run.FinishedAt.IsZero() {
		finished := run.FinishedAt
		resp.FinishedAt = &finished
	}
	return resp
}

type HeadlinesResponse struct {
	Count     int                     `json:"count"`
	Headlines []entity.HeadlineRecord `json:"headlines"`
}
