package repository

import (
	"context"

	"github.com/user/headline-scraper/internal/entity"
)

// HeadlineRepository persists scrape runs and their headlines.
type HeadlineRepository interface {
	// EnsureSchema creates the tables the repository needs if they are missing.
	EnsureSchema(ctx context.Context) error
	// SaveRun stores the run summary and all of its records atomically.
	SaveRun(ctx context.Context, run *entity.RunResult) error
	// Recent returns the most recently stored headlines, newest run first, in rank order.
	Recent(ctx context.Context, limit int) ([]entity.HeadlineRecord, error)
}
