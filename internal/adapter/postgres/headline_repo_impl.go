package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/user/headline-scraper/internal/entity"
)

const schema = `
	CREATE TABLE IF NOT EXISTS scrape_runs (
		id             TEXT PRIMARY KEY,
		site           TEXT NOT NULL,
		target_url     TEXT NOT NULL,
		status         TEXT NOT NULL,
		pages          INTEGER NOT NULL,
		skipped        INTEGER NOT NULL,
		failure_reason TEXT NOT NULL DEFAULT '',
		started_at     TIMESTAMPTZ NOT NULL
	);
	CREATE TABLE IF NOT EXISTS headlines (
		run_id         TEXT NOT NULL REFERENCES scrape_runs (id) ON DELETE CASCADE,
		rank           INTEGER NOT NULL,
		headline       TEXT NOT NULL,
		link           TEXT NOT NULL,
		published_time TEXT NOT NULL,
		link_status    TEXT NOT NULL DEFAULT '',
		PRIMARY KEY (run_id, rank)
	);
`

// HeadlineRepoImpl provides a concrete implementation for the HeadlineRepository interface using PostgreSQL.
type HeadlineRepoImpl struct {
	db *pgxpool.Pool
}

// NewHeadlineRepo creates a new instance of HeadlineRepoImpl.
func NewHeadlineRepo(db *pgxpool.Pool) *HeadlineRepoImpl {
	return &HeadlineRepoImpl{db: db}
}

// Connect opens a pool and verifies the database is reachable.
func Connect(ctx context.Context, url string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return pool, nil
}

func (r *HeadlineRepoImpl) EnsureSchema(ctx context.Context) error {
	_, err := r.db.Exec(ctx, schema)
	return err
}

// SaveRun stores the run and its headlines in one transaction. Saving the same run twice
// replaces its headlines.
func (r *HeadlineRepoImpl) SaveRun(ctx context.Context, run *entity.RunResult) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO scrape_runs (id, site, target_url, status, pages, skipped, failure_reason, started_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			status = EXCLUDED.status,
			pages = EXCLUDED.pages,
			skipped = EXCLUDED.skipped,
			failure_reason = EXCLUDED.failure_reason;
	`,
		run.ID,
		run.Site,
		run.TargetURL,
		string(run.Status),
		run.Pages,
		run.Skipped,
		run.FailureReason,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	batch.Queue(`DELETE FROM headlines WHERE run_id = $1;`, run.ID)
	for _, rec := range run.Records {
		batch.Queue(`
			INSERT INTO headlines (run_id, rank, headline, link, published_time, link_status)
			VALUES ($1, $2, $3, $4, $5, $6);
		`, run.ID, rec.Rank, rec.Headline, rec.Link, rec.PublishedTime, string(rec.LinkStatus))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert headlines: %w", err)
	}
	return tx.Commit(ctx)
}

// Recent retrieves up to limit headlines, newest run first and in rank order within a run.
func (r *HeadlineRepoImpl) Recent(ctx context.Context, limit int) ([]entity.HeadlineRecord, error) {
	query := `
		SELECT h.rank, h.headline, h.link, h.published_time, h.link_status
		FROM headlines h
		JOIN scrape_runs r ON r.id = h.run_id
		ORDER BY r.started_at DESC, h.rank ASC
		LIMIT $1;
	`
	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []entity.HeadlineRecord{}
	for rows.Next() {
		var rec entity.HeadlineRecord
		var status string
		if err := rows.Scan(&rec.Rank, &rec.Headline, &rec.Link, &rec.PublishedTime, &status); err != nil {
			return nil, err
		}
		rec.LinkStatus = entity.LinkStatus(status)
		records = append(records, rec)
	}
	return records, rows.Err()
}
