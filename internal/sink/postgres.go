package sink

import (
	"context"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"jobmate/ingest-service/internal/model"
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS job_listings (
	url               TEXT PRIMARY KEY,
	title             TEXT NOT NULL,
	required_skills   TEXT[] NOT NULL DEFAULT '{}',
	additional_skills TEXT[] NOT NULL DEFAULT '{}',
	workplace_type    TEXT NOT NULL DEFAULT '',
	remote_interview  BOOLEAN NOT NULL DEFAULT false,
	payment_from      DOUBLE PRECISION,
	payment_to        DOUBLE PRECISION,
	location          TEXT NOT NULL DEFAULT 'Unknown',
	company           TEXT NOT NULL DEFAULT 'Unknown',
	listed_on         DATE NOT NULL,
	job_type          TEXT NOT NULL DEFAULT '',
	ingested_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

// PostgresDB is the subset of *pgxpool.Pool the sink uses.
type PostgresDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
	Close()
}

// Postgres stores listings in the job_listings table, one row per URL.
type Postgres struct {
	pool PostgresDB
}

// NewPostgres creates the table when absent and returns the sink. The pool
// is owned by the sink from here on.
func NewPostgres(ctx context.Context, pool PostgresDB) (*Postgres, error) {
	if _, err := pool.Exec(ctx, postgresSchema); err != nil {
		return nil, fmt.Errorf("create job_listings: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

func (p *Postgres) Name() string { return "postgres" }

// Publish inserts the batch, skipping URLs that are already stored.
func (p *Postgres) Publish(ctx context.Context, listings []model.Listing) error {
	inserted, dupes, err := p.Insert(ctx, listings)
	if err != nil {
		return err
	}
	log.Printf("[sink] postgres inserted=%d duplicates=%d", inserted, dupes)
	return nil
}

// Insert queues one INSERT per listing in a single batch and reports how
// many rows were new and how many hit an existing URL.
func (p *Postgres) Insert(ctx context.Context, listings []model.Listing) (inserted, dupes int, err error) {
	b := &pgx.Batch{}
	for _, l := range listings {
		b.Queue(`
INSERT INTO job_listings (url, title, required_skills, additional_skills, workplace_type,
  remote_interview, payment_from, payment_to, location, company, listed_on, job_type)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
ON CONFLICT (url) DO NOTHING`,
			l.URL, l.Title, l.RequiredSkills, l.AdditionalSkills, l.WorkplaceType,
			l.RemoteInterview, l.PaymentFrom, l.PaymentTo, l.Location, l.Company, l.Date, l.JobType)
	}

	br := p.pool.SendBatch(ctx, b)
	defer br.Close()

	for range listings {
		tag, err := br.Exec()
		if err != nil {
			return inserted, dupes, fmt.Errorf("insert job_listings: %w", err)
		}
		if tag.RowsAffected() == 0 {
			dupes++
		} else {
			inserted++
		}
	}
	return inserted, dupes, nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}
