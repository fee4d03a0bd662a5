package sink

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"jobmate/ingest-service/internal/model"
)

// ClickHouse appends listings to an analytical table. Re-ingested URLs are
// collapsed by the ReplacingMergeTree engine.
type ClickHouse struct {
	conn driver.Conn
}

// NewClickHouse creates the job_listings table when absent.
func NewClickHouse(ctx context.Context, conn driver.Conn) (*ClickHouse, error) {
	err := conn.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS job_listings (
			url String,
			title String,
			required_skills Array(String),
			additional_skills Array(String),
			workplace_type String,
			remote_interview Bool,
			payment_from Nullable(Float64),
			payment_to Nullable(Float64),
			location String,
			company String,
			listed_on Date,
			job_type String
		) ENGINE = ReplacingMergeTree()
		ORDER BY url
	`)
	if err != nil {
		return nil, fmt.Errorf("create job_listings: %w", err)
	}
	return &ClickHouse{conn: conn}, nil
}

func (c *ClickHouse) Name() string { return "clickhouse" }

func (c *ClickHouse) Publish(ctx context.Context, listings []model.Listing) error {
	batch, err := c.conn.PrepareBatch(ctx, "INSERT INTO job_listings")
	if err != nil {
		return fmt.Errorf("prepare batch: %w", err)
	}
	for _, l := range listings {
		if err := batch.Append(
			l.URL,
			l.Title,
			nonNil(l.RequiredSkills),
			nonNil(l.AdditionalSkills),
			l.WorkplaceType,
			l.RemoteInterview,
			l.PaymentFrom,
			l.PaymentTo,
			l.Location,
			l.Company,
			l.Date,
			l.JobType,
		); err != nil {
			batch.Abort()
			return fmt.Errorf("append %s: %w", l.URL, err)
		}
	}
	if err := batch.Send(); err != nil {
		return fmt.Errorf("send batch: %w", err)
	}
	return nil
}

func (c *ClickHouse) Close() error {
	return c.conn.Close()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
