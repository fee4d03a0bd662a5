package sink_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"

	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/sink"
)

// fakeCHConn implements the calls the sink makes; anything else panics
// through the nil embedded interface.
type fakeCHConn struct {
	driver.Conn
	execs   []string
	batch   *fakeCHBatch
	prepErr error
	failRow int // 1-based row whose Append fails; 0 never fails
}

func (c *fakeCHConn) Exec(_ context.Context, query string, _ ...any) error {
	c.execs = append(c.execs, query)
	return nil
}

func (c *fakeCHConn) PrepareBatch(_ context.Context, query string, _ ...driver.PrepareBatchOption) (driver.Batch, error) {
	if c.prepErr != nil {
		return nil, c.prepErr
	}
	c.batch = &fakeCHBatch{query: query, failRow: c.failRow}
	return c.batch, nil
}

func (c *fakeCHConn) Close() error { return nil }

type fakeCHBatch struct {
	driver.Batch
	query   string
	rows    [][]any
	failRow int
	sent    bool
	aborted bool
}

func (b *fakeCHBatch) Append(v ...any) error {
	if len(b.rows)+1 == b.failRow {
		return errors.New("type mismatch")
	}
	b.rows = append(b.rows, v)
	return nil
}

func (b *fakeCHBatch) Send() error  { b.sent = true; return nil }
func (b *fakeCHBatch) Abort() error { b.aborted = true; return nil }

func TestClickHouse_PublishAppendsRows(t *testing.T) {
	conn := &fakeCHConn{}
	ch, err := sink.NewClickHouse(context.Background(), conn)
	if err != nil {
		t.Fatalf("NewClickHouse: %v", err)
	}
	if len(conn.execs) != 1 || !strings.Contains(conn.execs[0], "ReplacingMergeTree") {
		t.Errorf("execs = %q", conn.execs)
	}

	if err := ch.Publish(context.Background(), batch()); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	b := conn.batch
	if !b.sent || len(b.rows) != 2 || b.query != "INSERT INTO job_listings" {
		t.Fatalf("sent=%v rows=%d query=%q", b.sent, len(b.rows), b.query)
	}
	row := b.rows[0]
	if len(row) != 12 || row[0] != "https://justjoin.it/offers/a" || row[11] != "Go" {
		t.Errorf("row = %v", row)
	}
	if skills, ok := row[2].([]string); !ok || skills == nil {
		t.Errorf("required_skills = %#v, want a non-nil slice for Array(String)", row[2])
	}
}

func TestClickHouse_AppendFailureAborts(t *testing.T) {
	conn := &fakeCHConn{failRow: 2}
	ch, err := sink.NewClickHouse(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.Publish(context.Background(), []model.Listing{{URL: "a"}, {URL: "b"}}); err == nil {
		t.Fatal("expected append error")
	}
	if !conn.batch.aborted || conn.batch.sent {
		t.Errorf("aborted=%v sent=%v, want aborted and not sent", conn.batch.aborted, conn.batch.sent)
	}
}

func TestClickHouse_PrepareFailure(t *testing.T) {
	conn := &fakeCHConn{prepErr: errors.New("connection reset")}
	ch, err := sink.NewClickHouse(context.Background(), conn)
	if err != nil {
		t.Fatal(err)
	}
	if err := ch.Publish(context.Background(), batch()); err == nil {
		t.Fatal("expected prepare error")
	}
}
