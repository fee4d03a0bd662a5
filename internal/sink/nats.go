package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"jobmate/ingest-service/internal/model"
)

const DefaultSubject = "jobmate.listings"

// NATS publishes every listing as a JSON message on one subject.
type NATS struct {
	nc      *nats.Conn
	subject string
}

// NewNATS returns a sink publishing on subject through nc.
func NewNATS(nc *nats.Conn, subject string) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	return &NATS{nc: nc, subject: subject}
}

func (n *NATS) Name() string { return "nats" }

// Publish sends one message per listing and flushes before returning.
func (n *NATS) Publish(ctx context.Context, listings []model.Listing) error {
	for _, l := range listings {
		data, err := json.Marshal(l)
		if err != nil {
			return fmt.Errorf("marshal %s: %w", l.URL, err)
		}
		if err := n.nc.Publish(n.subject, data); err != nil {
			return fmt.Errorf("publish %s: %w", n.subject, err)
		}
	}
	if err := n.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	return nil
}

func (n *NATS) Close() error {
	return n.nc.Drain()
}
