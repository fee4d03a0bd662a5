// Package sink fans ingested listings out to optional external stores and
// brokers. Every sink is best effort: the CSV stores remain authoritative.
package sink

import (
	"context"
	"errors"
	"log/slog"

	"jobmate/ingest-service/internal/model"
)

// Sink receives every batch of processed listings of a source.
type Sink interface {
	Name() string
	Publish(ctx context.Context, listings []model.Listing) error
	Close() error
}

// Registry records listing URLs across runs and reports how many of a batch
// it had not seen before.
type Registry interface {
	MarkSeen(ctx context.Context, listings []model.Listing) (int, error)
}

// PublishAll hands listings to every sink. Failures are logged and do not
// stop the remaining sinks.
func PublishAll(ctx context.Context, sinks []Sink, listings []model.Listing) {
	if len(listings) == 0 {
		return
	}
	for _, s := range sinks {
		if err := s.Publish(ctx, listings); err != nil {
			slog.Warn("sink publish failed", "sink", s.Name(), "listings", len(listings), "err", err)
		}
	}
}

// CloseAll closes every sink and joins the errors.
func CloseAll(sinks []Sink) error {
	var errs []error
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
