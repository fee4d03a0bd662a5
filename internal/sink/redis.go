package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"jobmate/ingest-service/internal/model"
)

const (
	SeenKey       = "jobmate:listings:seen"
	EventIngested = "EVENT_LISTINGS_INGESTED"
)

// IngestedEvent is published once per processed source batch.
type IngestedEvent struct {
	Type    string    `json:"type"`
	EventID string    `json:"eventId"`
	JobType string    `json:"jobType"`
	Count   int       `json:"count"`
	URLs    []string  `json:"urls"`
	At      time.Time `json:"at"`
}

// NewIngestedEvent builds the event for one batch. JobType is taken from the
// first listing; a batch always comes from a single source.
func NewIngestedEvent(listings []model.Listing, at time.Time) IngestedEvent {
	ev := IngestedEvent{
		Type:    EventIngested,
		EventID: uuid.NewString(),
		Count:   len(listings),
		URLs:    make([]string, len(listings)),
		At:      at.UTC(),
	}
	for i, l := range listings {
		ev.URLs[i] = l.URL
	}
	if len(listings) > 0 {
		ev.JobType = listings[0].JobType
	}
	return ev
}

// Redis keeps the set of seen listing URLs and announces ingested batches on
// the EVENT_LISTINGS_INGESTED channel.
type Redis struct {
	rdb *redis.Client
	now func() time.Time
}

// NewRedis returns a Redis sink and registry.
func NewRedis(rdb *redis.Client) *Redis {
	return &Redis{rdb: rdb, now: time.Now}
}

func (r *Redis) Name() string { return "redis" }

// MarkSeen adds every URL to the seen set and returns how many were new.
func (r *Redis) MarkSeen(ctx context.Context, listings []model.Listing) (int, error) {
	if len(listings) == 0 {
		return 0, nil
	}
	pipe := r.rdb.Pipeline()
	cmds := make([]*redis.IntCmd, len(listings))
	for i, l := range listings {
		cmds[i] = pipe.SAdd(ctx, SeenKey, l.URL)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("sadd %s: %w", SeenKey, err)
	}
	added := 0
	for _, c := range cmds {
		added += int(c.Val())
	}
	return added, nil
}

// Publish announces the batch. Subscribers read the listings from the
// durable stores.
func (r *Redis) Publish(ctx context.Context, listings []model.Listing) error {
	payload, err := json.Marshal(NewIngestedEvent(listings, r.now()))
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := r.rdb.Publish(ctx, EventIngested, payload).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", EventIngested, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.rdb.Close()
}
