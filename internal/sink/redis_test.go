package sink_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/sink"
)

func newRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return mr, rdb
}

func TestRedis_MarkSeenCountsOnlyNewURLs(t *testing.T) {
	mr, rdb := newRedis(t)
	r := sink.NewRedis(rdb)
	ctx := context.Background()

	n, err := r.MarkSeen(ctx, batch())
	if err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if n != 2 {
		t.Errorf("first MarkSeen = %d, want 2", n)
	}

	again := append(batch(), model.Listing{URL: "https://justjoin.it/offers/c"})
	n, err = r.MarkSeen(ctx, again)
	if err != nil {
		t.Fatalf("MarkSeen: %v", err)
	}
	if n != 1 {
		t.Errorf("second MarkSeen = %d, want 1", n)
	}

	members, err := mr.Members(sink.SeenKey)
	if err != nil {
		t.Fatal(err)
	}
	if len(members) != 3 {
		t.Errorf("seen set = %q", members)
	}
}

func TestRedis_MarkSeenEmptyBatch(t *testing.T) {
	mr, rdb := newRedis(t)
	n, err := sink.NewRedis(rdb).MarkSeen(context.Background(), nil)
	if err != nil || n != 0 {
		t.Errorf("MarkSeen(nil) = %d, %v", n, err)
	}
	if mr.Exists(sink.SeenKey) {
		t.Error("empty batch should not create the seen set")
	}
}

func TestRedis_MarkSeenServerError(t *testing.T) {
	mr, rdb := newRedis(t)
	mr.SetError("LOADING server is loading")
	if _, err := sink.NewRedis(rdb).MarkSeen(context.Background(), batch()); err == nil {
		t.Fatal("expected error from a failing server")
	}
}

func TestRedis_PublishAnnouncesBatch(t *testing.T) {
	_, rdb := newRedis(t)
	ctx := context.Background()

	sub := rdb.Subscribe(ctx, sink.EventIngested)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	if err := sink.NewRedis(rdb).Publish(ctx, batch()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var ev sink.IngestedEvent
		if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if ev.Type != sink.EventIngested || ev.JobType != "Go" || ev.Count != 2 || len(ev.URLs) != 2 {
			t.Errorf("event = %+v", ev)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no event received")
	}
}
