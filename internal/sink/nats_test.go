package sink_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	natsserver "github.com/nats-io/nats-server/v2/test"
	"github.com/nats-io/nats.go"

	"jobmate/ingest-service/internal/model"
	"jobmate/ingest-service/internal/sink"
)

func TestNATS_PublishesEachListing(t *testing.T) {
	srv := natsserver.RunRandClientPortServer()
	defer srv.Shutdown()

	sub, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect subscriber: %v", err)
	}
	defer sub.Close()
	msgs := make(chan *nats.Msg, 4)
	if _, err := sub.ChanSubscribe(sink.DefaultSubject, msgs); err != nil {
		t.Fatal(err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatal(err)
	}

	pub, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatalf("connect publisher: %v", err)
	}
	s := sink.NewNATS(pub, "")
	if err := s.Publish(context.Background(), batch()); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	for i, want := range []string{"https://justjoin.it/offers/a", "https://justjoin.it/offers/b"} {
		select {
		case m := <-msgs:
			var l model.Listing
			if err := json.Unmarshal(m.Data, &l); err != nil {
				t.Fatalf("decode message %d: %v", i, err)
			}
			if l.URL != want || l.JobType != "Go" {
				t.Errorf("message %d = %+v", i, l)
			}
		case <-time.After(5 * time.Second):
			t.Fatalf("message %d not received", i)
		}
	}

	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNATS_CustomSubject(t *testing.T) {
	srv := natsserver.RunRandClientPortServer()
	defer srv.Shutdown()

	nc, err := nats.Connect(srv.ClientURL())
	if err != nil {
		t.Fatal(err)
	}
	defer nc.Close()
	got, err := nc.SubscribeSync("custom.listings")
	if err != nil {
		t.Fatal(err)
	}
	if err := nc.Flush(); err != nil {
		t.Fatal(err)
	}

	if err := sink.NewNATS(nc, "custom.listings").Publish(context.Background(), batch()[:1]); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if _, err := got.NextMsg(5 * time.Second); err != nil {
		t.Errorf("NextMsg: %v", err)
	}
}
