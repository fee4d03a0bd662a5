package db

import (
	"fmt"
	"log"
	"time"

	"github.com/nats-io/nats.go"
)

// NewNATSConn connects to natsURL and keeps reconnecting in the background.
func NewNATSConn(natsURL, clientName string) (*nats.Conn, error) {
	nc, err := nats.Connect(natsURL,
		nats.Name(clientName),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Printf("[nats] disconnected: %v", err)
			}
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("nats.Connect: %w", err)
	}
	return nc, nil
}
