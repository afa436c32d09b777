package notify

import (
	"context"
	"fmt"

	"github.com/nats-io/nats.go"
)

type natsConn interface {
	Publish(subj string, data []byte) error
}

var _ natsConn = (*nats.Conn)(nil)

type NATS struct {
	nc      natsConn
	subject string
}

func NewNATS(nc *nats.Conn, subject string) *NATS {
	return &NATS{nc: nc, subject: subject}
}

func (p *NATS) Publish(ctx context.Context, ev Event) error {
	body, err := ev.encode()
	if err != nil {
		return err
	}
	if err := p.nc.Publish(p.subject, body); err != nil {
		return fmt.Errorf("nats publish to %s: %w", p.subject, err)
	}
	return nil
}
