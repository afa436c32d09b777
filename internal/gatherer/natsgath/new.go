package natsgath

import (
	"log/slog"

	"github.com/nats-io/nats.go"
)

// Publisher is the part of *nats.Conn the gatherer needs.
type Publisher interface {
	Publish(subj string, data []byte) error
}

var _ Publisher = (*nats.Conn)(nil)

// New creates a new NATS gatherer that streams responses to the given inbox subject.
func New(nc Publisher, evalUuid string, inbox string, logger *slog.Logger) *natsGatherer {
	return &natsGatherer{
		nc:       nc,
		inbox:    inbox,
		evalUuid: evalUuid,
		logger:   logger,
	}
}
