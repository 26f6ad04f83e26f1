package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"

	"github.com/AliArsalanSiddiqui/v0-student-save-website-build/core"
)

// conn is the part of *nats.Conn the publisher uses.
type conn interface {
	Publish(subj string, data []byte) error
	IsConnected() bool
	Drain() error
	Close()
}

// NatsPublisher publishes JSON-encoded domain events on NATS, using the event subject as is
// (eg: "activity.offer_redeemed", "redemption.created").
// A NatsPublisher without connection drops events.
type NatsPublisher struct {
	nc     conn
	logger core.Logger
}

var _ core.EventPublisher = (*NatsPublisher)(nil)

// NewNatsPublisher connects to the configured NATS server.
// NATS is optional: events are dropped when nothing is configured or the server is unreachable.
func NewNatsPublisher(conf *core.Config, logger core.Logger) *NatsPublisher {
	pub := &NatsPublisher{logger: logger}
	if conf.Nats.URL == "" {
		logger.Info("nats not configured, events disabled")
		return pub
	}

	nc, err := nats.Connect(
		conf.Nats.URL,
		nats.Name(conf.AppName),
		nats.Timeout(3*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", err)
			}
		}),
	)
	if err != nil {
		logger.Warn("nats connection failed, events disabled", errors.Wrap(err, "eventsvc.NewNatsPublisher"))
		return pub
	}
	logger.Info("connected to nats at " + nc.ConnectedUrl())
	pub.nc = nc
	return pub
}

func (p *NatsPublisher) Enabled() bool { return p.nc != nil }

func (p *NatsPublisher) Publish(ctx context.Context, subject string, payload interface{}) error {
	if p.nc == nil {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "encoding "+subject)
	}
	if !p.nc.IsConnected() {
		return errors.Wrap(nats.ErrConnectionClosed, "publishing "+subject)
	}
	return errors.Wrap(p.nc.Publish(subject, data), "publishing "+subject)
}

// Close flushes pending events and closes the connection.
func (p *NatsPublisher) Close() {
	if p.nc == nil {
		return
	}
	if err := p.nc.Drain(); err != nil {
		p.logger.Warn("draining nats connection", err)
		p.nc.Close()
	}
}
