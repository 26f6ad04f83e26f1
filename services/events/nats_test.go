package eventsvc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	testutil "github.com/AliArsalanSiddiqui/v0-student-save-website-build/tests"
)

type published struct {
	subject string
	data    []byte
}

type fakeConn struct {
	connected bool
	sent      []published
	drained   bool
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	c.sent = append(c.sent, published{subject: subj, data: data})
	return nil
}
func (c *fakeConn) IsConnected() bool { return c.connected }
func (c *fakeConn) Drain() error      { c.drained = true; return nil }
func (c *fakeConn) Close()            {}

func TestNatsPublisher_Publish(t *testing.T) {
	conf := testutil.NewConfig()
	logger := testutil.NewLogger(conf)
	ctx := context.Background()

	t.Run("disabled", func(t *testing.T) {
		p := NewNatsPublisher(conf, logger)
		assert.False(t, p.Enabled())
		assert.NoError(t, p.Publish(ctx, "redemption.created", map[string]string{"id": "1"}))
		p.Close()
	})

	t.Run("subjects are used as is", func(t *testing.T) {
		nc := &fakeConn{connected: true}
		p := &NatsPublisher{nc: nc, logger: logger}

		require.NoError(t, p.Publish(ctx, "activity.offer_redeemed", map[string]string{"id": "1"}))
		require.NoError(t, p.Publish(ctx, "redemption.created", map[string]string{"id": "2"}))

		require.Len(t, nc.sent, 2)
		assert.Equal(t, "activity.offer_redeemed", nc.sent[0].subject)
		assert.Equal(t, "redemption.created", nc.sent[1].subject)

		var payload map[string]string
		require.NoError(t, json.Unmarshal(nc.sent[1].data, &payload))
		assert.Equal(t, "2", payload["id"])

		p.Close()
		assert.True(t, nc.drained)
	})

	t.Run("disconnected", func(t *testing.T) {
		p := &NatsPublisher{nc: &fakeConn{}, logger: logger}
		err := p.Publish(ctx, "redemption.created", nil)
		assert.ErrorIs(t, err, nats.ErrConnectionClosed)
	})
}
