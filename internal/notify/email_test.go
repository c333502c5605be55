package notify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureSender struct {
	sent []EmailMessage
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	c.sent = append(c.sent, msg)
	return nil
}

func TestNewSendGridSenderWithoutKey(t *testing.T) {
	assert.Nil(t, NewSendGridSender(SendGridConfig{}, nil))
}

func TestPaymentNotifier(t *testing.T) {
	t.Run("optional when unconfigured", func(t *testing.T) {
		assert.Nil(t, NewPaymentNotifier(nil, "ops@example.com"))
		assert.Nil(t, NewPaymentNotifier(&captureSender{}, ""))
	})

	t.Run("reports the purchase", func(t *testing.T) {
		sender := &captureSender{}
		notifier := NewPaymentNotifier(sender, "ops@example.com")
		require.NotNil(t, notifier)

		require.NoError(t, notifier.PaymentCompleted(context.Background(), "4915551234", "premium", 1200))
		require.Len(t, sender.sent, 1)
		assert.Equal(t, "ops@example.com", sender.sent[0].To)
		assert.Contains(t, sender.sent[0].Body, "premium")
		assert.Contains(t, sender.sent[0].Body, "1200")
	})
}
