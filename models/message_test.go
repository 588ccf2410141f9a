package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyReceipt(t *testing.T) {
	at := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("advances forward along the ladder", func(t *testing.T) {
		msg := Message{Status: StatusSent}

		require.True(t, msg.ApplyReceipt(StatusDelivered, at))
		assert.Equal(t, StatusDelivered, msg.Status)
		require.NotNil(t, msg.DeliveredAt)
		assert.Equal(t, at, *msg.DeliveredAt)

		later := at.Add(time.Minute)
		require.True(t, msg.ApplyReceipt(StatusRead, later))
		assert.Equal(t, StatusRead, msg.Status)
		require.NotNil(t, msg.ReadAt)
		assert.Equal(t, later, *msg.ReadAt)
	})

	t.Run("replayed receipt is a no-op", func(t *testing.T) {
		msg := Message{Status: StatusDelivered}
		deliveredAt := at
		msg.DeliveredAt = &deliveredAt

		assert.False(t, msg.ApplyReceipt(StatusDelivered, at.Add(time.Hour)))
		assert.Equal(t, StatusDelivered, msg.Status)
		assert.Equal(t, at, *msg.DeliveredAt)
	})

	t.Run("out-of-order receipt never regresses", func(t *testing.T) {
		msg := Message{Status: StatusRead}

		assert.False(t, msg.ApplyReceipt(StatusDelivered, at))
		assert.Equal(t, StatusRead, msg.Status)

		assert.False(t, msg.ApplyReceipt(StatusSent, at))
		assert.Equal(t, StatusRead, msg.Status)
	})

	t.Run("read backfills delivered timestamp", func(t *testing.T) {
		msg := Message{Status: StatusSent}

		require.True(t, msg.ApplyReceipt(StatusRead, at))
		require.NotNil(t, msg.DeliveredAt)
		assert.Equal(t, at, *msg.DeliveredAt)
	})

	t.Run("failed is terminal", func(t *testing.T) {
		msg := Message{Status: StatusFailed}

		assert.False(t, msg.ApplyReceipt(StatusDelivered, at))
		assert.False(t, msg.ApplyReceipt(StatusRead, at))
		assert.Equal(t, StatusFailed, msg.Status)
	})

	t.Run("unknown event is ignored", func(t *testing.T) {
		msg := Message{Status: StatusSent}

		assert.False(t, msg.ApplyReceipt("bounced", at))
		assert.Equal(t, StatusSent, msg.Status)
	})
}

func TestMarkReplied(t *testing.T) {
	at := time.Now()
	msg := Message{Status: StatusSent}

	require.True(t, msg.MarkReplied(at))
	require.NotNil(t, msg.RepliedAt)

	// Second reply on the same message changes nothing
	assert.False(t, msg.MarkReplied(at.Add(time.Hour)))
	assert.Equal(t, at, *msg.RepliedAt)
}

func TestConversationKey(t *testing.T) {
	key := ConversationKey("+919876543210", ChannelWhatsApp)

	assert.Len(t, key, 32)
	assert.Equal(t, key, ConversationKey("+919876543210", ChannelWhatsApp))

	// Same address on a different channel is a different thread
	assert.NotEqual(t, key, ConversationKey("+919876543210", ChannelSMS))
	assert.NotEqual(t, key, ConversationKey("+919876543211", ChannelWhatsApp))
}

func TestValidChannel(t *testing.T) {
	for _, channel := range []string{ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelVoice} {
		assert.True(t, ValidChannel(channel), channel)
	}
	assert.False(t, ValidChannel("pigeon"))
	assert.False(t, ValidChannel(""))
}
