package models

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Channels.
const (
	ChannelSMS      = "sms"
	ChannelWhatsApp = "whatsapp"
	ChannelEmail    = "email"
	ChannelVoice    = "voice"
)

// Directions.
const (
	DirectionOutbound = "outbound"
	DirectionInbound  = "inbound"
)

// Message statuses. Outbound: pending -> sent|failed, then receipts advance
// sent -> delivered -> read (forward only). Inbound enters at received.
const (
	StatusPending   = "pending"
	StatusSent      = "sent"
	StatusDelivered = "delivered"
	StatusRead      = "read"
	StatusReplied   = "replied"
	StatusFailed    = "failed"
	StatusReceived  = "received"
)

// statusRank orders the outbound delivery ladder. Statuses off the ladder
// (failed, received, replied) never move along it.
var statusRank = map[string]int{
	StatusPending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
	StatusRead:      3,
}

// Message is one send or receive event in the ledger.
type Message struct {
	gorm.Model
	CampaignID *uint `gorm:"index" json:"campaign_id"`
	VoterID    *uint `gorm:"index" json:"voter_id"`

	Channel   string `gorm:"not null;index" json:"channel"`
	Direction string `gorm:"not null;index" json:"direction"`
	Status    string `gorm:"not null;index" json:"status"`

	// Contact details
	ToNumber   string `gorm:"index" json:"to_number"`
	ToEmail    string `gorm:"index" json:"to_email"`
	FromNumber string `json:"from_number"`
	FromEmail  string `json:"from_email"`

	// Message content
	Content        string                      `gorm:"not null" json:"content"`
	MediaURLs      datatypes.JSONSlice[string] `json:"media_urls"`
	TemplateID     string                      `json:"template_id"`
	TemplateParams datatypes.JSONMap           `json:"template_params"`

	// Delivery tracking
	ExternalID    string     `gorm:"index" json:"external_id"` // Gateway message ID
	FailureReason string     `json:"failure_reason"`
	SentAt        *time.Time `json:"sent_at"`
	DeliveredAt   *time.Time `json:"delivered_at"`
	ReadAt        *time.Time `json:"read_at"`
	RepliedAt     *time.Time `json:"replied_at"`

	// Cost tracking
	Cost        float64 `gorm:"default:0" json:"cost"`
	GatewayUsed string  `json:"gateway_used"`

	// Conversation threading
	ConversationID  string `gorm:"index" json:"conversation_id"`
	ParentMessageID *uint  `json:"parent_message_id"`

	// Relations
	Campaign *Campaign `json:"campaign,omitempty"`
	Voter    *Voter    `json:"voter,omitempty"`
}

// ApplyReceipt advances the message along the outbound delivery ladder.
// Replays and out-of-order receipts are no-ops; the return value reports
// whether anything changed. Failed messages are terminal.
func (m *Message) ApplyReceipt(event string, at time.Time) bool {
	current, onLadder := statusRank[m.Status]
	next, known := statusRank[event]
	if !onLadder || !known || next <= current {
		return false
	}

	m.Status = event
	switch event {
	case StatusDelivered:
		m.DeliveredAt = &at
	case StatusRead:
		m.ReadAt = &at
		if m.DeliveredAt == nil {
			m.DeliveredAt = &at
		}
	}
	return true
}

// MarkReplied records a reply against an outbound message. Idempotent.
func (m *Message) MarkReplied(at time.Time) bool {
	if m.RepliedAt != nil {
		return false
	}
	m.RepliedAt = &at
	return true
}

// ConversationKey derives the stable thread key for a counterpart address and
// channel, so all traffic between the same party and channel shares a thread.
func ConversationKey(address, channel string) string {
	sum := md5.Sum([]byte(address + "_" + channel))
	return hex.EncodeToString(sum[:])
}

// ValidChannel reports enum membership for the channel field.
func ValidChannel(channel string) bool {
	switch channel {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelVoice:
		return true
	}
	return false
}
