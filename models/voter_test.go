package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVoterHasConsent(t *testing.T) {
	voter := Voter{
		SMSConsent:      true,
		WhatsAppConsent: false,
		EmailConsent:    true,
		VoiceConsent:    false,
	}

	assert.True(t, voter.HasConsent(ChannelSMS))
	assert.False(t, voter.HasConsent(ChannelWhatsApp))
	assert.True(t, voter.HasConsent(ChannelEmail))
	assert.False(t, voter.HasConsent(ChannelVoice))
	assert.False(t, voter.HasConsent("unknown"))
}

func TestVoterContactAddress(t *testing.T) {
	voter := Voter{Phone: "+919876543210", Email: "asha@example.org"}

	assert.Equal(t, "+919876543210", voter.ContactAddress(ChannelSMS))
	assert.Equal(t, "+919876543210", voter.ContactAddress(ChannelWhatsApp))
	assert.Equal(t, "+919876543210", voter.ContactAddress(ChannelVoice))
	assert.Equal(t, "asha@example.org", voter.ContactAddress(ChannelEmail))
}

func TestVoterFirstName(t *testing.T) {
	assert.Equal(t, "Asha", (&Voter{Name: "Asha Rao"}).FirstName())
	assert.Equal(t, "Asha", (&Voter{Name: "Asha"}).FirstName())
	assert.Equal(t, "", (&Voter{Name: ""}).FirstName())
}

func TestValidTenantStatus(t *testing.T) {
	for _, status := range []string{TenantStatusTrial, TenantStatusActive, TenantStatusSuspended, TenantStatusExpired} {
		assert.True(t, ValidTenantStatus(status), status)
	}
	assert.False(t, ValidTenantStatus("archived"))
}
