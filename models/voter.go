package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Geo hierarchy: constituency -> ward -> booth.

type Constituency struct {
	gorm.Model
	Name string `gorm:"not null" json:"name"`
	Code string `gorm:"uniqueIndex" json:"code"`
	Type string `json:"type"` // parliamentary, assembly, municipal
}

type Ward struct {
	gorm.Model
	ConstituencyID uint   `gorm:"not null;index" json:"constituency_id"`
	Name           string `gorm:"not null" json:"name"`
	Number         string `json:"number"`
}

type Booth struct {
	gorm.Model
	WardID  uint   `gorm:"not null;index" json:"ward_id"`
	Name    string `gorm:"not null" json:"name"`
	Number  string `json:"number"`
	Address string `json:"address"`
}

// Support level classification (5-point ordinal).
const (
	SupportStrong           = "strong_support"
	SupportLean             = "lean_support"
	SupportNeutral          = "neutral"
	SupportLeanOpposition   = "lean_opposition"
	SupportStrongOpposition = "strong_opposition"
)

// Voter is a campaign contact. A channel send must be preceded by a true
// consent flag for that channel; consent is only ever changed by explicit
// update, never inferred.
type Voter struct {
	gorm.Model
	VoterID string `gorm:"uniqueIndex;not null" json:"voter_id"` // Official voter ID

	Name        string     `gorm:"not null" json:"name"`
	FatherName  string     `json:"father_name"`
	MotherName  string     `json:"mother_name"`
	Gender      string     `gorm:"not null" json:"gender"` // male, female, other
	DateOfBirth *time.Time `json:"date_of_birth"`
	Age         int        `gorm:"index" json:"age"`
	Phone       string     `gorm:"index" json:"phone"`
	Email       string     `gorm:"index" json:"email"`
	Address     string     `json:"address"`
	Pincode     string     `json:"pincode"`

	BoothID        *uint `gorm:"index" json:"booth_id"`
	WardID         *uint `gorm:"index" json:"ward_id"`
	ConstituencyID *uint `gorm:"index" json:"constituency_id"`

	// Demographics
	Caste          string `json:"caste"`
	Religion       string `json:"religion"`
	Occupation     string `json:"occupation"`
	Education      string `json:"education"`
	EconomicStatus string `json:"economic_status"`

	// Political data
	SupportLevel   string                      `gorm:"index" json:"support_level"`
	IsInfluencer   bool                        `gorm:"default:false;index" json:"is_influencer"`
	InfluenceScore int                         `gorm:"default:0" json:"influence_score"`
	Tags           datatypes.JSONSlice[string] `json:"tags"`

	// Household data
	HouseholdID       string `gorm:"index" json:"household_id"`
	IsHeadOfHousehold bool   `gorm:"default:false" json:"is_head_of_household"`

	// Consent management. One timestamp covers all channels.
	SMSConsent       bool       `gorm:"default:false" json:"sms_consent"`
	WhatsAppConsent  bool       `gorm:"default:false" json:"whatsapp_consent"`
	EmailConsent     bool       `gorm:"default:false" json:"email_consent"`
	VoiceConsent     bool       `gorm:"default:false" json:"voice_consent"`
	ConsentUpdatedAt *time.Time `json:"consent_updated_at"`

	// Engagement tracking
	LastContactedAt   *time.Time `json:"last_contacted_at"`
	TotalInteractions int        `gorm:"default:0" json:"total_interactions"`
	EngagementScore   float64    `gorm:"default:0" json:"engagement_score"`

	// Relations
	Booth        *Booth        `json:"booth,omitempty"`
	Ward         *Ward         `json:"ward,omitempty"`
	Constituency *Constituency `json:"constituency,omitempty"`
	Messages     []Message     `gorm:"foreignKey:VoterID" json:"messages,omitempty"`
}

// HasConsent reports whether the voter consented to the given channel.
func (v *Voter) HasConsent(channel string) bool {
	switch channel {
	case ChannelSMS:
		return v.SMSConsent
	case ChannelWhatsApp:
		return v.WhatsAppConsent
	case ChannelEmail:
		return v.EmailConsent
	case ChannelVoice:
		return v.VoiceConsent
	}
	return false
}

// ContactAddress returns the channel-appropriate contact field: phone for
// sms/whatsapp/voice, email for email.
func (v *Voter) ContactAddress(channel string) string {
	if channel == ChannelEmail {
		return v.Email
	}
	return v.Phone
}

// FirstName is the first whitespace-delimited token of the voter's name.
func (v *Voter) FirstName() string {
	for i, r := range v.Name {
		if r == ' ' || r == '\t' {
			return v.Name[:i]
		}
	}
	return v.Name
}
