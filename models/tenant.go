package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Tenant lifecycle states. Transitions are not graph-checked beyond enum
// membership; suspended<->active is the only pair the product drives both ways.
const (
	TenantStatusTrial     = "trial"
	TenantStatusActive    = "active"
	TenantStatusSuspended = "suspended"
	TenantStatusExpired   = "expired"
)

// Tenant represents one campaign organization and owns an isolated data
// partition keyed by its ID.
type Tenant struct {
	ID        string         `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Name     string `gorm:"not null" json:"name"`
	Plan     string `gorm:"not null;index;default:'starter'" json:"plan"`
	OrgEmail string `gorm:"uniqueIndex;not null" json:"org_email"`
	Status   string `gorm:"not null;index;default:'trial'" json:"status"`

	TrialEndsAt        *time.Time `json:"trial_ends_at"`
	SubscriptionEndsAt *time.Time `json:"subscription_ends_at"`

	// Metadata carries contact/admin info captured at registration.
	Metadata datatypes.JSONMap `json:"metadata"`

	// Relations
	Domains       []Domain       `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"domains,omitempty"`
	Subscriptions []Subscription `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"subscriptions,omitempty"`
	Wallets       []Wallet       `gorm:"foreignKey:TenantID;constraint:OnDelete:CASCADE" json:"wallets,omitempty"`
}

func (t *Tenant) IsActive() bool    { return t.Status == TenantStatusActive }
func (t *Tenant) IsSuspended() bool { return t.Status == TenantStatusSuspended }

func (t *Tenant) IsOnTrial() bool {
	return t.Status == TenantStatusTrial && t.TrialEndsAt != nil && t.TrialEndsAt.After(time.Now())
}

func (t *Tenant) SubscriptionExpired() bool {
	return t.SubscriptionEndsAt != nil && t.SubscriptionEndsAt.Before(time.Now())
}

// ValidTenantStatus reports enum membership for status updates.
func ValidTenantStatus(status string) bool {
	switch status {
	case TenantStatusTrial, TenantStatusActive, TenantStatusSuspended, TenantStatusExpired:
		return true
	}
	return false
}

// Certificate lifecycle states for a Domain.
const (
	CertStatusPending = "pending"
	CertStatusIssued  = "issued"
	CertStatusFailed  = "failed"
	CertStatusExpired = "expired"
)

// Domain binds a DNS name to a tenant. Exactly one domain per tenant is
// flagged primary at creation; certificate issuance happens asynchronously.
type Domain struct {
	gorm.Model
	TenantID string `gorm:"not null;index" json:"tenant_id"`

	Domain            string `gorm:"uniqueIndex;not null" json:"domain"`
	IsPrimary         bool   `gorm:"default:false;index" json:"is_primary"`
	CertificateStatus string `gorm:"default:'pending'" json:"certificate_status"`

	CertificateIssuedAt  *time.Time `json:"certificate_issued_at"`
	CertificateExpiresAt *time.Time `json:"certificate_expires_at"`

	// Relations
	Tenant Tenant `json:"-"`
}
