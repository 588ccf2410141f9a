package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Subscription statuses.
const (
	SubscriptionStatusActive    = "active"
	SubscriptionStatusCancelled = "cancelled"
	SubscriptionStatusPastDue   = "past_due"
	SubscriptionStatusTrialing  = "trialing"
)

// Subscription links a tenant to its plan for a billing period. Charging and
// invoicing are handled by an external billing collaborator.
type Subscription struct {
	gorm.Model
	TenantID string `gorm:"not null;index" json:"tenant_id"`
	PlanID   uint   `gorm:"not null" json:"plan_id"`

	Status       string `gorm:"not null;index" json:"status"`
	BillingCycle string `gorm:"default:'monthly'" json:"billing_cycle"` // monthly, annual

	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	TrialStart         *time.Time `json:"trial_start"`
	TrialEnd           *time.Time `json:"trial_end"`
	CancelledAt        *time.Time `json:"cancelled_at"`

	Metadata datatypes.JSONMap `json:"metadata"`

	// Relations
	Tenant Tenant `json:"-"`
	Plan   Plan   `json:"plan,omitempty"`
}

// Wallet holds a tenant's prepaid balance for one channel. The dispatch
// engine debits it with the accumulated cost of a finished campaign.
type Wallet struct {
	gorm.Model
	TenantID string `gorm:"not null;index:idx_wallet_tenant_type,unique" json:"tenant_id"`
	Type     string `gorm:"not null;index:idx_wallet_tenant_type,unique" json:"type"` // sms, whatsapp, email, voice

	Balance         float64 `gorm:"default:0" json:"balance"`
	ReservedBalance float64 `gorm:"default:0" json:"reserved_balance"`

	AutoRecharge          bool     `gorm:"default:false" json:"auto_recharge"`
	AutoRechargeThreshold *float64 `json:"auto_recharge_threshold"`
	AutoRechargeAmount    *float64 `json:"auto_recharge_amount"`

	// Relations
	Tenant Tenant `json:"-"`
}
