package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Plan is a subscription tier. Limits maps metric name to a numeric quota;
// -1 means unlimited. Quotas live in data, not code, so tiers can change
// without a deploy.
type Plan struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Slug        string `gorm:"uniqueIndex;not null" json:"slug"`
	Description string `json:"description"`

	PriceMonthly float64 `gorm:"not null" json:"price_monthly"`
	PriceAnnual  float64 `gorm:"not null" json:"price_annual"`

	Features datatypes.JSONSlice[string]          `json:"features"`
	Limits   datatypes.JSONType[map[string]int64] `json:"limits"`

	TrialDays int  `gorm:"default:14" json:"trial_days"`
	IsActive  bool `gorm:"default:true;index" json:"is_active"`
}

// QuotaLimits returns the plan's metric limits map.
func (p *Plan) QuotaLimits() map[string]int64 {
	return p.Limits.Data()
}

// NewLimits wraps a quota map for the JSON column.
func NewLimits(limits map[string]int64) datatypes.JSONType[map[string]int64] {
	return datatypes.NewJSONType(limits)
}
