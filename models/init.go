package models

import "gorm.io/gorm"

// MigrateCentral migrates the control-plane schema: tenants, their domains,
// plans, subscriptions and wallets.
func MigrateCentral(db *gorm.DB) error {
	return db.AutoMigrate(
		&Tenant{},
		&Domain{},
		&Plan{},
		&Subscription{},
		&Wallet{},
	)
}

// MigrateTenant runs the baseline schema inside one tenant partition.
func MigrateTenant(db *gorm.DB) error {
	return db.AutoMigrate(
		&User{},
		&Constituency{},
		&Ward{},
		&Booth{},
		&Voter{},
		&Campaign{},
		&Message{},
	)
}

// CreateDefaultPlans seeds the subscription tiers with their quota maps.
// Limits use -1 for unlimited.
func CreateDefaultPlans(db *gorm.DB) error {
	defaultPlans := []Plan{
		{
			Name:         "Starter",
			Slug:         "starter",
			Description:  "Perfect for small constituencies and local campaigns",
			PriceMonthly: 2999.00,
			PriceAnnual:  29990.00,
			Features:     []string{"voter_crm", "basic_communication", "basic_analytics", "ticketing", "calendar"},
			Limits: NewLimits(map[string]int64{
				"voters":           10000,
				"sms_monthly":      5000,
				"whatsapp_monthly": 2000,
				"email_monthly":    10000,
				"voice_minutes":    100,
				"storage_gb":       5,
				"users":            5,
			}),
			TrialDays: 14,
			IsActive:  true,
		},
		{
			Name:         "Professional",
			Slug:         "professional",
			Description:  "Ideal for assembly constituencies and medium campaigns",
			PriceMonthly: 9999.00,
			PriceAnnual:  99990.00,
			Features: []string{
				"voter_crm", "advanced_communication", "advanced_analytics", "predictions",
				"ticketing", "calendar", "surveys", "issues", "news_monitoring", "finance_basic",
			},
			Limits: NewLimits(map[string]int64{
				"voters":           50000,
				"sms_monthly":      25000,
				"whatsapp_monthly": 10000,
				"email_monthly":    50000,
				"voice_minutes":    500,
				"storage_gb":       25,
				"users":            25,
			}),
			TrialDays: 14,
			IsActive:  true,
		},
		{
			Name:         "Enterprise",
			Slug:         "enterprise",
			Description:  "For parliamentary constituencies and large-scale campaigns",
			PriceMonthly: 29999.00,
			PriceAnnual:  299990.00,
			Features: []string{
				"voter_crm", "advanced_communication", "advanced_analytics", "predictions",
				"ticketing", "calendar", "surveys", "issues", "news_monitoring",
				"finance_advanced", "partner_management", "white_label", "api_access",
				"custom_integrations",
			},
			Limits: NewLimits(map[string]int64{
				"voters":           -1,
				"sms_monthly":      -1,
				"whatsapp_monthly": -1,
				"email_monthly":    -1,
				"voice_minutes":    -1,
				"storage_gb":       100,
				"users":            100,
			}),
			TrialDays: 30,
			IsActive:  true,
		},
	}
	for _, plan := range defaultPlans {
		if err := db.FirstOrCreate(&plan, "slug = ?", plan.Slug).Error; err != nil {
			return err
		}
	}
	return nil
}
