package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"netasampark/models"
	"netasampark/tenancy"
	"netasampark/utils"
)

var (
	ErrOrgEmailTaken  = errors.New("organization email is already registered")
	ErrSubdomainTaken = errors.New("subdomain is already taken")
	ErrUnknownPlan    = errors.New("unknown plan")
)

// ValidationError distinguishes a rejected input from an infrastructure
// failure so the transport layer can pick the right status code.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// CreateTenantInput carries the registration fields for a new tenant.
type CreateTenantInput struct {
	Name      string `json:"name" validate:"required,max=255"`
	Email     string `json:"email" validate:"required,email,deliverable_email"`
	Subdomain string `json:"subdomain" validate:"required,max=63,subdomain"`
	Plan      string `json:"plan" validate:"required"`

	AdminName     string `json:"admin_name" validate:"required,max=255"`
	AdminEmail    string `json:"admin_email" validate:"required,email,deliverable_email"`
	AdminPassword string `json:"admin_password" validate:"required,min=8"`

	Phone        string `json:"phone" validate:"omitempty,max=15"`
	Organization string `json:"organization" validate:"omitempty,max=255"`
}

// QuotaStatus is the evaluated state of one plan metric.
type QuotaStatus struct {
	Limit      int64   `json:"limit"`
	Usage      int64   `json:"usage"`
	Percentage float64 `json:"percentage"`
	OverQuota  bool    `json:"over_quota"`
	Warning    bool    `json:"warning"`
}

// TenantService owns the tenant lifecycle: transactional provisioning,
// status updates, deletion and quota evaluation.
type TenantService struct {
	db         *gorm.DB
	partitions tenancy.Manager
	usage      UsageSource
	logger     logrus.FieldLogger

	baseDomain       string
	defaultTrialDays int
}

func NewTenantService(db *gorm.DB, partitions tenancy.Manager, usage UsageSource,
	logger logrus.FieldLogger, baseDomain string, defaultTrialDays int) *TenantService {
	return &TenantService{
		db:               db,
		partitions:       partitions,
		usage:            usage,
		logger:           logger,
		baseDomain:       baseDomain,
		defaultTrialDays: defaultTrialDays,
	}
}

// CreateTenant provisions a tenant end to end: tenant row, primary domain,
// trialing subscription, per-channel wallets, the isolated partition with its
// baseline schema, and the admin identity inside it. All of it succeeds or
// none of it is visible. Welcome notification, certificate issuance and
// reference-data seeding are deferred to asynchronous collaborators.
func (ts *TenantService) CreateTenant(ctx context.Context, input CreateTenantInput) (*models.Tenant, error) {
	if err := ts.validateInput(input); err != nil {
		return nil, err
	}

	plan, err := ts.lookupPlan(input.Plan)
	if err != nil {
		return nil, err
	}

	domainName := input.Subdomain + "." + ts.baseDomain
	if err := ts.checkUniqueness(input.Email, domainName); err != nil {
		return nil, err
	}

	trialDays := plan.TrialDays
	if trialDays <= 0 {
		trialDays = ts.defaultTrialDays
	}
	now := time.Now()
	trialEnd := now.AddDate(0, 0, trialDays)

	tenant := &models.Tenant{
		ID:          uuid.NewString(),
		Name:        input.Name,
		Plan:        plan.Slug,
		OrgEmail:    input.Email,
		Status:      models.TenantStatusTrial,
		TrialEndsAt: &trialEnd,
		Metadata: map[string]interface{}{
			"email":        input.Email,
			"phone":        input.Phone,
			"organization": input.Organization,
			"admin_name":   input.AdminName,
			"admin_email":  input.AdminEmail,
		},
	}

	partitionCreated := false
	err = ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return fmt.Errorf("create tenant: %w", err)
		}

		domain := &models.Domain{
			TenantID:          tenant.ID,
			Domain:            domainName,
			IsPrimary:         true,
			CertificateStatus: models.CertStatusPending,
		}
		if err := tx.Create(domain).Error; err != nil {
			return fmt.Errorf("create domain: %w", err)
		}

		subscription := &models.Subscription{
			TenantID:           tenant.ID,
			PlanID:             plan.ID,
			Status:             models.SubscriptionStatusTrialing,
			BillingCycle:       "monthly",
			CurrentPeriodStart: now,
			CurrentPeriodEnd:   trialEnd,
			TrialStart:         &now,
			TrialEnd:           &trialEnd,
		}
		if err := tx.Create(subscription).Error; err != nil {
			return fmt.Errorf("create subscription: %w", err)
		}

		for _, channel := range []string{models.ChannelSMS, models.ChannelWhatsApp, models.ChannelEmail, models.ChannelVoice} {
			if err := tx.Create(&models.Wallet{TenantID: tenant.ID, Type: channel}).Error; err != nil {
				return fmt.Errorf("create %s wallet: %w", channel, err)
			}
		}

		if err := ts.partitions.Create(ctx, tenant.ID); err != nil {
			return err
		}
		partitionCreated = true

		if err := ts.partitions.Migrate(tenant.ID); err != nil {
			return err
		}

		tdb, err := ts.partitions.Open(tenant.ID)
		if err != nil {
			return err
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(input.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("hash admin password: %w", err)
		}
		admin := &models.User{
			Name:         input.AdminName,
			Email:        input.AdminEmail,
			PasswordHash: string(hashed),
			Role:         "admin",
			Status:       "active",
		}
		if err := tdb.WithContext(ctx).Create(admin).Error; err != nil {
			return fmt.Errorf("create admin user: %w", err)
		}

		return nil
	})
	if err != nil {
		if partitionCreated {
			if dropErr := ts.partitions.Drop(ctx, tenant.ID); dropErr != nil {
				ts.logger.WithError(dropErr).WithField("tenant_id", tenant.ID).
					Error("failed to drop partition during provisioning rollback")
			}
		}
		return nil, fmt.Errorf("tenant provisioning failed: %w", err)
	}

	ts.logger.WithFields(logrus.Fields{
		"tenant_id": tenant.ID,
		"plan":      tenant.Plan,
		"domain":    domainName,
	}).Info("tenant provisioned")

	return tenant, nil
}

func (ts *TenantService) validateInput(input CreateTenantInput) error {
	if err := utils.ValidateStruct(input); err != nil {
		return &ValidationError{Err: err}
	}
	return nil
}

func (ts *TenantService) lookupPlan(slug string) (*models.Plan, error) {
	var plan models.Plan
	if err := ts.db.Where("slug = ? AND is_active = ?", slug, true).First(&plan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPlan, slug)
		}
		return nil, err
	}
	return &plan, nil
}

func (ts *TenantService) checkUniqueness(orgEmail, domainName string) error {
	var count int64
	if err := ts.db.Model(&models.Tenant{}).Where("org_email = ?", orgEmail).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrOrgEmailTaken
	}
	if err := ts.db.Model(&models.Domain{}).Where("domain = ?", domainName).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrSubdomainTaken
	}
	return nil
}

// UpdateStatus writes any status in the enum. The source product never
// enforced a transition graph here and neither do we; Suspend and Reactivate
// cover the one pair it actually drives.
func (ts *TenantService) UpdateStatus(ctx context.Context, tenant *models.Tenant, status string) error {
	if !models.ValidTenantStatus(status) {
		return fmt.Errorf("invalid tenant status: %s", status)
	}
	if err := ts.db.WithContext(ctx).Model(tenant).Update("status", status).Error; err != nil {
		return err
	}
	tenant.Status = status
	return nil
}

// Suspend stops access but keeps the tenant's data.
func (ts *TenantService) Suspend(ctx context.Context, tenant *models.Tenant) error {
	return ts.UpdateStatus(ctx, tenant, models.TenantStatusSuspended)
}

// Reactivate restores a suspended tenant.
func (ts *TenantService) Reactivate(ctx context.Context, tenant *models.Tenant) error {
	return ts.UpdateStatus(ctx, tenant, models.TenantStatusActive)
}

// DeleteTenant removes the tenant row with its dependents and drops the data
// partition. External side effects (file storage, third-party records) are
// reclaimed out of band.
func (ts *TenantService) DeleteTenant(ctx context.Context, tenant *models.Tenant) error {
	err := ts.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ?", tenant.ID).Delete(&models.Domain{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", tenant.ID).Delete(&models.Subscription{}).Error; err != nil {
			return err
		}
		if err := tx.Where("tenant_id = ?", tenant.ID).Delete(&models.Wallet{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(tenant).Error
	})
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}

	if err := ts.partitions.Drop(ctx, tenant.ID); err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}

	ts.logger.WithField("tenant_id", tenant.ID).Info("tenant deleted")
	return nil
}

// CheckQuotas evaluates every metric in the tenant's plan against current
// usage. Metrics with limit -1 are unlimited and skipped.
func (ts *TenantService) CheckQuotas(ctx context.Context, tenant *models.Tenant) (map[string]QuotaStatus, error) {
	plan, err := ts.lookupPlan(tenant.Plan)
	if err != nil {
		return nil, err
	}

	usage, err := ts.usage.GetUsage(ctx, tenant)
	if err != nil {
		return nil, err
	}

	status := make(map[string]QuotaStatus)
	for metric, limit := range plan.QuotaLimits() {
		if limit == -1 {
			continue
		}

		current := usage[metric]
		var percentage float64
		if limit > 0 {
			percentage = float64(current) / float64(limit) * 100
		}

		status[metric] = QuotaStatus{
			Limit:      limit,
			Usage:      current,
			Percentage: percentage,
			OverQuota:  percentage > 100,
			Warning:    percentage > 80,
		}
	}

	return status, nil
}
