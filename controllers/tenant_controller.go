package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"netasampark/config"
	"netasampark/models"
	"netasampark/services"
	"netasampark/utils"
)

type TenantController struct {
	svc    *services.TenantService
	logger logrus.FieldLogger
}

func NewTenantController(svc *services.TenantService, logger logrus.FieldLogger) *TenantController {
	return &TenantController{svc: svc, logger: logger}
}

// Register provisions a new tenant. This is the public signup endpoint on
// the platform domain, not a tenant-scoped route.
func (tc *TenantController) Register(c *fiber.Ctx) error {
	var input services.CreateTenantInput
	if err := c.BodyParser(&input); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	tenant, err := tc.svc.CreateTenant(c.Context(), input)
	if err != nil {
		var vErr *services.ValidationError
		switch {
		case errors.Is(err, services.ErrOrgEmailTaken), errors.Is(err, services.ErrSubdomainTaken):
			return c.Status(fiber.StatusConflict).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.Is(err, services.ErrUnknownPlan):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		case errors.As(err, &vErr):
			body := fiber.Map{"error": vErr.Error()}
			var fields utils.FieldErrors
			if errors.As(err, &fields) {
				body["fields"] = fields
			}
			return c.Status(fiber.StatusUnprocessableEntity).JSON(body)
		}
		tc.logger.WithError(err).Error("tenant provisioning failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to provision tenant",
		})
	}

	var primary models.Domain
	_ = config.DB.Where("tenant_id = ? AND is_primary = ?", tenant.ID, true).First(&primary).Error

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"tenant": tenant,
		"domain": primary.Domain,
	})
}

// ListPlans returns the active plan catalog for the signup page.
func (tc *TenantController) ListPlans(c *fiber.Ctx) error {
	var plans []models.Plan
	if err := config.DB.Where("is_active = ?", true).Order("price_monthly ASC").Find(&plans).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch plans",
		})
	}
	return c.JSON(fiber.Map{"plans": plans})
}

// ListTenants is a platform-operator endpoint.
func (tc *TenantController) ListTenants(c *fiber.Ctx) error {
	query := config.DB.Model(&models.Tenant{})

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if plan := c.Query("plan"); plan != "" {
		query = query.Where("plan = ?", plan)
	}

	var tenants []models.Tenant
	if err := query.Preload("Domains").Order("created_at DESC").Find(&tenants).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch tenants",
		})
	}

	return c.JSON(fiber.Map{
		"tenants": tenants,
		"total":   len(tenants),
	})
}

func (tc *TenantController) GetTenant(c *fiber.Ctx) error {
	var tenant models.Tenant
	if err := config.DB.Preload("Domains").Preload("Subscriptions").Preload("Wallets").
		Where("id = ?", c.Params("id")).First(&tenant).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tenant not found",
		})
	}
	return c.JSON(tenant)
}

func (tc *TenantController) UpdateTenantStatus(c *fiber.Ctx) error {
	var req struct {
		Status string `json:"status" validate:"required"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	var tenant models.Tenant
	if err := config.DB.Where("id = ?", c.Params("id")).First(&tenant).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tenant not found",
		})
	}

	if err := tc.svc.UpdateStatus(c.Context(), &tenant, req.Status); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(tenant)
}

// DeleteTenant removes the tenant and its partition. Irreversible.
func (tc *TenantController) DeleteTenant(c *fiber.Ctx) error {
	var tenant models.Tenant
	if err := config.DB.Where("id = ?", c.Params("id")).First(&tenant).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tenant not found",
		})
	}

	if err := tc.svc.DeleteTenant(c.Context(), &tenant); err != nil {
		tc.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("tenant deletion failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete tenant",
		})
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetTenantQuotas reports plan-limit consumption for any tenant, for the
// operator console.
func (tc *TenantController) GetTenantQuotas(c *fiber.Ctx) error {
	var tenant models.Tenant
	if err := config.DB.Where("id = ?", c.Params("id")).First(&tenant).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tenant not found",
		})
	}

	quotas, err := tc.svc.CheckQuotas(c.Context(), &tenant)
	if err != nil {
		tc.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("quota check failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to evaluate quotas",
		})
	}

	return c.JSON(fiber.Map{
		"tenant_id": tenant.ID,
		"plan":      tenant.Plan,
		"quotas":    quotas,
	})
}

// GetQuotas reports plan-limit consumption for the current tenant.
func (tc *TenantController) GetQuotas(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)

	quotas, err := tc.svc.CheckQuotas(c.Context(), tenant)
	if err != nil {
		tc.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("quota check failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to evaluate quotas",
		})
	}

	return c.JSON(fiber.Map{
		"plan":   tenant.Plan,
		"quotas": quotas,
	})
}

// GetSubscription returns the current subscription and wallet balances.
func (tc *TenantController) GetSubscription(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)

	var sub models.Subscription
	err := config.DB.Where("tenant_id = ?", tenant.ID).
		Order("created_at DESC").First(&sub).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch subscription",
		})
	}

	var wallets []models.Wallet
	if err := config.DB.Where("tenant_id = ?", tenant.ID).Find(&wallets).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch wallets",
		})
	}

	return c.JSON(fiber.Map{
		"subscription": sub,
		"wallets":      wallets,
	})
}
