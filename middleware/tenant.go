package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"netasampark/config"
	"netasampark/models"
	"netasampark/tenancy"
)

// TenantRequired resolves the tenant from the request and attaches both the
// tenant record and its partition handle to the request context. Resolution
// order: X-Tenant-ID header, then the subdomain of the Host.
//
// Suspended and expired tenants are blocked here so no tenant-scoped handler
// needs to re-check lifecycle state.
func TenantRequired(partitions tenancy.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tenantID := c.Get("X-Tenant-ID")

		var tenant models.Tenant
		var err error
		if tenantID != "" {
			err = config.DB.Where("id = ?", tenantID).First(&tenant).Error
		} else {
			subdomain := subdomainFromHost(c.Hostname())
			if subdomain == "" {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Tenant not specified",
				})
			}
			domainName := subdomain + "." + config.AppConfig.BaseDomain
			var domain models.Domain
			if err = config.DB.Where("domain = ?", domainName).First(&domain).Error; err == nil {
				err = config.DB.Where("id = ?", domain.TenantID).First(&tenant).Error
			}
		}
		if err != nil {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "Tenant not found",
			})
		}

		if tenant.IsSuspended() {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": "Account is suspended",
			})
		}
		if tenant.Status == models.TenantStatusExpired || tenant.SubscriptionExpired() {
			return c.Status(fiber.StatusPaymentRequired).JSON(fiber.Map{
				"error": "Subscription has expired",
			})
		}

		tdb, err := partitions.Open(tenant.ID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to open tenant database",
			})
		}

		c.Locals("tenant", &tenant)
		c.Locals("tenantDB", tdb)

		return c.Next()
	}
}

// subdomainFromHost extracts the tenant subdomain, e.g.
// "testparty.netasampark.com" -> "testparty". Hosts that are not under the
// base domain yield "".
func subdomainFromHost(host string) string {
	if idx := strings.Index(host, ":"); idx != -1 {
		host = host[:idx]
	}
	suffix := "." + config.AppConfig.BaseDomain
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	if sub == "" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}
