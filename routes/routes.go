package routes

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	controller "netasampark/controllers"
	"netasampark/middleware"
	"netasampark/services"
	"netasampark/tenancy"
)

// Dependencies carries the wired services into route registration.
type Dependencies struct {
	DB         *gorm.DB
	Partitions tenancy.Manager
	Tenants    *services.TenantService
	Comms      *services.CommunicationService
	Logger     *logrus.Logger
}

// SetupCentralRoutes registers the platform-domain surface: signup, the
// operator console and provider webhooks. None of these run inside a tenant
// partition; webhooks resolve their tenant from the path.
func SetupCentralRoutes(app *fiber.App, deps Dependencies) {
	tenantController := controller.NewTenantController(deps.Tenants, deps.Logger.WithField("component", "tenants"))
	webhookController := controller.NewWebhookController(deps.Comms, deps.Partitions, deps.Logger.WithField("component", "webhooks"))

	app.Post("/register", tenantController.Register)
	app.Get("/plans", tenantController.ListPlans)

	// Operator console
	admin := app.Group("/admin", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	admin.Get("/tenants", tenantController.ListTenants)
	admin.Get("/tenants/:id", tenantController.GetTenant)
	admin.Get("/tenants/:id/quotas", tenantController.GetTenantQuotas)
	admin.Patch("/tenants/:id/status", tenantController.UpdateTenantStatus)
	admin.Delete("/tenants/:id", tenantController.DeleteTenant)

	// Provider callbacks; gateways retry on 429
	webhooks := app.Group("/webhooks/:tenant", middleware.WebhookRateLimiter())
	webhooks.Post("/inbound", webhookController.HandleInbound)
	webhooks.Post("/delivery", webhookController.HandleDeliveryReceipt)
}

// SetupTenantRoutes registers the tenant-scoped API. Every route below runs
// behind TenantRequired, so handlers can rely on the tenant record and
// partition handle being in request locals.
func SetupTenantRoutes(app *fiber.App, deps Dependencies) {
	tenantController := controller.NewTenantController(deps.Tenants, deps.Logger.WithField("component", "tenants"))
	commController := controller.NewCommunicationController(deps.Comms, deps.Logger.WithField("component", "communication"))
	campaignController := controller.NewCampaignController(deps.Comms, deps.Logger.WithField("component", "campaigns"))

	api := app.Group("/api/v1", middleware.TenantRequired(deps.Partitions), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public within the tenant context
	api.Post("/auth/login", controller.Login)
	api.Post("/auth/refresh", controller.RefreshToken)

	protected := api.Group("", middleware.Protected())
	protected.Get("/auth/me", controller.GetCurrentUser)

	protected.Get("/account/quotas", tenantController.GetQuotas)
	protected.Get("/account/subscription", tenantController.GetSubscription)

	// Messaging
	messages := protected.Group("/messages")
	messages.Post("/send", middleware.SendRateLimiter(), commController.SendMessage)
	messages.Get("/inbox", commController.GetInbox)

	protected.Patch("/voters/:id/consent", commController.UpdateConsent)

	// Campaign routes
	campaign := protected.Group("/campaigns")
	campaign.Post("/", campaignController.CreateCampaign)
	campaign.Get("/", campaignController.ListCampaigns)
	campaign.Get("/:id", campaignController.GetCampaign)
	campaign.Post("/:id/launch", campaignController.LaunchCampaign)
	campaign.Post("/:id/pause", campaignController.PauseCampaign)
	campaign.Post("/:id/cancel", campaignController.CancelCampaign)
	campaign.Get("/:id/stats", campaignController.GetCampaignStats)
}

func SetupRoutes(app *fiber.App, deps Dependencies) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupCentralRoutes(app, deps)
	SetupTenantRoutes(app, deps)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
