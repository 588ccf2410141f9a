package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gopkg.in/gomail.v2"

	"netasampark/config"
	"netasampark/gateway"
	"netasampark/middleware"
	"netasampark/routes"
	"netasampark/services"
	"netasampark/tenancy"
	"netasampark/worker"
)

func main() {
	workerLogger := log.New(os.Stdout, "CAMPAIGN: ", log.Ldate|log.Ltime|log.Lshortfile)

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		workerLogger.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logrus.New()
	appLogger.SetFormatter(&logrus.JSONFormatter{})
	if config.AppConfig.Environment == "development" {
		appLogger.SetLevel(logrus.DebugLevel)
	}

	if config.AppConfig.SentryDSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:         config.AppConfig.SentryDSN,
			Environment: config.AppConfig.Environment,
		})
		if err != nil {
			appLogger.WithError(err).Warn("sentry initialization failed")
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Initialize database connection
	if err := config.ConnectDB(); err != nil {
		workerLogger.Fatalf("Failed to connect to database: %v", err)
	}

	partitions := tenancy.NewSchemaManager(config.DB, config.CentralDSN())

	// Gateway adapters; SMTP relay is optional in development
	var dialer *gomail.Dialer
	if config.AppConfig.SMTPHost != "" {
		dialer = gomail.NewDialer(
			config.AppConfig.SMTPHost,
			config.AppConfig.SMTPPort,
			config.AppConfig.SMTPUsername,
			config.AppConfig.SMTPPassword,
		)
	}
	gateways := gateway.NewSelector(config.AppConfig.Gateway, dialer, config.AppConfig.FromEmail)

	// Services
	usage := services.NewPartitionUsage(partitions)
	guard := services.NewGuard(nil)
	tenants := services.NewTenantService(config.DB, partitions, usage,
		appLogger.WithField("component", "tenants"),
		config.AppConfig.BaseDomain, config.AppConfig.DefaultTrialDays)
	comms := services.NewCommunicationService(config.DB, gateways, guard,
		config.AppConfig.ChannelCosts, appLogger.WithField("component", "communication"))

	// Create Fiber app
	app := fiber.New()

	// Add CORS middleware
	app.Use(middleware.CORS())

	// Initialize and start campaign worker
	campaignWorker := worker.NewCampaignWorker(config.DB, partitions, comms, workerLogger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go campaignWorker.Start(ctx)

	// Setup routes
	routes.SetupRoutes(app, routes.Dependencies{
		DB:         config.DB,
		Partitions: partitions,
		Tenants:    tenants,
		Comms:      comms,
		Logger:     appLogger,
	})

	// Start server
	appLogger.Infof("Server starting on port %s", config.AppConfig.ServerPort)
	if err := app.Listen(":" + config.AppConfig.ServerPort); err != nil {
		appLogger.Fatalf("Failed to start server: %v", err)
	}
}
