package controller

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"netasampark/config"
	"netasampark/models"
	"netasampark/services"
	"netasampark/tenancy"
	"netasampark/utils"
)

var errTenantNotFound = errors.New("tenant not found")

// WebhookController receives provider callbacks. These land on the platform
// domain with the tenant id in the path, since vendors don't send tenant
// headers.
type WebhookController struct {
	svc        *services.CommunicationService
	partitions tenancy.Manager
	logger     logrus.FieldLogger
}

func NewWebhookController(svc *services.CommunicationService, partitions tenancy.Manager,
	logger logrus.FieldLogger) *WebhookController {
	return &WebhookController{svc: svc, partitions: partitions, logger: logger}
}

type InboundWebhookRequest struct {
	From      string `json:"from" validate:"required"`
	To        string `json:"to" validate:"required"`
	Content   string `json:"content" validate:"required"`
	Channel   string `json:"channel" validate:"required,oneof=sms whatsapp"`
	MessageID string `json:"message_id" validate:"required"`
	Timestamp int64  `json:"timestamp" validate:"required"`
}

// HandleInbound records an incoming reply. Malformed payloads are rejected
// with 422 so the vendor's retry loop doesn't hammer us with garbage.
func (wc *WebhookController) HandleInbound(c *fiber.Ctx) error {
	tdb, tenant, err := wc.openTenant(c.Params("tenant"))
	if err != nil {
		return wc.tenantError(c, err)
	}

	var req InboundWebhookRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Malformed webhook payload",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	msg, err := wc.svc.HandleInbound(c.Context(), tdb, services.InboundMessage{
		Channel:    req.Channel,
		From:       req.From,
		To:         req.To,
		Content:    req.Content,
		ExternalID: req.MessageID,
		Timestamp:  time.Unix(req.Timestamp, 0),
	})
	if err != nil {
		wc.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("inbound webhook failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to record inbound message",
		})
	}

	return c.JSON(fiber.Map{
		"message_id":      msg.ID,
		"conversation_id": msg.ConversationID,
	})
}

type DeliveryReceiptRequest struct {
	MessageID string `json:"message_id" validate:"required"`
	Event     string `json:"event" validate:"required,oneof=sent delivered read failed"`
	Timestamp int64  `json:"timestamp" validate:"required"`
}

// HandleDeliveryReceipt reconciles an asynchronous delivery event. Receipts
// for unknown ids are acknowledged so providers stop retrying them.
func (wc *WebhookController) HandleDeliveryReceipt(c *fiber.Ctx) error {
	tdb, tenant, err := wc.openTenant(c.Params("tenant"))
	if err != nil {
		return wc.tenantError(c, err)
	}

	var req DeliveryReceiptRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": "Malformed webhook payload",
		})
	}
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	if err := wc.svc.HandleDeliveryReceipt(c.Context(), tdb, req.MessageID, req.Event,
		time.Unix(req.Timestamp, 0)); err != nil {
		wc.logger.WithError(err).WithField("tenant_id", tenant.ID).Error("delivery receipt failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process delivery receipt",
		})
	}

	return c.JSON(fiber.Map{"status": "ok"})
}

func (wc *WebhookController) openTenant(tenantID string) (*gorm.DB, *models.Tenant, error) {
	var tenant models.Tenant
	if err := config.DB.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		return nil, nil, errTenantNotFound
	}

	tdb, err := wc.partitions.Open(tenant.ID)
	if err != nil {
		return nil, nil, err
	}
	return tdb, &tenant, nil
}

func (wc *WebhookController) tenantError(c *fiber.Ctx, err error) error {
	if errors.Is(err, errTenantNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Tenant not found",
		})
	}
	wc.logger.WithError(err).Error("failed to open tenant partition")
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Failed to open tenant database",
	})
}
