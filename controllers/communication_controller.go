package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"netasampark/models"
	"netasampark/services"
	"netasampark/utils"
)

type CommunicationController struct {
	svc    *services.CommunicationService
	logger logrus.FieldLogger
}

func NewCommunicationController(svc *services.CommunicationService, logger logrus.FieldLogger) *CommunicationController {
	return &CommunicationController{svc: svc, logger: logger}
}

type SendMessageRequest struct {
	VoterID    uint   `json:"voter_id" validate:"required"`
	Channel    string `json:"channel" validate:"required,oneof=sms whatsapp email voice"`
	Content    string `json:"content" validate:"required"`
	TemplateID string `json:"template_id" validate:"omitempty,max=255"`
}

// SendMessage dispatches one message to one voter. A vendor rejection still
// returns the ledger entry; only consent denial and infrastructure errors
// are surfaced as failures.
func (cc *CommunicationController) SendMessage(c *fiber.Ctx) error {
	var req SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	// Validate request
	if err := utils.ValidateStruct(req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	tenant := c.Locals("tenant").(*models.Tenant)
	tdb := c.Locals("tenantDB").(*gorm.DB)

	var voter models.Voter
	if err := tdb.Preload("Constituency").Preload("Ward").Preload("Booth").
		First(&voter, req.VoterID).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voter not found",
		})
	}

	msg, err := cc.svc.SendMessage(c.Context(), tenant.ID, tdb, &voter, req.Channel, req.Content, req.TemplateID)
	if err != nil {
		var consentErr *services.ConsentError
		if errors.As(err, &consentErr) {
			return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
				"error": consentErr.Error(),
			})
		}
		cc.logger.WithError(err).Error("message send failed")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to send message",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(msg)
}

// GetInbox lists messages for the tenant, newest first, with optional
// channel, status, direction and conversation filters and a content search.
func (cc *CommunicationController) GetInbox(c *fiber.Ctx) error {
	tdb := c.Locals("tenantDB").(*gorm.DB)

	query := tdb.Model(&models.Message{}).Preload("Voter")

	if channel := c.Query("channel"); channel != "" {
		query = query.Where("channel = ?", channel)
	}
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if direction := c.Query("direction"); direction != "" {
		query = query.Where("direction = ?", direction)
	}
	if conversation := c.Query("conversation_id"); conversation != "" {
		query = query.Where("conversation_id = ?", conversation)
	}
	if search := c.Query("search"); search != "" {
		query = query.Where("content LIKE ?", "%"+search+"%")
	}

	page := c.QueryInt("page", 1)
	if page < 1 {
		page = 1
	}
	limit := c.QueryInt("limit", 50)
	if limit < 1 || limit > 200 {
		limit = 50
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to count messages",
		})
	}

	var messages []models.Message
	if err := query.Order("created_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&messages).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch messages",
		})
	}

	return c.JSON(utils.PaginatedResponse{
		Data:  messages,
		Total: total,
		Page:  page,
		Limit: limit,
	})
}

type UpdateConsentRequest struct {
	SMSConsent      *bool `json:"sms_consent"`
	WhatsAppConsent *bool `json:"whatsapp_consent"`
	EmailConsent    *bool `json:"email_consent"`
	VoiceConsent    *bool `json:"voice_consent"`
}

// UpdateConsent records per-channel opt-in changes for a voter. Only the
// channels present in the body change.
func (cc *CommunicationController) UpdateConsent(c *fiber.Ctx) error {
	var req UpdateConsentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	tdb := c.Locals("tenantDB").(*gorm.DB)

	var voter models.Voter
	if err := tdb.First(&voter, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Voter not found",
		})
	}

	updates := map[string]interface{}{}
	if req.SMSConsent != nil {
		updates["sms_consent"] = *req.SMSConsent
	}
	if req.WhatsAppConsent != nil {
		updates["whatsapp_consent"] = *req.WhatsAppConsent
	}
	if req.EmailConsent != nil {
		updates["email_consent"] = *req.EmailConsent
	}
	if req.VoiceConsent != nil {
		updates["voice_consent"] = *req.VoiceConsent
	}
	if len(updates) == 0 {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "No consent fields provided",
		})
	}
	updates["consent_updated_at"] = tdb.NowFunc()

	if err := tdb.Model(&voter).Updates(updates).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update consent",
		})
	}

	return c.JSON(voter)
}
