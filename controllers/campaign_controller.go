package controller

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"netasampark/models"
	"netasampark/services"
	"netasampark/utils"
)

type CampaignController struct {
	svc    *services.CommunicationService
	logger logrus.FieldLogger
}

func NewCampaignController(svc *services.CommunicationService, logger logrus.FieldLogger) *CampaignController {
	return &CampaignController{svc: svc, logger: logger}
}

type CreateCampaignRequest struct {
	Name           string           `json:"name" validate:"required,max=255"`
	Description    string           `json:"description" validate:"omitempty,max=1000"`
	Type           string           `json:"type" validate:"required,oneof=sms whatsapp email voice"`
	MessageContent string           `json:"message_content" validate:"required"`
	TemplateID     string           `json:"template_id" validate:"omitempty,max=255"`
	TargetSegments []models.Segment `json:"target_segments"`
	ScheduledAt    *time.Time       `json:"scheduled_at"`
}

func (cc *CampaignController) CreateCampaign(c *fiber.Ctx) error {
	var req CreateCampaignRequest
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

	user := c.Locals("user").(*models.User)
	tdb := c.Locals("tenantDB").(*gorm.DB)

	status := models.CampaignStatusDraft
	if req.ScheduledAt != nil {
		status = models.CampaignStatusScheduled
	}

	campaign := models.Campaign{
		Name:           req.Name,
		Description:    req.Description,
		Type:           req.Type,
		Status:         status,
		MessageContent: req.MessageContent,
		TemplateID:     req.TemplateID,
		TargetSegments: req.TargetSegments,
		ScheduledAt:    req.ScheduledAt,
		CreatedBy:      user.ID,
	}

	if err := tdb.Create(&campaign).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create campaign",
		})
	}

	return c.Status(fiber.StatusCreated).JSON(campaign)
}

func (cc *CampaignController) ListCampaigns(c *fiber.Ctx) error {
	tdb := c.Locals("tenantDB").(*gorm.DB)

	query := tdb.Model(&models.Campaign{})
	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if channel := c.Query("type"); channel != "" {
		query = query.Where("type = ?", channel)
	}

	var campaigns []models.Campaign
	if err := query.Order("created_at DESC").Find(&campaigns).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch campaigns",
		})
	}

	return c.JSON(fiber.Map{
		"campaigns": campaigns,
		"total":     len(campaigns),
	})
}

func (cc *CampaignController) GetCampaign(c *fiber.Ctx) error {
	tdb := c.Locals("tenantDB").(*gorm.DB)

	var campaign models.Campaign
	if err := tdb.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}
	return c.JSON(campaign)
}

// LaunchCampaign moves a draft or scheduled campaign to running and starts
// the fan-out in the background. The fan-out re-reads status between batches
// so a later pause or cancel takes effect.
func (cc *CampaignController) LaunchCampaign(c *fiber.Ctx) error {
	tenant := c.Locals("tenant").(*models.Tenant)
	tdb := c.Locals("tenantDB").(*gorm.DB)

	var campaign models.Campaign
	if err := tdb.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	if campaign.Status != models.CampaignStatusDraft &&
		campaign.Status != models.CampaignStatusScheduled &&
		campaign.Status != models.CampaignStatusPaused {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Campaign cannot be launched from status " + campaign.Status,
		})
	}

	campaign.Status = models.CampaignStatusRunning
	if err := tdb.Model(&campaign).Update("status", campaign.Status).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to launch campaign",
		})
	}

	go func(tenantID string, tdb *gorm.DB, campaign models.Campaign) {
		if err := cc.svc.RunCampaign(context.Background(), tenantID, tdb, &campaign); err != nil {
			cc.logger.WithError(err).WithField("campaign_id", campaign.ID).Error("campaign fan-out failed")
		}
	}(tenant.ID, tdb, campaign)

	return c.JSON(fiber.Map{
		"message":  "Campaign launched",
		"campaign": campaign,
	})
}

func (cc *CampaignController) PauseCampaign(c *fiber.Ctx) error {
	return cc.transition(c, models.CampaignStatusRunning, models.CampaignStatusPaused, "paused")
}

func (cc *CampaignController) CancelCampaign(c *fiber.Ctx) error {
	tdb := c.Locals("tenantDB").(*gorm.DB)

	var campaign models.Campaign
	if err := tdb.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	switch campaign.Status {
	case models.CampaignStatusCompleted, models.CampaignStatusCancelled:
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Campaign is already finished",
		})
	}

	if err := tdb.Model(&campaign).Update("status", models.CampaignStatusCancelled).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to cancel campaign",
		})
	}
	campaign.Status = models.CampaignStatusCancelled

	return c.JSON(fiber.Map{
		"message":  "Campaign cancelled",
		"campaign": campaign,
	})
}

func (cc *CampaignController) transition(c *fiber.Ctx, from, to, verb string) error {
	tdb := c.Locals("tenantDB").(*gorm.DB)

	var campaign models.Campaign
	if err := tdb.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	if campaign.Status != from {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"error": "Campaign cannot be " + verb + " from status " + campaign.Status,
		})
	}

	if err := tdb.Model(&campaign).Update("status", to).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update campaign",
		})
	}
	campaign.Status = to

	return c.JSON(fiber.Map{
		"message":  "Campaign " + verb,
		"campaign": campaign,
	})
}

// GetCampaignStats returns the denormalized counters plus derived rates.
func (cc *CampaignController) GetCampaignStats(c *fiber.Ctx) error {
	tdb := c.Locals("tenantDB").(*gorm.DB)

	var campaign models.Campaign
	if err := tdb.First(&campaign, utils.ParseUint(c.Params("id"))).Error; err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error": "Campaign not found",
		})
	}

	deliveryRate := 0.0
	replyRate := 0.0
	if campaign.SentCount > 0 {
		deliveryRate = float64(campaign.DeliveredCount) / float64(campaign.SentCount) * 100
		replyRate = float64(campaign.ReplyCount) / float64(campaign.SentCount) * 100
	}

	return c.JSON(fiber.Map{
		"campaign_id":      campaign.ID,
		"status":           campaign.Status,
		"total_recipients": campaign.TotalRecipients,
		"sent_count":       campaign.SentCount,
		"delivered_count":  campaign.DeliveredCount,
		"failed_count":     campaign.FailedCount,
		"reply_count":      campaign.ReplyCount,
		"delivery_rate":    deliveryRate,
		"reply_rate":       replyRate,
		"estimated_cost":   campaign.EstimatedCost,
		"actual_cost":      campaign.ActualCost,
	})
}
