package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"netasampark/gateway"
	"netasampark/models"
)

// fan-out batch size; campaign status is re-read between batches so pause
// and cancel take effect promptly.
const campaignBatchSize = 100

// GatewaySelector resolves the vendor adapter for a channel.
// gateway.Selector is the production implementation.
type GatewaySelector interface {
	For(channel string) (gateway.Gateway, error)
}

// InboundMessage is a provider callback for an incoming reply.
type InboundMessage struct {
	Channel    string
	From       string
	To         string
	Content    string
	ExternalID string
	Timestamp  time.Time
}

// CommunicationService is the dispatch engine: single sends, campaign
// fan-out, and reconciliation of asynchronous provider callbacks into the
// message ledger.
type CommunicationService struct {
	central  *gorm.DB
	gateways GatewaySelector
	guard    *Guard
	costs    map[string]float64
	logger   logrus.FieldLogger
}

func NewCommunicationService(central *gorm.DB, gateways GatewaySelector, guard *Guard,
	costs map[string]float64, logger logrus.FieldLogger) *CommunicationService {
	return &CommunicationService{
		central:  central,
		gateways: gateways,
		guard:    guard,
		costs:    costs,
		logger:   logger,
	}
}

// MessageCost returns the flat per-unit cost for a channel; unknown channels
// cost nothing.
func (cs *CommunicationService) MessageCost(channel string) float64 {
	return cs.costs[channel]
}

// SendMessage performs one authorized send. A denial aborts before any
// provider call or ledger write; past authorization, a send attempt always
// leaves a terminal ledger entry, even when the adapter blows up.
func (cs *CommunicationService) SendMessage(ctx context.Context, tenantID string, tdb *gorm.DB,
	voter *models.Voter, channel, content, templateID string) (*models.Message, error) {

	if err := cs.guard.Authorize(ctx, tenantID, voter, channel); err != nil {
		return nil, err
	}

	msg := &models.Message{
		VoterID:        &voter.ID,
		Channel:        channel,
		Direction:      models.DirectionOutbound,
		Status:         models.StatusPending,
		Content:        content,
		ToNumber:       voter.Phone,
		ToEmail:        voter.Email,
		TemplateID:     templateID,
		ConversationID: models.ConversationKey(voter.ContactAddress(channel), channel),
	}
	if err := tdb.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}

	cs.dispatch(ctx, tdb, msg, voter, "")
	return msg, nil
}

// dispatch runs the adapter for an already-persisted pending message and
// records the terminal outcome. subject is used by the email channel only.
func (cs *CommunicationService) dispatch(ctx context.Context, tdb *gorm.DB, msg *models.Message,
	voter *models.Voter, subject string) {

	gw, err := cs.gateways.For(msg.Channel)
	if err != nil {
		// Configuration error: fail closed before any network call.
		cs.markFailed(ctx, tdb, msg, err.Error())
		return
	}

	result := gw.Send(ctx, gateway.Request{
		To:         voter.ContactAddress(msg.Channel),
		Content:    msg.Content,
		Subject:    subject,
		TemplateID: msg.TemplateID,
	})

	if !result.Success {
		cs.markFailed(ctx, tdb, msg, result.Error)
		cs.captureProviderFailure(gw.Name(), msg, result.Error)
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"status":       models.StatusSent,
		"external_id":  result.MessageID,
		"sent_at":      now,
		"cost":         cs.MessageCost(msg.Channel),
		"gateway_used": gw.Name(),
	}
	if err := tdb.WithContext(ctx).Model(msg).Updates(updates).Error; err != nil {
		cs.logger.WithError(err).WithField("message_id", msg.ID).Error("failed to record sent message")
		return
	}
	msg.Status = models.StatusSent
	msg.ExternalID = result.MessageID
	msg.SentAt = &now
	msg.Cost = cs.MessageCost(msg.Channel)
	msg.GatewayUsed = gw.Name()

	if msg.VoterID != nil {
		if err := tdb.WithContext(ctx).Model(&models.Voter{}).Where("id = ?", *msg.VoterID).
			Updates(map[string]interface{}{
				"last_contacted_at":  now,
				"total_interactions": gorm.Expr("total_interactions + ?", 1),
			}).Error; err != nil {
			cs.logger.WithError(err).Warn("failed to update voter engagement counters")
		}
	}
}

func (cs *CommunicationService) markFailed(ctx context.Context, tdb *gorm.DB, msg *models.Message, reason string) {
	if err := tdb.WithContext(ctx).Model(msg).Updates(map[string]interface{}{
		"status":         models.StatusFailed,
		"failure_reason": reason,
	}).Error; err != nil {
		cs.logger.WithError(err).WithField("message_id", msg.ID).Error("failed to record failed message")
	}
	msg.Status = models.StatusFailed
	msg.FailureReason = reason
}

func (cs *CommunicationService) captureProviderFailure(gatewayName string, msg *models.Message, reason string) {
	cs.logger.WithFields(logrus.Fields{
		"gateway":    gatewayName,
		"channel":    msg.Channel,
		"message_id": msg.ID,
	}).Warn("provider send failed: " + reason)

	sentry.WithScope(func(scope *sentry.Scope) {
		scope.SetTag("gateway", gatewayName)
		scope.SetTag("channel", msg.Channel)
		sentry.CaptureException(errors.New("provider send failed: " + reason))
	})
}

// RunCampaign fans a campaign out to its resolved voter set. Per-recipient
// failures are isolated and counted, never raised; completion is observed
// through the campaign counters.
func (cs *CommunicationService) RunCampaign(ctx context.Context, tenantID string, tdb *gorm.DB,
	campaign *models.Campaign) error {

	if campaign.Status != models.CampaignStatusRunning {
		return fmt.Errorf("campaign %d is not running (status %s)", campaign.ID, campaign.Status)
	}

	voters, err := cs.resolveTargetVoters(ctx, tdb, campaign)
	if err != nil {
		return fmt.Errorf("resolve campaign targets: %w", err)
	}

	now := time.Now()
	if err := tdb.WithContext(ctx).Model(campaign).Updates(map[string]interface{}{
		"total_recipients": len(voters),
		"started_at":       now,
	}).Error; err != nil {
		return err
	}

	var runCost float64
	for start := 0; start < len(voters); start += campaignBatchSize {
		if start > 0 {
			// Honor pause/cancel between batches.
			var current models.Campaign
			if err := tdb.WithContext(ctx).First(&current, campaign.ID).Error; err == nil && !current.Runnable() {
				cs.logger.WithFields(logrus.Fields{
					"campaign_id": campaign.ID,
					"status":      current.Status,
				}).Info("campaign fan-out halted")
				return nil
			}
		}

		end := start + campaignBatchSize
		if end > len(voters) {
			end = len(voters)
		}
		for i := start; i < end; i++ {
			runCost += cs.sendCampaignMessage(ctx, tenantID, tdb, campaign, &voters[i])
		}
	}

	completed := time.Now()
	if err := tdb.WithContext(ctx).Model(campaign).Updates(map[string]interface{}{
		"status":       models.CampaignStatusCompleted,
		"completed_at": completed,
	}).Error; err != nil {
		return err
	}

	cs.debitWallet(ctx, tenantID, campaign.Type, runCost)
	return nil
}

// sendCampaignMessage dispatches to one voter and returns the cost incurred.
func (cs *CommunicationService) sendCampaignMessage(ctx context.Context, tenantID string, tdb *gorm.DB,
	campaign *models.Campaign, voter *models.Voter) float64 {

	if err := cs.guard.Authorize(ctx, tenantID, voter, campaign.Type); err != nil {
		// Consent can be revoked between resolution and dispatch; skip quietly.
		return 0
	}

	content := PersonalizeMessage(campaign.MessageContent, voter)

	msg := &models.Message{
		CampaignID:     &campaign.ID,
		VoterID:        &voter.ID,
		Channel:        campaign.Type,
		Direction:      models.DirectionOutbound,
		Status:         models.StatusPending,
		Content:        content,
		ToNumber:       voter.Phone,
		ToEmail:        voter.Email,
		TemplateID:     campaign.TemplateID,
		ConversationID: models.ConversationKey(voter.ContactAddress(campaign.Type), campaign.Type),
	}
	if err := tdb.WithContext(ctx).Create(msg).Error; err != nil {
		cs.logger.WithError(err).WithFields(logrus.Fields{
			"campaign_id": campaign.ID,
			"voter_id":    voter.ID,
		}).Error("failed to create campaign message")
		cs.incrementCounter(ctx, tdb, campaign.ID, "failed_count")
		return 0
	}

	cs.dispatch(ctx, tdb, msg, voter, campaign.Name)

	if msg.Status == models.StatusSent {
		cost := cs.MessageCost(campaign.Type)
		cs.incrementCounter(ctx, tdb, campaign.ID, "sent_count")
		if err := tdb.WithContext(ctx).Model(&models.Campaign{}).Where("id = ?", campaign.ID).
			UpdateColumn("actual_cost", gorm.Expr("actual_cost + ?", cost)).Error; err != nil {
			cs.logger.WithError(err).Warn("failed to accrue campaign cost")
		}
		return cost
	}

	cs.incrementCounter(ctx, tdb, campaign.ID, "failed_count")
	return 0
}

// incrementCounter bumps a campaign counter atomically so concurrent fan-out
// workers don't lose updates.
func (cs *CommunicationService) incrementCounter(ctx context.Context, tdb *gorm.DB, campaignID uint, column string) {
	if err := tdb.WithContext(ctx).Model(&models.Campaign{}).Where("id = ?", campaignID).
		UpdateColumn(column, gorm.Expr(column+" + ?", 1)).Error; err != nil {
		cs.logger.WithError(err).WithField("campaign_id", campaignID).Error("failed to increment " + column)
	}
}

// resolveTargetVoters intersects the campaign's segment predicates (values
// within one segment OR, segments across types AND) and filters to voters
// with consent for the campaign's channel.
func (cs *CommunicationService) resolveTargetVoters(ctx context.Context, tdb *gorm.DB,
	campaign *models.Campaign) ([]models.Voter, error) {

	query := tdb.WithContext(ctx).Model(&models.Voter{}).
		Preload("Constituency").Preload("Ward").Preload("Booth")

	for _, segment := range campaign.TargetSegments {
		switch segment.Type {
		case "constituency":
			query = query.Where("constituency_id IN ?", segment.Values)
		case "support_level":
			query = query.Where("support_level IN ?", segment.Values)
		case "age_range":
			query = query.Where("age BETWEEN ? AND ?", segment.Min, segment.Max)
		case "gender":
			query = query.Where("gender IN ?", segment.Values)
		case "tags":
			for _, tag := range segment.Values {
				query = query.Where("tags LIKE ?", "%\""+tag+"\"%")
			}
		}
	}

	query = query.Where(consentColumn(campaign.Type)+" = ?", true)

	var voters []models.Voter
	if err := query.Find(&voters).Error; err != nil {
		return nil, err
	}
	return voters, nil
}

func consentColumn(channel string) string {
	switch channel {
	case models.ChannelSMS:
		return "sms_consent"
	case models.ChannelWhatsApp:
		return "whatsapp_consent"
	case models.ChannelEmail:
		return "email_consent"
	case models.ChannelVoice:
		return "voice_consent"
	}
	return "sms_consent"
}

// PersonalizeMessage substitutes the recognized placeholders with voter data.
// Absent related entities substitute as empty strings.
func PersonalizeMessage(content string, voter *models.Voter) string {
	constituency, ward, booth := "", "", ""
	if voter.Constituency != nil {
		constituency = voter.Constituency.Name
	}
	if voter.Ward != nil {
		ward = voter.Ward.Name
	}
	if voter.Booth != nil {
		booth = voter.Booth.Number
	}

	replacer := strings.NewReplacer(
		"{{name}}", voter.Name,
		"{{first_name}}", voter.FirstName(),
		"{{voter_id}}", voter.VoterID,
		"{{constituency}}", constituency,
		"{{ward}}", ward,
		"{{booth}}", booth,
	)
	return replacer.Replace(content)
}

// debitWallet charges the accumulated fan-out cost against the tenant's
// channel wallet on the control plane.
func (cs *CommunicationService) debitWallet(ctx context.Context, tenantID, channel string, amount float64) {
	if amount == 0 || cs.central == nil {
		return
	}
	if err := cs.central.WithContext(ctx).Model(&models.Wallet{}).
		Where("tenant_id = ? AND type = ?", tenantID, channel).
		UpdateColumn("balance", gorm.Expr("balance - ?", amount)).Error; err != nil {
		cs.logger.WithError(err).WithFields(logrus.Fields{
			"tenant_id": tenantID,
			"channel":   channel,
		}).Error("failed to debit wallet")
	}
}

// HandleInbound records a provider callback for an incoming message. Voter
// matching is best effort; a miss still writes the ledger row. The latest
// outbound message in the same conversation, if any, becomes the parent and
// is marked replied.
func (cs *CommunicationService) HandleInbound(ctx context.Context, tdb *gorm.DB,
	in InboundMessage) (*models.Message, error) {

	var voterID *uint
	var voter models.Voter
	if err := tdb.WithContext(ctx).Where("phone = ?", in.From).First(&voter).Error; err == nil {
		voterID = &voter.ID
	}

	msg := &models.Message{
		VoterID:        voterID,
		Channel:        in.Channel,
		Direction:      models.DirectionInbound,
		Status:         models.StatusReceived,
		Content:        in.Content,
		FromNumber:     in.From,
		ToNumber:       in.To,
		ExternalID:     in.ExternalID,
		ConversationID: models.ConversationKey(in.From, in.Channel),
	}

	var parent models.Message
	err := tdb.WithContext(ctx).
		Where("conversation_id = ? AND direction = ?", msg.ConversationID, models.DirectionOutbound).
		Order("created_at DESC").First(&parent).Error
	if err == nil {
		msg.ParentMessageID = &parent.ID
	}

	if err := tdb.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, fmt.Errorf("record inbound message: %w", err)
	}

	if msg.ParentMessageID != nil && parent.MarkReplied(in.Timestamp) {
		if err := tdb.WithContext(ctx).Model(&parent).Update("replied_at", parent.RepliedAt).Error; err != nil {
			cs.logger.WithError(err).Warn("failed to mark parent message replied")
		}
		if parent.CampaignID != nil {
			cs.incrementCounter(ctx, tdb, *parent.CampaignID, "reply_count")
		}
	}

	return msg, nil
}

// HandleDeliveryReceipt advances an outbound message along the delivery
// ladder. Receipts for unknown external ids are acknowledged and dropped;
// replays and out-of-order receipts are no-ops.
func (cs *CommunicationService) HandleDeliveryReceipt(ctx context.Context, tdb *gorm.DB,
	externalID, event string, at time.Time) error {

	var msg models.Message
	err := tdb.WithContext(ctx).
		Where("external_id = ? AND direction = ?", externalID, models.DirectionOutbound).
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			cs.logger.WithField("external_id", externalID).Warn("delivery receipt for unknown message")
			return nil
		}
		return err
	}

	return cs.applyReceipt(ctx, tdb, &msg, event, at)
}

// applyReceipt advances one loaded message. The status write is guarded by
// the status the caller read, so sessions racing on the same receipt agree
// on a single winner and the campaign counter moves once.
func (cs *CommunicationService) applyReceipt(ctx context.Context, tdb *gorm.DB, msg *models.Message,
	event string, at time.Time) error {

	prior := msg.Status
	if !msg.ApplyReceipt(event, at) {
		return nil
	}

	updates := map[string]interface{}{"status": msg.Status}
	if msg.DeliveredAt != nil {
		updates["delivered_at"] = msg.DeliveredAt
	}
	if msg.ReadAt != nil {
		updates["read_at"] = msg.ReadAt
	}

	res := tdb.WithContext(ctx).Model(&models.Message{}).
		Where("id = ? AND status = ?", msg.ID, prior).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		// Another session already advanced this message.
		return nil
	}

	if event == models.StatusDelivered && msg.CampaignID != nil {
		cs.incrementCounter(ctx, tdb, *msg.CampaignID, "delivered_count")
	}
	return nil
}
