package services

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"netasampark/gateway"
	"netasampark/models"
)

func testLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func openTestDB(t *testing.T, migrate func(*gorm.DB) error) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// In-memory sqlite is per connection; pin the pool to one.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, migrate(db))
	return db
}

// fakeGateway records every request and returns a canned result.
type fakeGateway struct {
	name    string
	result  gateway.Result
	results map[string]gateway.Result // per-recipient override, keyed by To
	calls   []gateway.Request
}

func (f *fakeGateway) Name() string { return f.name }

func (f *fakeGateway) Send(ctx context.Context, req gateway.Request) gateway.Result {
	f.calls = append(f.calls, req)
	if res, ok := f.results[req.To]; ok {
		return res
	}
	return f.result
}

type fakeSelector struct {
	gw  gateway.Gateway
	err error
}

func (f *fakeSelector) For(channel string) (gateway.Gateway, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.gw, nil
}

var testCosts = map[string]float64{
	models.ChannelSMS:      0.25,
	models.ChannelWhatsApp: 0.50,
	models.ChannelEmail:    0.05,
	models.ChannelVoice:    2.00,
}

func newCommService(central *gorm.DB, sel GatewaySelector) *CommunicationService {
	return NewCommunicationService(central, sel, NewGuard(nil), testCosts, testLogger())
}

func seedVoter(t *testing.T, tdb *gorm.DB, voter *models.Voter) *models.Voter {
	t.Helper()
	require.NoError(t, tdb.Create(voter).Error)
	return voter
}

func TestSendMessage(t *testing.T) {
	ctx := context.Background()

	t.Run("consent denial blocks before the adapter", func(t *testing.T) {
		tdb := openTestDB(t, models.MigrateTenant)
		gw := &fakeGateway{name: "fake", result: gateway.Result{Success: true, MessageID: "x"}}
		cs := newCommService(nil, &fakeSelector{gw: gw})

		voter := seedVoter(t, tdb, &models.Voter{
			VoterID: "V001", Name: "Asha Rao", Gender: "female",
			Phone: "+919876543210", SMSConsent: false,
		})

		msg, err := cs.SendMessage(ctx, "t1", tdb, voter, models.ChannelSMS, "hello", "")

		var consentErr *ConsentError
		require.ErrorAs(t, err, &consentErr)
		assert.Equal(t, models.ChannelSMS, consentErr.Channel)
		assert.Nil(t, msg)
		assert.Empty(t, gw.calls)

		var count int64
		require.NoError(t, tdb.Model(&models.Message{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("successful send records the sent entry", func(t *testing.T) {
		tdb := openTestDB(t, models.MigrateTenant)
		gw := &fakeGateway{name: "fake_sms", result: gateway.Result{
			Success: true, MessageID: "ext-42", Status: models.StatusSent,
		}}
		cs := newCommService(nil, &fakeSelector{gw: gw})

		voter := seedVoter(t, tdb, &models.Voter{
			VoterID: "V002", Name: "Asha Rao", Gender: "female",
			Phone: "+919876543210", SMSConsent: true,
		})

		msg, err := cs.SendMessage(ctx, "t1", tdb, voter, models.ChannelSMS, "hello", "dlt-1")
		require.NoError(t, err)

		assert.Equal(t, models.StatusSent, msg.Status)
		assert.Equal(t, "ext-42", msg.ExternalID)
		assert.Equal(t, "fake_sms", msg.GatewayUsed)
		assert.NotNil(t, msg.SentAt)
		assert.Equal(t, 0.25, msg.Cost)
		assert.Equal(t, models.ConversationKey("+919876543210", models.ChannelSMS), msg.ConversationID)

		require.Len(t, gw.calls, 1)
		assert.Equal(t, "+919876543210", gw.calls[0].To)

		var stored models.Message
		require.NoError(t, tdb.First(&stored, msg.ID).Error)
		assert.Equal(t, models.StatusSent, stored.Status)

		var fresh models.Voter
		require.NoError(t, tdb.First(&fresh, voter.ID).Error)
		assert.Equal(t, 1, fresh.TotalInteractions)
		assert.NotNil(t, fresh.LastContactedAt)
	})

	t.Run("adapter failure still leaves a ledger entry", func(t *testing.T) {
		tdb := openTestDB(t, models.MigrateTenant)
		gw := &fakeGateway{name: "fake", result: gateway.Result{
			Success: false, Status: models.StatusFailed, Error: "DND number",
		}}
		cs := newCommService(nil, &fakeSelector{gw: gw})

		voter := seedVoter(t, tdb, &models.Voter{
			VoterID: "V003", Name: "Ravi Kumar", Gender: "male",
			Phone: "+919876500000", SMSConsent: true,
		})

		msg, err := cs.SendMessage(ctx, "t1", tdb, voter, models.ChannelSMS, "hello", "")
		require.NoError(t, err)

		assert.Equal(t, models.StatusFailed, msg.Status)
		assert.Equal(t, "DND number", msg.FailureReason)

		var stored models.Message
		require.NoError(t, tdb.First(&stored, msg.ID).Error)
		assert.Equal(t, models.StatusFailed, stored.Status)
		assert.Equal(t, "DND number", stored.FailureReason)
	})

	t.Run("missing gateway configuration fails closed", func(t *testing.T) {
		tdb := openTestDB(t, models.MigrateTenant)
		cs := newCommService(nil, &fakeSelector{err: errors.New("unsupported SMS provider: none")})

		voter := seedVoter(t, tdb, &models.Voter{
			VoterID: "V004", Name: "Ravi Kumar", Gender: "male",
			Phone: "+919876500001", SMSConsent: true,
		})

		msg, err := cs.SendMessage(ctx, "t1", tdb, voter, models.ChannelSMS, "hello", "")
		require.NoError(t, err)
		assert.Equal(t, models.StatusFailed, msg.Status)
		assert.Contains(t, msg.FailureReason, "unsupported SMS provider")
	})

	t.Run("email goes to the email address", func(t *testing.T) {
		tdb := openTestDB(t, models.MigrateTenant)
		gw := &fakeGateway{name: "smtp_email", result: gateway.Result{Success: true, MessageID: "email_1"}}
		cs := newCommService(nil, &fakeSelector{gw: gw})

		voter := seedVoter(t, tdb, &models.Voter{
			VoterID: "V005", Name: "Asha Rao", Gender: "female",
			Phone: "+919876543210", Email: "asha@example.org", EmailConsent: true,
		})

		msg, err := cs.SendMessage(ctx, "t1", tdb, voter, models.ChannelEmail, "hello", "")
		require.NoError(t, err)

		require.Len(t, gw.calls, 1)
		assert.Equal(t, "asha@example.org", gw.calls[0].To)
		assert.Equal(t, 0.05, msg.Cost)
	})
}

func TestPersonalizeMessage(t *testing.T) {
	voter := &models.Voter{
		VoterID:      "ABC1234567",
		Name:         "Asha Rao",
		Constituency: &models.Constituency{Name: "Mysore North"},
		Booth:        &models.Booth{Number: "118"},
	}

	got := PersonalizeMessage("Hi {{name}}, visit booth {{booth}} in {{constituency}}. Ward: {{ward}}", voter)
	assert.Equal(t, "Hi Asha Rao, visit booth 118 in Mysore North. Ward: ", got)

	assert.Equal(t, "Asha", PersonalizeMessage("{{first_name}}", voter))
	assert.Equal(t, "ABC1234567", PersonalizeMessage("{{voter_id}}", voter))
	assert.Equal(t, "no placeholders", PersonalizeMessage("no placeholders", voter))
}

func TestRunCampaign(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T, gw gateway.Gateway) (*gorm.DB, *gorm.DB, *CommunicationService) {
		tdb := openTestDB(t, models.MigrateTenant)
		central := openTestDB(t, models.MigrateCentral)
		cs := newCommService(central, &fakeSelector{gw: gw})
		return tdb, central, cs
	}

	t.Run("fans out to consenting targets and completes", func(t *testing.T) {
		gw := &fakeGateway{name: "fake_sms", result: gateway.Result{Success: true, MessageID: "id"}}
		tdb, central, cs := setup(t, gw)

		require.NoError(t, central.Create(&models.Wallet{
			TenantID: "t1", Type: models.ChannelSMS, Balance: 100,
		}).Error)

		seedVoter(t, tdb, &models.Voter{VoterID: "V1", Name: "Asha Rao", Gender: "female", Phone: "+911", SMSConsent: true, SupportLevel: models.SupportStrong})
		seedVoter(t, tdb, &models.Voter{VoterID: "V2", Name: "Ravi Kumar", Gender: "male", Phone: "+912", SMSConsent: true, SupportLevel: models.SupportStrong})
		// No consent; must be excluded at resolution
		seedVoter(t, tdb, &models.Voter{VoterID: "V3", Name: "Meena Devi", Gender: "female", Phone: "+913", SMSConsent: false, SupportLevel: models.SupportStrong})

		campaign := &models.Campaign{
			Name: "GOTV Drive", Type: models.ChannelSMS, Status: models.CampaignStatusRunning,
			MessageContent: "Hi {{first_name}}, please vote!",
		}
		require.NoError(t, tdb.Create(campaign).Error)

		require.NoError(t, cs.RunCampaign(ctx, "t1", tdb, campaign))

		assert.Len(t, gw.calls, 2)

		var fresh models.Campaign
		require.NoError(t, tdb.First(&fresh, campaign.ID).Error)
		assert.Equal(t, models.CampaignStatusCompleted, fresh.Status)
		assert.Equal(t, 2, fresh.TotalRecipients)
		assert.Equal(t, 2, fresh.SentCount)
		assert.Equal(t, 0, fresh.FailedCount)
		assert.InDelta(t, 0.50, fresh.ActualCost, 1e-9)
		assert.NotNil(t, fresh.CompletedAt)

		var msgs []models.Message
		require.NoError(t, tdb.Where("campaign_id = ?", campaign.ID).Order("id").Find(&msgs).Error)
		require.Len(t, msgs, 2)
		assert.Equal(t, "Hi Asha, please vote!", msgs[0].Content)
		assert.Equal(t, "Hi Ravi, please vote!", msgs[1].Content)

		var wallet models.Wallet
		require.NoError(t, central.Where("tenant_id = ? AND type = ?", "t1", models.ChannelSMS).First(&wallet).Error)
		assert.InDelta(t, 99.50, wallet.Balance, 1e-9)
	})

	t.Run("per-recipient failures are isolated", func(t *testing.T) {
		gw := &fakeGateway{
			name:   "fake_sms",
			result: gateway.Result{Success: true, MessageID: "ok"},
			results: map[string]gateway.Result{
				"+912": {Success: false, Status: models.StatusFailed, Error: "blocked"},
			},
		}
		tdb, _, cs := setup(t, gw)

		seedVoter(t, tdb, &models.Voter{VoterID: "V1", Name: "A One", Gender: "female", Phone: "+911", SMSConsent: true})
		seedVoter(t, tdb, &models.Voter{VoterID: "V2", Name: "B Two", Gender: "male", Phone: "+912", SMSConsent: true})
		seedVoter(t, tdb, &models.Voter{VoterID: "V3", Name: "C Three", Gender: "male", Phone: "+913", SMSConsent: true})

		campaign := &models.Campaign{
			Name: "Run", Type: models.ChannelSMS, Status: models.CampaignStatusRunning,
			MessageContent: "msg",
		}
		require.NoError(t, tdb.Create(campaign).Error)

		require.NoError(t, cs.RunCampaign(ctx, "t1", tdb, campaign))

		var fresh models.Campaign
		require.NoError(t, tdb.First(&fresh, campaign.ID).Error)
		assert.Equal(t, 3, fresh.TotalRecipients)
		assert.Equal(t, 2, fresh.SentCount)
		assert.Equal(t, 1, fresh.FailedCount)
		assert.Equal(t, models.CampaignStatusCompleted, fresh.Status)

		var failed models.Message
		require.NoError(t, tdb.Where("campaign_id = ? AND status = ?", campaign.ID, models.StatusFailed).First(&failed).Error)
		assert.Equal(t, "blocked", failed.FailureReason)
	})

	t.Run("segments intersect across types", func(t *testing.T) {
		gw := &fakeGateway{name: "fake_sms", result: gateway.Result{Success: true, MessageID: "ok"}}
		tdb, _, cs := setup(t, gw)

		// Matches both predicates
		seedVoter(t, tdb, &models.Voter{VoterID: "V1", Name: "A One", Gender: "female", Phone: "+911", SMSConsent: true, SupportLevel: models.SupportStrong, Age: 32})
		// Wrong support level
		seedVoter(t, tdb, &models.Voter{VoterID: "V2", Name: "B Two", Gender: "female", Phone: "+912", SMSConsent: true, SupportLevel: models.SupportStrongOpposition, Age: 35})
		// Outside the age range
		seedVoter(t, tdb, &models.Voter{VoterID: "V3", Name: "C Three", Gender: "female", Phone: "+913", SMSConsent: true, SupportLevel: models.SupportStrong, Age: 60})
		// Wrong gender
		seedVoter(t, tdb, &models.Voter{VoterID: "V4", Name: "D Four", Gender: "male", Phone: "+914", SMSConsent: true, SupportLevel: models.SupportStrong, Age: 30})

		campaign := &models.Campaign{
			Name: "Targeted", Type: models.ChannelSMS, Status: models.CampaignStatusRunning,
			MessageContent: "msg",
			TargetSegments: []models.Segment{
				{Type: "support_level", Values: []string{models.SupportStrong, models.SupportLean}},
				{Type: "age_range", Min: 18, Max: 45},
				{Type: "gender", Values: []string{"female"}},
			},
		}
		require.NoError(t, tdb.Create(campaign).Error)

		require.NoError(t, cs.RunCampaign(ctx, "t1", tdb, campaign))

		require.Len(t, gw.calls, 1)
		assert.Equal(t, "+911", gw.calls[0].To)
	})

	t.Run("refuses a campaign that is not running", func(t *testing.T) {
		tdb, _, cs := setup(t, &fakeGateway{name: "fake"})

		campaign := &models.Campaign{
			Name: "Draft", Type: models.ChannelSMS, Status: models.CampaignStatusDraft,
			MessageContent: "msg",
		}
		require.NoError(t, tdb.Create(campaign).Error)

		err := cs.RunCampaign(ctx, "t1", tdb, campaign)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not running")
	})
}

func TestHandleInbound(t *testing.T) {
	ctx := context.Background()

	t.Run("links the reply to the latest outbound in the thread", func(t *testing.T) {
		tdb := openTestDB(t, models.MigrateTenant)
		cs := newCommService(nil, &fakeSelector{gw: &fakeGateway{name: "fake"}})

		voter := seedVoter(t, tdb, &models.Voter{
			VoterID: "V1", Name: "Asha Rao", Gender: "female",
			Phone: "+919876543210", WhatsAppConsent: true,
		})

		campaignID := uint(7)
		campaign := &models.Campaign{Name: "C", Type: models.ChannelWhatsApp, Status: models.CampaignStatusRunning, MessageContent: "m"}
		campaign.ID = campaignID
		require.NoError(t, tdb.Create(campaign).Error)

		outbound := &models.Message{
			CampaignID: &campaignID, VoterID: &voter.ID,
			Channel: models.ChannelWhatsApp, Direction: models.DirectionOutbound,
			Status: models.StatusSent, Content: "hello",
			ConversationID: models.ConversationKey("+919876543210", models.ChannelWhatsApp),
		}
		require.NoError(t, tdb.Create(outbound).Error)

		replyAt := time.Now()
		msg, err := cs.HandleInbound(ctx, tdb, InboundMessage{
			Channel: models.ChannelWhatsApp, From: "+919876543210", To: "platform",
			Content: "I will vote", ExternalID: "wamid.9", Timestamp: replyAt,
		})
		require.NoError(t, err)

		assert.Equal(t, models.DirectionInbound, msg.Direction)
		assert.Equal(t, models.StatusReceived, msg.Status)
		require.NotNil(t, msg.VoterID)
		assert.Equal(t, voter.ID, *msg.VoterID)
		assert.Equal(t, outbound.ConversationID, msg.ConversationID)
		require.NotNil(t, msg.ParentMessageID)
		assert.Equal(t, outbound.ID, *msg.ParentMessageID)

		var parent models.Message
		require.NoError(t, tdb.First(&parent, outbound.ID).Error)
		assert.NotNil(t, parent.RepliedAt)

		var fresh models.Campaign
		require.NoError(t, tdb.First(&fresh, campaignID).Error)
		assert.Equal(t, 1, fresh.ReplyCount)
	})

	t.Run("unknown sender still gets a ledger row", func(t *testing.T) {
		tdb := openTestDB(t, models.MigrateTenant)
		cs := newCommService(nil, &fakeSelector{gw: &fakeGateway{name: "fake"}})

		msg, err := cs.HandleInbound(ctx, tdb, InboundMessage{
			Channel: models.ChannelSMS, From: "+910000000000", To: "platform",
			Content: "who is this", ExternalID: "sms-1", Timestamp: time.Now(),
		})
		require.NoError(t, err)

		assert.Nil(t, msg.VoterID)
		assert.Nil(t, msg.ParentMessageID)
		assert.Equal(t, models.ConversationKey("+910000000000", models.ChannelSMS), msg.ConversationID)

		var count int64
		require.NoError(t, tdb.Model(&models.Message{}).Count(&count).Error)
		assert.EqualValues(t, 1, count)
	})
}

func TestHandleDeliveryReceipt(t *testing.T) {
	ctx := context.Background()

	setup := func(t *testing.T) (*gorm.DB, *CommunicationService, *models.Message) {
		tdb := openTestDB(t, models.MigrateTenant)
		cs := newCommService(nil, &fakeSelector{gw: &fakeGateway{name: "fake"}})

		campaignID := uint(3)
		campaign := &models.Campaign{Name: "C", Type: models.ChannelSMS, Status: models.CampaignStatusRunning, MessageContent: "m"}
		campaign.ID = campaignID
		require.NoError(t, tdb.Create(campaign).Error)

		msg := &models.Message{
			CampaignID: &campaignID,
			Channel:    models.ChannelSMS, Direction: models.DirectionOutbound,
			Status: models.StatusSent, Content: "hello", ExternalID: "ext-1",
		}
		require.NoError(t, tdb.Create(msg).Error)
		return tdb, cs, msg
	}

	t.Run("advances and counts first delivery", func(t *testing.T) {
		tdb, cs, msg := setup(t)

		require.NoError(t, cs.HandleDeliveryReceipt(ctx, tdb, "ext-1", models.StatusDelivered, time.Now()))

		var fresh models.Message
		require.NoError(t, tdb.First(&fresh, msg.ID).Error)
		assert.Equal(t, models.StatusDelivered, fresh.Status)
		assert.NotNil(t, fresh.DeliveredAt)

		var campaign models.Campaign
		require.NoError(t, tdb.First(&campaign, *msg.CampaignID).Error)
		assert.Equal(t, 1, campaign.DeliveredCount)
	})

	t.Run("replay does not double count", func(t *testing.T) {
		tdb, cs, msg := setup(t)

		at := time.Now()
		require.NoError(t, cs.HandleDeliveryReceipt(ctx, tdb, "ext-1", models.StatusDelivered, at))
		require.NoError(t, cs.HandleDeliveryReceipt(ctx, tdb, "ext-1", models.StatusDelivered, at.Add(time.Hour)))

		var campaign models.Campaign
		require.NoError(t, tdb.First(&campaign, *msg.CampaignID).Error)
		assert.Equal(t, 1, campaign.DeliveredCount)
	})

	t.Run("raced receipts count delivery once", func(t *testing.T) {
		tdb, cs, msg := setup(t)

		// Two sessions load the same row before either writes
		var first, second models.Message
		require.NoError(t, tdb.First(&first, msg.ID).Error)
		require.NoError(t, tdb.First(&second, msg.ID).Error)

		at := time.Now()
		require.NoError(t, cs.applyReceipt(ctx, tdb, &first, models.StatusDelivered, at))
		require.NoError(t, cs.applyReceipt(ctx, tdb, &second, models.StatusDelivered, at))

		var fresh models.Message
		require.NoError(t, tdb.First(&fresh, msg.ID).Error)
		assert.Equal(t, models.StatusDelivered, fresh.Status)

		var campaign models.Campaign
		require.NoError(t, tdb.First(&campaign, *msg.CampaignID).Error)
		assert.Equal(t, 1, campaign.DeliveredCount)
	})

	t.Run("out-of-order receipt is a no-op", func(t *testing.T) {
		tdb, cs, msg := setup(t)

		require.NoError(t, cs.HandleDeliveryReceipt(ctx, tdb, "ext-1", models.StatusRead, time.Now()))
		require.NoError(t, cs.HandleDeliveryReceipt(ctx, tdb, "ext-1", models.StatusDelivered, time.Now()))

		var fresh models.Message
		require.NoError(t, tdb.First(&fresh, msg.ID).Error)
		assert.Equal(t, models.StatusRead, fresh.Status)
	})

	t.Run("unknown external id is acknowledged", func(t *testing.T) {
		tdb, cs, _ := setup(t)

		assert.NoError(t, cs.HandleDeliveryReceipt(ctx, tdb, "never-seen", models.StatusDelivered, time.Now()))
	})
}
