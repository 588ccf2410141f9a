package services

import (
	"context"
	"time"

	"gorm.io/gorm"

	"netasampark/models"
	"netasampark/tenancy"
)

// UsageSource supplies current per-tenant metric counts for quota
// evaluation. CheckQuotas only consumes this contract; the counting itself
// is a collaborator concern.
type UsageSource interface {
	GetUsage(ctx context.Context, tenant *models.Tenant) (map[string]int64, error)
}

// PartitionUsage counts usage straight out of the tenant's partition.
type PartitionUsage struct {
	partitions tenancy.Manager
}

func NewPartitionUsage(partitions tenancy.Manager) *PartitionUsage {
	return &PartitionUsage{partitions: partitions}
}

func (u *PartitionUsage) GetUsage(ctx context.Context, tenant *models.Tenant) (map[string]int64, error) {
	tdb, err := u.partitions.Open(tenant.ID)
	if err != nil {
		return nil, err
	}
	tdb = tdb.WithContext(ctx)

	usage := make(map[string]int64)

	var voters int64
	if err := tdb.Model(&models.Voter{}).Count(&voters).Error; err != nil {
		return nil, err
	}
	usage["voters"] = voters

	var users int64
	if err := tdb.Model(&models.User{}).Count(&users).Error; err != nil {
		return nil, err
	}
	usage["users"] = users

	now := time.Now()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	monthly := map[string]string{
		models.ChannelSMS:      "sms_monthly",
		models.ChannelWhatsApp: "whatsapp_monthly",
		models.ChannelEmail:    "email_monthly",
		models.ChannelVoice:    "voice_minutes",
	}
	for channel, metric := range monthly {
		count, err := monthlyOutbound(tdb, channel, monthStart)
		if err != nil {
			return nil, err
		}
		usage[metric] = count
	}

	return usage, nil
}

func monthlyOutbound(tdb *gorm.DB, channel string, since time.Time) (int64, error) {
	var count int64
	err := tdb.Model(&models.Message{}).
		Where("channel = ? AND direction = ? AND created_at >= ?", channel, models.DirectionOutbound, since).
		Count(&count).Error
	return count, err
}
