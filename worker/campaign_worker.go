package worker

import (
	"context"
	"log"
	"time"

	"gorm.io/gorm"

	"netasampark/models"
	"netasampark/services"
	"netasampark/tenancy"
)

// CampaignWorker launches scheduled campaigns when their time arrives. It
// sweeps every live tenant's partition on a ticker; the fan-out itself runs
// through CommunicationService so worker-launched and API-launched campaigns
// behave identically.
type CampaignWorker struct {
	DB         *gorm.DB
	Partitions tenancy.Manager
	Comms      *services.CommunicationService
	Logger     *log.Logger

	Interval time.Duration
}

func NewCampaignWorker(db *gorm.DB, partitions tenancy.Manager,
	comms *services.CommunicationService, logger *log.Logger) *CampaignWorker {
	return &CampaignWorker{
		DB:         db,
		Partitions: partitions,
		Comms:      comms,
		Logger:     logger,
		Interval:   30 * time.Second,
	}
}

func (cw *CampaignWorker) Start(ctx context.Context) {
	// Initial delay to let the server start up
	time.Sleep(10 * time.Second)

	cw.Logger.Println("Campaign worker started")

	ticker := time.NewTicker(cw.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			cw.Logger.Println("Campaign worker shutting down...")
			return
		case <-ticker.C:
			cw.processDueCampaigns(ctx)
		}
	}
}

func (cw *CampaignWorker) processDueCampaigns(ctx context.Context) {
	var tenants []models.Tenant
	err := cw.DB.Where("status IN ?", []string{models.TenantStatusTrial, models.TenantStatusActive}).
		Find(&tenants).Error
	if err != nil {
		cw.Logger.Printf("Error fetching live tenants: %v", err)
		return
	}

	for _, tenant := range tenants {
		if err := cw.processTenant(ctx, tenant); err != nil {
			cw.Logger.Printf("Error processing campaigns for tenant %s: %v", tenant.ID, err)
		}
	}
}

func (cw *CampaignWorker) processTenant(ctx context.Context, tenant models.Tenant) error {
	tdb, err := cw.Partitions.Open(tenant.ID)
	if err != nil {
		return err
	}

	var due []models.Campaign
	err = tdb.Where("status = ? AND scheduled_at IS NOT NULL AND scheduled_at <= ?",
		models.CampaignStatusScheduled, time.Now()).
		Find(&due).Error
	if err != nil {
		return err
	}

	for i := range due {
		campaign := &due[i]
		cw.Logger.Printf("Launching scheduled campaign %d for tenant %s", campaign.ID, tenant.ID)

		if err := tdb.Model(campaign).Update("status", models.CampaignStatusRunning).Error; err != nil {
			cw.Logger.Printf("Error launching campaign %d: %v", campaign.ID, err)
			continue
		}
		campaign.Status = models.CampaignStatusRunning

		if err := cw.Comms.RunCampaign(ctx, tenant.ID, tdb, campaign); err != nil {
			cw.Logger.Printf("Error running campaign %d: %v", campaign.ID, err)
		}
	}
	return nil
}
