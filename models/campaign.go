package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Campaign lifecycle statuses. Launch/pause/cancel are externally triggered;
// the dispatch engine only moves running -> completed and bumps counters.
const (
	CampaignStatusDraft     = "draft"
	CampaignStatusScheduled = "scheduled"
	CampaignStatusRunning   = "running"
	CampaignStatusPaused    = "paused"
	CampaignStatusCompleted = "completed"
	CampaignStatusCancelled = "cancelled"
)

// Segment is one target predicate. Values within a segment are ORed, segments
// across types are ANDed during fan-out resolution.
type Segment struct {
	Type   string   `json:"type"` // constituency, support_level, age_range, gender, tags
	Values []string `json:"values,omitempty"`
	Min    int      `json:"min,omitempty"`
	Max    int      `json:"max,omitempty"`
}

// Campaign is a bulk-send definition over a voter segment set.
type Campaign struct {
	gorm.Model
	Name        string `gorm:"not null" json:"name"`
	Description string `json:"description"`
	Type        string `gorm:"not null;index" json:"type"` // sms, whatsapp, email, voice
	Status      string `gorm:"not null;index;default:'draft'" json:"status"`

	TargetSegments datatypes.JSONSlice[Segment] `json:"target_segments"`

	MessageContent string `gorm:"not null" json:"message_content"`
	TemplateID     string `json:"template_id"` // DLT/BSP template ID

	ScheduledAt *time.Time `gorm:"index" json:"scheduled_at"`
	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	CreatedBy uint `gorm:"index" json:"created_by"`

	// Statistics (denormalized; incremented atomically during fan-out)
	TotalRecipients int `gorm:"default:0" json:"total_recipients"`
	SentCount       int `gorm:"default:0" json:"sent_count"`
	DeliveredCount  int `gorm:"default:0" json:"delivered_count"`
	FailedCount     int `gorm:"default:0" json:"failed_count"`
	ReplyCount      int `gorm:"default:0" json:"reply_count"`
	ClickCount      int `gorm:"default:0" json:"click_count"`

	// Budget and costs
	EstimatedCost float64 `gorm:"default:0" json:"estimated_cost"`
	ActualCost    float64 `gorm:"default:0" json:"actual_cost"`

	// Relations
	Messages []Message `gorm:"foreignKey:CampaignID" json:"messages,omitempty"`
}

// Runnable reports whether fan-out may proceed for this status. Paused and
// cancelled campaigns are checked between recipient batches.
func (c *Campaign) Runnable() bool {
	return c.Status == CampaignStatusRunning
}
