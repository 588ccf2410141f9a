package services

import (
	"context"

	"netasampark/models"
)

// ConsentError is the typed denial returned when a voter has not consented
// to a channel. It is a negative result, not a fault; no provider call and
// no ledger write happen after it.
type ConsentError struct {
	Channel string
}

func (e *ConsentError) Error() string {
	return "voter has not consented to " + e.Channel + " communication"
}

// QuotaChecker is the extension seam for per-send quota blocking. The
// baseline product enforces quota at reporting time only (CheckQuotas), so
// the default guard carries a nil checker.
type QuotaChecker interface {
	Allow(ctx context.Context, tenantID, channel string) error
}

// Guard authorizes a single send against consent and, when configured,
// quota policy.
type Guard struct {
	quotas QuotaChecker
}

func NewGuard(quotas QuotaChecker) *Guard {
	return &Guard{quotas: quotas}
}

// Authorize denies with a ConsentError when the voter's consent flag for the
// channel is false.
func (g *Guard) Authorize(ctx context.Context, tenantID string, voter *models.Voter, channel string) error {
	if !voter.HasConsent(channel) {
		return &ConsentError{Channel: channel}
	}
	if g.quotas != nil {
		return g.quotas.Allow(ctx, tenantID, channel)
	}
	return nil
}
