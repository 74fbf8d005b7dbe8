package port

import (
	"context"
	"errors"
	"time"

	"wisetrip-ads/internal/core/domain"
)

var (
	// ErrCampaignNotFound is returned when a campaign id does not exist.
	ErrCampaignNotFound = errors.New("campaign not found")
	// ErrImpressionNotFound is returned when an impression id does not exist.
	ErrImpressionNotFound = errors.New("impression not found")
	// ErrCapExceeded is returned when a reservation would push a daily cap
	// counter past its limit.
	ErrCapExceeded = errors.New("daily cap exceeded")
)

// AnalyticsFilter narrows which impressions are read for analytics. Nil
// fields mean "no constraint".
type AnalyticsFilter struct {
	Start      *time.Time
	End        *time.Time
	CampaignID *string
}

// SponsorRepository defines the persistence layer for the admission gate.
// It is an outbound port in hexagonal architecture. Implementations must
// be concurrency-safe: the reservation methods perform check-and-increment
// as one indivisible step so concurrent callers can neither lose updates
// nor overshoot a limit.
type SponsorRepository interface {
	// ListActiveCampaigns returns campaigns with status = active, ordered
	// by created_at then id so admission checks are deterministic.
	ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error)

	// GetCampaign returns a campaign by id or ErrCampaignNotFound.
	GetCampaign(ctx context.Context, id string) (*domain.Campaign, error)

	// EnsureDailyCap returns the cap row for (campaign, capDate), creating
	// it seeded from the campaign's limits with zero counters when absent.
	EnsureDailyCap(ctx context.Context, camp domain.Campaign, capDate string) (*domain.DailyCap, error)

	// CreateImpressionAndReserve stores the impression and increments the
	// day's impressions_served and budget_spent in a single transaction.
	// It returns ErrCapExceeded (and persists nothing) when the cap has no
	// headroom left.
	CreateImpressionAndReserve(ctx context.Context, imp *domain.Impression, camp domain.Campaign, capDate string) error

	// MarkClickedAndCharge sets clicked_at and cost_per_click on the
	// impression and charges the click against the campaign's cap row for
	// capDate, all in one transaction. When the impression was already
	// clicked it reports alreadyClicked=true and charges nothing.
	MarkClickedAndCharge(ctx context.Context, impressionID string, cost int64, capDate string) (alreadyClicked bool, err error)

	// ListImpressions returns impressions matching the filter ordered by
	// display time.
	ListImpressions(ctx context.Context, f AnalyticsFilter) ([]domain.Impression, error)
}
