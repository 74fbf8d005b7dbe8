package port

import (
	"context"

	"wisetrip-ads/internal/core/domain"
)

// SponsorUseCase defines the business operations of the sponsored-placement
// service. This is the primary port into the application domain.
type SponsorUseCase interface {
	// CheckCaps decides whether any active campaign can absorb one more
	// impression today and reports the chosen campaign with its
	// pre-reservation headroom. A negative decision is a normal outcome,
	// not an error; errors indicate store failures only.
	CheckCaps(ctx context.Context) (*CapDecision, error)

	// RecordImpression stores an impression for the given campaign and
	// reserves one unit of today's cap. It returns the new impression id,
	// ErrCampaignNotFound for an unknown campaign or ErrCapExceeded when
	// today's cap has no headroom.
	RecordImpression(ctx context.Context, req ImpressionRequest) (string, error)

	// RecordClick marks the impression clicked and charges the click cost
	// against today's cap of the campaign that served it. It is
	// idempotent: repeated calls for the same impression charge at most
	// once. The returned flag is true when this call actually charged.
	RecordClick(ctx context.Context, impressionID string) (charged bool, err error)

	// GetAnalytics returns impressions matching the filter together with
	// aggregate metrics.
	GetAnalytics(ctx context.Context, f AnalyticsFilter) (*AnalyticsResult, error)
}

// ClickGuard is an optional fast-path deduplicator for click events.
// FirstClick reports whether this is the first sighting of the impression
// id within the guard's window; Forget releases an id again so a click
// whose charge failed can be retried. The guard is advisory: correctness
// of click idempotence never depends on it.
type ClickGuard interface {
	FirstClick(ctx context.Context, impressionID string) (bool, error)
	Forget(ctx context.Context, impressionID string) error
}

// Decision reasons for a negative CheckCaps outcome.
const (
	ReasonNoActiveCampaigns = "no_active_campaigns"
	ReasonAllCapsExceeded   = "all_caps_exceeded"
)

// CapDecision is the outcome of an admission check. When Allowed is false
// the Reason is set and the remaining fields are zero. Remaining values
// are computed before any reservation takes place.
type CapDecision struct {
	Allowed              bool
	CampaignID           string
	RemainingBudget      int64 // cents
	RemainingImpressions int
	Reason               string
}

// ImpressionRequest carries the caller-supplied fields of a new
// impression. BusinessID and CampaignID are mandatory; the rest is
// optional context about the viewer.
type ImpressionRequest struct {
	BusinessID     string
	CampaignID     string
	ImpressionType string
	UserID         *string
	SessionID      *string
	LocationLat    *float64
	LocationLng    *float64
}

// Metrics aggregates a set of impressions. Money values are in currency
// units (not cents); CTR is a percentage rounded to two decimals and
// AvgCostPerImpression is rounded to four.
type Metrics struct {
	TotalImpressions     int
	TotalClicks          int
	TotalCost            float64
	CTR                  float64
	AvgCostPerImpression float64
}

// AnalyticsResult is the raw filtered impressions plus their aggregates.
type AnalyticsResult struct {
	Impressions []domain.Impression
	Metrics     Metrics
}
