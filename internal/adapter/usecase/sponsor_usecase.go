package usecase

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"

	"wisetrip-ads/internal/core/domain"
	"wisetrip-ads/internal/core/port"
)

// SponsorService implements port.SponsorUseCase. It orchestrates the
// admission gate: which campaign (if any) absorbs the next impression
// today, recording of impression and click events against the daily cap
// ledger, and analytics aggregation.
type SponsorService struct {
	repo  port.SponsorRepository
	guard port.ClickGuard // optional, may be nil

	impressionCost int64 // cents
	clickCost      int64 // cents
	capLoc         *time.Location
}

// NewSponsorService creates a service with the given repository, optional
// click guard, unit costs in cents and the location used to compute cap
// dates.
func NewSponsorService(repo port.SponsorRepository, guard port.ClickGuard, impressionCost, clickCost int64, capLoc *time.Location) *SponsorService {
	if capLoc == nil {
		capLoc = time.UTC
	}
	return &SponsorService{
		repo:           repo,
		guard:          guard,
		impressionCost: impressionCost,
		clickCost:      clickCost,
		capLoc:         capLoc,
	}
}

// today returns the current cap date in the configured location.
func (s *SponsorService) today() string {
	return time.Now().In(s.capLoc).Format("2006-01-02")
}

// CheckCaps walks active campaigns in their stored order and returns the
// first one whose daily cap still fits one impression at the configured
// cost. Cap rows are created lazily while checking, so a campaign that
// was checked but never served can legitimately own an all-zero row.
// Remaining headroom is reported before any reservation.
func (s *SponsorService) CheckCaps(ctx context.Context) (*port.CapDecision, error) {
	campaigns, err := s.repo.ListActiveCampaigns(ctx)
	if err != nil {
		return nil, err
	}
	if len(campaigns) == 0 {
		return &port.CapDecision{Allowed: false, Reason: port.ReasonNoActiveCampaigns}, nil
	}

	capDate := s.today()
	for _, camp := range campaigns {
		dc, err := s.repo.EnsureDailyCap(ctx, camp, capDate)
		if err != nil {
			return nil, err
		}
		if !dc.HasRoomFor(s.impressionCost) {
			continue
		}
		return &port.CapDecision{
			Allowed:              true,
			CampaignID:           camp.ID,
			RemainingBudget:      dc.RemainingBudget(),
			RemainingImpressions: dc.RemainingImpressions(),
		}, nil
	}
	return &port.CapDecision{Allowed: false, Reason: port.ReasonAllCapsExceeded}, nil
}

// RecordImpression stores one impression for the requested campaign and
// reserves a unit of today's cap in the same transaction.
func (s *SponsorService) RecordImpression(ctx context.Context, req port.ImpressionRequest) (string, error) {
	if req.BusinessID == "" || req.CampaignID == "" {
		return "", errors.New("business_id and campaign_id are required")
	}

	camp, err := s.repo.GetCampaign(ctx, req.CampaignID)
	if err != nil {
		return "", err
	}

	impressionType := req.ImpressionType
	if impressionType == "" {
		impressionType = domain.DefaultImpressionType
	}

	imp := &domain.Impression{
		ID:                uuid.NewString(),
		AdvertiserID:      camp.AdvertiserID,
		BusinessID:        req.BusinessID,
		CampaignID:        camp.ID,
		ImpressionType:    impressionType,
		UserID:            req.UserID,
		SessionID:         req.SessionID,
		LocationLat:       req.LocationLat,
		LocationLng:       req.LocationLng,
		CostPerImpression: s.impressionCost,
		PositionRank:      1,
		// stamped in the cap location so the timestamp and the charged
		// cap row agree on the calendar day
		DisplayedAt: time.Now().In(s.capLoc),
	}
	if err = s.repo.CreateImpressionAndReserve(ctx, imp, *camp, s.today()); err != nil {
		return "", err
	}
	return imp.ID, nil
}

// RecordClick marks the impression clicked and charges the click against
// today's cap of the campaign that served it. Duplicate calls charge at
// most once: the guard absorbs repeats cheaply when available, and the
// database's clicked_at check is authoritative either way.
func (s *SponsorService) RecordClick(ctx context.Context, impressionID string) (bool, error) {
	if impressionID == "" {
		return false, errors.New("impression_id is required")
	}

	guardSet := false
	if s.guard != nil {
		first, err := s.guard.FirstClick(ctx, impressionID)
		if err == nil {
			if !first {
				return false, nil
			}
			guardSet = true
		}
		// guard errors fall through to the database check
	}

	alreadyClicked, err := s.repo.MarkClickedAndCharge(ctx, impressionID, s.clickCost, s.today())
	if err != nil {
		// nothing was charged, so release the guard key; otherwise a
		// retry within the TTL would be absorbed and the click lost
		if guardSet {
			_ = s.guard.Forget(ctx, impressionID)
		}
		return false, err
	}
	return !alreadyClicked, nil
}

// GetAnalytics reads impressions matching the filter and folds them into
// aggregate metrics. Costs convert from cents to currency units at this
// boundary.
func (s *SponsorService) GetAnalytics(ctx context.Context, f port.AnalyticsFilter) (*port.AnalyticsResult, error) {
	impressions, err := s.repo.ListImpressions(ctx, f)
	if err != nil {
		return nil, err
	}

	var (
		clicks       int
		impCostCents int64
		costCents    int64
	)
	for _, imp := range impressions {
		impCostCents += imp.CostPerImpression
		costCents += imp.CostPerImpression
		if imp.Clicked() {
			clicks++
			if imp.CostPerClick != nil {
				costCents += *imp.CostPerClick
			}
		}
	}

	m := port.Metrics{
		TotalImpressions: len(impressions),
		TotalClicks:      clicks,
		TotalCost:        float64(costCents) / 100,
	}
	if len(impressions) > 0 {
		m.CTR = round(float64(clicks)/float64(len(impressions))*100, 2)
		m.AvgCostPerImpression = round(float64(impCostCents)/float64(len(impressions))/100, 4)
	}

	return &port.AnalyticsResult{Impressions: impressions, Metrics: m}, nil
}

// round rounds v to the given number of decimal places.
func round(v float64, places int) float64 {
	p := math.Pow10(places)
	return math.Round(v*p) / p
}
