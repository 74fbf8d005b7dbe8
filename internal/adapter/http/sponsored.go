package httpadapter

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"wisetrip-ads/internal/core/domain"
	"wisetrip-ads/internal/core/port"
)

// Action values accepted by the sponsored endpoint.
const (
	actionCheckCaps        = "check_caps"
	actionRecordImpression = "record_impression"
	actionRecordClick      = "record_click"
	actionGetAnalytics     = "get_analytics"
)

// actionRequest is the multiplexed request body of POST /api/v1/sponsored.
// Which fields are required depends on the action, expressed with
// required_if tags.
type actionRequest struct {
	Action string `json:"action" validate:"required,oneof=check_caps record_impression record_click get_analytics"`

	// record_impression
	BusinessID     string   `json:"business_id" validate:"required_if=Action record_impression"`
	CampaignID     string   `json:"campaign_id" validate:"required_if=Action record_impression"`
	ImpressionType string   `json:"impression_type"`
	UserID         *string  `json:"user_id"`
	SessionID      *string  `json:"session_id"`
	LocationLat    *float64 `json:"location_lat"`
	LocationLng    *float64 `json:"location_lng"`

	// record_click
	ImpressionID string `json:"impression_id" validate:"required_if=Action record_click"`

	// get_analytics; CampaignID above doubles as the optional filter
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
}

// handleSponsoredAction decodes and validates the request, then dispatches
// on the action field. Malformed bodies and failed per-action validation
// produce HTTP 400 with an error payload.
func (h *Handler) handleSponsoredAction(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		var verr validator.ValidationErrors
		if errors.As(err, &verr) {
			h.writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	switch req.Action {
	case actionCheckCaps:
		h.checkCaps(w, r)
	case actionRecordImpression:
		h.recordImpression(w, r, req)
	case actionRecordClick:
		h.recordClick(w, r, req)
	case actionGetAnalytics:
		h.getAnalytics(w, r, req)
	}
}

// capDecisionResponse mirrors port.CapDecision with money in currency
// units.
type capDecisionResponse struct {
	Allowed              bool    `json:"allowed"`
	CampaignID           string  `json:"campaign_id,omitempty"`
	RemainingBudget      float64 `json:"remaining_budget,omitempty"`
	RemainingImpressions int     `json:"remaining_impressions,omitempty"`
	Reason               string  `json:"reason,omitempty"`
}

func (h *Handler) checkCaps(w http.ResponseWriter, r *http.Request) {
	decision, err := h.svc.CheckCaps(r.Context())
	if err != nil {
		h.serviceError(w, "check caps", err)
		return
	}
	h.writeJSON(w, http.StatusOK, capDecisionResponse{
		Allowed:              decision.Allowed,
		CampaignID:           decision.CampaignID,
		RemainingBudget:      float64(decision.RemainingBudget) / 100,
		RemainingImpressions: decision.RemainingImpressions,
		Reason:               decision.Reason,
	})
}

func (h *Handler) recordImpression(w http.ResponseWriter, r *http.Request, req actionRequest) {
	id, err := h.svc.RecordImpression(r.Context(), port.ImpressionRequest{
		BusinessID:     req.BusinessID,
		CampaignID:     req.CampaignID,
		ImpressionType: req.ImpressionType,
		UserID:         req.UserID,
		SessionID:      req.SessionID,
		LocationLat:    req.LocationLat,
		LocationLng:    req.LocationLng,
	})
	if err != nil {
		h.serviceError(w, "record impression", err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success":       true,
		"impression_id": id,
		"message":       "impression recorded and caps updated",
	})
}

func (h *Handler) recordClick(w http.ResponseWriter, r *http.Request, req actionRequest) {
	charged, err := h.svc.RecordClick(r.Context(), req.ImpressionID)
	if err != nil {
		h.serviceError(w, "record click", err)
		return
	}
	msg := "click recorded and caps updated"
	if !charged {
		msg = "click already recorded"
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": msg,
	})
}

// impressionDTO is the JSON shape of one impression in analytics data.
// Costs convert from cents to currency units.
type impressionDTO struct {
	ID                string     `json:"id"`
	AdvertiserID      string     `json:"advertiser_id"`
	BusinessID        string     `json:"business_id"`
	CampaignID        string     `json:"campaign_id"`
	ImpressionType    string     `json:"impression_type"`
	UserID            *string    `json:"user_id,omitempty"`
	SessionID         *string    `json:"session_id,omitempty"`
	LocationLat       *float64   `json:"location_lat,omitempty"`
	LocationLng       *float64   `json:"location_lng,omitempty"`
	CostPerImpression float64    `json:"cost_per_impression"`
	PositionRank      int        `json:"position_rank"`
	DisplayedAt       time.Time  `json:"displayed_at"`
	ClickedAt         *time.Time `json:"clicked_at,omitempty"`
	CostPerClick      *float64   `json:"cost_per_click,omitempty"`
}

type metricsDTO struct {
	TotalImpressions     int     `json:"total_impressions"`
	TotalClicks          int     `json:"total_clicks"`
	TotalCost            float64 `json:"total_cost"`
	CTR                  float64 `json:"ctr"`
	AvgCostPerImpression float64 `json:"avg_cost_per_impression"`
}

func toImpressionDTO(imp domain.Impression) impressionDTO {
	dto := impressionDTO{
		ID:                imp.ID,
		AdvertiserID:      imp.AdvertiserID,
		BusinessID:        imp.BusinessID,
		CampaignID:        imp.CampaignID,
		ImpressionType:    imp.ImpressionType,
		UserID:            imp.UserID,
		SessionID:         imp.SessionID,
		LocationLat:       imp.LocationLat,
		LocationLng:       imp.LocationLng,
		CostPerImpression: float64(imp.CostPerImpression) / 100,
		PositionRank:      imp.PositionRank,
		DisplayedAt:       imp.DisplayedAt,
		ClickedAt:         imp.ClickedAt,
	}
	if imp.CostPerClick != nil {
		cpc := float64(*imp.CostPerClick) / 100
		dto.CostPerClick = &cpc
	}
	return dto
}

func (h *Handler) getAnalytics(w http.ResponseWriter, r *http.Request, req actionRequest) {
	var f port.AnalyticsFilter
	if req.CampaignID != "" {
		f.CampaignID = &req.CampaignID
	}
	if req.StartDate != "" {
		t, err := parseTimeParam(req.StartDate, false)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid start_date")
			return
		}
		f.Start = &t
	}
	if req.EndDate != "" {
		t, err := parseTimeParam(req.EndDate, true)
		if err != nil {
			h.writeError(w, http.StatusBadRequest, "invalid end_date")
			return
		}
		f.End = &t
	}

	result, err := h.svc.GetAnalytics(r.Context(), f)
	if err != nil {
		h.serviceError(w, "get analytics", err)
		return
	}

	data := make([]impressionDTO, 0, len(result.Impressions))
	for _, imp := range result.Impressions {
		data = append(data, toImpressionDTO(imp))
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    data,
		"metrics": metricsDTO{
			TotalImpressions:     result.Metrics.TotalImpressions,
			TotalClicks:          result.Metrics.TotalClicks,
			TotalCost:            result.Metrics.TotalCost,
			CTR:                  result.Metrics.CTR,
			AvgCostPerImpression: result.Metrics.AvgCostPerImpression,
		},
	})
}

// parseTimeParam accepts a calendar date or an RFC3339 timestamp. A bare
// end date is widened to the end of that day so the filter is inclusive.
func parseTimeParam(s string, endOfDay bool) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", s); err == nil {
		if endOfDay {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

// serviceError maps usecase errors onto HTTP statuses: unknown ids are
// 404, exhausted caps 409, everything else a logged 500.
func (h *Handler) serviceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, port.ErrCampaignNotFound), errors.Is(err, port.ErrImpressionNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, port.ErrCapExceeded):
		h.writeError(w, http.StatusConflict, err.Error())
	default:
		h.logger.Error(op+" error", slog.Any("error", err))
		h.writeError(w, http.StatusInternalServerError, "internal error")
	}
}
