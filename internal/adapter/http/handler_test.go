package httpadapter

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"wisetrip-ads/internal/core/domain"
	"wisetrip-ads/internal/core/port"
)

type mockUseCase struct{ mock.Mock }

func (m *mockUseCase) CheckCaps(ctx context.Context) (*port.CapDecision, error) {
	args := m.Called(ctx)
	if v := args.Get(0); v != nil {
		return v.(*port.CapDecision), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *mockUseCase) RecordImpression(ctx context.Context, req port.ImpressionRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *mockUseCase) RecordClick(ctx context.Context, impressionID string) (bool, error) {
	args := m.Called(ctx, impressionID)
	return args.Bool(0), args.Error(1)
}

func (m *mockUseCase) GetAnalytics(ctx context.Context, f port.AnalyticsFilter) (*port.AnalyticsResult, error) {
	args := m.Called(ctx, f)
	if v := args.Get(0); v != nil {
		return v.(*port.AnalyticsResult), args.Error(1)
	}
	return nil, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) Ping(ctx context.Context) error { return p.err }

func newTestHandler(svc port.SponsorUseCase, pinger Pinger) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewHandler(svc, pinger, logger).Router()
}

func postSponsored(t *testing.T, h http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/sponsored", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &m))
	return m
}

func TestSponsoredRejectsUnknownAction(t *testing.T) {
	h := newTestHandler(new(mockUseCase), stubPinger{})

	rec := postSponsored(t, h, `{"action":"launch_rockets"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["success"])
}

func TestSponsoredRejectsInvalidJSON(t *testing.T) {
	h := newTestHandler(new(mockUseCase), stubPinger{})

	rec := postSponsored(t, h, `{"action":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecordImpressionRequiresFields(t *testing.T) {
	svc := new(mockUseCase)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"record_impression","campaign_id":"c1"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "RecordImpression", mock.Anything, mock.Anything)
}

func TestRecordClickRequiresImpressionID(t *testing.T) {
	svc := new(mockUseCase)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"record_click"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "RecordClick", mock.Anything, mock.Anything)
}

func TestCheckCapsAllowedResponse(t *testing.T) {
	svc := new(mockUseCase)
	svc.On("CheckCaps", mock.Anything).Return(&port.CapDecision{
		Allowed:              true,
		CampaignID:           "camp-1",
		RemainingBudget:      9500,
		RemainingImpressions: 42,
	}, nil)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"check_caps"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["allowed"])
	require.Equal(t, "camp-1", body["campaign_id"])
	require.InDelta(t, 95.0, body["remaining_budget"], 1e-9)
	require.EqualValues(t, 42, body["remaining_impressions"])
}

func TestCheckCapsDeniedResponse(t *testing.T) {
	svc := new(mockUseCase)
	svc.On("CheckCaps", mock.Anything).Return(&port.CapDecision{
		Allowed: false,
		Reason:  port.ReasonNoActiveCampaigns,
	}, nil)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"check_caps"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["allowed"])
	require.Equal(t, "no_active_campaigns", body["reason"])
	require.NotContains(t, body, "remaining_budget")
	require.NotContains(t, body, "campaign_id")
}

func TestRecordImpressionResponse(t *testing.T) {
	svc := new(mockUseCase)
	svc.On("RecordImpression", mock.Anything, mock.MatchedBy(func(req port.ImpressionRequest) bool {
		return req.BusinessID == "biz-1" && req.CampaignID == "camp-1"
	})).Return("imp-1", nil)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"record_impression","business_id":"biz-1","campaign_id":"camp-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	require.Equal(t, "imp-1", body["impression_id"])
}

func TestRecordImpressionCapExceededMapsTo409(t *testing.T) {
	svc := new(mockUseCase)
	svc.On("RecordImpression", mock.Anything, mock.Anything).Return("", port.ErrCapExceeded)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"record_impression","business_id":"b","campaign_id":"c"}`)
	require.Equal(t, http.StatusConflict, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, false, body["success"])
}

func TestRecordImpressionUnknownCampaignMapsTo404(t *testing.T) {
	svc := new(mockUseCase)
	svc.On("RecordImpression", mock.Anything, mock.Anything).Return("", port.ErrCampaignNotFound)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"record_impression","business_id":"b","campaign_id":"c"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRecordImpressionStoreErrorMapsTo500(t *testing.T) {
	svc := new(mockUseCase)
	svc.On("RecordImpression", mock.Anything, mock.Anything).Return("", errors.New("connection reset"))
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"record_impression","business_id":"b","campaign_id":"c"}`)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRecordClickResponses(t *testing.T) {
	svc := new(mockUseCase)
	svc.On("RecordClick", mock.Anything, "imp-1").Return(true, nil).Once()
	svc.On("RecordClick", mock.Anything, "imp-1").Return(false, nil).Once()
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"record_click","impression_id":"imp-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "click recorded and caps updated", decodeBody(t, rec)["message"])

	rec = postSponsored(t, h, `{"action":"record_click","impression_id":"imp-1"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "click already recorded", decodeBody(t, rec)["message"])
}

func TestGetAnalyticsResponse(t *testing.T) {
	svc := new(mockUseCase)
	svc.On("GetAnalytics", mock.Anything, mock.MatchedBy(func(f port.AnalyticsFilter) bool {
		return f.CampaignID != nil && *f.CampaignID == "camp-1" && f.Start != nil && f.End != nil
	})).Return(&port.AnalyticsResult{
		Impressions: []domain.Impression{},
		Metrics: port.Metrics{
			TotalImpressions:     10,
			TotalClicks:          3,
			TotalCost:            1.25,
			CTR:                  30,
			AvgCostPerImpression: 0.05,
		},
	}, nil)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"get_analytics","campaign_id":"camp-1","start_date":"2026-08-01","end_date":"2026-08-30"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	require.Equal(t, true, body["success"])
	metrics := body["metrics"].(map[string]any)
	require.EqualValues(t, 10, metrics["total_impressions"])
	require.EqualValues(t, 3, metrics["total_clicks"])
	require.InDelta(t, 1.25, metrics["total_cost"], 1e-9)
	require.InDelta(t, 30.0, metrics["ctr"], 1e-9)
}

func TestGetAnalyticsRejectsBadDates(t *testing.T) {
	svc := new(mockUseCase)
	h := newTestHandler(svc, stubPinger{})

	rec := postSponsored(t, h, `{"action":"get_analytics","start_date":"not-a-date"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	svc.AssertNotCalled(t, "GetAnalytics", mock.Anything, mock.Anything)
}

func TestCORSPreflight(t *testing.T) {
	h := newTestHandler(new(mockUseCase), stubPinger{})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/sponsored", nil)
	req.Header.Set("Origin", "https://app.example.com")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestHealth(t *testing.T) {
	h := newTestHandler(new(mockUseCase), stubPinger{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestHealthUnavailable(t *testing.T) {
	h := newTestHandler(new(mockUseCase), stubPinger{err: errors.New("no route to host")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
