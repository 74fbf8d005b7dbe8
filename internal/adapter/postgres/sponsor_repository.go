package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"wisetrip-ads/internal/core/domain"
	"wisetrip-ads/internal/core/port"
)

// SponsorRepository implements port.SponsorRepository on pgxpool. Cap
// reservations rely on conditional updates inside Serializable
// transactions, so check-and-reserve is one indivisible step per
// (campaign, day) row.
type SponsorRepository struct {
	pool *pgxpool.Pool
}

// NewSponsorRepository returns a new repository instance.
func NewSponsorRepository(pool *pgxpool.Pool) *SponsorRepository {
	return &SponsorRepository{pool: pool}
}

const campaignColumns = `id, advertiser_id, name, status, daily_impressions_limit, daily_clicks_limit, daily_budget, created_at, updated_at`

func scanCampaign(row pgx.Row) (domain.Campaign, error) {
	var c domain.Campaign
	err := row.Scan(
		&c.ID,
		&c.AdvertiserID,
		&c.Name,
		&c.Status,
		&c.DailyImpressionsLimit,
		&c.DailyClicksLimit,
		&c.DailyBudget,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// ListActiveCampaigns returns active campaigns ordered by creation time
// then id, so the admission loop visits them deterministically.
func (r *SponsorRepository) ListActiveCampaigns(ctx context.Context) ([]domain.Campaign, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+campaignColumns+` FROM sponsored_campaigns WHERE status = 'active' ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Campaign, error) {
		return scanCampaign(row)
	})
}

// GetCampaign returns a campaign by id.
func (r *SponsorRepository) GetCampaign(ctx context.Context, id string) (*domain.Campaign, error) {
	c, err := scanCampaign(r.pool.QueryRow(ctx,
		`SELECT `+campaignColumns+` FROM sponsored_campaigns WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, port.ErrCampaignNotFound
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// EnsureDailyCap upserts and returns the cap row for (campaign, capDate).
func (r *SponsorRepository) EnsureDailyCap(ctx context.Context, camp domain.Campaign, capDate string) (*domain.DailyCap, error) {
	_, err := r.pool.Exec(ctx, `INSERT INTO sponsored_daily_caps
    (campaign_id, cap_date, impressions_limit, clicks_limit, daily_budget_limit)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (campaign_id, cap_date) DO NOTHING`,
		camp.ID, capDate, camp.DailyImpressionsLimit, camp.DailyClicksLimit, camp.DailyBudget)
	if err != nil {
		return nil, err
	}

	var (
		dc     domain.DailyCap
		capDay time.Time
	)
	err = r.pool.QueryRow(ctx, `SELECT campaign_id, cap_date, impressions_limit, clicks_limit, daily_budget_limit,
    impressions_served, clicks_served, budget_spent
FROM sponsored_daily_caps WHERE campaign_id = $1 AND cap_date = $2`, camp.ID, capDate).
		Scan(&dc.CampaignID, &capDay, &dc.ImpressionsLimit, &dc.ClicksLimit, &dc.DailyBudgetLimit,
			&dc.ImpressionsServed, &dc.ClicksServed, &dc.BudgetSpent)
	if err != nil {
		return nil, err
	}
	dc.CapDate = capDay.Format("2006-01-02")
	return &dc, nil
}

// CreateImpressionAndReserve stores the impression and reserves one unit
// of the day's cap in a single transaction. The reservation is a
// conditional increment: zero rows affected means the cap is exhausted and
// the whole transaction rolls back, impression included.
func (r *SponsorRepository) CreateImpressionAndReserve(ctx context.Context, imp *domain.Impression, camp domain.Campaign, capDate string) (err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			// a commit-time serialization failure must surface to the
			// caller, not read as a successful reservation
			err = tx.Commit(ctx)
		}
	}()

	_, err = tx.Exec(ctx, `INSERT INTO sponsored_daily_caps
    (campaign_id, cap_date, impressions_limit, clicks_limit, daily_budget_limit)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (campaign_id, cap_date) DO NOTHING`,
		camp.ID, capDate, camp.DailyImpressionsLimit, camp.DailyClicksLimit, camp.DailyBudget)
	if err != nil {
		return err
	}

	tag, err := tx.Exec(ctx, `UPDATE sponsored_daily_caps
SET impressions_served = impressions_served + 1,
    budget_spent = budget_spent + $3
WHERE campaign_id = $1 AND cap_date = $2
  AND impressions_served + 1 <= impressions_limit
  AND budget_spent + $3 <= daily_budget_limit`,
		camp.ID, capDate, imp.CostPerImpression)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		err = port.ErrCapExceeded
		return err
	}

	_, err = tx.Exec(ctx, `INSERT INTO sponsored_impressions
    (id, advertiser_id, business_id, campaign_id, impression_type, user_id, session_id,
     location_lat, location_lng, cost_per_impression, position_rank, displayed_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		imp.ID, imp.AdvertiserID, imp.BusinessID, imp.CampaignID, imp.ImpressionType,
		imp.UserID, imp.SessionID, imp.LocationLat, imp.LocationLng,
		imp.CostPerImpression, imp.PositionRank, imp.DisplayedAt)
	return err
}

// MarkClickedAndCharge marks the impression clicked and charges the click
// against the cap row of the campaign that served it. The impression row
// is locked first so a duplicate call observes clicked_at already set and
// charges nothing.
func (r *SponsorRepository) MarkClickedAndCharge(ctx context.Context, impressionID string, cost int64, capDate string) (alreadyClicked bool, err error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return false, err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		} else {
			err = tx.Commit(ctx)
		}
	}()

	var (
		campaignID string
		clickedAt  *time.Time
	)
	err = tx.QueryRow(ctx,
		`SELECT campaign_id, clicked_at FROM sponsored_impressions WHERE id = $1 FOR UPDATE`,
		impressionID).Scan(&campaignID, &clickedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		err = port.ErrImpressionNotFound
		return false, err
	}
	if err != nil {
		return false, err
	}
	if clickedAt != nil {
		// already clicked; idempotent no-op
		return true, nil
	}

	var camp domain.Campaign
	err = tx.QueryRow(ctx, `SELECT id, daily_impressions_limit, daily_clicks_limit, daily_budget
FROM sponsored_campaigns WHERE id = $1`, campaignID).
		Scan(&camp.ID, &camp.DailyImpressionsLimit, &camp.DailyClicksLimit, &camp.DailyBudget)
	if errors.Is(err, pgx.ErrNoRows) {
		err = port.ErrCampaignNotFound
		return false, err
	}
	if err != nil {
		return false, err
	}

	// A click may land on a different calendar day than the impression; it
	// charges the day it arrives, creating that day's row if needed.
	_, err = tx.Exec(ctx, `INSERT INTO sponsored_daily_caps
    (campaign_id, cap_date, impressions_limit, clicks_limit, daily_budget_limit)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (campaign_id, cap_date) DO NOTHING`,
		camp.ID, capDate, camp.DailyImpressionsLimit, camp.DailyClicksLimit, camp.DailyBudget)
	if err != nil {
		return false, err
	}

	tag, err := tx.Exec(ctx, `UPDATE sponsored_daily_caps
SET clicks_served = clicks_served + 1,
    budget_spent = budget_spent + $3
WHERE campaign_id = $1 AND cap_date = $2
  AND clicks_served + 1 <= clicks_limit
  AND budget_spent + $3 <= daily_budget_limit`,
		camp.ID, capDate, cost)
	if err != nil {
		return false, err
	}
	if tag.RowsAffected() == 0 {
		err = port.ErrCapExceeded
		return false, err
	}

	_, err = tx.Exec(ctx,
		`UPDATE sponsored_impressions SET clicked_at = now(), cost_per_click = $2 WHERE id = $1`,
		impressionID, cost)
	return false, err
}

const impressionColumns = `id, advertiser_id, business_id, campaign_id, impression_type, user_id, session_id,
    location_lat, location_lng, cost_per_impression, position_rank, displayed_at, clicked_at, cost_per_click`

func scanImpression(row pgx.Row) (domain.Impression, error) {
	var i domain.Impression
	err := row.Scan(
		&i.ID,
		&i.AdvertiserID,
		&i.BusinessID,
		&i.CampaignID,
		&i.ImpressionType,
		&i.UserID,
		&i.SessionID,
		&i.LocationLat,
		&i.LocationLng,
		&i.CostPerImpression,
		&i.PositionRank,
		&i.DisplayedAt,
		&i.ClickedAt,
		&i.CostPerClick,
	)
	return i, err
}

// ListImpressions returns impressions matching the filter ordered by
// display time.
func (r *SponsorRepository) ListImpressions(ctx context.Context, f port.AnalyticsFilter) ([]domain.Impression, error) {
	query := `SELECT ` + impressionColumns + ` FROM sponsored_impressions WHERE true`
	args := make([]any, 0, 3)
	if f.CampaignID != nil {
		args = append(args, *f.CampaignID)
		query += fmt.Sprintf(" AND campaign_id = $%d", len(args))
	}
	if f.Start != nil {
		args = append(args, *f.Start)
		query += fmt.Sprintf(" AND displayed_at >= $%d", len(args))
	}
	if f.End != nil {
		args = append(args, *f.End)
		query += fmt.Sprintf(" AND displayed_at <= $%d", len(args))
	}
	query += " ORDER BY displayed_at"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.Impression, error) {
		return scanImpression(row)
	})
}
