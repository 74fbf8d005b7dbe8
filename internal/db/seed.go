package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"wisetrip-ads/internal/core/domain"
)

// Seed inserts demo campaigns and a day of sponsored traffic. Intended for
// local development only; every insert is ON CONFLICT DO NOTHING so
// repeated runs are harmless.
func Seed(ctx context.Context, pool *pgxpool.Pool) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	advertisers := make([]string, 3)
	for i := range advertisers {
		advertisers[i] = uuid.NewString()
	}

	type campaignSeed struct {
		id     string
		status string
	}
	campaigns := make([]campaignSeed, 0, 5)

	statuses := []string{domain.StatusActive, domain.StatusActive, domain.StatusActive, domain.StatusPaused, domain.StatusEnded}
	for i, status := range statuses {
		c := campaignSeed{id: uuid.NewString(), status: status}
		name := fmt.Sprintf("Demo campaign %d", i+1)
		impLimit := 500 + r.Intn(500)
		clickLimit := 50 + r.Intn(50)
		dailyBudget := int64(5000 + r.Intn(5000)) // cents
		_, err := pool.Exec(ctx, `INSERT INTO sponsored_campaigns
    (id, advertiser_id, name, status, daily_impressions_limit, daily_clicks_limit, daily_budget, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,now(),now()) ON CONFLICT DO NOTHING`,
			c.id, advertisers[i%len(advertisers)], name, status, impLimit, clickLimit, dailyBudget)
		if err != nil {
			return err
		}
		campaigns = append(campaigns, c)
	}

	// A handful of businesses to attribute impressions to.
	businesses := make([]string, 10)
	for i := range businesses {
		businesses[i] = uuid.NewString()
	}

	// Historic impressions for yesterday, roughly one click per ten views.
	yesterday := time.Now().UTC().AddDate(0, 0, -1)
	for i := 0; i < 200; i++ {
		c := campaigns[r.Intn(len(campaigns))]
		if c.status != domain.StatusActive {
			continue
		}
		var advertiserID string
		err := pool.QueryRow(ctx, `SELECT advertiser_id FROM sponsored_campaigns WHERE id = $1`, c.id).Scan(&advertiserID)
		if err != nil {
			return err
		}
		displayedAt := yesterday.Add(time.Duration(r.Intn(24*3600)) * time.Second)
		impID := uuid.NewString()
		_, err = pool.Exec(ctx, `INSERT INTO sponsored_impressions
    (id, advertiser_id, business_id, campaign_id, impression_type, user_id, session_id, cost_per_impression, position_rank, displayed_at)
VALUES ($1,$2,$3,$4,'search_result',$5,$6,5,1,$7) ON CONFLICT DO NOTHING`,
			impID, advertiserID, businesses[r.Intn(len(businesses))], c.id,
			fmt.Sprintf("user-%d", r.Intn(50)+1), uuid.NewString(), displayedAt)
		if err != nil {
			return err
		}
		if r.Intn(10) == 0 {
			clickedAt := displayedAt.Add(time.Duration(r.Intn(120)) * time.Second)
			_, err = pool.Exec(ctx, `UPDATE sponsored_impressions
SET clicked_at = $2, cost_per_click = 25 WHERE id = $1`, impID, clickedAt)
			if err != nil {
				return err
			}
		}
	}
	return nil
}
