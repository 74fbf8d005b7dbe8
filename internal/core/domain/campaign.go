package domain

import "time"

// Campaign statuses. Only active campaigns are eligible for admission.
const (
	StatusActive = "active"
	StatusPaused = "paused"
	StatusEnded  = "ended"
)

// Campaign represents a sponsored campaign with its per-day limits.
// Budgets are stored in integer units (cents). Campaigns are managed by
// an external surface and are read-only from this service.
type Campaign struct {
	ID                    string
	AdvertiserID          string
	Name                  string
	Status                string // active, paused, ended
	DailyImpressionsLimit int
	DailyClicksLimit      int
	DailyBudget           int64
	CreatedAt             time.Time
	UpdatedAt             time.Time
}
