package domain

// DailyCap is the per-day consumption ledger for one campaign. Exactly one
// row exists per (campaign, calendar day); it is created lazily on the
// first admission check of the day and never deleted. Counters only grow.
// Money amounts are integer cents, matching Campaign.
type DailyCap struct {
	CampaignID        string
	CapDate           string // YYYY-MM-DD in the configured cap timezone
	ImpressionsLimit  int
	ClicksLimit       int
	DailyBudgetLimit  int64
	ImpressionsServed int
	ClicksServed      int
	BudgetSpent       int64
}

// RemainingBudget returns the unspent budget in cents.
func (c DailyCap) RemainingBudget() int64 {
	return c.DailyBudgetLimit - c.BudgetSpent
}

// RemainingImpressions returns how many more impressions fit today.
func (c DailyCap) RemainingImpressions() int {
	return c.ImpressionsLimit - c.ImpressionsServed
}

// HasRoomFor reports whether one more impression at the given cost fits
// within both the budget and the impression limit. A cap sitting exactly
// at either limit has no room.
func (c DailyCap) HasRoomFor(cost int64) bool {
	return c.BudgetSpent+cost <= c.DailyBudgetLimit &&
		c.ImpressionsServed+1 <= c.ImpressionsLimit
}
