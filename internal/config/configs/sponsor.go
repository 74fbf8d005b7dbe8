package configs

import "time"

// Sponsor holds the pricing and cap-rollover settings of the admission
// gate. Costs are integer cents. CapTimezone decides which calendar day a
// cap row belongs to; whether advertisers are billed on server UTC days or
// their local days is a product decision, so it is surfaced here instead
// of being hard-coded.
type Sponsor struct {
	// ImpressionCostCents is charged against the daily budget per served
	// impression.
	ImpressionCostCents int64 `env:"IMPRESSION_COST_CENTS" envDefault:"5"`
	// ClickCostCents is charged per recorded click.
	ClickCostCents int64 `env:"CLICK_COST_CENTS" envDefault:"25"`
	// CapTimezone is an IANA zone name used to compute the cap date.
	CapTimezone string `env:"CAP_TIMEZONE" envDefault:"UTC"`
}

// Location resolves CapTimezone into a *time.Location.
func (c Sponsor) Location() (*time.Location, error) {
	return time.LoadLocation(c.CapTimezone)
}
