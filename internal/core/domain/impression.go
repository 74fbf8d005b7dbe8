package domain

import "time"

// DefaultImpressionType is used when the caller does not specify where
// the placement was shown.
const DefaultImpressionType = "search_result"

// Impression is a record of a sponsored placement being shown. ClickedAt
// and CostPerClick stay nil until the impression is clicked; everything
// else is immutable after creation.
type Impression struct {
	ID                string
	AdvertiserID      string
	BusinessID        string
	CampaignID        string
	ImpressionType    string
	UserID            *string
	SessionID         *string
	LocationLat       *float64
	LocationLng       *float64
	CostPerImpression int64
	PositionRank      int
	DisplayedAt       time.Time
	ClickedAt         *time.Time
	CostPerClick      *int64
}

// Clicked reports whether a click has been recorded for this impression.
func (i Impression) Clicked() bool {
	return i.ClickedAt != nil
}
