package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDailyCapHasRoomFor(t *testing.T) {
	base := DailyCap{
		ImpressionsLimit: 10,
		DailyBudgetLimit: 100,
	}

	tests := []struct {
		name   string
		served int
		spent  int64
		cost   int64
		want   bool
	}{
		{"fresh ledger", 0, 0, 5, true},
		{"one impression left", 9, 0, 5, true},
		{"at impression limit", 10, 0, 5, false},
		{"budget fits exactly", 0, 95, 5, true},
		{"budget would overshoot", 0, 96, 5, false},
		{"both exhausted", 10, 100, 5, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dc := base
			dc.ImpressionsServed = tt.served
			dc.BudgetSpent = tt.spent
			require.Equal(t, tt.want, dc.HasRoomFor(tt.cost))
		})
	}
}

func TestDailyCapHeadroom(t *testing.T) {
	dc := DailyCap{
		ImpressionsLimit:  100,
		DailyBudgetLimit:  1000,
		ImpressionsServed: 40,
		BudgetSpent:       500,
	}
	require.Equal(t, int64(500), dc.RemainingBudget())
	require.Equal(t, 60, dc.RemainingImpressions())
}
