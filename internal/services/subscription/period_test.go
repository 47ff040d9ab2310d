package subscription

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/entitlement-core/internal/models"
)

func TestComputeDefaultExpiry(t *testing.T) {
	from := time.Date(2025, 1, 31, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		plan models.PlanType
		want *time.Time
	}{
		{"monthly", models.PlanMonthly, ptrTime(time.Date(2025, 3, 3, 12, 0, 0, 0, time.UTC))},
		{"yearly", models.PlanYearly, ptrTime(time.Date(2026, 1, 31, 12, 0, 0, 0, time.UTC))},
		{"trial", models.PlanTrial, ptrTime(time.Date(2025, 2, 7, 12, 0, 0, 0, time.UTC))},
		{"lifetime", models.PlanLifetime, nil},
		{"unknown", models.PlanType("weekly"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeDefaultExpiry(tt.plan, from)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestPeriod(t *testing.T) {
	assert.True(t, Period{}.IsZero())
	assert.False(t, Period{Days: 30}.IsZero())

	base := time.Date(2025, 1, 26, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2025, 2, 25, 0, 0, 0, 0, time.UTC), Period{Days: 30}.AddTo(base))
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), Period{Months: 1, Days: 3}.AddTo(base))
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
