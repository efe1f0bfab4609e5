package stock

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name     string
		quantity types.Quantity
		minimum  types.Quantity
		level    AlertLevel
		alerting bool
	}{
		{"zero stock", qty(0), qty(10), AlertOutOfStock, true},
		{"zero stock without threshold", qty(0), qty(0), AlertOutOfStock, true},
		{"at minimum", qty(10), qty(10), AlertLow, true},
		{"below minimum", qty(7), qty(10), AlertLow, true},
		{"inside warning band", qty(14), qty(10), AlertWarning, true},
		{"at warning band edge", qty(15), qty(10), AlertWarning, true},
		{"just above warning band", qty(15.0001), qty(10), "", false},
		{"comfortable stock", qty(100), qty(10), "", false},
		{"no threshold no alert", qty(3), qty(0), "", false},
		{"fractional band", qty(3.7), qty(2.5), AlertWarning, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			level, alerting := classify(tt.quantity, tt.minimum)
			assert.Equal(t, tt.alerting, alerting)
			if tt.alerting {
				assert.Equal(t, tt.level, level)
			}
		})
	}
}

func TestGetAlerts(t *testing.T) {
	ctx := context.Background()
	centerID := id.New()
	otherCenter := id.New()

	outOfStock := id.New()
	low := id.New()
	lower := id.New()
	warning := id.New()
	healthy := id.New()

	repo := newFakeRepo()
	repo.seed(outOfStock, centerID, qty(0), qty(5))
	repo.seed(low, centerID, qty(4), qty(5))
	repo.seed(lower, centerID, qty(2), qty(5))
	repo.seed(warning, centerID, qty(7), qty(5))
	repo.seed(healthy, centerID, qty(200), qty(5))
	repo.seed(low, otherCenter, qty(1), qty(5))

	svc := newTestService(repo, Policy{})

	alerts, err := svc.GetAlerts(ctx, centerID)
	require.NoError(t, err)
	require.Len(t, alerts, 4)

	// Most urgent first, quantity ascending within a level.
	assert.Equal(t, outOfStock, alerts[0].ProductID)
	assert.Equal(t, AlertOutOfStock, alerts[0].Level)
	assert.Equal(t, lower, alerts[1].ProductID)
	assert.Equal(t, AlertLow, alerts[1].Level)
	assert.Equal(t, low, alerts[2].ProductID)
	assert.Equal(t, warning, alerts[3].ProductID)
	assert.Equal(t, AlertWarning, alerts[3].Level)

	for _, a := range alerts {
		assert.Equal(t, centerID, a.HospitalCenterID)
	}
}
