package stock

import (
	"context"
	"sort"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
)

// AlertLevel classifies how urgent a stock position is.
type AlertLevel string

const (
	// AlertOutOfStock: nothing left on the shelf.
	AlertOutOfStock AlertLevel = "out_of_stock"

	// AlertLow: at or below the configured minimum threshold.
	AlertLow AlertLevel = "low"

	// AlertWarning: approaching the minimum (within 1.5x of it).
	AlertWarning AlertLevel = "warning"
)

// alertRank orders levels from most to least urgent.
func alertRank(l AlertLevel) int {
	switch l {
	case AlertOutOfStock:
		return 0
	case AlertLow:
		return 1
	default:
		return 2
	}
}

// Alert is one product whose stock position needs attention.
type Alert struct {
	ProductID        id.ID          `json:"productId"`
	HospitalCenterID id.ID          `json:"hospitalCenterId"`
	Level            AlertLevel     `json:"level"`
	CurrentQuantity  types.Quantity `json:"currentQuantity"`
	MinimumThreshold types.Quantity `json:"minimumThreshold"`
}

// classify maps a quantity against its minimum threshold, or returns false
// when the position needs no attention. A zero threshold only ever produces
// out-of-stock alerts.
//
// The warning band is quantity <= 1.5 * minimum, computed in scaled integers
// (2*q <= 3*min) to avoid fractional arithmetic.
func classify(quantity, minimum types.Quantity) (AlertLevel, bool) {
	switch {
	case quantity <= 0:
		return AlertOutOfStock, true
	case minimum > 0 && quantity <= minimum:
		return AlertLow, true
	case minimum > 0 && 2*quantity <= 3*minimum:
		return AlertWarning, true
	default:
		return "", false
	}
}

// GetAlerts returns the alerting stock positions for a center, most urgent
// first, then by quantity ascending within a level.
func (s *Service) GetAlerts(ctx context.Context, centerID id.ID) ([]Alert, error) {
	inventories, err := s.repo.GetInventoriesByCenter(ctx, centerID)
	if err != nil {
		return nil, apperror.NewDatabase(err)
	}

	alerts := []Alert{}
	for _, inv := range inventories {
		level, alerting := classify(inv.CurrentQuantity, inv.MinimumThreshold)
		if !alerting {
			continue
		}
		alerts = append(alerts, Alert{
			ProductID:        inv.ProductID,
			HospitalCenterID: inv.HospitalCenterID,
			Level:            level,
			CurrentQuantity:  inv.CurrentQuantity,
			MinimumThreshold: inv.MinimumThreshold,
		})
	}

	sort.SliceStable(alerts, func(i, j int) bool {
		ri, rj := alertRank(alerts[i].Level), alertRank(alerts[j].Level)
		if ri != rj {
			return ri < rj
		}
		return alerts[i].CurrentQuantity < alerts[j].CurrentQuantity
	})

	return alerts, nil
}
