package stock

import (
	"context"
	"fmt"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/clock"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/tx"
	"hospicore/internal/core/types"
	"hospicore/internal/domain/audit"
	"hospicore/pkg/logger"
)

// Service provides business operations for the stock register.
type Service struct {
	repo      Repository
	txManager tx.Manager
	auditLog  audit.Logger
	clock     clock.Clock
	policy    Policy
}

// NewService creates a new stock register service.
func NewService(repo Repository, txManager tx.Manager, auditLog audit.Logger, clk clock.Clock, policy Policy) *Service {
	return &Service{
		repo:      repo,
		txManager: txManager,
		auditLog:  auditLog,
		clock:     clk,
		policy:    policy,
	}
}

// validDemands filters out lines the engine ignores: non-positive quantities
// and unresolved product references. Such lines are skipped, not reported.
func validDemands(demands []Demand) []Demand {
	out := make([]Demand, 0, len(demands))
	for _, d := range demands {
		if !d.Quantity.IsPositive() || id.IsNil(d.ProductID) {
			continue
		}
		out = append(out, d)
	}
	return out
}

// CheckAvailability checks whether every demand can be satisfied from the
// center's inventory.
//
// Fails closed: on any lookup failure the result is unavailable with an empty
// shortage list, and the failure is returned for logging. Blocking a
// dispensation is preferred over overselling stock.
func (s *Service) CheckAvailability(ctx context.Context, centerID id.ID, demands []Demand) (Availability, error) {
	return s.checkAvailability(ctx, centerID, demands, false)
}

func (s *Service) checkAvailability(ctx context.Context, centerID id.ID, demands []Demand, lock bool) (Availability, error) {
	shortages := []ShortageItem{}

	for _, d := range validDemands(demands) {
		var (
			inv   entity.StockInventory
			found bool
			err   error
		)
		if lock {
			inv, found, err = s.repo.GetInventoryForUpdate(ctx, d.ProductID, centerID)
		} else {
			inv, found, err = s.repo.GetInventory(ctx, d.ProductID, centerID)
		}
		if err != nil {
			logger.Error(ctx, "stock availability lookup failed",
				"product_id", d.ProductID,
				"center_id", centerID,
				"error", err,
			)
			return Availability{IsAvailable: false, Shortages: []ShortageItem{}},
				apperror.NewDatabase(fmt.Errorf("inventory lookup for %s: %w", d.ProductID, err))
		}

		available := types.Quantity(0)
		if found {
			available = inv.CurrentQuantity
		}

		if !found || available < d.Quantity {
			shortages = append(shortages, ShortageItem{
				ProductID:         d.ProductID,
				RequestedQuantity: d.Quantity,
				AvailableQuantity: available,
			})
		}
	}

	return Availability{
		IsAvailable: len(shortages) == 0,
		Shortages:   shortages,
	}, nil
}

// Decrement consumes stock for a demand set and appends one ledger movement
// per decremented line.
//
// The caller is expected to have obtained IsAvailable=true for the same
// demand set; the engine nonetheless re-verifies every line with a
// conditional single-statement update, so a concurrent consumer can never
// drive a row below zero. The whole demand set is applied in one
// transaction: any refused line rolls back all of it.
//
// Lines without an inventory row are silently skipped when the policy allows
// it (partially-stocked catalogs); otherwise they fail the operation.
func (s *Service) Decrement(ctx context.Context, centerID id.ID, demands []Demand, ref Reference, actorID string) ([]MovementResult, error) {
	now := s.clock.Now()
	var results []MovementResult

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		results = results[:0]
		var movements []entity.StockMovement

		for _, d := range validDemands(demands) {
			outcome, err := s.repo.DecrementQuantity(ctx, d.ProductID, centerID, d.Quantity, actorID, now)
			if err != nil {
				return apperror.NewDatabase(fmt.Errorf("decrement %s: %w", d.ProductID, err))
			}

			if outcome.Missing {
				if s.policy.SkipMissingProducts {
					logger.Debug(ctx, "skipping demand without inventory row",
						"product_id", d.ProductID,
						"center_id", centerID,
					)
					continue
				}
				return apperror.NewNotFound("stock inventory", d.ProductID.String())
			}

			if !outcome.Applied {
				return apperror.NewInsufficientStock(
					d.ProductID.String(),
					d.Quantity.String(),
					outcome.Remaining.String(),
				)
			}

			movements = append(movements, entity.NewStockMovement(
				d.ProductID, centerID,
				ref.Movement,
				d.Quantity.Neg(),
				ref.Type, ref.ID,
				now,
				actorID,
			))

			results = append(results, MovementResult{
				ProductID:         d.ProductID,
				QuantityDelta:     d.Quantity.Neg(),
				ResultingQuantity: outcome.Remaining,
				MovementType:      ref.Movement,
				MovementDate:      now,
			})
		}

		if len(movements) == 0 {
			return nil
		}
		if err := s.repo.CreateMovements(ctx, movements); err != nil {
			return apperror.NewDatabase(fmt.Errorf("create movements: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock decremented",
		"center_id", centerID,
		"reference_type", ref.Type,
		"reference_id", ref.ID,
		"lines", len(results),
	)

	return results, nil
}

// Consume is the atomic check-and-decrement path: the availability check and
// the decrements run in one transaction over row-locked inventory, so the
// shortage report and the applied movements are consistent with each other.
//
// When stock is insufficient nothing is written and the shortage report is
// returned with a nil error; infrastructure failures are returned as errors.
func (s *Service) Consume(ctx context.Context, centerID id.ID, demands []Demand, ref Reference, actorID string) ([]MovementResult, Availability, error) {
	var (
		availability Availability
		results      []MovementResult
	)

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		av, err := s.checkAvailability(ctx, centerID, demands, true)
		if err != nil {
			return err
		}
		availability = av
		if !av.IsAvailable {
			return nil
		}

		res, err := s.Decrement(ctx, centerID, demands, ref, actorID)
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	if err != nil {
		return nil, availability, err
	}

	return results, availability, nil
}

// Receive adds stock for a demand set (deliveries, restocking) and appends
// positive ledger movements.
func (s *Service) Receive(ctx context.Context, centerID id.ID, demands []Demand, ref Reference, actorID string) ([]MovementResult, error) {
	now := s.clock.Now()
	var results []MovementResult

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		results = results[:0]
		var movements []entity.StockMovement

		for _, d := range validDemands(demands) {
			newQty, err := s.repo.IncrementQuantity(ctx, d.ProductID, centerID, d.Quantity, actorID, now)
			if err != nil {
				return apperror.NewDatabase(fmt.Errorf("increment %s: %w", d.ProductID, err))
			}

			movements = append(movements, entity.NewStockMovement(
				d.ProductID, centerID,
				ref.Movement,
				d.Quantity,
				ref.Type, ref.ID,
				now,
				actorID,
			))

			results = append(results, MovementResult{
				ProductID:         d.ProductID,
				QuantityDelta:     d.Quantity,
				ResultingQuantity: newQty,
				MovementType:      ref.Movement,
				MovementDate:      now,
			})
		}

		if len(movements) == 0 {
			return nil
		}
		if err := s.repo.CreateMovements(ctx, movements); err != nil {
			return apperror.NewDatabase(fmt.Errorf("create movements: %w", err))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info(ctx, "stock received",
		"center_id", centerID,
		"reference_type", ref.Type,
		"lines", len(results),
	)

	return results, nil
}

// Adjust applies one signed manual correction and records an adjustment
// movement. Negative adjustments use the same conditional guard as
// consumption, so a correction can never produce negative stock.
func (s *Service) Adjust(ctx context.Context, centerID, productID id.ID, delta types.Quantity, reason, actorID string) (*MovementResult, error) {
	if delta.IsZero() {
		return nil, apperror.NewValidation("adjustment delta cannot be zero").
			WithDetail("field", "delta")
	}
	if id.IsNil(productID) {
		return nil, apperror.NewValidation("product is required").
			WithDetail("field", "productId")
	}

	now := s.clock.Now()
	var result MovementResult

	err := s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var resulting types.Quantity

		if delta.IsNegative() {
			outcome, err := s.repo.DecrementQuantity(ctx, productID, centerID, delta.Abs(), actorID, now)
			if err != nil {
				return apperror.NewDatabase(fmt.Errorf("adjust decrement %s: %w", productID, err))
			}
			if outcome.Missing {
				return apperror.NewNotFound("stock inventory", productID.String())
			}
			if !outcome.Applied {
				return apperror.NewInsufficientStock(
					productID.String(),
					delta.Abs().String(),
					outcome.Remaining.String(),
				)
			}
			resulting = outcome.Remaining
		} else {
			newQty, err := s.repo.IncrementQuantity(ctx, productID, centerID, delta, actorID, now)
			if err != nil {
				return apperror.NewDatabase(fmt.Errorf("adjust increment %s: %w", productID, err))
			}
			resulting = newQty
		}

		movement := entity.NewStockMovement(
			productID, centerID,
			entity.MovementAdjustment,
			delta,
			"StockAdjustment", id.New(),
			now,
			actorID,
		)
		if err := s.repo.CreateMovements(ctx, []entity.StockMovement{movement}); err != nil {
			return apperror.NewDatabase(fmt.Errorf("create adjustment movement: %w", err))
		}

		result = MovementResult{
			ProductID:         productID,
			QuantityDelta:     delta,
			ResultingQuantity: resulting,
			MovementType:      entity.MovementAdjustment,
			MovementDate:      now,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	audit.Record(ctx, s.auditLog, audit.Entry{
		ActorID:    actorID,
		Action:     audit.ActionAdjust,
		EntityType: "StockInventory",
		EntityID:   productID,
		NewValues: map[string]any{
			"delta":     delta.String(),
			"resulting": result.ResultingQuantity.String(),
			"center_id": centerID.String(),
		},
		Description: reason,
	})

	logger.Info(ctx, "stock adjusted",
		"center_id", centerID,
		"product_id", productID,
		"delta", delta,
		"reason", reason,
	)

	return &result, nil
}

// GetInventory returns the inventory row for (product, center), or a zero
// row when none exists.
func (s *Service) GetInventory(ctx context.Context, productID, centerID id.ID) (entity.StockInventory, error) {
	inv, found, err := s.repo.GetInventory(ctx, productID, centerID)
	if err != nil {
		return entity.StockInventory{}, apperror.NewDatabase(err)
	}
	if !found {
		return entity.StockInventory{
			ProductID:        productID,
			HospitalCenterID: centerID,
		}, nil
	}
	return inv, nil
}

// GetMovementHistory returns the movement ledger for a center.
func (s *Service) GetMovementHistory(ctx context.Context, centerID id.ID, filter MovementFilter) ([]entity.StockMovement, error) {
	return s.repo.GetMovementHistory(ctx, centerID, filter)
}

// SetThresholds sets alerting thresholds for (product, center).
func (s *Service) SetThresholds(ctx context.Context, productID, centerID id.ID, minimum, maximum types.Quantity, actorID string) error {
	if minimum.IsNegative() || maximum.IsNegative() {
		return apperror.NewValidation("thresholds cannot be negative")
	}
	if !maximum.IsZero() && maximum < minimum {
		return apperror.NewValidation("maximum threshold below minimum").
			WithDetail("minimum", minimum.String()).
			WithDetail("maximum", maximum.String())
	}

	return s.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		return s.repo.UpsertThresholds(ctx, productID, centerID, minimum, maximum, actorID, s.clock.Now())
	})
}
