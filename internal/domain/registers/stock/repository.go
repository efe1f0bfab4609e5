// Package stock provides the stock inventory register: availability checks,
// guarded decrements and the append-only movement ledger.
package stock

import (
	"context"
	"time"

	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
)

// Demand is one requested line: a product and a quantity to consume.
type Demand struct {
	ProductID id.ID          `json:"productId"`
	Quantity  types.Quantity `json:"quantity"`
}

// ShortageItem reports a demand line that cannot be satisfied.
type ShortageItem struct {
	ProductID         id.ID          `json:"productId"`
	RequestedQuantity types.Quantity `json:"requestedQuantity"`
	AvailableQuantity types.Quantity `json:"availableQuantity"`
}

// Availability is the outcome of an availability check.
// IsAvailable is true exactly when Shortages is empty.
type Availability struct {
	IsAvailable bool           `json:"isAvailable"`
	Shortages   []ShortageItem `json:"shortages"`
}

// Reference identifies the business operation that triggers a movement.
type Reference struct {
	// Type is the referencing entity name (e.g. "Prescription", "CareEpisode")
	Type string
	// ID is the referencing entity's ID
	ID id.ID
	// Movement is the ledger movement type recorded for this operation
	Movement entity.MovementType
}

// MovementResult describes one successfully applied inventory change.
type MovementResult struct {
	ProductID         id.ID               `json:"productId"`
	QuantityDelta     types.Quantity      `json:"quantityDelta"`
	ResultingQuantity types.Quantity      `json:"resultingQuantity"`
	MovementType      entity.MovementType `json:"movementType"`
	MovementDate      time.Time           `json:"movementDate"`
}

// Policy holds business policy switches for the engine.
type Policy struct {
	// SkipMissingProducts: demands without an inventory row are silently
	// skipped during decrement (tolerance for partially-stocked catalogs)
	// instead of failing the whole operation.
	SkipMissingProducts bool
}

// DecrementOutcome is the result of one conditional decrement.
type DecrementOutcome struct {
	// Applied is true when the row existed and held enough stock
	Applied bool

	// Missing is true when no inventory row exists for (product, center)
	Missing bool

	// Remaining is the post-update quantity when applied, or the current
	// quantity when the decrement was refused for insufficiency
	Remaining types.Quantity
}

// MovementFilter for filtering movement history.
type MovementFilter struct {
	ProductID    *id.ID
	MovementType *entity.MovementType
	FromDate     *time.Time
	ToDate       *time.Time
	Limit        int
	Offset       int
}

// Repository defines persistence operations for the stock register.
type Repository interface {
	// GetInventory returns the inventory row for (product, center).
	// found is false when no row exists.
	GetInventory(ctx context.Context, productID, centerID id.ID) (inv entity.StockInventory, found bool, err error)

	// GetInventoryForUpdate is GetInventory with a row lock, for use inside
	// a transaction that will decrement the row.
	GetInventoryForUpdate(ctx context.Context, productID, centerID id.ID) (inv entity.StockInventory, found bool, err error)

	// GetInventoriesByCenter returns all inventory rows for a center.
	GetInventoriesByCenter(ctx context.Context, centerID id.ID) ([]entity.StockInventory, error)

	// DecrementQuantity applies quantity = quantity - qty only when
	// quantity >= qty, reporting whether the update was applied. This is the
	// single-statement guard that closes the check-then-act race.
	DecrementQuantity(ctx context.Context, productID, centerID id.ID, qty types.Quantity, updatedBy string, now time.Time) (DecrementOutcome, error)

	// IncrementQuantity adds qty to the inventory row, creating it when
	// absent. Returns the resulting quantity.
	IncrementQuantity(ctx context.Context, productID, centerID id.ID, qty types.Quantity, updatedBy string, now time.Time) (types.Quantity, error)

	// CreateMovements batch inserts ledger entries. Movements are immutable.
	CreateMovements(ctx context.Context, movements []entity.StockMovement) error

	// GetMovementHistory returns movement history for a center.
	GetMovementHistory(ctx context.Context, centerID id.ID, filter MovementFilter) ([]entity.StockMovement, error)

	// UpsertThresholds sets minimum/maximum thresholds for (product, center).
	UpsertThresholds(ctx context.Context, productID, centerID id.ID, minimum, maximum types.Quantity, updatedBy string, now time.Time) error
}
