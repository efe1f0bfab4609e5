package entity

import (
	"time"

	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
)

// MovementType identifies the business operation that produced a stock
// movement.
type MovementType string

const (
	MovementPrescription MovementType = "prescription"
	MovementCare         MovementType = "care"
	MovementAdjustment   MovementType = "adjustment"
	MovementReceipt      MovementType = "receipt"
)

// StockMovement is an append-only ledger entry for one product/center
// inventory. Movements are immutable: never updated, never deleted. The sum
// of quantities for a product/center reconciles to the inventory row's
// current quantity.
type StockMovement struct {
	// LineID is the unique identifier for this movement line (UUIDv7)
	LineID id.ID `db:"line_id" json:"lineId"`

	// Dimensions
	ProductID        id.ID `db:"product_id" json:"productId"`
	HospitalCenterID id.ID `db:"hospital_center_id" json:"hospitalCenterId"`

	// MovementType names the triggering operation kind
	MovementType MovementType `db:"movement_type" json:"movementType"`

	// Quantity is signed: negative = consumption, positive = receipt
	Quantity types.Quantity `db:"quantity" json:"quantity"`

	// ReferenceType / ReferenceID form a polymorphic link to the triggering
	// operation (e.g. "Prescription" + prescription ID)
	ReferenceType string `db:"reference_type" json:"referenceType"`
	ReferenceID   id.ID  `db:"reference_id" json:"referenceId"`

	// MovementDate is the business date (operational local time)
	MovementDate time.Time `db:"movement_date" json:"movementDate"`

	CreatedBy string    `db:"created_by" json:"createdBy"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// NewStockMovement creates a movement line with a generated LineID.
func NewStockMovement(
	productID, centerID id.ID,
	movementType MovementType,
	quantity types.Quantity,
	referenceType string,
	referenceID id.ID,
	movementDate time.Time,
	createdBy string,
) StockMovement {
	return StockMovement{
		LineID:           id.New(),
		ProductID:        productID,
		HospitalCenterID: centerID,
		MovementType:     movementType,
		Quantity:         quantity,
		ReferenceType:    referenceType,
		ReferenceID:      referenceID,
		MovementDate:     movementDate,
		CreatedBy:        createdBy,
		CreatedAt:        movementDate,
	}
}

// IsConsumption reports whether the movement decreases stock.
func (m *StockMovement) IsConsumption() bool {
	return m.Quantity.IsNegative()
}

// StockInventory is the per (product, center) balance row, mutated in place
// on every movement. CurrentQuantity must never go below zero; the decrement
// path enforces this with a conditional update.
type StockInventory struct {
	ProductID        id.ID `db:"product_id" json:"productId"`
	HospitalCenterID id.ID `db:"hospital_center_id" json:"hospitalCenterId"`

	CurrentQuantity  types.Quantity `db:"current_quantity" json:"currentQuantity"`
	MinimumThreshold types.Quantity `db:"minimum_threshold" json:"minimumThreshold"`
	MaximumThreshold types.Quantity `db:"maximum_threshold" json:"maximumThreshold"`

	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
	UpdatedBy string    `db:"updated_by" json:"updatedBy,omitempty"`
}
