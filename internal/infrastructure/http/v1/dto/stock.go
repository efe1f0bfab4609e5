package dto

import (
	"hospicore/internal/core/types"
)

// DemandLine is one product/quantity pair in a stock request.
type DemandLine struct {
	ProductID string         `json:"productId" binding:"required"`
	Quantity  types.Quantity `json:"quantity" binding:"required"`
}

// CheckAvailabilityRequest asks whether a demand set can be satisfied.
type CheckAvailabilityRequest struct {
	Items []DemandLine `json:"items" binding:"required,min=1"`
}

// ReceiveStockRequest adds stock (deliveries, restocking).
type ReceiveStockRequest struct {
	Items         []DemandLine `json:"items" binding:"required,min=1"`
	ReferenceType string       `json:"referenceType"`
	ReferenceID   string       `json:"referenceId"`
}

// AdjustStockRequest applies one signed manual correction.
type AdjustStockRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Delta     types.Quantity `json:"delta" binding:"required"`
	Reason    string         `json:"reason" binding:"required"`
}

// SetThresholdsRequest sets alerting thresholds for a product at a center.
type SetThresholdsRequest struct {
	ProductID string         `json:"productId" binding:"required"`
	Minimum   types.Quantity `json:"minimum"`
	Maximum   types.Quantity `json:"maximum"`
}
