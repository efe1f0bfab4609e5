package dto

import "time"

// CreateHandoverRequest records cash handed to a financier.
//
// Amounts travel as strings to keep decimal precision across the wire.
// RemainingCashAmount is advisory; the server always stores total - handover.
type CreateHandoverRequest struct {
	FinancierID         string `json:"financierId" binding:"required"`
	TotalCashAmount     string `json:"totalCashAmount" binding:"required"`
	HandoverAmount      string `json:"handoverAmount" binding:"required"`
	RemainingCashAmount string `json:"remainingCashAmount"`
	Comment             string `json:"comment"`
}

// BalanceResponse carries a point-in-time cash balance.
type BalanceResponse struct {
	HospitalCenterID string     `json:"hospitalCenterId"`
	Balance          string     `json:"balance"`
	AsOf             *time.Time `json:"asOf,omitempty"`
}
