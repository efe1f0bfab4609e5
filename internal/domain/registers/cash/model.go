// Package cash provides the cash ledger register: running-balance
// reconciliation over payment receipts and cash handovers to financiers.
package cash

import (
	"context"
	"time"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/id"
	"hospicore/internal/core/types"
)

// Handover records physical cash handed from a center to a financier.
// Handovers are immutable ledger events: created once, never updated or
// deleted. Balance queries anchor on the most recent handover's remainder.
type Handover struct {
	entity.Document

	// FinancierID is the receiving party (must be active at creation time)
	FinancierID id.ID `db:"financier_id" json:"financierId"`

	// TotalCashAmount is the cash counted in the register at handover time,
	// as declared by the cashier
	TotalCashAmount types.Money `db:"total_cash_amount" json:"totalCashAmount"`

	// HandoverAmount is the cash physically handed over
	HandoverAmount types.Money `db:"handover_amount" json:"handoverAmount"`

	// RemainingCashAmount is the cash left in the register. Always derived:
	// total - handover. Client-supplied values are recomputed, not trusted.
	RemainingCashAmount types.Money `db:"remaining_cash_amount" json:"remainingCashAmount"`

	// HandedOverBy identifies the cashier who performed the handover
	HandedOverBy string `db:"handed_over_by" json:"handedOverBy"`
}

// Validate implements entity.Validatable.
func (h *Handover) Validate(ctx context.Context) error {
	if err := h.Document.Validate(ctx); err != nil {
		return err
	}

	if id.IsNil(h.FinancierID) {
		return apperror.NewValidation("financier is required").
			WithDetail("field", "financierId")
	}

	if !h.HandoverAmount.IsPositive() {
		return apperror.NewValidation("handover amount must be positive").
			WithDetail("field", "handoverAmount").
			WithDetail("amount", h.HandoverAmount.String())
	}

	if h.HandoverAmount.GreaterThan(h.TotalCashAmount) {
		return apperror.NewValidation("handover amount exceeds total cash").
			WithDetail("handoverAmount", h.HandoverAmount.String()).
			WithDetail("totalCashAmount", h.TotalCashAmount.String())
	}

	return nil
}

// Receipt is one counted cash payment as seen by the ledger. Payments are
// recorded by the billing flow; the register only reads them. Cancelled
// payments and non-cash methods are filtered out at the query level.
type Receipt struct {
	PaymentID        id.ID       `db:"payment_id" json:"paymentId"`
	HospitalCenterID id.ID       `db:"hospital_center_id" json:"hospitalCenterId"`
	PaymentMethodID  id.ID       `db:"payment_method_id" json:"paymentMethodId"`
	Amount           types.Money `db:"amount" json:"amount"`
	PaidAt           time.Time   `db:"paid_at" json:"paidAt"`
	PayerName        string      `db:"payer_name" json:"payerName,omitempty"`
	Notes            string      `db:"notes" json:"notes,omitempty"`
}

// Direction of a ledger movement.
type Direction string

const (
	// DirectionIn: cash entering the register (a receipt).
	DirectionIn Direction = "in"

	// DirectionOut: cash leaving the register (a handover).
	DirectionOut Direction = "out"
)

// Movement is one line of the reconciled cash ledger, with the running
// balance after the line is applied.
type Movement struct {
	Direction      Direction   `json:"direction"`
	At             time.Time   `json:"at"`
	Amount         types.Money `json:"amount"`
	RunningBalance types.Money `json:"runningBalance"`

	// ReferenceType / ReferenceID point at the payment or handover
	ReferenceType string `json:"referenceType"`
	ReferenceID   id.ID  `json:"referenceId"`

	// Label is a human-readable description (payer or handover number)
	Label string `json:"label,omitempty"`
}

// Position is the at-a-glance cash state of a center.
type Position struct {
	HospitalCenterID id.ID       `json:"hospitalCenterId"`
	CurrentBalance   types.Money `json:"currentBalance"`

	// LastHandoverDate is nil when the center has never handed cash over
	LastHandoverDate   *time.Time  `json:"lastHandoverDate,omitempty"`
	LastHandoverAmount types.Money `json:"lastHandoverAmount"`

	// ReceiptsSinceLastHandover is the cash received after the last handover
	// (all receipts when none exists)
	ReceiptsSinceLastHandover types.Money `json:"receiptsSinceLastHandover"`

	// DaysSinceLastHandover is floored at 1 so the daily average below never
	// divides by zero. A handover made earlier today counts as one day.
	DaysSinceLastHandover int `json:"daysSinceLastHandover"`

	AverageDailyReceipts types.Money `json:"averageDailyReceipts"`
}
