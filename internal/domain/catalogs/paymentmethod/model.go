// Package paymentmethod provides the PaymentMethod catalog.
//
// Cash-equivalence is an explicit attribute resolved once when a method is
// registered, not a per-query match against the display name. The cash
// reconciler only trusts IsCashEquivalent.
package paymentmethod

import (
	"context"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
)

// PaymentMethod represents one way patients pay (cash desk, mobile money,
// bank transfer, insurance coverage).
type PaymentMethod struct {
	entity.Catalog

	// IsCashEquivalent marks methods whose receipts accumulate as physical
	// cash at the center and therefore enter the cash ledger
	IsCashEquivalent bool `db:"is_cash_equivalent" json:"isCashEquivalent"`
}

// NewPaymentMethod creates a new payment method.
func NewPaymentMethod(code, name string) *PaymentMethod {
	return &PaymentMethod{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable.
func (m *PaymentMethod) Validate(ctx context.Context) error {
	if err := m.Catalog.Validate(ctx); err != nil {
		return err
	}

	if m.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}

	return nil
}
