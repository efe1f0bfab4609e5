// Package product provides the Product catalog (medications and consumables).
package product

import (
	"context"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
	"hospicore/internal/core/types"
)

// Form describes the dispensing form of a product.
type Form string

const (
	FormTablet     Form = "tablet"
	FormAmpoule    Form = "ampoule"
	FormSyrup      Form = "syrup"
	FormConsumable Form = "consumable"
	FormOther      Form = "other"
)

// Product represents a medication or consumable tracked in stock.
type Product struct {
	entity.Catalog

	// Form is the dispensing form
	Form Form `db:"form" json:"form"`

	// Unit is the stock-keeping unit label (e.g. "box", "vial")
	Unit string `db:"unit" json:"unit"`

	// UnitPrice is the billing price per unit
	UnitPrice types.Money `db:"unit_price" json:"unitPrice"`
}

// NewProduct creates a new product with required fields.
func NewProduct(code, name string, form Form, unit string, unitPrice types.Money) *Product {
	return &Product{
		Catalog:   entity.NewCatalog(code, name),
		Form:      form,
		Unit:      unit,
		UnitPrice: unitPrice,
	}
}

// Validate implements entity.Validatable.
func (p *Product) Validate(ctx context.Context) error {
	if err := p.Catalog.Validate(ctx); err != nil {
		return err
	}

	if !isValidForm(p.Form) {
		return apperror.NewValidation("invalid product form").
			WithDetail("field", "form").
			WithDetail("value", string(p.Form))
	}

	if p.Unit == "" {
		return apperror.NewValidation("unit is required").
			WithDetail("field", "unit")
	}

	if p.UnitPrice.IsNegative() {
		return apperror.NewValidation("unit price cannot be negative").
			WithDetail("field", "unitPrice")
	}

	return nil
}

func isValidForm(f Form) bool {
	switch f {
	case FormTablet, FormAmpoule, FormSyrup, FormConsumable, FormOther:
		return true
	}
	return false
}
