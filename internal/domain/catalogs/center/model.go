// Package center provides the HospitalCenter catalog.
// A center is the scoping unit for inventory, cash and clinical operations.
package center

import (
	"context"

	"hospicore/internal/core/apperror"
	"hospicore/internal/core/entity"
)

// HospitalCenter represents one hospital site.
type HospitalCenter struct {
	entity.Catalog

	// City is the locality for display and reporting
	City string `db:"city" json:"city,omitempty"`

	// Address is the physical address
	Address string `db:"address" json:"address,omitempty"`

	// Phone is the reception contact
	Phone string `db:"phone" json:"phone,omitempty"`

	// Timezone is informational; the operational clock is deployment-wide
	Timezone string `db:"timezone" json:"timezone,omitempty"`
}

// NewHospitalCenter creates a new center with required fields.
func NewHospitalCenter(code, name string) *HospitalCenter {
	return &HospitalCenter{
		Catalog: entity.NewCatalog(code, name),
	}
}

// Validate implements entity.Validatable.
func (c *HospitalCenter) Validate(ctx context.Context) error {
	if err := c.Catalog.Validate(ctx); err != nil {
		return err
	}

	if c.Code == "" {
		return apperror.NewValidation("code is required").
			WithDetail("field", "code")
	}

	return nil
}
